// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heart

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

var rateTests = []struct {
	name    string
	data    []byte
	want    Rate
	wantErr error
}{
	{
		name: "rr_intervals",
		data: []byte{16, 60, 55, 4, 7, 3},
		want: Rate{
			HR:     60,
			RR:     []time.Duration{1104 * time.Millisecond, 793 * time.Millisecond},
			Energy: -1,
		},
	},
	{
		name: "no_rr",
		data: []byte{0, 72},
		want: Rate{HR: 72, Energy: -1},
	},
	{
		name: "rr_odd_trailing_byte",
		data: []byte{16, 60, 55, 4, 7},
		want: Rate{
			HR:     60,
			RR:     []time.Duration{1104 * time.Millisecond},
			Energy: -1,
		},
	},
	{
		name: "rr_flag_without_intervals",
		data: []byte{16, 60},
		want: Rate{HR: 60, Energy: -1},
	},
	{
		name: "rr_flag_single_byte",
		data: []byte{16, 60, 7},
		want: Rate{HR: 60, Energy: -1},
	},
	{
		name: "uint16_hr_with_energy_and_contact",
		data: []byte{0x0f, 0x2c, 0x01, 0x10, 0x00},
		want: Rate{
			HR:               300,
			Energy:           16,
			EnergyExpended:   true,
			Contact:          true,
			ContactSupported: true,
		},
	},
	{
		name:    "no_contact",
		data:    []byte{0x04, 60},
		want:    Rate{ContactSupported: true},
		wantErr: ErrNoContact,
	},
	{
		name:    "empty",
		data:    nil,
		wantErr: ErrInvalidLength,
	},
	{
		name:    "short_uint16_hr",
		data:    []byte{0x01, 0x2c},
		wantErr: ErrInvalidLength,
	},
	{
		name:    "short_energy",
		data:    []byte{0x08, 60, 1},
		wantErr: ErrInvalidLength,
	},
}

func TestRate(t *testing.T) {
	for _, test := range rateTests {
		t.Run(test.name, func(t *testing.T) {
			var got Rate
			err := got.UnmarshalBinary(test.data)
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("unexpected error: got:%v want:%v", err, test.wantErr)
			}
			if !reflect.DeepEqual(got, test.want) {
				t.Errorf("unexpected result:\ngot: %+v\nwant:%+v", got, test.want)
			}
		})
	}
}

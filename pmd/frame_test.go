// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pmd

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

// timestamp 599618164814402794 ns.
var stamp = []byte{0xea, 0x54, 0xa2, 0x42, 0x8b, 0x45, 0x52, 0x08}

func notification(typ MeasureType, ft FrameType, samples ...byte) []byte {
	b := append([]byte{byte(typ)}, stamp...)
	b = append(b, byte(ft))
	return append(b, samples...)
}

var frameTests = []struct {
	name    string
	data    []byte
	want    Frame
	wantErr error
}{
	{
		name: "ecg",
		data: notification(ECGType, ECGFrameType0, 0xff, 0xff, 0xff),
		want: Frame{
			Type:      ECGType,
			FrameType: ECGFrameType0,
			Timestamp: 599618164814402794,
			Samples:   []Sample{ECG{Voltage: -1}},
		},
	},
	{
		name: "ecg_multiple",
		data: notification(ECGType, ECGFrameType0, 0x10, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x00, 0x80),
		want: Frame{
			Type:      ECGType,
			FrameType: ECGFrameType0,
			Timestamp: 599618164814402794,
			Samples: []Sample{
				ECG{Voltage: 16},
				ECG{Voltage: 1_048_576},
				ECG{Voltage: -8_388_608},
			},
		},
	},
	{
		name: "acc_int16",
		data: []byte{
			0x02, 0xea, 0x54, 0xa2, 0x42, 0x8b, 0x45, 0x52, 0x08, 0x01,
			0x45, 0xff, 0xe4, 0xff, 0xb5, 0x03,
			0x45, 0xff, 0xe4, 0xff, 0xb8, 0x03,
		},
		want: Frame{
			Type:      AccType,
			FrameType: AccFrameType1,
			Timestamp: 599618164814402794,
			Samples: []Sample{
				Acc{X: -187, Y: -28, Z: 949},
				Acc{X: -187, Y: -28, Z: 952},
			},
		},
	},
	{
		name: "acc_int8",
		data: notification(AccType, AccFrameType0, 0xff, 0x01, 0x10),
		want: Frame{
			Type:      AccType,
			FrameType: AccFrameType0,
			Timestamp: 599618164814402794,
			Samples:   []Sample{Acc{X: -1, Y: 1, Z: 16}},
		},
	},
	{
		name: "acc_int24",
		data: notification(AccType, AccFrameType2, 0xff, 0xff, 0xff, 0x00, 0x00, 0x10, 0x01, 0x00, 0x00),
		want: Frame{
			Type:      AccType,
			FrameType: AccFrameType2,
			Timestamp: 599618164814402794,
			Samples:   []Sample{Acc{X: -1, Y: 1_048_576, Z: 1}},
		},
	},
	{
		name: "ppg",
		data: notification(PPGType, PPGFrameType0,
			0x01, 0x00, 0x00,
			0x02, 0x00, 0x00,
			0xff, 0xff, 0xff,
			0x00, 0x01, 0x00,
		),
		want: Frame{
			Type:      PPGType,
			FrameType: PPGFrameType0,
			Timestamp: 599618164814402794,
			Samples:   []Sample{PPG{Channels: [3]int32{1, 2, -1}, Ambient: 256}},
		},
	},
	{
		name: "ppi",
		data: notification(PPIType, PPIFrameType0, 60, 0xe8, 0x03, 0x0a, 0x00, 0x06),
		want: Frame{
			Type:      PPIType,
			FrameType: PPIFrameType0,
			Timestamp: 599618164814402794,
			Samples: []Sample{PPI{
				HR:       60,
				Interval: 1000,
				Error:    10,
				Flags:    PPISkinContact | PPISkinContactSupported,
			}},
		},
	},
	{
		name:    "ppi_invalid",
		data:    notification(PPIType, PPIFrameType0, 60, 0xe8, 0x03, 0x0a, 0x00, 0x07),
		wantErr: ErrInvalidData,
	},
	{
		name:    "empty",
		data:    nil,
		wantErr: ErrInvalidLength,
	},
	{
		name:    "unknown_type",
		data:    []byte{0x09, 0xea, 0x54, 0xa2, 0x42, 0x8b, 0x45, 0x52, 0x08, 0x00, 0x00, 0x00, 0x00},
		wantErr: ErrInvalidData,
	},
	{
		name:    "unknown_frame_type",
		data:    notification(ECGType, 7, 0x00, 0x00, 0x00),
		wantErr: ErrInvalidData,
	},
	{
		name:    "truncated_header",
		data:    []byte{0x00, 0xea, 0x54, 0xa2},
		wantErr: ErrInvalidLength,
	},
	{
		name:    "no_samples",
		data:    notification(ECGType, ECGFrameType0),
		wantErr: ErrInvalidLength,
	},
	{
		name:    "partial_sample",
		data:    notification(AccType, AccFrameType1, 0x45, 0xff, 0xe4, 0xff, 0xb5, 0x03, 0x45),
		wantErr: ErrInvalidLength,
	},
}

func TestFrameUnmarshalBinary(t *testing.T) {
	for _, test := range frameTests {
		t.Run(test.name, func(t *testing.T) {
			var got Frame
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

func TestFrameUnmarshalBinaryLeavesReceiver(t *testing.T) {
	want := Frame{Type: ECGType, Timestamp: 1, Samples: []Sample{ECG{Voltage: 3}}}
	got := want
	err := got.UnmarshalBinary(notification(ECGType, ECGFrameType0, 0x00, 0x00))
	if !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("unexpected error: got:%v want:%v", err, ErrInvalidLength)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("receiver modified by failed decode:\ngot: %+v\nwant:%+v", got, want)
	}
}

func TestFrameTime(t *testing.T) {
	f := Frame{Timestamp: 599618164814402794}
	want := time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC).Add(599618164814402794)
	if got := f.Time(); !got.Equal(want) {
		t.Errorf("unexpected time: got:%v want:%v", got, want)
	}
}

func TestSampleTypes(t *testing.T) {
	for _, test := range []struct {
		sample Sample
		want   MeasureType
	}{
		{sample: ECG{}, want: ECGType},
		{sample: PPG{}, want: PPGType},
		{sample: Acc{}, want: AccType},
		{sample: PPI{}, want: PPIType},
	} {
		if got := test.sample.Type(); got != test.want {
			t.Errorf("unexpected type for %T: got:%s want:%s", test.sample, got, test.want)
		}
	}
}

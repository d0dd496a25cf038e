// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pmd

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

var (
	ecgSettingsResponse = []byte{
		0xf0, 0x01, 0x00, 0x00, 0x00,
		0x00, 0x01, 0x82, 0x00,
		0x01, 0x01, 0x0e, 0x00,
	}
	accSettingsResponse = []byte{
		0xf0, 0x01, 0x02, 0x00, 0x00,
		0x00, 0x04, 0x19, 0x00, 0x32, 0x00, 0x64, 0x00, 0xc8, 0x00,
		0x01, 0x01, 0x10, 0x00,
		0x02, 0x03, 0x02, 0x00, 0x04, 0x00, 0x08, 0x00,
	}
)

var streamSettingsTests = []struct {
	name    string
	resp    []byte
	want    StreamSettings
	wantErr error
}{
	{
		name: "ecg",
		resp: ecgSettingsResponse,
		want: StreamSettings{
			Type:       ECGType,
			Resolution: 14,
			SampleRate: []uint8{130},
		},
	},
	{
		name: "acc",
		resp: accSettingsResponse,
		want: StreamSettings{
			Type:       AccType,
			Resolution: 16,
			Range:      []uint8{2, 4, 8},
			SampleRate: []uint8{25, 50, 100, 200},
		},
	},
	{
		name: "zero_length_setting",
		resp: []byte{0xf0, 0x01, 0x00, 0x00, 0x00, 0x05, 0x00, 0x00, 0x01, 0x82, 0x00},
		want: StreamSettings{
			Type:       ECGType,
			SampleRate: []uint8{130},
		},
	},
	{
		name:    "wrong_opcode",
		resp:    []byte{0xf0, 0x02, 0x00, 0x00, 0x00, 0x00, 0x01, 0x82, 0x00},
		wantErr: ErrWrongResponse,
	},
	{
		name:    "truncated_reserved_byte",
		resp:    []byte{0xf0, 0x01, 0x00, 0x00, 0x00, 0x00, 0x01, 0x82},
		wantErr: ErrInvalidData,
	},
	{
		name:    "truncated_values",
		resp:    []byte{0xf0, 0x01, 0x02, 0x00, 0x00, 0x00, 0x04, 0x19, 0x00, 0x32, 0x00},
		wantErr: ErrInvalidData,
	},
	{
		name:    "truncated_length",
		resp:    []byte{0xf0, 0x01, 0x00, 0x00, 0x00, 0x00, 0x01, 0x82, 0x00, 0x01},
		wantErr: ErrInvalidData,
	},
	{
		name:    "no_sample_rate",
		resp:    []byte{0xf0, 0x01, 0x00, 0x00, 0x00, 0x01, 0x01, 0x0e, 0x00},
		wantErr: ErrInvalidData,
	},
	{
		name:    "no_parameters",
		resp:    []byte{0xf0, 0x01, 0x00, 0x00},
		wantErr: ErrInvalidData,
	},
}

func TestNewStreamSettings(t *testing.T) {
	for _, test := range streamSettingsTests {
		t.Run(test.name, func(t *testing.T) {
			resp, err := parseResponse(test.resp, FramingAuto)
			if err != nil {
				t.Fatalf("unexpected error parsing response: %v", err)
			}
			got, err := NewStreamSettings(&resp)
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("unexpected error: got:%v want:%v", err, test.wantErr)
			}
			if !reflect.DeepEqual(got, test.want) {
				t.Errorf("unexpected result:\ngot: %+v\nwant:%+v", got, test.want)
			}
		})
	}
}

func TestNewStreamSettingsFailedStatus(t *testing.T) {
	resp := ControlResponse{Opcode: MeasureSettings, Type: AccType, Status: StatusNotSupported}
	_, err := NewStreamSettings(&resp)
	if !errors.Is(err, ErrWrongResponse) {
		t.Errorf("unexpected error: got:%v want:%v", err, ErrWrongResponse)
	}
}

var encodeCommandTests = []struct {
	name     string
	cmd      Command
	typ      MeasureType
	settings []Setting
	want     []byte
	wantErr  bool
}{
	{
		name: "settings_query",
		cmd:  MeasureSettings,
		typ:  AccType,
		want: []byte{0x01, 0x02},
	},
	{
		name: "stop",
		cmd:  MeasureStop,
		typ:  ECGType,
		want: []byte{0x03, 0x00},
	},
	{
		name:     "start_ecg",
		cmd:      MeasureStart,
		typ:      ECGType,
		settings: ecgSettings(),
		want:     []byte{0x02, 0x00, 0x00, 0x01, 0x82, 0x00, 0x01, 0x01, 0x0e, 0x00},
	},
	{
		name:     "start_acc",
		cmd:      MeasureStart,
		typ:      AccType,
		settings: accSettings(AccSampleFreq200, AccRange8G),
		want:     []byte{
			0x02, 0x02,
			0x02, 0x01, 0x08, 0x00,
			0x00, 0x01, 0xc8, 0x00,
			0x01, 0x01, 0x10, 0x00,
		},
	},
	{
		name:     "start_acc_2g_25hz",
		cmd:      MeasureStart,
		typ:      AccType,
		settings: accSettings(AccSampleFreq25, AccRange2G),
		want:     []byte{
			0x02, 0x02,
			0x02, 0x01, 0x02, 0x00,
			0x00, 0x01, 0x19, 0x00,
			0x01, 0x01, 0x10, 0x00,
		},
	},
	{
		name:     "start_ppg",
		cmd:      MeasureStart,
		typ:      PPGType,
		settings: ppgSettings(),
		want:     []byte{0x02, 0x01, 0x00, 0x01, 0x87, 0x00, 0x01, 0x01, 0x16, 0x00},
	},
	{
		name:     "invalid_setting_type",
		cmd:      MeasureStart,
		typ:      ECGType,
		settings: []Setting{Uint16{Type: 9, Val: []uint16{1}}},
		wantErr:  true,
	},
	{
		name:     "multiple_values",
		cmd:      MeasureStart,
		typ:      ECGType,
		settings: []Setting{Uint16{Type: SampleRateSetting, Val: []uint16{1, 2}}},
		wantErr:  true,
	},
}

func TestEncodeCommand(t *testing.T) {
	for _, test := range encodeCommandTests {
		t.Run(test.name, func(t *testing.T) {
			got, err := encodeCommand(test.cmd, test.typ, test.settings...)
			if (err != nil) != test.wantErr {
				t.Fatalf("unexpected error: %v", err)
			}
			if !bytes.Equal(got, test.want) {
				t.Errorf("unexpected message:\ngot: %#x\nwant:%#x", got, test.want)
			}
		})
	}
}

// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pmd

import "fmt"

// StreamSettings holds the settings a device reports for a measurement
// type in response to a MeasureSettings command.
type StreamSettings struct {
	Type MeasureType
	// Resolution is the sample resolution in bits.
	Resolution uint8
	// Range is the set of supported ranges in G. It is
	// nil for measurement types that have no range.
	Range []uint8
	// SampleRate is the set of supported sample rates
	// in Hz in the order reported by the device.
	SampleRate []uint8
}

// settingState is the parse state of a settings response walk.
type settingState int

const (
	expectTag settingState = iota
	expectLen
	expectValue
)

// NewStreamSettings returns the stream settings held in a completed
// MeasureSettings response.
//
// The parameters are a sequence of setting records:
//
//	| tag | n | value_0 reserved_0 | ... | value_n-1 reserved_n-1 |
//
// where tag 0 is sample rate, tag 1 is resolution and any other tag is
// range. NewStreamSettings returns an error wrapping ErrWrongResponse
// if resp is not a successful MeasureSettings response and ErrInvalidData
// if the parameters are truncated or hold no sample rate.
func NewStreamSettings(resp *ControlResponse) (StreamSettings, error) {
	if resp.Opcode != MeasureSettings {
		return StreamSettings{}, fmt.Errorf("%w: settings from %s response", ErrWrongResponse, resp.Opcode)
	}
	if resp.Status != StatusSuccess {
		return StreamSettings{}, fmt.Errorf("%w: settings from failed response: %s", ErrWrongResponse, resp.Status)
	}

	s := StreamSettings{Type: resp.Type}
	var (
		setting   SettingType
		state     = expectTag
		remaining int
	)
	data := resp.Parameters
	for i := 0; i < len(data); i++ {
		switch state {
		case expectTag:
			setting = SettingType(data[i])
			state = expectLen
		case expectLen:
			remaining = int(data[i])
			if remaining != 0 {
				state = expectValue
			} else {
				state = expectTag
			}
		case expectValue:
			// Each value is followed by a reserved byte.
			if i+1 >= len(data) {
				return StreamSettings{}, fmt.Errorf("%w: truncated %s setting value at %d: %#x", ErrInvalidData, resp.Type, i, data)
			}
			v := data[i]
			i++
			switch setting {
			case SampleRateSetting:
				s.SampleRate = append(s.SampleRate, v)
			case ResolutionSetting:
				s.Resolution = v
			default:
				s.Range = append(s.Range, v)
			}
			remaining--
			if remaining == 0 {
				state = expectTag
			}
		}
	}
	if state != expectTag {
		return StreamSettings{}, fmt.Errorf("%w: truncated %s settings: %#x", ErrInvalidData, resp.Type, data)
	}
	if len(s.SampleRate) == 0 {
		return StreamSettings{}, fmt.Errorf("%w: no %s sample rate in settings: %#x", ErrInvalidData, resp.Type, data)
	}
	return s, nil
}

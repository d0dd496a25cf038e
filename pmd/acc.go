// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pmd

import (
	"fmt"
	"slices"
	"time"
)

const (
	AccSampleFreq25      AccSampleFreq = 25 // Hz
	AccSampleInterval25                = time.Second / time.Duration(AccSampleFreq25)
	AccSampleFreq50      AccSampleFreq = 50 // Hz
	AccSampleInterval50                = time.Second / time.Duration(AccSampleFreq50)
	AccSampleFreq100     AccSampleFreq = 100 // Hz
	AccSampleInterval100               = time.Second / time.Duration(AccSampleFreq100)
	AccSampleFreq200     AccSampleFreq = 200 // Hz
	AccSampleInterval200               = time.Second / time.Duration(AccSampleFreq200)

	AccRange2G AccRange = 2 // G
	AccRange4G AccRange = 4 // G
	AccRange8G AccRange = 8 // G

	AccResolution = 16 // bits
)

// AccSampleFreq is an accelerometer sample frequency in Hz.
type AccSampleFreq uint16

// Valid returns whether f is a sample frequency supported by the device.
func (f AccSampleFreq) Valid() bool {
	return slices.Contains([]AccSampleFreq{AccSampleFreq25, AccSampleFreq50, AccSampleFreq100, AccSampleFreq200}, f)
}

// AccRange is an accelerometer measurement range in G.
type AccRange uint16

// Valid returns whether r is a range supported by the device.
func (r AccRange) Valid() bool {
	return slices.Contains([]AccRange{AccRange2G, AccRange4G, AccRange8G}, r)
}

// accSettings returns the start command settings for an accelerometer
// stream. The order matches the order the device reports its settings.
func accSettings(freq AccSampleFreq, rng AccRange) []Setting {
	return []Setting{
		Uint16{Type: RangeUnitSetting, Val: []uint16{uint16(rng)}},     // G
		Uint16{Type: SampleRateSetting, Val: []uint16{uint16(freq)}},   // Hz
		Uint16{Type: ResolutionSetting, Val: []uint16{AccResolution}}, // bits
	}
}

// Acc is an acceleration measurement.
type Acc struct {
	X, Y, Z int32 // mG
}

func (Acc) Type() MeasureType { return AccType }

func decodeAcc(width int) func([]byte) (Sample, error) {
	return func(b []byte) (Sample, error) {
		if len(b) < 3*width {
			return nil, fmt.Errorf("%w: acc frame needs %d bytes: %d", ErrInvalidLength, 3*width, len(b))
		}
		return Acc{
			X: DecodeSigned(b, width),
			Y: DecodeSigned(b[width:], width),
			Z: DecodeSigned(b[2*width:], width),
		}, nil
	}
}

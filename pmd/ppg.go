// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pmd

const (
	PPGSampleFreq = 135 // Hz
	PPGResolution = 22  // bits

	PPGFrameSize = 4 * int24Size
)

func ppgSettings() []Setting {
	return []Setting{
		Uint16{Type: SampleRateSetting, Val: []uint16{PPGSampleFreq}},
		Uint16{Type: ResolutionSetting, Val: []uint16{PPGResolution}},
	}
}

// PPG is an optical photoplethysmography measurement.
type PPG struct {
	Channels [3]int32
	Ambient  int32
}

func (PPG) Type() MeasureType { return PPGType }

func decodePPG(b []byte) (Sample, error) {
	return PPG{
		Channels: [3]int32{
			leInt24(b),
			leInt24(b[int24Size:]),
			leInt24(b[2*int24Size:]),
		},
		Ambient: leInt24(b[3*int24Size:]),
	}, nil
}

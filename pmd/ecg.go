// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pmd

import "time"

const (
	ECGSampleFreq     = 130 // Hz
	ECGSampleInterval = time.Second / ECGSampleFreq

	ECGResolution = 14 // bits

	ECGFrameSize = int24Size
)

func ecgSettings() []Setting {
	return []Setting{
		Uint16{Type: SampleRateSetting, Val: []uint16{ECGSampleFreq}},
		Uint16{Type: ResolutionSetting, Val: []uint16{ECGResolution}},
	}
}

// ECG is an ECG measurement.
type ECG struct {
	Voltage int32 // µV
}

func (ECG) Type() MeasureType { return ECGType }

func decodeECG(b []byte) (Sample, error) {
	return ECG{Voltage: leInt24(b)}, nil
}

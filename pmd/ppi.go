// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pmd

import (
	"encoding/binary"
	"fmt"
	"time"
)

// PPIFrameSize is the size of a PPI sample frame:
//
//	| 0  | 1..2        | 3..4           | 5     |
//	| hr | interval le | error est. le  | flags |
const PPIFrameSize = 6

// PPIFlags holds the PPI sample status bits.
type PPIFlags uint8

const (
	// PPIInvalid is set when the device could not
	// determine the interval.
	PPIInvalid PPIFlags = 1 << iota
	PPISkinContact
	PPISkinContactSupported
)

// PPI is a peak-to-peak interval measurement.
type PPI struct {
	HR       uint8  // bpm
	Interval uint16 // ms
	Error    uint16 // ms
	Flags    PPIFlags
}

func (PPI) Type() MeasureType { return PPIType }

// Duration returns the peak-to-peak interval as a time.Duration.
func (m PPI) Duration() time.Duration {
	return time.Duration(m.Interval) * time.Millisecond
}

func decodePPI(b []byte) (Sample, error) {
	m := PPI{
		HR:       b[0],
		Interval: binary.LittleEndian.Uint16(b[1:]),
		Error:    binary.LittleEndian.Uint16(b[3:]),
		Flags:    PPIFlags(b[5]),
	}
	if m.Flags&PPIInvalid != 0 {
		return nil, fmt.Errorf("%w: ppi sample flagged invalid: %#x", ErrInvalidData, b)
	}
	return m, nil
}

// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pmd

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Sample is a single decoded measurement sample. The concrete types are
// ECG, Acc, PPG and PPI.
type Sample interface {
	// Type returns the measurement type of the sample.
	Type() MeasureType
}

// Frame is a decoded PMD data notification.
type Frame struct {
	Type      MeasureType
	FrameType FrameType
	// Timestamp is the device clock time of the last
	// sample in the frame in nanoseconds since 2000-01-01.
	Timestamp uint64
	Samples   []Sample
}

// Time returns the frame timestamp as a time.Time.
func (f Frame) Time() time.Time {
	return time.Unix(int64(f.Timestamp)/1e9+epoch, int64(f.Timestamp)%1e9)
}

// frameLayout describes the sample frames of a measurement and frame type.
type frameLayout struct {
	size   int // bytes per sample frame
	decode func([]byte) (Sample, error)
}

func layout(typ MeasureType, ft FrameType) (frameLayout, bool) {
	switch typ {
	case ECGType:
		if ft == ECGFrameType0 {
			return frameLayout{size: ECGFrameSize, decode: decodeECG}, true
		}
	case PPGType:
		if ft == PPGFrameType0 {
			return frameLayout{size: PPGFrameSize, decode: decodePPG}, true
		}
	case AccType:
		switch ft {
		case AccFrameType0:
			return frameLayout{size: 3 * uint8Size, decode: decodeAcc(uint8Size)}, true
		case AccFrameType1:
			return frameLayout{size: 3 * uint16Size, decode: decodeAcc(uint16Size)}, true
		case AccFrameType2:
			return frameLayout{size: 3 * int24Size, decode: decodeAcc(int24Size)}, true
		}
	case PPIType:
		if ft == PPIFrameType0 {
			return frameLayout{size: PPIFrameSize, decode: decodePPI}, true
		}
	}
	return frameLayout{}, false
}

// UnmarshalBinary decodes a PMD data notification into the receiver.
// The receiver is only modified when decoding succeeds.
//
// Errors wrap ErrInvalidLength when data is too short to hold the header
// and at least one sample frame or is not a whole number of frames, and
// ErrInvalidData for unknown measurement or frame types and for samples
// the device marks as invalid.
func (f *Frame) UnmarshalBinary(data []byte) error {
	if len(data) <= sampleTypeOffset {
		return fmt.Errorf("%w: empty measurement notification", ErrInvalidLength)
	}
	typ := MeasureType(data[sampleTypeOffset])
	if !typ.Valid() {
		return fmt.Errorf("%w: unknown measurement type: %#x", ErrInvalidData, data[sampleTypeOffset])
	}
	if len(data) < dataOffset {
		return fmt.Errorf("%w: short %s notification: %d bytes", ErrInvalidLength, typ, len(data))
	}
	ft := FrameType(data[frameTypeOffset])
	l, ok := layout(typ, ft)
	if !ok {
		return fmt.Errorf("%w: unknown %s frame type: %d", ErrInvalidData, typ, ft)
	}

	frames := data[dataOffset:]
	if len(frames) < l.size {
		return fmt.Errorf("%w: %s notification has no samples", ErrInvalidLength, typ)
	}
	if len(frames)%l.size != 0 {
		return fmt.Errorf("%w: %s data length %d not a multiple of %d", ErrInvalidLength, typ, len(frames), l.size)
	}

	samples := make([]Sample, 0, len(frames)/l.size)
	for i := 0; i < len(frames); i += l.size {
		s, err := l.decode(frames[i : i+l.size])
		if err != nil {
			return fmt.Errorf("sample %d: %w", i/l.size, err)
		}
		samples = append(samples, s)
	}

	*f = Frame{
		Type:      typ,
		FrameType: ft,
		Timestamp: binary.LittleEndian.Uint64(data[timeStampOffset:]),
		Samples:   samples,
	}
	return nil
}

// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pmd implements interaction with Polar Measurement Data
// Bluetooth services.
//
// The package is split into a pure codec layer, which decodes measurement
// notifications and control point responses, and an orchestration layer,
// [ControlPoint] and [Session], which drive the control point request and
// response protocol over a [Transport].
//
// Technical documentation for the PMD protocols are available from the
// [Polar BLE SDK] repository.
//
// [Polar BLE SDK]: https://github.com/polarofficial/polar-ble-sdk/tree/master/technical_documentation
package pmd

import (
	"fmt"
	"strings"

	"tinygo.org/x/bluetooth"
)

// Service and characteristic identifiers.
const (
	ServiceID      = "fb005c80-02e7-f387-1cad-8acd2d8df0c8"
	ControlPointID = "fb005c81-02e7-f387-1cad-8acd2d8df0c8"
	DataID         = "fb005c82-02e7-f387-1cad-8acd2d8df0c8"
)

var (
	Service          = must(bluetooth.ParseUUID(ServiceID))
	ControlPointChar = must(bluetooth.ParseUUID(ControlPointID))
	DataChar         = must(bluetooth.ParseUUID(DataID))
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// Features is the a set of supported PMD features.
type Features [2]byte

// Supports returns whether the feature set includes s.
func (f Features) Supports(s Support) bool {
	return f[0] == featuresMarker && Support(f[1])&s != 0
}

func (f Features) String() string {
	if f[0] != featuresMarker {
		return fmt.Sprintf("%#x", f)
	}
	var s strings.Builder
	for b := 1; b < 256; b <<= 1 {
		if f[1]&byte(b) != 0 {
			if s.Len() != 0 {
				s.WriteByte('|')
			}
			s.WriteString(Support(b).String())
		}
	}
	return s.String()
}

const featuresMarker = 0x0f

// Support is the flag set of supported PMD features.
type Support byte

//go:generate go tool golang.org/x/tools/cmd/stringer -type Support -trimprefix Support
const (
	SupportECG          Support = 1 << 0
	SupportPPG          Support = 1 << 1
	SupportAcc          Support = 1 << 2
	SupportPPI          Support = 1 << 3
	SupportBioImpedance Support = 1 << 4
	SupportGyro         Support = 1 << 5
	SupportMag          Support = 1 << 6
)

const epoch = 946684800 // epoch 2000 January 1st 00:00:00 UTC

// Command is a PMD control point command.
type Command uint8

//go:generate go tool golang.org/x/tools/cmd/stringer -type Command
const (
	// Null is never sent to a device. Attempting to
	// send it returns ErrNullCommand.
	Null            Command = 0
	MeasureSettings Command = 1
	MeasureStart    Command = 2
	MeasureStop     Command = 3
)

type (
	// MeasureType is a measurement stream data type.
	MeasureType uint8
	// FrameType is the sub-type for a MeasureType.
	FrameType uint8
)

//go:generate go tool golang.org/x/tools/cmd/stringer -type MeasureType -linecomment

// Measurement types and their frame types.
const (
	ECGType       MeasureType = 0 // ECG
	ECGFrameType0 FrameType   = 0

	PPGType       MeasureType = 1 // PPG
	PPGFrameType0 FrameType   = 0

	AccType       MeasureType = 2 // Acc
	AccFrameType0 FrameType   = 0
	AccFrameType1 FrameType   = 1
	AccFrameType2 FrameType   = 2

	PPIType       MeasureType = 3 // PPI
	PPIFrameType0 FrameType   = 0
)

// UnknownType is reported to a Recorder for measurement notifications
// with a missing or unknown type tag.
const UnknownType MeasureType = 0xff // unknown

// MeasureTypes is the set of measurement types understood by the package.
var MeasureTypes = []MeasureType{ECGType, PPGType, AccType, PPIType}

// Valid returns whether t is a known measurement type.
func (t MeasureType) Valid() bool {
	return t <= PPIType
}

// ParseMeasureType returns the measurement type with the given name.
// Names are matched case-insensitively against the String form of the
// type.
func ParseMeasureType(name string) (MeasureType, error) {
	for _, t := range MeasureTypes {
		if strings.EqualFold(name, t.String()) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown measurement type %q", ErrInvalidData, name)
}

// Packet offsets.
//
// Measurement notifications are decoded in the framed layout used by
// current H10 firmware where a frame type byte follows the timestamp:
//
//	| 0    | 1..8      | 9          | 10..          |
//	| type | timestamp | frame type | sample frames |
const (
	sampleTypeOffset = 0
	timeStampOffset  = 1
	frameTypeOffset  = 9
	dataOffset       = 10
)

// Framing specifies how control point responses are framed.
type Framing uint8

const (
	// FramingAuto accepts responses with or without the
	// 0xf0 response marker. The marker is never a valid
	// op-code, so detection is unambiguous.
	FramingAuto Framing = iota
	// FramingMarked requires the 0xf0 response marker.
	FramingMarked
	// FramingBare expects responses with no marker byte.
	FramingBare
)

// ParseFraming returns the Framing for the names "auto", "marked" and "bare".
// The empty string is FramingAuto.
func ParseFraming(name string) (Framing, error) {
	switch strings.ToLower(name) {
	case "", "auto":
		return FramingAuto, nil
	case "marked":
		return FramingMarked, nil
	case "bare":
		return FramingBare, nil
	default:
		return 0, fmt.Errorf("%w: unknown response framing %q", ErrInvalidData, name)
	}
}

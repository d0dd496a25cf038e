// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pmd

import (
	"errors"
	"fmt"
)

// Errors returned by the package. Returned errors wrap one of these
// and should be tested for with errors.Is.
var (
	// ErrInvalidData is returned for malformed or unrecognised
	// device data, including samples the device flags as invalid.
	ErrInvalidData = errors.New("invalid data")
	// ErrInvalidLength is returned when a payload is shorter than
	// required or is not a whole number of sample frames.
	ErrInvalidLength = errors.New("invalid length")
	// ErrWrongResponse is returned when settings are parsed from
	// a response to a command other than MeasureSettings.
	ErrWrongResponse = errors.New("wrong response")
	// ErrWrongType is returned when a setting is applied to a
	// session that has not requested a type supporting it.
	ErrWrongType = errors.New("wrong measurement type")
	// ErrNoDataType is returned by operations that require at
	// least one requested measurement type when none is set.
	ErrNoDataType = errors.New("no measurement type requested")
	// ErrNullCommand is returned when the Null command is sent.
	ErrNullCommand = errors.New("null command")

	// ErrNotConnected is returned when the transport is closed
	// or a transaction could not complete before its deadline.
	ErrNotConnected = errors.New("not connected")
	// ErrNoDevice is returned when no device is available.
	ErrNoDevice = errors.New("no device")
	// ErrCharacteristicNotFound is returned when the device does
	// not provide a required characteristic.
	ErrCharacteristicNotFound = errors.New("characteristic not found")
	// ErrNoControlPoint is returned when the PMD control point
	// could not be subscribed to.
	ErrNoControlPoint = errors.New("no control point")
)

// StatusError is returned when a device reports a non-success status
// for a control point command. The complete response is retained.
type StatusError struct {
	Response ControlResponse
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: device status %s", e.Response.Opcode, e.Response.Type, e.Response.Status)
}

// ErrorStatus returns the device status reported in err if it is or wraps
// a *StatusError. The boolean is false otherwise.
func ErrorStatus(err error) (Status, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Response.Status, true
	}
	return StatusSuccess, false
}

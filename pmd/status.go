// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pmd

// Status is the status code returned by the device in response to
// a control point command.
type Status uint8

//go:generate go tool golang.org/x/tools/cmd/stringer -type Status -trimprefix Status
const (
	StatusSuccess                 Status = 0
	StatusInvalidOpCode           Status = 1
	StatusInvalidMeasurementType  Status = 2
	StatusNotSupported            Status = 3
	StatusInvalidLength           Status = 4
	StatusInvalidParameter        Status = 5
	StatusAlreadyInState          Status = 6
	StatusInvalidResolution       Status = 7
	StatusInvalidSampleRate       Status = 8
	StatusInvalidRange            Status = 9
	StatusInvalidMTU              Status = 10
	StatusInvalidNumberOfChannels Status = 11
	StatusInvalidState            Status = 12
	StatusDeviceInCharger         Status = 13
)

// Valid returns whether s is a status code defined by the protocol.
func (s Status) Valid() bool { return s <= StatusDeviceInCharger }

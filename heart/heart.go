// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package heart implements decoding of the standard 180d Bluetooth
// heart rate service notifications.
package heart

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"tinygo.org/x/bluetooth"
)

const (
	RateServiceID     = "180d"
	RateMeasurementID = "2a37"
)

var (
	Service     = must(bluetooth.ParseUUID(RateServiceID))
	Measurement = must(bluetooth.ParseUUID(RateMeasurementID))
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

var (
	// ErrNoContact is returned when the sensor supports contact
	// detection and reports no skin contact.
	ErrNoContact = errors.New("no sensor contact")
	// ErrInvalidLength is returned for truncated notifications.
	ErrInvalidLength = errors.New("invalid length")
)

// Rate is a heart rate measurement.
type Rate struct {
	HR               uint16 // bpm
	RR               []time.Duration
	Energy           int // kJ
	EnergyExpended   bool
	Contact          bool
	ContactSupported bool
}

// Flags field bits.
//
// 3.1.1.1. Flags Field
// | 0x10 | 0x8 | 0x4  0x2 | 0x1 |
// |  rr  | nrg | scs  cnt | fmt |
const (
	flagFormat16      = 0x01
	flagContact       = 0x02
	flagContactSup    = 0x04
	flagEnergy        = 0x08
	flagRRIntervals   = 0x10
	rrUnitNumerator   = 128
	rrUnitDenominator = 125
)

// UnmarshalBinary decodes a heart rate measurement notification.
// RR intervals are reported with millisecond resolution. A trailing odd
// byte in the RR interval list is ignored.
func (m *Rate) UnmarshalBinary(data []byte) error {
	// https://www.bluetooth.com/specifications/specs/heart-rate-service-1-0/
	if len(data) < 2 {
		return fmt.Errorf("%w: heart rate notification: %#x", ErrInvalidLength, data)
	}
	flags := data[0]
	hrFormat := int(flags & flagFormat16)
	contactSupported := flags&flagContactSup != 0
	contact := contactSupported && flags&flagContact != 0
	energyExpended := flags&flagEnergy != 0
	rrPresent := flags&flagRRIntervals != 0
	if contactSupported && !contact {
		*m = Rate{
			ContactSupported: true,
		}
		return ErrNoContact
	}

	offset := 1
	var hrValue uint16
	if hrFormat == 1 {
		if len(data) < offset+2 {
			return fmt.Errorf("%w: 16-bit heart rate: %#x", ErrInvalidLength, data)
		}
		hrValue = binary.LittleEndian.Uint16(data[offset:])
	} else {
		hrValue = uint16(data[offset])
	}
	offset += 1 + hrFormat

	energy := -1
	if energyExpended {
		if len(data) < offset+2 {
			return fmt.Errorf("%w: energy expended: %#x", ErrInvalidLength, data)
		}
		energy = int(binary.LittleEndian.Uint16(data[offset:]))
		offset += 2
	}

	var rr []time.Duration
	if rrPresent {
		rrData := data[offset:]
		n := len(rrData) / 2
		if n != 0 {
			rr = make([]time.Duration, n)
		}
		for i := range rr {
			raw := int(binary.LittleEndian.Uint16(rrData[2*i:]))
			rr[i] = time.Duration(raw*rrUnitNumerator/rrUnitDenominator) * time.Millisecond
		}
	}

	*m = Rate{
		HR:               hrValue,
		RR:               rr,
		Energy:           energy,
		EnergyExpended:   energyExpended,
		Contact:          contact,
		ContactSupported: contactSupported,
	}
	return nil
}

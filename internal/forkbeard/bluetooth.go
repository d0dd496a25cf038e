// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package forkbeard provides helper functions for interacting with
// Bluetooth devices.
package forkbeard

import (
	"errors"
	"fmt"
	"io"

	"tinygo.org/x/bluetooth"
)

// ErrNotFound is returned when a requested service or characteristic is
// not provided by a device.
var ErrNotFound = errors.New("not found")

// Characteristics returns the characteristics of the specified services
// of a Bluetooth device, keyed by characteristic UUID. Services that the
// device does not provide are omitted. If none of the services is found
// Characteristics returns an error wrapping ErrNotFound.
func Characteristics(dev *bluetooth.Device, services ...bluetooth.UUID) (map[bluetooth.UUID]bluetooth.DeviceCharacteristic, error) {
	chars := make(map[bluetooth.UUID]bluetooth.DeviceCharacteristic)
	var found bool
	for _, id := range services {
		// Discover one service at a time since some
		// platforms fail the whole discovery when any
		// of the filtered services is absent.
		srv, err := dev.DiscoverServices([]bluetooth.UUID{id})
		if err != nil || len(srv) == 0 {
			continue
		}
		found = true
		for _, s := range srv {
			cs, err := s.DiscoverCharacteristics(nil)
			if err != nil {
				return nil, fmt.Errorf("failed to discover characteristics of service %s: %w", id, err)
			}
			for _, c := range cs {
				chars[c.UUID()] = c
			}
		}
	}
	if !found {
		return nil, fmt.Errorf("services %v: %w", services, ErrNotFound)
	}
	return chars, nil
}

// ReadCharacteristic reads data from a Bluetooth characteristic.
func ReadCharacteristic(char bluetooth.DeviceCharacteristic) ([]byte, error) {
	mtu, err := char.GetMTU()
	if err != nil {
		return nil, fmt.Errorf("failed to obtain mtu of characteristic: %w", err)
	}
	buf := make([]byte, mtu)
	n, err := char.Read(buf)
	if err != nil && err != io.EOF {
		return buf[:n], fmt.Errorf("failed to read response from characteristic: %w", err)
	}
	return buf[:n], nil
}

// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package battery implements reading of the standard 180f Bluetooth
// battery service characteristic.
package battery

import (
	"context"
	"errors"
	"fmt"

	"tinygo.org/x/bluetooth"
)

const (
	ServiceID             = "180f"
	LevelCharacteristicID = "2a19"
)

var (
	Service             = must(bluetooth.ParseUUID(ServiceID))
	LevelCharacteristic = must(bluetooth.ParseUUID(LevelCharacteristicID))
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// ErrInvalidLevel is returned for empty or out of range level values.
var ErrInvalidLevel = errors.New("invalid battery level")

// ParseLevel returns the battery level percentage held in a battery level
// characteristic value or notification.
func ParseLevel(data []byte) (int, error) {
	// https://www.bluetooth.com/specifications/specs/battery-service/
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: empty", ErrInvalidLevel)
	}
	if data[0] > 100 {
		return 0, fmt.Errorf("%w: %d%%", ErrInvalidLevel, data[0])
	}
	return int(data[0]), nil
}

// Reader is a characteristic reader.
type Reader interface {
	Read(ctx context.Context, char bluetooth.UUID) ([]byte, error)
}

// Level returns the battery level read from the device.
func Level(ctx context.Context, dev Reader) (int, error) {
	resp, err := dev.Read(ctx, LevelCharacteristic)
	if err != nil {
		return 0, fmt.Errorf("failed read battery characteristic: %w", err)
	}
	return ParseLevel(resp)
}

// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pmd

import (
	"encoding/binary"
	"fmt"
)

// SettingType specifies PMD measurement settings.
type SettingType uint8

const (
	SampleRateSetting SettingType = 0
	ResolutionSetting SettingType = 1
	RangeUnitSetting  SettingType = 2
)

const headerSize = 2

func settingSize(s ...Setting) int {
	var n int
	for _, t := range s {
		n += t.Size()
	}
	return n
}

// Setting defines the behaviour of PMD measurement settings.
type Setting interface {
	// Size returns the number of bytes the setting
	// writes to the PMD Bluetooth service control
	// point characteristic.
	Size() int

	write([]byte) (int, error)
}

// setCommand specifies the command and measurement type for a control
// point command.
type setCommand struct {
	Command Command
	Measure MeasureType
}

func (w setCommand) Size() int { return 2 }

func (w setCommand) write(dst []byte) (int, error) {
	const size = 2
	if len(dst) < size {
		return 0, fmt.Errorf("dst too short")
	}
	dst[0] = byte(w.Command)
	dst[1] = byte(w.Measure)
	return size, nil
}

// encodeCommand returns the control point message for the command,
// measurement type and settings.
func encodeCommand(com Command, measure MeasureType, settings ...Setting) ([]byte, error) {
	cmd := setCommand{Command: com, Measure: measure}
	msg := make([]byte, cmd.Size()+settingSize(settings...))
	off, err := cmd.write(msg)
	if err != nil {
		return nil, err
	}
	for _, w := range settings {
		n, err := w.write(msg[off:])
		if err != nil {
			return nil, err
		}
		off += n
	}
	return msg, nil
}

// Uint16 is a 16-bit integer setting. Each value is written
// little-endian, so values below 256 appear on the wire as a
// value byte followed by a zero byte.
type Uint16 struct {
	Type SettingType
	Val  []uint16
}

func (w Uint16) Size() int      { return w.size(len(w.Val)) }
func (w Uint16) size(n int) int { return headerSize + n*uint16Size }

func (w Uint16) write(dst []byte) (int, error) {
	if w.Type > RangeUnitSetting || len(w.Val) != 1 {
		return 0, fmt.Errorf("invalid setting type: %d", w.Type)
	}
	if len(dst) < w.Size() {
		return 0, fmt.Errorf("dst too short")
	}
	dst[0] = byte(w.Type)
	dst[1] = byte(len(w.Val))
	for i, e := range w.Val {
		binary.LittleEndian.PutUint16(dst[headerSize+i*uint16Size:], e)
	}
	return w.Size(), nil
}

// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pmd

import "fmt"

// Sample component sizes in bytes.
const (
	uint8Size  = 1
	uint16Size = 2
	int24Size  = 3
)

// DecodeSigned returns the little-endian two's complement integer held in
// the first width bytes of b, sign extended to 32 bits. Width must be
// 1, 2 or 3 and b must hold at least width bytes.
func DecodeSigned(b []byte, width int) int32 {
	switch width {
	case 1:
		return int32(int8(b[0]))
	case 2:
		_ = b[1] // bounds check hint to compiler; see golang.org/issue/14808
		return int32(int16(uint16(b[0]) | uint16(b[1])<<8))
	case 3:
		return leInt24(b)
	default:
		panic(fmt.Sprintf("pmd: invalid integer width: %d", width))
	}
}

func leInt24(b []byte) int32 {
	_ = b[2] // bounds check hint to compiler; see golang.org/issue/14808
	return int32(b[0]) | int32(b[1])<<8 | int32(int8(b[2]))<<16
}

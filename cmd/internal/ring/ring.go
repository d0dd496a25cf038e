// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ring implements a simple overwriting ring buffer.
package ring

// Buffer is a fixed size ring buffer. Writes past the buffer's size
// overwrite the oldest elements.
type Buffer[T any] struct {
	data []T
	head int // index of the oldest element
	n    int // number of held elements
}

func NewBuffer[T any](n int) *Buffer[T] {
	return &Buffer[T]{data: make([]T, n)}
}

// Len returns the number of elements held.
func (r *Buffer[T]) Len() int { return r.n }

// Size returns the capacity of the buffer.
func (r *Buffer[T]) Size() int { return len(r.data) }

// Write appends src, discarding the oldest elements if necessary.
func (r *Buffer[T]) Write(src []T) {
	size := len(r.data)
	if size == 0 {
		return
	}
	if len(src) >= size {
		copy(r.data, src[len(src)-size:])
		r.head, r.n = 0, size
		return
	}
	tail := (r.head + r.n) % size
	c := copy(r.data[tail:], src)
	copy(r.data, src[c:])
	r.n += len(src)
	if r.n > size {
		r.head = (r.head + r.n - size) % size
		r.n = size
	}
}

// Read copies the oldest elements into dst and removes them, returning
// the number of elements read.
func (r *Buffer[T]) Read(dst []T) int {
	n := r.CopyTo(dst)
	r.Advance(n)
	return n
}

// CopyTo copies the oldest elements into dst without removing them.
func (r *Buffer[T]) CopyTo(dst []T) int {
	return r.copyFrom(dst, r.head, min(len(dst), r.n))
}

// Last copies the most recent elements into dst in order, returning
// the number of elements copied.
func (r *Buffer[T]) Last(dst []T) int {
	k := min(len(dst), r.n)
	if k == 0 {
		return 0
	}
	return r.copyFrom(dst, (r.head+r.n-k)%len(r.data), k)
}

func (r *Buffer[T]) copyFrom(dst []T, start, k int) int {
	if k == 0 {
		return 0
	}
	end := start + k
	if end <= len(r.data) {
		return copy(dst, r.data[start:end])
	}
	n := copy(dst, r.data[start:])
	n += copy(dst[n:k], r.data[:end-len(r.data)])
	return n
}

// Advance discards up to n of the oldest elements.
func (r *Buffer[T]) Advance(n int) {
	n = min(n, r.n)
	if n <= 0 {
		return
	}
	r.head = (r.head + n) % len(r.data)
	r.n -= n
}

// Reset discards all elements.
func (r *Buffer[T]) Reset() {
	r.head, r.n = 0, 0
}

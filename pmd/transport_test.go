// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pmd

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"tinygo.org/x/bluetooth"
)

// fakeTransport is a scripted in-memory Transport.
type fakeTransport struct {
	mu sync.Mutex

	subs   map[bluetooth.UUID]chan []byte
	queued map[bluetooth.UUID][][]byte
	values map[bluetooth.UUID][]byte
	// eof marks characteristics whose subscription is
	// closed after queued notifications are delivered.
	eof    map[bluetooth.UUID]bool
	closed map[bluetooth.UUID]bool

	// respond returns the control point notifications
	// sent in response to a control point write.
	respond func(msg []byte) [][]byte

	writes       [][]byte
	unsubscribed []bluetooth.UUID

	subscribeErr error
	writeErr     error
	// closeOnWrite closes the control point
	// subscription when a command is written.
	closeOnWrite bool
}

func newFakeTransport(respond func([]byte) [][]byte) *fakeTransport {
	return &fakeTransport{
		subs:    make(map[bluetooth.UUID]chan []byte),
		queued:  make(map[bluetooth.UUID][][]byte),
		values:  make(map[bluetooth.UUID][]byte),
		eof:     make(map[bluetooth.UUID]bool),
		closed:  make(map[bluetooth.UUID]bool),
		respond: respond,
	}
}

// succeed responds to every command with a marked success response.
func succeed(msg []byte) [][]byte {
	return [][]byte{{0xf0, msg[0], msg[1], byte(StatusSuccess)}}
}

// queue queues notifications for delivery when char is next subscribed.
func (t *fakeTransport) queue(char bluetooth.UUID, notes ...[]byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queued[char] = append(t.queued[char], notes...)
}

func (t *fakeTransport) Subscribe(char bluetooth.UUID) (<-chan []byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.subscribeErr != nil {
		return nil, t.subscribeErr
	}
	c := make(chan []byte, 64)
	for _, n := range t.queued[char] {
		c <- n
	}
	delete(t.queued, char)
	if t.eof[char] {
		close(c)
	}
	t.closed[char] = t.eof[char]
	t.subs[char] = c
	return c, nil
}

func (t *fakeTransport) Unsubscribe(char bluetooth.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.unsubscribed = append(t.unsubscribed, char)
	c, ok := t.subs[char]
	if !ok {
		return errors.New("not subscribed")
	}
	if !t.closed[char] {
		close(c)
	}
	delete(t.closed, char)
	delete(t.subs, char)
	return nil
}

func (t *fakeTransport) Write(ctx context.Context, char bluetooth.UUID, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.writeErr != nil {
		return t.writeErr
	}
	if char != ControlPointChar {
		return errors.New("write to non-control point characteristic")
	}
	t.writes = append(t.writes, bytes.Clone(data))
	c, ok := t.subs[ControlPointChar]
	if !ok {
		return nil
	}
	if t.closeOnWrite {
		close(c)
		delete(t.subs, ControlPointChar)
		return nil
	}
	if t.respond != nil {
		for _, n := range t.respond(data) {
			c <- n
		}
	}
	return nil
}

func (t *fakeTransport) Read(ctx context.Context, char bluetooth.UUID) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.values[char]
	if !ok {
		return nil, errors.New("no value")
	}
	return bytes.Clone(v), nil
}

func (t *fakeTransport) written() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]byte(nil), t.writes...)
}

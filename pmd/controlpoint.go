// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pmd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"
)

// Transport is a GATT connection to a device. Notifications for each
// subscribed characteristic are delivered on their own channel, in
// arrival order. Channels are closed when the connection is lost or the
// characteristic is unsubscribed.
type Transport interface {
	// Write writes data to the characteristic.
	Write(ctx context.Context, char bluetooth.UUID, data []byte) error
	// Read reads the current value of the characteristic.
	Read(ctx context.Context, char bluetooth.UUID) ([]byte, error)
	// Subscribe enables notifications for the characteristic.
	Subscribe(char bluetooth.UUID) (<-chan []byte, error)
	// Unsubscribe disables notifications for the characteristic.
	Unsubscribe(char bluetooth.UUID) error
}

// ControlPoint executes commands on the PMD control point. At most one
// command is outstanding at a time.
type ControlPoint struct {
	t     Transport
	notes <-chan []byte

	mu sync.Mutex

	framing Framing
	timeout time.Duration
	log     *zap.Logger
	rec     Recorder
}

// NewControlPoint returns a ControlPoint subscribed to the PMD control
// point characteristic of t.
func NewControlPoint(t Transport, opts ...Option) (*ControlPoint, error) {
	return newControlPoint(t, newOptions(opts))
}

func newControlPoint(t Transport, o options) (*ControlPoint, error) {
	notes, err := t.Subscribe(ControlPointChar)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoControlPoint, err)
	}
	return &ControlPoint{
		t:       t,
		notes:   notes,
		framing: o.framing,
		timeout: o.timeout,
		log:     o.log,
		rec:     o.rec,
	}, nil
}

// Features reads the set of PMD features supported by the device.
func (c *ControlPoint) Features(ctx context.Context) (Features, error) {
	// The characteristic value is longer than two bytes on
	// some devices, but only the first two are documented.
	buf, err := c.t.Read(ctx, ControlPointChar)
	if err != nil {
		return Features{}, fmt.Errorf("failed to read device features: %w", err)
	}
	if len(buf) < 2 {
		return Features{}, fmt.Errorf("%w: device features too short: %#x", ErrInvalidLength, buf)
	}
	var feats Features
	copy(feats[:], buf)
	return feats, nil
}

// Send sends a command for the measurement type with the provided settings
// and waits for the complete device response.
//
// If the device reports a non-success status, the response is returned
// with a *StatusError. If ctx is done before the response is complete or
// the control point subscription ends, the returned error wraps
// ErrNotConnected.
func (c *ControlPoint) Send(ctx context.Context, cmd Command, typ MeasureType, settings ...Setting) (ControlResponse, error) {
	if cmd == Null {
		return ControlResponse{}, ErrNullCommand
	}
	msg, err := encodeCommand(cmd, typ, settings...)
	if err != nil {
		return ControlResponse{}, fmt.Errorf("%w: %s %s command: %w", ErrInvalidData, cmd, typ, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.transact(ctx, cmd, typ, msg)
	c.rec.Transaction(cmd, typ, resp.Status, err)
	if err != nil {
		c.log.Debug("control point transaction failed", zap.Stringer("command", cmd), zap.Stringer("type", typ), zap.Error(err))
		return resp, err
	}
	c.log.Debug("control point transaction", zap.Stringer("command", cmd), zap.Stringer("type", typ), zap.Int("parameters", len(resp.Parameters)))
	return resp, nil
}

func (c *ControlPoint) transact(ctx context.Context, cmd Command, typ MeasureType, msg []byte) (ControlResponse, error) {
	// Anything already queued is a response to an
	// abandoned transaction.
	if err := c.drain(); err != nil {
		return ControlResponse{}, err
	}

	tx := newTransaction(cmd, typ, c.framing)
	err := c.t.Write(ctx, ControlPointChar, msg)
	if err != nil {
		if ctx.Err() != nil {
			return ControlResponse{}, fmt.Errorf("%w: %s %s: %w", ErrNotConnected, cmd, typ, ctx.Err())
		}
		return ControlResponse{}, fmt.Errorf("failed to write %s %s command: %w", cmd, typ, err)
	}
	err = tx.begin()
	if err != nil {
		return ControlResponse{}, err
	}
	for !tx.done() {
		select {
		case <-ctx.Done():
			return ControlResponse{}, fmt.Errorf("%w: %s %s: %w", ErrNotConnected, cmd, typ, ctx.Err())
		case buf, ok := <-c.notes:
			if !ok {
				return ControlResponse{}, fmt.Errorf("%w: control point subscription closed", ErrNotConnected)
			}
			used, err := tx.feed(buf)
			if err != nil {
				return ControlResponse{}, err
			}
			if !used {
				c.log.Warn("ignoring unmatched control point notification", zap.Stringer("command", cmd), zap.Stringer("type", typ), zap.Binary("data", buf))
			}
		}
	}
	return tx.result()
}

func (c *ControlPoint) drain() error {
	for {
		select {
		case buf, ok := <-c.notes:
			if !ok {
				return fmt.Errorf("%w: control point subscription closed", ErrNotConnected)
			}
			c.log.Debug("discarding stale control point notification", zap.Binary("data", buf))
		default:
			return nil
		}
	}
}

// Close unsubscribes from the control point.
func (c *ControlPoint) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t.Unsubscribe(ControlPointChar)
}

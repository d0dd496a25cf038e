// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gatt provides a pmd.Transport over a connected tinygo Bluetooth
// device.
package gatt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"

	"github.com/kortschak/polar/battery"
	"github.com/kortschak/polar/heart"
	"github.com/kortschak/polar/internal/forkbeard"
	"github.com/kortschak/polar/pmd"
)

// DefaultServices is the set of services discovered by New when no
// services are specified.
var DefaultServices = []bluetooth.UUID{pmd.Service, heart.Service, battery.Service}

// queueLen is the number of notifications buffered per subscription.
const queueLen = 256

// Device is a connected Bluetooth device. Notifications for each
// subscribed characteristic are queued independently.
type Device struct {
	dev   bluetooth.Device
	chars map[bluetooth.UUID]bluetooth.DeviceCharacteristic
	log   *zap.Logger

	mu     sync.Mutex
	subs   map[bluetooth.UUID]*subscription
	closed bool
}

var _ pmd.Transport = (*Device)(nil)

// New returns a Device for the connected dev with the characteristics of
// the provided services. If no service is specified DefaultServices are
// used.
func New(dev bluetooth.Device, log *zap.Logger, services ...bluetooth.UUID) (*Device, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if len(services) == 0 {
		services = DefaultServices
	}
	chars, err := forkbeard.Characteristics(&dev, services...)
	if err != nil {
		if errors.Is(err, forkbeard.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", pmd.ErrCharacteristicNotFound, err)
		}
		return nil, err
	}
	log.Debug("discovered characteristics", zap.Int("count", len(chars)))
	return &Device{
		dev:   dev,
		chars: chars,
		log:   log,
		subs:  make(map[bluetooth.UUID]*subscription),
	}, nil
}

func (d *Device) characteristic(char bluetooth.UUID) (bluetooth.DeviceCharacteristic, error) {
	if d.closed {
		return bluetooth.DeviceCharacteristic{}, pmd.ErrNotConnected
	}
	c, ok := d.chars[char]
	if !ok {
		return bluetooth.DeviceCharacteristic{}, fmt.Errorf("%w: %s", pmd.ErrCharacteristicNotFound, char)
	}
	return c, nil
}

// Has returns whether the device provides the characteristic.
func (d *Device) Has(char bluetooth.UUID) bool {
	_, ok := d.chars[char]
	return ok
}

// Write writes data to the characteristic without response.
func (d *Device) Write(ctx context.Context, char bluetooth.UUID, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	c, err := d.characteristic(char)
	d.mu.Unlock()
	if err != nil {
		return err
	}
	_, err = c.WriteWithoutResponse(data)
	if err != nil {
		return fmt.Errorf("failed to write to %s: %w", char, err)
	}
	return nil
}

// Read reads the value of the characteristic.
func (d *Device) Read(ctx context.Context, char bluetooth.UUID) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	c, err := d.characteristic(char)
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return forkbeard.ReadCharacteristic(c)
}

// Subscribe enables notifications for the characteristic. Notifications
// are dropped when the subscriber does not keep up.
func (d *Device) Subscribe(char bluetooth.UUID) (<-chan []byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, err := d.characteristic(char)
	if err != nil {
		return nil, err
	}
	if _, ok := d.subs[char]; ok {
		return nil, fmt.Errorf("already subscribed to %s", char)
	}
	sub := newSubscription(queueLen)
	err = c.EnableNotifications(func(buf []byte) {
		if !sub.send(buf) {
			d.log.Warn("dropped notification", zap.Stringer("characteristic", char), zap.Int("length", len(buf)))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enable notifications for %s: %w", char, err)
	}
	d.subs[char] = sub
	return sub.c, nil
}

// Unsubscribe disables notifications for the characteristic and closes
// its notification channel.
func (d *Device) Unsubscribe(char bluetooth.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	sub, ok := d.subs[char]
	if !ok {
		return nil
	}
	delete(d.subs, char)
	sub.close()
	if d.closed {
		return nil
	}
	err := d.chars[char].EnableNotifications(nil)
	if err != nil {
		return fmt.Errorf("failed to disable notifications for %s: %w", char, err)
	}
	return nil
}

// Disconnected closes all notification channels. It should be called
// when the connection to the device is lost.
func (d *Device) Disconnected() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	for char, sub := range d.subs {
		sub.close()
		delete(d.subs, char)
	}
}

// Close disables all notifications and disconnects the device.
func (d *Device) Close() error {
	d.mu.Lock()
	var errs []error
	for char, sub := range d.subs {
		sub.close()
		delete(d.subs, char)
		if !d.closed {
			errs = append(errs, d.chars[char].EnableNotifications(nil))
		}
	}
	wasClosed := d.closed
	d.closed = true
	d.mu.Unlock()
	if !wasClosed {
		errs = append(errs, d.dev.Disconnect())
	}
	return errors.Join(errs...)
}

// subscription is a notification queue that may be closed while
// notifications are still being delivered.
type subscription struct {
	mu   sync.Mutex
	c    chan []byte
	done bool
}

func newSubscription(n int) *subscription {
	return &subscription{c: make(chan []byte, n)}
}

// send queues a copy of buf. It returns false if the notification
// was dropped because the queue is full.
func (s *subscription) send(buf []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return true
	}
	select {
	case s.c <- bytes.Clone(buf):
		return true
	default:
		return false
	}
}

func (s *subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.done {
		s.done = true
		close(s.c)
	}
}

// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gatt

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tinygo.org/x/bluetooth"

	"github.com/kortschak/polar/pmd"
)

func TestSubscription(t *testing.T) {
	s := newSubscription(2)

	buf := []byte{1, 2, 3}
	require.True(t, s.send(buf))
	buf[0] = 9
	require.True(t, s.send(buf))
	assert.False(t, s.send(buf), "full queue should drop")

	assert.Equal(t, []byte{1, 2, 3}, <-s.c, "queued notifications are copies")
	assert.Equal(t, []byte{9, 2, 3}, <-s.c)

	s.close()
	s.close()
	assert.True(t, s.send(buf), "send after close is discarded")
	_, ok := <-s.c
	assert.False(t, ok)
}

func TestSubscriptionConcurrentClose(t *testing.T) {
	s := newSubscription(queueLen)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.send([]byte{0})
			}
		}()
	}
	s.close()
	wg.Wait()
	for range s.c {
	}
}

func TestDeviceUnknownCharacteristic(t *testing.T) {
	d := &Device{
		chars: make(map[bluetooth.UUID]bluetooth.DeviceCharacteristic),
		subs:  make(map[bluetooth.UUID]*subscription),
	}
	assert.False(t, d.Has(pmd.DataChar))

	_, err := d.Subscribe(pmd.DataChar)
	assert.ErrorIs(t, err, pmd.ErrCharacteristicNotFound)
	err = d.Write(context.Background(), pmd.ControlPointChar, []byte{0x03, 0x00})
	assert.ErrorIs(t, err, pmd.ErrCharacteristicNotFound)
	_, err = d.Read(context.Background(), pmd.ControlPointChar)
	assert.ErrorIs(t, err, pmd.ErrCharacteristicNotFound)
	assert.NoError(t, d.Unsubscribe(pmd.DataChar))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = d.Write(ctx, pmd.ControlPointChar, nil)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDeviceDisconnected(t *testing.T) {
	sub := newSubscription(1)
	d := &Device{
		chars: make(map[bluetooth.UUID]bluetooth.DeviceCharacteristic),
		subs:  map[bluetooth.UUID]*subscription{pmd.DataChar: sub},
	}
	d.Disconnected()
	_, ok := <-sub.c
	assert.False(t, ok, "subscriptions are closed on disconnection")

	_, err := d.Subscribe(pmd.DataChar)
	assert.ErrorIs(t, err, pmd.ErrNotConnected)
	assert.NoError(t, d.Close())
}

// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kortschak/polar/heart"
	"github.com/kortschak/polar/internal/metrics"
	"github.com/kortschak/polar/pmd"
)

const (
	cardWidth  = 296
	cardHeight = 128
	statHeight = 64
)

// traceRange is the minimum vertical span of each plotted stream.
var traceRange = map[pmd.MeasureType]int32{
	pmd.ECGType: 1200, // µV
	pmd.PPGType: 2000, // raw
	pmd.AccType: 200,  // mG
}

// traceValue returns the plotted value of a measurement sample.
func traceValue(s pmd.Sample) (int32, bool) {
	switch s := s.(type) {
	case pmd.ECG:
		return s.Voltage, true
	case pmd.PPG:
		return s.Channels[0] - s.Ambient, true
	case pmd.Acc:
		x, y, z := float64(s.X), float64(s.Y), float64(s.Z)
		return int32(math.Sqrt(x*x + y*y + z*z)), true
	default:
		return 0, false
	}
}

// view is a rendered monitor card and its status line.
type view struct {
	card   image.Image
	status string
}

type monitor struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// newMonitor runs the session s, rendering its streams into images sent
// on update. rec may be nil.
func newMonitor(ctx context.Context, s *pmd.Session, heartRateOn, batteryOn bool, rec *metrics.Collector, log *zap.Logger, update chan<- view) *monitor {
	card := image.NewGray(image.Rectangle{Max: image.Point{X: cardWidth, Y: cardHeight}})
	blank(card)

	hrStats := newHeartRate(subDrawImage(card, image.Rect(0, 0, 64, statHeight)))
	history := newRateHistory(time.Minute, subDrawImage(card, image.Rect(64, 0, cardWidth, statHeight)))

	types, _ := s.Types()
	var plotted []pmd.MeasureType
	for _, t := range types {
		if _, ok := traceRange[t]; ok {
			plotted = append(plotted, t)
		}
	}
	plots := make(map[pmd.MeasureType]*tracePlot)
	for i, t := range plotted {
		h := (cardHeight - statHeight) / len(plotted)
		y := statHeight + i*h
		plots[t] = newTracePlot(subDrawImage(card, image.Rect(0, y, cardWidth, y+h)), traceRange[t])
	}

	var contact atomic.Bool
	contact.Store(true)
	var level atomic.Int32
	level.Store(-1)
	var mu sync.Mutex
	redraw := make(chan struct{}, 1)
	hrTick := make(chan heart.Rate, 1)

	h := pmd.Handlers{
		Frame: func(f pmd.Frame, err error) {
			if err != nil || !contact.Load() {
				return
			}
			p, ok := plots[f.Type]
			if !ok {
				for _, s := range f.Samples {
					if ppi, ok := s.(pmd.PPI); ok {
						log.Debug("pulse interval", zap.Duration("interval", ppi.Duration()), zap.Uint8("hr", ppi.HR))
					}
				}
				return
			}
			vals := make([]int32, 0, len(f.Samples))
			for _, s := range f.Samples {
				if v, ok := traceValue(s); ok {
					vals = append(vals, v)
				}
			}
			mu.Lock()
			p.write(vals)
			mu.Unlock()
			select {
			case redraw <- struct{}{}:
			default:
			}
		},
	}
	if heartRateOn {
		h.HeartRate = func(r heart.Rate, err error) {
			if errors.Is(err, heart.ErrNoContact) {
				if contact.Swap(false) {
					log.Info("sensor contact lost")
				}
			} else if err != nil {
				log.Warn("invalid heart rate measurement", zap.Error(err))
				return
			} else if !contact.Swap(true) {
				log.Info("sensor contact restored")
			}
			if rec != nil {
				rec.HeartRate.Set(float64(r.HR))
			}
			select {
			case hrTick <- r:
			default:
			}
		}
	}
	if batteryOn {
		h.Battery = func(lvl int, err error) {
			if err != nil {
				log.Warn("invalid battery level", zap.Error(err))
				return
			}
			log.Info("battery level", zap.Int("percent", lvl))
			level.Store(int32(lvl))
			if rec != nil {
				rec.Battery.Set(float64(lvl))
			}
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	m := &monitor{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(m.done)
		m.err = s.Run(ctx, h)
	}()
	go func() {
		send := func() {
			v := view{card: card, status: status(types, contact.Load(), int(level.Load()))}
			select {
			case update <- v:
			case <-ctx.Done():
			}
		}
		for {
			select {
			case <-ctx.Done():
				return
			case r := <-hrTick:
				if r.ContactSupported && !r.Contact {
					hrStats.noContact()
					mu.Lock()
					for _, p := range plots {
						p.reset()
					}
					mu.Unlock()
				} else {
					hrStats.add(r)
					history.add(time.Now(), r.HR)
				}
				send()
			case <-redraw:
				mu.Lock()
				drawn := false
				for _, p := range plots {
					if p.draw() {
						drawn = true
					}
				}
				mu.Unlock()
				if drawn {
					send()
				}
			}
		}
	}()
	return m
}

// status returns a summary of the monitored streams and device state.
func status(types []pmd.MeasureType, contact bool, battery int) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	s := strings.Join(names, " ")
	if !contact {
		s += " (no contact)"
	}
	if battery >= 0 {
		s += fmt.Sprintf(" battery %d%%", battery)
	}
	return strings.TrimSpace(s)
}

// Done is closed when the session has ended.
func (m *monitor) Done() <-chan struct{} {
	return m.done
}

// Close ends the session, stopping the measurement streams. It is safe
// to call more than once.
func (m *monitor) Close() error {
	m.cancel()
	<-m.done
	if errors.Is(m.err, context.Canceled) {
		return nil
	}
	return m.err
}

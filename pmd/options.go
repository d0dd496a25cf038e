// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pmd

import (
	"time"

	"go.uber.org/zap"
)

// Option is a ControlPoint and Session option.
type Option func(*options)

type options struct {
	log         *zap.Logger
	framing     Framing
	timeout     time.Duration
	stopTimeout time.Duration
	rec         Recorder
}

const defaultStopTimeout = 5 * time.Second

func newOptions(opts []Option) options {
	o := options{
		log:         zap.NewNop(),
		framing:     FramingAuto,
		stopTimeout: defaultStopTimeout,
		rec:         nopRecorder{},
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// WithLogger sets the logger used for protocol events. A nil logger
// disables logging.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log == nil {
			log = zap.NewNop()
		}
		o.log = log
	}
}

// WithFraming sets the expected framing of control point responses.
func WithFraming(f Framing) Option {
	return func(o *options) {
		o.framing = f
	}
}

// WithTimeout bounds each control point transaction to d. Transactions
// that do not complete in time fail with ErrNotConnected. A zero duration
// leaves transactions bounded only by the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithStopTimeout sets the time allowed for stopping measurements when a
// Session run ends. The default is five seconds.
func WithStopTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.stopTimeout = d
		}
	}
}

// WithRecorder sets a recorder for control point transactions and
// measurement frames.
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		if r == nil {
			r = nopRecorder{}
		}
		o.rec = r
	}
}

// Recorder is notified of protocol events.
type Recorder interface {
	// Transaction is called when a control point transaction
	// ends. The status is only meaningful when the device
	// responded.
	Transaction(cmd Command, typ MeasureType, status Status, err error)
	// Frame is called for each measurement notification with
	// the number of decoded samples. Notifications without a
	// known type tag are reported as UnknownType.
	Frame(typ MeasureType, samples int, err error)
}

type nopRecorder struct{}

func (nopRecorder) Transaction(Command, MeasureType, Status, error) {}
func (nopRecorder) Frame(MeasureType, int, error)                   {}

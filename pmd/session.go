// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"

	"github.com/kortschak/polar/battery"
	"github.com/kortschak/polar/heart"
)

// maxTypes is the number of measurement streams a device will run
// concurrently.
const maxTypes = 2

// typeSet is an ordered set of at most maxTypes measurement types.
type typeSet struct {
	types [maxTypes]MeasureType
	n     int
}

func (s *typeSet) contains(t MeasureType) bool {
	for _, e := range s.types[:s.n] {
		if e == t {
			return true
		}
	}
	return false
}

// Session manages the measurement streams of a device.
//
// The requested measurement types and Acc parameters must only be
// changed while Run is not executing.
type Session struct {
	t  Transport
	cp *ControlPoint

	log         *zap.Logger
	rec         Recorder
	stopTimeout time.Duration

	// types is nil when no measurement
	// type has been requested.
	types *typeSet

	accRange AccRange
	accRate  AccSampleFreq
}

// NewSession returns a Session using the PMD service provided by t.
// The PMD control point is subscribed to immediately; failure to
// subscribe returns an error wrapping ErrNoControlPoint.
func NewSession(t Transport, opts ...Option) (*Session, error) {
	o := newOptions(opts)
	cp, err := newControlPoint(t, o)
	if err != nil {
		return nil, err
	}
	return &Session{
		t:           t,
		cp:          cp,
		log:         o.log,
		rec:         o.rec,
		stopTimeout: o.stopTimeout,
		accRange:    AccRange8G,
		accRate:     AccSampleFreq200,
	}, nil
}

// Push adds t to the set of requested measurement types. It is a no-op
// if t is already requested or two types have already been requested.
// Push reports whether t was added.
func (s *Session) Push(t MeasureType) bool {
	if !t.Valid() {
		return false
	}
	if s.types == nil {
		s.types = &typeSet{}
	}
	if s.types.contains(t) || s.types.n == maxTypes {
		return false
	}
	s.types.types[s.types.n] = t
	s.types.n++
	s.log.Debug("requested measurement type", zap.Stringer("type", t))
	return true
}

// Pop removes t from the set of requested measurement types, reporting
// whether it was present. Removing the last type leaves the session with
// no requested types.
func (s *Session) Pop(t MeasureType) bool {
	if s.types == nil {
		return false
	}
	for i, e := range s.types.types[:s.types.n] {
		if e != t {
			continue
		}
		copy(s.types.types[i:], s.types.types[i+1:s.types.n])
		s.types.n--
		if s.types.n == 0 {
			s.types = nil
		}
		return true
	}
	return false
}

// Types returns the requested measurement types in the order they were
// requested. The boolean is false if no type has been requested.
func (s *Session) Types() ([]MeasureType, bool) {
	if s.types == nil {
		return nil, false
	}
	return append([]MeasureType(nil), s.types.types[:s.types.n]...), true
}

// SetRange sets the range of the Acc stream.
func (s *Session) SetRange(r AccRange) error {
	err := s.accOnly()
	if err != nil {
		return fmt.Errorf("set range %d G: %w", r, err)
	}
	if !r.Valid() {
		return fmt.Errorf("%w: acc range %d G", ErrInvalidData, r)
	}
	s.accRange = r
	return nil
}

// SetSampleRate sets the sample rate of the Acc stream.
func (s *Session) SetSampleRate(f AccSampleFreq) error {
	err := s.accOnly()
	if err != nil {
		return fmt.Errorf("set sample rate %d Hz: %w", f, err)
	}
	if !f.Valid() {
		return fmt.Errorf("%w: acc sample rate %d Hz", ErrInvalidData, f)
	}
	s.accRate = f
	return nil
}

func (s *Session) accOnly() error {
	if s.types == nil {
		return ErrNoDataType
	}
	if !s.types.contains(AccType) {
		return ErrWrongType
	}
	return nil
}

// Range returns the configured Acc range.
func (s *Session) Range() AccRange { return s.accRange }

// SampleRate returns the configured Acc sample rate.
func (s *Session) SampleRate() AccSampleFreq { return s.accRate }

// Features reads the set of PMD features supported by the device.
func (s *Session) Features(ctx context.Context) (Features, error) {
	return s.cp.Features(ctx)
}

// StreamSettings queries the device for the stream settings available for
// the measurement type.
func (s *Session) StreamSettings(ctx context.Context, t MeasureType) (StreamSettings, error) {
	resp, err := s.cp.Send(ctx, MeasureSettings, t)
	if err != nil {
		return StreamSettings{}, err
	}
	return NewStreamSettings(&resp)
}

// Settings queries the device for the stream settings of each requested
// measurement type.
func (s *Session) Settings(ctx context.Context) ([]StreamSettings, error) {
	types, ok := s.Types()
	if !ok {
		return nil, ErrNoDataType
	}
	settings := make([]StreamSettings, 0, len(types))
	for _, t := range types {
		set, err := s.StreamSettings(ctx, t)
		if err != nil {
			return settings, err
		}
		settings = append(settings, set)
	}
	return settings, nil
}

// Start starts the measurement stream for t with the session's settings.
func (s *Session) Start(ctx context.Context, t MeasureType) (ControlResponse, error) {
	var settings []Setting
	switch t {
	case ECGType:
		settings = ecgSettings()
	case PPGType:
		settings = ppgSettings()
	case AccType:
		settings = accSettings(s.accRate, s.accRange)
	case PPIType:
	default:
		return ControlResponse{}, fmt.Errorf("%w: measurement type %d", ErrInvalidData, t)
	}
	return s.cp.Send(ctx, MeasureStart, t, settings...)
}

// Stop stops the measurement stream for t.
func (s *Session) Stop(ctx context.Context, t MeasureType) (ControlResponse, error) {
	return s.cp.Send(ctx, MeasureStop, t)
}

// Close releases the control point subscription. It does not close the
// transport.
func (s *Session) Close() error {
	return s.cp.Close()
}

// Handlers holds the notification handlers for Run.
type Handlers struct {
	// Frame is called with each decoded measurement
	// frame or decoding error.
	Frame func(Frame, error)

	// HeartRate is called with each heart rate
	// measurement if it is not nil.
	HeartRate func(heart.Rate, error)

	// Battery is called with each battery level
	// notification if it is not nil.
	Battery func(int, error)

	// Continue is called before each notification
	// is handled. Run returns when it returns false.
	// A nil Continue always continues.
	Continue func() bool
}

// Run starts the requested measurement streams and dispatches
// notifications to h until h.Continue returns false, ctx is done or the
// transport closes a subscription.
//
// Each requested stream is stopped before being started. All requested
// streams are stopped when Run returns, however it returns. Frame decoding
// errors are passed to h.Frame and do not end the run.
func (s *Session) Run(ctx context.Context, h Handlers) (err error) {
	types, _ := s.Types()
	if len(types) == 0 && h.HeartRate == nil && h.Battery == nil {
		return ErrNoDataType
	}

	var data, rate, level <-chan []byte
	if len(types) != 0 {
		data, err = s.subscribe(DataChar)
		if err != nil {
			return err
		}
		defer s.unsubscribe(DataChar, &err)
	}
	if h.HeartRate != nil {
		rate, err = s.subscribe(heart.Measurement)
		if err != nil {
			return err
		}
		defer s.unsubscribe(heart.Measurement, &err)
	}
	if h.Battery != nil {
		level, err = s.subscribe(battery.LevelCharacteristic)
		if err != nil {
			return err
		}
		defer s.unsubscribe(battery.LevelCharacteristic, &err)
	}

	if len(types) != 0 {
		defer func() {
			err = errors.Join(err, s.stopAll(ctx, types))
		}()
	}
	for _, t := range types {
		_, err = s.Stop(ctx, t)
		if _, ok := ErrorStatus(err); err != nil && !ok {
			return err
		}
		_, err = s.Start(ctx, t)
		if err != nil {
			return err
		}
		s.log.Info("started measurement stream", zap.Stringer("type", t))
	}

	cont := h.Continue
	if cont == nil {
		cont = func() bool { return true }
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case buf, ok := <-data:
			if !ok {
				return fmt.Errorf("%w: measurement data subscription closed", ErrNotConnected)
			}
			if !cont() {
				return nil
			}
			s.dispatchFrame(buf, h.Frame)

		case buf, ok := <-rate:
			if !ok {
				return fmt.Errorf("%w: heart rate subscription closed", ErrNotConnected)
			}
			if !cont() {
				return nil
			}
			var r heart.Rate
			err := r.UnmarshalBinary(buf)
			h.HeartRate(r, err)

		case buf, ok := <-level:
			if !ok {
				return fmt.Errorf("%w: battery level subscription closed", ErrNotConnected)
			}
			if !cont() {
				return nil
			}
			h.Battery(battery.ParseLevel(buf))
		}
	}
}

func (s *Session) subscribe(char bluetooth.UUID) (<-chan []byte, error) {
	c, err := s.t.Subscribe(char)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", char, err)
	}
	return c, nil
}

func (s *Session) unsubscribe(char bluetooth.UUID, err *error) {
	uerr := s.t.Unsubscribe(char)
	if uerr != nil {
		*err = errors.Join(*err, fmt.Errorf("failed to unsubscribe from %s: %w", char, uerr))
	}
}

// stopAll stops each of the measurement streams. It is run when the
// event loop has ended, so ctx may already be done.
func (s *Session) stopAll(ctx context.Context, types []MeasureType) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.stopTimeout)
	defer cancel()
	var errs []error
	for _, t := range types {
		_, err := s.Stop(ctx, t)
		if status, ok := ErrorStatus(err); ok {
			s.log.Warn("stop measurement stream", zap.Stringer("type", t), zap.Stringer("status", status))
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", t, err))
			continue
		}
		s.log.Info("stopped measurement stream", zap.Stringer("type", t))
	}
	return errors.Join(errs...)
}

func (s *Session) dispatchFrame(buf []byte, h func(Frame, error)) {
	var f Frame
	err := f.UnmarshalBinary(buf)
	typ := f.Type
	if err != nil {
		typ = UnknownType
		if len(buf) != 0 && MeasureType(buf[sampleTypeOffset]).Valid() {
			typ = MeasureType(buf[sampleTypeOffset])
		}
	}
	s.rec.Frame(typ, len(f.Samples), err)
	if err != nil {
		s.log.Debug("invalid measurement frame", zap.Stringer("type", typ), zap.Error(err))
	}
	if h != nil {
		h(f, err)
	}
}

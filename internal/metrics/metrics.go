// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package metrics provides Prometheus metrics for PMD sessions.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kortschak/polar/pmd"
)

// NewRegistry returns a registry with the Go runtime and process
// collectors registered.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler returns an HTTP handler serving the metrics in reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Collector records PMD control point transactions and measurement
// frames. It implements pmd.Recorder.
type Collector struct {
	Transactions *prometheus.CounterVec // labels: command, type, result
	Frames       *prometheus.CounterVec // labels: type, result=ok|error
	Samples      *prometheus.CounterVec // labels: type
	HeartRate    prometheus.Gauge
	Battery      prometheus.Gauge
}

var _ pmd.Recorder = (*Collector)(nil)

// New registers and returns a Collector.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		Transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pmd_transactions_total",
			Help: "PMD control point transactions by command, measurement type and result.",
		}, []string{"command", "type", "result"}),
		Frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pmd_frames_total",
			Help: "PMD measurement notifications by measurement type and decode result.",
		}, []string{"type", "result"}),
		Samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pmd_samples_total",
			Help: "Decoded PMD samples by measurement type.",
		}, []string{"type"}),
		HeartRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "heart_rate_bpm",
			Help: "Most recent heart rate.",
		}),
		Battery: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "battery_level_percent",
			Help: "Most recent battery level.",
		}),
	}
	reg.MustRegister(c.Transactions, c.Frames, c.Samples, c.HeartRate, c.Battery)
	return c
}

// Transaction implements pmd.Recorder.
func (c *Collector) Transaction(cmd pmd.Command, typ pmd.MeasureType, status pmd.Status, err error) {
	c.Transactions.WithLabelValues(cmd.String(), typeLabel(typ), result(status, err)).Inc()
}

func result(status pmd.Status, err error) string {
	if err == nil {
		return status.String()
	}
	if s, ok := pmd.ErrorStatus(err); ok {
		return s.String()
	}
	if errors.Is(err, pmd.ErrNotConnected) {
		return "not_connected"
	}
	return "error"
}

// Frame implements pmd.Recorder.
func (c *Collector) Frame(typ pmd.MeasureType, samples int, err error) {
	label := typeLabel(typ)
	if err != nil {
		c.Frames.WithLabelValues(label, "error").Inc()
		return
	}
	c.Frames.WithLabelValues(label, "ok").Inc()
	c.Samples.WithLabelValues(label).Add(float64(samples))
}

// typeLabel bounds the type label values to the known types.
func typeLabel(typ pmd.MeasureType) string {
	if !typ.Valid() {
		typ = pmd.UnknownType
	}
	return typ.String()
}

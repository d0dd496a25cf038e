// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The monitor command is a demonstration of the pmd, heart and battery
// packages, displaying heart rate and measurement stream traces from a
// Polar sensor.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"sync"
	"time"

	"gioui.org/app"
	"gioui.org/font/gofont"
	"gioui.org/io/event"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/paint"
	"gioui.org/text"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"
	"gioui.org/x/explorer"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"

	"github.com/kortschak/polar/gatt"
	"github.com/kortschak/polar/internal/config"
	"github.com/kortschak/polar/internal/logging"
	"github.com/kortschak/polar/internal/metrics"
	"github.com/kortschak/polar/pmd"
)

func main() {
	err := newRootCommand().Execute()
	if err != nil {
		os.Exit(1)
	}
}

const (
	configOptionName      = "config"
	addrOptionName        = "addr"
	framingOptionName     = "framing"
	typesOptionName       = "types"
	rangeOptionName       = "range"
	sampleRateOptionName  = "sample-rate"
	logLevelOptionName    = "log-level"
	logFormatOptionName   = "log-format"
	metricsAddrOptionName = "metrics-addr"
)

// flags holds command line values that override the configuration.
type flags struct {
	config      string
	addr        string
	framing     string
	types       []string
	accRange    int
	sampleRate  int
	logLevel    string
	logFormat   string
	metricsAddr string
}

// register adds the flags to cmd.
func (f *flags) register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&f.config, configOptionName, "", "YAML configuration file")
	cmd.PersistentFlags().StringVar(&f.logLevel, logLevelOptionName, "", "log level: debug, info, warn or error")
	cmd.PersistentFlags().StringVar(&f.logFormat, logFormatOptionName, "", "log format: console or json")
	cmd.Flags().StringVar(&f.addr, addrOptionName, "", "sensor bluetooth address")
	cmd.Flags().StringVar(&f.framing, framingOptionName, "", "control point response framing: auto, marked or bare")
	cmd.Flags().StringSliceVar(&f.types, typesOptionName, nil, fmt.Sprintf("measurement types, at most two of %s", typeNames()))
	cmd.Flags().IntVar(&f.accRange, rangeOptionName, 0, "Acc range in G")
	cmd.Flags().IntVar(&f.sampleRate, sampleRateOptionName, 0, "Acc sample rate in Hz")
	cmd.Flags().StringVar(&f.metricsAddr, metricsAddrOptionName, "", "address to serve Prometheus metrics on, e.g. localhost:9090")
}

// apply sets the configuration fields for each flag set on cmd.
func (f *flags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed(addrOptionName) {
		cfg.Device.Address = f.addr
	}
	if changed(framingOptionName) {
		cfg.Device.Framing = f.framing
	}
	if changed(typesOptionName) {
		cfg.Measure.Types = f.types
	}
	if changed(rangeOptionName) {
		cfg.Measure.Range = f.accRange
	}
	if changed(sampleRateOptionName) {
		cfg.Measure.SampleRate = f.sampleRate
	}
	if changed(logLevelOptionName) {
		cfg.Log.Level = f.logLevel
	}
	if changed(logFormatOptionName) {
		cfg.Log.Format = f.logFormat
	}
	if changed(metricsAddrOptionName) {
		cfg.Metrics.Addr = f.metricsAddr
	}
}

func newRootCommand() *cobra.Command {
	var (
		f   flags
		cfg *config.Config
		log *zap.Logger
	)
	cmd := &cobra.Command{
		Use:          "monitor",
		Short:        "Display heart rate and measurement streams from a Polar sensor",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(f.config)
			if err != nil {
				return err
			}
			f.apply(cmd, cfg)
			err = cfg.Validate()
			if err != nil {
				return err
			}
			log, err = logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			defer log.Sync()
			return run(cmd.Context(), cfg, log)
		},
	}
	f.register(cmd)
	return cmd
}

func typeNames() string {
	names := make([]string, len(pmd.MeasureTypes))
	for i, t := range pmd.MeasureTypes {
		names[i] = strings.ToLower(t.String())
	}
	return strings.Join(names, ", ")
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if cfg.Device.Address == "" {
		return errors.New("no sensor address")
	}
	var macAddr bluetooth.Address
	err := macAddr.UnmarshalText([]byte(cfg.Device.Address))
	if err != nil {
		return fmt.Errorf("invalid sensor address %q: %w", cfg.Device.Address, err)
	}

	adapter := bluetooth.DefaultAdapter
	err = adapter.Enable()
	if err != nil {
		return fmt.Errorf("failed to enable bluetooth: %w", err)
	}

	dev, err := connect(adapter, macAddr, cfg.Device.ScanTimeout.Duration, log)
	if err != nil {
		return err
	}
	d, err := gatt.New(dev, log)
	if err != nil {
		dev.Disconnect()
		return err
	}
	adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if device.Address == macAddr && !connected {
			log.Warn("sensor disconnected", zap.Stringer("addr", macAddr))
			d.Disconnected()
		}
	})

	opts, err := cfg.Options()
	if err != nil {
		d.Close()
		return err
	}
	opts = append(opts, pmd.WithLogger(log))
	var rec *metrics.Collector
	if cfg.Metrics.Addr != "" {
		reg := metrics.NewRegistry()
		rec = metrics.New(reg)
		opts = append(opts, pmd.WithRecorder(rec))
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: metrics.Handler(reg), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Info("serving metrics", zap.String("addr", cfg.Metrics.Addr))
			err := srv.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	s, err := pmd.NewSession(d, opts...)
	if err != nil {
		d.Close()
		return err
	}
	err = cfg.Apply(s)
	if err != nil {
		s.Close()
		d.Close()
		return err
	}
	if _, ok := s.Types(); ok {
		features, err := s.Features(ctx)
		if err != nil {
			s.Close()
			d.Close()
			return fmt.Errorf("failed to read features: %w", err)
		}
		log.Info("supported features", zap.Stringer("features", features))
		settings, err := s.Settings(ctx)
		if err != nil {
			s.Close()
			d.Close()
			return fmt.Errorf("failed to read stream settings: %w", err)
		}
		for _, set := range settings {
			log.Info("stream settings", zap.Stringer("type", set.Type), zap.Any("settings", set))
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	update := make(chan view)
	m := newMonitor(ctx, s, cfg.Measure.HeartRate, cfg.Measure.Battery, rec, log, update)

	var once sync.Once
	shutdown := func() {
		once.Do(func() {
			stop()
			err := errors.Join(m.Close(), s.Close(), d.Close())
			if err != nil {
				log.Error("monitor stopped", zap.Error(err))
				log.Sync()
				os.Exit(1)
			}
			log.Sync()
			os.Exit(0)
		})
	}
	go func() {
		<-m.Done()
		shutdown()
	}()
	go func() {
		w := new(app.Window)
		w.Option(app.Title("Polar"), app.Size(cardWidth, cardHeight+24))
		if err := loop(w, update); err != nil {
			log.Error("window failed", zap.Error(err))
		}
		shutdown()
	}()
	app.Main()
	return nil
}

// connect scans for the Polar device at addr and connects to it.
func connect(adapter *bluetooth.Adapter, addr bluetooth.Address, timeout time.Duration, log *zap.Logger) (bluetooth.Device, error) {
	log.Info("scanning", zap.Stringer("addr", addr), zap.Duration("timeout", timeout))
	var (
		found bool
		mu    sync.Mutex
	)
	timer := time.AfterFunc(timeout, func() {
		adapter.StopScan()
	})
	err := adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
		if !slices.ContainsFunc(result.ManufacturerData(), func(m bluetooth.ManufacturerDataElement) bool {
			const polarElectroOY = 0x6b // https://bitbucket.org/bluetooth-SIG/public/src/05be78f4ef6461cce0370663adf778613a1754eb/assigned_numbers/company_identifiers/company_identifiers.yaml#lines-11148:11149
			return m.CompanyID == polarElectroOY
		}) {
			return
		}
		if result.Address != addr {
			return
		}
		log.Info("found device",
			zap.Stringer("addr", result.Address),
			zap.Int16("rssi", result.RSSI),
			zap.String("name", result.LocalName()),
			zap.Strings("manufacturer_data", manData(result.ManufacturerData())),
		)
		mu.Lock()
		found = true
		mu.Unlock()
		adapter.StopScan()
	})
	timer.Stop()
	if err != nil {
		return bluetooth.Device{}, fmt.Errorf("scan failed: %w", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if !found {
		return bluetooth.Device{}, fmt.Errorf("%w: %s not found after %v", pmd.ErrNoDevice, addr, timeout)
	}
	dev, err := adapter.Connect(addr, bluetooth.ConnectionParams{})
	if err != nil {
		return bluetooth.Device{}, fmt.Errorf("failed to connect: %w", err)
	}
	return dev, nil
}

func manData(m []bluetooth.ManufacturerDataElement) []string {
	s := make([]string, len(m))
	for i, d := range m {
		s[i] = fmt.Sprintf("%#x", d.Data)
	}
	return s
}

func loop(w *app.Window, update <-chan view) error {
	expl := explorer.NewExplorer(w)
	th := material.NewTheme()
	th.Shaper = text.NewShaper(text.WithCollection(gofont.Collection()))

	events := make(chan event.Event)
	ack := make(chan struct{})

	go func() {
		for {
			ev := w.Event()
			events <- ev
			<-ack
			if _, ok := ev.(app.DestroyEvent); ok {
				return
			}
		}
	}()
	var v view
	var ops op.Ops
	for {
		select {
		case v = <-update:
			w.Invalidate()
		case e := <-events:
			expl.ListenEvents(e)
			switch e := e.(type) {
			case app.DestroyEvent:
				ack <- struct{}{}
				return e.Err
			case app.FrameEvent:
				gtx := app.NewContext(&ops, e)
				layout.Flex{Axis: layout.Vertical}.Layout(gtx,
					layout.Rigid(func(gtx layout.Context) layout.Dimensions {
						return layout.UniformInset(unit.Dp(2)).Layout(gtx,
							material.Caption(th, v.status).Layout,
						)
					}),
					layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
						if v.card == nil {
							return layout.Dimensions{}
						}
						return widget.Image{
							Src: paint.NewImageOp(v.card),
							Fit: widget.Contain,
						}.Layout(gtx)
					}),
				)
				e.Frame(gtx.Ops)
			}
			ack <- struct{}{}
		}
	}
}

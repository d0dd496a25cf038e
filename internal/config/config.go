// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config handles YAML configuration for the monitor command.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kortschak/polar/internal/logging"
	"github.com/kortschak/polar/pmd"
)

// Config is the monitor configuration.
type Config struct {
	Device  Device  `yaml:"device"`
	Measure Measure `yaml:"measure"`
	Log     Log     `yaml:"log"`
	Metrics Metrics `yaml:"metrics"`
}

// Device holds device connection settings.
type Device struct {
	// Address is the sensor Bluetooth address.
	Address string `yaml:"address"`
	// ScanTimeout bounds the search for the sensor.
	ScanTimeout Duration `yaml:"scan_timeout"`
	// Framing is the control point response framing:
	// auto, marked or bare.
	Framing string `yaml:"framing"`
	// Timeout bounds each control point transaction.
	Timeout Duration `yaml:"timeout"`
}

// Measure holds the requested measurement streams.
type Measure struct {
	Types []string `yaml:"types"`
	// Range and SampleRate configure the Acc
	// stream. Zero values use the defaults.
	Range      int  `yaml:"range"`
	SampleRate int  `yaml:"sample_rate"`
	HeartRate  bool `yaml:"heart_rate"`
	Battery    bool `yaml:"battery"`
}

// Log holds logger settings.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Metrics holds the metrics endpoint settings. An empty address disables
// the endpoint.
type Metrics struct {
	Addr string `yaml:"addr"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Device: Device{
			ScanTimeout: Duration{30 * time.Second},
			Framing:     "auto",
			Timeout:     Duration{5 * time.Second},
		},
		Measure: Measure{
			Types:     []string{"ecg"},
			HeartRate: true,
		},
		Log: Log{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads a YAML config file, expands environment variables, and
// unmarshals into the default configuration. An empty path returns
// the default configuration.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("cannot read config file %q: %w", path, err)
	}
	if err := yaml.Unmarshal([]byte(ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}
	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnv replaces ${VAR} and ${VAR:-default} patterns in the input
// with their environment variable values. Unset variables without a
// default expand to the empty string.
func ExpandEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		value, ok := os.LookupEnv(groups[1])
		if ok && value != "" {
			return value
		}
		return groups[2]
	})
}

// Types returns the requested measurement types.
func (c *Config) Types() ([]pmd.MeasureType, error) {
	types := make([]pmd.MeasureType, 0, len(c.Measure.Types))
	for _, name := range c.Measure.Types {
		t, err := pmd.ParseMeasureType(name)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

// Validate checks the configuration for errors that can be detected
// without a device.
func (c *Config) Validate() error {
	var errs []error
	types, err := c.Types()
	if err != nil {
		errs = append(errs, err)
	}
	distinct := make(map[pmd.MeasureType]bool)
	for _, t := range types {
		distinct[t] = true
	}
	if len(distinct) > 2 {
		errs = append(errs, fmt.Errorf("too many measurement types: %v", c.Measure.Types))
	}
	if len(distinct) == 0 && !c.Measure.HeartRate && !c.Measure.Battery {
		errs = append(errs, pmd.ErrNoDataType)
	}
	if _, err := pmd.ParseFraming(c.Device.Framing); err != nil {
		errs = append(errs, err)
	}
	if c.Device.Timeout.Duration < 0 {
		errs = append(errs, fmt.Errorf("negative transaction timeout: %v", c.Device.Timeout))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		errs = append(errs, err)
	}
	if _, _, err := c.accParams(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Options returns the session options described by the configuration.
func (c *Config) Options() ([]pmd.Option, error) {
	framing, err := pmd.ParseFraming(c.Device.Framing)
	if err != nil {
		return nil, err
	}
	return []pmd.Option{
		pmd.WithFraming(framing),
		pmd.WithTimeout(c.Device.Timeout.Duration),
	}, nil
}

// Apply requests the configured measurement types and Acc parameters
// from s. Illegal parameters are reported with the session's errors.
func (c *Config) Apply(s *pmd.Session) error {
	types, err := c.Types()
	if err != nil {
		return err
	}
	rng, rate, err := c.accParams()
	if err != nil {
		return err
	}
	for _, t := range types {
		s.Push(t)
	}
	if rng != 0 {
		err = s.SetRange(rng)
		if err != nil {
			return err
		}
	}
	if rate != 0 {
		err = s.SetSampleRate(rate)
		if err != nil {
			return err
		}
	}
	return nil
}

// accParams returns the configured Acc range and sample rate. Zero values
// are unset. Values the device does not support are ErrInvalidData.
func (c *Config) accParams() (pmd.AccRange, pmd.AccSampleFreq, error) {
	var errs []error
	rng, ok := asUint16[pmd.AccRange](c.Measure.Range)
	if !ok || (rng != 0 && !rng.Valid()) {
		errs = append(errs, fmt.Errorf("%w: acc range: %d", pmd.ErrInvalidData, c.Measure.Range))
	}
	rate, ok := asUint16[pmd.AccSampleFreq](c.Measure.SampleRate)
	if !ok || (rate != 0 && !rate.Valid()) {
		errs = append(errs, fmt.Errorf("%w: acc sample rate: %d", pmd.ErrInvalidData, c.Measure.SampleRate))
	}
	if len(errs) != 0 {
		return 0, 0, errors.Join(errs...)
	}
	return rng, rate, nil
}

func asUint16[T ~uint16](v int) (T, bool) {
	if v < 0 || v > math.MaxUint16 {
		return 0, false
	}
	return T(v), true
}

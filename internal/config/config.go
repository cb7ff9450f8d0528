// Package config loads the feinsum settings file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/feinsum/internal/device"
	"github.com/born-ml/feinsum/internal/errs"
	"github.com/born-ml/feinsum/internal/measure"
)

// Config holds the settings shared by the feinsum commands.
type Config struct {
	Database       string         `yaml:"database"`        // archive file
	Authors        string         `yaml:"authors"`         // default author list of recordings
	LongDimLength  int            `yaml:"long_dim_length"` // value bound to size parameters
	LogPerformance bool           `yaml:"log_performance"` // log roofline comparisons
	LogLevel       string         `yaml:"log_level"`       // debug, info, warn or error
	MetricsFile    string         `yaml:"metrics_file"`    // Prometheus textfile written after recording
	Benchmark      device.Options `yaml:"benchmark"`
	// Tables extends the built-in roofline tables.
	Tables measure.Tables `yaml:"tables"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Database:       "transform_archive.db",
		LongDimLength:  50000,
		LogPerformance: true,
		LogLevel:       "info",
		Benchmark:      device.DefaultOptions(),
	}
}

// Load reads the YAML file at path over the defaults. Unknown keys are
// rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errs.Wrap(errs.Configuration, "config.Load", err)
	}
	return Parse(data)
}

// Parse decodes YAML settings over the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errs.Wrap(errs.Configuration, "config.Parse", fmt.Errorf("decode settings: %w", err))
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings no command can run with.
func (c Config) Validate() error {
	const op = "config.Validate"
	if c.Database == "" {
		return errs.New(errs.Configuration, op, "database path is empty")
	}
	if c.LongDimLength <= 0 {
		return errs.New(errs.Configuration, op, "long_dim_length must be positive, got %d", c.LongDimLength)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if err := c.Benchmark.Validate(); err != nil {
		return err
	}
	for dev, peaks := range c.Tables.PeakGFlops {
		for dt, v := range peaks {
			if v <= 0 {
				return errs.New(errs.Configuration, op, "peak GFLOP/s of %s on %q must be positive", dt, dev)
			}
		}
	}
	for dev, bw := range c.Tables.PeakBandwidth {
		if bw <= 0 {
			return errs.New(errs.Configuration, op, "peak bandwidth of %q must be positive", dev)
		}
	}
	return nil
}

// Level parses the configured log level.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, errs.Wrap(errs.Configuration, "config.Level", err)
	}
	return l, nil
}

// RooflineTables returns the built-in tables extended by the configured
// ones.
func (c Config) RooflineTables() measure.Tables {
	return measure.DefaultTables().Merge(c.Tables)
}

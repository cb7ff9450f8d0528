package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/born-ml/feinsum/internal/device"
	"github.com/born-ml/feinsum/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 50000, cfg.LongDimLength)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feinsum.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database: /tmp/archive.db
authors: kk
log_level: debug
metrics_file: /tmp/feinsum.prom
benchmark:
  trials: 25
tables:
  peak_gflops:
    Lab GPU:
      float32: 1000
  peak_bandwidth:
    Lab GPU: 200
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/archive.db", cfg.Database)
	assert.Equal(t, "kk", cfg.Authors)
	assert.Equal(t, "/tmp/feinsum.prom", cfg.MetricsFile)
	assert.Equal(t, 50000, cfg.LongDimLength, "unset keys keep their defaults")
	assert.Equal(t, device.Options{Warmup: 2, Trials: 25}, cfg.Benchmark)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	tables := cfg.RooflineTables()
	assert.Equal(t, 1000.0, tables.PeakGFlops["Lab GPU"]["float32"])
	assert.Contains(t, tables.PeakGFlops, "NVIDIA TITAN V")
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "unknown key", yaml: "databse: x.db\n"},
		{name: "empty database", yaml: "database: \"\"\n"},
		{name: "negative long dim", yaml: "long_dim_length: -4\n"},
		{name: "time zone is fixed", yaml: "timezone: UTC\n"},
		{name: "bad level", yaml: "log_level: loud\n"},
		{name: "no trials", yaml: "benchmark: {trials: 0}\n"},
		{name: "zero peak", yaml: "tables: {peak_gflops: {X: {float32: 0}}}\n"},
		{name: "zero bandwidth", yaml: "tables: {peak_bandwidth: {X: 0}}\n"},
		{name: "not yaml", yaml: "[[["},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorIs(t, err, errs.ErrConfiguration)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	assert.ErrorIs(t, err, errs.ErrConfiguration)
}

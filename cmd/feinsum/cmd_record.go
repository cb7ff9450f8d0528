package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/born-ml/feinsum/internal/archive"
	"github.com/born-ml/feinsum/internal/config"
	"github.com/born-ml/feinsum/internal/device/webgpu"
	"github.com/born-ml/feinsum/internal/transform"
)

// runRecord times a transformed einsum on the WebGPU adapter and appends
// the result to the archive.
func runRecord(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("record", flag.ContinueOnError)
	fs.SetOutput(out)

	var ef einsumFlags
	fs.StringVar(&ef.subscripts, "subscripts", "", "Einsum subscripts (required)")
	fs.StringVar(&ef.shapes, "shapes", "", "Operand shapes separated by ';' (required)")
	fs.StringVar(&ef.names, "names", "", "Operand value names, comma-separated")
	fs.StringVar(&ef.dtype, "dtype", "float32", "Element type, or one per operand")

	configPath := fs.String("config", "", "Settings file (YAML)")
	db := fs.String("db", "", "Archive database (overrides the settings file)")
	transformPath := fs.String("transform", "", "Transform file: Go source or YAML pipeline")
	transformText := fs.String("transform-text", "", "Transform given inline")
	authors := fs.String("authors", "", "Authors of the transform (overrides the settings file)")
	remarks := fs.String("remarks", "", "Free-form remarks")
	longDim := fs.Int("long-dim", 0, "Value bound to size parameters (overrides the settings file)")
	trials := fs.Int("trials", 0, "Timed runs (overrides the settings file)")
	quiet := fs.Bool("quiet", false, "Do not log the roofline comparison")
	metricsFile := fs.String("metrics-file", "", "Prometheus textfile to write (overrides the settings file)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	overrideString(&cfg.Database, *db)
	overrideString(&cfg.Authors, *authors)
	overrideString(&cfg.MetricsFile, *metricsFile)
	if *longDim != 0 {
		cfg.LongDimLength = *longDim
	}
	if *trials != 0 {
		cfg.Benchmark.Trials = *trials
	}
	if *quiet {
		cfg.LogPerformance = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	e, err := ef.build()
	if err != nil {
		return err
	}
	src, err := transform.Resolve(transform.Source{Text: *transformText, Path: *transformPath})
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	a, err := openArchive(cfg, logger, archive.NewMetrics(reg))
	if err != nil {
		return err
	}
	defer a.Close()
	if cfg.MetricsFile != "" {
		defer func() {
			if err := prometheus.WriteToTextfile(cfg.MetricsFile, reg); err != nil {
				logger.Warn("cannot write metrics", "file", cfg.MetricsFile, "err", err)
			}
		}()
	}

	gpu, err := webgpu.Open(logger)
	if err != nil {
		return err
	}
	defer gpu.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	row, err := a.Record(ctx, e, gpu, archive.RecordOptions{
		Source:         transform.Source{Text: src},
		Authors:        cfg.Authors,
		Remarks:        *remarks,
		LongDimLength:  cfg.LongDimLength,
		LogPerformance: cfg.LogPerformance,
		Benchmark:      cfg.Benchmark,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Recorded %s on %s: %.6g s\n", row.Subscripts, row.CompilerVersion, row.RuntimeInSec)
	fmt.Fprintln(out, strings.TrimSpace(row.GigaOpInfo))
	return nil
}

// openArchive opens the archive configured by cfg. Metrics may be nil.
func openArchive(cfg config.Config, logger *slog.Logger, metrics *archive.Metrics) (*archive.Archive, error) {
	return archive.Open(archive.Config{
		Path:    cfg.Database,
		Tables:  cfg.RooflineTables(),
		Logger:  logger,
		Metrics: metrics,
	})
}

func overrideString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

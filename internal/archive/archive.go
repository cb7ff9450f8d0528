// Package archive records measured einsum transforms in a SQLite file.
//
// Every device gets its own append-only table named after the device.
// Recordings always store the normalized einsum, so isomorphic einsums
// land on identical description fields.
//
// Table creation is check-then-create and not safe against concurrent
// writers: serialize recordings against one database file.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
	_ "time/tzdata" // archive timestamps use America/Chicago

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/born-ml/feinsum/internal/device"
	"github.com/born-ml/feinsum/internal/einsum"
	"github.com/born-ml/feinsum/internal/errs"
	"github.com/born-ml/feinsum/internal/kernel"
	"github.com/born-ml/feinsum/internal/measure"
	"github.com/born-ml/feinsum/internal/normalize"
	"github.com/born-ml/feinsum/internal/transform"
	"github.com/born-ml/feinsum/internal/wgsl"
)

// DefaultLongDimLength is the value bound to size parameters when a
// recording does not choose one.
const DefaultLongDimLength = 50000

// TimeZone is the zone archived timestamps are rendered in.
const TimeZone = "America/Chicago"

// Config configures an Archive.
type Config struct {
	// Path is the SQLite database file. Required.
	Path string
	// Engine lowers and transforms kernels. Nil selects the WGSL engine.
	Engine kernel.Engine
	// Tables are the roofline peaks. A zero value selects
	// measure.DefaultTables.
	Tables measure.Tables
	// Now returns the current time. Nil selects time.Now.
	Now func() time.Time
	// Logger receives progress and performance logs. Nil selects
	// slog.Default.
	Logger *slog.Logger
	// Metrics counts recordings. Nil disables metrics.
	Metrics *Metrics
}

// Archive is an open transform archive.
type Archive struct {
	db     *sql.DB
	cfg    Config
	loc    *time.Location
	logger *slog.Logger
}

// Open opens or creates the archive at cfg.Path.
func Open(cfg Config) (*Archive, error) {
	if cfg.Path == "" {
		return nil, errs.New(errs.Configuration, "archive.Open", "no database path given")
	}
	if cfg.Engine == nil {
		cfg.Engine = wgsl.New()
	}
	if cfg.Tables.PeakGFlops == nil && cfg.Tables.PeakBandwidth == nil {
		cfg.Tables = measure.DefaultTables()
	}
	loc, err := time.LoadLocation(TimeZone)
	if err != nil {
		return nil, fmt.Errorf("load time zone %s: %w", TimeZone, err)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", cfg.Path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open archive %s: %w", cfg.Path, err)
	}
	return &Archive{db: db, cfg: cfg, loc: loc, logger: logger}, nil
}

// Close closes the database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// RecordOptions describes one recording.
type RecordOptions struct {
	// Source is the transform: inline text or a file path, exactly one.
	Source  transform.Source
	Authors string
	Remarks string
	// LongDimLength is bound to every size parameter. Zero selects
	// DefaultLongDimLength.
	LongDimLength int
	// LogPerformance logs the roofline comparison after recording.
	LogPerformance bool
	// Benchmark controls timing. A zero value selects
	// device.DefaultOptions.
	Benchmark device.Options
}

// Record normalizes e, times the transformed kernel on the single device
// of devCtx and appends one row to the device's table. Configuration and
// device-count problems are reported before any device work.
func (a *Archive) Record(ctx context.Context, e *einsum.FusedEinsum, devCtx device.Context, opts RecordOptions) (row Row, err error) {
	log := a.logger.With("run", uuid.NewString())
	var deviceName string
	defer func() { a.cfg.Metrics.observe(deviceName, row.RuntimeInSec, err) }()

	longDim := opts.LongDimLength
	if longDim == 0 {
		longDim = DefaultLongDimLength
	}
	if longDim < 0 {
		return Row{}, errs.New(errs.Configuration, "archive.Record", "long dimension length %d is negative", longDim)
	}
	bench := opts.Benchmark
	if bench == (device.Options{}) {
		bench = device.DefaultOptions()
	}

	n, err := normalize.Einsum(e)
	if err != nil {
		return Row{}, err
	}
	src, err := transform.Resolve(opts.Source)
	if err != nil {
		return Row{}, err
	}
	fn, err := transform.Load(src)
	if err != nil {
		return Row{}, err
	}
	dev, err := device.Single(devCtx)
	if err != nil {
		return Row{}, err
	}
	deviceName = dev.Name()

	log.Debug("measuring", "subscripts", n.Subscripts(), "device", dev.Name(), "long_dim", longDim)
	res, err := measure.Measure(ctx, n, fn, devCtx, a.cfg.Engine, longDim, bench)
	if err != nil {
		return Row{}, err
	}

	opInfo, err := measure.OpInfo(n, longDim)
	if err != nil {
		return Row{}, errs.Wrap(errs.Validation, "archive.Record", err)
	}

	table := TableName(dev.Name())
	if err := a.ensureTable(ctx, log, table); err != nil {
		return Row{}, err
	}

	row = Row{
		Subscripts:      n.Subscripts(),
		IndexToLength:   n.IndexLengthsString(),
		UseMatrix:       escape(n.UseMatrixString()),
		ValueToDType:    n.ValueDTypesString(),
		Transform:       escape(src),
		RuntimeInSec:    res.Runtime,
		Authors:         opts.Authors,
		CompilerVersion: device.CompilerVersion(dev),
		Kernel:          escape(res.Program.Source),
		GigaOpInfo:      opInfo,
		Timestamp:       a.cfg.Now().In(a.loc).Format(TimestampLayout),
		Remarks:         opts.Remarks,
	}
	query := "INSERT INTO " + quoteIdent(table) + " (" + columns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	if _, err := a.db.ExecContext(ctx, query, row.values()...); err != nil {
		return Row{}, fmt.Errorf("insert into %s: %w", table, err)
	}
	log.Info("recorded", "table", table, "runtime_sec", res.Runtime)

	if opts.LogPerformance {
		a.logPerformance(log, n, res.Runtime, dev.Name(), longDim)
	}
	return row, nil
}

// logPerformance never fails the recording: a device missing from the
// roofline tables is only reported.
func (a *Archive) logPerformance(log *slog.Logger, e *einsum.FusedEinsum, runtime float64, deviceName string, longDim int) {
	perf, err := measure.Roofline(e, runtime, deviceName, longDim, a.cfg.Tables)
	if err != nil {
		log.Warn("cannot evaluate roofline", "device", deviceName, "err", err)
		return
	}
	log.Info("Recorded --\n" + measure.FormatComparison(perf))
}

func (a *Archive) ensureTable(ctx context.Context, log *slog.Logger, table string) error {
	var name string
	err := a.db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("look up table %s: %w", table, err)
	}

	log.Info("table not in archive, creating one", "table", table)
	if _, err := a.db.ExecContext(ctx, "CREATE TABLE "+quoteIdent(table)+createTable); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

// History returns every row recorded for deviceName, oldest first. A
// device without a table has no history.
func (a *Archive) History(ctx context.Context, deviceName string) ([]Row, error) {
	table := TableName(deviceName)

	var name string
	err := a.db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("look up table %s: %w", table, err)
	}

	rows, err := a.db.QueryContext(ctx, "SELECT "+columns+" FROM "+quoteIdent(table)+" ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(r.fields()...); err != nil {
			return nil, fmt.Errorf("read %s: %w", table, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	return out, nil
}

// Query would return the archived recordings of the canonical form of e
// on the device of devCtx. Lookup is not implemented yet: it always fails
// with errs.ErrUnsupported.
func (a *Archive) Query(_ context.Context, _ *einsum.FusedEinsum, _ device.Context) ([]QueryInfo, error) {
	return nil, errs.New(errs.Unsupported, "archive.Query", "querying the archive is not implemented")
}

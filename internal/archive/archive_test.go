package archive

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/born-ml/feinsum/internal/device"
	"github.com/born-ml/feinsum/internal/einsum"
	"github.com/born-ml/feinsum/internal/errs"
	"github.com/born-ml/feinsum/internal/kernel"
	"github.com/born-ml/feinsum/internal/transform"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pipeline = `steps:
  - op: split_iname
    iname: a_0
    width: 3
    inner_tag: l.0
`

const deviceName = "NVIDIA TITAN V"

func gradEinsum(t *testing.T, names []string, param string) *einsum.FusedEinsum {
	t.Helper()
	e, err := einsum.Parse("xer,rij,ej->xei", []einsum.Operand{
		{Shape: einsum.Shape{einsum.Lit(3), einsum.Sym(param), einsum.Lit(3)}, DType: einsum.Float64},
		{Shape: einsum.Ints(3, 35, 35), DType: einsum.Float64},
		{Shape: einsum.Shape{einsum.Sym(param), einsum.Lit(35)}, DType: einsum.Float64},
	}, names)
	require.NoError(t, err)
	return e
}

type fixture struct {
	archive *Archive
	engine  *kernel.MockEngine
	metrics *Metrics
	logs    *bytes.Buffer
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		engine:  kernel.NewMockEngine(),
		metrics: NewMetrics(prometheus.NewRegistry()),
		logs:    &bytes.Buffer{},
		now:     time.Date(2024, 3, 5, 18, 4, 5, 0, time.UTC),
	}
	a, err := Open(Config{
		Path:    filepath.Join(t.TempDir(), "archive.db"),
		Engine:  f.engine,
		Metrics: f.metrics,
		Now: func() time.Time {
			now := f.now
			f.now = f.now.Add(time.Second)
			return now
		},
		Logger: slog.New(slog.NewTextHandler(f.logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
	})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	f.archive = a
	return f
}

func (f *fixture) record(t *testing.T, e *einsum.FusedEinsum, dev device.Context, opts RecordOptions) (Row, error) {
	t.Helper()
	if opts.Source == (transform.Source{}) {
		opts.Source = transform.Source{Text: pipeline}
	}
	if opts.Authors == "" {
		opts.Authors = "kk"
	}
	return f.archive.Record(context.Background(), e, dev, opts)
}

func TestTableName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"NVIDIA TITAN V", "NVIDIA_TITAN_V"},
		{"Tesla V100-SXM2-16GB", "Tesla_V100_SXM2_16GB"},
		{"Intel(R) UHD Graphics 630 @ 1.2GHz", "Intel_R__UHD_Graphics_630_AT_1DOT2GHz"},
		{"pthread-Intel(R) Xeon(R) CPU", "pthread_Intel_R__Xeon_R__CPU"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, TableName(tt.in))
		})
	}
}

func TestEscape_RoundTrip(t *testing.T) {
	tests := []struct {
		name, in, stored string
	}{
		{"plain", "abc", "abc"},
		{"newline", "a\nb", `a\nb`},
		{"literal backslash-n", `fmt.Sprint("\n")`, `fmt.Sprint("\\n")`},
		{"both", "x := `\\`\ny", "x := `\\\\`\\ny"},
		{"trailing backslash", `a\`, `a\\`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.stored, escape(tt.in))
			assert.Equal(t, tt.in, unescape(escape(tt.in)))
		})
	}
}

func TestRecord_SourceWithEscapes(t *testing.T) {
	f := newFixture(t)
	src := pipeline + `# kernels are split on "\n"` + "\n"

	row, err := f.record(t, gradEinsum(t, []string{"J", "R", "u"}, "N"), device.NewMockContext(deviceName),
		RecordOptions{Source: transform.Source{Text: src}})
	require.NoError(t, err)

	info, err := row.Info()
	require.NoError(t, err)
	assert.Equal(t, src, info.Transform)
}

func TestRecord_AppendsRows(t *testing.T) {
	f := newFixture(t)
	dev := device.NewMockContext(deviceName)
	e := gradEinsum(t, []string{"J", "R", "u"}, "Ncells")

	first, err := f.record(t, e, dev, RecordOptions{Remarks: "first"})
	require.NoError(t, err)
	second, err := f.record(t, e, dev, RecordOptions{Remarks: "second"})
	require.NoError(t, err)

	rows, err := f.archive.History(context.Background(), deviceName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, first, rows[0])
	assert.Equal(t, second, rows[1])

	r := rows[0]
	assert.Equal(t, "abd,dce,be->abc", r.Subscripts)
	assert.Equal(t, "[a: 3, c: 35, d: 3, e: 35]", r.IndexToLength)
	assert.Equal(t, "[[[arg_0], [arg_1], [arg_2]]]", r.UseMatrix)
	assert.Equal(t, "[arg_0: float64, arg_1: float64, arg_2: float64]", r.ValueToDType)
	assert.Equal(t, `steps:\n  - op: split_iname\n    iname: a_0\n    width: 3\n    inner_tag: l.0\n`, r.Transform)
	assert.InDelta(t, 0.001, r.RuntimeInSec, 1e-12)
	assert.Equal(t, "kk", r.Authors)
	assert.Equal(t, "Mock-1.0", r.CompilerVersion)
	assert.NotContains(t, r.Kernel, "\n")
	assert.Equal(t, "float64: 1.6485", r.GigaOpInfo)
	assert.Equal(t, "2024_03_05_120405", r.Timestamp)
	assert.Equal(t, "2024_03_05_120406", rows[1].Timestamp)

	for _, field := range []func(Row) string{
		func(r Row) string { return r.Subscripts },
		func(r Row) string { return r.IndexToLength },
		func(r Row) string { return r.UseMatrix },
		func(r Row) string { return r.ValueToDType },
		func(r Row) string { return r.Transform },
	} {
		assert.Equal(t, field(rows[0]), field(rows[1]))
	}
	assert.Contains(t, f.logs.String(), "table not in archive")
	assert.Equal(t, 1, bytes.Count(f.logs.Bytes(), []byte("creating one")))
}

func TestRecord_IsomorphicEinsumsCollide(t *testing.T) {
	f := newFixture(t)
	dev := device.NewMockContext(deviceName)

	_, err := f.record(t, gradEinsum(t, []string{"J", "R", "u"}, "Ncells"), dev, RecordOptions{})
	require.NoError(t, err)
	_, err = f.record(t, gradEinsum(t, []string{"metric", "deriv", "field"}, "K"), dev, RecordOptions{})
	require.NoError(t, err)

	rows, err := f.archive.History(context.Background(), deviceName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, rows[0].Subscripts, rows[1].Subscripts)
	assert.Equal(t, rows[0].ValueToDType, rows[1].ValueToDType)
	assert.Equal(t, rows[0].Kernel, rows[1].Kernel)
}

func TestRecord_SourceFromFile(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(t.TempDir(), "t.yaml")
	require.NoError(t, os.WriteFile(path, []byte(pipeline), 0o600))

	row, err := f.record(t, gradEinsum(t, []string{"J", "R", "u"}, "N"), device.NewMockContext(deviceName),
		RecordOptions{Source: transform.Source{Path: path}})
	require.NoError(t, err)

	info, err := row.Info()
	require.NoError(t, err)
	assert.Equal(t, pipeline, info.Transform)
	assert.Equal(t, map[einsum.DataType]float64{einsum.Float64: 1.6485}, info.GigaOpInfo)
	assert.Contains(t, info.Kernel, "\n")
}

func TestRecord_FailsBeforeDeviceWork(t *testing.T) {
	e := gradEinsum(t, []string{"J", "R", "u"}, "N")

	multi := device.NewMockContext(deviceName)
	multi.Devs = append(multi.Devs, device.Info{DeviceName: "Second"})

	tests := []struct {
		name string
		dev  *device.MockContext
		src  transform.Source
		kind error
	}{
		{name: "both sources", dev: device.NewMockContext(deviceName),
			src: transform.Source{Text: pipeline, Path: "t.yaml"}, kind: errs.ErrConfiguration},
		{name: "no source", dev: device.NewMockContext(deviceName),
			src: transform.Source{}, kind: errs.ErrConfiguration},
		{name: "blank source", dev: device.NewMockContext(deviceName),
			src: transform.Source{Text: "   "}, kind: errs.ErrConfiguration},
		{name: "bad transform", dev: device.NewMockContext(deviceName),
			src: transform.Source{Text: "package t\n\nfunc Other() {}\n"}, kind: errs.ErrConfiguration},
		{name: "multi device", dev: multi, src: transform.Source{Text: pipeline}, kind: errs.ErrUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.archive.Record(context.Background(), e, tt.dev, RecordOptions{Source: tt.src})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.False(t, tt.dev.WorkDone())

			rows, err := f.archive.History(context.Background(), deviceName)
			require.NoError(t, err)
			assert.Empty(t, rows)
		})
	}
}

func TestRecord_EngineFailure(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("cannot split")
	f.engine.FailOn[kernel.OpSplitIname] = boom

	_, err := f.record(t, gradEinsum(t, []string{"J", "R", "u"}, "N"), device.NewMockContext(deviceName), RecordOptions{})
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, errs.ErrEngine)

	rows, err := f.archive.History(context.Background(), deviceName)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRecord_Metrics(t *testing.T) {
	f := newFixture(t)
	e := gradEinsum(t, []string{"J", "R", "u"}, "N")

	_, err := f.record(t, e, device.NewMockContext(deviceName), RecordOptions{})
	require.NoError(t, err)
	_, err = f.record(t, e, device.NewMockContext(deviceName), RecordOptions{})
	require.NoError(t, err)
	_, err = f.record(t, e, device.NewMockContext(deviceName), RecordOptions{Source: transform.Source{Text: "x", Path: "y"}})
	require.Error(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.recordings.WithLabelValues(deviceName)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.failures.WithLabelValues("configuration")))
	assert.Equal(t, 1, testutil.CollectAndCount(f.metrics.runtime))
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() { m.observe(deviceName, 1, nil) })
}

func TestRecord_LogPerformance(t *testing.T) {
	t.Run("known device", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.record(t, gradEinsum(t, []string{"J", "R", "u"}, "N"), device.NewMockContext(deviceName),
			RecordOptions{LogPerformance: true})
		require.NoError(t, err)
		assert.Contains(t, f.logs.String(), "Roofline GOps/s")
		assert.Contains(t, f.logs.String(), "run=")
	})

	t.Run("unknown device does not abort", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.record(t, gradEinsum(t, []string{"J", "R", "u"}, "N"), device.NewMockContext("Mystery GPU"),
			RecordOptions{LogPerformance: true})
		require.NoError(t, err)
		assert.Contains(t, f.logs.String(), "cannot evaluate roofline")

		rows, err := f.archive.History(context.Background(), "Mystery GPU")
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})
}

func TestQuery_Unsupported(t *testing.T) {
	f := newFixture(t)
	infos, err := f.archive.Query(context.Background(), gradEinsum(t, []string{"J", "R", "u"}, "N"),
		device.NewMockContext(deviceName))
	assert.Nil(t, infos)
	assert.ErrorIs(t, err, errs.ErrUnsupported)
}

func TestOpen_NoPath(t *testing.T) {
	_, err := Open(Config{})
	assert.ErrorIs(t, err, errs.ErrConfiguration)
}

func TestRow_InfoMalformed(t *testing.T) {
	_, err := Row{GigaOpInfo: "float64 1.0"}.Info()
	assert.Error(t, err)
	_, err = Row{GigaOpInfo: "bfloat8: 1.0"}.Info()
	assert.Error(t, err)
	_, err = Row{GigaOpInfo: "float64: lots"}.Info()
	assert.Error(t, err)
}

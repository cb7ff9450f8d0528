package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/born-ml/feinsum/internal/archive"
	"github.com/born-ml/feinsum/internal/device"
	"github.com/born-ml/feinsum/internal/einsum"
	"github.com/born-ml/feinsum/internal/errs"
	"github.com/born-ml/feinsum/internal/kernel"
	"github.com/born-ml/feinsum/internal/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var gradFlags = []string{
	"-subscripts=xer,rij,ej->xei",
	"-shapes=3,Ncells,3;3,35,35;Ncells,35",
	"-names=J,R,u",
	"-dtype=float64",
}

func TestEinsumFlags_Build(t *testing.T) {
	tests := []struct {
		name    string
		flags   einsumFlags
		want    []einsum.Shape
		wantErr string
	}{
		{
			name:  "symbolic and literal dims",
			flags: einsumFlags{subscripts: "ij,j->i", shapes: "N,8;8", dtype: "float32"},
			want:  []einsum.Shape{{einsum.Sym("N"), einsum.Lit(8)}, einsum.Ints(8)},
		},
		{
			name:  "dtype per operand",
			flags: einsumFlags{subscripts: "ij,j->i", shapes: "4, 8; 8", dtype: "float32,float64"},
			want:  []einsum.Shape{einsum.Ints(4, 8), einsum.Ints(8)},
		},
		{name: "no subscripts", flags: einsumFlags{shapes: "4"}, wantErr: "-subscripts"},
		{name: "no shapes", flags: einsumFlags{subscripts: "i->i"}, wantErr: "-shapes"},
		{name: "bad dim", flags: einsumFlags{subscripts: "i->i", shapes: "4x"}, wantErr: "invalid dimension"},
		{name: "name count", flags: einsumFlags{subscripts: "i->i", shapes: "4", names: "a,b"}, wantErr: "2 names"},
		{name: "dtype count", flags: einsumFlags{subscripts: "i,i->i", shapes: "4;4", dtype: "float32,float32,float32"}, wantErr: "3 dtypes"},
		{name: "bad dtype", flags: einsumFlags{subscripts: "i->i", shapes: "4", dtype: "float7"}, wantErr: "float7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := tt.flags.build()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.ArgShapes())
		})
	}
}

func TestRunNormalize(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runNormalize(gradFlags, &out))

	assert.Contains(t, out.String(), "subscripts:      abd,dce,be->abc")
	assert.Contains(t, out.String(), "[arg_0: float64, arg_1: float64, arg_2: float64]")
	assert.Contains(t, out.String(), "float64: ")
}

func TestRunNormalize_BadFlag(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, runNormalize([]string{"-nope"}, &out))
}

func TestRunRecord_TransformSource(t *testing.T) {
	tests := []struct {
		name  string
		flags []string
	}{
		{"both", []string{"-transform=grad.yaml", "-transform-text=steps: []"}},
		{"neither", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "archive.db")
			args := append([]string{"-db=" + path}, tt.flags...)
			err := runRecord(append(args, gradFlags...), &bytes.Buffer{})
			assert.ErrorIs(t, err, errs.ErrConfiguration)
			assert.NoFileExists(t, path)
		})
	}
}

func TestRunQuery_Unsupported(t *testing.T) {
	db := "-db=" + filepath.Join(t.TempDir(), "archive.db")
	err := runQuery(append([]string{db}, gradFlags...), &bytes.Buffer{})
	assert.ErrorIs(t, err, errs.ErrUnsupported)
}

func TestRunHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")

	var out bytes.Buffer
	require.NoError(t, runHistory([]string{"-db=" + path, "-device=Mock GPU"}, &out))
	assert.Equal(t, "No recordings for \"Mock GPU\"\n", out.String())

	a, err := archive.Open(archive.Config{Path: path, Engine: kernel.NewMockEngine()})
	require.NoError(t, err)
	e, err := einsum.Parse("ij,j->i", []einsum.Operand{
		{Shape: einsum.Ints(4, 8), DType: einsum.Float32},
		{Shape: einsum.Ints(8), DType: einsum.Float32},
	}, []string{"A", "x"})
	require.NoError(t, err)
	_, err = a.Record(context.Background(), e, device.NewMockContext("Mock GPU"), archive.RecordOptions{
		Source:  transform.Source{Text: "steps:\n  - op: realize_reduction\n"},
		Authors: "kk",
		Remarks: "baseline",
	})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	out.Reset()
	require.NoError(t, runHistory([]string{"-db=" + path, "-device=Mock GPU", "-v"}, &out))
	lines := strings.Split(out.String(), "\n")
	assert.True(t, strings.HasPrefix(lines[0], "Timestamp"))
	assert.Contains(t, lines[1], "ab,b->a")
	assert.Contains(t, lines[1], "baseline")
	assert.Contains(t, out.String(), "-- transform\nsteps:\n  - op: realize_reduction\n")
}

func TestRunHistory_NoDevice(t *testing.T) {
	assert.Error(t, runHistory(nil, &bytes.Buffer{}))
}

func TestPrintDevices(t *testing.T) {
	ctx := device.NewMockContext("NVIDIA TITAN V")
	var out bytes.Buffer
	require.NoError(t, printDevices(&out, ctx.Devices(), map[string]float64{"NVIDIA TITAN V": 652.8}))

	assert.Contains(t, out.String(), "NVIDIA_TITAN_V")
	assert.Contains(t, out.String(), "Mock-1.0")
	assert.Contains(t, out.String(), "yes")
}

func TestLoadConfig_Default(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "transform_archive.db", cfg.Database)
}

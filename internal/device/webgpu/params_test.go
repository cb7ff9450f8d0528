package webgpu

import (
	"encoding/binary"
	"testing"

	"github.com/born-ml/feinsum/internal/einsum"
	"github.com/born-ml/feinsum/internal/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradProgram() kernel.Program {
	return kernel.Program{
		Name:          "grad",
		EntryPoint:    "main",
		WorkgroupSize: [3]uint32{256, 1, 1},
		SizeParams:    []string{"N_b"},
		Extent:        einsum.Shape{einsum.Lit(3), einsum.Sym("N_b"), einsum.Lit(35)},
		Args: []kernel.Arg{
			{Name: "arg_0", DType: einsum.Float32, Shape: einsum.Shape{einsum.Lit(3), einsum.Sym("N_b"), einsum.Lit(3)}},
			{Name: "_fe_out", DType: einsum.Float32, Shape: einsum.Shape{}, Output: true},
		},
	}
}

func TestPackParams(t *testing.T) {
	params, err := PackParams(gradProgram(), map[string]int{"N_b": 1000})
	require.NoError(t, err)

	require.Len(t, params, 16)
	assert.Equal(t, uint32(3*1000*35), binary.LittleEndian.Uint32(params[0:4]))
	assert.Equal(t, uint32(1000), binary.LittleEndian.Uint32(params[4:8]))
	assert.Equal(t, make([]byte, 8), params[8:])
}

func TestPackParams_Errors(t *testing.T) {
	_, err := PackParams(gradProgram(), map[string]int{})
	assert.Error(t, err)

	_, err = PackParams(gradProgram(), map[string]int{"N_b": -1})
	assert.Error(t, err)
}

func TestArgBytes(t *testing.T) {
	p := gradProgram()

	n, err := ArgBytes(p.Args[0], map[string]int{"N_b": 10})
	require.NoError(t, err)
	assert.Equal(t, uint64(3*10*3*4), n)

	n, err = ArgBytes(p.Args[1], nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), n, "scalars still get a bindable buffer")

	_, err = ArgBytes(p.Args[0], nil)
	assert.Error(t, err)
}

func TestWorkgroups(t *testing.T) {
	tests := []struct {
		n    int
		want [3]uint32
	}{
		{n: 1, want: [3]uint32{1, 1, 1}},
		{n: 3, want: [3]uint32{2, 1, 1}},
		{n: 1000, want: [3]uint32{411, 1, 1}},
		{n: 50000, want: [3]uint32{20508, 1, 1}},
		{n: 200000, want: [3]uint32{65535, 2, 1}},
		{n: 4_000_000, want: [3]uint32{65535, 26, 1}},
	}
	for _, tt := range tests {
		got, err := Workgroups(gradProgram(), map[string]int{"N_b": tt.n})
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "N_b=%d", tt.n)
		assert.GreaterOrEqual(t, uint64(got[0])*uint64(got[1])*256, uint64(3*tt.n*35), "N_b=%d", tt.n)
	}
}

func TestWorkgroups_Empty(t *testing.T) {
	got, err := Workgroups(gradProgram(), map[string]int{"N_b": 0})
	require.NoError(t, err)
	assert.Equal(t, [3]uint32{0, 1, 1}, got)
}

func TestWorkgroups_TooMany(t *testing.T) {
	p := gradProgram()
	p.WorkgroupSize = [3]uint32{1, 1, 1}
	p.Extent = einsum.Shape{einsum.Sym("N_b"), einsum.Sym("N_b")}

	_, err := Workgroups(p, map[string]int{"N_b": 70000})
	assert.Error(t, err)
}

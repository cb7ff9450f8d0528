package einsum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataType_ParseRoundtrip(t *testing.T) {
	for dt := Float16; dt <= Complex128; dt++ {
		got, err := ParseDataType(dt.String())
		require.NoError(t, err)
		assert.Equal(t, dt, got)
	}
	_, err := ParseDataType("bfloat16")
	assert.Error(t, err)
}

func TestPromote(t *testing.T) {
	tests := []struct {
		a, b, want DataType
	}{
		{Float32, Float32, Float32},
		{Float32, Float64, Float64},
		{Int32, Float32, Float32},
		{Int64, Float32, Float64},
		{Float64, Complex64, Complex128},
		{Float32, Complex64, Complex64},
		{Int32, Int64, Int64},
	}

	for _, tt := range tests {
		t.Run(tt.a.String()+"_"+tt.b.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Promote(tt.a, tt.b))
			assert.Equal(t, tt.want, Promote(tt.b, tt.a))
		})
	}
}

func TestDim(t *testing.T) {
	assert.False(t, Lit(3).IsParam())
	assert.Equal(t, 3, Lit(3).Int())
	p, ok := Sym("N").SizeParam()
	require.True(t, ok)
	assert.Equal(t, SizeParam{Name: "N"}, p)
	_, ok = Lit(3).SizeParam()
	assert.False(t, ok)
	assert.Equal(t, "(3, N)", Shape{Lit(3), Sym("N")}.String())
	assert.Error(t, Shape{Lit(-1)}.Validate())
}

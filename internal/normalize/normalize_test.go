package normalize

import (
	"fmt"
	"testing"

	"github.com/born-ml/feinsum/internal/einsum"
	"github.com/born-ml/feinsum/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, subscripts string, shapes []einsum.Shape, names []string, dt einsum.DataType) *einsum.FusedEinsum {
	t.Helper()
	ops := make([]einsum.Operand, len(shapes))
	for i, s := range shapes {
		ops[i] = einsum.Operand{Shape: s, DType: dt}
	}
	e, err := einsum.Parse(subscripts, ops, names)
	require.NoError(t, err)
	return e
}

func gradEinsum(t *testing.T) *einsum.FusedEinsum {
	return parse(t, "xer,rij,ej->xei", []einsum.Shape{
		{einsum.Lit(3), einsum.Sym("Ncells"), einsum.Lit(3)},
		einsum.Ints(3, 35, 35),
		{einsum.Sym("Ncells"), einsum.Lit(35)},
	}, []string{"J", "R", "u"}, einsum.Float64)
}

func countSymbolic(e *einsum.FusedEinsum) (symbolic, literal int) {
	for _, shape := range e.ArgShapes() {
		for _, d := range shape {
			if d.IsParam() {
				symbolic++
			} else {
				literal++
			}
		}
	}
	return symbolic, literal
}

func TestEinsum_Grad(t *testing.T) {
	e := gradEinsum(t)
	n, err := Einsum(e)
	require.NoError(t, err)

	assert.Equal(t, "abd,dce,be->abc", n.Subscripts())
	assert.Equal(t, []einsum.Shape{
		{einsum.Lit(3), einsum.Sym("N_b"), einsum.Lit(3)},
		einsum.Ints(3, 35, 35),
		{einsum.Sym("N_b"), einsum.Lit(35)},
	}, n.ArgShapes())
	assert.Equal(t, [][][]string{{{"arg_0"}, {"arg_1"}, {"arg_2"}}}, n.UseMatrix())
	assert.Equal(t, "[arg_0: float64, arg_1: float64, arg_2: float64]", n.ValueDTypesString())

	sym0, lit0 := countSymbolic(e)
	sym1, lit1 := countSymbolic(n)
	assert.Equal(t, sym0, sym1)
	assert.Equal(t, lit0, lit1)

	// the input is left untouched
	assert.Equal(t, "xer,rij,ej->xei", e.Subscripts())
}

func TestEinsum_Idempotent(t *testing.T) {
	cases := map[string]*einsum.FusedEinsum{
		"grad": gradEinsum(t),
		"matmul": parse(t, "ij,jk->ik", []einsum.Shape{einsum.Ints(128, 128), einsum.Ints(128, 64)},
			[]string{"A", "B"}, einsum.Float32),
		"tie": parse(t, "ab->ab", []einsum.Shape{einsum.Ints(4, 4)}, []string{"x"}, einsum.Float32),
		"shared param": parse(t, "ij,jk->ik", []einsum.Shape{
			{einsum.Sym("N"), einsum.Sym("N")}, {einsum.Sym("N"), einsum.Lit(3)},
		}, []string{"A", "B"}, einsum.Float32),
	}

	for name, e := range cases {
		t.Run(name, func(t *testing.T) {
			once, err := Einsum(e)
			require.NoError(t, err)
			twice, err := Einsum(once)
			require.NoError(t, err)
			assert.True(t, once.Equal(twice), "once=%v twice=%v", once, twice)
		})
	}
}

func TestEinsum_IsomorphismInvariance(t *testing.T) {
	a := gradEinsum(t)
	b := parse(t, "pqs,stu,qu->pqt", []einsum.Shape{
		{einsum.Lit(3), einsum.Sym("K"), einsum.Lit(3)},
		einsum.Ints(3, 35, 35),
		{einsum.Sym("K"), einsum.Lit(35)},
	}, []string{"metric", "deriv", "field"}, einsum.Float64)

	na, err := Einsum(a)
	require.NoError(t, err)
	nb, err := Einsum(b)
	require.NoError(t, err)

	assert.True(t, na.Equal(nb))
	assert.Equal(t, na.String(), nb.String())
	assert.Equal(t, na.Digest(), nb.Digest())
}

func TestEinsum_IndexBudget(t *testing.T) {
	const n = MaxIndices + 1
	shape := make(einsum.Shape, n)
	access := make([]einsum.Axis, n)
	names := make(map[einsum.Axis]string, n)
	for i := 0; i < n; i++ {
		shape[i] = einsum.Lit(2)
		access[i] = einsum.FreeAxis(i)
		names[einsum.FreeAxis(i)] = fmt.Sprintf("i%d", i)
	}
	e, err := einsum.New(einsum.Spec{
		ArgShapes:         []einsum.Shape{shape},
		ValueToDType:      map[string]einsum.DataType{"x": einsum.Float32},
		AccessDescriptors: [][]einsum.Axis{access},
		UseMatrix:         [][][]string{{{"x"}}},
		IndexNames:        names,
	})
	require.NoError(t, err)

	_, err = Einsum(e)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrCapacity)
}

func TestEinsum_MultiValueCell(t *testing.T) {
	e, err := einsum.ParseFused("ij,j->i", []einsum.Shape{einsum.Ints(4, 5), einsum.Ints(5)},
		[][][]string{{{"A"}, {"x", "y"}}},
		map[string]einsum.DataType{"A": einsum.Float32, "x": einsum.Float32, "y": einsum.Float32})
	require.NoError(t, err)

	_, err = Einsum(e)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrUnsupported)
}

func TestEinsum_DominantLongAxis(t *testing.T) {
	tests := []struct {
		name  string
		shape einsum.Shape
		want  einsum.Shape
	}{
		{
			name:  "tie on max does not trigger",
			shape: einsum.Ints(64, 64, 32),
			want:  einsum.Ints(64, 64, 32),
		},
		{
			name:  "unique max triggers",
			shape: einsum.Ints(128, 64, 32),
			want:  einsum.Shape{einsum.Sym("N_a"), einsum.Lit(64), einsum.Lit(32)},
		},
		{
			name:  "max not first",
			shape: einsum.Ints(64, 128, 32),
			want:  einsum.Shape{einsum.Lit(64), einsum.Sym("N_b"), einsum.Lit(32)},
		},
		{
			name:  "symbolic free axis disables the rule",
			shape: einsum.Shape{einsum.Lit(128), einsum.Sym("M"), einsum.Lit(32)},
			want:  einsum.Shape{einsum.Lit(128), einsum.Sym("N_b"), einsum.Lit(32)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := parse(t, "abc->abc", []einsum.Shape{tt.shape}, []string{"x"}, einsum.Float32)
			n, err := Einsum(e)
			require.NoError(t, err)
			assert.Equal(t, []einsum.Shape{tt.want}, n.ArgShapes())
		})
	}
}

func TestEinsum_DominantLengthReplacedEverywhere(t *testing.T) {
	e := parse(t, "ij,jk->ik", []einsum.Shape{einsum.Ints(128, 128), einsum.Ints(128, 64)},
		[]string{"A", "B"}, einsum.Float32)

	n, err := Einsum(e)
	require.NoError(t, err)

	assert.Equal(t, []einsum.Shape{
		{einsum.Sym("N_a"), einsum.Sym("N_a")},
		{einsum.Sym("N_a"), einsum.Lit(64)},
	}, n.ArgShapes())
}

func TestEinsum_SingleFreeAxisUntouched(t *testing.T) {
	e := parse(t, "ij,j->i", []einsum.Shape{einsum.Ints(512, 8), einsum.Ints(8)},
		[]string{"A", "x"}, einsum.Float32)

	n, err := Einsum(e)
	require.NoError(t, err)
	assert.Equal(t, []einsum.Shape{einsum.Ints(512, 8), einsum.Ints(8)}, n.ArgShapes())
	assert.Equal(t, "ab,b->a", n.Subscripts())
}

func TestEinsum_ValueNamingFirstSeen(t *testing.T) {
	e, err := einsum.ParseFused("ij,j->i", []einsum.Shape{einsum.Ints(4, 5), einsum.Ints(5)},
		[][][]string{{{"z"}, {"y"}}, {{"z"}, {"a"}}},
		map[string]einsum.DataType{"z": einsum.Float32, "y": einsum.Float64, "a": einsum.Float32})
	require.NoError(t, err)

	n, err := Einsum(e)
	require.NoError(t, err)
	assert.Equal(t, [][][]string{{{"arg_0"}, {"arg_1"}}, {{"arg_0"}, {"arg_2"}}}, n.UseMatrix())
	assert.Equal(t, map[string]einsum.DataType{
		"arg_0": einsum.Float32,
		"arg_1": einsum.Float64,
		"arg_2": einsum.Float32,
	}, n.ValueToDType())
}

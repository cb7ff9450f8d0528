package measure

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/born-ml/feinsum/internal/einsum"
)

// rowDType is the dtype a use-matrix row computes in: the promotion of
// the dtypes of every value it reads.
func rowDType(e *einsum.FusedEinsum, row [][]string) einsum.DataType {
	var dt einsum.DataType
	for _, cell := range row {
		for _, v := range cell {
			vdt, _ := e.DType(v)
			if dt == 0 {
				dt = vdt
			} else {
				dt = einsum.Promote(dt, vdt)
			}
		}
	}
	return dt
}

func freeDims(e *einsum.FusedEinsum) []einsum.Dim {
	dims := make([]einsum.Dim, e.NDim())
	for i := range dims {
		dims[i], _ = e.DimLength(einsum.FreeAxis(i))
	}
	return dims
}

func allDims(e *einsum.FusedEinsum) []einsum.Dim {
	var dims []einsum.Dim
	for _, a := range e.Axes() {
		d, _ := e.DimLength(a)
		dims = append(dims, d)
	}
	return dims
}

// OpCounts returns, per dtype, the giga-operations one evaluation of e
// performs. Each row contributes (nargs-1) multiplications per point of
// the full iteration space and one addition per summation step beyond the
// first of every output point.
func OpCounts(e *einsum.FusedEinsum) map[einsum.DataType]Formula {
	all := product(allDims(e))
	free := product(freeDims(e))
	mults := e.NArgs() - 1

	terms := make(map[einsum.DataType][]string)
	for _, row := range e.UseMatrix() {
		dt := rowDType(e, row)
		var t string
		if mults > 0 {
			t = fmt.Sprintf("%d.0 * %s + (%s - %s)", mults, all, all, free)
		} else {
			t = fmt.Sprintf("(%s - %s)", all, free)
		}
		terms[dt] = append(terms[dt], t)
	}

	out := make(map[einsum.DataType]Formula, len(terms))
	for dt, ts := range terms {
		out[dt] = Formula("(" + strings.Join(ts, " + ") + ") / 1000000000.0")
	}
	return out
}

// Footprint returns the giga-bytes e moves at minimum: every distinct
// value read once and every output written once.
func Footprint(e *einsum.FusedEinsum) Formula {
	shapes := e.ArgShapes()
	seen := make(map[string]bool)
	var terms []string
	for _, row := range e.UseMatrix() {
		for c, cell := range row {
			for _, v := range cell {
				if seen[v] {
					continue
				}
				seen[v] = true
				dt, _ := e.DType(v)
				terms = append(terms, fmt.Sprintf("%d.0 * %s", dt.Size(), product(shapes[c])))
			}
		}
		terms = append(terms, fmt.Sprintf("%d.0 * %s", rowDType(e, row).Size(), product(freeDims(e))))
	}
	return Formula("(" + strings.Join(terms, " + ") + ") / 1000000000.0")
}

// byItemSize orders dtypes by item size, then by name.
func byItemSize(a, b einsum.DataType) int {
	return cmp.Or(cmp.Compare(a.Size(), b.Size()), cmp.Compare(a.String(), b.String()))
}

// EvalOpCounts evaluates OpCounts with every size parameter set to
// longDimLength.
func EvalOpCounts(e *einsum.FusedEinsum, longDimLength int) (map[einsum.DataType]float64, error) {
	env := SizeEnv(e, longDimLength)
	out := make(map[einsum.DataType]float64)
	for dt, f := range OpCounts(e) {
		v, err := f.Eval(env)
		if err != nil {
			return nil, err
		}
		out[dt] = v
	}
	return out, nil
}

// OpInfo renders the per-dtype giga-op counts as archived: one
// "<dtype>: <count>" line per dtype.
func OpInfo(e *einsum.FusedEinsum, longDimLength int) (string, error) {
	counts, err := EvalOpCounts(e, longDimLength)
	if err != nil {
		return "", err
	}
	lines := make([]string, 0, len(counts))
	for _, dt := range slices.SortedFunc(maps.Keys(counts), byItemSize) {
		lines = append(lines, dt.String()+": "+pyFloat(counts[dt]))
	}
	return strings.Join(lines, "\n"), nil
}

// Package normalize maps einsums to a canonical form so that instances
// differing only in index or value naming compare, hash and store
// identically.
package normalize

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/born-ml/feinsum/internal/einsum"
	"github.com/born-ml/feinsum/internal/errs"
)

// MaxIndices is the single-letter naming budget.
const MaxIndices = 26

// Einsum returns the canonical form of e. e itself is not modified.
//
// Indices are renamed a, b, c, ... with free indices first; values are
// renamed arg_0, arg_1, ... in first-seen row-major order over the use
// matrix; size parameters become N_<letter> of the first index using them. When every free length
// is a literal and there is a unique longest free axis, that length is
// replaced by a size parameter too.
func Einsum(e *einsum.FusedEinsum) (*einsum.FusedEinsum, error) {
	const op = "normalize"

	axes := e.Axes()
	if len(axes) > MaxIndices {
		return nil, errs.New(errs.Capacity, op, "%d indices exceed the budget of %d", len(axes), MaxIndices)
	}

	indexNames := make(map[einsum.Axis]string, len(axes))
	for i, axis := range axes {
		indexNames[axis] = string(rune('a' + i))
	}

	oldToNewValue := make(map[string]string)
	useMatrix := e.UseMatrix()
	for r, row := range useMatrix {
		for c, cell := range row {
			if len(cell) > 1 {
				return nil, errs.New(errs.Unsupported, op, "multi-value cells are not supported: cell (%d, %d) holds %v", r, c, cell)
			}
			old := cell[0]
			renamed, ok := oldToNewValue[old]
			if !ok {
				renamed = fmt.Sprintf("arg_%d", len(oldToNewValue))
				oldToNewValue[old] = renamed
			}
			useMatrix[r][c] = []string{renamed}
		}
	}

	valueToDType := make(map[string]einsum.DataType, len(oldToNewValue))
	for _, old := range e.Values() {
		if renamed, ok := oldToNewValue[old]; ok {
			valueToDType[renamed] = mustDType(e, old)
		}
	}

	lengths := e.IndexToDimLength()
	dimMap := make(map[einsum.Dim]einsum.Dim)
	for _, axis := range axes {
		dim := lengths[axis]
		if _, seen := dimMap[dim]; dim.IsParam() && !seen {
			dimMap[dim] = einsum.Sym("N_" + indexNames[axis])
		}
	}
	if axis, ok := dominantFreeAxis(e); ok {
		dimMap[lengths[axis]] = einsum.Sym("N_" + indexNames[axis])
	}

	argShapes := e.ArgShapes()
	for _, shape := range argShapes {
		for i, dim := range shape {
			if renamed, ok := dimMap[dim]; ok {
				shape[i] = renamed
			}
		}
	}

	return einsum.New(einsum.Spec{
		ArgShapes:         argShapes,
		ValueToDType:      valueToDType,
		AccessDescriptors: e.AccessDescriptors(),
		UseMatrix:         useMatrix,
		IndexNames:        indexNames,
	})
}

// dominantFreeAxis returns the free axis whose literal length is strictly
// longer than every other free axis. It only applies when no free axis is
// symbolic and there are at least two free axes; a tied maximum yields
// ok == false.
func dominantFreeAxis(e *einsum.FusedEinsum) (einsum.Axis, bool) {
	type freeLen struct {
		axis einsum.Axis
		n    int
	}
	var free []freeLen
	for i := 0; i < e.NDim(); i++ {
		axis := einsum.FreeAxis(i)
		dim, _ := e.DimLength(axis)
		if dim.IsParam() {
			return einsum.Axis{}, false
		}
		free = append(free, freeLen{axis: axis, n: dim.Int()})
	}
	if len(free) < 2 {
		return einsum.Axis{}, false
	}
	slices.SortStableFunc(free, func(a, b freeLen) int { return cmp.Compare(b.n, a.n) })
	if free[0].n == free[1].n {
		return einsum.Axis{}, false
	}
	return free[0].axis, true
}

func mustDType(e *einsum.FusedEinsum, value string) einsum.DataType {
	dt, ok := e.DType(value)
	if !ok {
		panic("normalize: value " + value + " has no dtype")
	}
	return dt
}

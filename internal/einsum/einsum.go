// Package einsum provides the canonical, immutable description of a fused
// tensor-contraction expression.
//
// A FusedEinsum records operand shapes, which logical index occupies which
// operand axis, and a use matrix mapping (row, operand slot) to the named
// values read there. Rows share one iteration space, which lets several
// contractions with identical loop structure be fused into one kernel.
package einsum

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/born-ml/feinsum/internal/errs"
)

// Spec is the raw input for New. New copies everything it keeps, so the
// caller may reuse the Spec afterwards.
type Spec struct {
	ArgShapes         []Shape
	ValueToDType      map[string]DataType
	AccessDescriptors [][]Axis
	UseMatrix         [][][]string
	IndexNames        map[Axis]string
}

// FusedEinsum is an immutable fused einsum. All accessors return copies.
type FusedEinsum struct {
	argShapes         []Shape
	valueToDType      map[string]DataType
	accessDescriptors [][]Axis
	useMatrix         [][][]string
	indexNames        map[Axis]string

	lengths map[Axis]Dim
	nfree   int
	nredn   int
}

// New validates spec and builds a FusedEinsum.
// Inconsistent input fails with errs.ErrValidation.
func New(spec Spec) (*FusedEinsum, error) {
	const op = "einsum.New"

	if len(spec.ArgShapes) == 0 {
		return nil, errs.New(errs.Validation, op, "einsum needs at least one operand")
	}
	if len(spec.ArgShapes) != len(spec.AccessDescriptors) {
		return nil, errs.New(errs.Validation, op, "%d operand shapes but %d access descriptors",
			len(spec.ArgShapes), len(spec.AccessDescriptors))
	}

	lengths := make(map[Axis]Dim)
	for i, shape := range spec.ArgShapes {
		access := spec.AccessDescriptors[i]
		if len(shape) != len(access) {
			return nil, errs.New(errs.Validation, op, "operand %d: shape %v has %d axes but %d access descriptors",
				i, shape, len(shape), len(access))
		}
		if err := shape.Validate(); err != nil {
			return nil, errs.New(errs.Validation, op, "operand %d: %v", i, err)
		}
		for j, axis := range access {
			dim := shape[j]
			if prev, ok := lengths[axis]; ok && prev != dim {
				return nil, errs.New(errs.Validation, op, "%v has length %v in one operand and %v in operand %d",
					axis, prev, dim, i)
			}
			lengths[axis] = dim
		}
	}

	nfree, nredn, err := countAxes(lengths)
	if err != nil {
		return nil, errs.New(errs.Validation, op, "%v", err)
	}

	if len(spec.IndexNames) != len(lengths) {
		return nil, errs.New(errs.Validation, op, "%d index names for %d indices", len(spec.IndexNames), len(lengths))
	}
	seenNames := make(map[string]Axis, len(spec.IndexNames))
	for axis, name := range spec.IndexNames {
		if _, ok := lengths[axis]; !ok {
			return nil, errs.New(errs.Validation, op, "index name %q given for unused %v", name, axis)
		}
		if name == "" {
			return nil, errs.New(errs.Validation, op, "empty index name for %v", axis)
		}
		if other, dup := seenNames[name]; dup {
			return nil, errs.New(errs.Validation, op, "index name %q used by both %v and %v", name, other, axis)
		}
		seenNames[name] = axis
	}

	for _, value := range slices.Sorted(maps.Keys(spec.ValueToDType)) {
		if dt := spec.ValueToDType[value]; !dt.Valid() {
			return nil, errs.New(errs.Validation, op, "value %q has unknown data type %d", value, int(dt))
		}
	}

	if len(spec.UseMatrix) == 0 {
		return nil, errs.New(errs.Validation, op, "use matrix has no rows")
	}
	useMatrix := make([][][]string, len(spec.UseMatrix))
	for r, row := range spec.UseMatrix {
		if len(row) != len(spec.ArgShapes) {
			return nil, errs.New(errs.Validation, op, "use matrix row %d has %d cells, want %d", r, len(row), len(spec.ArgShapes))
		}
		useMatrix[r] = make([][]string, len(row))
		for c, cell := range row {
			if len(cell) == 0 {
				return nil, errs.New(errs.Validation, op, "use matrix cell (%d, %d) is empty", r, c)
			}
			for _, value := range cell {
				if _, ok := spec.ValueToDType[value]; !ok {
					return nil, errs.New(errs.Validation, op, "value %q in use matrix has no dtype", value)
				}
			}
			set := slices.Clone(cell)
			slices.Sort(set)
			useMatrix[r][c] = slices.Compact(set)
		}
	}

	argShapes := make([]Shape, len(spec.ArgShapes))
	access := make([][]Axis, len(spec.AccessDescriptors))
	for i := range spec.ArgShapes {
		argShapes[i] = spec.ArgShapes[i].Clone()
		access[i] = slices.Clone(spec.AccessDescriptors[i])
	}

	return &FusedEinsum{
		argShapes:         argShapes,
		valueToDType:      maps.Clone(spec.ValueToDType),
		accessDescriptors: access,
		useMatrix:         useMatrix,
		indexNames:        maps.Clone(spec.IndexNames),
		lengths:           lengths,
		nfree:             nfree,
		nredn:             nredn,
	}, nil
}

// countAxes checks that free and summation ordinals are each 0..n-1.
func countAxes(lengths map[Axis]Dim) (nfree, nredn int, err error) {
	for axis := range lengths {
		if axis.Ordinal < 0 {
			return 0, 0, fmt.Errorf("negative ordinal in %v", axis)
		}
		if axis.IsFree() {
			nfree++
		} else {
			nredn++
		}
	}
	for i := 0; i < nfree; i++ {
		if _, ok := lengths[FreeAxis(i)]; !ok {
			return 0, 0, fmt.Errorf("free axes are not numbered 0..%d: missing %v", nfree-1, FreeAxis(i))
		}
	}
	for i := 0; i < nredn; i++ {
		if _, ok := lengths[SummationAxis(i)]; !ok {
			return 0, 0, fmt.Errorf("summation axes are not numbered 0..%d: missing %v", nredn-1, SummationAxis(i))
		}
	}
	return nfree, nredn, nil
}

// NDim returns the number of free axes.
func (e *FusedEinsum) NDim() int { return e.nfree }

// NSummation returns the number of summation axes.
func (e *FusedEinsum) NSummation() int { return e.nredn }

// NArgs returns the number of operand slots.
func (e *FusedEinsum) NArgs() int { return len(e.argShapes) }

// NRows returns the number of fused contractions.
func (e *FusedEinsum) NRows() int { return len(e.useMatrix) }

// Axes returns all indices, free ones first, each group by ordinal.
func (e *FusedEinsum) Axes() []Axis {
	axes := make([]Axis, 0, e.nfree+e.nredn)
	for i := 0; i < e.nfree; i++ {
		axes = append(axes, FreeAxis(i))
	}
	for i := 0; i < e.nredn; i++ {
		axes = append(axes, SummationAxis(i))
	}
	return axes
}

// ArgShapes returns the operand shapes.
func (e *FusedEinsum) ArgShapes() []Shape {
	out := make([]Shape, len(e.argShapes))
	for i, s := range e.argShapes {
		out[i] = s.Clone()
	}
	return out
}

// ValueToDType returns the value name to dtype mapping.
func (e *FusedEinsum) ValueToDType() map[string]DataType {
	return maps.Clone(e.valueToDType)
}

// DType returns the dtype of a named value.
func (e *FusedEinsum) DType(value string) (DataType, bool) {
	dt, ok := e.valueToDType[value]
	return dt, ok
}

// Values returns the value names in sorted order.
func (e *FusedEinsum) Values() []string {
	return slices.Sorted(maps.Keys(e.valueToDType))
}

// AccessDescriptors returns, per operand, the index at each operand axis.
func (e *FusedEinsum) AccessDescriptors() [][]Axis {
	out := make([][]Axis, len(e.accessDescriptors))
	for i, a := range e.accessDescriptors {
		out[i] = slices.Clone(a)
	}
	return out
}

// UseMatrix returns the use matrix. Each cell is sorted.
func (e *FusedEinsum) UseMatrix() [][][]string {
	out := make([][][]string, len(e.useMatrix))
	for r, row := range e.useMatrix {
		out[r] = make([][]string, len(row))
		for c, cell := range row {
			out[r][c] = slices.Clone(cell)
		}
	}
	return out
}

// IndexNames returns the display name of every index.
func (e *FusedEinsum) IndexNames() map[Axis]string {
	return maps.Clone(e.indexNames)
}

// IndexName returns the display name of one index.
func (e *FusedEinsum) IndexName(a Axis) string {
	return e.indexNames[a]
}

// IndexToDimLength maps every index to its length.
func (e *FusedEinsum) IndexToDimLength() map[Axis]Dim {
	return maps.Clone(e.lengths)
}

// DimLength returns the length of one index.
func (e *FusedEinsum) DimLength(a Axis) (Dim, bool) {
	d, ok := e.lengths[a]
	return d, ok
}

// SizeParams returns the distinct symbolic lengths in axis order.
func (e *FusedEinsum) SizeParams() []SizeParam {
	var out []SizeParam
	seen := make(map[string]bool)
	for _, axis := range e.Axes() {
		if p, ok := e.lengths[axis].SizeParam(); ok && !seen[p.Name] {
			seen[p.Name] = true
			out = append(out, p)
		}
	}
	return out
}

// Subscripts encodes the access descriptors in einsum notation,
// e.g. "ab,bc->ac".
func (e *FusedEinsum) Subscripts() string {
	var b strings.Builder
	for i, access := range e.accessDescriptors {
		if i > 0 {
			b.WriteByte(',')
		}
		for _, axis := range access {
			b.WriteString(e.indexNames[axis])
		}
	}
	b.WriteString("->")
	for i := 0; i < e.nfree; i++ {
		b.WriteString(e.indexNames[FreeAxis(i)])
	}
	return b.String()
}

// Equal reports structural equality.
func (e *FusedEinsum) Equal(other *FusedEinsum) bool {
	if e == nil || other == nil {
		return e == other
	}
	if len(e.argShapes) != len(other.argShapes) {
		return false
	}
	for i := range e.argShapes {
		if !e.argShapes[i].Equal(other.argShapes[i]) ||
			!slices.Equal(e.accessDescriptors[i], other.accessDescriptors[i]) {
			return false
		}
	}
	if !maps.Equal(e.valueToDType, other.valueToDType) || !maps.Equal(e.indexNames, other.indexNames) {
		return false
	}
	return slices.EqualFunc(e.useMatrix, other.useMatrix, func(a, b [][]string) bool {
		return slices.EqualFunc(a, b, func(x, y []string) bool { return slices.Equal(x, y) })
	})
}

// String renders the full description. Two structurally equal einsums
// render identically.
func (e *FusedEinsum) String() string {
	shapes := make([]string, len(e.argShapes))
	for i, s := range e.argShapes {
		shapes[i] = s.String()
	}
	return fmt.Sprintf("FusedEinsum(%s, shapes=[%s], index_to_length=%s, use_matrix=%s, value_to_dtype=%s)",
		e.Subscripts(), strings.Join(shapes, ", "),
		e.AllIndexLengthsString(), e.UseMatrixString(), e.ValueDTypesString())
}

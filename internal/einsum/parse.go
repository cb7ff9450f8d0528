package einsum

import (
	"fmt"
	"slices"
	"strings"

	"github.com/born-ml/feinsum/internal/errs"
)

// Operand describes one array argument for Parse.
type Operand struct {
	Shape Shape
	DType DataType
}

// Parse builds a single-contraction einsum from numpy-style subscripts,
// e.g. Parse("xer,rij,ej->xei", ops, []string{"J", "R", "u"}).
//
// Free indices are numbered in output order; summation indices in order of
// first appearance among the inputs. Without "->" the output is the sorted
// set of indices appearing exactly once.
func Parse(subscripts string, operands []Operand, names []string) (*FusedEinsum, error) {
	if len(names) != len(operands) {
		return nil, errs.New(errs.Validation, "einsum.Parse", "%d names for %d operands", len(names), len(operands))
	}
	shapes := make([]Shape, len(operands))
	row := make([][]string, len(operands))
	dtypes := make(map[string]DataType, len(operands))
	for i, op := range operands {
		shapes[i] = op.Shape
		row[i] = []string{names[i]}
		if prev, ok := dtypes[names[i]]; ok && prev != op.DType {
			return nil, errs.New(errs.Validation, "einsum.Parse", "value %q given dtypes %v and %v", names[i], prev, op.DType)
		}
		dtypes[names[i]] = op.DType
	}
	return ParseFused(subscripts, shapes, [][][]string{row}, dtypes)
}

// ParseFused builds a fused einsum from subscripts, operand shapes, an
// explicit use matrix and the dtype of every value.
func ParseFused(subscripts string, shapes []Shape, useMatrix [][][]string, dtypes map[string]DataType) (*FusedEinsum, error) {
	inputs, output, err := splitSubscripts(subscripts)
	if err != nil {
		return nil, errs.New(errs.Validation, "einsum.Parse", "%q: %v", subscripts, err)
	}
	if len(inputs) != len(shapes) {
		return nil, errs.New(errs.Validation, "einsum.Parse", "%q names %d operands, got %d shapes",
			subscripts, len(inputs), len(shapes))
	}

	letterToAxis := make(map[rune]Axis)
	for i, r := range output {
		letterToAxis[r] = FreeAxis(i)
	}
	nredn := 0
	for _, in := range inputs {
		for _, r := range in {
			if _, ok := letterToAxis[r]; !ok {
				letterToAxis[r] = SummationAxis(nredn)
				nredn++
			}
		}
	}

	access := make([][]Axis, len(inputs))
	for i, in := range inputs {
		access[i] = make([]Axis, len(in))
		for j, r := range in {
			access[i][j] = letterToAxis[r]
		}
	}
	indexNames := make(map[Axis]string, len(letterToAxis))
	for r, axis := range letterToAxis {
		indexNames[axis] = string(r)
	}

	return New(Spec{
		ArgShapes:         shapes,
		ValueToDType:      dtypes,
		AccessDescriptors: access,
		UseMatrix:         useMatrix,
		IndexNames:        indexNames,
	})
}

func splitSubscripts(subscripts string) (inputs [][]rune, output []rune, err error) {
	s := strings.ReplaceAll(subscripts, " ", "")
	lhs, rhs, explicit := strings.Cut(s, "->")
	if lhs == "" {
		return nil, nil, fmt.Errorf("no input subscripts")
	}

	counts := make(map[rune]int)
	for _, part := range strings.Split(lhs, ",") {
		in := []rune(part)
		for _, r := range in {
			if !isIndexLetter(r) {
				return nil, nil, fmt.Errorf("invalid index character %q", r)
			}
			counts[r]++
		}
		inputs = append(inputs, in)
	}

	if !explicit {
		for r, n := range counts {
			if n == 1 {
				output = append(output, r)
			}
		}
		slices.Sort(output)
		return inputs, output, nil
	}

	seen := make(map[rune]bool)
	for _, r := range rhs {
		if !isIndexLetter(r) {
			return nil, nil, fmt.Errorf("invalid index character %q", r)
		}
		if seen[r] {
			return nil, nil, fmt.Errorf("output index %q repeated", r)
		}
		if counts[r] == 0 {
			return nil, nil, fmt.Errorf("output index %q does not appear in any input", r)
		}
		seen[r] = true
		output = append(output, r)
	}
	return inputs, output, nil
}

func isIndexLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

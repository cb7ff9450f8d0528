package main

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/born-ml/feinsum/internal/einsum"
)

// einsumFlags are the flags describing one einsum on the command line.
type einsumFlags struct {
	subscripts string
	shapes     string
	names      string
	dtype      string
}

// build parses the flags into an einsum. Shapes are separated by ";" and
// dimensions by ","; a dimension is an integer or a size-parameter name.
// Names default to a, b, c, ... and dtype may be one name or one per
// operand.
func (f einsumFlags) build() (*einsum.FusedEinsum, error) {
	if f.subscripts == "" {
		return nil, fmt.Errorf("-subscripts is required")
	}
	if f.shapes == "" {
		return nil, fmt.Errorf("-shapes is required")
	}

	var shapes []einsum.Shape
	for _, part := range strings.Split(f.shapes, ";") {
		shape, err := parseShape(part)
		if err != nil {
			return nil, err
		}
		shapes = append(shapes, shape)
	}

	names := splitList(f.names)
	if len(names) == 0 {
		for i := range shapes {
			names = append(names, string(rune('a'+i)))
		}
	}
	if len(names) != len(shapes) {
		return nil, fmt.Errorf("%d names for %d shapes", len(names), len(shapes))
	}

	dtypes := splitList(f.dtype)
	switch len(dtypes) {
	case 0:
		dtypes = []string{"float32"}
		fallthrough
	case 1:
		for len(dtypes) < len(shapes) {
			dtypes = append(dtypes, dtypes[0])
		}
	}
	if len(dtypes) != len(shapes) {
		return nil, fmt.Errorf("%d dtypes for %d shapes", len(dtypes), len(shapes))
	}

	ops := make([]einsum.Operand, len(shapes))
	for i, shape := range shapes {
		dt, err := einsum.ParseDataType(dtypes[i])
		if err != nil {
			return nil, err
		}
		ops[i] = einsum.Operand{Shape: shape, DType: dt}
	}
	return einsum.Parse(f.subscripts, ops, names)
}

func parseShape(s string) (einsum.Shape, error) {
	var shape einsum.Shape
	for _, d := range splitList(s) {
		if n, err := strconv.Atoi(d); err == nil {
			shape = append(shape, einsum.Lit(n))
			continue
		}
		if !isIdent(d) {
			return nil, fmt.Errorf("invalid dimension %q in shape %q", d, s)
		}
		shape = append(shape, einsum.Sym(d))
	}
	return shape, nil
}

func isIdent(s string) bool {
	for i, r := range s {
		if r != '_' && !unicode.IsLetter(r) && (i == 0 || !unicode.IsDigit(r)) {
			return false
		}
	}
	return s != ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

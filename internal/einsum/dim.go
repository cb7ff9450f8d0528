package einsum

import (
	"fmt"
	"strconv"
	"strings"
)

// SizeParam is a named symbolic dimension length.
type SizeParam struct {
	Name string
}

func (p SizeParam) String() string { return p.Name }

// Dim is one dimension length: a literal integer or a SizeParam.
// The zero value is invalid.
type Dim struct {
	n     int
	param string
}

// Lit returns a literal dimension of length n.
func Lit(n int) Dim { return Dim{n: n} }

// Sym returns a symbolic dimension named name.
func Sym(name string) Dim { return Dim{param: name} }

// Param returns a symbolic dimension for p.
func Param(p SizeParam) Dim { return Dim{param: p.Name} }

// IsParam reports whether the dimension is symbolic.
func (d Dim) IsParam() bool { return d.param != "" }

// Int returns the literal length. It is 0 for symbolic dims.
func (d Dim) Int() int { return d.n }

// SizeParam returns the symbolic parameter. ok is false for literal dims.
func (d Dim) SizeParam() (p SizeParam, ok bool) {
	if d.param == "" {
		return SizeParam{}, false
	}
	return SizeParam{Name: d.param}, true
}

// Valid reports whether d is a positive literal or a named parameter.
func (d Dim) Valid() bool {
	return d.param != "" || d.n > 0
}

func (d Dim) String() string {
	if d.param != "" {
		return d.param
	}
	return strconv.Itoa(d.n)
}

// Shape is an ordered sequence of dimension lengths.
type Shape []Dim

// Ints builds a fully literal shape.
func Ints(dims ...int) Shape {
	s := make(Shape, len(dims))
	for i, n := range dims {
		s[i] = Lit(n)
	}
	return s
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// Validate checks that every dimension is a positive literal or a named
// parameter.
func (s Shape) Validate() error {
	for i, d := range s {
		if !d.Valid() {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, d.n)
		}
	}
	return nil
}

func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = d.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

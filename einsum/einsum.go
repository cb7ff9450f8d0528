// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package einsum

import (
	"github.com/born-ml/feinsum/internal/einsum"
	"github.com/born-ml/feinsum/internal/errs"
	"github.com/born-ml/feinsum/internal/normalize"
)

// FusedEinsum is an immutable fused einsum.
type FusedEinsum = einsum.FusedEinsum

// Spec is the raw input for New.
type Spec = einsum.Spec

// Operand describes one array argument for Parse.
type Operand = einsum.Operand

// Axis identifies one logical index.
type Axis = einsum.Axis

// Dim is a literal or symbolic axis length.
type Dim = einsum.Dim

// Shape is a list of axis lengths.
type Shape = einsum.Shape

// SizeParam is a named symbolic length.
type SizeParam = einsum.SizeParam

// DataType is the element type of an operand.
type DataType = einsum.DataType

// Element types.
const (
	Float16    = einsum.Float16
	Float32    = einsum.Float32
	Float64    = einsum.Float64
	Int32      = einsum.Int32
	Int64      = einsum.Int64
	Complex64  = einsum.Complex64
	Complex128 = einsum.Complex128
)

// MaxIndices is the number of indices Normalize can name.
const MaxIndices = normalize.MaxIndices

// Error categories.
var (
	ErrConfiguration = errs.ErrConfiguration
	ErrValidation    = errs.ErrValidation
	ErrCapacity      = errs.ErrCapacity
	ErrUnsupported   = errs.ErrUnsupported
	ErrLookup        = errs.ErrLookup
	ErrEngine        = errs.ErrEngine
)

// New validates spec and builds a FusedEinsum.
func New(spec Spec) (*FusedEinsum, error) { return einsum.New(spec) }

// Parse builds a single-contraction einsum from numpy-style subscripts.
func Parse(subscripts string, operands []Operand, names []string) (*FusedEinsum, error) {
	return einsum.Parse(subscripts, operands, names)
}

// ParseFused builds a fused einsum with an explicit use matrix.
func ParseFused(subscripts string, shapes []Shape, useMatrix [][][]string, dtypes map[string]DataType) (*FusedEinsum, error) {
	return einsum.ParseFused(subscripts, shapes, useMatrix, dtypes)
}

// Normalize returns the canonical form of e.
func Normalize(e *FusedEinsum) (*FusedEinsum, error) { return normalize.Einsum(e) }

// FreeAxis returns the i-th output index.
func FreeAxis(i int) Axis { return einsum.FreeAxis(i) }

// SummationAxis returns the i-th reduced index.
func SummationAxis(i int) Axis { return einsum.SummationAxis(i) }

// Lit returns a literal length.
func Lit(n int) Dim { return einsum.Lit(n) }

// Sym returns a symbolic length.
func Sym(name string) Dim { return einsum.Sym(name) }

// Ints builds a literal shape.
func Ints(dims ...int) Shape { return einsum.Ints(dims...) }

// ParseDataType converts a dtype name such as "float32".
func ParseDataType(s string) (DataType, error) { return einsum.ParseDataType(s) }

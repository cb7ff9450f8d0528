// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package einsum describes fused tensor contractions.
//
// # Overview
//
// A FusedEinsum is an immutable value recording operand shapes, which
// index sits on which operand axis, and a use matrix naming the values
// read by each fused contraction. Normalize maps an einsum to its
// canonical form so that contractions differing only in naming compare
// equal:
//
//	import "github.com/born-ml/feinsum/einsum"
//
//	e, err := einsum.Parse("xer,rij,ej->xei", []einsum.Operand{
//	    {Shape: einsum.Shape{einsum.Lit(3), einsum.Sym("Ncells"), einsum.Lit(3)}, DType: einsum.Float64},
//	    {Shape: einsum.Ints(3, 35, 35), DType: einsum.Float64},
//	    {Shape: einsum.Shape{einsum.Sym("Ncells"), einsum.Lit(35)}, DType: einsum.Float64},
//	}, []string{"J", "R", "u"})
//	if err != nil {
//	    return err
//	}
//	canonical, err := einsum.Normalize(e)
//	fmt.Println(canonical.Subscripts()) // abd,dce,be->abc
//
// # Errors
//
// Failures are categorized; test them with errors.Is against the Err*
// variables of this package.
package einsum

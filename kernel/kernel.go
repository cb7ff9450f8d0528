// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package kernel is the vocabulary of einsum transforms.
//
// A transform receives a Unit wrapping the lowered kernel, rewrites it
// through the Unit primitives and returns the result. Units are
// immutable; every primitive returns a new Unit:
//
//	func Transform(u *kernel.Unit, sel kernel.Selector, name string) (*kernel.Unit, error) {
//	    u, err := u.SplitIname("a_0", 32, kernel.Split{InnerTag: "l.0", OuterTag: "g.0"})
//	    if err != nil {
//	        return nil, err
//	    }
//	    return u.AddPrefetch(kernel.Prefetch{Var: "arg_1", Sweep: []string{"b_0"}, Space: kernel.Local})
//	}
//
// The same program may be given to the archive as Go source; it is then
// interpreted with this package and a small part of the standard library
// available.
package kernel

import (
	"github.com/born-ml/feinsum/internal/einsum"
	"github.com/born-ml/feinsum/internal/kernel"
	"github.com/born-ml/feinsum/internal/transform"
	"github.com/born-ml/feinsum/internal/wgsl"
)

// Unit is an immutable handle on a kernel being transformed.
type Unit = kernel.Unit

// Func is a transform.
type Func = kernel.Func

// Engine lowers einsums and implements the primitives.
type Engine = kernel.Engine

// Selector matches instructions, e.g. "id:insn_0".
type Selector = kernel.Selector

// AddressSpace is where a temporary lives.
type AddressSpace = kernel.AddressSpace

// Primitive options.
type (
	Split      = kernel.Split
	Prefetch   = kernel.Prefetch
	Precompute = kernel.Precompute
	Buffer     = kernel.Buffer
)

// Program is generated device code.
type Program = kernel.Program

// All matches every instruction.
const All = kernel.All

// Address spaces.
const (
	Global  = kernel.Global
	Local   = kernel.Local
	Private = kernel.Private
)

// Generated names.
const (
	DefaultKernelName = kernel.DefaultKernelName
	OutputPrefix      = kernel.OutputPrefix
	SubstitutionVar   = kernel.SubstitutionVar
)

// Lower builds the initial Unit for e. An empty name selects
// DefaultKernelName.
func Lower(engine Engine, e *einsum.FusedEinsum, name string) (*Unit, error) {
	return kernel.Lower(engine, e, name)
}

// WGSL returns the engine generating WebGPU compute shaders.
func WGSL() Engine { return wgsl.New() }

// Load compiles transform source: Go source declaring a Transform
// function, or a YAML pipeline of primitive steps.
func Load(text string) (Func, error) { return transform.Load(text) }

// Apply runs fn on u, recovering panics into errors.
func Apply(u *Unit, fn Func, sel Selector, name string) (*Unit, error) {
	return transform.Apply(u, fn, sel, name)
}

package kernel

import (
	"fmt"
	"slices"
	"strings"

	"github.com/born-ml/feinsum/internal/einsum"
	"github.com/born-ml/feinsum/internal/errs"
)

// Unit is an immutable handle on a kernel being transformed.
type Unit struct {
	engine  Engine
	state   State
	name    string
	history []string
}

// Func is a transform: it rewrites a kernel through Unit primitives.
type Func func(u *Unit, sel Selector, name string) (*Unit, error)

// Lower builds the initial Unit for e.
func Lower(engine Engine, e *einsum.FusedEinsum, name string) (*Unit, error) {
	if name == "" {
		name = DefaultKernelName
	}
	state, err := engine.Lower(e, name)
	if err != nil {
		return nil, errs.Wrap(errs.Engine, OpLower, err)
	}
	return &Unit{engine: engine, state: state, name: name}, nil
}

// Name returns the kernel name.
func (u *Unit) Name() string { return u.name }

// State returns the engine representation.
func (u *Unit) State() State { return u.state }

// History lists the primitives applied so far, oldest first.
func (u *Unit) History() []string { return slices.Clone(u.history) }

func (u *Unit) apply(op, detail string, f func(State) (State, error)) (*Unit, error) {
	state, err := f(u.state)
	if err != nil {
		return nil, &errs.Error{Kind: errs.Engine, Op: op, Msg: detail, Err: err}
	}
	history := make([]string, len(u.history), len(u.history)+1)
	copy(history, u.history)
	return &Unit{
		engine:  u.engine,
		state:   state,
		name:    u.name,
		history: append(history, op+"("+detail+")"),
	}, nil
}

// AssignmentToSubst turns the assignment to variable into a substitution
// rule named <variable>_subst.
func (u *Unit) AssignmentToSubst(variable string) (*Unit, error) {
	return u.apply(OpAssignmentToSubst, variable, func(s State) (State, error) {
		return u.engine.AssignmentToSubst(s, variable)
	})
}

// SplitIname splits iname into an outer tile iname and an inner iname of
// the given width. The product of widths mapped to work-item axes must fit
// the device limits; that is only checked when the kernel is compiled.
func (u *Unit) SplitIname(iname string, width int, opts Split) (*Unit, error) {
	return u.apply(OpSplitIname, fmt.Sprintf("%s, %d", iname, width), func(s State) (State, error) {
		return u.engine.SplitIname(s, iname, width, opts)
	})
}

// RenameIname renames an iname.
func (u *Unit) RenameIname(from, to string) (*Unit, error) {
	return u.apply(OpRenameIname, from+" -> "+to, func(s State) (State, error) {
		return u.engine.RenameIname(s, from, to)
	})
}

// JoinInames fuses inames into one iname named joined.
func (u *Unit) JoinInames(inames []string, joined string) (*Unit, error) {
	return u.apply(OpJoinInames, strings.Join(inames, ", ")+" -> "+joined, func(s State) (State, error) {
		return u.engine.JoinInames(s, slices.Clone(inames), joined)
	})
}

// TagInames maps inames onto hardware axes ("g.0", "l.1") or unrolls them
// ("unr").
func (u *Unit) TagInames(tags map[string]string) (*Unit, error) {
	keys := make([]string, 0, len(tags))
	cp := make(map[string]string, len(tags))
	for k, v := range tags {
		keys = append(keys, k+":"+v)
		cp[k] = v
	}
	slices.Sort(keys)
	return u.apply(OpTagInames, strings.Join(keys, ", "), func(s State) (State, error) {
		return u.engine.TagInames(s, cp)
	})
}

// AddPrefetch copies a slice of a variable into faster storage before the
// sweep inames are entered. All sweep inames must share one domain; combine
// domains first when they do not.
func (u *Unit) AddPrefetch(p Prefetch) (*Unit, error) {
	return u.apply(OpAddPrefetch, p.Var+" over "+strings.Join(p.Sweep, ", "), func(s State) (State, error) {
		return u.engine.AddPrefetch(s, p)
	})
}

// Precompute evaluates a substitution rule into a temporary.
func (u *Unit) Precompute(p Precompute) (*Unit, error) {
	return u.apply(OpPrecompute, p.Subst+" over "+strings.Join(p.Sweep, ", "), func(s State) (State, error) {
		return u.engine.Precompute(s, p)
	})
}

// PrivatizeTemporaries gives each listed temporary one copy per instance
// of inames.
func (u *Unit) PrivatizeTemporaries(inames []string, vars []string) (*Unit, error) {
	return u.apply(OpPrivatize, strings.Join(vars, ", ")+" by "+strings.Join(inames, ", "), func(s State) (State, error) {
		return u.engine.PrivatizeTemporaries(s, slices.Clone(inames), slices.Clone(vars))
	})
}

// DuplicateInames gives the instructions matched by within their own
// copies of inames.
func (u *Unit) DuplicateInames(inames []string, within Selector, newNames []string) (*Unit, error) {
	return u.apply(OpDuplicateInames, strings.Join(inames, ", ")+" within "+string(within), func(s State) (State, error) {
		return u.engine.DuplicateInames(s, slices.Clone(inames), within, slices.Clone(newNames))
	})
}

// CombineDomains merges the listed iteration domains into one.
func (u *Unit) CombineDomains(domains []int) (*Unit, error) {
	return u.apply(OpCombineDomains, fmt.Sprint(domains), func(s State) (State, error) {
		return u.engine.CombineDomains(s, slices.Clone(domains))
	})
}

// BufferArray replaces direct writes to an output with a private
// accumulator that is initialized, accumulated and stored.
func (u *Unit) BufferArray(b Buffer) (*Unit, error) {
	return u.apply(OpBufferArray, b.Var+" over "+strings.Join(b.Inames, ", "), func(s State) (State, error) {
		return u.engine.BufferArray(s, b)
	})
}

// RealizeReduction materializes the reductions of the matched instructions
// as explicit init/update/store instructions.
func (u *Unit) RealizeReduction(within Selector) (*Unit, error) {
	return u.apply(OpRealizeReduction, string(within), func(s State) (State, error) {
		return u.engine.RealizeReduction(s, within)
	})
}

// Generate emits device code.
func (u *Unit) Generate() (Program, error) {
	prog, err := u.engine.Generate(u.state)
	if err != nil {
		return Program{}, errs.Wrap(errs.Engine, OpGenerate, err)
	}
	return prog, nil
}

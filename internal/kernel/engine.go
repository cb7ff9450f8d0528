package kernel

import "github.com/born-ml/feinsum/internal/einsum"

// State is an engine's private kernel representation.
type State any

// Engine is the lowering collaborator. Every method is pure: it returns a
// new State and leaves its input usable.
type Engine interface {
	// Lower builds the initial kernel for an einsum.
	Lower(e *einsum.FusedEinsum, name string) (State, error)

	AssignmentToSubst(s State, variable string) (State, error)
	SplitIname(s State, iname string, width int, opts Split) (State, error)
	RenameIname(s State, from, to string) (State, error)
	JoinInames(s State, inames []string, joined string) (State, error)
	TagInames(s State, tags map[string]string) (State, error)
	AddPrefetch(s State, p Prefetch) (State, error)
	Precompute(s State, p Precompute) (State, error)
	PrivatizeTemporaries(s State, inames []string, vars []string) (State, error)
	DuplicateInames(s State, inames []string, within Selector, newNames []string) (State, error)
	CombineDomains(s State, domains []int) (State, error)
	BufferArray(s State, b Buffer) (State, error)
	RealizeReduction(s State, within Selector) (State, error)

	// Generate emits device code for the kernel.
	Generate(s State) (Program, error)
}

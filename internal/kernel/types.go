package kernel

import (
	"fmt"

	"github.com/born-ml/feinsum/internal/einsum"
)

// Primitive names, as reported in errors and the transform history.
const (
	OpLower             = "lower"
	OpAssignmentToSubst = "assignment_to_subst"
	OpSplitIname        = "split_iname"
	OpRenameIname       = "rename_iname"
	OpJoinInames        = "join_inames"
	OpTagInames         = "tag_inames"
	OpAddPrefetch       = "add_prefetch"
	OpPrecompute        = "precompute"
	OpPrivatize         = "privatize_temporaries_with_inames"
	OpDuplicateInames   = "duplicate_inames"
	OpCombineDomains    = "combine_domains"
	OpBufferArray       = "buffer_array"
	OpRealizeReduction  = "realize_reduction"
	OpGenerate          = "generate_code"
	OpTransform         = "transform"
)

// Names the engines give to generated entities.
const (
	DefaultKernelName = "einsum"
	OutputPrefix      = "_fe_out"
	SubstitutionVar   = "_fe_tmp"
)

// Selector matches instructions, e.g. "id:insn_0" or "writes:_fe_out".
// The empty selector matches everything.
type Selector string

// All matches every instruction.
const All Selector = ""

// AddressSpace is where a temporary lives.
type AddressSpace int

// Address spaces.
const (
	Global AddressSpace = iota
	Local
	Private
)

func (a AddressSpace) String() string {
	switch a {
	case Global:
		return "global"
	case Local:
		return "local"
	case Private:
		return "private"
	default:
		return "unknown"
	}
}

// ParseAddressSpace converts "global", "local" or "private".
func ParseAddressSpace(s string) (AddressSpace, error) {
	switch s {
	case "global":
		return Global, nil
	case "local", "shared":
		return Local, nil
	case "private":
		return Private, nil
	default:
		return 0, fmt.Errorf("unknown address space %q", s)
	}
}

// Split configures SplitIname. Empty names default to <iname>_outer and
// <iname>_inner.
type Split struct {
	Outer    string
	Inner    string
	OuterTag string
	InnerTag string
}

// Prefetch configures AddPrefetch: copy the slice of Var addressed by Sweep
// into a temporary in Space, outside the FetchOuter loops.
type Prefetch struct {
	Var         string
	Sweep       []string
	FetchOuter  []string
	Space       AddressSpace
	Temporary   string
	DimArgNames []string
	DefaultTag  string
}

// Precompute configures Precompute: evaluate substitution Subst over Sweep
// into a temporary.
type Precompute struct {
	Subst     string
	Sweep     []string
	Outer     []string
	Temporary string
	Space     AddressSpace
	ComputeID string
}

// Buffer configures BufferArray: accumulate writes to Var over Inames in a
// buffer initialized to Init, then store it.
type Buffer struct {
	Var    string
	Inames []string
	Init   string
	Local  bool
}

// Arg describes one kernel argument.
type Arg struct {
	Name   string
	DType  einsum.DataType
	Shape  einsum.Shape
	Output bool
}

// Program is generated device code plus everything needed to launch it.
type Program struct {
	Name          string
	Source        string
	EntryPoint    string
	WorkgroupSize [3]uint32
	Args          []Arg
	// SizeParams lists the symbolic lengths in the order the kernel
	// expects them at launch.
	SizeParams []string
	// Extent is the launch grid: one invocation per point of the free axes.
	Extent einsum.Shape
}

// Threads returns the number of invocations for the given size parameters.
func (p Program) Threads(sizes map[string]int) (int, error) {
	return Elements(p.Extent, sizes)
}

// Elements returns the element count of shape for the given size parameters.
func Elements(shape einsum.Shape, sizes map[string]int) (int, error) {
	n := 1
	for _, d := range shape {
		if p, ok := d.SizeParam(); ok {
			v, found := sizes[p.Name]
			if !found {
				return 0, fmt.Errorf("no value for size parameter %s", p.Name)
			}
			n *= v
			continue
		}
		n *= d.Int()
	}
	return n, nil
}

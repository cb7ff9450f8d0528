package kernel

import (
	"fmt"
	"slices"
	"strings"

	"github.com/born-ml/feinsum/internal/einsum"
)

// MockEngine is an Engine for tests. Its state is the list of primitives
// applied so far, and Generate emits that list as the program source.
// Primitives named in FailOn return the associated error instead.
type MockEngine struct {
	FailOn map[string]error
}

// NewMockEngine creates a MockEngine that never fails.
func NewMockEngine() *MockEngine {
	return &MockEngine{FailOn: make(map[string]error)}
}

type mockState struct {
	einsum *einsum.FusedEinsum
	name   string
	log    []string
}

func (m *MockEngine) step(s State, op string, args ...any) (State, error) {
	if err, ok := m.FailOn[op]; ok {
		return nil, err
	}
	st, ok := s.(mockState)
	if !ok {
		return nil, fmt.Errorf("mock engine: unexpected state %T", s)
	}
	entry := op
	if len(args) > 0 {
		entry += fmt.Sprintf("%v", args)
	}
	st.log = append(slices.Clip(st.log), entry)
	return st, nil
}

// Lower implements Engine.
func (m *MockEngine) Lower(e *einsum.FusedEinsum, name string) (State, error) {
	if err, ok := m.FailOn[OpLower]; ok {
		return nil, err
	}
	return mockState{einsum: e, name: name}, nil
}

// AssignmentToSubst implements Engine.
func (m *MockEngine) AssignmentToSubst(s State, variable string) (State, error) {
	return m.step(s, OpAssignmentToSubst, variable)
}

// SplitIname implements Engine.
func (m *MockEngine) SplitIname(s State, iname string, width int, _ Split) (State, error) {
	return m.step(s, OpSplitIname, iname, width)
}

// RenameIname implements Engine.
func (m *MockEngine) RenameIname(s State, from, to string) (State, error) {
	return m.step(s, OpRenameIname, from, to)
}

// JoinInames implements Engine.
func (m *MockEngine) JoinInames(s State, inames []string, joined string) (State, error) {
	return m.step(s, OpJoinInames, inames, joined)
}

// TagInames implements Engine.
func (m *MockEngine) TagInames(s State, tags map[string]string) (State, error) {
	return m.step(s, OpTagInames, len(tags))
}

// AddPrefetch implements Engine.
func (m *MockEngine) AddPrefetch(s State, p Prefetch) (State, error) {
	return m.step(s, OpAddPrefetch, p.Var)
}

// Precompute implements Engine.
func (m *MockEngine) Precompute(s State, p Precompute) (State, error) {
	return m.step(s, OpPrecompute, p.Subst)
}

// PrivatizeTemporaries implements Engine.
func (m *MockEngine) PrivatizeTemporaries(s State, inames []string, vars []string) (State, error) {
	return m.step(s, OpPrivatize, inames, vars)
}

// DuplicateInames implements Engine.
func (m *MockEngine) DuplicateInames(s State, inames []string, within Selector, _ []string) (State, error) {
	return m.step(s, OpDuplicateInames, inames, within)
}

// CombineDomains implements Engine.
func (m *MockEngine) CombineDomains(s State, domains []int) (State, error) {
	return m.step(s, OpCombineDomains, domains)
}

// BufferArray implements Engine.
func (m *MockEngine) BufferArray(s State, b Buffer) (State, error) {
	return m.step(s, OpBufferArray, b.Var)
}

// RealizeReduction implements Engine.
func (m *MockEngine) RealizeReduction(s State, within Selector) (State, error) {
	return m.step(s, OpRealizeReduction, within)
}

// Generate implements Engine.
func (m *MockEngine) Generate(s State) (Program, error) {
	if err, ok := m.FailOn[OpGenerate]; ok {
		return Program{}, err
	}
	st, ok := s.(mockState)
	if !ok {
		return Program{}, fmt.Errorf("mock engine: unexpected state %T", s)
	}

	var extent einsum.Shape
	for i := 0; i < st.einsum.NDim(); i++ {
		d, _ := st.einsum.DimLength(einsum.FreeAxis(i))
		extent = append(extent, d)
	}
	var params []string
	for _, p := range st.einsum.SizeParams() {
		params = append(params, p.Name)
	}
	return Program{
		Name:          st.name,
		Source:        "// " + st.name + "\n" + strings.Join(st.log, "\n"),
		EntryPoint:    "main",
		WorkgroupSize: [3]uint32{1, 1, 1},
		SizeParams:    params,
		Extent:        extent,
	}, nil
}

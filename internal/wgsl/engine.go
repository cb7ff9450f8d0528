// Package wgsl implements the built-in kernel engine for the WebGPU backend.
//
// The engine keeps only launch bookkeeping: the inames of every iteration
// domain with their tags and known widths, the instructions writing each
// output, and the temporaries and substitution rules requested so far.
// Primitives check their preconditions against that bookkeeping. Generate
// emits one WGSL invocation per output point with the summation loops
// inside; memory placement requests are validated and listed in the
// generated source header.
package wgsl

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/born-ml/feinsum/internal/einsum"
	"github.com/born-ml/feinsum/internal/kernel"
)

const (
	// WorkgroupSize is the number of invocations per workgroup.
	WorkgroupSize = 256
	// MaxLocalInvocations bounds the product of the widths of inames
	// tagged with local axes.
	MaxLocalInvocations = 256
)

// Engine is the WGSL kernel engine. The zero value is ready to use.
type Engine struct{}

// New creates an Engine.
func New() *Engine {
	return &Engine{}
}

var _ kernel.Engine = (*Engine)(nil)

type iname struct {
	domain int
	width  int // 0 when unknown
	tag    string
}

type insn struct {
	id     string
	writes string
	domain int
}

type state struct {
	einsum  *einsum.FusedEinsum
	name    string
	inames  map[string]iname
	domains map[int]bool
	insns   []insn
	substs  map[string]bool
	temps   map[string]kernel.AddressSpace
	notes   []string
}

func (s *state) clone() *state {
	return &state{
		einsum:  s.einsum,
		name:    s.name,
		inames:  maps.Clone(s.inames),
		domains: maps.Clone(s.domains),
		insns:   slices.Clone(s.insns),
		substs:  maps.Clone(s.substs),
		temps:   maps.Clone(s.temps),
		notes:   slices.Clip(s.notes),
	}
}

func (s *state) note(format string, args ...any) {
	s.notes = append(s.notes, fmt.Sprintf(format, args...))
}

func asState(s kernel.State) (*state, error) {
	st, ok := s.(*state)
	if !ok || st == nil {
		return nil, fmt.Errorf("wgsl: kernel state of type %T was not produced by this engine", s)
	}
	return st, nil
}

// OutputName returns the name of the array written by use-matrix row r.
func OutputName(r int) string {
	if r == 0 {
		return kernel.OutputPrefix
	}
	return kernel.OutputPrefix + "_" + strconv.Itoa(r)
}

// InameName returns the iname of index letter within use-matrix row r.
func InameName(index string, r int) string {
	return index + "_" + strconv.Itoa(r)
}

// Lower implements kernel.Engine. Every use-matrix row gets its own
// domain with one iname per index and one instruction insn_<row>.
func (e *Engine) Lower(fe *einsum.FusedEinsum, name string) (kernel.State, error) {
	for r, row := range fe.UseMatrix() {
		for c, cell := range row {
			if len(cell) != 1 {
				return nil, fmt.Errorf("wgsl: use-matrix cell (%d, %d) holds %d values, want 1", r, c, len(cell))
			}
		}
	}

	st := &state{
		einsum:  fe,
		name:    name,
		inames:  make(map[string]iname),
		domains: make(map[int]bool),
		substs:  make(map[string]bool),
		temps:   make(map[string]kernel.AddressSpace),
	}
	for r := 0; r < fe.NRows(); r++ {
		st.domains[r] = true
		for _, axis := range fe.Axes() {
			st.inames[InameName(fe.IndexName(axis), r)] = iname{domain: r}
		}
		st.insns = append(st.insns, insn{id: "insn_" + strconv.Itoa(r), writes: OutputName(r), domain: r})
	}
	return st, nil
}

func (s *state) requireInames(names ...string) error {
	for _, n := range names {
		if _, ok := s.inames[n]; !ok {
			return fmt.Errorf("unknown iname %q", n)
		}
	}
	return nil
}

func (s *state) requireFresh(names ...string) error {
	for _, n := range names {
		if n == "" {
			return fmt.Errorf("empty iname")
		}
		if _, ok := s.inames[n]; ok {
			return fmt.Errorf("iname %q already exists", n)
		}
	}
	return nil
}

func (s *state) sameDomain(names []string) (int, error) {
	if len(names) == 0 {
		return 0, fmt.Errorf("no inames given")
	}
	d := s.inames[names[0]].domain
	for _, n := range names[1:] {
		if s.inames[n].domain != d {
			return 0, fmt.Errorf("inames %q and %q live in different domains", names[0], n)
		}
	}
	return d, nil
}

func (s *state) isOutput(name string) bool {
	return slices.ContainsFunc(s.insns, func(i insn) bool { return i.writes == name })
}

// isResult reports whether name is an output or the per-row result
// temporary the lowering introduces.
func (s *state) isResult(name string) bool {
	for r := range s.insns {
		tmp := kernel.SubstitutionVar
		if r > 0 {
			tmp += "_" + strconv.Itoa(r)
		}
		if name == tmp {
			return true
		}
	}
	return s.isOutput(name)
}

func (s *state) match(sel kernel.Selector) ([]int, error) {
	var out []int
	if sel == kernel.All {
		for i := range s.insns {
			out = append(out, i)
		}
		return out, nil
	}
	kind, val, ok := strings.Cut(string(sel), ":")
	if !ok || (kind != "id" && kind != "writes") {
		return nil, fmt.Errorf("unsupported selector %q", sel)
	}
	for i, in := range s.insns {
		if (kind == "id" && in.id == val) || (kind == "writes" && in.writes == val) {
			out = append(out, i)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("selector %q matches no instruction", sel)
	}
	return out, nil
}

func validTag(tag string) bool {
	switch tag {
	case "", "for", "unr", "ilp":
		return true
	}
	axis, n, ok := strings.Cut(tag, ".")
	if !ok || (axis != "g" && axis != "l") {
		return false
	}
	i, err := strconv.Atoi(n)
	return err == nil && i >= 0 && i < 3
}

// AssignmentToSubst implements kernel.Engine.
func (e *Engine) AssignmentToSubst(s kernel.State, variable string) (kernel.State, error) {
	st, err := asState(s)
	if err != nil {
		return nil, err
	}
	if !st.isResult(variable) {
		return nil, fmt.Errorf("no instruction assigns %q", variable)
	}
	st = st.clone()
	st.substs[variable+"_subst"] = true
	st.note("substitution %s_subst", variable)
	return st, nil
}

// SplitIname implements kernel.Engine.
func (e *Engine) SplitIname(s kernel.State, name string, width int, opts kernel.Split) (kernel.State, error) {
	st, err := asState(s)
	if err != nil {
		return nil, err
	}
	if err := st.requireInames(name); err != nil {
		return nil, err
	}
	if width <= 0 {
		return nil, fmt.Errorf("split width %d is not positive", width)
	}
	outer, inner := opts.Outer, opts.Inner
	if outer == "" {
		outer = name + "_outer"
	}
	if inner == "" {
		inner = name + "_inner"
	}
	if outer == inner {
		return nil, fmt.Errorf("outer and inner iname are both %q", outer)
	}
	if err := st.requireFresh(outer, inner); err != nil {
		return nil, err
	}
	if !validTag(opts.OuterTag) || !validTag(opts.InnerTag) {
		return nil, fmt.Errorf("invalid tag in %q/%q", opts.OuterTag, opts.InnerTag)
	}

	st = st.clone()
	old := st.inames[name]
	delete(st.inames, name)
	st.inames[outer] = iname{domain: old.domain, tag: opts.OuterTag}
	st.inames[inner] = iname{domain: old.domain, width: width, tag: opts.InnerTag}
	st.note("split %s by %d into %s, %s", name, width, outer, inner)
	return st, nil
}

// RenameIname implements kernel.Engine.
func (e *Engine) RenameIname(s kernel.State, from, to string) (kernel.State, error) {
	st, err := asState(s)
	if err != nil {
		return nil, err
	}
	if err := st.requireInames(from); err != nil {
		return nil, err
	}
	if err := st.requireFresh(to); err != nil {
		return nil, err
	}
	st = st.clone()
	st.inames[to] = st.inames[from]
	delete(st.inames, from)
	return st, nil
}

// JoinInames implements kernel.Engine.
func (e *Engine) JoinInames(s kernel.State, names []string, joined string) (kernel.State, error) {
	st, err := asState(s)
	if err != nil {
		return nil, err
	}
	if err := st.requireInames(names...); err != nil {
		return nil, err
	}
	if err := st.requireFresh(joined); err != nil {
		return nil, err
	}
	d, err := st.sameDomain(names)
	if err != nil {
		return nil, err
	}

	st = st.clone()
	width := 1
	for _, n := range names {
		if w := st.inames[n].width; w > 0 && width > 0 {
			width *= w
		} else {
			width = 0
		}
		delete(st.inames, n)
	}
	st.inames[joined] = iname{domain: d, width: width}
	st.note("join %s into %s", strings.Join(names, ", "), joined)
	return st, nil
}

// TagInames implements kernel.Engine.
func (e *Engine) TagInames(s kernel.State, tags map[string]string) (kernel.State, error) {
	st, err := asState(s)
	if err != nil {
		return nil, err
	}
	for _, n := range slices.Sorted(maps.Keys(tags)) {
		if err := st.requireInames(n); err != nil {
			return nil, err
		}
		if !validTag(tags[n]) {
			return nil, fmt.Errorf("invalid tag %q for iname %q", tags[n], n)
		}
	}
	st = st.clone()
	for n, tag := range tags {
		in := st.inames[n]
		in.tag = tag
		st.inames[n] = in
	}
	return st, nil
}

// AddPrefetch implements kernel.Engine.
func (e *Engine) AddPrefetch(s kernel.State, p kernel.Prefetch) (kernel.State, error) {
	st, err := asState(s)
	if err != nil {
		return nil, err
	}
	if _, ok := st.einsum.DType(p.Var); !ok {
		return nil, fmt.Errorf("no argument named %q", p.Var)
	}
	if err := st.requireInames(p.Sweep...); err != nil {
		return nil, err
	}
	if err := st.requireInames(p.FetchOuter...); err != nil {
		return nil, err
	}
	if len(p.Sweep) > 0 {
		if _, err := st.sameDomain(p.Sweep); err != nil {
			return nil, fmt.Errorf("prefetch sweep: %w", err)
		}
	}
	if !validTag(p.DefaultTag) {
		return nil, fmt.Errorf("invalid default tag %q", p.DefaultTag)
	}
	temp := p.Temporary
	if temp == "" {
		temp = p.Var + "_fetch"
	}
	if _, dup := st.temps[temp]; dup {
		return nil, fmt.Errorf("temporary %q already exists", temp)
	}

	st = st.clone()
	st.temps[temp] = p.Space
	st.note("prefetch %s into %s (%s)", p.Var, temp, p.Space)
	return st, nil
}

// Precompute implements kernel.Engine.
func (e *Engine) Precompute(s kernel.State, p kernel.Precompute) (kernel.State, error) {
	st, err := asState(s)
	if err != nil {
		return nil, err
	}
	if !st.substs[p.Subst] {
		return nil, fmt.Errorf("no substitution rule named %q", p.Subst)
	}
	if err := st.requireInames(p.Sweep...); err != nil {
		return nil, err
	}
	if err := st.requireInames(p.Outer...); err != nil {
		return nil, err
	}
	temp := p.Temporary
	if temp == "" {
		temp = p.Subst + "_precomp"
	}
	if _, dup := st.temps[temp]; dup {
		return nil, fmt.Errorf("temporary %q already exists", temp)
	}

	st = st.clone()
	st.temps[temp] = p.Space
	st.note("precompute %s into %s (%s)", p.Subst, temp, p.Space)
	return st, nil
}

// PrivatizeTemporaries implements kernel.Engine.
func (e *Engine) PrivatizeTemporaries(s kernel.State, names []string, vars []string) (kernel.State, error) {
	st, err := asState(s)
	if err != nil {
		return nil, err
	}
	if err := st.requireInames(names...); err != nil {
		return nil, err
	}
	for _, v := range vars {
		if _, ok := st.temps[v]; !ok {
			return nil, fmt.Errorf("no temporary named %q", v)
		}
	}
	st = st.clone()
	for _, v := range vars {
		st.temps[v] = kernel.Private
	}
	st.note("privatize %s by %s", strings.Join(vars, ", "), strings.Join(names, ", "))
	return st, nil
}

// DuplicateInames implements kernel.Engine.
func (e *Engine) DuplicateInames(s kernel.State, names []string, within kernel.Selector, newNames []string) (kernel.State, error) {
	st, err := asState(s)
	if err != nil {
		return nil, err
	}
	if err := st.requireInames(names...); err != nil {
		return nil, err
	}
	if _, err := st.match(within); err != nil {
		return nil, err
	}
	if len(newNames) == 0 {
		newNames = make([]string, len(names))
		for i, n := range names {
			newNames[i] = n + "_dup"
		}
	}
	if len(newNames) != len(names) {
		return nil, fmt.Errorf("%d new names for %d inames", len(newNames), len(names))
	}
	if err := st.requireFresh(newNames...); err != nil {
		return nil, err
	}

	st = st.clone()
	for i, n := range names {
		st.inames[newNames[i]] = st.inames[n]
	}
	return st, nil
}

// CombineDomains implements kernel.Engine.
func (e *Engine) CombineDomains(s kernel.State, domains []int) (kernel.State, error) {
	st, err := asState(s)
	if err != nil {
		return nil, err
	}
	if len(domains) < 2 {
		return nil, fmt.Errorf("need at least two domains, got %v", domains)
	}
	for _, d := range domains {
		if !st.domains[d] {
			return nil, fmt.Errorf("no domain %d", d)
		}
	}

	st = st.clone()
	into := slices.Min(domains)
	for n, in := range st.inames {
		if slices.Contains(domains, in.domain) {
			in.domain = into
			st.inames[n] = in
		}
	}
	for i := range st.insns {
		if slices.Contains(domains, st.insns[i].domain) {
			st.insns[i].domain = into
		}
	}
	for _, d := range domains {
		if d != into {
			delete(st.domains, d)
		}
	}
	return st, nil
}

// BufferArray implements kernel.Engine.
func (e *Engine) BufferArray(s kernel.State, b kernel.Buffer) (kernel.State, error) {
	st, err := asState(s)
	if err != nil {
		return nil, err
	}
	if !st.isOutput(b.Var) {
		return nil, fmt.Errorf("%q is not an output", b.Var)
	}
	if err := st.requireInames(b.Inames...); err != nil {
		return nil, err
	}
	space := kernel.Private
	if b.Local {
		space = kernel.Local
	}
	st = st.clone()
	st.temps[b.Var+"_buf"] = space
	st.note("buffer %s over %s (%s)", b.Var, strings.Join(b.Inames, ", "), space)
	return st, nil
}

// RealizeReduction implements kernel.Engine.
func (e *Engine) RealizeReduction(s kernel.State, within kernel.Selector) (kernel.State, error) {
	st, err := asState(s)
	if err != nil {
		return nil, err
	}
	matched, err := st.match(within)
	if err != nil {
		return nil, err
	}
	st = st.clone()
	for _, i := range matched {
		st.note("realize reduction of %s", st.insns[i].id)
	}
	return st, nil
}

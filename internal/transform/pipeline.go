package transform

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/feinsum/internal/errs"
	"github.com/born-ml/feinsum/internal/kernel"
)

// Pipeline is a declarative transform: primitive steps applied in order.
//
//	steps:
//	  - op: split_iname
//	    iname: e_0
//	    width: 9
//	    outer: e_outer
//	    inner: e_inner
//	    outer_tag: g.0
//	    inner_tag: l.1
//	  - op: add_prefetch
//	    var: J
//	    sweep: [r, x]
//	    fetch_outer: [e_inner, e_outer]
//	    space: private
type Pipeline struct {
	Steps []Step `yaml:"steps"`
}

// Step is one primitive call. Only the fields the primitive reads are used.
type Step struct {
	Op string `yaml:"op"`

	Iname    string            `yaml:"iname,omitempty"`
	Width    int               `yaml:"width,omitempty"`
	Outer    string            `yaml:"outer,omitempty"`
	Inner    string            `yaml:"inner,omitempty"`
	OuterTag string            `yaml:"outer_tag,omitempty"`
	InnerTag string            `yaml:"inner_tag,omitempty"`
	From     string            `yaml:"from,omitempty"`
	To       string            `yaml:"to,omitempty"`
	Inames   []string          `yaml:"inames,omitempty"`
	NewIname string            `yaml:"new_iname,omitempty"`
	Tags     map[string]string `yaml:"tags,omitempty"`

	Var         string   `yaml:"var,omitempty"`
	Subst       string   `yaml:"subst,omitempty"`
	Sweep       []string `yaml:"sweep,omitempty"`
	FetchOuter  []string `yaml:"fetch_outer,omitempty"`
	Space       string   `yaml:"space,omitempty"`
	Temporary   string   `yaml:"temporary,omitempty"`
	DimArgNames []string `yaml:"dim_arg_names,omitempty"`
	DefaultTag  string   `yaml:"default_tag,omitempty"`
	ComputeID   string   `yaml:"compute_id,omitempty"`
	OuterInames []string `yaml:"outer_inames,omitempty"`

	Vars      []string `yaml:"vars,omitempty"`
	Within    string   `yaml:"within,omitempty"`
	NewInames []string `yaml:"new_inames,omitempty"`
	Domains   []int    `yaml:"domains,omitempty"`
	Init      string   `yaml:"init,omitempty"`
	Local     bool     `yaml:"local,omitempty"`
}

// StepHandler applies one pipeline step.
type StepHandler func(u *kernel.Unit, s Step) (*kernel.Unit, error)

// Registry maps primitive names to step handlers.
type Registry struct {
	handlers map[string]StepHandler
}

// NewRegistry creates a registry with every kernel primitive.
func NewRegistry() *Registry {
	r := &Registry{handlers: make(map[string]StepHandler)}
	r.registerLoopOps()
	r.registerMemoryOps()
	return r
}

// Register adds or replaces a handler.
func (r *Registry) Register(op string, h StepHandler) {
	r.handlers[op] = h
}

// Get returns the handler for op.
func (r *Registry) Get(op string) (StepHandler, bool) {
	h, ok := r.handlers[op]
	return h, ok
}

// SupportedOps returns the registered primitive names, sorted.
func (r *Registry) SupportedOps() []string {
	ops := make([]string, 0, len(r.handlers))
	for op := range r.handlers {
		ops = append(ops, op)
	}
	slices.Sort(ops)
	return ops
}

func (r *Registry) registerLoopOps() {
	r.Register(kernel.OpAssignmentToSubst, func(u *kernel.Unit, s Step) (*kernel.Unit, error) {
		return u.AssignmentToSubst(s.Var)
	})
	r.Register(kernel.OpSplitIname, func(u *kernel.Unit, s Step) (*kernel.Unit, error) {
		return u.SplitIname(s.Iname, s.Width, kernel.Split{
			Outer: s.Outer, Inner: s.Inner, OuterTag: s.OuterTag, InnerTag: s.InnerTag,
		})
	})
	r.Register(kernel.OpRenameIname, func(u *kernel.Unit, s Step) (*kernel.Unit, error) {
		return u.RenameIname(s.From, s.To)
	})
	r.Register(kernel.OpJoinInames, func(u *kernel.Unit, s Step) (*kernel.Unit, error) {
		return u.JoinInames(s.Inames, s.NewIname)
	})
	r.Register(kernel.OpTagInames, func(u *kernel.Unit, s Step) (*kernel.Unit, error) {
		return u.TagInames(s.Tags)
	})
	r.Register(kernel.OpDuplicateInames, func(u *kernel.Unit, s Step) (*kernel.Unit, error) {
		return u.DuplicateInames(s.Inames, kernel.Selector(s.Within), s.NewInames)
	})
	r.Register(kernel.OpCombineDomains, func(u *kernel.Unit, s Step) (*kernel.Unit, error) {
		return u.CombineDomains(s.Domains)
	})
	r.Register(kernel.OpRealizeReduction, func(u *kernel.Unit, s Step) (*kernel.Unit, error) {
		return u.RealizeReduction(kernel.Selector(s.Within))
	})
}

func (r *Registry) registerMemoryOps() {
	r.Register(kernel.OpAddPrefetch, func(u *kernel.Unit, s Step) (*kernel.Unit, error) {
		space, err := stepSpace(s.Space, kernel.Private)
		if err != nil {
			return nil, err
		}
		return u.AddPrefetch(kernel.Prefetch{
			Var: s.Var, Sweep: s.Sweep, FetchOuter: s.FetchOuter, Space: space,
			Temporary: s.Temporary, DimArgNames: s.DimArgNames, DefaultTag: s.DefaultTag,
		})
	})
	r.Register(kernel.OpPrecompute, func(u *kernel.Unit, s Step) (*kernel.Unit, error) {
		space, err := stepSpace(s.Space, kernel.Private)
		if err != nil {
			return nil, err
		}
		return u.Precompute(kernel.Precompute{
			Subst: s.Subst, Sweep: s.Sweep, Outer: s.OuterInames, Temporary: s.Temporary,
			Space: space, ComputeID: s.ComputeID,
		})
	})
	r.Register(kernel.OpPrivatize, func(u *kernel.Unit, s Step) (*kernel.Unit, error) {
		return u.PrivatizeTemporaries(s.Inames, s.Vars)
	})
	r.Register(kernel.OpBufferArray, func(u *kernel.Unit, s Step) (*kernel.Unit, error) {
		return u.BufferArray(kernel.Buffer{Var: s.Var, Inames: s.Inames, Init: s.Init, Local: s.Local})
	})
}

func stepSpace(name string, def kernel.AddressSpace) (kernel.AddressSpace, error) {
	if name == "" {
		return def, nil
	}
	space, err := kernel.ParseAddressSpace(name)
	if err != nil {
		return 0, errs.Wrap(errs.Configuration, "transform.Pipeline", err)
	}
	return space, nil
}

// ParsePipeline decodes a YAML pipeline. Unknown fields are rejected.
func ParsePipeline(text string) (*Pipeline, error) {
	dec := yaml.NewDecoder(bytes.NewBufferString(text))
	dec.KnownFields(true)

	var p Pipeline
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, errs.Wrap(errs.Configuration, "transform.ParsePipeline", fmt.Errorf("decode pipeline: %w", err))
	}
	if len(p.Steps) == 0 {
		return nil, errs.New(errs.Configuration, "transform.ParsePipeline", "pipeline has no steps")
	}
	return &p, nil
}

// LoadPipeline parses a YAML pipeline and binds it to the default registry.
func LoadPipeline(text string) (kernel.Func, error) {
	p, err := ParsePipeline(text)
	if err != nil {
		return nil, err
	}
	return p.Func(NewRegistry())
}

// Func binds the pipeline to a registry. Unknown primitives are rejected
// before anything runs.
func (p *Pipeline) Func(r *Registry) (kernel.Func, error) {
	handlers := make([]StepHandler, len(p.Steps))
	for i, s := range p.Steps {
		h, ok := r.Get(s.Op)
		if !ok {
			return nil, errs.New(errs.Configuration, "transform.Pipeline", "step %d: unsupported operation %q", i, s.Op)
		}
		handlers[i] = h
	}
	steps := slices.Clone(p.Steps)

	return func(u *kernel.Unit, _ kernel.Selector, _ string) (*kernel.Unit, error) {
		var err error
		for i, h := range handlers {
			if u, err = h(u, steps[i]); err != nil {
				return nil, err
			}
		}
		return u, nil
	}, nil
}

// Encode renders the pipeline back to YAML.
func (p *Pipeline) Encode() (string, error) {
	out, err := yaml.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode pipeline: %w", err)
	}
	return string(out), nil
}

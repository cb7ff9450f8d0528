// Package measure times transformed einsum kernels and compares the
// achieved throughput with the roofline bound of the device.
package measure

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/born-ml/feinsum/internal/einsum"
)

// Formula is an arithmetic expression over size parameters, e.g.
// "(2.0 * N_b * 35.0) / 1000000000.0".
type Formula string

// Eval evaluates f with every size parameter bound to its value in env.
func (f Formula) Eval(env map[string]int) (float64, error) {
	vars := make(map[string]any, len(env))
	for k, v := range env {
		vars[k] = float64(v)
	}
	out, err := expr.Eval(string(f), vars)
	if err != nil {
		return 0, fmt.Errorf("evaluate %q: %w", f, err)
	}
	switch v := out.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("evaluate %q: result is %T, not a number", f, out)
	}
}

func (f Formula) String() string { return string(f) }

// term renders one length as a formula factor.
func term(d einsum.Dim) string {
	if p, ok := d.SizeParam(); ok {
		return p.Name
	}
	return strconv.Itoa(d.Int()) + ".0"
}

// product renders the product of lengths; the empty product is 1.0.
func product(dims []einsum.Dim) string {
	if len(dims) == 0 {
		return "1.0"
	}
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = term(d)
	}
	return strings.Join(parts, " * ")
}

// SizeEnv binds every size parameter of e to longDimLength.
func SizeEnv(e *einsum.FusedEinsum, longDimLength int) map[string]int {
	env := make(map[string]int)
	for _, p := range e.SizeParams() {
		env[p.Name] = longDimLength
	}
	return env
}

// pyFloat renders v the way the archive has always stored floats: whole
// numbers keep a trailing ".0".
func pyFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

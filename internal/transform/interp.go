package transform

import (
	"fmt"
	"reflect"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/born-ml/feinsum/internal/errs"
	"github.com/born-ml/feinsum/internal/kernel"
)

// KernelImportPath is the import path transform code uses for the kernel
// package.
const KernelImportPath = "github.com/born-ml/feinsum/kernel"

// allowedStdlib lists the standard library packages transform code may
// import. Nothing here touches the file system, network or processes.
var allowedStdlib = []string{
	"errors/errors",
	"fmt/fmt",
	"math/math",
	"sort/sort",
	"strconv/strconv",
	"strings/strings",
}

// Symbols exposes the kernel package to interpreted transforms.
var Symbols = interp.Exports{
	KernelImportPath + "/kernel": {
		"Unit":         reflect.ValueOf((*kernel.Unit)(nil)),
		"Func":         reflect.ValueOf((*kernel.Func)(nil)),
		"Selector":     reflect.ValueOf((*kernel.Selector)(nil)),
		"AddressSpace": reflect.ValueOf((*kernel.AddressSpace)(nil)),
		"Split":        reflect.ValueOf((*kernel.Split)(nil)),
		"Prefetch":     reflect.ValueOf((*kernel.Prefetch)(nil)),
		"Precompute":   reflect.ValueOf((*kernel.Precompute)(nil)),
		"Buffer":       reflect.ValueOf((*kernel.Buffer)(nil)),
		"All":          reflect.ValueOf(kernel.All),
		"Global":       reflect.ValueOf(kernel.Global),
		"Local":        reflect.ValueOf(kernel.Local),
		"Private":      reflect.ValueOf(kernel.Private),
	},
}

func sandboxSymbols() interp.Exports {
	exports := make(interp.Exports, len(allowedStdlib))
	for _, key := range allowedStdlib {
		if syms, ok := stdlib.Symbols[key]; ok {
			exports[key] = syms
		}
	}
	return exports
}

// loadGo interprets Go transform source and returns its Transform function.
func loadGo(pkg, text string) (fn kernel.Func, err error) {
	const op = "transform.Load"

	defer func() {
		if r := recover(); r != nil {
			fn = nil
			err = errs.New(errs.Configuration, op, "interpreter panicked: %v", r)
		}
	}()

	i := interp.New(interp.Options{})
	if err := i.Use(sandboxSymbols()); err != nil {
		return nil, errs.Wrap(errs.Configuration, op, err)
	}
	if err := i.Use(Symbols); err != nil {
		return nil, errs.Wrap(errs.Configuration, op, err)
	}
	if _, err := i.Eval(text); err != nil {
		return nil, errs.Wrap(errs.Configuration, op, fmt.Errorf("evaluate transform source: %w", err))
	}

	v, err := i.Eval(pkg + ".Transform")
	if err != nil {
		return nil, errs.New(errs.Configuration, op, "provided transform source does not define a callable named Transform")
	}
	if v.Kind() != reflect.Func {
		return nil, errs.New(errs.Configuration, op, "Transform is a %s, not a function", v.Kind())
	}
	f, ok := v.Interface().(func(*kernel.Unit, kernel.Selector, string) (*kernel.Unit, error))
	if !ok {
		return nil, errs.New(errs.Configuration, op,
			"Transform has type %s, want func(*kernel.Unit, kernel.Selector, string) (*kernel.Unit, error)", v.Type())
	}
	return f, nil
}

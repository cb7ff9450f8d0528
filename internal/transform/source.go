// Package transform resolves, loads and applies user-supplied kernel
// transforms.
//
// A transform is supplied either as source text or as a path to a file
// holding it, never both. Two source formats are understood:
//
//   - Go source declaring a package with an exported
//     func Transform(*kernel.Unit, kernel.Selector, string) (*kernel.Unit, error).
//     It runs in an interpreter that can only reach a small set of pure
//     standard library packages plus the kernel package.
//   - A YAML pipeline listing primitive rewrite steps in order.
package transform

import (
	"fmt"
	"os"

	"github.com/born-ml/feinsum/internal/errs"
)

// Source names where transform code comes from.
// Exactly one of Text and Path must be set.
type Source struct {
	Text string
	Path string
}

// Resolve returns the transform source text.
func Resolve(src Source) (string, error) {
	const op = "transform.Resolve"

	switch {
	case src.Text != "" && src.Path != "":
		return "", errs.New(errs.Configuration, op, "cannot pass both transform text and transform file path")
	case src.Text == "" && src.Path == "":
		return "", errs.New(errs.Configuration, op, "must pass either transform text or transform file path")
	case src.Text != "":
		return src.Text, nil
	}

	data, err := os.ReadFile(src.Path)
	if err != nil {
		return "", errs.Wrap(errs.Configuration, op, fmt.Errorf("read transform file: %w", err))
	}
	return string(data), nil
}

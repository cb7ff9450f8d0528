package transform

import (
	"go/parser"
	"go/token"
	"strings"

	"github.com/born-ml/feinsum/internal/errs"
	"github.com/born-ml/feinsum/internal/kernel"
)

// Load compiles transform source into a callable. Go source is detected by
// its package clause; anything else is read as a YAML pipeline.
func Load(text string) (kernel.Func, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errs.New(errs.Configuration, "transform.Load", "transform source is empty")
	}
	if pkg, ok := goPackage(text); ok {
		return loadGo(pkg, text)
	}
	return LoadPipeline(text)
}

// goPackage returns the package name when text starts like a Go file.
func goPackage(text string) (string, bool) {
	f, err := parser.ParseFile(token.NewFileSet(), "transform.go", text, parser.PackageClauseOnly)
	if err != nil || f.Name == nil {
		return "", false
	}
	return f.Name.Name, true
}

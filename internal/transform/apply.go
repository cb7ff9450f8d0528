package transform

import (
	"github.com/born-ml/feinsum/internal/errs"
	"github.com/born-ml/feinsum/internal/kernel"
)

// Apply runs fn on u. Errors raised by kernel primitives come back
// unchanged; anything else the transform returns or panics with is
// reported against the transform itself.
func Apply(u *kernel.Unit, fn kernel.Func, sel kernel.Selector, name string) (out *kernel.Unit, err error) {
	if fn == nil {
		return nil, errs.New(errs.Configuration, kernel.OpTransform, "no transform given")
	}
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = errs.New(errs.Engine, kernel.OpTransform, "transform panicked: %v", r)
		}
	}()

	out, err = fn(u, sel, name)
	if err != nil {
		if errs.KindOf(err) != 0 {
			return nil, err
		}
		return nil, errs.Wrap(errs.Engine, kernel.OpTransform, err)
	}
	if out == nil {
		return nil, errs.New(errs.Configuration, kernel.OpTransform, "transform returned no kernel")
	}
	return out, nil
}

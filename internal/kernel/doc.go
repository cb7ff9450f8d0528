// Package kernel defines the contract between transform code and the
// lowering engine.
//
// A Unit is an immutable handle on the engine's kernel representation.
// Transforms receive a Unit, call rewrite primitives on it (each returning a
// new Unit), and return the final one:
//
//	func Transform(u *kernel.Unit, sel kernel.Selector, name string) (*kernel.Unit, error) {
//	    u, err := u.SplitIname("b_0", 8, kernel.Split{OuterTag: "g.0", InnerTag: "l.0"})
//	    if err != nil {
//	        return nil, err
//	    }
//	    return u.AddPrefetch(kernel.Prefetch{Var: "arg_1", Sweep: []string{"d_0"}, Space: kernel.Private})
//	}
//
// Ordering is the transform's responsibility: a prefetch may only sweep
// inames that already exist, so it must follow the splits defining them,
// and a reduction is realized only after duplicating the inames it is
// privatized over. The Unit passes the engine state through unchanged
// between calls and reports engine failures as errs.ErrEngine naming the
// primitive that failed.
package kernel

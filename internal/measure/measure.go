package measure

import (
	"context"

	"github.com/born-ml/feinsum/internal/device"
	"github.com/born-ml/feinsum/internal/einsum"
	"github.com/born-ml/feinsum/internal/kernel"
	"github.com/born-ml/feinsum/internal/transform"
)

// Result is one timed kernel.
type Result struct {
	// Runtime is the estimated wall-clock seconds per launch.
	Runtime float64
	// Program is the generated kernel that was timed.
	Program kernel.Program
	// Sizes are the size parameters it was launched with.
	Sizes map[string]int
}

// Measure lowers e with engine, applies fn, generates code and benchmarks
// it on the single device of devCtx with every size parameter set to
// longDimLength.
func Measure(ctx context.Context, e *einsum.FusedEinsum, fn kernel.Func, devCtx device.Context,
	engine kernel.Engine, longDimLength int, opts device.Options,
) (Result, error) {
	if _, err := device.Single(devCtx); err != nil {
		return Result{}, err
	}

	u, err := kernel.Lower(engine, e, kernel.DefaultKernelName)
	if err != nil {
		return Result{}, err
	}
	u, err = transform.Apply(u, fn, kernel.All, u.Name())
	if err != nil {
		return Result{}, err
	}
	prog, err := u.Generate()
	if err != nil {
		return Result{}, err
	}

	sizes := SizeEnv(e, longDimLength)
	runtime, err := device.Benchmark(ctx, devCtx, prog, sizes, opts)
	if err != nil {
		return Result{}, err
	}
	return Result{Runtime: runtime, Program: prog, Sizes: sizes}, nil
}

// Timeit is Measure with the default benchmark options, returning only
// the runtime in seconds.
func Timeit(ctx context.Context, e *einsum.FusedEinsum, fn kernel.Func, devCtx device.Context,
	engine kernel.Engine, longDimLength int,
) (float64, error) {
	res, err := Measure(ctx, e, fn, devCtx, engine, longDimLength, device.DefaultOptions())
	if err != nil {
		return 0, err
	}
	return res.Runtime, nil
}

package device

import (
	"context"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/born-ml/feinsum/internal/errs"
	"github.com/born-ml/feinsum/internal/kernel"
)

// Operation names used in errors raised while timing.
const (
	OpCompile = "compile"
	OpExecute = "execute"
)

// outlierCutoff is how many median absolute deviations a sample may sit
// from the median before Estimate drops it.
const outlierCutoff = 3.0

// Options controls Benchmark.
type Options struct {
	Warmup int `yaml:"warmup"`
	Trials int `yaml:"trials"`
}

// DefaultOptions returns 2 warm-up launches and 10 timed trials.
func DefaultOptions() Options {
	return Options{Warmup: 2, Trials: 10}
}

// Validate checks the option ranges.
func (o Options) Validate() error {
	if o.Warmup < 0 {
		return errs.New(errs.Configuration, "device.Options", "warmup %d is negative", o.Warmup)
	}
	if o.Trials < 1 {
		return errs.New(errs.Configuration, "device.Options", "need at least one trial, got %d", o.Trials)
	}
	return nil
}

// Benchmark compiles prog on c, launches it opts.Warmup times untimed and
// opts.Trials times timed, and returns the Estimate of the trials in
// seconds.
func Benchmark(ctx context.Context, c Context, prog kernel.Program, sizes map[string]int, opts Options) (float64, error) {
	if err := opts.Validate(); err != nil {
		return 0, err
	}

	exe, err := c.Compile(ctx, prog, sizes)
	if err != nil {
		return 0, errs.Wrap(errs.Engine, OpCompile, err)
	}
	defer exe.Release()

	for i := 0; i < opts.Warmup; i++ {
		if _, err := exe.Run(ctx); err != nil {
			return 0, errs.Wrap(errs.Engine, OpExecute, err)
		}
	}

	samples := make([]float64, 0, opts.Trials)
	for i := 0; i < opts.Trials; i++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		d, err := exe.Run(ctx)
		if err != nil {
			return 0, errs.Wrap(errs.Engine, OpExecute, err)
		}
		samples = append(samples, d.Seconds())
	}
	return Estimate(samples), nil
}

// Estimate reduces timing samples to one figure: the mean of the samples
// within outlierCutoff median absolute deviations of the median. It
// returns NaN for no samples.
func Estimate(samples []float64) float64 {
	if len(samples) == 0 {
		return math.NaN()
	}
	sorted := slices.Clone(samples)
	slices.Sort(sorted)
	median := stat.Quantile(0.5, stat.Empirical, sorted, nil)

	dev := make([]float64, len(sorted))
	for i, x := range sorted {
		dev[i] = math.Abs(x - median)
	}
	slices.Sort(dev)
	mad := stat.Quantile(0.5, stat.Empirical, dev, nil)

	kept := sorted[:0:0]
	for _, x := range sorted {
		if math.Abs(x-median) <= outlierCutoff*mad {
			kept = append(kept, x)
		}
	}
	if len(kept) == 0 {
		return median
	}
	return floats.Sum(kept) / float64(len(kept))
}

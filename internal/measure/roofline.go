package measure

import (
	"maps"
	"slices"

	"github.com/born-ml/feinsum/internal/einsum"
	"github.com/born-ml/feinsum/internal/errs"
)

// Performance compares the achieved throughput of one dtype with its
// roofline bound.
type Performance struct {
	DType einsum.DataType
	// GigaOps is the operation count of one evaluation.
	GigaOps float64
	// Measured is the achieved GOps/s.
	Measured float64
	// Roofline is the attainable GOps/s.
	Roofline float64
}

// Roofline returns, per dtype in order of item size, the achieved and the
// attainable GOps/s of e running in runtime seconds on deviceName. The
// attainable rate is ops / max(ops/peak[dtype], footprint/bandwidth).
// Devices or dtypes missing from tables fail with errs.ErrLookup.
func Roofline(e *einsum.FusedEinsum, runtime float64, deviceName string, longDimLength int, tables Tables) ([]Performance, error) {
	const op = "measure.Roofline"

	peaks, ok := tables.PeakGFlops[deviceName]
	if !ok {
		return nil, errs.New(errs.Lookup, op, "no peak GFLOP/s known for device %q", deviceName)
	}
	bandwidth, ok := tables.PeakBandwidth[deviceName]
	if !ok {
		return nil, errs.New(errs.Lookup, op, "no peak bandwidth known for device %q", deviceName)
	}

	counts, err := EvalOpCounts(e, longDimLength)
	if err != nil {
		return nil, errs.Wrap(errs.Validation, op, err)
	}
	gbytes, err := Footprint(e).Eval(SizeEnv(e, longDimLength))
	if err != nil {
		return nil, errs.Wrap(errs.Validation, op, err)
	}

	out := make([]Performance, 0, len(counts))
	for _, dt := range slices.SortedFunc(maps.Keys(counts), byItemSize) {
		peak, ok := peaks[dt.String()]
		if !ok {
			return nil, errs.New(errs.Lookup, op, "no peak GFLOP/s known for %s on device %q", dt, deviceName)
		}
		ops := counts[dt]
		out = append(out, Performance{
			DType:    dt,
			GigaOps:  ops,
			Measured: ops / runtime,
			Roofline: ops / max(ops/peak, gbytes/bandwidth),
		})
	}
	return out, nil
}

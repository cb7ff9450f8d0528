// Package webgpu runs generated WGSL kernels through go-webgpu
// (github.com/go-webgpu/webgpu), the zero-CGO WebGPU binding.
//
// The native backend is only built on Windows; elsewhere Open reports the
// backend as unsupported.
package webgpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/born-ml/feinsum/internal/kernel"
)

// minBufferSize keeps zero-element arguments bindable.
const minBufferSize = 4

// PackParams lays out the Params uniform of a generated kernel: the
// invocation count followed by the size parameters in program order, as
// little-endian u32 values padded to 16 bytes.
func PackParams(prog kernel.Program, sizes map[string]int) ([]byte, error) {
	threads, err := prog.Threads(sizes)
	if err != nil {
		return nil, err
	}
	values := make([]int, 0, 1+len(prog.SizeParams))
	values = append(values, threads)
	for _, p := range prog.SizeParams {
		v, ok := sizes[p]
		if !ok {
			return nil, fmt.Errorf("no value for size parameter %s", p)
		}
		values = append(values, v)
	}

	size := (4*len(values) + 15) &^ 15
	out := make([]byte, size)
	for i, v := range values {
		if v < 0 || uint64(v) > math.MaxUint32 {
			return nil, fmt.Errorf("value %d does not fit a u32", v)
		}
		binary.LittleEndian.PutUint32(out[4*i:], uint32(v))
	}
	return out, nil
}

// ArgBytes returns the buffer size of one kernel argument.
func ArgBytes(arg kernel.Arg, sizes map[string]int) (uint64, error) {
	n, err := kernel.Elements(arg.Shape, sizes)
	if err != nil {
		return 0, fmt.Errorf("argument %s: %w", arg.Name, err)
	}
	bytes := uint64(n) * uint64(arg.DType.Size())
	if bytes < minBufferSize {
		bytes = minBufferSize
	}
	return bytes, nil
}

// MaxWorkgroupsPerDimension is the WebGPU default limit on each
// dimension of a dispatch.
const MaxWorkgroupsPerDimension = 65535

// Workgroups returns the dispatch grid that covers every invocation of
// prog. Counts above MaxWorkgroupsPerDimension fold into rows of the y
// dimension; generated kernels recover the flat index from both.
func Workgroups(prog kernel.Program, sizes map[string]int) ([3]uint32, error) {
	threads, err := prog.Threads(sizes)
	if err != nil {
		return [3]uint32{}, err
	}
	per := int(prog.WorkgroupSize[0])
	if per == 0 {
		per = 1
	}
	groups := (threads + per - 1) / per
	x := min(groups, MaxWorkgroupsPerDimension)
	if x == 0 {
		return [3]uint32{0, 1, 1}, nil
	}
	y := (groups + x - 1) / x
	if y > MaxWorkgroupsPerDimension {
		return [3]uint32{}, fmt.Errorf("%d workgroups exceed the dispatch limit", groups)
	}
	//nolint:gosec // G115: both dimensions are bounded by MaxWorkgroupsPerDimension
	return [3]uint32{uint32(x), uint32(y), 1}, nil
}

package measure

import "maps"

// Tables holds the static peak-performance data of known devices, keyed
// by the device display name.
type Tables struct {
	// PeakGFlops maps device name to dtype name to peak GFLOP/s.
	PeakGFlops map[string]map[string]float64 `yaml:"peak_gflops"`
	// PeakBandwidth maps device name to peak memory bandwidth in GB/s.
	PeakBandwidth map[string]float64 `yaml:"peak_bandwidth"`
}

// DefaultTables returns the vendor-published peaks of common compute GPUs.
func DefaultTables() Tables {
	return Tables{
		PeakGFlops: map[string]map[string]float64{
			"NVIDIA TITAN V": {
				"float16": 29800, "float32": 14900, "float64": 7450,
			},
			"Tesla V100-SXM2-16GB": {
				"float16": 31400, "float32": 15700, "float64": 7800,
			},
			"NVIDIA A100-SXM4-40GB": {
				"float16": 78000, "float32": 19500, "float64": 9700,
			},
			"NVIDIA GeForce RTX 3090": {
				"float16": 35580, "float32": 35580, "float64": 556,
			},
			"AMD Instinct MI100": {
				"float16": 184600, "float32": 23100, "float64": 11500,
			},
		},
		PeakBandwidth: map[string]float64{
			"NVIDIA TITAN V":          652.8,
			"Tesla V100-SXM2-16GB":    900,
			"NVIDIA A100-SXM4-40GB":   1555,
			"NVIDIA GeForce RTX 3090": 936.2,
			"AMD Instinct MI100":      1228.8,
		},
	}
}

// Merge returns t with the entries of override added. Override entries
// win per device and dtype.
func (t Tables) Merge(override Tables) Tables {
	out := Tables{
		PeakGFlops:    make(map[string]map[string]float64, len(t.PeakGFlops)),
		PeakBandwidth: maps.Clone(t.PeakBandwidth),
	}
	if out.PeakBandwidth == nil {
		out.PeakBandwidth = make(map[string]float64)
	}
	for dev, peaks := range t.PeakGFlops {
		out.PeakGFlops[dev] = maps.Clone(peaks)
	}
	for dev, peaks := range override.PeakGFlops {
		if out.PeakGFlops[dev] == nil {
			out.PeakGFlops[dev] = make(map[string]float64, len(peaks))
		}
		maps.Copy(out.PeakGFlops[dev], peaks)
	}
	maps.Copy(out.PeakBandwidth, override.PeakBandwidth)
	return out
}

package archive

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/born-ml/feinsum/internal/errs"
)

// Metrics counts recordings. A nil *Metrics records nothing.
type Metrics struct {
	recordings *prometheus.CounterVec
	failures   *prometheus.CounterVec
	runtime    *prometheus.HistogramVec
}

// NewMetrics registers the archive metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		recordings: f.NewCounterVec(prometheus.CounterOpts{
			Name: "feinsum_recordings_total",
			Help: "Total number of archived recordings",
		}, []string{"device"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "feinsum_recording_failures_total",
			Help: "Total number of failed recordings by error kind",
		}, []string{"kind"}),
		runtime: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "feinsum_kernel_runtime_seconds",
			Help:    "Measured runtime of recorded kernels",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12),
		}, []string{"device"}),
	}
}

func (m *Metrics) observe(deviceName string, runtime float64, err error) {
	if m == nil {
		return
	}
	if err != nil {
		kind := "other"
		if k := errs.KindOf(err); k != 0 {
			kind = k.String()
		}
		m.failures.WithLabelValues(kind).Inc()
		return
	}
	m.recordings.WithLabelValues(deviceName).Inc()
	m.runtime.WithLabelValues(deviceName).Observe(runtime)
}

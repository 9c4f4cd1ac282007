package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/duraqio/duraq/internal/metrics"
	"github.com/duraqio/duraq/internal/storage"
)

// storageMetrics is the Prometheus implementation of storage.Metrics.
type storageMetrics struct {
	fsyncDuration   prometheus.Histogram
	durationBehind  prometheus.Histogram
	fsyncErrorTotal *prometheus.CounterVec
}

// NewStorageMetrics creates a Prometheus-backed storage.Metrics. Returns
// storage.NullMetrics when the registry has not been initialized, so
// callers get zero overhead without a nil check at every call site.
func NewStorageMetrics() storage.Metrics {
	if !metrics.IsEnabled() {
		return storage.NullMetrics{}
	}
	reg := metrics.GetRegistry()

	return &storageMetrics{
		fsyncDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name: "duraq_storage_fsync_duration_milliseconds",
			Help: "Wall time of a single fsync call.",
			Buckets: []float64{
				0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000, 5000,
			},
		}),
		durationBehind: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name: "duraq_storage_duration_behind_milliseconds",
			Help: "How far a resolved write promise lagged behind one fsync period.",
			Buckets: []float64{
				0, 1, 5, 10, 50, 100, 500, 1000, 5000,
			},
		}),
		fsyncErrorTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "duraq_storage_fsync_errors_total",
			Help: "Fsync failures by error classification.",
		}, []string{"kind"}),
	}
}

func (m *storageMetrics) ObserveFsyncDuration(d time.Duration) {
	m.fsyncDuration.Observe(float64(d.Microseconds()) / 1000.0)
}

func (m *storageMetrics) ObserveDurationBehind(d time.Duration) {
	m.durationBehind.Observe(float64(d.Microseconds()) / 1000.0)
}

func (m *storageMetrics) IncFsyncError(kind string) {
	m.fsyncErrorTotal.WithLabelValues(kind).Inc()
}

var _ storage.Metrics = (*storageMetrics)(nil)

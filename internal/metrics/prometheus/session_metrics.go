package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/duraqio/duraq/internal/metrics"
	"github.com/duraqio/duraq/internal/session"
)

// sessionMetrics is the Prometheus implementation of session.Metrics.
type sessionMetrics struct {
	commandTotal *prometheus.CounterVec
	setLatency   prometheus.Histogram
	queueLatency *prometheus.HistogramVec
}

// NewSessionMetrics creates a Prometheus-backed session.Metrics. Returns
// session.NullMetrics when the registry has not been initialized.
func NewSessionMetrics() session.Metrics {
	if !metrics.IsEnabled() {
		return session.NullMetrics{}
	}
	reg := metrics.GetRegistry()

	return &sessionMetrics{
		commandTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "duraq_session_commands_total",
			Help: "Wire commands processed, by command name.",
		}, []string{"command"}),
		setLatency: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name: "duraq_session_set_latency_milliseconds",
			Help: "End-to-end latency of a set command, including the fsync wait.",
			Buckets: []float64{
				0.5, 1, 5, 10, 50, 100, 500, 1000, 5000,
			},
		}),
		queueLatency: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name: "duraq_session_queue_latency_milliseconds",
			Help: "End-to-end latency of a set command, by queue.",
			Buckets: []float64{
				1, 10, 100, 1000, 10000, 60000,
			},
		}, []string{"queue"}),
	}
}

func (m *sessionMetrics) IncCommand(command string) {
	m.commandTotal.WithLabelValues(command).Inc()
}

func (m *sessionMetrics) ObserveSetLatency(d time.Duration) {
	m.setLatency.Observe(float64(d.Microseconds()) / 1000.0)
}

func (m *sessionMetrics) ObserveQueueLatency(queueName string, d time.Duration) {
	m.queueLatency.WithLabelValues(queueName).Observe(float64(d.Microseconds()) / 1000.0)
}

var _ session.Metrics = (*sessionMetrics)(nil)

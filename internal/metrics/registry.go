// Package metrics owns the process-wide Prometheus registry lifecycle.
// Concrete metric collectors live in internal/metrics/prometheus and
// implement the Metrics interfaces internal/storage and internal/session
// already define, so neither core package imports Prometheus directly.
package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	enabled  atomic.Bool
	mu       sync.Mutex
	registry *prometheus.Registry
)

// InitRegistry creates the process-wide registry and enables metrics
// collection. Safe to call once at startup; a second call is a no-op.
func InitRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()
	if registry != nil {
		return registry
	}
	registry = prometheus.NewRegistry()
	enabled.Store(true)
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return enabled.Load()
}

// GetRegistry returns the process-wide registry, or nil if metrics were
// never initialized.
func GetRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()
	return registry
}

// ResetForTesting clears registry state so tests can exercise both the
// disabled and enabled paths in isolation. Not for use outside tests.
func ResetForTesting() {
	mu.Lock()
	defer mu.Unlock()
	registry = nil
	enabled.Store(false)
}

package prometheus

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/duraqio/duraq/internal/metrics"
	"github.com/duraqio/duraq/internal/session"
)

func TestNewSessionMetrics_DisabledReturnsNull(t *testing.T) {
	metrics.ResetForTesting()
	t.Cleanup(metrics.ResetForTesting)

	m := NewSessionMetrics()
	if _, ok := m.(session.NullMetrics); !ok {
		t.Fatalf("expected NullMetrics when disabled, got %T", m)
	}
}

func TestNewSessionMetrics_EnabledRecordsObservations(t *testing.T) {
	metrics.ResetForTesting()
	t.Cleanup(metrics.ResetForTesting)
	metrics.InitRegistry()

	m := NewSessionMetrics()
	m.IncCommand("get")
	m.IncCommand("get")
	m.ObserveSetLatency(10 * time.Millisecond)
	m.ObserveQueueLatency("orders", 25*time.Millisecond)

	sm, ok := m.(*sessionMetrics)
	if !ok {
		t.Fatalf("expected *sessionMetrics, got %T", m)
	}
	if got := testutil.ToFloat64(sm.commandTotal.WithLabelValues("get")); got != 2 {
		t.Fatalf("expected 2 get commands, got %v", got)
	}
}

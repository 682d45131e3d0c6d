package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCartSyncMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCartSyncMetrics(reg)

	m.ObserveFetch(10*time.Millisecond, nil)
	m.ObserveFetch(10*time.Millisecond, errors.New("down"))
	m.ObserveWrite(5*time.Millisecond, nil)
	m.IncReconcile("merge")
	m.IncReconcile("")
	m.IncCoalesced()
	m.IncCoalesced()
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()

	if got := testutil.ToFloat64(m.remoteFetch.WithLabelValues(OutcomeSuccess)); got != 1 {
		t.Fatalf("expected one successful fetch, got %v", got)
	}
	if got := testutil.ToFloat64(m.remoteFetch.WithLabelValues(OutcomeFailure)); got != 1 {
		t.Fatalf("expected one failed fetch, got %v", got)
	}
	if got := testutil.ToFloat64(m.remoteWrite.WithLabelValues(OutcomeSuccess)); got != 1 {
		t.Fatalf("expected one write, got %v", got)
	}
	if got := testutil.ToFloat64(m.reconcile.WithLabelValues("unknown")); got != 1 {
		t.Fatalf("empty mode should be labelled unknown, got %v", got)
	}
	if got := testutil.ToFloat64(m.coalesced); got != 2 {
		t.Fatalf("expected two coalesced mutations, got %v", got)
	}
	if got := testutil.ToFloat64(m.sessions); got != 1 {
		t.Fatalf("expected one active session, got %v", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *CartSyncMetrics
	m.ObserveFetch(time.Second, nil)
	m.ObserveWrite(time.Second, nil)
	m.IncReconcile("replace")
	m.IncCoalesced()
	m.SessionOpened()
	m.SessionClosed()

	unregistered := NewCartSyncMetrics(nil)
	unregistered.ObserveFetch(time.Second, nil)
	unregistered.SessionClosed()
}

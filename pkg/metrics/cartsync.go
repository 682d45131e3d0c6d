package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// CartSyncMetrics records remote cart traffic and reconciliation activity.
type CartSyncMetrics struct {
	remoteFetch    *prometheus.CounterVec
	remoteWrite    *prometheus.CounterVec
	remoteDuration *prometheus.HistogramVec
	reconcile      *prometheus.CounterVec
	coalesced      prometheus.Counter
	sessions       prometheus.Gauge
}

// NewCartSyncMetrics registers the cart sync metrics on the provided registerer.
func NewCartSyncMetrics(reg prometheus.Registerer) *CartSyncMetrics {
	if reg == nil {
		return &CartSyncMetrics{}
	}
	remoteFetch := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_remote_fetch_total",
		Help: "Remote cart fetches by outcome.",
	}, []string{"outcome"})
	remoteWrite := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_remote_write_total",
		Help: "Debounced remote cart writes by outcome.",
	}, []string{"outcome"})
	remoteDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_remote_request_duration_seconds",
		Help:    "Duration of remote cart calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	reconcile := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_reconcile_total",
		Help: "Cart reconciliations by mode (merge, replace).",
	}, []string{"mode"})
	coalesced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_sync_coalesced_total",
		Help: "Cart mutations folded into an already pending remote write.",
	})
	sessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_active_sessions",
		Help: "Browser sessions currently held in memory.",
	})
	reg.MustRegister(remoteFetch, remoteWrite, remoteDuration, reconcile, coalesced, sessions)
	return &CartSyncMetrics{
		remoteFetch:    remoteFetch,
		remoteWrite:    remoteWrite,
		remoteDuration: remoteDuration,
		reconcile:      reconcile,
		coalesced:      coalesced,
		sessions:       sessions,
	}
}

// ObserveFetch records a remote cart fetch.
func (m *CartSyncMetrics) ObserveFetch(duration time.Duration, err error) {
	if m == nil || m.remoteFetch == nil {
		return
	}
	m.remoteFetch.WithLabelValues(outcome(err)).Inc()
	m.remoteDuration.WithLabelValues("fetch").Observe(duration.Seconds())
}

// ObserveWrite records a remote cart write.
func (m *CartSyncMetrics) ObserveWrite(duration time.Duration, err error) {
	if m == nil || m.remoteWrite == nil {
		return
	}
	m.remoteWrite.WithLabelValues(outcome(err)).Inc()
	m.remoteDuration.WithLabelValues("write").Observe(duration.Seconds())
}

// IncReconcile counts a reconciliation in the given mode.
func (m *CartSyncMetrics) IncReconcile(mode string) {
	if m == nil || m.reconcile == nil {
		return
	}
	if mode == "" {
		mode = "unknown"
	}
	m.reconcile.WithLabelValues(mode).Inc()
}

// IncCoalesced counts a mutation that restarted a pending debounce window.
func (m *CartSyncMetrics) IncCoalesced() {
	if m == nil || m.coalesced == nil {
		return
	}
	m.coalesced.Inc()
}

// SessionOpened bumps the active session gauge.
func (m *CartSyncMetrics) SessionOpened() {
	if m == nil || m.sessions == nil {
		return
	}
	m.sessions.Inc()
}

// SessionClosed lowers the active session gauge.
func (m *CartSyncMetrics) SessionClosed() {
	if m == nil || m.sessions == nil {
		return
	}
	m.sessions.Dec()
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

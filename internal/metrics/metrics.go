// Package metrics holds the prometheus collectors of the fund service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use through a nil pointer; every helper is then a no-op.
type Metrics struct {
	registry      *prometheus.Registry
	apiRequests   *prometheus.CounterVec
	apiLatency    *prometheus.HistogramVec
	initiations   *prometheus.CounterVec
	confirmations *prometheus.CounterVec
	sessions      prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_api_requests_total",
			Help: "Wallet API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wallet_api_request_duration_seconds",
			Help:    "Wallet API request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		initiations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deposit_initiations_total",
			Help: "Deposit initiations by channel and outcome.",
		}, []string{"channel", "outcome"}),
		confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deposit_confirmations_total",
			Help: "Deposit confirmations by outcome.",
		}, []string{"outcome"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fund_sessions_open",
			Help: "Open fund screen sessions.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests,
		m.apiLatency,
		m.initiations,
		m.confirmations,
		m.sessions,
	)
	return m
}

// ObserveRequest records one wallet API call.
func (m *Metrics) ObserveRequest(endpoint, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(endpoint, outcome).Inc()
	m.apiLatency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

func (m *Metrics) DepositInitiated(channel, outcome string) {
	if m == nil {
		return
	}
	m.initiations.WithLabelValues(channel, outcome).Inc()
}

func (m *Metrics) DepositConfirmed(outcome string) {
	if m == nil {
		return
	}
	m.confirmations.WithLabelValues(outcome).Inc()
}

// SetSessions publishes the number of open screen sessions.
func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.sessions.Set(float64(n))
}

// Handler exposes the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

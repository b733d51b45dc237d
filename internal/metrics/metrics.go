// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Event outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestDuration *prometheus.HistogramVec

	// Account metrics
	AccountEventsTotal *prometheus.CounterVec
	TokensRevokedTotal prometheus.Counter

	// Database metrics
	DBConnectionsTotal    prometheus.Gauge
	DBConnectionsAcquired prometheus.Gauge
	DBConnectionsIdle     prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "A histogram of request latencies.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "code"},
		),
		AccountEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "account_events_total",
				Help: "Account operations by event and outcome",
			},
			[]string{"event", "outcome"},
		),
		TokensRevokedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "account_tokens_revoked_total",
				Help: "Bearer tokens revoked by logout or refresh",
			},
		),
		DBConnectionsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "db_pool_connections_total",
			Help: "Connections currently held by the pool",
		}),
		DBConnectionsAcquired: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "db_pool_connections_acquired",
			Help: "Connections currently checked out of the pool",
		}),
		DBConnectionsIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "db_pool_connections_idle",
			Help: "Idle connections in the pool",
		}),
	}

	registry.MustRegister(
		m.HTTPRequestDuration,
		m.AccountEventsTotal,
		m.TokensRevokedTotal,
		m.DBConnectionsTotal,
		m.DBConnectionsAcquired,
		m.DBConnectionsIdle,
	)

	return m
}

// RecordEvent counts one account operation. Safe on a nil receiver.
func (m *Metrics) RecordEvent(event string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.AccountEventsTotal.WithLabelValues(event, outcome).Inc()
}

// RecordRevocation counts one revoked token. Safe on a nil receiver.
func (m *Metrics) RecordRevocation() {
	if m == nil {
		return
	}
	m.TokensRevokedTotal.Inc()
}

// SetPoolStats publishes connection pool gauges. Safe on a nil receiver.
func (m *Metrics) SetPoolStats(total, acquired, idle int32) {
	if m == nil {
		return
	}
	m.DBConnectionsTotal.Set(float64(total))
	m.DBConnectionsAcquired.Set(float64(acquired))
	m.DBConnectionsIdle.Set(float64(idle))
}

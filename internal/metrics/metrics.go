// Package metrics exposes Prometheus instrumentation for the registrar.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registration outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeLocalOnly = "local_only" // persisted locally, on-chain submit failed
	OutcomeFailed    = "failed"
)

// Metrics holds the Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	httpInFlight  prometheus.Gauge
	registrations *prometheus.CounterVec
	chainDuration prometheus.Histogram
}

// New creates a metrics set on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "registrar_http_requests_total",
			Help: "HTTP requests by method, path, and status.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "registrar_http_request_duration_seconds",
			Help:    "HTTP request duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "registrar_http_in_flight_requests",
			Help: "Requests currently being served.",
		}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "registrar_registrations_total",
			Help: "Registration submissions by outcome.",
		}, []string{"outcome"}),
		chainDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "registrar_chain_submit_duration_seconds",
			Help:    "On-chain submission duration.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}

	registry.MustRegister(m.httpRequests, m.httpDuration, m.httpInFlight, m.registrations, m.chainDuration)
	return m
}

// Handler serves the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// IncrementInFlight marks a request as in flight.
func (m *Metrics) IncrementInFlight() { m.httpInFlight.Inc() }

// DecrementInFlight marks a request as finished.
func (m *Metrics) DecrementInFlight() { m.httpInFlight.Dec() }

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, path, status).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordRegistration records a registration submission outcome.
func (m *Metrics) RecordRegistration(outcome string) {
	m.registrations.WithLabelValues(outcome).Inc()
}

// RecordChainSubmit records the duration of an on-chain submission attempt.
func (m *Metrics) RecordChainSubmit(duration time.Duration) {
	m.chainDuration.Observe(duration.Seconds())
}

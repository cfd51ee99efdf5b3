// Package metrics holds the Prometheus collectors of the API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"narsus/internal/scoring"
)

// Metrics owns a registry and every collector registered on it
type Metrics struct {
	registry *prometheus.Registry

	RequestCounter  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	AttemptsSubmitted prometheus.Counter
	Outcomes          *prometheus.CounterVec
	ScoringDuration   prometheus.Histogram
}

// New creates the collectors and registers them with a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		),
		AttemptsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "narsus_attempts_submitted_total",
			Help: "Survey attempts scored and submitted",
		}),
		Outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "narsus_outcomes_total",
				Help: "Course outcome categories assigned at submission",
			},
			[]string{"outcome"},
		),
		ScoringDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "narsus_scoring_duration_seconds",
			Help:    "Time spent in the scoring pass of a submission",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestCounter,
		m.RequestDuration,
		m.AttemptsSubmitted,
		m.Outcomes,
		m.ScoringDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveRequest records one finished HTTP request
func (m *Metrics) ObserveRequest(method, route, status string, d time.Duration) {
	m.RequestCounter.WithLabelValues(method, route, status).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// AttemptSubmitted records one successful submission and its outcomes
func (m *Metrics) AttemptSubmitted(outcomes map[string]scoring.OutcomeCategory, took time.Duration) {
	m.AttemptsSubmitted.Inc()
	m.ScoringDuration.Observe(took.Seconds())
	for _, o := range outcomes {
		m.Outcomes.WithLabelValues(string(o)).Inc()
	}
}

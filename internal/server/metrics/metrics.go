// Package metrics exposes Prometheus collectors for account operation
// outcomes and gRPC traffic.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests and multiple servers don't clash.
type Metrics struct {
	Registry *prometheus.Registry

	outcomes    *prometheus.CounterVec
	rpcRequests *prometheus.CounterVec
	rpcDuration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "accountkeeper",
				Subsystem: "accounts",
				Name:      "operations_total",
				Help:      "Account operations by operation and business outcome.",
			},
			[]string{"operation", "outcome"},
		),
		rpcRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "accountkeeper",
				Subsystem: "grpc",
				Name:      "requests_total",
				Help:      "Total number of gRPC requests handled.",
			},
			[]string{"method", "code"},
		),
		rpcDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "accountkeeper",
				Subsystem: "grpc",
				Name:      "request_duration_seconds",
				Help:      "Duration of gRPC requests.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
			},
			[]string{"method"},
		),
	}

	m.Registry.MustRegister(
		m.outcomes,
		m.rpcRequests,
		m.rpcDuration,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

// Observe counts one finished account operation.
func (m *Metrics) Observe(operation, outcome string) {
	m.outcomes.WithLabelValues(operation, outcome).Inc()
}

// ObserveRPC records a finished gRPC call.
func (m *Metrics) ObserveRPC(method, code string, elapsed time.Duration) {
	m.rpcRequests.WithLabelValues(method, code).Inc()
	m.rpcDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// Handler returns an HTTP handler exposing the registered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

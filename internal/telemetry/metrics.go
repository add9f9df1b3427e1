// Package telemetry wires the ambient observability stack -- Prometheus
// counters/histograms and an OpenTelemetry tracer -- around the
// interceptor tree and pump. None of this is protocol behavior; it is
// carried regardless of which proxy features are in scope, because
// ambient logging/telemetry concerns aren't tied to any one feature.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the counters and histograms the pump and interceptor
// tree record against. A Metrics is constructed with its own registry
// (never the global default) so a Guardian process embedding multiple
// sessions in tests never collides on metric registration.
type Metrics struct {
	MessagesTotal    *prometheus.CounterVec
	MessagesDropped  *prometheus.CounterVec
	ApprovalWaitSecs *prometheus.HistogramVec
	ApprovalsPending prometheus.Gauge
}

// NewMetrics registers and returns a Metrics bound to reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		MessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mcp_guardian",
			Name:      "messages_total",
			Help:      "Total messages observed by the pump, labeled by direction and kind.",
		}, []string{"direction", "kind"}),
		MessagesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mcp_guardian",
			Name:      "messages_dropped_total",
			Help:      "Total messages dropped by an interceptor, labeled by direction.",
		}, []string{"direction"}),
		ApprovalWaitSecs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mcp_guardian",
			Name:      "approval_wait_seconds",
			Help:      "Time spent waiting for a manual approval decision.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"outcome"}),
		ApprovalsPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mcp_guardian",
			Name:      "approvals_pending",
			Help:      "Number of approval requests currently awaiting a decision.",
		}),
	}

	reg.MustRegister(m.MessagesTotal, m.MessagesDropped, m.ApprovalWaitSecs, m.ApprovalsPending)
	return m
}

// NewRegistry creates a fresh Prometheus registry with the standard Go
// process/runtime collectors registered alongside the Guardian-specific
// ones.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	return reg
}

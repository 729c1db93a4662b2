// Package metrics exposes Prometheus metrics for the RPC router, the node
// proxy hop, group triggers, TV sessions and event sinks.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/winstonhome/winston/internal/bridges/samsung"
	"github.com/winstonhome/winston/internal/channel"
	"github.com/winstonhome/winston/internal/group"
)

const namespace = "winston"

// Metrics holds the collectors of one daemon.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	ProxyRequests     *prometheus.CounterVec
	TriggerExecutions *prometheus.CounterVec
	TVSessionState    *prometheus.GaugeVec
	EventsPublished   *prometheus.CounterVec
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "RPC requests by operation and outcome",
			},
			[]string{"op", "outcome"},
		),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "RPC request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),

		ProxyRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "proxy",
				Name:      "requests_total",
				Help:      "Requests forwarded to nodes by node and result",
			},
			[]string{"node", "result"},
		),

		TriggerExecutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "group",
				Name:      "trigger_executions_total",
				Help:      "Group trigger executions by group and status",
			},
			[]string{"group", "status"},
		),

		TVSessionState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "tv",
				Name:      "session_state",
				Help:      "TV session state (0=disconnected, 1=connecting, 2=connected, 3=authenticated)",
			},
			[]string{"tv"},
		),

		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "events",
				Name:      "published_total",
				Help:      "Events delivered to sinks by sink and result",
			},
			[]string{"sink", "result"},
		),
	}

	m.registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ProxyRequests,
		m.TriggerExecutions,
		m.TVSessionState,
		m.EventsPublished,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RequestHandled records one routed request.
func (m *Metrics) RequestHandled(op string, kind channel.Kind, elapsed time.Duration) {
	outcome := "ok"
	if kind != channel.KindNone {
		outcome = kind.String()
	}
	m.RequestsTotal.WithLabelValues(op, outcome).Inc()
	m.RequestDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ProxyForwarded records one node hop.
func (m *Metrics) ProxyForwarded(node string, err error) {
	m.ProxyRequests.WithLabelValues(node, result(err)).Inc()
}

// TriggerFired records one trigger execution.
func (m *Metrics) TriggerFired(_ context.Context, exec group.Execution) {
	m.TriggerExecutions.WithLabelValues(exec.Group, string(exec.Status)).Inc()
}

// TVStateChanged records a TV session transition.
func (m *Metrics) TVStateChanged(tv string, _, to samsung.State) {
	m.TVSessionState.WithLabelValues(tv).Set(float64(to))
}

// EventPublished records one delivery attempt to an event sink.
func (m *Metrics) EventPublished(sink string, err error) {
	m.EventsPublished.WithLabelValues(sink, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

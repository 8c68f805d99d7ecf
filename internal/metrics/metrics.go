// Package metrics exposes Prometheus counters for call issuance, dial-out,
// session lifecycle, and room teardown.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics holds all collectors, registered on a private registry so tests
// can create isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	ConnectionsIssued *prometheus.CounterVec // result=ok|error
	DialOuts          *prometheus.CounterVec // result=ok|error
	RoomDeletions     *prometheus.CounterVec // result=ok|error
	CallsStarted      prometheus.Counter
	CallStartFailures prometheus.Counter
	ActiveSessions    prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ConnectionsIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dialbridge_connections_issued_total",
			Help: "Connection credential requests, by result.",
		}, []string{"result"}),
		DialOuts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dialbridge_dialouts_total",
			Help: "SIP dial-out initiations, by result.",
		}, []string{"result"}),
		RoomDeletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dialbridge_room_deletions_total",
			Help: "Server-side room deletions, by result.",
		}, []string{"result"}),
		CallsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dialbridge_calls_started_total",
			Help: "Call sessions successfully started.",
		}),
		CallStartFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dialbridge_call_start_failures_total",
			Help: "Call session starts that aborted before going live.",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dialbridge_active_sessions",
			Help: "Call sessions currently live.",
		}),
	}

	m.registry.MustRegister(
		m.ConnectionsIssued,
		m.DialOuts,
		m.RoomDeletions,
		m.CallsStarted,
		m.CallStartFailures,
		m.ActiveSessions,
	)
	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

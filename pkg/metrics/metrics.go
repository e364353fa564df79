// Package metrics exposes chat server counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the server's collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry
	start    time.Time

	connections    prometheus.Counter
	activeSessions prometheus.Gauge
	commands       *prometheus.CounterVec
	logins         *prometheus.CounterVec
	messages       *prometheus.CounterVec
	registrations  prometheus.Counter
	kills          prometheus.Counter
	persistErrors  *prometheus.CounterVec
}

// New creates and registers the collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		start:    time.Now(),
		connections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "campuschat",
			Name:      "connections_total",
			Help:      "Connections accepted since start.",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "campuschat",
			Name:      "active_sessions",
			Help:      "Connections currently open.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "campuschat",
			Name:      "commands_total",
			Help:      "Commands dispatched, by verb and origin.",
		}, []string{"command", "origin"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "campuschat",
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "campuschat",
			Name:      "messages_total",
			Help:      "Chat messages by delivery path (direct, queued, drained).",
		}, []string{"delivery"}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "campuschat",
			Name:      "registrations_total",
			Help:      "Users registered since start.",
		}),
		kills: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "campuschat",
			Name:      "kills_total",
			Help:      "Sessions terminated by a technician.",
		}),
		persistErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "campuschat",
			Name:      "persist_errors_total",
			Help:      "Failed flushes of a store.",
		}, []string{"store"}),
	}

	m.registry.MustRegister(
		m.connections,
		m.activeSessions,
		m.commands,
		m.logins,
		m.messages,
		m.registrations,
		m.kills,
		m.persistErrors,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// StartTime returns when the collectors were created
func (m *Metrics) StartTime() time.Time {
	if m == nil {
		return time.Time{}
	}
	return m.start
}

// ConnectionOpened records an accepted connection
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
	m.activeSessions.Inc()
}

// ConnectionClosed records a finished connection
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}

// Command records a dispatched command
func (m *Metrics) Command(command, origin string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(command, origin).Inc()
}

// Login records a login attempt
func (m *Metrics) Login(ok bool) {
	if m == nil {
		return
	}
	result := "fail"
	if ok {
		result = "success"
	}
	m.logins.WithLabelValues(result).Inc()
}

// Message records a message by delivery path
func (m *Metrics) Message(delivery string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.messages.WithLabelValues(delivery).Add(float64(n))
}

// Registered records a new user
func (m *Metrics) Registered() {
	if m == nil {
		return
	}
	m.registrations.Inc()
}

// Killed records n terminated sessions
func (m *Metrics) Killed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.kills.Add(float64(n))
}

// PersistError records a failed store flush
func (m *Metrics) PersistError(store string) {
	if m == nil {
		return
	}
	m.persistErrors.WithLabelValues(store).Inc()
}

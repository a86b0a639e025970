// Package metrics exposes prometheus counters for the event listener.
//
// All methods are safe on a nil *Metrics so callers that do not care about
// metrics can pass nil.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "nest_events"

// Metrics holds the collectors registered on one registry.
type Metrics struct {
	Registry *prometheus.Registry

	streamConnects *prometheus.CounterVec
	streamLines    prometheus.Counter
	events         *prometheus.CounterVec
	notifications  *prometheus.CounterVec
	lastEvent      prometheus.Gauge
}

// New creates a registry with process/Go collectors and the listener metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

// NewWithRegistry registers the listener metrics on reg only.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		streamConnects: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_connects_total",
			Help:      "Event stream connection attempts by result (ok, error).",
		}, []string{"result"}),
		streamLines: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_lines_total",
			Help:      "Lines read from the event stream.",
		}),
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "camera_decisions_total",
			Help:      "Classifier decisions per camera observation, by outcome.",
		}, []string{"outcome"}),
		notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries by result (sent, failed, dropped).",
		}, []string{"result"}),
		lastEvent: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_notification_timestamp_seconds",
			Help:      "Unix time of the last person notification attempt.",
		}),
	}
}

func (m *Metrics) StreamConnected() {
	if m == nil {
		return
	}
	m.streamConnects.WithLabelValues("ok").Inc()
}

func (m *Metrics) StreamFailed() {
	if m == nil {
		return
	}
	m.streamConnects.WithLabelValues("error").Inc()
}

func (m *Metrics) LineRead() {
	if m == nil {
		return
	}
	m.streamLines.Inc()
}

// Decision counts one classifier outcome, e.g. "notify" or "debounced".
func (m *Metrics) Decision(outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(outcome).Inc()
}

// Notification counts one delivery result and stamps the last-attempt gauge.
func (m *Metrics) Notification(result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(result).Inc()
	m.lastEvent.SetToCurrentTime()
}

package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ent0n29/voiceagent/internal/interaction"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveSessions prometheus.Gauge
	SessionEvents  *prometheus.CounterVec
	WSMessages     *prometheus.CounterVec
	WSWriteErrors  prometheus.Counter
	Outbound       *prometheus.CounterVec
	Transitions    *prometheus.CounterVec
	Notifications  *prometheus.CounterVec
	AgentErrors    *prometheus.CounterVec
	AgentLatency   prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of active voice sessions.",
		}),
		SessionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session events by type.",
		}, []string{"event"}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		WSWriteErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_write_errors_total",
			Help:      "WebSocket writes that failed.",
		}),
		Outbound: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_messages_total",
			Help:      "Session messages queued for the client by type and result.",
		}, []string{"type", "result"}),
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Interaction state changes by source and target state.",
		}, []string{"from", "to"}),
		Notifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "User-visible notifications by title.",
		}, []string{"title"}),
		AgentErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_errors_total",
			Help:      "Failed reasoning-service calls by kind.",
		}, []string{"kind"}),
		AgentLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "agent_latency_ms",
			Help:      "Reasoning-service round trip in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 4000, 8000, 16000, 32000},
		}),
	}
}

// StateChanged counts state changes. Turn-only changes are ignored.
func (m *Metrics) StateChanged(from, to interaction.Snapshot) {
	if from.State == to.State {
		return
	}
	m.Transitions.WithLabelValues(string(from.State), string(to.State)).Inc()
}

func (m *Metrics) AgentCallFinished(d time.Duration, err error) {
	m.AgentLatency.Observe(float64(d.Milliseconds()))
	if err != nil {
		m.AgentErrors.WithLabelValues(ErrorKind(err)).Inc()
	}
}

func (m *Metrics) Notify(n interaction.Notification) {
	m.Notifications.WithLabelValues(n.Title).Inc()
}

func (m *Metrics) ObserveMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

func (m *Metrics) ObserveOutboundMessage(msgType, result string) {
	m.Outbound.WithLabelValues(msgType, result).Inc()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

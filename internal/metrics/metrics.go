package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chat"

// Metrics: счётчики realtime-ядра. Все методы безопасны на nil.
type Metrics struct {
	OnlineUsers      prometheus.Gauge
	OpenConnections  prometheus.Gauge
	EventsDelivered  *prometheus.CounterVec
	DeliveryFailures *prometheus.CounterVec
	MessagesSent     *prometheus.CounterVec
	PresenceChanges  *prometheus.CounterVec
	ReadMarks        prometheus.Counter
	PresenceDropped  prometheus.Counter
}

// New регистрирует метрики в reg; nil: глобальный prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		OnlineUsers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_users",
			Help:      "Users with at least one live connection",
		}),
		OpenConnections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_connections",
			Help:      "Live realtime connections",
		}),
		EventsDelivered: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_delivered_total",
			Help:      "Events written to live connections",
		}, []string{"type"}),
		DeliveryFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_failures_total",
			Help:      "Failed writes to live connections",
		}, []string{"type"}),
		MessagesSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Persisted chat messages",
		}, []string{"kind"}),
		PresenceChanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "presence_changes_total",
			Help:      "Broadcast presence transitions",
		}, []string{"status"}),
		ReadMarks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "read_marks_total",
			Help:      "Messages marked as read",
		}),
		PresenceDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "presence_writes_dropped_total",
			Help:      "Presence writes dropped because the worker queue was full",
		}),
	}
}

func (m *Metrics) SetOccupancy(users, conns int) {
	if m == nil {
		return
	}
	m.OnlineUsers.Set(float64(users))
	m.OpenConnections.Set(float64(conns))
}

func (m *Metrics) Delivered(eventType string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.EventsDelivered.WithLabelValues(eventType).Add(float64(n))
}

func (m *Metrics) DeliveryFailed(eventType string) {
	if m == nil {
		return
	}
	m.DeliveryFailures.WithLabelValues(eventType).Inc()
}

func (m *Metrics) MessageSent(kind string) {
	if m == nil {
		return
	}
	m.MessagesSent.WithLabelValues(kind).Inc()
}

func (m *Metrics) PresenceChanged(status string) {
	if m == nil {
		return
	}
	m.PresenceChanges.WithLabelValues(status).Inc()
}

func (m *Metrics) MarkedRead(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ReadMarks.Add(float64(n))
}

func (m *Metrics) PresenceWriteDropped() {
	if m == nil {
		return
	}
	m.PresenceDropped.Inc()
}

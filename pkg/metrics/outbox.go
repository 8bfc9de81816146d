package metrics

import "github.com/prometheus/client_golang/prometheus"

// Relay outcomes reported by the outbox publisher.
const (
	RelayPublished = "published"
	RelayRetrying  = "retrying"
	RelayParked    = "parked"
)

// OutboxMetrics counts domain events relayed from the outbox table.
type OutboxMetrics struct {
	relayed *prometheus.CounterVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	relayed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_relayed_total",
		Help: "Outbox events handled by the publisher by event type and outcome.",
	}, []string{"event_type", "outcome"})
	reg.MustRegister(relayed)
	return &OutboxMetrics{relayed: relayed}
}

// ObserveRelay records one handled event.
func (m *OutboxMetrics) ObserveRelay(eventType, outcome string) {
	if m == nil || m.relayed == nil {
		return
	}
	m.relayed.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

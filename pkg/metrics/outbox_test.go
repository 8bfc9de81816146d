package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestOutboxMetricsCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.ObserveRelay("supplier_payout_released", RelayPublished)
	m.ObserveRelay("supplier_payout_released", RelayPublished)
	m.ObserveRelay("refund_requested", RelayParked)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "outbox_events_relayed_total", "outcome", RelayPublished); err != nil || got != 2 {
		t.Fatalf("expected two published events, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "outbox_events_relayed_total", "event_type", "refund_requested"); err != nil || got != 1 {
		t.Fatalf("expected one refund event, got %f (%v)", got, err)
	}
}

func TestNilOutboxMetricsIsSafe(t *testing.T) {
	var m *OutboxMetrics
	m.ObserveRelay("x", RelayRetrying)
	NewOutboxMetrics(nil).ObserveRelay("x", RelayParked)
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result labels shared by the fulfillment counters.
const (
	ResultReleased = "released"
	ResultNoop     = "noop"
	ResultRejected = "rejected"
	ResultSuccess  = "success"
	ResultMismatch = "mismatch"
	ResultLocked   = "locked"
	ResultInvalid  = "invalid"
)

// FulfillmentMetrics records purchase order, payout and delivery code activity.
// A zero value is safe to use and records nothing.
type FulfillmentMetrics struct {
	transitions   *prometheus.CounterVec
	payouts       *prometheus.CounterVec
	verifications *prometheus.CounterVec
	otpRequests   *prometheus.CounterVec
	duration      *prometheus.HistogramVec
}

// NewFulfillmentMetrics registers the collectors on reg.
func NewFulfillmentMetrics(reg prometheus.Registerer) *FulfillmentMetrics {
	if reg == nil {
		return &FulfillmentMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "purchase_order_transitions_total",
		Help: "Applied purchase order status transitions by target status.",
	}, []string{"to"})
	payouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "supplier_payouts_released_total",
		Help: "Payout release attempts by outcome.",
	}, []string{"result"})
	verifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "delivery_otp_verifications_total",
		Help: "Delivery code verification attempts by outcome.",
	}, []string{"result"})
	otpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "delivery_otp_requests_total",
		Help: "Delivery code issuance requests by outcome.",
	}, []string{"result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fulfillment_operation_duration_seconds",
		Help:    "Duration of fulfillment operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(transitions, payouts, verifications, otpRequests, duration)
	return &FulfillmentMetrics{
		transitions:   transitions,
		payouts:       payouts,
		verifications: verifications,
		otpRequests:   otpRequests,
		duration:      duration,
	}
}

func (m *FulfillmentMetrics) IncTransition(to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(to)).Inc()
}

func (m *FulfillmentMetrics) IncPayout(result string) {
	if m == nil || m.payouts == nil {
		return
	}
	m.payouts.WithLabelValues(normalizeLabel(result)).Inc()
}

func (m *FulfillmentMetrics) IncVerification(result string) {
	if m == nil || m.verifications == nil {
		return
	}
	m.verifications.WithLabelValues(normalizeLabel(result)).Inc()
}

func (m *FulfillmentMetrics) IncOTPRequest(result string) {
	if m == nil || m.otpRequests == nil {
		return
	}
	m.otpRequests.WithLabelValues(normalizeLabel(result)).Inc()
}

// ObserveDuration records how long the named operation took.
func (m *FulfillmentMetrics) ObserveDuration(operation string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(operation)).Observe(d.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

package enums

import "fmt"

// OutboxAggregateType names the root entity an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregatePurchaseOrder OutboxAggregateType = "purchase_order"
	AggregateRefundRequest OutboxAggregateType = "refund_request"
	AggregateAllocation    OutboxAggregateType = "supplier_payment_allocation"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregatePurchaseOrder,
	AggregateRefundRequest,
	AggregateAllocation,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType names a domain event relayed by the outbox publisher.
type OutboxEventType string

const (
	EventPurchaseOrderStatusChanged OutboxEventType = "purchase_order_status_changed"
	EventPurchaseOrderRiderAssigned OutboxEventType = "purchase_order_rider_assigned"
	EventRefundRequested            OutboxEventType = "refund_requested"
	EventSupplierPayoutReleased     OutboxEventType = "supplier_payout_released"
	EventDeliveryOTPIssued          OutboxEventType = "delivery_otp_issued"
	EventDeliveryOTPVerified        OutboxEventType = "delivery_otp_verified"
)

var validOutboxEventTypes = []OutboxEventType{
	EventPurchaseOrderStatusChanged,
	EventPurchaseOrderRiderAssigned,
	EventRefundRequested,
	EventSupplierPayoutReleased,
	EventDeliveryOTPIssued,
	EventDeliveryOTPVerified,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// OutboxDLQErrorReason records why the publisher parked an event.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) String() string {
	return string(r)
}

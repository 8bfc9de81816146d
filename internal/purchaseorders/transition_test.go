package purchaseorders

import (
	"testing"

	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
)

func TestCanTransition(t *testing.T) {
	const (
		created    = enums.PurchaseOrderStatusCreated
		pending    = enums.PurchaseOrderStatusPending
		funded     = enums.PurchaseOrderStatusFunded
		processing = enums.PurchaseOrderStatusProcessing
		confirmed  = enums.PurchaseOrderStatusConfirmed
		packed     = enums.PurchaseOrderStatusPacked
		shipped    = enums.PurchaseOrderStatusShipped
		outFor     = enums.PurchaseOrderStatusOutForDelivery
		delivered  = enums.PurchaseOrderStatusDelivered
		canceled   = enums.PurchaseOrderStatusCanceled
	)
	tests := []struct {
		from, to enums.PurchaseOrderStatus
		want     bool
	}{
		{pending, confirmed, true},
		{confirmed, packed, true},
		{packed, shipped, true},
		{shipped, delivered, true},
		{outFor, delivered, true},
		{created, confirmed, true},
		{funded, confirmed, true},
		{processing, confirmed, true},

		{pending, pending, true},
		{created, pending, true},
		{shipped, outFor, true},
		{packed, packed, true},

		{pending, packed, false},
		{packed, delivered, false},
		{confirmed, shipped, false},
		{packed, confirmed, false},
		{shipped, packed, false},

		{pending, canceled, true},
		{created, canceled, true},
		{confirmed, canceled, true},
		{packed, canceled, true},
		{shipped, canceled, false},
		{outFor, canceled, false},

		{delivered, delivered, true},
		{canceled, canceled, true},
		{delivered, canceled, false},
		{canceled, pending, false},
		{delivered, shipped, false},
		{canceled, confirmed, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestCanTransitionOnlyStepsForward(t *testing.T) {
	all := []enums.PurchaseOrderStatus{
		enums.PurchaseOrderStatusCreated,
		enums.PurchaseOrderStatusPending,
		enums.PurchaseOrderStatusFunded,
		enums.PurchaseOrderStatusProcessing,
		enums.PurchaseOrderStatusConfirmed,
		enums.PurchaseOrderStatusPacked,
		enums.PurchaseOrderStatusShipped,
		enums.PurchaseOrderStatusOutForDelivery,
		enums.PurchaseOrderStatusDelivered,
		enums.PurchaseOrderStatusCanceled,
	}
	for _, from := range all {
		for _, to := range all {
			if !CanTransition(from, to) {
				continue
			}
			nf, nt := from.Normalize(), to.Normalize()
			if nf == nt {
				continue
			}
			if nt == enums.PurchaseOrderStatusCanceled {
				if !cancelable(nf) {
					t.Errorf("cancel accepted from %s", from)
				}
				continue
			}
			if flowIndex(nt) != flowIndex(nf)+1 {
				t.Errorf("%s -> %s skips or reverses the flow", from, to)
			}
		}
	}
}

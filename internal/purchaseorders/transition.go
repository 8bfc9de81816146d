package purchaseorders

import "github.com/angelmondragon/supplyhub-backend/pkg/enums"

// CanTransition reports whether requested is reachable from current. Both
// sides are compared in normalized form.
func CanTransition(current, requested enums.PurchaseOrderStatus) bool {
	from := current.Normalize()
	to := requested.Normalize()

	if from.IsTerminal() {
		return from == to
	}
	if to == enums.PurchaseOrderStatusCanceled {
		return cancelable(from)
	}
	if from == to {
		return true
	}
	idx := flowIndex(from)
	return idx >= 0 && idx+1 < len(enums.PurchaseOrderFlow) && enums.PurchaseOrderFlow[idx+1] == to
}

// cancelable holds for states where the shipment has not left the supplier.
func cancelable(s enums.PurchaseOrderStatus) bool {
	switch s.Normalize() {
	case enums.PurchaseOrderStatusPending, enums.PurchaseOrderStatusConfirmed, enums.PurchaseOrderStatusPacked:
		return true
	}
	return false
}

// cancelNeedsAuthorization reports whether fulfillment work had begun, which
// requires a reason and an action code and triggers a refund.
func cancelNeedsAuthorization(prior enums.PurchaseOrderStatus) bool {
	switch prior.Normalize() {
	case enums.PurchaseOrderStatusConfirmed, enums.PurchaseOrderStatusPacked:
		return true
	}
	return false
}

func flowIndex(s enums.PurchaseOrderStatus) int {
	for i, step := range enums.PurchaseOrderFlow {
		if step == s {
			return i
		}
	}
	return -1
}

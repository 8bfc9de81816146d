package controllers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/supplyhub-backend/internal/payouts"
	"github.com/angelmondragon/supplyhub-backend/internal/purchaseorders"
	"github.com/angelmondragon/supplyhub-backend/internal/refunds"
	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
)

type purchaseOrderResponse struct {
	ID              uuid.UUID                 `json:"id"`
	OrderID         uuid.UUID                 `json:"order_id"`
	SupplierID      uuid.UUID                 `json:"supplier_id"`
	Status          enums.PurchaseOrderStatus `json:"status"`
	PayoutStatus    enums.PayoutStatus        `json:"payout_status"`
	RiderID         *uuid.UUID                `json:"rider_id,omitempty"`
	Subtotal        decimal.Decimal           `json:"subtotal"`
	SupplierAmount  decimal.Decimal           `json:"supplier_amount"`
	PlatformFee     decimal.Decimal           `json:"platform_fee"`
	CancelReason    *string                   `json:"cancel_reason,omitempty"`
	ConfirmedAt     *time.Time                `json:"confirmed_at,omitempty"`
	PackedAt        *time.Time                `json:"packed_at,omitempty"`
	ShippedAt       *time.Time                `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time                `json:"delivered_at,omitempty"`
	CanceledAt      *time.Time                `json:"canceled_at,omitempty"`
	PaidOutAt       *time.Time                `json:"paid_out_at,omitempty"`
	RiderAssignedAt *time.Time                `json:"rider_assigned_at,omitempty"`
}

func newPurchaseOrderResponse(po *models.PurchaseOrder) *purchaseOrderResponse {
	if po == nil {
		return nil
	}
	return &purchaseOrderResponse{
		ID:              po.ID,
		OrderID:         po.OrderID,
		SupplierID:      po.SupplierID,
		Status:          po.Status,
		PayoutStatus:    po.PayoutStatus,
		RiderID:         po.RiderID,
		Subtotal:        po.Subtotal,
		SupplierAmount:  po.SupplierAmount,
		PlatformFee:     po.PlatformFee,
		CancelReason:    po.CancelReason,
		ConfirmedAt:     po.ConfirmedAt,
		PackedAt:        po.PackedAt,
		ShippedAt:       po.ShippedAt,
		DeliveredAt:     po.DeliveredAt,
		CanceledAt:      po.CanceledAt,
		PaidOutAt:       po.PaidOutAt,
		RiderAssignedAt: po.RiderAssignedAt,
	}
}

type refundResponse struct {
	ID        uuid.UUID          `json:"id"`
	Status    enums.RefundStatus `json:"status"`
	Total     decimal.Decimal    `json:"total"`
	Created   bool               `json:"created"`
	Breakdown *refunds.Breakdown `json:"breakdown,omitempty"`
}

func newRefundResponse(res *refunds.Result) *refundResponse {
	if res == nil || res.Refund == nil {
		return nil
	}
	return &refundResponse{
		ID:        res.Refund.ID,
		Status:    res.Refund.Status,
		Total:     res.Refund.TotalAmount,
		Created:   res.Created,
		Breakdown: res.Breakdown,
	}
}

type payoutResponse struct {
	Released     bool             `json:"released"`
	Message      string           `json:"message,omitempty"`
	AllocationID *uuid.UUID       `json:"allocation_id,omitempty"`
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	BalanceAfter *decimal.Decimal `json:"balance_after,omitempty"`
}

func newPayoutResponse(res *payouts.Result) *payoutResponse {
	if res == nil {
		return nil
	}
	out := &payoutResponse{Released: res.Released, Message: res.Message}
	if res.Allocation != nil {
		id, amount := res.Allocation.ID, res.Allocation.Amount
		out.AllocationID = &id
		out.Amount = &amount
	}
	if res.LedgerEntry != nil {
		balance := res.LedgerEntry.BalanceAfter
		out.BalanceAfter = &balance
	}
	return out
}

type transitionResponse struct {
	PurchaseOrder *purchaseOrderResponse    `json:"purchase_order"`
	From          enums.PurchaseOrderStatus `json:"from"`
	To            enums.PurchaseOrderStatus `json:"to"`
	Changed       bool                      `json:"changed"`
	Refund        *refundResponse           `json:"refund,omitempty"`
	Payout        *payoutResponse           `json:"payout,omitempty"`
}

func newTransitionResponse(t *purchaseorders.Transition) *transitionResponse {
	if t == nil {
		return nil
	}
	return &transitionResponse{
		PurchaseOrder: newPurchaseOrderResponse(t.PurchaseOrder),
		From:          t.From,
		To:            t.To,
		Changed:       t.Changed,
		Refund:        newRefundResponse(t.Refund),
		Payout:        newPayoutResponse(t.Payout),
	}
}

type notificationResponse struct {
	ID        uuid.UUID              `json:"id"`
	Type      enums.NotificationType `json:"type"`
	Title     string                 `json:"title"`
	Body      string                 `json:"body"`
	Payload   map[string]any         `json:"payload,omitempty"`
	ReadAt    *time.Time             `json:"read_at,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

type notificationPage struct {
	Items      []notificationResponse `json:"items"`
	NextCursor string                 `json:"next_cursor,omitempty"`
}

func newNotificationResponse(n models.Notification) notificationResponse {
	return notificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Body:      n.Body,
		Payload:   n.Payload,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}

package purchaseorders

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/angelmondragon/supplyhub-backend/internal/notifications"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
)

// Announce tells the shopper, the supplier, the admins and any assigned rider
// about the new state, then announces a released payout. Every failure is
// logged and dropped.
func (s *service) Announce(ctx context.Context, t *Transition) {
	if t == nil || !t.Changed {
		return
	}
	if s.notifier != nil {
		if err := s.notifyParticipants(ctx, t); err != nil && s.logg != nil {
			s.logg.Error(s.logg.WithPurchaseOrderID(ctx, t.PurchaseOrder.ID.String()), "status notification failed", err)
		}
	}
	if t.Payout != nil {
		s.payouts.AnnounceRelease(ctx, t.Payout)
	}
}

func (s *service) notifyParticipants(ctx context.Context, t *Transition) error {
	po := t.PurchaseOrder
	status := humanStatus(t.To)
	payload := map[string]any{
		"purchase_order_id": po.ID.String(),
		"order_id":          po.OrderID.String(),
		"supplier_id":       po.SupplierID.String(),
		"from":              t.From.String(),
		"to":                t.To.String(),
	}
	if po.CancelReason != nil && t.To.Normalize() == enums.PurchaseOrderStatusCanceled {
		payload["reason"] = *po.CancelReason
	}
	typ := enums.NotificationTypePurchaseOrderStatus

	var errs error
	if t.Order != nil {
		errs = multierr.Append(errs, s.notifier.Notify(ctx, notifications.ToUser(t.Order.ShopperUserID, typ,
			fmt.Sprintf("Your order is %s", status),
			fmt.Sprintf("Part of your order is now %s.", status), payload)))
	}

	supplier, err := s.repo.FindSupplier(ctx, po.SupplierID)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("load supplier: %w", err))
	} else {
		errs = multierr.Append(errs, s.notifier.Notify(ctx, notifications.ToUser(supplier.OwnerUserID, typ,
			fmt.Sprintf("Purchase order %s", status),
			fmt.Sprintf("Purchase order %s is now %s.", shortID(po.ID.String()), status), payload)))
	}

	errs = multierr.Append(errs, s.notifier.Notify(ctx, notifications.ToGroup(enums.NotificationGroupAdmins, typ,
		fmt.Sprintf("Purchase order %s", status),
		fmt.Sprintf("Purchase order %s moved from %s to %s.", shortID(po.ID.String()), t.From, t.To), payload)))

	if po.RiderID != nil {
		rider, err := s.repo.FindRider(ctx, *po.RiderID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("load rider: %w", err))
		} else {
			errs = multierr.Append(errs, s.notifier.Notify(ctx, notifications.ToUser(rider.UserID, typ,
				fmt.Sprintf("Delivery %s", status),
				fmt.Sprintf("Purchase order %s is now %s.", shortID(po.ID.String()), status), payload)))
		}
	}
	return errs
}

func humanStatus(s enums.PurchaseOrderStatus) string {
	return strings.ToLower(strings.ReplaceAll(s.String(), "_", " "))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

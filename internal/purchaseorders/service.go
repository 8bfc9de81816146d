package purchaseorders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyhub-backend/internal/actor"
	"github.com/angelmondragon/supplyhub-backend/internal/notifications"
	"github.com/angelmondragon/supplyhub-backend/internal/payouts"
	"github.com/angelmondragon/supplyhub-backend/internal/refunds"
	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
	"github.com/angelmondragon/supplyhub-backend/pkg/metrics"
	"github.com/angelmondragon/supplyhub-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type refundCreator interface {
	CreateForCanceled(ctx context.Context, tx *gorm.DB, input refunds.CreateInput) (*refunds.Result, error)
}

type payoutReleaser interface {
	ReleaseInTx(ctx context.Context, tx *gorm.DB, po *models.PurchaseOrder, by *outbox.ActorRef) (*payouts.Result, error)
	AnnounceRelease(ctx context.Context, result *payouts.Result)
}

type codeConsumer interface {
	Consume(ctx context.Context, userID uuid.UUID, action enums.Action, code string) error
}

// Service drives a supplier's share of an order through fulfillment.
type Service interface {
	Get(ctx context.Context, actx actor.Context, orderID uuid.UUID) (*models.PurchaseOrder, error)
	SetStatus(ctx context.Context, actx actor.Context, orderID uuid.UUID, input SetStatusInput) (*Transition, error)
	AssignRider(ctx context.Context, actx actor.Context, orderID uuid.UUID, riderID *uuid.UUID) (*models.PurchaseOrder, error)

	// Lock loads or lazily creates the purchase order inside tx and holds its row lock.
	Lock(ctx context.Context, tx *gorm.DB, orderID, supplierID uuid.UUID) (*models.PurchaseOrder, *models.Order, error)
	// MarkDelivered moves a locked, in-transit purchase order to DELIVERED and
	// releases its payout in the same transaction.
	MarkDelivered(ctx context.Context, tx *gorm.DB, po *models.PurchaseOrder, order *models.Order, actx actor.Context) (*Transition, error)
	// Announce notifies participants after the transaction committed.
	Announce(ctx context.Context, t *Transition)
}

// SetStatusInput is the generic status change request.
type SetStatusInput struct {
	Status            string
	Reason            string
	AuthorizationCode string
}

// Transition is the outcome of a status change. Changed is false for an
// idempotent replay of the current state.
type Transition struct {
	PurchaseOrder *models.PurchaseOrder
	Order         *models.Order
	From          enums.PurchaseOrderStatus
	To            enums.PurchaseOrderStatus
	Changed       bool
	Refund        *refunds.Result
	Payout        *payouts.Result
	Actor         actor.Context
}

// ServiceParams groups the purchase order service dependencies.
type ServiceParams struct {
	Repo        Repository
	Tx          txRunner
	Refunds     refundCreator
	Payouts     payoutReleaser
	ActionCodes codeConsumer
	Outbox      outboxPublisher
	Notifier    notifications.Notifier
	Metrics     *metrics.FulfillmentMetrics
	Logger      *logger.Logger
}

type service struct {
	repo        Repository
	tx          txRunner
	refunds     refundCreator
	payouts     payoutReleaser
	actionCodes codeConsumer
	outbox      outboxPublisher
	notifier    notifications.Notifier
	metrics     *metrics.FulfillmentMetrics
	logg        *logger.Logger
	now         func() time.Time
}

// NewService validates and wires the purchase order service.
func NewService(p ServiceParams) (Service, error) {
	switch {
	case p.Repo == nil:
		return nil, fmt.Errorf("purchase order repository required")
	case p.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case p.Refunds == nil:
		return nil, fmt.Errorf("refund service required")
	case p.Payouts == nil:
		return nil, fmt.Errorf("payout service required")
	case p.ActionCodes == nil:
		return nil, fmt.Errorf("action code service required")
	case p.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:        p.Repo,
		tx:          p.Tx,
		refunds:     p.Refunds,
		payouts:     p.Payouts,
		actionCodes: p.ActionCodes,
		outbox:      p.Outbox,
		notifier:    p.Notifier,
		metrics:     p.Metrics,
		logg:        p.Logger,
		now:         time.Now,
	}, nil
}

// Get returns the purchase order for the actor's supplier. A purchase order
// with no status change yet is derived from the order items and not stored.
// Riders only see purchase orders assigned to them.
func (s *service) Get(ctx context.Context, actx actor.Context, orderID uuid.UUID) (*models.PurchaseOrder, error) {
	if actx.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if actx.SupplierID == nil || !(actx.ActsForSupplier() || actx.IsRider()) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "supplier scope required")
	}
	po, err := s.Peek(ctx, orderID, *actx.SupplierID)
	if err != nil {
		return nil, err
	}
	if actx.IsRider() && !assignedTo(po, actx) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "purchase order is not assigned to this rider")
	}
	return po, nil
}

// SetStatus applies a generic status change requested by a supplier or an
// admin acting for one. DELIVERED is only reachable through delivery codes.
func (s *service) SetStatus(ctx context.Context, actx actor.Context, orderID uuid.UUID, input SetStatusInput) (*Transition, error) {
	started := s.now()
	if actx.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if actx.IsRider() || actx.IsShopper() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role may not change purchase order status")
	}
	if !actx.ActsForSupplier() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "supplier scope required")
	}
	requested, err := enums.ParsePurchaseOrderStatus(input.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
	}
	if requested.Normalize() == enums.PurchaseOrderStatusDelivered {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "delivery must be confirmed with the delivery code")
	}
	reason := strings.TrimSpace(input.Reason)

	var transition *Transition
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		po, order, err := s.Lock(ctx, tx, orderID, *actx.SupplierID)
		if err != nil {
			return err
		}
		current := po.Status
		if !CanTransition(current, requested) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move purchase order from %s to %s", current, requested)).
				WithDetails(map[string]string{"from": current.String(), "to": requested.String()})
		}
		transition = &Transition{PurchaseOrder: po, Order: order, From: current, To: current, Actor: actx}
		if current.Normalize() == requested.Normalize() {
			return nil
		}

		canceling := requested == enums.PurchaseOrderStatusCanceled
		needsRefund := canceling && cancelNeedsAuthorization(current)
		if needsRefund {
			if reason == "" {
				return pkgerrors.New(pkgerrors.CodePrecondition, "a reason is required to cancel after confirmation")
			}
			if strings.TrimSpace(input.AuthorizationCode) == "" {
				return pkgerrors.New(pkgerrors.CodePrecondition, "an authorization code is required to cancel after confirmation")
			}
		}

		now := s.now().UTC()
		fields := statusFields(po, requested, now)
		if canceling {
			by := actx.UserID
			fields["canceled_by_user_id"] = by
			po.CanceledByUserID = &by
			if reason != "" {
				fields["cancel_reason"] = reason
				po.CancelReason = &reason
			}
		}
		if err := s.repo.WithTx(tx).Update(ctx, po.ID, fields); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update purchase order")
		}
		transition.To = requested
		transition.Changed = true

		if needsRefund {
			refund, err := s.refunds.CreateForCanceled(ctx, tx, refunds.CreateInput{
				PurchaseOrder: po,
				Order:         order,
				Reason:        po.CancelReason,
				RequestedBy:   po.CanceledByUserID,
				Actor:         actx.OutboxRef(),
			})
			if err != nil {
				return err
			}
			transition.Refund = refund
		}
		if err := s.emitStatusChanged(ctx, tx, transition, po.CancelReason, now); err != nil {
			return err
		}
		if needsRefund {
			// the code is burned last so an earlier rollback leaves it usable
			return s.actionCodes.Consume(ctx, actx.UserID, enums.ActionCancelOrder, input.AuthorizationCode)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if transition.Changed {
		s.metrics.IncTransition(transition.To.String())
		s.metrics.ObserveDuration("set_status", s.now().Sub(started))
		s.logTransition(ctx, transition)
		s.Announce(ctx, transition)
	}
	return transition, nil
}

// AssignRider hands a packed or shipped purchase order to one of the
// supplier's active riders. A nil riderID clears the assignment.
func (s *service) AssignRider(ctx context.Context, actx actor.Context, orderID uuid.UUID, riderID *uuid.UUID) (*models.PurchaseOrder, error) {
	if actx.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !actx.ActsForSupplier() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "supplier scope required")
	}

	var (
		po    *models.PurchaseOrder
		rider *models.Rider
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		po, _, err = s.Lock(ctx, tx, orderID, *actx.SupplierID)
		if err != nil {
			return err
		}
		switch po.Status.Normalize() {
		case enums.PurchaseOrderStatusPacked, enums.PurchaseOrderStatusShipped:
		default:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "riders can only be assigned to packed or shipped purchase orders").
				WithDetails(map[string]string{"status": po.Status.String()})
		}

		repo := s.repo.WithTx(tx)
		now := s.now().UTC()
		fields := map[string]any{"updated_at": now}
		if riderID == nil {
			fields["rider_id"] = nil
			fields["rider_assigned_at"] = nil
			if err := repo.Update(ctx, po.ID, fields); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unassign rider")
			}
			po.RiderID = nil
			po.RiderAssignedAt = nil
			return nil
		}

		rider, err = repo.FindRider(ctx, *riderID)
		if err != nil {
			return lookupError(err, "rider")
		}
		if !rider.Active || rider.SupplierID == nil || *rider.SupplierID != po.SupplierID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "rider does not work for this supplier")
		}
		fields["rider_id"] = rider.ID
		fields["rider_assigned_at"] = now
		if err := repo.Update(ctx, po.ID, fields); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign rider")
		}
		po.RiderID = &rider.ID
		po.RiderAssignedAt = &now

		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPurchaseOrderRiderAssigned,
			AggregateType: enums.AggregatePurchaseOrder,
			AggregateID:   po.ID,
			Actor:         actx.OutboxRef(),
			OccurredAt:    now,
			Data: outbox.RiderAssigned{
				PurchaseOrderID: po.ID,
				OrderID:         po.OrderID,
				RiderID:         rider.ID,
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit rider event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if rider != nil && s.notifier != nil {
		msg := notifications.ToUser(rider.UserID, enums.NotificationTypeRiderAssigned,
			"New delivery assigned",
			"A purchase order is ready for you to deliver.",
			map[string]any{
				"purchase_order_id": po.ID.String(),
				"order_id":          po.OrderID.String(),
				"status":            po.Status.String(),
			},
		)
		if err := s.notifier.Notify(ctx, msg); err != nil && s.logg != nil {
			s.logg.Error(s.logg.WithRiderID(ctx, rider.ID.String()), "rider assignment notification failed", err)
		}
	}
	return po, nil
}

// statusFields builds the column updates for moving po to status and applies
// them to po. Stage timestamps are only set the first time a stage is reached.
func statusFields(po *models.PurchaseOrder, status enums.PurchaseOrderStatus, now time.Time) map[string]any {
	fields := map[string]any{"status": status, "updated_at": now}
	po.Status = status
	stamp := func(column string, target **time.Time) {
		if *target != nil {
			return
		}
		fields[column] = now
		t := now
		*target = &t
	}
	switch status.Normalize() {
	case enums.PurchaseOrderStatusConfirmed:
		stamp("confirmed_at", &po.ConfirmedAt)
	case enums.PurchaseOrderStatusPacked:
		stamp("packed_at", &po.PackedAt)
	case enums.PurchaseOrderStatusShipped:
		stamp("shipped_at", &po.ShippedAt)
	case enums.PurchaseOrderStatusDelivered:
		stamp("delivered_at", &po.DeliveredAt)
	case enums.PurchaseOrderStatusCanceled:
		stamp("canceled_at", &po.CanceledAt)
	}
	return fields
}

func (s *service) emitStatusChanged(ctx context.Context, tx *gorm.DB, t *Transition, reason *string, at time.Time) error {
	po := t.PurchaseOrder
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPurchaseOrderStatusChanged,
		AggregateType: enums.AggregatePurchaseOrder,
		AggregateID:   po.ID,
		Actor:         t.Actor.OutboxRef(),
		OccurredAt:    at,
		Data: outbox.PurchaseOrderStatusChanged{
			PurchaseOrderID: po.ID,
			OrderID:         po.OrderID,
			SupplierID:      po.SupplierID,
			From:            t.From.String(),
			To:              t.To.String(),
			Reason:          reason,
			ChangedAt:       at,
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit status event")
	}
	return nil
}

func (s *service) logTransition(ctx context.Context, t *Transition) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"purchase_order_id": t.PurchaseOrder.ID.String(),
		"supplier_id":       t.PurchaseOrder.SupplierID.String(),
		"actor_role":        t.Actor.Role.String(),
		"from":              t.From.String(),
		"to":                t.To.String(),
	})
	s.logg.Info(ctx, "purchase order status changed")
}

func assignedTo(po *models.PurchaseOrder, actx actor.Context) bool {
	return po.RiderID != nil && actx.RiderID != nil && *po.RiderID == *actx.RiderID
}

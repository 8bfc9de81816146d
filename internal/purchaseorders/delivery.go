package purchaseorders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyhub-backend/internal/actor"
	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
)

const promoteSavepoint = "promote_order"

func (s *service) MarkDelivered(ctx context.Context, tx *gorm.DB, po *models.PurchaseOrder, order *models.Order, actx actor.Context) (*Transition, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	if po == nil || order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase order and order required")
	}
	from := po.Status
	if !from.InTransit() || !CanTransition(from, enums.PurchaseOrderStatusDelivered) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot deliver purchase order in status %s", from)).
			WithDetails(map[string]string{"from": from.String(), "to": enums.PurchaseOrderStatusDelivered.String()})
	}

	now := s.now().UTC()
	fields := statusFields(po, enums.PurchaseOrderStatusDelivered, now)
	if err := s.repo.WithTx(tx).Update(ctx, po.ID, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark purchase order delivered")
	}

	payout, err := s.payouts.ReleaseInTx(ctx, tx, po, actx.OutboxRef())
	if err != nil {
		return nil, err
	}

	t := &Transition{
		PurchaseOrder: po,
		Order:         order,
		From:          from,
		To:            enums.PurchaseOrderStatusDelivered,
		Changed:       true,
		Payout:        payout,
		Actor:         actx,
	}
	if err := s.emitStatusChanged(ctx, tx, t, nil, now); err != nil {
		return nil, err
	}
	s.promoteOrder(ctx, tx, order, now)
	s.metrics.IncTransition(t.To.String())
	s.logTransition(ctx, t)
	return t, nil
}

// promoteOrder marks the parent order DELIVERED once every supplier on it has
// delivered. Failures roll back to a savepoint and never fail the delivery.
func (s *service) promoteOrder(ctx context.Context, tx *gorm.DB, order *models.Order, now time.Time) {
	if order.Status == enums.OrderStatusDelivered {
		return
	}
	if err := tx.SavePoint(promoteSavepoint).Error; err != nil {
		s.warn(ctx, order.ID, "parent order promotion skipped", err)
		return
	}
	done, err := s.allDelivered(ctx, tx, order.ID)
	if err == nil && done {
		err = s.repo.WithTx(tx).MarkOrderDelivered(ctx, order.ID, now)
		if err == nil {
			order.Status = enums.OrderStatusDelivered
			order.DeliveredAt = &now
		}
	}
	if err != nil {
		if rbErr := tx.RollbackTo(promoteSavepoint).Error; rbErr != nil {
			err = multierr.Append(err, rbErr)
		}
		s.warn(ctx, order.ID, "parent order promotion failed", err)
	}
}

func (s *service) allDelivered(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (bool, error) {
	repo := s.repo.WithTx(tx)
	supplierIDs, err := repo.ListOrderSupplierIDs(ctx, orderID)
	if err != nil {
		return false, err
	}
	pos, err := repo.ListByOrder(ctx, orderID)
	if err != nil {
		return false, err
	}
	delivered := make(map[uuid.UUID]bool, len(pos))
	for _, po := range pos {
		if po.Status.Normalize() == enums.PurchaseOrderStatusDelivered {
			delivered[po.SupplierID] = true
		}
	}
	if len(supplierIDs) == 0 {
		return false, nil
	}
	for _, id := range supplierIDs {
		if !delivered[id] {
			return false, nil
		}
	}
	return true, nil
}

func (s *service) warn(ctx context.Context, orderID uuid.UUID, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.WarnErr(s.logg.WithField(ctx, "order_id", orderID.String()), msg, err)
}

package refunds

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyhub-backend/internal/actor"
	dbpkg "github.com/angelmondragon/supplyhub-backend/pkg/db"
	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
	"github.com/angelmondragon/supplyhub-backend/pkg/outbox"
)

const createSavepoint = "refund_request_create"

var uniquePurchaseOrderRefund = dbpkg.UniqueKey{
	Name:    "ux_refund_requests_purchase_order",
	Table:   "refund_requests",
	Columns: []string{"purchase_order_id"},
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service creates refund requests for canceled purchase orders.
type Service interface {
	CreateForCanceled(ctx context.Context, tx *gorm.DB, input CreateInput) (*Result, error)
	Request(ctx context.Context, actx actor.Context, orderID uuid.UUID) (*Result, error)
}

// CreateInput identifies the canceled purchase order. Order is loaded when nil.
type CreateInput struct {
	PurchaseOrder *models.PurchaseOrder
	Order         *models.Order
	Reason        *string
	RequestedBy   *uuid.UUID
	Actor         *outbox.ActorRef
}

// Result reports the refund request and whether this call created it.
type Result struct {
	Refund    *models.RefundRequest
	Breakdown *Breakdown
	Created   bool
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

// NewService wires the refund service dependencies.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("refunds repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outbox}, nil
}

// CreateForCanceled computes and stores the refund inside tx. An existing
// refund for the purchase order is returned unchanged.
func (s *service) CreateForCanceled(ctx context.Context, tx *gorm.DB, input CreateInput) (*Result, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	po := input.PurchaseOrder
	if po == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase order required")
	}
	repo := s.repo.WithTx(tx)

	existing, err := repo.FindByPurchaseOrder(ctx, po.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refund request")
	}
	if existing != nil {
		return &Result{Refund: existing}, nil
	}

	order := input.Order
	if order == nil {
		order, err = repo.FindOrder(ctx, po.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
	}
	items, err := repo.ListSupplierItems(ctx, po.OrderID, po.SupplierID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase order items")
	}
	totalUnits, err := repo.SumOrderUnits(ctx, po.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count order units")
	}

	breakdown := Calculate(*order, items, totalUnits)
	refund := &models.RefundRequest{
		ID:                   uuid.New(),
		PurchaseOrderID:      po.ID,
		OrderID:              po.OrderID,
		SupplierID:           po.SupplierID,
		Status:               enums.RefundStatusRequested,
		Reason:               input.Reason,
		ItemsAmount:          breakdown.Items,
		TaxAmount:            breakdown.Tax,
		ServiceBaseAmount:    breakdown.ServiceBase,
		ServiceCommsAmount:   breakdown.ServiceComms,
		ServiceGatewayAmount: breakdown.ServiceGateway,
		TotalAmount:          breakdown.Total,
		RequestedByUserID:    input.RequestedBy,
	}

	// a concurrent cancel may win the unique constraint; the savepoint keeps
	// the outer transaction usable so the winner's row can be read back
	if err := tx.SavePoint(createSavepoint).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create savepoint")
	}
	if err := repo.Create(ctx, refund); err != nil {
		if !dbpkg.IsUniqueViolation(err, uniquePurchaseOrderRefund) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create refund request")
		}
		if rbErr := tx.RollbackTo(createSavepoint).Error; rbErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, rbErr, "rollback savepoint")
		}
		winner, findErr := repo.FindByPurchaseOrder(ctx, po.ID)
		if findErr != nil || winner == nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refund request")
		}
		return &Result{Refund: winner}, nil
	}

	err = s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventRefundRequested,
		AggregateType: enums.AggregateRefundRequest,
		AggregateID:   refund.ID,
		Actor:         input.Actor,
		Data: outbox.RefundRequested{
			RefundRequestID: refund.ID,
			PurchaseOrderID: po.ID,
			OrderID:         po.OrderID,
			TotalAmount:     refund.TotalAmount,
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit refund event")
	}
	return &Result{Refund: refund, Breakdown: &breakdown, Created: true}, nil
}

// Request lets an admin acting for a supplier create the refund for a
// purchase order that is already canceled.
func (s *service) Request(ctx context.Context, actx actor.Context, orderID uuid.UUID) (*Result, error) {
	if !actx.IsAdmin() || actx.SupplierID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin supplier selection required")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		po, err := s.repo.WithTx(tx).FindPurchaseOrderForUpdate(ctx, orderID, *actx.SupplierID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase order")
		}
		if po.Status.Normalize() != enums.PurchaseOrderStatusCanceled {
			return pkgerrors.New(pkgerrors.CodePrecondition, "purchase order is not canceled")
		}
		requestedBy := actx.UserID
		result, err = s.CreateForCanceled(ctx, tx, CreateInput{
			PurchaseOrder: po,
			Reason:        po.CancelReason,
			RequestedBy:   &requestedBy,
			Actor:         actx.OutboxRef(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

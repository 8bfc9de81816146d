package payouts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyhub-backend/internal/actor"
	"github.com/angelmondragon/supplyhub-backend/internal/ledger"
	"github.com/angelmondragon/supplyhub-backend/internal/notifications"
	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
	"github.com/angelmondragon/supplyhub-backend/pkg/metrics"
	"github.com/angelmondragon/supplyhub-backend/pkg/outbox"
)

// NoopMessage is reported when there is no held allocation left to release.
const NoopMessage = "already settled or not applicable"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type ledgerRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, input ledger.EntryInput) (*models.SupplierLedgerEntry, error)
}

// Service releases held supplier funds for delivered purchase orders.
type Service interface {
	ReleaseInTx(ctx context.Context, tx *gorm.DB, po *models.PurchaseOrder, by *outbox.ActorRef) (*Result, error)
	Release(ctx context.Context, actx actor.Context, orderID uuid.UUID) (*Result, error)
	AnnounceRelease(ctx context.Context, result *Result)
}

// Result describes a release attempt. Released is false for the idempotent no-op.
type Result struct {
	Released    bool
	Message     string
	Supplier    *models.Supplier
	Allocation  *models.SupplierPaymentAllocation
	LedgerEntry *models.SupplierLedgerEntry
}

// Config carries payout policy.
type Config struct {
	SupportedCountries []string
}

type service struct {
	repo     Repository
	tx       txRunner
	ledger   ledgerRecorder
	outbox   outboxPublisher
	notifier notifications.Notifier
	metrics  *metrics.FulfillmentMetrics
	logg     *logger.Logger
	cfg      Config
	now      func() time.Time
}

// ServiceParams groups the payout service dependencies.
type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Ledger   ledgerRecorder
	Outbox   outboxPublisher
	Notifier notifications.Notifier
	Metrics  *metrics.FulfillmentMetrics
	Logger   *logger.Logger
	Config   Config
}

// NewService validates and wires the payout service.
func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("payouts repository required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if p.Ledger == nil {
		return nil, fmt.Errorf("ledger required")
	}
	if p.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:     p.Repo,
		tx:       p.Tx,
		ledger:   p.Ledger,
		outbox:   p.Outbox,
		notifier: p.Notifier,
		metrics:  p.Metrics,
		logg:     p.Logger,
		cfg:      p.Config,
		now:      time.Now,
	}, nil
}

// ReleaseInTx runs inside the caller's transaction so the release commits or
// rolls back together with the delivery that triggered it. po is updated in
// place when funds are released.
func (s *service) ReleaseInTx(ctx context.Context, tx *gorm.DB, po *models.PurchaseOrder, by *outbox.ActorRef) (*Result, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	if po == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase order required")
	}
	if po.Status != enums.PurchaseOrderStatusDelivered {
		s.metrics.IncPayout(metrics.ResultRejected)
		return nil, pkgerrors.New(pkgerrors.CodePrecondition, "payout requires a delivered purchase order")
	}
	repo := s.repo.WithTx(tx)

	supplier, err := repo.FindSupplier(ctx, po.SupplierID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier")
	}
	if err := CheckReadiness(supplier, s.cfg.SupportedCountries); err != nil {
		s.metrics.IncPayout(metrics.ResultRejected)
		return nil, err
	}

	payment, err := repo.LatestPaidPayment(ctx, po.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment == nil {
		s.metrics.IncPayout(metrics.ResultRejected)
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no paid payment for order")
	}

	alloc, err := repo.FindPendingAllocationForUpdate(ctx, payment.ID, po.ID, po.SupplierID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load allocation")
	}
	if alloc == nil {
		s.metrics.IncPayout(metrics.ResultNoop)
		return &Result{Message: NoopMessage, Supplier: supplier}, nil
	}

	now := s.now().UTC()
	affected, err := repo.MarkAllocationPaid(ctx, alloc.ID, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release allocation")
	}
	if affected == 0 {
		s.metrics.IncPayout(metrics.ResultNoop)
		return &Result{Message: NoopMessage, Supplier: supplier}, nil
	}
	alloc.Status = enums.AllocationStatusPaid
	alloc.ReleasedAt = &now

	entry, err := s.ledger.Record(ctx, tx, ledger.EntryInput{
		SupplierID:    po.SupplierID,
		Type:          enums.LedgerEntryCredit,
		Amount:        alloc.Amount,
		ReferenceType: enums.LedgerReferenceAllocation,
		ReferenceID:   alloc.ID,
		Description:   fmt.Sprintf("payout for purchase order %s", po.ID),
	})
	if err != nil {
		return nil, err
	}

	if err := repo.MarkPurchaseOrderReleased(ctx, po.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payout released")
	}
	po.PayoutStatus = enums.PayoutStatusReleased
	po.PaidOutAt = &now

	err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventSupplierPayoutReleased,
		AggregateType: enums.AggregateAllocation,
		AggregateID:   alloc.ID,
		Actor:         by,
		OccurredAt:    now,
		Data: outbox.SupplierPayoutReleased{
			AllocationID:    alloc.ID,
			PurchaseOrderID: po.ID,
			SupplierID:      po.SupplierID,
			LedgerEntryID:   entry.ID,
			Amount:          alloc.Amount,
			BalanceAfter:    entry.BalanceAfter,
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payout event")
	}

	s.metrics.IncPayout(metrics.ResultReleased)
	return &Result{Released: true, Supplier: supplier, Allocation: alloc, LedgerEntry: entry}, nil
}

// Release retries a payout outside the delivery flow. Only an admin acting
// for the supplier may call it.
func (s *service) Release(ctx context.Context, actx actor.Context, orderID uuid.UUID) (*Result, error) {
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
		result, err = s.ReleaseInTx(ctx, tx, po, actx.OutboxRef())
		return err
	})
	if err != nil {
		return nil, err
	}
	s.AnnounceRelease(ctx, result)
	return result, nil
}

// AnnounceRelease tells the supplier owner about released funds. Failures are
// logged and dropped.
func (s *service) AnnounceRelease(ctx context.Context, result *Result) {
	if s.notifier == nil || result == nil || !result.Released || result.Supplier == nil {
		return
	}
	msg := notifications.ToUser(
		result.Supplier.OwnerUserID,
		enums.NotificationTypePayoutReleased,
		"Payout released",
		fmt.Sprintf("%s has been credited to your balance.", result.Allocation.Amount.StringFixed(2)),
		map[string]any{
			"allocation_id":     result.Allocation.ID.String(),
			"purchase_order_id": result.Allocation.PurchaseOrderID.String(),
			"amount":            result.Allocation.Amount.StringFixed(2),
			"balance_after":     result.LedgerEntry.BalanceAfter.StringFixed(2),
		},
	)
	if err := s.notifier.Notify(ctx, msg); err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithSupplierID(ctx, result.Supplier.ID.String()), "payout notification failed", err)
	}
}

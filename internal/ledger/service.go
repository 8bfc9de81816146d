package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyhub-backend/internal/actor"
	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
	"github.com/angelmondragon/supplyhub-backend/pkg/money"
)

// Service appends entries to supplier ledgers and reads balances.
type Service interface {
	Record(ctx context.Context, tx *gorm.DB, input EntryInput) (*models.SupplierLedgerEntry, error)
	Balance(ctx context.Context, supplierID uuid.UUID) (decimal.Decimal, error)
	List(ctx context.Context, supplierID uuid.UUID, limit int) ([]models.SupplierLedgerEntry, error)
	Statement(ctx context.Context, actx actor.Context, limit int) (*Statement, error)
}

// Statement is the supplier-facing view of its ledger.
type Statement struct {
	SupplierID uuid.UUID
	Balance    decimal.Decimal
	Entries    []models.SupplierLedgerEntry
}

// EntryInput captures the immutable data a ledger entry requires. Amount is
// stored as given; callers pass already-rounded values.
type EntryInput struct {
	SupplierID    uuid.UUID
	Type          enums.LedgerEntryType
	Amount        decimal.Decimal
	ReferenceType enums.LedgerReferenceType
	ReferenceID   uuid.UUID
	Description   string
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

// Record must run inside tx. The supplier row is locked so concurrent
// entries compute balanceAfter from the same predecessor in order.
func (s *service) Record(ctx context.Context, tx *gorm.DB, input EntryInput) (*models.SupplierLedgerEntry, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	if input.SupplierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier id is required")
	}
	if input.ReferenceID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference id is required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid ledger entry type %q", input.Type))
	}
	if input.Amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ledger amount must not be negative")
	}

	repo := s.repo.WithTx(tx)
	if _, err := repo.LockSupplier(ctx, input.SupplierID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock supplier")
	}
	latest, err := repo.LatestEntry(ctx, input.SupplierID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger balance")
	}

	previous := decimal.Zero
	if latest != nil {
		previous = latest.BalanceAfter
	}
	balance := previous.Add(input.Amount)
	if input.Type == enums.LedgerEntryDebit {
		balance = previous.Sub(input.Amount)
	}

	entry := &models.SupplierLedgerEntry{
		SupplierID:    input.SupplierID,
		Type:          input.Type,
		Amount:        input.Amount,
		BalanceAfter:  money.Round2(balance),
		ReferenceType: input.ReferenceType,
		ReferenceID:   input.ReferenceID,
		CreatedAt:     s.now().UTC(),
	}
	if input.Description != "" {
		desc := input.Description
		entry.Description = &desc
	}
	if err := repo.Create(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create ledger entry")
	}
	return entry, nil
}

func (s *service) Balance(ctx context.Context, supplierID uuid.UUID) (decimal.Decimal, error) {
	latest, err := s.repo.LatestEntry(ctx, supplierID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger balance")
	}
	if latest == nil {
		return decimal.Zero, nil
	}
	return latest.BalanceAfter, nil
}

func (s *service) List(ctx context.Context, supplierID uuid.UUID, limit int) ([]models.SupplierLedgerEntry, error) {
	entries, err := s.repo.ListBySupplier(ctx, supplierID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries")
	}
	return entries, nil
}

// Statement returns the balance and newest entries for the supplier the actor
// acts for. Riders and shoppers have no ledger view.
func (s *service) Statement(ctx context.Context, actx actor.Context, limit int) (*Statement, error) {
	if !actx.ActsForSupplier() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "supplier context required")
	}
	supplierID := *actx.SupplierID
	balance, err := s.Balance(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	entries, err := s.List(ctx, supplierID, limit)
	if err != nil {
		return nil, err
	}
	return &Statement{SupplierID: supplierID, Balance: balance, Entries: entries}, nil
}

package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyhub-backend/internal/repo"
	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
)

// Repository manages persistence for supplier ledger entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockSupplier(ctx context.Context, supplierID uuid.UUID) (*models.Supplier, error)
	LatestEntry(ctx context.Context, supplierID uuid.UUID) (*models.SupplierLedgerEntry, error)
	Create(ctx context.Context, entry *models.SupplierLedgerEntry) error
	ListBySupplier(ctx context.Context, supplierID uuid.UUID, limit int) ([]models.SupplierLedgerEntry, error)
}

type repository struct {
	base repo.Base
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: r.base.WithTx(tx)}
}

// LockSupplier serializes balance computation per supplier.
func (r *repository) LockSupplier(ctx context.Context, supplierID uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	err := repo.ForUpdate(r.base.DB(ctx)).
		Where("id = ?", supplierID).
		First(&supplier).Error
	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *repository) LatestEntry(ctx context.Context, supplierID uuid.UUID) (*models.SupplierLedgerEntry, error) {
	var entry models.SupplierLedgerEntry
	err := r.base.DB(ctx).
		Where("supplier_id = ?", supplierID).
		Order("created_at DESC").
		Order("id DESC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) Create(ctx context.Context, entry *models.SupplierLedgerEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.base.DB(ctx).Create(entry).Error
}

func (r *repository) ListBySupplier(ctx context.Context, supplierID uuid.UUID, limit int) ([]models.SupplierLedgerEntry, error) {
	var entries []models.SupplierLedgerEntry
	q := r.base.DB(ctx).
		Where("supplier_id = ?", supplierID).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

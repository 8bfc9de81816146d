package payouts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyhub-backend/internal/repo"
	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
)

// Repository reads payments and moves allocations out of the held state.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindSupplier(ctx context.Context, supplierID uuid.UUID) (*models.Supplier, error)
	FindPurchaseOrderForUpdate(ctx context.Context, orderID, supplierID uuid.UUID) (*models.PurchaseOrder, error)
	LatestPaidPayment(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	FindPendingAllocationForUpdate(ctx context.Context, paymentID, purchaseOrderID, supplierID uuid.UUID) (*models.SupplierPaymentAllocation, error)
	MarkAllocationPaid(ctx context.Context, allocationID uuid.UUID, at time.Time) (int64, error)
	MarkPurchaseOrderReleased(ctx context.Context, purchaseOrderID uuid.UUID, at time.Time) error
}

type repository struct {
	base repo.Base
}

// NewRepository returns a payouts repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: r.base.WithTx(tx)}
}

func (r *repository) FindSupplier(ctx context.Context, supplierID uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := r.base.DB(ctx).Where("id = ?", supplierID).First(&supplier).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *repository) FindPurchaseOrderForUpdate(ctx context.Context, orderID, supplierID uuid.UUID) (*models.PurchaseOrder, error) {
	var po models.PurchaseOrder
	err := repo.ForUpdate(r.base.DB(ctx)).
		Where("order_id = ? AND supplier_id = ?", orderID, supplierID).
		First(&po).Error
	if err != nil {
		return nil, err
	}
	return &po, nil
}

// LatestPaidPayment returns nil without error when the order has no PAID payment.
func (r *repository) LatestPaidPayment(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.base.DB(ctx).
		Where("order_id = ? AND status = ?", orderID, enums.PaymentStatusPaid).
		Order("paid_at DESC NULLS LAST").
		Order("created_at DESC").
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindPendingAllocationForUpdate returns nil without error once the
// allocation has been released or never existed.
func (r *repository) FindPendingAllocationForUpdate(ctx context.Context, paymentID, purchaseOrderID, supplierID uuid.UUID) (*models.SupplierPaymentAllocation, error) {
	var alloc models.SupplierPaymentAllocation
	err := repo.ForUpdate(r.base.DB(ctx)).
		Where("payment_id = ? AND purchase_order_id = ? AND supplier_id = ? AND status = ?",
			paymentID, purchaseOrderID, supplierID, enums.AllocationStatusPending).
		First(&alloc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &alloc, nil
}

// MarkAllocationPaid only moves a PENDING row; zero rows affected means a
// concurrent release got there first.
func (r *repository) MarkAllocationPaid(ctx context.Context, allocationID uuid.UUID, at time.Time) (int64, error) {
	result := r.base.DB(ctx).
		Model(&models.SupplierPaymentAllocation{}).
		Where("id = ? AND status = ?", allocationID, enums.AllocationStatusPending).
		Updates(map[string]any{
			"status":      enums.AllocationStatusPaid,
			"released_at": at,
			"updated_at":  at,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) MarkPurchaseOrderReleased(ctx context.Context, purchaseOrderID uuid.UUID, at time.Time) error {
	return r.base.DB(ctx).
		Model(&models.PurchaseOrder{}).
		Where("id = ?", purchaseOrderID).
		Updates(map[string]any{
			"payout_status": enums.PayoutStatusReleased,
			"paid_out_at":   at,
			"updated_at":    at,
		}).Error
}

package refunds

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyhub-backend/internal/repo"
	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
)

// Repository persists refund requests and reads the order data they are computed from.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByPurchaseOrder(ctx context.Context, purchaseOrderID uuid.UUID) (*models.RefundRequest, error)
	Create(ctx context.Context, refund *models.RefundRequest) error
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindPurchaseOrderForUpdate(ctx context.Context, orderID, supplierID uuid.UUID) (*models.PurchaseOrder, error)
	ListSupplierItems(ctx context.Context, orderID, supplierID uuid.UUID) ([]models.OrderItem, error)
	SumOrderUnits(ctx context.Context, orderID uuid.UUID) (int, error)
}

type repository struct {
	base repo.Base
}

// NewRepository returns a refunds repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: r.base.WithTx(tx)}
}

// FindByPurchaseOrder returns nil without error when no refund exists.
func (r *repository) FindByPurchaseOrder(ctx context.Context, purchaseOrderID uuid.UUID) (*models.RefundRequest, error) {
	var refund models.RefundRequest
	err := r.base.DB(ctx).Where("purchase_order_id = ?", purchaseOrderID).First(&refund).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &refund, nil
}

func (r *repository) Create(ctx context.Context, refund *models.RefundRequest) error {
	if refund.ID == uuid.Nil {
		refund.ID = uuid.New()
	}
	return r.base.DB(ctx).Create(refund).Error
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.base.DB(ctx).Where("id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
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

func (r *repository) ListSupplierItems(ctx context.Context, orderID, supplierID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.base.DB(ctx).
		Where("order_id = ? AND supplier_id = ?", orderID, supplierID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

func (r *repository) SumOrderUnits(ctx context.Context, orderID uuid.UUID) (int, error) {
	var total int64
	err := r.base.DB(ctx).
		Model(&models.OrderItem{}).
		Where("order_id = ?", orderID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error
	return int(total), err
}

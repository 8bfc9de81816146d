package purchaseorders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyhub-backend/internal/repo"
	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
)

// Repository persists purchase orders and reads the order data around them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	Find(ctx context.Context, orderID, supplierID uuid.UUID) (*models.PurchaseOrder, error)
	FindForUpdate(ctx context.Context, orderID, supplierID uuid.UUID) (*models.PurchaseOrder, error)
	Create(ctx context.Context, po *models.PurchaseOrder) error
	Update(ctx context.Context, purchaseOrderID uuid.UUID, fields map[string]any) error
	ListSupplierItems(ctx context.Context, orderID, supplierID uuid.UUID) ([]models.OrderItem, error)
	ListOrderSupplierIDs(ctx context.Context, orderID uuid.UUID) ([]uuid.UUID, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.PurchaseOrder, error)
	MarkOrderDelivered(ctx context.Context, orderID uuid.UUID, at time.Time) error
	FindSupplier(ctx context.Context, supplierID uuid.UUID) (*models.Supplier, error)
	FindRider(ctx context.Context, riderID uuid.UUID) (*models.Rider, error)
}

type repository struct {
	base repo.Base
}

// NewRepository returns a purchase order repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: r.base.WithTx(tx)}
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.base.DB(ctx).Where("id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) Find(ctx context.Context, orderID, supplierID uuid.UUID) (*models.PurchaseOrder, error) {
	var po models.PurchaseOrder
	err := r.base.DB(ctx).
		Where("order_id = ? AND supplier_id = ?", orderID, supplierID).
		First(&po).Error
	if err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *repository) FindForUpdate(ctx context.Context, orderID, supplierID uuid.UUID) (*models.PurchaseOrder, error) {
	var po models.PurchaseOrder
	err := repo.ForUpdate(r.base.DB(ctx)).
		Where("order_id = ? AND supplier_id = ?", orderID, supplierID).
		First(&po).Error
	if err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *repository) Create(ctx context.Context, po *models.PurchaseOrder) error {
	if po.ID == uuid.Nil {
		po.ID = uuid.New()
	}
	return r.base.DB(ctx).Create(po).Error
}

func (r *repository) Update(ctx context.Context, purchaseOrderID uuid.UUID, fields map[string]any) error {
	return r.base.DB(ctx).
		Model(&models.PurchaseOrder{}).
		Where("id = ?", purchaseOrderID).
		Updates(fields).Error
}

func (r *repository) ListSupplierItems(ctx context.Context, orderID, supplierID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.base.DB(ctx).
		Where("order_id = ? AND supplier_id = ?", orderID, supplierID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// ListOrderSupplierIDs returns every supplier bound to at least one item.
func (r *repository) ListOrderSupplierIDs(ctx context.Context, orderID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.base.DB(ctx).
		Model(&models.OrderItem{}).
		Where("order_id = ? AND supplier_id IS NOT NULL", orderID).
		Distinct().
		Pluck("supplier_id", &ids).Error
	return ids, err
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.PurchaseOrder, error) {
	var pos []models.PurchaseOrder
	err := r.base.DB(ctx).Where("order_id = ?", orderID).Find(&pos).Error
	return pos, err
}

func (r *repository) MarkOrderDelivered(ctx context.Context, orderID uuid.UUID, at time.Time) error {
	return r.base.DB(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"status":       enums.OrderStatusDelivered,
			"delivered_at": at,
			"updated_at":   at,
		}).Error
}

func (r *repository) FindSupplier(ctx context.Context, supplierID uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := r.base.DB(ctx).Where("id = ?", supplierID).First(&supplier).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *repository) FindRider(ctx context.Context, riderID uuid.UUID) (*models.Rider, error) {
	var rider models.Rider
	if err := r.base.DB(ctx).Where("id = ?", riderID).First(&rider).Error; err != nil {
		return nil, err
	}
	return &rider, nil
}

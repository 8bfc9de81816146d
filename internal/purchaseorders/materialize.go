package purchaseorders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyhub-backend/internal/refunds"
	dbpkg "github.com/angelmondragon/supplyhub-backend/pkg/db"
	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
	"github.com/angelmondragon/supplyhub-backend/pkg/money"
)

const createSavepoint = "purchase_order_create"

var uniqueOrderSupplier = dbpkg.UniqueKey{
	Name:    "ux_purchase_orders_order_supplier",
	Table:   "purchase_orders",
	Columns: []string{"order_id", "supplier_id"},
}

func (s *service) Lock(ctx context.Context, tx *gorm.DB, orderID, supplierID uuid.UUID) (*models.PurchaseOrder, *models.Order, error) {
	if tx == nil {
		return nil, nil, errors.New("transaction required")
	}
	if orderID == uuid.Nil || supplierID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and supplier id are required")
	}
	repo := s.repo.WithTx(tx)

	order, err := repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, nil, lookupError(err, "order")
	}
	po, err := repo.FindForUpdate(ctx, orderID, supplierID)
	if err == nil {
		return po, order, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase order")
	}

	items, err := repo.ListSupplierItems(ctx, orderID, supplierID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier items")
	}
	if len(items) == 0 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
	}
	po = seedPurchaseOrder(orderID, supplierID, items)

	if err := tx.SavePoint(createSavepoint).Error; err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create savepoint")
	}
	if err := repo.Create(ctx, po); err != nil {
		if !dbpkg.IsUniqueViolation(err, uniqueOrderSupplier) {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create purchase order")
		}
		if rbErr := tx.RollbackTo(createSavepoint).Error; rbErr != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, rbErr, "rollback savepoint")
		}
		po, err = repo.FindForUpdate(ctx, orderID, supplierID)
		if err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase order")
		}
	}
	return po, order, nil
}

// Peek reads the purchase order without locking or persisting it. When no
// row exists yet the result is seeded from the order items and has a zero ID.
func (s *service) Peek(ctx context.Context, orderID, supplierID uuid.UUID) (*models.PurchaseOrder, error) {
	if orderID == uuid.Nil || supplierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and supplier id are required")
	}
	if _, err := s.repo.FindOrder(ctx, orderID); err != nil {
		return nil, lookupError(err, "order")
	}
	po, err := s.repo.Find(ctx, orderID, supplierID)
	if err == nil {
		return po, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase order")
	}
	items, err := s.repo.ListSupplierItems(ctx, orderID, supplierID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier items")
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
	}
	po = seedPurchaseOrder(orderID, supplierID, items)
	po.ID = uuid.Nil
	return po, nil
}

// seedPurchaseOrder aggregates the supplier's items. The platform keeps
// whatever part of the subtotal is not paid out to the supplier.
func seedPurchaseOrder(orderID, supplierID uuid.UUID, items []models.OrderItem) *models.PurchaseOrder {
	lines := make([]decimal.Decimal, 0, len(items))
	payouts := make([]decimal.Decimal, 0, len(items))
	for _, item := range items {
		lines = append(lines, refunds.LineAmount(item))
		payouts = append(payouts, item.SupplierPayout)
	}
	subtotal := money.Sum(lines...)
	supplierAmount := money.Sum(payouts...)
	return &models.PurchaseOrder{
		ID:             uuid.New(),
		OrderID:        orderID,
		SupplierID:     supplierID,
		Status:         enums.PurchaseOrderStatusPending,
		PayoutStatus:   enums.PayoutStatusPending,
		Subtotal:       subtotal,
		SupplierAmount: supplierAmount,
		PlatformFee:    money.Round2(subtotal.Sub(supplierAmount)),
	}
}

func lookupError(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, what+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+what)
}

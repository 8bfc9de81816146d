// Package testdb opens in-memory sqlite databases carrying the fulfillment
// schema and seeds the fixtures service tests share.
package testdb

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	dbpkg "github.com/angelmondragon/supplyhub-backend/pkg/db"
	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
)

var schema = []string{
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		phone TEXT,
		role TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE suppliers (
		id TEXT PRIMARY KEY,
		owner_user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		payout_disabled BOOLEAN NOT NULL DEFAULT 0,
		bank_verification_status TEXT NOT NULL DEFAULT 'pending',
		account_number TEXT,
		account_name TEXT,
		bank_code TEXT,
		country TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE riders (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		supplier_id TEXT,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE orders (
		id TEXT PRIMARY KEY,
		shopper_user_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'PENDING',
		subtotal NUMERIC NOT NULL DEFAULT 0,
		tax NUMERIC NOT NULL DEFAULT 0,
		service_fee_base NUMERIC NOT NULL DEFAULT 0,
		service_fee_comms NUMERIC NOT NULL DEFAULT 0,
		service_fee_gateway NUMERIC NOT NULL DEFAULT 0,
		shipping_phone TEXT,
		shipping_email TEXT,
		shipping_country TEXT,
		delivered_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE order_items (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		supplier_id TEXT,
		product_name TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		unit_price NUMERIC NOT NULL,
		line_total NUMERIC,
		supplier_payout NUMERIC NOT NULL DEFAULT 0,
		created_at DATETIME
	)`,
	`CREATE TABLE purchase_orders (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		supplier_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'PENDING',
		payout_status TEXT NOT NULL DEFAULT 'PENDING',
		rider_id TEXT,
		subtotal NUMERIC NOT NULL DEFAULT 0,
		supplier_amount NUMERIC NOT NULL DEFAULT 0,
		platform_fee NUMERIC NOT NULL DEFAULT 0,
		cancel_reason TEXT,
		canceled_by_user_id TEXT,
		confirmed_at DATETIME,
		packed_at DATETIME,
		shipped_at DATETIME,
		delivered_at DATETIME,
		canceled_at DATETIME,
		paid_out_at DATETIME,
		rider_assigned_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME,
		CONSTRAINT ux_purchase_orders_order_supplier UNIQUE (order_id, supplier_id)
	)`,
	`CREATE TABLE purchase_order_delivery_otps (
		id TEXT PRIMARY KEY,
		purchase_order_id TEXT NOT NULL,
		code_hash TEXT NOT NULL,
		salt TEXT NOT NULL,
		expires_at DATETIME NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		locked_until DATETIME,
		verified_at DATETIME,
		consumed_at DATETIME,
		delivered_at DATETIME,
		verified_by_user_id TEXT,
		requested_by_user_id TEXT NOT NULL,
		delivery_phone TEXT,
		delivery_email TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE UNIQUE INDEX ux_delivery_otps_active ON purchase_order_delivery_otps (purchase_order_id) WHERE consumed_at IS NULL`,
	`CREATE TABLE payments (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		status TEXT NOT NULL,
		amount NUMERIC NOT NULL,
		paid_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE supplier_payment_allocations (
		id TEXT PRIMARY KEY,
		payment_id TEXT NOT NULL,
		purchase_order_id TEXT NOT NULL,
		supplier_id TEXT NOT NULL,
		amount NUMERIC NOT NULL,
		status TEXT NOT NULL DEFAULT 'PENDING',
		released_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME,
		CONSTRAINT ux_allocations_payment_po_supplier UNIQUE (payment_id, purchase_order_id, supplier_id)
	)`,
	`CREATE TABLE supplier_ledger_entries (
		id TEXT PRIMARY KEY,
		supplier_id TEXT NOT NULL,
		type TEXT NOT NULL,
		amount NUMERIC NOT NULL,
		balance_after NUMERIC NOT NULL,
		reference_type TEXT NOT NULL,
		reference_id TEXT NOT NULL,
		description TEXT,
		created_at DATETIME
	)`,
	`CREATE UNIQUE INDEX ux_ledger_allocation_credit ON supplier_ledger_entries (reference_id) WHERE reference_type = 'SUPPLIER_PAYMENT_ALLOCATION' AND type = 'CREDIT'`,
	`CREATE TABLE refund_requests (
		id TEXT PRIMARY KEY,
		purchase_order_id TEXT NOT NULL,
		order_id TEXT NOT NULL,
		supplier_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'REQUESTED',
		reason TEXT,
		items_amount NUMERIC NOT NULL,
		tax_amount NUMERIC NOT NULL,
		service_base_amount NUMERIC NOT NULL,
		service_comms_amount NUMERIC NOT NULL,
		service_gateway_amount NUMERIC NOT NULL,
		total_amount NUMERIC NOT NULL,
		requested_by_user_id TEXT,
		created_at DATETIME,
		updated_at DATETIME,
		CONSTRAINT ux_refund_requests_purchase_order UNIQUE (purchase_order_id)
	)`,
	`CREATE TABLE notifications (
		id TEXT PRIMARY KEY,
		recipient_user_id TEXT,
		recipient_group TEXT,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		payload TEXT,
		read_at DATETIME,
		created_at DATETIME
	)`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
	`CREATE TABLE outbox_dlq (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL UNIQUE,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		error_reason TEXT NOT NULL,
		error_message TEXT,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		failed_at DATETIME
	)`,
}

// Open returns a private in-memory database named after the test with every
// fulfillment table created.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return conn
}

// Client wraps conn in the transaction-capable db client services expect.
func Client(conn *gorm.DB) *dbpkg.Client {
	return dbpkg.Wrap(conn)
}

// Dec parses a decimal literal and panics on malformed input.
func Dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

// MustCreateUser inserts a user with the given role and contact details.
func MustCreateUser(t *testing.T, db *gorm.DB, role enums.ActorRole, phone, email string) *models.User {
	t.Helper()
	user := &models.User{
		ID:   uuid.New(),
		Name: fmt.Sprintf("%s %s", role, uuid.NewString()[:8]),
		Role: role,
	}
	if phone != "" {
		user.Phone = &phone
	}
	if email != "" {
		user.Email = &email
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// MustCreateSupplier inserts a supplier owned by a new supplier user with a
// verified bank profile, so payouts succeed unless the caller mutates it.
func MustCreateSupplier(t *testing.T, db *gorm.DB) *models.Supplier {
	t.Helper()
	owner := MustCreateUser(t, db, enums.ActorRoleSupplier, "", "")
	account, name, bank, country := "0123456789", "Acme Supplies", "058", "NG"
	supplier := &models.Supplier{
		ID:                     uuid.New(),
		OwnerUserID:            owner.ID,
		Name:                   "Acme Supplies",
		BankVerificationStatus: enums.BankVerificationVerified,
		AccountNumber:          &account,
		AccountName:            &name,
		BankCode:               &bank,
		Country:                &country,
	}
	if err := db.Create(supplier).Error; err != nil {
		t.Fatalf("create supplier: %v", err)
	}
	return supplier
}

// MustCreateRider inserts an active rider attached to supplierID.
func MustCreateRider(t *testing.T, db *gorm.DB, supplierID *uuid.UUID) *models.Rider {
	t.Helper()
	user := MustCreateUser(t, db, enums.ActorRoleRider, "", "")
	rider := &models.Rider{
		ID:         uuid.New(),
		UserID:     user.ID,
		SupplierID: supplierID,
		Active:     true,
	}
	if err := db.Create(rider).Error; err != nil {
		t.Fatalf("create rider: %v", err)
	}
	return rider
}

// OrderLine describes one order line for MustCreateOrder.
type OrderLine struct {
	SupplierID uuid.UUID
	Quantity   int
	UnitPrice  string
	Payout     string
}

// MustCreateOrder inserts a shopper, an order with the given fee totals, and
// its items. Line totals are stored as quantity times unit price.
func MustCreateOrder(t *testing.T, db *gorm.DB, totals models.Order, items ...OrderLine) *models.Order {
	t.Helper()
	shopper := MustCreateUser(t, db, enums.ActorRoleShopper, "+2348031234567", "shopper@example.com")
	order := totals
	order.ID = uuid.New()
	order.ShopperUserID = shopper.ID
	if order.Status == "" {
		order.Status = enums.OrderStatusPaid
	}
	order.Items = nil
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("create order: %v", err)
	}
	for _, ol := range items {
		supplierID := ol.SupplierID
		price := Dec(ol.UnitPrice)
		line := price.Mul(decimal.NewFromInt(int64(ol.Quantity)))
		payout := decimal.Zero
		if ol.Payout != "" {
			payout = Dec(ol.Payout)
		}
		item := models.OrderItem{
			ID:             uuid.New(),
			OrderID:        order.ID,
			SupplierID:     &supplierID,
			ProductName:    "item",
			Quantity:       ol.Quantity,
			UnitPrice:      price,
			LineTotal:      &line,
			SupplierPayout: payout,
		}
		if err := db.Create(&item).Error; err != nil {
			t.Fatalf("create order item: %v", err)
		}
		order.Items = append(order.Items, item)
	}
	return &order
}

// MustCreatePaidPayment inserts a PAID payment for orderID.
func MustCreatePaidPayment(t *testing.T, db *gorm.DB, orderID uuid.UUID, amount string) *models.Payment {
	t.Helper()
	paidAt := time.Now().UTC()
	payment := &models.Payment{
		ID:      uuid.New(),
		OrderID: orderID,
		Status:  enums.PaymentStatusPaid,
		Amount:  Dec(amount),
		PaidAt:  &paidAt,
	}
	if err := db.Create(payment).Error; err != nil {
		t.Fatalf("create payment: %v", err)
	}
	return payment
}

// MustCreatePurchaseOrder inserts a purchase order in the given status.
func MustCreatePurchaseOrder(t *testing.T, db *gorm.DB, orderID, supplierID uuid.UUID, status enums.PurchaseOrderStatus) *models.PurchaseOrder {
	t.Helper()
	po := &models.PurchaseOrder{
		ID:           uuid.New(),
		OrderID:      orderID,
		SupplierID:   supplierID,
		Status:       status,
		PayoutStatus: enums.PayoutStatusPending,
	}
	if err := db.Create(po).Error; err != nil {
		t.Fatalf("create purchase order: %v", err)
	}
	return po
}

// MustCreateAllocation inserts a PENDING allocation of amount for po.
func MustCreateAllocation(t *testing.T, db *gorm.DB, paymentID uuid.UUID, po *models.PurchaseOrder, amount string) *models.SupplierPaymentAllocation {
	t.Helper()
	alloc := &models.SupplierPaymentAllocation{
		ID:              uuid.New(),
		PaymentID:       paymentID,
		PurchaseOrderID: po.ID,
		SupplierID:      po.SupplierID,
		Amount:          Dec(amount),
		Status:          enums.AllocationStatusPending,
	}
	if err := db.Create(alloc).Error; err != nil {
		t.Fatalf("create allocation: %v", err)
	}
	return alloc
}

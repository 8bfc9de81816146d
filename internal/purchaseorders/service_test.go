package purchaseorders

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyhub-backend/internal/actor"
	"github.com/angelmondragon/supplyhub-backend/internal/ledger"
	"github.com/angelmondragon/supplyhub-backend/internal/notifications"
	"github.com/angelmondragon/supplyhub-backend/internal/payouts"
	"github.com/angelmondragon/supplyhub-backend/internal/refunds"
	"github.com/angelmondragon/supplyhub-backend/internal/testdb"
	dbpkg "github.com/angelmondragon/supplyhub-backend/pkg/db"
	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
	"github.com/angelmondragon/supplyhub-backend/pkg/outbox"
)

const validCode = "246810"

type fakeCodes struct {
	calls int
}

func (f *fakeCodes) Consume(ctx context.Context, userID uuid.UUID, action enums.Action, code string) error {
	f.calls++
	if action != enums.ActionCancelOrder || code != validCode {
		return pkgerrors.New(pkgerrors.CodeInvalidCode, "authorization code is invalid or expired")
	}
	return nil
}

type recordingNotifier struct {
	messages []notifications.Message
	fail     error
}

func (r *recordingNotifier) Notify(ctx context.Context, msg notifications.Message) error {
	r.messages = append(r.messages, msg)
	return r.fail
}

type poFixture struct {
	conn     *gorm.DB
	svc      Service
	codes    *fakeCodes
	notifier *recordingNotifier
	supplier *models.Supplier
	other    *models.Supplier
	order    *models.Order
}

func newPOFixture(t *testing.T) *poFixture {
	t.Helper()
	conn := testdb.Open(t)
	supplier := testdb.MustCreateSupplier(t, conn)
	other := testdb.MustCreateSupplier(t, conn)
	order := testdb.MustCreateOrder(t, conn, models.Order{
		Subtotal:        testdb.Dec("10000"),
		Tax:             testdb.Dec("750"),
		ServiceFeeBase:  testdb.Dec("500"),
		ServiceFeeComms: testdb.Dec("300"),
	},
		testdb.OrderLine{SupplierID: supplier.ID, Quantity: 4, UnitPrice: "1000", Payout: "3600"},
		testdb.OrderLine{SupplierID: other.ID, Quantity: 6, UnitPrice: "1000", Payout: "5400"},
	)

	outboxSvc := outbox.NewService(outbox.NewRepository(conn), nil)
	client := testdb.Client(conn)
	notifier := &recordingNotifier{}
	refundSvc, err := refunds.NewService(refunds.NewRepository(conn), client, outboxSvc)
	require.NoError(t, err)
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	require.NoError(t, err)
	payoutSvc, err := payouts.NewService(payouts.ServiceParams{
		Repo: payouts.NewRepository(conn), Tx: client, Ledger: ledgerSvc, Outbox: outboxSvc, Notifier: notifier,
	})
	require.NoError(t, err)

	codes := &fakeCodes{}
	svc, err := NewService(ServiceParams{
		Repo:        NewRepository(conn),
		Tx:          client,
		Refunds:     refundSvc,
		Payouts:     payoutSvc,
		ActionCodes: codes,
		Outbox:      outboxSvc,
		Notifier:    notifier,
	})
	require.NoError(t, err)
	return &poFixture{conn: conn, svc: svc, codes: codes, notifier: notifier, supplier: supplier, other: other, order: order}
}

func supplierActor(s *models.Supplier) actor.Context {
	id := s.ID
	return actor.Context{UserID: s.OwnerUserID, Role: enums.ActorRoleSupplier, SupplierID: &id}
}

func (f *poFixture) advance(t *testing.T, actx actor.Context, statuses ...string) {
	t.Helper()
	for _, status := range statuses {
		_, err := f.svc.SetStatus(context.Background(), actx, f.order.ID, SetStatusInput{Status: status})
		require.NoError(t, err, "advance to %s", status)
	}
}

func (f *poFixture) countEvents(t *testing.T, typ enums.OutboxEventType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", typ).Count(&n).Error)
	return n
}

func TestGetDerivesPurchaseOrderWithoutStoring(t *testing.T) {
	f := newPOFixture(t)
	actx := supplierActor(f.supplier)

	po, err := f.svc.Get(context.Background(), actx, f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, po.ID)
	assert.Equal(t, enums.PurchaseOrderStatusPending, po.Status)
	assert.True(t, po.Subtotal.Equal(testdb.Dec("4000")), "subtotal %s", po.Subtotal)
	assert.True(t, po.SupplierAmount.Equal(testdb.Dec("3600")))
	assert.True(t, po.PlatformFee.Equal(testdb.Dec("400")))

	var count int64
	require.NoError(t, f.conn.Model(&models.PurchaseOrder{}).Where("order_id = ?", f.order.ID).Count(&count).Error)
	assert.Zero(t, count, "reads must not create purchase orders")

	f.advance(t, actx, "CONFIRMED")
	stored, err := f.svc.Get(context.Background(), actx, f.order.ID)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, stored.ID)
	assert.Equal(t, enums.PurchaseOrderStatusConfirmed, stored.Status)
	again, err := f.svc.Get(context.Background(), actx, f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, again.ID)
	require.NoError(t, f.conn.Model(&models.PurchaseOrder{}).Where("order_id = ?", f.order.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	stranger := testdb.MustCreateSupplier(t, f.conn)
	_, err = f.svc.Get(context.Background(), supplierActor(stranger), f.order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	_, err = f.svc.Get(context.Background(), supplierActor(f.supplier), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestDuplicatePurchaseOrderIsRecognized(t *testing.T) {
	f := newPOFixture(t)
	testdb.MustCreatePurchaseOrder(t, f.conn, f.order.ID, f.supplier.ID, enums.PurchaseOrderStatusPending)

	err := NewRepository(f.conn).Create(context.Background(), &models.PurchaseOrder{
		OrderID:      f.order.ID,
		SupplierID:   f.supplier.ID,
		Status:       enums.PurchaseOrderStatusPending,
		PayoutStatus: enums.PayoutStatusPending,
	})
	require.Error(t, err)
	assert.True(t, dbpkg.IsUniqueViolation(err, uniqueOrderSupplier), "got %v", err)
}

func TestSetStatusWalksForwardAndNotifies(t *testing.T) {
	f := newPOFixture(t)
	actx := supplierActor(f.supplier)

	f.advance(t, actx, "confirmed", "PACKED", "SHIPPED")

	var po models.PurchaseOrder
	require.NoError(t, f.conn.First(&po, "order_id = ? AND supplier_id = ?", f.order.ID, f.supplier.ID).Error)
	assert.Equal(t, enums.PurchaseOrderStatusShipped, po.Status)
	assert.NotNil(t, po.ConfirmedAt)
	assert.NotNil(t, po.PackedAt)
	assert.NotNil(t, po.ShippedAt)
	assert.Nil(t, po.DeliveredAt)
	assert.EqualValues(t, 3, f.countEvents(t, enums.EventPurchaseOrderStatusChanged))

	// shopper, supplier owner and admin group for each of the three steps
	require.Len(t, f.notifier.messages, 9)
	recipients := map[string]bool{}
	for _, msg := range f.notifier.messages[:3] {
		switch {
		case msg.RecipientGroup != nil:
			recipients["admins"] = true
		case *msg.RecipientUserID == f.order.ShopperUserID:
			recipients["shopper"] = true
		case *msg.RecipientUserID == f.supplier.OwnerUserID:
			recipients["supplier"] = true
		}
		assert.Equal(t, "CONFIRMED", msg.Payload["to"])
	}
	assert.Len(t, recipients, 3)
}

func TestSetStatusRejectsInvalidRequests(t *testing.T) {
	f := newPOFixture(t)
	actx := supplierActor(f.supplier)
	ctx := context.Background()

	_, err := f.svc.SetStatus(ctx, actx, f.order.ID, SetStatusInput{Status: "PACKED"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)

	_, err = f.svc.SetStatus(ctx, actx, f.order.ID, SetStatusInput{Status: "DELIVERED"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "got %v", err)

	_, err = f.svc.SetStatus(ctx, actx, f.order.ID, SetStatusInput{Status: "teleported"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	riderID := uuid.New()
	rider := actor.Context{UserID: uuid.New(), Role: enums.ActorRoleRider, SupplierID: actx.SupplierID, RiderID: &riderID}
	_, err = f.svc.SetStatus(ctx, rider, f.order.ID, SetStatusInput{Status: "CONFIRMED"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "got %v", err)

	admin := actor.Context{UserID: uuid.New(), Role: enums.ActorRoleAdmin}
	_, err = f.svc.SetStatus(ctx, admin, f.order.ID, SetStatusInput{Status: "CONFIRMED"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "got %v", err)

	f.advance(t, actx, "CONFIRMED", "PACKED", "SHIPPED")
	_, err = f.svc.SetStatus(ctx, actx, f.order.ID, SetStatusInput{Status: "CANCELLED", Reason: "late", AuthorizationCode: validCode})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)
}

func TestSetStatusReplayIsNoop(t *testing.T) {
	f := newPOFixture(t)
	actx := supplierActor(f.supplier)
	f.advance(t, actx, "CONFIRMED")
	events := f.countEvents(t, enums.EventPurchaseOrderStatusChanged)
	sent := len(f.notifier.messages)

	tr, err := f.svc.SetStatus(context.Background(), actx, f.order.ID, SetStatusInput{Status: "CONFIRMED"})
	require.NoError(t, err)
	assert.False(t, tr.Changed)
	assert.Equal(t, events, f.countEvents(t, enums.EventPurchaseOrderStatusChanged))
	assert.Len(t, f.notifier.messages, sent)
}

func TestCancelFromPendingSkipsRefund(t *testing.T) {
	f := newPOFixture(t)
	actx := supplierActor(f.supplier)

	tr, err := f.svc.SetStatus(context.Background(), actx, f.order.ID, SetStatusInput{Status: "CANCELED"})
	require.NoError(t, err)
	assert.True(t, tr.Changed)
	assert.Nil(t, tr.Refund)
	assert.Zero(t, f.codes.calls)
	assert.NotNil(t, tr.PurchaseOrder.CanceledAt)
	assert.Equal(t, actx.UserID, *tr.PurchaseOrder.CanceledByUserID)

	var refunds int64
	require.NoError(t, f.conn.Model(&models.RefundRequest{}).Count(&refunds).Error)
	assert.Zero(t, refunds)
}

func TestCancelAfterConfirmationNeedsReasonAndCode(t *testing.T) {
	f := newPOFixture(t)
	actx := supplierActor(f.supplier)
	ctx := context.Background()
	f.advance(t, actx, "CONFIRMED", "PACKED")

	_, err := f.svc.SetStatus(ctx, actx, f.order.ID, SetStatusInput{Status: "CANCELED", AuthorizationCode: validCode})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePrecondition), "got %v", err)

	_, err = f.svc.SetStatus(ctx, actx, f.order.ID, SetStatusInput{Status: "CANCELED", Reason: "  out of stock  "})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePrecondition), "got %v", err)

	_, err = f.svc.SetStatus(ctx, actx, f.order.ID, SetStatusInput{Status: "CANCELED", Reason: "out of stock", AuthorizationCode: "000000"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidCode), "got %v", err)

	tr, err := f.svc.SetStatus(ctx, actx, f.order.ID, SetStatusInput{Status: "CANCELED", Reason: "  out of stock  ", AuthorizationCode: validCode})
	require.NoError(t, err)
	require.NotNil(t, tr.Refund)
	assert.True(t, tr.Refund.Created)
	assert.True(t, tr.Refund.Refund.TotalAmount.Equal(testdb.Dec("4620")), "total %s", tr.Refund.Refund.TotalAmount)
	assert.Equal(t, "out of stock", *tr.PurchaseOrder.CancelReason)

	var stored models.PurchaseOrder
	require.NoError(t, f.conn.First(&stored, "id = ?", tr.PurchaseOrder.ID).Error)
	assert.Equal(t, enums.PurchaseOrderStatusCanceled, stored.Status)
	assert.Equal(t, "out of stock", *stored.CancelReason)
	assert.EqualValues(t, 1, f.countEvents(t, enums.EventRefundRequested))
}

func TestCancelRollbackKeepsAuthorizationCode(t *testing.T) {
	f := newPOFixture(t)
	actx := supplierActor(f.supplier)
	ctx := context.Background()
	f.advance(t, actx, "CONFIRMED", "PACKED")
	require.NoError(t, f.conn.Migrator().DropTable(&models.RefundRequest{}))

	_, err := f.svc.SetStatus(ctx, actx, f.order.ID, SetStatusInput{Status: "CANCELED", Reason: "out of stock", AuthorizationCode: validCode})
	require.Error(t, err)
	assert.Zero(t, f.codes.calls, "code must survive a failed cancel")

	var stored models.PurchaseOrder
	require.NoError(t, f.conn.First(&stored, "order_id = ? AND supplier_id = ?", f.order.ID, f.supplier.ID).Error)
	assert.Equal(t, enums.PurchaseOrderStatusPacked, stored.Status)
	assert.Nil(t, stored.CanceledAt)
}

func TestSetStatusCommitsWhenNotifierFails(t *testing.T) {
	f := newPOFixture(t)
	actx := supplierActor(f.supplier)
	f.notifier.fail = errors.New("smtp unavailable")

	tr, err := f.svc.SetStatus(context.Background(), actx, f.order.ID, SetStatusInput{Status: "CONFIRMED"})
	require.NoError(t, err)
	assert.True(t, tr.Changed)
	assert.Len(t, f.notifier.messages, 3, "every participant is still attempted")

	var stored models.PurchaseOrder
	require.NoError(t, f.conn.First(&stored, "order_id = ? AND supplier_id = ?", f.order.ID, f.supplier.ID).Error)
	assert.Equal(t, enums.PurchaseOrderStatusConfirmed, stored.Status)
	assert.EqualValues(t, 1, f.countEvents(t, enums.EventPurchaseOrderStatusChanged))
}

func TestMarkDeliveredReleasesPayoutAndPromotesOrder(t *testing.T) {
	f := newPOFixture(t)
	ctx := context.Background()
	payment := testdb.MustCreatePaidPayment(t, f.conn, f.order.ID, "11550")
	first := testdb.MustCreatePurchaseOrder(t, f.conn, f.order.ID, f.supplier.ID, enums.PurchaseOrderStatusShipped)
	second := testdb.MustCreatePurchaseOrder(t, f.conn, f.order.ID, f.other.ID, enums.PurchaseOrderStatusOutForDelivery)
	testdb.MustCreateAllocation(t, f.conn, payment.ID, first, "3600")
	testdb.MustCreateAllocation(t, f.conn, payment.ID, second, "5400")

	deliver := func(supplier *models.Supplier) *Transition {
		var tr *Transition
		require.NoError(t, f.conn.Transaction(func(tx *gorm.DB) error {
			po, order, err := f.svc.Lock(ctx, tx, f.order.ID, supplier.ID)
			if err != nil {
				return err
			}
			tr, err = f.svc.MarkDelivered(ctx, tx, po, order, supplierActor(supplier))
			return err
		}))
		f.svc.Announce(ctx, tr)
		return tr
	}

	tr := deliver(f.supplier)
	require.NotNil(t, tr.Payout)
	assert.True(t, tr.Payout.Released)
	assert.Equal(t, enums.PayoutStatusReleased, tr.PurchaseOrder.PayoutStatus)
	assert.NotNil(t, tr.PurchaseOrder.DeliveredAt)

	var order models.Order
	require.NoError(t, f.conn.First(&order, "id = ?", f.order.ID).Error)
	assert.Equal(t, enums.OrderStatusPaid, order.Status, "one supplier still in transit")

	tr = deliver(f.other)
	assert.True(t, tr.Payout.Released)
	require.NoError(t, f.conn.First(&order, "id = ?", f.order.ID).Error)
	assert.Equal(t, enums.OrderStatusDelivered, order.Status)
	assert.NotNil(t, order.DeliveredAt)

	var credits int64
	require.NoError(t, f.conn.Model(&models.SupplierLedgerEntry{}).Where("type = ?", enums.LedgerEntryCredit).Count(&credits).Error)
	assert.EqualValues(t, 2, credits)

	payoutNotices := 0
	for _, msg := range f.notifier.messages {
		if msg.Type == enums.NotificationTypePayoutReleased {
			payoutNotices++
		}
	}
	assert.Equal(t, 2, payoutNotices)

	err := f.conn.Transaction(func(tx *gorm.DB) error {
		po, order, err := f.svc.Lock(ctx, tx, f.order.ID, f.supplier.ID)
		if err != nil {
			return err
		}
		_, err = f.svc.MarkDelivered(ctx, tx, po, order, supplierActor(f.supplier))
		return err
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)
}

func TestMarkDeliveredRollsBackWhenPayoutBlocked(t *testing.T) {
	f := newPOFixture(t)
	ctx := context.Background()
	payment := testdb.MustCreatePaidPayment(t, f.conn, f.order.ID, "11550")
	po := testdb.MustCreatePurchaseOrder(t, f.conn, f.order.ID, f.supplier.ID, enums.PurchaseOrderStatusShipped)
	testdb.MustCreateAllocation(t, f.conn, payment.ID, po, "3600")
	require.NoError(t, f.conn.Model(&models.Supplier{}).Where("id = ?", f.supplier.ID).Update("payout_disabled", true).Error)

	err := f.conn.Transaction(func(tx *gorm.DB) error {
		locked, order, err := f.svc.Lock(ctx, tx, f.order.ID, f.supplier.ID)
		if err != nil {
			return err
		}
		_, err = f.svc.MarkDelivered(ctx, tx, locked, order, supplierActor(f.supplier))
		return err
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodePrecondition), "got %v", err)

	var stored models.PurchaseOrder
	require.NoError(t, f.conn.First(&stored, "id = ?", po.ID).Error)
	assert.Equal(t, enums.PurchaseOrderStatusShipped, stored.Status)
	assert.Nil(t, stored.DeliveredAt)
}

func TestAssignRider(t *testing.T) {
	f := newPOFixture(t)
	actx := supplierActor(f.supplier)
	ctx := context.Background()
	rider := testdb.MustCreateRider(t, f.conn, &f.supplier.ID)
	foreign := testdb.MustCreateRider(t, f.conn, &f.other.ID)

	_, err := f.svc.AssignRider(ctx, actx, f.order.ID, &rider.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)

	f.advance(t, actx, "CONFIRMED", "PACKED")

	_, err = f.svc.AssignRider(ctx, actx, f.order.ID, &foreign.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "got %v", err)

	missing := uuid.New()
	_, err = f.svc.AssignRider(ctx, actx, f.order.ID, &missing)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	sent := len(f.notifier.messages)
	po, err := f.svc.AssignRider(ctx, actx, f.order.ID, &rider.ID)
	require.NoError(t, err)
	require.NotNil(t, po.RiderID)
	assert.Equal(t, rider.ID, *po.RiderID)
	require.Len(t, f.notifier.messages, sent+1)
	assert.Equal(t, rider.UserID, *f.notifier.messages[sent].RecipientUserID)
	assert.EqualValues(t, 1, f.countEvents(t, enums.EventPurchaseOrderRiderAssigned))

	riderCtx := actor.Context{UserID: rider.UserID, Role: enums.ActorRoleRider, SupplierID: actx.SupplierID, RiderID: &rider.ID}
	seen, err := f.svc.Get(ctx, riderCtx, f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, po.ID, seen.ID)

	po, err = f.svc.AssignRider(ctx, actx, f.order.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, po.RiderID)
	_, err = f.svc.Get(ctx, riderCtx, f.order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "got %v", err)
}

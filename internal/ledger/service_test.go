package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyhub-backend/internal/actor"
	"github.com/angelmondragon/supplyhub-backend/internal/testdb"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
)

func newTestService(t *testing.T, conn *gorm.DB) *service {
	t.Helper()
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	impl := svc.(*service)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	calls := 0
	impl.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Second)
	}
	return impl
}

func TestRecordAccumulatesBalance(t *testing.T) {
	conn := testdb.Open(t)
	supplier := testdb.MustCreateSupplier(t, conn)
	svc := newTestService(t, conn)
	ctx := context.Background()

	var credit, debit *EntryInput
	credit = &EntryInput{
		SupplierID:    supplier.ID,
		Type:          enums.LedgerEntryCredit,
		Amount:        testdb.Dec("100.00"),
		ReferenceType: enums.LedgerReferenceAllocation,
		ReferenceID:   uuid.New(),
		Description:   "payout",
	}
	debit = &EntryInput{
		SupplierID:    supplier.ID,
		Type:          enums.LedgerEntryDebit,
		Amount:        testdb.Dec("30.50"),
		ReferenceType: enums.LedgerReferenceAdjustment,
		ReferenceID:   uuid.New(),
	}

	for _, input := range []*EntryInput{credit, debit} {
		in := *input
		require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
			_, err := svc.Record(ctx, tx, in)
			return err
		}))
	}

	balance, err := svc.Balance(ctx, supplier.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(testdb.Dec("69.50")), "balance %s", balance)

	entries, err := svc.List(ctx, supplier.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, enums.LedgerEntryDebit, entries[0].Type)
	assert.True(t, entries[1].BalanceAfter.Equal(testdb.Dec("100")))
	require.NotNil(t, entries[1].Description)
	assert.Equal(t, "payout", *entries[1].Description)
}

func TestBalanceWithoutEntriesIsZero(t *testing.T) {
	conn := testdb.Open(t)
	supplier := testdb.MustCreateSupplier(t, conn)
	svc := newTestService(t, conn)

	balance, err := svc.Balance(context.Background(), supplier.ID)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestRecordRejectsInvalidInput(t *testing.T) {
	conn := testdb.Open(t)
	supplier := testdb.MustCreateSupplier(t, conn)
	svc := newTestService(t, conn)
	ctx := context.Background()

	valid := EntryInput{
		SupplierID:    supplier.ID,
		Type:          enums.LedgerEntryCredit,
		Amount:        testdb.Dec("1"),
		ReferenceType: enums.LedgerReferenceAdjustment,
		ReferenceID:   uuid.New(),
	}

	cases := map[string]func(in *EntryInput){
		"missing supplier":  func(in *EntryInput) { in.SupplierID = uuid.Nil },
		"missing reference": func(in *EntryInput) { in.ReferenceID = uuid.Nil },
		"bad type":          func(in *EntryInput) { in.Type = "REVERSAL" },
		"negative amount":   func(in *EntryInput) { in.Amount = testdb.Dec("-1") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := valid
			mutate(&in)
			err := conn.Transaction(func(tx *gorm.DB) error {
				_, err := svc.Record(ctx, tx, in)
				return err
			})
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}

func TestRecordUnknownSupplier(t *testing.T) {
	conn := testdb.Open(t)
	svc := newTestService(t, conn)

	err := conn.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Record(context.Background(), tx, EntryInput{
			SupplierID:    uuid.New(),
			Type:          enums.LedgerEntryCredit,
			Amount:        testdb.Dec("5"),
			ReferenceType: enums.LedgerReferenceAdjustment,
			ReferenceID:   uuid.New(),
		})
		return err
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestRecordRequiresTransaction(t *testing.T) {
	conn := testdb.Open(t)
	svc := newTestService(t, conn)
	_, err := svc.Record(context.Background(), nil, EntryInput{})
	require.Error(t, err)
}

func TestStatementScopesToActingSupplier(t *testing.T) {
	conn := testdb.Open(t)
	supplier := testdb.MustCreateSupplier(t, conn)
	svc := newTestService(t, conn)
	ctx := context.Background()

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Record(ctx, tx, EntryInput{
			SupplierID:    supplier.ID,
			Type:          enums.LedgerEntryCredit,
			Amount:        testdb.Dec("42.10"),
			ReferenceType: enums.LedgerReferenceAllocation,
			ReferenceID:   uuid.New(),
		})
		return err
	}))

	owner := actor.Context{UserID: uuid.New(), Role: enums.ActorRoleSupplier, SupplierID: &supplier.ID}
	stmt, err := svc.Statement(ctx, owner, 5)
	require.NoError(t, err)
	assert.Equal(t, supplier.ID, stmt.SupplierID)
	assert.True(t, stmt.Balance.Equal(testdb.Dec("42.10")))
	assert.Len(t, stmt.Entries, 1)

	admin := actor.Context{UserID: uuid.New(), Role: enums.ActorRoleAdmin, SupplierID: &supplier.ID, Impersonating: true}
	_, err = svc.Statement(ctx, admin, 5)
	require.NoError(t, err)

	rider := actor.Context{UserID: uuid.New(), Role: enums.ActorRoleRider, SupplierID: &supplier.ID}
	_, err = svc.Statement(ctx, rider, 5)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "got %v", err)

	plainAdmin := actor.Context{UserID: uuid.New(), Role: enums.ActorRoleAdmin}
	_, err = svc.Statement(ctx, plainAdmin, 5)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "got %v", err)
}

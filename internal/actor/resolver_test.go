package actor

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
)

type fakeRepository struct {
	suppliers map[uuid.UUID]*models.Supplier
	riders    map[uuid.UUID]*models.Rider
	err       error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		suppliers: map[uuid.UUID]*models.Supplier{},
		riders:    map[uuid.UUID]*models.Rider{},
	}
}

func (f *fakeRepository) FindSupplier(ctx context.Context, supplierID uuid.UUID) (*models.Supplier, error) {
	if f.err != nil {
		return nil, f.err
	}
	if s, ok := f.suppliers[supplierID]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) FindSupplierByOwner(ctx context.Context, userID uuid.UUID) (*models.Supplier, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, s := range f.suppliers {
		if s.OwnerUserID == userID {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) FindRiderByUser(ctx context.Context, userID uuid.UUID) (*models.Rider, error) {
	if r, ok := f.riders[userID]; ok {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func newResolver(t *testing.T, repo Repository) *Resolver {
	t.Helper()
	r, err := NewResolver(repo)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	return r
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if !pkgerrors.IsCode(err, code) {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func TestResolveAdmin(t *testing.T) {
	repo := newFakeRepository()
	supplier := &models.Supplier{ID: uuid.New(), OwnerUserID: uuid.New()}
	repo.suppliers[supplier.ID] = supplier
	r := newResolver(t, repo)
	admin := Identity{UserID: uuid.New(), Role: enums.ActorRoleAdmin}

	actx, err := r.Resolve(context.Background(), admin, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if actx.SupplierID != nil || actx.Impersonating {
		t.Fatalf("admin without selection must have no supplier scope: %+v", actx)
	}

	actx, err = r.Resolve(context.Background(), admin, &supplier.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if actx.SupplierID == nil || *actx.SupplierID != supplier.ID || !actx.Impersonating {
		t.Fatalf("expected impersonation of %s, got %+v", supplier.ID, actx)
	}
	if !actx.ActsForSupplier() {
		t.Fatalf("impersonating admin should act for supplier")
	}

	missing := uuid.New()
	_, err = r.Resolve(context.Background(), admin, &missing)
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestResolveSupplier(t *testing.T) {
	repo := newFakeRepository()
	owner := uuid.New()
	supplier := &models.Supplier{ID: uuid.New(), OwnerUserID: owner}
	repo.suppliers[supplier.ID] = supplier
	r := newResolver(t, repo)
	id := Identity{UserID: owner, Role: enums.ActorRoleSupplier}

	actx, err := r.Resolve(context.Background(), id, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if actx.SupplierID == nil || *actx.SupplierID != supplier.ID || actx.Impersonating {
		t.Fatalf("unexpected context %+v", actx)
	}

	same := supplier.ID
	if _, err := r.Resolve(context.Background(), id, &same); err != nil {
		t.Fatalf("matching selection should be accepted: %v", err)
	}

	other := uuid.New()
	_, err = r.Resolve(context.Background(), id, &other)
	assertCode(t, err, pkgerrors.CodeForbidden)

	_, err = r.Resolve(context.Background(), Identity{UserID: uuid.New(), Role: enums.ActorRoleSupplier}, nil)
	assertCode(t, err, pkgerrors.CodeForbidden)
}

func TestResolveRider(t *testing.T) {
	repo := newFakeRepository()
	supplierID := uuid.New()
	active := &models.Rider{ID: uuid.New(), UserID: uuid.New(), SupplierID: &supplierID, Active: true}
	inactive := &models.Rider{ID: uuid.New(), UserID: uuid.New(), SupplierID: &supplierID, Active: false}
	detached := &models.Rider{ID: uuid.New(), UserID: uuid.New(), Active: true}
	for _, rider := range []*models.Rider{active, inactive, detached} {
		repo.riders[rider.UserID] = rider
	}
	r := newResolver(t, repo)

	actx, err := r.Resolve(context.Background(), Identity{UserID: active.UserID, Role: enums.ActorRoleRider}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if actx.RiderID == nil || *actx.RiderID != active.ID {
		t.Fatalf("expected rider id, got %+v", actx)
	}
	if actx.SupplierID == nil || *actx.SupplierID != supplierID {
		t.Fatalf("expected rider's supplier scope, got %+v", actx)
	}
	if actx.ActsForSupplier() {
		t.Fatalf("riders never act for the supplier")
	}

	for _, rider := range []*models.Rider{inactive, detached} {
		_, err := r.Resolve(context.Background(), Identity{UserID: rider.UserID, Role: enums.ActorRoleRider}, nil)
		assertCode(t, err, pkgerrors.CodeForbidden)
	}
}

func TestResolveShopperAndInvalid(t *testing.T) {
	r := newResolver(t, newFakeRepository())

	actx, err := r.Resolve(context.Background(), Identity{UserID: uuid.New(), Role: enums.ActorRoleShopper}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if actx.SupplierID != nil {
		t.Fatalf("shopper must not carry supplier scope")
	}

	_, err = r.Resolve(context.Background(), Identity{UserID: uuid.New(), Role: "auditor"}, nil)
	assertCode(t, err, pkgerrors.CodeUnauthorized)

	_, err = r.Resolve(context.Background(), Identity{Role: enums.ActorRoleAdmin}, nil)
	assertCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestResolveDependencyFailure(t *testing.T) {
	repo := newFakeRepository()
	repo.err = errors.New("connection reset")
	r := newResolver(t, repo)
	selected := uuid.New()

	_, err := r.Resolve(context.Background(), Identity{UserID: uuid.New(), Role: enums.ActorRoleAdmin}, &selected)
	assertCode(t, err, pkgerrors.CodeDependency)
}

func TestContextRoundTrip(t *testing.T) {
	actx := Context{UserID: uuid.New(), Role: enums.ActorRoleAdmin}
	ctx := WithContext(context.Background(), actx)
	got, ok := FromContext(ctx)
	if !ok || got.UserID != actx.UserID {
		t.Fatalf("expected actor on context, got %+v ok=%v", got, ok)
	}
	if _, ok := FromContext(context.Background()); ok {
		t.Fatalf("empty context should not carry an actor")
	}
}

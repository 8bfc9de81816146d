package actor

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
)

// Resolver turns an authenticated identity plus an optional supplier
// selection into the Context operations authorize against.
type Resolver struct {
	repo Repository
}

// NewResolver builds a resolver backed by repo.
func NewResolver(repo Repository) (*Resolver, error) {
	if repo == nil {
		return nil, fmt.Errorf("actor repository required")
	}
	return &Resolver{repo: repo}, nil
}

// Resolve derives the supplier scope for id. selectedSupplierID is only
// honored for admins; other roles get their own scope and a mismatching
// selection is refused.
func (r *Resolver) Resolve(ctx context.Context, id Identity, selectedSupplierID *uuid.UUID) (Context, error) {
	if id.UserID == uuid.Nil {
		return Context{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !id.Role.IsValid() {
		return Context{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown role")
	}
	actx := Context{UserID: id.UserID, Role: id.Role}

	switch id.Role {
	case enums.ActorRoleAdmin:
		if selectedSupplierID == nil {
			return actx, nil
		}
		supplier, err := r.repo.FindSupplier(ctx, *selectedSupplierID)
		if err != nil {
			return Context{}, lookupError(err, pkgerrors.CodeNotFound, "selected supplier not found", "load supplier")
		}
		supplierID := supplier.ID
		actx.SupplierID = &supplierID
		actx.Impersonating = true
		return actx, nil

	case enums.ActorRoleSupplier:
		supplier, err := r.repo.FindSupplierByOwner(ctx, id.UserID)
		if err != nil {
			return Context{}, lookupError(err, pkgerrors.CodeForbidden, "no supplier profile for user", "load supplier")
		}
		if selectedSupplierID != nil && *selectedSupplierID != supplier.ID {
			return Context{}, pkgerrors.New(pkgerrors.CodeForbidden, "supplier selection does not match account")
		}
		supplierID := supplier.ID
		actx.SupplierID = &supplierID
		return actx, nil

	case enums.ActorRoleRider:
		rider, err := r.repo.FindRiderByUser(ctx, id.UserID)
		if err != nil {
			return Context{}, lookupError(err, pkgerrors.CodeForbidden, "no rider profile for user", "load rider")
		}
		if !rider.Active || rider.SupplierID == nil {
			return Context{}, pkgerrors.New(pkgerrors.CodeForbidden, "rider is not active for any supplier")
		}
		if selectedSupplierID != nil && *selectedSupplierID != *rider.SupplierID {
			return Context{}, pkgerrors.New(pkgerrors.CodeForbidden, "supplier selection does not match rider")
		}
		supplierID := *rider.SupplierID
		riderID := rider.ID
		actx.SupplierID = &supplierID
		actx.RiderID = &riderID
		return actx, nil
	}

	// shoppers carry no supplier scope
	return actx, nil
}

func lookupError(err error, missing pkgerrors.Code, missingMsg, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(missing, missingMsg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}

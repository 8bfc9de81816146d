package actor

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	"github.com/angelmondragon/supplyhub-backend/pkg/outbox"
)

// Identity is what an access token proves about the caller.
type Identity struct {
	UserID uuid.UUID
	Role   enums.ActorRole
}

// Context is the request-scoped actor every fulfillment operation authorizes against.
// SupplierID is set for supplier owners, riders and admins acting for a supplier.
type Context struct {
	UserID        uuid.UUID
	Role          enums.ActorRole
	SupplierID    *uuid.UUID
	RiderID       *uuid.UUID
	Impersonating bool
}

func (c Context) IsAdmin() bool    { return c.Role == enums.ActorRoleAdmin }
func (c Context) IsSupplier() bool { return c.Role == enums.ActorRoleSupplier }
func (c Context) IsRider() bool    { return c.Role == enums.ActorRoleRider }
func (c Context) IsShopper() bool  { return c.Role == enums.ActorRoleShopper }

// ActsForSupplier reports whether the actor may manage supplier-scoped state:
// the owning supplier, or an admin who selected a supplier.
func (c Context) ActsForSupplier() bool {
	if c.SupplierID == nil {
		return false
	}
	return c.IsSupplier() || (c.IsAdmin() && c.Impersonating)
}

// OutboxRef converts the actor into the reference stored on domain events.
func (c Context) OutboxRef() *outbox.ActorRef {
	return &outbox.ActorRef{
		UserID:     c.UserID,
		SupplierID: c.SupplierID,
		RiderID:    c.RiderID,
		Role:       c.Role.String(),
	}
}

type ctxKey struct{}

// WithContext stores the resolved actor on ctx.
func WithContext(ctx context.Context, actx Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, actx)
}

// FromContext returns the actor stored by WithContext.
func FromContext(ctx context.Context) (Context, bool) {
	if ctx == nil {
		return Context{}, false
	}
	actx, ok := ctx.Value(ctxKey{}).(Context)
	return actx, ok
}

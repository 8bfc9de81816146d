package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/supplyhub-backend/api/responses"
	"github.com/angelmondragon/supplyhub-backend/internal/actor"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
)

// SupplierHeader selects the supplier an admin acts for.
const SupplierHeader = "X-Supplier-Id"

// ActorResolver derives the actor context for an authenticated identity.
type ActorResolver interface {
	Resolve(ctx context.Context, id actor.Identity, selectedSupplierID *uuid.UUID) (actor.Context, error)
}

// ResolveActor turns the authenticated identity into the actor context
// handlers authorize against. It must run after Auth.
func ResolveActor(resolver ActorResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := uuid.Parse(UserIDFromContext(r.Context()))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing"))
				return
			}
			role, err := enums.ParseActorRole(RoleFromContext(r.Context()))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown role"))
				return
			}

			var selected *uuid.UUID
			if raw := strings.TrimSpace(r.Header.Get(SupplierHeader)); raw != "" {
				id, err := uuid.Parse(raw)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid supplier id header"))
					return
				}
				selected = &id
			}

			actx, err := resolver.Resolve(r.Context(), actor.Identity{UserID: userID, Role: role}, selected)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := actor.WithContext(r.Context(), actx)
			if logg != nil {
				if actx.SupplierID != nil {
					ctx = logg.WithSupplierID(ctx, actx.SupplierID.String())
				}
				if actx.RiderID != nil {
					ctx = logg.WithRiderID(ctx, actx.RiderID.String())
				}
				if actx.Impersonating {
					ctx = logg.WithField(ctx, "impersonating", true)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

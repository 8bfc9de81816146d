package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/supplyhub-backend/api/responses"
	"github.com/angelmondragon/supplyhub-backend/api/validators"
	"github.com/angelmondragon/supplyhub-backend/internal/payouts"
	"github.com/angelmondragon/supplyhub-backend/internal/purchaseorders"
	"github.com/angelmondragon/supplyhub-backend/internal/refunds"
	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
	"github.com/angelmondragon/supplyhub-backend/pkg/types"
)

const maxReasonLength = 500

type setStatusRequest struct {
	Status            string `json:"status" validate:"required,max=32"`
	Reason            string `json:"reason" validate:"max=500"`
	AuthorizationCode string `json:"authorizationCode" validate:"omitempty,len=6,numeric"`
}

type assignRiderRequest struct {
	// RiderID must be present; an explicit null unassigns the current rider.
	RiderID types.NullableUUID `json:"riderId"`
}

// GetPurchaseOrder returns the caller's purchase order for the order,
// creating it on first access.
func GetPurchaseOrder(svc purchaseorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actx, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		po, err := svc.Get(r.Context(), actx, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPurchaseOrderResponse(po))
	}
}

// SetPurchaseOrderStatus applies a state machine transition.
func SetPurchaseOrderStatus(svc purchaseorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actx, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body setStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		t, err := svc.SetStatus(r.Context(), actx, orderID, purchaseorders.SetStatusInput{
			Status:            body.Status,
			Reason:            validators.SanitizeString(body.Reason, maxReasonLength),
			AuthorizationCode: body.AuthorizationCode,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newTransitionResponse(t))
	}
}

// AssignPurchaseOrderRider sets or clears the delivering rider.
func AssignPurchaseOrderRider(svc purchaseorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actx, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body assignRiderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !body.RiderID.Valid {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "riderId is required; send null to unassign").
				WithDetails(map[string]string{"riderId": "is required"}))
			return
		}
		if body.RiderID.Value != nil && *body.RiderID.Value == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "riderId must be a valid uuid or null"))
			return
		}

		po, err := svc.AssignRider(r.Context(), actx, orderID, body.RiderID.Value)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPurchaseOrderResponse(po))
	}
}

// RequestRefund creates, or returns the existing, refund request for a
// canceled purchase order.
func RequestRefund(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actx, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		res, err := svc.Request(r.Context(), actx, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusOK
		if res.Created {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, newRefundResponse(res))
	}
}

// ReleasePayout settles a delivered purchase order that was not paid out
// during delivery.
func ReleasePayout(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actx, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		res, err := svc.Release(r.Context(), actx, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPayoutResponse(res))
	}
}

package controllers

import (
	"net/http"

	"github.com/angelmondragon/supplyhub-backend/api/responses"
	"github.com/angelmondragon/supplyhub-backend/api/validators"
	"github.com/angelmondragon/supplyhub-backend/internal/deliveryotp"
	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
)

type verifyDeliveryRequest struct {
	// format is checked by the service so malformed codes answer like wrong ones
	Code string `json:"code" validate:"required"`
}

// RequestDeliveryCode sends a fresh delivery code to the shopper.
func RequestDeliveryCode(svc deliveryotp.Service, logg *logger.Logger) http.HandlerFunc {
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
		issued, err := svc.Request(r.Context(), actx, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, issued)
	}
}

// VerifyDeliveryCode confirms delivery with the code the shopper received.
func VerifyDeliveryCode(svc deliveryotp.Service, logg *logger.Logger) http.HandlerFunc {
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
		var body verifyDeliveryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		t, err := svc.Verify(r.Context(), actx, orderID, body.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newTransitionResponse(t))
	}
}

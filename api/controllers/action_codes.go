package controllers

import (
	"net/http"

	"github.com/angelmondragon/supplyhub-backend/api/responses"
	"github.com/angelmondragon/supplyhub-backend/api/validators"
	"github.com/angelmondragon/supplyhub-backend/internal/actioncodes"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
)

type issueActionCodeRequest struct {
	Action string `json:"action" validate:"required"`
}

// IssueActionCode sends the caller a single-use authorization code.
func IssueActionCode(svc actioncodes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actx, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body issueActionCodeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		action, err := enums.ParseAction(body.Action)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown action"))
			return
		}
		issued, err := svc.Issue(r.Context(), actx, action)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, issued)
	}
}

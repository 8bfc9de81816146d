package controllers

import (
	"net/http"

	"github.com/angelmondragon/supplyhub-backend/internal/actor"
	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
)

func actorFrom(r *http.Request) (actor.Context, error) {
	actx, ok := actor.FromContext(r.Context())
	if !ok {
		return actor.Context{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor context missing")
	}
	return actx, nil
}

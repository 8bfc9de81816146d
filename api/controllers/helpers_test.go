package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/supplyhub-backend/internal/actor"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
)

func newRequest(method, body string, actx *actor.Context, params map[string]string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, "/", reader)
	ctx := req.Context()
	if actx != nil {
		ctx = actor.WithContext(ctx, *actx)
	}
	routeCtx := chi.NewRouteContext()
	for k, v := range params {
		routeCtx.URLParams.Add(k, v)
	}
	ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
	return req.WithContext(ctx)
}

func supplierActor() *actor.Context {
	supplierID := uuid.New()
	return &actor.Context{UserID: uuid.New(), Role: enums.ActorRoleSupplier, SupplierID: &supplierID}
}

type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeBody[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal response %q: %v", resp.Body.String(), err)
	}
	return out
}

package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/supplyhub-backend/internal/actor"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
)

const statusPath = "/api/v1/orders/6b1f5b9e-8f0c-4d3e-9a43-2b8a0c1d7e11/purchase-order/status"

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func scopedRequest(method, url string, body io.Reader, supplierID uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, url, body)
	ctx := WithUserID(req.Context(), "user-1")
	ctx = actor.WithContext(ctx, actor.Context{UserID: uuid.New(), Role: enums.ActorRoleSupplier, SupplierID: &supplierID})
	return req.WithContext(ctx)
}

func TestRouteTTLSelection(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		want   time.Duration
		ok     bool
	}{
		{"status change", http.MethodPatch, statusPath, criticalIdempotencyTTL, true},
		{"refund", http.MethodPost, "/api/v1/orders/abc/purchase-order/refund", criticalIdempotencyTTL, true},
		{"payout", http.MethodPost, "/api/v1/orders/abc/purchase-order/payout", criticalIdempotencyTTL, true},
		{"rider", http.MethodPost, "/api/v1/orders/abc/purchase-order/rider", defaultIdempotencyTTL, true},
		{"read all", http.MethodPost, "/api/v1/notifications/read-all", defaultIdempotencyTTL, true},
		{"otp verify", http.MethodPost, "/api/v1/orders/abc/purchase-order/delivery-otp/verify", 0, false},
		{"status read", http.MethodGet, "/api/v1/orders/abc/purchase-order", 0, false},
	}

	for _, tt := range tests {
		ttl, ok := routeTTL(tt.method, tt.path)
		if ok != tt.ok {
			t.Fatalf("%s: expected ok=%v got %v", tt.name, tt.ok, ok)
		}
		if ok && ttl != tt.want {
			t.Fatalf("%s: expected ttl=%v got %v", tt.name, tt.want, ttl)
		}
	}
}

func TestIdempotencyMiddlewareRequiresHeader(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
	})

	req := scopedRequest(http.MethodPatch, statusPath, strings.NewReader(`{"status":"CONFIRMED"}`), uuid.New())
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if handlerCalled {
		t.Fatalf("handler should not run without idempotency key")
	}
}

func TestIdempotencyMiddlewareReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	supplierID := uuid.New()
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	req := scopedRequest(http.MethodPatch, statusPath, strings.NewReader(`{"status":"CONFIRMED"}`), supplierID)
	req.Header.Set("Idempotency-Key", "abc")
	mw(handler).ServeHTTP(httptest.NewRecorder(), req)

	replay := scopedRequest(http.MethodPatch, statusPath, strings.NewReader(`{"status":"CONFIRMED"}`), supplierID)
	replay.Header.Set("Idempotency-Key", "abc")
	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, replay)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected replay status 200 got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type header preserved")
	}
	if strings.TrimSpace(rec.Body.String()) != `{"ok":true}` {
		t.Fatalf("expected stored body got %s", rec.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}

	// another supplier scope never sees the stored response
	other := scopedRequest(http.MethodPatch, statusPath, strings.NewReader(`{"status":"CONFIRMED"}`), uuid.New())
	other.Header.Set("Idempotency-Key", "abc")
	mw(handler).ServeHTTP(httptest.NewRecorder(), other)
	if calls != 2 {
		t.Fatalf("expected a separate scope to execute, got %d calls", calls)
	}
}

func TestIdempotencyMiddlewareSkipsServerFailures(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	supplierID := uuid.New()
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	for i := 0; i < 2; i++ {
		req := scopedRequest(http.MethodPatch, statusPath, strings.NewReader(`{}`), supplierID)
		req.Header.Set("Idempotency-Key", "retry")
		mw(handler).ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 {
		t.Fatalf("expected retry after server failure, got %d calls", calls)
	}
}

func TestIdempotencyMiddlewareDetectsBodyChange(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	supplierID := uuid.New()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := scopedRequest(http.MethodPatch, statusPath, strings.NewReader(`{"status":"CONFIRMED"}`), supplierID)
	req.Header.Set("Idempotency-Key", "xyz")
	mw(handler).ServeHTTP(httptest.NewRecorder(), req)

	replay := scopedRequest(http.MethodPatch, statusPath, strings.NewReader(`{"status":"PACKED"}`), supplierID)
	replay.Header.Set("Idempotency-Key", "xyz")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, replay)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected error code %s got %s", pkgerrors.CodeIdempotency, payload.Error.Code)
	}
}

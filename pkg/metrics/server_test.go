package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewServerExposesGatherer(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewOutboxMetrics(reg).ObserveRelay("refund_requested", RelayPublished)

	srv := NewServer(":0", reg)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "outbox_events_relayed_total") {
		t.Fatalf("expected relay counter in output")
	}
}

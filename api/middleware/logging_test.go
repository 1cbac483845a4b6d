package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/luhive/luhive-backend/pkg/logger"
	"github.com/luhive/luhive-backend/pkg/metrics"
)

func TestRequestIDAndAccessLog(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf})
	reg := prometheus.NewRegistry()

	r := chi.NewRouter()
	r.Use(RequestID(logg), Logging(logg, metrics.NewHTTPMetrics(reg)), Recoverer(logg))
	r.Get("/events/{eventID}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Get("/boom", func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	})

	req := httptest.NewRequest(http.MethodGet, "/events/123", nil)
	req.Header.Set(requestIDHeader, "trace-abc-123")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if got := resp.Header().Get(requestIDHeader); got != "trace-abc-123" {
		t.Fatalf("expected inbound request id echoed, got %q", got)
	}
	line := buf.String()
	for _, want := range []string{`"request_id":"trace-abc-123"`, `"route":"/events/{eventID}"`, `"status":418`, `"http.request"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("access log missing %s: %s", want, line)
		}
	}

	req = httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(requestIDHeader, "bad id\nINJECT")
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 from panic, got %d", resp.Code)
	}
	if got := resp.Header().Get(requestIDHeader); got == "" || strings.Contains(got, "INJECT") {
		t.Fatalf("expected a generated request id, got %q", got)
	}

	n, err := testutil.GatherAndCount(reg, "luhive_http_requests_total")
	if err != nil || n != 2 {
		t.Fatalf("expected two request series, got %d (%v)", n, err)
	}
}

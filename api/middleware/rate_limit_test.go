package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luhive/luhive-backend/api/responses"
	pkgerrors "github.com/luhive/luhive-backend/pkg/errors"
)

type fakeRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: map[string]int64{}}
}

func (f *fakeRateStore) RateLimitKey(scope string) string { return "rl:" + scope }

func (f *fakeRateStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.counts[key]++
	return f.counts[key], nil
}

func postJSON(handler http.Handler, remote, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/x/registrations", strings.NewReader(body))
	req.RemoteAddr = remote
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func bodyCheckHandler(t *testing.T, wantBody string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, wantBody, string(body), "body must reach the handler intact")
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitPerEmail(t *testing.T) {
	store := newFakeRateStore()
	policy := RateLimitPolicy{Name: "event_register", Window: time.Minute, PerEmail: 2}
	body := `{"email":" Ada@Example.com ","answers":{}}`
	handler := RateLimit(policy, store, nil)(bodyCheckHandler(t, body))

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, postJSON(handler, "1.2.3.4:5678", body).Code)
	}
	rec := postJSON(handler, "9.9.9.9:1", `{"email":"ada@example.com"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code, "email budget follows the address across IPs")
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	var env responses.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, string(pkgerrors.CodeRateLimit), env.Error.Code)

	for key := range store.counts {
		assert.NotContains(t, key, "ada@example.com", "emails are hashed before use as keys")
	}
}

func TestRateLimitPerIP(t *testing.T) {
	store := newFakeRateStore()
	policy := RateLimitPolicy{Name: "login", Window: time.Minute, PerIP: 1}
	handler := RateLimit(policy, store, nil)(bodyCheckHandler(t, `{}`))

	assert.Equal(t, http.StatusOK, postJSON(handler, "5.6.7.8:1234", `{}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, postJSON(handler, "5.6.7.8:4321", `{}`).Code)
	assert.Equal(t, http.StatusOK, postJSON(handler, "5.6.7.9:1234", `{}`).Code)
	assert.Contains(t, store.counts, "rl:login:ip:5.6.7.8")
}

func TestRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	store := newFakeRateStore()
	handler := RateLimit(RateLimitPolicy{Name: "waitlist", PerIP: 1}, store, nil)(bodyCheckHandler(t, `{}`))
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, postJSON(handler, "1.1.1.1:1", `{}`).Code)
	}
	assert.Empty(t, store.counts)
}

func TestRateLimitStoreFailure(t *testing.T) {
	store := newFakeRateStore()
	store.err = errors.New("redis down")
	handler := RateLimit(RateLimitPolicy{Name: "login", Window: time.Minute, PerIP: 5}, store, nil)(bodyCheckHandler(t, `{}`))
	assert.Equal(t, http.StatusServiceUnavailable, postJSON(handler, "1.1.1.1:1", `{}`).Code)
}

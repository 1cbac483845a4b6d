package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/luhive/luhive-backend/pkg/errors"
)

type memoryIdempotencyStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryIdempotencyStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value.(string)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryIdempotencyStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryIdempotencyStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

type countingHandler struct {
	calls  int
	status int
}

func (h *countingHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.calls++
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(h.status)
	_, _ = w.Write([]byte(`{"n":1}`))
}

func postWaitlist(t *testing.T, h http.Handler, key, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/waitlist", strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload.Error.Code
}

func TestIdempotencyWithoutHeaderPassesThrough(t *testing.T) {
	store := newMemoryIdempotencyStore()
	next := &countingHandler{status: http.StatusCreated}
	h := Idempotency(store, time.Hour, nil)(next)

	postWaitlist(t, h, "", `{"email":"a@b.c"}`)
	postWaitlist(t, h, "", `{"email":"a@b.c"}`)

	assert.Equal(t, 2, next.calls)
	assert.Empty(t, store.data)
}

func TestIdempotencyReplaysFirstResponse(t *testing.T) {
	store := newMemoryIdempotencyStore()
	next := &countingHandler{status: http.StatusCreated}
	h := Idempotency(store, time.Hour, nil)(next)

	first := postWaitlist(t, h, "k-1", `{"email":"a@b.c"}`)
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Empty(t, first.Header().Get(IdempotentReplayHeader))

	again := postWaitlist(t, h, "k-1", `{"email":"a@b.c"}`)
	assert.Equal(t, http.StatusCreated, again.Code)
	assert.Equal(t, "true", again.Header().Get(IdempotentReplayHeader))
	assert.Equal(t, "application/json", again.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"n":1}`, again.Body.String())
	assert.Equal(t, 1, next.calls)

	key := store.IdempotencyKey("anon|POST|/api/v1/waitlist", "k-1")
	assert.Equal(t, time.Hour, store.ttls[key])
}

func TestIdempotencyRejectsDifferentBody(t *testing.T) {
	store := newMemoryIdempotencyStore()
	h := Idempotency(store, time.Hour, nil)(&countingHandler{status: http.StatusOK})

	postWaitlist(t, h, "k-2", `{"email":"a@b.c"}`)
	rec := postWaitlist(t, h, "k-2", `{"email":"other@b.c"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeIdempotency), errorCode(t, rec))
}

func TestIdempotencyRejectsInFlightDuplicate(t *testing.T) {
	store := newMemoryIdempotencyStore()
	var inner *httptest.ResponseRecorder
	var h http.Handler
	h = Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// A duplicate arrives while the first request is still running.
		inner = postWaitlist(t, h, "k-3", `{}`)
		w.WriteHeader(http.StatusCreated)
	}))

	first := postWaitlist(t, h, "k-3", `{}`)

	assert.Equal(t, http.StatusCreated, first.Code)
	require.NotNil(t, inner)
	assert.Equal(t, http.StatusConflict, inner.Code)
	assert.Equal(t, string(pkgerrors.CodeIdempotency), errorCode(t, inner))
}

func TestIdempotencyForgetsServerErrors(t *testing.T) {
	store := newMemoryIdempotencyStore()
	next := &countingHandler{status: http.StatusServiceUnavailable}
	h := Idempotency(store, time.Hour, nil)(next)

	postWaitlist(t, h, "k-4", `{}`)
	next.status = http.StatusCreated
	rec := postWaitlist(t, h, "k-4", `{}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 2, next.calls)
}

func TestIdempotencyKeyIsScopedToPath(t *testing.T) {
	store := newMemoryIdempotencyStore()
	next := &countingHandler{status: http.StatusCreated}
	h := Idempotency(store, time.Hour, nil)(next)

	for _, path := range []string{"/api/v1/events/a/registrations", "/api/v1/events/b/registrations"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{}`))
		req.Header.Set(IdempotencyHeader, "shared")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, 2, next.calls)
}

func TestIdempotencyRejectsOversizedKey(t *testing.T) {
	h := Idempotency(newMemoryIdempotencyStore(), time.Hour, nil)(&countingHandler{status: http.StatusOK})
	rec := postWaitlist(t, h, strings.Repeat("k", maxIdempotencyKeyLen+1), `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

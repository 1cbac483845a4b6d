package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luhive/luhive-backend/pkg/config"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *memoryStore) GetDel(ctx context.Context, key string) (string, error) {
	val, err := m.Get(ctx, key)
	if err == nil {
		_ = m.Del(ctx, key)
	}
	return val, err
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryStore) AccessSessionKey(accessID string) string {
	return "luhive:test:session:" + accessID
}

var testJWT = config.JWTConfig{ExpirationMinutes: 15, RefreshTokenTTLMinutes: 60}

func newTestManager(t *testing.T) (*Manager, *memoryStore) {
	t.Helper()
	store := newMemoryStore()
	manager, err := newManager(store, testJWT)
	require.NoError(t, err)
	return manager, store
}

func TestNewManagerRejectsShortRefreshTTL(t *testing.T) {
	_, err := newManager(newMemoryStore(), config.JWTConfig{ExpirationMinutes: 60, RefreshTokenTTLMinutes: 30})
	require.Error(t, err)
}

func TestOpenStoresDigestOnly(t *testing.T) {
	manager, store := newTestManager(t)
	userID := uuid.New()

	token, err := manager.Open(context.Background(), userID, "access-1")
	require.NoError(t, err)

	raw := store.data[store.AccessSessionKey("access-1")]
	assert.NotContains(t, raw, token)
	assert.Contains(t, raw, digest(token))
	assert.Contains(t, raw, userID.String())
	assert.Equal(t, time.Hour, store.ttls[store.AccessSessionKey("access-1")])

	ok, err := manager.HasSession(context.Background(), "access-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRotateReplacesSession(t *testing.T) {
	manager, store := newTestManager(t)
	ctx := context.Background()
	userID := uuid.New()

	token, err := manager.Open(ctx, userID, "access-1")
	require.NoError(t, err)

	newAccessID, newToken, err := manager.Rotate(ctx, userID, "access-1", token)
	require.NoError(t, err)
	assert.NotEqual(t, token, newToken)
	assert.NotEqual(t, "access-1", newAccessID)

	_, exists := store.data[store.AccessSessionKey("access-1")]
	assert.False(t, exists, "old session left behind")

	_, _, err = manager.Rotate(ctx, userID, "access-1", token)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken, "replayed refresh token")

	_, _, err = manager.Rotate(ctx, userID, newAccessID, newToken)
	require.NoError(t, err)
}

func TestRotateWithWrongTokenEndsSession(t *testing.T) {
	cases := map[string]func(userID uuid.UUID, token string) (uuid.UUID, string){
		"wrong token":   func(userID uuid.UUID, _ string) (uuid.UUID, string) { return userID, "wrong" },
		"other profile": func(_ uuid.UUID, token string) (uuid.UUID, string) { return uuid.New(), token },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			manager, _ := newTestManager(t)
			ctx := context.Background()
			userID := uuid.New()
			token, err := manager.Open(ctx, userID, "access-1")
			require.NoError(t, err)

			asUser, provided := mutate(userID, token)
			_, _, err = manager.Rotate(ctx, asUser, "access-1", provided)
			assert.ErrorIs(t, err, ErrInvalidRefreshToken)

			_, _, err = manager.Rotate(ctx, userID, "access-1", token)
			assert.ErrorIs(t, err, ErrInvalidRefreshToken, "session should be gone after a failed rotation")
		})
	}
}

func TestRotateKeepsOpenedAt(t *testing.T) {
	manager, store := newTestManager(t)
	opened := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	manager.now = func() time.Time { return opened }
	ctx := context.Background()
	userID := uuid.New()

	token, err := manager.Open(ctx, userID, "access-1")
	require.NoError(t, err)
	manager.now = func() time.Time { return opened.Add(time.Hour) }

	newAccessID, _, err := manager.Rotate(ctx, userID, "access-1", token)
	require.NoError(t, err)
	assert.Contains(t, store.data[store.AccessSessionKey(newAccessID)], "2026-03-01T09:00:00Z")
}

func TestRevokeEndsSession(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	_, err := manager.Open(ctx, uuid.New(), "access-1")
	require.NoError(t, err)
	require.NoError(t, manager.Revoke(ctx, "access-1"))

	ok, err := manager.HasSession(ctx, "access-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

// Package session keeps refresh sessions in Redis, one entry per access
// token id (jti).
package session

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/luhive/luhive-backend/pkg/config"
	redisclient "github.com/luhive/luhive-backend/pkg/redis"
	"github.com/luhive/luhive-backend/pkg/security"
)

const refreshTokenBytes = 32

var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	errMissingAccessID     = errors.New("access id is required")
)

type store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	GetDel(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	AccessSessionKey(accessID string) string
}

// AccessSessionChecker is what Auth needs to reject tokens of ended sessions.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// entry never holds the refresh token itself, only its sha256.
type entry struct {
	UserID   uuid.UUID `json:"uid"`
	Digest   string    `json:"rh"`
	OpenedAt time.Time `json:"opened_at"`
}

func (e entry) matches(userID uuid.UUID, token string) bool {
	return e.UserID == userID &&
		subtle.ConstantTimeCompare([]byte(e.Digest), []byte(digest(token))) == 1
}

// Manager opens, rotates and revokes refresh sessions. Rotation consumes the
// old session atomically, so a refresh token works at most once.
type Manager struct {
	store    store
	ttl      time.Duration
	now      func() time.Time
	newToken func(int) (string, error)
}

func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return newManager(client, cfg)
}

func newManager(s store, cfg config.JWTConfig) (*Manager, error) {
	ttl := cfg.RefreshTokenTTL()
	access := time.Duration(cfg.ExpirationMinutes) * time.Minute
	switch {
	case ttl <= 0:
		return nil, fmt.Errorf("refresh token ttl must be positive")
	case ttl <= access:
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, access)
	}
	return &Manager{
		store:    s,
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
		newToken: security.GenerateURLToken,
	}, nil
}

// NewAccessID produces the identifier used as JWT jti and session key.
func NewAccessID() string {
	return uuid.NewString()
}

// Open starts a session for userID under accessID and returns its refresh token.
func (m *Manager) Open(ctx context.Context, userID uuid.UUID, accessID string) (string, error) {
	if userID == uuid.Nil {
		return "", fmt.Errorf("user id is required")
	}
	if blank(accessID) {
		return "", errMissingAccessID
	}
	return m.issue(ctx, accessID, userID, m.now())
}

// Rotate trades the refresh token of oldAccessID for a new access id and
// refresh token. A mismatched token still ends the old session.
func (m *Manager) Rotate(ctx context.Context, userID uuid.UUID, oldAccessID, provided string) (string, string, error) {
	if blank(oldAccessID) || blank(provided) {
		return "", "", ErrInvalidRefreshToken
	}

	raw, err := m.store.GetDel(ctx, m.store.AccessSessionKey(oldAccessID))
	if errors.Is(err, redislib.Nil) {
		return "", "", ErrInvalidRefreshToken
	}
	if err != nil {
		return "", "", fmt.Errorf("take session: %w", err)
	}
	var current entry
	if err := json.Unmarshal([]byte(raw), &current); err != nil || !current.matches(userID, provided) {
		return "", "", ErrInvalidRefreshToken
	}

	accessID := NewAccessID()
	token, err := m.issue(ctx, accessID, userID, current.OpenedAt)
	if err != nil {
		return "", "", err
	}
	return accessID, token, nil
}

func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if blank(accessID) {
		return errMissingAccessID
	}
	return m.store.Del(ctx, m.store.AccessSessionKey(accessID))
}

func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if blank(accessID) {
		return false, errMissingAccessID
	}
	_, err := m.store.Get(ctx, m.store.AccessSessionKey(accessID))
	switch {
	case errors.Is(err, redislib.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

func (m *Manager) issue(ctx context.Context, accessID string, userID uuid.UUID, openedAt time.Time) (string, error) {
	token, err := m.newToken(refreshTokenBytes)
	if err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}
	payload, err := json.Marshal(entry{UserID: userID, Digest: digest(token), OpenedAt: openedAt})
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	if err := m.store.Set(ctx, m.store.AccessSessionKey(accessID), string(payload), m.ttl); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

package cron

import (
	"context"
	"errors"
	"time"
)

// Lock gives one worker replica exclusive use of a job for a cycle.
type Lock interface {
	// Acquire returns ok=false when another replica holds the job. release
	// is non-nil only when ok is true.
	Acquire(ctx context.Context, job string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

type lockStore interface {
	LockKey(env, job string) string
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	ReleaseLock(ctx context.Context, key, token string) (bool, error)
}

// RedisLock scopes job locks per environment so staging and production
// workers sharing a Redis never block each other.
type RedisLock struct {
	store lockStore
	env   string
}

func NewRedisLock(store lockStore, env string) (*RedisLock, error) {
	if store == nil {
		return nil, errors.New("redis client required for lock")
	}
	if env == "" {
		env = "local"
	}
	return &RedisLock{store: store, env: env}, nil
}

func (l *RedisLock) Acquire(ctx context.Context, job string, ttl time.Duration) (func(context.Context) error, bool, error) {
	key := l.store.LockKey(l.env, job)
	token, ok, err := l.store.AcquireLock(ctx, key, ttl)
	if err != nil || !ok {
		return nil, false, err
	}
	release := func(ctx context.Context) error {
		_, err := l.store.ReleaseLock(ctx, key, token)
		return err
	}
	return release, true, nil
}

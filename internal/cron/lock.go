package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
)

const defaultLockTTL = 30 * time.Minute

// Lock coordinates exclusive cron runs.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type obtainer interface {
	Obtain(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (*redislock.Lock, error)
}

// RedisLock implements Lock on top of redislock, which stores a random token
// under key and only releases it while the token still matches.
type RedisLock struct {
	locker obtainer
	key    string
	ttl    time.Duration

	mu   sync.Mutex
	held *redislock.Lock
}

// NewRedisLock constructs a Redis-backed lock. client is usually the raw
// go-redis client.
func NewRedisLock(client redislock.RedisClient, key string, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	return newRedisLock(redislock.New(client), key, ttl)
}

func newRedisLock(locker obtainer, key string, ttl time.Duration) (*RedisLock, error) {
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{locker: locker, key: key, ttl: ttl}, nil
}

// Acquire tries to own the lock for the configured TTL.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	lock, err := l.locker.Obtain(ctx, l.key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("obtain lock: %w", err)
	}
	l.mu.Lock()
	l.held = lock
	l.mu.Unlock()
	return true, nil
}

// Release frees the lock if this process still holds it.
func (l *RedisLock) Release(ctx context.Context) error {
	l.mu.Lock()
	lock := l.held
	l.held = nil
	l.mu.Unlock()
	if lock == nil {
		return nil
	}
	if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

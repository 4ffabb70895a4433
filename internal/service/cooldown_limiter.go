package service

import (
	"context"
	"sync"
	"time"
)

// DefaultReportCooldown is the minimum gap between accepted reports from one client.
const DefaultReportCooldown = 30 * time.Second

// CooldownLimiter gates report intake per client key. Allow reserves the key
// when it returns true; Release gives the reservation back when the
// submission it guarded was not accepted.
type CooldownLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// MemoryCooldownLimiter keeps the last accepted time per key in process. Every
// call sweeps entries older than evictFactor × cooldown; there is no
// background goroutine.
type MemoryCooldownLimiter struct {
	mu         sync.Mutex
	last       map[string]time.Time
	cooldown   time.Duration
	evictAfter time.Duration
	now        func() time.Time
}

// NewMemoryCooldownLimiter constructs an in-process limiter. A nil clock uses time.Now.
func NewMemoryCooldownLimiter(cooldown time.Duration, evictFactor int, clock func() time.Time) *MemoryCooldownLimiter {
	if cooldown <= 0 {
		cooldown = DefaultReportCooldown
	}
	if evictFactor <= 0 {
		evictFactor = 10
	}
	if clock == nil {
		clock = time.Now
	}
	return &MemoryCooldownLimiter{
		last:       make(map[string]time.Time),
		cooldown:   cooldown,
		evictAfter: cooldown * time.Duration(evictFactor),
		now:        clock,
	}
}

// Allow implements CooldownLimiter. An empty key is never limited.
func (l *MemoryCooldownLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, at := range l.last {
		if now.Sub(at) > l.evictAfter {
			delete(l.last, k)
		}
	}

	if key == "" {
		return true, nil
	}
	if at, ok := l.last[key]; ok && now.Sub(at) < l.cooldown {
		return false, nil
	}
	l.last[key] = now
	return true, nil
}

// Release implements CooldownLimiter.
func (l *MemoryCooldownLimiter) Release(_ context.Context, key string) error {
	if key == "" {
		return nil
	}
	l.mu.Lock()
	delete(l.last, key)
	l.mu.Unlock()
	return nil
}

// Len reports how many keys are tracked.
func (l *MemoryCooldownLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.last)
}

type reservationStore interface {
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

// RedisCooldownLimiter shares cooldown state across instances through Redis
// keys that expire after the cooldown.
type RedisCooldownLimiter struct {
	store    reservationStore
	cooldown time.Duration
	prefix   string
}

// NewRedisCooldownLimiter constructs a Redis-backed limiter.
func NewRedisCooldownLimiter(store reservationStore, cooldown time.Duration) *RedisCooldownLimiter {
	if cooldown <= 0 {
		cooldown = DefaultReportCooldown
	}
	return &RedisCooldownLimiter{store: store, cooldown: cooldown, prefix: "cooldown:step-report:"}
}

// Allow implements CooldownLimiter.
func (l *RedisCooldownLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return true, nil
	}
	return l.store.Reserve(ctx, l.prefix+key, l.cooldown)
}

// Release implements CooldownLimiter.
func (l *RedisCooldownLimiter) Release(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return l.store.Delete(ctx, l.prefix+key)
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/recruit-timeline-api/pkg/errors"
)

// scanBatch bounds both the SCAN page hint and the keys unlinked per call.
const scanBatch = 200

// CacheRepository keeps derived timeline views as JSON and holds short-lived
// intake reservations. Without a client every read misses and every write is
// dropped.
type CacheRepository struct {
	client redis.Cmdable
	logger *zap.Logger
}

// NewCacheRepository constructs a cache repository; client may be nil.
func NewCacheRepository(client *redis.Client, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	repo := &CacheRepository{logger: logger}
	if client != nil {
		repo.client = client
	}
	return repo
}

// Available reports whether a Redis client is attached.
func (r *CacheRepository) Available() bool { return r.client != nil }

// Get loads key into dest or returns ErrCacheMiss.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}
	raw, err := r.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return appErrors.ErrCacheMiss
	case err != nil:
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		// A payload from an older view shape is treated as absent.
		r.logger.Debug("discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		return appErrors.ErrCacheMiss
	}
	return nil
}

// Set stores value as JSON under key for ttl.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Reserve claims key for ttl with SET NX PX. It returns false while another
// holder owns the key.
func (r *CacheRepository) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if r.client == nil {
		return true, nil
	}
	ok, err := r.client.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return ok, nil
}

// Delete drops a single key.
func (r *CacheRepository) Delete(ctx context.Context, key string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Unlink(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis unlink %s: %w", key, err)
	}
	return nil
}

// DeleteByPattern unlinks every key matching pattern, a batch at a time.
func (r *CacheRepository) DeleteByPattern(ctx context.Context, pattern string) error {
	if r.client == nil {
		return nil
	}
	var (
		cursor  uint64
		deleted int64
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("redis scan %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			n, err := r.client.Unlink(ctx, keys...).Result()
			if err != nil {
				return fmt.Errorf("redis unlink %s: %w", pattern, err)
			}
			deleted += n
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	r.logger.Debug("cache entries invalidated", zap.String("pattern", pattern), zap.Int64("deleted", deleted))
	return nil
}

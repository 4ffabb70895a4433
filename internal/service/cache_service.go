package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/recruit-timeline-api/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// TimelineCacheKey names the cached timeline of a company.
func TimelineCacheKey(companyID int64) string {
	return fmt.Sprintf("timeline:%d:units", companyID)
}

// LeadTimeCacheKey names a cached keyword lead time of a company.
func LeadTimeCacheKey(companyID int64, keyword string) string {
	return fmt.Sprintf("timeline:%d:lead:%s", companyID, keyword)
}

// CompanyCachePattern matches every cached view derived from a company's observations.
func CompanyCachePattern(companyID int64) string {
	return fmt.Sprintf("timeline:%d:*", companyID)
}

// CacheService fronts the timeline cache with hit and miss metrics. Backend
// errors are logged and returned; timeline reads treat them as misses.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service. A non-positive ttl means 10 minutes.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get loads key into dest and reports whether it was present. A miss is not
// an error.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	hit := err == nil
	s.metrics.RecordCacheOperation(hit, time.Since(start))
	switch {
	case hit:
		return true, nil
	case errors.Is(err, appErrors.ErrCacheMiss):
		return false, nil
	default:
		return false, s.failed("get", key, err)
	}
}

// Set stores value under key. A non-positive ttl uses the default.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		return s.failed("set", key, err)
	}
	return nil
}

// Invalidate drops every key matching pattern, typically CompanyCachePattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		return s.failed("invalidate", pattern, err)
	}
	return nil
}

func (s *CacheService) failed(op, key string, err error) error {
	s.logger.Warn("cache "+op+" failed", zap.String("key", key), zap.Error(err))
	return fmt.Errorf("cache %s %s: %w", op, key, err)
}

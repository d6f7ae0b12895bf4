package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sasm-ims-api/pkg/errors"
)

// CacheRepository is the key/value backend behind CacheService.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type cacheMetrics interface {
	RecordCacheOperation(hit bool, duration time.Duration)
	ObserveCacheWrite(duration time.Duration)
}

// CacheConfig tunes CacheService.
type CacheConfig struct {
	// Namespace is prepended as "<namespace>:" to every key and pattern.
	Namespace  string
	DefaultTTL time.Duration
	Enabled    bool
}

// CacheService stores JSON payloads (dashboards, unread counts) under a
// shared namespace. A nil *CacheService behaves as a disabled cache.
type CacheService struct {
	repo    CacheRepository
	metrics cacheMetrics
	logger  *zap.Logger
	cfg     CacheConfig
}

// NewCacheService builds a CacheService. metrics and logger may be nil.
func NewCacheService(repo CacheRepository, metrics cacheMetrics, logger *zap.Logger, cfg CacheConfig) *CacheService {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, logger: logger, cfg: cfg}
}

// Enabled reports whether reads and writes reach the backend.
func (s *CacheService) Enabled() bool {
	return s != nil && s.cfg.Enabled && s.repo != nil
}

func (s *CacheService) key(k string) string {
	if s.cfg.Namespace == "" {
		return k
	}
	return s.cfg.Namespace + ":" + k
}

// Get decodes key into dest and reports a hit. A miss is not an error.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, s.key(key), dest)
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	}
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, appErrors.ErrCacheMiss):
		return false, nil
	default:
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
}

// Set stores value under key. ttl <= 0 uses the configured default.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.cfg.DefaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, s.key(key), value, ttl)
	if s.metrics != nil {
		s.metrics.ObserveCacheWrite(time.Since(start))
	}
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Delete removes exact keys.
func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	if !s.Enabled() || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	if err := s.repo.Delete(ctx, full...); err != nil {
		s.logger.Warn("cache delete failed", zap.Strings("keys", keys), zap.Error(err))
		return err
	}
	return nil
}

// Invalidate removes every key matching the glob pattern, e.g. "dash:*".
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.DeleteByPattern(ctx, s.key(pattern)); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	return nil
}

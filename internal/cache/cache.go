package cache

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/gtmhq/gtm-advisor/internal/config"
)

// Backend abstracts key/value storage with TTL. Implementations: a Redis
// client for multi-instance deployments and an in-process LRU fallback.
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// Increment atomically bumps an integer counter. The TTL is applied only
	// when the key is created, giving fixed-window semantics to quota counters.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Close() error
	HealthCheck(ctx context.Context) bool
}

// ErrUnavailable is returned when no cache backend can serve the operation.
var ErrUnavailable = errors.New("cache backend unavailable")

// New selects the backend from configuration. A configured Redis URL must be
// reachable in production; outside production an unreachable or missing URL
// degrades to the in-process backend with a warning. The in-process backend
// does not share state between instances.
func New(cfg config.CacheConfig, production bool, logger *zap.Logger) (Backend, error) {
	if cfg.RedisURL == "" {
		if production {
			return nil, errors.New("REDIS_URL is required in production")
		}
		logger.Warn("no REDIS_URL configured; using in-process cache backend")
		return NewMemoryBackend(cfg.MaxEntries), nil
	}

	backend, err := NewRedisBackend(cfg.RedisURL, logger)
	if err != nil {
		if production {
			return nil, err
		}
		logger.Warn("invalid REDIS_URL; falling back to in-process cache backend", zap.Error(err))
		return NewMemoryBackend(cfg.MaxEntries), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if !backend.HealthCheck(ctx) {
		_ = backend.Close()
		if production {
			return nil, errors.New("redis unreachable at startup")
		}
		logger.Warn("redis unreachable; falling back to in-process cache backend",
			zap.String("url", cfg.RedisURL))
		return NewMemoryBackend(cfg.MaxEntries), nil
	}

	logger.Info("connected to redis cache backend")
	return backend, nil
}

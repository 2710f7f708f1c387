package cache

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	redisRetryAttempts = 3
	redisRetryBackoff  = 50 * time.Millisecond
)

// RedisBackend is the distributed cache backend. The client is created
// lazily on first use; every operation runs under a bounded retry that
// discards and recreates the client after connection or timeout errors.
// Exhausting retries propagates the last error to the caller.
type RedisBackend struct {
	opts   *redis.Options
	logger *zap.Logger

	mu     sync.Mutex
	client *redis.Client
}

// NewRedisBackend parses the URL but does not dial; connections are pooled
// and established on first use.
func NewRedisBackend(url string, logger *zap.Logger) (*RedisBackend, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisBackend{opts: opts, logger: logger}, nil
}

func (b *RedisBackend) getClient() *redis.Client {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client == nil {
		b.client = redis.NewClient(b.opts)
	}
	return b.client
}

func (b *RedisBackend) discardClient(stale *redis.Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client == stale && b.client != nil {
		_ = b.client.Close()
		b.client = nil
	}
}

func isConnError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.EOF) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, redis.ErrClosed)
}

// withRetry runs op up to redisRetryAttempts times with linear backoff,
// recreating the client after connection failures.
func (b *RedisBackend) withRetry(ctx context.Context, op func(c *redis.Client) error) error {
	var lastErr error
	for attempt := 1; attempt <= redisRetryAttempts; attempt++ {
		client := b.getClient()
		err := op(client)
		if err == nil {
			return nil
		}
		lastErr = err
		if !isConnError(err) {
			return err
		}
		b.discardClient(client)
		b.logger.Warn("redis operation failed, retrying",
			zap.Int("attempt", attempt), zap.Error(err))

		if attempt < redisRetryAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * redisRetryBackoff):
			}
		}
	}
	return lastErr
}

func (b *RedisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	found := false
	err := b.withRetry(ctx, func(c *redis.Client) error {
		v, err := c.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		value, found = v, true
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return value, found, nil
}

func (b *RedisBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return b.withRetry(ctx, func(c *redis.Client) error {
		return c.Set(ctx, key, value, ttl).Err()
	})
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	return b.withRetry(ctx, func(c *redis.Client) error {
		return c.Del(ctx, key).Err()
	})
}

func (b *RedisBackend) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := b.withRetry(ctx, func(c *redis.Client) error {
		n, err := c.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		exists = n > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (b *RedisBackend) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	var count int64
	err := b.withRetry(ctx, func(c *redis.Client) error {
		n, err := c.Incr(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 1 && ttl > 0 {
			if err := c.Expire(ctx, key, ttl).Err(); err != nil {
				return err
			}
		}
		count = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (b *RedisBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client == nil {
		return nil
	}
	err := b.client.Close()
	b.client = nil
	return err
}

// HealthCheck pings the server with a short timeout.
func (b *RedisBackend) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return b.getClient().Ping(ctx).Err() == nil
}

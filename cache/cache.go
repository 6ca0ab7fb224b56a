package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"blogapi/metrics"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrCacheMiss = errors.New("cache miss")

// Key prefixes
const (
	KeyPost          = "blog:post"
	KeyPublicProfile = "blog:profile"
)

func Key(prefix, id string) string {
	return prefix + ":" + id
}

type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, keys ...string) error
}

// New connects to Redis at addr. With no address, or when Redis does not
// answer, reads always miss and writes are dropped.
func New(addr string, ttl time.Duration, logger *zap.SugaredLogger, m *metrics.Metrics) Cache {
	if addr == "" {
		logger.Infow("Redis not configured; caching disabled")
		return Noop{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warnw("Redis unavailable; caching disabled", "addr", addr, "error", err)
		_ = client.Close()
		return Noop{}
	}

	logger.Infow("Connected to Redis", "addr", addr)
	return &Redis{client: client, ttl: ttl, logger: logger, metrics: m}
}

type Redis struct {
	client  *redis.Client
	ttl     time.Duration
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
}

func (r *Redis) Get(ctx context.Context, key string, dest interface{}) error {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		r.metrics.RecordCacheMiss(ctx, prefixOf(key))
		return ErrCacheMiss
	}
	if err != nil {
		r.logger.Errorw("Cache get error", "key", key, "error", err)
		return fmt.Errorf("cache get error: %w", err)
	}

	r.metrics.RecordCacheHit(ctx, prefixOf(key))
	if err := json.Unmarshal(val, dest); err != nil {
		return fmt.Errorf("cache unmarshal error: %w", err)
	}
	return nil
}

func (r *Redis) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("cache set error: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache delete error: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func prefixOf(key string) string {
	if i := strings.LastIndex(key, ":"); i > 0 {
		return key[:i]
	}
	return key
}

// Noop is used when Redis is not available.
type Noop struct{}

func (Noop) Get(context.Context, string, interface{}) error { return ErrCacheMiss }
func (Noop) Set(context.Context, string, interface{}) error { return nil }
func (Noop) Delete(context.Context, ...string) error        { return nil }

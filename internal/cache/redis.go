// Package cache keeps rendered works in Redis. Generation is a pure
// function of its configuration once the seed is fixed, so a work is keyed
// by a hash of the form and its configuration.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Conceptual-Machines/bachgen/internal/generator"
	"github.com/Conceptual-Machines/bachgen/internal/logger"
)

// ErrMiss is returned by Get when the work is not cached.
var ErrMiss = errors.New("cache miss")

const keyPrefix = "bachgen:work:"

// Store is the key/value surface the cache needs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetEx(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// RedisStore wraps a redis client.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to the Redis server at url (redis://...).
func NewRedisStore(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opts.MaxRetries = 3
	opts.PoolSize = 10
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.DialTimeout = 5 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis connected", logger.Fields{"address": opts.Addr})
	return &RedisStore{client: client}, nil
}

// Get returns the stored bytes, or ErrMiss.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return b, err
}

// SetEx stores value with an expiration.
func (s *RedisStore) SetEx(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// Close closes the connection pool.
func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Cache stores generator results as JSON.
type Cache struct {
	store Store
	ttl   time.Duration
}

// New returns a cache over store. A nil cache is valid and never hits.
func New(store Store, ttl time.Duration) *Cache {
	return &Cache{store: store, ttl: ttl}
}

// Key hashes a form name and its configuration. Configurations without a
// fixed seed are not cacheable and yield "".
func Key(form string, seed uint32, cfg any) (string, error) {
	if seed == 0 {
		return "", nil
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}
	sum := sha256.Sum256(append([]byte(form+":"), b...))
	return keyPrefix + form + ":" + hex.EncodeToString(sum[:16]), nil
}

// Get returns the cached result for key.
func (c *Cache) Get(ctx context.Context, key string) (*generator.Result, error) {
	if c == nil || c.store == nil || key == "" {
		return nil, ErrMiss
	}
	b, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var res generator.Result
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, fmt.Errorf("corrupt cache entry %s: %w", key, err)
	}
	return &res, nil
}

// Put stores a successful result. Failures are logged, not returned.
func (c *Cache) Put(ctx context.Context, key string, res *generator.Result) {
	if c == nil || c.store == nil || key == "" || res == nil || !res.Success {
		return
	}
	b, err := json.Marshal(res)
	if err != nil {
		logger.Error("Failed to encode result for cache", err, logger.Fields{"key": key})
		return
	}
	if err := c.store.SetEx(ctx, key, b, c.ttl); err != nil {
		logger.Warn("Cache write failed", logger.Fields{"key": key, "error": err.Error()})
	}
}

// Close releases the underlying store.
func (c *Cache) Close() error {
	if c == nil || c.store == nil {
		return nil
	}
	return c.store.Close()
}

// Package feedcache stores computed feeds keyed by user and pagination,
// with TTL expiry, proactive warming, and explicit invalidation.
//
// Cache unavailability always degrades to direct computation: every error
// path here is logged and absorbed, never surfaced to the request.
package feedcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/recommender/internal/domain"
)

// Default TTLs. Personalized feeds are short-lived; global aggregates live
// longer.
const (
	DefaultFeedTTL   = 30 * time.Minute
	DefaultGlobalTTL = 2 * time.Hour

	keyPrefix = "feed"
)

// ErrMiss marks a cache miss.
var ErrMiss = errors.New("cache miss")

// Logger defines the logging interface.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Store abstracts the cache backend. Production uses Redis; tests use an
// in-memory store with an injectable clock.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	ScanKeys(ctx context.Context, pattern string) ([]string, error)
}

// FeedKey builds the composite cache key for a feed page. The optional salt
// scopes a key to a session.
func FeedKey(userID string, page, limit int, salt string) string {
	key := keyPrefix + ":" + userID + ":" + strconv.Itoa(page) + ":" + strconv.Itoa(limit)
	if salt != "" {
		key += ":" + salt
	}
	return key
}

// UserPattern matches every cached feed page for a user.
func UserPattern(userID string) string {
	return keyPrefix + ":" + userID + ":*"
}

// entry is the serialized cache payload. Tier records which tier the feed
// was actually served from, so a hit reports fallbacks faithfully.
type entry struct {
	GeneratedAt time.Time              `json:"generated_at"`
	Tier        string                 `json:"tier"`
	Items       []domain.RankedContent `json:"items"`
}

// Cache is the degrading feed cache.
type Cache struct {
	store  Store
	logger Logger
}

// New creates a feed cache over the given store.
func New(store Store, logger Logger) *Cache {
	return &Cache{store: store, logger: logger}
}

// GetFeed returns the cached feed and its serving tier for key. A miss or
// any store error returns ok=false so the caller computes directly.
func (c *Cache) GetFeed(ctx context.Context, key string) ([]domain.RankedContent, string, bool) {
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.logger.Warn("Cache read failed, degrading to direct computation",
				"key", key, "error", err)
		}
		return nil, "", false
	}

	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		c.logger.Warn("Cache entry corrupt, dropping", "key", key, "error", err)
		c.drop(ctx, key)
		return nil, "", false
	}
	return e.Items, e.Tier, true
}

// SetFeed stores a computed feed and the tier it was served from with the
// given TTL. Store errors are logged and absorbed.
func (c *Cache) SetFeed(ctx context.Context, key string, items []domain.RankedContent, tier string, ttl time.Duration) {
	raw, err := json.Marshal(entry{GeneratedAt: time.Now(), Tier: tier, Items: items})
	if err != nil {
		c.logger.Error("Cache entry marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, string(raw), ttl); err != nil {
		c.logger.Warn("Cache write failed", "key", key, "error", err)
	}
}

// InvalidateUser removes every cached feed page for a user, used when the
// underlying profile or interaction set changes materially.
func (c *Cache) InvalidateUser(ctx context.Context, userID string) error {
	keys, err := c.store.ScanKeys(ctx, UserPattern(userID))
	if err != nil {
		return fmt.Errorf("scan cache keys for %s: %w", userID, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.store.Del(ctx, keys...); err != nil {
		return fmt.Errorf("delete cache keys for %s: %w", userID, err)
	}
	c.logger.Debug("Cache invalidated", "user_id", userID, "keys", len(keys))
	return nil
}

func (c *Cache) drop(ctx context.Context, key string) {
	if err := c.store.Del(ctx, key); err != nil {
		c.logger.Warn("Cache delete failed", "key", key, "error", err)
	}
}

// redisStore adapts go-redis to the Store interface.
type redisStore struct {
	client *redis.Client
}

// NewRedisStore wraps a Redis client as a cache Store.
func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return val, err
}

func (s *redisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *redisStore) Del(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

func (s *redisStore) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

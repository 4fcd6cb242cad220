// Package storage holds the optional persistence around a generation: a
// redis cache of downloaded background tracks and an S3 uploader for the
// finished MP3.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/alnah/go-workout/internal/fetch"
)

// DefaultTrackTTL keeps a downloaded track for a day.
const DefaultTrackTTL = 24 * time.Hour

const trackKeyPrefix = "workout:track:"

const tracerName = "github.com/alnah/go-workout/internal/storage"

// Compile-time interface check.
var _ fetch.Cache = (*RedisCache)(nil)

// RedisCache stores raw track media keyed by source URL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	tracer trace.Tracer
}

// CacheOption configures a RedisCache.
type CacheOption func(*RedisCache)

// WithTTL sets how long a cached track lives. Zero keeps it forever.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *RedisCache) { c.ttl = max(ttl, 0) }
}

// WithKeyPrefix replaces the default key namespace.
func WithKeyPrefix(prefix string) CacheOption {
	return func(c *RedisCache) { c.prefix = prefix }
}

// NewRedisCache wraps an existing client.
func NewRedisCache(client *redis.Client, opts ...CacheOption) *RedisCache {
	c := &RedisCache{
		client: client,
		ttl:    DefaultTrackTTL,
		prefix: trackKeyPrefix,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OpenRedis parses a redis:// URL and checks the server answers.
func OpenRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse cache url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to cache: %w", err)
	}
	return client, nil
}

// Get returns the cached media for url. A miss is not an error.
func (c *RedisCache) Get(ctx context.Context, url string) ([]byte, bool, error) {
	key := c.prefix + url
	ctx, span := c.tracer.Start(ctx, "storage.CacheGet",
		trace.WithAttributes(attribute.String("cache.key", key)),
	)
	defer span.End()

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		span.SetAttributes(attribute.String("cache.result", "miss"))
		return nil, false, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	span.SetAttributes(
		attribute.String("cache.result", "hit"),
		attribute.Int("cache.bytes", len(data)),
	)
	return data, true, nil
}

// Set stores media for url with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, url string, data []byte) error {
	key := c.prefix + url
	ctx, span := c.tracer.Start(ctx, "storage.CacheSet",
		trace.WithAttributes(
			attribute.String("cache.key", key),
			attribute.Int64("cache.ttl_seconds", int64(c.ttl.Seconds())),
		),
	)
	defer span.End()

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete drops the cached media for url.
func (c *RedisCache) Delete(ctx context.Context, url string) error {
	if err := c.client.Del(ctx, c.prefix+url).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ImageCache provides Redis-backed caching for image-search results.
// Redis failures are logged and treated as misses.
type ImageCache struct {
	client *redis.Client
	prefix string
}

// NewImageCache creates a new image cache with the given Redis client.
// A nil client yields a cache that never hits.
func NewImageCache(client *redis.Client) *ImageCache {
	return &ImageCache{
		client: client,
		prefix: "imagesearch:",
	}
}

// makeKey creates a cache key from a query by hashing its normalised form.
func (c *ImageCache) makeKey(query string) string {
	hash := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(query))))
	return fmt.Sprintf("%s%x", c.prefix, hash)
}

// Get retrieves a cached result by query.
func (c *ImageCache) Get(ctx context.Context, query string) (*ImageResult, error) {
	if c.client == nil {
		return nil, nil
	}

	data, err := c.client.Get(ctx, c.makeKey(query)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		slog.Warn("Redis cache get failed", "error", err)
		return nil, nil
	}

	var result ImageResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		slog.Warn("Failed to unmarshal cached image result", "error", err)
		return nil, nil
	}

	return &result, nil
}

// Set stores a result in the cache with the given TTL.
func (c *ImageCache) Set(ctx context.Context, query string, result *ImageResult, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, c.makeKey(query), data, ttl).Err(); err != nil {
		slog.Warn("Redis cache set failed", "error", err)
	}

	return nil
}

// Delete removes a result from the cache.
func (c *ImageCache) Delete(ctx context.Context, query string) error {
	if c.client == nil {
		return nil
	}

	if err := c.client.Del(ctx, c.makeKey(query)).Err(); err != nil {
		slog.Warn("Redis cache delete failed", "error", err)
	}

	return nil
}

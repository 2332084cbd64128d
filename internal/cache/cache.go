package cache

import (
	"context"
	"time"
)

// ImageResult is a cached image-search outcome. Found=false records a miss
// so repeated lookups for the same dish skip the API.
type ImageResult struct {
	ImageURL string `json:"image_url"`
	Found    bool   `json:"found"`
}

// Cache defines the interface for image-search result caching.
type Cache interface {
	// Get retrieves a result by query.
	// Returns nil if the key is not found or has expired.
	Get(ctx context.Context, query string) (*ImageResult, error)

	// Set stores a result for the query with the given TTL.
	Set(ctx context.Context, query string, result *ImageResult, ttl time.Duration) error

	// Delete removes a result by query.
	Delete(ctx context.Context, query string) error
}

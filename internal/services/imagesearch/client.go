// Package imagesearch finds one representative photo for a dish.
package imagesearch

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"

	"github.com/menutalk/kiku/internal/cache"
	"github.com/menutalk/kiku/internal/errors"
	"github.com/menutalk/kiku/internal/httpclient"
	"github.com/menutalk/kiku/internal/metrics"
)

const defaultBaseURL = "https://www.googleapis.com/customsearch/v1"

// ErrNoImage means the search ran and found nothing. It is a valid outcome.
var ErrNoImage = stderrors.New("imagesearch: no image found")

// Searcher returns the first image URL for a query.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// Query builds the search string used for a dish.
func Query(originalMenuName string) string {
	return strings.TrimSpace(originalMenuName) + " food image"
}

type searchResponse struct {
	Items []struct {
		Link string `json:"link"`
	} `json:"items"`
}

// Client talks to the Google Custom Search JSON API with a client-side
// rate limit and an optional result cache.
type Client struct {
	baseURL  string
	apiKey   string
	engineID string
	hc       *http.Client
	rl       *rate.Limiter
	cache    cache.Cache
	cacheTTL time.Duration
}

// Options configures a Client. Zero values take defaults.
type Options struct {
	BaseURL           string
	RequestsPerSecond float64
	Cache             cache.Cache
	CacheTTL          time.Duration
	HTTPClient        *http.Client
}

// NewClient creates a new image search client
func NewClient(apiKey, engineID string, opts Options) *Client {
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = httpclient.New("google-cse", 20*time.Second)
	}
	base := opts.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	return &Client{
		baseURL:  base,
		apiKey:   apiKey,
		engineID: engineID,
		hc:       hc,
		rl:       rate.NewLimiter(rate.Limit(rps), burst),
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
	}
}

// Search returns the first image link for query, ErrNoImage when there is
// none, or an UPSTREAM_UNAVAILABLE error when the API call itself failed.
func (c *Client) Search(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", errors.NewValidationError("query is required", "MISSING_QUERY", "Provide a dish name to search for.")
	}

	if c.cache != nil {
		if hit, _ := c.cache.Get(ctx, query); hit != nil {
			record(ctx, "cached")
			if !hit.Found {
				return "", ErrNoImage
			}
			return hit.ImageURL, nil
		}
	}

	link, err := c.search(ctx, query)
	switch {
	case err == nil:
		record(ctx, "found")
		c.store(ctx, query, &cache.ImageResult{ImageURL: link, Found: true})
		return link, nil
	case stderrors.Is(err, ErrNoImage):
		record(ctx, "none")
		c.store(ctx, query, &cache.ImageResult{Found: false})
		return "", err
	default:
		record(ctx, "error")
		return "", err
	}
}

func (c *Client) search(ctx context.Context, query string) (link string, err error) {
	if err := c.rl.Wait(ctx); err != nil {
		return "", errors.NewUpstreamError("image search cancelled", "IMAGE_SEARCH_CANCELLED", err)
	}

	done := httpclient.ObserveCall(ctx, "google-cse")
	defer func() {
		if stderrors.Is(err, ErrNoImage) {
			done(nil)
			return
		}
		done(err)
	}()

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("cx", c.engineID)
	params.Set("q", query)
	params.Set("searchType", "image")
	params.Set("num", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", errors.NewUpstreamError("image search unavailable", "IMAGE_SEARCH_UNAVAILABLE", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.NewUpstreamError("image search unavailable", "IMAGE_SEARCH_UNAVAILABLE", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrNoImage
	}
	if resp.StatusCode >= 400 {
		return "", errors.NewUpstreamError(
			fmt.Sprintf("image search failed with status %d", resp.StatusCode),
			"IMAGE_SEARCH_FAILED",
			fmt.Errorf("status %d: %s", resp.StatusCode, string(body)),
		)
	}

	var out searchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", errors.NewUpstreamError("image search returned an unreadable response", "IMAGE_SEARCH_BAD_RESPONSE", err)
	}
	if len(out.Items) == 0 || out.Items[0].Link == "" {
		return "", ErrNoImage
	}
	return out.Items[0].Link, nil
}

func (c *Client) store(ctx context.Context, query string, result *cache.ImageResult) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, query, result, c.cacheTTL); err != nil {
		slog.Warn("Failed to cache image search result", "query", query, "error", err)
	}
}

func record(ctx context.Context, outcome string) {
	metrics.ImageSearchTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

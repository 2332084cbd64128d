package imagesearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menutalk/kiku/internal/cache"
	"github.com/menutalk/kiku/internal/errors"
)

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestQuery(t *testing.T) {
	assert.Equal(t, "Ramen food image", Query(" Ramen "))
}

func TestSearch_Found(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "Ramen food image", q.Get("q"))
		assert.Equal(t, "image", q.Get("searchType"))
		assert.Equal(t, "1", q.Get("num"))
		assert.Equal(t, "k", q.Get("key"))
		assert.Equal(t, "cx", q.Get("cx"))
		w.Write([]byte(`{"items":[{"link":"https://img.example/ramen.jpg"},{"link":"https://img.example/other.jpg"}]}`))
	})

	c := NewClient("k", "cx", Options{BaseURL: srv.URL, RequestsPerSecond: 100})
	link, err := c.Search(context.Background(), "Ramen food image")
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/ramen.jpg", link)
}

func TestSearch_NoImage(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"empty items", http.StatusOK, `{"items":[]}`},
		{"no items key", http.StatusOK, `{"searchInformation":{}}`},
		{"not found", http.StatusNotFound, `{"error":"Image not found"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			c := NewClient("k", "cx", Options{BaseURL: srv.URL, RequestsPerSecond: 100})
			_, err := c.Search(context.Background(), "Mystery food image")
			assert.ErrorIs(t, err, ErrNoImage)
		})
	}
}

func TestSearch_UpstreamFailure(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	c := NewClient("k", "cx", Options{BaseURL: srv.URL, RequestsPerSecond: 100})
	_, err := c.Search(context.Background(), "Ramen food image")
	assert.True(t, errors.IsType(err, errors.ErrorTypeUpstream))
	assert.NotErrorIs(t, err, ErrNoImage)
}

func TestSearch_EmptyQuery(t *testing.T) {
	c := NewClient("k", "cx", Options{BaseURL: "http://unused.invalid"})
	_, err := c.Search(context.Background(), "   ")
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestSearch_CachesHitsAndMisses(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	var calls atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Query().Get("q") == "Ramen food image" {
			w.Write([]byte(`{"items":[{"link":"https://img.example/ramen.jpg"}]}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	c := NewClient("k", "cx", Options{
		BaseURL:           srv.URL,
		RequestsPerSecond: 100,
		Cache:             cache.NewImageCache(rdb),
		CacheTTL:          time.Hour,
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		link, err := c.Search(ctx, "Ramen food image")
		require.NoError(t, err)
		assert.Equal(t, "https://img.example/ramen.jpg", link)

		_, err = c.Search(ctx, "Mystery food image")
		assert.ErrorIs(t, err, ErrNoImage)
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestSearch_UpstreamErrorNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	var calls atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	c := NewClient("k", "cx", Options{BaseURL: srv.URL, RequestsPerSecond: 100, Cache: cache.NewImageCache(rdb), CacheTTL: time.Hour})
	for i := 0; i < 2; i++ {
		_, err := c.Search(context.Background(), "Ramen food image")
		require.Error(t, err)
	}
	assert.Equal(t, int32(2), calls.Load())
}

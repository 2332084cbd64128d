// Package enrich attaches a representative photo to newly revealed dishes.
package enrich

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/menutalk/kiku/internal/menu"
	"github.com/menutalk/kiku/internal/metrics"
	"github.com/menutalk/kiku/internal/services/imagesearch"
)

// Progress is the (completed, total) pair shown as "searching N/M".
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// Result is the outcome for one dish. ImageURL is empty when nothing was
// found or the search failed; both leave the dish without an image.
type Result struct {
	DishID   string
	ImageURL string
	Err      error
}

// ReportFunc receives each result with the progress after it. Calls are
// serialized and Completed never decreases.
type ReportFunc func(Result, Progress)

// Enricher runs one image search per dish.
type Enricher struct {
	searcher    imagesearch.Searcher
	concurrency int
}

// New creates an enricher. concurrency <= 1 searches dishes one by one.
func New(searcher imagesearch.Searcher, concurrency int) *Enricher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Enricher{searcher: searcher, concurrency: concurrency}
}

// Enrich searches an image for every dish and reports each outcome. A
// failed or empty search never stops the batch. The returned results are
// in dish order.
func (e *Enricher) Enrich(ctx context.Context, dishes []menu.Dish, report ReportFunc) []Result {
	start := time.Now()
	defer func() {
		metrics.EnrichmentDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.Int("concurrency", e.concurrency)))
	}()

	results := make([]Result, len(dishes))
	if len(dishes) == 0 {
		return results
	}

	var (
		mu        sync.Mutex
		completed int
	)
	finish := func(i int, r Result) {
		mu.Lock()
		defer mu.Unlock()
		results[i] = r
		completed++
		if report != nil {
			report(r, Progress{Completed: completed, Total: len(dishes)})
		}
	}

	if e.concurrency == 1 {
		for i, d := range dishes {
			finish(i, e.searchOne(ctx, d))
		}
		return results
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, d := range dishes {
		g.Go(func() error {
			finish(i, e.searchOne(gctx, d))
			return nil // one failed search must not cancel the others
		})
	}
	_ = g.Wait()

	return results
}

func (e *Enricher) searchOne(ctx context.Context, d menu.Dish) Result {
	r := Result{DishID: d.ID}
	if d.OriginalMenuName == "" {
		r.Err = imagesearch.ErrNoImage
		return r
	}

	url, err := e.searcher.Search(ctx, imagesearch.Query(d.OriginalMenuName))
	switch {
	case err == nil:
		r.ImageURL = url
	case stderrors.Is(err, imagesearch.ErrNoImage):
		r.Err = err
		slog.Debug("No image for dish", "dish_id", d.ID, "name", d.OriginalMenuName)
	default:
		r.Err = err
		slog.Warn("Image search failed", "dish_id", d.ID, "name", d.OriginalMenuName, "error", err)
	}
	return r
}

// Package httpclient builds the traced clients used for every outbound call
// to a model provider or the image search API, and records per-provider call
// metrics.
package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/menutalk/kiku/internal/metrics"
)

// New returns a client whose spans are named and tagged after provider.
func New(provider string, timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: Transport(provider, nil),
		Timeout:   timeout,
	}
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Transport wraps base (http.DefaultTransport when nil) in an otelhttp
// transport. Responses of 400 and above mark the span as failed.
func Transport(provider string, base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}

	tagged := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		span := trace.SpanFromContext(req.Context())
		span.SetAttributes(attribute.String("provider", provider))

		resp, err := base.RoundTrip(req)
		switch {
		case err != nil:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		case resp.StatusCode >= 400:
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP status %d", resp.StatusCode))
		}
		return resp, err
	})

	return otelhttp.NewTransport(tagged,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return fmt.Sprintf("%s: %s %s", provider, r.Method, r.URL.Path)
		}),
	)
}

// ObserveCall starts timing one outbound call. The returned func records
// duration and count under the provider attribute plus an outcome.
func ObserveCall(ctx context.Context, provider string) func(err error) {
	start := time.Now()
	return func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		attrs := metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("outcome", outcome),
		)
		metrics.ExternalAPIDuration.Record(ctx, time.Since(start).Seconds(), attrs)
		metrics.ExternalAPICallsTotal.Add(ctx, 1, attrs)
	}
}

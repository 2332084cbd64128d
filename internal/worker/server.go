package worker

import (
	"github.com/hibiken/asynq"
)

// NewServer creates a new Asynq server for processing tasks
func NewServer(redisURL string, concurrency int) *asynq.Server {
	opt, err := ParseRedisURL(redisURL)
	if err != nil {
		panic("failed to parse Redis URL: " + err.Error())
	}
	if concurrency < 1 {
		concurrency = 1
	}

	return asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: concurrency,
		},
	)
}

// NewMux registers the processor's handlers behind the error reporting and
// tracing middleware.
func NewMux(p *EnrichmentProcessor) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Use(SentryMiddleware)
	mux.Use(OTelMiddleware)
	mux.HandleFunc(TypeEnrichBatch, p.HandleEnrichBatch)
	return mux
}

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"github.com/menutalk/kiku/internal/cache"
	"github.com/menutalk/kiku/internal/config"
	"github.com/menutalk/kiku/internal/enrich"
	"github.com/menutalk/kiku/internal/logger"
	"github.com/menutalk/kiku/internal/metrics"
	"github.com/menutalk/kiku/internal/sentry"
	"github.com/menutalk/kiku/internal/services/ai"
	"github.com/menutalk/kiku/internal/services/imagesearch"
	"github.com/menutalk/kiku/internal/services/model"
	"github.com/menutalk/kiku/internal/services/translate"
	"github.com/menutalk/kiku/internal/session"
	"github.com/menutalk/kiku/internal/telemetry"
	"github.com/menutalk/kiku/internal/worker"
)

func main() {
	defer sentry.Recover()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Session.Store != "redis" {
		log.Fatalf("Worker needs session.store=redis to share sessions with the server, got %q", cfg.Session.Store)
	}
	if cfg.GoogleSearchKey == "" {
		log.Fatalf("Worker needs GOOGLE_SEARCH_API_KEY")
	}

	serviceName := cfg.ServiceName + "-worker"

	// Initialize telemetry
	if cfg.OtelExporterOTLPEndpoint != "" {
		shutdown, err := telemetry.InitTelemetry(ctx, serviceName, cfg.ServiceVersion, cfg.Env,
			cfg.OtelExporterOTLPEndpoint, telemetry.ParseHeaders(cfg.OtelExporterOTLPHeaders))
		if err != nil {
			slog.Warn("Failed to init telemetry", "error", err)
		} else {
			defer shutdown(ctx)
		}
	}

	// Initialize Sentry
	if err := sentry.Init(cfg.SentryDSN, cfg.Env, serviceName, cfg.ServiceVersion); err != nil {
		slog.Warn("Failed to init Sentry", "error", err)
	} else if cfg.SentryDSN != "" {
		defer sentry.Flush(2 * time.Second)
	}

	// Initialize business metrics
	if err := metrics.Init(); err != nil {
		slog.Warn("Failed to init business metrics", "error", err)
	}

	logger := logger.New(cfg.Env)
	slog.SetDefault(logger)

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Invalid REDIS_URL: %v", err)
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()
	if err := redisotel.InstrumentTracing(rdb); err != nil {
		slog.Warn("Failed to instrument Redis tracing", "error", err)
	}
	if err := redisotel.InstrumentMetrics(rdb); err != nil {
		slog.Warn("Failed to instrument Redis metrics", "error", err)
	}

	searcher := imagesearch.NewClient(cfg.GoogleSearchKey, cfg.GoogleSearchEngineID, imagesearch.Options{
		RequestsPerSecond: cfg.Enrichment.RequestsPerSecond,
		Cache:             cache.NewImageCache(rdb),
		CacheTTL:          cfg.Enrichment.CacheTTL,
	})

	// The worker only enriches, but the service needs its full set of
	// collaborators to apply results to a session.
	gen := model.NewGenerator(cfg.Model, cfg.ProviderKey())
	defaultLang, _ := ai.ResolveLanguage(cfg.Extraction.DisplayLanguage, ai.DefaultLanguage())
	translator := translate.NewService(gen, translate.Options{
		Backend:         translate.NewBackend(cfg.Translate, cfg.DeepLKey, gen),
		DefaultLanguage: defaultLang,
	})
	sessions := session.NewService(
		session.NewRedisStore(rdb, cfg.Session.TTL),
		gen,
		translator,
		enrich.New(searcher, cfg.Enrichment.Concurrency),
		session.Settings{
			Mode:            cfg.Extraction.Mode,
			BatchSize:       cfg.Pagination.BatchSize,
			BusyTimeout:     cfg.Session.BusyTimeout,
			MaxImageBytes:   cfg.Images.MaxBytes,
			MaxUploads:      cfg.Images.MaxUploads,
			DefaultLanguage: cfg.Extraction.DisplayLanguage,
		},
	)

	workerMetrics, err := worker.NewWorkerMetrics()
	if err != nil {
		slog.Warn("Failed to init worker metrics", "error", err)
	}

	processor := worker.NewEnrichmentProcessor(sessions, workerMetrics)

	srv := worker.NewServer(cfg.RedisURL, cfg.Enrichment.Concurrency)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutting down worker...")
		srv.Shutdown()
	}()

	slog.Info("Starting worker", "concurrency", cfg.Enrichment.Concurrency)

	if err := srv.Run(worker.NewMux(processor)); err != nil {
		log.Fatalf("Worker failed: %v", err)
	}
}

package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/riandyrn/otelchi"
	otelchimetric "github.com/riandyrn/otelchi/metric"
	"go.opentelemetry.io/otel"

	"github.com/menutalk/kiku/internal/api"
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

	// Initialize telemetry
	if cfg.OtelExporterOTLPEndpoint != "" {
		shutdown, err := telemetry.InitTelemetry(ctx, cfg.ServiceName, cfg.ServiceVersion, cfg.Env,
			cfg.OtelExporterOTLPEndpoint, telemetry.ParseHeaders(cfg.OtelExporterOTLPHeaders))
		if err != nil {
			slog.Warn("Failed to init telemetry", "error", err)
		} else {
			defer shutdown(ctx)
		}
	}

	// Initialize Sentry
	if err := sentry.Init(cfg.SentryDSN, cfg.Env, cfg.ServiceName, cfg.ServiceVersion); err != nil {
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

	var rdb *redis.Client
	if cfg.NeedsRedis() {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Invalid REDIS_URL: %v", err)
		}
		rdb = redis.NewClient(opt)
		defer rdb.Close()
		if err := redisotel.InstrumentTracing(rdb); err != nil {
			slog.Warn("Failed to instrument Redis tracing", "error", err)
		}
		if err := redisotel.InstrumentMetrics(rdb); err != nil {
			slog.Warn("Failed to instrument Redis metrics", "error", err)
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
	}

	var store session.Store
	switch cfg.Session.Store {
	case "redis":
		store = session.NewRedisStore(rdb, cfg.Session.TTL)
	default:
		mem := session.NewMemoryStore(cfg.Session.TTL)
		go sweep(ctx, mem, time.Minute)
		store = mem
	}

	gen := model.NewGenerator(cfg.Model, cfg.ProviderKey())
	defaultLang, _ := ai.ResolveLanguage(cfg.Extraction.DisplayLanguage, ai.DefaultLanguage())
	translator := translate.NewService(gen, translate.Options{
		Backend:         translate.NewBackend(cfg.Translate, cfg.DeepLKey, gen),
		DefaultLanguage: defaultLang,
	})

	var (
		images   imagesearch.Searcher
		enricher session.ImageEnricher
	)
	if cfg.GoogleSearchKey != "" {
		opts := imagesearch.Options{
			RequestsPerSecond: cfg.Enrichment.RequestsPerSecond,
			CacheTTL:          cfg.Enrichment.CacheTTL,
		}
		if rdb != nil {
			opts.Cache = cache.NewImageCache(rdb)
		}
		client := imagesearch.NewClient(cfg.GoogleSearchKey, cfg.GoogleSearchEngineID, opts)
		images = client
		enricher = enrich.New(client, cfg.Enrichment.Concurrency)
	} else {
		slog.Warn("GOOGLE_SEARCH_API_KEY not set, dishes will have no photos")
	}

	sessions := session.NewService(store, gen, translator, enricher, session.Settings{
		Mode:            cfg.Extraction.Mode,
		BatchSize:       cfg.Pagination.BatchSize,
		BusyTimeout:     cfg.Session.BusyTimeout,
		MaxImageBytes:   cfg.Images.MaxBytes,
		MaxUploads:      cfg.Images.MaxUploads,
		DefaultLanguage: cfg.Extraction.DisplayLanguage,
	})

	if cfg.Enrichment.Mode == "queue" {
		asynqClient := worker.NewClient(cfg.RedisURL)
		defer asynqClient.Close()
		sessions.UseQueue(worker.NewEnqueuer(asynqClient))
	}

	apiServer := api.NewServer(cfg, sessions, translator, images)

	r := chi.NewRouter()

	r.Use(otelchi.Middleware(cfg.ServiceName,
		otelchi.WithChiRoutes(r),
		otelchi.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health"
		}),
	))

	// HTTP metrics
	metricCfg := otelchimetric.NewBaseConfig(cfg.ServiceName, otelchimetric.WithMeterProvider(otel.GetMeterProvider()))
	r.Use(otelchimetric.NewRequestDurationMillis(metricCfg))
	r.Use(otelchimetric.NewRequestInFlight(metricCfg))
	r.Use(otelchimetric.NewResponseSizeBytes(metricCfg))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Use(sentry.HTTPMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	apiServer.RegisterRoutes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Starting server",
			"port", cfg.Port,
			"provider", cfg.Model.Provider,
			"translate_provider", cfg.Translate.Provider,
			"extraction_mode", cfg.Extraction.Mode,
			"session_store", cfg.Session.Store,
			"enrichment_mode", cfg.Enrichment.Mode,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
}

// sweep drops expired in-memory sessions until ctx ends.
func sweep(ctx context.Context, store *session.MemoryStore, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.Sweep(); n > 0 {
				slog.Debug("Swept expired sessions", "count", n)
			}
		}
	}
}

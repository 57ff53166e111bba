package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	apihttp "moviestream/searchservice/internal/api/http"
	"moviestream/searchservice/internal/app"
	"moviestream/searchservice/internal/catalog"
	"moviestream/searchservice/internal/importer"
	"moviestream/searchservice/internal/index"
	"moviestream/searchservice/internal/metrics"
	"moviestream/searchservice/internal/providers"
	"moviestream/searchservice/internal/providers/ophim"
	"moviestream/searchservice/internal/providers/phimapi"
	"moviestream/searchservice/internal/search"
	"moviestream/searchservice/internal/syncer"
	"moviestream/searchservice/internal/telemetry"
)

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.Init(rootCtx, logger, "movie-search")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "movie-search"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.Duration("requestTimeout", cfg.RequestTimeout),
		slog.String("elasticsearchURL", cfg.ElasticsearchURL),
		slog.String("phimapiBaseURL", cfg.PhimAPIBaseURL),
		slog.String("ophimBaseURL", cfg.OphimBaseURL),
		slog.Bool("hasRedis", strings.TrimSpace(cfg.RedisURL) != ""),
		slog.Bool("cacheDisabled", cfg.CacheDisabled),
		slog.Duration("cacheTTL", cfg.CacheTTL),
		slog.Int("syncPageSize", cfg.SyncPageSize),
		slog.Int("syncChunkSize", cfg.SyncChunkSize),
	)

	db, err := pgxpool.New(rootCtx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("database connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	repo := catalog.NewRepository(db)
	if err := repo.Migrate(rootCtx); err != nil {
		logger.Error("database migration failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// The index is an accelerator, not the system of record: when
	// Elasticsearch is unreachable the service still starts and every query
	// takes the merge path.
	indexClient, err := index.New(rootCtx, cfg.ElasticsearchURL, logger)
	if err != nil {
		logger.Warn("elasticsearch unreachable, search runs in fallback mode",
			slog.String("url", cfg.ElasticsearchURL),
			slog.String("error", err.Error()),
		)
		indexClient = nil
	} else if err := indexClient.Initialize(rootCtx); err != nil {
		logger.Warn("index initialization failed", slog.String("error", err.Error()))
	}

	phimClient := &http.Client{Timeout: cfg.RequestTimeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
	ophimClient := &http.Client{Timeout: cfg.RequestTimeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}

	phimProvider := phimapi.NewProvider(phimapi.Config{
		BaseURL:   cfg.PhimAPIBaseURL,
		UserAgent: cfg.UserAgent,
		Client:    phimClient,
		Logger:    logger,
	})
	ophimProvider := ophim.NewProvider(ophim.Config{
		BaseURL:   cfg.OphimBaseURL,
		UserAgent: cfg.UserAgent,
		Client:    ophimClient,
		Logger:    logger,
	})

	orchestrator := search.NewOrchestrator(
		catalog.NewSearchProvider(repo),
		[]providers.MetadataProvider{phimProvider, ophimProvider},
		logger,
		cfg.RequestTimeout,
	)

	var indexer search.Indexer
	if indexClient != nil {
		indexer = indexClient
	}
	searchService := search.NewService(indexer, orchestrator, buildCache(cfg, logger), logger)

	serverOpts := []apihttp.ServerOption{apihttp.WithLogger(logger)}
	if indexClient != nil {
		syncService := syncer.New(repo, indexClient, logger, cfg.SyncPageSize, cfg.SyncChunkSize)
		syncService.SetChangeHook(func() {
			searchService.InvalidateCache(context.Background())
		})
		serverOpts = append(serverOpts,
			apihttp.WithSync(syncService),
			apihttp.WithReindexer(indexClient),
			apihttp.WithImporter(importer.New(phimProvider, repo, syncService, logger)),
		)
	} else {
		logger.Warn("admin sync endpoints disabled until elasticsearch is reachable")
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           apihttp.NewServer(searchService, serverOpts...).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Full syncs and imports run inside the request; give them room.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("movie search service started",
		slog.String("addr", cfg.HTTPAddr),
		slog.Bool("indexAvailable", indexClient != nil),
	)

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("movie search service stopped")
}

func buildCache(cfg app.Config, logger *slog.Logger) *search.Cache {
	if cfg.CacheDisabled {
		logger.Info("response cache disabled")
		return nil
	}

	var backend *search.RedisCacheBackend
	redisURL := strings.TrimSpace(cfg.RedisURL)
	if redisURL != "" {
		redisOpts, err := redis.ParseURL(redisURL)
		if err != nil {
			logger.Warn("invalid redis url, using in-memory cache only", slog.String("error", err.Error()))
		} else {
			client := redis.NewClient(redisOpts)
			pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := client.Ping(pingCtx).Err(); err != nil {
				logger.Warn("redis not reachable, using in-memory cache only", slog.String("error", err.Error()))
			} else {
				logger.Info("redis connected", slog.String("addr", redisOpts.Addr))
				backend = search.NewRedisCacheBackend(client)
			}
		}
	}
	return search.NewCache(cfg.CacheTTL, backend)
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	options := &slog.HandlerOptions{Level: parseLogLevel(levelRaw)}
	if strings.ToLower(strings.TrimSpace(formatRaw)) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

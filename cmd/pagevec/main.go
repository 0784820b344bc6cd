package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pagevec/internal/config"
	dbRedis "github.com/kailas-cloud/pagevec/internal/db/redis"
	"github.com/kailas-cloud/pagevec/internal/domain"
	logpkg "github.com/kailas-cloud/pagevec/internal/logger"
	"github.com/kailas-cloud/pagevec/internal/metrics"
	"github.com/kailas-cloud/pagevec/internal/repository/embcache"
	pagerepo "github.com/kailas-cloud/pagevec/internal/repository/page"
	"github.com/kailas-cloud/pagevec/internal/transport/browser"
	chiTransport "github.com/kailas-cloud/pagevec/internal/transport/chi"
	"github.com/kailas-cloud/pagevec/internal/transport/googleai"
	openaiTransport "github.com/kailas-cloud/pagevec/internal/transport/openai"
	acquireuc "github.com/kailas-cloud/pagevec/internal/usecase/acquire"
	embeddinguc "github.com/kailas-cloud/pagevec/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/pagevec/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/pagevec/internal/usecase/ingest"
	libraryuc "github.com/kailas-cloud/pagevec/internal/usecase/library"
	"github.com/kailas-cloud/pagevec/internal/usecase/normalize"
	searchuc "github.com/kailas-cloud/pagevec/internal/usecase/search"
	"github.com/kailas-cloud/pagevec/internal/version"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting pagevec API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterHTTPMetrics()
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	pages := pagerepo.New(store, cfg.Storage.KeyPrefix, cfg.Embedding.Dimensions)
	if err := pages.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to create page index", zap.Error(err))
	}

	// Embedding chain: lazy engine over the OpenAI-compatible model, then the Redis cache.
	engine := embeddinguc.NewEngine(
		modelLoader(&cfg, logger), cfg.Embedding.Provider, cfg.Embedding.Concurrency, logger,
	).WithLoadTimeout(cfg.EmbeddingLoadTimeout())
	if cfg.Embedding.Warmup {
		if err := engine.Warmup(ctx); err != nil {
			// Not fatal: the next request retries the load.
			logger.Error("Embedding warmup failed", zap.Error(err))
		}
	}
	var embedder domain.Embedder = engine
	if cfg.Embedding.Cache.Enabled {
		embedder = embcache.New(engine, store, embcache.Options{
			KeyPrefix: cfg.Storage.KeyPrefix,
			Model:     cfg.Embedding.Model,
			TTL:       cfg.CacheTTL(),
		}, metrics.EmbeddingCacheTotal, logger)
	}
	logger.Info("Embedding engine configured",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cache", cfg.Embedding.Cache.Enabled),
	)

	ai, aiHealth, err := buildCompleter(ctx, &cfg)
	if err != nil {
		logger.Fatal("Failed to create AI client", zap.Error(err))
	}

	acquirer, err := acquireuc.New(browser.New(browser.Config{
		Headless:  *cfg.Browser.Headless,
		UserAgent: cfg.Browser.UserAgent,
		ExecPath:  cfg.Browser.ExecPath,
	}), acquireuc.Config{
		MaxSessions:       cfg.Browser.MaxSessions,
		MaxWaiting:        cfg.Browser.MaxWaiting,
		NavigationTimeout: cfg.NavigationTimeout(),
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create browser pool", zap.Error(err))
	}
	defer acquirer.Release()

	normalizer := normalize.NewNormalizer(ai, normalize.Config{
		MaxInputChars: cfg.AI.MaxInputChars,
		Timeout:       cfg.AITimeout(),
	}, logger)
	rewriter := normalize.NewRewriter(ai, cfg.AITimeout(), logger)

	// Create use case services
	docEmbedder, queryEmbedder := embedder, embedder
	if cfg.Embedding.DocumentInstruction != "" {
		docEmbedder = domain.NewInstructionEmbedder(embedder, cfg.Embedding.DocumentInstruction)
	}
	if cfg.Embedding.QueryInstruction != "" {
		queryEmbedder = domain.NewInstructionEmbedder(embedder, cfg.Embedding.QueryInstruction)
	}

	ingestSvc := ingestuc.New(pages, acquirer, normalizer, docEmbedder, cfg.Embedding.Dimensions, logger)
	librarySvc := libraryuc.New(pages).
		WithPagination(cfg.Library.DefaultPageSize, cfg.Library.MaxPageSize)
	searchSvc := searchuc.New(pages, rewriter, queryEmbedder, searchuc.Config{
		DefaultLimit:        cfg.Search.DefaultLimit,
		MaxLimit:            cfg.Search.MaxLimit,
		MinScore:            cfg.Search.MinScore,
		NativeKNN:           cfg.Search.NativeKNN,
		CandidateMultiplier: cfg.Search.CandidateMultiplier,
	})
	healthSvc := healthuc.New(store, engine, aiHealth)

	server := chiTransport.NewServer(ingestSvc, librarySvc, searchSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware("/metrics"))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.Tokens, cfg.Auth.AnonymousOwner))
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// modelLoader returns the engine's loader: it probes the embeddings endpoint
// and checks the model dimension against the configured one.
func modelLoader(cfg *config.Config, logger *zap.Logger) embeddinguc.Loader {
	return func(ctx context.Context) (embeddinguc.Model, error) {
		m, err := openaiTransport.LoadEmbedder(ctx, &openaiTransport.Config{
			APIKey:         cfg.Embedding.APIKey,
			BaseURL:        cfg.Embedding.BaseURL,
			Model:          cfg.Embedding.Model,
			Dimensions:     cfg.Embedding.Dimensions,
			SendDimensions: cfg.Embedding.SendDimensions,
			Logger:         logger,
		})
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}

// buildCompleter creates the AI client for ai.provider. The health checker
// is nil for providers without a cheap availability probe.
func buildCompleter(ctx context.Context, cfg *config.Config) (normalize.Completer, healthuc.CompletionChecker, error) {
	switch cfg.AI.Provider {
	case "openai":
		c := openaiTransport.NewCompleter(&openaiTransport.CompleterConfig{
			APIKey:      cfg.AI.APIKey,
			BaseURL:     cfg.AI.BaseURL,
			Model:       cfg.AI.Model,
			Temperature: float32(cfg.AI.Temperature),
		})
		return c, c, nil
	case "googleai":
		c, err := googleai.New(ctx, googleai.Config{
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create gemini client: %w", err)
		}
		return c, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown ai provider %q", cfg.AI.Provider)
	}
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.ErrorCodeInternalError,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}

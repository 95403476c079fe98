package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/auditorsec/risk-scoring-service/internal/application/usecase"
	"github.com/auditorsec/risk-scoring-service/internal/domain/port"
	"github.com/auditorsec/risk-scoring-service/internal/domain/service"
	"github.com/auditorsec/risk-scoring-service/internal/infrastructure/config"
	"github.com/auditorsec/risk-scoring-service/internal/infrastructure/embedding"
	"github.com/auditorsec/risk-scoring-service/internal/infrastructure/messaging"
	"github.com/auditorsec/risk-scoring-service/internal/infrastructure/ml"
	"github.com/auditorsec/risk-scoring-service/internal/infrastructure/observability"
	"github.com/auditorsec/risk-scoring-service/internal/infrastructure/postgres"
	"github.com/auditorsec/risk-scoring-service/internal/infrastructure/vector"
	"github.com/auditorsec/risk-scoring-service/internal/presentation/rest"
)

const serviceName = "risk-scoring-service"

func main() {
	cfg := config.Load()

	logger := observability.InitLogger(observability.LogConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	}, serviceName)

	logger.Info("starting risk-scoring-service", slog.String("environment", cfg.Environment))

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if cfg.RunMigrations {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("migrations applied")
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()
	logger.Info("connected to database")

	metrics, err := observability.InitMetrics(serviceName)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	// Infrastructure adapters.
	historyRepo := postgres.NewHistoryRepository(pool)
	assessmentRepo := postgres.NewAssessmentRepository(pool)
	var vectorIndex port.VectorIndex
	if cfg.VectorIndexURL == "memory" {
		logger.Warn("VECTOR_INDEX_URL is 'memory', using in-memory vector index")
		vectorIndex = vector.NewMemoryIndex()
	} else {
		vectorIndex = vector.NewQdrantIndex(cfg.VectorIndexURL, cfg.VectorCollection)
	}

	var embedder port.Embedder
	if cfg.EmbeddingURL == "local" {
		logger.Warn("EMBEDDING_URL is 'local', using hashing embedder")
		embedder = embedding.NewHashingEmbedder(0)
	} else {
		embedder = embedding.NewOllamaEmbedder(cfg.EmbeddingURL, cfg.EmbeddingModel)
	}

	var modelClient port.ModelClient
	if cfg.ModelURL != "" {
		modelClient = ml.NewHTTPModelClient(cfg.ModelURL)
	} else {
		logger.Warn("MODEL_URL not set, using stub model client")
		modelClient = ml.NewStubModelClient(cfg.ModelVersion)
	}

	publisher := messaging.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	defer publisher.Close()

	// Domain services.
	combiner, err := service.NewCombiner(cfg.Weights(), cfg.Thresholds(), cfg.MaxFactors)
	if err != nil {
		return fmt.Errorf("build combiner: %w", err)
	}

	// Use cases.
	assess := usecase.NewAssessEntity(historyRepo, embedder, vectorIndex, modelClient,
		combiner, publisher, assessmentRepo, cfg.LookbackWindow, cfg.TopK, cfg.Timeouts(), logger)
	assess.Completed = func(riskLevel string, degraded bool, elapsed time.Duration) {
		metrics.RecordAssessment(context.Background(), riskLevel, degraded, elapsed)
	}
	batch := usecase.NewBatchAssess(assess, cfg.BatchMaxInFlight)
	batch.ActiveProbe = func(active int32) {
		metrics.RecordBatchInFlight(context.Background(), int64(active))
	}
	probe := usecase.NewProbeDependencies(historyRepo, vectorIndex, modelClient, cfg.ProbeTimeout)

	// HTTP surface.
	mux := http.NewServeMux()
	rest.NewAssessmentHandler(assess, batch, assessmentRepo, logger).RegisterRoutes(mux)
	rest.NewHealthHandler(probe).RegisterRoutes(mux)
	mux.Handle("GET /metrics", metrics.Handler())

	server := &http.Server{
		Addr:         cfg.HTTPAddress(),
		Handler:      rest.LoggingMiddleware(logger)(mux),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting", slog.String("address", cfg.HTTPAddress()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	case err := <-errCh:
		return err
	}

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
	}

	// Flush fire-and-forget event publication and audit writes.
	assess.Drain()

	if err := metrics.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("stopped")
	return nil
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"corpora/backend/features/loader"
	"corpora/backend/internal/adapter/gemini"
	wstore "corpora/backend/internal/adapter/weaviate"
	"corpora/backend/internal/config"
	"corpora/backend/internal/decoder"
	"corpora/backend/internal/ingest"
	"corpora/backend/internal/logger"
	"corpora/backend/internal/middleware"
	"corpora/backend/internal/provision"
	"corpora/backend/internal/splitter"
	"corpora/backend/internal/vector"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/nsqio/go-nsq"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
)

func main() {
	// Structured logger with correlation ids pulled from request context
	log := slog.New(logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, nil)))
	slog.SetDefault(log)

	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	retryDelay := time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second

	// 2. Database Connection
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPass, cfg.DBName)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("failed to open db connection", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Retry connection
	for i := 0; i < cfg.BootstrapRetryAttempts; i++ {
		if err := db.Ping(); err == nil {
			break
		}
		slog.Warn("failed to ping db, retrying...", "attempt", i+1, "max_attempts", cfg.BootstrapRetryAttempts)
		time.Sleep(retryDelay)
	}

	if err := db.Ping(); err != nil {
		slog.Error("failed to ping db after retries", "error", err)
		os.Exit(1)
	}

	// 3. Run Migrations
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		slog.Error("failed to create migration driver", "error", err)
		os.Exit(1)
	}

	m, err := migrate.NewWithDatabaseInstance(cfg.MigrationPath, "postgres", driver)
	if err != nil {
		slog.Error("failed to create migration instance", "error", err)
		os.Exit(1)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("migrations applied successfully")

	// 4. Weaviate Connection & Schema
	wCfg := weaviate.Config{
		Host:   cfg.WeaviateHost,
		Scheme: cfg.WeaviateScheme,
	}
	wClient, err := weaviate.NewClient(wCfg)
	if err != nil {
		slog.Error("failed to create weaviate client", "error", err)
		os.Exit(1)
	}

	wAdapter := vector.NewWeaviateClientAdapter(wClient)

	// Retry Weaviate Schema Ensure
	for i := 0; i < cfg.BootstrapRetryAttempts; i++ {
		if err := vector.EnsureSchema(context.Background(), wAdapter); err == nil {
			slog.Info("weaviate schema ensured")
			break
		}
		slog.Warn("failed to ensure weaviate schema, retrying...", "attempt", i+1, "error", err)
		time.Sleep(retryDelay)
	}

	if err := vector.EnsureSchema(context.Background(), wAdapter); err != nil {
		slog.Error("failed to ensure weaviate schema after retries", "error", err)
		os.Exit(1)
	}

	// 5. Model Provisioning
	// A misconfigured or unreachable artifact is fatal: serving without the
	// model would answer every request with failures anyway.
	if cfg.EmbeddingModel != "" {
		provisioner := provision.New(provision.Config{
			BaseURL:   cfg.DownloadBaseURL,
			ModelsDir: cfg.ModelsDir,
			Logger:    log,
		})
		if err := provisioner.Ensure(context.Background(), cfg.EmbeddingModel); err != nil {
			slog.Error("failed to provision embedding model", "error", err, "model", cfg.EmbeddingModel)
			os.Exit(1)
		}
	}

	// 6. Embedder, Store & Pipeline
	embedder, err := gemini.NewEmbedder(context.Background(), cfg.GeminiAPIKey)
	if err != nil {
		slog.Error("failed to create embedder", "error", err)
		os.Exit(1)
	}
	defer embedder.Close()

	vecStore := wstore.NewStore(wClient, embedder)

	splitters := splitter.NewRegistry(
		splitter.WithChunkSize(cfg.ChunkSize),
		splitter.WithChunkOverlap(cfg.ChunkOverlap),
	)

	pipeline, err := ingest.NewPipeline(vecStore, decoder.NewText(), splitters,
		ingest.WithPoolSize(cfg.IngestionConcurrency),
		ingest.WithLogger(log),
		ingest.WithAllowedTypes(decoder.SupportedMimetypes()),
	)
	if err != nil {
		slog.Error("failed to create ingestion pipeline", "error", err)
		os.Exit(1)
	}
	defer pipeline.Close()

	// 7. NSQ Producer (outcome events)
	nsqCfg := nsq.NewConfig()
	nsqProducer, err := nsq.NewProducer(cfg.NSQDHost, nsqCfg)
	if err != nil {
		slog.Error("failed to create NSQ producer", "error", err)
		os.Exit(1)
	}
	defer nsqProducer.Stop()

	// 8. Feature: Loader
	enabled := middleware.NewEnabledFlag(false)

	loaderRepo := loader.NewPostgresRepo(db)
	loaderService := loader.NewService(pipeline, loaderRepo, nsqProducer)
	loaderHandler := loader.NewHandler(loaderService, enabled, cfg.MaxUploadSizeMB)

	gated := func(h http.HandlerFunc) http.Handler {
		return middleware.CorrelationID(middleware.EnabledGate(enabled, cfg.DisableGate, h))
	}

	// Routes
	http.Handle("PUT /loadSources", gated(loaderHandler.LoadSources))
	http.Handle("GET /batches", gated(loaderHandler.ListBatches))
	http.Handle("PUT /enabled", middleware.CorrelationID(http.HandlerFunc(loaderHandler.SetEnabled)))

	// 9. Start Server
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	slog.Info("server starting", "port", cfg.ServerPort)
	if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.ServerPort), nil); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

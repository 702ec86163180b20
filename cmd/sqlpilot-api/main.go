package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sqlpilot/sqlpilot/internal/api"
	"github.com/sqlpilot/sqlpilot/internal/auth"
	"github.com/sqlpilot/sqlpilot/internal/config"
	"github.com/sqlpilot/sqlpilot/internal/llm"
	"github.com/sqlpilot/sqlpilot/internal/metadata"
	"github.com/sqlpilot/sqlpilot/internal/observability"
	"github.com/sqlpilot/sqlpilot/internal/sqlexec"
	"github.com/sqlpilot/sqlpilot/internal/workflow"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv("sqlpilot-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	executor, closeExecutor, err := openExecutor(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to open sql executor", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeExecutor()

	provider, err := openMetadataProvider(cfg)
	if err != nil {
		logger.Error("failed to initialize metadata provider", slog.Any("error", err))
		os.Exit(1)
	}

	completions, err := llm.NewOpenAIClient(llm.OpenAIConfig{
		APIKey:  cfg.AI.APIKey,
		BaseURL: cfg.AI.BaseURL,
		Model:   cfg.AI.Model,
		Timeout: cfg.AI.Timeout,
	})
	if err != nil {
		logger.Error("failed to initialize completion client", slog.Any("error", err))
		os.Exit(1)
	}

	service, err := workflow.NewService(&workflow.Steps{
		Completions:   completions,
		DB:            executor,
		Metadata:      provider,
		Logger:        logger,
		Model:         cfg.AI.Model,
		MaxRows:       cfg.Workflow.MaxRows,
		FollowupCount: cfg.Workflow.FollowupCount,
	}, logger)
	if err != nil {
		logger.Error("failed to build workflow", slog.Any("error", err))
		os.Exit(1)
	}

	deps := api.Dependencies{
		Logger:   logger,
		Workflow: service,
		Readiness: api.CombineReadinessChecks(
			api.CheckExecutor(executor),
			api.CheckAIConfig(cfg),
		),
		DependencyTimeout: time.Second,
		DefaultIterations: cfg.Workflow.MaxIterations,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

func openExecutor(ctx context.Context, cfg config.Config) (sqlexec.Executor, func(), error) {
	switch cfg.Database.Driver {
	case config.DriverDuckDB:
		db, err := sqlexec.OpenDuckDB(ctx, cfg.Database.DuckDBPath)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { _ = db.Close() }, nil
	default:
		db, err := sqlexec.OpenPostgres(ctx, sqlexec.PostgresConfig{
			DSN:             cfg.Database.DSN,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return nil, nil, err
		}
		return sqlexec.NewPostgres(db), func() { _ = db.Close() }, nil
	}
}

func openMetadataProvider(cfg config.Config) (metadata.Provider, error) {
	switch cfg.Metadata.Source {
	case config.MetadataSourceS3:
		return metadata.NewObjectStore(metadata.S3Config{
			Endpoint:        cfg.Metadata.S3Endpoint,
			Region:          cfg.Metadata.S3Region,
			Bucket:          cfg.Metadata.S3Bucket,
			AccessKeyID:     cfg.Metadata.S3AccessKey,
			SecretAccessKey: cfg.Metadata.S3SecretKey,
			UseSSL:          cfg.Metadata.S3UseSSL,
			Prefix:          cfg.Metadata.S3Prefix,
			DefaultName:     cfg.Metadata.DefaultName,
		})
	default:
		return metadata.NewFileStore(cfg.Metadata.Dir, cfg.Metadata.DefaultName)
	}
}

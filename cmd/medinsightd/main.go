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

	"github.com/medinsight/medinsight/internal/ai"
	"github.com/medinsight/medinsight/internal/ai/openai"
	"github.com/medinsight/medinsight/internal/chat"
	"github.com/medinsight/medinsight/internal/common"
	"github.com/medinsight/medinsight/internal/export"
	"github.com/medinsight/medinsight/internal/extract"
	"github.com/medinsight/medinsight/internal/filestore"
	"github.com/medinsight/medinsight/internal/reports"
	"github.com/medinsight/medinsight/internal/repository"
	"github.com/medinsight/medinsight/internal/server"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, cleanup, err := openRepository(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open report store", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer cleanup()

	files, err := openFileStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open file store", "backend", cfg.FileStore.Backend, "error", err)
		os.Exit(1)
	}

	extractor := extract.NewExtractor(extract.Config{
		Tesseract:   cfg.OCR.Tesseract,
		Language:    cfg.OCR.Language,
		TessdataDir: cfg.OCR.TessdataDir,
	}, logger)

	client := openai.NewClient(openai.Config{
		APIKey:             cfg.AI.APIKey,
		BaseURL:            cfg.AI.BaseURL,
		Model:              cfg.AI.Model,
		AnalyzeTemperature: cfg.AI.Temperature,
		Timeout:            cfg.AI.Timeout,
	}, logger)

	retry := ai.DefaultRetryConfig
	retry.MaxRetries = cfg.AI.MaxRetries

	directory := repository.NewStaticDirectory()
	reportSvc := reports.NewService(logger, repo, directory, extractor, client, files, retry)
	chatSvc := chat.NewService(logger, repo, client)
	exportSvc := export.NewService(repo, logger)

	router := server.New(&server.Handlers{
		Reports: reportSvc,
		Chat:    chatSvc,
		Export:  exportSvc,
	}, cfg.Server.JWTSecret, logger)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

func openRepository(ctx context.Context, cfg *common.Config, logger *slog.Logger) (repository.ReportRepository, func(), error) {
	switch cfg.Database.Driver {
	case "postgres":
		pool, err := repository.Open(ctx, repository.Config{
			DSN:              cfg.Database.DSN,
			MaxConns:         cfg.Database.MaxConns,
			MinConns:         cfg.Database.MinConns,
			MaxConnLifetime:  cfg.Database.MaxConnLifetime,
			MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
			DialTimeout:      cfg.Database.DialTimeout,
			StatementTimeout: cfg.Database.StatementTimeout,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := repository.HealthCheck(ctx, pool, cfg.Database.DialTimeout, logger); err != nil {
			pool.Close()
			return nil, nil, err
		}
		repo := repository.NewPostgresRepository(pool, logger)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repo, pool.Close, nil
	case "sqlite":
		repo, err := repository.OpenSQLite(cfg.Database.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = repo.Close()
			return nil, nil, err
		}
		return repo, func() { _ = repo.Close() }, nil
	case "memory":
		return repository.NewMemoryRepository(), func() {}, nil
	default:
		return nil, nil, common.NewAppError("CONFIG_ERROR", "unknown DB_DRIVER: "+cfg.Database.Driver, common.ErrInvalidInput)
	}
}

func openFileStore(ctx context.Context, cfg *common.Config) (filestore.FileStore, error) {
	switch cfg.FileStore.Backend {
	case "minio":
		return filestore.NewMinIOStore(ctx, filestore.MinIOConfig{
			Endpoint:  cfg.FileStore.Endpoint,
			AccessKey: cfg.FileStore.AccessKey,
			SecretKey: cfg.FileStore.SecretKey,
			Bucket:    cfg.FileStore.Bucket,
			UseSSL:    cfg.FileStore.UseSSL,
		})
	default:
		return filestore.NewLocalStore(cfg.FileStore.LocalDir)
	}
}

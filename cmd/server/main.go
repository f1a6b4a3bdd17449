package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"SecondChance/internal/config"
	"SecondChance/internal/handlers"
	"SecondChance/internal/middleware"
	"SecondChance/internal/repo"
	"SecondChance/internal/service"
	"SecondChance/internal/storage"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	cfg := config.NewConfig()

	if cfg.Version {
		fmt.Printf("SecondChance server\nVersion: %s\nBuild date: %s\n", version, buildDate)
		return
	}

	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}

	// делаем регистратор SugaredLogger
	sugar := logger.Sugar()
	middleware.SetLogger(sugar) // передаём логгер в middleware
	//сброс буфера логгера
	defer func() {
		if err := logger.Sync(); err != nil && !errors.Is(err, syscall.EINVAL) && !errors.Is(err, syscall.ENOTTY) {
			sugar.Errorw("Failed to sync logger", "error", err)
		}
	}()

	if err := run(cfg, sugar); err != nil {
		sugar.Errorw("Server failed", "error", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, sugar *zap.SugaredLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sugar.Infow("Config",
		"BaseURL", cfg.BaseURL,
		"MountPath", cfg.MountPath,
		"DBDriver", cfg.DBDriver,
		"UploadDir", cfg.UploadDir,
		"UploadMaxBytes", cfg.UploadMaxBytes,
		"UploadNaming", cfg.UploadNaming,
	)

	// хранилище открывается один раз и закрывается после остановки HTTP-сервера
	itemRepo, err := repo.Open(ctx, cfg, sugar)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := itemRepo.Close(closeCtx); err != nil {
			sugar.Errorw("failed to close store", "error", err)
		}
	}()

	uploads, err := storage.New(storage.Options{
		Dir:     cfg.UploadDir,
		MaxSize: cfg.UploadMaxBytes,
		Naming:  cfg.UploadNaming,
	}, sugar)
	if err != nil {
		return fmt.Errorf("init upload storage: %w", err)
	}

	itemService := service.NewItemService(itemRepo, uploads, sugar)
	h := handlers.NewHandler(itemService, uploads.Dir(), sugar, cfg)

	srv := &http.Server{
		Addr:    cfg.BaseURL,
		Handler: h.Router,
	}

	errCh := make(chan error, 1)
	go func() {
		sugar.Infow("Starting server", "addr", cfg.BaseURL, "items", cfg.MountPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	sugar.Infow("Shutting down", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newLogger выбирает development- или production-конфигурацию zap по LOG_FORMAT и уровень по LOG_LEVEL.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zcfg zap.Config
	if cfg.LogFormat == "json" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

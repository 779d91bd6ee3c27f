// @title Unikrew Receipt Extraction API
// @version 1.0
// @description OCR, layout-aware token classification and LLM reasoning over receipt images.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer token, required on /api/v1 when auth.jwt_secret is set.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "unikrew/docs"
	"unikrew/internal/app"
	"unikrew/internal/config"
	"unikrew/internal/handler"
	"unikrew/internal/logging"
	"unikrew/internal/repository/postgres"
	"unikrew/internal/router"
	"unikrew/internal/service"
	s3storage "unikrew/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	flush, err := logging.Setup(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer flush()
	logger := zap.L()

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	agent, prompts, err := app.NewPipeline(cfg)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}

	// Initialize storage
	store, err := s3storage.NewImageStore(ctx, &cfg.S3)
	if err != nil {
		return fmt.Errorf("failed to initialize S3 client: %w", err)
	}

	source := service.NewImageSource(store, cfg.Upload.ImageRoot)
	handlers := router.Handlers{}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Server.Stateless {
		logger.Info("server: stateless mode, receipts API disabled")
		handlers.Health = handler.NewHealthHandler(nil)
		handlers.Inference = handler.NewInferenceHandler(
			service.NewReceiptService(nil, store, agent, source, &cfg.S3, &cfg.Upload, cfg.Queue.MaxRetries))
	} else {
		db, err := postgres.NewDB(ctx, &cfg.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		repo := postgres.NewReceiptRepo(db)
		receiptSvc := service.NewReceiptService(repo, store, agent, source, &cfg.S3, &cfg.Upload, cfg.Queue.MaxRetries)

		handlers.Health = handler.NewHealthHandler(db)
		handlers.Inference = handler.NewInferenceHandler(receiptSvc)
		handlers.Receipt = handler.NewReceiptHandler(receiptSvc, &cfg.S3)

		worker := service.NewExtractQueueWorker(repo, receiptSvc, service.ExtractQueueConfig{
			PollInterval: time.Duration(cfg.Queue.PollIntervalSecs) * time.Second,
			MaxRetries:   cfg.Queue.MaxRetries,
			Concurrency:  cfg.Queue.Concurrency,
		})
		g.Go(func() error {
			worker.Start(gctx)
			return nil
		})
	}

	if cfg.Prompts.Watch {
		g.Go(func() error {
			if err := prompts.Watch(gctx); err != nil {
				logger.Warn("server: prompt watcher stopped", zap.Error(err))
			}
			return nil
		})
	}

	var tokens service.TokenService
	if cfg.Auth.Enabled() {
		tokens = service.NewTokenService(&cfg.Auth)
	} else {
		logger.Warn("server: auth.jwt_secret not set, /api/v1 is unauthenticated")
	}

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           router.Setup(cfg, logger, tokens, handlers),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	g.Go(func() error {
		logger.Info("server: listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("server: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

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
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/bulk-loan-api/api/swagger"
	"github.com/noah-isme/bulk-loan-api/internal/handler"
	"github.com/noah-isme/bulk-loan-api/internal/middleware"
	"github.com/noah-isme/bulk-loan-api/internal/repository"
	"github.com/noah-isme/bulk-loan-api/internal/service"
	"github.com/noah-isme/bulk-loan-api/migrations"
	"github.com/noah-isme/bulk-loan-api/pkg/cache"
	"github.com/noah-isme/bulk-loan-api/pkg/config"
	"github.com/noah-isme/bulk-loan-api/pkg/database"
	"github.com/noah-isme/bulk-loan-api/pkg/export"
	"github.com/noah-isme/bulk-loan-api/pkg/jobs"
	"github.com/noah-isme/bulk-loan-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/bulk-loan-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/bulk-loan-api/pkg/middleware/requestid"
	"github.com/noah-isme/bulk-loan-api/pkg/storage"
	"github.com/noah-isme/bulk-loan-api/pkg/tracing"
)

// @title Bulk Loan API
// @version 1.0.0
// @description Bulk lending of numbered items with partial return reconciliation
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		logr.Fatal("failed to init tracing", zap.Error(err))
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logr.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if _, err := migrations.Apply(ctx, db, logr); err != nil {
		logr.Fatal("failed to apply migrations", zap.Error(err))
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, summary cache disabled", zap.Error(err))
		redisClient = nil
	}

	metricsSvc := service.NewMetricsService()

	cacheRepo := repository.NewCacheRepository(redisClient, cfg.Redis.KeyPrefix, logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Summary.CacheTTL, logr, cfg.Summary.CacheEnabled && redisClient != nil)

	loanRepo := repository.NewLoanRepository(db)
	summarySvc := service.NewSummaryService(loanRepo, cacheSvc, cfg.Summary.CacheTTL, logr)

	fileStore, err := storage.NewLocalStorage(cfg.Images.StorageDir)
	if err != nil {
		logr.Fatal("failed to init image storage", zap.Error(err))
	}
	imageSvc := service.NewImageService(
		fileStore,
		storage.NewSignedURLSigner(cfg.Images.SignedURLSecret, cfg.Images.SignedURLTTL),
		metricsSvc,
		service.ImageConfig{
			APIPrefix:       cfg.APIPrefix,
			MaxFileSize:     cfg.Images.MaxFileSizeBytes,
			MaxFilesPerCall: cfg.Images.MaxFilesPerCall,
			AllowedMIMEs:    cfg.Images.AllowedMIMEs,
		},
		logr,
	)

	cleanupQueue := jobs.NewQueue("image-cleanup", imageSvc.HandleCleanupJob, jobs.QueueConfig{
		Workers:    cfg.Cleanup.Workers,
		MaxRetries: cfg.Cleanup.MaxRetries,
		RetryDelay: cfg.Cleanup.RetryDelay,
		Logger:     logr,
	})
	cleanupQueue.Start(ctx)
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if left := cleanupQueue.Drain(drainCtx); left > 0 {
			logr.Warn("image cleanup jobs abandoned", zap.Int("jobs", left))
		}
	}()
	imageSvc.UseCleanupQueue(cleanupQueue)

	loanSvc := service.NewLoanService(loanRepo, imageSvc, summarySvc, metricsSvc, validator.New(), service.LoanConfig{MaxRange: cfg.Loans.MaxRange}, logr)
	exportSvc := service.NewExportService(loanRepo, export.NewCSVExporter(), export.NewPDFExporter(), logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc, "/metrics", "/health", "/ready"))
	r.Use(middleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(cfg.APIPrefix), routeHandlers{
		loans:   handler.NewLoanHandler(loanSvc),
		summary: handler.NewSummaryHandler(summarySvc),
		export:  handler.NewExportHandler(exportSvc),
		images:  handler.NewImageHandler(imageSvc),
		metrics: metricsHandler,
		upload:  middleware.RateLimit(middleware.NewRateLimiter(cfg.Upload.PerMinute, cfg.Upload.Burst)),
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/exam-hall-api/internal/handler"
	"github.com/noah-isme/exam-hall-api/internal/middleware"
	"github.com/noah-isme/exam-hall-api/internal/repository"
	"github.com/noah-isme/exam-hall-api/internal/service"
	"github.com/noah-isme/exam-hall-api/pkg/cache"
	"github.com/noah-isme/exam-hall-api/pkg/config"
	"github.com/noah-isme/exam-hall-api/pkg/jobs"
	"github.com/noah-isme/exam-hall-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/exam-hall-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/exam-hall-api/pkg/middleware/requestid"
	"github.com/noah-isme/exam-hall-api/pkg/storage"
)

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis is optional: without it run results only live in process memory.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, run cache disabled", "error", err)
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient, cfg.Runs.ResultTTL, logr)
	defer cacheRepo.Close() //nolint:errcheck

	bundleStore, err := storage.NewLocalStorage(cfg.Bundles.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("bundle storage init failed", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Bundles.SignedURLSecret, cfg.Bundles.SignedURLTTL)

	var matcher service.SubjectMatcher = service.ExactMatcher{}
	if cfg.Matcher.Strategy == "fuzzy" {
		matcher = service.NewFuzzyMatcher(cfg.Matcher.FuzzyThreshold)
	}
	classifier := service.NewContentClassifier(service.NewFuzzyMatcher(cfg.Matcher.FuzzyThreshold))

	metricsSvc := service.NewMetricsService()
	datasetRepo := repository.NewDatasetRepository(cfg.Data.BaseDir, logr)
	datasetSvc := service.NewDatasetService(datasetRepo, classifier, logr)
	seatingSvc := service.NewSeatingService(logr)
	demandSvc := service.NewDemandService(logr)
	runSvc := service.NewRunService(seatingSvc, demandSvc, cacheRepo, logr)
	exportSvc := service.NewExportService(logr)
	remarkSvc := service.NewRemarkService(logr)
	bundleSvc := service.NewBundleService(matcher, cfg.Bundles.MaxSourcePages, logr)
	bundleJobSvc := service.NewBundleJobService(runSvc, datasetSvc, bundleSvc, bundleStore, signer, jobs.QueueConfig{
		Workers:    cfg.Bundles.WorkerConcurrency,
		MaxRetries: cfg.Bundles.WorkerRetries,
	}, logr).WithMetrics(metricsSvc)

	bundleJobSvc.Start(ctx)
	defer bundleJobSvc.Stop()

	// Preload the default category so the API is usable immediately; a
	// missing data directory only logs warnings.
	if summary, err := datasetSvc.Load(cfg.Data.DefaultCategory); err != nil {
		logr.Sugar().Warnw("default dataset load failed", "category", cfg.Data.DefaultCategory, "error", err)
	} else if len(summary.Warnings) > 0 {
		logr.Sugar().Warnw("default dataset loaded with gaps", "category", summary.Category, "warnings", summary.Warnings)
	}

	validate := validator.New()
	datasetHandler := handler.NewDatasetHandler(datasetSvc, metricsSvc, validate)
	seatingHandler := handler.NewSeatingHandler(runSvc, exportSvc, remarkSvc, datasetSvc, metricsSvc, validate)
	bundleHandler := handler.NewBundleHandler(bundleJobSvc, validate)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	{
		datasets := api.Group("/datasets")
		{
			datasets.POST("/load", datasetHandler.Load)
			datasets.GET("/current", datasetHandler.Current)
			datasets.POST("/rooms", datasetHandler.UploadRooms)
			datasets.POST("/students", datasetHandler.UploadRoster)
			datasets.POST("/mapping", datasetHandler.UploadMapping)
			datasets.POST("/template", datasetHandler.UploadTemplate)
			datasets.POST("/qps", datasetHandler.UploadQPs)
		}

		runs := api.Group("/runs")
		{
			runs.POST("", seatingHandler.Generate)
			runs.GET("/:id", seatingHandler.Get)
			runs.GET("/:id/export", seatingHandler.Export)
			runs.POST("/:id/remarks", seatingHandler.Remarks)
		}

		bundles := api.Group("/bundles")
		{
			bundles.POST("", bundleHandler.Create)
			bundles.GET("/:id", bundleHandler.Get)
			bundles.GET("/download/:token", bundleHandler.Download)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")
	if err := srv.Shutdown(context.Background()); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}

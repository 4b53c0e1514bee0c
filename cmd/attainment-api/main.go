package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/obe-attainment-api/api/swagger"
	"github.com/noah-isme/obe-attainment-api/internal/handler"
	"github.com/noah-isme/obe-attainment-api/internal/middleware"
	"github.com/noah-isme/obe-attainment-api/internal/repository"
	"github.com/noah-isme/obe-attainment-api/internal/service"
	"github.com/noah-isme/obe-attainment-api/pkg/cache"
	"github.com/noah-isme/obe-attainment-api/pkg/config"
	"github.com/noah-isme/obe-attainment-api/pkg/database"
	"github.com/noah-isme/obe-attainment-api/pkg/jobs"
	"github.com/noah-isme/obe-attainment-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/obe-attainment-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/obe-attainment-api/pkg/middleware/requestid"
)

// @title OBE Attainment API
// @version 0.1.0
// @description Course outcome attainment calculation service
// @BasePath /api/v1
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	metrics := service.NewMetricsService()

	var cacheRepo *repository.CacheRepository
	var locker service.RunLocker
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled and run lock is process-local", "error", err)
		locker = service.NewMemoryRunLocker()
	} else {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		locker = cacheRepo
		defer cacheRepo.Close() //nolint:errcheck
	}

	cacheEnabled := cfg.Attainment.CacheEnabled && cacheRepo != nil
	var cacheService *service.CacheService
	if cacheRepo != nil {
		cacheService = service.NewCacheService(cacheRepo, metrics, cfg.Attainment.CacheTTL, logr, cacheEnabled)
	}

	courseRepo := repository.NewCourseRepository(db, metrics)
	assessmentRepo := repository.NewAssessmentRepository(db, metrics)
	analysisRepo := repository.NewAnalysisRepository(db, metrics)
	attainmentRepo := repository.NewAttainmentRepository(db, metrics)

	resolver := service.NewSchemaResolver(assessmentRepo, logr)
	analysis := service.NewAnalysisService(analysisRepo, logr)
	attainment := service.NewAttainmentService(attainmentRepo, logr)
	pipeline := service.NewPipelineService(
		courseRepo,
		assessmentRepo,
		resolver,
		analysis,
		attainment,
		cacheService,
		metrics,
		locker,
		cfg.Pipeline.RunLockTTL,
		logr,
	)
	reports := service.NewReportService(courseRepo, assessmentRepo, analysisRepo, attainmentRepo, cacheService, logr)

	queue := jobs.NewRunQueue("attainment", func(ctx context.Context, courseID string) error {
		_, err := pipeline.Run(ctx, courseID)
		return err
	}, jobs.RunQueueConfig{
		Workers:    cfg.Pipeline.QueueWorkers,
		BufferSize: cfg.Pipeline.QueueBuffer,
		MaxRetries: cfg.Pipeline.QueueRetries,
		Logger:     logr,
	})
	queue.Start(context.Background())
	defer queue.Stop()

	attainmentHandler := handler.NewAttainmentHandler(pipeline, reports, queue)
	exportHandler := handler.NewExportHandler(reports)
	metricsHandler := handler.NewMetricsHandler(metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/diagnostics", metricsHandler.Diagnostics)

	protected := api.Group("")
	protected.Use(middleware.JWT(cfg.JWT.Secret))
	protected.POST("/courses/:id/attainment/run", attainmentHandler.Run)
	protected.GET("/courses/:id/attainment", attainmentHandler.CourseAttainment)
	protected.GET("/courses/:id/attainment/final", attainmentHandler.FinalComposition)
	protected.GET("/courses/:id/attainment/export", exportHandler.Export)
	protected.GET("/assessments/:id/analysis", attainmentHandler.AssessmentAnalysis)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

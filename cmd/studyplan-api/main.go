package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/studyplan-api/api/swagger"
	"github.com/noah-isme/studyplan-api/internal/handler"
	"github.com/noah-isme/studyplan-api/internal/repository"
	"github.com/noah-isme/studyplan-api/internal/server"
	"github.com/noah-isme/studyplan-api/internal/service"
	"github.com/noah-isme/studyplan-api/pkg/cache"
	"github.com/noah-isme/studyplan-api/pkg/config"
	"github.com/noah-isme/studyplan-api/pkg/database"
	"github.com/noah-isme/studyplan-api/pkg/logger"
)

// @title Study Plan API
// @version 1.0.0
// @description Course catalog and study plan management
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
	}

	var cacheRepo *repository.CacheRepository
	if cfg.Catalog.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, catalog cache disabled", zap.Error(err))
		} else {
			cacheRepo = repository.NewCacheRepository(client, logr)
			defer cacheRepo.Close() //nolint:errcheck
		}
	}
	readiness := map[string]handler.Pinger{"postgres": handler.PingFunc(db.PingContext)}
	if cacheRepo != nil {
		readiness["redis"] = cacheRepo
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Catalog.CacheTTL, logr, cacheRepo != nil)

	validate := validator.New()
	courseRepo := repository.NewCourseRepository(db)
	planRepo := repository.NewStudyPlanRepository(db)
	studentRepo := repository.NewStudentRepository(db)

	authSvc := service.NewAuthService(studentRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	courseSvc := service.NewCourseService(courseRepo, cacheSvc, logr)
	planSvc := service.NewStudyPlanService(planRepo, courseSvc, cacheSvc, metrics, validate, logr, service.StudyPlanConfig{
		StoreTimeout: cfg.Database.StoreTimeout,
	})
	exportSvc := service.NewExportService(planRepo, logr)

	router := server.NewRouter(cfg, logr, authSvc, metrics, server.Handlers{
		Auth:      handler.NewAuthHandler(authSvc),
		Courses:   handler.NewCourseHandler(courseSvc),
		StudyPlan: handler.NewStudyPlanHandler(planSvc, exportSvc),
		Metrics:   handler.NewMetricsHandler(metrics, readiness),
	})

	if err := server.Run(ctx, cfg, logr, router); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

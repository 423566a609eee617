package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/studyplan-api/internal/handler"
	"github.com/noah-isme/studyplan-api/internal/middleware"
	"github.com/noah-isme/studyplan-api/internal/service"
	"github.com/noah-isme/studyplan-api/pkg/config"
	"github.com/noah-isme/studyplan-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/studyplan-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/studyplan-api/pkg/middleware/requestid"
)

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Auth      *handler.AuthHandler
	Courses   *handler.CourseHandler
	StudyPlan *handler.StudyPlanHandler
	Metrics   *handler.MetricsHandler
}

// NewRouter mounts every route under cfg.APIPrefix.
func NewRouter(cfg *config.Config, logr *zap.Logger, tokens middleware.TokenValidator, metrics *service.MetricsService, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", h.Metrics.Health)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", h.Metrics.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	prefix := "/" + strings.Trim(cfg.APIPrefix, "/")
	api := r.Group(prefix)

	api.GET("/courses", h.Courses.List)
	api.GET("/courses/:id", h.Courses.Get)
	api.POST("/sessions", h.Auth.Login)

	auth := middleware.JWT(tokens)
	sessions := api.Group("/sessions/current", auth)
	sessions.GET("", h.Auth.Current)
	sessions.DELETE("", h.Auth.Logout)

	plan := api.Group("/studyplan", auth)
	plan.GET("", h.StudyPlan.Get)
	plan.POST("", h.StudyPlan.Create)
	plan.DELETE("", h.StudyPlan.Delete)
	plan.GET("/courses", h.StudyPlan.Courses)
	plan.PUT("/courses", h.StudyPlan.Edit)
	plan.POST("/preview", h.StudyPlan.Preview)
	plan.GET("/export", h.StudyPlan.Export)

	return r
}

// Run serves handler on cfg.Port until ctx is cancelled, then drains in-flight requests.
func Run(ctx context.Context, cfg *config.Config, logr *zap.Logger, handler http.Handler) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("start server: %w", err)
		}
		return nil
	case <-ctx.Done():
		logr.Info("shutdown requested")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return nil
}

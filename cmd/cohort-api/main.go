package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/skillbase/cohort-api/api/swagger"
	"github.com/skillbase/cohort-api/internal/handler"
	internalmiddleware "github.com/skillbase/cohort-api/internal/middleware"
	"github.com/skillbase/cohort-api/internal/repository"
	"github.com/skillbase/cohort-api/internal/service"
	"github.com/skillbase/cohort-api/pkg/cache"
	"github.com/skillbase/cohort-api/pkg/config"
	"github.com/skillbase/cohort-api/pkg/database"
	"github.com/skillbase/cohort-api/pkg/logger"
	corsmiddleware "github.com/skillbase/cohort-api/pkg/middleware/cors"
	reqidmiddleware "github.com/skillbase/cohort-api/pkg/middleware/requestid"
)

// @title Skillbase Cohort API
// @version 1.0.0
// @description Cohort-scoped training delivery, compliance tracking, and IQA sampling
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
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.DefaultTTL, logr, true)
	} else {
		cacheSvc = service.NewCacheService(nil, metricsSvc, cfg.Cache.DefaultTTL, logr, false)
	}

	validate := validator.New()

	cohortRepo := repository.NewCohortRepository(db)
	learnerRepo := repository.NewLearnerRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	signoffRepo := repository.NewSignoffRepository(db)
	iqaRepo := repository.NewIqaRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	tokenSvc := service.NewTokenService(cfg.JWT)
	auditSvc := service.NewAuditService(auditRepo, metricsSvc, logr)
	accessSvc := service.NewAccessService(cohortRepo, logr)
	cohortSvc := service.NewCohortService(cohortRepo, accessSvc, auditSvc, validate, logr)
	learnerSvc := service.NewLearnerService(learnerRepo, accessSvc, auditSvc, validate, logr)
	sessionSvc := service.NewSessionService(sessionRepo, accessSvc, auditSvc, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, sessionRepo, learnerRepo, accessSvc, auditSvc, cacheSvc, validate, logr)
	signoffSvc := service.NewSignoffService(signoffRepo, learnerRepo, accessSvc, auditSvc, cacheSvc, validate, logr)
	iqaSvc := service.NewIqaService(iqaRepo, learnerRepo, signoffRepo, accessSvc, auditSvc, validate, logr)
	reportSvc := service.NewReportService(attendanceRepo, signoffRepo, accessSvc, cfg.Exports.MaxRows, logr)

	handlers := handler.Handlers{
		Cohorts:    handler.NewCohortHandler(cohortSvc),
		Learners:   handler.NewLearnerHandler(learnerSvc),
		Sessions:   handler.NewSessionHandler(sessionSvc),
		Attendance: handler.NewAttendanceHandler(attendanceSvc),
		Signoffs:   handler.NewSignoffHandler(signoffSvc),
		Iqa:        handler.NewIqaHandler(iqaSvc),
		Audit:      handler.NewAuditHandler(auditSvc),
		Metrics:    handler.NewMetricsHandler(metricsSvc),
	}
	if cfg.Exports.Enabled {
		handlers.Reports = handler.NewReportHandler(reportSvc)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", handlers.Metrics.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", handlers.Metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	handler.RegisterRoutes(api, tokenSvc, handlers)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

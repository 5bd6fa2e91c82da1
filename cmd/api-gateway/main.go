package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/unisched/scheduler-api/api/swagger"
	"github.com/unisched/scheduler-api/internal/handler"
	internalmiddleware "github.com/unisched/scheduler-api/internal/middleware"
	"github.com/unisched/scheduler-api/internal/repository"
	"github.com/unisched/scheduler-api/internal/service"
	"github.com/unisched/scheduler-api/internal/solver"
	"github.com/unisched/scheduler-api/pkg/cache"
	"github.com/unisched/scheduler-api/pkg/config"
	"github.com/unisched/scheduler-api/pkg/database"
	"github.com/unisched/scheduler-api/pkg/logger"
	corsmiddleware "github.com/unisched/scheduler-api/pkg/middleware/cors"
	reqidmiddleware "github.com/unisched/scheduler-api/pkg/middleware/requestid"
)

// @title Course Scheduler API
// @version 1.0.0
// @description Course scheduling orchestration: solver-backed generation, conflict resolution and manual overrides.
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
			redisClient = nil
		}
	}

	metrics := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Scheduler.CacheTTL, logr, redisClient != nil)

	catalogRepo := repository.NewCatalogRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	placementRepo := repository.NewScheduledCourseRepository(db)
	conflictRepo := repository.NewConflictRepository(db)

	snapshotSvc := service.NewSnapshotService(catalogRepo, logr)
	solverChain := solver.NewChain(logr,
		solver.NewSubprocessSolver(cfg.Solver.Command, cfg.Solver.Args, cfg.Solver.Timeout, logr),
		solver.NewFallbackScheduler(cfg.Scheduler.DurationTolerance, logr),
	)

	validate := validator.New()
	schedulerSvc := service.NewSchedulerService(
		scheduleRepo, placementRepo, conflictRepo,
		snapshotSvc, catalogRepo, solverChain,
		db, cacheSvc, validate, metrics, logr,
	)
	scheduleSvc := service.NewScheduleService(
		scheduleRepo, placementRepo, conflictRepo, catalogRepo,
		cacheSvc, cfg.Scheduler.CacheTTL, db, logr,
	)

	schedulerHandler := handler.NewSchedulerHandler(schedulerSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	metricsHandler := handler.NewMetricsHandler(metrics)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

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
	{
		api.POST("/scheduler/generate", schedulerHandler.Generate)
		api.PUT("/scheduler/conflicts/:id/resolve", schedulerHandler.ResolveConflict)
		api.POST("/scheduler/overrides", schedulerHandler.CreateOverride)

		api.GET("/schedules", scheduleHandler.List)
		api.GET("/schedules/:id", scheduleHandler.Get)
		api.GET("/schedules/:id/conflicts", scheduleHandler.Conflicts)
		api.GET("/schedules/:id/export", scheduleHandler.Export)
		api.PUT("/schedules/:id/finalize", scheduleHandler.Finalize)
		api.DELETE("/schedules/:id", scheduleHandler.Delete)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

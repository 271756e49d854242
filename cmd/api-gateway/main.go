package main

import (
	"context"
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

	_ "github.com/noah-isme/gym-scheduling-api/api/swagger"
	"github.com/noah-isme/gym-scheduling-api/internal/handler"
	"github.com/noah-isme/gym-scheduling-api/internal/middleware"
	"github.com/noah-isme/gym-scheduling-api/internal/repository"
	"github.com/noah-isme/gym-scheduling-api/internal/service"
	"github.com/noah-isme/gym-scheduling-api/pkg/cache"
	"github.com/noah-isme/gym-scheduling-api/pkg/config"
	"github.com/noah-isme/gym-scheduling-api/pkg/database"
	"github.com/noah-isme/gym-scheduling-api/pkg/jobs"
	"github.com/noah-isme/gym-scheduling-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/gym-scheduling-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/gym-scheduling-api/pkg/middleware/requestid"

	"github.com/redis/go-redis/v9"
)

// @title Gym Scheduling API
// @version 0.1.0
// @description Rooms, class types, weekly schedules and materialized sessions
// @BasePath /api/v1
// @schemes http

const shutdownGrace = 10 * time.Second

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, timetable cache disabled", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	validate := validator.New()

	roomRepo := repository.NewRoomRepository(db)
	classTypeRepo := repository.NewClassTypeRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	roomSvc := service.NewRoomService(roomRepo, scheduleRepo, cacheRepo, db, validate, logr)
	classTypeSvc := service.NewClassTypeService(classTypeRepo, scheduleRepo, cacheRepo, db, validate, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, roomRepo, classTypeRepo, cacheRepo, cfg.Cache.TTL, validate, logr)
	sessionSvc := service.NewSessionService(sessionRepo, scheduleRepo, classTypeRepo, metricsSvc, cfg.Scheduling.DefaultTimezone, validate, logr)
	exportSvc := service.NewExportService(sessionRepo, nil, nil, logr)

	var cachePing handler.PingFunc
	if redisClient != nil {
		cachePing = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	healthHandler := handler.NewHealthHandler(db.PingContext, cachePing)
	roomHandler := handler.NewRoomHandler(roomSvc)
	classTypeHandler := handler.NewClassTypeHandler(classTypeSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	sessionHandler := handler.NewSessionHandler(sessionSvc, exportSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Ready)

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		rooms := api.Group("/rooms")
		rooms.GET("", roomHandler.List)
		rooms.POST("", roomHandler.Create)
		rooms.GET("/:id", roomHandler.Get)
		rooms.PUT("/:id", roomHandler.Update)
		rooms.DELETE("/:id", roomHandler.Delete)

		classTypes := api.Group("/class-types")
		classTypes.GET("", classTypeHandler.List)
		classTypes.POST("", classTypeHandler.Create)
		classTypes.GET("/:id", classTypeHandler.Get)
		classTypes.PUT("/:id", classTypeHandler.Update)
		classTypes.DELETE("/:id", classTypeHandler.Delete)

		schedules := api.Group("/schedules")
		schedules.GET("", scheduleHandler.List)
		schedules.POST("", scheduleHandler.Create)
		schedules.GET("/:id", scheduleHandler.Get)
		schedules.PUT("/:id", scheduleHandler.Update)
		schedules.DELETE("/:id", scheduleHandler.Delete)
		schedules.POST("/:id/activate", scheduleHandler.Activate)
		schedules.POST("/:id/deactivate", scheduleHandler.Deactivate)
		schedules.POST("/:id/sessions", sessionHandler.Materialize)
		schedules.GET("/:id/sessions", sessionHandler.ListBySchedule)

		sessions := api.Group("/sessions")
		sessions.GET("", sessionHandler.List)
		sessions.GET("/export", sessionHandler.Export)
		sessions.GET("/:id", sessionHandler.Get)
		sessions.DELETE("/:id", sessionHandler.Delete)
		sessions.POST("/:id/cancel", sessionHandler.Cancel)
	}

	if cfg.Scheduling.JobEnabled {
		var planner *service.MaterializerPlanner
		queue := jobs.NewQueue("materializer", func(ctx context.Context, job jobs.Job) error {
			return planner.HandleJob(ctx, job)
		}, jobs.QueueConfig{
			Workers: cfg.Scheduling.JobWorkers,
			Logger:  logr,
		})
		planner = service.NewMaterializerPlanner(scheduleRepo, sessionSvc, queue, cfg.Scheduling.JobInterval, logr)
		queue.Start(ctx)
		defer queue.Stop()
		go planner.Run(ctx)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)

	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logr.Sugar().Errorw("graceful shutdown failed", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
	logr.Sugar().Infow("server stopped")
}

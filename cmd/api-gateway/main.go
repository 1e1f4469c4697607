package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/dropout-copilot-api/api/swagger"
	"github.com/noah-isme/dropout-copilot-api/internal/handler"
	"github.com/noah-isme/dropout-copilot-api/internal/llm"
	"github.com/noah-isme/dropout-copilot-api/internal/middleware"
	"github.com/noah-isme/dropout-copilot-api/internal/repository"
	"github.com/noah-isme/dropout-copilot-api/internal/service"
	"github.com/noah-isme/dropout-copilot-api/pkg/cache"
	"github.com/noah-isme/dropout-copilot-api/pkg/config"
	"github.com/noah-isme/dropout-copilot-api/pkg/database"
	"github.com/noah-isme/dropout-copilot-api/pkg/export"
	"github.com/noah-isme/dropout-copilot-api/pkg/jobs"
	"github.com/noah-isme/dropout-copilot-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/dropout-copilot-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/dropout-copilot-api/pkg/middleware/requestid"
)

// @title Dropout Copilot API
// @version 1.0.0
// @description Counselling guidance and dropout-risk tracking service
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, roster caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	// Repositories.
	studentRepo := repository.NewStudentRepository(db)
	predictionRepo := repository.NewPredictionRepository(db)
	counsellingRepo := repository.NewCounsellingRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	userRepo := repository.NewUserRepository(db)
	exportRepo := repository.NewExportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// LLM provider. A misconfigured provider disables AI output but never
	// the service: guidance degrades to the rule engine.
	provider, err := llm.New(cfg.LLM, cfg.Counselling.RequestTimeout)
	if err != nil {
		logr.Sugar().Warnw("llm provider disabled", "provider", cfg.LLM.Provider, "error", err)
		provider = nil
	}

	// Services.
	metricsService := service.NewMetricsService()
	guidanceCache := service.NewGuidanceCache(cfg.Counselling.CacheTTL, time.Now)
	contextService := service.NewContextService(studentRepo, logr)
	counsellingService := service.NewCounsellingService(contextService, provider, guidanceCache, counsellingRepo, metricsService, logr)
	studentService := service.NewStudentService(studentRepo, cacheRepo, guidanceCache, validate, logr, cfg.Roster.CacheTTL)
	mlClient := service.NewMLClient(cfg.ML)
	predictionService := service.NewPredictionService(studentRepo, predictionRepo, mlClient, cacheRepo, guidanceCache, validate, logr, cfg.Roster.CacheTTL)
	alertService := service.NewAlertService(alertRepo, studentRepo, logr)
	authService := service.NewAuthService(userRepo, cfg.JWT, validate, logr)
	exportService := service.NewExportService(exportRepo, studentRepo, contextService, export.NewCSVExporter(), export.NewPDFExporter(), validate, logr, cfg.Exports.StorageDir)

	// Export worker queue.
	queueCtx, stopQueue := context.WithCancel(context.Background())
	defer stopQueue()
	exportQueue := jobs.NewQueue("exports", exportService.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		Logger:     logr,
	})
	exportService.SetQueue(exportQueue)
	if cfg.Exports.Enabled {
		exportQueue.Start(queueCtx)
		defer exportQueue.Stop()
	}

	// Handlers.
	counsellingHandler := handler.NewCounsellingHandler(counsellingService)
	studentHandler := handler.NewStudentHandler(studentService)
	predictionHandler := handler.NewPredictionHandler(predictionService)
	alertHandler := handler.NewAlertHandler(alertService)
	authHandler := handler.NewAuthHandler(authService)
	exportHandler := handler.NewExportHandler(exportService)
	metricsHandler := handler.NewMetricsHandler(metricsService)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Ready)
	r.GET("/metrics", metricsHandler.Metrics)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authenticated := api.Group("")
	authenticated.Use(middleware.JWT(authService))
	{
		authenticated.GET("/auth/me", authHandler.Me)

		authenticated.GET("/students", studentHandler.List)
		authenticated.POST("/students", studentHandler.Create)
		authenticated.GET("/students/risk/history", predictionHandler.RiskHistory)
		authenticated.GET("/students/:id", studentHandler.Get)
		authenticated.PUT("/students/:id/academic", studentHandler.UpdateAcademic)
		authenticated.DELETE("/students/:id", studentHandler.Delete)

		authenticated.POST("/predict/:student_id", predictionHandler.Predict)
		authenticated.POST("/prediction/save", predictionHandler.Save)

		authenticated.POST("/counselling/ai", counsellingHandler.Guidance)
		authenticated.POST("/counselling/chat", counsellingHandler.Chat)
		authenticated.POST("/counselling/chat/stream", counsellingHandler.ChatStream)
		authenticated.POST("/counselling", counsellingHandler.Book)
		authenticated.GET("/counselling", counsellingHandler.List)
		authenticated.PATCH("/counselling/:id", counsellingHandler.UpdateStatus)
		authenticated.DELETE("/counselling/:id", counsellingHandler.Delete)

		authenticated.POST("/alerts", alertHandler.Create)
		authenticated.GET("/alerts", alertHandler.List)

		if cfg.Exports.Enabled {
			authenticated.POST("/exports", exportHandler.Create)
			authenticated.GET("/exports", exportHandler.List)
			authenticated.GET("/exports/:id/download", exportHandler.Download)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "provider", cfg.LLM.Provider)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Sugar().Infow("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

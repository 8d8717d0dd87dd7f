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
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/data-siswa-api/api/swagger"
	"github.com/noah-isme/data-siswa-api/internal/handler"
	"github.com/noah-isme/data-siswa-api/internal/middleware"
	"github.com/noah-isme/data-siswa-api/internal/models"
	"github.com/noah-isme/data-siswa-api/internal/repository"
	"github.com/noah-isme/data-siswa-api/internal/service"
	"github.com/noah-isme/data-siswa-api/pkg/ai"
	"github.com/noah-isme/data-siswa-api/pkg/cache"
	"github.com/noah-isme/data-siswa-api/pkg/config"
	"github.com/noah-isme/data-siswa-api/pkg/database"
	"github.com/noah-isme/data-siswa-api/pkg/jobs"
	"github.com/noah-isme/data-siswa-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/data-siswa-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/data-siswa-api/pkg/middleware/requestid"
	"github.com/noah-isme/data-siswa-api/pkg/storage"
)

// @title Data Siswa API
// @version 1.0.0
// @description Student data management with a reviewed change-request workflow
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
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if client, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
	} else {
		redisClient = client
		defer redisClient.Close()
	}

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	requestRepo := repository.NewChangeRequestRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	scoreRepo := repository.NewScoreRepository(db)
	exportJobRepo := repository.NewExportJobRepository(db)

	authSvc := service.NewAuthService(userRepo, cfg.JWT, logr)
	studentSvc := service.NewStudentService(studentRepo, auditRepo, redisClient, cfg.Students.StatsCacheTTL, logr)
	requestSvc := service.NewChangeRequestService(requestRepo, studentRepo, auditRepo, logr)
	scoreSvc := service.NewScoreService(scoreRepo, studentRepo, logr)
	auditSvc := service.NewAuditService(auditRepo, logr)
	metricsSvc := service.NewMetricsService()

	var chatSvc *service.ChatService
	if cfg.Chat.Enabled {
		assistant, err := ai.NewAssistant(ai.AssistantConfig{
			APIKey:      cfg.Chat.APIKey,
			Model:       cfg.Chat.Model,
			MaxTokens:   cfg.Chat.MaxTokens,
			Temperature: float32(cfg.Chat.Temperature),
		}, logr)
		if err != nil {
			logr.Sugar().Warnw("chat assistant disabled", "error", err)
		} else {
			chatSvc = service.NewChatService(assistant, studentRepo, logr)
		}
	}

	var exportSvc *service.ExportService
	var exportQueue *jobs.Queue
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("export storage unavailable", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

		exportQueue = jobs.NewQueue("exports", func(ctx context.Context, job jobs.Job) error {
			return exportSvc.HandleJob(ctx, job)
		}, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		exportSvc = service.NewExportService(exportJobRepo, studentRepo, auditRepo, exportQueue, store, signer, cfg.Students.MaxImportRows, logr)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	requestHandler := handler.NewChangeRequestHandler(requestSvc)
	scoreHandler := handler.NewScoreHandler(scoreSvc)
	auditHandler := handler.NewAuditHandler(auditSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	var chatHandler *handler.ChatHandler
	if chatSvc != nil {
		chatHandler = handler.NewChatHandler(chatSvc)
	}
	var exportHandler *handler.ExportHandler
	if exportSvc != nil {
		exportHandler = handler.NewExportHandler(exportSvc)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group("/api/v1")

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	students := api.Group("/students", middleware.JWT(authSvc))
	students.GET("", middleware.RequireRoles(models.RoleAdmin), studentHandler.List)
	students.POST("", middleware.RequireRoles(models.RoleAdmin), studentHandler.Create)
	students.GET("/stats", middleware.RequireRoles(models.RoleAdmin), studentHandler.Stats)
	students.POST("/dedup", middleware.RequireRoles(models.RoleAdmin), studentHandler.Dedup)
	students.GET("/:id", middleware.RBAC(string(models.RoleAdmin), middleware.RoleSelf), studentHandler.Get)
	students.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), studentHandler.Update)
	students.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), studentHandler.Delete)
	students.POST("/:id/verify", middleware.RBAC(string(models.RoleAdmin), middleware.RoleSelf), studentHandler.Verify)
	students.POST("/:id/reset-verification", middleware.RequireRoles(models.RoleAdmin), studentHandler.ResetVerification)
	students.GET("/:id/scores", middleware.RBAC(string(models.RoleAdmin), middleware.RoleSelf), scoreHandler.List)
	students.PUT("/:id/scores", middleware.RequireRoles(models.RoleAdmin), scoreHandler.Upsert)
	students.DELETE("/:id/scores/:scoreId", middleware.RequireRoles(models.RoleAdmin), scoreHandler.Delete)
	if exportHandler != nil {
		students.POST("/import", middleware.RequireRoles(models.RoleAdmin), exportHandler.Import)
	}

	if cfg.Requests.Enabled {
		requests := api.Group("/requests", middleware.JWT(authSvc))
		requests.POST("", requestHandler.Create)
		requests.GET("", middleware.RequireRoles(models.RoleAdmin), requestHandler.List)
		requests.GET("/status", requestHandler.Status)
		requests.GET("/:id", middleware.RequireRoles(models.RoleAdmin), requestHandler.Get)
		requests.POST("/:id/action", middleware.RequireRoles(models.RoleAdmin), requestHandler.Action)
		requests.POST("/:id/submit", requestHandler.Submit)
	}

	api.GET("/audit-logs", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), auditHandler.List)

	if chatHandler != nil {
		api.POST("/chat", middleware.JWT(authSvc), chatHandler.Chat)
	}

	if exportHandler != nil {
		exports := api.Group("/exports", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
		exports.POST("/students", exportHandler.Request)
		exports.GET("/jobs/:id", exportHandler.Job)
		// Download authenticates through the signed token instead of JWT
		// so links can be opened from a browser.
		api.GET("/export/:token", exportHandler.Download)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if exportQueue != nil {
		exportQueue.Start(ctx)
		defer exportQueue.Stop()
		go runExportCleanup(ctx, exportSvc, cfg.Exports.CleanupInterval, cfg.Exports.SignedURLTTL)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

func runExportCleanup(ctx context.Context, exports *service.ExportService, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			exports.CleanupExpired(ttl)
		}
	}
}


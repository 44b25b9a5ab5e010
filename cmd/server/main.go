// Package main runs the event waitlist platform HTTP server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gatherly/backend/config"
	"github.com/gatherly/backend/internal/auth"
	"github.com/gatherly/backend/internal/events"
	"github.com/gatherly/backend/internal/middleware"
	"github.com/gatherly/backend/internal/models"
	"github.com/gatherly/backend/internal/notifications"
	"github.com/gatherly/backend/internal/notify"
	"github.com/gatherly/backend/internal/waitlist"
	"github.com/gatherly/backend/pkg/database"
	"github.com/gatherly/backend/pkg/queue"
	"github.com/gatherly/backend/pkg/redis"
	"github.com/gatherly/backend/pkg/response"
	"github.com/gatherly/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	// Notification intents go through Redis; without it they are dropped
	// (never block admission on the notifier).
	var notifier notify.Emitter = notify.Nop{}
	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Warn("redis unavailable, notifications disabled", zap.Error(err))
	} else {
		defer rdb.Close()
		notifier = notify.NewQueueEmitter(queue.NewQueue(rdb.Client, logger), logger)
	}

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Client, err = storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ExportsBucket:        cfg.AWS.ExportsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
			s3Client = nil
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	eventRepo := events.NewRepository(pool)
	eventService := events.NewService(eventRepo, logger)
	eventHandler := events.NewHandler(eventService, logger)

	waitlistRepo := waitlist.NewRepository(pool)
	waitlistService := waitlist.NewService(waitlistRepo, notifier, logger)
	waitlistHandler := waitlist.NewHandler(waitlistService, s3Client, logger)

	notificationRepo := notifications.NewRepository(pool)
	notificationHandler := notifications.NewHandler(notificationRepo)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}

	// Public catalogue and admission. OptionalJWT links entries to accounts
	// and lets owners see their own unpublished events.
	public := router.Group("")
	public.Use(middleware.OptionalJWT(jwtService))
	{
		public.GET("/events", eventHandler.List)
		public.GET("/events/:id", eventHandler.Get)
		public.POST("/events/:id/waitlist", waitlistHandler.Join)
	}

	// Owner and moderation API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.POST("/events", eventHandler.Create)
		api.POST("/events/:id/submit", eventHandler.Submit)
		api.POST("/events/:id/withdraw", eventHandler.Withdraw)
		api.GET("/my/events", eventHandler.MyEvents)

		api.GET("/events/:id/waitlist", waitlistHandler.List)
		api.GET("/events/:id/waitlist/export", waitlistHandler.Export)
		api.PATCH("/events/:id/waitlist/:entryId", waitlistHandler.Moderate)
	}

	// Admin API
	admin := router.Group("/admin")
	admin.Use(middleware.JWT(jwtService), middleware.RequireRole(string(models.RoleAdmin)))
	{
		admin.GET("/events", eventHandler.AdminList)
		admin.POST("/events/:id/approve", eventHandler.Approve)
		admin.POST("/events/:id/reject", eventHandler.Reject)
		admin.POST("/events/:id/waitlist/recount", waitlistHandler.Recount)
		admin.GET("/notifications", notificationHandler.List)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}

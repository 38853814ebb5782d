package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/baudigital/bauform-api/api/swagger"
	"github.com/baudigital/bauform-api/internal/handler"
	"github.com/baudigital/bauform-api/internal/middleware"
	"github.com/baudigital/bauform-api/internal/repository"
	"github.com/baudigital/bauform-api/internal/service"
	"github.com/baudigital/bauform-api/pkg/cache"
	"github.com/baudigital/bauform-api/pkg/config"
	"github.com/baudigital/bauform-api/pkg/database"
	"github.com/baudigital/bauform-api/pkg/export"
	"github.com/baudigital/bauform-api/pkg/logger"
	corsmiddleware "github.com/baudigital/bauform-api/pkg/middleware/cors"
	reqidmiddleware "github.com/baudigital/bauform-api/pkg/middleware/requestid"
	"github.com/baudigital/bauform-api/pkg/storage"
)

// @title Bauform API
// @version 1.0.0
// @description Multi-step construction-project form service
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

	// Redis only backs the preview URL cache; a miss on startup degrades to
	// signing every preview request instead of failing the server.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, preview caching disabled", "error", err)
		redisClient = nil
	}

	blobs, err := storage.NewBlobStorage(cfg.Storage)
	if err != nil {
		logr.Sugar().Fatalw("failed to init blob storage", "error", err)
	}

	formRepo := repository.NewFormRepository(db)
	fileRepo := repository.NewFormFileRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	validate := validator.New()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
	})
	formSvc := service.NewFormService(formRepo, fileRepo, blobs, cacheRepo, logr, service.FormServiceConfig{
		ImageBucket:     cfg.Storage.ImageBucket,
		FilesBucket:     cfg.Storage.FilesBucket,
		PreviewURLTTL:   cfg.Storage.PreviewURLTTL,
		DownloadURLTTL:  cfg.Storage.DownloadURLTTL,
		PreviewCacheTTL: cfg.Storage.PreviewCacheTTL,
		MaxFileSize:     cfg.Uploads.MaxFileSizeBytes,
	})
	reportSvc := service.NewReportService(formRepo, export.NewFormPDFRenderer(), logr)
	metricsSvc := service.NewMetricsService()

	authHandler := handler.NewAuthHandler(authSvc)
	formHandler := handler.NewFormHandler(formSvc, metricsSvc)
	reportHandler := handler.NewReportHandler(reportSvc, metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	// The PDF report predates the authenticated API surface and stays public.
	r.GET("/report", reportHandler.Download)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
		}

		forms := api.Group("/forms")
		forms.Use(middleware.JWT(authSvc))
		{
			forms.GET("", formHandler.List)
			forms.GET("/:id", formHandler.Get)
			forms.PUT("/:id", formHandler.Save)
			forms.POST("/:id/submit", formHandler.Submit)
			forms.GET("/:id/files/:slot/download", formHandler.Download)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

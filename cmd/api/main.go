//	@title			Filestore API
//	@version		1.0
//	@description	File-storage gateway: uploads, metadata, and access URLs over pluggable storage backends.
//
//	@host		localhost:8080
//	@BasePath	/api/v1
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token. Format: **Bearer {token}**

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"github.com/filestore/service/internal/cache"
	"github.com/filestore/service/internal/config"
	"github.com/filestore/service/internal/db"
	"github.com/filestore/service/internal/file"
	"github.com/filestore/service/internal/logging"
	appMiddleware "github.com/filestore/service/internal/middleware"
	"github.com/filestore/service/internal/provider"

	_ "github.com/filestore/service/docs/swagger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logging init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal("database migration failed", zap.Error(err))
	}
	logger.Info("database ready")

	providers, err := buildProviders(ctx, cfg)
	if err != nil {
		logger.Fatal("storage provider init failed", zap.Error(err))
	}

	// The cache is optional: without Redis every URL is resolved live.
	var fileCache file.Cache
	if cfg.RedisURL != "" {
		c, err := cache.New(ctx, cfg.RedisURL, "filestore:", cfg.CacheTTL)
		if err != nil {
			logger.Fatal("cache init failed", zap.Error(err))
		}
		defer func() { _ = c.Close() }()
		fileCache = c
		logger.Info("cache enabled", zap.Duration("ttl", cfg.CacheTTL))
	}

	// Wire dependencies: repository → service → handler
	fileRepo := file.NewRepository(pool)
	fileSvc := file.NewService(fileRepo, providers, fileCache, logger)
	fileHandler := file.NewHandler(fileSvc, cfg.MaxUploadFiles, cfg.MaxUploadSize)

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Swagger UI — available at http://localhost:8080/swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/files", func(r chi.Router) {
			r.Use(appMiddleware.RequireAuth(cfg.JWTSecret))
			r.Get("/", fileHandler.List)
			r.Post("/", fileHandler.Upload)
			r.Delete("/", fileHandler.Delete)
			r.Get("/{fileID}", fileHandler.Get)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server listening",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

// buildProviders instantiates one adapter per enabled backend. The enabled
// set was already validated against the closed ID enumeration at config load.
func buildProviders(ctx context.Context, cfg *config.Config) ([]provider.Provider, error) {
	var providers []provider.Provider
	for _, id := range cfg.Providers {
		switch id {
		case provider.Minio:
			p, err := provider.NewMinioProvider(ctx,
				cfg.Minio.Endpoint,
				cfg.Minio.AccessKey,
				cfg.Minio.SecretKey,
				cfg.Minio.Bucket,
				cfg.Minio.PublicBase,
				cfg.Minio.UseSSL,
			)
			if err != nil {
				return nil, err
			}
			providers = append(providers, p)
		case provider.S3:
			p, err := provider.NewS3Provider(ctx,
				cfg.S3.Region,
				cfg.S3.Bucket,
				cfg.S3.PresignExpiry,
			)
			if err != nil {
				return nil, err
			}
			providers = append(providers, p)
		}
	}
	return providers, nil
}

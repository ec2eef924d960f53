package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-library-api/api/swagger"
	"github.com/noah-isme/sma-library-api/internal/handler"
	"github.com/noah-isme/sma-library-api/internal/middleware"
	"github.com/noah-isme/sma-library-api/internal/repository"
	"github.com/noah-isme/sma-library-api/internal/service"
	"github.com/noah-isme/sma-library-api/internal/validation"
	"github.com/noah-isme/sma-library-api/pkg/cache"
	"github.com/noah-isme/sma-library-api/pkg/config"
	"github.com/noah-isme/sma-library-api/pkg/database"
	"github.com/noah-isme/sma-library-api/pkg/logger"
	"github.com/noah-isme/sma-library-api/pkg/storage"
	"github.com/noah-isme/sma-library-api/pkg/tracing"
)

// @title SMA Library API
// @version 1.0
// @description Catalog, student, school and account records for school libraries.
// @BasePath /api/v1
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing, cfg.Env)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logr.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, catalog cache disabled", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return fmt.Errorf("init export storage: %w", err)
	}

	metrics := service.NewMetricsService()
	validator := validation.New()

	bookRepo := repository.NewBookRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	audit := service.NewAuditService(repository.NewAuditRepository(db), metrics, logr, cfg.Audit.Workers, cfg.Audit.BufferSize)
	audit.Start(ctx)
	defer audit.Stop()

	catalogCache := service.NewCacheService(cacheRepo, metrics, cfg.Catalog.CacheTTL, logr, cfg.Catalog.CacheEnabled && redisClient != nil)

	books := service.NewBookService(service.BookServiceParams{
		Repo:        bookRepo,
		Validator:   validator,
		Cache:       catalogCache,
		Audit:       audit,
		Metrics:     metrics,
		Logger:      logr,
		MaxAttempts: cfg.Catalog.BarcodeMaxAttempts,
	})
	students := service.NewStudentService(studentRepo, validator, audit, metrics, logr)
	schools := service.NewSchoolService(schoolRepo, validator, nil, audit, metrics, logr, cfg.Catalog.BarcodeMaxAttempts)
	users := service.NewUserService(userRepo, validator, audit, metrics, logr)
	auth := service.NewAuthService(userRepo, nil, audit, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	exports := service.NewExportService(service.ExportServiceParams{
		Books:    books,
		Students: students,
		Schools:  schools,
		Users:    users,
		Storage:  files,
		Signer:   storage.NewSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL),
		Audit:    audit,
		Metrics:  metrics,
		Logger:   logr,
		Config: service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			MaxRows:   cfg.Exports.MaxRows,
			ResultTTL: cfg.Exports.SignedURLTTL,
		},
	})

	loginLimiter := middleware.NewIPRateLimiter(cfg.RateLimit.LoginPerSecond, cfg.RateLimit.LoginBurst)
	go loginLimiter.Run(ctx)
	go purgeExports(ctx, exports, logr)

	router := handler.NewRouter(handler.RouterOptions{
		Env:            cfg.Env,
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         logr,
		Metrics:        metrics,
		Tokens:         auth,
		LoginLimiter:   loginLimiter,
	}, handler.Handlers{
		Auth:     handler.NewAuthHandler(auth),
		Books:    handler.NewBookHandler(books),
		Students: handler.NewStudentHandler(students),
		Schools:  handler.NewSchoolHandler(schools),
		Users:    handler.NewUserHandler(users),
		Exports:  handler.NewExportHandler(exports),
		Health: handler.NewHealthHandler(metrics, map[string]handler.Pinger{
			"database": handler.PingFunc(db.PingContext),
			"cache":    cacheRepo,
		}),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// purgeExports deletes expired export files every ten minutes.
func purgeExports(ctx context.Context, exports *service.ExportService, logr *zap.Logger) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := exports.PurgeExpired(ctx); err != nil {
				logr.Warn("export purge failed", zap.Error(err))
			}
		}
	}
}

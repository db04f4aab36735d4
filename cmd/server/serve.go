package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"proxy-config-guard/internal/config"
	"proxy-config-guard/internal/handler"
	authMiddleware "proxy-config-guard/internal/middleware"
	"proxy-config-guard/internal/scheduler"
	"proxy-config-guard/internal/watcher"
	"proxy-config-guard/pkg/cache"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the configuration API (default)",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// Redis is optional and only shares request counters between replicas
	var redisCache *cache.RedisClient
	if cfg.RedisURL != "" {
		redisCache, err = cache.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Printf("Warning: Failed to initialize Redis cache: %v", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			log.Println("Redis cache client initialized")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backupScheduler := scheduler.NewBackupScheduler(a.config, cfg.BackupPruneSchedule, cfg.BackupAutoSchedule)
	if err := backupScheduler.Start(); err != nil {
		return err
	}
	defer backupScheduler.Stop()

	if a.auditRepo != nil && cfg.AuditRetentionDays > 0 {
		retention := scheduler.NewAuditRetentionScheduler(a.auditRepo, cfg.AuditRetentionDays)
		retention.Start()
		defer retention.Stop()
	}

	e := newServer(cfg, a, redisCache)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.WatchConfig {
		w, err := watcher.New(cfg.DynamicDir, config.WatcherDebounce, a.config.Refresh)
		if err != nil {
			log.Printf("Warning: config watcher disabled: %v", err)
		} else {
			g.Go(func() error { return w.Run(gctx) })
		}
	}

	g.Go(func() error {
		log.Printf("Starting server on port %s", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newServer(cfg *config.Config, a *app, redisCache *cache.RedisClient) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	allowedOrigins := make([]string, 0, len(cfg.CORSOrigins))
	for _, origin := range cfg.CORSOrigins {
		if origin != "*" { // Reject wildcard for security
			allowedOrigins = append(allowedOrigins, origin)
		}
	}
	if len(allowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:  allowedOrigins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
			ExposeHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		}))
	}

	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         config.HSTSMaxAge,
		ReferrerPolicy:     "no-referrer",
	}))

	if cfg.RequestRPS > 0 {
		e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.RequestRPS))))
	}

	// Pass a nil interface rather than a typed nil pointer when Redis is off
	var pinger interface{ Ping(context.Context) error }
	if redisCache != nil {
		pinger = redisCache
	}
	healthHandler := handler.NewHealthHandler(a.config, a.backups, a.sqlDB(), pinger)
	e.GET("/health", healthHandler.Health)
	e.GET("/metrics", echo.WrapHandler(a.metrics.Handler()))

	auth := authMiddleware.NewAuthenticator(cfg.APITokens, cfg.TrustHeaders)
	v1 := e.Group("/api/v1")
	v1.Use(auth.Middleware())
	v1.Use(authMiddleware.RequireRole())
	v1.Use(authMiddleware.APIRateLimit(redisCache, authMiddleware.DefaultAPIRateLimitConfig(cfg.APIRateLimit)))
	handler.RegisterAPI(v1, a.config, a.backups, a.audit)

	return e
}

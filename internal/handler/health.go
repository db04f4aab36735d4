package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"proxy-config-guard/internal/config"
	"proxy-config-guard/internal/model"
	"proxy-config-guard/internal/service"
)

type HealthResponse struct {
	Status       string              `json:"status"`
	Version      string              `json:"version"`
	Database     string              `json:"database"`
	Cache        string              `json:"cache"`
	Routes       int                 `json:"routes"`
	Middlewares  int                 `json:"middlewares"`
	SkippedFiles []model.SkippedFile `json:"skipped_files,omitempty"`
	Backups      model.BackupStats   `json:"backups"`
	Uptime       string              `json:"uptime"`
	Timestamp    string              `json:"timestamp"`
}

// HealthHandler holds dependencies for health checks. db and redis are optional.
type HealthHandler struct {
	svc     *service.ConfigService
	backups *service.BackupService
	db      *sql.DB
	redis   interface{ Ping(context.Context) error }
	started time.Time
}

func NewHealthHandler(svc *service.ConfigService, backups *service.BackupService, db *sql.DB, redis interface{ Ping(context.Context) error }) *HealthHandler {
	return &HealthHandler{svc: svc, backups: backups, db: db, redis: redis, started: time.Now()}
}

// Health reports this service's own readiness, never the engine's
// GET /health
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	state := h.svc.State()
	resp := HealthResponse{
		Status:       config.StatusHealthy,
		Version:      config.AppVersion,
		Database:     h.checkDatabase(ctx),
		Cache:        h.checkRedis(ctx),
		Routes:       len(state.Routes),
		Middlewares:  len(state.Middlewares),
		SkippedFiles: state.SkippedFiles,
		Backups:      h.backups.Stats(),
		Uptime:       time.Since(h.started).Round(time.Second).String(),
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}

	httpStatus := http.StatusOK
	if resp.Database == config.StatusError {
		resp.Status = config.StatusUnhealthy
		httpStatus = http.StatusServiceUnavailable
	}
	return c.JSON(httpStatus, resp)
}

// checkDatabase verifies database connectivity
func (h *HealthHandler) checkDatabase(ctx context.Context) string {
	if h.db == nil {
		return config.StatusDisabled
	}
	if err := h.db.PingContext(ctx); err != nil {
		return config.StatusError
	}
	return config.StatusOK
}

// checkRedis verifies Redis connectivity. Redis only backs request throttling, so a
// failure degrades nothing else.
func (h *HealthHandler) checkRedis(ctx context.Context) string {
	if h.redis == nil {
		return config.StatusDisabled
	}
	if err := h.redis.Ping(ctx); err != nil {
		return config.StatusConnecting
	}
	return config.StatusOK
}

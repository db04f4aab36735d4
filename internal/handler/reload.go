package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"proxy-config-guard/internal/service"
)

type ReloadHandler struct {
	svc *service.ConfigService
}

func NewReloadHandler(svc *service.ConfigService) *ReloadHandler {
	return &ReloadHandler{svc: svc}
}

// Reload signals the engine and reports whether it came back healthy. Files on disk
// are already committed, so engine trouble is reported in the body, not the status code.
// POST /api/v1/reload
func (h *ReloadHandler) Reload(c echo.Context) error {
	result := h.svc.Reload(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Reload signalled, engine is " + result.EngineStatus,
		"data":    result,
	})
}

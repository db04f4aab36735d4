package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"proxy-config-guard/internal/model"
	"proxy-config-guard/internal/service"
)

// ConfigHandler serves whole-of-config operations
type ConfigHandler struct {
	svc *service.ConfigService
}

func NewConfigHandler(svc *service.ConfigService) *ConfigHandler {
	return &ConfigHandler{svc: svc}
}

// GET /api/v1/config
func (h *ConfigHandler) Get(c echo.Context) error {
	view, err := h.svc.GetConfig()
	if err != nil {
		return respondError(c, "get config", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "data": view})
}

// Replace swaps the dynamic directory for the submitted documents
// PUT /api/v1/config
func (h *ConfigHandler) Replace(c echo.Context) error {
	var doc model.ConfigDocument
	if err := c.Bind(&doc); err != nil {
		return badRequestError(c, ErrMsgBadRequest)
	}
	res, err := h.svc.ReplaceConfig(c.Request().Context(), currentActor(c), doc)
	if err != nil {
		return mutationFailed(c, h.svc, "replace config", err)
	}
	return mutationSucceeded(c, res, "Configuration replaced", nil)
}

// Validate dry-runs a document set. An invalid set is still a 200 with valid=false.
// POST /api/v1/config/validate
func (h *ConfigHandler) Validate(c echo.Context) error {
	var doc model.ConfigDocument
	if err := c.Bind(&doc); err != nil {
		return badRequestError(c, ErrMsgBadRequest)
	}
	report := h.svc.ValidateConfig(doc)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":  true,
		"valid":    report.Valid,
		"errors":   report.Errors,
		"warnings": report.Warnings,
	})
}

// GET /api/v1/config/summary
func (h *ConfigHandler) Summary(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "data": h.svc.Summary()})
}

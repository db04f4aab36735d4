package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"proxy-config-guard/internal/repository"
	"proxy-config-guard/internal/service"
)

type AuditLogHandler struct {
	audit *service.AuditService
}

func NewAuditLogHandler(audit *service.AuditService) *AuditLogHandler {
	return &AuditLogHandler{audit: audit}
}

// ListAuditLogs returns audit records newest first with optional filters
// GET /api/v1/audit-logs
func (h *AuditLogHandler) ListAuditLogs(c echo.Context) error {
	filter := repository.AuditLogFilter{
		Actor:      c.QueryParam("actor"),
		Operation:  c.QueryParam("operation"),
		EntityType: c.QueryParam("entity_type"),
		Limit:      ParseLimitParam(c, DefaultLimit),
		Offset:     ParseOffsetParam(c),
	}

	records, total, err := h.audit.List(c.Request().Context(), filter)
	if err != nil {
		return internalError(c, "list audit logs", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    records,
		"total":   total,
		"limit":   filter.Limit,
		"offset":  filter.Offset,
	})
}

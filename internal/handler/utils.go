package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	authMiddleware "proxy-config-guard/internal/middleware"
	"proxy-config-guard/internal/model"
	"proxy-config-guard/internal/service"
)

// Pagination limits
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// ParseLimitParam reads ?limit, clamped to [1, MaxLimit]
func ParseLimitParam(c echo.Context, fallback int) int {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit < 1 {
		return fallback
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// ParseOffsetParam reads ?offset, defaulting to 0
func ParseOffsetParam(c echo.Context) int {
	offset, err := strconv.Atoi(c.QueryParam("offset"))
	if err != nil || offset < 0 {
		return 0
	}
	return offset
}

// currentActor returns the actor resolved by the auth middleware
func currentActor(c echo.Context) model.Actor {
	actor, _ := authMiddleware.ActorFrom(c)
	return actor
}

// mutationFailed answers a rejected mutation, still publishing the actor's budget
func mutationFailed(c echo.Context, svc *service.ConfigService, operation string, err error) error {
	setQuotaHeaders(c, svc.Quota(currentActor(c)))
	return respondError(c, operation, err)
}

// mutationSucceeded writes the success envelope of a committed mutation
func mutationSucceeded(c echo.Context, res *service.MutationResult, message string, data interface{}) error {
	setQuotaHeaders(c, res.Quota)
	body := map[string]interface{}{
		"success":   true,
		"message":   message,
		"backup_id": res.BackupID,
		"warnings":  nonNil(res.Warnings),
	}
	if data != nil {
		body["data"] = data
	}
	return c.JSON(200, body)
}

func listResponse(c echo.Context, data interface{}, total int) error {
	return c.JSON(200, map[string]interface{}{
		"success": true,
		"data":    data,
		"total":   total,
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

package handler

import (
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"proxy-config-guard/internal/model"
	"proxy-config-guard/internal/ratelimit"
)

// Common error messages for clients (no internal details)
const (
	ErrMsgInternalError    = "An internal error occurred"
	ErrMsgBadRequest       = "Invalid request body"
	ErrMsgValidationFailed = "Validation failed"
	ErrMsgBackupFailed     = "Backup could not be created, no changes were made"
)

// ErrorResponse is the standard error envelope
type ErrorResponse struct {
	Success  bool               `json:"success"`
	Detail   string             `json:"detail"`
	Errors   []model.FieldError `json:"errors,omitempty"`
	Warnings []string           `json:"warnings,omitempty"`
}

// respondError maps typed service errors to status codes. Anything untyped is logged
// with its operation and answered with a generic message.
func respondError(c echo.Context, operation string, err error) error {
	var (
		validationErr *model.ValidationError
		notFoundErr   *model.NotFoundError
		conflictErr   *model.ConflictError
		rateErr       *model.RateLimitError
		backupErr     *model.BackupError
		authnErr      *model.AuthenticationError
		authzErr      *model.AuthorizationError
	)
	switch {
	case errors.As(err, &validationErr):
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Detail:   ErrMsgValidationFailed,
			Errors:   validationErr.Errors,
			Warnings: validationErr.Warnings,
		})
	case errors.As(err, &conflictErr):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Detail: conflictErr.Error()})
	case errors.As(err, &notFoundErr):
		return c.JSON(http.StatusNotFound, ErrorResponse{Detail: notFoundErr.Error()})
	case errors.As(err, &rateErr):
		c.Response().Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(rateErr.RetryAfter.Seconds()))))
		return c.JSON(http.StatusTooManyRequests, ErrorResponse{Detail: rateErr.Error()})
	case errors.As(err, &backupErr):
		log.Printf("[ERROR] %s: %v", operation, err)
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Detail: ErrMsgBackupFailed})
	case errors.As(err, &authnErr):
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Detail: authnErr.Error()})
	case errors.As(err, &authzErr):
		return c.JSON(http.StatusForbidden, ErrorResponse{Detail: authzErr.Error()})
	}
	return internalError(c, operation, err)
}

// internalError logs the actual error and returns a generic message to the client
func internalError(c echo.Context, operation string, err error) error {
	log.Printf("[ERROR] %s: %v", operation, err)
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Detail: ErrMsgInternalError})
}

// badRequestError returns a bad request error with a safe message
func badRequestError(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Detail: message})
}

// setQuotaHeaders publishes the actor's change budget
func setQuotaHeaders(c echo.Context, q ratelimit.Quota) {
	h := c.Response().Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(q.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(q.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(q.ResetAt.Unix(), 10))
}

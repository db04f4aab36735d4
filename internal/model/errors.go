package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned by lookups that find nothing
var ErrNotFound = errors.New("not found")

// FieldError is one violated validation rule
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return e.Field + " " + e.Message
}

// ValidationError carries every violated rule of a payload
type ValidationError struct {
	Errors   []FieldError `json:"errors"`
	Warnings []string     `json:"warnings,omitempty"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NotFoundError reports an unknown entity name
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s '%s' not found", e.Kind, e.Name)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ConflictError reports a name collision on create
type ConflictError struct {
	Kind string
	Name string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s '%s' already exists", e.Kind, e.Name)
}

// RateLimitError rejects a mutation that exceeded the per-actor window
type RateLimitError struct {
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit of %d changes exceeded, retry after %s", e.Limit, e.RetryAfter.Round(time.Second))
}

// BackupError aborts a mutation because no snapshot could be taken
type BackupError struct {
	Err error
}

func (e *BackupError) Error() string {
	return "backup failed: " + e.Err.Error()
}

func (e *BackupError) Unwrap() error {
	return e.Err
}

// AuthenticationError is returned when no verified actor is present
type AuthenticationError struct{}

func (e *AuthenticationError) Error() string { return "authentication required" }

// AuthorizationError is returned when the actor's role is insufficient
type AuthorizationError struct {
	Role     string
	Required string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("role %q cannot perform an operation requiring %q", e.Role, e.Required)
}

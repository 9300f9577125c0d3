// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apperr defines the centralized error handling framework for the API.

It provides a rich error type that bridges the gap between low-level Domain/Storage
errors and high-level HTTP responses.

Architecture:

  - Kind: The taxonomy bucket (Validation, NotFound, AccountLocked, ...) used by services and tests.
  - Status: The machine-readable envelope status sent to clients (e.g. "BAD_REQUEST").
  - Mapping: Explicit mapping from AppError to standard HTTP Status Codes.

Every error that leaves the service layer should be wrapped as an [AppError] to ensure
consistent API responses.
*/
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// # Taxonomy

// Kind classifies an [AppError] independently of how it is rendered on the wire.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindNotFound           Kind = "not_found"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindAccountLocked      Kind = "account_locked"
	KindDuplicate          Kind = "duplicate"
	KindAuthorization      Kind = "authorization"
	KindForbidden          Kind = "forbidden"
	KindInvalidToken       Kind = "invalid_token"
	KindUpstreamTimeout    Kind = "upstream_timeout"
	KindRateLimited        Kind = "rate_limited"
	KindInternal           Kind = "internal"
)

// # Envelope Statuses

const (
	StatusSuccess         = "SUCCESS"
	StatusFailure         = "FAILURE"
	StatusBadRequest      = "BAD_REQUEST"
	StatusValidation      = "VALIDATION_ERROR"
	StatusRecordNotFound  = "RECORD_NOT_FOUND"
	StatusUnauthorized    = "UNAUTHORIZED"
	StatusForbidden       = "FORBIDDEN"
	StatusConflict        = "CONFLICT"
	StatusTooManyRequests = "TOO_MANY_REQUESTS"
	StatusUpstreamTimeout = "UPSTREAM_TIMEOUT"
	StatusInternal        = "INTERNAL_SERVER_ERROR"
)

// AppError is the canonical error type for the API.
//
// It carries an HTTP status code, a machine-readable status, a client-safe
// message, and an optional slice of field-level validation errors.
//
// # Security
//
// The Cause field is for server-side logging only and is never sent to clients
// to avoid leaking internal implementation details (e.g., SQL queries).
type AppError struct {
	// Kind is the taxonomy bucket of the failure.
	Kind Kind `json:"-"`
	// Status is the envelope status (e.g. "RECORD_NOT_FOUND", "BAD_REQUEST").
	Status string `json:"status"`
	// Message is a human-readable description safe to return to the client.
	Message string `json:"message"`
	// HTTPStatus is the HTTP response status code.
	HTTPStatus int `json:"-"`
	// Retryable tells the caller the same request may succeed later.
	Retryable bool `json:"-"`
	// RetryAfter is set for lockouts and rate limits.
	RetryAfter time.Duration `json:"-"`
	// Cause is the underlying error, used for server-side logging only.
	Cause error `json:"-"`
	// Details holds per-field validation errors.
	Details []FieldError `json:"details,omitempty"`
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	// Field is the JSON field name that failed validation.
	Field string `json:"field"`
	// Message is the human-readable description of the failure.
	Message string `json:"message"`
}

// Error implements the error interface. It returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// AsBadRequest returns a copy of the error rendered as a generic 400 BAD_REQUEST
// while keeping its Kind. Login uses it so unknown users and wrong passwords
// share one transport shape.
func (e *AppError) AsBadRequest() *AppError {
	clone := *e
	clone.HTTPStatus = http.StatusBadRequest
	clone.Status = StatusBadRequest
	return &clone
}

// # Client Errors (4xx)

// NotFound creates a 404 [AppError] for a named resource.
//
// Example:
//
//	apperr.NotFound("Exam") // Returns "Exam not found"
func NotFound(resource string) *AppError {
	return &AppError{
		Kind:       KindNotFound,
		Status:     StatusRecordNotFound,
		Message:    resource + " not found",
		HTTPStatus: http.StatusNotFound,
	}
}

// RecordNotFound creates a 404 [AppError] with a free-form message.
func RecordNotFound(msg string) *AppError {
	return &AppError{
		Kind:       KindNotFound,
		Status:     StatusRecordNotFound,
		Message:    msg,
		HTTPStatus: http.StatusNotFound,
	}
}

// InvalidCredentials creates a 400 [AppError] for a failed secret comparison.
func InvalidCredentials(msg string) *AppError {
	return &AppError{
		Kind:       KindInvalidCredentials,
		Status:     StatusBadRequest,
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
	}
}

// AccountLocked creates a 400 [AppError] describing how long the lockout lasts.
func AccountLocked(retryAfter time.Duration) *AppError {
	minutes := int(retryAfter.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return &AppError{
		Kind:       KindAccountLocked,
		Status:     StatusBadRequest,
		Message:    fmt.Sprintf("You have exceeded the number of login attempts, please try again after %d minutes.", minutes),
		HTTPStatus: http.StatusBadRequest,
		Retryable:  true,
		RetryAfter: retryAfter,
		Details: []FieldError{
			{Field: "retryAfter", Message: retryAfter.Round(time.Second).String()},
		},
	}
}

// Duplicate creates a 409 [AppError] for unique-constraint violations.
// It is rendered as a validation failure.
func Duplicate(msg string, details ...FieldError) *AppError {
	return &AppError{
		Kind:       KindDuplicate,
		Status:     StatusValidation,
		Message:    msg,
		HTTPStatus: http.StatusConflict,
		Details:    details,
	}
}

// Unauthorized creates a 401 [AppError] (AuthorizationError).
func Unauthorized(msg string) *AppError {
	return &AppError{
		Kind:       KindAuthorization,
		Status:     StatusUnauthorized,
		Message:    msg,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// InvalidToken creates a 401 [AppError] for bearer or federated tokens that
// fail verification.
func InvalidToken(msg string) *AppError {
	return &AppError{
		Kind:       KindInvalidToken,
		Status:     StatusUnauthorized,
		Message:    msg,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Forbidden creates a 403 [AppError].
func Forbidden(msg string) *AppError {
	return &AppError{
		Kind:       KindForbidden,
		Status:     StatusForbidden,
		Message:    msg,
		HTTPStatus: http.StatusForbidden,
	}
}

// ValidationError creates a 400 [AppError] with optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	return &AppError{
		Kind:       KindValidation,
		Status:     StatusValidation,
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// BadRequest creates a 400 [AppError] for missing or malformed parameters.
func BadRequest(msg string, details ...FieldError) *AppError {
	return &AppError{
		Kind:       KindValidation,
		Status:     StatusBadRequest,
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// RateLimited creates a 429 [AppError].
func RateLimited(retryAfterSeconds int) *AppError {
	return &AppError{
		Kind:       KindRateLimited,
		Status:     StatusTooManyRequests,
		Message:    fmt.Sprintf("Too many requests. Try again in %ds.", retryAfterSeconds),
		HTTPStatus: http.StatusTooManyRequests,
		Retryable:  true,
		RetryAfter: time.Duration(retryAfterSeconds) * time.Second,
	}
}

// # Server Errors (5xx)

// UpstreamTimeout creates a 502 [AppError] for a dependency (mail relay,
// identity provider) that did not answer within the request budget.
func UpstreamTimeout(upstream string, cause error) *AppError {
	return &AppError{
		Kind:       KindUpstreamTimeout,
		Status:     StatusUpstreamTimeout,
		Message:    upstream + " did not respond in time",
		HTTPStatus: http.StatusBadGateway,
		Retryable:  true,
		Cause:      cause,
	}
}

// Internal creates a 500 [AppError] wrapping an unexpected server-side error.
// The cause is stored for logging but is never sent to the client.
func Internal(cause error) *AppError {
	return &AppError{
		Kind:       KindInternal,
		Status:     StatusInternal,
		Message:    "An unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// # Helpers

// IsAppError reports whether err (or any error in its chain) is an [*AppError].
func IsAppError(err error) bool {
	var ae *AppError
	return errors.As(err, &ae)
}

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// IsKind reports whether err carries an [*AppError] of the given kind.
func IsKind(err error, kind Kind) bool {
	ae := As(err)
	return ae != nil && ae.Kind == kind
}

// IsNotFound is a shortcut for IsKind(err, KindNotFound).
func IsNotFound(err error) bool {
	return IsKind(err, KindNotFound)
}

// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package respond writes the JSON envelopes returned by every handler.
//
// Success, soft failure and error bodies share the `{status, message, data}`
// shape, so clients only need to branch on `status`.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/taibuivan/toeic/internal/platform/apperr"
	"github.com/taibuivan/toeic/internal/platform/ctxutil"
	"github.com/taibuivan/toeic/pkg/pagination"
)

// # Envelopes

// Envelope carries successful and soft-failure payloads.
type Envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// PaginatedEnvelope carries a page of a list with its paginator block.
type PaginatedEnvelope struct {
	Status string          `json:"status"`
	Data   any             `json:"data"`
	Meta   pagination.Meta `json:"paginator"`
}

// ErrorEnvelope carries an [apperr.AppError] without its cause.
type ErrorEnvelope struct {
	Status  string              `json:"status"`
	Message string              `json:"message"`
	Details []apperr.FieldError `json:"details,omitempty"`
}

// # Writers

// JSON encodes payload with statusCode. Encoding failures are dropped since
// the header is already on the wire.
func JSON(writer http.ResponseWriter, statusCode int, payload any) {
	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(statusCode)
	_ = json.NewEncoder(writer).Encode(payload)
}

func OK(writer http.ResponseWriter, data any) {
	JSON(writer, http.StatusOK, Envelope{Status: apperr.StatusSuccess, Data: data})
}

func Message(writer http.ResponseWriter, message string) {
	JSON(writer, http.StatusOK, Envelope{Status: apperr.StatusSuccess, Message: message})
}

// Failure answers 200 with status FAILURE. Used for outcomes the client
// shows inline, like an expired OTP.
func Failure(writer http.ResponseWriter, message string) {
	JSON(writer, http.StatusOK, Envelope{Status: apperr.StatusFailure, Message: message})
}

func Paginated(writer http.ResponseWriter, data any, meta pagination.Meta) {
	JSON(writer, http.StatusOK, PaginatedEnvelope{Status: apperr.StatusSuccess, Data: data, Meta: meta})
}

/*
Error maps err onto its HTTP status and error envelope.

Errors that are not an [apperr.AppError] become INTERNAL_ERROR. Every 5xx is
logged with its cause through the request logger, and a RetryAfter hint is
sent as a Retry-After header in whole seconds.
*/
func Error(writer http.ResponseWriter, request *http.Request, err error) {
	context := request.Context()
	logger := ctxutil.GetLogger(context)

	var appError *apperr.AppError
	if !errors.As(err, &appError) {
		appError = apperr.Internal(err)
	}

	if appError.HTTPStatus >= http.StatusInternalServerError {
		logger.LogAttrs(context, slog.LevelError, "api_server_error",
			slog.String("status", appError.Status),
			slog.String("request_id", ctxutil.GetRequestID(context)),
			slog.Bool("retryable", appError.Retryable),
			slog.Any("cause", appError.Cause),
		)
	}

	if appError.RetryAfter > 0 {
		seconds := int(math.Ceil(appError.RetryAfter.Seconds()))
		writer.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	JSON(writer, appError.HTTPStatus, ErrorEnvelope{
		Status:  appError.Status,
		Message: appError.Message,
		Details: appError.Details,
	})
}

// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/toeic/internal/platform/apperr"
)

/*
TestAppError_Mapping checks that every kind lands on the documented HTTP status and envelope status.
*/
func TestAppError_Mapping(t *testing.T) {
	tests := []struct {
		name       string
		err        *apperr.AppError
		kind       apperr.Kind
		httpStatus int
		status     string
	}{
		{"not_found", apperr.NotFound("User"), apperr.KindNotFound, http.StatusNotFound, apperr.StatusRecordNotFound},
		{"invalid_credentials", apperr.InvalidCredentials("Incorrect password"), apperr.KindInvalidCredentials, http.StatusBadRequest, apperr.StatusBadRequest},
		{"locked", apperr.AccountLocked(20 * time.Minute), apperr.KindAccountLocked, http.StatusBadRequest, apperr.StatusBadRequest},
		{"duplicate", apperr.Duplicate("Email already exists"), apperr.KindDuplicate, http.StatusConflict, apperr.StatusValidation},
		{"unauthorized", apperr.Unauthorized("nope"), apperr.KindAuthorization, http.StatusUnauthorized, apperr.StatusUnauthorized},
		{"invalid_token", apperr.InvalidToken("bad token"), apperr.KindInvalidToken, http.StatusUnauthorized, apperr.StatusUnauthorized},
		{"forbidden", apperr.Forbidden("no"), apperr.KindForbidden, http.StatusForbidden, apperr.StatusForbidden},
		{"validation", apperr.ValidationError("bad"), apperr.KindValidation, http.StatusBadRequest, apperr.StatusValidation},
		{"bad_request", apperr.BadRequest("missing"), apperr.KindValidation, http.StatusBadRequest, apperr.StatusBadRequest},
		{"upstream", apperr.UpstreamTimeout("smtp", nil), apperr.KindUpstreamTimeout, http.StatusBadGateway, apperr.StatusUpstreamTimeout},
		{"internal", apperr.Internal(errors.New("boom")), apperr.KindInternal, http.StatusInternalServerError, apperr.StatusInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.err.Kind)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
			assert.Equal(t, tt.status, tt.err.Status)
		})
	}
}

/*
TestAppError_AsBadRequest verifies the clone keeps its kind and leaves the original untouched.
*/
func TestAppError_AsBadRequest(t *testing.T) {
	original := apperr.NotFound("User")
	masked := original.AsBadRequest()

	assert.Equal(t, http.StatusBadRequest, masked.HTTPStatus)
	assert.Equal(t, apperr.StatusBadRequest, masked.Status)
	assert.Equal(t, apperr.KindNotFound, masked.Kind)
	assert.Equal(t, http.StatusNotFound, original.HTTPStatus)
}

/*
TestAppError_IsKind verifies kind detection through wrapped chains.
*/
func TestAppError_IsKind(t *testing.T) {
	wrapped := fmt.Errorf("auth_service_login_failed: %w", apperr.AccountLocked(time.Minute))

	require.True(t, apperr.IsKind(wrapped, apperr.KindAccountLocked))
	assert.False(t, apperr.IsKind(wrapped, apperr.KindNotFound))
	assert.False(t, apperr.IsKind(errors.New("plain"), apperr.KindInternal))
	assert.True(t, apperr.AccountLocked(time.Minute).Retryable)
}

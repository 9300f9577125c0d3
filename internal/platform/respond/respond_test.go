// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package respond_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/toeic/internal/platform/apperr"
	"github.com/taibuivan/toeic/internal/platform/respond"
)

func decode(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

func TestEnvelopes(t *testing.T) {
	recorder := httptest.NewRecorder()
	respond.OK(recorder, map[string]string{"id": "u-1"})
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/json; charset=utf-8", recorder.Header().Get("Content-Type"))
	body := decode(t, recorder)
	assert.Equal(t, apperr.StatusSuccess, body["status"])
	assert.NotContains(t, body, "message")

	recorder = httptest.NewRecorder()
	respond.Failure(recorder, "OTP expired")
	body = decode(t, recorder)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, apperr.StatusFailure, body["status"])
	assert.Equal(t, "OTP expired", body["message"])
}

func TestError(t *testing.T) {
	t.Run("app error keeps status and details", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodPost, "/", nil)
		err := apperr.ValidationError("Validation failed", apperr.FieldError{Field: "email", Message: "This field is required"})

		respond.Error(recorder, request, err)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		body := decode(t, recorder)
		assert.Equal(t, apperr.StatusValidation, body["status"])
		assert.Len(t, body["details"], 1)
	})

	t.Run("plain error hides its cause", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodGet, "/", nil)

		respond.Error(recorder, request, errors.New("pq: relation does not exist"))

		assert.Equal(t, http.StatusInternalServerError, recorder.Code)
		assert.NotContains(t, recorder.Body.String(), "relation")
		assert.Equal(t, apperr.StatusInternal, decode(t, recorder)["status"])
	})

	t.Run("rate limit sets Retry-After", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodGet, "/", nil)

		respond.Error(recorder, request, apperr.RateLimited(7))

		assert.Equal(t, http.StatusTooManyRequests, recorder.Code)
		assert.Equal(t, "7", recorder.Header().Get("Retry-After"))
	})
}

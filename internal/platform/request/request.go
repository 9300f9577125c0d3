// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package requestutil reads the parts of an [http.Request] that handlers need:
the JSON body, chi path parameters, the bearer credential and the
authenticated claims placed in the context by the auth middleware.
*/
package requestutil

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/toeic/internal/platform/apperr"
	"github.com/taibuivan/toeic/internal/platform/ctxutil"
	"github.com/taibuivan/toeic/internal/platform/sec"
	"github.com/taibuivan/toeic/internal/platform/validate"
)

// maxBodyBytes caps every decoded request body.
const maxBodyBytes = 1 << 20

// # Body

/*
DecodeJSON decodes the request body into target.

Parameters:
  - request: *http.Request
  - target: any (pointer to the destination value)

Returns:
  - error: validate.ErrInvalidJSON for malformed input, BadRequest when the body is too large
*/
func DecodeJSON(request *http.Request, target any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(nil, request.Body, maxBodyBytes))

	if err := decoder.Decode(target); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.BadRequest("Request body is too large")
		}
		return validate.ErrInvalidJSON
	}
	return nil
}

// # Path

// ID returns the trimmed {name} path segment, typically a document or user id.
func ID(request *http.Request, name string) string {
	return strings.TrimSpace(chi.URLParam(request, name))
}

// Param returns the raw {name} path segment.
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

// # Identity

// Claims returns the authenticated claims, or nil on public routes.
func Claims(request *http.Request) *sec.AuthClaims {
	return ctxutil.GetAuthUser(request.Context())
}

// RequiredUserID returns the caller's user id or an UNAUTHORIZED error.
func RequiredUserID(request *http.Request) (string, error) {
	claims := Claims(request)
	if claims == nil || claims.UserID == "" {
		return "", apperr.Unauthorized("Authentication required")
	}
	return claims.UserID, nil
}

/*
BearerToken extracts the credential of an "Authorization: Bearer <token>" header.

The scheme is matched case-insensitively. It reports false when the header
is absent, uses another scheme or carries an empty credential.
*/
func BearerToken(request *http.Request) (string, bool) {
	scheme, credential, found := strings.Cut(strings.TrimSpace(request.Header.Get("Authorization")), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}

	credential = strings.TrimSpace(credential)
	return credential, credential != ""
}

// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxutil stores and reads the per-request values the middleware
// chain attaches: request id, logger, platform, claims and bearer token.
//
// Every getter returns the zero value (or [slog.Default]) when the value is
// absent, so callers never need the comma-ok form.
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/taibuivan/toeic/internal/platform/ctxkey"
	"github.com/taibuivan/toeic/internal/platform/sec"
)

func value[T any](ctx context.Context, key ctxkey.Key) T {
	typed, _ := ctx.Value(key).(T)
	return typed
}

// # Request Tracing

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyRequestID, id)
}

func GetRequestID(ctx context.Context) string {
	return value[string](ctx, ctxkey.KeyRequestID)
}

// # Logging

func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.KeyLogger, logger)
}

// GetLogger returns the request logger, falling back to [slog.Default].
func GetLogger(ctx context.Context) *slog.Logger {
	if logger := value[*slog.Logger](ctx, ctxkey.KeyLogger); logger != nil {
		return logger
	}
	return slog.Default()
}

// # Identity

func WithAuthUser(ctx context.Context, claims *sec.AuthClaims) context.Context {
	return context.WithValue(ctx, ctxkey.KeyUser, claims)
}

// GetAuthUser returns the verified claims, or nil on anonymous requests.
func GetAuthUser(ctx context.Context) *sec.AuthClaims {
	return value[*sec.AuthClaims](ctx, ctxkey.KeyUser)
}

// WithBearerToken keeps the raw token behind the claims for handlers that
// act on the token itself (logout, change-password).
func WithBearerToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyBearerToken, token)
}

func GetBearerToken(ctx context.Context) string {
	return value[string](ctx, ctxkey.KeyBearerToken)
}

// # Platform Scope

func WithPlatform(ctx context.Context, platform sec.Platform) context.Context {
	return context.WithValue(ctx, ctxkey.KeyPlatform, platform)
}

// GetPlatform returns the platform of the mounted route group, or "".
func GetPlatform(ctx context.Context) sec.Platform {
	return value[sec.Platform](ctx, ctxkey.KeyPlatform)
}

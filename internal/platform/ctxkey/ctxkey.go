// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxkey declares the context keys shared by middleware, ctxutil and
// respond. Handlers go through package ctxutil instead.
package ctxkey

// Key is the type of every context key set by this module.
type Key uint8

const (
	// KeyRequestID holds the X-Request-ID correlation value (string).
	KeyRequestID Key = iota + 1

	// KeyUser holds the verified *sec.AuthClaims.
	KeyUser

	// KeyLogger holds the request-scoped *slog.Logger.
	KeyLogger

	// KeyPlatform holds the sec.Platform of the mounted route group.
	KeyPlatform

	// KeyBearerToken holds the raw bearer token that produced KeyUser.
	KeyBearerToken
)

// String names the key in debug output.
func (key Key) String() string {
	switch key {
	case KeyRequestID:
		return "request_id"
	case KeyUser:
		return "user"
	case KeyLogger:
		return "logger"
	case KeyPlatform:
		return "platform"
	case KeyBearerToken:
		return "bearer_token"
	default:
		return "unknown"
	}
}

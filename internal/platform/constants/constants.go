// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants holds the fixed values of the TOEIC API that are not
worth an environment variable: server timing, rate limits, route prefixes,
header names and Redis key prefixes.

Tunables that differ per deployment belong in package config.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "toeic-api"
	AppVersion = "0.1.0-dev"

	// AuthIssuer is the "iss" claim of every access token.
	AuthIssuer = "toeic.app"
)

// # Server Timing

const (
	DefaultReadTimeout       = 5 * time.Second
	DefaultReadHeaderTimeout = 2 * time.Second
	DefaultWriteTimeout      = 15 * time.Second
	DefaultIdleTimeout       = 2 * time.Minute

	// GlobalRequestTimeout bounds each request and each database statement.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is the drain window for in-flight requests.
	ShutdownTimeout = 30 * time.Second
)

// # Rate Limiting (per client IP)

const (
	DefaultRateLimitRPS   = 100.0
	DefaultRateLimitBurst = 150

	// RateLimitClientTTL is the idle time after which a bucket is dropped;
	// RateLimitCleanupInterval is how often idle buckets are swept.
	RateLimitClientTTL       = 3 * time.Minute
	RateLimitCleanupInterval = time.Minute
)

// # Platform Route Prefixes

// Each platform serves the same handler set under its own prefix; tokens
// minted on one prefix are rejected on the others.
const (
	PrefixAdmin  = "/admin"
	PrefixClient = "/client/api/v1"
	PrefixDevice = "/device/api/v1"
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
)

// # Probe Fields

const (
	FieldStatus  = "status"
	FieldApp     = "app"
	FieldVersion = "version"
	FieldChecks  = "checks"
)

// # Redis Key Prefixes

const (
	// RedisPrefixIssuedToken + sha256(token) marks a live token.
	RedisPrefixIssuedToken = "auth:token:"

	// RedisPrefixUserTokens + userID is the set of a user's live token digests.
	RedisPrefixUserTokens = "auth:user_tokens:"
)

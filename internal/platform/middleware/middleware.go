// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package middleware provides the HTTP decorators shared by the admin, client
and device surfaces.

The global chain (see api.NewServer) is:

	RequestID -> StructuredLogger -> metrics -> Timeout -> RateLimit -> PanicRecovery -> CORS

Platform binding, bearer authentication and the permission gate live in
authz.go and permission.go and are applied per platform group.
*/
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/taibuivan/toeic/internal/platform/apperr"
	"github.com/taibuivan/toeic/internal/platform/constants"
	"github.com/taibuivan/toeic/internal/platform/ctxutil"
	"github.com/taibuivan/toeic/internal/platform/respond"
	"github.com/taibuivan/toeic/pkg/uuid"
)

// # Request Tracing

// RequestID propagates the caller's X-Request-ID or mints a UUIDv7 one.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			requestID := strings.TrimSpace(request.Header.Get(constants.HeaderXRequestID))
			if requestID == "" || len(requestID) > 128 {
				requestID = uuid.New()
			}

			writer.Header().Set(constants.HeaderXRequestID, requestID)
			next.ServeHTTP(writer, request.WithContext(ctxutil.WithRequestID(request.Context(), requestID)))
		})
	}
}

// # Activity Logging

type loggedResponse struct {
	http.ResponseWriter
	status int
}

func (response *loggedResponse) WriteHeader(code int) {
	response.status = code
	response.ResponseWriter.WriteHeader(code)
}

/*
StructuredLogger emits one "http_request_finished" record per request and
stores a request-scoped logger in the context for handlers and services.

Description: 5xx responses log at ERROR and 4xx at WARN. The authenticated
user and platform are appended when the auth middleware ran.
*/
func StructuredLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			startedAt := time.Now()

			requestLogger := logger.With(
				slog.String("request_id", ctxutil.GetRequestID(request.Context())),
				slog.String("method", request.Method),
				slog.String("path", request.URL.Path),
				slog.String("ip", RealIP(request)),
			)

			// Downstream middleware replaces the request, so the claims are
			// read from a holder shared through the context.
			holder := &authHolder{}
			ctx := withAuthHolder(ctxutil.WithLogger(request.Context(), requestLogger), holder)
			response := &loggedResponse{ResponseWriter: writer, status: http.StatusOK}

			next.ServeHTTP(response, request.WithContext(ctx))

			level := slog.LevelInfo
			switch {
			case response.status >= http.StatusInternalServerError:
				level = slog.LevelError
			case response.status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}

			attrs := []slog.Attr{
				slog.Int("status", response.status),
				slog.Int64("latency_ms", time.Since(startedAt).Milliseconds()),
				slog.String("user_agent", request.UserAgent()),
			}
			if claims := holder.get(); claims != nil {
				attrs = append(attrs,
					slog.String("user_id", claims.UserID),
					slog.String("platform", string(claims.Platform)),
				)
			}

			requestLogger.LogAttrs(ctx, level, "http_request_finished", attrs...)
		})
	}
}

// # Rate Limiting

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitors is a per-IP token bucket table.
type visitors struct {
	mu      sync.Mutex
	entries map[string]*visitor
	limit   rate.Limit
	burst   int
}

func (table *visitors) allow(ip string, now time.Time) (bool, time.Duration) {
	table.mu.Lock()
	defer table.mu.Unlock()

	entry, found := table.entries[ip]
	if !found {
		entry = &visitor{limiter: rate.NewLimiter(table.limit, table.burst)}
		table.entries[ip] = entry
	}
	entry.lastSeen = now

	reservation := entry.limiter.ReserveN(now, 1)
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (table *visitors) evictIdle(now time.Time) {
	table.mu.Lock()
	defer table.mu.Unlock()

	for ip, entry := range table.entries {
		if now.Sub(entry.lastSeen) > constants.RateLimitClientTTL {
			delete(table.entries, ip)
		}
	}
}

/*
RateLimit throttles each client IP with a token bucket.

Parameters:
  - context: stops the idle-entry sweeper when cancelled

Returns:
  - func(http.Handler) http.Handler: answers 429 TOO_MANY_REQUESTS with a retry hint
*/
func RateLimit(context context.Context) func(http.Handler) http.Handler {
	table := &visitors{
		entries: make(map[string]*visitor),
		limit:   rate.Limit(constants.DefaultRateLimitRPS),
		burst:   constants.DefaultRateLimitBurst,
	}

	go func() {
		ticker := time.NewTicker(constants.RateLimitCleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case now := <-ticker.C:
				table.evictIdle(now)
			case <-context.Done():
				return
			}
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if allowed, delay := table.allow(RealIP(request), time.Now()); !allowed {
				respond.Error(writer, request, apperr.RateLimited(max(1, int(delay.Round(time.Second).Seconds()))))
				return
			}
			next.ServeHTTP(writer, request)
		})
	}
}

// # Reliability & Safety

// PanicRecovery turns a handler panic into a 500 envelope and logs the stack.
// [http.ErrAbortHandler] is re-raised so net/http can abort the connection.
func PanicRecovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				if err, ok := recovered.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(recovered)
				}

				requestLogger := ctxutil.GetLogger(request.Context())
				if requestLogger == slog.Default() && logger != nil {
					requestLogger = logger
				}
				requestLogger.ErrorContext(request.Context(), "panic_recovered",
					slog.Any("error", recovered),
					slog.String("stack", string(debug.Stack())),
				)

				respond.Error(writer, request, apperr.Internal(fmt.Errorf("panic: %v", recovered)))
			}()

			next.ServeHTTP(writer, request)
		})
	}
}

// # Cross-Origin Resource Sharing

// AppConfig is the part of the configuration CORS depends on.
type AppConfig interface {
	IsDevelopment() bool
	IsAllowedOrigin(origin string) bool
}

var corsHeaders = map[string]string{
	"Access-Control-Allow-Methods":     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	"Access-Control-Allow-Headers":     "Accept, Content-Type, Content-Length, Authorization, X-Request-ID",
	"Access-Control-Expose-Headers":    "Content-Length, X-Request-ID, Retry-After",
	"Access-Control-Allow-Credentials": "true",
	"Access-Control-Max-Age":           "300",
}

// CORS reflects allowed origins. Every origin is allowed in development.
// Preflight requests are answered with 204 whether or not the origin matched.
func CORS(cfg AppConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			origin := request.Header.Get(constants.HeaderOrigin)
			if origin == "" {
				next.ServeHTTP(writer, request)
				return
			}

			header := writer.Header()
			header.Add("Vary", constants.HeaderOrigin)
			if cfg.IsDevelopment() || cfg.IsAllowedOrigin(origin) {
				header.Set("Access-Control-Allow-Origin", origin)
				for name, value := range corsHeaders {
					header.Set(name, value)
				}
			}

			if request.Method == http.MethodOptions {
				writer.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(writer, request)
		})
	}
}

// # Helpers

// RealIP returns the client address, preferring X-Real-IP and then the first
// X-Forwarded-For hop over the socket peer.
func RealIP(request *http.Request) string {
	if ip := strings.TrimSpace(request.Header.Get(constants.HeaderXRealIP)); ip != "" {
		return ip
	}

	if forwarded := request.Header.Get(constants.HeaderXForwardedFor); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return request.RemoteAddr
	}
	return host
}

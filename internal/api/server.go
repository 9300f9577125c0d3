// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - The same handler set is mounted once per platform (admin, client, device),
    each mount bound to its platform so tokens never cross surfaces.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/toeic/internal/content"
	"github.com/taibuivan/toeic/internal/platform/config"
	"github.com/taibuivan/toeic/internal/platform/constants"
	"github.com/taibuivan/toeic/internal/platform/metrics"
	"github.com/taibuivan/toeic/internal/platform/middleware"
	"github.com/taibuivan/toeic/internal/platform/sec"
	"github.com/taibuivan/toeic/internal/users/account"
	"github.com/taibuivan/toeic/internal/users/auth"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all domain-specific HTTP handler sets.
type Handlers struct {
	// Liveness is the /health handler. It returns 200 while the process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler. It returns 200 when all deps are healthy.
	Readiness http.HandlerFunc

	// Platforms holds the platform-bound handlers, keyed by platform.
	Platforms map[sec.Platform]PlatformHandlers

	// Account serves /user on every platform.
	Account *account.Handler
}

// PlatformHandlers are the handlers constructed for one platform.
type PlatformHandlers struct {
	Auth    *auth.Handler
	Content *content.Handler
}

// platformMounts lists each platform with its API prefix and the short
// /<platform>/auth alias used by the web and mobile apps.
var platformMounts = []struct {
	platform  sec.Platform
	prefix    string
	authAlias string
}{
	{sec.PlatformAdmin, constants.PrefixAdmin, "/admin/auth"},
	{sec.PlatformClient, constants.PrefixClient, "/client/auth"},
	{sec.PlatformDevice, constants.PrefixDevice, "/device/auth"},
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
func NewServer(context context.Context, cfg *config.Config, log *slog.Logger, verifier middleware.TokenVerifier, m *metrics.Metrics, h Handlers) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(m.Middleware)
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(middleware.RateLimit(context))
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.CORS(cfg))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	// Unauthenticated probes for container orchestration and scraping.
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)
	r.Handle("/metrics", m.Handler())

	// # Application API
	for _, mount := range platformMounts {
		handlers, ok := h.Platforms[mount.platform]
		if !ok {
			continue
		}

		// Auth carries its own platform binding and sits outside the bearer
		// middleware: the device login presents a provider token, not ours.
		r.Mount(mount.authAlias, handlers.Auth.Routes())

		r.Route(mount.prefix, func(api chi.Router) {
			if mount.prefix+"/auth" != mount.authAlias {
				api.Mount("/auth", handlers.Auth.Routes())
			}

			api.Group(func(protected chi.Router) {
				protected.Use(middleware.Platform(mount.platform))
				protected.Use(middleware.Authenticate(verifier))
				protected.Use(middleware.RequireAuth)
				protected.Use(middleware.Gate(middleware.UserCollectionPolicy))

				protected.Mount("/user", h.Account.Routes())
				handlers.Content.Register(protected)
			})
		})
	}

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// Handler exposes the composed router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}

// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the TOEIC HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool) and Redis.
//  4. Run database migrations (idempotent).
//  5. Build the notifier and the federated identity verifiers.
//  6. Wire services and one handler set per platform.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taibuivan/toeic/internal/api"
	"github.com/taibuivan/toeic/internal/content"
	"github.com/taibuivan/toeic/internal/platform/config"
	"github.com/taibuivan/toeic/internal/platform/constants"
	"github.com/taibuivan/toeic/internal/platform/metrics"
	"github.com/taibuivan/toeic/internal/platform/migration"
	"github.com/taibuivan/toeic/internal/platform/notify"
	pgstore "github.com/taibuivan/toeic/internal/platform/postgres"
	redisstore "github.com/taibuivan/toeic/internal/platform/redis"
	"github.com/taibuivan/toeic/internal/platform/sec"
	"github.com/taibuivan/toeic/internal/users/account"
	"github.com/taibuivan/toeic/internal/users/auth"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("service_initializing", slog.String("version", constants.AppVersion))

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("notify_driver", cfg.Notify.Driver),
	)

	// rootCtx lives for the whole process and stops on SIGINT/SIGTERM.
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Startup gets a 30s deadline so misconfiguration fails fast.
	startupCtx, startupCancel := context.WithTimeout(rootCtx, 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL & Redis ─────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 4. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 5. Security, Notification & Identity Providers ────────────────────
	tokenService, err := sec.NewTokenService(cfg.JWTPrivKeyPath, cfg.JWTPubKeyPath, constants.AuthIssuer)
	must(log, err, "initialize jwt service")

	notifier, closeNotifier, err := newNotifier(cfg, log)
	must(log, err, "initialize notifier")
	defer closeNotifier()

	appMetrics := metrics.New()

	// ── 6. Domain Wiring ──────────────────────────────────────────────────
	authService := auth.NewService(
		auth.NewUserRepository(pool),
		auth.NewSessionRepository(pool),
		auth.NewIssuedTokenRepository(rdb),
		tokenService,
		auth.Config{
			AccessTokenTTL:     cfg.AccessTokenTTL,
			RefreshTokenTTL:    cfg.RefreshTokenTTL,
			MaxLoginRetryLimit: cfg.MaxLoginRetryLimit,
			LoginReactiveTime:  cfg.LoginReactiveTime,
			OTPTTL:             cfg.OTPTTL,
			ClientURL:          cfg.ClientURL,
			NotifyDriver:       cfg.Notify.Driver,
			NotifyTimeout:      cfg.Notify.Timeout,
			SSOTimeout:         cfg.SSO.Timeout,
		},
		auth.WithNotifier(notifier),
		auth.WithVerifier(auth.NewGoogleVerifier(rootCtx, cfg.SSO.GoogleClientID)),
		auth.WithVerifier(auth.NewFacebookVerifier(cfg.SSO.FacebookGraphURL)),
		auth.WithVerifier(auth.NewDeviceVerifier(rootCtx, cfg.SSO.FirebaseProjectID)),
		auth.WithMetrics(appMetrics),
		auth.WithLogger(log),
	)

	contentService := content.NewService(content.NewRepository(pool), content.WithLogger(log))
	accountService := account.NewService(account.NewRepository(pool), authService, contentService, account.WithLogger(log))

	platforms := make(map[sec.Platform]api.PlatformHandlers)
	for _, platform := range []sec.Platform{sec.PlatformAdmin, sec.PlatformClient, sec.PlatformDevice} {
		platforms[platform] = api.PlatformHandlers{
			Auth:    auth.NewHandler(authService, platform),
			Content: content.NewHandler(contentService, platform),
		}
	}

	// ── 7. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func(ctx context.Context) error { return pgstore.Ping(ctx, pool) },
		CheckCache:    func(ctx context.Context) error { return redisstore.Ping(ctx, rdb) },
	}, log)

	// ── 8. HTTP Server ────────────────────────────────────────────────────
	server := api.NewServer(rootCtx, cfg, log, authService, appMetrics, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Platforms: platforms,
		Account:   account.NewHandler(accountService),
	})

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case <-rootCtx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	log.Info("shutting down server", slog.Duration("timeout", constants.ShutdownTimeout))

	if err := server.Shutdown(constants.ShutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// newLogger builds the process-wide JSON logger tagged with the app name.
func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("app", constants.AppName))
}

// newNotifier selects the outbound transport named by NOTIFY_DRIVER.
//
// The returned close function releases the transport and is always safe to call.
func newNotifier(cfg *config.Config, log *slog.Logger) (notify.Sender, func(), error) {
	noop := func() {}

	switch cfg.Notify.Driver {
	case "smtp":
		sender, err := notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
		return sender, noop, err

	case "nats":
		conn, err := notify.ConnectNATS(cfg.NATS.URL, log)
		if err != nil {
			return nil, noop, err
		}
		return notify.NewNATSSender(conn, cfg.NATS.Subject), func() {
			log.Info("draining nats connection")
			if derr := conn.Drain(); derr != nil {
				log.Error("nats drain error", slog.Any("error", derr))
			}
		}, nil

	default:
		return notify.NewLogSender(log), noop, nil
	}
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned
// and handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}

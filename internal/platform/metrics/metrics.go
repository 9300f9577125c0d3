// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package metrics exposes Prometheus instrumentation for the API.

It owns a private [prometheus.Registry] so tests can build isolated instances,
and publishes it through the /metrics handler.

Metric families:

  - HTTP: request totals and latency keyed by chi route pattern.
  - Auth: login outcomes, lockouts, OTP issuance.
  - Notify: delivery failures by transport.

Every recording method is nil-safe so services can run without metrics.
*/
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login outcome labels.
const (
	OutcomeSuccess     = "success"
	OutcomeNotFound    = "not_found"
	OutcomeBadPassword = "bad_password"
	OutcomeLocked      = "locked"
	OutcomeForbidden   = "forbidden"
	OutcomeInvalid     = "invalid_token"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Auth metrics
	LoginAttemptsTotal *prometheus.CounterVec
	LockoutsTotal      *prometheus.CounterVec
	OTPIssuedTotal     prometheus.Counter
	TokensRevokedTotal prometheus.Counter

	// Notification metrics
	NotifyFailuresTotal *prometheus.CounterVec
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toeic_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "toeic_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		LoginAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toeic_auth_login_attempts_total",
				Help: "Login attempts by platform, method and outcome",
			},
			[]string{"platform", "method", "outcome"},
		),
		LockoutsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toeic_auth_lockouts_total",
				Help: "Accounts locked after exhausting login retries",
			},
			[]string{"platform"},
		),
		OTPIssuedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "toeic_auth_otp_issued_total",
				Help: "Password reset codes issued",
			},
		),
		TokensRevokedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "toeic_auth_tokens_revoked_total",
				Help: "Issued access tokens revoked by logout or reset",
			},
		),

		NotifyFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toeic_notify_failures_total",
				Help: "Notification deliveries that failed",
			},
			[]string{"driver"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.LoginAttemptsTotal,
		m.LockoutsTotal,
		m.OTPIssuedTotal,
		m.TokensRevokedTotal,
		m.NotifyFailuresTotal,
	)

	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// # Recorders

// LoginAttempt counts one login attempt.
func (m *Metrics) LoginAttempt(platform, method, outcome string) {
	if m == nil {
		return
	}
	m.LoginAttemptsTotal.WithLabelValues(platform, method, outcome).Inc()
}

// Lockout counts an account entering its lockout window.
func (m *Metrics) Lockout(platform string) {
	if m == nil {
		return
	}
	m.LockoutsTotal.WithLabelValues(platform).Inc()
}

// OTPIssued counts a password reset code.
func (m *Metrics) OTPIssued() {
	if m == nil {
		return
	}
	m.OTPIssuedTotal.Inc()
}

// TokensRevoked counts revoked access tokens.
func (m *Metrics) TokensRevoked(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.TokensRevokedTotal.Add(float64(count))
}

// NotifyFailure counts a failed delivery on driver.
func (m *Metrics) NotifyFailure(driver string) {
	if m == nil {
		return
	}
	m.NotifyFailuresTotal.WithLabelValues(driver).Inc()
}

// # HTTP Instrumentation

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (recorder *statusRecorder) WriteHeader(code int) {
	recorder.status = code
	recorder.ResponseWriter.WriteHeader(code)
}

// Middleware instruments HTTP requests. Routes are labelled by chi pattern
// (e.g. "/admin/{kind}/{id}") to keep label cardinality bounded.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: writer, status: http.StatusOK}

		next.ServeHTTP(recorder, request)

		route := "unmatched"
		if routeContext := chi.RouteContext(request.Context()); routeContext != nil {
			if pattern := routeContext.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		m.HTTPRequestsTotal.WithLabelValues(request.Method, route, strconv.Itoa(recorder.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(request.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/toeic/internal/platform/metrics"
)

/*
TestMetrics_Recorders verifies counters and nil safety.
*/
func TestMetrics_Recorders(t *testing.T) {
	m := metrics.New()

	m.LoginAttempt("client", "password", metrics.OutcomeSuccess)
	m.LoginAttempt("client", "password", metrics.OutcomeSuccess)
	m.Lockout("admin")
	m.OTPIssued()
	m.TokensRevoked(3)
	m.NotifyFailure("smtp")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.LoginAttemptsTotal.WithLabelValues("client", "password", metrics.OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LockoutsTotal.WithLabelValues("admin")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OTPIssuedTotal))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.TokensRevokedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotifyFailuresTotal.WithLabelValues("smtp")))

	var none *metrics.Metrics
	assert.NotPanics(t, func() {
		none.LoginAttempt("client", "password", metrics.OutcomeLocked)
		none.OTPIssued()
	})
}

/*
TestMetrics_Middleware labels requests by route pattern and exposes them.
*/
func TestMetrics_Middleware(t *testing.T) {
	m := metrics.New()

	router := chi.NewRouter()
	router.Use(m.Middleware)
	router.Get("/exam/{id}", func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusTeapot)
	})
	router.Handle("/metrics", m.Handler())

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/exam/42", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/exam/{id}", "418")))

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, strings.Contains(recorder.Body.String(), "toeic_http_requests_total"))
}

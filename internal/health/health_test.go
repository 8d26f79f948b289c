package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okCheck(context.Context) error { return nil }

func failCheck(msg string) func(context.Context) error {
	return func(context.Context) error { return errors.New(msg) }
}

func serveHealth(t *testing.T, handler *Handler) (int, Response) {
	t.Helper()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var response Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return w.Code, response
}

func TestHealthHandler(t *testing.T) {
	handler := NewHandler("v1.0.0")
	handler.RegisterChecker("storage", NewCriticalChecker("storage", okCheck))
	handler.RegisterChecker("kafka", NewOptionalChecker("kafka", okCheck))

	code, response := serveHealth(t, handler)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusHealthy, response.Status)
	assert.Equal(t, "v1.0.0", response.Version)
	assert.Len(t, response.Checks, 2)
}

func TestHealthHandler_Unhealthy(t *testing.T) {
	handler := NewHandler("v1.0.0")
	handler.RegisterChecker("storage", NewCriticalChecker("storage", failCheck("connection refused")))
	handler.RegisterChecker("kafka", NewOptionalChecker("kafka", failCheck("no brokers")))

	code, response := serveHealth(t, handler)

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, StatusUnhealthy, response.Status)
	assert.Equal(t, "connection refused", response.Checks["storage"].Message)
}

func TestHealthHandler_Degraded(t *testing.T) {
	handler := NewHandler("dev")
	handler.RegisterChecker("storage", NewCriticalChecker("storage", okCheck))
	handler.RegisterChecker("outbox", NewOptionalChecker("outbox", failCheck("backlog too old")))

	code, response := serveHealth(t, handler)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusDegraded, response.Status)
	assert.Equal(t, StatusDegraded, response.Checks["outbox"].Status)
}

func TestHealthHandler_CheckTimeout(t *testing.T) {
	handler := NewHandler("dev")
	handler.checkTimeout = 20 * time.Millisecond
	handler.RegisterChecker("storage", NewCriticalChecker("storage", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	code, response := serveHealth(t, handler)

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, response.Checks["storage"].Message, "deadline exceeded")
}

func TestLivenessHandler(t *testing.T) {
	w := httptest.NewRecorder()
	LivenessHandler(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name     string
		checker  Checker
		wantCode int
		wantBody string
	}{
		{name: "ready", checker: NewCriticalChecker("storage", okCheck), wantCode: http.StatusOK, wantBody: "ready"},
		{name: "degraded is still ready", checker: NewOptionalChecker("kafka", failCheck("down")), wantCode: http.StatusOK, wantBody: "ready"},
		{name: "not ready", checker: NewCriticalChecker("storage", failCheck("down")), wantCode: http.StatusServiceUnavailable, wantBody: "not ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHandler("v1.0.0")
			handler.RegisterChecker("component", tt.checker)

			w := httptest.NewRecorder()
			handler.ReadinessHandler(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestFuncChecker_Duration(t *testing.T) {
	checker := NewCriticalChecker("storage", func(context.Context) error {
		time.Sleep(10 * time.Millisecond)
		return nil
	})

	check := checker.Check(context.Background())

	assert.Equal(t, StatusHealthy, check.Status)
	assert.GreaterOrEqual(t, check.DurationMs, int64(10))
}

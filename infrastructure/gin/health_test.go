package gin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth_StatusFromChecks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ok := PingCheck(func(context.Context) error { return nil }, true)
	down := func(critical bool) HealthChecker {
		return PingCheck(func(context.Context) error { return errors.New("refused") }, critical)
	}

	tests := []struct {
		name       string
		checks     map[string]HealthChecker
		wantStatus string
		wantCode   int
	}{
		{"no checks", nil, statusHealthy, http.StatusOK},
		{"all healthy", map[string]HealthChecker{"db": ok}, statusHealthy, http.StatusOK},
		{"optional down", map[string]HealthChecker{"db": ok, "redis": down(false)}, statusDegraded, http.StatusOK},
		{"critical down", map[string]HealthChecker{"db": down(true), "redis": down(false)}, statusUnhealthy, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			RegisterHealthRoutes(r, HealthOptions{ServiceName: "svc", ServiceVersion: "1.0", Checks: tt.checks})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

			require.Equal(t, tt.wantCode, w.Code)
			var resp HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, "svc", resp.Service)
		})
	}
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "5s", formatUptime(5*time.Second))
	assert.Equal(t, "2m 3s", formatUptime(2*time.Minute+3*time.Second))
	assert.Equal(t, "1h 0m 1s", formatUptime(time.Hour+time.Second))
	assert.Equal(t, "2d 3h 0m 0s", formatUptime(51*time.Hour))
}

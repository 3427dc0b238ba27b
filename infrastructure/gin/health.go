package gin

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"

	healthCheckTimeout = 5 * time.Second
)

// CheckResult is the outcome of one dependency check.
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// HealthChecker checks one dependency.
type HealthChecker func(ctx context.Context) CheckResult

// HealthResponse is the /health body.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Timestamp string                 `json:"timestamp"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// HealthOptions configures RegisterHealthRoutes.
type HealthOptions struct {
	ServiceName    string
	ServiceVersion string
	Checks         map[string]HealthChecker
}

// RegisterHealthRoutes mounts the /health endpoints.
func RegisterHealthRoutes(router *gin.Engine, opts HealthOptions) {
	started := time.Now()

	handler := func(c *gin.Context) {
		resp := HealthResponse{
			Status:    statusHealthy,
			Service:   opts.ServiceName,
			Version:   opts.ServiceVersion,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Uptime:    formatUptime(time.Since(started)),
		}
		if len(opts.Checks) > 0 {
			resp.Checks = runChecks(c.Request.Context(), opts.Checks)
			resp.Status = overallStatus(resp.Checks)
		}

		code := http.StatusOK
		if resp.Status == statusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, resp)
	}

	router.GET("/health", handler)
	router.HEAD("/health", handler)
	router.GET("/health/ready", handler)
	router.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "alive"})
	})
	router.GET("/health/memory", memoryHandler)
}

const bytesPerMB = 1024 * 1024

func memoryHandler(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	c.JSON(http.StatusOK, gin.H{
		"heap_alloc_mb":  float64(m.HeapAlloc) / bytesPerMB,
		"heap_inuse_mb":  float64(m.HeapInuse) / bytesPerMB,
		"sys_mb":         float64(m.Sys) / bytesPerMB,
		"num_gc":         m.NumGC,
		"num_goroutines": runtime.NumGoroutine(),
	})
}

func runChecks(ctx context.Context, checks map[string]HealthChecker) map[string]CheckResult {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]CheckResult, len(checks))
	for _, name := range names {
		results[name] = checks[name](ctx)
	}
	return results
}

func overallStatus(results map[string]CheckResult) string {
	status := statusHealthy
	for _, r := range results {
		switch r.Status {
		case statusUnhealthy:
			return statusUnhealthy
		case statusDegraded:
			status = statusDegraded
		}
	}
	return status
}

// PingCheck adapts a ping func. Failures of non-critical dependencies
// report degraded rather than unhealthy.
func PingCheck(ping func(ctx context.Context) error, critical bool) HealthChecker {
	return func(ctx context.Context) CheckResult {
		start := time.Now()
		if err := ping(ctx); err != nil {
			status := statusDegraded
			if critical {
				status = statusUnhealthy
			}
			return CheckResult{Status: status, Message: err.Error()}
		}
		return CheckResult{Status: statusHealthy, Latency: time.Since(start).String()}
	}
}

func formatUptime(d time.Duration) string {
	d = d.Round(time.Second)
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	seconds := (d - minutes*time.Minute) / time.Second

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

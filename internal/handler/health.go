package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/voyas/api/internal/metrics"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check represents the status of a dependency check.
type Check struct {
	Status  string `json:"status"`            // "pass" or "fail"
	Latency string `json:"latency,omitempty"` // e.g., "2ms"
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string           `json:"status"`
	Timestamp string           `json:"timestamp"`
	Uptime    float64          `json:"uptime"`
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
}

// Health reports process liveness. Status is always "ok"; the database check
// is informational and does not change the response code.
func Health(db Pinger, startedAt time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		checks := make(map[string]Check)
		if db == nil {
			checks["database"] = Check{Status: "fail", Message: "not configured"}
		} else {
			start := time.Now()
			if err := db.Ping(ctx); err != nil {
				checks["database"] = Check{Status: "fail", Message: "connection failed"}
			} else {
				latency := time.Since(start)
				metrics.PostgresPingLatency.Observe(latency.Seconds())
				checks["database"] = Check{Status: "pass", Latency: latency.String()}
			}
		}

		now := time.Now().UTC()
		writeJSON(w, http.StatusOK, HealthResponse{
			Status:    "ok",
			Timestamp: now.Format(time.RFC3339Nano),
			Uptime:    now.Sub(startedAt).Seconds(),
			Version:   version,
			Checks:    checks,
		})
	}
}

// RootResponse represents the root endpoint response.
type RootResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Root handles the API root.
func Root(name, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, RootResponse{Name: name, Version: version})
	}
}

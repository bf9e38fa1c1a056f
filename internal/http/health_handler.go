package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"pico-monitor/internal/health"
)

// HealthResponse is the /health body
type HealthResponse struct {
	health.Status
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
}

// HealthChecker provides the node health snapshot
type HealthChecker interface {
	Status() health.Status
}

// HealthHandler provides HTTP health check endpoint
type HealthHandler struct {
	checker HealthChecker
	version string
}

// NewHealthHandler creates a new health check handler
func NewHealthHandler(checker HealthChecker, version string) *HealthHandler {
	return &HealthHandler{checker: checker, version: version}
}

// ServeHTTP answers 200 while healthy or degraded and 503 when offline
func (hh *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    hh.checker.Status(),
		Timestamp: time.Now(),
		Version:   hh.version,
	}

	w.Header().Set("Content-Type", "application/json")
	statusCode := http.StatusOK
	if resp.Status.Status == health.StatusOffline {
		statusCode = http.StatusServiceUnavailable
	}
	w.WriteHeader(statusCode)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(resp); err != nil {
		http.Error(w, fmt.Sprintf("Failed to encode health status: %v", err), http.StatusInternalServerError)
	}
}

package healthprobe

import (
	"net/http"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
)

// HealthChecker backs the exchange's /health and /ready endpoints. Liveness
// reflects only that the process is up; readiness flips on once the market
// stack is wired and the HTTP surface may take traffic, and off again at the
// start of shutdown so load balancers drain before the listener closes.
type HealthChecker struct {
	startTime time.Time
	ready     atomic.Bool
}

// New creates a checker that reports not-ready until SetReady(true).
func New() *HealthChecker {
	return &HealthChecker{
		startTime: time.Now(),
	}
}

// SetReady flips the readiness state.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// Response is the body of both probe endpoints.
type Response struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime,omitempty"`
	Message string `json:"message,omitempty"`
}

// Health returns the liveness handler. It answers 200 for as long as the
// process runs, regardless of readiness.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.write(w, http.StatusOK, Response{
			Status: "healthy",
			Uptime: time.Since(h.startTime).String(),
		})
	}
}

// Ready returns the readiness handler: 200 once the stack is serving, 503
// while starting up or draining.
func (h *HealthChecker) Ready() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.ready.Load() {
			h.write(w, http.StatusServiceUnavailable, Response{
				Status:  "not_ready",
				Message: "exchange core is not serving",
			})
			return
		}
		h.write(w, http.StatusOK, Response{
			Status: "ready",
			Uptime: time.Since(h.startTime).String(),
		})
	}
}

func (h *HealthChecker) write(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

package healthprobe

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
)

// HealthChecker provides health and readiness checks. Readiness also fails
// when the last successful scan is older than the stale window.
type HealthChecker struct {
	startTime  time.Time
	staleAfter time.Duration
	ready      atomic.Bool

	mu          sync.RWMutex
	lastScan    time.Time
	lastErr     string
	scans       int64
	failedScans int64
}

// New creates a new HealthChecker. A zero staleAfter disables the staleness
// check.
func New(staleAfter time.Duration) *HealthChecker {
	return &HealthChecker{
		startTime:  time.Now(),
		staleAfter: staleAfter,
	}
}

// SetReady marks the application as ready to serve traffic.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// RecordScan records the outcome of a scan cycle.
func (h *HealthChecker) RecordScan(at time.Time, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err != nil {
		h.failedScans++
		h.lastErr = err.Error()
		return
	}

	h.scans++
	h.lastScan = at
	h.lastErr = ""
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status      string     `json:"status"`
	Uptime      string     `json:"uptime"`
	Message     string     `json:"message,omitempty"`
	LastScan    *time.Time `json:"last_scan,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	Scans       int64      `json:"scans"`
	FailedScans int64      `json:"failed_scans"`
}

func (h *HealthChecker) snapshot(status string) HealthResponse {
	h.mu.RLock()
	defer h.mu.RUnlock()

	resp := HealthResponse{
		Status:      status,
		Uptime:      time.Since(h.startTime).String(),
		LastError:   h.lastErr,
		Scans:       h.scans,
		FailedScans: h.failedScans,
	}
	if !h.lastScan.IsZero() {
		last := h.lastScan
		resp.LastScan = &last
	}
	return resp
}

func (h *HealthChecker) stale(now time.Time) bool {
	if h.staleAfter <= 0 {
		return false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.lastScan.IsZero() {
		return now.Sub(h.startTime) > h.staleAfter
	}
	return now.Sub(h.lastScan) > h.staleAfter
}

// Health returns an HTTP handler for liveness checks.
// Always returns 200 OK if the application is running.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, h.snapshot("healthy"))
	}
}

// Ready returns an HTTP handler for readiness checks.
// Returns 200 OK if ready, 503 Service Unavailable if not.
func (h *HealthChecker) Ready() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.ready.Load() {
			resp := h.snapshot("not_ready")
			resp.Message = "application is starting"
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}

		if h.stale(time.Now()) {
			resp := h.snapshot("stale")
			resp.Message = "no successful scan within " + h.staleAfter.String()
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}

		writeJSON(w, http.StatusOK, h.snapshot("ready"))
	}
}

func writeJSON(w http.ResponseWriter, status int, resp HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

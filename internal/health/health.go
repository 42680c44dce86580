package health

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

const (
	StatusUp       = "UP"
	StatusReady    = "READY"
	StatusNotReady = "NOT_READY"

	LivePath  = "/health/live"
	ReadyPath = "/health/ready"
)

type Response struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
	Targets   int64     `json:"targets,omitempty"`
}

// Health backs the liveness and readiness endpoints. Readiness flips once
// every target loop is running.
type Health struct {
	started time.Time
	ready   atomic.Bool
	targets atomic.Int64
	now     func() time.Time
}

func New() *Health {
	return &Health{started: time.Now(), now: time.Now}
}

func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

func (h *Health) Ready() bool {
	return h.ready.Load()
}

// SetTargets records how many target loops are running.
func (h *Health) SetTargets(n int) {
	h.targets.Store(int64(n))
}

func (h *Health) Register(mux *http.ServeMux) {
	mux.HandleFunc(LivePath, h.LivenessHandler)
	mux.HandleFunc(ReadyPath, h.ReadinessHandler)
}

func (h *Health) LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSONResponse(w, http.StatusOK, h.response(StatusUp))
}

func (h *Health) ReadinessHandler(w http.ResponseWriter, _ *http.Request) {
	if h.Ready() {
		writeJSONResponse(w, http.StatusOK, h.response(StatusReady))
		return
	}
	writeJSONResponse(w, http.StatusServiceUnavailable, h.response(StatusNotReady))
}

func (h *Health) response(status string) Response {
	now := h.now()
	return Response{
		Status:    status,
		Timestamp: now,
		Uptime:    now.Sub(h.started).Truncate(time.Second).String(),
		Targets:   h.targets.Load(),
	}
}

func writeJSONResponse(w http.ResponseWriter, status int, response Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

// Package health serves the liveness and readiness probes. Every replica
// serves these regardless of leadership, so followers stay in the
// deployment while only the leader runs the auction.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/pitchside/auctiond/internal/clock"
)

// Report is the probe response body.
type Report struct {
	Status    string            `json:"status"`
	Leader    bool              `json:"leader"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp string            `json:"timestamp"`
}

// Check is a named readiness probe, typically a store ping.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Handler tracks readiness and leadership and serves the probe endpoints.
type Handler struct {
	mu     sync.RWMutex
	ready  bool
	leader bool
	checks []Check
	clk    clock.Clock
}

func NewHandler(clk clock.Clock, checks ...Check) *Handler {
	return &Handler{checks: checks, clk: clk}
}

// SetReady marks the replica as ready to receive traffic.
func (h *Handler) SetReady(ready bool) {
	h.mu.Lock()
	h.ready = ready
	h.mu.Unlock()
}

// SetLeader records whether this replica currently runs the auction.
func (h *Handler) SetLeader(leader bool) {
	h.mu.Lock()
	h.leader = leader
	h.mu.Unlock()
}

// Mux returns the probe routes: GET /healthz and GET /readyz.
func (h *Handler) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.handleLiveness)
	mux.HandleFunc("GET /readyz", h.handleReadiness)
	return mux
}

func (h *Handler) handleLiveness(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	leader := h.leader
	h.mu.RUnlock()

	h.write(w, http.StatusOK, Report{
		Status:    "ok",
		Leader:    leader,
		Timestamp: h.clk.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) handleReadiness(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	ready, leader := h.ready, h.leader
	h.mu.RUnlock()

	report := Report{
		Status:    "ready",
		Leader:    leader,
		Timestamp: h.clk.Now().UTC().Format(time.RFC3339),
	}
	if !ready {
		report.Status = "not_ready"
		h.write(w, http.StatusServiceUnavailable, report)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	code := http.StatusOK
	report.Checks = make(map[string]string, len(h.checks))
	for _, c := range h.checks {
		if err := c.Probe(ctx); err != nil {
			report.Checks[c.Name] = err.Error()
			report.Status = "not_ready"
			code = http.StatusServiceUnavailable
			continue
		}
		report.Checks[c.Name] = "ok"
	}
	h.write(w, code, report)
}

func (h *Handler) write(w http.ResponseWriter, code int, report Report) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(report)
}

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// probeTimeout bounds each dependency probe during a readiness check.
const probeTimeout = 5 * time.Second

// Pinger is a named dependency probe run by the readiness endpoint.
type Pinger interface {
	// Name identifies the dependency in the readiness response.
	Name() string
	// Ping verifies the dependency is reachable.
	Ping(ctx context.Context) error
}

// readyCheck is one dependency's result in a readiness response.
type readyCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// readyResponse is the JSON response for GET /api/ready.
type readyResponse struct {
	Status string       `json:"status"`
	Checks []readyCheck `json:"checks"`
}

// handleHealth reports process liveness. It never inspects dependencies;
// a live but degraded process still answers 200 here.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady probes every configured dependency and reports 200 only when
// all of them answer. Each probe gets its own timeout so one hung dependency
// cannot stall the whole check.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := make([]readyCheck, 0, len(s.pingers))
	ready := true

	for _, p := range s.pingers {
		check := readyCheck{Name: p.Name(), Status: "ok"}

		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		if err := p.Ping(ctx); err != nil {
			check.Status = "unavailable"
			check.Error = err.Error()
			ready = false
		}
		cancel()

		checks = append(checks, check)
	}

	status := "ready"
	code := http.StatusOK
	if !ready {
		status = "not ready"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, readyResponse{Status: status, Checks: checks})
}

// writeJSON serializes v with the given status code. Encoding errors are
// ignored: the header is already out and there is nothing left to tell
// the client.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

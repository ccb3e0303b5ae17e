// Package health serves the liveness and readiness probes for the agentcall
// diagnostics endpoint.
//
//   - /healthz — liveness; returns 200 whenever the process can serve HTTP.
//   - /readyz  — readiness; returns 200 only while every registered
//     [Checker] passes, e.g. "a call is currently connected".
//
// Responses are JSON with a top-level "status" field ("ok" or "fail") and a
// per-checker breakdown including the time each probe took.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// checkTimeout bounds how long a single readiness probe may run.
const checkTimeout = 5 * time.Second

// Checker is a named readiness probe. Check returns nil while the probed
// component is ready and an error describing the problem otherwise.
type Checker struct {
	// Name labels this probe in the JSON response (e.g. "call", "transport").
	Name string

	// Check probes the component. It must respect context cancellation.
	Check func(ctx context.Context) error
}

// checkResult is the per-probe entry in the readiness response.
type checkResult struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

type response struct {
	Status string                 `json:"status"`
	Checks map[string]checkResult `json:"checks,omitempty"`
}

// Handler serves the /healthz and /readyz routes. It is safe for concurrent
// use; the checker list is fixed at construction time.
type Handler struct {
	checkers []Checker
}

// New creates a [Handler] that evaluates the given checkers on each /readyz
// request. Checkers run concurrently, each under its own [checkTimeout].
func New(checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{checkers: c}
}

// Healthz always returns 200. A process that can answer it is alive.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, response{Status: "ok"})
}

// Readyz returns 200 only when every registered [Checker] passes.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		checks = make(map[string]checkResult, len(h.checkers))
		allOK  = true
	)

	for _, c := range h.checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
			defer cancel()

			start := time.Now()
			err := c.Check(ctx)
			res := checkResult{
				Status:    "ok",
				ElapsedMS: time.Since(start).Milliseconds(),
			}
			if err != nil {
				res.Status = "fail"
				res.Error = err.Error()
			}

			mu.Lock()
			checks[c.Name] = res
			if err != nil {
				allOK = false
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	resp := response{Status: "ok", Checks: checks}
	status := http.StatusOK
	if !allOK {
		resp.Status = "fail"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// Register adds the /healthz and /readyz routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}

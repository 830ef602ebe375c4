// Package statusserver exposes a read-only HTTP view of the scheduler's
// live state: the most recently committed schedule, running cost totals,
// a liveness probe, and Prometheus metrics.
package statusserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ai-sprint-eu-project/GPUScheduler/internal/simulator"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/solution"
)

// State is the data the status server serves; callers update it with
// State.Publish after every committed scheduling step.
type State struct {
	mu        sync.RWMutex
	iteration int
	simTime   float64
	solution  *solution.Solution
	totals    simulator.Totals
}

// Publish swaps in the latest committed step, replacing whatever was
// previously served.
func (s *State) Publish(iteration int, simTime float64, sol *solution.Solution, totals simulator.Totals) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.iteration = iteration
	s.simTime = simTime
	s.solution = sol
	s.totals = totals
}

func (s *State) snapshot() (int, float64, *solution.Solution, simulator.Totals) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.iteration, s.simTime, s.solution, s.totals
}

// NewRouter builds the status API's chi router.
func NewRouter(state *State) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/healthz", handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/schedule", state.handleSchedule)
		r.Get("/totals", state.handleTotals)
	})

	return r
}

// NewServer wraps the router in an *http.Server listening on addr.
func NewServer(addr string, state *State) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      NewRouter(state),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type scheduleRow struct {
	JobID              string  `json:"jobId"`
	NodeID             string  `json:"nodeId"`
	GPUType            string  `json:"gpuType"`
	GPUCount           int     `json:"gpuCount"`
	GPUFraction        float64 `json:"gpuFraction"`
	SelectedTime       float64 `json:"selectedTime"`
	CompletionPercent  float64 `json:"completionPercent"`
	Tardiness          float64 `json:"tardiness"`
}

func (s *State) handleSchedule(w http.ResponseWriter, r *http.Request) {
	iteration, simTime, sol, _ := s.snapshot()
	if sol == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"iteration": iteration,
			"simTime":   simTime,
			"jobs":      []scheduleRow{},
		})
		return
	}

	rows := make([]scheduleRow, 0, len(sol.Schedules))
	for _, sch := range sol.Schedules {
		if sch.Empty() {
			continue
		}
		rows = append(rows, scheduleRow{
			JobID:             sch.JobID,
			NodeID:            sch.NodeID,
			GPUType:           sch.GPUType,
			GPUCount:          sch.AssignedGPUCount,
			GPUFraction:       sch.AssignedGPUFraction,
			SelectedTime:      sch.SelectedTime,
			CompletionPercent: sch.CompletionPercent,
			Tardiness:         sch.Tardiness,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"iteration": iteration,
		"simTime":   simTime,
		"jobs":      rows,
	})
}

func (s *State) handleTotals(w http.ResponseWriter, r *http.Request) {
	_, _, _, totals := s.snapshot()
	writeJSON(w, http.StatusOK, totals)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		fmt.Fprintf(w, `{"error":"encoding response: %s"}`, err.Error())
	}
}

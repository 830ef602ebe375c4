package emitter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ai-sprint-eu-project/GPUScheduler/internal/engine"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/model"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/resourcemap"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/simulator"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/solution"
)

func TestWriteScheduleProducesOneRowPerJob(t *testing.T) {
	dir := t.TempDir()
	rm := resourcemap.New(nil)
	sol := solution.New(rm, 0)
	sol.Set("j1", &model.Schedule{JobID: "j1", NodeID: "n1", GPUType: "X", AssignedGPUCount: 2, AssignedGPUFraction: 1, SelectedTime: 10})

	records := []*simulator.StepRecord{{Iteration: 0, SimTime: 0, Solution: sol}}
	jobs := map[string]*model.Job{"j1": {ID: "j1", SubmissionTime: 0, Deadline: 100, TardinessWeight: 1}}

	path := filepath.Join(dir, "schedule.csv")
	if err := WriteSchedule(path, records, jobs); err != nil {
		t.Fatalf("WriteSchedule() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading schedule file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want header + 1 row", len(lines))
	}
}

func TestAppendTotalsCreatesHeaderOnce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "totals.csv")

	if err := AppendTotals(path, engine.Greedy, 42, simulator.Totals{Tardi: 1, TardiCost: 2}); err != nil {
		t.Fatalf("AppendTotals() error = %v", err)
	}
	if err := AppendTotals(path, engine.Greedy, 42, simulator.Totals{Tardi: 3, TardiCost: 4}); err != nil {
		t.Fatalf("AppendTotals() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading totals file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2 rows", len(lines))
	}
}

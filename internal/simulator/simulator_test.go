package simulator

import (
	"testing"

	"github.com/ai-sprint-eu-project/GPUScheduler/internal/catalogue"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/engine"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/model"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/proxycost"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/resourcemap"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/timetable"
)

// TestExactFitSingleJobEndToEnd mirrors the exact-fit boundary scenario:
// one node with 4 GPUs of type X, one job whose only setup fully consumes
// it and finishes after its deadline, producing the expected tardiness.
func TestExactFitSingleJobEndToEnd(t *testing.T) {
	tt := timetable.New(nil)
	tt.Load("j1", model.Setup{GPUType: "X", GPUCount: 4, GPUFraction: 1}, 100)

	cat := catalogue.NewStatic()
	cat.Add("X", 4, 0) // zero-cost catalogue keeps the cost assertions focused on tardiness

	rm := resourcemap.New(nil)
	rm.AddNode(&model.Node{ID: "n1", GPUType: "X", GPUCount: 4, Remaining: 4})

	jobs := []*model.Job{
		{ID: "j1", SubmissionTime: 0, Deadline: 50, TardinessWeight: 1, MaxExecTime: 100, MinExecTime: 100},
	}

	cfg := DefaultConfig()
	cfg.Method = engine.Greedy
	cfg.SchedulingInterval = 1000
	cfg.MaxIterations = 10

	sim := New(cfg, jobs, tt, cat, rm, proxycost.MinCost, nil)
	records, totals := sim.Run()

	if len(records) == 0 {
		t.Fatal("expected at least one committed step")
	}
	first := records[0].Solution.Schedules["j1"]
	if first.Empty() || first.NodeID != "n1" || first.SelectedTime != 100 {
		t.Fatalf("first committed schedule = %+v, want placement on n1 with selected_time 100", first)
	}

	if totals.Tardi != 50 {
		t.Fatalf("totals.Tardi = %v, want 50", totals.Tardi)
	}
	if totals.TardiCost != 50 {
		t.Fatalf("totals.TardiCost = %v, want 50", totals.TardiCost)
	}

	open := rm.OpenNodes("X")
	if len(open) != 1 || open[0].Remaining != 4 {
		t.Fatalf("expected n1 fully released after job completion, got %+v", open)
	}
}

// TestFIFOCarriesRunningJobsForward exercises the first-principle-method
// branch: once both jobs are placed on the shared node in step 0, step 1
// must carry them forward on the same node/setup rather than rebuilding the
// queue from scratch, and their GPU cost must be split by the node's actual
// used-GPU count rather than each job's own AssignedGPUCount.
func TestFIFOCarriesRunningJobsForward(t *testing.T) {
	tt := timetable.New(nil)
	tt.Load("j1", model.Setup{GPUType: "X", GPUCount: 2, GPUFraction: 1}, 100)
	tt.Load("j2", model.Setup{GPUType: "X", GPUCount: 2, GPUFraction: 1}, 100)

	cat := catalogue.NewStatic()
	cat.Add("X", 2, 10)
	cat.Add("X", 4, 10)

	rm := resourcemap.New(nil)
	rm.AddNode(&model.Node{ID: "n1", GPUType: "X", GPUCount: 4, Remaining: 4})

	jobs := []*model.Job{
		{ID: "j1", SubmissionTime: 0, Deadline: 1000, TardinessWeight: 1, MaxExecTime: 100, MinExecTime: 100},
		{ID: "j2", SubmissionTime: 0, Deadline: 1000, TardinessWeight: 1, MaxExecTime: 100, MinExecTime: 100},
	}

	cfg := DefaultConfig()
	cfg.Method = engine.FIFO
	cfg.SchedulingInterval = 30
	cfg.MaxIterations = 2

	sim := New(cfg, jobs, tt, cat, rm, proxycost.MinCost, nil)

	_, _, first, _, ok := sim.Step()
	if !ok {
		t.Fatal("expected step 0 to commit")
	}
	s1, s2 := first.Schedules["j1"], first.Schedules["j2"]
	if s1.Empty() || s2.Empty() || s1.NodeID != s2.NodeID {
		t.Fatalf("expected both jobs co-located, got j1=%+v j2=%+v", s1, s2)
	}
	node := s1.NodeID

	_, _, second, _, ok := sim.Step()
	if !ok {
		t.Fatal("expected step 1 to commit")
	}
	s1b, s2b := second.Schedules["j1"], second.Schedules["j2"]
	if s1b.Empty() || s2b.Empty() {
		t.Fatalf("expected both jobs still running after step 1, got j1=%+v j2=%+v", s1b, s2b)
	}
	if s1b.NodeID != node || s2b.NodeID != node {
		t.Fatalf("expected jobs carried forward on node %s, got j1=%s j2=%s", node, s1b.NodeID, s2b.NodeID)
	}

	wantRate, _ := cat.UnitCost("X", 4)
	wantCost := s1b.ExecutionTime * wantRate / 3600 * float64(s1b.AssignedGPUCount) / 4 * s1b.AssignedGPUFraction
	if diff := s1b.GPUCost - wantCost; diff > Tolerance || diff < -Tolerance {
		t.Fatalf("j1 GPUCost = %v, want %v (shared across 4 used GPUs)", s1b.GPUCost, wantCost)
	}
}

func TestEmptyClusterProducesWorstCasePenalty(t *testing.T) {
	tt := timetable.New(nil)
	tt.Load("j1", model.Setup{GPUType: "X", GPUCount: 1, GPUFraction: 1}, 10)
	cat := catalogue.NewStatic()
	cat.Add("X", 1, 0)
	rm := resourcemap.New(nil) // no nodes at all

	jobs := []*model.Job{
		{ID: "j1", SubmissionTime: 0, Deadline: 5, TardinessWeight: 1, MaxExecTime: 10, MinExecTime: 10},
	}

	cfg := DefaultConfig()
	cfg.SchedulingInterval = 1000
	cfg.MaxIterations = 5

	sim := New(cfg, jobs, tt, cat, rm, proxycost.MinCost, nil)
	records, _ := sim.Run()

	if len(records) == 0 {
		t.Fatal("expected a committed step even with no resources")
	}
	sch := records[0].Solution.Schedules["j1"]
	if !sch.Empty() {
		t.Fatalf("expected an empty schedule for j1 with no nodes, got %+v", sch)
	}
}

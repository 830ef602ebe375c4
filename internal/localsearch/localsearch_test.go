package localsearch

import (
	"testing"

	"github.com/ai-sprint-eu-project/GPUScheduler/internal/catalogue"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/model"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/proxycost"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/resourcemap"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/solution"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/timetable"
)

// TestN3RescuesPostponedHighPressureJob builds a solution where j1 is
// postponed (empty schedule) with higher pressure than the running j2, and
// checks that N3 produces a candidate that places j1 and frees j2.
func TestN3RescuesPostponedHighPressureJob(t *testing.T) {
	tt := timetable.New(nil)
	cat := catalogue.NewStatic()
	cat.Add("Z", 2, 3600)

	rm := resourcemap.New(nil)
	rm.AddNode(&model.Node{ID: "n1", GPUType: "Z", GPUCount: 2, Remaining: 0})

	sol := solution.New(rm, 0)
	sol.Set("j1", &model.Schedule{JobID: "j1"})
	sol.Set("j2", &model.Schedule{
		JobID: "j2", NodeID: "n1", GPUType: "Z",
		AssignedGPUCount: 2, AssignedGPUFraction: 1, SelectedTime: 50,
	})
	sol.ComputeFirstFinishTime()

	jobs := map[string]*model.Job{
		"j1": {ID: "j1", Deadline: 10, TardinessWeight: 5, Pressure: 5, MaxExecTime: 50},
		"j2": {ID: "j2", Deadline: 1000, TardinessWeight: 1, Pressure: -900, MaxExecTime: 50},
	}

	ls := New(tt, cat, proxycost.MinCost, nil)
	cand := ls.n3(sol, jobs, 0)
	if cand == nil {
		t.Fatal("expected N3 to produce a candidate swapping j1 into j2's slot")
	}
	if cand.Schedules["j1"].Empty() {
		t.Fatal("expected j1 to be placed in the N3 candidate")
	}
	if !cand.Schedules["j2"].Empty() {
		t.Fatal("expected j2 to become empty in the N3 candidate")
	}
}

func TestImproveNeverWorsensTheBestMember(t *testing.T) {
	tt := timetable.New(nil)
	cat := catalogue.NewStatic()
	cat.Add("Z", 2, 3600)

	rm := resourcemap.New(nil)
	rm.AddNode(&model.Node{ID: "n1", GPUType: "Z", GPUCount: 2, Remaining: 0})

	sol := solution.New(rm, 0)
	sol.Set("j1", &model.Schedule{
		JobID: "j1", NodeID: "n1", GPUType: "Z",
		AssignedGPUCount: 2, AssignedGPUFraction: 1, SelectedTime: 50,
	})
	sol.ComputeFirstFinishTime()

	elite := solution.NewEliteSet(1, solution.AscendingCost)
	jobs := map[string]*model.Job{
		"j1": {ID: "j1", Deadline: 1000, TardinessWeight: 1, MaxExecTime: 50},
	}
	cost := proxycost.Compute(sol, jobs, cat, 0, proxycost.MinCost)
	elite.Insert(sol, cost)

	ls := New(tt, cat, proxycost.MinCost, nil)
	improved := ls.Improve(elite, []*model.Job{jobs["j1"]}, jobs, 0, 10)

	if improved.BestCost() > cost {
		t.Fatalf("Improve worsened the best solution: %v > %v", improved.BestCost(), cost)
	}
}

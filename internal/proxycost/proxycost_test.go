package proxycost

import (
	"testing"

	"github.com/ai-sprint-eu-project/GPUScheduler/internal/catalogue"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/model"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/resourcemap"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/solution"
)

func TestComputeMinCostEmptySchedulePenalty(t *testing.T) {
	rm := resourcemap.New(nil)
	sol := solution.New(rm, 0)
	sol.Set("j1", &model.Schedule{JobID: "j1"}) // empty: AssignedGPUCount == 0
	sol.ComputeFirstFinishTime()

	jobs := map[string]*model.Job{
		"j1": {ID: "j1", Deadline: 50, TardinessWeight: 2, MaxExecTime: 100},
	}
	cat := catalogue.NewStatic()

	got := Compute(sol, jobs, cat, 0, MinCost)
	want := 100.0 * (0 + 100 - 50) * 2 // emptyPenaltyFactor * max(current+max_exec-deadline,0) * weight
	if got != want {
		t.Fatalf("Compute() = %v, want %v", got, want)
	}
}

func TestComputeMinCostNonEmptySchedule(t *testing.T) {
	rm := resourcemap.New(nil)
	rm.AddNode(&model.Node{ID: "n1", GPUType: "X", GPUCount: 4, Remaining: 2, LeaseCostPerHour: 0})
	sol := solution.New(rm, 0)
	sol.Set("j1", &model.Schedule{
		JobID:               "j1",
		NodeID:              "n1",
		GPUType:             "X",
		SelectedTime:        100,
		AssignedGPUCount:    2,
		AssignedGPUFraction: 1,
	})
	sol.ComputeFirstFinishTime()
	if sol.FirstFinishTime != 100 {
		t.Fatalf("FirstFinishTime = %v, want 100", sol.FirstFinishTime)
	}

	jobs := map[string]*model.Job{
		"j1": {ID: "j1", Deadline: 50, TardinessWeight: 1, MaxExecTime: 100},
	}
	cat := catalogue.NewStatic()
	cat.Add("X", 2, 3600) // 3600/hr == 1/sec, to keep the arithmetic simple

	got := Compute(sol, jobs, cat, 0, MinCost)
	// gpu_cost = 100 * 3600/3600 * 2/2 * 1 = 100; node_cost = 0;
	// tardiness = max(0+100-50,0) = 50, tardiness_cost = 50.
	want := 150.0
	if got != want {
		t.Fatalf("Compute() = %v, want %v", got, want)
	}
}

func TestComparatorMatchesVariant(t *testing.T) {
	if MinCost.Comparator() != solution.AscendingCost {
		t.Fatal("MinCost must pair with AscendingCost")
	}
	if ThroughputMax.Comparator() != solution.DescendingCost {
		t.Fatal("ThroughputMax must pair with DescendingCost")
	}
}

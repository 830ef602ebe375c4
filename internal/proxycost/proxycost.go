// Package proxycost scores candidate Solutions so the construction
// heuristics and local search can rank them. The returned figure is a pure
// ranking proxy, not a billed cost.
package proxycost

import (
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/catalogue"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/model"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/solution"
)

// Variant selects which proxy formula Compute applies.
type Variant int

const (
	// MinCost ranks solutions by ascending total cost (GPU energy + node
	// lease + weighted tardiness + infeasibility penalty). This is the
	// default variant and pairs with solution.AscendingCost.
	MinCost Variant = iota
	// ThroughputMax ranks solutions by a figure-of-merit to maximise; it
	// pairs with solution.DescendingCost.
	ThroughputMax
)

// Comparator returns the EliteSet comparator that matches v.
func (v Variant) Comparator() solution.Comparator {
	if v == ThroughputMax {
		return solution.DescendingCost
	}
	return solution.AscendingCost
}

// emptyPenaltyFactor scales the deadline-miss penalty charged to a Schedule
// that could not be placed at all.
const emptyPenaltyFactor = 100

// Compute scores sol at currentTime against the given jobs (for deadline,
// tardiness weight and max_exec_time) and cat (for unit GPU cost).
func Compute(sol *solution.Solution, jobs map[string]*model.Job, cat catalogue.Catalogue, currentTime float64, v Variant) float64 {
	elapsed := sol.FirstFinishTime

	var gpuCostTotal, tardinessCostTotal, penaltyTotal float64
	var throughput float64

	for jobID, sch := range sol.Schedules {
		job := jobs[jobID]
		if job == nil {
			continue
		}
		if sch.Empty() {
			penalty := emptyPenaltyFactor * max0(currentTime+job.MaxExecTime-job.Deadline) * job.TardinessWeight
			penaltyTotal += penalty
			continue
		}

		usedOnNode := sol.Resources.UsedGPUs(sch.GPUType, sch.NodeID)
		if usedOnNode <= 0 {
			usedOnNode = sch.AssignedGPUCount
		}
		unitCost, _ := cat.UnitCost(sch.GPUType, usedOnNode)

		gpuCost := elapsed * unitCost / 3600 * float64(sch.AssignedGPUCount) / float64(usedOnNode) * sch.AssignedGPUFraction
		tardiness := max0(currentTime + elapsed - job.Deadline)
		tardinessCost := tardiness * job.TardinessWeight

		gpuCostTotal += gpuCost
		tardinessCostTotal += tardinessCost

		if v == ThroughputMax {
			denom := gpuCost + tardinessCost
			if denom > 0 {
				throughput += job.MaxExecTime / denom
			}
		}
	}

	if v == ThroughputMax {
		return throughput
	}

	nodeCost := sol.Resources.ComputeNodeCost(elapsed)
	return gpuCostTotal + nodeCost + tardinessCostTotal + penaltyTotal
}

func max0(x float64) float64 {
	if x < 0 {
		return 0
	}
	return x
}

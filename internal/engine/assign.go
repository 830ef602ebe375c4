package engine

import (
	"math"
	"sort"

	"github.com/ai-sprint-eu-project/GPUScheduler/internal/model"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/resourcemap"
)

// candidate is one feasible-or-not setup choice for a job, carrying the
// ranking keys the two-pool policy sorts by.
type candidate struct {
	setup      model.Setup
	time       float64
	energyCost float64 // gpu_cost x time; only meaningful for the feasible pool D
}

// assignOne builds the two pools D (setups meeting the job's deadline,
// ordered by ascending energy cost) and D-bar (infeasible setups, ordered
// by ascending execution time), then tries each in turn against rm until
// one succeeds. rgp is non-nil only for RandomGreedy, selecting a uniform
// random pick from the head of D instead of always popping the cheapest.
func (e *Engine) assignOne(job *model.Job, rm *resourcemap.ResourceMap, currentTime float64, rgp *RandomGreedyParams) *model.Schedule {
	entries := e.TimeTable.Entries(job.ID)
	if len(entries) == 0 {
		return &model.Schedule{JobID: job.ID}
	}

	var feasible, infeasible []candidate
	for _, ent := range entries {
		if math.IsInf(ent.Time, 1) {
			continue
		}
		rate, _ := e.Catalogue.UnitCost(ent.Setup.GPUType, ent.Setup.GPUCount)
		energy := (rate / 3600 * float64(ent.Setup.GPUCount) * ent.Setup.GPUFraction) * ent.Time
		c := candidate{setup: ent.Setup, time: ent.Time, energyCost: energy}
		if currentTime+ent.Time <= job.Deadline {
			feasible = append(feasible, c)
		} else {
			infeasible = append(infeasible, c)
		}
	}

	sort.SliceStable(feasible, func(i, j int) bool { return feasible[i].energyCost < feasible[j].energyCost })
	sort.SliceStable(infeasible, func(i, j int) bool { return infeasible[i].time < infeasible[j].time })

	for len(feasible) > 0 || len(infeasible) > 0 {
		var picked candidate
		if len(feasible) > 0 {
			idx := 0
			if rgp != nil {
				poolSize := int(math.Ceil(rgp.Alpha * float64(len(feasible))))
				if poolSize < 1 {
					poolSize = 1
				}
				if poolSize > len(feasible) {
					poolSize = len(feasible)
				}
				idx = e.Rand.Intn(poolSize)
			}
			picked = feasible[idx]
			feasible = append(feasible[:idx], feasible[idx+1:]...)
		} else {
			picked = infeasible[0]
			infeasible = infeasible[1:]
		}

		if id, ok := rm.Assign(picked.setup.GPUType, picked.setup.GPUCount, picked.setup.GPUFraction, false, ""); ok {
			nodeID, gpuIdx, _ := resourcemap.ParseComposite(id)
			return &model.Schedule{
				JobID:               job.ID,
				NodeID:              nodeID,
				GPUType:             picked.setup.GPUType,
				SelectedTime:        picked.time,
				AssignedGPUCount:    picked.setup.GPUCount,
				AssignedGPUFraction: picked.setup.GPUFraction,
				GPUIndex:            gpuIdx,
			}
		}
	}

	return &model.Schedule{JobID: job.ID}
}

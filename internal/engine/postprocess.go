package engine

import (
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/model"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/solution"
)

// postprocess redistributes idle capacity to already-placed jobs so long as
// doing so strictly speeds one of them up, iterating to a fixed point. Two
// kinds of surplus are reclaimed:
//
//   - whole idle GPUs left over on a node that also hosts a full-GPU (f=1)
//     job, which can be upgraded to a higher GPU count setup;
//   - the open fraction of a shared GPU, which can be handed to the
//     co-located fractional job occupying the rest of that GPU.
//
// Both passes repeat until neither finds a strictly-improving upgrade.
func (e *Engine) postprocess(sol *solution.Solution, jobIndex map[string]*model.Job) {
	for {
		improvedWhole := e.upgradeWholeNodeSurplus(sol, jobIndex)
		improvedShared := e.upgradeSharedGPUSurplus(sol, jobIndex)
		if !improvedWhole && !improvedShared {
			return
		}
	}
}

// upgradeWholeNodeSurplus finds, for every node with idle whole GPUs, the
// single full-GPU job on that node whose setup upgrade (same GPU type,
// higher count, still f=1) yields the largest selected_time - new_time
// speed-up, and applies at most one such upgrade per call.
func (e *Engine) upgradeWholeNodeSurplus(sol *solution.Solution, jobIndex map[string]*model.Job) bool {
	type upgrade struct {
		jobID   string
		setup   model.Setup
		newTime float64
		delta   float64
	}
	var best *upgrade

	for jobID, sch := range sol.Schedules {
		if sch.Empty() || sch.AssignedGPUFraction < 1 {
			continue
		}
		node, ok := sol.Resources.FindNode(sch.NodeID)
		if !ok || node.Remaining <= 0 {
			continue
		}
		for _, ent := range e.TimeTable.Entries(jobID) {
			if ent.Setup.GPUType != sch.GPUType || ent.Setup.GPUFraction != 1 {
				continue
			}
			extra := ent.Setup.GPUCount - sch.AssignedGPUCount
			if extra <= 0 || extra > node.Remaining {
				continue
			}
			delta := sch.SelectedTime - ent.Time
			if delta <= 0 {
				continue
			}
			if best == nil || delta > best.delta {
				best = &upgrade{jobID: jobID, setup: ent.Setup, newTime: ent.Time, delta: delta}
			}
		}
	}
	if best == nil {
		return false
	}

	sch := sol.Schedules[best.jobID]
	node, _ := sol.Resources.FindNode(sch.NodeID)
	node.Remaining -= (best.setup.GPUCount - sch.AssignedGPUCount)
	sch.AssignedGPUCount = best.setup.GPUCount
	sch.SelectedTime = best.newTime
	return true
}

// upgradeSharedGPUSurplus walks open shared GPUs in descending remaining
// fraction and applies the single best co-located upgrade it finds. The
// upgrade lowers the GPU's remaining fraction in place: a GPU it saturates
// stays in the open shared list with remaining fraction 0 instead of moving
// to the full-shared list, and the list is not re-sorted.
func (e *Engine) upgradeSharedGPUSurplus(sol *solution.Solution, jobIndex map[string]*model.Job) bool {
	for _, gpuType := range sol.Resources.GPUTypes() {
		for _, sg := range sol.Resources.SharedGPUsDescending(gpuType) {
			if e.upgradeOneSharedGPU(sol, gpuType, sg) {
				return true
			}
		}
	}
	return false
}

func (e *Engine) upgradeOneSharedGPU(sol *solution.Solution, gpuType string, sg *model.SharedGPU) bool {
	type upgrade struct {
		jobID      string
		newTime    float64
		newFrac    float64
		delta      float64
	}
	var best *upgrade

	for jobID, sch := range sol.Schedules {
		if sch.Empty() || sch.AssignedGPUFraction >= 1 {
			continue
		}
		if sch.NodeID != sg.NodeID || sch.GPUIndex != sg.GPUIndex || sch.GPUType != gpuType {
			continue
		}
		newFrac := sch.AssignedGPUFraction + sg.RemainingFraction
		if newFrac > 1 {
			newFrac = 1
		}
		newSetup := model.Setup{GPUType: gpuType, GPUCount: sch.AssignedGPUCount, GPUFraction: newFrac}
		newTime, ok := e.TimeTable.Lookup(jobID, newSetup)
		if !ok {
			continue
		}
		delta := sch.SelectedTime - newTime
		if delta <= 0 {
			continue
		}
		if best == nil || delta > best.delta {
			best = &upgrade{jobID: jobID, newTime: newTime, newFrac: newFrac, delta: delta}
		}
	}
	if best == nil {
		return false
	}

	sch := sol.Schedules[best.jobID]
	consumed := best.newFrac - sch.AssignedGPUFraction
	sch.AssignedGPUFraction = best.newFrac
	sch.SelectedTime = best.newTime
	sg.RemainingFraction -= consumed
	return true
}

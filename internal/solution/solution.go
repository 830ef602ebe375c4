// Package solution defines a candidate schedule assignment for every job at
// a scheduling instant, together with the EliteSet that the construction
// heuristics and local search improve over.
package solution

import (
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/model"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/resourcemap"
)

// Solution is a job→Schedule mapping plus the ResourceMap snapshot it was
// built against. Solutions own their ResourceMap: local search clones the
// snapshot into every candidate it explores, and the Simulator keeps its
// committed Solution's snapshot as the record of current reservations
// without copying it back into its master map.
type Solution struct {
	Schedules map[string]*model.Schedule
	Resources *resourcemap.ResourceMap

	// FirstFinishTime is the minimum SelectedTime across non-empty
	// schedules; zero value is meaningless when the solution is empty.
	FirstFinishTime float64

	Iteration int
}

// New returns an empty solution snapshotting rm.
func New(rm *resourcemap.ResourceMap, iteration int) *Solution {
	return &Solution{
		Schedules: make(map[string]*model.Schedule),
		Resources: rm,
		Iteration: iteration,
	}
}

// IsEmpty reports whether every schedule in the solution is empty.
func (s *Solution) IsEmpty() bool {
	for _, sch := range s.Schedules {
		if !sch.Empty() {
			return false
		}
	}
	return true
}

// Set records (or replaces) a job's schedule.
func (s *Solution) Set(jobID string, sch *model.Schedule) {
	s.Schedules[jobID] = sch
}

// ComputeFirstFinishTime recomputes and stores FirstFinishTime as the
// minimum SelectedTime across non-empty schedules. With no non-empty
// schedule, FirstFinishTime is left at 0.
func (s *Solution) ComputeFirstFinishTime() {
	first := 0.0
	seen := false
	for _, sch := range s.Schedules {
		if sch.Empty() {
			continue
		}
		if !seen || sch.SelectedTime < first {
			first = sch.SelectedTime
			seen = true
		}
	}
	s.FirstFinishTime = first
}

// Clone returns an independent deep copy: schedules and the resource
// snapshot are both cloned, so mutating the copy never affects s.
func (s *Solution) Clone() *Solution {
	cp := &Solution{
		Schedules:       make(map[string]*model.Schedule, len(s.Schedules)),
		Resources:       s.Resources.Clone(),
		FirstFinishTime: s.FirstFinishTime,
		Iteration:       s.Iteration,
	}
	for id, sch := range s.Schedules {
		cp.Schedules[id] = sch.Clone()
	}
	return cp
}

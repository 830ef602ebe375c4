package localsearch

import (
	"sort"

	"github.com/ai-sprint-eu-project/GPUScheduler/internal/model"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/proxycost"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/solution"
)

// n1 tries swap_running(j1, j2) for every (tardy, expensive) pair placed on
// different nodes and returns the cheapest resulting candidate, or nil if
// no pair swaps cleanly.
func (l *LocalSearch) n1(s *solution.Solution, tardy, expensive []string, jobIndex map[string]*model.Job, currentTime float64) *solution.Solution {
	return l.bestSwapAmong(s, tardy, expensive, jobIndex, currentTime)
}

// n2 is N1 with the second job drawn from the whole submitted queue,
// walked in ascending-pressure (i.e. reverse of the engine's
// descending-pressure) order.
func (l *LocalSearch) n2(s *solution.Solution, tardy []string, allJobs []*model.Job, jobIndex map[string]*model.Job, currentTime float64) *solution.Solution {
	byPressure := make([]*model.Job, len(allJobs))
	copy(byPressure, allJobs)
	sort.SliceStable(byPressure, func(i, j int) bool { return byPressure[i].Pressure < byPressure[j].Pressure })

	var candidates []string
	for _, j := range byPressure {
		if sch := s.Schedules[j.ID]; sch != nil && !sch.Empty() {
			candidates = append(candidates, j.ID)
		}
	}
	return l.bestSwapAmong(s, tardy, candidates, jobIndex, currentTime)
}

func (l *LocalSearch) bestSwapAmong(s *solution.Solution, group1, group2 []string, jobIndex map[string]*model.Job, currentTime float64) *solution.Solution {
	var best *solution.Solution
	var bestCost float64
	seen := false

	for _, j1 := range group1 {
		s1 := s.Schedules[j1]
		if s1 == nil || s1.Empty() {
			continue
		}
		for _, j2 := range group2 {
			if j2 == j1 {
				continue
			}
			s2 := s.Schedules[j2]
			if s2 == nil || s2.Empty() || s2.NodeID == s1.NodeID {
				continue
			}
			cand := swapRunning(s, l.TimeTable, j1, j2)
			if cand == nil {
				continue
			}
			cost := proxycost.Compute(cand, jobIndex, l.Catalogue, currentTime, l.Proxy)
			if !seen || l.Proxy.Comparator().Better(cost, bestCost) {
				best, bestCost, seen = cand, cost, true
			}
		}
	}
	return best
}

// n3 swaps an empty schedule into a running one when the postponed job's
// pressure is at least as high as the running job's, for every eligible
// pair, and returns the candidate with the best proxy cost (nil when no
// pair is eligible), whether or not it is cheaper than s. It needs the
// jobIndex and current time to score candidates with the real proxy cost.
func (l *LocalSearch) n3(s *solution.Solution, jobIndex map[string]*model.Job, currentTime float64) *solution.Solution {
	var postponed, running []string
	for jobID, sch := range s.Schedules {
		if sch.Empty() {
			postponed = append(postponed, jobID)
		} else {
			running = append(running, jobID)
		}
	}

	var best *solution.Solution
	var bestCost float64
	seen := false

	for _, j1 := range postponed {
		job1 := jobIndex[j1]
		if job1 == nil {
			continue
		}
		for _, j2 := range running {
			job2 := jobIndex[j2]
			if job2 == nil || job1.Pressure < job2.Pressure {
				continue
			}
			cand := s.Clone()
			cs1, cs2 := cand.Schedules[j1], cand.Schedules[j2]
			cs1.NodeID = cs2.NodeID
			cs1.GPUType = cs2.GPUType
			cs1.AssignedGPUCount = cs2.AssignedGPUCount
			cs1.AssignedGPUFraction = cs2.AssignedGPUFraction
			cs1.GPUIndex = cs2.GPUIndex
			cs1.SelectedTime = cs2.SelectedTime
			*cs2 = model.Schedule{JobID: j2}
			cand.ComputeFirstFinishTime()

			cost := proxycost.Compute(cand, jobIndex, l.Catalogue, currentTime, l.Proxy)
			if !seen || l.Proxy.Comparator().Better(cost, bestCost) {
				best, bestCost, seen = cand, cost, true
			}
		}
	}
	return best
}

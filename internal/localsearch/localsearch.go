// Package localsearch improves an EliteSet produced by the construction
// engine by exploring three swap neighbourhoods around each elite solution
// and keeping only strictly-improving moves.
package localsearch

import (
	"sort"

	"go.uber.org/zap"

	"github.com/ai-sprint-eu-project/GPUScheduler/internal/catalogue"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/model"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/proxycost"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/solution"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/timetable"
)

// DefaultK1 bounds the tardy/expensive job pools each neighbourhood draws
// its candidates from.
const DefaultK1 = 10

// LocalSearch holds the dependencies the three neighbourhoods need to score
// and build candidate swaps.
type LocalSearch struct {
	TimeTable *timetable.TimeTable
	Catalogue catalogue.Catalogue
	Proxy     proxycost.Variant
	K1        int
	Log       *zap.SugaredLogger
}

// New returns a LocalSearch with DefaultK1 pool sizes.
func New(tt *timetable.TimeTable, cat catalogue.Catalogue, proxy proxycost.Variant, log *zap.SugaredLogger) *LocalSearch {
	return &LocalSearch{TimeTable: tt, Catalogue: cat, Proxy: proxy, K1: DefaultK1, Log: log}
}

// Improve runs up to L iterations over elite, rebuilding a fresh EliteSet
// each time. The comparator-best solution of the previous iteration is
// always carried over unconditionally; every other member is replaced by
// its best strictly-improving neighbour, if one exists.
func (l *LocalSearch) Improve(elite *solution.EliteSet, allJobs []*model.Job, jobIndex map[string]*model.Job, currentTime float64, iterations int) *solution.EliteSet {
	current := elite
	for i := 0; i < iterations; i++ {
		next := solution.NewEliteSet(current.K, current.Comparator)
		members := current.All()
		if len(members) == 0 {
			return current
		}

		best := members[0]
		bestCost := proxycost.Compute(best, jobIndex, l.Catalogue, currentTime, l.Proxy)
		next.Insert(best, bestCost)

		improvedAny := false
		for _, s := range members[1:] {
			cost := proxycost.Compute(s, jobIndex, l.Catalogue, currentTime, l.Proxy)
			candidate, candidateCost, improved := l.bestNeighbour(s, cost, allJobs, jobIndex, currentTime)
			if improved {
				improvedAny = true
				next.Insert(candidate, candidateCost)
			} else {
				next.Insert(s, cost)
			}
		}

		current = next
		if !improvedAny {
			return current
		}
	}
	return current
}

// bestNeighbour computes N1, N2 and N3 for s and returns whichever
// strictly beats baseCost by the largest margin, if any does.
func (l *LocalSearch) bestNeighbour(s *solution.Solution, baseCost float64, allJobs []*model.Job, jobIndex map[string]*model.Job, currentTime float64) (*solution.Solution, float64, bool) {
	tardy, expensive := l.tardyAndExpensive(s, jobIndex, currentTime)

	var best *solution.Solution
	bestCost := baseCost
	found := false

	consider := func(cand *solution.Solution) {
		if cand == nil {
			return
		}
		cost := proxycost.Compute(cand, jobIndex, l.Catalogue, currentTime, l.Proxy)
		if l.Proxy.Comparator().Better(cost, bestCost) {
			best, bestCost, found = cand, cost, true
		}
	}

	consider(l.n1(s, tardy, expensive, jobIndex, currentTime))
	consider(l.n2(s, tardy, allJobs, jobIndex, currentTime))
	consider(l.n3(s, jobIndex, currentTime))

	return best, bestCost, found
}

// tardyAndExpensive returns, respectively, the top-K1 running jobs by
// descending tardiness and the top-K1 non-tardy running jobs by descending
// GPU cost.
func (l *LocalSearch) tardyAndExpensive(s *solution.Solution, jobIndex map[string]*model.Job, currentTime float64) ([]string, []string) {
	var tardyList, costList []scoredJob

	for jobID, sch := range s.Schedules {
		if sch.Empty() {
			continue
		}
		job := jobIndex[jobID]
		if job == nil {
			continue
		}
		tardiness := currentTime + s.FirstFinishTime - job.Deadline
		if tardiness > 0 {
			tardyList = append(tardyList, scoredJob{jobID, tardiness})
			continue
		}
		rate, _ := l.Catalogue.UnitCost(sch.GPUType, sch.AssignedGPUCount)
		gpuCost := s.FirstFinishTime * rate / 3600 * sch.AssignedGPUFraction
		costList = append(costList, scoredJob{jobID, gpuCost})
	}

	sort.Slice(tardyList, func(i, j int) bool { return tardyList[i].value > tardyList[j].value })
	sort.Slice(costList, func(i, j int) bool { return costList[i].value > costList[j].value })

	tardy := topIDs(tardyList, l.k1())
	expensive := topIDs(costList, l.k1())
	return tardy, expensive
}

// scoredJob pairs a job id with a ranking value for the tardy/expensive
// pool cuts below.
type scoredJob struct {
	jobID string
	value float64
}

func topIDs(scored []scoredJob, k int) []string {
	if len(scored) > k {
		scored = scored[:k]
	}
	out := make([]string, len(scored))
	for i, s := range scored {
		out[i] = s.jobID
	}
	return out
}

func (l *LocalSearch) k1() int {
	if l.K1 > 0 {
		return l.K1
	}
	return DefaultK1
}

// swapRunning looks up f=1 setups for j1 on j2's current GPU type and vice
// versa, and returns a cloned Solution with the two schedules exchanged,
// or nil if either lookup misses.
func swapRunning(s *solution.Solution, tt *timetable.TimeTable, j1, j2 string) *solution.Solution {
	s1, s2 := s.Schedules[j1], s.Schedules[j2]
	if s1 == nil || s2 == nil || s1.Empty() || s2.Empty() {
		return nil
	}
	setup1 := model.Setup{GPUType: s2.GPUType, GPUCount: s2.AssignedGPUCount, GPUFraction: 1}
	setup2 := model.Setup{GPUType: s1.GPUType, GPUCount: s1.AssignedGPUCount, GPUFraction: 1}
	t1, ok1 := tt.Lookup(j1, setup1)
	t2, ok2 := tt.Lookup(j2, setup2)
	if !ok1 || !ok2 {
		return nil
	}

	cand := s.Clone()
	cs1, cs2 := cand.Schedules[j1], cand.Schedules[j2]
	cs1.NodeID, cs2.NodeID = cs2.NodeID, cs1.NodeID
	cs1.GPUType, cs2.GPUType = setup1.GPUType, setup2.GPUType
	cs1.AssignedGPUCount, cs2.AssignedGPUCount = setup1.GPUCount, setup2.GPUCount
	cs1.AssignedGPUFraction, cs2.AssignedGPUFraction = 1, 1
	cs1.SelectedTime, cs2.SelectedTime = t1, t2
	cand.ComputeFirstFinishTime()
	return cand
}

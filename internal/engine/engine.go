// Package engine implements the construction heuristics that turn a queue
// of submitted jobs and a ResourceMap into a pool of candidate Solutions:
// FIFO, EDF, Priority, Greedy and RandomGreedy. All five share one
// preprocess/sort/assign/postprocess/score loop; only the ordering (and,
// for RandomGreedy, the assignment's randomisation) differs per variant.
package engine

import (
	"math/rand"
	"sort"

	"go.uber.org/zap"

	"github.com/ai-sprint-eu-project/GPUScheduler/internal/catalogue"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/model"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/proxycost"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/resourcemap"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/solution"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/timetable"
)

// Method names a construction heuristic.
type Method int

const (
	FIFO Method = iota
	EDF
	Priority
	Greedy
	RandomGreedy
)

func (m Method) String() string {
	switch m {
	case FIFO:
		return "FIFO"
	case EDF:
		return "EDF"
	case Priority:
		return "PS"
	case Greedy:
		return "G"
	case RandomGreedy:
		return "RG"
	default:
		return "unknown"
	}
}

// RandomGreedyParams tunes the RandomGreedy variant's randomisation.
type RandomGreedyParams struct {
	// Alpha selects the pool of top candidates (ceil(Alpha*|D|)) a random
	// pick is drawn uniformly from, per assignment.
	Alpha float64
	// Pi biases the pre-sort adjacent-swap probability away from 0.5.
	Pi float64
	// Iterations bounds how many independent constructions are attempted;
	// callers should additionally cap it at nodes*jobs*gpus.
	Iterations int
}

// DefaultRandomGreedyParams mirrors the source's defaults (gamma = 0).
func DefaultRandomGreedyParams() RandomGreedyParams {
	return RandomGreedyParams{Alpha: 0.3, Pi: 0.1, Iterations: 20}
}

// Engine builds candidate Solutions against a TimeTable and GPU cost
// catalogue, scoring them with a ProxyCost variant.
type Engine struct {
	TimeTable *timetable.TimeTable
	Catalogue catalogue.Catalogue
	Proxy     proxycost.Variant
	RandParams RandomGreedyParams
	Rand      *rand.Rand
	Log       *zap.SugaredLogger
}

// New returns an Engine with the given dependencies. rnd may be nil, in
// which case RandomGreedy uses a generator seeded with 1, so its output is
// still deterministic; supply a *rand.Rand to use another seed.
func New(tt *timetable.TimeTable, cat catalogue.Catalogue, proxy proxycost.Variant, rnd *rand.Rand, log *zap.SugaredLogger) *Engine {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(1))
	}
	return &Engine{
		TimeTable:  tt,
		Catalogue:  cat,
		Proxy:      proxy,
		RandParams: DefaultRandomGreedyParams(),
		Rand:       rnd,
		Log:        log,
	}
}

// PerformScheduling runs the shared construction loop for method against
// jobs and rm, inserting every constructed Solution into elite. jobs is
// read-only; rm is cloned once per construction so LocalSearch-style
// mutation never escapes back to the caller's map.
func (e *Engine) PerformScheduling(method Method, jobs []*model.Job, jobIndex map[string]*model.Job, rm *resourcemap.ResourceMap, currentTime float64, elite *solution.EliteSet) *solution.Solution {
	if method == RandomGreedy {
		return e.performRandomGreedy(jobs, jobIndex, rm, currentTime, elite)
	}
	return e.constructOnce(method, jobs, jobIndex, rm, currentTime, elite)
}

func (e *Engine) constructOnce(method Method, jobs []*model.Job, jobIndex map[string]*model.Job, rm *resourcemap.ResourceMap, currentTime float64, elite *solution.EliteSet) *solution.Solution {
	queue := make([]*model.Job, len(jobs))
	copy(queue, jobs)
	order(method, queue)

	rmCopy := rm.Clone()
	sol := solution.New(rmCopy, elite.Len())
	for _, job := range queue {
		sch := e.assignOne(job, rmCopy, currentTime, nil)
		sol.Set(job.ID, sch)
	}
	sol.ComputeFirstFinishTime()
	e.postprocess(sol, jobIndex)
	sol.ComputeFirstFinishTime()

	e.scoreAndInsert(sol, jobIndex, currentTime, elite)
	return sol
}

// performRandomGreedy builds RandParams.Iterations independent candidate
// solutions (each from its own cloned ResourceMap and a pre-sort
// adjacent-swap pass over the queue) and inserts all of them into elite.
func (e *Engine) performRandomGreedy(jobs []*model.Job, jobIndex map[string]*model.Job, rm *resourcemap.ResourceMap, currentTime float64, elite *solution.EliteSet) *solution.Solution {
	var best *solution.Solution
	var bestCost float64
	for i := 0; i < e.RandParams.Iterations; i++ {
		queue := make([]*model.Job, len(jobs))
		copy(queue, jobs)
		e.randomAdjacentSwaps(queue)
		orderByDescendingPressure(queue)

		rmCopy := rm.Clone()
		sol := solution.New(rmCopy, elite.Len())
		for _, job := range queue {
			sch := e.assignOne(job, rmCopy, currentTime, &e.RandParams)
			sol.Set(job.ID, sch)
		}
		sol.ComputeFirstFinishTime()
		e.postprocess(sol, jobIndex)
		sol.ComputeFirstFinishTime()

		cost := proxycost.Compute(sol, jobIndex, e.Catalogue, currentTime, e.Proxy)
		elite.Insert(sol, cost)
		if best == nil || e.Proxy.Comparator().Better(cost, bestCost) {
			best = sol
			bestCost = cost
		}
	}
	if best == nil {
		best = solution.New(rm.Clone(), 0)
	}
	return best
}

// randomAdjacentSwaps walks the queue once, swapping neighbouring jobs with
// probability 0.5+pi when the left job has the higher tardiness weight, or
// 0.5-pi otherwise.
func (e *Engine) randomAdjacentSwaps(queue []*model.Job) {
	for i := 0; i+1 < len(queue); i++ {
		p := 0.5 - e.RandParams.Pi
		if queue[i].TardinessWeight > queue[i+1].TardinessWeight {
			p = 0.5 + e.RandParams.Pi
		}
		if e.Rand.Float64() < p {
			queue[i], queue[i+1] = queue[i+1], queue[i]
		}
	}
}

func (e *Engine) scoreAndInsert(sol *solution.Solution, jobIndex map[string]*model.Job, currentTime float64, elite *solution.EliteSet) {
	cost := proxycost.Compute(sol, jobIndex, e.Catalogue, currentTime, e.Proxy)
	elite.Insert(sol, cost)
}

// order sorts queue in place per method's variant ordering. Go's sort.Slice
// is not guaranteed stable; SliceStable is used throughout so ties break by
// original (insertion) order, matching the ordering guarantee in the spec.
func order(method Method, queue []*model.Job) {
	switch method {
	case FIFO:
		sort.SliceStable(queue, func(i, j int) bool { return queue[i].SubmissionTime < queue[j].SubmissionTime })
	case EDF:
		sort.SliceStable(queue, func(i, j int) bool { return queue[i].Deadline < queue[j].Deadline })
	case Priority:
		sort.SliceStable(queue, func(i, j int) bool { return queue[i].TardinessWeight > queue[j].TardinessWeight })
	case Greedy, RandomGreedy:
		orderByDescendingPressure(queue)
	}
}

func orderByDescendingPressure(queue []*model.Job) {
	sort.SliceStable(queue, func(i, j int) bool { return queue[i].Pressure > queue[j].Pressure })
}

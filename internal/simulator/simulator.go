// Package simulator drives the discrete-event loop that submits jobs,
// invokes the construction engine and local search each scheduling instant,
// advances per-job progress, and accounts GPU/node/tardiness cost.
package simulator

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/ai-sprint-eu-project/GPUScheduler/internal/catalogue"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/engine"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/localsearch"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/model"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/proxycost"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/resourcemap"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/solution"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/timetable"
)

// Tolerance is the completion-percent and cost comparison slack (TOL in
// the source material).
const Tolerance = 1e-7

// Totals accumulates the summary row the emitter appends at the end of a
// run.
type Totals struct {
	Tardi      float64
	TardiCost  float64
	NodeCost   float64
	GPUCost    float64
	EnergyCost float64
	GrandCost  float64
}

// StepRecord is one committed-solution snapshot, ready for the emitter to
// turn into output schedule rows.
type StepRecord struct {
	Iteration int
	SimTime   float64
	Solution  *solution.Solution
}

// Config bundles the run-level parameters a CLI or config file supplies.
type Config struct {
	Method             engine.Method
	K                  int
	L                  int
	SchedulingInterval float64
	Stochastic         bool
	MaxIterations      int
}

// DefaultConfig mirrors the source's defaults: K=5 elite solutions, L=10
// local-search iterations, a one-second scheduling tick.
func DefaultConfig() Config {
	return Config{
		Method:             engine.Greedy,
		K:                  5,
		L:                  10,
		SchedulingInterval: 1.0,
		MaxIterations:      100000,
	}
}

// Simulator owns the master cluster ResourceMap and the full job roster.
// Construction always works on a clone, so the master is never assigned
// against; the committed Solution's own snapshot carries the current
// reservations (see releaseSchedule).
type Simulator struct {
	cfg Config

	allJobs    []*model.Job // from nextJobIdx on: not yet submitted, sorted ascending by submission time
	jobIndex   map[string]*model.Job
	tt         *timetable.TimeTable
	cat        catalogue.Catalogue
	resources  *resourcemap.ResourceMap
	eng        *engine.Engine
	ls         *localsearch.LocalSearch
	proxy      proxycost.Variant
	log        *zap.SugaredLogger

	currentTime  float64
	nextJobIdx   int
	submitted    map[string]*model.Job
	iter         int
	firstFinish  float64
	prevCP       map[string]float64
	committed    *solution.Solution
	totals       Totals
}

// New builds a Simulator over jobs (any order; it is sorted internally).
func New(cfg Config, jobs []*model.Job, tt *timetable.TimeTable, cat catalogue.Catalogue, rm *resourcemap.ResourceMap, proxy proxycost.Variant, log *zap.SugaredLogger) *Simulator {
	all := make([]*model.Job, len(jobs))
	copy(all, jobs)
	sort.SliceStable(all, func(i, j int) bool { return all[i].SubmissionTime < all[j].SubmissionTime })

	idx := make(map[string]*model.Job, len(all))
	for _, j := range all {
		idx[j.ID] = j
	}

	eng := engine.New(tt, cat, proxy, nil, log)
	ls := localsearch.New(tt, cat, proxy, log)

	return &Simulator{
		cfg:         cfg,
		allJobs:     all,
		jobIndex:    idx,
		tt:          tt,
		cat:         cat,
		resources:   rm,
		eng:         eng,
		ls:          ls,
		proxy:       proxy,
		log:         log,
		submitted:   make(map[string]*model.Job),
		prevCP:      make(map[string]float64),
		firstFinish: math.Inf(1),
	}
}

// Run drives the event loop to completion (or cfg.MaxIterations, whichever
// comes first), returning one StepRecord per committed scheduling instant
// and the accumulated cost totals.
func (s *Simulator) Run() ([]*StepRecord, Totals) {
	var records []*StepRecord

	for s.iter < s.cfg.MaxIterations {
		iteration, simTime, sol, _, ok := s.Step()
		if !ok {
			break
		}
		records = append(records, &StepRecord{Iteration: iteration, SimTime: simTime, Solution: sol})
	}

	return records, s.totals
}

// AdmitJob adds a job discovered after construction (a live job source)
// to the roster so the next Step submits it in turn.
func (s *Simulator) AdmitJob(j *model.Job) {
	pending := s.allJobs[s.nextJobIdx:]
	pos := s.nextJobIdx + sort.Search(len(pending), func(i int) bool { return pending[i].SubmissionTime > j.SubmissionTime })
	s.allJobs = append(s.allJobs, nil)
	copy(s.allJobs[pos+1:], s.allJobs[pos:])
	s.allJobs[pos] = j
	s.jobIndex[j.ID] = j
}

// Step advances the simulator by one scheduling instant: it submits due
// jobs, accounts for the previously committed solution's progress,
// constructs and improves a new Solution, and commits it. ok is false once
// the run has terminated (no more jobs, nothing left running) or
// MaxIterations has been reached.
func (s *Simulator) Step() (iteration int, simTime float64, sol *solution.Solution, totals Totals, ok bool) {
	if s.iter >= s.cfg.MaxIterations {
		return 0, 0, nil, s.totals, false
	}

	elapsed := s.submitJobs()

	allCompleted := true
	if s.iter > 0 && s.committed != nil {
		allCompleted = s.updateScheduledJobs(elapsed)
		s.decayPartialJobs()
		if allCompleted && s.hasMoreJobs() {
			s.forceSubmitNext()
		}
	}

	if len(s.submitted) == 0 && !s.hasMoreJobs() {
		return 0, 0, nil, s.totals, false
	}
	if s.nextJobIdx >= len(s.allJobs) && allCompleted && s.iter > 0 {
		return 0, 0, nil, s.totals, false
	}

	best := s.buildSystemAndSchedule()
	s.committed = best
	s.firstFinish = best.FirstFinishTime

	iteration, simTime = s.iter, s.currentTime
	s.iter++
	return iteration, simTime, best, s.totals, true
}

func (s *Simulator) hasMoreJobs() bool {
	return s.nextJobIdx < len(s.allJobs)
}

// submitJobs advances the submission window by elapsed = min(interval,
// first_finish), admitting every job whose submission time falls within
// it, and clamps current_time to the latest admission.
func (s *Simulator) submitJobs() float64 {
	elapsed := s.cfg.SchedulingInterval
	if s.firstFinish < elapsed {
		elapsed = s.firstFinish
	}
	if math.IsInf(elapsed, 1) {
		elapsed = s.cfg.SchedulingInterval
	}

	windowEnd := s.currentTime + elapsed
	admittedAny := false
	latest := s.currentTime
	for s.nextJobIdx < len(s.allJobs) {
		j := s.allJobs[s.nextJobIdx]
		if j.SubmissionTime > windowEnd {
			break
		}
		s.submitted[j.ID] = j
		admittedAny = true
		if j.SubmissionTime > latest {
			latest = j.SubmissionTime
		}
		s.nextJobIdx++
	}

	old := s.currentTime
	if admittedAny {
		s.currentTime = latest
	} else {
		s.currentTime = windowEnd
	}
	return s.currentTime - old
}

func (s *Simulator) forceSubmitNext() {
	if s.nextJobIdx >= len(s.allJobs) {
		return
	}
	j := s.allJobs[s.nextJobIdx]
	s.submitted[j.ID] = j
	s.currentTime = j.SubmissionTime
	s.nextJobIdx++
}

// buildSystemAndSchedule updates min-max exec time and then pressure for
// every job in the roster, then either rebuilds the whole queue from scratch against
// the pristine master ResourceMap (Greedy/RandomGreedy re-init the full
// cluster every step) or, for the first-principle methods, schedules only
// not-yet-running jobs against the previous commit's resource snapshot and
// carries running jobs forward unchanged.
func (s *Simulator) buildSystemAndSchedule() *solution.Solution {
	for _, j := range s.allJobs {
		if min, max, ok := s.tt.MinMaxExec(j.ID); ok {
			j.MinExecTime, j.MaxExecTime = min, max
		}
		j.UpdatePressure(s.currentTime)
	}

	if s.isFPM() && s.committed != nil {
		return s.buildFirstPrincipleSchedule()
	}
	return s.buildFromScratch(s.resources, s.allSubmittedJobs())
}

// isFPM reports whether method is one of the first-principle methods
// (FIFO/EDF/Priority), which schedule only not-yet-running jobs each step
// instead of re-deriving the whole queue from scratch.
func (s *Simulator) isFPM() bool {
	switch s.cfg.Method {
	case engine.FIFO, engine.EDF, engine.Priority:
		return true
	default:
		return false
	}
}

func (s *Simulator) allSubmittedJobs() []*model.Job {
	queue := make([]*model.Job, 0, len(s.submitted))
	for _, j := range s.submitted {
		queue = append(queue, j)
	}
	return queue
}

// buildFromScratch runs the construction heuristic and local search over
// queue against rm, returning the best Solution found.
func (s *Simulator) buildFromScratch(rm *resourcemap.ResourceMap, queue []*model.Job) *solution.Solution {
	elite := solution.NewEliteSet(s.cfg.K, s.proxy.Comparator())
	s.eng.PerformScheduling(s.cfg.Method, queue, s.jobIndex, rm, s.currentTime, elite)

	improved := s.ls.Improve(elite, queue, s.jobIndex, s.currentTime, s.cfg.L)
	best := improved.Best()
	if best == nil {
		best = solution.New(rm.Clone(), s.iter)
	}
	return best
}

// buildFirstPrincipleSchedule schedules only jobs with no non-empty
// schedule in the previous commit against that commit's resource snapshot
// (already missing the GPUs just freed by jobs that completed this step),
// then merges back the still-running jobs unchanged except for a refreshed,
// possibly decayed, execution time - mirroring add_previously_running_jobs.
func (s *Simulator) buildFirstPrincipleSchedule() *solution.Solution {
	available := s.committed.Resources

	var waiting []*model.Job
	running := make(map[string]*model.Schedule)
	for id, j := range s.submitted {
		if sch := s.committed.Schedules[id]; !sch.Empty() {
			running[id] = sch
		} else {
			waiting = append(waiting, j)
		}
	}

	best := s.buildFromScratch(available, waiting)

	for id, sch := range running {
		carried := sch.Clone()
		if t, ok := s.tt.Lookup(id, carried.Setup()); ok {
			carried.SelectedTime = t
		} else {
			carried.SelectedTime = math.Inf(1)
		}
		best.Set(id, carried)
	}
	best.ComputeFirstFinishTime()
	return best
}

// updateScheduledJobs advances completion accounting for the previously
// committed solution by elapsed seconds, releasing any job that reaches
// 100% back to the committed solution's resource snapshot. It reports
// whether every submitted job has now completed.
func (s *Simulator) updateScheduledJobs(elapsed float64) bool {
	allCompleted := true

	for jobID, sch := range s.committed.Schedules {
		job := s.jobIndex[jobID]
		if job == nil || sch.Empty() {
			continue
		}

		sch.Iteration = s.iter
		sch.SimTime = s.currentTime
		sch.ExecutionTime = elapsed

		cpStep := 0.0
		if sch.SelectedTime > 0 {
			cpStep = elapsed * 100 / sch.SelectedTime
		}
		prevCP := s.prevCP[jobID]
		cp := prevCP + cpStep*(100-prevCP)/100
		sch.CompletionPercentStep = cpStep
		sch.CompletionPercent = cp

		used := s.usedOnNode(sch)
		rate, _ := s.cat.UnitCost(sch.GPUType, used)
		sch.GPUCost = elapsed * rate / 3600 * float64(sch.AssignedGPUCount) / float64(used) * sch.AssignedGPUFraction
		s.totals.GPUCost += sch.GPUCost

		if cp >= 100-Tolerance {
			sch.FinishTime = s.currentTime
			sch.StartTime = sch.FinishTime - s.cumulativeExecTime(jobID)
			sch.Tardiness = max0(s.currentTime - job.Deadline)
			sch.TardinessCost = sch.Tardiness * job.TardinessWeight
			s.totals.Tardi += sch.Tardiness
			s.totals.TardiCost += sch.TardinessCost

			s.releaseSchedule(sch)
			delete(s.submitted, jobID)
			delete(s.prevCP, jobID)
		} else {
			sch.Tardiness = 0
			s.prevCP[jobID] = cp
			allCompleted = false
		}
	}

	nodeCost := s.committed.Resources.ComputeNodeCost(elapsed)
	s.totals.NodeCost += nodeCost
	s.totals.EnergyCost = s.totals.NodeCost + s.totals.GPUCost
	s.totals.GrandCost = s.totals.EnergyCost + s.totals.TardiCost

	return allCompleted
}

// cumulativeExecTime is a best-effort reconstruction of how long jobID has
// been running, used only to populate StartTime for the emitted row.
func (s *Simulator) cumulativeExecTime(jobID string) float64 {
	sch := s.committed.Schedules[jobID]
	if sch == nil || sch.CompletionPercent <= 0 {
		return 0
	}
	return sch.SelectedTime * sch.CompletionPercent / 100
}

// usedOnNode returns how many whole GPUs of sch's type are in use on sch's
// node according to the previous commit's resource snapshot - the only map
// that reflects actual co-located reservations, since the master
// ResourceMap stays pristine across the whole run.
func (s *Simulator) usedOnNode(sch *model.Schedule) int {
	if s.committed != nil {
		if n := s.committed.Resources.UsedGPUs(sch.GPUType, sch.NodeID); n > 0 {
			return n
		}
	}
	return sch.AssignedGPUCount
}

// releaseSchedule gives a completed job's GPUs back to the previous
// commit's resource snapshot, not the pristine master map: the master is
// never assigned against directly (construction always clones it), so
// releasing there would inflate its capacity past each node's GPUCount.
func (s *Simulator) releaseSchedule(sch *model.Schedule) {
	s.committed.Resources.Release([]resourcemap.ReleaseItem{{
		NodeID:      sch.NodeID,
		GPUType:     sch.GPUType,
		GPUCount:    sch.AssignedGPUCount,
		GPUFraction: sch.AssignedGPUFraction,
		GPUIndex:    sch.GPUIndex,
		Shared:      sch.AssignedGPUFraction < 1,
	}})
}

// decayPartialJobs applies the TimeTable decay rule to every still-running
// job in the just-processed commit, using the step completion percent
// updateScheduledJobs just computed for it.
func (s *Simulator) decayPartialJobs() {
	for jobID, sch := range s.committed.Schedules {
		if sch.Empty() || sch.CompletionPercent >= 100-Tolerance {
			continue
		}
		var ratioAvg float64
		if job := s.jobIndex[jobID]; job != nil {
			ratioAvg = job.RatioAvg
		}
		s.tt.Decay(jobID, sch.CompletionPercentStep, ratioAvg)
	}
}

func max0(x float64) float64 {
	if x < 0 {
		return 0
	}
	return x
}

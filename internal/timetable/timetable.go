// Package timetable implements the immutable (at load time) lookup from a
// (job, GPU type, GPU count, GPU fraction) setup to its expected execution
// time, together with the decay rule applied to partially completed jobs.
package timetable

import (
	"math"

	"go.uber.org/zap"

	"github.com/ai-sprint-eu-project/GPUScheduler/internal/model"
)

// Entry is one (setup, expected execution seconds) pair for a job.
type Entry struct {
	Setup model.Setup
	Time  float64
}

// TimeTable holds, per job id, the set of setups it has a recorded or
// decayed execution time for. Real (undecayed) times are retained
// separately so the decay rule's ratio_avg × real_time fallback can be
// computed once every decayed entry for a job reaches zero.
type TimeTable struct {
	entries map[string]map[model.Setup]float64
	real    map[string]map[model.Setup]float64
	log     *zap.SugaredLogger
}

// New returns an empty TimeTable.
func New(log *zap.SugaredLogger) *TimeTable {
	return &TimeTable{
		entries: make(map[string]map[model.Setup]float64),
		real:    make(map[string]map[model.Setup]float64),
		log:     log,
	}
}

// Load records (or overwrites) the expected execution time for jobID under
// setup, and seeds the real-time fallback table with the same value. Call
// this once per CSV row at start-up.
func (t *TimeTable) Load(jobID string, setup model.Setup, execSeconds float64) {
	if t.entries[jobID] == nil {
		t.entries[jobID] = make(map[model.Setup]float64)
		t.real[jobID] = make(map[model.Setup]float64)
	}
	t.entries[jobID][setup] = execSeconds
	t.real[jobID][setup] = execSeconds
}

// Lookup returns the current (possibly decayed) expected execution time for
// (jobID, setup) and whether an entry exists at all.
func (t *TimeTable) Lookup(jobID string, setup model.Setup) (float64, bool) {
	row, ok := t.entries[jobID]
	if !ok {
		return 0, false
	}
	v, ok := row[setup]
	return v, ok
}

// Entries returns every (setup, time) pair recorded for jobID, in no
// particular order. Callers must not mutate the returned slice's backing
// setups map.
func (t *TimeTable) Entries(jobID string) []Entry {
	row := t.entries[jobID]
	out := make([]Entry, 0, len(row))
	for s, v := range row {
		out = append(out, Entry{Setup: s, Time: v})
	}
	return out
}

// HasJob reports whether any entry exists for jobID.
func (t *TimeTable) HasJob(jobID string) bool {
	return len(t.entries[jobID]) > 0
}

// MinMaxExec returns the minimum and maximum current (decayed) execution
// time across every setup recorded for jobID. ok is false when the job has
// no entries at all.
func (t *TimeTable) MinMaxExec(jobID string) (min, max float64, ok bool) {
	row := t.entries[jobID]
	if len(row) == 0 {
		return 0, 0, false
	}
	min, max = math.Inf(1), math.Inf(-1)
	for _, v := range row {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max, true
}

// Decay applies the partial-completion decay rule to every setup recorded
// for jobID: each entry is scaled by (100-cpStep)/100. An entry that
// reaches (approximately) zero is reset to ratioAvg × its original real
// time when a real entry is available, or +Inf (NumericOverflow, non-fatal)
// otherwise.
func (t *TimeTable) Decay(jobID string, cpStep float64, ratioAvg float64) {
	row := t.entries[jobID]
	if row == nil {
		return
	}
	factor := (100 - cpStep) / 100
	realRow := t.real[jobID]
	for s, v := range row {
		decayed := v * factor
		if decayed <= 1e-9 {
			if realRow != nil {
				if rt, ok := realRow[s]; ok && rt > 0 {
					decayed = ratioAvg * rt
				} else {
					decayed = math.Inf(1)
				}
			} else {
				decayed = math.Inf(1)
			}
			if t.log != nil && math.IsInf(decayed, 1) {
				t.log.Debugw("timetable entry decayed to zero with no real-time fallback", "job", jobID, "setup", s)
			}
		}
		row[s] = decayed
	}
}

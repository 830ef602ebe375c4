// Package emitter turns committed Solutions into the two CSV artifacts the
// scheduler is expected to produce: a per-step schedule file and an
// appended totals summary row.
package emitter

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/ai-sprint-eu-project/GPUScheduler/internal/engine"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/model"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/simulator"
)

var scheduleHeader = []string{
	"n_iterate", "sim_time", "job_ID", "SubmissionTime", "Deadline", "TardinessWeight",
	"SelectedTime", "ExecutionTime", "CompletionPercent", "StartTime", "FinishTime",
	"node_ID", "GPUtype", "n_assigned_GPUs", "assigned_GPU_f", "GPU_ID",
	"Tardiness", "GPUcost", "TardinessCost", "TotalCost",
}

var totalsHeader = []string{
	"method", "seed", "total_tardi", "total_tardiCost", "total_nodeCost",
	"total_GPUcost", "total_energyCost", "total_cost",
}

// WriteSchedule writes one row per (job, committed step) to path.
func WriteSchedule(path string, records []*simulator.StepRecord, jobs map[string]*model.Job) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("emitter: creating schedule file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(scheduleHeader); err != nil {
		return fmt.Errorf("emitter: writing schedule header: %w", err)
	}

	for _, rec := range records {
		for jobID, sch := range rec.Solution.Schedules {
			job := jobs[jobID]
			row := scheduleRow(rec.Iteration, rec.SimTime, jobID, job, sch)
			if err := w.Write(row); err != nil {
				return fmt.Errorf("emitter: writing schedule row: %w", err)
			}
		}
	}
	return w.Error()
}

func scheduleRow(iter int, simTime float64, jobID string, job *model.Job, sch *model.Schedule) []string {
	total := sch.GPUCost + sch.TardinessCost
	f := func(v float64) string { return fmt.Sprintf("%g", v) }

	var deadline, weight, submission string
	if job != nil {
		submission, deadline, weight = f(job.SubmissionTime), f(job.Deadline), f(job.TardinessWeight)
	}

	return []string{
		fmt.Sprintf("%d", iter), f(simTime), jobID, submission, deadline, weight,
		f(sch.SelectedTime), f(sch.ExecutionTime), f(sch.CompletionPercent), f(sch.StartTime), f(sch.FinishTime),
		sch.NodeID, sch.GPUType, fmt.Sprintf("%d", sch.AssignedGPUCount), f(sch.AssignedGPUFraction), fmt.Sprintf("%d", sch.GPUIndex),
		f(sch.Tardiness), f(sch.GPUCost), f(sch.TardinessCost), f(total),
	}
}

// AppendTotals appends one summary row to path, creating the file (with
// header) if it does not exist yet.
func AppendTotals(path string, method engine.Method, seed uint32, totals simulator.Totals) error {
	exists := true
	if _, err := os.Stat(path); err != nil {
		exists = false
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("emitter: opening totals file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if !exists {
		if err := w.Write(totalsHeader); err != nil {
			return fmt.Errorf("emitter: writing totals header: %w", err)
		}
	}

	row := []string{
		method.String(), fmt.Sprintf("%d", seed),
		fmt.Sprintf("%g", totals.Tardi), fmt.Sprintf("%g", totals.TardiCost),
		fmt.Sprintf("%g", totals.NodeCost), fmt.Sprintf("%g", totals.GPUCost),
		fmt.Sprintf("%g", totals.EnergyCost), fmt.Sprintf("%g", totals.GrandCost),
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("emitter: writing totals row: %w", err)
	}
	return w.Error()
}

// Package liveloop drives the scheduler continuously against a live job
// source (rather than a bounded simulation run), re-invoking the
// construction engine and local search on a cron schedule.
package liveloop

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ai-sprint-eu-project/GPUScheduler/internal/simulator"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/solution"
)

// Source supplies newly-submitted jobs to the live loop between ticks.
type Source interface {
	PollNewJobs(ctx context.Context) (jobCount int, err error)
}

// Sink is notified after every committed step, so a status server or store
// can publish the result.
type Sink interface {
	Publish(iteration int, simTime float64, sol *solution.Solution, totals simulator.Totals)
}

// Controller runs the Simulator's single-step logic on a cron schedule
// instead of driving it to completion in one call.
type Controller struct {
	sim    *simulator.Simulator
	source Source
	sink   Sink
	log    *zap.SugaredLogger

	cron *cron.Cron
}

// New builds a live-mode Controller. sim must already be constructed with
// the live cluster's ResourceMap, TimeTable, and Catalogue.
func New(sim *simulator.Simulator, source Source, sink Sink, log *zap.SugaredLogger) *Controller {
	return &Controller{sim: sim, source: source, sink: sink, log: log}
}

// Start schedules the live loop's step function according to schedule (a
// standard five-field cron expression or a descriptor such as "@every 1m")
// and blocks until
// ctx is cancelled.
func (c *Controller) Start(ctx context.Context, schedule string) error {
	c.cron = cron.New()
	if _, err := c.cron.AddFunc(schedule, func() { c.tick(ctx) }); err != nil {
		return err
	}
	c.cron.Start()
	defer c.cron.Stop()

	<-ctx.Done()
	return ctx.Err()
}

func (c *Controller) tick(ctx context.Context) {
	if c.source != nil {
		n, err := c.source.PollNewJobs(ctx)
		if err != nil {
			c.log.Errorw("polling live job source failed", "error", err)
			return
		}
		if n > 0 {
			c.log.Infow("admitted new jobs from live source", "count", n)
		}
	}

	iteration, simTime, sol, totals, ok := c.sim.Step()
	if !ok {
		return
	}
	if c.sink != nil {
		c.sink.Publish(iteration, simTime, sol, totals)
	}
}

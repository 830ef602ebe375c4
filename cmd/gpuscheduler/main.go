// Command gpuscheduler drives the deadline-aware GPU job scheduler against
// a folder of CSV inputs, mirroring the source tool's CLI contract:
// method=, folder=, current_time=, seed=, verbose=, simulation=,
// stochastic=.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/ai-sprint-eu-project/GPUScheduler/internal/config"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/emitter"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/engine"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/liveloop"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/loader"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/model"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/proxycost"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/schedlog"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/schedmetrics"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/schedstore"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/simulator"
	"github.com/ai-sprint-eu-project/GPUScheduler/internal/statusserver"

	"github.com/prometheus/client_golang/prometheus"
)

var methodNames = map[string]engine.Method{
	"FIFO": engine.FIFO,
	"EDF":  engine.EDF,
	"PS":   engine.Priority,
	"G":    engine.Greedy,
	"RG":   engine.RandomGreedy,
}

func main() {
	method := flag.String("method", "G", "construction method: FIFO|EDF|PS|G|RG")
	folder := flag.String("folder", ".", "input CSV directory (Lof_Selectjobs.csv, SelectJobs_times.csv, tNodes.csv, GPU-costs.csv)")
	_ = flag.Float64("current_time", 0, "simulation clock start, in seconds (reserved: the simulator derives its own clock from job submission times)")
	seed := flag.Uint("seed", 1, "RNG seed, written to totals.csv and the store; the engine's RandomGreedy generator is always seeded with 1")
	verbose := flag.Int("verbose", 1, "log verbosity, 0..3")
	simulation := flag.Bool("simulation", true, "run a bounded simulation to completion rather than the live loop")
	stochastic := flag.Bool("stochastic", false, "stochastic mode flag, recorded in the config; the simulator's accounting is the same with or without it")
	configPath := flag.String("config", "", "optional YAML config overlaying the defaults; -method, -seed, -verbose, -stochastic, -folder and -output override its values")
	outputDir := flag.String("output", ".", "directory schedule.csv and totals.csv are written to")
	flag.Parse()

	log := schedlog.New(*verbose)
	defer log.Sync() //nolint:errcheck

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.LoadFromFile(*configPath)
		if err != nil {
			log.Fatalw("loading config file", "path", *configPath, "error", err)
		}
		cfg = loaded
	}
	cfg.Method = *method
	cfg.Seed = uint32(*seed)
	cfg.Verbose = *verbose
	cfg.Stochastic = *stochastic
	cfg.InputDir = *folder
	cfg.OutputDir = *outputDir

	if err := cfg.Validate(); err != nil {
		log.Fatalw("invalid configuration", "error", err)
	}

	meth, ok := methodNames[cfg.Method]
	if !ok {
		log.Fatalw("unknown method", "method", cfg.Method)
	}

	bundle, err := loader.LoadDir(cfg.InputDir)
	if err != nil {
		// InputMissing / SchemaMismatch: the only errors that propagate to
		// main as a startup failure; every other condition is absorbed
		// inside the engine as an empty Schedule.
		log.Fatalw("scheduler not initialized: failed to load inputs", "error", err)
	}
	jobsByID := indexJobs(bundle.Jobs)

	proxyVariant := proxycost.MinCost
	if cfg.Proxy.Variant == "ThroughputMax" {
		proxyVariant = proxycost.ThroughputMax
	}

	var metrics *schedmetrics.Metrics
	var state *statusserver.State
	if cfg.StatusServer.Enabled {
		metrics = schedmetrics.New(prometheus.DefaultRegisterer)
		state = &statusserver.State{}
		srv := statusserver.NewServer(cfg.StatusServer.Addr, state)
		go func() {
			log.Infow("status server listening", "addr", cfg.StatusServer.Addr)
			if err := srv.ListenAndServe(); err != nil {
				log.Warnw("status server stopped", "error", err)
			}
		}()
	}

	var store *schedstore.Store
	if cfg.Store.Enabled {
		store, err = schedstore.Open(schedstore.Config{Path: cfg.Store.Path, RetentionPeriod: cfg.Store.RetentionPeriod})
		if err != nil {
			log.Fatalw("opening schedule store", "error", err)
		}
		defer store.Close()
	}

	simCfg := simulator.Config{
		Method:             meth,
		K:                  cfg.K,
		L:                  cfg.L,
		SchedulingInterval: cfg.SchedulingInterval.Seconds(),
		Stochastic:         cfg.Stochastic,
		MaxIterations:      cfg.MaxIterations,
	}
	sim := simulator.New(simCfg, bundle.Jobs, bundle.TimeTable, bundle.Catalogue, bundle.Resources, proxyVariant, log)

	if !*simulation {
		runLive(sim, cfg, state, log)
		return
	}

	records, totals := sim.Run()
	metrics.ObserveTotals(totals)

	for _, rec := range records {
		bestCost := proxycost.Compute(rec.Solution, jobsByID, bundle.Catalogue, rec.SimTime, proxyVariant)
		metrics.ObserveStep(len(rec.Solution.Schedules), bestCost)
		if state != nil {
			state.Publish(rec.Iteration, rec.SimTime, rec.Solution, totals)
		}
		if store != nil {
			if err := store.RecordStep(rec.Iteration, rec.SimTime, storeRows(rec)); err != nil {
				log.Warnw("persisting schedule step", "error", err)
			}
		}
	}

	schedulePath := filepath.Join(cfg.OutputDir, "schedule.csv")
	if err := emitter.WriteSchedule(schedulePath, records, jobsByID); err != nil {
		log.Fatalw("writing schedule output", "error", err)
	}
	totalsPath := filepath.Join(cfg.OutputDir, "totals.csv")
	if err := emitter.AppendTotals(totalsPath, meth, cfg.Seed, totals); err != nil {
		log.Fatalw("writing totals summary", "error", err)
	}
	if store != nil {
		if err := store.RecordTotals(cfg.Method, cfg.Seed, totals); err != nil {
			log.Warnw("persisting totals to store", "error", err)
		}
	}

	log.Infow("simulation complete",
		"steps", len(records),
		"total_tardi", totals.Tardi,
		"total_cost", totals.GrandCost,
	)
}

func indexJobs(jobs []*model.Job) map[string]*model.Job {
	idx := make(map[string]*model.Job, len(jobs))
	for _, j := range jobs {
		idx[j.ID] = j
	}
	return idx
}

func storeRows(rec *simulator.StepRecord) []schedstore.Row {
	rows := make([]schedstore.Row, 0, len(rec.Solution.Schedules))
	for _, sch := range rec.Solution.Schedules {
		if sch.Empty() {
			continue
		}
		rows = append(rows, schedstore.Row{
			Iteration:         rec.Iteration,
			SimTime:           rec.SimTime,
			JobID:             sch.JobID,
			NodeID:            sch.NodeID,
			GPUType:           sch.GPUType,
			GPUCount:          sch.AssignedGPUCount,
			GPUFraction:       sch.AssignedGPUFraction,
			SelectedTime:      sch.SelectedTime,
			CompletionPercent: sch.CompletionPercent,
			Tardiness:         sch.Tardiness,
			TardinessCost:     sch.TardinessCost,
		})
	}
	return rows
}

func runLive(sim *simulator.Simulator, cfg *config.Config, state *statusserver.State, log *zap.SugaredLogger) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sink liveloop.Sink
	if state != nil {
		sink = state
	}

	ctrl := liveloop.New(sim, nil, sink, log)
	schedule := cfg.LiveMode.Schedule
	if schedule == "" {
		schedule = "@every 1m"
	}
	if err := ctrl.Start(ctx, schedule); err != nil && err != context.Canceled {
		log.Fatalw("live loop stopped", "error", err)
	}
}

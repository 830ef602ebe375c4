// Package schedmetrics exposes the scheduler's running state as Prometheus
// metrics: per-step elite cost, queue depth, and cumulative cost totals.
package schedmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ai-sprint-eu-project/GPUScheduler/internal/simulator"
)

// Metrics holds the scheduler's Prometheus instrumentation. Create one per
// process with New and register it on a *prometheus.Registry, or leave it
// nil-safe: every method tolerates a nil receiver so instrumentation stays
// optional.
type Metrics struct {
	iterations      prometheus.Counter
	submittedJobs   prometheus.Gauge
	bestCost        prometheus.Gauge
	tardiJobsTotal  prometheus.Counter
	tardinessCost   prometheus.Gauge
	nodeCost        prometheus.Gauge
	gpuCost         prometheus.Gauge
	energyCost      prometheus.Gauge
	grandTotalCost  prometheus.Gauge
}

// New registers the scheduler's metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		iterations: factory.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_iterations_total",
			Help: "Number of scheduling steps committed by the simulator.",
		}),
		submittedJobs: factory.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_submitted_jobs",
			Help: "Number of jobs currently submitted and not yet completed.",
		}),
		bestCost: factory.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_best_proxy_cost",
			Help: "Proxy cost of the committed Solution at the last step.",
		}),
		tardiJobsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "scheduler_tardy_completions_total",
			Help: "Number of jobs that completed past their deadline.",
		}),
		tardinessCost: factory.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_total_tardiness_cost",
			Help: "Cumulative weighted tardiness cost.",
		}),
		nodeCost: factory.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_total_node_cost",
			Help: "Cumulative node lease cost.",
		}),
		gpuCost: factory.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_total_gpu_cost",
			Help: "Cumulative GPU energy cost.",
		}),
		energyCost: factory.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_total_energy_cost",
			Help: "Cumulative node + GPU cost.",
		}),
		grandTotalCost: factory.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_total_cost",
			Help: "Cumulative energy + tardiness cost.",
		}),
	}
}

// ObserveStep records one committed scheduling step.
func (m *Metrics) ObserveStep(submittedCount int, bestCost float64) {
	if m == nil {
		return
	}
	m.iterations.Inc()
	m.submittedJobs.Set(float64(submittedCount))
	m.bestCost.Set(bestCost)
}

// ObserveCompletion records one job finishing, tardy or not.
func (m *Metrics) ObserveCompletion(tardy bool) {
	if m == nil || !tardy {
		return
	}
	m.tardiJobsTotal.Inc()
}

// ObserveTotals snapshots the simulator's running cost totals.
func (m *Metrics) ObserveTotals(t simulator.Totals) {
	if m == nil {
		return
	}
	m.tardinessCost.Set(t.TardiCost)
	m.nodeCost.Set(t.NodeCost)
	m.gpuCost.Set(t.GPUCost)
	m.energyCost.Set(t.EnergyCost)
	m.grandTotalCost.Set(t.GrandCost)
}

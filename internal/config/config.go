// Package config defines the scheduler's YAML-backed configuration: the
// construction method and its tuning knobs, elite/local-search sizing, the
// simulation clock, and the optional ambient services (status server,
// persistence, live mode).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level scheduler configuration.
type Config struct {
	Method     string `yaml:"method"` // FIFO, EDF, PS, G, RG
	Seed       uint32 `yaml:"seed"`
	Verbose    int    `yaml:"verbose"`
	Stochastic bool   `yaml:"stochastic"`

	Proxy ProxyConfig `yaml:"proxy"`

	K                  int           `yaml:"eliteSize"`
	L                  int           `yaml:"localSearchIterations"`
	SchedulingInterval time.Duration `yaml:"schedulingInterval"`
	MaxIterations       int          `yaml:"maxIterations"`

	RandomGreedy RandomGreedyConfig `yaml:"randomGreedy"`

	InputDir  string `yaml:"inputDir"`
	OutputDir string `yaml:"outputDir"`

	StatusServer StatusServerConfig `yaml:"statusServer"`
	Store        StoreConfig        `yaml:"store"`
	LiveMode     LiveModeConfig     `yaml:"liveMode"`
	HTTPSolver   HTTPSolverConfig   `yaml:"httpSolver"`
}

// ProxyConfig selects and tunes the ranking cost function.
type ProxyConfig struct {
	Variant string `yaml:"variant"` // "MinCost" or "ThroughputMax"
}

// RandomGreedyConfig holds the RandomGreedy tuning values. Validate checks
// them, but cmd/gpuscheduler does not pass them on: the engine runs
// RandomGreedy with engine.DefaultRandomGreedyParams.
type RandomGreedyConfig struct {
	Alpha      float64 `yaml:"alpha"`
	Pi         float64 `yaml:"pi"`
	Iterations int     `yaml:"iterations"`
}

// StatusServerConfig controls the read-only HTTP status API.
type StatusServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// StoreConfig controls sqlite persistence of schedule rows and totals.
type StoreConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Path            string        `yaml:"path"`
	RetentionPeriod time.Duration `yaml:"retentionPeriod"`
}

// LiveModeConfig controls the cron-driven continuous scheduling loop used
// when simulation=False.
type LiveModeConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
}

// HTTPSolverConfig configures the external stochastic solver boundary.
type HTTPSolverConfig struct {
	Enabled bool          `yaml:"enabled"`
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns a Config with sensible defaults for an offline
// simulation run.
func DefaultConfig() *Config {
	cfg := &Config{
		Method:             "G",
		Seed:               1,
		Verbose:            1,
		Proxy:              ProxyConfig{Variant: "MinCost"},
		K:                  5,
		L:                  10,
		SchedulingInterval: time.Second,
		MaxIterations:      100000,
		RandomGreedy: RandomGreedyConfig{
			Alpha:      0.3,
			Pi:         0.1,
			Iterations: 20,
		},
		InputDir:  ".",
		OutputDir: ".",
		StatusServer: StatusServerConfig{
			Enabled: false,
			Addr:    ":8090",
		},
		Store: StoreConfig{
			Enabled:         false,
			Path:            "scheduler.db",
			RetentionPeriod: 7 * 24 * time.Hour,
		},
		LiveMode: LiveModeConfig{
			Enabled:  false,
			Schedule: "@every 1m",
		},
		HTTPSolver: HTTPSolverConfig{
			Enabled: false,
			Timeout: 5 * time.Second,
		},
	}
	cfg.applyEnvOverrides()
	return cfg
}

// LoadFromFile loads config from a YAML file, overlaying on defaults.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides reads SCHEDULER_SOLVER_URL into HTTPSolver.URL when
// that field is empty, and SCHEDULER_SEED into Seed whenever it parses
// (replacing any seed already set), for deployments that inject the solver
// URL or seed via the process env rather than a checked-in config file.
func (c *Config) applyEnvOverrides() {
	if c.HTTPSolver.URL == "" {
		if v := os.Getenv("SCHEDULER_SOLVER_URL"); v != "" {
			c.HTTPSolver.URL = v
		}
	}
	if v := os.Getenv("SCHEDULER_SEED"); v != "" {
		var seed uint32
		if _, err := fmt.Sscanf(v, "%d", &seed); err == nil {
			c.Seed = seed
		}
	}
}

// Validate checks the config for errors.
func (c *Config) Validate() error {
	switch c.Method {
	case "FIFO", "EDF", "PS", "G", "RG":
	default:
		return fmt.Errorf("invalid method %q: must be FIFO, EDF, PS, G, or RG", c.Method)
	}

	switch c.Proxy.Variant {
	case "MinCost", "ThroughputMax":
	default:
		return fmt.Errorf("invalid proxy variant %q: must be MinCost or ThroughputMax", c.Proxy.Variant)
	}

	if c.K < 1 {
		return fmt.Errorf("eliteSize (K) must be >= 1, got %d", c.K)
	}
	if c.L < 0 {
		return fmt.Errorf("localSearchIterations (L) must be >= 0, got %d", c.L)
	}
	if c.SchedulingInterval <= 0 {
		return fmt.Errorf("schedulingInterval must be > 0, got %s", c.SchedulingInterval)
	}

	if c.Method == "RG" {
		if c.RandomGreedy.Alpha <= 0 || c.RandomGreedy.Alpha > 1 {
			return fmt.Errorf("randomGreedy.alpha must be in (0,1], got %.2f", c.RandomGreedy.Alpha)
		}
		if c.RandomGreedy.Iterations < 1 {
			return fmt.Errorf("randomGreedy.iterations must be >= 1, got %d", c.RandomGreedy.Iterations)
		}
	}

	if c.HTTPSolver.Enabled && c.HTTPSolver.URL == "" {
		return fmt.Errorf("httpSolver.url is required when httpSolver.enabled is true")
	}

	return nil
}

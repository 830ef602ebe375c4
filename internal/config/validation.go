package config

import (
	"fmt"
	"strings"
)

// ValidationError collects multiple validation errors so a misconfigured
// run can be reported in one pass instead of one field at a time.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: %s", strings.Join(e.Errors, "; "))
}

func (e *ValidationError) Add(msg string) {
	e.Errors = append(e.Errors, msg)
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ValidateDetailed performs comprehensive config validation, accumulating
// every violation instead of stopping at the first.
func ValidateDetailed(cfg *Config) *ValidationError {
	ve := &ValidationError{}

	switch cfg.Method {
	case "FIFO", "EDF", "PS", "G", "RG":
	default:
		ve.Add(fmt.Sprintf("invalid method %q", cfg.Method))
	}

	switch cfg.Proxy.Variant {
	case "MinCost", "ThroughputMax":
	default:
		ve.Add(fmt.Sprintf("invalid proxy variant %q", cfg.Proxy.Variant))
	}

	if cfg.K < 1 {
		ve.Add("eliteSize must be >= 1")
	}
	if cfg.L < 0 {
		ve.Add("localSearchIterations must be >= 0")
	}
	if cfg.SchedulingInterval <= 0 {
		ve.Add("schedulingInterval must be > 0")
	}

	if cfg.Method == "RG" {
		if cfg.RandomGreedy.Alpha <= 0 || cfg.RandomGreedy.Alpha > 1 {
			ve.Add("randomGreedy.alpha must be in (0,1]")
		}
		if cfg.RandomGreedy.Iterations < 1 {
			ve.Add("randomGreedy.iterations must be >= 1")
		}
	}

	if cfg.StatusServer.Enabled && cfg.StatusServer.Addr == "" {
		ve.Add("statusServer.addr is required when statusServer.enabled is true")
	}

	if cfg.Store.Enabled && cfg.Store.Path == "" {
		ve.Add("store.path is required when store.enabled is true")
	}

	if cfg.LiveMode.Enabled && cfg.LiveMode.Schedule == "" {
		ve.Add("liveMode.schedule is required when liveMode.enabled is true")
	}

	if cfg.HTTPSolver.Enabled && cfg.HTTPSolver.URL == "" {
		ve.Add("httpSolver.url is required when httpSolver.enabled is true")
	}

	if ve.HasErrors() {
		return ve
	}
	return nil
}

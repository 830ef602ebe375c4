package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig() is invalid: %v", err)
	}
}

func TestLoadFromFileOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scheduler.yaml")
	if err := os.WriteFile(path, []byte("method: RG\neliteSize: 8\n"), 0o644); err != nil {
		t.Fatalf("writing fixture config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.Method != "RG" {
		t.Fatalf("Method = %q, want RG", cfg.Method)
	}
	if cfg.K != 8 {
		t.Fatalf("K = %d, want 8 (overlaid)", cfg.K)
	}
	if cfg.L != DefaultConfig().L {
		t.Fatalf("L = %d, want default %d (untouched by the overlay)", cfg.L, DefaultConfig().L)
	}
}

func TestValidateRejectsUnknownMethod(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Method = "bogus"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for an unknown method")
	}
}

func TestValidateDetailedAccumulatesErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Method = "bogus"
	cfg.K = 0
	cfg.SchedulingInterval = 0

	ve := ValidateDetailed(cfg)
	if ve == nil {
		t.Fatal("expected a ValidationError")
	}
	if len(ve.Errors) < 3 {
		t.Fatalf("got %d errors, want at least 3 accumulated: %v", len(ve.Errors), ve.Errors)
	}
}

func TestValidateRequiresRandomGreedyParams(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Method = "RG"
	cfg.RandomGreedy.Alpha = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for alpha=0 under RG")
	}
}

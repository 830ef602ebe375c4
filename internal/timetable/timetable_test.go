package timetable

import (
	"math"
	"testing"

	"github.com/ai-sprint-eu-project/GPUScheduler/internal/model"
)

func TestLookupAndMinMax(t *testing.T) {
	tt := New(nil)
	tt.Load("j1", model.Setup{GPUType: "X", GPUCount: 2, GPUFraction: 1}, 100)
	tt.Load("j1", model.Setup{GPUType: "X", GPUCount: 4, GPUFraction: 1}, 60)

	v, ok := tt.Lookup("j1", model.Setup{GPUType: "X", GPUCount: 2, GPUFraction: 1})
	if !ok || v != 100 {
		t.Fatalf("Lookup = (%v, %v), want (100, true)", v, ok)
	}

	min, max, ok := tt.MinMaxExec("j1")
	if !ok || min != 60 || max != 100 {
		t.Fatalf("MinMaxExec = (%v, %v, %v), want (60, 100, true)", min, max, ok)
	}
}

func TestLookupUnknownJob(t *testing.T) {
	tt := New(nil)
	if _, ok := tt.Lookup("ghost", model.Setup{GPUType: "X", GPUCount: 1, GPUFraction: 1}); ok {
		t.Fatal("expected Lookup on unknown job to report false")
	}
	if _, _, ok := tt.MinMaxExec("ghost"); ok {
		t.Fatal("expected MinMaxExec on unknown job to report false")
	}
}

func TestDecayScalesRemainingEntries(t *testing.T) {
	tt := New(nil)
	setup := model.Setup{GPUType: "X", GPUCount: 2, GPUFraction: 1}
	tt.Load("j1", setup, 100)

	tt.Decay("j1", 30, 0.5)

	v, _ := tt.Lookup("j1", setup)
	if math.Abs(v-70) > 1e-9 {
		t.Fatalf("after 30%% completion, decayed time = %v, want 70", v)
	}
}

func TestDecayToZeroFallsBackToRatioAvg(t *testing.T) {
	tt := New(nil)
	setup := model.Setup{GPUType: "X", GPUCount: 2, GPUFraction: 1}
	tt.Load("j1", setup, 100)

	tt.Decay("j1", 100, 0.8)

	v, _ := tt.Lookup("j1", setup)
	if math.Abs(v-80) > 1e-9 {
		t.Fatalf("after full decay, fallback time = %v, want ratio_avg(0.8) x real_time(100) = 80", v)
	}
}

func TestDecayToZeroWithoutRealFallsBackToInfinity(t *testing.T) {
	tt := New(nil)
	setup := model.Setup{GPUType: "X", GPUCount: 2, GPUFraction: 1}
	tt.entries["j1"] = map[model.Setup]float64{setup: 100}
	// No entry seeded in tt.real for this job: simulates a table with no
	// real-time fallback available.
	tt.real["j1"] = map[model.Setup]float64{}

	tt.Decay("j1", 100, 0.8)

	v, _ := tt.Lookup("j1", setup)
	if !math.IsInf(v, 1) {
		t.Fatalf("expected +Inf when no real-time fallback exists, got %v", v)
	}
}

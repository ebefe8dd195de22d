package sfvalidator

import (
	"testing"
	"time"
)

func TestDefaultOptions(t *testing.T) {
	o := DefaultOptions()

	if o.Level != LevelStandard {
		t.Errorf("level = %s; want %s", o.Level, LevelStandard)
	}
	if o.ContextTTL != time.Hour {
		t.Errorf("ttl = %v; want 1h", o.ContextTTL)
	}
	if o.AttemptBudget != 5 {
		t.Errorf("attempt budget = %d; want 5", o.AttemptBudget)
	}
	if o.RiskThreshold != 7.0 {
		t.Errorf("risk threshold = %f; want 7.0", o.RiskThreshold)
	}
	if o.Logger == nil {
		t.Error("expected a default logger")
	}
}

func TestOptionsApply(t *testing.T) {
	o := DefaultOptions()
	for _, opt := range []Option{
		WithLevel(LevelComprehensive),
		WithContextTTL(10 * time.Minute),
		WithAttemptBudget(9),
		WithSeed(42),
		WithSampling(1000, 200),
		WithSweepDisabled(true),
	} {
		opt(o)
	}

	if o.Level != LevelComprehensive {
		t.Errorf("level = %s; want comprehensive", o.Level)
	}
	if o.ContextTTL != 10*time.Minute {
		t.Errorf("ttl = %v; want 10m", o.ContextTTL)
	}
	if o.AttemptBudget != 9 {
		t.Errorf("budget = %d; want 9", o.AttemptBudget)
	}
	if o.Seed != 42 {
		t.Errorf("seed = %d; want 42", o.Seed)
	}
	if o.SampleThreshold != 1000 || o.SampleSize != 200 {
		t.Errorf("sampling = %d/%d; want 1000/200", o.SampleThreshold, o.SampleSize)
	}
	if !o.DisableSweep {
		t.Error("expected sweep disabled")
	}
}

func TestPresets(t *testing.T) {
	o := DefaultOptions()
	for _, opt := range FastOptions() {
		opt(o)
	}
	if o.Level != LevelBasic || !o.SkipAIAnalysis || o.IncludeWarnings {
		t.Errorf("fast preset misapplied: %+v", o)
	}

	o = DefaultOptions()
	for _, opt := range TestingOptions() {
		opt(o)
	}
	if !o.DisableSweep || o.MaxConcurrentValidations != 1 || o.Seed != 1 {
		t.Errorf("testing preset misapplied: %+v", o)
	}
}

package sfvalidator

import (
	"testing"
	"time"
)

func TestMetricsRecording(t *testing.T) {
	m := NewMetrics()

	m.RecordValidation(10*time.Millisecond, true)
	m.RecordValidation(30*time.Millisecond, false)
	m.RecordRuleEvaluations(12)
	m.RecordCacheHit()
	m.RecordCacheHit()
	m.RecordCacheMiss()
	m.RecordGeneration(3)
	m.RecordIssue(SeverityError)
	m.RecordIssue(SeverityWarning)

	if got := m.ValidationsTotal(); got != 2 {
		t.Errorf("total = %d; want 2", got)
	}
	if got := m.ValidationsValid(); got != 1 {
		t.Errorf("valid = %d; want 1", got)
	}
	if got := m.RulesEvaluated(); got != 12 {
		t.Errorf("rules = %d; want 12", got)
	}
	if got := m.AverageValidationTime(); got != 20*time.Millisecond {
		t.Errorf("avg = %v; want 20ms", got)
	}
	if got := m.MaxValidationTime(); got != 30*time.Millisecond {
		t.Errorf("max = %v; want 30ms", got)
	}
	if got := m.CacheHitRate(); got < 0.66 || got > 0.67 {
		t.Errorf("hit rate = %f; want ~0.667", got)
	}
	if got := m.RecordsGenerated(); got != 1 {
		t.Errorf("generated = %d; want 1", got)
	}
	if got := m.SolverRetries(); got != 3 {
		t.Errorf("retries = %d; want 3", got)
	}
}

func TestMetricsAdvisor(t *testing.T) {
	m := NewMetrics()

	m.RecordAdvisorCall(time.Second, true)
	m.RecordAdvisorCall(time.Second, false)

	if got := m.AdvisorCalls(); got != 2 {
		t.Errorf("calls = %d; want 2", got)
	}
	if got := m.AdvisorFailures(); got != 1 {
		t.Errorf("failures = %d; want 1", got)
	}
}

func TestMetricsCheckStats(t *testing.T) {
	m := NewMetrics()

	m.RecordCheck("constraint", 5*time.Millisecond, 2)
	m.RecordCheck("constraint", 15*time.Millisecond, 0)
	m.RecordCheck("validation_rule", time.Millisecond, 1)

	stats := m.AllCheckStats()
	if len(stats) != 2 {
		t.Fatalf("got %d checks; want 2", len(stats))
	}

	for _, cs := range stats {
		if cs.Name == "constraint" {
			if cs.Invocations != 2 {
				t.Errorf("constraint invocations = %d; want 2", cs.Invocations)
			}
			if cs.IssuesFound != 2 {
				t.Errorf("constraint issues = %d; want 2", cs.IssuesFound)
			}
		}
	}
}

func TestMetricsSnapshotAndReset(t *testing.T) {
	m := NewMetrics()
	m.RecordValidation(time.Millisecond, true)
	m.RecordCacheMiss()

	snap := m.Snapshot()
	if snap.ValidationsTotal != 1 {
		t.Errorf("snapshot total = %d; want 1", snap.ValidationsTotal)
	}
	if snap.CacheMisses != 1 {
		t.Errorf("snapshot misses = %d; want 1", snap.CacheMisses)
	}

	m.Reset()
	if m.ValidationsTotal() != 0 || m.CacheMisses() != 0 {
		t.Error("expected counters cleared after Reset")
	}
}

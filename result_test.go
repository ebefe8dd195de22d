package sfvalidator

import (
	"sync"
	"testing"
)

func TestRecordResultIssues(t *testing.T) {
	r := AcquireResult()
	defer r.Release()

	if !r.Valid {
		t.Error("fresh result should be valid")
	}

	r.AddIssue(Warning(CodeNotSupported).Message("rule skipped").Build())
	if !r.Valid {
		t.Error("warnings should not invalidate the record")
	}

	r.AddIssue(Error(CodeRequired).Message("Name is blank").On("Name").Build())
	if r.Valid {
		t.Error("errors should invalidate the record")
	}

	if got := r.ViolationCount(); got != 1 {
		t.Errorf("violations = %d; want 1", got)
	}
	if got := len(r.Warnings()); got != 1 {
		t.Errorf("warnings = %d; want 1", got)
	}
	if !r.HasViolations() {
		t.Error("expected HasViolations")
	}
}

func TestResultPoolReset(t *testing.T) {
	r := AcquireResult()
	r.AddIssue(Error(CodeFormat).Message("bad email").Build())
	r.RiskScore = 8
	r.RecordIndex = 7
	r.AdvisorConsulted = true
	r.Release()

	r2 := AcquireResult()
	defer r2.Release()

	if !r2.Valid || len(r2.Issues) != 0 || r2.RiskScore != 0 || r2.RecordIndex != 0 || r2.AdvisorConsulted {
		t.Errorf("pooled result not reset: %+v", r2)
	}
}

func TestMerge(t *testing.T) {
	a := NewResult()
	a.AddIssue(Warning(CodePerformance).Message("sampled").Build())
	a.RiskScore = 2

	b := NewResult()
	b.AddIssue(Error(CodeUnique).Message("duplicate").On("AccountNumber").Build())
	b.AddFix(Fix{Field: "AccountNumber", Value: "ACC-2", Confidence: 0.8})
	b.RiskScore = 6
	b.AdvisorConsulted = true

	a.Merge(b)

	if a.Valid {
		t.Error("merging an error should invalidate")
	}
	if len(a.Issues) != 2 {
		t.Errorf("issues = %d; want 2", len(a.Issues))
	}
	if len(a.SuggestedFixes) != 1 {
		t.Errorf("fixes = %d; want 1", len(a.SuggestedFixes))
	}
	if a.RiskScore != 6 {
		t.Errorf("risk = %f; want the higher score 6", a.RiskScore)
	}
	if !a.AdvisorConsulted {
		t.Error("advisor flag should propagate")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	r := NewResult()
	r.AddIssue(Error(CodeRange).Message("out of range").On("Amount").Build())

	c := r.Clone()
	c.AddIssue(Error(CodeFormat).Message("bad").Build())

	if len(r.Issues) != 1 {
		t.Errorf("source issues = %d after clone mutation; want 1", len(r.Issues))
	}
	if len(c.Issues) != 2 {
		t.Errorf("clone issues = %d; want 2", len(c.Issues))
	}
}

func TestConcurrentAddIssue(t *testing.T) {
	r := NewResult()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.AddIssue(Error(CodeBusinessRule).Message("fired").Build())
		}()
	}
	wg.Wait()

	if got := r.ViolationCount(); got != 50 {
		t.Errorf("violations = %d; want 50", got)
	}
}

func TestIssueBuilder(t *testing.T) {
	issue := Error(CodeBusinessRule).
		Message("Closed Won needs a close date").
		On("CloseDate").
		Rule("r2").
		Check("validation_rule").
		Build()

	if !issue.IsError() {
		t.Error("expected error severity")
	}
	if issue.Field != "CloseDate" || issue.RuleID != "r2" || issue.Check != "validation_rule" {
		t.Errorf("unexpected issue %+v", issue)
	}
	if issue.String() == "" {
		t.Error("expected a readable String()")
	}
}

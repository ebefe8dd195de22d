package prevalidate

import (
	"context"
	"fmt"
	"testing"
	"time"

	sv "github.com/angusmaul/salesforce-sandbox-data-seeder-sub002"
	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/engine"
	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/schema"
)

func contactSchema() *schema.ObjectSchema {
	return &schema.ObjectSchema{
		Name: "Contact",
		Fields: []schema.Field{
			{Name: "LastName", Type: schema.FieldTypeString, Required: true},
			{Name: "Email", Type: schema.FieldTypeEmail},
			{Name: "Level__c", Type: schema.FieldTypePicklist, PicklistValues: []string{"Primary", "Secondary"}},
		},
		ValidationRules: []schema.ValidationRule{
			{ID: "r1", Name: "LastName_Required", Formula: "ISBLANK(LastName)", ErrorMessage: "Last name required", Active: true},
			{ID: "r2", Name: "Lookup_Rule", Formula: `VLOOKUP(X__c, "k") = "v"`, Active: true},
		},
	}
}

func newTestPreValidator(t *testing.T, opts ...sv.Option) *PreValidator {
	t.Helper()
	provider := schema.ProviderFunc(func(ctx context.Context, name string) (*schema.ObjectSchema, error) {
		return contactSchema(), nil
	})
	eng, err := engine.New(provider, append(sv.TestingOptions(), opts...)...)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	t.Cleanup(func() { eng.Close() })
	return New(eng)
}

func TestPreValidate(t *testing.T) {
	p := newTestPreValidator(t)

	records := []map[string]any{
		{"LastName": "Nguyen", "Email": "n@example.com"},
		{"LastName": ""},
		{"LastName": "Okafor"},
	}

	res, err := p.PreValidate(context.Background(), "Contact", records, 0)
	if err != nil {
		t.Fatalf("PreValidate: %v", err)
	}

	if res.State != StateCompleted {
		t.Errorf("state = %s; want %s", res.State, StateCompleted)
	}
	if res.CheckedRecords != 3 {
		t.Errorf("checked = %d; want 3", res.CheckedRecords)
	}
	if res.ValidRecords != 2 || res.InvalidRecords != 1 {
		t.Errorf("got %d valid / %d invalid; want 2 / 1", res.ValidRecords, res.InvalidRecords)
	}
	if res.Sampled {
		t.Error("small batch should not be sampled")
	}
	if res.CoveragePercent != 100 {
		t.Errorf("coverage = %f; want 100", res.CoveragePercent)
	}
}

func TestPreValidateMemoization(t *testing.T) {
	p := newTestPreValidator(t)

	// 40 records, only two distinct shapes
	records := make([]map[string]any, 40)
	for i := range records {
		if i%2 == 0 {
			records[i] = map[string]any{"LastName": "Same", "Email": "s@example.com"}
		} else {
			records[i] = map[string]any{"LastName": ""}
		}
	}

	res, err := p.PreValidate(context.Background(), "Contact", records, 0)
	if err != nil {
		t.Fatalf("PreValidate: %v", err)
	}

	if res.MemoHits != 38 {
		t.Errorf("memo hits = %d; want 38", res.MemoHits)
	}
	if res.ValidRecords != 20 || res.InvalidRecords != 20 {
		t.Errorf("got %d valid / %d invalid; want 20 / 20", res.ValidRecords, res.InvalidRecords)
	}

	// memoized verdicts keep their issues
	for _, rr := range res.Results {
		if !rr.Valid && len(rr.Issues) == 0 {
			t.Fatal("memoized invalid record lost its issues")
		}
	}
}

func TestPreValidateSampling(t *testing.T) {
	p := newTestPreValidator(t, sv.WithSampling(100, 25))

	records := make([]map[string]any, 400)
	for i := range records {
		records[i] = map[string]any{"LastName": fmt.Sprintf("Person %d", i)}
	}

	res, err := p.PreValidate(context.Background(), "Contact", records, 0)
	if err != nil {
		t.Fatalf("PreValidate: %v", err)
	}

	if !res.Sampled {
		t.Fatal("expected sampling above the threshold")
	}
	if res.CheckedRecords != 25 {
		t.Errorf("checked = %d; want 25", res.CheckedRecords)
	}
	if res.CoveragePercent >= 100 {
		t.Errorf("coverage = %f; want partial", res.CoveragePercent)
	}

	found := false
	for _, w := range res.Warnings {
		if w.Code == sv.CodePerformance {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings %v missing performance warning", res.Warnings)
	}
}

func TestPreValidateTimeout(t *testing.T) {
	p := newTestPreValidator(t)

	records := make([]map[string]any, 2000)
	for i := range records {
		// distinct values defeat memoization so each record costs work
		records[i] = map[string]any{"LastName": fmt.Sprintf("Person %d", i), "Email": fmt.Sprintf("p%d@example.com", i)}
	}

	res, err := p.PreValidate(context.Background(), "Contact", records, time.Nanosecond)
	if err != nil {
		t.Fatalf("PreValidate: %v", err)
	}

	if res.State != StateTimedOut {
		t.Errorf("state = %s; want %s", res.State, StateTimedOut)
	}
	if res.CheckedRecords >= res.TotalRecords {
		t.Error("expected a partial run")
	}

	found := false
	for _, w := range res.Warnings {
		if w.Code == sv.CodeTimeout {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings %v missing timeout warning", res.Warnings)
	}

	// partial results still report per-record verdicts
	if res.CheckedRecords != len(res.Results) {
		t.Errorf("checked %d but %d results", res.CheckedRecords, len(res.Results))
	}
}

func TestCoverageReport(t *testing.T) {
	p := newTestPreValidator(t)

	report, err := p.CoverageReport(context.Background(), "Contact")
	if err != nil {
		t.Fatalf("CoverageReport: %v", err)
	}

	if report.ActiveRules != 2 {
		t.Errorf("active = %d; want 2", report.ActiveRules)
	}
	if report.EvaluableRules != 1 {
		t.Errorf("evaluable = %d; want 1", report.EvaluableRules)
	}
	if report.Coverage != 0.5 {
		t.Errorf("coverage = %f; want 0.5", report.Coverage)
	}
	if fns := report.Reasons["lookup_functions"]; len(fns) != 1 || fns[0] != "VLOOKUP" {
		t.Errorf("reasons = %v; want lookup_functions [VLOOKUP]", report.Reasons)
	}
}

func TestApplySuggestions(t *testing.T) {
	record := map[string]any{"lastname": "", "Email": "x@example.com"}
	fixes := []sv.Fix{
		{Field: "LastName", Value: "Suggested", Confidence: 0.9},
		{Field: "Email", Value: "low@example.com", Confidence: 0.3},
		{Field: "Level__c", Value: "Primary", Confidence: 0.8},
	}

	out, applied := ApplySuggestions(record, fixes, 0.7)

	if applied != 2 {
		t.Errorf("applied = %d; want 2", applied)
	}
	// existing key matched case-insensitively
	if out["lastname"] != "Suggested" {
		t.Errorf("lastname = %v; want Suggested", out["lastname"])
	}
	// low-confidence fix skipped
	if out["Email"] != "x@example.com" {
		t.Errorf("Email = %v; want original", out["Email"])
	}
	// new field added under its suggested name
	if out["Level__c"] != "Primary" {
		t.Errorf("Level__c = %v; want Primary", out["Level__c"])
	}
	// input untouched
	if record["lastname"] != "" {
		t.Error("ApplySuggestions mutated its input")
	}
}

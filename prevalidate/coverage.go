package prevalidate

import (
	"context"
	"strings"

	sv "github.com/angusmaul/salesforce-sandbox-data-seeder-sub002"
)

// CoverageReport projects how much of an object's rule surface local
// pre-validation actually exercises.
type CoverageReport struct {
	ObjectName string `json:"objectName"`

	ActiveRules    int `json:"activeRules"`
	EvaluableRules int `json:"evaluableRules"`

	// Coverage is evaluable over active, in [0, 1]
	Coverage float64 `json:"coverage"`

	// Reasons groups the blocking function names by category, for
	// example lookup_functions or state_functions
	Reasons map[string][]string `json:"reasons,omitempty"`
}

// CoverageReport reports the fraction of the object's active rules the
// local evaluator can execute and why the rest cannot run.
func (p *PreValidator) CoverageReport(ctx context.Context, objectName string) (*CoverageReport, error) {
	vc, err := p.engine.Context(ctx, objectName)
	if err != nil {
		return nil, err
	}

	a := vc.Analysis
	return &CoverageReport{
		ObjectName:     vc.ObjectName,
		ActiveRules:    a.ActiveRules,
		EvaluableRules: a.ActiveRules - len(a.UnsupportedRules),
		Coverage:       a.Coverage(),
		Reasons:        a.UnsupportedByCategory(),
	}, nil
}

// ApplySuggestions returns a copy of the record with every fix at or
// above the confidence threshold applied. The second return is how
// many fixes were applied.
func ApplySuggestions(record map[string]any, fixes []sv.Fix, confidenceThreshold float64) (map[string]any, int) {
	out := make(map[string]any, len(record))
	for k, v := range record {
		out[k] = v
	}

	applied := 0
	for _, fix := range fixes {
		if fix.Field == "" || fix.Confidence < confidenceThreshold {
			continue
		}
		setField(out, fix.Field, fix.Value)
		applied++
	}
	return out, applied
}

// setField overwrites an existing key case-insensitively, otherwise
// adds the field under its suggested name.
func setField(record map[string]any, field string, value any) {
	for k := range record {
		if strings.EqualFold(k, field) {
			record[k] = value
			return
		}
	}
	record[field] = value
}

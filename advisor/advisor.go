// Package advisor provides AI-assisted analysis of records that local
// validation flagged as risky or invalid. An advisor is always
// optional: every failure here degrades to local-only results.
package advisor

import (
	"context"

	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/rule"
	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/schema"
)

// Violation is one problem the advisor identified in a record.
type Violation struct {
	Field   string `json:"field,omitempty"`
	RuleID  string `json:"ruleId,omitempty"`
	Message string `json:"message"`
}

// Suggestion is a proposed field correction with a confidence score
// in [0, 1].
type Suggestion struct {
	Field      string  `json:"field"`
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason,omitempty"`
}

// Analysis is the advisor's assessment of one record.
type Analysis struct {
	// Valid is the advisor's overall judgement
	Valid bool `json:"valid"`

	// RiskScore is on the same 0-10 scale local validation uses
	RiskScore float64 `json:"riskScore"`

	Violations  []Violation  `json:"violations,omitempty"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
}

// Request carries everything the advisor needs to assess a record.
type Request struct {
	ObjectName string
	Record     *schema.Record

	// Rules are the parsed validation rules in force, including ones
	// the local evaluator could not execute
	Rules []*rule.ParsedRule

	// LocalFindings summarizes what local validation already flagged
	LocalFindings []string
}

// Advisor analyzes records that local checks could not fully clear.
type Advisor interface {
	AnalyzeRecord(ctx context.Context, req *Request) (*Analysis, error)
}

// Func adapts a function to the Advisor interface.
type Func func(ctx context.Context, req *Request) (*Analysis, error)

func (f Func) AnalyzeRecord(ctx context.Context, req *Request) (*Analysis, error) {
	return f(ctx, req)
}

package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	sv "github.com/angusmaul/salesforce-sandbox-data-seeder-sub002"
	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/rule"
	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/solver"
)

// RuleAnalysisReport is the outcome of analyzing an object's
// validation rules without validating any data.
type RuleAnalysisReport struct {
	ObjectName string                   `json:"objectName"`
	Analysis   *rule.ObjectRuleAnalysis `json:"analysis"`

	// Coverage is the fraction of active rules evaluable locally
	Coverage float64 `json:"coverage"`

	// UnsupportedByCategory groups blocking functions by reason
	UnsupportedByCategory map[string][]string `json:"unsupportedByCategory,omitempty"`
}

// AnalyzeValidationRules parses and classifies every validation rule
// on the object, reporting complexity, risk and local coverage.
func (e *Engine) AnalyzeValidationRules(ctx context.Context, objectName string) (*RuleAnalysisReport, error) {
	vc, err := e.Context(ctx, objectName)
	if err != nil {
		return nil, err
	}

	return &RuleAnalysisReport{
		ObjectName:            vc.ObjectName,
		Analysis:              vc.Analysis,
		Coverage:              vc.Analysis.Coverage(),
		UnsupportedByCategory: vc.Analysis.UnsupportedByCategory(),
	}, nil
}

// GenerationConfig configures a generation pre-check.
type GenerationConfig struct {
	// SampleSize is how many candidate records to synthesize;
	// defaults to the engine's sampling size
	SampleSize int

	// Seed fixes the synthesis randomness for reproducible checks
	Seed int64
}

// GenerationPrecheck projects how well synthesized records for this
// object would fare against its validation rules.
type GenerationPrecheck struct {
	ObjectName string `json:"objectName"`
	SampleSize int    `json:"sampleSize"`

	CompliantSamples int `json:"compliantSamples"`
	FailedSamples    int `json:"failedSamples"`

	// ProjectedValidRate is compliant over total, in [0, 1]
	ProjectedValidRate float64 `json:"projectedValidRate"`

	// AverageAttempts is the mean synthesis attempts per record
	AverageAttempts float64 `json:"averageAttempts"`

	// UnresolvedViolations collects distinct violations the solver
	// could not clear within its attempt budget
	UnresolvedViolations []sv.Issue `json:"unresolvedViolations,omitempty"`

	Recommendations []string `json:"recommendations,omitempty"`
}

// PreValidateGenerationPattern synthesizes a sample of records with
// the constraint solver and reports the projected pass rate before any
// bulk generation starts.
func (e *Engine) PreValidateGenerationPattern(ctx context.Context, objectName string, cfg GenerationConfig) (*GenerationPrecheck, error) {
	vc, err := e.Context(ctx, objectName)
	if err != nil {
		return nil, err
	}

	size := cfg.SampleSize
	if size <= 0 {
		size = e.options.SampleSize
	}

	sol := solver.New(vc.Schema, vc.Rules(), vc.Constraints, vc.Dependencies,
		sv.WithSeed(cfg.Seed),
		sv.WithAttemptBudget(e.options.AttemptBudget),
		sv.WithLogger(e.logger))
	sol.SetMetrics(e.metrics)

	precheck := &GenerationPrecheck{
		ObjectName: vc.ObjectName,
		SampleSize: size,
	}

	var attempts int
	seen := make(map[string]bool)
	for _, g := range sol.GenerateCompliantRecords(ctx, size) {
		attempts += g.Attempts
		if g.Compliant() {
			precheck.CompliantSamples++
			continue
		}
		precheck.FailedSamples++
		for _, issue := range g.UnresolvedViolations {
			key := string(issue.Code) + "|" + issue.Field + "|" + issue.RuleID
			if seen[key] {
				continue
			}
			seen[key] = true
			precheck.UnresolvedViolations = append(precheck.UnresolvedViolations, issue)
		}
	}

	generated := precheck.CompliantSamples + precheck.FailedSamples
	if generated > 0 {
		precheck.ProjectedValidRate = float64(precheck.CompliantSamples) / float64(generated)
		precheck.AverageAttempts = float64(attempts) / float64(generated)
	}

	if precheck.ProjectedValidRate < 0.9 && generated > 0 {
		precheck.Recommendations = append(precheck.Recommendations,
			fmt.Sprintf("only %.0f%% of synthesized records clear validation; review the unresolved violations before bulk generation", precheck.ProjectedValidRate*100))
	}
	if cov := vc.Analysis.Coverage(); cov < 1 {
		precheck.Recommendations = append(precheck.Recommendations,
			fmt.Sprintf("%.0f%% rule coverage: records may still be rejected by rules not evaluated locally", cov*100))
	}

	e.logger.Info("generation pre-check complete",
		zap.String("object", vc.ObjectName),
		zap.Int("sample", generated),
		zap.Float64("projectedValidRate", precheck.ProjectedValidRate))

	return precheck, nil
}

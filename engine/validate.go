package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	sv "github.com/angusmaul/salesforce-sandbox-data-seeder-sub002"
	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/advisor"
	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/constraint"
	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/formula"
	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/rule"
	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/schema"
)

// advisorTimeout bounds each escalation call so a slow model cannot
// stall a batch.
const advisorTimeout = 15 * time.Second

var two = decimal.NewFromInt(2)

// ValidateRequest describes one batch validation call. Zero values
// inherit the engine's configuration.
type ValidateRequest struct {
	ObjectName string
	Records    []map[string]any

	// Level overrides the engine's validation level when non-empty
	Level sv.ValidationLevel

	// SkipAIAnalysis forces local-only validation for this batch
	SkipAIAnalysis bool

	// IncludeWarnings surfaces advisory findings alongside errors
	IncludeWarnings bool
}

// Performance breaks down where a batch validation spent its time.
type Performance struct {
	TotalTime   time.Duration `json:"totalTime"`
	LocalTime   time.Duration `json:"localTime"`
	AdvisorTime time.Duration `json:"advisorTime"`

	RulesEvaluated int    `json:"rulesEvaluated"`
	CacheHits      uint64 `json:"cacheHits"`
	CacheMisses    uint64 `json:"cacheMisses"`
}

// BatchResult is the outcome of validating a batch of records.
type BatchResult struct {
	ObjectName string `json:"objectName"`

	// IsValid is true when every record passed without errors
	IsValid bool `json:"isValid"`

	TotalRecords   int `json:"totalRecords"`
	ValidRecords   int `json:"validRecords"`
	InvalidRecords int `json:"invalidRecords"`

	// Results holds one entry per input record, in input order.
	// Release each pooled result with its Release method when done.
	Results []*sv.RecordResult `json:"results"`

	// OverallRiskScore is the mean per-record risk, capped at 10
	OverallRiskScore float64 `json:"overallRiskScore"`

	// Recommendations highlight systemic problems across the batch
	Recommendations []string `json:"recommendations,omitempty"`

	Performance Performance `json:"performance"`
}

// ValidateData validates a batch of records against the object's
// schema and validation rules. Record-level problems become issues on
// the corresponding result; only a schema fetch failure returns an
// error.
func (e *Engine) ValidateData(ctx context.Context, req *ValidateRequest) (*BatchResult, error) {
	start := time.Now()

	opts := e.requestOptions(req)

	hitsBefore, missesBefore := e.metrics.CacheHits(), e.metrics.CacheMisses()
	vc, err := e.Context(ctx, req.ObjectName)
	if err != nil {
		return nil, err
	}

	batch := &BatchResult{
		ObjectName:   vc.ObjectName,
		TotalRecords: len(req.Records),
		Results:      make([]*sv.RecordResult, len(req.Records)),
	}

	localStart := time.Now()
	e.validateRecords(ctx, vc, req.Records, opts, batch.Results)
	e.checkBatchUniqueness(vc, batch.Results, req.Records)
	localTime := time.Since(localStart)

	var advisorTime time.Duration
	if e.shouldEscalate(opts) {
		advisorTime = e.escalate(ctx, vc, req.Records, batch.Results, opts)
	}

	var riskSum float64
	for _, rr := range batch.Results {
		rr.Valid = !rr.HasViolations()
		if rr.Valid {
			batch.ValidRecords++
		} else {
			batch.InvalidRecords++
		}
		riskSum += rr.RiskScore
	}
	if len(batch.Results) > 0 {
		batch.OverallRiskScore = clampRisk(riskSum / float64(len(batch.Results)))
	}
	batch.IsValid = batch.InvalidRecords == 0
	batch.Recommendations = e.recommendations(vc, batch.Results)

	batch.Performance = Performance{
		TotalTime:      time.Since(start),
		LocalTime:      localTime,
		AdvisorTime:    advisorTime,
		RulesEvaluated: vc.Analysis.ActiveRules * len(req.Records),
		CacheHits:      e.metrics.CacheHits() - hitsBefore,
		CacheMisses:    e.metrics.CacheMisses() - missesBefore,
	}
	e.metrics.RecordRuleEvaluations(batch.Performance.RulesEvaluated)

	e.logger.Debug("batch validated",
		zap.String("object", vc.ObjectName),
		zap.Int("records", batch.TotalRecords),
		zap.Int("invalid", batch.InvalidRecords),
		zap.Float64("risk", batch.OverallRiskScore),
		zap.Duration("elapsed", batch.Performance.TotalTime))

	return batch, nil
}

// requestOptions merges per-request overrides onto the engine config.
func (e *Engine) requestOptions(req *ValidateRequest) *sv.Options {
	opts := *e.options
	if req.Level != "" {
		opts.Level = req.Level
	}
	if req.SkipAIAnalysis {
		opts.SkipAIAnalysis = true
	}
	if req.IncludeWarnings {
		opts.IncludeWarnings = true
	}
	return &opts
}

// validateRecords runs the local checks over every record, fanning out
// across a bounded set of workers when configured.
func (e *Engine) validateRecords(ctx context.Context, vc *ValidationContext, records []map[string]any, opts *sv.Options, results []*sv.RecordResult) {
	workers := opts.MaxConcurrentValidations
	if workers <= 1 || len(records) <= 1 {
		for i, data := range records {
			if ctx.Err() != nil {
				results[i] = cancelledResult(i)
				continue
			}
			results[i] = e.validateOne(vc, data, i, opts)
		}
		return
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, data := range records {
		if ctx.Err() != nil {
			results[i] = cancelledResult(i)
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, data map[string]any) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = e.validateOne(vc, data, i, opts)
		}(i, data)
	}
	wg.Wait()
}

func cancelledResult(index int) *sv.RecordResult {
	rr := sv.AcquireResult()
	rr.RecordIndex = index
	rr.AddIssue(sv.Error(sv.CodeTimeout).
		Message("validation cancelled before this record was checked").
		Build())
	return rr
}

// validateOne applies every local check to a single record and scores
// its risk.
func (e *Engine) validateOne(vc *ValidationContext, data map[string]any, index int, opts *sv.Options) *sv.RecordResult {
	start := time.Now()

	rr := sv.AcquireResult()
	rr.RecordIndex = index
	rec := schema.RecordFromMap(data, vc.Schema)

	for _, c := range e.checks {
		if opts.Level == sv.LevelBasic && c.Name() != "constraint" {
			continue
		}
		checkStart := time.Now()
		issues := c.Check(vc, rec, opts)
		e.metrics.RecordCheck(c.Name(), time.Since(checkStart), len(issues))

		for _, issue := range issues {
			if issue.IsWarning() && !opts.IncludeWarnings {
				continue
			}
			rr.AddIssue(issue)
			e.metrics.RecordIssue(issue.Severity)
			if fix, ok := e.suggestFix(vc, rec, issue); ok {
				rr.AddFix(fix)
			}
		}
	}

	rr.RiskScore = e.riskScore(vc, rr)
	rr.Valid = !rr.HasViolations()
	e.metrics.RecordValidation(time.Since(start), rr.Valid)
	return rr
}

// ValidateRecord runs the local checks over a single record without
// advisor escalation. Used by pre-validation, where throughput matters
// more than depth.
func (e *Engine) ValidateRecord(ctx context.Context, objectName string, data map[string]any) (*sv.RecordResult, error) {
	vc, err := e.Context(ctx, objectName)
	if err != nil {
		return nil, err
	}
	return e.validateOne(vc, data, 0, e.options), nil
}

// ValidateRecordWithContext is ValidateRecord for callers that already
// hold the validation context.
func (e *Engine) ValidateRecordWithContext(vc *ValidationContext, data map[string]any, index int) *sv.RecordResult {
	return e.validateOne(vc, data, index, e.options)
}

// checkBatchUniqueness flags duplicate values for unique fields across
// the batch. Every record after the first occurrence is flagged.
func (e *Engine) checkBatchUniqueness(vc *ValidationContext, results []*sv.RecordResult, records []map[string]any) {
	for _, fc := range vc.Constraints {
		if fc.Kind != constraint.KindUnique {
			continue
		}

		seen := make(map[string]int, len(records))
		for i, data := range records {
			rec := schema.RecordFromMap(data, vc.Schema)
			v, _ := rec.Get(fc.Field)
			if formula.IsBlank(v) {
				continue
			}
			key := strings.ToLower(fmt.Sprint(v))
			if first, dup := seen[key]; dup {
				results[i].AddIssue(sv.Error(sv.CodeUnique).
					Message(fmt.Sprintf("duplicate value for unique field %s (first seen at record %d)", fc.Field, first)).
					On(fc.Field).
					Check("uniqueness").
					Build())
				results[i].RiskScore = clampRisk(results[i].RiskScore + 2)
				continue
			}
			seen[key] = i
		}
	}
}

// riskScore maps a record's issues to a 0-10 score. Business-rule
// violations weigh by the rule's assessed risk.
func (e *Engine) riskScore(vc *ValidationContext, rr *sv.RecordResult) float64 {
	var score float64
	for _, issue := range rr.Issues {
		switch {
		case issue.IsWarning():
			score += 0.5
		case issue.Code == sv.CodeBusinessRule:
			score += ruleWeight(vc, issue.RuleID)
		case issue.Code == sv.CodeDependency:
			score += 2
		default:
			score += 2
		}
	}
	return clampRisk(score)
}

func ruleWeight(vc *ValidationContext, ruleID string) float64 {
	for _, pr := range vc.Analysis.Rules {
		if pr.ID != ruleID {
			continue
		}
		switch pr.Risk {
		case rule.RiskHigh:
			return 3
		case rule.RiskMedium:
			return 2.5
		default:
			return 1.5
		}
	}
	return 2
}

func clampRisk(score float64) float64 {
	if score > 10 {
		return 10
	}
	if score < 0 {
		return 0
	}
	return score
}

// suggestFix proposes a correction for constraint-shaped issues. The
// suggestion carries a confidence so callers can apply only the safe
// ones.
func (e *Engine) suggestFix(vc *ValidationContext, rec *schema.Record, issue sv.Issue) (sv.Fix, bool) {
	if issue.Field == "" {
		return sv.Fix{}, false
	}
	f := vc.Schema.FieldByName(issue.Field)
	if f == nil {
		return sv.Fix{}, false
	}

	switch issue.Code {
	case sv.CodeRequired, sv.CodeDependency:
		return sv.Fix{
			Field:      f.Name,
			Value:      defaultFieldValue(f),
			Confidence: 0.85,
			Reason:     "field was blank but is required",
		}, true
	case sv.CodeFormat:
		if f.Type == schema.FieldTypeEmail {
			return sv.Fix{
				Field:      f.Name,
				Value:      "user@example.com",
				Confidence: 0.6,
				Reason:     "value did not match the email format",
			}, true
		}
	case sv.CodeRange:
		if mid, ok := rangeMidpoint(vc, f.Name); ok {
			return sv.Fix{
				Field:      f.Name,
				Value:      mid,
				Confidence: 0.7,
				Reason:     "value was outside the allowed range",
			}, true
		}
	}
	return sv.Fix{}, false
}

func defaultFieldValue(f *schema.Field) any {
	if f.DefaultValue != nil {
		return f.DefaultValue
	}
	switch f.Type {
	case schema.FieldTypeBoolean:
		return false
	case schema.FieldTypeInt, schema.FieldTypeDouble, schema.FieldTypeCurrency, schema.FieldTypePercent:
		return 1
	case schema.FieldTypeDate:
		return time.Now().UTC().Format("2006-01-02")
	case schema.FieldTypeDateTime:
		return time.Now().UTC().Format(time.RFC3339)
	case schema.FieldTypePicklist:
		if len(f.PicklistValues) > 0 {
			return f.PicklistValues[0]
		}
		return ""
	default:
		return "Sample " + f.Label
	}
}

func rangeMidpoint(vc *ValidationContext, field string) (any, bool) {
	for _, fc := range vc.Constraints {
		if fc.Kind != constraint.KindRange || !strings.EqualFold(fc.Field, field) {
			continue
		}
		if fc.Min != nil && fc.Max != nil {
			return fc.Min.Add(*fc.Max).Div(two), true
		}
		if fc.Min != nil {
			return *fc.Min, true
		}
		if fc.Max != nil {
			return *fc.Max, true
		}
	}
	return nil, false
}

// shouldEscalate decides whether this batch consults the advisor at
// all; per-record gating happens in escalate.
func (e *Engine) shouldEscalate(opts *sv.Options) bool {
	if e.advisor == nil || opts.SkipAIAnalysis {
		return false
	}
	return true
}

// escalate sends records the local checks could not clear to the
// advisor: invalid records, records at or above the risk threshold,
// and every record at the comprehensive level. Advisor failures are
// logged and absorbed.
func (e *Engine) escalate(ctx context.Context, vc *ValidationContext, records []map[string]any, results []*sv.RecordResult, opts *sv.Options) time.Duration {
	start := time.Now()

	for i, rr := range results {
		needs := !rr.Valid && rr.HasViolations() || rr.RiskScore >= opts.RiskThreshold || opts.Level == sv.LevelComprehensive
		if !needs {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		e.advise(ctx, vc, records[i], rr)
	}

	return time.Since(start)
}

func (e *Engine) advise(ctx context.Context, vc *ValidationContext, data map[string]any, rr *sv.RecordResult) {
	callCtx, cancel := context.WithTimeout(ctx, advisorTimeout)
	defer cancel()

	findings := make([]string, 0, len(rr.Issues))
	for _, issue := range rr.Issues {
		findings = append(findings, issue.String())
	}

	start := time.Now()
	analysis, err := e.advisor.AnalyzeRecord(callCtx, &advisor.Request{
		ObjectName:    vc.ObjectName,
		Record:        schema.RecordFromMap(data, vc.Schema),
		Rules:         vc.ActiveRules(),
		LocalFindings: findings,
	})
	e.metrics.RecordAdvisorCall(time.Since(start), err == nil)

	if err != nil {
		e.logger.Warn("advisor analysis failed, keeping local result",
			zap.String("object", vc.ObjectName),
			zap.Int("record", rr.RecordIndex),
			zap.Error(err))
		return
	}

	rr.AdvisorConsulted = true
	if analysis.RiskScore > rr.RiskScore {
		rr.RiskScore = clampRisk(analysis.RiskScore)
	}
	for _, v := range analysis.Violations {
		rr.AddIssue(sv.Warning(sv.CodeBusinessRule).
			Message(v.Message).
			On(v.Field).
			Rule(v.RuleID).
			Check("advisor").
			Build())
	}
	for _, s := range analysis.Suggestions {
		rr.AddFix(sv.Fix{
			Field:      s.Field,
			Value:      s.Value,
			Confidence: s.Confidence,
			Reason:     s.Reason,
		})
	}
}

// recommendations surfaces batch-level patterns: any field implicated
// in more than 20% of all violations, and rules that never ran.
func (e *Engine) recommendations(vc *ValidationContext, results []*sv.RecordResult) []string {
	fieldCounts := make(map[string]int)
	total := 0
	for _, rr := range results {
		for _, issue := range rr.Violations() {
			total++
			if issue.Field != "" {
				fieldCounts[strings.ToLower(issue.Field)]++
			}
		}
	}

	var recs []string
	if total > 0 {
		fields := make([]string, 0, len(fieldCounts))
		for f := range fieldCounts {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			if n := fieldCounts[f]; float64(n) > 0.2*float64(total) {
				recs = append(recs, fmt.Sprintf("field %s accounts for %d of %d violations; review its generation strategy", f, n, total))
			}
		}
	}

	if n := len(vc.Analysis.UnsupportedRules); n > 0 {
		recs = append(recs, fmt.Sprintf("%d validation rule(s) cannot be evaluated locally; results may miss org-side rejections", n))
	}

	return recs
}

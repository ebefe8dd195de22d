// Package solver synthesizes records that satisfy an object's schema
// constraints and validation rules.
//
// Generation is greedy: every relevant field gets a constraint-aware
// value in schema declaration order, the candidate is checked against
// the active rules, and only offending fields are regenerated on each
// retry. When the attempt budget runs out the best candidate seen so
// far is returned together with its unresolved violations, never an
// error.
package solver

import (
	"context"
	"strings"

	"go.uber.org/zap"

	sv "github.com/angusmaul/salesforce-sandbox-data-seeder-sub002"
	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/constraint"
	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/formula"
	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/rule"
	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/schema"
)

// Solver generates constraint-compliant records for one object.
// It is not safe for concurrent use; create one per goroutine.
type Solver struct {
	object       *schema.ObjectSchema
	rules        []*rule.ParsedRule
	constraints  []constraint.FieldConstraint
	dependencies []constraint.FieldDependency

	eval    *formula.Evaluator
	gen     *valueGen
	budget  int
	logger  *zap.Logger
	metrics *sv.Metrics
}

// Generated is one synthesis outcome. Attempts counts candidate
// verifications, so a first-try success reports 1.
type Generated struct {
	Record               *schema.Record
	Attempts             int
	UnresolvedViolations []sv.Issue
}

// Compliant reports whether the record cleared every check.
func (g *Generated) Compliant() bool {
	return len(g.UnresolvedViolations) == 0
}

// New builds a solver for the object. Parsed rules, constraints and
// dependencies normally come from the engine's validation context.
func New(object *schema.ObjectSchema, rules []*rule.ParsedRule, constraints []constraint.FieldConstraint, dependencies []constraint.FieldDependency, opts ...sv.Option) *Solver {
	o := sv.DefaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	return &Solver{
		object:       object,
		rules:        rules,
		constraints:  constraints,
		dependencies: dependencies,
		eval:         formula.NewEvaluator(),
		gen:          newValueGen(o.Seed),
		budget:       o.AttemptBudget,
		logger:       o.Logger.Named("solver"),
		metrics:      sv.NewMetrics(),
	}
}

// SetMetrics redirects generation counters to a shared collector.
func (s *Solver) SetMetrics(m *sv.Metrics) {
	if m != nil {
		s.metrics = m
	}
}

// GenerateCompliantRecord synthesizes one record. Cancellation via ctx
// stops retrying and returns the best candidate so far.
func (s *Solver) GenerateCompliantRecord(ctx context.Context) *Generated {
	rec := s.seedRecord()

	best := rec
	bestViolations := s.verify(rec)
	attempts := 1

	for len(bestViolations) > 0 && attempts < s.budget {
		select {
		case <-ctx.Done():
			s.logger.Debug("generation cancelled",
				zap.String("object", s.object.Name),
				zap.Int("attempts", attempts))
			attempts = s.budget
		default:
		}
		if attempts >= s.budget {
			break
		}

		candidate := best.Clone()
		for _, field := range s.offendingFields(bestViolations) {
			s.regenerate(candidate, field)
		}

		violations := s.verify(candidate)
		attempts++

		if len(violations) < len(bestViolations) {
			best, bestViolations = candidate, violations
		}
	}

	s.metrics.RecordGeneration(attempts - 1)
	if len(bestViolations) > 0 {
		s.logger.Debug("attempt budget exhausted",
			zap.String("object", s.object.Name),
			zap.Int("attempts", attempts),
			zap.Int("unresolved", len(bestViolations)))
	}

	return &Generated{
		Record:               best,
		Attempts:             attempts,
		UnresolvedViolations: bestViolations,
	}
}

// GenerateCompliantRecords synthesizes n records sequentially. With a
// fixed seed the output sequence is reproducible.
func (s *Solver) GenerateCompliantRecords(ctx context.Context, n int) []*Generated {
	out := make([]*Generated, 0, n)
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return out
		default:
		}
		out = append(out, s.GenerateCompliantRecord(ctx))
	}
	return out
}

// seedRecord populates every generatable field in schema declaration
// order. System-managed ID fields are skipped unless required.
func (s *Solver) seedRecord() *schema.Record {
	rec := schema.NewRecord()
	for i := range s.object.Fields {
		f := &s.object.Fields[i]
		if f.Type == schema.FieldTypeID && !f.Required {
			continue
		}
		if f.DefaultValue != nil {
			rec.Set(f.Name, f.DefaultValue)
			continue
		}
		rec.Set(f.Name, s.gen.value(f, s.constraints))
	}
	return rec
}

func (s *Solver) regenerate(rec *schema.Record, fieldName string) {
	f := s.object.FieldByName(fieldName)
	if f == nil {
		return
	}
	rec.Set(f.Name, s.gen.value(f, s.constraints))
}

// verify runs the local checks a validation pass would apply:
// declarative constraints, field dependencies, then rule formulas.
func (s *Solver) verify(rec *schema.Record) []sv.Issue {
	var issues []sv.Issue

	for _, c := range s.constraints {
		if c.Kind == constraint.KindUnique {
			continue
		}
		v, _ := rec.Get(c.Field)
		if !c.Satisfied(v) {
			issues = append(issues, sv.Error(constraintCode(c.Kind)).
				Message(c.Expression).
				On(c.Field).
				Check("constraint").
				Build())
		}
	}

	for _, dep := range s.dependencies {
		if !s.dependencyTriggered(rec, dep) {
			continue
		}
		target, _ := rec.Get(dep.TargetField)
		if formula.IsBlank(target) {
			issues = append(issues, sv.Error(sv.CodeDependency).
				Message(dep.Describe()).
				On(dep.TargetField).
				Rule(dep.RuleID).
				Check("dependency").
				Build())
		}
	}

	for _, pr := range s.rules {
		if !pr.Active || !pr.Supported || pr.ParseFailed {
			continue
		}
		if s.eval.EvaluateBool(pr.Formula, rec, s.object) {
			issues = append(issues, sv.Error(sv.CodeBusinessRule).
				Message(ruleMessage(pr)).
				On(ruleField(pr)).
				Rule(pr.ID).
				Check("validation_rule").
				Build())
		}
	}

	return issues
}

func (s *Solver) dependencyTriggered(rec *schema.Record, dep constraint.FieldDependency) bool {
	if dep.Condition == "" {
		return false
	}
	return s.eval.EvaluateBool(dep.Condition, rec, s.object)
}

// offendingFields maps violations back to the fields to regenerate.
// A business-rule violation implicates every field its formula reads.
func (s *Solver) offendingFields(issues []sv.Issue) []string {
	seen := make(map[string]bool)
	var fields []string

	add := func(name string) {
		if name == "" {
			return
		}
		key := strings.ToLower(name)
		if seen[key] {
			return
		}
		seen[key] = true
		fields = append(fields, name)
	}

	for _, issue := range issues {
		if issue.Code != sv.CodeBusinessRule {
			add(issue.Field)
			continue
		}
		for _, pr := range s.rules {
			if pr.ID != issue.RuleID {
				continue
			}
			for _, f := range pr.Fields {
				add(f)
			}
		}
	}

	return fields
}

func constraintCode(k constraint.Kind) sv.IssueCode {
	switch k {
	case constraint.KindRequired:
		return sv.CodeRequired
	case constraint.KindFormat:
		return sv.CodeFormat
	case constraint.KindRange:
		return sv.CodeRange
	default:
		return sv.CodeBusinessRule
	}
}

func ruleMessage(pr *rule.ParsedRule) string {
	if pr.ErrorMessage != "" {
		return pr.ErrorMessage
	}
	return "validation rule " + pr.Name + " failed"
}

func ruleField(pr *rule.ParsedRule) string {
	if pr.ErrorField != "" {
		return pr.ErrorField
	}
	if len(pr.Fields) > 0 {
		return pr.Fields[0]
	}
	return ""
}

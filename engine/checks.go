package engine

import (
	sv "github.com/angusmaul/salesforce-sandbox-data-seeder-sub002"
	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/constraint"
	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/formula"
	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/rule"
	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/schema"
)

// check is one local validation pass over a single record. Checks are
// stateless; the per-object state lives in the ValidationContext.
type check interface {
	Name() string
	Check(vc *ValidationContext, rec *schema.Record, opts *sv.Options) []sv.Issue
}

// constraintCheck enforces the declarative field constraints derived
// from the schema: required, format and range. Uniqueness needs the
// whole batch and is handled separately.
type constraintCheck struct{}

func (constraintCheck) Name() string { return "constraint" }

func (c constraintCheck) Check(vc *ValidationContext, rec *schema.Record, opts *sv.Options) []sv.Issue {
	var issues []sv.Issue
	for _, fc := range vc.Constraints {
		if fc.Kind == constraint.KindUnique {
			continue
		}
		v, _ := rec.Get(fc.Field)
		if fc.Satisfied(v) {
			continue
		}
		issues = append(issues, sv.Error(constraintIssueCode(fc.Kind)).
			Message(fc.Expression).
			On(fc.Field).
			Check(c.Name()).
			Build())
	}
	return issues
}

// ruleCheck evaluates the active validation rule formulas. A formula
// expresses the failure condition, so true means the record violates
// the rule. Rules the evaluator cannot execute surface as warnings
// instead of verdicts.
type ruleCheck struct {
	eval *formula.Evaluator
}

func (ruleCheck) Name() string { return "validation_rule" }

func (c ruleCheck) Check(vc *ValidationContext, rec *schema.Record, opts *sv.Options) []sv.Issue {
	var issues []sv.Issue
	for _, pr := range vc.ActiveRules() {
		if !pr.Supported || pr.ParseFailed {
			if opts.IncludeWarnings {
				issues = append(issues, sv.Warning(sv.CodeNotSupported).
					Message(unsupportedMessage(pr)).
					Rule(pr.ID).
					Check(c.Name()).
					Build())
			}
			continue
		}
		if !c.eval.EvaluateBool(pr.Formula, rec, vc.Schema) {
			continue
		}
		issues = append(issues, ruleIssue(pr).Check(c.Name()).Build())
	}
	return issues
}

// dependencyCheck enforces conditional requirements extracted from the
// rules: when a guard condition holds, its target field must not be
// blank.
type dependencyCheck struct {
	eval *formula.Evaluator
}

func (dependencyCheck) Name() string { return "dependency" }

func (c dependencyCheck) Check(vc *ValidationContext, rec *schema.Record, opts *sv.Options) []sv.Issue {
	var issues []sv.Issue
	for _, dep := range vc.Dependencies {
		if dep.Condition == "" {
			continue
		}
		if !c.eval.EvaluateBool(dep.Condition, rec, vc.Schema) {
			continue
		}
		target, _ := rec.Get(dep.TargetField)
		if !formula.IsBlank(target) {
			continue
		}
		issues = append(issues, sv.Error(sv.CodeDependency).
			Message(dep.Describe()).
			On(dep.TargetField).
			Rule(dep.RuleID).
			Check(c.Name()).
			Build())
	}
	return issues
}

func constraintIssueCode(k constraint.Kind) sv.IssueCode {
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

func ruleIssue(pr *rule.ParsedRule) *sv.IssueBuilder {
	msg := pr.ErrorMessage
	if msg == "" {
		msg = "validation rule " + pr.Name + " failed"
	}
	field := pr.ErrorField
	if field == "" && len(pr.Fields) > 0 {
		field = pr.Fields[0]
	}

	b := sv.Error(sv.CodeBusinessRule).Message(msg).Rule(pr.ID)
	if pr.Severity == "warning" {
		b = sv.Warning(sv.CodeBusinessRule).Message(msg).Rule(pr.ID)
	}
	return b.On(field)
}

func unsupportedMessage(pr *rule.ParsedRule) string {
	if pr.ParseFailed {
		return "rule " + pr.Name + " could not be parsed; not evaluated locally"
	}
	msg := "rule " + pr.Name + " uses functions not evaluated locally"
	if len(pr.UnsupportedFunctions) > 0 {
		msg += ": "
		for i, fn := range pr.UnsupportedFunctions {
			if i > 0 {
				msg += ", "
			}
			msg += fn
		}
	}
	return msg
}

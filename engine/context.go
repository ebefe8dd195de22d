package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/constraint"
	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/rule"
	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/schema"
)

// ValidationContext bundles everything needed to validate records of
// one object: the schema, the parsed rules, and the constraints and
// dependencies extracted from both. Contexts are immutable once built
// and shared across goroutines.
type ValidationContext struct {
	ObjectName string

	Schema   *schema.ObjectSchema
	Analysis *rule.ObjectRuleAnalysis

	Constraints  []constraint.FieldConstraint
	Dependencies []constraint.FieldDependency

	// BuiltAt records when the context was assembled
	BuiltAt time.Time
}

// Rules returns the parsed validation rules, active and inactive.
func (vc *ValidationContext) Rules() []*rule.ParsedRule {
	return vc.Analysis.Rules
}

// ActiveRules returns only the rules currently in force.
func (vc *ValidationContext) ActiveRules() []*rule.ParsedRule {
	out := make([]*rule.ParsedRule, 0, vc.Analysis.ActiveRules)
	for _, r := range vc.Analysis.Rules {
		if r.Active {
			out = append(out, r)
		}
	}
	return out
}

// Context returns the validation context for an object, building and
// caching it on first use. Concurrent callers for the same object
// share one build; only the winner's context is retained. A schema
// fetch failure is the one error validation cannot absorb.
func (e *Engine) Context(ctx context.Context, objectName string) (*ValidationContext, error) {
	computed := false
	vc, err := e.contexts.GetOrCompute(objectName, func() (*ValidationContext, error) {
		computed = true
		return e.buildContext(ctx, objectName)
	})
	if err != nil {
		return nil, err
	}

	if computed {
		e.metrics.RecordCacheMiss()
	} else {
		e.metrics.RecordCacheHit()
	}
	return vc, nil
}

func (e *Engine) buildContext(ctx context.Context, objectName string) (*ValidationContext, error) {
	start := time.Now()

	s, err := e.provider.GetObjectSchema(ctx, objectName)
	if err != nil {
		return nil, fmt.Errorf("engine: fetch schema for %s: %w", objectName, err)
	}
	if s == nil {
		return nil, fmt.Errorf("engine: no schema for %s", objectName)
	}

	analysis := e.ruleParser.ParseObjectRules(s.ValidationRules, s.Name)
	constraints, dependencies := constraint.Extract(s, analysis.Rules)

	e.logger.Debug("validation context built",
		zap.String("object", s.Name),
		zap.Int("rules", analysis.TotalRules),
		zap.Int("constraints", len(constraints)),
		zap.Int("dependencies", len(dependencies)),
		zap.Duration("elapsed", time.Since(start)))

	return &ValidationContext{
		ObjectName:   s.Name,
		Schema:       s,
		Analysis:     analysis,
		Constraints:  constraints,
		Dependencies: dependencies,
		BuiltAt:      time.Now(),
	}, nil
}

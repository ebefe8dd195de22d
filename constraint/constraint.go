// Package constraint derives structural field constraints and cross-field
// dependencies from object schema metadata and parsed validation rules.
// Extraction is pure and deterministic: same inputs, same outputs.
package constraint

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	sv "github.com/angusmaul/salesforce-sandbox-data-seeder-sub002"
	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/formula"
)

// Kind identifies the kind of a field constraint.
type Kind string

const (
	// KindRequired means the field must be non-blank.
	KindRequired Kind = "required"
	// KindUnique means the field's value must be distinct across records.
	KindUnique Kind = "unique"
	// KindFormat means the value must match a textual shape.
	KindFormat Kind = "format"
	// KindRange means a numeric value must fall within bounds.
	KindRange Kind = "range"
)

// FieldConstraint is a structural requirement on a single field, derived
// from schema metadata independently of rule text.
type FieldConstraint struct {
	// Field is the constrained field's API name
	Field string

	Kind Kind

	// Expression is a human-readable statement of the constraint
	Expression string

	Severity sv.Severity

	// Pattern holds the compiled format pattern for KindFormat
	Pattern *regexp.Regexp

	// MaxLength bounds string length for KindFormat (0 = unbounded)
	MaxLength int

	// Min and Max bound numeric values for KindRange
	Min *decimal.Decimal
	Max *decimal.Decimal
}

// Satisfied reports whether a single value meets the constraint.
// Blank values satisfy format and range constraints; blankness is the
// required constraint's concern. Uniqueness cannot be judged from one
// value and always passes here; batch-level checks own it.
func (c FieldConstraint) Satisfied(value any) bool {
	switch c.Kind {
	case KindRequired:
		return !formula.IsBlank(value)

	case KindUnique:
		return true

	case KindFormat:
		if formula.IsBlank(value) {
			return true
		}
		s, ok := value.(string)
		if !ok {
			return false
		}
		if c.MaxLength > 0 && len(s) > c.MaxLength {
			return false
		}
		if c.Pattern != nil && !c.Pattern.MatchString(s) {
			return false
		}
		return true

	case KindRange:
		if formula.IsBlank(value) {
			return true
		}
		d, ok := toDecimal(value)
		if !ok {
			return false
		}
		if c.Min != nil && d.LessThan(*c.Min) {
			return false
		}
		if c.Max != nil && d.GreaterThan(*c.Max) {
			return false
		}
		return true

	default:
		return true
	}
}

// DependencyKind identifies the kind of a field dependency.
type DependencyKind string

const (
	// DependencyRequiredIf means the target field must be non-blank
	// when the condition on the source field(s) holds.
	DependencyRequiredIf DependencyKind = "required-if"
	// DependencyConditional marks a general cross-field condition.
	DependencyConditional DependencyKind = "conditional"
)

// FieldDependency is a cross-field requirement, typically derived from a
// conditional-requirement validation rule.
type FieldDependency struct {
	// SourceField drives the condition
	SourceField string
	// SourceFields lists every driving field for multi-field guards
	SourceFields []string
	// TargetField is the field that becomes required
	TargetField string

	Kind DependencyKind

	// Condition is the guard expression in formula text
	Condition string

	// Operator combines multiple guard conditions (AND/OR)
	Operator string

	// RuleID is the rule the dependency was derived from, if any
	RuleID string
}

// Describe returns a human-readable statement of the dependency.
func (d FieldDependency) Describe() string {
	return fmt.Sprintf("%s is required when %s", d.TargetField, d.Condition)
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case decimal.Decimal:
		return t, true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int64:
		return decimal.NewFromInt(t), true
	case float64:
		return decimal.NewFromFloat(t), true
	case string:
		d, err := decimal.NewFromString(t)
		return d, err == nil
	default:
		return decimal.Zero, false
	}
}

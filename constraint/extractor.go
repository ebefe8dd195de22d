package constraint

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	sv "github.com/angusmaul/salesforce-sandbox-data-seeder-sub002"
	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/rule"
	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/schema"
)

// Format patterns for textual field types.
var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9 ().-]{7,20}$`)
	urlPattern   = regexp.MustCompile(`^https?://[^\s]+$`)
)

// Extract derives field constraints and dependencies for one object.
// Required and unique constraints come from schema flags, format and
// range constraints from field-type heuristics, and dependencies from
// rules tagged as conditional requirements.
func Extract(s *schema.ObjectSchema, parsedRules []*rule.ParsedRule) ([]FieldConstraint, []FieldDependency) {
	var constraints []FieldConstraint

	for i := range s.Fields {
		f := &s.Fields[i]

		if f.Required {
			constraints = append(constraints, FieldConstraint{
				Field:      f.Name,
				Kind:       KindRequired,
				Expression: fmt.Sprintf("NOT(ISBLANK(%s))", f.Name),
				Severity:   sv.SeverityError,
			})
		}

		if f.Unique {
			constraints = append(constraints, FieldConstraint{
				Field:      f.Name,
				Kind:       KindUnique,
				Expression: fmt.Sprintf("%s must be distinct across records", f.Name),
				Severity:   sv.SeverityError,
			})
		}

		if fc, ok := formatConstraint(f); ok {
			constraints = append(constraints, fc)
		}

		if rc, ok := rangeConstraint(f); ok {
			constraints = append(constraints, rc)
		}
	}

	var deps []FieldDependency
	for _, pr := range parsedRules {
		if !pr.Active || !pr.HasPattern(rule.PatternConditionalRequirement) {
			continue
		}
		for _, cond := range pr.Conditionals {
			dep := FieldDependency{
				SourceFields: cond.SourceFields,
				TargetField:  cond.TargetField,
				Kind:         DependencyRequiredIf,
				Condition:    cond.Condition,
				Operator:     cond.Operator,
				RuleID:       pr.ID,
			}
			if len(cond.SourceFields) > 0 {
				dep.SourceField = cond.SourceFields[0]
			}
			deps = append(deps, dep)
		}
	}

	return constraints, deps
}

// formatConstraint maps textual field types to shape constraints.
func formatConstraint(f *schema.Field) (FieldConstraint, bool) {
	fc := FieldConstraint{
		Field:    f.Name,
		Kind:     KindFormat,
		Severity: sv.SeverityError,
	}

	switch f.Type {
	case schema.FieldTypeEmail:
		fc.Pattern = emailPattern
		fc.Expression = fmt.Sprintf("%s must be a valid email address", f.Name)
	case schema.FieldTypePhone:
		fc.Pattern = phonePattern
		fc.Expression = fmt.Sprintf("%s must be a valid phone number", f.Name)
	case schema.FieldTypeURL:
		fc.Pattern = urlPattern
		fc.Expression = fmt.Sprintf("%s must be a valid http(s) URL", f.Name)
	case schema.FieldTypeString, schema.FieldTypeTextArea:
		if f.Length <= 0 {
			return FieldConstraint{}, false
		}
		fc.Expression = fmt.Sprintf("LEN(%s) <= %d", f.Name, f.Length)
	default:
		return FieldConstraint{}, false
	}

	fc.MaxLength = f.Length
	return fc, true
}

// rangeConstraint derives numeric bounds from field type, precision,
// and scale.
func rangeConstraint(f *schema.Field) (FieldConstraint, bool) {
	if !f.Type.IsNumeric() {
		return FieldConstraint{}, false
	}

	var minVal, maxVal *decimal.Decimal

	if f.Precision > 0 {
		digits := f.Precision - f.Scale
		if digits < 1 {
			digits = 1
		}
		limit := decimal.New(1, int32(digits)).Sub(decimal.New(1, int32(-f.Scale)))
		maxVal = &limit
		negLimit := limit.Neg()
		minVal = &negLimit
	}

	switch f.Type {
	case schema.FieldTypeCurrency:
		zero := decimal.Zero
		minVal = &zero
	case schema.FieldTypePercent:
		zero := decimal.Zero
		hundred := decimal.NewFromInt(100)
		minVal = &zero
		if maxVal == nil || maxVal.GreaterThan(hundred) {
			maxVal = &hundred
		}
	}

	if minVal == nil && maxVal == nil {
		return FieldConstraint{}, false
	}

	expr := f.Name
	if minVal != nil {
		expr = minVal.String() + " <= " + expr
	}
	if maxVal != nil {
		expr = expr + " <= " + maxVal.String()
	}

	return FieldConstraint{
		Field:      f.Name,
		Kind:       KindRange,
		Expression: expr,
		Severity:   sv.SeverityError,
		Min:        minVal,
		Max:        maxVal,
	}, true
}

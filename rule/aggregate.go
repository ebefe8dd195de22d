package rule

import (
	"strings"

	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/schema"
)

// ObjectRuleAnalysis aggregates the analysis of an object's rule set.
// It sizes the constraint extractor's work and explains risk to callers.
type ObjectRuleAnalysis struct {
	ObjectName string `json:"objectName"`

	TotalRules  int `json:"totalRules"`
	ActiveRules int `json:"activeRules"`

	// Rules holds the per-rule analyses, active rules first,
	// otherwise in input order
	Rules []*ParsedRule `json:"rules"`

	// ReferencedFields is the union of fields across all active rules
	ReferencedFields []string `json:"referencedFields"`

	ByComplexity map[Complexity]int `json:"byComplexity"`
	ByRisk       map[RiskLevel]int  `json:"byRisk"`

	// UnsupportedRules lists active rules the local evaluator cannot
	// fully execute
	UnsupportedRules []string `json:"unsupportedRules,omitempty"`

	// ParseFailures counts rules that were classified conservatively
	ParseFailures int `json:"parseFailures"`
}

// HighestRisk returns the most severe risk level present among active rules.
func (a *ObjectRuleAnalysis) HighestRisk() RiskLevel {
	if a.ByRisk[RiskHigh] > 0 {
		return RiskHigh
	}
	if a.ByRisk[RiskMedium] > 0 {
		return RiskMedium
	}
	return RiskLow
}

// ParseObjectRules analyzes every rule of an object and aggregates the
// results. Inactive rules are analyzed but excluded from the field
// union, risk counts, and unsupported list.
func (p *Parser) ParseObjectRules(rules []schema.ValidationRule, objectName string) *ObjectRuleAnalysis {
	out := &ObjectRuleAnalysis{
		ObjectName:   objectName,
		TotalRules:   len(rules),
		ByComplexity: make(map[Complexity]int),
		ByRisk:       make(map[RiskLevel]int),
	}

	seenFields := make(map[string]bool)

	for _, r := range rules {
		parsed := p.ParseRule(r, objectName)
		out.Rules = append(out.Rules, parsed)

		if parsed.ParseFailed {
			out.ParseFailures++
		}

		if !r.Active {
			continue
		}
		out.ActiveRules++
		out.ByComplexity[parsed.Complexity]++
		out.ByRisk[parsed.Risk]++

		for _, f := range parsed.Fields {
			key := strings.ToLower(f)
			if !seenFields[key] {
				seenFields[key] = true
				out.ReferencedFields = append(out.ReferencedFields, f)
			}
		}

		if !parsed.Supported {
			name := r.Name
			if name == "" {
				name = r.ID
			}
			out.UnsupportedRules = append(out.UnsupportedRules, name)
		}
	}

	return out
}

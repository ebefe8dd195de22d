package rule

import "strings"

// Function categories for coverage reporting. Unsupported functions
// group by why they need org-side state.
const (
	CategoryLookup = "lookup_functions"
	CategoryState  = "state_functions"
	CategoryRegex  = "regex_functions"
	CategoryOther  = "other_functions"
)

// CategorizeFunction maps an unsupported formula function to the
// reason class it belongs to.
func CategorizeFunction(name string) string {
	switch strings.ToUpper(name) {
	case "VLOOKUP", "LOOKUP":
		return CategoryLookup
	case "PRIORVALUE", "ISCHANGED", "ISNEW", "ISCLONE":
		return CategoryState
	case "REGEX":
		return CategoryRegex
	default:
		return CategoryOther
	}
}

// Coverage returns the fraction of active rules the local evaluator
// can fully execute, in [0, 1]. An object with no active rules has
// full coverage.
func (a *ObjectRuleAnalysis) Coverage() float64 {
	if a.ActiveRules == 0 {
		return 1
	}
	evaluable := a.ActiveRules - len(a.UnsupportedRules)
	return float64(evaluable) / float64(a.ActiveRules)
}

// UnsupportedByCategory groups unsupported-function names by reason
// class across all active rules.
func (a *ObjectRuleAnalysis) UnsupportedByCategory() map[string][]string {
	out := make(map[string][]string)
	seen := make(map[string]bool)
	for _, r := range a.Rules {
		if !r.Active {
			continue
		}
		for _, fn := range r.UnsupportedFunctions {
			key := strings.ToUpper(fn)
			if seen[key] {
				continue
			}
			seen[key] = true
			cat := CategorizeFunction(fn)
			out[cat] = append(out[cat], key)
		}
	}
	return out
}

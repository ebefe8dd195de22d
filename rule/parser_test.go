package rule

import (
	"testing"

	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/formula"
	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/schema"
)

func newTestParser() *Parser {
	return NewParser(formula.NewEvaluator())
}

func TestParseRuleFormula(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name           string
		formula        string
		wantComplexity Complexity
		wantRisk       RiskLevel
		wantSupported  bool
		wantFields     []string
		wantPatterns   []Pattern
	}{
		{
			name:           "simple required check",
			formula:        "ISBLANK(Name)",
			wantComplexity: ComplexitySimple,
			wantRisk:       RiskLow,
			wantSupported:  true,
			wantFields:     []string{"Name"},
			wantPatterns:   []Pattern{PatternRequiredFieldCheck},
		},
		{
			name:           "conditional requirement",
			formula:        `AND(ISPICKVAL(StageName, "Closed Won"), ISBLANK(CloseDate))`,
			wantComplexity: ComplexityModerate,
			wantRisk:       RiskMedium,
			wantSupported:  true,
			wantFields:     []string{"StageName", "CloseDate"},
			wantPatterns:   []Pattern{PatternConditionalRequirement},
		},
		{
			name:           "date validation",
			formula:        "CloseDate < TODAY()",
			wantComplexity: ComplexitySimple,
			wantRisk:       RiskMedium,
			wantSupported:  true,
			wantFields:     []string{"CloseDate"},
			wantPatterns:   []Pattern{PatternDateValidation},
		},
		{
			name:           "cross object reference",
			formula:        `Account.Industry = "Energy" && ISBLANK(Description)`,
			wantComplexity: ComplexityModerate,
			wantRisk:       RiskHigh,
			wantSupported:  true,
			wantFields:     []string{"Account.Industry", "Description"},
			wantPatterns:   []Pattern{PatternCrossObjectValidation},
		},
		{
			name:           "global variable is not cross object",
			formula:        `$User.Country = "US"`,
			wantComplexity: ComplexitySimple,
			wantRisk:       RiskLow,
			wantSupported:  true,
			wantFields:     []string{"$User.Country"},
		},
		{
			name:           "unsupported function",
			formula:        `VLOOKUP($Setup.Config__c.Value__c, "key") = "x"`,
			wantComplexity: ComplexityComplex,
			wantRisk:       RiskMedium,
			wantSupported:  false,
			wantPatterns:   []Pattern{PatternUnsupportedFunction},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed := p.ParseRuleFormula(tt.formula, "Opportunity")

			if parsed.Complexity != tt.wantComplexity {
				t.Errorf("complexity = %s; want %s", parsed.Complexity, tt.wantComplexity)
			}
			if parsed.Risk != tt.wantRisk {
				t.Errorf("risk = %s; want %s", parsed.Risk, tt.wantRisk)
			}
			if parsed.Supported != tt.wantSupported {
				t.Errorf("supported = %v; want %v", parsed.Supported, tt.wantSupported)
			}
			if tt.wantFields != nil {
				if len(parsed.Fields) != len(tt.wantFields) {
					t.Fatalf("fields = %v; want %v", parsed.Fields, tt.wantFields)
				}
				for i, f := range tt.wantFields {
					if parsed.Fields[i] != f {
						t.Errorf("fields[%d] = %q; want %q", i, parsed.Fields[i], f)
					}
				}
			}
			for _, pat := range tt.wantPatterns {
				if !parsed.HasPattern(pat) {
					t.Errorf("missing pattern %s in %v", pat, parsed.Patterns)
				}
			}
		})
	}
}

func TestParseRuleFormulaFailure(t *testing.T) {
	p := newTestParser()

	parsed := p.ParseRuleFormula("AND(ISBLANK(Name),", "Account")
	if !parsed.ParseFailed {
		t.Error("expected ParseFailed")
	}
	if parsed.Supported {
		t.Error("expected unparseable formula to be unsupported")
	}
	if parsed.Complexity != ComplexityComplex {
		t.Errorf("complexity = %s; want %s", parsed.Complexity, ComplexityComplex)
	}
	if parsed.Risk != RiskMedium {
		t.Errorf("risk = %s; want %s", parsed.Risk, RiskMedium)
	}
	if len(parsed.Fields) != 0 {
		t.Errorf("fields = %v; want none", parsed.Fields)
	}
}

func TestExtractConditionals(t *testing.T) {
	p := newTestParser()

	parsed := p.ParseRuleFormula(`AND(ISPICKVAL(StageName, "Closed Won"), ISBLANK(CloseDate))`, "Opportunity")
	if len(parsed.Conditionals) != 1 {
		t.Fatalf("got %d conditionals; want 1", len(parsed.Conditionals))
	}

	c := parsed.Conditionals[0]
	if c.TargetField != "CloseDate" {
		t.Errorf("target = %q; want CloseDate", c.TargetField)
	}
	if len(c.SourceFields) != 1 || c.SourceFields[0] != "StageName" {
		t.Errorf("sources = %v; want [StageName]", c.SourceFields)
	}
	if c.Condition == "" {
		t.Error("expected rendered guard condition")
	}
}

func TestParseObjectRules(t *testing.T) {
	p := newTestParser()

	rules := []schema.ValidationRule{
		{ID: "r1", Name: "Name_Required", Formula: "ISBLANK(Name)", Active: true},
		{ID: "r2", Name: "Amount_Cap", Formula: "Amount > 1000000", Active: true},
		{ID: "r3", Name: "Legacy", Formula: "ISBLANK(OldField__c)", Active: false},
		{ID: "r4", Name: "Config_Check", Formula: `VLOOKUP(X__c, "k") = "v"`, Active: true},
	}

	a := p.ParseObjectRules(rules, "Account")

	if a.TotalRules != 4 {
		t.Errorf("total = %d; want 4", a.TotalRules)
	}
	if a.ActiveRules != 3 {
		t.Errorf("active = %d; want 3", a.ActiveRules)
	}
	if len(a.UnsupportedRules) != 1 {
		t.Errorf("unsupported = %v; want 1 entry", a.UnsupportedRules)
	}

	// inactive rules contribute no referenced fields
	for _, f := range a.ReferencedFields {
		if f == "OldField__c" {
			t.Error("inactive rule fields should not be referenced")
		}
	}
}

func TestCoverage(t *testing.T) {
	p := newTestParser()

	a := p.ParseObjectRules([]schema.ValidationRule{
		{ID: "r1", Formula: "ISBLANK(Name)", Active: true},
		{ID: "r2", Formula: `VLOOKUP(X__c, "k") = "v"`, Active: true},
	}, "Account")

	if got := a.Coverage(); got != 0.5 {
		t.Errorf("coverage = %f; want 0.5", got)
	}

	byCat := a.UnsupportedByCategory()
	if fns := byCat[CategoryLookup]; len(fns) != 1 || fns[0] != "VLOOKUP" {
		t.Errorf("lookup category = %v; want [VLOOKUP]", fns)
	}

	empty := p.ParseObjectRules(nil, "Empty")
	if got := empty.Coverage(); got != 1 {
		t.Errorf("coverage with no rules = %f; want 1", got)
	}
}

func TestCategorizeFunction(t *testing.T) {
	tests := []struct {
		fn   string
		want string
	}{
		{"VLOOKUP", CategoryLookup},
		{"PRIORVALUE", CategoryState},
		{"ISCHANGED", CategoryState},
		{"REGEX", CategoryRegex},
		{"DISTANCE", CategoryOther},
	}
	for _, tt := range tests {
		if got := CategorizeFunction(tt.fn); got != tt.want {
			t.Errorf("CategorizeFunction(%s) = %s; want %s", tt.fn, got, tt.want)
		}
	}
}

package formula

import (
	"sort"
	"testing"
	"time"

	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/schema"
)

func opportunitySchema() *schema.ObjectSchema {
	return &schema.ObjectSchema{
		Name: "Opportunity",
		Fields: []schema.Field{
			{Name: "Name", Type: schema.FieldTypeString, Required: true},
			{Name: "Amount", Type: schema.FieldTypeCurrency},
			{Name: "StageName", Type: schema.FieldTypePicklist, PicklistValues: []string{"Prospecting", "Closed Won", "Closed Lost"}},
			{Name: "CloseDate", Type: schema.FieldTypeDate},
			{Name: "Discount__c", Type: schema.FieldTypePercent},
		},
	}
}

func record(pairs ...any) *schema.Record {
	rec := schema.NewRecord()
	for i := 0; i+1 < len(pairs); i += 2 {
		rec.Set(pairs[i].(string), pairs[i+1])
	}
	return rec
}

func TestEvaluateBool(t *testing.T) {
	s := opportunitySchema()

	tests := []struct {
		name    string
		formula string
		record  *schema.Record
		want    bool
	}{
		{
			name:    "blank required field fires",
			formula: "ISBLANK(Name)",
			record:  record("Amount", 100),
			want:    true,
		},
		{
			name:    "whitespace counts as blank",
			formula: "ISBLANK(Name)",
			record:  record("Name", "   "),
			want:    true,
		},
		{
			name:    "populated field does not fire",
			formula: "ISBLANK(Name)",
			record:  record("Name", "Acme"),
			want:    false,
		},
		{
			name:    "numeric comparison",
			formula: "Amount > 10000",
			record:  record("Amount", 25000),
			want:    true,
		},
		{
			name:    "comparison against missing field is false",
			formula: "Amount > 10000",
			record:  record("Name", "Acme"),
			want:    false,
		},
		{
			name:    "conditional requirement fires when guard holds",
			formula: `IF(ISPICKVAL(StageName, "Closed Won"), ISBLANK(CloseDate), false)`,
			record:  record("StageName", "Closed Won"),
			want:    true,
		},
		{
			name:    "conditional requirement quiet when guard fails",
			formula: `IF(ISPICKVAL(StageName, "Closed Won"), ISBLANK(CloseDate), false)`,
			record:  record("StageName", "Prospecting"),
			want:    false,
		},
		{
			name:    "and across conditions",
			formula: `AND(ISPICKVAL(StageName, "Closed Won"), Amount < 100)`,
			record:  record("StageName", "Closed Won", "Amount", 50),
			want:    true,
		},
		{
			name:    "ampersand operators",
			formula: `ISBLANK(Name) && Amount > 0`,
			record:  record("Amount", 5),
			want:    true,
		},
		{
			name:    "or short-circuits",
			formula: `OR(ISBLANK(Name), ISBLANK(CloseDate))`,
			record:  record("Name", "Acme"),
			want:    true,
		},
		{
			name:    "not",
			formula: "NOT(ISBLANK(Name))",
			record:  record("Name", "Acme"),
			want:    true,
		},
		{
			name:    "functions are case-insensitive",
			formula: "isblank(name)",
			record:  record("Amount", 1),
			want:    true,
		},
		{
			name:    "string equality",
			formula: `Name = "Acme"`,
			record:  record("Name", "Acme"),
			want:    true,
		},
		{
			name:    "not equal",
			formula: `Name <> "Acme"`,
			record:  record("Name", "Globex"),
			want:    true,
		},
		{
			name:    "text functions",
			formula: `LEN(Name) > 3 && BEGINS(UPPER(Name), "AC")`,
			record:  record("Name", "Acme Corp"),
			want:    true,
		},
		{
			name:    "discount range",
			formula: "Discount__c > 40",
			record:  record("Discount__c", 55),
			want:    true,
		},
		{
			name:    "arithmetic in comparison",
			formula: "Amount * 2 >= 100",
			record:  record("Amount", 50),
			want:    true,
		},
		{
			name:    "unknown function degrades to false",
			formula: `VLOOKUP($Setup.Config__c.Value__c, "key") = "x"`,
			record:  record("Name", "Acme"),
			want:    false,
		},
		{
			name:    "malformed formula degrades to false",
			formula: "AND(ISBLANK(Name),",
			record:  record("Name", ""),
			want:    false,
		},
		{
			name:    "empty formula degrades to false",
			formula: "",
			record:  record("Name", "Acme"),
			want:    false,
		},
		{
			name:    "division by zero degrades to false",
			formula: "Amount / 0 > 1",
			record:  record("Amount", 10),
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEvaluator()
			got := e.EvaluateBool(tt.formula, tt.record, s)
			if got != tt.want {
				t.Errorf("EvaluateBool(%q) = %v; want %v", tt.formula, got, tt.want)
			}
		})
	}
}

func TestEvaluateNestedPath(t *testing.T) {
	e := NewEvaluator()
	s := opportunitySchema()

	rec := record("Name", "Acme", "Account", map[string]any{"Industry": "Energy"})

	if !e.EvaluateBool(`Account.Industry = "Energy"`, rec, s) {
		t.Error("expected nested map path to resolve")
	}
	if e.EvaluateBool(`Account.Industry = "Retail"`, rec, s) {
		t.Error("expected nested mismatch to be false")
	}
	// too deep resolves blank
	if !e.EvaluateBool("ISBLANK(Account.Owner.Name)", rec, s) {
		t.Error("expected three-segment path to resolve blank")
	}
}

func TestEvaluateDates(t *testing.T) {
	e := NewEvaluator()
	e.SetClock(func() time.Time {
		return time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	})
	s := opportunitySchema()

	tests := []struct {
		name    string
		formula string
		record  *schema.Record
		want    bool
	}{
		{
			name:    "close date before today fires",
			formula: "CloseDate < TODAY()",
			record:  record("CloseDate", "2026-01-01"),
			want:    true,
		},
		{
			name:    "future close date passes",
			formula: "CloseDate < TODAY()",
			record:  record("CloseDate", "2026-06-01"),
			want:    false,
		},
		{
			name:    "year extraction",
			formula: "YEAR(CloseDate) = 2026",
			record:  record("CloseDate", "2026-06-01"),
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.EvaluateBool(tt.formula, tt.record, s)
			if got != tt.want {
				t.Errorf("EvaluateBool(%q) = %v; want %v", tt.formula, got, tt.want)
			}
		})
	}
}

func TestCanEvaluate(t *testing.T) {
	e := NewEvaluator()

	tests := []struct {
		formula string
		want    bool
	}{
		{"ISBLANK(Name)", true},
		{`AND(Amount > 0, ISPICKVAL(StageName, "Closed Won"))`, true},
		{`VLOOKUP(Config__c, "key")`, false},
		{"PRIORVALUE(StageName) <> TEXT(StageName)", false},
		{"AND(ISBLANK(Name),", false},
	}

	for _, tt := range tests {
		if got := e.CanEvaluate(tt.formula); got != tt.want {
			t.Errorf("CanEvaluate(%q) = %v; want %v", tt.formula, got, tt.want)
		}
	}
}

func TestUnsupportedFunctions(t *testing.T) {
	e := NewEvaluator()

	got := e.UnsupportedFunctions(`VLOOKUP($Setup.X.Y, "k") = "v" && REGEX(Phone, "[0-9]+")`)
	want := map[string]bool{"VLOOKUP": true, "REGEX": true}
	if len(got) != len(want) {
		t.Fatalf("got %v; want 2 unsupported functions", got)
	}
	for _, fn := range got {
		if !want[fn] {
			t.Errorf("unexpected unsupported function %q", fn)
		}
	}

	if fns := e.UnsupportedFunctions("ISBLANK(Name)"); len(fns) != 0 {
		t.Errorf("got %v; want none", fns)
	}
}

func TestIsBlank(t *testing.T) {
	tests := []struct {
		value any
		want  bool
	}{
		{nil, true},
		{"", true},
		{"  \t ", true},
		{"x", false},
		{0, false},
		{false, false},
	}

	for _, tt := range tests {
		if got := IsBlank(tt.value); got != tt.want {
			t.Errorf("IsBlank(%v) = %v; want %v", tt.value, got, tt.want)
		}
	}
}

func TestSupportedFunctionsRegistered(t *testing.T) {
	e := NewEvaluator()
	fns := e.SupportedFunctions()
	if len(fns) == 0 {
		t.Fatal("no functions registered")
	}
	if !sort.StringsAreSorted(fns) {
		t.Errorf("functions not sorted: %v", fns)
	}
	for _, want := range []string{"AND", "IF", "ISBLANK", "ISPICKVAL", "LEFT", "TODAY"} {
		found := false
		for _, fn := range fns {
			if fn == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing function %s in %v", want, fns)
		}
	}
}

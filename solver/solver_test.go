package solver

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	sv "github.com/angusmaul/salesforce-sandbox-data-seeder-sub002"
	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/constraint"
	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/formula"
	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/rule"
	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/schema"
)

func opportunitySchema() *schema.ObjectSchema {
	return &schema.ObjectSchema{
		Name: "Opportunity",
		Fields: []schema.Field{
			{Name: "Name", Type: schema.FieldTypeString, Required: true, Length: 120},
			{Name: "StageName", Type: schema.FieldTypePicklist, Required: true, PicklistValues: []string{"Prospecting", "Qualification", "Closed Won"}},
			{Name: "Amount", Type: schema.FieldTypeCurrency, Precision: 10, Scale: 2},
			{Name: "CloseDate", Type: schema.FieldTypeDate, Required: true},
			{Name: "ContactEmail__c", Type: schema.FieldTypeEmail},
			{Name: "Probability", Type: schema.FieldTypePercent},
		},
		ValidationRules: []schema.ValidationRule{
			{ID: "r1", Name: "Name_Required", Formula: "ISBLANK(Name)", ErrorMessage: "Name is required", Active: true},
		},
	}
}

func buildSolver(t *testing.T, s *schema.ObjectSchema, opts ...sv.Option) *Solver {
	t.Helper()
	p := rule.NewParser(formula.NewEvaluator())
	analysis := p.ParseObjectRules(s.ValidationRules, s.Name)
	constraints, deps := constraint.Extract(s, analysis.Rules)
	return New(s, analysis.Rules, constraints, deps, opts...)
}

func TestGenerateCompliantRecord(t *testing.T) {
	s := opportunitySchema()
	sol := buildSolver(t, s, sv.WithSeed(42))

	g := sol.GenerateCompliantRecord(context.Background())
	if !g.Compliant() {
		t.Fatalf("expected compliant record; got violations %v", g.UnresolvedViolations)
	}
	if g.Attempts < 1 {
		t.Errorf("attempts = %d; want at least 1", g.Attempts)
	}

	for _, name := range []string{"Name", "StageName", "CloseDate"} {
		v, ok := g.Record.Get(name)
		if !ok || formula.IsBlank(v) {
			t.Errorf("required field %s is blank", name)
		}
	}

	stage, _ := g.Record.Get("StageName")
	found := false
	for _, pv := range s.Fields[1].PicklistValues {
		if stage == pv {
			found = true
		}
	}
	if !found {
		t.Errorf("picklist value %v not from the declared set", stage)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	s := opportunitySchema()

	a := buildSolver(t, s, sv.WithSeed(7)).GenerateCompliantRecord(context.Background())
	b := buildSolver(t, s, sv.WithSeed(7)).GenerateCompliantRecord(context.Background())

	av := fmt.Sprint(a.Record.ToMap())
	bv := fmt.Sprint(b.Record.ToMap())
	if av != bv {
		t.Errorf("same seed produced different records:\n%s\n%s", av, bv)
	}

	c := buildSolver(t, s, sv.WithSeed(8)).GenerateCompliantRecord(context.Background())
	if fmt.Sprint(c.Record.ToMap()) == av {
		t.Error("different seeds produced identical records")
	}
}

func TestGenerateRetriesOnRuleViolation(t *testing.T) {
	s := opportunitySchema()
	// fires on roughly half of generated amounts, forcing retries on
	// some seeds without making the budget unreachable
	s.ValidationRules = append(s.ValidationRules, schema.ValidationRule{
		ID: "r2", Name: "Amount_Cap", Formula: "Amount > 5000", Active: true,
	})

	compliant := 0
	for seed := int64(1); seed <= 10; seed++ {
		sol := buildSolver(t, s, sv.WithSeed(seed), sv.WithAttemptBudget(10))
		g := sol.GenerateCompliantRecord(context.Background())
		if g.Compliant() {
			compliant++
			amount, _ := g.Record.Get("Amount")
			if sol.eval.EvaluateBool("Amount > 5000", g.Record, s) {
				t.Errorf("seed %d: compliant record still violates cap, amount %v", seed, amount)
			}
		}
		if g.Attempts > 10 {
			t.Errorf("seed %d: attempts %d exceeded budget", seed, g.Attempts)
		}
	}
	if compliant == 0 {
		t.Error("no seed produced a compliant record within budget")
	}
}

func TestGenerateBudgetExhaustion(t *testing.T) {
	s := opportunitySchema()
	// always true: no record can satisfy this rule
	s.ValidationRules = append(s.ValidationRules, schema.ValidationRule{
		ID: "impossible", Name: "Always_Fails", Formula: "NOT(ISBLANK(Name))", Active: true,
	})

	sol := buildSolver(t, s, sv.WithSeed(1), sv.WithAttemptBudget(3))
	g := sol.GenerateCompliantRecord(context.Background())

	if g.Compliant() {
		t.Fatal("expected unresolved violations")
	}
	if g.Attempts != 3 {
		t.Errorf("attempts = %d; want 3", g.Attempts)
	}

	found := false
	for _, issue := range g.UnresolvedViolations {
		if issue.RuleID == "impossible" {
			found = true
		}
	}
	if !found {
		t.Errorf("violations %v missing the impossible rule", g.UnresolvedViolations)
	}
}

func TestGenerateCompliantRecords(t *testing.T) {
	s := opportunitySchema()
	sol := buildSolver(t, s, sv.WithSeed(3))

	out := sol.GenerateCompliantRecords(context.Background(), 5)
	if len(out) != 5 {
		t.Fatalf("got %d records; want 5", len(out))
	}

	// unique names across a batch come from distinct draws
	seen := make(map[string]bool)
	for _, g := range out {
		name, _ := g.Record.Get("Name")
		seen[fmt.Sprint(name)] = true
	}
	if len(seen) < 2 {
		t.Error("expected varying names across generated records")
	}
}

func TestGenerateCancellation(t *testing.T) {
	s := opportunitySchema()
	sol := buildSolver(t, s, sv.WithSeed(1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := sol.GenerateCompliantRecords(ctx, 100)
	if len(out) != 0 {
		t.Errorf("got %d records after cancellation; want 0", len(out))
	}
}

func TestNumericMagnitudes(t *testing.T) {
	g := newValueGen(7)

	wide := &schema.Field{Name: "Amount", Type: schema.FieldTypeCurrency, Precision: 10, Scale: 2}
	bound := decimal.NewFromInt(10000)
	for i := 0; i < 200; i++ {
		d, ok := g.currencyValue(wide).(decimal.Decimal)
		if !ok {
			t.Fatal("currency value is not a decimal")
		}
		if d.GreaterThanOrEqual(bound) {
			t.Fatalf("amount %s outside the business-realistic bound", d)
		}
	}

	narrow := &schema.Field{Name: "Qty", Type: schema.FieldTypeInt, Precision: 2, Scale: 0}
	for i := 0; i < 200; i++ {
		n := g.intValue(narrow).(int64)
		if n < 1 || n > 99 {
			t.Fatalf("int %d outside the field's two-digit precision", n)
		}
	}
}

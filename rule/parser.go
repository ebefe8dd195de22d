// Package rule analyzes validation-rule formulas structurally: which
// fields they reference, how complex they are, what shape of business
// constraint they express, and how risky they look.
//
// Analysis never fails. A formula that does not parse is classified
// conservatively (complex, medium risk, no extracted fields) so that
// downstream consumers always have something to work with.
package rule

import (
	"strings"

	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/formula"
	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/schema"
)

// Complexity classifies a formula's structural complexity.
type Complexity string

const (
	// ComplexitySimple is a single-predicate formula.
	ComplexitySimple Complexity = "simple"
	// ComplexityModerate combines two or three operators/conditions.
	ComplexityModerate Complexity = "moderate"
	// ComplexityComplex is anything beyond that, including formulas
	// that fail to parse.
	ComplexityComplex Complexity = "complex"
)

// RiskLevel is a heuristic severity classification used to decide
// whether extra review is warranted.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Pattern tags the structural shape of a rule. Tags are non-exclusive.
type Pattern string

const (
	// PatternRequiredFieldCheck marks ISBLANK/ISNULL-only predicates.
	PatternRequiredFieldCheck Pattern = "required_field_check"
	// PatternConditionalRequirement marks a guard combined with a
	// blank check (field B required when condition on field A holds).
	PatternConditionalRequirement Pattern = "conditional_requirement"
	// PatternDateValidation marks date comparisons.
	PatternDateValidation Pattern = "date_validation"
	// PatternCrossObjectValidation marks dotted references spanning a
	// relationship; always high risk.
	PatternCrossObjectValidation Pattern = "cross_object_validation"
	// PatternUnsupportedFunction marks formulas using functions the
	// local evaluator cannot execute.
	PatternUnsupportedFunction Pattern = "unsupported_function"
)

// ConditionalRequirement captures the guard/target structure of a
// conditional-requirement rule, for conversion into a field dependency.
type ConditionalRequirement struct {
	// TargetField is the field the blank check applies to
	TargetField string
	// SourceFields are the fields the guard condition reads
	SourceFields []string
	// Condition is the guard expression, rendered back to formula text
	Condition string
	// Operator is how multiple guard conditions combine (AND/OR)
	Operator string
}

// ParsedRule is the structural analysis of one validation rule.
// Immutable once produced; re-parse only if the formula text changes.
type ParsedRule struct {
	ID           string
	Name         string
	ObjectName   string
	Formula      string
	ErrorMessage string
	ErrorField   string
	Active       bool
	Severity     string

	// Fields holds every distinct field referenced, dotted paths included
	Fields []string

	Complexity Complexity
	Risk       RiskLevel
	Patterns   []Pattern

	// Supported is true when the local evaluator can execute the formula
	Supported bool
	// UnsupportedFunctions lists the functions blocking local evaluation
	UnsupportedFunctions []string
	// ParseFailed is true when the formula did not parse
	ParseFailed bool

	// Conditionals holds extracted conditional-requirement structures
	Conditionals []ConditionalRequirement
}

// HasPattern reports whether the rule carries a pattern tag.
func (r *ParsedRule) HasPattern(p Pattern) bool {
	for _, tag := range r.Patterns {
		if tag == p {
			return true
		}
	}
	return false
}

// Parser performs structural rule analysis. It shares the formula
// evaluator so support checks and AST caching are consistent with
// evaluation.
type Parser struct {
	eval *formula.Evaluator
}

// NewParser creates a rule parser backed by the given evaluator.
func NewParser(eval *formula.Evaluator) *Parser {
	if eval == nil {
		eval = formula.NewEvaluator()
	}
	return &Parser{eval: eval}
}

// ParseRuleFormula analyzes a raw formula without rule metadata.
func (p *Parser) ParseRuleFormula(formulaText, objectName string) *ParsedRule {
	return p.ParseRule(schema.ValidationRule{Formula: formulaText, Active: true}, objectName)
}

// ParseRule analyzes one validation rule.
func (p *Parser) ParseRule(r schema.ValidationRule, objectName string) *ParsedRule {
	out := &ParsedRule{
		ID:           r.ID,
		Name:         r.Name,
		ObjectName:   objectName,
		Formula:      r.Formula,
		ErrorMessage: r.ErrorMessage,
		ErrorField:   r.ErrorField,
		Active:       r.Active,
		Severity:     r.Severity,
	}

	out.UnsupportedFunctions = p.eval.UnsupportedFunctions(r.Formula)
	out.Supported = p.eval.CanEvaluate(r.Formula)
	if len(out.UnsupportedFunctions) > 0 {
		out.Patterns = append(out.Patterns, PatternUnsupportedFunction)
	}

	root, err := formula.Parse(r.Formula)
	if err != nil {
		// Conservative classification on parse failure
		out.ParseFailed = true
		out.Complexity = ComplexityComplex
		out.Risk = RiskMedium
		return out
	}

	out.Fields = formula.FieldRefs(root)
	out.Complexity = classifyComplexity(root)
	p.tagPatterns(out, root)
	out.Risk = classifyRisk(out)

	// A rule the local evaluator cannot execute gets the same
	// conservative classification as a parse failure, except that a
	// genuine cross-object reference keeps its high risk.
	if !out.Supported {
		out.Complexity = ComplexityComplex
		if out.Risk != RiskHigh {
			out.Risk = RiskMedium
		}
	}

	return out
}

// classifyComplexity scores predicates and logical connectives.
func classifyComplexity(root formula.Node) Complexity {
	score := 0
	formula.Walk(root, func(n formula.Node) bool {
		switch v := n.(type) {
		case *formula.Binary:
			switch v.Op {
			case "&&", "||", "=", "==", "<>", "!=", "<", "<=", ">", ">=":
				score++
			}
		case *formula.Call:
			switch v.Name {
			case "AND", "OR", "NOT", "IF",
				"ISBLANK", "ISNULL", "ISNOTBLANK", "ISPICKVAL",
				"CONTAINS", "BEGINS":
				score++
			}
		case *formula.Unary:
			if v.Op == "!" {
				score++
			}
		}
		return true
	})

	switch {
	case score <= 1:
		return ComplexitySimple
	case score <= 3:
		return ComplexityModerate
	default:
		return ComplexityComplex
	}
}

// tagPatterns attaches structural pattern tags and extracts any
// conditional-requirement structure.
func (p *Parser) tagPatterns(out *ParsedRule, root formula.Node) {
	var (
		blankCalls  int
		otherCalls  int
		comparisons int
		hasGuardOp  bool
		hasDateFn   bool
		crossObject bool
	)

	formula.Walk(root, func(n formula.Node) bool {
		switch v := n.(type) {
		case *formula.Call:
			switch v.Name {
			case "ISBLANK", "ISNULL":
				blankCalls++
			case "AND", "IF":
				hasGuardOp = true
			case "OR", "NOT":
				// logical glue, neither blank check nor predicate
			case "TODAY", "NOW", "YEAR":
				hasDateFn = true
				otherCalls++
			default:
				otherCalls++
			}
		case *formula.Binary:
			switch v.Op {
			case "=", "==", "<>", "!=", "<", "<=", ">", ">=":
				comparisons++
			case "&&":
				hasGuardOp = true
			}
		case *formula.FieldRef:
			// $-prefixed paths are global variables ($Setup, $User),
			// not relationship traversals
			if len(v.Path) > 1 && !strings.HasPrefix(v.Raw, "$") {
				crossObject = true
			}
			if strings.Contains(strings.ToLower(v.Raw), "date") {
				hasDateFn = hasDateFn || comparisonsNearby(root)
			}
		}
		return true
	})

	if blankCalls > 0 && otherCalls == 0 && comparisons == 0 {
		out.Patterns = append(out.Patterns, PatternRequiredFieldCheck)
	}

	if blankCalls > 0 && hasGuardOp && (comparisons > 0 || otherCalls > 0) {
		out.Patterns = append(out.Patterns, PatternConditionalRequirement)
		out.Conditionals = extractConditionals(root)
	}

	if hasDateFn {
		out.Patterns = append(out.Patterns, PatternDateValidation)
	}

	if crossObject {
		out.Patterns = append(out.Patterns, PatternCrossObjectValidation)
	}
}

// comparisonsNearby reports whether the tree contains any comparison;
// a date-named field alone is not a date validation.
func comparisonsNearby(root formula.Node) bool {
	found := false
	formula.Walk(root, func(n formula.Node) bool {
		if b, ok := n.(*formula.Binary); ok {
			switch b.Op {
			case "=", "==", "<>", "!=", "<", "<=", ">", ">=":
				found = true
				return false
			}
		}
		return true
	})
	return found
}

// classifyRisk derives the risk level from patterns and complexity.
// Cross-object references are high risk unconditionally.
func classifyRisk(r *ParsedRule) RiskLevel {
	if r.HasPattern(PatternCrossObjectValidation) {
		return RiskHigh
	}
	if r.Complexity == ComplexityComplex || len(r.Fields) > 3 {
		return RiskMedium
	}
	if r.Complexity == ComplexityModerate || r.HasPattern(PatternDateValidation) {
		return RiskMedium
	}
	return RiskLow
}

// extractConditionals pulls guard/blank-check pairs out of AND(...) and
// IF(...) shapes, one level deep.
func extractConditionals(root formula.Node) []ConditionalRequirement {
	var out []ConditionalRequirement

	collect := func(guards []formula.Node, blanks []formula.Node, operator string) {
		if len(guards) == 0 || len(blanks) == 0 {
			return
		}
		var guardFields []string
		var guardText []string
		for _, g := range guards {
			guardFields = append(guardFields, formula.FieldRefs(g)...)
			guardText = append(guardText, formula.Render(g))
		}
		for _, b := range blanks {
			call, ok := b.(*formula.Call)
			if !ok || len(call.Args) != 1 {
				continue
			}
			ref, ok := call.Args[0].(*formula.FieldRef)
			if !ok {
				continue
			}
			out = append(out, ConditionalRequirement{
				TargetField:  ref.Raw,
				SourceFields: dedupe(guardFields),
				Condition:    strings.Join(guardText, " "+operator+" "),
				Operator:     operator,
			})
		}
	}

	split := func(args []formula.Node, operator string) {
		var guards, blanks []formula.Node
		for _, arg := range args {
			if call, ok := arg.(*formula.Call); ok && (call.Name == "ISBLANK" || call.Name == "ISNULL") {
				blanks = append(blanks, arg)
				continue
			}
			guards = append(guards, arg)
		}
		collect(guards, blanks, operator)
	}

	switch v := root.(type) {
	case *formula.Call:
		switch v.Name {
		case "AND":
			split(v.Args, "AND")
		case "OR":
			split(v.Args, "OR")
		case "IF":
			if len(v.Args) == 3 {
				split([]formula.Node{v.Args[0], v.Args[1]}, "AND")
			}
		}
	case *formula.Binary:
		if v.Op == "&&" {
			split([]formula.Node{v.Left, v.Right}, "AND")
		}
	}

	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		key := strings.ToLower(s)
		if !seen[key] {
			seen[key] = true
			out = append(out, s)
		}
	}
	return out
}

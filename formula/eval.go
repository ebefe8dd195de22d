// Package formula interprets the Salesforce validation-rule formula
// language: a tokenizer, a recursive-descent parser, and a tree-walking
// evaluator with a fixed set of supported functions.
//
// The evaluator never fails outward. Malformed formulas, unsupported
// functions, and missing fields all evaluate to false, the conservative
// value for a violation check; support status is exposed separately
// through CanEvaluate and UnsupportedFunctions.
package formula

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/cache"
	"github.com/angusmaul/salesforce-sandbox-data-seeder-sub002/schema"
)

// ErrUnsupported marks evaluation failures caused by functions outside
// the supported set.
var ErrUnsupported = fmt.Errorf("formula: unsupported function")

// defaultASTCacheSize bounds the parsed-formula cache.
const defaultASTCacheSize = 2000

// parsed caches a parse outcome, including failures, so repeated
// evaluation of a broken rule does not re-parse it.
type parsed struct {
	root Node
	err  error
}

// env carries per-evaluation state.
type env struct {
	record *schema.Record
	object *schema.ObjectSchema
}

// builtin evaluates one function call. Arguments arrive unevaluated so
// AND/OR/IF can short-circuit.
type builtin func(e *Evaluator, ev env, args []Node) (any, error)

// Evaluator interprets formulas against records. It is safe for
// concurrent use and caches parsed ASTs by formula text.
type Evaluator struct {
	asts *cache.Cache[string, parsed]

	// now is swappable for date-function tests
	now func() time.Time
}

// NewEvaluator creates an Evaluator with a default-sized AST cache.
func NewEvaluator() *Evaluator {
	return &Evaluator{
		asts: cache.New[string, parsed](defaultASTCacheSize, 0),
		now:  time.Now,
	}
}

// SetClock replaces the time source used by TODAY and NOW. For tests.
func (e *Evaluator) SetClock(now func() time.Time) {
	if now != nil {
		e.now = now
	}
}

// parse returns the cached AST for a formula, parsing on first use.
func (e *Evaluator) parse(formula string) (Node, error) {
	p, _ := e.asts.GetOrCompute(formula, func() (parsed, error) {
		root, err := Parse(formula)
		return parsed{root: root, err: err}, nil
	})
	return p.root, p.err
}

// Evaluate interprets a formula against a record. The object schema is
// optional metadata. Any failure yields false rather than an error.
func (e *Evaluator) Evaluate(formula string, record *schema.Record, object *schema.ObjectSchema) any {
	root, err := e.parse(formula)
	if err != nil {
		return false
	}

	v, err := e.eval(root, env{record: record, object: object})
	if err != nil {
		return false
	}
	return v
}

// EvaluateBool interprets a formula and coerces the result to boolean.
// For a validation rule, true means the rule fired (record violates it).
func (e *Evaluator) EvaluateBool(formula string, record *schema.Record, object *schema.ObjectSchema) bool {
	return isTruthy(e.Evaluate(formula, record, object))
}

// CanEvaluate reports whether a formula parses and uses only supported
// functions.
func (e *Evaluator) CanEvaluate(formula string) bool {
	root, err := e.parse(formula)
	if err != nil {
		return false
	}
	for _, name := range Calls(root) {
		if _, ok := builtins[name]; !ok {
			return false
		}
	}
	return true
}

// SupportedFunctions returns the sorted list of supported function names.
func (e *Evaluator) SupportedFunctions() []string {
	out := make([]string, 0, len(builtins))
	for name := range builtins {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// UnsupportedFunctions returns function names used by the formula that
// the evaluator cannot execute. It works from the token stream so a
// formula that fails to parse still reports its functions.
func (e *Evaluator) UnsupportedFunctions(formula string) []string {
	var out []string
	seen := make(map[string]bool)

	toks := tokenize(formula)
	for i := 0; i+1 < len(toks); i++ {
		if toks[i].kind != tokIdent || toks[i+1].kind != tokLParen {
			continue
		}
		name := strings.ToUpper(toks[i].text)
		if strings.Contains(name, ".") {
			continue
		}
		if _, ok := builtins[name]; ok {
			continue
		}
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// eval walks the tree. Cost is linear in node count: every node is
// visited at most once.
func (e *Evaluator) eval(n Node, ev env) (any, error) {
	switch v := n.(type) {
	case *Literal:
		return v.Value, nil

	case *FieldRef:
		return resolveField(ev, v.Path), nil

	case *Unary:
		return e.evalUnary(v, ev)

	case *Binary:
		return e.evalBinary(v, ev)

	case *Call:
		fn, ok := builtins[v.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupported, v.Name)
		}
		return fn(e, ev, v.Args)

	default:
		return nil, fmt.Errorf("formula: unknown node %T", n)
	}
}

func (e *Evaluator) evalUnary(u *Unary, ev env) (any, error) {
	x, err := e.eval(u.X, ev)
	if err != nil {
		return nil, err
	}

	switch u.Op {
	case "!":
		return !isTruthy(x), nil
	case "-":
		d, ok := toDecimal(x)
		if !ok {
			return nil, fmt.Errorf("formula: cannot negate %v", x)
		}
		return d.Neg(), nil
	default:
		return nil, fmt.Errorf("formula: unknown unary %q", u.Op)
	}
}

func (e *Evaluator) evalBinary(b *Binary, ev env) (any, error) {
	// Short-circuit logical operators
	switch b.Op {
	case "&&":
		l, err := e.eval(b.Left, ev)
		if err != nil {
			return nil, err
		}
		if !isTruthy(l) {
			return false, nil
		}
		r, err := e.eval(b.Right, ev)
		if err != nil {
			return nil, err
		}
		return isTruthy(r), nil

	case "||":
		l, err := e.eval(b.Left, ev)
		if err != nil {
			return nil, err
		}
		if isTruthy(l) {
			return true, nil
		}
		r, err := e.eval(b.Right, ev)
		if err != nil {
			return nil, err
		}
		return isTruthy(r), nil
	}

	l, err := e.eval(b.Left, ev)
	if err != nil {
		return nil, err
	}
	r, err := e.eval(b.Right, ev)
	if err != nil {
		return nil, err
	}

	switch b.Op {
	case "=", "==":
		return equals(l, r), nil
	case "<>", "!=":
		return !equals(l, r), nil
	case "<", "<=", ">", ">=":
		cmp, ok := compare(l, r)
		if !ok {
			return nil, fmt.Errorf("formula: cannot compare %v %s %v", l, b.Op, r)
		}
		switch b.Op {
		case "<":
			return cmp < 0, nil
		case "<=":
			return cmp <= 0, nil
		case ">":
			return cmp > 0, nil
		default:
			return cmp >= 0, nil
		}
	case "&":
		return toText(l) + toText(r), nil
	case "+", "-", "*", "/":
		ld, lok := toDecimal(l)
		rd, rok := toDecimal(r)
		if !lok || !rok {
			return nil, fmt.Errorf("formula: non-numeric operand for %q", b.Op)
		}
		switch b.Op {
		case "+":
			return ld.Add(rd), nil
		case "-":
			return ld.Sub(rd), nil
		case "*":
			return ld.Mul(rd), nil
		default:
			if rd.IsZero() {
				return nil, fmt.Errorf("formula: division by zero")
			}
			return ld.Div(rd), nil
		}
	default:
		return nil, fmt.Errorf("formula: unknown operator %q", b.Op)
	}
}

// resolveField resolves a field path against the record. Missing fields
// resolve as nil (blank). Dotted paths navigate one level into a nested
// map or record; anything deeper or absent resolves as nil.
func resolveField(ev env, path []string) any {
	if ev.record == nil || len(path) == 0 {
		return nil
	}

	v, ok := ev.record.Get(path[0])
	if !ok {
		return nil
	}
	if len(path) == 1 {
		return v
	}
	if len(path) > 2 {
		return nil
	}

	switch nested := v.(type) {
	case *schema.Record:
		inner, _ := nested.Get(path[1])
		return inner
	case map[string]any:
		for k, val := range nested {
			if strings.EqualFold(k, path[1]) {
				return val
			}
		}
		return nil
	default:
		return nil
	}
}

// argCount validates a builtin's arity.
func argCount(name string, args []Node, min, max int) error {
	if len(args) < min || (max >= 0 && len(args) > max) {
		return fmt.Errorf("formula: %s: wrong argument count %d", name, len(args))
	}
	return nil
}

// builtins is the supported function set. Names are upper-case; call
// sites are case-folded by the parser. Assigned in init because the
// entries reference eval, which reads the map back.
var builtins map[string]builtin

func init() {
	builtins = map[string]builtin{
		// Logical
		"AND": func(e *Evaluator, ev env, args []Node) (any, error) {
			if err := argCount("AND", args, 1, -1); err != nil {
				return nil, err
			}
			for _, arg := range args {
				v, err := e.eval(arg, ev)
				if err != nil {
					return nil, err
				}
				if !isTruthy(v) {
					return false, nil
				}
			}
			return true, nil
		},
		"OR": func(e *Evaluator, ev env, args []Node) (any, error) {
			if err := argCount("OR", args, 1, -1); err != nil {
				return nil, err
			}
			for _, arg := range args {
				v, err := e.eval(arg, ev)
				if err != nil {
					return nil, err
				}
				if isTruthy(v) {
					return true, nil
				}
			}
			return false, nil
		},
		"NOT": func(e *Evaluator, ev env, args []Node) (any, error) {
			if err := argCount("NOT", args, 1, 1); err != nil {
				return nil, err
			}
			v, err := e.eval(args[0], ev)
			if err != nil {
				return nil, err
			}
			return !isTruthy(v), nil
		},
		"IF": func(e *Evaluator, ev env, args []Node) (any, error) {
			if err := argCount("IF", args, 3, 3); err != nil {
				return nil, err
			}
			cond, err := e.eval(args[0], ev)
			if err != nil {
				return nil, err
			}
			if isTruthy(cond) {
				return e.eval(args[1], ev)
			}
			return e.eval(args[2], ev)
		},

		// Blank checks
		"ISBLANK": func(e *Evaluator, ev env, args []Node) (any, error) {
			if err := argCount("ISBLANK", args, 1, 1); err != nil {
				return nil, err
			}
			v, err := e.eval(args[0], ev)
			if err != nil {
				return nil, err
			}
			return IsBlank(v), nil
		},
		"ISNULL": func(e *Evaluator, ev env, args []Node) (any, error) {
			if err := argCount("ISNULL", args, 1, 1); err != nil {
				return nil, err
			}
			v, err := e.eval(args[0], ev)
			if err != nil {
				return nil, err
			}
			return IsBlank(v), nil
		},
		"ISNOTBLANK": func(e *Evaluator, ev env, args []Node) (any, error) {
			if err := argCount("ISNOTBLANK", args, 1, 1); err != nil {
				return nil, err
			}
			v, err := e.eval(args[0], ev)
			if err != nil {
				return nil, err
			}
			return !IsBlank(v), nil
		},

		// Text
		"LEN": func(e *Evaluator, ev env, args []Node) (any, error) {
			if err := argCount("LEN", args, 1, 1); err != nil {
				return nil, err
			}
			v, err := e.eval(args[0], ev)
			if err != nil {
				return nil, err
			}
			return decimal.NewFromInt(int64(len([]rune(toText(v))))), nil
		},
		"LEFT": func(e *Evaluator, ev env, args []Node) (any, error) {
			return evalSubstring(e, ev, args, "LEFT")
		},
		"RIGHT": func(e *Evaluator, ev env, args []Node) (any, error) {
			return evalSubstring(e, ev, args, "RIGHT")
		},
		"UPPER": func(e *Evaluator, ev env, args []Node) (any, error) {
			if err := argCount("UPPER", args, 1, 1); err != nil {
				return nil, err
			}
			v, err := e.eval(args[0], ev)
			if err != nil {
				return nil, err
			}
			return strings.ToUpper(toText(v)), nil
		},
		"LOWER": func(e *Evaluator, ev env, args []Node) (any, error) {
			if err := argCount("LOWER", args, 1, 1); err != nil {
				return nil, err
			}
			v, err := e.eval(args[0], ev)
			if err != nil {
				return nil, err
			}
			return strings.ToLower(toText(v)), nil
		},
		"CONTAINS": func(e *Evaluator, ev env, args []Node) (any, error) {
			if err := argCount("CONTAINS", args, 2, 2); err != nil {
				return nil, err
			}
			text, err := e.eval(args[0], ev)
			if err != nil {
				return nil, err
			}
			sub, err := e.eval(args[1], ev)
			if err != nil {
				return nil, err
			}
			return strings.Contains(toText(text), toText(sub)), nil
		},
		"BEGINS": func(e *Evaluator, ev env, args []Node) (any, error) {
			if err := argCount("BEGINS", args, 2, 2); err != nil {
				return nil, err
			}
			text, err := e.eval(args[0], ev)
			if err != nil {
				return nil, err
			}
			prefix, err := e.eval(args[1], ev)
			if err != nil {
				return nil, err
			}
			return strings.HasPrefix(toText(text), toText(prefix)), nil
		},
		"TEXT": func(e *Evaluator, ev env, args []Node) (any, error) {
			if err := argCount("TEXT", args, 1, 1); err != nil {
				return nil, err
			}
			v, err := e.eval(args[0], ev)
			if err != nil {
				return nil, err
			}
			return toText(v), nil
		},

		// Math
		"ABS": func(e *Evaluator, ev env, args []Node) (any, error) {
			if err := argCount("ABS", args, 1, 1); err != nil {
				return nil, err
			}
			d, err := evalDecimal(e, ev, args[0], "ABS")
			if err != nil {
				return nil, err
			}
			return d.Abs(), nil
		},
		"MIN": func(e *Evaluator, ev env, args []Node) (any, error) {
			return evalMinMax(e, ev, args, "MIN")
		},
		"MAX": func(e *Evaluator, ev env, args []Node) (any, error) {
			return evalMinMax(e, ev, args, "MAX")
		},
		"ROUND": func(e *Evaluator, ev env, args []Node) (any, error) {
			if err := argCount("ROUND", args, 2, 2); err != nil {
				return nil, err
			}
			d, err := evalDecimal(e, ev, args[0], "ROUND")
			if err != nil {
				return nil, err
			}
			places, err := evalDecimal(e, ev, args[1], "ROUND")
			if err != nil {
				return nil, err
			}
			return d.Round(int32(places.IntPart())), nil
		},

		// Date
		"TODAY": func(e *Evaluator, ev env, args []Node) (any, error) {
			if err := argCount("TODAY", args, 0, 0); err != nil {
				return nil, err
			}
			now := e.now().UTC()
			return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
		},
		"NOW": func(e *Evaluator, ev env, args []Node) (any, error) {
			if err := argCount("NOW", args, 0, 0); err != nil {
				return nil, err
			}
			return e.now().UTC(), nil
		},
		"YEAR": func(e *Evaluator, ev env, args []Node) (any, error) {
			if err := argCount("YEAR", args, 1, 1); err != nil {
				return nil, err
			}
			v, err := e.eval(args[0], ev)
			if err != nil {
				return nil, err
			}
			t, ok := toTime(v)
			if !ok {
				return nil, fmt.Errorf("formula: YEAR: not a date: %v", v)
			}
			return decimal.NewFromInt(int64(t.Year())), nil
		},

		// Picklist
		"ISPICKVAL": func(e *Evaluator, ev env, args []Node) (any, error) {
			if err := argCount("ISPICKVAL", args, 2, 2); err != nil {
				return nil, err
			}
			v, err := e.eval(args[0], ev)
			if err != nil {
				return nil, err
			}
			want, err := e.eval(args[1], ev)
			if err != nil {
				return nil, err
			}
			return strings.TrimSpace(toText(v)) == strings.TrimSpace(toText(want)), nil
		},
	}
}

func evalDecimal(e *Evaluator, ev env, arg Node, fn string) (decimal.Decimal, error) {
	v, err := e.eval(arg, ev)
	if err != nil {
		return decimal.Zero, err
	}
	d, ok := toDecimal(v)
	if !ok {
		return decimal.Zero, fmt.Errorf("formula: %s: not a number: %v", fn, v)
	}
	return d, nil
}

func evalSubstring(e *Evaluator, ev env, args []Node, fn string) (any, error) {
	if err := argCount(fn, args, 2, 2); err != nil {
		return nil, err
	}
	v, err := e.eval(args[0], ev)
	if err != nil {
		return nil, err
	}
	nd, err := evalDecimal(e, ev, args[1], fn)
	if err != nil {
		return nil, err
	}

	runes := []rune(toText(v))
	n := int(nd.IntPart())
	if n < 0 {
		n = 0
	}
	if n > len(runes) {
		n = len(runes)
	}

	if fn == "LEFT" {
		return string(runes[:n]), nil
	}
	return string(runes[len(runes)-n:]), nil
}

func evalMinMax(e *Evaluator, ev env, args []Node, fn string) (any, error) {
	if err := argCount(fn, args, 1, -1); err != nil {
		return nil, err
	}

	best, err := evalDecimal(e, ev, args[0], fn)
	if err != nil {
		return nil, err
	}
	for _, arg := range args[1:] {
		d, err := evalDecimal(e, ev, arg, fn)
		if err != nil {
			return nil, err
		}
		if (fn == "MIN" && d.LessThan(best)) || (fn == "MAX" && d.GreaterThan(best)) {
			best = d
		}
	}
	return best, nil
}

package formula

import "strings"

// Node is one node of a parsed formula expression tree.
type Node interface {
	node()
}

// Literal is a string, number, boolean, or null literal. Numbers are
// stored as decimal.Decimal.
type Literal struct {
	Value any
}

// FieldRef is a field reference, possibly a dotted relationship path
// such as Account.Industry.
type FieldRef struct {
	// Path holds the dot-separated segments
	Path []string
	// Raw is the reference as written
	Raw string
}

// Call is a function application, e.g. ISBLANK(Name).
type Call struct {
	// Name is the function name, upper-cased
	Name string
	Args []Node
}

// Binary is an infix operation.
type Binary struct {
	Op    string
	Left  Node
	Right Node
}

// Unary is a prefix operation (! or -).
type Unary struct {
	Op string
	X  Node
}

func (*Literal) node()  {}
func (*FieldRef) node() {}
func (*Call) node()     {}
func (*Binary) node()   {}
func (*Unary) node()    {}

// Walk traverses the tree depth-first, calling fn for every node.
// Traversal stops when fn returns false.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch v := n.(type) {
	case *Call:
		for _, arg := range v.Args {
			Walk(arg, fn)
		}
	case *Binary:
		Walk(v.Left, fn)
		Walk(v.Right, fn)
	case *Unary:
		Walk(v.X, fn)
	}
}

// NodeCount returns the number of nodes in the tree.
func NodeCount(n Node) int {
	count := 0
	Walk(n, func(Node) bool {
		count++
		return true
	})
	return count
}

// FieldRefs returns every distinct field path referenced by the tree,
// in first-appearance order.
func FieldRefs(n Node) []string {
	var out []string
	seen := make(map[string]bool)
	Walk(n, func(node Node) bool {
		if ref, ok := node.(*FieldRef); ok {
			key := strings.ToLower(ref.Raw)
			if !seen[key] {
				seen[key] = true
				out = append(out, ref.Raw)
			}
		}
		return true
	})
	return out
}

// Render writes a node back to formula text. Output is normalized
// (upper-case function names, double-quoted strings) but semantically
// equivalent to the input.
func Render(n Node) string {
	switch v := n.(type) {
	case *Literal:
		switch t := v.Value.(type) {
		case nil:
			return "NULL"
		case bool:
			if t {
				return "TRUE"
			}
			return "FALSE"
		case string:
			return `"` + strings.ReplaceAll(t, `"`, `\"`) + `"`
		default:
			return toText(t)
		}
	case *FieldRef:
		return v.Raw
	case *Call:
		args := make([]string, len(v.Args))
		for i, a := range v.Args {
			args[i] = Render(a)
		}
		return v.Name + "(" + strings.Join(args, ", ") + ")"
	case *Binary:
		return Render(v.Left) + " " + v.Op + " " + Render(v.Right)
	case *Unary:
		return v.Op + Render(v.X)
	default:
		return ""
	}
}

// Calls returns every distinct function name used by the tree.
func Calls(n Node) []string {
	var out []string
	seen := make(map[string]bool)
	Walk(n, func(node Node) bool {
		if call, ok := node.(*Call); ok {
			if !seen[call.Name] {
				seen[call.Name] = true
				out = append(out, call.Name)
			}
		}
		return true
	})
	return out
}

package formula

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrParse wraps all syntax errors produced by Parse.
var ErrParse = fmt.Errorf("formula: parse error")

// parser is a small recursive-descent parser over the lexer's tokens.
// Precedence, loosest first: || , && , comparison, additive (+ - &),
// multiplicative (* /), unary (! -), primary.
type parser struct {
	toks []token
	pos  int
}

// Parse parses a formula into an expression tree. A syntax error returns
// an error wrapping ErrParse; callers are expected to degrade rather
// than fail.
func Parse(input string) (Node, error) {
	if strings.TrimSpace(input) == "" {
		return nil, fmt.Errorf("%w: empty formula", ErrParse)
	}

	p := &parser{toks: tokenize(input)}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("%w: unexpected %q at offset %d", ErrParse, p.peek().text, p.peek().pos)
	}
	return n, nil
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOp && p.peek().text == "||" {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: "||", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOp && p.peek().text == "&&" {
		p.advance()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: "&&", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseComparison() (Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOp {
		switch p.peek().text {
		case "=", "==", "<>", "!=", "<", "<=", ">", ">=":
			op := p.advance().text
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &Binary{Op: op, Left: left, Right: right}
		default:
			return left, nil
		}
	}
	return left, nil
}

func (p *parser) parseAdditive() (Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOp {
		switch p.peek().text {
		case "+", "-", "&":
			op := p.advance().text
			right, err := p.parseMultiplicative()
			if err != nil {
				return nil, err
			}
			left = &Binary{Op: op, Left: left, Right: right}
		default:
			return left, nil
		}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOp {
		switch p.peek().text {
		case "*", "/":
			op := p.advance().text
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = &Binary{Op: op, Left: left, Right: right}
		default:
			return left, nil
		}
	}
	return left, nil
}

func (p *parser) parseUnary() (Node, error) {
	if p.peek().kind == tokOp {
		switch p.peek().text {
		case "!", "-":
			op := p.advance().text
			x, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			return &Unary{Op: op, X: x}, nil
		}
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	t := p.peek()

	switch t.kind {
	case tokNumber:
		p.advance()
		d, err := decimal.NewFromString(t.text)
		if err != nil {
			return nil, fmt.Errorf("%w: bad number %q", ErrParse, t.text)
		}
		return &Literal{Value: d}, nil

	case tokString:
		p.advance()
		return &Literal{Value: t.text}, nil

	case tokLParen:
		p.advance()
		n, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, fmt.Errorf("%w: missing ) at offset %d", ErrParse, p.peek().pos)
		}
		p.advance()
		return n, nil

	case tokIdent:
		p.advance()
		switch strings.ToUpper(t.text) {
		case "TRUE":
			return &Literal{Value: true}, nil
		case "FALSE":
			return &Literal{Value: false}, nil
		case "NULL":
			return &Literal{Value: nil}, nil
		}

		// Function call
		if p.peek().kind == tokLParen {
			return p.parseCall(t.text)
		}

		return &FieldRef{Path: strings.Split(t.text, "."), Raw: t.text}, nil

	case tokEOF:
		return nil, fmt.Errorf("%w: unexpected end of formula", ErrParse)

	default:
		return nil, fmt.Errorf("%w: unexpected %q at offset %d", ErrParse, t.text, t.pos)
	}
}

func (p *parser) parseCall(name string) (Node, error) {
	if strings.Contains(name, ".") {
		return nil, fmt.Errorf("%w: %q is not callable", ErrParse, name)
	}

	p.advance() // (

	call := &Call{Name: strings.ToUpper(name)}

	if p.peek().kind == tokRParen {
		p.advance()
		return call, nil
	}

	for {
		arg, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)

		switch p.peek().kind {
		case tokComma:
			p.advance()
		case tokRParen:
			p.advance()
			return call, nil
		default:
			return nil, fmt.Errorf("%w: expected , or ) at offset %d", ErrParse, p.peek().pos)
		}
	}
}

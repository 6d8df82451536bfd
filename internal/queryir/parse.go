package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/acstore/internal/containers"
)

// SyntaxError reports a malformed filter expression.
type SyntaxError struct {
	Pos     int // byte offset in the expression
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Pos, e.Message)
}

// Parse parses a filter expression into an AST.
//
// Grammar:
//
//	expr       := or
//	or         := and ( "or" and )*
//	and        := not ( "and" not )*
//	not        := "not" not | comparison
//	comparison := operand [ compop operand | ["not"] "in" list | "is" ["not"] "None" ]
//	operand    := NAME | STRING | INT | "True" | "False" | "None" | "(" expr ")"
//	list       := ( "(" | "[" ) literal ( "," literal )* [","] ( ")" | "]" )
//
// Parse does not know about schemas; use Validate before compiling.
func Parse(input string) (Expr, error) {
	if strings.TrimSpace(input) == "" {
		return nil, &SyntaxError{Pos: 0, Message: "empty expression"}
	}
	tokens, err := lex(input)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, p.errorf(tok, "unexpected %s", tok.describe())
	}
	return expr, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) peekAt(offset int) token {
	if i := p.pos + offset; i < len(p.tokens) {
		return p.tokens[i]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) errorf(tok token, format string, args ...any) error {
	return &SyntaxError{Pos: tok.pos, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	operands := []Expr{left}
	for p.peek().isKeyword("or") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		operands = append(operands, right)
	}
	if len(operands) == 1 {
		return left, nil
	}
	return Or{Operands: operands}, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	operands := []Expr{left}
	for p.peek().isKeyword("and") {
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		operands = append(operands, right)
	}
	if len(operands) == 1 {
		return left, nil
	}
	return And{Operands: operands}, nil
}

func (p *parser) parseNot() (Expr, error) {
	if p.peek().isKeyword("not") {
		p.next()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return Not{Operand: operand}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Expr, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	var expr Expr
	tok := p.peek()
	switch {
	case tok.kind == tokOp:
		p.next()
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		expr = Comparison{Op: CompareOp(tok.text), Left: left, Right: right}

	case tok.isKeyword("in"):
		p.next()
		values, err := p.parseList()
		if err != nil {
			return nil, err
		}
		expr = Membership{Subject: left, Values: values}

	case tok.isKeyword("not") && p.peekAt(1).isKeyword("in"):
		p.next()
		p.next()
		values, err := p.parseList()
		if err != nil {
			return nil, err
		}
		expr = Membership{Subject: left, Values: values, Negated: true}

	case tok.isKeyword("is"):
		p.next()
		op := OpEq
		if p.peek().isKeyword("not") {
			p.next()
			op = OpNe
		}
		if none := p.next(); !none.isKeyword("None") {
			return nil, p.errorf(none, "expected None after 'is', got %s", none.describe())
		}
		expr = Comparison{Op: op, Left: left, Right: Literal{Value: containers.Null{}}}

	default:
		return left, nil
	}

	if tok := p.peek(); tok.kind == tokOp || tok.isKeyword("in") || tok.isKeyword("is") {
		return nil, p.errorf(tok, "chained comparisons are not supported")
	}
	return expr, nil
}

func (p *parser) parseOperand() (Expr, error) {
	tok := p.peek()
	switch tok.kind {
	case tokLParen:
		p.next()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, p.errorf(closing, "expected ')', got %s", closing.describe())
		}
		return expr, nil

	case tokIdent:
		if keywords[tok.text] {
			if lit, ok := keywordLiteral(tok.text); ok {
				p.next()
				return lit, nil
			}
			return nil, p.errorf(tok, "unexpected keyword %q", tok.text)
		}
		p.next()
		return Attribute{Name: tok.text}, nil

	case tokString, tokInt:
		return p.parseLiteral()
	}
	return nil, p.errorf(tok, "expected operand, got %s", tok.describe())
}

func (p *parser) parseLiteral() (Literal, error) {
	tok := p.next()
	switch tok.kind {
	case tokString:
		return Literal{Value: containers.String(tok.str)}, nil
	case tokInt:
		return Literal{Value: containers.Int(tok.num)}, nil
	case tokIdent:
		if lit, ok := keywordLiteral(tok.text); ok {
			return lit, nil
		}
	}
	return Literal{}, p.errorf(tok, "expected literal, got %s", tok.describe())
}

func (p *parser) parseList() ([]Literal, error) {
	open := p.next()
	var closeKind tokenKind
	switch open.kind {
	case tokLParen:
		closeKind = tokRParen
	case tokLBracket:
		closeKind = tokRBracket
	default:
		return nil, p.errorf(open, "expected list after 'in', got %s", open.describe())
	}

	if p.peek().kind == closeKind {
		return nil, p.errorf(p.peek(), "empty list")
	}

	var values []Literal
	for {
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		values = append(values, lit)

		tok := p.next()
		if tok.kind == closeKind {
			return values, nil
		}
		if tok.kind != tokComma {
			return nil, p.errorf(tok, "expected ',' or %s in list, got %s", closeKind, tok.describe())
		}
		// Trailing comma.
		if p.peek().kind == closeKind {
			p.next()
			return values, nil
		}
	}
}

func keywordLiteral(word string) (Literal, bool) {
	switch word {
	case "True":
		return Literal{Value: containers.Bool(true)}, true
	case "False":
		return Literal{Value: containers.Bool(false)}, true
	case "None":
		return Literal{Value: containers.Null{}}, true
	}
	return Literal{}, false
}

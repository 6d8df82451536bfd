package queryir

import "github.com/roach88/acstore/internal/containers"

// Expr is a node of a parsed filter expression.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in backend compilers.
//
// Expr types:
//   - Literal: string, integer, boolean or None constant
//   - Attribute: reference to a container attribute by name
//   - Comparison: binary comparison of two operands
//   - Membership: attribute [not] in (literal, ...)
//   - And, Or: n-ary conjunction and disjunction
//   - Not: negation
type Expr interface {
	exprNode() // Marker method - seals interface to this package
}

// Literal is a constant operand.
//
// Value is one of containers.String, containers.Int, containers.Bool or
// containers.Null. There are no floats.
type Literal struct {
	Value containers.Value
}

func (Literal) exprNode() {}

// IsNone reports whether the literal is None.
func (l Literal) IsNone() bool {
	_, ok := l.Value.(containers.Null)
	return ok
}

// Attribute references a container attribute.
// The name is NFC normalized by the parser.
type Attribute struct {
	Name string
}

func (Attribute) exprNode() {}

// CompareOp is a comparison operator as written in the expression.
type CompareOp string

const (
	OpEq CompareOp = "=="
	OpNe CompareOp = "!="
	OpLt CompareOp = "<"
	OpLe CompareOp = "<="
	OpGt CompareOp = ">"
	OpGe CompareOp = ">="
)

// IsOrdering reports whether the operator is one of < <= > >=.
func (op CompareOp) IsOrdering() bool {
	switch op {
	case OpLt, OpLe, OpGt, OpGe:
		return true
	default:
		return false
	}
}

// Comparison is a binary comparison.
//
// `x is None` parses as Comparison{OpEq, x, None} and `x is not None` as
// Comparison{OpNe, x, None}; backends must translate None comparisons into
// their null test rather than an equality.
//
// Chained comparisons (a < b < c) are not part of the language.
type Comparison struct {
	Op    CompareOp
	Left  Expr
	Right Expr
}

func (Comparison) exprNode() {}

// Membership tests an operand against a non-empty list of literals.
//
// Semantics:
//
//	<subject> in (<v1>, <v2>, ...)
//	<subject> not in (<v1>, <v2>, ...)
type Membership struct {
	Subject Expr
	Values  []Literal
	Negated bool
}

func (Membership) exprNode() {}

// And is true when all operands are true. The parser only produces And
// nodes with at least two operands.
type And struct {
	Operands []Expr
}

func (And) exprNode() {}

// Or is true when any operand is true. The parser only produces Or nodes
// with at least two operands.
type Or struct {
	Operands []Expr
}

func (Or) exprNode() {}

// Not negates its operand.
type Not struct {
	Operand Expr
}

func (Not) exprNode() {}

// Conjoin combines expressions with And, dropping nil operands.
// It returns nil when nothing remains and the single operand when only one does.
func Conjoin(exprs ...Expr) Expr {
	var operands []Expr
	for _, e := range exprs {
		if e == nil {
			continue
		}
		if and, ok := e.(And); ok {
			operands = append(operands, and.Operands...)
			continue
		}
		operands = append(operands, e)
	}
	switch len(operands) {
	case 0:
		return nil
	case 1:
		return operands[0]
	default:
		return And{Operands: operands}
	}
}

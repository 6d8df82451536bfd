package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/acstore/internal/containers"
)

// ValidationError lists every problem found in an expression.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid filter: " + strings.Join(e.Problems, "; ")
}

// Validate checks a parsed expression against the schema of the container
// type it will be run on.
//
// Rules:
//  1. Every attribute exists in the schema and has a native data type
//  2. Comparison operands are attributes or literals
//  3. Literals compared with an attribute match its data type
//  4. Ordering comparisons never involve None
//  5. Membership subjects are attributes; lists hold no None
//  6. Operands used as conditions on their own are booleans
//
// A nil schema (container types stored as a payload) admits no attributes.
// Validate is a pure function; it returns nil or a *ValidationError.
func Validate(expr Expr, schema containers.Schema) error {
	v := &validator{schema: schema}
	v.validateCondition(expr)
	if len(v.problems) > 0 {
		return &ValidationError{Problems: v.problems}
	}
	return nil
}

// validator accumulates problems during traversal.
type validator struct {
	schema   containers.Schema
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

// validateCondition validates a node in a boolean position.
func (v *validator) validateCondition(e Expr) {
	switch node := e.(type) {
	case nil:
		v.addProblem("missing expression")
	case And:
		for _, op := range node.Operands {
			v.validateCondition(op)
		}
	case Or:
		for _, op := range node.Operands {
			v.validateCondition(op)
		}
	case Not:
		v.validateCondition(node.Operand)
	case Comparison:
		v.validateComparison(node)
	case Membership:
		v.validateMembership(node)
	case Attribute:
		if t, ok := v.attributeType(node.Name); ok && t != containers.TypeBool {
			v.addProblem("attribute %q of type %s cannot be used as a condition", node.Name, t)
		}
	case Literal:
		if _, ok := node.Value.(containers.Bool); !ok {
			v.addProblem("literal %s cannot be used as a condition", describeLiteral(node))
		}
	default:
		v.addProblem("unknown expression type %T", e)
	}
}

func (v *validator) validateComparison(c Comparison) {
	leftType, leftOK := v.operandType(c.Left)
	rightType, rightOK := v.operandType(c.Right)
	if !leftOK || !rightOK {
		return
	}

	leftLit, leftIsLit := c.Left.(Literal)
	rightLit, rightIsLit := c.Right.(Literal)

	if c.Op.IsOrdering() && ((leftIsLit && leftLit.IsNone()) || (rightIsLit && rightLit.IsNone())) {
		v.addProblem("operator %s cannot be used with None", c.Op)
		return
	}

	switch {
	case leftIsLit && !rightIsLit:
		v.checkLiteral(rightType, c.Right.(Attribute).Name, leftLit)
	case rightIsLit && !leftIsLit:
		v.checkLiteral(leftType, c.Left.(Attribute).Name, rightLit)
	}
}

func (v *validator) validateMembership(m Membership) {
	attr, ok := m.Subject.(Attribute)
	if !ok {
		v.addProblem("the subject of 'in' must be an attribute")
		return
	}
	t, ok := v.attributeType(attr.Name)
	if !ok {
		return
	}
	for _, lit := range m.Values {
		if lit.IsNone() {
			v.addProblem("None is not allowed in the list for %q", attr.Name)
			continue
		}
		v.checkLiteral(t, attr.Name, lit)
	}
}

// operandType resolves the data type of a comparison operand. Literals
// report an empty type. ok is false when a problem was recorded.
func (v *validator) operandType(e Expr) (containers.DataType, bool) {
	switch node := e.(type) {
	case Attribute:
		return v.attributeType(node.Name)
	case Literal:
		return "", true
	default:
		v.addProblem("comparison operands must be attributes or literals")
		return "", false
	}
}

func (v *validator) attributeType(name string) (containers.DataType, bool) {
	t, ok := v.schema[name]
	if !ok {
		v.addProblem("unknown attribute %q", name)
		return "", false
	}
	if !t.IsNative() {
		v.addProblem("attribute %q of type %s cannot be filtered on", name, t)
		return "", false
	}
	return t, true
}

// checkLiteral verifies a literal against the data type of the attribute it
// is compared with. None matches every type.
func (v *validator) checkLiteral(t containers.DataType, name string, lit Literal) {
	var ok bool
	switch lit.Value.(type) {
	case containers.Null:
		ok = true
	case containers.String:
		ok = t == containers.TypeString || t == containers.TypeIdentifier
	case containers.Int:
		ok = t == containers.TypeInt || t == containers.TypeTimestamp
	case containers.Bool:
		ok = t == containers.TypeBool
	}
	if !ok {
		v.addProblem("attribute %q of type %s compared with %s", name, t, describeLiteral(lit))
	}
}

func describeLiteral(lit Literal) string {
	switch val := lit.Value.(type) {
	case containers.String:
		return fmt.Sprintf("string %q", string(val))
	case containers.Int:
		return fmt.Sprintf("integer %d", int64(val))
	case containers.Bool:
		if val {
			return "True"
		}
		return "False"
	case containers.Null:
		return "None"
	}
	return fmt.Sprintf("%T", lit.Value)
}

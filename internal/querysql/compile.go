package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/acstore/internal/containers"
	"github.com/roach88/acstore/internal/queryir"
)

// IdentifierColumn is the autoincrementing primary key of every container table.
const IdentifierColumn = "_identifier"

// SQLCompiler compiles filter ASTs to parameterized SQL for SQLite.
//
// CRITICAL: ALL selects include ORDER BY with _identifier as the final key.
// CRITICAL: All literal values are parameterized (never interpolated).
//
// The compiler trusts attribute names; callers must run queryir.Validate
// against the container schema first.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a Select to parameterized SQL.
// Returns (sql, params, error) tuple.
func (c *SQLCompiler) Compile(q Select) (string, []any, error) {
	if q.Table == "" {
		return "", nil, fmt.Errorf("select: missing table")
	}
	if len(q.Columns) == 0 {
		return "", nil, fmt.Errorf("select from %s: no columns", q.Table)
	}

	var whereClause string
	var params []any
	if q.Filter != nil {
		filterSQL, filterParams, err := c.CompileFilter(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		whereClause = " WHERE " + filterSQL
		params = filterParams
	}

	sql := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s",
		strings.Join(q.Columns, ", "),
		q.Table,
		whereClause,
		stableOrderKey(q.OrderBy))

	return sql, params, nil
}

// stableOrderKey returns the ORDER BY clause, always ending with the
// primary key so that rows with equal sort keys come back in insertion order.
func stableOrderKey(orderBy []string) string {
	parts := make([]string, 0, len(orderBy)+1)
	for _, col := range orderBy {
		if col == IdentifierColumn {
			continue
		}
		parts = append(parts, col+" ASC")
	}
	parts = append(parts, IdentifierColumn+" ASC")
	return strings.Join(parts, ", ")
}

// CompileFilter compiles a filter expression to a WHERE clause fragment.
// Returns (sql, params, error).
// CRITICAL: Values NEVER interpolated - always use ? placeholders.
func (c *SQLCompiler) CompileFilter(e queryir.Expr) (string, []any, error) {
	if e == nil {
		return "", nil, fmt.Errorf("cannot compile nil expression")
	}

	switch node := e.(type) {
	case queryir.Or:
		return c.compileJunction(node.Operands, " OR ", false)
	case queryir.And:
		return c.compileJunction(node.Operands, " AND ", true)
	case queryir.Not:
		sql, params, err := c.CompileFilter(node.Operand)
		if err != nil {
			return "", nil, err
		}
		return "NOT (" + sql + ")", params, nil
	case queryir.Comparison:
		return c.compileComparison(node)
	case queryir.Membership:
		return c.compileMembership(node)
	case queryir.Attribute, queryir.Literal:
		return c.compileOperand(node)
	default:
		return "", nil, fmt.Errorf("unsupported expression type: %T", e)
	}
}

// compileJunction joins operands with AND or OR. Disjunctions nested in a
// conjunction are parenthesized; SQL gives AND the higher precedence.
func (c *SQLCompiler) compileJunction(operands []queryir.Expr, sep string, wrapOr bool) (string, []any, error) {
	if len(operands) == 0 {
		return "", nil, fmt.Errorf("empty %s", strings.TrimSpace(sep))
	}

	var sqlParts []string
	var allParams []any
	for _, op := range operands {
		sql, params, err := c.CompileFilter(op)
		if err != nil {
			return "", nil, err
		}
		if _, isOr := op.(queryir.Or); isOr && wrapOr {
			sql = "(" + sql + ")"
		}
		sqlParts = append(sqlParts, sql)
		allParams = append(allParams, params...)
	}
	return strings.Join(sqlParts, sep), allParams, nil
}

var sqlOperators = map[queryir.CompareOp]string{
	queryir.OpEq: "=",
	queryir.OpNe: "<>",
	queryir.OpLt: "<",
	queryir.OpLe: "<=",
	queryir.OpGt: ">",
	queryir.OpGe: ">=",
}

func (c *SQLCompiler) compileComparison(cmp queryir.Comparison) (string, []any, error) {
	left, right := cmp.Left, cmp.Right

	// None comparisons become null tests with the None on the right.
	if isNone(left) && !isNone(right) {
		left, right = right, left
	}
	if isNone(right) {
		sql, params, err := c.compileOperand(left)
		if err != nil {
			return "", nil, err
		}
		switch cmp.Op {
		case queryir.OpEq:
			return sql + " IS NULL", params, nil
		case queryir.OpNe:
			return sql + " IS NOT NULL", params, nil
		default:
			return "", nil, fmt.Errorf("operator %s cannot be used with None", cmp.Op)
		}
	}

	op, ok := sqlOperators[cmp.Op]
	if !ok {
		return "", nil, fmt.Errorf("unsupported operator %q", cmp.Op)
	}
	leftSQL, leftParams, err := c.compileOperand(left)
	if err != nil {
		return "", nil, err
	}
	rightSQL, rightParams, err := c.compileOperand(right)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("%s %s %s", leftSQL, op, rightSQL), append(leftParams, rightParams...), nil
}

func (c *SQLCompiler) compileMembership(m queryir.Membership) (string, []any, error) {
	attr, ok := m.Subject.(queryir.Attribute)
	if !ok {
		return "", nil, fmt.Errorf("membership subject must be an attribute, got %T", m.Subject)
	}
	if len(m.Values) == 0 {
		return "", nil, fmt.Errorf("membership list for %s is empty", attr.Name)
	}

	placeholders := make([]string, len(m.Values))
	params := make([]any, len(m.Values))
	for i, lit := range m.Values {
		param, err := valueToParam(lit.Value)
		if err != nil {
			return "", nil, fmt.Errorf("convert value: %w", err)
		}
		placeholders[i] = "?"
		params[i] = param
	}

	keyword := "IN"
	if m.Negated {
		keyword = "NOT IN"
	}
	return fmt.Sprintf("%s %s (%s)", attr.Name, keyword, strings.Join(placeholders, ", ")), params, nil
}

// compileOperand compiles an attribute to its column name and a literal to a placeholder.
func (c *SQLCompiler) compileOperand(e queryir.Expr) (string, []any, error) {
	switch node := e.(type) {
	case queryir.Attribute:
		return node.Name, nil, nil
	case queryir.Literal:
		param, err := valueToParam(node.Value)
		if err != nil {
			return "", nil, fmt.Errorf("convert value: %w", err)
		}
		return "?", []any{param}, nil
	default:
		return "", nil, fmt.Errorf("comparison operand must be an attribute or literal, got %T", e)
	}
}

func isNone(e queryir.Expr) bool {
	lit, ok := e.(queryir.Literal)
	return ok && lit.IsNone()
}

// valueToParam converts a literal value to a Go native type for a SQL parameter.
// Booleans are stored as 0/1.
func valueToParam(v containers.Value) (any, error) {
	switch val := v.(type) {
	case containers.String:
		return string(val), nil
	case containers.Int:
		return int64(val), nil
	case containers.Bool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	case containers.Null:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported literal type for SQL parameter: %T", v)
	}
}

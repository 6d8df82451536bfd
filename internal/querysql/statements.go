package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/acstore/internal/queryir"
)

// MaxVariables is the number of bound parameters SQLite accepts in one
// statement (SQLITE_MAX_VARIABLE_NUMBER since 3.32).
const MaxVariables = 32766

// Select describes a read of container rows.
//
// Example:
//
//	Select{
//	  Table:   "event",
//	  Columns: []string{"_identifier", "timestamp"},
//	  Filter:  <timestamp >= 15 and timestamp <= 25>,
//	  OrderBy: []string{"timestamp"},
//	}
//
// Translates to SQL:
//
//	SELECT _identifier, timestamp FROM event
//	WHERE timestamp >= ? AND timestamp <= ? ORDER BY timestamp ASC, _identifier ASC
type Select struct {
	Table   string
	Columns []string
	Filter  queryir.Expr // nil = all rows
	OrderBy []string     // leading sort keys; _identifier is always appended
}

// Column is a column definition for CreateTable.
type Column struct {
	Name string
	Type string
}

// CreateTable returns the DDL of a container table: the autoincrementing
// primary key followed by the given columns in order.
func CreateTable(table string, columns []Column) string {
	parts := make([]string, 0, len(columns)+1)
	parts = append(parts, IdentifierColumn+" INTEGER PRIMARY KEY AUTOINCREMENT")
	for _, col := range columns {
		parts = append(parts, col.Name+" "+col.Type)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(parts, ", "))
}

// CreateIndex returns the DDL of a secondary index.
func CreateIndex(name, table, column string) string {
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", name, table, column)
}

// Insert returns a multi-row INSERT for the given number of rows.
// len(columns)*rows must not exceed MaxVariables.
func Insert(table string, columns []string, rows int) (string, error) {
	if len(columns) == 0 {
		return "", fmt.Errorf("insert into %s: no columns", table)
	}
	if rows < 1 {
		return "", fmt.Errorf("insert into %s: no rows", table)
	}
	if len(columns)*rows > MaxVariables {
		return "", fmt.Errorf("insert into %s: %d rows of %d columns exceed %d variables",
			table, rows, len(columns), MaxVariables)
	}

	row := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", table, strings.Join(columns, ", "))
	for i := 0; i < rows; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(row)
	}
	return sb.String(), nil
}

// RowsPerInsert returns how many rows of the given width fit in one statement.
func RowsPerInsert(columns int) int {
	if columns < 1 {
		return MaxVariables
	}
	return MaxVariables / columns
}

// Update returns an UPDATE of all given columns of one row selected by
// identifier. The identifier is the last parameter.
func Update(table string, columns []string) (string, error) {
	if len(columns) == 0 {
		return "", fmt.Errorf("update %s: no columns", table)
	}
	assignments := make([]string, len(columns))
	for i, col := range columns {
		assignments[i] = col + " = ?"
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		table, strings.Join(assignments, ", "), IdentifierColumn), nil
}

// MaxIdentifier returns a query for the largest identifier in a table, or 0
// when the table is empty.
func MaxIdentifier(table string) string {
	return fmt.Sprintf("SELECT COALESCE(MAX(%s), 0) FROM %s", IdentifierColumn, table)
}

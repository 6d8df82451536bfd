// Package queryir parses filter expressions into an abstract syntax tree.
//
// Filter expressions are the restricted boolean language accepted by
// Store.GetAll, for example:
//
//	parser == 'filestat' and timestamp >= 1600000000000000
//	data_type in ('fs:stat', 'windows:registry:key_value')
//	not (timestamp_desc is None or timestamp < 0)
//
// ARCHITECTURE:
//
//	[expression string] → Parse → [Expr AST] → Validate(schema) → [SQL backend]
//
// Parse is schema-agnostic. Validate checks the tree against the schema of
// the container type being queried, so that unknown attributes fail before
// any query executes. Backends (see querysql) only accept validated trees.
//
// SEALED INTERFACES:
//
// Expr is a sealed interface using the marker method pattern. Only types in
// this package implement it, which gives backends exhaustive type switches:
//
//	switch e := expr.(type) {
//	case Literal, Attribute, Comparison, Membership, And, Or, Not:
//	    // Handle node
//	default:
//	    // Impossible - compiler knows all Expr types
//	}
//
// LITERALS:
//
// Literal values are containers.Value (String, Int, Bool, Null). There are
// no floats, and attribute names are NFC normalized by the lexer.
package queryir

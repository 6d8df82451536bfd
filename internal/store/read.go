package store

import (
	"database/sql"
	"iter"

	"github.com/roach88/acstore/internal/containers"
	"github.com/roach88/acstore/internal/queryir"
	"github.com/roach88/acstore/internal/querysql"
)

// TimeRange bounds GetSortedEvents. Both bounds are inclusive timestamps in
// microseconds; a zero bound is open.
type TimeRange struct {
	Start int64
	End   int64
}

// GetByIndex returns the container of a type with the given zero-based
// index, which is its sequence number minus one.
//
// Returns nil, nil if no such container exists.
func (s *Store) GetByIndex(containerType string, index int) (containers.AttributeContainer, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	if index < 0 {
		return nil, nil
	}
	if c, ok := s.indexCache.get(containerType, index); ok {
		return c, nil
	}
	if err := s.ensureIdle(containerType); err != nil {
		return nil, err
	}

	if err := s.flushBeforeAccess(containerType); err != nil {
		return nil, err
	}
	if !s.tables[containerType] {
		return nil, nil
	}

	s.storageProfiler.StartTiming("get_container_by_index")
	defer s.storageProfiler.StopTiming("get_container_by_index")

	schema := s.cfg.Registry.Schema(containerType)
	query, args, err := s.compiler.Compile(querysql.Select{
		Table:   containerType,
		Columns: selectColumns(schema),
		Filter: queryir.Comparison{
			Op:    queryir.OpEq,
			Left:  queryir.Attribute{Name: identifierColumn},
			Right: queryir.Literal{Value: containers.Int(index + 1)},
		},
	})
	if err != nil {
		return nil, queryError(containerType, err, "build select")
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, queryError(containerType, err, "select by index %d", index)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, queryError(containerType, err, "select by index %d", index)
		}
		return nil, nil
	}
	c, err := s.scanContainer(rows, containerType, schema)
	if err != nil {
		return nil, err
	}
	if c != nil {
		s.indexCache.put(containerType, index, c)
	}
	return c, nil
}

// GetAll returns the containers of a type in identifier order, optionally
// restricted by a filter expression over schema attributes.
//
// The filter is parsed, validated and compiled before GetAll returns;
// an invalid filter is a FILTER_COMPILATION error. The query runs when the
// result is ranged over. Ranging again re-runs it.
func (s *Store) GetAll(containerType, filterExpression string) (iter.Seq2[containers.AttributeContainer, error], error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	if !s.cfg.Registry.Has(containerType) {
		return nil, newError(CodeUnknownContainerType, containerType, nil, "unknown container type")
	}
	schema := s.cfg.Registry.Schema(containerType)

	var filter queryir.Expr
	if filterExpression != "" {
		expr, err := queryir.Parse(filterExpression)
		if err != nil {
			return nil, newError(CodeFilterCompilation, containerType, err, "parse filter %q", filterExpression)
		}
		if err := queryir.Validate(expr, schema); err != nil {
			return nil, newError(CodeFilterCompilation, containerType, err, "validate filter %q", filterExpression)
		}
		filter = expr
	}

	query, args, err := s.compiler.Compile(querysql.Select{
		Table:   containerType,
		Columns: selectColumns(schema),
		Filter:  filter,
	})
	if err != nil {
		return nil, newError(CodeFilterCompilation, containerType, err, "compile filter %q", filterExpression)
	}

	return s.queryContainers(containerType, schema, query, args), nil
}

// GetSortedEvents returns events ordered by timestamp, ties broken by
// identifier, optionally restricted to a time range.
func (s *Store) GetSortedEvents(tr *TimeRange) (iter.Seq2[*containers.Event, error], error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}

	var bounds []queryir.Expr
	if tr != nil && tr.Start != 0 {
		bounds = append(bounds, timestampBound(queryir.OpGe, tr.Start))
	}
	if tr != nil && tr.End != 0 {
		bounds = append(bounds, timestampBound(queryir.OpLe, tr.End))
	}

	schema := s.cfg.Registry.Schema(containers.EventType)
	query, args, err := s.compiler.Compile(querysql.Select{
		Table:   containers.EventType,
		Columns: selectColumns(schema),
		Filter:  queryir.Conjoin(bounds...),
		OrderBy: []string{"timestamp"},
	})
	if err != nil {
		return nil, queryError(containers.EventType, err, "build select")
	}

	all := s.queryContainers(containers.EventType, schema, query, args)
	return func(yield func(*containers.Event, error) bool) {
		for c, err := range all {
			if err != nil {
				yield(nil, err)
				return
			}
			event, ok := c.(*containers.Event)
			if !ok {
				yield(nil, serializationError(containers.EventType, nil, "unexpected container %T", c))
				return
			}
			if !yield(event, nil) {
				return
			}
		}
	}, nil
}

// Count returns the number of containers of a type, counting pending writes.
// Identifiers are dense, so the count is the largest identifier.
func (s *Store) Count(containerType string) (int, error) {
	if err := s.ensureOpen(); err != nil {
		return 0, err
	}
	if err := s.ensureIdle(containerType); err != nil {
		return 0, err
	}
	if err := s.flushBeforeAccess(containerType); err != nil {
		return 0, err
	}
	n, err := s.maxIdentifier(containerType)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Has reports whether any container of a type is stored.
func (s *Store) Has(containerType string) (bool, error) {
	n, err := s.Count(containerType)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// queryContainers runs a select lazily. The pending batch of the type is
// flushed when iteration starts. Iteration stops at the first error.
//
// The open result set holds the connection until iteration ends, so the
// store refuses other database calls until then.
func (s *Store) queryContainers(containerType string, schema containers.Schema, query string, args []any) iter.Seq2[containers.AttributeContainer, error] {
	return func(yield func(containers.AttributeContainer, error) bool) {
		if err := s.ensureOpen(); err != nil {
			yield(nil, err)
			return
		}
		if err := s.ensureIdle(containerType); err != nil {
			yield(nil, err)
			return
		}
		if err := s.flushBeforeAccess(containerType); err != nil {
			yield(nil, err)
			return
		}
		if !s.tables[containerType] {
			return
		}

		s.storageProfiler.StartTiming("get_containers")
		defer s.storageProfiler.StopTiming("get_containers")

		rows, err := s.db.Query(query, args...)
		if err != nil {
			yield(nil, queryError(containerType, err, "select containers"))
			return
		}
		defer rows.Close()
		s.iterators++
		defer func() { s.iterators-- }()

		for rows.Next() {
			c, err := s.scanContainer(rows, containerType, schema)
			if err != nil {
				yield(nil, err)
				return
			}
			if c == nil {
				continue
			}
			if !yield(c, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, queryError(containerType, err, "iterate containers"))
		}
	}
}

// scanContainer materializes the current row: identifier first, then the
// data columns in table order. A row with an empty payload yields nil.
func (s *Store) scanContainer(rows *sql.Rows, containerType string, schema containers.Schema) (containers.AttributeContainer, error) {
	columns := columnsOf(schema)
	values := make([]any, len(columns)+1)
	ptrs := make([]any, len(values))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, queryError(containerType, err, "scan row")
	}

	seq, ok := values[0].(int64)
	if !ok {
		return nil, serializationError(containerType, nil, "unexpected identifier %T", values[0])
	}

	c, err := s.materialize(containerType, schema, columns, values[1:])
	if err != nil || c == nil {
		return nil, err
	}
	c.SetIdentifier(containers.NewIdentifier(containerType, seq))
	return c, nil
}

func (s *Store) materialize(containerType string, schema containers.Schema, columns []string, values []any) (containers.AttributeContainer, error) {
	if schema == nil {
		c, p, err := s.decodePayload(containerType, values[0])
		if err != nil || c == nil {
			return nil, err
		}
		s.storageProfiler.Sample("read_create", "read", containerType, p.size, p.compressedSize)
		return c, nil
	}

	c, err := s.cfg.Registry.New(containerType)
	if err != nil {
		return nil, newError(CodeUnknownContainerType, containerType, err, "no constructor")
	}
	for i, name := range columns {
		v, err := decodeColumn(containerType, name, schema[name], values[i])
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		if err := c.SetAttribute(name, v); err != nil {
			return nil, serializationError(containerType, err, "set attribute %s", name)
		}
	}
	return c, nil
}

func selectColumns(schema containers.Schema) []string {
	return append([]string{identifierColumn}, columnsOf(schema)...)
}

func timestampBound(op queryir.CompareOp, ts int64) queryir.Expr {
	return queryir.Comparison{
		Op:    op,
		Left:  queryir.Attribute{Name: "timestamp"},
		Right: queryir.Literal{Value: containers.Int(ts)},
	}
}

package store

import (
	"errors"
	"slices"

	"github.com/roach88/acstore/internal/containers"
	"github.com/roach88/acstore/internal/querysql"
)

// Add assigns the next identifier of the container's type and buffers the
// container for a batched insert.
//
// The identifier is set on the container before Add returns. The container
// becomes visible to reads of its type immediately: every read flushes the
// pending batch of the type it reads first.
func (s *Store) Add(c containers.AttributeContainer) error {
	if err := s.ensureWritable(); err != nil {
		return err
	}
	containerType := c.ContainerType()
	if !s.cfg.hasTable(containerType) {
		return newError(CodeUnknownContainerType, containerType, nil, "container type is not stored")
	}

	s.storageProfiler.StartTiming("write_new")
	defer s.storageProfiler.StopTiming("write_new")

	row, p, err := s.containerRow(c)
	if err != nil {
		return err
	}

	seq, err := s.nextSequenceNumber(containerType)
	if err != nil {
		return err
	}

	b := s.writeCache[containerType]
	if b == nil {
		b = newBatch(containerType, columnsOf(s.cfg.Registry.Schema(containerType)), s.cfg.MaximumWriteCacheSize)
		s.writeCache[containerType] = b
	}
	b.push(append([]any{seq}, row...))

	c.SetIdentifier(containers.NewIdentifier(containerType, seq))
	s.indexCache.put(containerType, int(seq-1), c)

	if p.value != nil {
		s.storageProfiler.Sample("write_new", "write", containerType, p.size, p.compressedSize)
	}

	if b.shouldFlush() {
		return s.flushType(containerType)
	}
	return nil
}

// Update rewrites a persisted container.
//
// All columns of the type are rewritten: schema attributes that are unset
// become NULL. Containers without a schema have their payload replaced.
func (s *Store) Update(c containers.AttributeContainer) error {
	if err := s.ensureWritable(); err != nil {
		return err
	}
	containerType := c.ContainerType()
	if !s.cfg.hasTable(containerType) {
		return newError(CodeUnknownContainerType, containerType, nil, "container type is not stored")
	}

	id, ok := c.Identifier()
	if !ok {
		return newError(CodeInvalidIdentifier, containerType, nil, "container has no identifier")
	}
	if id.ContainerType != containerType {
		return newError(CodeInvalidIdentifier, containerType, nil,
			"identifier %s does not belong to container type %s", id, containerType)
	}

	s.storageProfiler.StartTiming("write_existing")
	defer s.storageProfiler.StopTiming("write_existing")

	if err := s.flushBeforeAccess(containerType); err != nil {
		return err
	}

	row, _, err := s.containerRow(c)
	if err != nil {
		return err
	}

	query, err := querysql.Update(containerType, columnsOf(s.cfg.Registry.Schema(containerType)))
	if err != nil {
		return queryError(containerType, err, "build update")
	}
	res, err := s.db.Exec(query, append(row, id.SequenceNumber)...)
	if err != nil {
		return queryError(containerType, err, "update %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return queryError(containerType, err, "update %s", id)
	}
	if n == 0 {
		return newError(CodeInvalidIdentifier, containerType, nil, "no container with identifier %s", id)
	}

	s.indexCache.put(containerType, int(id.SequenceNumber-1), c)
	return nil
}

// Flush writes all pending batches.
func (s *Store) Flush() error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if err := s.ensureIdle(""); err != nil {
		return err
	}
	return s.flushAll()
}

// containerRow encodes the column values of a container in table order.
func (s *Store) containerRow(c containers.AttributeContainer) ([]any, payload, error) {
	containerType := c.ContainerType()
	schema := s.cfg.Registry.Schema(containerType)

	if schema == nil {
		p, err := s.encodePayload(c)
		if err != nil {
			return nil, payload{}, err
		}
		return []any{p.value}, p, nil
	}

	names := schema.Names()
	row := make([]any, 0, len(names))
	for _, name := range names {
		v, ok := c.GetAttribute(name)
		value, err := encodeColumn(containerType, name, schema[name], v, ok)
		if err != nil {
			return nil, payload{}, err
		}
		row = append(row, value)
	}
	return row, payload{}, nil
}

// nextSequenceNumber returns the next identifier of a container type,
// seeding the counter from the table on first use.
func (s *Store) nextSequenceNumber(containerType string) (int64, error) {
	if !s.sequences.initialized(containerType) {
		n, err := s.maxIdentifier(containerType)
		if err != nil {
			return 0, err
		}
		s.sequences.set(containerType, n)
	}
	return s.sequences.next(containerType), nil
}

// maxIdentifier returns the largest persisted identifier of a container
// type, or 0 when its table is empty or missing.
func (s *Store) maxIdentifier(containerType string) (int64, error) {
	if !s.tables[containerType] {
		return 0, nil
	}
	var n int64
	if err := s.db.QueryRow(querysql.MaxIdentifier(containerType)).Scan(&n); err != nil {
		return 0, queryError(containerType, err, "read max identifier")
	}
	return n, nil
}

// flushBeforeAccess makes pending writes of a container type visible to a
// read, update or count of that type.
func (s *Store) flushBeforeAccess(containerType string) error {
	return s.flushType(containerType)
}

// flushAll flushes the pending batches of all container types. Every type
// is attempted; the errors are joined.
func (s *Store) flushAll() error {
	types := make([]string, 0, len(s.writeCache))
	for containerType := range s.writeCache {
		types = append(types, containerType)
	}
	slices.Sort(types)

	var errs []error
	for _, containerType := range types {
		if err := s.flushType(containerType); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// flushType inserts the pending batch of one container type in a single
// transaction, chunked to the statement variable limit.
//
// The batch is drained only after commit. On failure it is kept intact and
// the next flush retries it.
func (s *Store) flushType(containerType string) error {
	b := s.writeCache[containerType]
	if b == nil || b.len() == 0 {
		return nil
	}

	s.storageProfiler.StartTiming("flush_write_cache")
	defer s.storageProfiler.StopTiming("flush_write_cache")

	tx, err := s.db.Begin()
	if err != nil {
		return queryError(containerType, err, "begin transaction")
	}
	defer tx.Rollback() // No-op if committed

	perStatement := querysql.RowsPerInsert(len(b.columns))
	for start := 0; start < b.len(); start += perStatement {
		end := min(start+perStatement, b.len())

		query, err := querysql.Insert(containerType, b.columns, end-start)
		if err != nil {
			return queryError(containerType, err, "build insert")
		}
		args := make([]any, 0, (end-start)*len(b.columns))
		for _, row := range b.rows[start:end] {
			args = append(args, row...)
		}
		if _, err := tx.Exec(query, args...); err != nil {
			return queryError(containerType, err, "insert %d rows", end-start)
		}
	}

	if err := tx.Commit(); err != nil {
		return queryError(containerType, err, "commit transaction")
	}

	s.logger.Debug("flushed write cache", "container_type", containerType, "rows", b.len())
	b.drain()
	return nil
}

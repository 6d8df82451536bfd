package store

import (
	"github.com/roach88/acstore/internal/containers"
	"github.com/roach88/acstore/internal/querysql"
)

const (
	identifierColumn = querysql.IdentifierColumn

	// payloadColumn holds the serialized container of types without a schema.
	payloadColumn = "_data"
)

const (
	eventTagTable       = containers.EventTagType
	eventTagIndex       = "event_tag_per_event"
	eventTagEventColumn = "_event_identifier"
)

// columnTypes maps native data types to SQLite column types. Everything
// else, including opaque types, is stored as TEXT.
//
// Column types never use the TIMESTAMP or BOOLEAN names: the driver converts
// values of columns declared that way to time.Time and bool.
var columnTypes = map[containers.DataType]string{
	containers.TypeBool:       "SMALLINT",
	containers.TypeInt:        "INTEGER",
	containers.TypeTimestamp:  "BIGINT",
	containers.TypeString:     "TEXT",
	containers.TypeIdentifier: "TEXT",
}

func columnType(t containers.DataType) string {
	if ct, ok := columnTypes[t]; ok {
		return ct
	}
	return "TEXT"
}

// columnsOf returns the data columns of a container type in table order:
// schema attributes alphabetically, or the payload column.
func columnsOf(schema containers.Schema) []string {
	if schema == nil {
		return []string{payloadColumn}
	}
	return schema.Names()
}

// createTables creates the tables of all known container types that are
// missing from the file.
func (s *Store) createTables(q queryer) error {
	existing, err := listTables(q)
	if err != nil {
		return err
	}

	for _, containerType := range s.cfg.Registry.ContainerTypes() {
		if !s.cfg.hasTable(containerType) || existing[containerType] {
			continue
		}
		if err := s.createTable(q, containerType); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) createTable(q queryer, containerType string) error {
	var columns []querysql.Column
	if schema := s.cfg.Registry.Schema(containerType); schema != nil {
		for _, name := range schema.Names() {
			columns = append(columns, querysql.Column{Name: name, Type: columnType(schema[name])})
		}
	} else {
		dataType := "TEXT"
		if s.metadata.CompressionFormat == CompressionZlib {
			dataType = "BLOB"
		}
		columns = append(columns, querysql.Column{Name: payloadColumn, Type: dataType})
	}

	if _, err := q.Exec(querysql.CreateTable(containerType, columns)); err != nil {
		return queryError(containerType, err, "create table")
	}

	if containerType == eventTagTable {
		if _, err := q.Exec(eventTagIndexDDL()); err != nil {
			return queryError(containerType, err, "create index %s", eventTagIndex)
		}
	}

	s.logger.Debug("created table", "container_type", containerType, "columns", len(columns))
	return nil
}

func eventTagIndexDDL() string {
	return querysql.CreateIndex(eventTagIndex, eventTagTable, eventTagEventColumn)
}

// listTables returns the names of all tables in the file.
func listTables(q queryer) (map[string]bool, error) {
	rows, err := q.Query("SELECT name FROM sqlite_master WHERE type = 'table'")
	if err != nil {
		return nil, queryError("", err, "list tables")
	}
	defer rows.Close()

	tables := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, queryError("", err, "scan table name")
		}
		tables[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, queryError("", err, "iterate tables")
	}
	return tables, nil
}

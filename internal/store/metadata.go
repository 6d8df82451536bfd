package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

// Format version tracking:
// 20221023 - Oldest format this store can read
// 20230327 - Added event_tag_per_event index on event_tag(_event_identifier)
const (
	FormatVersion           = 20230327
	CompatibleFormatVersion = 20221023
)

const (
	metadataKeyFormatVersion       = "format_version"
	metadataKeyCompressionFormat   = "compression_format"
	metadataKeySerializationFormat = "serialization_format"
)

// Metadata is the header of a storage file. It is fixed at creation and
// validated on every open.
type Metadata struct {
	FormatVersion       int
	CompressionFormat   CompressionFormat
	SerializationFormat string
}

// queryer is implemented by *sql.DB and *sql.Tx.
type queryer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// prepareMetadata writes the metadata of a new file, or validates and
// upgrades the metadata of an existing one.
func (s *Store) prepareMetadata(q queryer) (Metadata, error) {
	exists, err := tableExists(q, "metadata")
	if err != nil {
		return Metadata{}, err
	}
	if !exists {
		return writeMetadata(q, s.cfg.CompressionFormat)
	}

	md, err := readMetadata(q, false)
	if err != nil {
		return Metadata{}, err
	}
	if err := s.upgradeFormat(q, md.FormatVersion); err != nil {
		return Metadata{}, err
	}
	md.FormatVersion = FormatVersion
	return md, nil
}

func writeMetadata(q queryer, compression CompressionFormat) (Metadata, error) {
	if _, err := q.Exec("CREATE TABLE metadata (key TEXT, value TEXT)"); err != nil {
		return Metadata{}, queryError("", err, "create metadata table")
	}

	md := Metadata{
		FormatVersion:       FormatVersion,
		CompressionFormat:   compression,
		SerializationFormat: SerializationFormatJSON,
	}
	values := [][2]string{
		{metadataKeyFormatVersion, strconv.Itoa(md.FormatVersion)},
		{metadataKeyCompressionFormat, string(md.CompressionFormat)},
		{metadataKeySerializationFormat, md.SerializationFormat},
	}
	for _, kv := range values {
		if _, err := q.Exec("INSERT INTO metadata (key, value) VALUES (?, ?)", kv[0], kv[1]); err != nil {
			return Metadata{}, queryError("", err, "write metadata %s", kv[0])
		}
	}
	return md, nil
}

// readMetadata reads and validates the metadata table.
//
// readableOnly relaxes the version check to "can be read": a file written
// by a newer format version is accepted for reading but not for writing.
func readMetadata(q queryer, readableOnly bool) (Metadata, error) {
	exists, err := tableExists(q, "metadata")
	if err != nil {
		return Metadata{}, err
	}
	if !exists {
		return Metadata{}, newError(CodeUnsupportedFormat, "", nil, "missing metadata table")
	}

	rows, err := q.Query("SELECT key, value FROM metadata")
	if err != nil {
		return Metadata{}, queryError("", err, "read metadata")
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value sql.NullString
		if err := rows.Scan(&key, &value); err != nil {
			return Metadata{}, queryError("", err, "scan metadata")
		}
		values[key.String] = value.String
	}
	if err := rows.Err(); err != nil {
		return Metadata{}, queryError("", err, "iterate metadata")
	}

	return checkMetadata(values, readableOnly)
}

func checkMetadata(values map[string]string, readableOnly bool) (Metadata, error) {
	raw, ok := values[metadataKeyFormatVersion]
	if !ok || raw == "" {
		return Metadata{}, newError(CodeUnsupportedFormat, "", nil, "missing format version")
	}
	version, err := strconv.Atoi(raw)
	if err != nil {
		return Metadata{}, newError(CodeUnsupportedFormat, "", err, "invalid format version %q", raw)
	}
	if version < CompatibleFormatVersion {
		return Metadata{}, newError(CodeUnsupportedFormat, "", nil,
			"format version %d is older than the oldest supported version %d", version, CompatibleFormatVersion)
	}
	if !readableOnly && version > FormatVersion {
		return Metadata{}, newError(CodeUnsupportedFormat, "", nil,
			"format version %d is newer than %d and cannot be written", version, FormatVersion)
	}

	compression := CompressionFormat(values[metadataKeyCompressionFormat])
	if !compression.valid() {
		return Metadata{}, newError(CodeUnsupportedFormat, "", nil, "unsupported compression format %q", compression)
	}

	serialization := values[metadataKeySerializationFormat]
	if serialization != SerializationFormatJSON {
		return Metadata{}, newError(CodeUnsupportedFormat, "", nil, "unsupported serialization format %q", serialization)
	}

	return Metadata{
		FormatVersion:       version,
		CompressionFormat:   compression,
		SerializationFormat: serialization,
	}, nil
}

// formatUpgrade is one forward-only step of the metadata format.
type formatUpgrade struct {
	version int
	apply   func(q queryer) error
}

var formatUpgrades = []formatUpgrade{
	{version: 20230327, apply: upgradeTo20230327},
}

// upgradeFormat applies the upgrade steps newer than the file's version
// sequentially and records the current version. It is a no-op on a file
// that is already current.
func (s *Store) upgradeFormat(q queryer, version int) error {
	if version == FormatVersion {
		return nil
	}

	for _, step := range formatUpgrades {
		if step.version <= version {
			continue
		}
		if err := step.apply(q); err != nil {
			return queryError("", err, "upgrade to format version %d", step.version)
		}
		s.logger.Debug("upgraded storage format", "from", version, "to", step.version)
	}

	_, err := q.Exec("UPDATE metadata SET value = ? WHERE key = ?",
		strconv.Itoa(FormatVersion), metadataKeyFormatVersion)
	if err != nil {
		return queryError("", err, "write format version")
	}
	return nil
}

// upgradeTo20230327 adds the index used to look up tags by event.
func upgradeTo20230327(q queryer) error {
	exists, err := tableExists(q, eventTagTable)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	if _, err := q.Exec(eventTagIndexDDL()); err != nil {
		return fmt.Errorf("create event tag index: %w", err)
	}
	return nil
}

func tableExists(q queryer, name string) (bool, error) {
	var found string
	err := q.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, queryError("", err, "look up table %s", name)
	}
	return true, nil
}

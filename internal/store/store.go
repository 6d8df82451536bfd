package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/acstore/internal/querysql"
)

// Store persists attribute containers in a single SQLite file.
//
// A Store owns one connection. It is not safe for concurrent use. While an
// iterator returned by GetAll or GetSortedEvents holds the connection,
// calls that need the database fail with a QUERY error wrapping
// ErrIteratorActive.
type Store struct {
	cfg    Config
	logger *slog.Logger

	db       *sql.DB
	path     string
	readOnly bool
	metadata Metadata

	// tables holds the container tables present in the file.
	tables map[string]bool

	sequences  *sequenceManager
	writeCache map[string]*batch
	indexCache *indexCache
	compiler   *querysql.SQLCompiler

	// iterators counts result sets currently holding the connection.
	iterators int

	serializersProfiler SerializersProfiler
	storageProfiler     StorageProfiler
}

// New creates a closed store with the given configuration.
func New(cfg Config) (*Store, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid store config: %w", err)
	}
	return &Store{
		cfg:                 cfg,
		logger:              cfg.Logger,
		compiler:            querysql.NewSQLCompiler(),
		serializersProfiler: nopSerializersProfiler{},
		storageProfiler:     nopStorageProfiler{},
	}, nil
}

// Open opens or creates the storage file at path.
//
// A read-only open requires existing, valid metadata. A read-write open
// creates the metadata and container tables of a new file, or validates
// and upgrades the metadata of an existing one, in a single transaction.
//
// The connection is configured with:
//   - journal_mode=MEMORY: no on-disk rollback journal
//   - synchronous=OFF: no fsync on commit
//
// Inputs are re-derivable, so crash durability is traded for throughput.
// On failure the store stays closed.
func (s *Store) Open(path string, readOnly bool) error {
	if s.db != nil {
		return newError(CodeAlreadyOpen, "", nil, "storage file already opened: %s", s.path)
	}
	if path == "" {
		return newError(CodeMissingPath, "", nil, "missing path")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return newError(CodeMissingPath, "", err, "resolve path %q", path)
	}

	db, err := sql.Open("sqlite3", dataSourceName(absPath, readOnly))
	if err != nil {
		return queryError("", err, "failed to open database")
	}

	// One connection: the store is a single-cursor handle.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return queryError("", err, "failed to connect to database")
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return queryError("", err, "failed to apply pragmas")
	}

	s.db = db
	s.path = absPath
	s.readOnly = readOnly
	s.sequences = newSequenceManager()
	s.writeCache = make(map[string]*batch)
	s.indexCache = newIndexCache(s.cfg.MaximumIndexCacheSize)

	if err := s.initialize(); err != nil {
		s.reset()
		db.Close()
		return err
	}

	s.logger.Info("opened storage file",
		"path", s.path,
		"read_only", readOnly,
		"format_version", s.metadata.FormatVersion,
		"compression_format", s.metadata.CompressionFormat)
	return nil
}

// initialize reads or writes the metadata, creates tables and loads the
// sequence numbers of referenced container types.
func (s *Store) initialize() error {
	if s.readOnly {
		md, err := readMetadata(s.db, true)
		if err != nil {
			return err
		}
		s.metadata = md
	} else {
		tx, err := s.db.Begin()
		if err != nil {
			return queryError("", err, "begin transaction")
		}
		defer tx.Rollback() // No-op if committed

		md, err := s.prepareMetadata(tx)
		if err != nil {
			return err
		}
		s.metadata = md

		if err := s.createTables(tx); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return queryError("", err, "commit transaction")
		}
	}

	tables, err := listTables(s.db)
	if err != nil {
		return err
	}
	s.tables = tables

	for _, containerType := range s.cfg.ReferencedContainerTypes {
		if !s.tables[containerType] {
			continue
		}
		n, err := s.maxIdentifier(containerType)
		if err != nil {
			return err
		}
		s.sequences.set(containerType, n)
	}
	return nil
}

// Close flushes all pending writes and closes the connection.
//
// The connection is released even when the final flush fails; the flush
// error is returned.
func (s *Store) Close() error {
	if s.db == nil {
		return newError(CodeNotOpen, "", nil, "storage file not opened")
	}
	if err := s.ensureIdle(""); err != nil {
		return err
	}

	flushErr := s.flushAll()

	var closeErr error
	if err := s.db.Close(); err != nil {
		closeErr = queryError("", err, "failed to close database")
	}

	s.logger.Info("closed storage file", "path", s.path)
	s.reset()

	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

// reset returns the store to the closed state.
func (s *Store) reset() {
	s.db = nil
	s.path = ""
	s.readOnly = false
	s.metadata = Metadata{}
	s.tables = nil
	s.sequences = nil
	s.writeCache = nil
	s.indexCache = nil
}

// IsOpen reports whether the store is open.
func (s *Store) IsOpen() bool {
	return s.db != nil
}

// ReadOnly reports whether the store was opened read-only.
func (s *Store) ReadOnly() bool {
	return s.readOnly
}

// Path returns the absolute path of the open storage file.
func (s *Store) Path() string {
	return s.path
}

// Metadata returns the metadata of the open storage file.
func (s *Store) Metadata() Metadata {
	return s.metadata
}

// Config returns the store configuration.
func (s *Store) Config() Config {
	return s.cfg
}

func (s *Store) ensureOpen() error {
	if s.db == nil {
		return newError(CodeNotOpen, "", nil, "storage file not opened")
	}
	return nil
}

func (s *Store) ensureWritable() error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if s.readOnly {
		return newError(CodeReadOnly, "", nil, "storage file opened read-only: %s", s.path)
	}
	return s.ensureIdle("")
}

// ensureIdle fails when an iterator holds the single connection; a query
// issued then would block on the pool forever.
func (s *Store) ensureIdle(containerType string) error {
	if s.iterators > 0 {
		return queryError(containerType, ErrIteratorActive, "connection held by an open iterator")
	}
	return nil
}

// dataSourceName builds the SQLite URI for path. Read-only handles use
// mode=ro so that several of them can share one file.
func dataSourceName(path string, readOnly bool) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	if readOnly {
		u.RawQuery = "mode=ro"
	}
	return u.String()
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = MEMORY",
		"PRAGMA synchronous = OFF",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}

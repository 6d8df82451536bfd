package store

import (
	"database/sql"
	"io"
	"iter"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// testConfig returns the default configuration with logging discarded.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return cfg
}

// createTestStore opens a new read-write store in a temp directory.
func createTestStore(t *testing.T, cfg Config) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.plaso")
	return openTestStore(t, path, false, cfg), path
}

// openTestStore opens path and closes the store at the end of the test
// unless the test closed it already.
func openTestStore(t *testing.T, path string, readOnly bool, cfg Config) *Store {
	t.Helper()
	s, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Open(path, readOnly))
	t.Cleanup(func() {
		if s.IsOpen() {
			s.Close()
		}
	})
	return s
}

// execRaw runs statements against a closed storage file, bypassing the store.
func execRaw(t *testing.T, path string, stmts ...string) {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
}

// queryRaw returns the first column of the first row of a query.
// Text is returned as a string.
func queryRaw(t *testing.T, path, query string, args ...any) any {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()
	var v any
	require.NoError(t, db.QueryRow(query, args...).Scan(&v))
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func collect[T any](t *testing.T, seq iter.Seq2[T, error]) []T {
	t.Helper()
	var out []T
	for v, err := range seq {
		require.NoError(t, err)
		out = append(out, v)
	}
	return out
}

// recordingProfiler counts profiler calls by name.
type recordingProfiler struct {
	mu      sync.Mutex
	started map[string]int
	stopped map[string]int
	samples []profileSample
}

type profileSample struct {
	operation      string
	direction      string
	containerType  string
	size           int
	compressedSize int
}

func newRecordingProfiler() *recordingProfiler {
	return &recordingProfiler{started: map[string]int{}, stopped: map[string]int{}}
}

func (p *recordingProfiler) StartTiming(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started[name]++
}

func (p *recordingProfiler) StopTiming(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped[name]++
}

func (p *recordingProfiler) Sample(operation, direction, containerType string, size, compressedSize int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.samples = append(p.samples, profileSample{operation, direction, containerType, size, compressedSize})
}

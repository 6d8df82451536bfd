package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/acstore/internal/containers"
	"github.com/roach88/acstore/internal/store"
)

// DiscardLogger returns a logger that drops all records.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// StoreConfig returns the default store configuration with logging discarded.
func StoreConfig() store.Config {
	cfg := store.DefaultConfig()
	cfg.Logger = DiscardLogger()
	return cfg
}

// CreateStorageFile creates an empty storage file in a temp directory and
// returns its path. The file is closed.
func CreateStorageFile(t testing.TB) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.plaso")
	s := OpenStore(t, path, false)
	require.NoError(t, s.Close())
	return path
}

// OpenStore opens path with StoreConfig. The store is closed at the end of
// the test unless the test closed it already.
func OpenStore(t testing.TB, path string, readOnly bool) *store.Store {
	t.Helper()
	s, err := store.New(StoreConfig())
	require.NoError(t, err)
	require.NoError(t, s.Open(path, readOnly))
	t.Cleanup(func() {
		if s.IsOpen() {
			s.Close()
		}
	})
	return s
}

// AddTimeline adds one event data and one event referencing it per
// timestamp, in the given order, and returns the events.
func AddTimeline(t testing.TB, s *store.Store, timestamps ...int64) []*containers.Event {
	t.Helper()
	events := make([]*containers.Event, 0, len(timestamps))
	for _, ts := range timestamps {
		data := containers.NewEventData("fs:stat")
		data.Parser = "filestat"
		require.NoError(t, s.Add(data))
		dataID, _ := data.Identifier()

		event := containers.NewEvent(ts, "Content Modification Time")
		event.EventDataIdentifier = dataID
		require.NoError(t, s.Add(event))
		events = append(events, event)
	}
	return events
}

// WriteTimeline creates a storage file holding AddTimeline's containers and
// returns its path. The file is closed.
func WriteTimeline(t testing.TB, timestamps ...int64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "timeline.plaso")
	s := OpenStore(t, path, false)
	AddTimeline(t, s, timestamps...)
	require.NoError(t, s.Close())
	return path
}

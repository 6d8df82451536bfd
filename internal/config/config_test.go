package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/acstore/internal/store"
)

func TestParse_Full(t *testing.T) {
	f, err := Parse([]byte(`
storage:
  compression_format: none
  maximum_write_cache_size: 10
  maximum_index_cache_size: 100
  referenced_container_types: [event, event_data]
  no_table_container_types: []
log:
  level: debug
`))
	require.NoError(t, err)

	assert.Equal(t, Storage{
		CompressionFormat:        "none",
		MaximumWriteCacheSize:    10,
		MaximumIndexCacheSize:    100,
		ReferencedContainerTypes: []string{"event", "event_data"},
		NoTableContainerTypes:    []string{},
	}, f.Storage)
	assert.Equal(t, slog.LevelDebug, f.LogLevel(slog.LevelInfo))
}

func TestParse_Empty(t *testing.T) {
	for _, data := range []string{"", "\n", "# nothing here\n"} {
		f, err := Parse([]byte(data))
		require.NoError(t, err, "%q", data)
		assert.Equal(t, File{}, *f)
	}
}

func TestParse_SchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"unknown compression", "storage:\n  compression_format: lzma\n", "storage.compression_format"},
		{"zero cache size", "storage:\n  maximum_write_cache_size: 0\n", "storage.maximum_write_cache_size"},
		{"fractional cache size", "storage:\n  maximum_index_cache_size: 1.5\n", "storage.maximum_index_cache_size"},
		{"unknown field", "storage:\n  journal_mode: wal\n", "journal_mode"},
		{"unknown section", "server:\n  port: 80\n", "server"},
		{"bad level", "log:\n  level: trace\n", "log.level"},
		{"list of numbers", "storage:\n  referenced_container_types: [1]\n", "referenced_container_types"},
		{"not a mapping", "just a string\n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)

			var cerr *Error
			require.True(t, errors.As(err, &cerr), "got %T: %v", err, err)
			assert.Equal(t, ErrCodeSchema, cerr.Code)
			assert.Contains(t, cerr.Message, tt.want)
		})
	}
}

func TestParse_SyntaxError(t *testing.T) {
	_, err := Parse([]byte("storage: [unclosed\n"))

	var cerr *Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, ErrCodeSyntax, cerr.Code)
	assert.Contains(t, cerr.Message, "failed to parse YAML")
}

func TestParse_UnknownContainerType(t *testing.T) {
	_, err := Parse([]byte("storage:\n  no_table_container_types: [hostname, bogus]\n"))

	var cerr *Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, ErrCodeSemantic, cerr.Code)
	assert.Equal(t, `C004: storage.no_table_container_types: unknown container type "bogus"`, err.Error())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acstore.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  compression_format: zlib\n"), 0o644))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "zlib", f.Storage.CompressionFormat)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	var cerr *Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, ErrCodeRead, cerr.Code)
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("log:\n  level: loud\n"), 0o644))
	_, err = Load(bad)
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, bad, cerr.Path)
	assert.Contains(t, err.Error(), bad+": C003:")
}

func TestStoreConfig(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	f := &File{}
	cfg := f.StoreConfig(logger)
	s, err := store.New(cfg)
	require.NoError(t, err)
	assert.Equal(t, store.CompressionZlib, s.Config().CompressionFormat)
	assert.Equal(t, store.DefaultNoTableContainerTypes(), s.Config().NoTableContainerTypes)
	assert.Same(t, logger, s.Config().Logger)

	f, err = Parse([]byte("storage:\n  compression_format: none\n  maximum_write_cache_size: 7\n  no_table_container_types: []\n"))
	require.NoError(t, err)
	s, err = store.New(f.StoreConfig(logger))
	require.NoError(t, err)
	assert.Equal(t, store.CompressionNone, s.Config().CompressionFormat)
	assert.Equal(t, 7, s.Config().MaximumWriteCacheSize)
	assert.Empty(t, s.Config().NoTableContainerTypes)
	assert.NotNil(t, s.Config().NoTableContainerTypes)
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"", slog.LevelWarn},
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}

	for _, tt := range tests {
		f := &File{Log: Log{Level: tt.level}}
		assert.Equal(t, tt.want, f.LogLevel(slog.LevelWarn), tt.level)
	}
}

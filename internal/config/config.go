// Package config loads the acstore configuration file.
//
// The file is YAML. It is validated against the #Config definition in
// schema.cue before it is decoded, so type and range errors are reported
// with the offending field path.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/acstore/internal/containers"
	"github.com/roach88/acstore/internal/store"
)

//go:embed schema.cue
var schemaSource []byte

// Error codes reported by Load and Parse.
const (
	ErrCodeRead     = "C001" // file could not be read
	ErrCodeSyntax   = "C002" // not valid YAML
	ErrCodeSchema   = "C003" // rejected by the schema
	ErrCodeSemantic = "C004" // well-formed but refers to unknown container types
)

// Error describes a configuration file that could not be used.
type Error struct {
	Code    string
	Path    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// File is a decoded configuration file. The zero value selects all defaults.
type File struct {
	Storage Storage `yaml:"storage"`
	Log     Log     `yaml:"log"`
}

// Storage configures the store. Unset fields keep the store defaults; an
// explicitly empty list means "none".
type Storage struct {
	CompressionFormat        string   `yaml:"compression_format"`
	MaximumWriteCacheSize    int      `yaml:"maximum_write_cache_size"`
	MaximumIndexCacheSize    int      `yaml:"maximum_index_cache_size"`
	ReferencedContainerTypes []string `yaml:"referenced_container_types"`
	NoTableContainerTypes    []string `yaml:"no_table_container_types"`
}

// Log configures the CLI logger.
type Log struct {
	Level string `yaml:"level"`
}

// Load reads and parses the configuration file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Code: ErrCodeRead, Path: path, Message: "failed to read config file", Err: err}
	}
	f, err := Parse(data)
	if err != nil {
		var cerr *Error
		if errors.As(err, &cerr) {
			cerr.Path = path
		}
		return nil, err
	}
	return f, nil
}

// Parse parses and validates configuration data.
func Parse(data []byte) (*File, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &Error{Code: ErrCodeSyntax, Message: fmt.Sprintf("failed to parse YAML: %v", err), Err: err}
	}
	if raw == nil {
		raw = map[string]any{}
	}

	if err := validate(raw); err != nil {
		return nil, err
	}

	var f File
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
			return nil, &Error{Code: ErrCodeSyntax, Message: fmt.Sprintf("failed to parse YAML: %v", err), Err: err}
		}
	}

	if err := f.checkContainerTypes(); err != nil {
		return nil, err
	}
	return &f, nil
}

// validate unifies the raw document with #Config.
func validate(raw any) error {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	doc := ctx.Encode(raw)
	if err := doc.Err(); err != nil {
		return &Error{Code: ErrCodeSchema, Message: err.Error(), Err: err}
	}

	if err := def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return &Error{Code: ErrCodeSchema, Message: schemaMessage(err), Err: err}
	}
	return nil
}

// schemaMessage joins the individual CUE errors into one line.
func schemaMessage(err error) string {
	var msgs []string
	for _, e := range cueerrors.Errors(err) {
		path := strings.Join(e.Path(), ".")
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		if path != "" {
			msg = path + ": " + msg
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) == 0 {
		return err.Error()
	}
	return strings.Join(msgs, "; ")
}

func (f *File) checkContainerTypes() error {
	registry := containers.DefaultRegistry()
	for _, list := range []struct {
		field string
		types []string
	}{
		{"storage.referenced_container_types", f.Storage.ReferencedContainerTypes},
		{"storage.no_table_container_types", f.Storage.NoTableContainerTypes},
	} {
		for _, t := range list.types {
			if !registry.Has(t) {
				return &Error{Code: ErrCodeSemantic, Message: fmt.Sprintf("%s: unknown container type %q", list.field, t)}
			}
		}
	}
	return nil
}

// StoreConfig converts the storage section into a store configuration
// that logs to logger.
func (f *File) StoreConfig(logger *slog.Logger) store.Config {
	return store.Config{
		Registry:                 containers.DefaultRegistry(),
		ReferencedContainerTypes: f.Storage.ReferencedContainerTypes,
		NoTableContainerTypes:    f.Storage.NoTableContainerTypes,
		CompressionFormat:        store.CompressionFormat(f.Storage.CompressionFormat),
		MaximumWriteCacheSize:    f.Storage.MaximumWriteCacheSize,
		MaximumIndexCacheSize:    f.Storage.MaximumIndexCacheSize,
		Logger:                   logger,
	}
}

// LogLevel returns the configured level, or def when none is set.
func (f *File) LogLevel(def slog.Level) slog.Level {
	var level slog.Level
	if f.Log.Level == "" || level.UnmarshalText([]byte(f.Log.Level)) != nil {
		return def
	}
	return level
}

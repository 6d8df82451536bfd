package store

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/acstore/internal/containers"
)

// CompressionFormat selects how payload columns are compressed.
type CompressionFormat string

const (
	CompressionNone CompressionFormat = "none"
	CompressionZlib CompressionFormat = "zlib"
)

// SerializationFormatJSON is the only supported serialization format.
const SerializationFormatJSON = "json"

const (
	// DefaultMaximumWriteCacheSize is the number of new containers of one
	// type buffered before a multi-row insert.
	DefaultMaximumWriteCacheSize = 50

	// DefaultMaximumIndexCacheSize is the number of containers kept in the
	// index-keyed read cache.
	DefaultMaximumIndexCacheSize = 32 * 1024
)

// Config is the immutable configuration of a Store.
//
// The zero value is usable: empty fields take the defaults of DefaultConfig.
// A nil slice means "default"; a non-nil empty slice means "none".
type Config struct {
	// Registry resolves container types to schemas and constructors.
	Registry *containers.Registry

	// ReferencedContainerTypes are the types whose identifiers other
	// containers embed. Their sequence numbers are loaded at open.
	ReferencedContainerTypes []string

	// NoTableContainerTypes are never materialized as tables.
	NoTableContainerTypes []string

	// CompressionFormat is used for files created by this store. Existing
	// files keep the format recorded in their metadata.
	CompressionFormat CompressionFormat

	MaximumWriteCacheSize int
	MaximumIndexCacheSize int

	// Logger receives open/close and flush events. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultReferencedContainerTypes returns the container types that other
// containers point to.
func DefaultReferencedContainerTypes() []string {
	return []string{
		containers.EventType,
		containers.EventDataType,
		containers.EventDataStreamType,
		containers.EventSourceType,
	}
}

// DefaultNoTableContainerTypes returns the configuration-like container
// types that are not stored in this file.
func DefaultNoTableContainerTypes() []string {
	return []string{
		containers.AnalyzerResultType,
		containers.HostnameType,
		containers.MountPointType,
		containers.OperatingSystemType,
		containers.PathType,
		containers.SourceConfigurationType,
	}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Registry:                 containers.DefaultRegistry(),
		ReferencedContainerTypes: DefaultReferencedContainerTypes(),
		NoTableContainerTypes:    DefaultNoTableContainerTypes(),
		CompressionFormat:        CompressionZlib,
		MaximumWriteCacheSize:    DefaultMaximumWriteCacheSize,
		MaximumIndexCacheSize:    DefaultMaximumIndexCacheSize,
		Logger:                   slog.Default(),
	}
}

// withDefaults fills empty fields and copies slices so that the caller
// cannot mutate the store's configuration afterwards.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Registry == nil {
		c.Registry = d.Registry
	}
	if c.ReferencedContainerTypes == nil {
		c.ReferencedContainerTypes = d.ReferencedContainerTypes
	} else {
		c.ReferencedContainerTypes = slices.Clone(c.ReferencedContainerTypes)
	}
	if c.NoTableContainerTypes == nil {
		c.NoTableContainerTypes = d.NoTableContainerTypes
	} else {
		c.NoTableContainerTypes = slices.Clone(c.NoTableContainerTypes)
	}
	if c.CompressionFormat == "" {
		c.CompressionFormat = d.CompressionFormat
	}
	if c.MaximumWriteCacheSize == 0 {
		c.MaximumWriteCacheSize = d.MaximumWriteCacheSize
	}
	if c.MaximumIndexCacheSize == 0 {
		c.MaximumIndexCacheSize = d.MaximumIndexCacheSize
	}
	if c.Logger == nil {
		c.Logger = d.Logger
	}
	return c
}

func (c Config) validate() error {
	if !c.CompressionFormat.valid() {
		return fmt.Errorf("unsupported compression format %q", c.CompressionFormat)
	}
	if c.MaximumWriteCacheSize < 1 {
		return fmt.Errorf("maximum write cache size must be positive, got %d", c.MaximumWriteCacheSize)
	}
	if c.MaximumIndexCacheSize < 1 {
		return fmt.Errorf("maximum index cache size must be positive, got %d", c.MaximumIndexCacheSize)
	}
	return nil
}

func (f CompressionFormat) valid() bool {
	return f == CompressionNone || f == CompressionZlib
}

func (c Config) hasTable(containerType string) bool {
	return c.Registry.Has(containerType) && !slices.Contains(c.NoTableContainerTypes, containerType)
}

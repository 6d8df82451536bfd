package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/acstore/internal/containers"
	"github.com/roach88/acstore/internal/store"
)

// InfoResult describes a storage file.
type InfoResult struct {
	Path                string      `json:"path"`
	FormatVersion       int         `json:"format_version"`
	CompressionFormat   string      `json:"compression_format"`
	SerializationFormat string      `json:"serialization_format"`
	Counts              []TypeCount `json:"counts"`
}

// TypeCount is the number of stored containers of one type.
type TypeCount struct {
	ContainerType string `json:"container_type"`
	Count         int    `json:"count"`
}

func (r InfoResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Storage file:         %s\n", r.Path)
	fmt.Fprintf(&b, "Format version:       %d\n", r.FormatVersion)
	fmt.Fprintf(&b, "Compression format:   %s\n", r.CompressionFormat)
	fmt.Fprintf(&b, "Serialization format: %s\n", r.SerializationFormat)
	if len(r.Counts) == 0 {
		b.WriteString("\nNo containers stored.")
		return b.String()
	}
	b.WriteString("\nContainers:")
	for _, c := range r.Counts {
		fmt.Fprintf(&b, "\n  %-24s %d", c.ContainerType, c.Count)
	}
	return b.String()
}

// NewInfoCommand creates the info command.
func NewInfoCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <file>",
		Short: "Show storage file metadata and container counts",
		Long: `Show the metadata of a storage file and the number of stored
containers per type. The file is opened read-only.

Examples:
  acstore info timeline.plaso
  acstore info timeline.plaso --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(rootOpts, cmd, args[0])
		},
	}
	return cmd
}

func runInfo(opts *RootOptions, cmd *cobra.Command, path string) error {
	out := opts.formatter(cmd)

	s, err := opts.openStore(cmd, path, true)
	if err != nil {
		return err
	}
	defer s.Close()

	md := s.Metadata()
	result := InfoResult{
		Path:                path,
		FormatVersion:       md.FormatVersion,
		CompressionFormat:   string(md.CompressionFormat),
		SerializationFormat: md.SerializationFormat,
		Counts:              []TypeCount{},
	}

	for _, containerType := range s.Config().Registry.ContainerTypes() {
		n, err := s.Count(containerType)
		if err != nil {
			return out.Fail(exitCodeFor(err), fmt.Sprintf("failed to count %s containers", containerType), err)
		}
		if n > 0 {
			result.Counts = append(result.Counts, TypeCount{ContainerType: containerType, Count: n})
		}
	}

	return out.Success(result)
}

// exitCodeFor maps store errors on an open file to exit codes.
func exitCodeFor(err error) int {
	switch store.CodeOf(err) {
	case store.CodeFilterCompilation, store.CodeUnknownContainerType, store.CodeReadOnly, store.CodeInvalidIdentifier:
		return ExitCommandError
	}
	return ExitFailure
}

// plainValue converts an attribute value to a JSON-friendly Go value.
// Identifiers become their "type.sequence" string form.
func plainValue(v containers.Value) any {
	switch val := v.(type) {
	case containers.String:
		return string(val)
	case containers.Int:
		return int64(val)
	case containers.Bool:
		return bool(val)
	case containers.Identifier:
		return val.String()
	case containers.Array:
		result := make([]any, len(val))
		for i, elem := range val {
			result[i] = plainValue(elem)
		}
		return result
	case containers.Object:
		result := make(map[string]any, len(val))
		for k, elem := range val {
			result[k] = plainValue(elem)
		}
		return result
	}
	return nil
}

// plainAttributes returns the set attributes of c.
func plainAttributes(c containers.AttributeContainer) map[string]any {
	attrs := make(map[string]any)
	for _, name := range c.AttributeNames() {
		if v, ok := c.GetAttribute(name); ok {
			attrs[name] = plainValue(v)
		}
	}
	return attrs
}

func identifierString(c containers.AttributeContainer) string {
	if id, ok := c.Identifier(); ok {
		return id.String()
	}
	return ""
}

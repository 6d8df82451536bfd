package containers

import (
	"fmt"
	"sort"
)

// Definition describes one container type known to a Registry.
type Definition struct {
	ContainerType string

	// Schema is nil for types stored as a serialized payload.
	Schema Schema

	// New creates an empty container of this type.
	New func() AttributeContainer
}

// Registry is the static mapping from container type to schema and constructor.
// A Registry is immutable after construction and safe to share.
type Registry struct {
	defs map[string]Definition
}

// NewRegistry builds a registry from definitions.
// Registering a container type twice is an error.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{defs: make(map[string]Definition, len(defs))}
	for _, def := range defs {
		if def.ContainerType == "" {
			return nil, fmt.Errorf("registry: empty container type")
		}
		if def.New == nil {
			return nil, fmt.Errorf("registry: container type %q has no constructor", def.ContainerType)
		}
		if _, exists := r.defs[def.ContainerType]; exists {
			return nil, fmt.Errorf("registry: container type %q already registered", def.ContainerType)
		}
		r.defs[def.ContainerType] = def
	}
	return r, nil
}

// Schema returns the schema of a container type, or nil when the type is
// stored as a serialized payload or is unknown.
func (r *Registry) Schema(containerType string) Schema {
	return r.defs[containerType].Schema
}

// Has reports whether the container type is registered.
func (r *Registry) Has(containerType string) bool {
	_, ok := r.defs[containerType]
	return ok
}

// New creates an empty container of the given type.
func (r *Registry) New(containerType string) (AttributeContainer, error) {
	def, ok := r.defs[containerType]
	if !ok {
		return nil, fmt.Errorf("registry: unknown container type %q", containerType)
	}
	return def.New(), nil
}

// ContainerTypes returns all registered container types in alphabetical order.
func (r *Registry) ContainerTypes() []string {
	types := make([]string, 0, len(r.defs))
	for t := range r.defs {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// DefaultRegistry returns a registry with all container types of this package.
func DefaultRegistry() *Registry {
	defs := []Definition{
		{EventType, EventSchema, func() AttributeContainer { return &Event{} }},
		{EventDataType, nil, func() AttributeContainer { return &EventData{} }},
		{EventDataStreamType, EventDataStreamSchema, func() AttributeContainer { return &EventDataStream{} }},
		{EventSourceType, EventSourceSchema, func() AttributeContainer { return &EventSource{} }},
		{EventTagType, EventTagSchema, func() AttributeContainer { return &EventTag{} }},
		{ExtractionWarningType, ExtractionWarningSchema, func() AttributeContainer { return &ExtractionWarning{} }},
		{SessionStartType, SessionStartSchema, func() AttributeContainer { return &SessionStart{} }},
		{SessionCompletionType, SessionCompletionSchema, func() AttributeContainer { return &SessionCompletion{} }},
		{AnalysisReportType, nil, func() AttributeContainer { return &AnalysisReport{} }},
	}
	for _, t := range []string{
		AnalyzerResultType, HostnameType, MountPointType,
		OperatingSystemType, PathType, SourceConfigurationType,
	} {
		defs = append(defs, Definition{ContainerType: t, New: genericConstructor(t)})
	}

	r, err := NewRegistry(defs...)
	if err != nil {
		// The definitions above are static; a failure is a programming error.
		panic(err)
	}
	return r
}

func genericConstructor(containerType string) func() AttributeContainer {
	return func() AttributeContainer { return NewGeneric(containerType) }
}

package containers

import (
	"errors"
	"fmt"
)

// AttributeContainer is a typed record persisted by the store.
//
// Generic code (serialization, row materialization, filtering) accesses
// attributes only through this interface. Each concrete type implements the
// accessors with an explicit switch over its attribute names.
type AttributeContainer interface {
	// ContainerType returns the tag selecting the schema and table.
	ContainerType() string

	// Identifier returns the identifier and whether one has been assigned.
	Identifier() (Identifier, bool)

	// SetIdentifier assigns the identifier after a write or read.
	SetIdentifier(id Identifier)

	// AttributeNames returns the names of the attributes the container carries.
	AttributeNames() []string

	// GetAttribute returns the value of an attribute and whether it is set.
	GetAttribute(name string) (Value, bool)

	// SetAttribute sets an attribute. Null resets it.
	SetAttribute(name string, value Value) error
}

// Base carries the identifier shared by all containers.
// Embed it to satisfy the identifier half of AttributeContainer.
type Base struct {
	id Identifier
}

// Identifier returns the container identifier, if assigned.
func (b *Base) Identifier() (Identifier, bool) {
	return b.id, !b.id.IsZero()
}

// SetIdentifier assigns the container identifier.
func (b *Base) SetIdentifier(id Identifier) {
	b.id = id
}

// UnknownAttributeError is returned when setting an attribute a container does not declare.
type UnknownAttributeError struct {
	ContainerType string
	Name          string
}

func (e *UnknownAttributeError) Error() string {
	return fmt.Sprintf("%s: unknown attribute %q", e.ContainerType, e.Name)
}

func unknownAttribute(containerType, name string) error {
	return &UnknownAttributeError{ContainerType: containerType, Name: name}
}

// attributeError wraps a conversion failure with the attribute it belongs to.
func attributeError(containerType, name string, err error) error {
	return fmt.Errorf("%s.%s: %w", containerType, name, err)
}

// ErrReservedAttribute is returned when a dynamic attribute name collides
// with a key of the serialized container envelope.
var ErrReservedAttribute = errors.New("attribute name is reserved")

// IsReservedAttribute reports whether name is taken by the serialized
// container envelope and cannot hold a dynamic attribute.
func IsReservedAttribute(name string) bool {
	switch name {
	case typeKey, "__container_type__", "_event_data_stream_identifier":
		return true
	}
	return false
}

func isNull(v Value) bool {
	switch v.(type) {
	case nil, Null:
		return true
	default:
		return false
	}
}

// optionalString returns a value only for non-empty strings.
func optionalString(s string) (Value, bool) {
	if s == "" {
		return nil, false
	}
	return String(s), true
}

func optionalIdentifier(id Identifier) (Value, bool) {
	if id.IsZero() {
		return nil, false
	}
	return id, true
}

func optionalObject(obj Object) (Value, bool) {
	if obj == nil {
		return nil, false
	}
	return obj, true
}

func optionalList(values []string) (Value, bool) {
	if values == nil {
		return nil, false
	}
	return StringList(values), true
}

// setString assigns a string attribute, resetting it on Null.
func setString(dst *string, containerType, name string, v Value) error {
	if isNull(v) {
		*dst = ""
		return nil
	}
	s, err := AsString(v)
	if err != nil {
		return attributeError(containerType, name, err)
	}
	*dst = s
	return nil
}

func setInt(dst *int64, containerType, name string, v Value) error {
	if isNull(v) {
		*dst = 0
		return nil
	}
	n, err := AsInt(v)
	if err != nil {
		return attributeError(containerType, name, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, containerType, name string, v Value) error {
	if isNull(v) {
		*dst = false
		return nil
	}
	b, err := AsBool(v)
	if err != nil {
		return attributeError(containerType, name, err)
	}
	*dst = b
	return nil
}

func setIdentifier(dst *Identifier, containerType, name string, v Value) error {
	if isNull(v) {
		*dst = Identifier{}
		return nil
	}
	id, err := AsIdentifier(v)
	if err != nil {
		return attributeError(containerType, name, err)
	}
	*dst = id
	return nil
}

func setObject(dst *Object, containerType, name string, v Value) error {
	if isNull(v) {
		*dst = nil
		return nil
	}
	obj, err := AsObject(v)
	if err != nil {
		return attributeError(containerType, name, err)
	}
	*dst = obj
	return nil
}

func setList(dst *[]string, containerType, name string, v Value) error {
	if isNull(v) {
		*dst = nil
		return nil
	}
	list, err := AsStringList(v)
	if err != nil {
		return attributeError(containerType, name, err)
	}
	*dst = list
	return nil
}

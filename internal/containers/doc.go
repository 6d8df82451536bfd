// Package containers defines the attribute containers persisted by the store.
//
// An attribute container is a typed record: a container type tag, a set of
// named attribute values and, once written, an Identifier. Each container type
// is a Go struct implementing the AttributeContainer accessor interface; the
// Registry maps container types to their Schema and constructor.
//
// Key design constraints:
//   - Attribute values are the sealed Value union; there are no floats
//   - Identifiers are (container type, sequence number) with 1-based sequences
//   - A nil Schema means the type is stored as one serialized payload
//   - MarshalValue output is deterministic (sorted keys, no HTML escaping)
//
// This package imports nothing internal.
package containers

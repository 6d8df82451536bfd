package containers

import "sort"

// DataType is the abstract storage type of a schema attribute.
type DataType string

// Native data types have a direct column representation.
const (
	TypeString     DataType = "str"
	TypeInt        DataType = "int"
	TypeTimestamp  DataType = "timestamp"
	TypeBool       DataType = "bool"
	TypeIdentifier DataType = "AttributeContainerIdentifier"
)

// Opaque data types are stored as serialized text.
const (
	TypeDateTime   DataType = "dfdatetime"
	TypePathSpec   DataType = "dfvfs.PathSpec"
	TypeStringList DataType = "List[str]"
)

// IsNative reports whether values of this type are stored directly as column values.
func (t DataType) IsNative() bool {
	switch t {
	case TypeString, TypeInt, TypeTimestamp, TypeBool, TypeIdentifier:
		return true
	default:
		return false
	}
}

// Schema maps attribute names to their data types.
// A nil Schema means the container type is stored as a single serialized payload.
type Schema map[string]DataType

// Names returns the attribute names in alphabetical order.
// Column order in tables and statements follows this order.
func (s Schema) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether the schema declares the attribute.
func (s Schema) Has(name string) bool {
	_, ok := s[name]
	return ok
}

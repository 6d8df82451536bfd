package containers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Value is a sealed interface representing attribute values.
// Only Null, String, Int, Bool, Array, Object and Identifier implement this.
// There is no float type: numeric attributes are int64.
type Value interface {
	attributeValue() // Sealed - only these types implement it
}

// Null represents an explicitly unset attribute value.
type Null struct{}

func (Null) attributeValue() {}

// String represents a string attribute value.
type String string

func (String) attributeValue() {}

// Int represents an integer attribute value.
type Int int64

func (Int) attributeValue() {}

// Bool represents a boolean attribute value.
type Bool bool

func (Bool) attributeValue() {}

// Array represents a list of values.
type Array []Value

func (Array) attributeValue() {}

// Object represents a map of string keys to values.
// Use SortedKeys() for deterministic iteration.
type Object map[string]Value

func (Object) attributeValue() {}

// Identifier is a Value so that references can be embedded in other containers.
func (Identifier) attributeValue() {}

// SortedKeys returns the object keys in byte order.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// StringList converts a Go string slice to an Array value.
func StringList(values []string) Array {
	arr := make(Array, len(values))
	for i, v := range values {
		arr[i] = String(v)
	}
	return arr
}

// AsStringList converts an Array of String values back to a Go slice.
// The result is never nil so that empty lists survive a round trip.
func AsStringList(v Value) ([]string, error) {
	arr, ok := v.(Array)
	if !ok {
		return nil, fmt.Errorf("expected list, got %T", v)
	}
	out := make([]string, 0, len(arr))
	for i, elem := range arr {
		s, ok := elem.(String)
		if !ok {
			return nil, fmt.Errorf("list[%d]: expected string, got %T", i, elem)
		}
		out = append(out, string(s))
	}
	return out, nil
}

// AsString extracts a string from a String value.
func AsString(v Value) (string, error) {
	s, ok := v.(String)
	if !ok {
		return "", fmt.Errorf("expected string, got %T", v)
	}
	return string(s), nil
}

// AsInt extracts an int64 from an Int value.
func AsInt(v Value) (int64, error) {
	n, ok := v.(Int)
	if !ok {
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
	return int64(n), nil
}

// AsBool extracts a bool from a Bool value.
func AsBool(v Value) (bool, error) {
	b, ok := v.(Bool)
	if !ok {
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
	return bool(b), nil
}

// AsObject extracts an Object value.
func AsObject(v Value) (Object, error) {
	obj, ok := v.(Object)
	if !ok {
		return nil, fmt.Errorf("expected object, got %T", v)
	}
	return obj, nil
}

// AsIdentifier extracts an Identifier, accepting its string form as well.
func AsIdentifier(v Value) (Identifier, error) {
	switch val := v.(type) {
	case Identifier:
		return val, nil
	case String:
		return ParseIdentifier(string(val))
	default:
		return Identifier{}, fmt.Errorf("expected identifier, got %T", v)
	}
}

// UnmarshalValue decodes JSON produced by MarshalValue.
// Floats are rejected. Objects tagged as identifiers decode to Identifier.
func UnmarshalValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON value")
	}

	return convertToValue(raw)
}

// convertToValue recursively converts a decoded JSON value.
func convertToValue(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case json.Number:
		s := string(val)
		if strings.ContainsAny(s, ".eE") {
			return nil, fmt.Errorf("floats are not supported: %s", val)
		}
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("number out of int64 range: %s", val)
		}
		return Int(n), nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			v, err := convertToValue(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = v
		}
		return arr, nil
	case map[string]any:
		if val[typeKey] == identifierTypeName {
			return identifierFromJSON(val)
		}
		obj := make(Object, len(val))
		for k, elem := range val {
			v, err := convertToValue(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = v
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// identifierFromJSON rebuilds an Identifier from its tagged JSON object.
func identifierFromJSON(m map[string]any) (Identifier, error) {
	name, ok := m["name"].(string)
	if !ok || name == "" {
		return Identifier{}, fmt.Errorf("identifier: missing name")
	}
	num, ok := m["sequence_number"].(json.Number)
	if !ok {
		return Identifier{}, fmt.Errorf("identifier: missing sequence_number")
	}
	seq, err := num.Int64()
	if err != nil || seq < 1 {
		return Identifier{}, fmt.Errorf("identifier: invalid sequence_number %s", num)
	}
	return Identifier{ContainerType: name, SequenceNumber: seq}, nil
}

package store

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/klauspost/compress/zlib"

	"github.com/roach88/acstore/internal/containers"
)

// Payload envelope keys. A serialized container is a JSON object tagged with
// its type; the remaining keys are its set attributes.
const (
	payloadTypeKey          = "__type__"
	payloadContainerTypeKey = "__container_type__"
	payloadTypeName         = "AttributeContainer"

	// eventDataStreamKey carries the event data stream reference of event
	// data, which has no column of its own.
	eventDataStreamKey = "_event_data_stream_identifier"
)

// payload is an encoded container together with its sizes for profiling.
// compressedSize is zero when no compression was applied.
type payload struct {
	value          any
	size           int
	compressedSize int
}

// encodePayload serializes a container without a schema into the value of
// its payload column: TEXT, or a zlib BLOB on compressed files.
func (s *Store) encodePayload(c containers.AttributeContainer) (payload, error) {
	data, err := s.serializeContainer(c)
	if err != nil {
		return payload{}, err
	}

	if s.metadata.CompressionFormat != CompressionZlib {
		return payload{value: string(data), size: len(data)}, nil
	}

	compressed, err := compress(data)
	if err != nil {
		return payload{}, serializationError(c.ContainerType(), err, "compress container")
	}
	return payload{value: compressed, size: len(data), compressedSize: len(compressed)}, nil
}

// serializeContainer encodes the set, non-null attributes of a container.
func (s *Store) serializeContainer(c containers.AttributeContainer) ([]byte, error) {
	containerType := c.ContainerType()
	s.serializersProfiler.StartTiming(containerType)
	defer s.serializersProfiler.StopTiming(containerType)

	obj := containers.Object{
		payloadTypeKey:          containers.String(payloadTypeName),
		payloadContainerTypeKey: containers.String(containerType),
	}
	for _, name := range c.AttributeNames() {
		v, ok := c.GetAttribute(name)
		if !ok || isNull(v) {
			continue
		}
		if containers.IsReservedAttribute(name) {
			return nil, serializationError(containerType, containers.ErrReservedAttribute, "attribute %s", name)
		}
		obj[name] = v
	}
	if d, ok := c.(*containers.EventData); ok && !d.EventDataStreamIdentifier.IsZero() {
		obj[eventDataStreamKey] = containers.String(d.EventDataStreamIdentifier.String())
	}

	data, err := containers.MarshalValue(obj)
	if err != nil {
		return nil, serializationError(containerType, err, "serialize container")
	}
	return data, nil
}

// decodePayload rebuilds a container from the value of its payload column.
// An empty payload yields a nil container and no error.
func (s *Store) decodePayload(containerType string, raw any) (containers.AttributeContainer, payload, error) {
	var data []byte
	switch v := raw.(type) {
	case nil:
		return nil, payload{}, nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return nil, payload{}, serializationError(containerType, nil, "unexpected payload column type %T", raw)
	}
	if len(data) == 0 {
		return nil, payload{}, nil
	}
	p := payload{value: raw, size: len(data)}

	if s.metadata.CompressionFormat == CompressionZlib {
		p.compressedSize = len(data)
		decompressed, err := decompress(data)
		if err != nil {
			return nil, p, serializationError(containerType, err, "decompress container")
		}
		data = decompressed
		p.size = len(data)
	}

	c, err := s.deserializeContainer(containerType, data)
	return c, p, err
}

func (s *Store) deserializeContainer(containerType string, data []byte) (containers.AttributeContainer, error) {
	s.serializersProfiler.StartTiming(containerType)
	defer s.serializersProfiler.StopTiming(containerType)

	if !utf8.Valid(data) {
		return nil, serializationError(containerType, nil, "payload is not valid UTF-8")
	}

	v, err := containers.UnmarshalValue(data)
	if err != nil {
		return nil, serializationError(containerType, err, "decode container")
	}
	obj, ok := v.(containers.Object)
	if !ok {
		return nil, serializationError(containerType, nil, "payload is not an object")
	}
	if obj[payloadTypeKey] != containers.String(payloadTypeName) {
		return nil, serializationError(containerType, nil, "payload is not an attribute container")
	}
	if stored := obj[payloadContainerTypeKey]; stored != containers.String(containerType) {
		return nil, serializationError(containerType, nil, "payload holds container type %v", stored)
	}

	c, err := s.cfg.Registry.New(containerType)
	if err != nil {
		return nil, newError(CodeUnknownContainerType, containerType, err, "no constructor")
	}

	for _, name := range obj.SortedKeys() {
		value := obj[name]
		switch name {
		case payloadTypeKey, payloadContainerTypeKey:
			continue
		case eventDataStreamKey:
			if d, ok := c.(*containers.EventData); ok {
				id, err := containers.AsIdentifier(value)
				if err != nil {
					return nil, serializationError(containerType, err, "decode %s", name)
				}
				d.EventDataStreamIdentifier = id
				continue
			}
		}
		if err := c.SetAttribute(name, value); err != nil {
			return nil, serializationError(containerType, err, "set attribute %s", name)
		}
	}
	return c, nil
}

// encodeColumn converts an attribute value to the value bound for its column.
// Unset and null attributes are stored as NULL.
func encodeColumn(containerType, name string, dataType containers.DataType, v containers.Value, ok bool) (any, error) {
	if !ok || isNull(v) {
		return nil, nil
	}

	var (
		out any
		err error
	)
	switch dataType {
	case containers.TypeString:
		out, err = containers.AsString(v)
	case containers.TypeInt, containers.TypeTimestamp:
		out, err = containers.AsInt(v)
	case containers.TypeBool:
		var b bool
		if b, err = containers.AsBool(v); b {
			out = int64(1)
		} else {
			out = int64(0)
		}
	case containers.TypeIdentifier:
		var id containers.Identifier
		if id, err = containers.AsIdentifier(v); err == nil {
			out = id.String()
		}
	default:
		var data []byte
		if data, err = containers.MarshalValue(v); err == nil {
			out = string(data)
		}
	}
	if err != nil {
		return nil, serializationError(containerType, err, "encode attribute %s", name)
	}
	return out, nil
}

// decodeColumn converts a scanned column value back to an attribute value.
// NULL yields a nil Value.
func decodeColumn(containerType, name string, dataType containers.DataType, raw any) (containers.Value, error) {
	if raw == nil {
		return nil, nil
	}

	v, err := decodeColumnValue(dataType, raw)
	if err != nil {
		return nil, serializationError(containerType, err, "decode attribute %s", name)
	}
	return v, nil
}

func decodeColumnValue(dataType containers.DataType, raw any) (containers.Value, error) {
	switch dataType {
	case containers.TypeString:
		switch v := raw.(type) {
		case string:
			return containers.String(v), nil
		case []byte:
			return containers.String(v), nil
		}
	case containers.TypeInt, containers.TypeTimestamp:
		if n, ok := raw.(int64); ok {
			return containers.Int(n), nil
		}
	case containers.TypeBool:
		if n, ok := raw.(int64); ok {
			return containers.Bool(n != 0), nil
		}
	case containers.TypeIdentifier:
		s, ok := textValue(raw)
		if !ok {
			break
		}
		id, err := containers.ParseIdentifier(s)
		if err != nil {
			return nil, err
		}
		return id, nil
	default:
		s, ok := textValue(raw)
		if !ok {
			break
		}
		return containers.UnmarshalValue([]byte(s))
	}
	return nil, fmt.Errorf("unexpected %T for %s column", raw, dataType)
}

func textValue(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	}
	return "", false
}

func isNull(v containers.Value) bool {
	switch v.(type) {
	case nil, containers.Null:
		return true
	}
	return false
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

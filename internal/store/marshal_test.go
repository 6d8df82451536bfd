package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/acstore/internal/containers"
)

// newSerializer returns an unopened store configured to encode payloads
// with the given compression.
func newSerializer(t *testing.T, compression CompressionFormat) *Store {
	t.Helper()
	s, err := New(testConfig())
	require.NoError(t, err)
	s.metadata = Metadata{FormatVersion: FormatVersion, CompressionFormat: compression, SerializationFormat: SerializationFormatJSON}
	return s
}

func TestPayload_RoundTrip(t *testing.T) {
	for _, compression := range []CompressionFormat{CompressionNone, CompressionZlib} {
		t.Run(string(compression), func(t *testing.T) {
			s := newSerializer(t, compression)

			data := containers.NewEventData("windows:registry")
			data.EventDataStreamIdentifier = containers.NewIdentifier(containers.EventDataStreamType, 9)
			require.NoError(t, data.SetAttribute("key_path", containers.String(`HKLM\Software`)))
			require.NoError(t, data.SetAttribute("values", containers.Array{containers.String("a"), containers.Int(-1)}))

			p, err := s.encodePayload(data)
			require.NoError(t, err)
			if compression == CompressionZlib {
				assert.IsType(t, []byte(nil), p.value)
				assert.Equal(t, len(p.value.([]byte)), p.compressedSize)
			} else {
				assert.IsType(t, "", p.value)
				assert.Zero(t, p.compressedSize, "uncompressed payloads report no compressed size")
			}

			got, read, err := s.decodePayload(containers.EventDataType, p.value)
			require.NoError(t, err)
			assert.Equal(t, data, got)
			assert.Equal(t, p.size, read.size)
			assert.Equal(t, p.compressedSize, read.compressedSize)
		})
	}
}

func TestPayload_OmitsUnsetAttributes(t *testing.T) {
	s := newSerializer(t, CompressionNone)

	report := &containers.AnalysisReport{PluginName: "tagging"}
	data, err := s.serializeContainer(report)
	require.NoError(t, err)
	assert.Equal(t,
		`{"__container_type__":"analysis_report","__type__":"AttributeContainer","plugin_name":"tagging","time_compiled":0}`,
		string(data))
}

func TestPayload_RejectsReservedAttributeNames(t *testing.T) {
	s := newSerializer(t, CompressionNone)

	for _, name := range []string{payloadTypeKey, payloadContainerTypeKey, eventDataStreamKey} {
		data := containers.NewEventData("fs:stat")
		data.Attributes = containers.Object{name: containers.String("v")}
		_, err := s.encodePayload(data)
		require.Error(t, err, name)
		assert.True(t, IsSerializationError(err), "got %v", err)
		assert.ErrorIs(t, err, containers.ErrReservedAttribute)

		report := containers.NewGeneric(containers.AnalysisReportType)
		report.Attributes = containers.Object{name: containers.String("v")}
		_, err = s.encodePayload(report)
		assert.ErrorIs(t, err, containers.ErrReservedAttribute)
	}
}

func TestPayload_AttributeNamesRoundTripVerbatim(t *testing.T) {
	s := newSerializer(t, CompressionZlib)

	data := containers.NewEventData("fs:stat")
	require.NoError(t, data.SetAttribute("cafe\u0301", containers.String("decomposed")))
	require.NoError(t, data.SetAttribute("caf\u00e9", containers.String("composed")))

	p, err := s.encodePayload(data)
	require.NoError(t, err)
	got, _, err := s.decodePayload(containers.EventDataType, p.value)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	v, ok := got.GetAttribute("cafe\u0301")
	require.True(t, ok)
	assert.Equal(t, containers.String("decomposed"), v)
}

func TestPayload_RejectsInvalidUTF8(t *testing.T) {
	s := newSerializer(t, CompressionNone)

	data := containers.NewEventData("fs:stat")
	require.NoError(t, data.SetAttribute("note", containers.String("a\xffb")))
	_, err := s.encodePayload(data)
	require.Error(t, err)
	assert.True(t, IsSerializationError(err), "got %v", err)

	data = containers.NewEventData("fs:stat")
	data.Attributes = containers.Object{"bad\xff": containers.Int(1)}
	_, err = s.encodePayload(data)
	assert.True(t, IsSerializationError(err), "got %v", err)
}

func TestPayload_DecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  any
	}{
		{"invalid JSON", `{"__type__":`},
		{"not an object", `["AttributeContainer"]`},
		{"missing type tag", `{"__container_type__":"event_data"}`},
		{"wrong type tag", `{"__type__":"Other","__container_type__":"event_data"}`},
		{"wrong container type", `{"__type__":"AttributeContainer","__container_type__":"event"}`},
		{"invalid UTF-8", []byte{'"', 0xff, 0xfe, '"'}},
		{"float attribute", `{"__type__":"AttributeContainer","__container_type__":"event_data","size":1.5}`},
		{"bad stream identifier", `{"__type__":"AttributeContainer","__container_type__":"event_data","_event_data_stream_identifier":"nope"}`},
		{"wrong column type", int64(7)},
	}

	s := newSerializer(t, CompressionNone)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, err := s.decodePayload(containers.EventDataType, tt.raw)
			require.Error(t, err)
			assert.Nil(t, c)
			assert.True(t, IsSerializationError(err), "got %v", err)
		})
	}
}

func TestPayload_DecodeEmpty(t *testing.T) {
	s := newSerializer(t, CompressionZlib)

	for _, raw := range []any{nil, "", []byte{}} {
		c, _, err := s.decodePayload(containers.EventDataType, raw)
		assert.NoError(t, err)
		assert.Nil(t, c)
	}
}

func TestPayload_DecompressError(t *testing.T) {
	s := newSerializer(t, CompressionZlib)

	_, _, err := s.decodePayload(containers.EventDataType, []byte("not zlib"))
	require.Error(t, err)
	assert.True(t, IsSerializationError(err))
	assert.Contains(t, err.Error(), "decompress container")
}

func TestEncodeColumn(t *testing.T) {
	tests := []struct {
		name     string
		dataType containers.DataType
		value    containers.Value
		set      bool
		want     any
	}{
		{"unset", containers.TypeString, nil, false, nil},
		{"null", containers.TypeInt, containers.Null{}, true, nil},
		{"string", containers.TypeString, containers.String("x"), true, "x"},
		{"int", containers.TypeInt, containers.Int(-3), true, int64(-3)},
		{"timestamp", containers.TypeTimestamp, containers.Int(1_700_000_000_000_000), true, int64(1_700_000_000_000_000)},
		{"true", containers.TypeBool, containers.Bool(true), true, int64(1)},
		{"false", containers.TypeBool, containers.Bool(false), true, int64(0)},
		{"identifier", containers.TypeIdentifier, containers.NewIdentifier("event_data", 4), true, "event_data.4"},
		{"string list", containers.TypeStringList, containers.StringList([]string{"a", "b"}), true, `["a","b"]`},
		{"object", containers.TypePathSpec, containers.Object{"location": containers.String("/")}, true, `{"location":"/"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := encodeColumn("test", "attr", tt.dataType, tt.value, tt.set)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeColumn_TypeMismatch(t *testing.T) {
	_, err := encodeColumn("test", "attr", containers.TypeInt, containers.String("1"), true)
	require.Error(t, err)
	assert.True(t, IsSerializationError(err))
	assert.Contains(t, err.Error(), "encode attribute attr")
}

func TestDecodeColumn(t *testing.T) {
	tests := []struct {
		name     string
		dataType containers.DataType
		raw      any
		want     containers.Value
	}{
		{"null", containers.TypeString, nil, nil},
		{"string", containers.TypeString, "x", containers.String("x")},
		{"string bytes", containers.TypeString, []byte("x"), containers.String("x")},
		{"int", containers.TypeInt, int64(5), containers.Int(5)},
		{"bool nonzero", containers.TypeBool, int64(2), containers.Bool(true)},
		{"bool zero", containers.TypeBool, int64(0), containers.Bool(false)},
		{"identifier", containers.TypeIdentifier, "event.3", containers.NewIdentifier("event", 3)},
		{"opaque", containers.TypeStringList, `["a"]`, containers.Array{containers.String("a")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeColumn("test", "attr", tt.dataType, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeColumn_Errors(t *testing.T) {
	tests := []struct {
		name     string
		dataType containers.DataType
		raw      any
	}{
		{"int from text", containers.TypeInt, "5"},
		{"bad identifier", containers.TypeIdentifier, "event"},
		{"opaque from int", containers.TypePathSpec, int64(1)},
		{"malformed opaque", containers.TypePathSpec, `{"location":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeColumn("test", "attr", tt.dataType, tt.raw)
			require.Error(t, err)
			assert.True(t, IsSerializationError(err))
		})
	}
}

func TestIndexCache(t *testing.T) {
	c := newIndexCache(2)
	a := containers.NewEvent(1, "a")
	b := containers.NewEvent(2, "b")
	d := containers.NewEvent(3, "d")

	c.put("event", 0, a)
	c.put("event", 1, b)
	_, ok := c.get("event", 0) // a becomes most recent
	require.True(t, ok)
	c.put("event", 2, d)

	_, ok = c.get("event", 1)
	assert.False(t, ok, "least recently used entry is evicted")
	got, ok := c.get("event", 0)
	require.True(t, ok)
	assert.Same(t, a, got)

	_, ok = c.get("event_data", 0)
	assert.False(t, ok, "keys include the container type")

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

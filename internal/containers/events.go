package containers

import "slices"

// Container types of the event family.
const (
	EventType           = "event"
	EventDataType       = "event_data"
	EventDataStreamType = "event_data_stream"
	EventSourceType     = "event_source"
	EventTagType        = "event_tag"
)

// Event is a point on the timeline. Its descriptive data lives in EventData,
// referenced through EventDataIdentifier.
type Event struct {
	Base
	EventDataIdentifier Identifier
	DateTime            Object
	Timestamp           int64
	TimestampDesc       string
}

// EventSchema is the schema of the event container type.
var EventSchema = Schema{
	"_event_data_identifier": TypeIdentifier,
	"date_time":              TypeDateTime,
	"timestamp":              TypeTimestamp,
	"timestamp_desc":         TypeString,
}

// NewEvent creates an event with the given timestamp and description.
func NewEvent(timestamp int64, timestampDesc string) *Event {
	return &Event{Timestamp: timestamp, TimestampDesc: timestampDesc}
}

func (e *Event) ContainerType() string { return EventType }

func (e *Event) AttributeNames() []string { return EventSchema.Names() }

func (e *Event) GetAttribute(name string) (Value, bool) {
	switch name {
	case "_event_data_identifier":
		return optionalIdentifier(e.EventDataIdentifier)
	case "date_time":
		return optionalObject(e.DateTime)
	case "timestamp":
		return Int(e.Timestamp), true
	case "timestamp_desc":
		return optionalString(e.TimestampDesc)
	}
	return nil, false
}

func (e *Event) SetAttribute(name string, v Value) error {
	switch name {
	case "_event_data_identifier":
		return setIdentifier(&e.EventDataIdentifier, EventType, name, v)
	case "date_time":
		return setObject(&e.DateTime, EventType, name, v)
	case "timestamp":
		return setInt(&e.Timestamp, EventType, name, v)
	case "timestamp_desc":
		return setString(&e.TimestampDesc, EventType, name, v)
	}
	return unknownAttribute(EventType, name)
}

// EventData holds the parser-specific attributes of one or more events.
// It has no fixed schema and is stored as a serialized payload.
type EventData struct {
	Base
	DataType   string
	Parser     string
	Attributes Object

	// EventDataStreamIdentifier has no column of its own; the serializer
	// embeds it in the payload.
	EventDataStreamIdentifier Identifier
}

// NewEventData creates event data of the given data type.
func NewEventData(dataType string) *EventData {
	return &EventData{DataType: dataType}
}

func (d *EventData) ContainerType() string { return EventDataType }

func (d *EventData) AttributeNames() []string {
	var names []string
	if d.DataType != "" {
		names = append(names, "data_type")
	}
	if d.Parser != "" {
		names = append(names, "parser")
	}
	for _, k := range d.Attributes.SortedKeys() {
		if k != "data_type" && k != "parser" {
			names = append(names, k)
		}
	}
	slices.Sort(names)
	return names
}

func (d *EventData) GetAttribute(name string) (Value, bool) {
	switch name {
	case "data_type":
		return optionalString(d.DataType)
	case "parser":
		return optionalString(d.Parser)
	}
	v, ok := d.Attributes[name]
	return v, ok
}

func (d *EventData) SetAttribute(name string, v Value) error {
	switch name {
	case "data_type":
		return setString(&d.DataType, EventDataType, name, v)
	case "parser":
		return setString(&d.Parser, EventDataType, name, v)
	}
	if IsReservedAttribute(name) {
		return attributeError(EventDataType, name, ErrReservedAttribute)
	}
	if isNull(v) {
		delete(d.Attributes, name)
		return nil
	}
	if d.Attributes == nil {
		d.Attributes = make(Object)
	}
	d.Attributes[name] = v
	return nil
}

// EventDataStream describes the data stream (file content) events were extracted from.
type EventDataStream struct {
	Base
	FileEntropy string
	MD5Hash     string
	PathSpec    Object
	SHA1Hash    string
	SHA256Hash  string
	YaraMatch   []string
}

// EventDataStreamSchema is the schema of the event_data_stream container type.
var EventDataStreamSchema = Schema{
	"file_entropy": TypeString,
	"md5_hash":     TypeString,
	"path_spec":    TypePathSpec,
	"sha1_hash":    TypeString,
	"sha256_hash":  TypeString,
	"yara_match":   TypeStringList,
}

func (s *EventDataStream) ContainerType() string { return EventDataStreamType }

func (s *EventDataStream) AttributeNames() []string { return EventDataStreamSchema.Names() }

func (s *EventDataStream) GetAttribute(name string) (Value, bool) {
	switch name {
	case "file_entropy":
		return optionalString(s.FileEntropy)
	case "md5_hash":
		return optionalString(s.MD5Hash)
	case "path_spec":
		return optionalObject(s.PathSpec)
	case "sha1_hash":
		return optionalString(s.SHA1Hash)
	case "sha256_hash":
		return optionalString(s.SHA256Hash)
	case "yara_match":
		return optionalList(s.YaraMatch)
	}
	return nil, false
}

func (s *EventDataStream) SetAttribute(name string, v Value) error {
	switch name {
	case "file_entropy":
		return setString(&s.FileEntropy, EventDataStreamType, name, v)
	case "md5_hash":
		return setString(&s.MD5Hash, EventDataStreamType, name, v)
	case "path_spec":
		return setObject(&s.PathSpec, EventDataStreamType, name, v)
	case "sha1_hash":
		return setString(&s.SHA1Hash, EventDataStreamType, name, v)
	case "sha256_hash":
		return setString(&s.SHA256Hash, EventDataStreamType, name, v)
	case "yara_match":
		return setList(&s.YaraMatch, EventDataStreamType, name, v)
	}
	return unknownAttribute(EventDataStreamType, name)
}

// EventSource is a source, such as a file entry, that events are extracted from.
type EventSource struct {
	Base
	DataType      string
	FileEntryType string
	PathSpec      Object
}

// EventSourceSchema is the schema of the event_source container type.
var EventSourceSchema = Schema{
	"data_type":       TypeString,
	"file_entry_type": TypeString,
	"path_spec":       TypePathSpec,
}

func (s *EventSource) ContainerType() string { return EventSourceType }

func (s *EventSource) AttributeNames() []string { return EventSourceSchema.Names() }

func (s *EventSource) GetAttribute(name string) (Value, bool) {
	switch name {
	case "data_type":
		return optionalString(s.DataType)
	case "file_entry_type":
		return optionalString(s.FileEntryType)
	case "path_spec":
		return optionalObject(s.PathSpec)
	}
	return nil, false
}

func (s *EventSource) SetAttribute(name string, v Value) error {
	switch name {
	case "data_type":
		return setString(&s.DataType, EventSourceType, name, v)
	case "file_entry_type":
		return setString(&s.FileEntryType, EventSourceType, name, v)
	case "path_spec":
		return setObject(&s.PathSpec, EventSourceType, name, v)
	}
	return unknownAttribute(EventSourceType, name)
}

// EventTag attaches labels to an event.
type EventTag struct {
	Base
	EventIdentifier Identifier
	Labels          []string
}

// EventTagSchema is the schema of the event_tag container type.
var EventTagSchema = Schema{
	"_event_identifier": TypeIdentifier,
	"labels":            TypeStringList,
}

// NewEventTag creates a tag for the given event.
func NewEventTag(event Identifier, labels ...string) *EventTag {
	t := &EventTag{EventIdentifier: event}
	t.AddLabels(labels...)
	return t
}

// AddLabels appends labels that are not already present.
func (t *EventTag) AddLabels(labels ...string) {
	for _, label := range labels {
		if !slices.Contains(t.Labels, label) {
			t.Labels = append(t.Labels, label)
		}
	}
}

func (t *EventTag) ContainerType() string { return EventTagType }

func (t *EventTag) AttributeNames() []string { return EventTagSchema.Names() }

func (t *EventTag) GetAttribute(name string) (Value, bool) {
	switch name {
	case "_event_identifier":
		return optionalIdentifier(t.EventIdentifier)
	case "labels":
		return optionalList(t.Labels)
	}
	return nil, false
}

func (t *EventTag) SetAttribute(name string, v Value) error {
	switch name {
	case "_event_identifier":
		return setIdentifier(&t.EventIdentifier, EventTagType, name, v)
	case "labels":
		return setList(&t.Labels, EventTagType, name, v)
	}
	return unknownAttribute(EventTagType, name)
}

package store

import (
	"errors"
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/acstore/internal/containers"
	"github.com/roach88/acstore/internal/queryir"
)

func mustGetAll(t *testing.T, s *Store, containerType, filter string) iter.Seq2[containers.AttributeContainer, error] {
	t.Helper()
	seq, err := s.GetAll(containerType, filter)
	require.NoError(t, err)
	return seq
}

func sortedTimestamps(t *testing.T, s *Store, tr *TimeRange) []int64 {
	t.Helper()
	seq, err := s.GetSortedEvents(tr)
	require.NoError(t, err)
	var out []int64
	for _, e := range collect(t, seq) {
		out = append(out, e.Timestamp)
	}
	return out
}

func TestGetByIndex_RoundTrip(t *testing.T) {
	s, path := createTestStore(t, testConfig())

	data := containers.NewEventData("fs:stat")
	require.NoError(t, s.Add(data))
	dataID, _ := data.Identifier()

	event := containers.NewEvent(1_700_000_000_000_000, "Creation Time")
	event.EventDataIdentifier = dataID
	event.DateTime = containers.Object{
		"__class_name__": containers.String("PosixTime"),
		"timestamp":      containers.Int(1_700_000_000),
	}
	require.NoError(t, s.Add(event))
	require.NoError(t, s.Close())

	s = openTestStore(t, path, true, testConfig())
	got, err := s.GetByIndex(containers.EventType, 0)
	require.NoError(t, err)
	assert.Equal(t, event, got)
}

func TestGetByIndex_Missing(t *testing.T) {
	s, _ := createTestStore(t, testConfig())
	require.NoError(t, s.Add(containers.NewEvent(1, "x")))

	got, err := s.GetByIndex(containers.EventType, 1)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = s.GetByIndex(containers.EventType, -1)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = s.GetByIndex(containers.HostnameType, 0)
	require.NoError(t, err)
	assert.Nil(t, got, "types without a table read as empty")
}

func TestGetByIndex_UsesIndexCache(t *testing.T) {
	s, _ := createTestStore(t, testConfig())
	profiler := newRecordingProfiler()
	s.SetStorageProfiler(profiler)

	event := containers.NewEvent(1, "x")
	require.NoError(t, s.Add(event))

	got, err := s.GetByIndex(containers.EventType, 0)
	require.NoError(t, err)
	assert.Same(t, event, got)
	assert.Equal(t, 0, profiler.started["get_container_by_index"])

	s.indexCache.Clear()
	got, err = s.GetByIndex(containers.EventType, 0)
	require.NoError(t, err)
	assert.NotSame(t, event, got)
	assert.Equal(t, event, got)
	assert.Equal(t, 1, profiler.started["get_container_by_index"])
	assert.Equal(t, 1, s.indexCache.Len())
}

func TestRoundTrip_AllTypes(t *testing.T) {
	for _, compression := range []CompressionFormat{CompressionZlib, CompressionNone} {
		t.Run(string(compression), func(t *testing.T) {
			cfg := testConfig()
			cfg.CompressionFormat = compression
			s, path := createTestStore(t, cfg)

			stream := &containers.EventDataStream{
				MD5Hash:   "d41d8cd98f00b204e9800998ecf8427e",
				PathSpec:  containers.Object{"type_indicator": containers.String("OS"), "location": containers.String("/tmp/a")},
				YaraMatch: []string{"rule_a", "rule_b"},
			}
			data := containers.NewEventData("fs:stat")
			data.Parser = "filestat"
			require.NoError(t, data.SetAttribute("inode", containers.Int(42)))
			require.NoError(t, data.SetAttribute("is_allocated", containers.Bool(true)))
			require.NoError(t, data.SetAttribute("display_name", containers.String("OS:/tmp/a <&>")))

			session := containers.NewSessionStart(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
			session.DebugMode = true
			session.ProductName = "acstore"

			report := &containers.AnalysisReport{
				PluginName:      "tagging",
				AnalysisCounter: containers.Object{"malware": containers.Int(3)},
				TimeCompiled:    1_767_225_600_000_000,
			}

			require.NoError(t, s.Add(stream))
			streamID, _ := stream.Identifier()
			data.EventDataStreamIdentifier = streamID
			require.NoError(t, s.Add(data))
			require.NoError(t, s.Add(session))
			require.NoError(t, s.Add(report))
			require.NoError(t, s.Close())

			s = openTestStore(t, path, true, cfg)
			for _, want := range []containers.AttributeContainer{stream, data, session, report} {
				got, err := s.GetByIndex(want.ContainerType(), 0)
				require.NoError(t, err)
				assert.Equal(t, want, got, want.ContainerType())
			}
		})
	}
}

func TestPayload_StoredCompressed(t *testing.T) {
	s, path := createTestStore(t, testConfig())
	require.NoError(t, s.Add(containers.NewEventData("fs:stat")))
	require.NoError(t, s.Close())

	assert.Equal(t, "blob", queryRaw(t, path, "SELECT typeof(_data) FROM event_data"))

	cfg := testConfig()
	cfg.CompressionFormat = CompressionNone
	s, path = createTestStore(t, cfg)
	require.NoError(t, s.Add(containers.NewEventData("fs:stat")))
	require.NoError(t, s.Close())

	assert.Equal(t,
		`{"__container_type__":"event_data","__type__":"AttributeContainer","data_type":"fs:stat"}`,
		queryRaw(t, path, "SELECT _data FROM event_data"))
}

func TestReadYourWrites(t *testing.T) {
	s, _ := createTestStore(t, testConfig())

	require.NoError(t, s.Add(containers.NewEvent(10, "x")))
	require.Equal(t, 1, s.writeCache[containers.EventType].len())

	n, err := s.Count(containers.EventType)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	has, err := s.Has(containers.EventType)
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, s.Add(containers.NewEvent(20, "x")))
	events := collect(t, mustGetAll(t, s, containers.EventType, ""))
	assert.Len(t, events, 2)
}

func TestHas_EmptyAndMissing(t *testing.T) {
	s, _ := createTestStore(t, testConfig())

	has, err := s.Has(containers.EventTagType)
	require.NoError(t, err)
	assert.False(t, has)

	has, err = s.Has(containers.HostnameType)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestGetSortedEvents(t *testing.T) {
	s, _ := createTestStore(t, testConfig())
	for _, ts := range []int64{10, 30, 20} {
		require.NoError(t, s.Add(containers.NewEvent(ts, "x")))
	}

	assert.Equal(t, []int64{10, 20, 30}, sortedTimestamps(t, s, nil))
	assert.Equal(t, []int64{20}, sortedTimestamps(t, s, &TimeRange{Start: 15, End: 25}))
	assert.Equal(t, []int64{20, 30}, sortedTimestamps(t, s, &TimeRange{Start: 20}))
	assert.Equal(t, []int64{10, 20}, sortedTimestamps(t, s, &TimeRange{End: 20}))
	assert.Equal(t, []int64{10, 20, 30}, sortedTimestamps(t, s, &TimeRange{}))
	assert.Empty(t, sortedTimestamps(t, s, &TimeRange{Start: 31, End: 40}))
}

func TestGetSortedEvents_TiesOrderedByIdentifier(t *testing.T) {
	s, _ := createTestStore(t, testConfig())
	for _, desc := range []string{"a", "b", "c"} {
		require.NoError(t, s.Add(containers.NewEvent(5, desc)))
	}
	require.NoError(t, s.Add(containers.NewEvent(1, "first")))

	seq, err := s.GetSortedEvents(nil)
	require.NoError(t, err)

	var got []string
	for _, e := range collect(t, seq) {
		got = append(got, e.TimestampDesc)
	}
	assert.Equal(t, []string{"first", "a", "b", "c"}, got)
}

func TestGetSortedEvents_StopsEarly(t *testing.T) {
	s, _ := createTestStore(t, testConfig())
	for i := 1; i <= 5; i++ {
		require.NoError(t, s.Add(containers.NewEvent(int64(i), "x")))
	}

	seq, err := s.GetSortedEvents(nil)
	require.NoError(t, err)

	var n int
	for _, err := range seq {
		require.NoError(t, err)
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)

	// The connection is released after an early break.
	count, err := s.Count(containers.EventType)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestIterator_RejectsReentrantCalls(t *testing.T) {
	s, _ := createTestStore(t, testConfig())
	require.NoError(t, s.Add(containers.NewEventData("fs:stat")))
	for _, ts := range []int64{10, 20} {
		require.NoError(t, s.Add(containers.NewEvent(ts, "x")))
	}
	require.NoError(t, s.Flush())
	s.indexCache.Clear()

	seq, err := s.GetSortedEvents(nil)
	require.NoError(t, err)

	var nested []error
	var seen int
	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, err := range seq {
			assert.NoError(t, err)
			seen++

			_, err = s.GetByIndex(containers.EventDataType, 0)
			nested = append(nested, err)
			_, err = s.Count(containers.EventType)
			nested = append(nested, err)
			nested = append(nested, s.Add(containers.NewEvent(30, "x")))
			nested = append(nested, s.Flush())
			nested = append(nested, s.Close())
			inner, err := s.GetAll(containers.EventType, "")
			assert.NoError(t, err)
			for _, err := range inner {
				nested = append(nested, err)
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("nested call blocked on the held connection")
	}

	assert.Equal(t, 2, seen)
	require.Len(t, nested, 12)
	for _, err := range nested {
		assert.True(t, IsQueryError(err))
		assert.ErrorIs(t, err, ErrIteratorActive)
	}

	// Nothing was written or closed by the rejected calls.
	assert.True(t, s.IsOpen())
	n, err := s.Count(containers.EventType)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	got, err := s.GetByIndex(containers.EventDataType, 0)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestIterator_CachedReadsAllowed(t *testing.T) {
	s, _ := createTestStore(t, testConfig())
	data := containers.NewEventData("fs:stat")
	require.NoError(t, s.Add(data))
	require.NoError(t, s.Add(containers.NewEvent(1, "x")))

	for _, err := range mustGetAll(t, s, containers.EventType, "") {
		require.NoError(t, err)
		got, err := s.GetByIndex(containers.EventDataType, 0)
		require.NoError(t, err)
		assert.Same(t, data, got)
	}
}

func TestGetAll_Filter(t *testing.T) {
	s, _ := createTestStore(t, testConfig())
	for _, e := range []*containers.Event{
		containers.NewEvent(10, "Creation Time"),
		containers.NewEvent(20, "Modification Time"),
		containers.NewEvent(30, "Creation Time"),
	} {
		require.NoError(t, s.Add(e))
	}

	tests := []struct {
		filter string
		want   []int64
	}{
		{"", []int64{10, 20, 30}},
		{`timestamp_desc == "Creation Time"`, []int64{10, 30}},
		{`timestamp_desc == "Creation Time" and timestamp > 15`, []int64{30}},
		{`timestamp < 15 or timestamp >= 30`, []int64{10, 30}},
		{`not timestamp_desc != 'Modification Time'`, []int64{20}},
		{`timestamp in (10, 20)`, []int64{10, 20}},
		{`timestamp not in [10, 20]`, []int64{30}},
		{`_event_data_identifier is None`, []int64{10, 20, 30}},
		{`timestamp_desc is not None and timestamp == -1`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			var got []int64
			for _, c := range collect(t, mustGetAll(t, s, containers.EventType, tt.filter)) {
				got = append(got, c.(*containers.Event).Timestamp)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetAll_FilterOnIdentifierAndBool(t *testing.T) {
	s, _ := createTestStore(t, testConfig())

	event := containers.NewEvent(1, "x")
	require.NoError(t, s.Add(event))
	eventID, _ := event.Identifier()
	require.NoError(t, s.Add(containers.NewEventTag(eventID, "malware")))

	tags := collect(t, mustGetAll(t, s, containers.EventTagType, `_event_identifier == "event.1"`))
	require.Len(t, tags, 1)
	assert.Equal(t, []string{"malware"}, tags[0].(*containers.EventTag).Labels)

	session := containers.NewSessionStart(time.Unix(0, 0))
	session.DebugMode = true
	require.NoError(t, s.Add(session))
	require.NoError(t, s.Add(containers.NewSessionStart(time.Unix(1, 0))))

	debug := collect(t, mustGetAll(t, s, containers.SessionStartType, `debug_mode == True`))
	require.Len(t, debug, 1)
	assert.True(t, debug[0].(*containers.SessionStart).DebugMode)

	bare := collect(t, mustGetAll(t, s, containers.SessionStartType, `not debug_mode`))
	assert.Len(t, bare, 1)
}

func TestGetAll_FilterCompilationErrors(t *testing.T) {
	s, _ := createTestStore(t, testConfig())

	tests := []struct {
		name          string
		containerType string
		filter        string
		check         func(t *testing.T, err error)
	}{
		{
			name:          "unknown attribute",
			containerType: containers.EventType,
			filter:        `nonexistent == 1`,
			check: func(t *testing.T, err error) {
				var ve *queryir.ValidationError
				require.True(t, errors.As(err, &ve))
				assert.Contains(t, ve.Error(), `unknown attribute "nonexistent"`)
			},
		},
		{
			name:          "syntax error",
			containerType: containers.EventType,
			filter:        `timestamp ==`,
			check: func(t *testing.T, err error) {
				var se *queryir.SyntaxError
				assert.True(t, errors.As(err, &se))
			},
		},
		{
			name:          "opaque attribute",
			containerType: containers.EventType,
			filter:        `date_time == "x"`,
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "cannot be filtered on")
			},
		},
		{
			name:          "type without schema",
			containerType: containers.EventDataType,
			filter:        `data_type == "fs:stat"`,
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), `unknown attribute "data_type"`)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq, err := s.GetAll(tt.containerType, tt.filter)
			require.Error(t, err)
			assert.Nil(t, seq)
			assert.ErrorIs(t, err, ErrFilterCompilation)
			assert.True(t, IsFilterCompilationError(err))
			tt.check(t, err)
		})
	}
}

func TestGetAll_UnknownType(t *testing.T) {
	s, _ := createTestStore(t, testConfig())

	_, err := s.GetAll("not_registered", "")
	assert.ErrorIs(t, err, ErrUnknownContainerType)

	// Known types without a table read as empty.
	assert.Empty(t, collect(t, mustGetAll(t, s, containers.HostnameType, "")))
}

func TestGetAll_SkipsEmptyPayloads(t *testing.T) {
	s, _ := createTestStore(t, testConfig())
	require.NoError(t, s.Add(containers.NewEventData("a")))
	require.NoError(t, s.Flush())

	_, err := s.db.Exec("INSERT INTO event_data (_identifier, _data) VALUES (2, NULL)")
	require.NoError(t, err)
	_, err = s.db.Exec("INSERT INTO event_data (_identifier, _data) VALUES (3, x'')")
	require.NoError(t, err)

	got := collect(t, mustGetAll(t, s, containers.EventDataType, ""))
	require.Len(t, got, 1)

	c, err := s.GetByIndex(containers.EventDataType, 1)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestGetAll_CorruptPayload(t *testing.T) {
	s, _ := createTestStore(t, testConfig())

	_, err := s.db.Exec("INSERT INTO event_data (_identifier, _data) VALUES (1, x'deadbeef')")
	require.NoError(t, err)

	seq := mustGetAll(t, s, containers.EventDataType, "")
	var errs []error
	for c, err := range seq {
		assert.Nil(t, c)
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.True(t, IsSerializationError(errs[0]))
}

func TestGetAll_AfterClose(t *testing.T) {
	s, _ := createTestStore(t, testConfig())
	seq := mustGetAll(t, s, containers.EventType, "")
	require.NoError(t, s.Close())

	for _, err := range seq {
		assert.ErrorIs(t, err, ErrNotOpen)
	}
}

func TestProfilers(t *testing.T) {
	s, _ := createTestStore(t, testConfig())
	storage := newRecordingProfiler()
	serializers := newRecordingProfiler()
	s.SetStorageProfiler(storage)
	s.SetSerializersProfiler(serializers)

	require.NoError(t, s.Add(containers.NewEventData("fs:stat")))
	require.NoError(t, s.Add(containers.NewEvent(1, "x")))
	s.indexCache.Clear()

	_, err := s.GetByIndex(containers.EventDataType, 0)
	require.NoError(t, err)
	collect(t, mustGetAll(t, s, containers.EventType, ""))

	assert.Equal(t, 2, storage.started["write_new"])
	assert.Equal(t, 1, storage.started["get_container_by_index"])
	assert.Equal(t, 1, storage.started["get_containers"])
	assert.Equal(t, 2, serializers.started[containers.EventDataType])
	assert.Zero(t, serializers.started[containers.EventType], "schema columns are not serialized as payloads")

	require.Len(t, storage.samples, 2)
	assert.Equal(t, "write_new", storage.samples[0].operation)
	assert.Equal(t, "write", storage.samples[0].direction)
	assert.Equal(t, "read_create", storage.samples[1].operation)
	assert.Equal(t, "read", storage.samples[1].direction)
	assert.Equal(t, storage.samples[0].size, storage.samples[1].size)
	assert.Equal(t, storage.samples[0].compressedSize, storage.samples[1].compressedSize)

	s.SetStorageProfiler(nil)
	require.NoError(t, s.Add(containers.NewEvent(2, "x")))
	assert.Equal(t, 2, storage.started["write_new"])
}

package profiling

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/acstore/internal/store"
	"github.com/roach88/acstore/internal/testutil"
)

var (
	_ store.StorageProfiler     = (*StorageProfiler)(nil)
	_ store.SerializersProfiler = (*SerializersProfiler)(nil)
)

var epoch = time.Date(2023, 3, 27, 0, 0, 0, 0, time.UTC)

func TestTimings_AccumulatesPerName(t *testing.T) {
	clock := testutil.NewFakeClock(epoch, time.Millisecond)
	timings := NewTimings(clock)

	timings.StartTiming("event")
	timings.StopTiming("event")

	timings.StartTiming("event_data")
	clock.Advance(5 * time.Millisecond)
	timings.StopTiming("event_data")

	timings.StartTiming("event")
	timings.StopTiming("event")

	assert.Equal(t, []Total{
		{Name: "event", Count: 2, Duration: 2 * time.Millisecond},
		{Name: "event_data", Count: 1, Duration: 6 * time.Millisecond},
	}, timings.Totals())
}

func TestTimings_Overlapping(t *testing.T) {
	clock := testutil.NewFakeClock(epoch, time.Millisecond)
	timings := NewTimings(clock)

	timings.StartTiming("write_new")         // 0ms
	timings.StartTiming("flush_write_cache") // 1ms
	timings.StopTiming("flush_write_cache")  // 2ms
	timings.StopTiming("write_new")          // 3ms

	totals := timings.Totals()
	require.Len(t, totals, 2)
	assert.Equal(t, time.Millisecond, totals[0].Duration)
	assert.Equal(t, 3*time.Millisecond, totals[1].Duration)
}

func TestTimings_StopWithoutStart(t *testing.T) {
	timings := NewTimings(testutil.NewFakeClock(epoch, time.Millisecond))

	timings.StopTiming("get_containers")
	assert.Empty(t, timings.Totals())
}

func TestTimings_DefaultClock(t *testing.T) {
	timings := NewTimings(nil)

	timings.StartTiming("x")
	timings.StopTiming("x")

	totals := timings.Totals()
	require.Len(t, totals, 1)
	assert.Equal(t, 1, totals[0].Count)
	assert.GreaterOrEqual(t, totals[0].Duration, time.Duration(0))
}

func TestTimings_Concurrent(t *testing.T) {
	timings := NewTimings(testutil.NewFakeClock(epoch, time.Microsecond))

	names := []string{"a", "b", "c", "d"}
	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				timings.StartTiming(name)
				timings.StopTiming(name)
			}
		}()
	}
	wg.Wait()

	totals := timings.Totals()
	require.Len(t, totals, len(names))
	for _, total := range totals {
		assert.Equal(t, 100, total.Count, total.Name)
	}
}

func TestStorageProfiler_Samples(t *testing.T) {
	p := NewStorageProfiler(testutil.NewFakeClock(epoch, time.Second))

	p.Sample("write_new", "write", "event_data", 120, 80)
	p.Sample("read_create", "read", "event_data", 120, 80)

	samples := p.Samples()
	require.Len(t, samples, 2)
	assert.Equal(t, Sample{
		Time:           epoch,
		Operation:      "write_new",
		Direction:      "write",
		ContainerType:  "event_data",
		Size:           120,
		CompressedSize: 80,
	}, samples[0])
	assert.Equal(t, epoch.Add(time.Second), samples[1].Time)

	samples[0].Size = 0
	assert.Equal(t, 120, p.Samples()[0].Size, "Samples returns a copy")
}

func TestStorageProfiler_WriteSamples(t *testing.T) {
	p := NewStorageProfiler(testutil.NewFakeClock(time.UnixMicro(1000), time.Microsecond))
	p.Sample("write_new", "write", "event_data", 10, 7)

	var buf bytes.Buffer
	require.NoError(t, p.WriteSamples(&buf))
	assert.Equal(t,
		"time\toperation\tdirection\tcontainer_type\tsize\tcompressed_size\n"+
			"1000\twrite_new\twrite\tevent_data\t10\t7\n",
		buf.String())
}

func TestWriteTotals(t *testing.T) {
	var buf bytes.Buffer
	err := WriteTotals(&buf, []Total{
		{Name: "event", Count: 2, Duration: 3 * time.Millisecond},
		{Name: "event_data", Count: 10, Duration: time.Second},
	})
	require.NoError(t, err)

	assert.Equal(t,
		"NAME        COUNT  DURATION\n"+
			"event       2      3ms\n"+
			"event_data  10     1s\n",
		buf.String())
}

func TestProfilers_WithStore(t *testing.T) {
	path := testutil.WriteTimeline(t, 30, 10, 20)

	s := testutil.OpenStore(t, path, true)
	storage := NewStorageProfiler(nil)
	serializers := NewSerializersProfiler(nil)
	s.SetStorageProfiler(storage)
	s.SetSerializersProfiler(serializers)

	data, err := s.GetAll("event_data", "")
	require.NoError(t, err)
	for _, err := range data {
		require.NoError(t, err)
	}

	var names []string
	for _, total := range storage.Totals() {
		names = append(names, total.Name)
	}
	assert.Contains(t, names, "get_containers")

	samples := storage.Samples()
	require.Len(t, samples, 3)
	for _, sample := range samples {
		assert.Equal(t, "read_create", sample.Operation)
		assert.Equal(t, "read", sample.Direction)
		assert.Positive(t, sample.Size)
	}
}

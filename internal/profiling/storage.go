package profiling

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"
	"time"
)

// Sample is one payload read or write.
type Sample struct {
	Time           time.Time
	Operation      string
	Direction      string
	ContainerType  string
	Size           int
	CompressedSize int
}

// StorageProfiler times storage operations and keeps payload samples.
type StorageProfiler struct {
	*Timings

	mu      sync.Mutex
	samples []Sample
}

// NewStorageProfiler creates a storage profiler.
func NewStorageProfiler(clock Clock) *StorageProfiler {
	return &StorageProfiler{Timings: NewTimings(clock)}
}

// Sample records the sizes of a payload.
func (p *StorageProfiler) Sample(operation, direction, containerType string, size, compressedSize int) {
	now := p.clock.Now()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.samples = append(p.samples, Sample{
		Time:           now,
		Operation:      operation,
		Direction:      direction,
		ContainerType:  containerType,
		Size:           size,
		CompressedSize: compressedSize,
	})
}

// Samples returns a copy of the recorded samples in recording order.
func (p *StorageProfiler) Samples() []Sample {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Sample, len(p.samples))
	copy(out, p.samples)
	return out
}

// WriteSamples writes the samples as tab-separated values with a header.
// Times are microseconds since the Unix epoch.
func (p *StorageProfiler) WriteSamples(w io.Writer) error {
	if _, err := fmt.Fprintln(w, "time\toperation\tdirection\tcontainer_type\tsize\tcompressed_size"); err != nil {
		return err
	}
	for _, s := range p.Samples() {
		_, err := fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%d\n",
			s.Time.UnixMicro(), s.Operation, s.Direction, s.ContainerType, s.Size, s.CompressedSize)
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteTotals writes totals as an aligned table.
func WriteTotals(w io.Writer, totals []Total) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCOUNT\tDURATION")
	for _, t := range totals {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", t.Name, t.Count, t.Duration)
	}
	return tw.Flush()
}

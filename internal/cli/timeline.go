package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/acstore/internal/containers"
	"github.com/roach88/acstore/internal/store"
)

// TimelineOptions holds flags for the timeline command.
type TimelineOptions struct {
	*RootOptions
	Start int64
	End   int64
	Limit int
}

// TimelineEntry is one event in timestamp order.
type TimelineEntry struct {
	Identifier    string `json:"identifier"`
	Timestamp     int64  `json:"timestamp"`
	TimestampDesc string `json:"timestamp_desc"`
	EventData     string `json:"event_data,omitempty"`
	DataType      string `json:"data_type,omitempty"`
}

// NewTimelineCommand creates the timeline command.
func NewTimelineCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TimelineOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "timeline <file>",
		Short: "List events in timestamp order",
		Long: `List the stored events ordered by timestamp, with the data type of
the event data each event refers to.

Timestamps are microseconds since the Unix epoch. --start and --end are
inclusive bounds; 0 leaves a bound open.

Examples:
  acstore timeline timeline.plaso
  acstore timeline timeline.plaso --start 1700000000000000 --end 1700086400000000`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTimeline(opts, cmd, args[0])
		},
	}

	cmd.Flags().Int64Var(&opts.Start, "start", 0, "earliest timestamp to include")
	cmd.Flags().Int64Var(&opts.End, "end", 0, "latest timestamp to include")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of events to list (0 for all)")

	return cmd
}

func runTimeline(opts *TimelineOptions, cmd *cobra.Command, path string) error {
	out := opts.formatter(cmd)
	if opts.Limit < 0 {
		return out.Fail(ExitCommandError, fmt.Sprintf("invalid limit %d", opts.Limit), nil)
	}

	s, err := opts.openStore(cmd, path, true)
	if err != nil {
		return err
	}
	defer s.Close()

	var tr *store.TimeRange
	if opts.Start != 0 || opts.End != 0 {
		tr = &store.TimeRange{Start: opts.Start, End: opts.End}
	}

	seq, err := s.GetSortedEvents(tr)
	if err != nil {
		return out.Fail(exitCodeFor(err), "failed to read events", err)
	}

	// The store has a single connection, so event data is resolved after
	// the event iteration has finished.
	var events []*containers.Event
	for event, err := range seq {
		if err != nil {
			return out.Fail(exitCodeFor(err), "failed to read events", err)
		}
		events = append(events, event)
		if opts.Limit > 0 && len(events) == opts.Limit {
			break
		}
	}

	entries := make([]TimelineEntry, 0, len(events))
	for _, event := range events {
		entry := TimelineEntry{
			Identifier:    identifierString(event),
			Timestamp:     event.Timestamp,
			TimestampDesc: event.TimestampDesc,
		}
		if id := event.EventDataIdentifier; !id.IsZero() {
			entry.EventData = id.String()
			data, err := s.GetByIndex(containers.EventDataType, int(id.SequenceNumber-1))
			if err != nil {
				return out.Fail(exitCodeFor(err), "failed to read event data", err)
			}
			if ed, ok := data.(*containers.EventData); ok {
				entry.DataType = ed.DataType
			}
		}
		entries = append(entries, entry)
	}

	if opts.Format == "json" {
		return out.Success(entries)
	}

	w := cmd.OutOrStdout()
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", e.Timestamp, e.TimestampDesc, e.Identifier, e.DataType)
	}
	return nil
}

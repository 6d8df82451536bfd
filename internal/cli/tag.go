package cli

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/acstore/internal/containers"
)

var validLabel = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// TagOptions holds flags for the tag command.
type TagOptions struct {
	*RootOptions
	Event  int64
	Labels []string
}

// TagResult describes the tag written for an event.
type TagResult struct {
	Tag     string   `json:"tag"`
	Event   string   `json:"event"`
	Labels  []string `json:"labels"`
	Created bool     `json:"created"`
}

func (r TagResult) String() string {
	verb := "Updated"
	if r.Created {
		verb = "Created"
	}
	return fmt.Sprintf("%s %s for %s: %s", verb, r.Tag, r.Event, strings.Join(r.Labels, ", "))
}

// NewTagCommand creates the tag command.
func NewTagCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TagOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tag <file>",
		Short: "Attach labels to an event",
		Long: `Attach labels to an event, identified by its sequence number.

An event has at most one tag. Labels are merged into an existing tag.
Labels consist of letters, digits and underscores.

Examples:
  acstore tag timeline.plaso --event 12 --label malware
  acstore tag timeline.plaso --event 12 --label browser_search --label reviewed`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTag(opts, cmd, args[0])
		},
	}

	cmd.Flags().Int64Var(&opts.Event, "event", 0, "sequence number of the event to tag (required)")
	_ = cmd.MarkFlagRequired("event")
	cmd.Flags().StringArrayVarP(&opts.Labels, "label", "l", nil, "label to attach (repeatable, required)")
	_ = cmd.MarkFlagRequired("label")

	return cmd
}

func runTag(opts *TagOptions, cmd *cobra.Command, path string) error {
	out := opts.formatter(cmd)

	if opts.Event < 1 {
		return out.Fail(ExitCommandError, fmt.Sprintf("invalid event sequence number %d", opts.Event), nil)
	}
	for _, label := range opts.Labels {
		if !validLabel.MatchString(label) {
			return out.Fail(ExitCommandError, fmt.Sprintf("invalid label %q", label), nil)
		}
	}

	s, err := opts.openStore(cmd, path, false)
	if err != nil {
		return err
	}
	defer func() {
		if s.IsOpen() {
			s.Close()
		}
	}()

	event, err := s.GetByIndex(containers.EventType, int(opts.Event-1))
	if err != nil {
		return out.Fail(exitCodeFor(err), "failed to read event", err)
	}
	if event == nil {
		return out.Fail(ExitCommandError, fmt.Sprintf("no event with sequence number %d", opts.Event), nil)
	}
	eventID, _ := event.Identifier()

	seq, err := s.GetAll(containers.EventTagType, fmt.Sprintf("_event_identifier == %q", eventID.String()))
	if err != nil {
		return out.Fail(exitCodeFor(err), "failed to look up tags", err)
	}
	var existing *containers.EventTag
	for c, err := range seq {
		if err != nil {
			return out.Fail(exitCodeFor(err), "failed to look up tags", err)
		}
		if tag, ok := c.(*containers.EventTag); ok {
			existing = tag
			break
		}
	}

	tag := existing
	if tag == nil {
		tag = containers.NewEventTag(eventID, opts.Labels...)
		err = s.Add(tag)
	} else {
		tag.AddLabels(opts.Labels...)
		err = s.Update(tag)
	}
	if err != nil {
		return out.Fail(exitCodeFor(err), "failed to write tag", err)
	}
	if err := s.Close(); err != nil {
		return out.Fail(ExitFailure, "failed to close storage file", err)
	}

	return out.Success(TagResult{
		Tag:     identifierString(tag),
		Event:   eventID.String(),
		Labels:  tag.Labels,
		Created: existing == nil,
	})
}

package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	ContainerType string
	Filter        string
	Limit         int
}

// ContainerRecord is one listed container.
type ContainerRecord struct {
	Identifier string         `json:"identifier"`
	Attributes map[string]any `json:"attributes"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list <file>",
		Short: "List the containers of one type",
		Long: `List the stored containers of one type in identifier order.

A filter expression selects containers by their attribute columns:
comparisons, "in" and "not in" lists, "and", "or", "not" and parentheses.

Examples:
  acstore list timeline.plaso --type event
  acstore list timeline.plaso --type event --filter 'timestamp >= 1700000000000000'
  acstore list timeline.plaso --type extraction_warning --limit 10 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.ContainerType, "type", "t", "", "container type to list (required)")
	_ = cmd.MarkFlagRequired("type")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter expression")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of containers to list (0 for all)")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command, path string) error {
	out := opts.formatter(cmd)
	if opts.Limit < 0 {
		return out.Fail(ExitCommandError, fmt.Sprintf("invalid limit %d", opts.Limit), nil)
	}

	s, err := opts.openStore(cmd, path, true)
	if err != nil {
		return err
	}
	defer s.Close()

	seq, err := s.GetAll(opts.ContainerType, opts.Filter)
	if err != nil {
		return out.Fail(exitCodeFor(err), "invalid list request", err)
	}

	records := []ContainerRecord{}
	for c, err := range seq {
		if err != nil {
			return out.Fail(exitCodeFor(err), "failed to read containers", err)
		}
		records = append(records, ContainerRecord{
			Identifier: identifierString(c),
			Attributes: plainAttributes(c),
		})
		if opts.Limit > 0 && len(records) == opts.Limit {
			break
		}
	}
	out.VerboseLog("Listed %d %s containers", len(records), opts.ContainerType)

	if opts.Format == "json" {
		return out.Success(records)
	}

	w := cmd.OutOrStdout()
	for _, r := range records {
		attrs, err := json.Marshal(r.Attributes)
		if err != nil {
			return out.Fail(ExitFailure, "failed to format attributes", err)
		}
		fmt.Fprintf(w, "%s\t%s\n", r.Identifier, attrs)
	}
	return nil
}

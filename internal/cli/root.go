package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/roach88/acstore/internal/config"
	"github.com/roach88/acstore/internal/profiling"
	"github.com/roach88/acstore/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Profile    bool

	// Set by PersistentPreRunE.
	Config *config.File
	Logger *slog.Logger

	// Set when a command opens a store with Profile enabled.
	storageProfiler     *profiling.StorageProfiler
	serializersProfiler *profiling.SerializersProfiler
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the acstore CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "acstore",
		Short: "Attribute container storage files",
		Long: `Inspect and annotate SQLite attribute container storage files.

Storage files hold events, event data and the other attribute containers
produced by an extraction run, one table per container type.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}

			opts.Config = &config.File{}
			if opts.ConfigPath != "" {
				f, err := config.Load(opts.ConfigPath)
				if err != nil {
					return opts.formatter(cmd).Fail(ExitCommandError, "failed to load config", err)
				}
				opts.Config = f
			}

			level := opts.Config.LogLevel(slog.LevelWarn)
			if opts.Verbose {
				level = slog.LevelDebug
			}
			opts.Logger = newLogger(cmd.ErrOrStderr(), level)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return opts.writeProfiles(cmd.ErrOrStderr())
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML configuration file")
	cmd.PersistentFlags().BoolVar(&opts.Profile, "profile", false, "print storage and serializer timings to stderr")

	// Add subcommands
	cmd.AddCommand(NewInfoCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewTimelineCommand(opts))
	cmd.AddCommand(NewTagCommand(opts))

	return cmd
}

// newLogger returns a tint logger writing to w. Colour is used only when w
// is a terminal.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
		w = colorable.NewColorable(f)
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    noColor,
	}))
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// openStore opens the storage file at path with the configured store
// settings. Failures are reported through the formatter.
func (o *RootOptions) openStore(cmd *cobra.Command, path string, readOnly bool) (*store.Store, error) {
	out := o.formatter(cmd)

	s, err := store.New(o.Config.StoreConfig(o.Logger))
	if err != nil {
		return nil, out.Fail(ExitCommandError, "invalid storage configuration", err)
	}
	if o.Profile {
		o.storageProfiler = profiling.NewStorageProfiler(nil)
		o.serializersProfiler = profiling.NewSerializersProfiler(nil)
		s.SetStorageProfiler(o.storageProfiler)
		s.SetSerializersProfiler(o.serializersProfiler)
	}

	out.VerboseLog("Opening %s (read-only=%v)", path, readOnly)
	if err := s.Open(path, readOnly); err != nil {
		return nil, out.Fail(ExitCommandError, "failed to open storage file", err)
	}
	return s, nil
}

func (o *RootOptions) writeProfiles(w io.Writer) error {
	if o.storageProfiler == nil {
		return nil
	}
	fmt.Fprintln(w, "Storage:")
	if err := profiling.WriteTotals(w, o.storageProfiler.Totals()); err != nil {
		return err
	}
	fmt.Fprintln(w, "Serializers:")
	return profiling.WriteTotals(w, o.serializersProfiler.Totals())
}

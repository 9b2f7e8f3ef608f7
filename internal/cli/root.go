package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/ordex/internal/config"
	"github.com/roach88/ordex/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the ordex CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "ordex",
		Short: "ordex - ordered stores and live secondary indexes",
		Long: `Inspect ordered stores, secondary indexes and change-notification
consolidation from YAML fixtures.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML config file")

	cmd.AddCommand(NewIndexCommand(opts))
	cmd.AddCommand(NewConsolidateCommand(opts))
	cmd.AddCommand(NewSortCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// env is what every command needs before it runs.
type env struct {
	cfg       *config.Config
	log       *slog.Logger
	formatter *OutputFormatter
}

// setup loads the configuration and builds the logger and formatter for
// cmd. Configuration failures are reported through the formatter.
func setup(opts *RootOptions, cmd *cobra.Command) (*env, error) {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // diagnostics stay off stdout so JSON is not corrupted
		Verbose:   opts.Verbose,
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, commandError(formatter, ErrCodeConfig, err.Error(), nil)
	}

	log, err := logging.New(formatter.GetErrWriter(), cfg.Log, opts.Verbose)
	if err != nil {
		return nil, commandError(formatter, ErrCodeConfig, err.Error(), nil)
	}

	return &env{
		cfg:       cfg,
		log:       log.With("command", cmd.Name()),
		formatter: formatter,
	}, nil
}

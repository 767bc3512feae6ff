package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/ucsv/internal/config"
	"github.com/JonMunkholm/ucsv/internal/core"
	"github.com/JonMunkholm/ucsv/internal/dialect"
	"github.com/JonMunkholm/ucsv/internal/logging"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

// app is the state shared by every command, filled in before any of them runs.
type app struct {
	cfg      *config.Config
	registry *dialect.Registry
	files    *core.Files
	logger   *slog.Logger

	// observer, when set, is attached to files; serve installs the metrics
	// collector here.
	observer core.Observer
}

// setup loads .env and the configuration, then builds the dialect registry
// and the Files bound to the command's standard streams.
func (a *app) setup(cmd *cobra.Command, lookup func(string) (string, bool)) error {
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded .env file")
	}

	cfg, err := config.LoadFrom(lookup)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.logger = logging.New(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(a.logger)

	a.registry = dialect.NewRegistry(dialect.WithTextEncoding(cfg.Codec.TxtEncoding))
	if cfg.Codec.DialectsFile != "" {
		n, err := a.registry.LoadFile(cfg.Codec.DialectsFile)
		if err != nil {
			return err
		}
		a.logger.Debug("dialect file loaded", "path", cfg.Codec.DialectsFile, "bindings", n)
	}

	a.files = a.newFiles(cmd)
	return nil
}

func (a *app) newFiles(cmd *cobra.Command) *core.Files {
	opts := []core.FilesOption{
		core.WithStdio(cmd.InOrStdin(), cmd.OutOrStdout()),
		core.WithBufferSize(a.cfg.Codec.WriteBuffer),
	}
	if a.observer != nil {
		opts = append(opts, core.WithObserver(a.observer))
	}
	return core.NewFiles(a.registry, opts...)
}

// newRootCmd builds the command tree. lookup supplies environment variables.
func newRootCmd(lookup func(string) (string, bool)) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "ucsv",
		Short: "Dialect-aware delimited text tools",
		Long: `ucsv reads and writes delimited text files whose dialect (delimiter,
quoting, escaping, line terminator, encoding) is chosen by file extension.

Built-in bindings:
  .csv  pet        semicolon, every field quoted, utf-8
  .tsv  excel-tsv  tab, every field quoted, utf-8
  .txt  excel-tab  tab, minimal quoting, utf-16

The path "-" means standard input or output in the excel dialect.
Extra bindings can be declared in a YAML file named by UCSV_DIALECTS_FILE.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd, lookup)
		},
	}

	root.AddCommand(
		newConvertCmd(a),
		newMergeCmd(a),
		newDedupeCmd(a),
		newSlimCmd(a),
		newGroupedCmd(a),
		newDialectsCmd(a),
		newLoadCmd(a),
		newDumpCmd(a),
		newServeCmd(a),
	)
	return root
}

// Execute runs the root command against the process environment.
func Execute() {
	if err := newRootCmd(os.LookupEnv).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "ucsv:", err)
		os.Exit(1)
	}
}

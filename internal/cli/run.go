package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/nbsync/internal/engine"
	"github.com/roach88/nbsync/internal/harness"
	"github.com/roach88/nbsync/internal/journal"
	"github.com/roach88/nbsync/internal/transport"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Out      string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Drive a scenario and emit LSP notifications",
		Long: `Drive the editor steps of a scenario through the sync engine and write
every notification as an LSP base-protocol frame.

Frames go to stdout unless --out names a file. With --db (or journal.path
in the config file) every delivery is journaled to SQLite for trace and
replay.

Example:
  nbsync run ./scenarios/filtered_cells.yaml
  nbsync run --db ./nbsync.db --out frames.bin ./scenarios/filtered_cells.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal")
	cmd.Flags().StringVar(&opts.Out, "out", "", "write frames to this file instead of stdout")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	logger := opts.logger()

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var w io.Writer = cmd.OutOrStdout()
	if opts.Out != "" {
		f, err := os.Create(opts.Out)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create output file", err)
		}
		defer f.Close()
		w = f
	}
	conn := transport.NewConn(w)

	var sender engine.Sender = conn
	if dbPath := opts.journalPath(opts.Database); dbPath != "" {
		logger.Info("opening journal", "path", dbPath)
		j, err := journal.Open(dbPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := j.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()
		rec, err := journal.NewRecorder(ctx, j, conn, journal.WithRecorderLogger(logger))
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to start journal", err)
		}
		sender = rec
	}

	logger.Info("running scenario", "name", scenario.Name, "steps", len(scenario.Steps))
	result, err := harness.Run(ctx, scenario,
		harness.WithSender(sender),
		harness.WithLogger(logger),
	)
	if err != nil {
		return WrapExitError(ExitFailure, "scenario failed", err)
	}
	logger.Info("scenario finished", "name", scenario.Name, "notifications", len(result.Trace), "pass", result.Pass)

	if !result.Pass {
		errw := cmd.ErrOrStderr()
		for _, msg := range result.Errors {
			fmt.Fprintln(errw, msg)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed with %d error(s)", scenario.Name, len(result.Errors)))
	}
	return nil
}

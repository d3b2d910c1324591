package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/nbsync/internal/journal"
	"github.com/roach88/nbsync/internal/transport"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database      string
	Document      string
	Registration  string
	Out           string
	IncludeFailed bool
}

// ReplayResult summarises a replay.
type ReplayResult struct {
	Replayed int `json:"replayed"`
	Skipped  int `json:"skipped"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-send journaled notifications",
		Long: `Re-send journaled notifications as LSP base-protocol frames, in their
original order and with their original params.

Only notifications that were delivered are replayed unless
--include-failed is given. Frames go to stdout unless --out names a file;
the summary is written to stderr.

Exit codes:
  0 - All notifications replayed
  1 - A frame could not be written
  2 - Command error (journal not found, etc.)

Examples:
  nbsync replay --db ./nbsync.db > frames.bin
  nbsync replay --db ./nbsync.db --document file:///work/a.ipynb --out a.bin`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal")
	cmd.Flags().StringVar(&opts.Document, "document", "", "replay one notebook or cell document only")
	cmd.Flags().StringVar(&opts.Registration, "registration", "", "replay one registration only")
	cmd.Flags().StringVar(&opts.Out, "out", "", "write frames to this file instead of stdout")
	cmd.Flags().BoolVar(&opts.IncludeFailed, "include-failed", false, "also replay notifications whose delivery failed")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	entries, err := listJournal(ctx, opts.journalPath(opts.Database), journal.Filter{
		Document:     opts.Document,
		Registration: opts.Registration,
	})
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if opts.Out != "" {
		f, err := os.Create(opts.Out)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create output file", err)
		}
		defer f.Close()
		w = f
	}

	result, err := replayEntries(ctx, transport.NewConn(w), entries, opts.IncludeFailed)
	if err != nil {
		return WrapExitError(ExitFailure, fmt.Sprintf("replay stopped after %d notification(s)", result.Replayed), err)
	}
	opts.logger().Debug("replay finished", "replayed", result.Replayed, "skipped", result.Skipped)

	if opts.Format == "json" {
		encoder := json.NewEncoder(cmd.ErrOrStderr())
		return encoder.Encode(CLIResponse{Status: "ok", Data: result})
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "✓ Replayed %d notification(s), skipped %d\n", result.Replayed, result.Skipped)
	return nil
}

// replayEntries writes each entry through conn with its journaled params
// untouched.
func replayEntries(ctx context.Context, conn *transport.Conn, entries []journal.Entry, includeFailed bool) (ReplayResult, error) {
	var result ReplayResult
	for _, e := range entries {
		if e.Outcome == journal.OutcomeFailed && !includeFailed {
			result.Skipped++
			continue
		}
		if err := conn.SendNotification(ctx, e.Method, json.RawMessage(e.Params)); err != nil {
			return result, fmt.Errorf("seq %d: %w", e.Seq, err)
		}
		result.Replayed++
	}
	return result, nil
}

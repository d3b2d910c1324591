package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/nbsync/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database     string
	Document     string
	Method       string
	Registration string
	Limit        int
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Entries []journal.Entry `json:"entries"`
	Stats   TraceStats      `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Total    int            `json:"total"`
	Sent     int            `json:"sent"`
	Failed   int            `json:"failed"`
	ByMethod map[string]int `json:"by_method"`
	// Regressions lists documents whose version went backwards between two
	// sent notifications.
	Regressions []string `json:"regressions,omitempty"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Query journaled notifications",
		Long: `Query the notification journal written by run.

Lists notifications in send order with their outcome, and summarises them
per method. Documents whose version goes backwards are reported, since a
server would reject such a change.

Examples:
  nbsync trace --db ./nbsync.db
  nbsync trace --db ./nbsync.db --document file:///work/a.ipynb
  nbsync trace --db ./nbsync.db --method notebookDocument/didChange --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal")
	cmd.Flags().StringVar(&opts.Document, "document", "", "filter to a notebook or cell document URI")
	cmd.Flags().StringVar(&opts.Method, "method", "", "filter to a notification method")
	cmd.Flags().StringVar(&opts.Registration, "registration", "", "filter to a registration id")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of entries (0 for all)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	entries, err := listJournal(ctx, opts.journalPath(opts.Database), journal.Filter{
		Document:     opts.Document,
		Method:       opts.Method,
		Registration: opts.Registration,
		Limit:        opts.Limit,
	})
	if err != nil {
		return err
	}

	result := TraceResult{Entries: entries, Stats: traceStats(entries)}
	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}
	return outputTraceText(cmd.OutOrStdout(), result, opts.Verbose)
}

// listJournal opens the journal at path and lists the matching entries.
func listJournal(ctx context.Context, path string, f journal.Filter) ([]journal.Entry, error) {
	if path == "" {
		return nil, NewExitError(ExitCommandError, "--db is required (or set journal.path in the config file)")
	}
	j, err := journal.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	entries, err := j.List(ctx, f)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read journal", err)
	}
	return entries, nil
}

// traceStats summarises entries. Version regressions are only checked
// across sent entries of the same registration and document.
func traceStats(entries []journal.Entry) TraceStats {
	stats := TraceStats{Total: len(entries), ByMethod: make(map[string]int)}
	last := make(map[string]int32)
	regressed := make(map[string]bool)

	for _, e := range entries {
		stats.ByMethod[e.Method]++
		if e.Outcome == journal.OutcomeFailed {
			stats.Failed++
			continue
		}
		stats.Sent++
		if e.Document == "" || e.Version == 0 {
			continue
		}
		key := e.Registration + " " + e.Document
		if prev, ok := last[key]; ok && e.Version < prev && !regressed[key] {
			regressed[key] = true
			stats.Regressions = append(stats.Regressions, e.Document)
		}
		last[key] = e.Version
	}
	return stats
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(CLIResponse{Status: "ok", Data: result})
}

// outputTraceText outputs the trace result as text. Verbose mode adds the
// params of every entry.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) error {
	if len(result.Entries) == 0 {
		fmt.Fprintln(w, "No notifications found.")
		return nil
	}

	fmt.Fprintln(w, "Timeline:")
	for _, e := range result.Entries {
		mark := "✓"
		if e.Outcome == journal.OutcomeFailed {
			mark = "✗"
		}
		fmt.Fprintf(w, "  [%d] %s %s %s v%d (%s)\n", e.Seq, mark, e.Method, e.Document, e.Version, e.Registration)
		if e.Error != "" {
			fmt.Fprintf(w, "       error: %s\n", e.Error)
		}
		if verbose {
			fmt.Fprintf(w, "       %s\n", e.Params)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Stats: %d total, %d sent, %d failed\n", result.Stats.Total, result.Stats.Sent, result.Stats.Failed)

	methods := make([]string, 0, len(result.Stats.ByMethod))
	for m := range result.Stats.ByMethod {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	for _, m := range methods {
		fmt.Fprintf(w, "  %s: %d\n", m, result.Stats.ByMethod[m])
	}

	for _, doc := range result.Stats.Regressions {
		fmt.Fprintf(w, "⚠ version regression: %s\n", doc)
	}
	return nil
}

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/nbsync/internal/protocol"
	"github.com/roach88/nbsync/internal/transport"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
}

// FrameSummary describes one decoded frame.
type FrameSummary struct {
	Index    int             `json:"index"`
	Method   string          `json:"method"`
	Document string          `json:"document"`
	Version  int32           `json:"version,omitempty"`
	Params   json.RawMessage `json:"params,omitempty"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect [frames-file]",
		Short: "Decode a stream of LSP notification frames",
		Long: `Decode Content-Length framed notifications, as written by run and
replay, and list the method, document and version of each.

Reads stdin when no file is given. Every frame must carry a known notebook
or text document notification.

Example:
  nbsync run ./scenarios/filtered_cells.yaml | nbsync inspect
  nbsync inspect frames.bin --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to open frames file", err)
				}
				defer f.Close()
				r = f
			}
			return runInspect(opts, r, cmd)
		},
	}

	return cmd
}

func runInspect(opts *InspectOptions, r io.Reader, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	frames, err := readFrames(r)
	if err != nil {
		_ = formatter.Error(ErrCodeTransport, err.Error(), nil)
		return WrapExitError(ExitFailure, fmt.Sprintf("bad frame after %d good one(s)", len(frames)), err)
	}

	if formatter.Format == "json" {
		return formatter.JSON(frames)
	}

	if len(frames) == 0 {
		fmt.Fprintln(formatter.Writer, "No frames found.")
		return nil
	}
	for _, f := range frames {
		if f.Version != 0 {
			fmt.Fprintf(formatter.Writer, "[%d] %s %s v%d\n", f.Index, f.Method, f.Document, f.Version)
		} else {
			fmt.Fprintf(formatter.Writer, "[%d] %s %s\n", f.Index, f.Method, f.Document)
		}
		formatter.VerboseLog("%s", f.Params)
	}
	return nil
}

// readFrames decodes frames until a clean end of stream. It returns the
// frames read so far along with the first error.
func readFrames(r io.Reader) ([]FrameSummary, error) {
	reader := transport.NewReader(r)
	frames := []FrameSummary{}
	for {
		msg, err := reader.ReadMessage()
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
		params, err := protocol.DecodeParams(msg.Method, msg.Params)
		if err != nil {
			return frames, fmt.Errorf("frame %d: %w", len(frames)+1, err)
		}
		doc, version := protocol.DocumentURI(params)
		frames = append(frames, FrameSummary{
			Index:    len(frames) + 1,
			Method:   msg.Method,
			Document: doc,
			Version:  version,
			Params:   msg.Params,
		})
	}
}

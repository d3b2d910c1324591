package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nbsync/internal/protocol"
	"github.com/roach88/nbsync/internal/transport"
)

func framesOf(t *testing.T, msgs ...any) string {
	t.Helper()
	var buf bytes.Buffer
	conn := transport.NewConn(&buf)
	for i := 0; i < len(msgs); i += 2 {
		require.NoError(t, conn.SendNotification(context.Background(), msgs[i].(string), msgs[i+1]))
	}
	return buf.String()
}

func TestInspectStdin(t *testing.T) {
	input := framesOf(t,
		protocol.MethodTextDidOpen, &protocol.DidOpenTextDocumentParams{
			TextDocument: protocol.TextDocumentItem{URI: nb + "#r", LanguageID: "r", Version: 1, Text: "x"},
		},
		protocol.MethodTextDidClose, &protocol.DidCloseTextDocumentParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: nb + "#r"},
		},
	)

	cmd := NewInspectCommand(&RootOptions{Format: "text"})
	cmd.SetIn(strings.NewReader(input))
	stdout, _, err := execute(cmd)
	require.NoError(t, err)
	assert.Equal(t,
		"[1] textDocument/didOpen file:///work/a.ipynb#r v1\n"+
			"[2] textDocument/didClose file:///work/a.ipynb#r\n",
		stdout)
}

func TestInspectFileJSON(t *testing.T) {
	dir := t.TempDir()
	scenario := writeFile(t, dir, "open_close.yaml", openCloseScenario)
	framesPath := filepath.Join(dir, "frames.bin")
	_, _, err := execute(NewRunCommand(&RootOptions{Format: "text"}), "--out", framesPath, scenario)
	require.NoError(t, err)

	stdout, _, err := execute(NewInspectCommand(&RootOptions{Format: "json"}), framesPath)
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   []FrameSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 3)
	assert.Equal(t, protocol.MethodNotebookDidOpen, resp.Data[0].Method)
	assert.Equal(t, nb, resp.Data[0].Document)
	assert.Equal(t, 3, resp.Data[2].Index)
}

func TestInspectEmpty(t *testing.T) {
	cmd := NewInspectCommand(&RootOptions{Format: "text"})
	cmd.SetIn(strings.NewReader(""))
	stdout, _, err := execute(cmd)
	require.NoError(t, err)
	assert.Equal(t, "No frames found.\n", stdout)
}

func TestInspectBadFrames(t *testing.T) {
	good := framesOf(t, protocol.MethodNotebookDidSave, &protocol.DidSaveNotebookDocumentParams{
		NotebookDocument: protocol.NotebookDocumentIdentifier{URI: nb},
	})

	unknown := `{"jsonrpc":"2.0","method":"x/y","params":{}}`

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"truncated body", good + "Content-Length: 100\r\n\r\n{}", "read body"},
		{"unknown method", good + fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(unknown), unknown), "frame 2"},
		{"no length", "Content-Type: x\r\n\r\n", "Content-Length"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewInspectCommand(&RootOptions{Format: "text"})
			cmd.SetIn(strings.NewReader(tt.input))
			stdout, _, err := execute(cmd)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
			assert.Contains(t, stdout, "Error [E010]")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestInspectMissingFile(t *testing.T) {
	_, _, err := execute(NewInspectCommand(&RootOptions{Format: "text"}), filepath.Join(t.TempDir(), "nope.bin"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

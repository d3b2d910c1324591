package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/nbsync/internal/editor"
	"github.com/roach88/nbsync/internal/protocol"
	"github.com/roach88/nbsync/internal/testutil"
)

const testNotebook = "file:///work/a.ipynb"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixture wires a workspace, a registry and a recording sender.
type fixture struct {
	t      *testing.T
	ws     *editor.Workspace
	reg    *Registry
	sent   *testutil.RecordingSender
	errors []error
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{t: t, ws: editor.NewWorkspace(), sent: testutil.NewRecordingSender()}
	opts = append([]Option{
		WithLogger(discardLogger()),
		WithErrorHandler(func(err error) { f.errors = append(f.errors, err) }),
	}, opts...)
	f.reg = NewRegistry(f.ws, f.sent, opts...)
	t.Cleanup(f.reg.Dispose)
	return f
}

// flush delivers everything queued and returns what was sent.
func (f *fixture) flush() []testutil.Notification {
	f.t.Helper()
	before := f.sent.Len()
	f.reg.Outbox().Drain(context.Background())
	return f.sent.Notifications()[before:]
}

func (f *fixture) register(reg protocol.Registration) Provider {
	f.t.Helper()
	p, err := f.reg.Register(reg)
	require.NoError(f.t, err)
	return p
}

func pythonNotebooks(id string) protocol.Registration {
	return protocol.Registration{
		ID: id,
		NotebookSelector: []protocol.NotebookSelector{{
			Notebook: &protocol.NotebookDocumentFilter{NotebookType: "jupyter-notebook"},
			Cells:    []protocol.CellSelector{{Language: "python"}},
		}},
	}
}

func cellURI(id string) string {
	return editor.CellURI(testNotebook, id)
}

func asDidOpen(t *testing.T, n testutil.Notification) *protocol.DidOpenNotebookDocumentParams {
	t.Helper()
	require.Equal(t, protocol.MethodNotebookDidOpen, n.Method)
	p, ok := n.Params.(*protocol.DidOpenNotebookDocumentParams)
	require.True(t, ok, "params type %T", n.Params)
	return p
}

func asDidChange(t *testing.T, n testutil.Notification) *protocol.DidChangeNotebookDocumentParams {
	t.Helper()
	require.Equal(t, protocol.MethodNotebookDidChange, n.Method)
	p, ok := n.Params.(*protocol.DidChangeNotebookDocumentParams)
	require.True(t, ok, "params type %T", n.Params)
	return p
}

func asDidClose(t *testing.T, n testutil.Notification) *protocol.DidCloseNotebookDocumentParams {
	t.Helper()
	require.Equal(t, protocol.MethodNotebookDidClose, n.Method)
	p, ok := n.Params.(*protocol.DidCloseNotebookDocumentParams)
	require.True(t, ok, "params type %T", n.Params)
	return p
}

func cellDocs(cells []protocol.NotebookCell) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = c.Document
	}
	return out
}

func itemURIs(items []protocol.TextDocumentItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.URI
	}
	return out
}

func identifierURIs(ids []protocol.TextDocumentIdentifier) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.URI
	}
	return out
}

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nbsync/internal/editor"
	"github.com/roach88/nbsync/internal/protocol"
)

func pythonCells(id string) protocol.Registration {
	reg := pythonNotebooks(id)
	reg.Mode = protocol.SyncModeCellContent
	return reg
}

func TestCellContentSync_OpensMatchingCells(t *testing.T) {
	f := newFixture(t)
	p := f.register(pythonCells("r1"))
	openAB(t, f)

	sent := f.flush()
	require.Len(t, sent, 1)
	assert.Equal(t, protocol.MethodTextDidOpen, sent[0].Method)
	params := sent[0].Params.(*protocol.DidOpenTextDocumentParams)
	assert.Equal(t, cellURI("B"), params.TextDocument.URI)
	assert.Equal(t, "python", params.TextDocument.LanguageID)
	assert.Equal(t, "print(2)", params.TextDocument.Text)

	assert.Equal(t, []string{cellURI("B")}, p.(*CellContentSync).OpenDocuments())
}

func TestCellContentSync_EditsAndLanguageChange(t *testing.T) {
	f := newFixture(t)
	f.register(pythonCells("r1"))
	openAB(t, f)
	f.flush()

	require.NoError(t, f.ws.EditText(cellURI("A"), editor.TextChange{Text: "x"}))
	require.NoError(t, f.ws.EditText(cellURI("B"), editor.TextChange{Text: "y"}))
	sent := f.flush()
	require.Len(t, sent, 1)
	assert.Equal(t, protocol.MethodTextDidChange, sent[0].Method)
	assert.JSONEq(t,
		`{"textDocument":{"uri":"vscode-notebook-cell:///work/a.ipynb#B","version":2},"contentChanges":[{"text":"y"}]}`,
		sent[0].JSON())

	// A becomes python: opened. B becomes javascript: closed.
	require.NoError(t, f.ws.SetCellLanguage(cellURI("A"), "python"))
	require.NoError(t, f.ws.SetCellLanguage(cellURI("B"), "javascript"))
	sent = f.flush()
	assert.Equal(t, []string{protocol.MethodTextDidOpen, protocol.MethodTextDidClose}, methods(sent))
	assert.Equal(t, cellURI("A"), sent[0].Params.(*protocol.DidOpenTextDocumentParams).TextDocument.URI)
	assert.Equal(t, cellURI("B"), sent[1].Params.(*protocol.DidCloseTextDocumentParams).TextDocument.URI)
}

func TestCellContentSync_LanguageChangeWithinSelectorReopens(t *testing.T) {
	f := newFixture(t)
	reg := protocol.Registration{
		ID:   "r1",
		Mode: protocol.SyncModeCellContent,
		NotebookSelector: []protocol.NotebookSelector{{
			Notebook: &protocol.NotebookDocumentFilter{NotebookType: "jupyter-notebook"},
		}},
	}
	f.register(reg)
	openAB(t, f)
	f.flush()

	require.NoError(t, f.ws.SetCellLanguage(cellURI("B"), "r"))
	sent := f.flush()
	require.Equal(t, []string{protocol.MethodTextDidClose, protocol.MethodTextDidOpen}, methods(sent))
	assert.Equal(t, "r", sent[1].Params.(*protocol.DidOpenTextDocumentParams).TextDocument.LanguageID)
}

func TestCellContentSync_StructureChanges(t *testing.T) {
	f := newFixture(t)
	p := f.register(pythonCells("r1")).(*CellContentSync)
	openAB(t, f)
	f.flush()

	_, err := f.ws.InsertCells(testNotebook, 0, editor.CellData{ID: "C", LanguageID: "python"})
	require.NoError(t, err)
	sent := f.flush()
	require.Equal(t, []string{protocol.MethodTextDidOpen}, methods(sent))

	require.NoError(t, f.ws.DeleteCells(testNotebook, 0, 1))
	sent = f.flush()
	require.Equal(t, []string{protocol.MethodTextDidClose}, methods(sent))
	assert.Equal(t, cellURI("C"), sent[0].Params.(*protocol.DidCloseTextDocumentParams).TextDocument.URI)

	// Moves never reopen anything.
	require.NoError(t, f.ws.MoveCell(testNotebook, 0, 1))
	assert.Empty(t, f.flush())
	assert.Equal(t, []string{cellURI("B")}, p.OpenDocuments())
}

func TestCellContentSync_CloseNotebookClosesDocuments(t *testing.T) {
	f := newFixture(t)
	p := f.register(pythonCells("r1")).(*CellContentSync)
	openAB(t, f)
	f.flush()

	require.NoError(t, f.ws.CloseNotebook(testNotebook))
	sent := f.flush()
	require.Equal(t, []string{protocol.MethodTextDidClose}, methods(sent))
	assert.Empty(t, p.OpenDocuments())
}

func TestCellContentSync_NotebookFilterMismatch(t *testing.T) {
	f := newFixture(t)
	f.register(pythonCells("r1"))
	_, err := f.ws.OpenNotebook(testNotebook, "other", nil, editor.CellData{LanguageID: "python"})
	require.NoError(t, err)
	assert.Empty(t, f.flush())
}

func TestCellContentSync_DisposeSendsNoCloses(t *testing.T) {
	f := newFixture(t)
	p := f.register(pythonCells("r1")).(*CellContentSync)
	openAB(t, f)
	f.flush()

	require.NoError(t, f.reg.Unregister("r1"))
	assert.Empty(t, p.OpenDocuments())
	require.NoError(t, f.ws.CloseNotebook(testNotebook))
	assert.Empty(t, f.flush())
}

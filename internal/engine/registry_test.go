package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nbsync/internal/editor"
	"github.com/roach88/nbsync/internal/protocol"
)

func TestRegistry_RegisterPicksProviderByMode(t *testing.T) {
	f := newFixture(t)

	nb := f.register(pythonNotebooks("nb"))
	cc := f.register(pythonCells("cc"))

	assert.IsType(t, &NotebookSync{}, nb)
	assert.Equal(t, protocol.SyncModeNotebook, nb.Mode())
	assert.IsType(t, &CellContentSync{}, cc)
	assert.Equal(t, protocol.SyncModeCellContent, cc.Mode())

	ids := []string{}
	for _, p := range f.reg.Providers() {
		ids = append(ids, p.Registration().ID)
	}
	assert.Equal(t, []string{"nb", "cc"}, ids)
}

func TestRegistry_DefaultsModeToNotebook(t *testing.T) {
	f := newFixture(t)
	p := f.register(protocol.Registration{ID: "r1"})
	assert.Equal(t, protocol.SyncModeNotebook, p.Registration().Mode)
}

func TestRegistry_GeneratesMissingID(t *testing.T) {
	f := newFixture(t, WithIDGenerator(NewFixedGenerator("gen-1")))
	p := f.register(protocol.Registration{})
	assert.Equal(t, "gen-1", p.Registration().ID)

	_, ok := f.reg.Provider("gen-1")
	assert.True(t, ok)
}

func TestRegistry_RejectsDuplicateID(t *testing.T) {
	f := newFixture(t)
	f.register(pythonNotebooks("r1"))

	_, err := f.reg.Register(pythonCells("r1"))
	assert.ErrorIs(t, err, ErrDuplicateRegistration)
}

func TestRegistry_RejectsInvalidMode(t *testing.T) {
	f := newFixture(t)
	_, err := f.reg.Register(protocol.Registration{ID: "r1", Mode: "everything"})
	assert.ErrorIs(t, err, ErrInvalidMode)
	assert.Empty(t, f.reg.Providers())
}

func TestRegistry_UnregisterUnknown(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.reg.Unregister("nope"), ErrUnknownRegistration)
}

func TestRegistry_OverlappingRegistrationsAreIndependent(t *testing.T) {
	f := newFixture(t)
	f.register(pythonNotebooks("nb"))
	f.register(pythonCells("cc"))
	f.register(protocol.Registration{
		ID:               "all",
		NotebookSelector: []protocol.NotebookSelector{{Notebook: &protocol.NotebookDocumentFilter{NotebookType: "jupyter-notebook"}}},
	})

	openAB(t, f)
	sent := f.flush()
	assert.Equal(t, []string{
		protocol.MethodNotebookDidOpen,
		protocol.MethodTextDidOpen,
		protocol.MethodNotebookDidOpen,
	}, methods(sent))
	assert.Equal(t, []string{cellURI("B")}, cellDocs(asDidOpen(t, sent[0]).NotebookDocument.Cells))
	assert.Equal(t, []string{cellURI("A"), cellURI("B")}, cellDocs(asDidOpen(t, sent[2]).NotebookDocument.Cells))

	// Unregistering one leaves the others syncing.
	require.NoError(t, f.reg.Unregister("nb"))
	require.NoError(t, f.ws.EditText(cellURI("B"), editor.TextChange{Text: "z"}))
	assert.Equal(t, []string{
		protocol.MethodTextDidChange,
		protocol.MethodNotebookDidChange,
	}, methods(f.flush()))
}

func TestRegistry_Handles(t *testing.T) {
	f := newFixture(t)
	f.register(pythonNotebooks("r1"))
	openAB(t, f)

	nb, ok := f.ws.Notebook(testNotebook)
	require.True(t, ok)
	assert.False(t, f.reg.Handles(nb.CellAt(0)))
	assert.True(t, f.reg.Handles(nb.CellAt(1)))

	removed := nb.CellAt(1)
	require.NoError(t, f.ws.DeleteCells(testNotebook, 1, 1))
	assert.False(t, f.reg.Handles(removed))
}

func TestRegistry_DisposeStopsEverything(t *testing.T) {
	f := newFixture(t)
	f.register(pythonNotebooks("r1"))
	openAB(t, f)
	f.flush()

	f.reg.Dispose()
	f.reg.Dispose()
	assert.Empty(t, f.reg.Providers())

	_, err := f.reg.Register(pythonNotebooks("r2"))
	assert.ErrorIs(t, err, ErrDisposed)

	require.NoError(t, f.ws.CloseNotebook(testNotebook))
	assert.Empty(t, f.flush())
}

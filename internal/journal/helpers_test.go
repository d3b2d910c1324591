package journal

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/nbsync/internal/editor"
)

func newWorkspaceWithNotebook(t *testing.T) *editor.Workspace {
	t.Helper()
	ws := editor.NewWorkspace()
	_, err := ws.OpenNotebook("file:///a.ipynb", "jupyter-notebook", nil,
		editor.CellData{ID: "A", LanguageID: "python", Text: "1"})
	require.NoError(t, err)
	return ws
}

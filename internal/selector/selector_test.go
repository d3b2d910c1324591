package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nbsync/internal/editor"
	"github.com/roach88/nbsync/internal/protocol"
)

func openNotebook(t *testing.T, uri, notebookType string, cells ...editor.CellData) *editor.Notebook {
	t.Helper()
	ws := editor.NewWorkspace()
	nb, err := ws.OpenNotebook(uri, notebookType, nil, cells...)
	require.NoError(t, err)
	return nb
}

func TestMatchesNotebook(t *testing.T) {
	nb := openNotebook(t, "file:///home/u/proj/analysis.ipynb", "jupyter-notebook")

	tests := []struct {
		name   string
		filter *protocol.NotebookDocumentFilter
		want   bool
	}{
		{"nil filter", nil, true},
		{"empty filter", &protocol.NotebookDocumentFilter{}, true},
		{"type match", &protocol.NotebookDocumentFilter{NotebookType: "jupyter-notebook"}, true},
		{"type mismatch", &protocol.NotebookDocumentFilter{NotebookType: "interactive"}, false},
		{"scheme match", &protocol.NotebookDocumentFilter{Scheme: "file"}, true},
		{"scheme mismatch", &protocol.NotebookDocumentFilter{Scheme: "untitled"}, false},
		{"doublestar pattern", &protocol.NotebookDocumentFilter{Pattern: "**/*.ipynb"}, true},
		{"absolute pattern", &protocol.NotebookDocumentFilter{Pattern: "/home/*/proj/*.ipynb"}, true},
		{"relative pattern", &protocol.NotebookDocumentFilter{Pattern: "home/u/**"}, true},
		{"pattern mismatch", &protocol.NotebookDocumentFilter{Pattern: "**/*.py"}, false},
		{"brace pattern", &protocol.NotebookDocumentFilter{Pattern: "**/*.{ipynb,py}"}, true},
		{"all constraints", &protocol.NotebookDocumentFilter{NotebookType: "jupyter-notebook", Scheme: "file", Pattern: "**/analysis.ipynb"}, true},
		{"one constraint fails", &protocol.NotebookDocumentFilter{NotebookType: "jupyter-notebook", Scheme: "untitled", Pattern: "**"}, false},
		{"invalid pattern fails closed", &protocol.NotebookDocumentFilter{Pattern: "[unclosed"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchesNotebook(tt.filter, nb)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, MatchesNotebook(tt.filter, nb), "must be deterministic")
		})
	}
}

func TestMatchesNotebookOpaqueURI(t *testing.T) {
	nb := openNotebook(t, "untitled:Untitled-1.ipynb", "jupyter-notebook")
	assert.True(t, MatchesNotebook(&protocol.NotebookDocumentFilter{Scheme: "untitled", Pattern: "*.ipynb"}, nb))
}

func TestMatchesCell(t *testing.T) {
	nb := openNotebook(t, "file:///a.ipynb", "jupyter-notebook",
		editor.CellData{ID: "py", LanguageID: "python"})
	cell := nb.CellAt(0)

	assert.True(t, MatchesCell(nil, cell))
	assert.True(t, MatchesCell([]protocol.CellSelector{{Language: "sql"}, {Language: "python"}}, cell))
	assert.False(t, MatchesCell([]protocol.CellSelector{{Language: "javascript"}}, cell))
}

func TestSelectCellsFirstMatchingAlternativeWins(t *testing.T) {
	nb := openNotebook(t, "file:///a.ipynb", "jupyter-notebook",
		editor.CellData{ID: "A", LanguageID: "javascript"},
		editor.CellData{ID: "B", LanguageID: "python"},
	)
	reg := protocol.Registration{NotebookSelector: []protocol.NotebookSelector{
		{Notebook: &protocol.NotebookDocumentFilter{NotebookType: "interactive"}},
		{Notebook: &protocol.NotebookDocumentFilter{NotebookType: "jupyter-notebook"}, Cells: []protocol.CellSelector{{Language: "python"}}},
		{Cells: []protocol.CellSelector{{Language: "javascript"}}},
	}}

	cells, ok := SelectCells(reg, nb, nb.Cells())
	require.True(t, ok)
	require.Len(t, cells, 1)
	assert.Same(t, nb.CellAt(1), cells[0])
}

func TestSelectCellsCellOnlyAlternative(t *testing.T) {
	nb := openNotebook(t, "file:///a.ipynb", "anything",
		editor.CellData{ID: "A", LanguageID: "python"},
		editor.CellData{ID: "B", LanguageID: "markdown"},
	)
	reg := protocol.Registration{NotebookSelector: []protocol.NotebookSelector{
		{Cells: []protocol.CellSelector{{Language: "python"}}},
	}}

	cells, ok := SelectCells(reg, nb, nb.Cells())
	require.True(t, ok)
	assert.Equal(t, []*editor.Cell{nb.CellAt(0)}, cells)
}

func TestSelectCellsNotebookOnlyReturnsAll(t *testing.T) {
	nb := openNotebook(t, "file:///a.ipynb", "jupyter-notebook",
		editor.CellData{ID: "A"}, editor.CellData{ID: "B"})
	reg := protocol.Registration{NotebookSelector: []protocol.NotebookSelector{
		{Notebook: &protocol.NotebookDocumentFilter{NotebookType: "jupyter-notebook"}},
	}}

	cells, ok := SelectCells(reg, nb, nb.Cells())
	require.True(t, ok)
	assert.Len(t, cells, 2)
}

func TestSelectCellsNoMatch(t *testing.T) {
	nb := openNotebook(t, "file:///a.ipynb", "jupyter-notebook",
		editor.CellData{ID: "A", LanguageID: "javascript"})

	noNotebook := protocol.Registration{NotebookSelector: []protocol.NotebookSelector{
		{Notebook: &protocol.NotebookDocumentFilter{NotebookType: "other"}},
	}}
	_, ok := SelectCells(noNotebook, nb, nb.Cells())
	assert.False(t, ok)

	// The notebook matches but none of its cells do.
	zeroCells := protocol.Registration{NotebookSelector: []protocol.NotebookSelector{
		{Notebook: &protocol.NotebookDocumentFilter{NotebookType: "jupyter-notebook"}, Cells: []protocol.CellSelector{{Language: "python"}}},
	}}
	cells, ok := SelectCells(zeroCells, nb, nb.Cells())
	assert.False(t, ok)
	assert.Nil(t, cells)

	_, ok = SelectCells(protocol.Registration{}, nb, nb.Cells())
	assert.False(t, ok)
}

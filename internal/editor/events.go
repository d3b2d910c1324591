package editor

import "github.com/roach88/nbsync/internal/protocol"

// Event is a sealed interface over the editor's notebook and text document
// events. Listeners switch on the concrete type.
type Event interface {
	editorEvent()
}

// NotebookOpened fires once per notebook, before any of its cell documents open.
type NotebookOpened struct {
	Notebook *Notebook
}

// NotebookClosed fires before the notebook's cell documents close.
type NotebookClosed struct {
	Notebook *Notebook
}

// NotebookSaved fires when the notebook is written to disk.
type NotebookSaved struct {
	Notebook *Notebook
}

// NotebookChanged describes structure, metadata or cell data changes.
type NotebookChanged struct {
	Notebook        *Notebook
	MetadataChanged bool
	ContentChanges  []ContentChange
	CellChanges     []CellChange
}

// ContentChange replaces cells [Start, End) of the pre-change array.
type ContentChange struct {
	Start        int
	End          int
	AddedCells   []*Cell
	RemovedCells []*Cell
}

// CellChange reports which parts of one cell changed.
type CellChange struct {
	Cell             *Cell
	Metadata         bool
	ExecutionSummary bool
}

// TextDocumentOpened fires when a cell's text buffer becomes available.
type TextDocumentOpened struct {
	Document *TextDocument
}

// TextDocumentChanged carries edits applied to a cell's text buffer.
type TextDocumentChanged struct {
	Document *TextDocument
	Changes  []TextChange
}

// TextChange is one edit. A nil Range replaces the full text.
type TextChange struct {
	Range       *protocol.Range
	RangeLength *uint32
	Text        string
}

// TextDocumentClosed fires when a cell's text buffer goes away, or when
// the cell's language changes (followed by a TextDocumentOpened).
type TextDocumentClosed struct {
	Document *TextDocument
}

func (NotebookOpened) editorEvent()      {}
func (NotebookClosed) editorEvent()      {}
func (NotebookSaved) editorEvent()       {}
func (NotebookChanged) editorEvent()     {}
func (TextDocumentOpened) editorEvent()  {}
func (TextDocumentChanged) editorEvent() {}
func (TextDocumentClosed) editorEvent()  {}

// Listener receives editor events in order.
type Listener func(Event)

// Unsubscribe detaches a listener. Calling it more than once is harmless.
type Unsubscribe func()

// Source is anything that emits editor events.
type Source interface {
	Subscribe(Listener) Unsubscribe
}

// Snapshot gives read access to the currently open notebooks.
type Snapshot interface {
	// Notebooks returns open notebooks in the order they were opened.
	Notebooks() []*Notebook
	// FindCell locates the open notebook and cell owning a text document.
	FindCell(documentURI string) (*Notebook, *Cell, bool)
}

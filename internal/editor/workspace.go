package editor

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"github.com/roach88/nbsync/internal/protocol"
)

// Sentinel errors returned by Workspace mutations.
var (
	ErrNotebookOpen     = errors.New("editor: notebook already open")
	ErrNotebookNotFound = errors.New("editor: notebook not open")
	ErrCellNotFound     = errors.New("editor: cell not found")
	ErrOutOfRange       = errors.New("editor: index out of range")
)

// CellScheme is the URI scheme of cell text documents.
const CellScheme = "vscode-notebook-cell"

// CellData describes a cell to create. An empty ID is replaced by a
// per-notebook counter.
type CellData struct {
	ID               string
	Kind             protocol.CellKind
	LanguageID       string
	Text             string
	Metadata         map[string]any
	ExecutionSummary *ExecutionSummary
}

// Workspace is an in-memory editor. Every mutation updates the model first
// and then fires events synchronously, in the order an editor host would.
//
// Subscribe is safe from any goroutine. Mutations are not: drive them from
// one goroutine, or through engine.Loop.Do.
type Workspace struct {
	mu        sync.Mutex
	listeners map[int]Listener
	order     []int
	nextID    int

	notebooks []*Notebook
	byURI     map[string]*Notebook
	cellSeq   map[string]int
}

// NewWorkspace returns an empty workspace.
func NewWorkspace() *Workspace {
	return &Workspace{
		listeners: make(map[int]Listener),
		byURI:     make(map[string]*Notebook),
		cellSeq:   make(map[string]int),
	}
}

// Subscribe registers l for all future events.
func (w *Workspace) Subscribe(l Listener) Unsubscribe {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextID
	w.nextID++
	w.listeners[id] = l
	w.order = append(w.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			delete(w.listeners, id)
			for i, v := range w.order {
				if v == id {
					w.order = append(w.order[:i], w.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (w *Workspace) fire(events ...Event) {
	w.mu.Lock()
	ls := make([]Listener, 0, len(w.order))
	for _, id := range w.order {
		ls = append(ls, w.listeners[id])
	}
	w.mu.Unlock()

	for _, ev := range events {
		for _, l := range ls {
			l(ev)
		}
	}
}

// Notebooks returns open notebooks in open order.
func (w *Workspace) Notebooks() []*Notebook {
	out := make([]*Notebook, len(w.notebooks))
	copy(out, w.notebooks)
	return out
}

// Notebook returns the open notebook with uri.
func (w *Workspace) Notebook(uri string) (*Notebook, bool) {
	nb, ok := w.byURI[uri]
	return nb, ok
}

// FindCell locates the open notebook and cell owning documentURI.
func (w *Workspace) FindCell(documentURI string) (*Notebook, *Cell, bool) {
	for _, nb := range w.notebooks {
		if i := nb.IndexOf(documentURI); i >= 0 {
			return nb, nb.cells[i], true
		}
	}
	return nil, nil, false
}

// CellURI builds the text document URI of a cell: the notebook URI with
// the cell scheme and the cell ID as fragment.
func CellURI(notebookURI, cellID string) string {
	u, err := url.Parse(notebookURI)
	if err != nil {
		return CellScheme + ":" + notebookURI + "#" + cellID
	}
	u.Scheme = CellScheme
	u.Fragment = cellID
	return u.String()
}

func (w *Workspace) newCell(nb *Notebook, data CellData) *Cell {
	id := data.ID
	if id == "" {
		w.cellSeq[nb.URI]++
		id = "c" + strconv.Itoa(w.cellSeq[nb.URI])
	}
	kind := data.Kind
	if kind == 0 {
		kind = protocol.CellKindCode
	}
	return &Cell{
		Kind: kind,
		Document: &TextDocument{
			URI:        CellURI(nb.URI, id),
			LanguageID: data.LanguageID,
			Version:    1,
			Text:       data.Text,
		},
		Metadata:         data.Metadata,
		ExecutionSummary: data.ExecutionSummary,
		notebook:         nb,
	}
}

func (w *Workspace) notebook(uri string) (*Notebook, error) {
	nb, ok := w.byURI[uri]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotebookNotFound, uri)
	}
	return nb, nil
}

func (w *Workspace) cell(documentURI string) (*Notebook, *Cell, error) {
	nb, c, ok := w.FindCell(documentURI)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrCellNotFound, documentURI)
	}
	return nb, c, nil
}

// OpenNotebook opens a notebook, firing NotebookOpened and then one
// TextDocumentOpened per cell.
func (w *Workspace) OpenNotebook(uri, notebookType string, md map[string]any, cells ...CellData) (*Notebook, error) {
	if _, ok := w.byURI[uri]; ok {
		return nil, fmt.Errorf("%w: %s", ErrNotebookOpen, uri)
	}

	nb := &Notebook{URI: uri, NotebookType: notebookType, Version: 1, Metadata: md}
	for _, data := range cells {
		nb.cells = append(nb.cells, w.newCell(nb, data))
	}
	w.notebooks = append(w.notebooks, nb)
	w.byURI[uri] = nb

	events := []Event{NotebookOpened{Notebook: nb}}
	for _, c := range nb.cells {
		events = append(events, TextDocumentOpened{Document: c.Document})
	}
	w.fire(events...)
	return nb, nil
}

// CloseNotebook closes a notebook, firing NotebookClosed and then one
// TextDocumentClosed per cell.
func (w *Workspace) CloseNotebook(uri string) error {
	nb, err := w.notebook(uri)
	if err != nil {
		return err
	}
	delete(w.byURI, uri)
	delete(w.cellSeq, uri)
	for i, open := range w.notebooks {
		if open == nb {
			w.notebooks = append(w.notebooks[:i], w.notebooks[i+1:]...)
			break
		}
	}
	nb.closed = true

	events := []Event{NotebookClosed{Notebook: nb}}
	for _, c := range nb.cells {
		events = append(events, TextDocumentClosed{Document: c.Document})
	}
	w.fire(events...)
	return nil
}

// SaveNotebook fires NotebookSaved.
func (w *Workspace) SaveNotebook(uri string) error {
	nb, err := w.notebook(uri)
	if err != nil {
		return err
	}
	w.fire(NotebookSaved{Notebook: nb})
	return nil
}

// InsertCells inserts cells before index, firing NotebookChanged and then
// TextDocumentOpened for each new cell.
func (w *Workspace) InsertCells(uri string, index int, cells ...CellData) ([]*Cell, error) {
	nb, err := w.notebook(uri)
	if err != nil {
		return nil, err
	}
	if index < 0 || index > len(nb.cells) {
		return nil, fmt.Errorf("%w: insert at %d of %d", ErrOutOfRange, index, len(nb.cells))
	}

	added := make([]*Cell, len(cells))
	for i, data := range cells {
		added[i] = w.newCell(nb, data)
	}
	next := make([]*Cell, 0, len(nb.cells)+len(added))
	next = append(next, nb.cells[:index]...)
	next = append(next, added...)
	next = append(next, nb.cells[index:]...)
	nb.cells = next
	nb.Version++

	events := []Event{NotebookChanged{
		Notebook:       nb,
		ContentChanges: []ContentChange{{Start: index, End: index, AddedCells: added}},
	}}
	for _, c := range added {
		events = append(events, TextDocumentOpened{Document: c.Document})
	}
	w.fire(events...)
	return added, nil
}

// DeleteCells removes count cells starting at start, firing NotebookChanged
// and then TextDocumentClosed for each removed cell.
func (w *Workspace) DeleteCells(uri string, start, count int) error {
	nb, err := w.notebook(uri)
	if err != nil {
		return err
	}
	if start < 0 || count < 0 || start+count > len(nb.cells) {
		return fmt.Errorf("%w: delete [%d,%d) of %d", ErrOutOfRange, start, start+count, len(nb.cells))
	}

	removed := make([]*Cell, count)
	copy(removed, nb.cells[start:start+count])
	next := make([]*Cell, 0, len(nb.cells)-count)
	next = append(next, nb.cells[:start]...)
	next = append(next, nb.cells[start+count:]...)
	nb.cells = next
	nb.Version++
	for _, c := range removed {
		c.notebook = nil
	}

	events := []Event{NotebookChanged{
		Notebook:       nb,
		ContentChanges: []ContentChange{{Start: start, End: start + count, RemovedCells: removed}},
	}}
	for _, c := range removed {
		events = append(events, TextDocumentClosed{Document: c.Document})
	}
	w.fire(events...)
	return nil
}

// MoveCell moves the cell at from so that it ends up at index to. The
// cell's text document stays open.
func (w *Workspace) MoveCell(uri string, from, to int) error {
	nb, err := w.notebook(uri)
	if err != nil {
		return err
	}
	if from < 0 || from >= len(nb.cells) || to < 0 || to >= len(nb.cells) {
		return fmt.Errorf("%w: move %d to %d of %d", ErrOutOfRange, from, to, len(nb.cells))
	}
	if from == to {
		return nil
	}

	c := nb.cells[from]
	next := make([]*Cell, 0, len(nb.cells))
	next = append(next, nb.cells[:from]...)
	next = append(next, nb.cells[from+1:]...)
	next = append(next[:to], append([]*Cell{c}, next[to:]...)...)
	nb.cells = next
	nb.Version++

	w.fire(NotebookChanged{
		Notebook: nb,
		ContentChanges: []ContentChange{
			{Start: from, End: from + 1, RemovedCells: []*Cell{c}},
			{Start: to, End: to, AddedCells: []*Cell{c}},
		},
	})
	return nil
}

// SetCellLanguage changes a cell's language. Editors model this as closing
// the text document and reopening it under the new language.
func (w *Workspace) SetCellLanguage(documentURI, languageID string) error {
	_, c, err := w.cell(documentURI)
	if err != nil {
		return err
	}
	if c.Document.LanguageID == languageID {
		return nil
	}
	c.Document.LanguageID = languageID
	c.Document.Version++

	w.fire(
		TextDocumentClosed{Document: c.Document},
		TextDocumentOpened{Document: c.Document},
	)
	return nil
}

// EditText applies changes to a cell's text and fires TextDocumentChanged.
func (w *Workspace) EditText(documentURI string, changes ...TextChange) error {
	_, c, err := w.cell(documentURI)
	if err != nil {
		return err
	}
	text := c.Document.Text
	for _, ch := range changes {
		text, err = applyTextChange(text, ch)
		if err != nil {
			return fmt.Errorf("edit %s: %w", documentURI, err)
		}
	}
	c.Document.Text = text
	c.Document.Version++

	w.fire(TextDocumentChanged{Document: c.Document, Changes: changes})
	return nil
}

// SetNotebookMetadata replaces the notebook metadata.
func (w *Workspace) SetNotebookMetadata(uri string, md map[string]any) error {
	nb, err := w.notebook(uri)
	if err != nil {
		return err
	}
	nb.Metadata = md
	nb.Version++

	w.fire(NotebookChanged{Notebook: nb, MetadataChanged: true})
	return nil
}

// SetCellMetadata replaces one cell's metadata.
func (w *Workspace) SetCellMetadata(documentURI string, md map[string]any) error {
	nb, c, err := w.cell(documentURI)
	if err != nil {
		return err
	}
	c.Metadata = md
	nb.Version++

	w.fire(NotebookChanged{
		Notebook:    nb,
		CellChanges: []CellChange{{Cell: c, Metadata: true}},
	})
	return nil
}

// SetExecutionSummary replaces one cell's execution summary.
func (w *Workspace) SetExecutionSummary(documentURI string, summary *ExecutionSummary) error {
	nb, c, err := w.cell(documentURI)
	if err != nil {
		return err
	}
	c.ExecutionSummary = summary
	nb.Version++

	w.fire(NotebookChanged{
		Notebook:    nb,
		CellChanges: []CellChange{{Cell: c, ExecutionSummary: true}},
	})
	return nil
}

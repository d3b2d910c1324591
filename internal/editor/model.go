package editor

import (
	"time"

	"github.com/roach88/nbsync/internal/protocol"
)

// TextDocument is a cell's text buffer. Its URI is the cell's identity on
// the wire; Version increases on every edit.
type TextDocument struct {
	URI        string
	LanguageID string
	Version    int32
	Text       string
}

// Timing is the wall-clock span of a cell execution.
type Timing struct {
	Start time.Time
	End   time.Time
}

// ExecutionSummary describes a cell's last execution.
type ExecutionSummary struct {
	ExecutionOrder uint32
	Success        *bool
	Timing         *Timing
}

// Cell is one cell of a notebook.
type Cell struct {
	Kind             protocol.CellKind
	Document         *TextDocument
	Metadata         map[string]any
	ExecutionSummary *ExecutionSummary

	notebook *Notebook
}

// Notebook returns the notebook that currently owns the cell, or nil after
// the cell was removed.
func (c *Cell) Notebook() *Notebook {
	return c.notebook
}

// LanguageID is shorthand for the cell document's language.
func (c *Cell) LanguageID() string {
	if c.Document == nil {
		return ""
	}
	return c.Document.LanguageID
}

// Notebook is a live notebook document.
type Notebook struct {
	URI          string
	NotebookType string
	Version      int32
	Metadata     map[string]any

	cells  []*Cell
	closed bool
}

// Cells returns a snapshot of the notebook's cells in order.
func (n *Notebook) Cells() []*Cell {
	out := make([]*Cell, len(n.cells))
	copy(out, n.cells)
	return out
}

// CellCount returns the number of cells.
func (n *Notebook) CellCount() int {
	return len(n.cells)
}

// CellAt returns the cell at index i, or nil when out of range.
func (n *Notebook) CellAt(i int) *Cell {
	if i < 0 || i >= len(n.cells) {
		return nil
	}
	return n.cells[i]
}

// IndexOf returns the position of the cell whose document has uri, or -1.
func (n *Notebook) IndexOf(uri string) int {
	for i, c := range n.cells {
		if c.Document != nil && c.Document.URI == uri {
			return i
		}
	}
	return -1
}

// IsClosed reports whether the notebook has been closed in the editor.
func (n *Notebook) IsClosed() bool {
	return n.closed
}

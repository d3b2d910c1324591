package protocol

import "github.com/roach88/nbsync/internal/metadata"

// =============================================================================
// TEXT DOCUMENTS
// =============================================================================

// Position is a zero-based line/character offset in a text document.
type Position struct {
	Line      uint32 `json:"line"`
	Character uint32 `json:"character"`
}

// Range is a half-open span in a text document.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// TextDocumentIdentifier identifies a text document by URI.
type TextDocumentIdentifier struct {
	URI string `json:"uri"`
}

// VersionedTextDocumentIdentifier identifies a specific version of a text document.
type VersionedTextDocumentIdentifier struct {
	URI     string `json:"uri"`
	Version int32  `json:"version"`
}

// TextDocumentItem carries a text document's full content on open.
type TextDocumentItem struct {
	URI        string `json:"uri"`
	LanguageID string `json:"languageId"`
	Version    int32  `json:"version"`
	Text       string `json:"text"`
}

// TextDocumentContentChangeEvent is one incremental or full-content edit.
// A nil Range means Text replaces the whole document.
type TextDocumentContentChangeEvent struct {
	Range       *Range  `json:"range,omitempty"`
	RangeLength *uint32 `json:"rangeLength,omitempty"`
	Text        string  `json:"text"`
}

// =============================================================================
// NOTEBOOK DOCUMENTS
// =============================================================================

// CellKind distinguishes markup cells from code cells.
type CellKind int

const (
	CellKindMarkup CellKind = 1
	CellKindCode   CellKind = 2
)

func (k CellKind) String() string {
	switch k {
	case CellKindMarkup:
		return "markup"
	case CellKindCode:
		return "code"
	default:
		return "unknown"
	}
}

// ExecutionSummary is the wire form of a cell's last execution.
type ExecutionSummary struct {
	ExecutionOrder uint32 `json:"executionOrder"`
	Success        *bool  `json:"success,omitempty"`
}

// Equal compares order and outcome.
func (s *ExecutionSummary) Equal(o *ExecutionSummary) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.ExecutionOrder != o.ExecutionOrder {
		return false
	}
	if s.Success == nil || o.Success == nil {
		return s.Success == o.Success
	}
	return *s.Success == *o.Success
}

// NotebookCell is the wire shape of one cell. Document is the URI of the
// cell's text document; the text itself travels as a TextDocumentItem.
type NotebookCell struct {
	Kind             CellKind          `json:"kind"`
	Document         string            `json:"document"`
	Metadata         metadata.Object   `json:"metadata,omitempty"`
	ExecutionSummary *ExecutionSummary `json:"executionSummary,omitempty"`
}

// NotebookDocument is the wire shape of a notebook on open.
type NotebookDocument struct {
	URI          string          `json:"uri"`
	NotebookType string          `json:"notebookType"`
	Version      int32           `json:"version"`
	Metadata     metadata.Object `json:"metadata,omitempty"`
	Cells        []NotebookCell  `json:"cells"`
}

// NotebookDocumentIdentifier identifies a notebook by URI.
type NotebookDocumentIdentifier struct {
	URI string `json:"uri"`
}

// VersionedNotebookDocumentIdentifier identifies a specific notebook version.
type VersionedNotebookDocumentIdentifier struct {
	Version int32  `json:"version"`
	URI     string `json:"uri"`
}

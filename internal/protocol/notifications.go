package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/nbsync/internal/metadata"
)

// Notification method names.
const (
	MethodNotebookDidOpen   = "notebookDocument/didOpen"
	MethodNotebookDidChange = "notebookDocument/didChange"
	MethodNotebookDidSave   = "notebookDocument/didSave"
	MethodNotebookDidClose  = "notebookDocument/didClose"

	MethodTextDidOpen   = "textDocument/didOpen"
	MethodTextDidChange = "textDocument/didChange"
	MethodTextDidClose  = "textDocument/didClose"
)

// DidOpenNotebookDocumentParams is sent when a notebook starts being mirrored.
type DidOpenNotebookDocumentParams struct {
	NotebookDocument  NotebookDocument   `json:"notebookDocument"`
	CellTextDocuments []TextDocumentItem `json:"cellTextDocuments"`
}

// DidChangeNotebookDocumentParams carries an incremental notebook update.
type DidChangeNotebookDocumentParams struct {
	NotebookDocument VersionedNotebookDocumentIdentifier `json:"notebookDocument"`
	Change           NotebookDocumentChangeEvent         `json:"change"`
}

// DidSaveNotebookDocumentParams is sent when a mirrored notebook is saved.
type DidSaveNotebookDocumentParams struct {
	NotebookDocument NotebookDocumentIdentifier `json:"notebookDocument"`
}

// DidCloseNotebookDocumentParams is sent when a notebook stops being mirrored.
type DidCloseNotebookDocumentParams struct {
	NotebookDocument  NotebookDocumentIdentifier `json:"notebookDocument"`
	CellTextDocuments []TextDocumentIdentifier   `json:"cellTextDocuments"`
}

// NotebookDocumentChangeEvent is the delta in a didChange. Absent fields
// mean "unchanged"; Metadata is a pointer so an emptied metadata map is
// still transmitted.
type NotebookDocumentChangeEvent struct {
	Metadata *metadata.Object    `json:"metadata,omitempty"`
	Cells    *NotebookCellChanges `json:"cells,omitempty"`
}

// NotebookCellChanges groups the cell-level parts of a delta.
type NotebookCellChanges struct {
	Structure   *CellStructureChange `json:"structure,omitempty"`
	Data        []NotebookCell       `json:"data,omitempty"`
	TextContent []CellTextContent    `json:"textContent,omitempty"`
}

// CellStructureChange is a splice of the mirrored cell array plus the text
// documents it opens and closes.
type CellStructureChange struct {
	Array    NotebookCellArrayChange  `json:"array"`
	DidOpen  []TextDocumentItem       `json:"didOpen,omitempty"`
	DidClose []TextDocumentIdentifier `json:"didClose,omitempty"`
}

// NotebookCellArrayChange deletes DeleteCount cells at Start and inserts Cells.
type NotebookCellArrayChange struct {
	Start       uint32         `json:"start"`
	DeleteCount uint32         `json:"deleteCount"`
	Cells       []NotebookCell `json:"cells,omitempty"`
}

// CellTextContent forwards edits of one mirrored cell's text.
type CellTextContent struct {
	Document VersionedTextDocumentIdentifier  `json:"document"`
	Changes  []TextDocumentContentChangeEvent `json:"changes"`
}

// DidOpenTextDocumentParams is sent for a cell mirrored as a plain text document.
type DidOpenTextDocumentParams struct {
	TextDocument TextDocumentItem `json:"textDocument"`
}

// DidChangeTextDocumentParams forwards edits of a plain text document.
type DidChangeTextDocumentParams struct {
	TextDocument   VersionedTextDocumentIdentifier  `json:"textDocument"`
	ContentChanges []TextDocumentContentChangeEvent `json:"contentChanges"`
}

// DidCloseTextDocumentParams is sent when a plain text document stops being mirrored.
type DidCloseTextDocumentParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

// DocumentURI returns the notebook or text document a params value is about,
// and its version when the params carry one. Used for logging and journaling.
func DocumentURI(params any) (uri string, version int32) {
	switch p := params.(type) {
	case *DidOpenNotebookDocumentParams:
		return p.NotebookDocument.URI, p.NotebookDocument.Version
	case *DidChangeNotebookDocumentParams:
		return p.NotebookDocument.URI, p.NotebookDocument.Version
	case *DidSaveNotebookDocumentParams:
		return p.NotebookDocument.URI, 0
	case *DidCloseNotebookDocumentParams:
		return p.NotebookDocument.URI, 0
	case *DidOpenTextDocumentParams:
		return p.TextDocument.URI, p.TextDocument.Version
	case *DidChangeTextDocumentParams:
		return p.TextDocument.URI, p.TextDocument.Version
	case *DidCloseTextDocumentParams:
		return p.TextDocument.URI, 0
	default:
		return "", 0
	}
}

// DecodeParams decodes the params of a received notification into the
// typed value for its method.
func DecodeParams(method string, raw json.RawMessage) (any, error) {
	var params any
	switch method {
	case MethodNotebookDidOpen:
		params = &DidOpenNotebookDocumentParams{}
	case MethodNotebookDidChange:
		params = &DidChangeNotebookDocumentParams{}
	case MethodNotebookDidSave:
		params = &DidSaveNotebookDocumentParams{}
	case MethodNotebookDidClose:
		params = &DidCloseNotebookDocumentParams{}
	case MethodTextDidOpen:
		params = &DidOpenTextDocumentParams{}
	case MethodTextDidChange:
		params = &DidChangeTextDocumentParams{}
	case MethodTextDidClose:
		params = &DidCloseTextDocumentParams{}
	default:
		return nil, fmt.Errorf("unknown method %q", method)
	}
	if err := json.Unmarshal(raw, params); err != nil {
		return nil, fmt.Errorf("decode %s: %w", method, err)
	}
	return params, nil
}

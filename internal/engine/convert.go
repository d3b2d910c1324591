package engine

import (
	"fmt"

	"github.com/roach88/nbsync/internal/editor"
	"github.com/roach88/nbsync/internal/metadata"
	"github.com/roach88/nbsync/internal/protocol"
)

// toExecutionSummary converts the fields the wire carries. Timing is not
// transmitted, so a timing-only change never produces a cell data change.
func toExecutionSummary(s *editor.ExecutionSummary) *protocol.ExecutionSummary {
	if s == nil {
		return nil
	}
	out := &protocol.ExecutionSummary{ExecutionOrder: s.ExecutionOrder}
	if s.Success != nil {
		ok := *s.Success
		out.Success = &ok
	}
	return out
}

// toSyncedCell deep-copies a live cell into its wire form.
func toSyncedCell(c *editor.Cell) (SyncedCell, error) {
	md, err := metadata.FromMap(c.Metadata)
	if err != nil {
		return SyncedCell{}, fmt.Errorf("cell %s metadata: %w", c.Document.URI, err)
	}
	return SyncedCell{
		Cell: protocol.NotebookCell{
			Kind:             c.Kind,
			Document:         c.Document.URI,
			Metadata:         md,
			ExecutionSummary: toExecutionSummary(c.ExecutionSummary),
		},
		LanguageID: c.LanguageID(),
	}, nil
}

func toSyncedCells(cells []*editor.Cell) ([]SyncedCell, error) {
	out := make([]SyncedCell, len(cells))
	for i, c := range cells {
		sc, err := toSyncedCell(c)
		if err != nil {
			return nil, err
		}
		out[i] = sc
	}
	return out, nil
}

func wireCells(cells []SyncedCell) []protocol.NotebookCell {
	if len(cells) == 0 {
		return nil
	}
	out := make([]protocol.NotebookCell, len(cells))
	for i, c := range cells {
		out[i] = c.Cell
	}
	return out
}

func toTextItem(doc *editor.TextDocument) protocol.TextDocumentItem {
	return protocol.TextDocumentItem{
		URI:        doc.URI,
		LanguageID: doc.LanguageID,
		Version:    doc.Version,
		Text:       doc.Text,
	}
}

func toContentChanges(changes []editor.TextChange) []protocol.TextDocumentContentChangeEvent {
	out := make([]protocol.TextDocumentContentChangeEvent, len(changes))
	for i, ch := range changes {
		out[i] = protocol.TextDocumentContentChangeEvent{
			Range:       ch.Range,
			RangeLength: ch.RangeLength,
			Text:        ch.Text,
		}
	}
	return out
}

// structuralEqual compares the parts of a cell that decide its place in
// the mirrored array. Metadata and text are deliberately left out.
func structuralEqual(a, b SyncedCell) bool {
	return a.Cell.Kind == b.Cell.Kind &&
		a.Cell.Document == b.Cell.Document &&
		a.LanguageID == b.LanguageID &&
		a.Cell.ExecutionSummary.Equal(b.Cell.ExecutionSummary)
}

// dataEqual compares the parts sent in a cell data change.
func dataEqual(a, b SyncedCell) bool {
	return metadata.ObjectsEqual(a.Cell.Metadata, b.Cell.Metadata) &&
		a.Cell.ExecutionSummary.Equal(b.Cell.ExecutionSummary)
}

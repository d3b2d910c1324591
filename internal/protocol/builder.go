package protocol

import "github.com/roach88/nbsync/internal/metadata"

// ChangeBuilder assembles a NotebookDocumentChangeEvent, allocating only
// the parts that are actually set so the marshaled delta stays minimal.
type ChangeBuilder struct {
	event NotebookDocumentChangeEvent
}

// NewChangeBuilder returns an empty builder.
func NewChangeBuilder() *ChangeBuilder {
	return &ChangeBuilder{}
}

func (b *ChangeBuilder) cells() *NotebookCellChanges {
	if b.event.Cells == nil {
		b.event.Cells = &NotebookCellChanges{}
	}
	return b.event.Cells
}

// SetMetadata records new notebook metadata. A nil object is sent as {}.
func (b *ChangeBuilder) SetMetadata(md metadata.Object) *ChangeBuilder {
	if md == nil {
		md = metadata.Object{}
	}
	b.event.Metadata = &md
	return b
}

// SetStructure records a splice of the cell array.
func (b *ChangeBuilder) SetStructure(s CellStructureChange) *ChangeBuilder {
	b.cells().Structure = &s
	return b
}

// AddData records updated metadata or execution summary for one cell.
func (b *ChangeBuilder) AddData(cell NotebookCell) *ChangeBuilder {
	c := b.cells()
	c.Data = append(c.Data, cell)
	return b
}

// AddTextContent records edits to one cell's text.
func (b *ChangeBuilder) AddTextContent(tc CellTextContent) *ChangeBuilder {
	c := b.cells()
	c.TextContent = append(c.TextContent, tc)
	return b
}

// Empty reports whether nothing has been set.
func (b *ChangeBuilder) Empty() bool {
	return b.event.Metadata == nil && b.event.Cells == nil
}

// Build returns the assembled event.
func (b *ChangeBuilder) Build() NotebookDocumentChangeEvent {
	return b.event
}

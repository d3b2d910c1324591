package engine

import (
	"context"

	"github.com/roach88/nbsync/internal/differ"
	"github.com/roach88/nbsync/internal/editor"
	"github.com/roach88/nbsync/internal/metadata"
	"github.com/roach88/nbsync/internal/protocol"
	"github.com/roach88/nbsync/internal/selector"
)

// NotebookSync mirrors whole notebooks: notebook metadata plus the cells
// the registration selects, kept current with incremental didChange
// notifications.
//
// Per notebook it is either unsynced (no record) or synced (record in the
// store). Every handler reads the store, decides, and writes the store
// before queueing the notification, so the next event always sees the
// state the remote side is about to have.
type NotebookSync struct {
	providerBase

	store *Store

	// observed holds notebooks whose NotebookOpened has been seen. Cell
	// document events for other notebooks are ignored.
	observed map[string]struct{}
}

func newNotebookSync(base providerBase) *NotebookSync {
	return &NotebookSync{
		providerBase: base,
		store:        NewStore(),
		observed:     make(map[string]struct{}),
	}
}

// Mode returns protocol.SyncModeNotebook.
func (s *NotebookSync) Mode() protocol.SyncMode {
	return protocol.SyncModeNotebook
}

// Record returns the sync record of a notebook, if it is synced.
func (s *NotebookSync) Record(uri string) (*SyncRecord, bool) {
	r := s.store.Get(uri)
	return r, r != nil
}

// SyncedNotebooks returns the URIs of synced notebooks, sorted.
func (s *NotebookSync) SyncedNotebooks() []string {
	return s.store.URIs()
}

// start subscribes and replays notebooks that are already open.
func (s *NotebookSync) start() {
	s.unsub = s.ws.Subscribe(s.handle)
	for _, nb := range s.ws.Notebooks() {
		s.notebookOpened(nb)
	}
}

// Dispose unsubscribes and clears all records without sending closes.
func (s *NotebookSync) Dispose() {
	if !s.detach() {
		return
	}
	s.logger.Info("notebook sync disposed", "synced", s.store.Len())
	s.store.Clear()
	clear(s.observed)
}

func (s *NotebookSync) handle(ev editor.Event) {
	if s.disposed {
		return
	}
	switch e := ev.(type) {
	case editor.NotebookOpened:
		s.notebookOpened(e.Notebook)
	case editor.NotebookChanged:
		s.notebookChanged(e)
	case editor.NotebookSaved:
		s.notebookSaved(e.Notebook)
	case editor.NotebookClosed:
		s.notebookClosed(e.Notebook)
	case editor.TextDocumentOpened:
		s.cellDocumentToggled(e.Document)
	case editor.TextDocumentClosed:
		s.cellDocumentToggled(e.Document)
	case editor.TextDocumentChanged:
		s.cellTextChanged(e)
	}
}

func (s *NotebookSync) notebookOpened(nb *editor.Notebook) {
	s.observed[nb.URI] = struct{}{}
	if s.store.Get(nb.URI) != nil {
		return
	}
	s.open(nb)
}

func (s *NotebookSync) notebookChanged(e editor.NotebookChanged) {
	nb := e.Notebook
	if _, ok := s.observed[nb.URI]; !ok {
		return
	}
	rec := s.store.Get(nb.URI)
	if rec == nil {
		// A structural change can make a notebook start matching.
		s.open(nb)
		return
	}
	s.update(nb, rec, e.MetadataChanged)
}

func (s *NotebookSync) notebookSaved(nb *editor.Notebook) {
	if !s.reg.Save || s.store.Get(nb.URI) == nil {
		return
	}
	s.emit.didSave(&protocol.DidSaveNotebookDocumentParams{
		NotebookDocument: protocol.NotebookDocumentIdentifier{URI: nb.URI},
	})
}

func (s *NotebookSync) notebookClosed(nb *editor.Notebook) {
	delete(s.observed, nb.URI)
	rec := s.store.Get(nb.URI)
	if rec == nil {
		return
	}
	s.close(rec)
}

// cellDocumentToggled re-evaluates the owning notebook when one of its cell
// documents opens or closes. A language change arrives this way.
func (s *NotebookSync) cellDocumentToggled(doc *editor.TextDocument) {
	nb, _, ok := s.ws.FindCell(doc.URI)
	if !ok {
		return
	}
	if _, seen := s.observed[nb.URI]; !seen {
		return
	}
	rec := s.store.Get(nb.URI)
	if rec == nil {
		s.open(nb)
		return
	}
	s.update(nb, rec, false)
}

func (s *NotebookSync) cellTextChanged(e editor.TextDocumentChanged) {
	nb, _, ok := s.ws.FindCell(e.Document.URI)
	if !ok {
		return
	}
	rec := s.store.Get(nb.URI)
	if rec == nil || !rec.IsOpen(e.Document.URI) {
		return
	}
	change := protocol.NewChangeBuilder().AddTextContent(protocol.CellTextContent{
		Document: protocol.VersionedTextDocumentIdentifier{URI: e.Document.URI, Version: e.Document.Version},
		Changes:  toContentChanges(e.Changes),
	})
	s.emit.didChange(&protocol.DidChangeNotebookDocumentParams{
		NotebookDocument: protocol.VersionedNotebookDocumentIdentifier{URI: nb.URI, Version: nb.Version},
		Change:           change.Build(),
	})
}

// open sends didOpen if the notebook currently has matching cells.
func (s *NotebookSync) open(nb *editor.Notebook) {
	cells, ok := selector.SelectCells(s.reg, nb, nb.Cells())
	if !ok {
		s.logger.Debug("notebook not of interest", "notebook", nb.URI)
		return
	}
	synced, err := toSyncedCells(cells)
	if err != nil {
		s.serializationError(nb.URI, protocol.MethodNotebookDidOpen, err)
		return
	}
	md, err := metadata.FromMap(nb.Metadata)
	if err != nil {
		s.serializationError(nb.URI, protocol.MethodNotebookDidOpen, err)
		return
	}

	items := make([]protocol.TextDocumentItem, len(cells))
	for i, c := range cells {
		items[i] = toTextItem(c.Document)
	}

	s.store.Put(nb.URI, newSyncRecord(nb.URI, md, synced))
	s.logger.Debug("notebook synced", "notebook", nb.URI, "cells", len(synced))
	s.emit.didOpen(&protocol.DidOpenNotebookDocumentParams{
		NotebookDocument: protocol.NotebookDocument{
			URI:          nb.URI,
			NotebookType: nb.NotebookType,
			Version:      nb.Version,
			Metadata:     md,
			Cells:        wireCells(synced),
		},
		CellTextDocuments: items,
	})
}

// close removes the record and then sends didClose for its cells.
func (s *NotebookSync) close(rec *SyncRecord) {
	s.store.Remove(rec.URI)

	docs := make([]protocol.TextDocumentIdentifier, len(rec.Cells))
	for i, c := range rec.Cells {
		docs[i] = protocol.TextDocumentIdentifier{URI: c.URI()}
	}
	s.logger.Debug("notebook unsynced", "notebook", rec.URI)
	s.emit.didClose(&protocol.DidCloseNotebookDocumentParams{
		NotebookDocument:  protocol.NotebookDocumentIdentifier{URI: rec.URI},
		CellTextDocuments: docs,
	})
}

// update brings a synced notebook's mirror up to date: close on lost
// interest, otherwise one didChange carrying any metadata, cell data and
// structural deltas.
func (s *NotebookSync) update(nb *editor.Notebook, rec *SyncRecord, metadataChanged bool) {
	cells, ok := selector.SelectCells(s.reg, nb, nb.Cells())
	if !ok {
		s.close(rec)
		return
	}
	current, err := toSyncedCells(cells)
	if err != nil {
		s.serializationError(nb.URI, protocol.MethodNotebookDidChange, err)
		return
	}

	change := protocol.NewChangeBuilder()

	nextMetadata := rec.Metadata
	if metadataChanged {
		md, err := metadata.FromMap(nb.Metadata)
		if err != nil {
			s.serializationError(nb.URI, protocol.MethodNotebookDidChange, err)
			return
		}
		if !metadata.ObjectsEqual(md, rec.Metadata) {
			change.SetMetadata(md)
			nextMetadata = md
		}
	}

	// Cell data changes are applied to a copy of the old snapshot first, so
	// the structural diff only sees real structure changes.
	old := make([]SyncedCell, len(rec.Cells))
	copy(old, rec.Cells)
	byURI := make(map[string]SyncedCell, len(current))
	for _, c := range current {
		byURI[c.URI()] = c
	}
	for i, oc := range old {
		nc, ok := byURI[oc.URI()]
		if !ok || nc.Cell.Kind != oc.Cell.Kind || nc.LanguageID != oc.LanguageID {
			continue
		}
		if !dataEqual(oc, nc) {
			change.AddData(nc.Cell)
			old[i] = nc
		}
	}

	splice := differ.Diff(old, current, structuralEqual)
	if splice != nil {
		change.SetStructure(s.structureChange(cells, old, splice))
		recordCellDelta(context.Background(), s.reg.ID, splice.DeleteCount+len(splice.Inserted))
	}

	if change.Empty() {
		return
	}

	s.store.Put(nb.URI, newSyncRecord(nb.URI, nextMetadata, splice.Apply(old)))
	s.emit.didChange(&protocol.DidChangeNotebookDocumentParams{
		NotebookDocument: protocol.VersionedNotebookDocumentIdentifier{URI: nb.URI, Version: nb.Version},
		Change:           change.Build(),
	})
}

// structureChange builds the splice payload. A cell present on both sides
// of the splice with the same language only moved; its text document stays
// open and is left out of didOpen/didClose. A language change reopens the
// document so the remote side sees the new languageId.
func (s *NotebookSync) structureChange(live []*editor.Cell, old []SyncedCell, splice *differ.Splice[SyncedCell]) protocol.CellStructureChange {
	deleted := splice.Deleted(old)

	deletedLang := make(map[string]string, len(deleted))
	for _, c := range deleted {
		deletedLang[c.URI()] = c.LanguageID
	}
	insertedLang := make(map[string]string, len(splice.Inserted))
	for _, c := range splice.Inserted {
		insertedLang[c.URI()] = c.LanguageID
	}
	moved := func(uri string, lang string, other map[string]string) bool {
		l, ok := other[uri]
		return ok && l == lang
	}
	docs := make(map[string]*editor.TextDocument, len(live))
	for _, c := range live {
		docs[c.Document.URI] = c.Document
	}

	out := protocol.CellStructureChange{
		Array: protocol.NotebookCellArrayChange{
			Start:       uint32(splice.Start),
			DeleteCount: uint32(splice.DeleteCount),
			Cells:       wireCells(splice.Inserted),
		},
	}
	for _, c := range deleted {
		if moved(c.URI(), c.LanguageID, insertedLang) {
			continue
		}
		out.DidClose = append(out.DidClose, protocol.TextDocumentIdentifier{URI: c.URI()})
	}
	for _, c := range splice.Inserted {
		if moved(c.URI(), c.LanguageID, deletedLang) {
			continue
		}
		out.DidOpen = append(out.DidOpen, toTextItem(docs[c.URI()]))
	}
	return out
}

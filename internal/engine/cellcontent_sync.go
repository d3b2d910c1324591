package engine

import (
	"sort"

	"github.com/roach88/nbsync/internal/editor"
	"github.com/roach88/nbsync/internal/protocol"
	"github.com/roach88/nbsync/internal/selector"
)

// CellContentSync mirrors matching cells as plain text documents with
// textDocument/didOpen, didChange and didClose. Notebook structure and
// metadata are not transmitted, and no SyncRecord is kept.
type CellContentSync struct {
	providerBase

	// open maps a notebook URI to its open cell documents, in cell order.
	open map[string][]string
	// owner maps an open cell document URI to its notebook URI.
	owner map[string]string
}

func newCellContentSync(base providerBase) *CellContentSync {
	return &CellContentSync{
		providerBase: base,
		open:         make(map[string][]string),
		owner:        make(map[string]string),
	}
}

// Mode returns protocol.SyncModeCellContent.
func (s *CellContentSync) Mode() protocol.SyncMode {
	return protocol.SyncModeCellContent
}

// OpenDocuments returns the cell document URIs currently open on the
// remote side, sorted.
func (s *CellContentSync) OpenDocuments() []string {
	out := make([]string, 0, len(s.owner))
	for uri := range s.owner {
		out = append(out, uri)
	}
	sort.Strings(out)
	return out
}

func (s *CellContentSync) start() {
	s.unsub = s.ws.Subscribe(s.handle)
	for _, nb := range s.ws.Notebooks() {
		s.reconcile(nb)
	}
}

// Dispose unsubscribes and forgets open documents without closing them.
func (s *CellContentSync) Dispose() {
	if !s.detach() {
		return
	}
	s.logger.Info("cell content sync disposed", "open", len(s.owner))
	clear(s.open)
	clear(s.owner)
}

func (s *CellContentSync) handle(ev editor.Event) {
	if s.disposed {
		return
	}
	switch e := ev.(type) {
	case editor.NotebookOpened:
		s.reconcile(e.Notebook)
	case editor.NotebookChanged:
		s.reconcile(e.Notebook)
	case editor.NotebookClosed:
		s.closeAll(e.Notebook.URI)
	case editor.TextDocumentOpened:
		if nb, _, ok := s.ws.FindCell(e.Document.URI); ok {
			s.reconcile(nb)
		}
	case editor.TextDocumentClosed:
		s.documentClosed(e.Document)
	case editor.TextDocumentChanged:
		if _, ok := s.owner[e.Document.URI]; !ok {
			return
		}
		s.emit.textDidChange(&protocol.DidChangeTextDocumentParams{
			TextDocument:   protocol.VersionedTextDocumentIdentifier{URI: e.Document.URI, Version: e.Document.Version},
			ContentChanges: toContentChanges(e.Changes),
		})
	}
}

// documentClosed closes a mirrored document whose buffer went away. When
// the cell still exists (a language change), it is reopened if it still
// matches, so the remote side sees the new language.
func (s *CellContentSync) documentClosed(doc *editor.TextDocument) {
	nbURI, ok := s.owner[doc.URI]
	if ok {
		s.closeDocument(nbURI, doc.URI)
	}
	if nb, _, found := s.ws.FindCell(doc.URI); found {
		s.reconcile(nb)
	}
}

// reconcile opens newly matching cells and closes cells that stopped
// matching or left the notebook.
func (s *CellContentSync) reconcile(nb *editor.Notebook) {
	cells, _ := selector.SelectCells(s.reg, nb, nb.Cells())

	want := make(map[string]struct{}, len(cells))
	for _, c := range cells {
		want[c.Document.URI] = struct{}{}
	}
	for _, uri := range append([]string(nil), s.open[nb.URI]...) {
		if _, keep := want[uri]; !keep {
			s.closeDocument(nb.URI, uri)
		}
	}

	var next []string
	for _, c := range cells {
		uri := c.Document.URI
		if _, isOpen := s.owner[uri]; !isOpen {
			s.owner[uri] = nb.URI
			s.emit.textDidOpen(&protocol.DidOpenTextDocumentParams{TextDocument: toTextItem(c.Document)})
		}
		next = append(next, uri)
	}
	if len(next) == 0 {
		delete(s.open, nb.URI)
		return
	}
	s.open[nb.URI] = next
}

func (s *CellContentSync) closeAll(nbURI string) {
	for _, uri := range append([]string(nil), s.open[nbURI]...) {
		s.closeDocument(nbURI, uri)
	}
	delete(s.open, nbURI)
}

func (s *CellContentSync) closeDocument(nbURI, uri string) {
	delete(s.owner, uri)
	docs := s.open[nbURI]
	for i, u := range docs {
		if u == uri {
			s.open[nbURI] = append(docs[:i:i], docs[i+1:]...)
			break
		}
	}
	s.emit.textDidClose(&protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	})
}

package engine

import (
	"sort"

	"github.com/roach88/nbsync/internal/metadata"
	"github.com/roach88/nbsync/internal/protocol"
)

// SyncedCell is one cell as last transmitted. LanguageID is kept next to the
// wire cell because it takes part in structural comparison but travels in
// the text document item, not the cell.
type SyncedCell struct {
	Cell       protocol.NotebookCell
	LanguageID string
}

// URI returns the cell's text document URI.
func (c SyncedCell) URI() string {
	return c.Cell.Document
}

// SyncRecord is what the remote side has been told about one notebook.
// A record exists iff the remote side believes the notebook is open.
// Records are never modified after Put; a change produces a new record.
type SyncRecord struct {
	URI      string
	Metadata metadata.Object
	Cells    []SyncedCell

	open map[string]struct{}
}

func newSyncRecord(uri string, md metadata.Object, cells []SyncedCell) *SyncRecord {
	open := make(map[string]struct{}, len(cells))
	for _, c := range cells {
		open[c.URI()] = struct{}{}
	}
	return &SyncRecord{URI: uri, Metadata: md, Cells: cells, open: open}
}

// IsOpen reports whether the cell text document is open on the remote side.
func (r *SyncRecord) IsOpen(documentURI string) bool {
	_, ok := r.open[documentURI]
	return ok
}

// CellURIs returns the mirrored cell document URIs in order.
func (r *SyncRecord) CellURIs() []string {
	out := make([]string, len(r.Cells))
	for i, c := range r.Cells {
		out[i] = c.URI()
	}
	return out
}

// Store holds the sync records of one registration, keyed by notebook URI.
// It is owned by a single provider and accessed only from the goroutine
// delivering editor events, so it has no lock.
type Store struct {
	records map[string]*SyncRecord
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{records: make(map[string]*SyncRecord)}
}

// Get returns the record for a notebook, or nil.
func (s *Store) Get(uri string) *SyncRecord {
	return s.records[uri]
}

// Put replaces the record for a notebook.
func (s *Store) Put(uri string, r *SyncRecord) {
	s.records[uri] = r
}

// Remove deletes the record for a notebook. Removing a missing record is a no-op.
func (s *Store) Remove(uri string) {
	delete(s.records, uri)
}

// Len returns the number of synced notebooks.
func (s *Store) Len() int {
	return len(s.records)
}

// URIs returns the synced notebook URIs, sorted.
func (s *Store) URIs() []string {
	out := make([]string, 0, len(s.records))
	for uri := range s.records {
		out = append(out, uri)
	}
	sort.Strings(out)
	return out
}

// Clear drops every record.
func (s *Store) Clear() {
	clear(s.records)
}

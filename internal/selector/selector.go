// Package selector decides which notebooks and cells a registration is
// interested in.
//
// All functions are pure: they read the editor model and never mutate it.
// A glob pattern that does not parse never matches.
package selector

import (
	"net/url"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/roach88/nbsync/internal/editor"
	"github.com/roach88/nbsync/internal/protocol"
)

// MatchesNotebook reports whether every constraint of filter holds for nb.
// A nil or empty filter matches every notebook.
func MatchesNotebook(filter *protocol.NotebookDocumentFilter, nb *editor.Notebook) bool {
	if filter == nil || filter.IsEmpty() {
		return true
	}
	if filter.NotebookType != "" && filter.NotebookType != nb.NotebookType {
		return false
	}
	if filter.Scheme == "" && filter.Pattern == "" {
		return true
	}

	u, err := url.Parse(nb.URI)
	if err != nil {
		return false
	}
	if filter.Scheme != "" && filter.Scheme != u.Scheme {
		return false
	}
	if filter.Pattern != "" && !matchPath(filter.Pattern, notebookPath(u)) {
		return false
	}
	return true
}

// notebookPath returns the filesystem-like path of a notebook URI.
func notebookPath(u *url.URL) string {
	if u.Opaque != "" {
		return u.Opaque
	}
	return u.Path
}

// matchPath matches pattern against path. Patterns are tried both against
// the absolute path and with the leading slash removed, so "**/*.ipynb" and
// "work/*.ipynb" behave as users expect.
func matchPath(pattern, path string) bool {
	if !doublestar.ValidatePattern(pattern) {
		return false
	}
	if ok, err := doublestar.Match(pattern, path); err == nil && ok {
		return true
	}
	trimmed := strings.TrimPrefix(path, "/")
	if trimmed == path {
		return false
	}
	ok, err := doublestar.Match(pattern, trimmed)
	return err == nil && ok
}

// MatchesCell reports whether cell satisfies any of the cell selectors.
// An empty selector list matches every cell.
func MatchesCell(cells []protocol.CellSelector, cell *editor.Cell) bool {
	if len(cells) == 0 {
		return true
	}
	lang := cell.LanguageID()
	for _, cs := range cells {
		if cs.Language == lang {
			return true
		}
	}
	return false
}

// SelectCells returns the candidates the registration is interested in.
//
// Alternatives are tried in declaration order; the first one whose notebook
// part matches (or is absent) decides, and only its cell constraint is
// applied. ok is false when no alternative matches the notebook, and also
// when the deciding alternative leaves zero cells, since a notebook with no
// matching cells is not worth mirroring.
func SelectCells(reg protocol.Registration, nb *editor.Notebook, candidates []*editor.Cell) (selected []*editor.Cell, ok bool) {
	for _, alt := range reg.NotebookSelector {
		if alt.Notebook != nil && !MatchesNotebook(alt.Notebook, nb) {
			continue
		}
		for _, c := range candidates {
			if MatchesCell(alt.Cells, c) {
				selected = append(selected, c)
			}
		}
		if len(selected) == 0 {
			return nil, false
		}
		return selected, true
	}
	return nil, false
}

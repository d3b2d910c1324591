package compiler

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/roach88/nbsync/internal/protocol"
)

// Validation error codes (E200-E299)
const (
	ErrEmptyID             = "E201" // registration id is required in files
	ErrInvalidMode         = "E202" // unknown sync mode
	ErrNoSelectors         = "E203" // at least one notebook selector required
	ErrEmptySelector       = "E204" // selector with neither notebook nor cells
	ErrEmptyNotebookFilter = "E205" // notebook filter constrains nothing
	ErrInvalidPattern      = "E206" // glob pattern does not parse
	ErrEmptyLanguage       = "E207" // cell selector without language
	ErrDuplicateID         = "E208" // two registrations share an id
)

// ValidationError represents a registration validation error.
type ValidationError struct {
	Registration string `json:"registration"`
	Field        string `json:"field"`
	Message      string `json:"message"`
	Code         string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Registration != "" {
		return fmt.Sprintf("[%s] %s: %s: %s", e.Code, e.Registration, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks one registration.
// Returns all errors found (does not fail-fast).
func Validate(reg protocol.Registration) []ValidationError {
	var errs []ValidationError
	add := func(field, code, format string, args ...any) {
		errs = append(errs, ValidationError{
			Registration: reg.ID,
			Field:        field,
			Message:      fmt.Sprintf(format, args...),
			Code:         code,
		})
	}

	if strings.TrimSpace(reg.ID) == "" {
		add("id", ErrEmptyID, "id is required and must be non-empty")
	}
	if reg.Mode != "" && !reg.Mode.Valid() {
		add("mode", ErrInvalidMode, "invalid mode %q, must be %q or %q", reg.Mode, protocol.SyncModeNotebook, protocol.SyncModeCellContent)
	}
	if len(reg.NotebookSelector) == 0 {
		add("notebookSelector", ErrNoSelectors, "at least one selector is required")
	}

	for i, sel := range reg.NotebookSelector {
		field := fmt.Sprintf("notebookSelector[%d]", i)
		if sel.Notebook == nil && len(sel.Cells) == 0 {
			add(field, ErrEmptySelector, "selector needs a notebook filter or cell selectors")
		}
		if sel.Notebook != nil {
			if sel.Notebook.IsEmpty() {
				add(field+".notebook", ErrEmptyNotebookFilter, "notebook filter must set notebookType, scheme or pattern")
			}
			if p := sel.Notebook.Pattern; p != "" && !doublestar.ValidatePattern(p) {
				add(field+".notebook.pattern", ErrInvalidPattern, "invalid glob pattern %q", p)
			}
		}
		for j, cell := range sel.Cells {
			if strings.TrimSpace(cell.Language) == "" {
				add(fmt.Sprintf("%s.cells[%d].language", field, j), ErrEmptyLanguage, "language is required")
			}
		}
	}

	return errs
}

// ValidateAll validates each registration and reports duplicate IDs.
func ValidateAll(regs []protocol.Registration) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool, len(regs))
	for i, reg := range regs {
		errs = append(errs, Validate(reg)...)
		if reg.ID == "" {
			continue
		}
		if seen[reg.ID] {
			errs = append(errs, ValidationError{
				Registration: reg.ID,
				Field:        fmt.Sprintf("registrations[%d].id", i),
				Message:      fmt.Sprintf("duplicate registration id: %q", reg.ID),
				Code:         ErrDuplicateID,
			})
		}
		seen[reg.ID] = true
	}
	return errs
}

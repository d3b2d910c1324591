package protocol

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// SyncMode selects how a registration mirrors notebooks.
type SyncMode string

const (
	// SyncModeNotebook mirrors notebook metadata and matching cells as a unit.
	SyncModeNotebook SyncMode = "notebook"
	// SyncModeCellContent mirrors only matching cells, as plain text documents.
	SyncModeCellContent SyncMode = "cellContent"
)

// Valid reports whether m is a known mode.
func (m SyncMode) Valid() bool {
	return m == SyncModeNotebook || m == SyncModeCellContent
}

// Registration is one remote-declared interest subscription.
// It is immutable once registered.
type Registration struct {
	ID               string             `json:"id" yaml:"id"`
	NotebookSelector []NotebookSelector `json:"notebookSelector" yaml:"notebook_selector"`
	Save             bool               `json:"save,omitempty" yaml:"save,omitempty"`
	Mode             SyncMode           `json:"mode,omitempty" yaml:"mode,omitempty"`
}

// EffectiveMode returns Mode, defaulting to SyncModeNotebook.
func (r Registration) EffectiveMode() SyncMode {
	if r.Mode == "" {
		return SyncModeNotebook
	}
	return r.Mode
}

// NotebookSelector is one alternative of a registration's filter. Either
// part may be absent; a selector with only Cells matches any notebook.
type NotebookSelector struct {
	Notebook *NotebookDocumentFilter `json:"notebook,omitempty" yaml:"notebook,omitempty"`
	Cells    []CellSelector          `json:"cells,omitempty" yaml:"cells,omitempty"`
}

// CellSelector constrains a cell by language.
type CellSelector struct {
	Language string `json:"language" yaml:"language"`
}

// NotebookDocumentFilter is a conjunction of optional constraints.
// Empty fields are wildcards.
type NotebookDocumentFilter struct {
	NotebookType string `json:"notebookType,omitempty" yaml:"notebook_type,omitempty"`
	Scheme       string `json:"scheme,omitempty" yaml:"scheme,omitempty"`
	Pattern      string `json:"pattern,omitempty" yaml:"pattern,omitempty"`
}

// IsEmpty reports whether the filter constrains nothing.
func (f NotebookDocumentFilter) IsEmpty() bool {
	return f.NotebookType == "" && f.Scheme == "" && f.Pattern == ""
}

type notebookFilterFields NotebookDocumentFilter

// UnmarshalJSON accepts either a filter object or a bare string, which is
// shorthand for {"notebookType": s}.
func (f *NotebookDocumentFilter) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = NotebookDocumentFilter{NotebookType: s}
		return nil
	}
	var fields notebookFilterFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("notebook filter: %w", err)
	}
	*f = NotebookDocumentFilter(fields)
	return nil
}

// UnmarshalYAML accepts the same shorthand as UnmarshalJSON.
func (f *NotebookDocumentFilter) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*f = NotebookDocumentFilter{NotebookType: node.Value}
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: notebook filter must be a string or mapping", node.Line)
	}
	var fields notebookFilterFields
	if err := node.Decode(&fields); err != nil {
		return err
	}
	*f = NotebookDocumentFilter(fields)
	return nil
}

package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/nbsync/internal/compiler"
	"github.com/roach88/nbsync/internal/protocol"
)

// Scenario represents a test scenario loaded from a YAML file.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Registrations are declared inline. They are registered before the
	// first step unless a register step names them.
	Registrations []protocol.Registration `yaml:"registrations,omitempty"`

	// RegistrationsFile points at a .cue, .yaml or .json registration file,
	// relative to the scenario file. Its registrations follow the inline ones.
	RegistrationsFile string `yaml:"registrations_file,omitempty"`

	// Steps are editor mutations executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions are checked against the trace and final sync state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step actions.
const (
	ActionOpen            = "open"
	ActionClose           = "close"
	ActionSave            = "save"
	ActionInsert          = "insert"
	ActionDelete          = "delete"
	ActionMove            = "move"
	ActionSetLanguage     = "set_language"
	ActionEdit            = "edit"
	ActionSetMetadata     = "set_metadata"
	ActionSetCellMetadata = "set_cell_metadata"
	ActionSetExecution    = "set_execution"
	ActionRegister        = "register"
	ActionUnregister      = "unregister"
)

// Step is one editor mutation or registration change. Which fields are
// read depends on Action.
type Step struct {
	Action string `yaml:"action"`

	// Notebook is the notebook URI every notebook and cell action targets.
	Notebook     string `yaml:"notebook,omitempty"`
	NotebookType string `yaml:"notebook_type,omitempty"`

	// Cell is a cell ID within Notebook.
	Cell string `yaml:"cell,omitempty"`

	Cells []CellSpec `yaml:"cells,omitempty"`
	Index int        `yaml:"index,omitempty"`
	Count int        `yaml:"count,omitempty"`
	From  int        `yaml:"from,omitempty"`
	To    int        `yaml:"to,omitempty"`

	Language  string          `yaml:"language,omitempty"`
	Text      string          `yaml:"text,omitempty"`
	Range     *protocol.Range `yaml:"range,omitempty"`
	Metadata  map[string]any  `yaml:"metadata,omitempty"`
	Execution *ExecutionSpec  `yaml:"execution,omitempty"`

	// Registration is the ID used by register and unregister.
	Registration string `yaml:"registration,omitempty"`

	// ExpectError, when set, must be a substring of the step's error.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// CellSpec describes a cell created by open or insert.
type CellSpec struct {
	ID        string         `yaml:"id"`
	Kind      string         `yaml:"kind,omitempty"` // "code" (default) or "markup"
	Language  string         `yaml:"language"`
	Text      string         `yaml:"text,omitempty"`
	Metadata  map[string]any `yaml:"metadata,omitempty"`
	Execution *ExecutionSpec `yaml:"execution,omitempty"`
}

// ExecutionSpec is a cell execution summary.
type ExecutionSpec struct {
	Order   uint32 `yaml:"order"`
	Success *bool  `yaml:"success,omitempty"`
}

// Assertion types.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// Assertion validates the recorded notifications or the final sync state.
type Assertion struct {
	Type string `yaml:"type"`

	// trace_contains, trace_count
	Method   string         `yaml:"method,omitempty"`
	Document string         `yaml:"document,omitempty"`
	Params   map[string]any `yaml:"params,omitempty"`
	Count    int            `yaml:"count,omitempty"`

	// trace_order
	Methods []string `yaml:"methods,omitempty"`

	// final_state
	Registration string   `yaml:"registration,omitempty"`
	Notebook     string   `yaml:"notebook,omitempty"`
	Synced       *bool    `yaml:"synced,omitempty"`
	Cells        []string `yaml:"cells,omitempty"`
}

// LoadScenario reads a scenario, merges in its registrations_file and
// validates the result. Unknown YAML keys are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.RegistrationsFile != "" {
		regPath := scenario.RegistrationsFile
		if !filepath.IsAbs(regPath) {
			regPath = filepath.Join(filepath.Dir(path), regPath)
		}
		regs, err := compiler.LoadFile(regPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load registrations: %w", err)
		}
		scenario.Registrations = append(scenario.Registrations, regs...)
		scenario.RegistrationsFile = ""
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Registrations) == 0 && s.RegistrationsFile == "" {
		return fmt.Errorf("registrations or registrations_file is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if errs := compiler.ValidateAll(s.Registrations); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return fmt.Errorf("registrations: %s", strings.Join(msgs, "; "))
	}

	ids := make(map[string]struct{}, len(s.Registrations))
	for _, r := range s.Registrations {
		ids[r.ID] = struct{}{}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step, ids); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, st *Step, registrations map[string]struct{}) error {
	need := func(ok bool, field string) error {
		if ok {
			return nil
		}
		return fmt.Errorf("steps[%d]: %s is required for %s", index, field, st.Action)
	}

	switch st.Action {
	case "":
		return fmt.Errorf("steps[%d]: action is required", index)
	case ActionRegister, ActionUnregister:
		if err := need(st.Registration != "", "registration"); err != nil {
			return err
		}
		if _, ok := registrations[st.Registration]; !ok {
			return fmt.Errorf("steps[%d]: unknown registration %q", index, st.Registration)
		}
		return nil
	}

	if err := need(st.Notebook != "", "notebook"); err != nil {
		return err
	}

	switch st.Action {
	case ActionOpen:
		if err := need(st.NotebookType != "", "notebook_type"); err != nil {
			return err
		}
	case ActionClose, ActionSave, ActionSetMetadata:
	case ActionInsert:
		if err := need(len(st.Cells) > 0, "cells"); err != nil {
			return err
		}
	case ActionDelete:
		if err := need(st.Count > 0, "count"); err != nil {
			return err
		}
	case ActionMove:
	case ActionSetLanguage:
		if err := need(st.Cell != "", "cell"); err != nil {
			return err
		}
		if err := need(st.Language != "", "language"); err != nil {
			return err
		}
	case ActionEdit, ActionSetCellMetadata:
		if err := need(st.Cell != "", "cell"); err != nil {
			return err
		}
	case ActionSetExecution:
		if err := need(st.Cell != "", "cell"); err != nil {
			return err
		}
		if err := need(st.Execution != nil, "execution"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("steps[%d]: unknown action %q", index, st.Action)
	}

	for j, c := range st.Cells {
		switch c.Kind {
		case "", "code", "markup":
		default:
			return fmt.Errorf("steps[%d].cells[%d]: unknown kind %q", index, j, c.Kind)
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Method == "" {
			return fmt.Errorf("assertions[%d]: method is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Methods) == 0 {
			return fmt.Errorf("assertions[%d]: methods list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Method == "" {
			return fmt.Errorf("assertions[%d]: method is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Registration == "" {
			return fmt.Errorf("assertions[%d]: registration is required for final_state", index)
		}
		if a.Notebook == "" {
			return fmt.Errorf("assertions[%d]: notebook is required for final_state", index)
		}
		if a.Synced == nil && a.Cells == nil {
			return fmt.Errorf("assertions[%d]: synced or cells is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/nbsync/internal/editor"
	"github.com/roach88/nbsync/internal/engine"
	"github.com/roach88/nbsync/internal/metadata"
	"github.com/roach88/nbsync/internal/protocol"
	"github.com/roach88/nbsync/internal/testutil"
)

// Option configures Run.
type Option func(*Harness)

// WithSender forwards every notification to s after it is traced. A send
// error is reported in Result.Errors.
func WithSender(s engine.Sender) Option {
	return func(h *Harness) {
		h.forward = s
	}
}

// WithLogger sets the logger handed to the engine. Logs are discarded by
// default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		if l != nil {
			h.logger = l
		}
	}
}

// Harness runs one scenario against a fresh in-memory editor and registry.
type Harness struct {
	ws       *editor.Workspace
	registry *engine.Registry
	recorder *testutil.RecordingSender
	forward  engine.Sender
	logger   *slog.Logger
	result   *Result
	seen     int
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
//  1. Create an empty editor workspace and a registry sending to a recorder
//  2. Register every registration not deferred to a register step
//  3. Execute the steps, draining the outbox after each one
//  4. Capture the final sync state and evaluate assertions
//
// The returned error reports a scenario that could not be executed; failed
// assertions are reported in the result.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		ws:       editor.NewWorkspace(),
		recorder: testutil.NewRecordingSender(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		result:   NewResult(),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.registry = engine.NewRegistry(h.ws, engine.SenderFunc(h.send),
		engine.WithLogger(h.logger),
		engine.WithErrorHandler(func(err error) {
			h.result.AddError(err.Error())
		}),
	)
	defer h.registry.Dispose()

	registrations := make(map[string]protocol.Registration, len(scenario.Registrations))
	deferred := make(map[string]struct{})
	for _, st := range scenario.Steps {
		if st.Action == ActionRegister {
			deferred[st.Registration] = struct{}{}
		}
	}
	for _, reg := range scenario.Registrations {
		registrations[reg.ID] = reg
		if _, later := deferred[reg.ID]; later {
			continue
		}
		if _, err := h.registry.Register(reg); err != nil {
			return nil, fmt.Errorf("register %s: %w", reg.ID, err)
		}
	}
	h.flush(ctx, 0)

	for i, st := range scenario.Steps {
		err := h.execute(st, registrations)
		h.flush(ctx, i+1)

		switch {
		case err != nil && st.ExpectError == "":
			return nil, fmt.Errorf("step %d (%s): %w", i+1, st.Action, err)
		case err != nil && !strings.Contains(err.Error(), st.ExpectError):
			h.result.AddError(fmt.Sprintf("step %d (%s): error %q does not contain %q",
				i+1, st.Action, err.Error(), st.ExpectError))
		case err == nil && st.ExpectError != "":
			h.result.AddError(fmt.Sprintf("step %d (%s): expected error containing %q",
				i+1, st.Action, st.ExpectError))
		}
		h.logger.Debug("scenario step done", "step", i+1, "action", st.Action)
	}

	h.captureState()

	for _, msg := range EvaluateAssertions(h.result, scenario.Assertions) {
		h.result.AddError(msg)
	}
	return h.result, nil
}

// send records a notification and forwards it when a sender is configured.
func (h *Harness) send(ctx context.Context, method string, params any) error {
	if err := h.recorder.SendNotification(ctx, method, params); err != nil {
		return err
	}
	if h.forward == nil {
		return nil
	}
	return h.forward.SendNotification(ctx, method, params)
}

// flush delivers queued notifications and appends them to the trace.
func (h *Harness) flush(ctx context.Context, step int) {
	h.registry.Outbox().Drain(ctx)

	sent := h.recorder.Notifications()
	for _, n := range sent[h.seen:] {
		doc, _ := protocol.DocumentURI(n.Params)
		params, err := metadata.MarshalCanonical(n.Params)
		if err != nil {
			h.result.AddError(fmt.Sprintf("step %d: encode %s: %v", step, n.Method, err))
			continue
		}
		h.result.AddTrace(step, n.Method, doc, params)
	}
	h.seen = len(sent)
}

func (h *Harness) execute(st Step, registrations map[string]protocol.Registration) error {
	cellURI := editor.CellURI(st.Notebook, st.Cell)

	switch st.Action {
	case ActionOpen:
		_, err := h.ws.OpenNotebook(st.Notebook, st.NotebookType, st.Metadata, cellData(st.Cells)...)
		return err
	case ActionClose:
		return h.ws.CloseNotebook(st.Notebook)
	case ActionSave:
		return h.ws.SaveNotebook(st.Notebook)
	case ActionInsert:
		_, err := h.ws.InsertCells(st.Notebook, st.Index, cellData(st.Cells)...)
		return err
	case ActionDelete:
		return h.ws.DeleteCells(st.Notebook, st.Index, st.Count)
	case ActionMove:
		return h.ws.MoveCell(st.Notebook, st.From, st.To)
	case ActionSetLanguage:
		return h.ws.SetCellLanguage(cellURI, st.Language)
	case ActionEdit:
		return h.ws.EditText(cellURI, editor.TextChange{Range: st.Range, Text: st.Text})
	case ActionSetMetadata:
		return h.ws.SetNotebookMetadata(st.Notebook, st.Metadata)
	case ActionSetCellMetadata:
		return h.ws.SetCellMetadata(cellURI, st.Metadata)
	case ActionSetExecution:
		return h.ws.SetExecutionSummary(cellURI, st.Execution.summary())
	case ActionRegister:
		_, err := h.registry.Register(registrations[st.Registration])
		return err
	case ActionUnregister:
		return h.registry.Unregister(st.Registration)
	default:
		return fmt.Errorf("unknown action %q", st.Action)
	}
}

// captureState snapshots every live registration's mirror.
func (h *Harness) captureState() {
	for _, p := range h.registry.Providers() {
		state := RegistrationState{Mode: string(p.Mode())}
		switch p := p.(type) {
		case *engine.NotebookSync:
			state.Notebooks = make(map[string][]string)
			for _, uri := range p.SyncedNotebooks() {
				rec, _ := p.Record(uri)
				state.Notebooks[uri] = rec.CellURIs()
			}
		case *engine.CellContentSync:
			state.Documents = p.OpenDocuments()
		}
		h.result.State[p.Registration().ID] = state
	}
}

func cellData(specs []CellSpec) []editor.CellData {
	out := make([]editor.CellData, len(specs))
	for i, c := range specs {
		kind := protocol.CellKindCode
		if c.Kind == "markup" {
			kind = protocol.CellKindMarkup
		}
		out[i] = editor.CellData{
			ID:               c.ID,
			Kind:             kind,
			LanguageID:       c.Language,
			Text:             c.Text,
			Metadata:         c.Metadata,
			ExecutionSummary: c.Execution.summary(),
		}
	}
	return out
}

func (e *ExecutionSpec) summary() *editor.ExecutionSummary {
	if e == nil {
		return nil
	}
	return &editor.ExecutionSummary{ExecutionOrder: e.Order, Success: e.Success}
}

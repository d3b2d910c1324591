package harness

import "encoding/json"

// TraceEvent is one notification the engine sent while running a scenario.
type TraceEvent struct {
	Seq      int64           `json:"seq"`
	Step     int             `json:"step"`
	Method   string          `json:"method"`
	Document string          `json:"document,omitempty"`
	Params   json.RawMessage `json:"params"`
}

// RegistrationState is the mirror a registration holds after the last step.
type RegistrationState struct {
	Mode string `json:"mode"`

	// Notebooks maps each synced notebook to its mirrored cell documents.
	// Set for notebook mode.
	Notebooks map[string][]string `json:"notebooks,omitempty"`

	// Documents lists open cell documents. Set for cellContent mode.
	Documents []string `json:"documents,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true when every assertion held and no step failed unexpectedly.
	Pass bool `json:"pass"`

	// Trace holds the notifications in send order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failures and delivery errors.
	Errors []string `json:"errors,omitempty"`

	// State is keyed by registration ID.
	State map[string]RegistrationState `json:"state,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  make(map[string]RegistrationState),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a notification to the trace.
func (r *Result) AddTrace(step int, method, document string, params json.RawMessage) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:      int64(len(r.Trace) + 1),
		Step:     step,
		Method:   method,
		Document: document,
		Params:   params,
	})
}

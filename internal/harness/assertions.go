package harness

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/roach88/nbsync/internal/editor"
	"github.com/roach88/nbsync/internal/protocol"
)

// AssertionError describes a failed assertion. Its message lists the whole
// notification trace of the run.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] step %d %s %s\n", event.Seq, event.Step, event.Method, event.Document)
		}
	}

	return buf.String()
}

// assertTraceContains checks that some notification has the method, the
// document if given, and params containing assertion.Params.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	want, err := normalize(assertion.Params)
	if err != nil {
		return fmt.Errorf("trace_contains: params: %w", err)
	}

	for _, event := range trace {
		if !eventMatches(event, assertion.Method, assertion.Document) {
			continue
		}
		if assertion.Params == nil {
			return nil
		}
		var got any
		if err := json.Unmarshal(event.Params, &got); err != nil {
			return fmt.Errorf("trace_contains: decode params of event %d: %w", event.Seq, err)
		}
		if containsSubset(got, want) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("%s %s with params %v", assertion.Method, assertion.Document, assertion.Params),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the methods occur as a subsequence of the
// trace. Other notifications may appear in between, and a method may be
// listed more than once.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	next := 0
	for _, event := range trace {
		if next < len(assertion.Methods) && event.Method == assertion.Methods[next] {
			next++
		}
	}
	if next == len(assertion.Methods) {
		return nil
	}

	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: fmt.Sprintf("methods in order: %v", assertion.Methods),
		Actual:   fmt.Sprintf("matched %d of %d, missing %s", next, len(assertion.Methods), assertion.Methods[next]),
		Trace:    trace,
	}
}

// assertTraceCount checks the number of notifications with the method and,
// if given, the document.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if eventMatches(event, assertion.Method, assertion.Document) {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Method),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState checks what a registration mirrors for one notebook.
// Cells are cell IDs within the notebook, in mirrored order.
func assertFinalState(state map[string]RegistrationState, assertion Assertion) error {
	rs, ok := state[assertion.Registration]
	if !ok {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("registration %s to be active", assertion.Registration),
			Actual:   "registration not found",
		}
	}

	actual := rs.cellsOf(assertion.Notebook)
	synced := len(actual) > 0

	if assertion.Synced != nil && *assertion.Synced != synced {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s synced=%t for %s", assertion.Notebook, *assertion.Synced, assertion.Registration),
			Actual:   fmt.Sprintf("synced=%t with cells %v", synced, actual),
		}
	}

	if assertion.Cells == nil {
		return nil
	}
	expected := make([]string, len(assertion.Cells))
	for i, id := range assertion.Cells {
		expected[i] = editor.CellURI(assertion.Notebook, id)
	}
	if !slices.Equal(expected, actual) {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("cells %v", expected),
			Actual:   fmt.Sprintf("cells %v", actual),
		}
	}
	return nil
}

// cellsOf returns the mirrored cell documents of one notebook.
func (rs RegistrationState) cellsOf(notebookURI string) []string {
	if rs.Mode != string(protocol.SyncModeCellContent) {
		return rs.Notebooks[notebookURI]
	}
	prefix := editor.CellURI(notebookURI, "") + "#"
	var out []string
	for _, uri := range rs.Documents {
		if strings.HasPrefix(uri, prefix) {
			out = append(out, uri)
		}
	}
	return out
}

func eventMatches(event TraceEvent, method, document string) bool {
	if event.Method != method {
		return false
	}
	return document == "" || event.Document == document
}

// normalize round-trips v through JSON so that YAML integers and decoded
// JSON numbers compare equal.
func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// containsSubset reports whether actual contains expected. Objects match
// when every expected key matches; arrays must have equal length with each
// element matching; other values must be equal.
func containsSubset(actual, expected any) bool {
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for k, v := range exp {
			av, exists := act[k]
			if !exists || !containsSubset(av, v) {
				return false
			}
		}
		return true
	case []any:
		act, ok := actual.([]any)
		if !ok || len(act) != len(exp) {
			return false
		}
		for i := range exp {
			if !containsSubset(act[i], exp[i]) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(actual, expected)
	}
}

var assertionChecks = map[string]func(*Result, Assertion) error{
	AssertTraceContains: func(r *Result, a Assertion) error { return assertTraceContains(r.Trace, a) },
	AssertTraceOrder:    func(r *Result, a Assertion) error { return assertTraceOrder(r.Trace, a) },
	AssertTraceCount:    func(r *Result, a Assertion) error { return assertTraceCount(r.Trace, a) },
	AssertFinalState:    func(r *Result, a Assertion) error { return assertFinalState(r.State, a) },
}

// EvaluateAssertions runs every assertion and returns one message per
// failure, in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		check, ok := assertionChecks[a.Type]
		if !ok {
			failures = append(failures, fmt.Sprintf("assertion[%d]: unknown assertion type %q", i, a.Type))
			continue
		}
		if err := check(result, a); err != nil {
			failures = append(failures, err.Error())
		}
	}
	return failures
}

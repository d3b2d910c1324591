// Package harness runs notebook sync scenarios against the real engine.
//
// A scenario declares registrations, a list of editor steps and assertions
// over the notifications the engine sends. Each run uses a fresh in-memory
// editor.Workspace and engine.Registry whose sender records every
// notification, so traces are deterministic and can be compared against
// golden files.
//
// # Scenario Format
//
//	name: filtered_cells
//	description: "Only python cells are mirrored"
//	registrations:
//	  - id: r1
//	    notebook_selector:
//	      - notebook: jupyter-notebook
//	        cells: [{language: python}]
//	steps:
//	  - action: open
//	    notebook: file:///work/a.ipynb
//	    notebook_type: jupyter-notebook
//	    cells:
//	      - {id: A, language: javascript, text: "1"}
//	      - {id: B, language: python, text: "print(2)"}
//	  - action: set_language
//	    notebook: file:///work/a.ipynb
//	    cell: B
//	    language: javascript
//	assertions:
//	  - type: trace_order
//	    methods: [notebookDocument/didOpen, notebookDocument/didChange]
//	  - type: final_state
//	    registration: r1
//	    notebook: file:///work/a.ipynb
//	    cells: []
//
// registrations_file may name a .cue, .yaml or .json registration file
// instead of, or in addition to, inline registrations.
//
// # Assertion Types
//
//   - trace_contains: a notification with the method (and document) whose
//     params contain the given subset
//   - trace_order: methods occur in the given order
//   - trace_count: a method occurs exactly N times
//   - final_state: the cells a registration mirrors for a notebook
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/filtered_cells.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness

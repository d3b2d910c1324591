package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const pythonRegistrationYAML = `registrations:
  - id: py
    notebook_selector:
      - notebook: jupyter-notebook
        cells:
          - language: python
    save: true
`

const cellRegistrationsCUE = `registration: "r-cells": {
	mode: "cellContent"
	notebookSelector: [{cells: [{language: "r"}]}]
}
`

const openCloseScenario = `name: open_close
description: "A python notebook is opened, saved and closed"
registrations:
  - id: py
    save: true
    notebook_selector:
      - notebook: jupyter-notebook
        cells: [{language: python}]
steps:
  - action: open
    notebook: file:///work/a.ipynb
    notebook_type: jupyter-notebook
    cells:
      - {id: A, language: python, text: "x = 1"}
      - {id: B, kind: markup, language: markdown, text: "# notes"}
  - action: save
    notebook: file:///work/a.ipynb
  - action: close
    notebook: file:///work/a.ipynb
assertions:
  - type: trace_order
    methods:
      - notebookDocument/didOpen
      - notebookDocument/didSave
      - notebookDocument/didClose
  - type: final_state
    registration: py
    notebook: file:///work/a.ipynb
    synced: false
`

const failingScenario = `name: wrong_count
description: "Expects a notification that never comes"
registrations:
  - id: py
    notebook_selector:
      - notebook: jupyter-notebook
        cells: [{language: python}]
steps:
  - action: open
    notebook: file:///work/a.ipynb
    notebook_type: jupyter-notebook
    cells:
      - {id: A, language: javascript, text: "1"}
assertions:
  - type: trace_count
    method: notebookDocument/didOpen
    count: 1
`

// writeFile writes content under dir and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs cmd with args and returns what it wrote to stdout and stderr.
// A nil args would make cobra fall back to os.Args.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	if args == nil {
		args = []string{}
	}
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

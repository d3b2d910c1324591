package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/roach88/nbsync/internal/metadata"
)

func TestChangeBuilderEmpty(t *testing.T) {
	b := NewChangeBuilder()
	assert.True(t, b.Empty())

	data, err := json.Marshal(b.Build())
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))
}

func TestChangeBuilderMetadataOnly(t *testing.T) {
	b := NewChangeBuilder().SetMetadata(nil)
	assert.False(t, b.Empty())

	data, err := json.Marshal(b.Build())
	require.NoError(t, err)
	assert.Equal(t, `{"metadata":{}}`, string(data))
}

func TestChangeBuilderStructure(t *testing.T) {
	b := NewChangeBuilder().SetStructure(CellStructureChange{
		Array:    NotebookCellArrayChange{Start: 0, DeleteCount: 1},
		DidClose: []TextDocumentIdentifier{{URI: "cell:b"}},
	})

	data, err := json.Marshal(b.Build())
	require.NoError(t, err)
	assert.JSONEq(t, `{"cells":{"structure":{"array":{"start":0,"deleteCount":1},"didClose":[{"uri":"cell:b"}]}}}`, string(data))
}

func TestChangeBuilderData(t *testing.T) {
	ok := true
	b := NewChangeBuilder().AddData(NotebookCell{
		Kind:             CellKindCode,
		Document:         "cell:a",
		Metadata:         metadata.Object{"tag": metadata.String("x")},
		ExecutionSummary: &ExecutionSummary{ExecutionOrder: 3, Success: &ok},
	})

	data, err := json.Marshal(b.Build())
	require.NoError(t, err)
	assert.JSONEq(t, `{"cells":{"data":[{"kind":2,"document":"cell:a","metadata":{"tag":"x"},"executionSummary":{"executionOrder":3,"success":true}}]}}`, string(data))
}

func TestExecutionSummaryEqual(t *testing.T) {
	yes, no := true, false
	tests := []struct {
		name string
		a, b *ExecutionSummary
		want bool
	}{
		{"both nil", nil, nil, true},
		{"one nil", &ExecutionSummary{}, nil, false},
		{"same order", &ExecutionSummary{ExecutionOrder: 1}, &ExecutionSummary{ExecutionOrder: 1}, true},
		{"different order", &ExecutionSummary{ExecutionOrder: 1}, &ExecutionSummary{ExecutionOrder: 2}, false},
		{"success differs", &ExecutionSummary{Success: &yes}, &ExecutionSummary{Success: &no}, false},
		{"success unset on one", &ExecutionSummary{Success: &yes}, &ExecutionSummary{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
		})
	}
}

func TestRegistrationJSON(t *testing.T) {
	input := `{
		"id": "py",
		"notebookSelector": [
			{"notebook": "jupyter-notebook", "cells": [{"language": "python"}]},
			{"notebook": {"scheme": "file", "pattern": "**/*.ipynb"}},
			{"cells": [{"language": "sql"}]}
		],
		"save": true,
		"mode": "notebook"
	}`

	var reg Registration
	require.NoError(t, json.Unmarshal([]byte(input), &reg))

	require.Len(t, reg.NotebookSelector, 3)
	assert.Equal(t, "jupyter-notebook", reg.NotebookSelector[0].Notebook.NotebookType)
	assert.Equal(t, []CellSelector{{Language: "python"}}, reg.NotebookSelector[0].Cells)
	assert.Equal(t, &NotebookDocumentFilter{Scheme: "file", Pattern: "**/*.ipynb"}, reg.NotebookSelector[1].Notebook)
	assert.Nil(t, reg.NotebookSelector[2].Notebook)
	assert.True(t, reg.Save)
	assert.Equal(t, SyncModeNotebook, reg.EffectiveMode())
}

func TestRegistrationYAML(t *testing.T) {
	input := `
id: cells
mode: cellContent
notebook_selector:
  - notebook: jupyter-notebook
    cells:
      - language: python
  - notebook:
      scheme: untitled
`
	var reg Registration
	require.NoError(t, yaml.Unmarshal([]byte(input), &reg))

	assert.Equal(t, SyncModeCellContent, reg.Mode)
	require.Len(t, reg.NotebookSelector, 2)
	assert.Equal(t, "jupyter-notebook", reg.NotebookSelector[0].Notebook.NotebookType)
	assert.Equal(t, "untitled", reg.NotebookSelector[1].Notebook.Scheme)
}

func TestRegistrationYAMLRejectsSequenceFilter(t *testing.T) {
	input := `
id: bad
notebook_selector:
  - notebook: [a, b]
`
	var reg Registration
	assert.Error(t, yaml.Unmarshal([]byte(input), &reg))
}

func TestEffectiveModeDefault(t *testing.T) {
	assert.Equal(t, SyncModeNotebook, Registration{}.EffectiveMode())
	assert.True(t, SyncModeCellContent.Valid())
	assert.False(t, SyncMode("other").Valid())
}

func TestDocumentURI(t *testing.T) {
	uri, version := DocumentURI(&DidChangeNotebookDocumentParams{
		NotebookDocument: VersionedNotebookDocumentIdentifier{URI: "file:///a.ipynb", Version: 4},
	})
	assert.Equal(t, "file:///a.ipynb", uri)
	assert.Equal(t, int32(4), version)

	uri, _ = DocumentURI(&DidCloseTextDocumentParams{TextDocument: TextDocumentIdentifier{URI: "cell:1"}})
	assert.Equal(t, "cell:1", uri)

	uri, _ = DocumentURI("unknown")
	assert.Empty(t, uri)
}

func TestDecodeParams(t *testing.T) {
	raw := json.RawMessage(`{"textDocument":{"uri":"file:///a.ipynb#c1","version":3},"contentChanges":[{"text":"x"}]}`)
	params, err := DecodeParams(MethodTextDidChange, raw)
	require.NoError(t, err)

	uri, version := DocumentURI(params)
	assert.Equal(t, "file:///a.ipynb#c1", uri)
	assert.Equal(t, int32(3), version)
}

func TestDecodeParamsErrors(t *testing.T) {
	_, err := DecodeParams("workspace/didChangeConfiguration", json.RawMessage(`{}`))
	assert.ErrorContains(t, err, "unknown method")

	_, err = DecodeParams(MethodNotebookDidOpen, json.RawMessage(`[1]`))
	assert.ErrorContains(t, err, "decode notebookDocument/didOpen")
}

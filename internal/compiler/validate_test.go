package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/nbsync/internal/protocol"
)

func codes(errs []ValidationError) []string {
	out := []string{}
	for _, e := range errs {
		out = append(out, e.Code)
	}
	return out
}

func validRegistration() protocol.Registration {
	return protocol.Registration{
		ID: "r1",
		NotebookSelector: []protocol.NotebookSelector{{
			Notebook: &protocol.NotebookDocumentFilter{NotebookType: "jupyter-notebook", Pattern: "**/*.ipynb"},
			Cells:    []protocol.CellSelector{{Language: "python"}},
		}},
	}
}

func TestValidate_Valid(t *testing.T) {
	assert.Empty(t, Validate(validRegistration()))
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*protocol.Registration)
		want   []string
	}{
		{"empty id", func(r *protocol.Registration) { r.ID = " " }, []string{ErrEmptyID}},
		{"bad mode", func(r *protocol.Registration) { r.Mode = "all" }, []string{ErrInvalidMode}},
		{"no selectors", func(r *protocol.Registration) { r.NotebookSelector = nil }, []string{ErrNoSelectors}},
		{"empty selector", func(r *protocol.Registration) {
			r.NotebookSelector = []protocol.NotebookSelector{{}}
		}, []string{ErrEmptySelector}},
		{"empty filter", func(r *protocol.Registration) {
			r.NotebookSelector[0].Notebook = &protocol.NotebookDocumentFilter{}
		}, []string{ErrEmptyNotebookFilter}},
		{"bad pattern", func(r *protocol.Registration) {
			r.NotebookSelector[0].Notebook.Pattern = "[a-"
		}, []string{ErrInvalidPattern}},
		{"empty language", func(r *protocol.Registration) {
			r.NotebookSelector[0].Cells = []protocol.CellSelector{{Language: ""}}
		}, []string{ErrEmptyLanguage}},
		{"several at once", func(r *protocol.Registration) {
			r.ID = ""
			r.Mode = "x"
			r.NotebookSelector[0].Cells = []protocol.CellSelector{{}}
		}, []string{ErrEmptyID, ErrInvalidMode, ErrEmptyLanguage}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := validRegistration()
			tt.mutate(&reg)
			assert.Equal(t, tt.want, codes(Validate(reg)))
		})
	}
}

func TestValidate_ErrorMessage(t *testing.T) {
	reg := validRegistration()
	reg.NotebookSelector[0].Notebook.Pattern = "[a-"
	errs := Validate(reg)
	if assert.Len(t, errs, 1) {
		assert.Equal(t, `[E206] r1: notebookSelector[0].notebook.pattern: invalid glob pattern "[a-"`, errs[0].Error())
	}
}

func TestValidateAll_Duplicates(t *testing.T) {
	a := validRegistration()
	b := validRegistration()
	c := validRegistration()
	c.ID = "r2"

	errs := ValidateAll([]protocol.Registration{a, b, c})
	assert.Equal(t, []string{ErrDuplicateID}, codes(errs))
	assert.Equal(t, "registrations[1].id", errs[0].Field)
}

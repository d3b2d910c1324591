package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/nbsync/internal/protocol"
)

// CompileCUE compiles CUE source holding a top-level `registration` struct
// into registrations, in declaration order:
//
//	registration: "py": {
//		mode: "notebook"
//		save: true
//		notebookSelector: [{
//			notebook: {notebookType: "jupyter-notebook", pattern: "**/*.ipynb"}
//			cells: [{language: "python"}]
//		}]
//	}
//
// filename is only used in error positions.
func CompileCUE(src []byte, filename string) ([]protocol.Registration, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileRegistrations(v.LookupPath(cue.ParsePath("registration")))
}

// CompileRegistrations compiles every field of a CUE struct into a
// registration whose ID is the field label.
func CompileRegistrations(v cue.Value) ([]protocol.Registration, error) {
	if !v.Exists() {
		return nil, &CompileError{
			Field:   "registration",
			Message: "no registration struct found",
		}
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var regs []protocol.Registration
	for iter.Next() {
		reg, err := CompileRegistration(iter.Value())
		if err != nil {
			return nil, err
		}
		regs = append(regs, *reg)
	}
	return regs, nil
}

// CompileRegistration parses one CUE registration struct. The ID is taken
// from the struct label.
func CompileRegistration(v cue.Value) (*protocol.Registration, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	reg := &protocol.Registration{}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		// The ID may be quoted in CUE, extract it
		reg.ID = strings.Trim(labels[len(labels)-1].String(), `"`)
	}

	if modeVal := v.LookupPath(cue.ParsePath("mode")); modeVal.Exists() {
		mode, err := modeVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		reg.Mode = protocol.SyncMode(mode)
		if !reg.Mode.Valid() {
			return nil, &CompileError{
				Field:   "mode",
				Message: fmt.Sprintf("invalid mode %q, must be \"notebook\" or \"cellContent\"", mode),
				Pos:     modeVal.Pos(),
			}
		}
	}

	if saveVal := v.LookupPath(cue.ParsePath("save")); saveVal.Exists() {
		save, err := saveVal.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		reg.Save = save
	}

	selVal := v.LookupPath(cue.ParsePath("notebookSelector"))
	if !selVal.Exists() {
		return nil, &CompileError{
			Field:   "notebookSelector",
			Message: "notebookSelector is required",
			Pos:     v.Pos(),
		}
	}
	iter, err := selVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		sel, err := parseSelector(iter.Value())
		if err != nil {
			return nil, err
		}
		reg.NotebookSelector = append(reg.NotebookSelector, sel)
	}

	return reg, nil
}

// parseSelector parses one alternative. The notebook part may be a filter
// struct or a bare string naming the notebook type.
func parseSelector(v cue.Value) (protocol.NotebookSelector, error) {
	var sel protocol.NotebookSelector

	if nbVal := v.LookupPath(cue.ParsePath("notebook")); nbVal.Exists() {
		filter, err := parseFilter(nbVal)
		if err != nil {
			return sel, err
		}
		sel.Notebook = filter
	}

	if cellsVal := v.LookupPath(cue.ParsePath("cells")); cellsVal.Exists() {
		iter, err := cellsVal.List()
		if err != nil {
			return sel, formatCUEError(err)
		}
		for iter.Next() {
			langVal := iter.Value().LookupPath(cue.ParsePath("language"))
			if !langVal.Exists() {
				return sel, &CompileError{
					Field:   "cells.language",
					Message: "cell selector requires 'language' field",
					Pos:     iter.Value().Pos(),
				}
			}
			lang, err := langVal.String()
			if err != nil {
				return sel, formatCUEError(err)
			}
			sel.Cells = append(sel.Cells, protocol.CellSelector{Language: lang})
		}
	}

	return sel, nil
}

func parseFilter(v cue.Value) (*protocol.NotebookDocumentFilter, error) {
	if s, err := v.String(); err == nil {
		return &protocol.NotebookDocumentFilter{NotebookType: s}, nil
	}

	filter := &protocol.NotebookDocumentFilter{}
	fields := []struct {
		name string
		dst  *string
	}{
		{"notebookType", &filter.NotebookType},
		{"scheme", &filter.Scheme},
		{"pattern", &filter.Pattern},
	}
	for _, f := range fields {
		fv := v.LookupPath(cue.ParsePath(f.name))
		if !fv.Exists() {
			continue
		}
		s, err := fv.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		*f.dst = s
	}
	return filter, nil
}

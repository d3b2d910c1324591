package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue/token"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/roach88/nbsync/internal/compiler"
	"github.com/roach88/nbsync/internal/protocol"
)

// LoadMode controls how errors are handled during registration loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// registrationGlob matches every file format compiler.Parse understands.
const registrationGlob = "**/*.{cue,yaml,yml,json}"

// LoadResult contains the registrations read from a file or directory.
type LoadResult struct {
	Registrations []protocol.Registration
	Files         []string
}

// LoadError represents an error that occurred during registration loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadRegistrations reads registrations from path, which is either a single
// registration file or a directory searched recursively.
// A nil result means nothing could be read at all.
func LoadRegistrations(path string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("path not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing %s: %v", path, err)}}
	}

	files := []string{path}
	if info.IsDir() {
		files, err = FindRegistrationFiles(path)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
		}
		if len(files) == 0 {
			return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no registration files found in %s", path)}}
		}
	}

	result := &LoadResult{Files: files}
	var errs []error
	for _, file := range files {
		regs, err := compiler.LoadFile(file)
		if err != nil {
			errs = append(errs, convertCompileError(err, file))
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.Registrations = append(result.Registrations, regs...)
	}

	if len(result.Registrations) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no registrations found"})
	}
	return result, errs
}

// FindRegistrationFiles returns the registration files under dir, sorted.
func FindRegistrationFiles(dir string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), registrationGlob)
	if err != nil {
		return nil, err
	}
	files := make([]string, len(matches))
	for i, m := range matches {
		files[i] = filepath.Join(dir, filepath.FromSlash(m))
	}
	sort.Strings(files)
	return files, nil
}

// convertCompileError keeps the CUE position of a compile error.
func convertCompileError(err error, file string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    ErrCodeCompileFailed,
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeLoadFailed,
		Message: fmt.Sprintf("%s: %v", file, err),
	}
}

// Error code constants - unified across all CLI commands. Registration
// validation codes (E201-E208) come from the compiler package.
const (
	ErrCodeGeneric       = "E001" // Generic/unknown error
	ErrCodeScanError     = "E002" // Directory scan error
	ErrCodeNoFiles       = "E003" // No registration files found
	ErrCodeLoadFailed    = "E004" // File could not be read or decoded
	ErrCodeNotFound      = "E005" // Path not found
	ErrCodeCompileFailed = "E006" // CUE evaluation failed
	ErrCodeWriteFailed   = "E007" // File write error
	ErrCodeScenario      = "E008" // Scenario could not be loaded or run
	ErrCodeJournal       = "E009" // Journal could not be opened or read
	ErrCodeTransport     = "E010" // Malformed frame on the wire
)

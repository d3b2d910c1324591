package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/nbsync/internal/compiler"
	"github.com/roach88/nbsync/internal/protocol"
)

type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult holds the compiled registrations in wire form.
type CompilationResult struct {
	Registrations []protocol.Registration `json:"registrations"`
}

func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <path>",
		Short: "Compile registrations to JSON",
		Long: `Compile notebook sync registrations to their JSON wire form.

Reads .cue, .yaml, .yml and .json registration files, validates them and
writes the registrations as a single JSON document, the format a language
server sends in client/registerCapability.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	loadResult, loadErrors := LoadRegistrations(path, LoadModeCollectAll)
	if loadResult == nil {
		return outputCompileErrors(formatter, loadErrors)
	}
	formatter.VerboseLog("Found %d registration file(s) in %s", len(loadResult.Files), path)

	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	if verrs := compiler.ValidateAll(loadResult.Registrations); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, v := range verrs {
			errs[i] = v
		}
		return outputCompileErrors(formatter, errs)
	}

	result := &CompilationResult{Registrations: loadResult.Registrations}
	for _, reg := range result.Registrations {
		formatter.VerboseLog("Compiled registration: %s (%s)", reg.ID, reg.EffectiveMode())
	}

	if opts.Output != "" {
		if err := writeRegistrations(result, opts.Output); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, ErrCodeWriteFailed, err)
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// outputCompileSuccess prints one line per registration. The file, if any,
// has already been written.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Compiled %d registration(s)\n\n", len(result.Registrations))
	for _, reg := range result.Registrations {
		save := ""
		if reg.Save {
			save = ", save"
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s, %d selector(s)%s\n",
			reg.ID, reg.EffectiveMode(), len(reg.NotebookSelector), save)
	}

	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "\nWrote registrations to %s\n", outputFile)
	}
	return nil
}

// outputCompileErrors outputs compilation errors. Every compile failure is
// a command-level error (exit code 2).
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	failed := NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))

	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseCompileError(err)
			cliErrors[i] = CLIError{Code: code, Message: message}
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors,
		}); err != nil {
			return err
		}
		return failed
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		code, message := parseCompileError(err)
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}
	return failed
}

// parseCompileError splits a load or validation error into code and message.
func parseCompileError(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	var verr compiler.ValidationError
	if errors.As(err, &verr) {
		return verr.Code, verr.Error()
	}
	return ErrCodeGeneric, err.Error()
}

// writeRegistrations writes the result as indented JSON.
func writeRegistrations(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling registrations: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

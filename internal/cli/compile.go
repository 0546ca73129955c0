package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/embedsave/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationStats holds summary statistics.
type CompilationStats struct {
	ModelCount         int
	SerializerCount    int
	TotalAttributes    int
	TotalRelationships int
	EmbeddedFields     int
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <specs-dir>",
		Short: "Compile CUE model specs to a schema",
		Long: `Compile CUE model and serializer declarations to a schema.

The compiler loads every CUE file in the directory, validates models,
relationships and serializer options, reports embed cycles, and prints
the schema as JSON.`,
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

func runCompile(opts *CompileOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loadResult, loadErrors := LoadSpecs(specsDir, LoadModeCollectAll)

	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputCompileErrors(formatter, []error{loadErr})
		}
		return outputCompileError(formatter, ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, specsDir)
	for _, m := range loadResult.Schema.Models {
		formatter.VerboseLog("Compiled model: %s", m.Name)
	}

	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	stats := calculateStats(loadResult.Schema)

	if opts.Output != "" {
		if err := writeSchemaToFile(loadResult.Schema, opts.Output); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, loadResult, stats, opts.Output)
}

// calculateStats computes summary statistics for a schema.
func calculateStats(schema *ir.Schema) CompilationStats {
	stats := CompilationStats{
		ModelCount:      len(schema.Models),
		SerializerCount: len(schema.Serializers),
	}
	for _, m := range schema.Models {
		stats.TotalAttributes += len(m.Attributes)
		stats.TotalRelationships += len(m.Relationships)
	}
	for _, sp := range schema.Serializers {
		for _, o := range sp.Attrs {
			if o.Serialize {
				stats.EmbeddedFields++
			}
		}
	}
	return stats
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *LoadResult, stats CompilationStats, outputFile string) error {
	if formatter.JSON() {
		return formatter.Success(map[string]any{
			"schema": result.Schema,
			"cycles": result.Cycles,
		})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d model(s), %d serializer(s)\n\n", stats.ModelCount, stats.SerializerCount)

	fmt.Fprintln(w, "Models:")
	for _, m := range result.Schema.Models {
		fmt.Fprintf(w, "  %s: %d attribute(s), %d relationship(s)\n", m.Name, len(m.Attributes), len(m.Relationships))
	}
	fmt.Fprintln(w)

	if len(result.Schema.Serializers) > 0 {
		fmt.Fprintln(w, "Serializers:")
		for _, sp := range result.Schema.Serializers {
			fmt.Fprintf(w, "  %s: %s\n", sp.Model, describeFields(sp))
		}
		fmt.Fprintln(w)
	}

	for _, c := range result.Cycles {
		fmt.Fprintf(w, "Warning: %s\n", c.Message)
	}

	if outputFile != "" {
		fmt.Fprintf(w, "Wrote schema to %s\n", outputFile)
	}

	return nil
}

// describeFields renders serializer options as "albums (embedded), tags".
func describeFields(sp ir.SerializerSpec) string {
	names := make([]string, 0, len(sp.Attrs))
	for name := range sp.Attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		o := sp.Attrs[name]
		switch {
		case o.Serialize && o.Key != "":
			parts[i] = fmt.Sprintf("%s (embedded as %q)", name, o.Key)
		case o.Serialize:
			parts[i] = name + " (embedded)"
		default:
			parts[i] = name
		}
	}
	if len(parts) == 0 {
		return "no options"
	}
	return strings.Join(parts, ", ")
}

// outputCompileError outputs a single compilation error.
func outputCompileError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Compilation errors are command-level errors (exit code 2)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// outputCompileErrors outputs multiple compilation errors.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.JSON() {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseCompileError(err)
			cliErrors[i] = CLIError{Code: code, Message: message}
		}

		if err := formatter.Respond(CLIResponse{Status: "error", Error: &cliErrors[0], Data: cliErrors}); err != nil {
			return err
		}

		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := parseCompileError(err)
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// parseCompileError extracts error code and message from an error.
func parseCompileError(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// writeSchemaToFile writes the schema as indented JSON.
func writeSchemaToFile(schema *ir.Schema, filename string) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling schema: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}

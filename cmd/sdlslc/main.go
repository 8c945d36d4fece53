// Command sdlslc is the CLI surface spec.md §6 describes: a thin
// driver over the Preprocess/ParseToAST/Compile entry points. It owns
// no compiler logic itself -- every `-I`/`-D` flag maps directly onto a
// CompilerParams field, and each subcommand (preprocess, ast, compile)
// onto a driver entry point.
//
// Grounded on the teacher's cmd/main.go (flag gathering at the top of
// main, log.Fatal for usage errors, a single switch over an
// output-kind selector) but rebuilt on github.com/spf13/cobra
// subcommands, matching spec.md §6's three-way -P/-T/-C surface more
// directly than one bare flag.String switch would (see SPEC_FULL.md
// DOMAIN STACK).
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	sdlsl "github.com/sdlsl-lang/sdlsl"
	"github.com/sdlsl-lang/sdlsl/ascii"
)

const defaultWritePermission = 0644 // -rw-r--r--

// version is the CLI's own reported version (spec.md §6 `-V`).
const version = "sdlslc 0.1.0 (sdlsl_1_0)"

// cliFlags holds the persistent flag values; repeated `-I`/`-D`
// occurrences are collected in order by cobra's StringArrayVarP.
type cliFlags struct {
	output        string
	localIncludes []string
	predefines    []string
	allowDotDot   bool
	allowAbs      bool
}

func main() {
	var flags cliFlags

	root := &cobra.Command{
		Use:     "sdlslc",
		Short:   "SDLSL shader front-end: preprocess, parse, or compile shader source",
		Version: version,
	}
	root.PersistentFlags().StringVarP(&flags.output, "output", "o", "", "output file (default stdout)")
	root.PersistentFlags().StringArrayVarP(&flags.localIncludes, "include", "I", nil, "add a local include search path (repeatable)")
	root.PersistentFlags().StringArrayVarP(&flags.predefines, "define", "D", nil, "pre-define NAME[=VALUE] (repeatable)")
	root.PersistentFlags().BoolVar(&flags.allowDotDot, "allow-dotdot-includes", false, "allow '..' segments in #include paths")
	root.PersistentFlags().BoolVar(&flags.allowAbs, "allow-absolute-includes", false, "allow absolute #include paths")
	root.Flags().BoolP("version", "V", false, "print the version and exit")
	root.SetVersionTemplate(version + "\n")

	root.AddCommand(
		newPreprocessCmd(&flags),
		newASTCmd(&flags),
		newCompileCmd(&flags),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newPreprocessCmd(flags *cliFlags) *cobra.Command {
	var stripComments bool
	cmd := &cobra.Command{
		Use:   "preprocess [file]",
		Short: "Preprocess a shader source file (spec.md -P)",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			params := buildParams(flags, args[0])
			res := sdlsl.Preprocess(params, stripComments)
			exitCode := printDiagnostics(res.Diagnostics)
			if !res.OutOfMemory {
				writeOutput(flags.output, []byte(res.Output))
			}
			os.Exit(exitCode)
		},
	}
	cmd.Flags().BoolVar(&stripComments, "strip-comments", false, "strip comments from preprocessed output")
	return cmd
}

func newASTCmd(flags *cliFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ast [file]",
		Short: "Parse a shader source file and print its AST as source text (spec.md -T)",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			params := buildParams(flags, args[0])
			res := sdlsl.ParseToAST(params)
			defer sdlsl.FreeParseResult(res)
			exitCode := printDiagnostics(res.Diagnostics)
			if !res.OutOfMemory && res.Shader != nil {
				writeOutput(flags.output, []byte(sdlsl.PrintShader(res.Shader)))
			}
			os.Exit(exitCode)
		},
	}
	return cmd
}

func newCompileCmd(flags *cliFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile [file]",
		Short: "Compile a shader source file to a bytecode module (spec.md -C)",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			params := buildParams(flags, args[0])
			res := sdlsl.Compile(params)
			exitCode := printDiagnostics(res.Diagnostics)
			if !res.OutOfMemory && res.Output != nil {
				writeOutput(flags.output, res.Output)
			}
			os.Exit(exitCode)
		},
	}
	return cmd
}

// buildParams reads the source file and assembles CompilerParams from
// the persistent flags, per spec.md §6 CompilerParams.
func buildParams(flags *cliFlags, path string) sdlsl.CompilerParams {
	src, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Can't read source file: %s", err.Error())
	}

	var macros []sdlsl.MacroDefinition
	for _, d := range flags.predefines {
		name, value := d, ""
		for i := 0; i < len(d); i++ {
			if d[i] == '=' {
				name, value = d[:i], d[i+1:]
				break
			}
		}
		macros = append(macros, sdlsl.MacroDefinition{Identifier: name, Definition: value})
	}

	return sdlsl.CompilerParams{
		Filename:              path,
		Source:                src,
		AllowDotDotIncludes:   flags.allowDotDot,
		AllowAbsoluteIncludes: flags.allowAbs,
		PredefinedMacros:      macros,
		LocalIncludePaths:     flags.localIncludes,
	}
}

// printDiagnostics prints every diagnostic to stderr in source order,
// colored through the ascii package, and returns the process exit code
// spec.md §6 specifies: 0 if none were errors, 1 otherwise.
func printDiagnostics(diags []sdlsl.Diagnostic) int {
	code := 0
	for _, d := range diags {
		theme := ascii.DefaultTheme
		kind, color := "warning", theme.Warning
		if d.IsError {
			kind, color = "error", theme.Error
			code = 1
		}
		loc := "<unknown>"
		if d.Filename != nil {
			loc = *d.Filename
		}
		pos := d.ErrorPosition()
		switch pos {
		case -2:
			loc += ":<before source>"
		case -1:
			loc += ":<after source>"
		case -3:
		default:
			loc = fmt.Sprintf("%s:%d", loc, pos)
		}
		fmt.Fprintln(os.Stderr, ascii.Color(color, "%s: %s: %s", loc, kind, d.Message))
	}
	return code
}

func writeOutput(path string, data []byte) {
	if path == "" || path == "-" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(path, data, defaultWritePermission); err != nil {
		log.Fatalf("Can't write output: %s", err.Error())
	}
}

package sdlsl

import (
	"fmt"
	"strings"
)

// Diagnostic is a single reported problem: a lex, preprocessor, parse,
// or semantic error/warning, or an internal-compiler-error. It mirrors
// spec.md §3's Error entry and §6's public Error layout.
type Diagnostic struct {
	IsError  bool
	Message  string
	Filename *string
	Line     int32

	next *Diagnostic
}

// ErrorPosition returns the int32 position encoding used by the public
// API (spec.md §6): real line numbers pass through, BEFORE/AFTER map
// to -2/-1, "none" maps to -3.
func (d Diagnostic) ErrorPosition() int32 {
	return SourceLocation{Filename: d.Filename, Line: d.Line}.ErrorPosition()
}

func (d Diagnostic) String() string {
	loc := SourceLocation{Filename: d.Filename, Line: d.Line}
	kind := "warning"
	if d.IsError {
		kind = "error"
	}
	return fmt.Sprintf("%s: %s: %s", loc, kind, d.Message)
}

// diagList is an append-only, in-source-order list of diagnostics with
// O(1) append via head/tail pointers, matching spec.md §3's Error
// entry list description. It is not safe for concurrent use -- each
// compilation Context owns exactly one.
type diagList struct {
	head, tail *Diagnostic
	count      int
	errorCount int
}

func (l *diagList) append(d *Diagnostic) {
	if l.head == nil {
		l.head = d
		l.tail = d
	} else {
		l.tail.next = d
		l.tail = d
	}
	l.count++
	if d.IsError {
		l.errorCount++
	}
}

// flatten converts the linked list into a contiguous slice, the shape
// every public entry point returns (spec.md §3 "final flatten").
func (l *diagList) flatten() []Diagnostic {
	out := make([]Diagnostic, 0, l.count)
	for d := l.head; d != nil; d = d.next {
		out = append(out, *d)
	}
	return out
}

func (l *diagList) hasErrors() bool { return l.errorCount > 0 }

// fail appends an error-level diagnostic at loc and sets the sticky
// isfail flag on the owning context, per spec.md §4.5 and §7. Like the
// original, individual passes are expected to keep running after a
// fail() so multiple diagnostics can surface from one run; only phase
// boundaries check isfail to decide whether to proceed to the next
// stage.
func (ctx *Context) fail(loc SourceLocation, format string, args ...interface{}) {
	ctx.isfail = true
	ctx.diags.append(&Diagnostic{
		IsError:  true,
		Message:  fmt.Sprintf(format, args...),
		Filename: loc.Filename,
		Line:     loc.Line,
	})
}

// failAt is a convenience for nodes, which carry their own location.
func (ctx *Context) failAt(n Node, format string, args ...interface{}) {
	ctx.fail(n.Location(), format, args...)
}

// warn appends a warning-level diagnostic without marking the
// compilation as failed (spec.md §4.5, §7).
func (ctx *Context) warn(loc SourceLocation, format string, args ...interface{}) {
	ctx.diags.append(&Diagnostic{
		IsError:  false,
		Message:  fmt.Sprintf(format, args...),
		Filename: loc.Filename,
		Line:     loc.Line,
	})
}

func (ctx *Context) warnAt(n Node, format string, args ...interface{}) {
	ctx.warn(n.Location(), format, args...)
}

// ice reports an Internal Compiler Error: a branch that should be
// unreachable was reached. It sets both isfail and the distinguished
// isiced flag (spec.md §4.5, §7).
func (ctx *Context) ice(loc SourceLocation, format string, args ...interface{}) {
	ctx.isfail = true
	ctx.isiced = true
	msg := "INTERNAL COMPILER ERROR: " + fmt.Sprintf(format, args...)
	ctx.diags.append(&Diagnostic{
		IsError:  true,
		Message:  msg,
		Filename: loc.Filename,
		Line:     loc.Line,
	})
}

// CompileError aggregates every diagnostic produced by one call to
// Preprocess/ParseToAST/Compile, in source order. It implements error
// so driver entry points can return it directly when isfail is set.
// Grounded on the teacher's query_errors.go GrammarError aggregation.
type CompileError struct {
	Diagnostics []Diagnostic
}

func (e *CompileError) Error() string {
	if len(e.Diagnostics) == 0 {
		return "compile error (no diagnostics)"
	}
	if len(e.Diagnostics) == 1 {
		return e.Diagnostics[0].String()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d diagnostics:\n", len(e.Diagnostics))
	for _, d := range e.Diagnostics {
		b.WriteString("  ")
		b.WriteString(d.String())
		b.WriteRune('\n')
	}
	return b.String()
}

// NewCompileError wraps a flattened diagnostic slice as an error,
// returning nil when there are no error-level entries so callers can
// treat "errors" and "only warnings" differently.
func NewCompileError(diags []Diagnostic) error {
	for _, d := range diags {
		if d.IsError {
			return &CompileError{Diagnostics: diags}
		}
	}
	return nil
}

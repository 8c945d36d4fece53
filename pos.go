package sdlsl

import "fmt"

// Sentinel line values used for diagnostics that aren't anchored to a
// real token: a fatal condition discovered before any source was read,
// or one discovered after the last token of the source was consumed.
const (
	LineBefore int32 = -2
	LineAfter  int32 = -1
	LineNone   int32 = -3
)

// SourceLocation is the unit of position tracking used throughout the
// preprocessor, parser, and semantic analyzer. Filename is an interned
// string (or nil for "no file", e.g. for locations synthesized by the
// default in-memory compiler params). Equality of two SourceLocations
// with the same Filename pointer and Line is definitionally "the same
// place" -- nothing here compares filename contents.
type SourceLocation struct {
	Filename *string
	Line     int32
}

// NewSourceLocation builds a SourceLocation from an already-interned
// filename and a 1-based line number.
func NewSourceLocation(filename *string, line int32) SourceLocation {
	return SourceLocation{Filename: filename, Line: line}
}

// Before and After return the BEFORE/AFTER sentinel locations for a
// given (interned) filename, used by diagnostics raised outside of any
// specific token -- e.g. "file ended unexpectedly" or "unknown output
// profile requested before any source was read."
func Before(filename *string) SourceLocation { return SourceLocation{Filename: filename, Line: LineBefore} }
func After(filename *string) SourceLocation  { return SourceLocation{Filename: filename, Line: LineAfter} }

func (s SourceLocation) filenameString() string {
	if s.Filename == nil {
		return "<unknown>"
	}
	return *s.Filename
}

// String renders "file:line", with the two sentinel lines spelled out
// so diagnostics reporting tools built on top of this don't need to
// know the sentinel encoding.
func (s SourceLocation) String() string {
	switch s.Line {
	case LineBefore:
		return fmt.Sprintf("%s:<before source>", s.filenameString())
	case LineAfter:
		return fmt.Sprintf("%s:<after source>", s.filenameString())
	case LineNone:
		return s.filenameString()
	default:
		return fmt.Sprintf("%s:%d", s.filenameString(), s.Line)
	}
}

// ErrorPosition maps a SourceLocation's line to the int32 encoding used
// by the public Error struct (spec.md §6): real line numbers pass
// through unchanged, BEFORE/AFTER map to -2/-1, and "no position at
// all" maps to -3.
func (s SourceLocation) ErrorPosition() int32 {
	if s.Line >= 1 || s.Line == LineBefore || s.Line == LineAfter {
		return s.Line
	}
	return LineNone
}

package sdlsl

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// IncludeKind distinguishes `#include "x"` from `#include <x>`
// (spec.md §6 Include callback contract).
type IncludeKind int

const (
	IncludeLocal IncludeKind = iota
	IncludeSystem
)

// IncludeOpenFunc resolves an include directive to source bytes. It
// mirrors spec.md §6's open() callback contract, simplified to Go
// idiom: instead of an out-param triple and a fixed-size fail buffer,
// it returns (resolvedFilename, data, error). Returning filename
// unchanged as resolvedFilename means "no path rewrite," exactly as
// the spec describes.
type IncludeOpenFunc func(kind IncludeKind, filename, parentFilename string, searchPaths []string) (resolvedFilename string, data []byte, err error)

// IncludeCloseFunc releases resources associated with data returned by
// a prior IncludeOpenFunc call. Called exactly once the include state
// it backed is popped off the stack.
type IncludeCloseFunc func(data []byte)

// ConditionalFrame is one level of #if/#ifdef/.../#endif nesting
// (spec.md §3 Conditional frame). The Chosen flag ensures at most one
// branch of an if/elif/.../else chain is taken.
type ConditionalFrame struct {
	Kind     TokenKind // TokPPIf, TokPPIfdef, or TokPPIfndef (the opener)
	Line     int32
	Skipping bool
	Chosen   bool

	next *ConditionalFrame
}

// IncludeState is one active source buffer on the preprocessor's
// include stack: a real file or a macro-expansion's synthetic buffer
// (spec.md §3 Include state).
type IncludeState struct {
	Filename *string
	lexer    *Lexer

	// atLineStart tracks whether the next token lexed from this state
	// would be the first non-whitespace token on its line, the
	// condition spec.md §4.2 requires for directive recognition.
	atLineStart bool

	// lookahead holds tokens consumed (by peekNonTrivial) while
	// checking whether a function-like macro invocation follows an
	// identifier, but not actually consumed by the grammar -- they are
	// replayed before the lexer is asked for anything else.
	lookahead []Token

	condStack *ConditionalFrame

	// expandingMacro is set when this IncludeState was pushed to
	// rescan a macro's expansion; it is the recursion guard spec.md
	// §4.2 describes: the preprocessor never expands a macro whose
	// expandingMacro pointer already matches it, anywhere on the
	// stack.
	expandingMacro *MacroDef

	// #line overrides: reportedLine(physical) = physical -
	// lineAnchorPhysical + lineAnchorReported, active once lineOverride
	// is set.
	lineOverride       bool
	lineAnchorPhysical int32
	lineAnchorReported int32
	filenameOverride   *string

	closeData []byte
	closeFn   IncludeCloseFunc

	parent *IncludeState
}

// nextRaw returns the next token from this state: a replayed
// lookahead token if any are queued, otherwise a freshly lexed one.
func (is *IncludeState) nextRaw() Token {
	if len(is.lookahead) > 0 {
		t := is.lookahead[0]
		is.lookahead = is.lookahead[1:]
		return t
	}
	return is.lexer.Next()
}

// unread pushes tokens back onto the front of this state's stream, in
// the order they should be re-read (toks[0] is read first).
func (is *IncludeState) unread(toks []Token) {
	is.lookahead = append(append([]Token{}, toks...), is.lookahead...)
}

// reportedLine returns the line number diagnostics and __LINE__ should
// use, honoring any #line override.
func (is *IncludeState) reportedLine() int32 {
	physical := is.lexer.Line()
	if !is.lineOverride {
		return physical
	}
	return physical - is.lineAnchorPhysical + is.lineAnchorReported
}

// reportedFilename returns the filename diagnostics and __FILE__
// should use, honoring any #line override.
func (is *IncludeState) reportedFilename() *string {
	if is.filenameOverride != nil {
		return is.filenameOverride
	}
	return is.Filename
}

// setLineOverride installs a #line N ["file"] override effective from
// the next physical line onward.
func (is *IncludeState) setLineOverride(reportedLine int32, filename *string) {
	is.lineOverride = true
	is.lineAnchorPhysical = is.lexer.Line()
	is.lineAnchorReported = reportedLine
	is.filenameOverride = filename
}

func (is *IncludeState) pushCond(f *ConditionalFrame) {
	f.next = is.condStack
	is.condStack = f
}

func (is *IncludeState) popCond() *ConditionalFrame {
	f := is.condStack
	if f != nil {
		is.condStack = f.next
		f.next = nil
	}
	return f
}

func (is *IncludeState) topCond() *ConditionalFrame { return is.condStack }

func (is *IncludeState) skipping() bool {
	return is.condStack != nil && is.condStack.Skipping
}

func (is *IncludeState) recursivelyExpanding(m *MacroDef) bool {
	for s := is; s != nil; s = s.parent {
		if s.expandingMacro == m {
			return true
		}
	}
	return false
}

// includeStack is the preprocessor's stack of active IncludeStates,
// plus free-lists for IncludeState and ConditionalFrame pooling
// (spec.md §5 Pools). Grounded on the gapid preprocessor's ifEntry
// stack and fjl-geas's document parent-chain (`includes map[...]*document`)
// for the "owned, parent-linked stack of source states" shape.
type includeStack struct {
	top *IncludeState
	n   int

	freeStates *IncludeState
	freeConds  *ConditionalFrame
}

func (s *includeStack) allocCond() *ConditionalFrame {
	if s.freeConds != nil {
		f := s.freeConds
		s.freeConds = f.next
		*f = ConditionalFrame{}
		return f
	}
	return &ConditionalFrame{}
}

func (s *includeStack) releaseCond(f *ConditionalFrame) {
	*f = ConditionalFrame{next: s.freeConds}
	s.freeConds = f
}

func (s *includeStack) allocState() *IncludeState {
	if s.freeStates != nil {
		st := s.freeStates
		s.freeStates = st.parent
		*st = IncludeState{}
		return st
	}
	return &IncludeState{}
}

func (s *includeStack) push(st *IncludeState) {
	st.parent = s.top
	st.atLineStart = true
	s.top = st
	s.n++
}

// pop removes and returns the top IncludeState, invoking its close
// callback if any, and returning the node to the free-list.
func (s *includeStack) pop() *IncludeState {
	st := s.top
	if st == nil {
		return nil
	}
	s.top = st.parent
	s.n--
	if st.closeFn != nil {
		st.closeFn(st.closeData)
	}
	for f := st.condStack; f != nil; {
		next := f.next
		s.releaseCond(f)
		f = next
	}
	st.parent = s.freeStates
	s.freeStates = st
	return st
}

func (s *includeStack) empty() bool { return s.top == nil }

// defaultIncludeOpen implements spec.md §6's "Internal default
// implementation": for local includes, try the parent's directory
// first, then each local search path; for system includes, try each
// system search path in order. Search path entries containing glob
// metacharacters are expanded with doublestar (grounded on
// EngFlow-gazelle_cc's use of doublestar for matching BUILD-relevant
// source trees) so a path like "vendor/**/include" can resolve a file
// anywhere under a globbed tree.
func defaultIncludeOpen(allowDotDot, allowAbsolute bool, systemPaths, localPaths []string) IncludeOpenFunc {
	return func(kind IncludeKind, filename, parentFilename string, extraSearchPaths []string) (string, []byte, error) {
		if err := validateIncludePath(filename, allowDotDot, allowAbsolute); err != nil {
			return "", nil, err
		}

		var roots []string
		if kind == IncludeLocal {
			roots = append(roots, filepath.Dir(parentFilename))
			roots = append(roots, localPaths...)
		} else {
			roots = append(roots, systemPaths...)
		}
		roots = append(roots, extraSearchPaths...)

		for _, root := range roots {
			candidates, err := expandSearchRoot(root)
			if err != nil {
				continue
			}
			for _, r := range candidates {
				full := filepath.Join(r, filename)
				if data, err := os.ReadFile(full); err == nil {
					return full, data, nil
				}
			}
		}
		return "", nil, &CompileError{Diagnostics: []Diagnostic{{
			IsError: true,
			Message: "Invalid #include directive: file not found: " + filename,
		}}}
	}
}

// expandSearchRoot expands a single search-path entry into the set of
// concrete directories it refers to. A root with no glob
// metacharacters is returned unchanged; one with `*`/`**`/`?`/`[...]`
// is expanded via doublestar.FilepathGlob relative to the working
// directory.
func expandSearchRoot(root string) ([]string, error) {
	if !strings.ContainsAny(root, "*?[") {
		return []string{root}, nil
	}
	matches, err := doublestar.FilepathGlob(root)
	if err != nil {
		return nil, err
	}
	return matches, nil
}

func validateIncludePath(filename string, allowDotDot, allowAbsolute bool) error {
	if strings.ContainsRune(filename, '\\') {
		return diagError("Invalid #include directive: path contains '\\\\': " + filename)
	}
	if !allowDotDot {
		for _, part := range strings.Split(filename, "/") {
			if part == ".." {
				return diagError("Invalid #include directive: '..' not allowed: " + filename)
			}
		}
	}
	if !allowAbsolute && (strings.HasPrefix(filename, "/") || filepath.IsAbs(filename)) {
		return diagError("Invalid #include directive: absolute paths not allowed: " + filename)
	}
	return nil
}

func diagError(msg string) error {
	return &CompileError{Diagnostics: []Diagnostic{{IsError: true, Message: msg}}}
}

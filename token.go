package sdlsl

// TokenKind enumerates every distinct lexical category the lexer can
// produce, per spec.md §3/§4.1. ASCII single-character punctuation
// tokens use their own rune value as the TokenKind so `'('`, `'+'`,
// `';'`, etc. never need a name in this table -- only the multi-char
// and named categories get a symbolic constant here, the same split
// the original lexer.c/SDL_shader_preprocessor.c uses (most tokens
// pass through as their own character code; only operators, literals,
// and directives get dedicated enum values).
type TokenKind int32

// Single-character tokens are represented by their own rune value
// (always < 0x80 for SDLSL source), so TokenKind constants start well
// above the ASCII range to avoid collisions.
const (
	TokEOI TokenKind = 256 + iota
	TokBadChars
	TokIncompleteComment
	TokIncompleteString
	TokWhitespace
	TokNewline
	TokLineComment  // //...
	TokBlockComment // /* ... */

	TokIntLiteral
	TokFloatLiteral
	TokStringLiteral
	TokIdentifier

	// Multi-character operators.
	TokPlusPlus   // ++
	TokMinusMinus // --
	TokShiftLeft  // <<
	TokShiftRight // >>
	TokLE         // <=
	TokGE         // >=
	TokEQ         // ==
	TokNE         // !=
	TokAndAnd     // &&
	TokOrOr       // ||
	TokAddAssign  // +=
	TokSubAssign  // -=
	TokMulAssign  // *=
	TokDivAssign  // /=
	TokModAssign  // %=
	TokShlAssign  // <<=
	TokShrAssign  // >>=
	TokAndAssign  // &=
	TokOrAssign   // |=
	TokXorAssign  // ^=
	TokHash       // #
	TokHashHash   // ##

	// Preprocessor directives (recognized only at the start of a
	// logical line by the preprocessor, never by the parser).
	TokPPInclude
	TokPPDefine
	TokPPUndef
	TokPPIf
	TokPPIfdef
	TokPPIfndef
	TokPPElif
	TokPPElse
	TokPPEndif
	TokPPLine
	TokPPError
	TokPPPragma

	// TokPragma is the pass-through token the preprocessor emits into
	// its *output* stream for a recognized #pragma line (distinct
	// from TokPPPragma, which is only ever seen internally while
	// recognizing the directive keyword). Grounded on
	// SDL_shader_preprocessor.c, which keeps #pragma lines in the
	// preprocessed output instead of silently consuming them like
	// every other directive (spec.md §4.2, SPEC_FULL.md supplemented
	// feature 1).
	TokPragma

	// Reserved-word tokens. Keeping these distinct from TokIdentifier
	// lets the parser match keywords by TokenKind instead of re-
	// comparing the spelled-out string at every call site.
	TokKwIf
	TokKwElse
	TokKwWhile
	TokKwDo
	TokKwFor
	TokKwBreak
	TokKwContinue
	TokKwDiscard
	TokKwReturn
	TokKwStruct
	TokKwFunction
	TokKwVar
	TokKwVoid
	TokKwTrue
	TokKwFalse
)

var keywords = map[string]TokenKind{
	"if":       TokKwIf,
	"else":     TokKwElse,
	"while":    TokKwWhile,
	"do":       TokKwDo,
	"for":      TokKwFor,
	"break":    TokKwBreak,
	"continue": TokKwContinue,
	"discard":  TokKwDiscard,
	"return":   TokKwReturn,
	"struct":   TokKwStruct,
	"function": TokKwFunction,
	"var":      TokKwVar,
	"void":     TokKwVoid,
	"true":     TokKwTrue,
	"false":    TokKwFalse,
}

var directives = map[string]TokenKind{
	"include": TokPPInclude,
	"define":  TokPPDefine,
	"undef":   TokPPUndef,
	"if":      TokPPIf,
	"ifdef":   TokPPIfdef,
	"ifndef":  TokPPIfndef,
	"elif":    TokPPElif,
	"else":    TokPPElse,
	"endif":   TokPPEndif,
	"line":    TokPPLine,
	"error":   TokPPError,
	"pragma":  TokPPPragma,
}

// Token is a lexer/preprocessor output item: a kind, the exact source
// slice it spans, and the 1-based line it started on (spec.md §3).
type Token struct {
	Kind Kind
	Text string
	Line int32
}

// Kind is TokenKind, but aliased so call sites that only need to
// distinguish "character token" from "named token" can do so by
// comparing against 256 without importing the TokenKind name twice.
type Kind = TokenKind

func (t Token) IsEOI() bool { return t.Kind == TokEOI }

// IsKeyword reports whether text is the spelling of a reserved word and
// returns its keyword token kind. The lexer classifies keyword
// spellings itself from the same keywords table; sema.go's
// checkReservedName uses IsKeyword to reject declaration names spelled
// like a keyword.
func IsKeyword(text string) (TokenKind, bool) {
	k, ok := keywords[text]
	return k, ok
}

package sdlsl

// Lexer is a byte-oriented, longest-match tokenizer over a single
// source buffer (spec.md §4.1). It never looks outside the buffer it
// was constructed with; stacking across #include boundaries is the
// IncludeState's job (include.go), not the lexer's.
//
// Grounded on SDL_shader_preprocessor.c's lexer() state machine for
// token recognition, and on the gapid GLSL preprocessor's lexer/
// tokenExpansion split for how a preprocessor-facing lexer is
// structured in Go (other_examples/…gapid…preprocessorImpl.go).
type Lexer struct {
	src  []byte
	pos  int
	line int32

	// ReportWhitespace controls whether runs of horizontal whitespace
	// are returned as TokWhitespace tokens (needed by the macro
	// expander to preserve inter-token spacing) or silently skipped.
	ReportWhitespace bool

	pushedBack *Token
	hasPushed  bool
}

// NewLexer creates a Lexer over src, starting at line 1.
func NewLexer(src []byte) *Lexer {
	return &Lexer{src: src, line: 1}
}

// Line returns the current 1-based line number.
func (lx *Lexer) Line() int32 { return lx.line }

// SetLine overrides the lexer's physical line counter. #line does not
// use it: it installs a reported-line override on the IncludeState
// (setLineOverride) instead.
func (lx *Lexer) SetLine(line int32) { lx.line = line }

// AtEOF reports whether the cursor has consumed the whole buffer.
func (lx *Lexer) AtEOF() bool { return lx.pos >= len(lx.src) }

// Pushback returns t to the front of the stream; the next call to
// Next will return it again instead of lexing further. Only a single
// token of pushback is supported (spec.md §4.1).
func (lx *Lexer) Pushback(t Token) {
	lx.pushedBack = &t
	lx.hasPushed = true
}

func (lx *Lexer) peekByte(off int) byte {
	if lx.pos+off >= len(lx.src) {
		return 0
	}
	return lx.src[lx.pos+off]
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentCont(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

// Next returns the next token in the stream, honoring any pushed-back
// token first. Returns a TokEOI token when the buffer is exhausted.
func (lx *Lexer) Next() Token {
	if lx.hasPushed {
		lx.hasPushed = false
		t := *lx.pushedBack
		lx.pushedBack = nil
		return t
	}
	return lx.scan()
}

func (lx *Lexer) scan() Token {
	if lx.AtEOF() {
		return Token{Kind: TokEOI, Line: lx.line}
	}

	start := lx.pos
	line := lx.line
	b := lx.src[lx.pos]

	switch {
	case b == '\n':
		lx.pos++
		lx.line++
		return Token{Kind: TokNewline, Text: "\n", Line: line}

	case b == ' ' || b == '\t' || b == '\r' || b == '\v' || b == '\f':
		for !lx.AtEOF() {
			c := lx.src[lx.pos]
			if c == ' ' || c == '\t' || c == '\r' || c == '\v' || c == '\f' {
				lx.pos++
				continue
			}
			break
		}
		if lx.ReportWhitespace {
			return Token{Kind: TokWhitespace, Text: string(lx.src[start:lx.pos]), Line: line}
		}
		return lx.scan()

	case b == '/' && lx.peekByte(1) == '/':
		lx.pos += 2
		for !lx.AtEOF() && lx.src[lx.pos] != '\n' {
			lx.pos++
		}
		return Token{Kind: TokLineComment, Text: string(lx.src[start:lx.pos]), Line: line}

	case b == '/' && lx.peekByte(1) == '*':
		lx.pos += 2
		closed := false
		for !lx.AtEOF() {
			if lx.src[lx.pos] == '*' && lx.peekByte(1) == '/' {
				lx.pos += 2
				closed = true
				break
			}
			if lx.src[lx.pos] == '\n' {
				lx.line++
			}
			lx.pos++
		}
		if !closed {
			return Token{Kind: TokIncompleteComment, Text: string(lx.src[start:lx.pos]), Line: line}
		}
		return Token{Kind: TokBlockComment, Text: string(lx.src[start:lx.pos]), Line: line}

	case b == '"':
		return lx.scanString(start, line)

	case isDigit(b):
		return lx.scanNumber(start, line)

	case isIdentStart(b):
		lx.pos++
		for !lx.AtEOF() && isIdentCont(lx.src[lx.pos]) {
			lx.pos++
		}
		text := string(lx.src[start:lx.pos])
		kind := TokIdentifier
		if kw, ok := keywords[text]; ok {
			kind = kw
		}
		return Token{Kind: kind, Text: text, Line: line}

	default:
		return lx.scanOperator(start, line)
	}
}

func (lx *Lexer) scanString(start int, line int32) Token {
	lx.pos++ // opening quote
	for {
		if lx.AtEOF() {
			return Token{Kind: TokIncompleteString, Text: string(lx.src[start:lx.pos]), Line: line}
		}
		c := lx.src[lx.pos]
		if c == '\n' {
			return Token{Kind: TokIncompleteString, Text: string(lx.src[start:lx.pos]), Line: line}
		}
		if c == '\\' && !lx.AtEOF() {
			lx.pos++
			if !lx.AtEOF() {
				lx.pos++
			}
			continue
		}
		if c == '"' {
			lx.pos++
			return Token{Kind: TokStringLiteral, Text: string(lx.src[start:lx.pos]), Line: line}
		}
		lx.pos++
	}
}

func (lx *Lexer) scanNumber(start int, line int32) Token {
	// Hex: 0x...
	if lx.src[lx.pos] == '0' && (lx.peekByte(1) == 'x' || lx.peekByte(1) == 'X') {
		lx.pos += 2
		for !lx.AtEOF() && isHexDigit(lx.src[lx.pos]) {
			lx.pos++
		}
		return Token{Kind: TokIntLiteral, Text: string(lx.src[start:lx.pos]), Line: line}
	}

	for !lx.AtEOF() && isDigit(lx.src[lx.pos]) {
		lx.pos++
	}

	isFloat := false
	if !lx.AtEOF() && lx.src[lx.pos] == '.' && isDigit(lx.peekByte(1)) {
		isFloat = true
		lx.pos++
		for !lx.AtEOF() && isDigit(lx.src[lx.pos]) {
			lx.pos++
		}
	}
	if !lx.AtEOF() && (lx.src[lx.pos] == 'e' || lx.src[lx.pos] == 'E') {
		save := lx.pos
		p := lx.pos + 1
		if p < len(lx.src) && (lx.src[p] == '+' || lx.src[p] == '-') {
			p++
		}
		if p < len(lx.src) && isDigit(lx.src[p]) {
			isFloat = true
			lx.pos = p
			for !lx.AtEOF() && isDigit(lx.src[lx.pos]) {
				lx.pos++
			}
		} else {
			lx.pos = save
		}
	}
	if !lx.AtEOF() && (lx.src[lx.pos] == 'f' || lx.src[lx.pos] == 'F') {
		isFloat = true
		lx.pos++
	}

	kind := TokIntLiteral
	if isFloat {
		kind = TokFloatLiteral
	}
	// Octal literals (leading 0, no '.'/'x') are still TokIntLiteral;
	// interpretation of the base happens when the literal value is
	// computed, not in the lexer.
	return Token{Kind: kind, Text: string(lx.src[start:lx.pos]), Line: line}
}

// twoCharOps maps a two-byte operator spelling to its TokenKind. Three
// char operators (<<=, >>=) are checked by extending a matched two-
// char op with a trailing '='.
var twoCharOps = map[[2]byte]TokenKind{
	{'+', '+'}: TokPlusPlus,
	{'-', '-'}: TokMinusMinus,
	{'<', '<'}: TokShiftLeft,
	{'>', '>'}: TokShiftRight,
	{'<', '='}: TokLE,
	{'>', '='}: TokGE,
	{'=', '='}: TokEQ,
	{'!', '='}: TokNE,
	{'&', '&'}: TokAndAnd,
	{'|', '|'}: TokOrOr,
	{'+', '='}: TokAddAssign,
	{'-', '='}: TokSubAssign,
	{'*', '='}: TokMulAssign,
	{'/', '='}: TokDivAssign,
	{'%', '='}: TokModAssign,
	{'&', '='}: TokAndAssign,
	{'|', '='}: TokOrAssign,
	{'^', '='}: TokXorAssign,
	{'#', '#'}: TokHashHash,
}

func (lx *Lexer) scanOperator(start int, line int32) Token {
	b0 := lx.src[lx.pos]
	if lx.pos+1 < len(lx.src) {
		pair := [2]byte{b0, lx.src[lx.pos+1]}
		if kind, ok := twoCharOps[pair]; ok {
			// <<= and >>=
			if (kind == TokShiftLeft || kind == TokShiftRight) && lx.peekByte(2) == '=' {
				lx.pos += 3
				if kind == TokShiftLeft {
					return Token{Kind: TokShlAssign, Text: string(lx.src[start:lx.pos]), Line: line}
				}
				return Token{Kind: TokShrAssign, Text: string(lx.src[start:lx.pos]), Line: line}
			}
			lx.pos += 2
			return Token{Kind: kind, Text: string(lx.src[start:lx.pos]), Line: line}
		}
	}

	// Single ASCII punctuation is its own TokenKind, per token.go.
	if b0 == '#' {
		lx.pos++
		return Token{Kind: TokHash, Text: "#", Line: line}
	}
	if b0 < 0x80 {
		lx.pos++
		return Token{Kind: TokenKind(b0), Text: string(b0), Line: line}
	}

	// Non-ASCII byte not recognized anywhere else: longest-match a run
	// of them as BAD_CHARS so one diagnostic covers a whole garbled
	// run instead of one per byte.
	for !lx.AtEOF() && lx.src[lx.pos] >= 0x80 {
		lx.pos++
	}
	return Token{Kind: TokBadChars, Text: string(lx.src[start:lx.pos]), Line: line}
}

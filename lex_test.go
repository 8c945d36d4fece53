package sdlsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexerIdentifiersAndKeywords(t *testing.T) {
	lx := NewLexer([]byte("foo bar_2 if while"))
	tok := lx.Next()
	assert.Equal(t, TokIdentifier, tok.Kind)
	assert.Equal(t, "foo", tok.Text)

	tok = lx.Next()
	assert.Equal(t, TokIdentifier, tok.Kind)
	assert.Equal(t, "bar_2", tok.Text)

	tok = lx.Next()
	assert.Equal(t, TokKwIf, tok.Kind)
	assert.Equal(t, "if", tok.Text)

	tok = lx.Next()
	assert.Equal(t, TokKwWhile, tok.Kind)
	assert.Equal(t, "while", tok.Text)
}

func TestLexerKeywordClassification(t *testing.T) {
	for text, want := range map[string]TokenKind{
		"if": TokKwIf, "else": TokKwElse, "while": TokKwWhile, "do": TokKwDo,
		"for": TokKwFor, "break": TokKwBreak, "continue": TokKwContinue,
		"discard": TokKwDiscard, "return": TokKwReturn, "struct": TokKwStruct,
		"function": TokKwFunction, "var": TokKwVar, "void": TokKwVoid,
		"true": TokKwTrue, "false": TokKwFalse,
	} {
		lx := NewLexer([]byte(text))
		tok := lx.Next()
		assert.Equal(t, want, tok.Kind, "keyword %q", text)
		assert.Equal(t, text, tok.Text)
	}
}

func TestLexerNonKeywordIdentifierStaysIdentifier(t *testing.T) {
	lx := NewLexer([]byte("ifx whilex int float4"))
	for _, want := range []string{"ifx", "whilex", "int", "float4"} {
		tok := lx.Next()
		assert.Equal(t, TokIdentifier, tok.Kind, "source %q", want)
		assert.Equal(t, want, tok.Text)
	}
}

func TestLexerNumberLiterals(t *testing.T) {
	cases := []struct {
		src  string
		kind TokenKind
	}{
		{"123", TokIntLiteral},
		{"0x1F", TokIntLiteral},
		{"010", TokIntLiteral},
		{"1.5", TokFloatLiteral},
		{"1.5e3", TokFloatLiteral},
		{"1e-3", TokFloatLiteral},
		{"2f", TokFloatLiteral},
	}
	for _, c := range cases {
		lx := NewLexer([]byte(c.src))
		tok := lx.Next()
		assert.Equal(t, c.kind, tok.Kind, "source %q", c.src)
		assert.Equal(t, c.src, tok.Text)
	}
}

func TestLexerStringLiteral(t *testing.T) {
	lx := NewLexer([]byte(`"hello"`))
	tok := lx.Next()
	require.Equal(t, TokStringLiteral, tok.Kind)
	assert.Equal(t, `"hello"`, tok.Text)
}

func TestLexerIncompleteString(t *testing.T) {
	lx := NewLexer([]byte(`"unterminated`))
	tok := lx.Next()
	assert.Equal(t, TokIncompleteString, tok.Kind)
}

func TestLexerIncompleteComment(t *testing.T) {
	lx := NewLexer([]byte(`/* unterminated`))
	tok := lx.Next()
	assert.Equal(t, TokIncompleteComment, tok.Kind)
}

func TestLexerMultiCharOperators(t *testing.T) {
	cases := []struct {
		src  string
		kind TokenKind
	}{
		{"++", TokPlusPlus},
		{"--", TokMinusMinus},
		{"<<", TokShiftLeft},
		{">>", TokShiftRight},
		{"<=", TokLE},
		{">=", TokGE},
		{"==", TokEQ},
		{"!=", TokNE},
		{"&&", TokAndAnd},
		{"||", TokOrOr},
		{"<<=", TokShlAssign},
		{">>=", TokShrAssign},
		{"##", TokHashHash},
	}
	for _, c := range cases {
		lx := NewLexer([]byte(c.src))
		tok := lx.Next()
		assert.Equal(t, c.kind, tok.Kind, "source %q", c.src)
	}
}

func TestLexerSingleCharTokensUseRuneValue(t *testing.T) {
	lx := NewLexer([]byte("+"))
	tok := lx.Next()
	assert.Equal(t, TokenKind('+'), tok.Kind)
}

func TestLexerPushback(t *testing.T) {
	lx := NewLexer([]byte("a b"))
	first := lx.Next()
	lx.Pushback(first)
	replayed := lx.Next()
	assert.Equal(t, first, replayed)
	second := lx.Next()
	assert.Equal(t, "b", second.Text)
}

func TestLexerWhitespaceReporting(t *testing.T) {
	lx := NewLexer([]byte("a  b"))
	lx.ReportWhitespace = true
	a := lx.Next()
	assert.Equal(t, "a", a.Text)
	ws := lx.Next()
	assert.Equal(t, TokWhitespace, ws.Kind)
	assert.Equal(t, "  ", ws.Text)
	b := lx.Next()
	assert.Equal(t, "b", b.Text)
}

func TestLexerEOI(t *testing.T) {
	lx := NewLexer([]byte(""))
	tok := lx.Next()
	assert.True(t, tok.IsEOI())
}

package sdlsl

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestPreprocessor builds a Context+Preprocessor pair over src,
// exactly as driver.go's newPreprocessorFor does but without going
// through CompilerParams, for tests that want to drive the
// preprocessor stage directly.
func newTestPreprocessor(src string) (*Context, *Preprocessor) {
	ctx := NewContext(DefaultSettings(), Allocator{})
	pp := NewPreprocessor(ctx)
	pp.installBuiltins()
	pp.Push("test.sdlsl", []byte(src))
	return ctx, pp
}

func preprocessAll(pp *Preprocessor) string {
	var b strings.Builder
	for {
		t := pp.Next()
		if t.Kind == TokEOI {
			break
		}
		b.WriteString(t.Text)
	}
	return b.String()
}

func TestPreprocessNoDirectivesIsIdentity(t *testing.T) {
	src := "function void main() { return; }"
	_, pp := newTestPreprocessor(src)
	out := preprocessAll(pp)
	assert.Equal(t, src, out)
}

func TestPreprocessStringifyAndPaste(t *testing.T) {
	src := "#define S(x) #x\n#define C(a,b) a##b\nS(C(hello, world))\n"
	_, pp := newTestPreprocessor(src)
	out := preprocessAll(pp)
	assert.Contains(t, out, `"C(hello, world)"`)
}

func TestPreprocessConditionalShortCircuitDivision(t *testing.T) {
	src := "#if defined(X) && (1/0)\nyes\n#else\nno\n#endif\n"
	ctx, pp := newTestPreprocessor(src)
	out := preprocessAll(pp)
	assert.Contains(t, out, "no")
	assert.NotContains(t, out, "yes")
	for _, d := range ctx.Diagnostics() {
		assert.NotContains(t, d.Message, "division by zero")
	}
}

func TestPreprocessIfDivisionByZeroReportsError(t *testing.T) {
	src := "#if 1/0\nyes\n#endif\n"
	ctx, pp := newTestPreprocessor(src)
	out := preprocessAll(pp)
	assert.NotContains(t, out, "yes")
	found := false
	for _, d := range ctx.Diagnostics() {
		if strings.Contains(d.Message, "ivision") {
			found = true
		}
	}
	assert.True(t, found, "expected a division-by-zero diagnostic")
}

func TestPreprocessMacroRedefinitionWarns(t *testing.T) {
	src := "#define X 1\n#define X 1\n"
	ctx, pp := newTestPreprocessor(src)
	preprocessAll(pp)
	warned := false
	for _, d := range ctx.Diagnostics() {
		if !d.IsError {
			warned = true
		}
	}
	assert.True(t, warned, "redefining a macro, even identically, should warn")
}

func TestPreprocessUndefMissingMacroIsNoop(t *testing.T) {
	src := "#undef NOPE\nok\n"
	ctx, pp := newTestPreprocessor(src)
	out := preprocessAll(pp)
	assert.Contains(t, out, "ok")
	assert.False(t, ctx.Failed())
}

func TestPreprocessFileAndLineBuiltins(t *testing.T) {
	src := "__LINE__\n__LINE__\n"
	_, pp := newTestPreprocessor(src)
	out := preprocessAll(pp)
	assert.Contains(t, out, "1")
	assert.Contains(t, out, "2")
}

func TestPreprocessLineDirectiveOverride(t *testing.T) {
	src := "#line 100 \"other.sdlsl\"\n__LINE__\n"
	_, pp := newTestPreprocessor(src)
	out := preprocessAll(pp)
	assert.Contains(t, out, "100")
}

func TestPreprocessErrorDirective(t *testing.T) {
	src := "#error custom failure\n"
	ctx, pp := newTestPreprocessor(src)
	preprocessAll(pp)
	require.True(t, ctx.Failed())
	found := false
	for _, d := range ctx.Diagnostics() {
		if strings.Contains(d.Message, "custom failure") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestPreprocessPragmaPassesThrough(t *testing.T) {
	src := "#pragma pack(4)\nok\n"
	_, pp := newTestPreprocessor(src)
	out := preprocessAll(pp)
	assert.Contains(t, out, "#pragma pack(4)")
	assert.Contains(t, out, "ok")
}

func TestPreprocessUnterminatedConditionalReportsError(t *testing.T) {
	src := "#if 1\nok\n"
	ctx, pp := newTestPreprocessor(src)
	preprocessAll(pp)
	assert.True(t, ctx.Failed())
}

func TestPreprocessStrayEndifIsError(t *testing.T) {
	src := "#endif\n"
	ctx, pp := newTestPreprocessor(src)
	preprocessAll(pp)
	assert.True(t, ctx.Failed())
}

func TestPreprocessFunctionLikeMacroVoidCall(t *testing.T) {
	src := "#define M() 42\nM()\n"
	_, pp := newTestPreprocessor(src)
	out := preprocessAll(pp)
	assert.Contains(t, out, "42")
}

func TestPreprocessFunctionLikeMacroWithArgs(t *testing.T) {
	src := "#define ADD(a, b) (a + b)\nADD(1, 2)\n"
	_, pp := newTestPreprocessor(src)
	out := preprocessAll(pp)
	assert.Contains(t, out, "(1 + 2)")
}

func TestPreprocessRecursionGuard(t *testing.T) {
	src := "#define A A\nA\n"
	_, pp := newTestPreprocessor(src)
	out := preprocessAll(pp)
	assert.Contains(t, out, "A")
}

func TestPreprocessStripCommentsCollapsesToSpace(t *testing.T) {
	_, pp := newTestPreprocessor("a/*c*/b\n")
	pp.StripComments = true
	out := preprocessAll(pp)
	assert.Equal(t, "a b\n", out)
}

func TestPreprocessIdempotentWithStripComments(t *testing.T) {
	src := "a/*c*/b\n"
	_, pp1 := newTestPreprocessor(src)
	pp1.StripComments = true
	once := preprocessAll(pp1)

	_, pp2 := newTestPreprocessor(once)
	pp2.StripComments = true
	twice := preprocessAll(pp2)

	assert.Equal(t, once, twice)
}

func TestPreprocessIncludeDefaultResolver(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(dir+"/inc.sdlsl", []byte("included\n"), 0644))

	ctx := NewContext(DefaultSettings(), Allocator{})
	pp := NewPreprocessor(ctx)
	pp.installBuiltins()
	pp.SetIncludePaths(nil, []string{dir})
	pp.Push("main.sdlsl", []byte("#include \"inc.sdlsl\"\n"))
	out := preprocessAll(pp)
	assert.Contains(t, out, "included")
}

func TestPreprocessIncludeRejectsDotDotByDefault(t *testing.T) {
	ctx := NewContext(DefaultSettings(), Allocator{})
	pp := NewPreprocessor(ctx)
	pp.installBuiltins()
	pp.SetIncludePolicy(false, false)
	pp.Push("main.sdlsl", []byte("#include \"../etc/passwd\"\n"))
	preprocessAll(pp)
	assert.True(t, ctx.Failed())
}

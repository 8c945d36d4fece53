package sdlsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseSource drives the full preprocess -> parse pipeline over src
// and returns the resulting Context (for diagnostics) and Shader.
func parseSource(src string) (*Context, *Shader) {
	ctx := NewContext(DefaultSettings(), Allocator{})
	pp := NewPreprocessor(ctx)
	pp.installBuiltins()
	pp.Push("test.sdlsl", []byte(src))
	p := NewParser(ctx, pp)
	return ctx, p.ParseShader()
}

func TestParserEmptyShader(t *testing.T) {
	ctx, sh := parseSource("")
	require.False(t, ctx.Failed())
	assert.Empty(t, sh.Units)
}

func TestParserSimpleFunction(t *testing.T) {
	ctx, sh := parseSource(`
function void main() {
	return;
}
`)
	require.False(t, ctx.Failed())
	require.Len(t, sh.Units, 1)
	tu, ok := sh.Units[0].(*TUFunction)
	require.True(t, ok)
	assert.Equal(t, "main", *tu.Func.Name)
	require.Len(t, tu.Func.Body.Stmts, 1)
	_, ok = tu.Func.Body.Stmts[0].(*StmtReturn)
	assert.True(t, ok)
}

func TestParserCStyleAndColonStyleDecls(t *testing.T) {
	_, sh := parseSource(`
function void main() {
	var int a;
	var b : int;
}
`)
	require.Len(t, sh.Units, 1)
	fn := sh.Units[0].(*TUFunction).Func
	require.Len(t, fn.Body.Stmts, 2)

	first := fn.Body.Stmts[0].(*StmtVarDecl).Decl
	assert.True(t, first.CStyle)
	assert.Equal(t, "a", *first.Name)
	assert.Equal(t, "int", *first.TypeName)

	second := fn.Body.Stmts[1].(*StmtVarDecl).Decl
	assert.False(t, second.CStyle)
	assert.Equal(t, "b", *second.Name)
	assert.Equal(t, "int", *second.TypeName)
}

func TestParserStructDecl(t *testing.T) {
	_, sh := parseSource(`
struct Light {
	float3 position;
	float intensity;
};
`)
	require.Len(t, sh.Units, 1)
	tu, ok := sh.Units[0].(*TUStruct)
	require.True(t, ok)
	assert.Equal(t, "Light", *tu.Struct.Name)
	require.Len(t, tu.Struct.Members, 2)
	assert.Equal(t, "position", *tu.Struct.Members[0].Decl.Name)
	assert.Equal(t, "intensity", *tu.Struct.Members[1].Decl.Name)
}

func TestParserChainedAssignment(t *testing.T) {
	_, sh := parseSource(`
function void main() {
	var int a;
	var int b;
	var int c;
	a = b = c = 1;
}
`)
	fn := sh.Units[0].(*TUFunction).Func
	assign := fn.Body.Stmts[3].(*StmtAssign)
	require.Len(t, assign.Targets, 3)
	assert.IsType(t, &ExprIntLit{}, assign.Value)
}

func TestParserForLoopVariants(t *testing.T) {
	_, sh := parseSource(`
function void main() {
	for (var int i = 0; i < 10; i++) {
		continue;
	}
}
`)
	fn := sh.Units[0].(*TUFunction).Func
	forStmt := fn.Body.Stmts[0].(*StmtFor)
	require.NotNil(t, forStmt.Details.Init)
	require.NotNil(t, forStmt.Details.Cond)
	require.NotNil(t, forStmt.Details.Step)
}

func TestParserDoWhileAndWhile(t *testing.T) {
	_, sh := parseSource(`
function void main() {
	while (1) {
		break;
	}
	do {
		break;
	} while (1);
}
`)
	fn := sh.Units[0].(*TUFunction).Func
	_, ok := fn.Body.Stmts[0].(*StmtWhile)
	assert.True(t, ok)
	_, ok = fn.Body.Stmts[1].(*StmtDoWhile)
	assert.True(t, ok)
}

func TestParserFunctionWithAttribute(t *testing.T) {
	_, sh := parseSource(`
function float4 main() @vertex {
	return float4(0, 0, 0, 1);
}
`)
	fn := sh.Units[0].(*TUFunction).Func
	require.NotNil(t, fn.Attr)
	assert.Equal(t, "vertex", *fn.Attr.Name)
}

func TestParserExpressionPrecedence(t *testing.T) {
	_, sh := parseSource(`
function void main() {
	var int a;
	a = 1 + 2 * 3;
}
`)
	fn := sh.Units[0].(*TUFunction).Func
	assign := fn.Body.Stmts[1].(*StmtAssign)
	bin := assign.Value.(*ExprBinary)
	assert.Equal(t, TokenKind('+'), bin.Op)
	_, ok := bin.Left.(*ExprIntLit)
	assert.True(t, ok)
	rhs, ok := bin.Right.(*ExprBinary)
	require.True(t, ok)
	assert.Equal(t, TokenKind('*'), rhs.Op)
}

func TestParserSwizzleField(t *testing.T) {
	_, sh := parseSource(`
function void main() {
	var float4 v;
	var float2 w;
	w = v.xy;
}
`)
	fn := sh.Units[0].(*TUFunction).Func
	assign := fn.Body.Stmts[2].(*StmtAssign)
	field := assign.Value.(*ExprField)
	assert.Equal(t, "xy", *field.Field)
}

func TestParserSyntaxErrorReported(t *testing.T) {
	ctx, _ := parseSource(`
function void main() {
	var int a = ;
}
`)
	assert.True(t, ctx.Failed())
}

func TestParserRoundTripPrintAndReparse(t *testing.T) {
	src := `
function float4 main() @fragment {
	var float a;
	a = 1 + 2 * 3;
	if (a > 0) {
		return float4(a, a, a, 1);
	} else {
		return float4(0, 0, 0, 0);
	}
}
`
	ctx1, sh1 := parseSource(src)
	require.False(t, ctx1.Failed())

	printed := PrintShader(sh1)

	ctx2, sh2 := parseSource(printed)
	require.False(t, ctx2.Failed())

	printedAgain := PrintShader(sh2)
	assert.Equal(t, printed, printedAgain)
}

package sdlsl

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// analyzeSource parses and runs semantic analysis over src, returning
// the Context (for diagnostics) and the annotated Shader.
func analyzeSource(src string) (*Context, *Shader) {
	ctx, sh := parseSource(src)
	Analyze(ctx, sh)
	return ctx, sh
}

func TestSemaSwizzleTyping(t *testing.T) {
	ctx, sh := analyzeSource(`
function void main() {
	var float4 v;
	var float2 w;
	w = v.xy;
}
`)
	require.False(t, ctx.Failed())
	fn := sh.Units[0].(*TUFunction).Func
	assign := fn.Body.Stmts[2].(*StmtAssign)
	field := assign.Value.(*ExprField)
	assert.Equal(t, "xy", field.Swizzle)
	require.NotNil(t, field.DataType())
	assert.Equal(t, "float2", field.DataType().String())
}

func TestSemaSwizzleMixedSetRejected(t *testing.T) {
	ctx, _ := analyzeSource(`
function void main() {
	var float4 v;
	var float2 w;
	w = v.xr;
}
`)
	assert.True(t, ctx.Failed())
}

func TestSemaSwizzleTooLongRejected(t *testing.T) {
	ctx, _ := analyzeSource(`
function void main() {
	var float4 v;
	var float a;
	a = v.xyzwx;
}
`)
	assert.True(t, ctx.Failed())
}

func TestSemaForwardFunctionReference(t *testing.T) {
	ctx, sh := analyzeSource(`
function int caller() {
	return callee();
}
function int callee() {
	return 1;
}
`)
	require.False(t, ctx.Failed())
	callerFn := sh.Units[0].(*TUFunction).Func
	ret := callerFn.Body.Stmts[0].(*StmtReturn)
	call := ret.Value.(*ExprCall)
	require.NotNil(t, call.Func)
	assert.Equal(t, "callee", *call.Func.Name)
}

func TestSemaBreakOutsideLoopIsError(t *testing.T) {
	ctx, _ := analyzeSource(`
function void main() {
	break;
}
`)
	assert.True(t, ctx.Failed())
}

func TestSemaContinueInsideLoopOK(t *testing.T) {
	ctx, _ := analyzeSource(`
function void main() {
	while (true) {
		continue;
	}
}
`)
	assert.False(t, ctx.Failed())
}

func TestSemaFunctionRedefinitionIsError(t *testing.T) {
	ctx, _ := analyzeSource(`
function void main() {
	return;
}
function void main() {
	return;
}
`)
	assert.True(t, ctx.Failed())
}

func TestSemaStructRedefinitionIsError(t *testing.T) {
	ctx, _ := analyzeSource(`
struct Foo {
	int a;
};
struct Foo {
	int b;
};
function void main() {
	return;
}
`)
	assert.True(t, ctx.Failed())
}

func TestSemaDiscardOutsideFragmentIsError(t *testing.T) {
	ctx, _ := analyzeSource(`
function void main() {
	discard;
}
`)
	assert.True(t, ctx.Failed())
}

func TestSemaDiscardInsideFragmentOK(t *testing.T) {
	ctx, _ := analyzeSource(`
function float4 main() @fragment {
	discard;
	return float4(0, 0, 0, 0);
}
`)
	assert.False(t, ctx.Failed())
}

func TestSemaUndefinedIdentifierThrottle(t *testing.T) {
	src := "function void main() {\n\tvar int a;\n"
	for i := 0; i < 20; i++ {
		src += "\ta = undef" + strconv.Itoa(i) + ";\n"
	}
	src += "}\n"

	ctx, _ := analyzeSource(src)
	require.True(t, ctx.Failed())

	tooMany := 0
	for _, d := range ctx.Diagnostics() {
		if strings.Contains(d.Message, "too many undefined items") {
			tooMany++
		}
	}
	assert.Equal(t, 1, tooMany, "the throttle message should fire exactly once")
}

func TestSemaCyclicStructReferences(t *testing.T) {
	ctx, _ := analyzeSource(`
struct A {
	B child;
};
struct B {
	int value;
};
function void main() {
	return;
}
`)
	assert.False(t, ctx.Failed())
}

func TestSemaVertexAttributeResolvesFnType(t *testing.T) {
	_, sh := analyzeSource(`
function float4 main() @vertex {
	return float4(0, 0, 0, 1);
}
`)
	fn := sh.Units[0].(*TUFunction).Func
	assert.Equal(t, FuncVertex, fn.FnType)
}

func TestSemaConstructorArity(t *testing.T) {
	ctx, sh := analyzeSource(`
function void main() {
	var float4 a;
	a = float4(1, 2);
}
`)
	require.False(t, ctx.Failed())
	fn := sh.Units[0].(*TUFunction).Func
	assign := fn.Body.Stmts[1].(*StmtAssign)
	call := assign.Value.(*ExprCall)
	assert.True(t, call.IsConstructor)
}

func TestSemaArrayBoundConstantFolding(t *testing.T) {
	ctx, sh := analyzeSource(`
function void main() {
	var int a[2 + 3];
}
`)
	require.False(t, ctx.Failed())
	fn := sh.Units[0].(*TUFunction).Func
	decl := fn.Body.Stmts[0].(*StmtVarDecl).Decl
	dt := decl.DataType()
	require.NotNil(t, dt)
	assert.Equal(t, KindArray, dt.Kind)
	assert.Equal(t, 5, dt.Count)
	assert.Equal(t, "int", dt.Elem.String())
}

func TestSemaArrayBoundZeroClampsToOneWithError(t *testing.T) {
	ctx, sh := analyzeSource(`
function void main() {
	var int a[0];
}
`)
	assert.True(t, ctx.Failed())
	fn := sh.Units[0].(*TUFunction).Func
	decl := fn.Body.Stmts[0].(*StmtVarDecl).Decl
	assert.Equal(t, 1, decl.DataType().Count)
}

func TestSemaArrayBoundNonConstantIsError(t *testing.T) {
	ctx, _ := analyzeSource(`
function void main() {
	var int n;
	var int a[n];
}
`)
	assert.True(t, ctx.Failed())
}

func TestSemaReservedNameRejectsKeywordSpelling(t *testing.T) {
	ctx, _ := analyzeSource(`
function void if() {
	return;
}
`)
	require.True(t, ctx.Failed())
	found := false
	for _, d := range ctx.Diagnostics() {
		if strings.Contains(d.Message, "reserved keyword") {
			found = true
		}
	}
	assert.True(t, found, "expected a reserved-keyword diagnostic, not just a parse failure")
}

func TestSemaReservedNameRejectsColonStyleKeywordSpelling(t *testing.T) {
	ctx, _ := analyzeSource(`
function void main() {
	var while : int;
}
`)
	require.True(t, ctx.Failed())
	found := false
	for _, d := range ctx.Diagnostics() {
		if strings.Contains(d.Message, "reserved keyword") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestSemaDatatypeUniquenessIsPointerIdentity(t *testing.T) {
	ctx, sh := analyzeSource(`
function void main() {
	var float4 a;
	var float4 b;
}
`)
	require.False(t, ctx.Failed())
	fn := sh.Units[0].(*TUFunction).Func
	a := fn.Body.Stmts[0].(*StmtVarDecl).Decl.DataType()
	b := fn.Body.Stmts[1].(*StmtVarDecl).Decl.DataType()
	assert.True(t, SameType(a, b))
}

package sdlsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriverPreprocessBasic(t *testing.T) {
	res := Preprocess(CompilerParams{
		Filename: "main.sdlsl",
		Source:   []byte("#define X 42\nX\n"),
	}, false)
	require.False(t, res.OutOfMemory)
	assert.Contains(t, res.Output, "42")
}

func TestDriverPreprocessEmptySource(t *testing.T) {
	res := Preprocess(CompilerParams{Filename: "main.sdlsl", Source: []byte("")}, false)
	assert.False(t, res.OutOfMemory)
}

func TestDriverParseToASTSucceeds(t *testing.T) {
	res := ParseToAST(CompilerParams{
		Filename: "main.sdlsl",
		Source:   []byte("function void main() { return; }"),
	})
	defer FreeParseResult(res)
	require.False(t, res.OutOfMemory)
	assert.Equal(t, DefaultSourceProfile, res.SourceProfile)
	require.NotNil(t, res.Shader)
	for _, d := range res.Diagnostics {
		assert.False(t, d.IsError)
	}
}

func TestDriverParseToASTReportsSyntaxErrors(t *testing.T) {
	res := ParseToAST(CompilerParams{
		Filename: "main.sdlsl",
		Source:   []byte("function void main() { var int a = ; }"),
	})
	defer FreeParseResult(res)
	require.False(t, res.OutOfMemory)
	hasError := false
	for _, d := range res.Diagnostics {
		if d.IsError {
			hasError = true
		}
	}
	assert.True(t, hasError)
}

func TestDriverCompileSkipsOutputOnFailure(t *testing.T) {
	res := Compile(CompilerParams{
		Filename: "main.sdlsl",
		Source:   []byte("function void main() { break; }"),
	})
	assert.Nil(t, res.Output)
	hasError := false
	for _, d := range res.Diagnostics {
		if d.IsError {
			hasError = true
		}
	}
	assert.True(t, hasError)
}

func TestDriverCompileProducesOutputOnSuccess(t *testing.T) {
	res := Compile(CompilerParams{
		Filename: "main.sdlsl",
		Source:   []byte("function void main() { return; }"),
	})
	require.False(t, res.OutOfMemory)
	assert.NotNil(t, res.Output)
	assert.NotEmpty(t, res.Output)
}

func TestDriverOOMAllocatorTripsSentinel(t *testing.T) {
	calls := 0
	alloc := Allocator{
		AllocFunc: func(units int, userdata interface{}) bool {
			calls++
			return calls < 2
		},
	}
	res := Preprocess(CompilerParams{
		Filename:  "main.sdlsl",
		Source:    []byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa\n"),
		Allocator: alloc,
	}, false)
	assert.True(t, res.OutOfMemory)
	assert.True(t, res.Diagnostics[0].IsError)
}

func TestDriverFreeParseResultSafeOnSentinelAndDouble(t *testing.T) {
	calls := 0
	alloc := Allocator{
		AllocFunc: func(units int, userdata interface{}) bool {
			calls++
			return false
		},
	}
	res := ParseToAST(CompilerParams{
		Filename:  "main.sdlsl",
		Source:    []byte("function void main() { return; }"),
		Allocator: alloc,
	})
	require.True(t, res.OutOfMemory)
	assert.NotPanics(t, func() {
		FreeParseResult(res)
		FreeParseResult(res)
	})
}

func TestDriverContextCloseIsIdempotent(t *testing.T) {
	ctx := NewContext(DefaultSettings(), Allocator{})
	assert.NotPanics(t, func() {
		ctx.Close()
		ctx.Close()
	})
}

func TestDriverAllocatorFreeFuncCalledOnce(t *testing.T) {
	freed := 0
	alloc := Allocator{
		FreeFunc: func(userdata interface{}) { freed++ },
	}
	ctx := NewContext(DefaultSettings(), alloc)
	ctx.Close()
	ctx.Close()
	assert.Equal(t, 1, freed)
}

func TestDriverPredefinedMacros(t *testing.T) {
	res := Preprocess(CompilerParams{
		Filename:         "main.sdlsl",
		Source:           []byte("VALUE\n"),
		PredefinedMacros: []MacroDefinition{{Identifier: "VALUE", Definition: "7"}},
	}, false)
	assert.Contains(t, res.Output, "7")
}

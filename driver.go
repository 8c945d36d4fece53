package sdlsl

import "strings"

// driver.go is the public entry-point surface spec.md §6 describes:
// the compilation Context that owns every allocated object, the
// CompilerParams input record, and the three public operations
// (Preprocess, ParseToAST, Compile). Grounded on
// SDL_shader_compiler.c's top-level compile_shader_internal/
// preprocess_shader_internal dispatch and on the teacher's api.go
// "thin function that wires parse -> transform -> compile" shape --
// here "transform" is the semantic analyzer, not a grammar
// transformation pipeline.

// AllocFunc models one allocation request of the given unit count,
// returning false to signal the allocator is exhausted. FreeFunc
// releases whatever resources userdata represents when the owning
// Context is destroyed. This is spec.md §5's "every allocation goes
// through an {alloc(size, userdata), free(ptr, userdata)} pair"
// allocator-injection contract, rendered for a Go port: Go's own
// runtime already backs every slice/map/struct allocation the core
// makes, so what the injection point actually needs to preserve is
// the *sticky OOM short-circuit behavior* (spec.md §5, §7), not
// byte-for-byte parity with a C bump allocator. A caller that wants to
// exercise the sticky-OOM contract supplies an AllocFunc that starts
// returning false after a fixed budget; the default Allocator never
// fails.
type AllocFunc func(units int, userdata interface{}) bool

// FreeFunc is called exactly once, when the owning Context is
// destroyed, mirroring spec.md §5's "the caller cancels by destroying
// the context, which frees all owned memory."
type FreeFunc func(userdata interface{})

// Allocator is the allocator pair plus its userdata threaded through a
// single compilation, per spec.md §6 CompilerParams.
type Allocator struct {
	AllocFunc AllocFunc
	FreeFunc  FreeFunc
	Userdata  interface{}
}

// defaultAllocator never reports exhaustion; it is what every
// CompilerParams gets when Allocator is left zero-valued.
func defaultAllocator() Allocator {
	return Allocator{}
}

// Context is the compilation context: it exclusively owns the string
// interner, the datatype table, the error list, the include stack, the
// macro table, and the scope stack/pool for one compilation, per
// spec.md §3 Ownership and §5 Shared-resource policy. Two Contexts
// never share mutable state, satisfying §5's instance-isolation
// concurrency guarantee.
type Context struct {
	intern   *Interner
	types    *datatypeUniverse
	scope    *Scope
	macros   *macroTable
	includes *includeStack
	diags    diagList
	settings Settings

	isfail bool
	isiced bool

	alloc       Allocator
	outOfMemory bool

	freed bool
}

// NewContext allocates a fresh, empty compilation context. Callers
// normally reach it only through Preprocess/ParseToAST/Compile; it is
// exported so tests can drive the sub-stages (preprocessor, parser,
// analyzer) directly without going through the full driver surface.
func NewContext(settings Settings, alloc Allocator) *Context {
	intern := NewInterner()
	return &Context{
		intern:   intern,
		types:    newDatatypeUniverse(intern),
		scope:    NewScope(),
		macros:   newMacroTable(),
		includes: &includeStack{},
		settings: settings,
		alloc:    alloc,
	}
}

// checkAlloc routes one allocation request of the given unit count
// through the injected Allocator, setting the sticky out_of_memory
// flag and refusing all further work once it trips (spec.md §5, §7
// "An OOM observation sets a sticky out_of_memory flag that
// short-circuits subsequent allocations"). Once tripped it stays
// tripped for the life of the Context -- there is no recovery path,
// matching the spec's "subsequent operations no-op" wording.
func (ctx *Context) checkAlloc(units int) bool {
	if ctx.outOfMemory {
		return false
	}
	if ctx.alloc.AllocFunc != nil && !ctx.alloc.AllocFunc(units, ctx.alloc.Userdata) {
		ctx.outOfMemory = true
		return false
	}
	return true
}

// OutOfMemory reports whether this context's sticky OOM flag has
// tripped.
func (ctx *Context) OutOfMemory() bool { return ctx.outOfMemory }

// Failed reports whether any fail()/ice() call has been made against
// this context (the sticky isfail flag, spec.md §4.5).
func (ctx *Context) Failed() bool { return ctx.isfail }

// ICE reports whether an internal-compiler-error has been recorded.
func (ctx *Context) ICE() bool { return ctx.isiced }

// Diagnostics returns every diagnostic recorded so far, in source
// order (spec.md §3 "final flatten").
func (ctx *Context) Diagnostics() []Diagnostic { return ctx.diags.flatten() }

// Close releases every resource the context owns: closes any include
// states still on the stack (invoking their close callbacks) and
// invokes the injected FreeFunc exactly once, per spec.md §5 "the
// caller cancels by destroying the context, which frees all owned
// memory." Close is idempotent.
func (ctx *Context) Close() {
	if ctx.freed {
		return
	}
	ctx.freed = true
	for !ctx.includes.empty() {
		ctx.includes.pop()
	}
	if ctx.alloc.FreeFunc != nil {
		ctx.alloc.FreeFunc(ctx.alloc.Userdata)
	}
}

// MacroDefinition is one caller-supplied pre-defined macro, per
// spec.md §6 CompilerParams "pre-defined macros (array of {identifier,
// definition})".
type MacroDefinition struct {
	Identifier string
	Definition string
}

// DefaultSourceProfile is used when CompilerParams.SourceProfile is
// empty, per spec.md §6 "source profile (nullable -> default
// 'sdlsl_1_0')".
const DefaultSourceProfile = "sdlsl_1_0"

// CompilerParams bundles every input to Preprocess/ParseToAST/Compile,
// per spec.md §6.
type CompilerParams struct {
	SourceProfile string
	Filename      string
	Source        []byte

	AllowDotDotIncludes   bool
	AllowAbsoluteIncludes bool

	PredefinedMacros   []MacroDefinition
	SystemIncludePaths []string
	LocalIncludePaths  []string

	IncludeOpen  IncludeOpenFunc
	IncludeClose IncludeCloseFunc

	Allocator Allocator

	// Settings overrides the analyzer's tunable limits; a zero value
	// falls back to DefaultSettings() with AllowDotDotIncludes/
	// AllowAbsoluteIncludes copied from this struct's own fields.
	Settings *Settings
}

func (p CompilerParams) profile() string {
	if p.SourceProfile == "" {
		return DefaultSourceProfile
	}
	return p.SourceProfile
}

func (p CompilerParams) resolveSettings() Settings {
	s := DefaultSettings()
	if p.Settings != nil {
		s = *p.Settings
	}
	s.AllowDotDotIncludes = p.AllowDotDotIncludes
	s.AllowAbsoluteIncludes = p.AllowAbsoluteIncludes
	return s
}

// newPreprocessorFor builds a Context + Preprocessor pair wired up
// from params, pushes the root source buffer, and installs builtins
// and pre-defined macros. Shared by all three entry points.
func newPreprocessorFor(params CompilerParams) (*Context, *Preprocessor) {
	alloc := params.Allocator
	if alloc.AllocFunc == nil && alloc.FreeFunc == nil {
		alloc = defaultAllocator()
	}
	ctx := NewContext(params.resolveSettings(), alloc)

	filename := params.Filename
	if filename == "" {
		filename = "<source>"
	}

	pp := NewPreprocessor(ctx)
	pp.SetIncludeCallbacks(params.IncludeOpen, params.IncludeClose)
	pp.SetIncludePaths(params.SystemIncludePaths, params.LocalIncludePaths)
	pp.SetIncludePolicy(params.AllowDotDotIncludes, params.AllowAbsoluteIncludes)
	pp.installBuiltins()
	for _, m := range params.PredefinedMacros {
		pp.DefineMacro(m.Identifier, m.Definition)
	}
	pp.Push(filename, params.Source)
	return ctx, pp
}

// --- Preprocess ---

// PreprocessResult is the output of Preprocess, per spec.md §6.
type PreprocessResult struct {
	Diagnostics []Diagnostic
	Output      string
	OutOfMemory bool
}

var oomPreprocessResult = &PreprocessResult{
	Diagnostics: []Diagnostic{{IsError: true, Message: "out of memory"}},
	OutOfMemory: true,
}

// Preprocess runs only the preprocessor stage, returning preprocessed
// source text (spec.md §6 "Preprocess entry point"). Whitespace
// collapsing for stripped comments is handled inside Preprocessor.Next
// (it already substitutes a single space token for a stripped
// comment, spec.md §6 "a dropped multi-line comment between two
// non-whitespace tokens becomes a single space").
func Preprocess(params CompilerParams, stripComments bool) *PreprocessResult {
	ctx, pp := newPreprocessorFor(params)
	defer ctx.Close()
	pp.StripComments = stripComments

	var out strings.Builder
	for {
		if !ctx.checkAlloc(1) {
			return oomPreprocessResult
		}
		t := pp.Next()
		if t.Kind == TokEOI {
			break
		}
		out.WriteString(t.Text)
	}

	if ctx.outOfMemory {
		return oomPreprocessResult
	}
	return &PreprocessResult{
		Diagnostics: ctx.Diagnostics(),
		Output:      out.String(),
	}
}

// --- ParseToAST ---

// ParseResult is the output of ParseToAST, per spec.md §6. Ctx must be
// passed to FreeParseResult once the caller is done with Shader (it
// owns the interner, datatype table, and every AST node).
type ParseResult struct {
	Diagnostics   []Diagnostic
	SourceProfile string
	Shader        *Shader
	Ctx           *Context
	OutOfMemory   bool
}

var oomParseResult = &ParseResult{
	Diagnostics: []Diagnostic{{IsError: true, Message: "out of memory"}},
	OutOfMemory: true,
}

// ParseToAST runs the preprocessor, parser, and semantic analyzer in
// sequence, returning the annotated AST (spec.md §6 "Parse-to-AST
// entry point"). Parsing proceeds even if the preprocessor reported
// errors (spec.md §4.5: "non-fatal errors do not abort"). The sticky
// isfail flag is checked once parsing is done: semantic analysis runs
// only when neither the preprocessor nor the parser reported an error.
// Out of memory at any stage returns the OOM sentinel result.
func ParseToAST(params CompilerParams) *ParseResult {
	ctx, pp := newPreprocessorFor(params)
	if ctx.outOfMemory {
		ctx.Close()
		return oomParseResult
	}

	parser := NewParser(ctx, pp)
	sh := parser.ParseShader()

	if ctx.outOfMemory {
		ctx.Close()
		return oomParseResult
	}

	if !ctx.Failed() {
		Analyze(ctx, sh)
	}

	if ctx.outOfMemory {
		ctx.Close()
		return oomParseResult
	}

	return &ParseResult{
		Diagnostics:   ctx.Diagnostics(),
		SourceProfile: params.profile(),
		Shader:        sh,
		Ctx:           ctx,
	}
}

// FreeParseResult releases the Context owning r.Shader. Safe to call
// on the OOM sentinel (a no-op there, per spec.md §7 "safe to pass to
// the matching free function, which must be a no-op for the
// sentinel") and safe to call twice.
func FreeParseResult(r *ParseResult) {
	if r == nil || r == oomParseResult || r.Ctx == nil {
		return
	}
	r.Ctx.Close()
}

// --- Compile ---

// CompileResult is the output of Compile, per spec.md §6. The back-end
// code generator is out of scope (spec.md §1); Output is produced by
// bytecode.go's inert stub encoder.
type CompileResult struct {
	Diagnostics   []Diagnostic
	SourceProfile string
	Output        []byte
	OutOfMemory   bool
}

var oomCompileResult = &CompileResult{
	Diagnostics: []Diagnostic{{IsError: true, Message: "out of memory"}},
	OutOfMemory: true,
}

// Compile runs preprocess -> parse -> analyze -> (stub) codegen, per
// spec.md §6 "Compile entry point". Codegen is skipped when the
// context's sticky isfail flag is set (spec.md §7 "a non-empty error
// list with any is_error = true causes the entry point to skip output
// generation but still return diagnostics"); Output is nil in that
// case.
func Compile(params CompilerParams) *CompileResult {
	pr := ParseToAST(params)
	defer FreeParseResult(pr)
	if pr.OutOfMemory {
		return oomCompileResult
	}

	res := &CompileResult{
		Diagnostics:   pr.Diagnostics,
		SourceProfile: pr.SourceProfile,
	}
	if !pr.Ctx.Failed() {
		res.Output = emitStubModule(pr.Shader)
	}
	return res
}

package sdlsl

import "strings"

// Sema is the semantic analyzer: it walks a parsed Shader, builds the
// datatype universe, resolves identifiers, and annotates every AST
// node with its datatype, per spec.md §4.4's five numbered steps.
//
// Grounded on other_examples' Zenith compiler's semantic_analyzer.go
// two-pass shape (register declarations first so forward references
// resolve, then walk bodies) generalized to SDLSL's three forward-
// reference axes: function-to-function, struct-to-struct, and
// function-to-struct, which spec.md §9 "Cyclic references" calls out
// as needing a stub-then-fill strategy.
type Sema struct {
	ctx    *Context
	shader *Shader

	// undefinedCount implements the per-function undefined-symbol
	// throttle (spec.md §4.4 "at most 16 distinct undefined
	// identifiers... counter resets when entering a new function").
	undefinedCount int
}

// Analyze runs every semantic-analysis step over sh, appending
// diagnostics to ctx as it goes. It does not stop early on ordinary
// (non-ICE) failures -- matching spec.md §4.5's "individual passes
// continue within themselves" -- so a single malformed declaration
// doesn't suppress diagnostics about the rest of the shader.
func Analyze(ctx *Context, sh *Shader) {
	s := &Sema{ctx: ctx, shader: sh}
	s.gatherGlobals()
	s.buildDatatypes()
	s.resolveFunctionSignatures()
	s.walkAll()
}

// checkReservedName reports an error if name is one of the language's
// reserved keywords (SPEC_FULL.md supplemented feature 6). The lexer
// classifies keyword spellings as their own TokKwXxx kind rather than
// TokIdentifier, but parser.go's expectName deliberately accepts
// either kind at every declaration-name position (function, struct,
// parameter, var) so a keyword-spelled name still parses and lands
// here, where it gets a clear "reserved keyword" diagnostic instead of
// a generic parse error.
func checkReservedName(ctx *Context, loc SourceLocation, name *string) {
	if name == nil {
		return
	}
	if _, ok := IsKeyword(*name); ok {
		ctx.fail(loc, "'%s' is a reserved keyword and cannot be used as a declaration name", *name)
	}
}

// --- step 1: gather globals ---

func (s *Sema) gatherGlobals() {
	ctx := s.ctx
	funcsSeen := map[*string]*FunctionDecl{}
	structsSeen := map[*string]*StructDecl{}
	var lastFn *FunctionDecl
	var lastStruct *StructDecl

	for _, tu := range s.shader.Units {
		switch u := tu.(type) {
		case *TUFunction:
			f := u.Func
			if f.Name != nil {
				checkReservedName(ctx, f.Loc, f.Name)
				if prev, dup := funcsSeen[f.Name]; dup {
					ctx.fail(f.Loc, "redefinition of function '%s'", *f.Name)
					ctx.fail(prev.Loc, "previous definition of '%s' is here", *f.Name)
				} else {
					funcsSeen[f.Name] = f
				}
			}
			if lastFn == nil {
				s.shader.Functions = f
			} else {
				lastFn.nextfn = f
			}
			lastFn = f

		case *TUStruct:
			st := u.Struct
			if st.Name != nil {
				checkReservedName(ctx, st.Loc, st.Name)
				if prev, dup := structsSeen[st.Name]; dup {
					ctx.fail(st.Loc, "redefinition of struct '%s'", *st.Name)
					ctx.fail(prev.Loc, "previous definition of '%s' is here", *st.Name)
				} else {
					structsSeen[st.Name] = st
				}
			}
			if lastStruct == nil {
				s.shader.Structs = st
			} else {
				lastStruct.nextstruct = st
			}
			lastStruct = st

		default:
			ctx.ice(tu.Location(), "unhandled translation unit kind %T", tu)
		}
	}
}

// --- step 3: datatype universe ---

func (s *Sema) buildDatatypes() {
	ctx := s.ctx
	ctx.types.buildBaseUniverse()

	s.shader.eachStruct(func(st *StructDecl) {
		if st.Name != nil && ctx.types.Lookup(st.Name) == nil {
			ctx.types.declareStructStub(st.Name)
		}
	})

	s.shader.eachStruct(func(st *StructDecl) {
		if st.Name == nil {
			return
		}
		dt := ctx.types.Lookup(st.Name)
		if dt == nil {
			ctx.ice(st.Loc, "struct '%s' has no stub after declareStructStub", *st.Name)
			return
		}
		var members []StructField
		seen := map[*string]bool{}
		for _, m := range st.Members {
			checkReservedName(ctx, m.Decl.Loc, m.Decl.Name)
			if m.Decl.Name != nil {
				if seen[m.Decl.Name] {
					ctx.fail(m.Decl.Loc, "duplicate member '%s' in struct '%s'", *m.Decl.Name, *st.Name)
					continue
				}
				seen[m.Decl.Name] = true
			}
			mt := s.resolveDeclType(m.Decl)
			m.Decl.SetDataType(mt)
			members = append(members, StructField{Name: m.Decl.Name, Type: mt})
		}
		dt.Members = members
	})
}

// resolveDeclType resolves decl's base type name and wraps it in array
// types for each `[bound]` suffix, in declared order, each bound
// wrapping whatever the previous bound produced: `T x[2][3]` becomes
// an array of 3 elements of type `T[2]` (named "T[2][3]"), so the last
// bound is the outermost one.
func (s *Sema) resolveDeclType(decl *VarDecl) *DataType {
	ctx := s.ctx
	if decl.TypeName == nil {
		ctx.ice(decl.Loc, "declaration has no type name")
		return ctx.types.Void
	}
	dt := ctx.types.Lookup(decl.TypeName)
	if dt == nil {
		ctx.fail(decl.Loc, "Unknown type '%s'", *decl.TypeName)
		return ctx.types.Void
	}
	for _, bound := range decl.ArrayBounds {
		n := resolveArrayBound(ctx, bound)
		dt = ctx.types.arrayType(dt, n)
	}
	return dt
}

// --- step 4: pre-resolve function signatures ---

func (s *Sema) resolveFunctionSignatures() {
	ctx := s.ctx
	s.shader.eachFunction(func(f *FunctionDecl) {
		checkReservedName(ctx, f.Loc, f.Name)
		retType := s.resolveDeclType(f.ReturnDecl)
		f.ReturnDecl.SetDataType(retType)
		f.SetDataType(retType)

		seen := map[*string]bool{}
		for _, p := range f.Params {
			checkReservedName(ctx, p.Decl.Loc, p.Decl.Name)
			if p.Decl.Name != nil {
				if seen[p.Decl.Name] {
					ctx.fail(p.Decl.Loc, "duplicate parameter name '%s'", *p.Decl.Name)
				}
				seen[p.Decl.Name] = true
			}
			pt := s.resolveDeclType(p.Decl)
			p.Decl.SetDataType(pt)
			p.SetDataType(pt)
		}
		s.resolveAttribute(f)
	})
}

// resolveAttribute implements spec.md §4.4's Attribute validation:
// @vertex/@fragment take no arguments and set fntype; any other
// @-name on a function is an error.
func (s *Sema) resolveAttribute(f *FunctionDecl) {
	ctx := s.ctx
	if f.Attr == nil {
		f.FnType = FuncNormal
		return
	}
	name := *f.Attr.Name
	if f.Attr.HasArg {
		ctx.fail(f.Attr.Loc, "@%s takes no arguments", name)
	}
	switch name {
	case "vertex":
		f.FnType = FuncVertex
	case "fragment":
		f.FnType = FuncFragment
	default:
		ctx.fail(f.Attr.Loc, "Unknown function attribute '@%s'", name)
		f.FnType = FuncNormal
	}
}

// --- step 5: tree walk ---

func (s *Sema) walkAll() {
	ctx := s.ctx
	ctx.scope.Push(s.shader)
	s.shader.eachFunction(func(f *FunctionDecl) {
		s.undefinedCount = 0
		s.walkFunction(f)
	})
	ctx.scope.Pop()
}

func (s *Sema) walkFunction(f *FunctionDecl) {
	ctx := s.ctx
	ctx.scope.Push(f)
	for _, p := range f.Params {
		ctx.scope.Push(p)
	}
	s.walkStmt(f.Body)
	for range f.Params {
		ctx.scope.Pop()
	}
	ctx.scope.Pop()
}

func (s *Sema) requireBoolean(loc SourceLocation, t *DataType, what string) {
	if t == nil {
		return
	}
	if !t.IsBooleanish() {
		s.ctx.fail(loc, "%s must be boolean, got '%s'", what, t)
	}
}

func (s *Sema) walkStmt(st Stmt) {
	ctx := s.ctx
	switch n := st.(type) {
	case nil:
		return

	case *StmtEmpty:
		return

	case *StmtBlock:
		depth := ctx.scope.Depth()
		ctx.scope.Push(n)
		for _, inner := range n.Stmts {
			s.walkStmt(inner)
		}
		for ctx.scope.Depth() > depth {
			ctx.scope.Pop()
		}

	case *StmtVarDecl:
		checkReservedName(ctx, n.Decl.Loc, n.Decl.Name)
		dt := s.resolveDeclType(n.Decl)
		n.Decl.SetDataType(dt)
		if n.Decl.Init != nil {
			s.walkExpr(n.Decl.Init)
			if !s.typesCompatible(n.Decl.Init, dt) {
				ctx.fail(n.Decl.Init.Location(), "cannot initialize '%s' with a value of type '%s'", dt, n.Decl.Init.DataType())
			}
		}
		ctx.scope.Push(n.Decl)

	case *StmtDoWhile:
		depth := ctx.scope.Depth()
		ctx.scope.Push(n)
		s.walkStmt(n.Body)
		ct := s.walkExpr(n.Cond)
		s.requireBoolean(n.Cond.Location(), ct, "do/while condition")
		for ctx.scope.Depth() > depth {
			ctx.scope.Pop()
		}

	case *StmtWhile:
		depth := ctx.scope.Depth()
		ctx.scope.Push(n)
		ct := s.walkExpr(n.Cond)
		s.requireBoolean(n.Cond.Location(), ct, "while condition")
		s.walkStmt(n.Body)
		for ctx.scope.Depth() > depth {
			ctx.scope.Pop()
		}

	case *StmtFor:
		depth := ctx.scope.Depth()
		ctx.scope.Push(n)
		if n.Details.Init != nil {
			s.walkStmt(n.Details.Init)
		}
		if n.Details.Cond != nil {
			ct := s.walkExpr(n.Details.Cond)
			s.requireBoolean(n.Details.Cond.Location(), ct, "for condition")
		}
		if n.Details.Step != nil {
			s.walkStmt(n.Details.Step)
		}
		s.walkStmt(n.Body)
		for ctx.scope.Depth() > depth {
			ctx.scope.Pop()
		}

	case *StmtIf:
		ct := s.walkExpr(n.Cond)
		s.requireBoolean(n.Cond.Location(), ct, "if condition")
		s.walkStmt(n.Then)
		// spec.md §9 Open Question: the source appears to re-walk the
		// then-branch instead of the else-branch here; treat that as a
		// bug and walk the actual else branch.
		if n.Else != nil {
			s.walkStmt(n.Else)
		}

	case *StmtBreak:
		loop, ok := ctx.scope.NearestLoop()
		if !ok {
			ctx.fail(n.Loc, "Break statement must be inside a loop or switch block")
			return
		}
		n.Loop = loop

	case *StmtContinue:
		loop, ok := ctx.scope.NearestLoop()
		if !ok {
			ctx.fail(n.Loc, "Continue statement must be inside a loop")
			return
		}
		n.Loop = loop

	case *StmtDiscard:
		fn, ok := ctx.scope.EnclosingFunction()
		if !ok || fn.FnType != FuncFragment {
			ctx.fail(n.Loc, "discard is only legal inside a @fragment function")
		}

	case *StmtReturn:
		fn, ok := ctx.scope.EnclosingFunction()
		if !ok {
			ctx.ice(n.Loc, "return statement outside any function")
			return
		}
		retType := fn.DataType()
		if n.Value == nil {
			if retType != nil && retType != ctx.types.Void {
				ctx.fail(n.Loc, "non-void function '%s' must return a value", *fn.Name)
			}
			return
		}
		s.walkExpr(n.Value)
		if retType == ctx.types.Void {
			ctx.fail(n.Loc, "void function '%s' must not return a value", *fn.Name)
			return
		}
		if !s.typesCompatible(n.Value, retType) {
			ctx.fail(n.Value.Location(), "return type mismatch: expected '%s', got '%s'", retType, n.Value.DataType())
		}

	case *StmtCallExpr:
		s.walkExpr(n.Call)

	case *StmtAssign:
		var targetType *DataType
		for _, tgt := range n.Targets {
			tt := s.walkExpr(tgt)
			if !IsLvalue(tgt) {
				ctx.fail(tgt.Location(), "left-hand side of assignment is not an lvalue")
			}
			if targetType == nil {
				targetType = tt
			}
		}
		s.walkExpr(n.Value)
		if targetType != nil && !s.typesCompatible(n.Value, targetType) {
			ctx.fail(n.Value.Location(), "cannot assign value of type '%s' to target of type '%s'", n.Value.DataType(), targetType)
		}

	case *StmtCompoundAssign:
		s.walkCompoundAssign(n)

	case *StmtIncDec:
		ot := s.walkExpr(n.Operand)
		if !IsLvalue(n.Operand) {
			ctx.fail(n.Operand.Location(), "operand of '%s' must be an lvalue", incDecSymbol(n.Op))
		}
		if ot != nil && !ot.IsMathish() {
			ctx.fail(n.Operand.Location(), "operand of '%s' must be numeric, got '%s'", incDecSymbol(n.Op), ot)
		}

	case *StmtSwitch, *StmtCase:
		ctx.ice(n.Location(), "switch statements are reserved and never constructed by the parser")

	default:
		ctx.ice(st.Location(), "unhandled statement kind %T", st)
	}
}

func incDecSymbol(op TokenKind) string {
	if op == TokPlusPlus {
		return "++"
	}
	return "--"
}

func (s *Sema) walkCompoundAssign(n *StmtCompoundAssign) {
	ctx := s.ctx
	tt := s.walkExpr(n.Target)
	if !IsLvalue(n.Target) {
		ctx.fail(n.Target.Location(), "left-hand side of '%s' must be an lvalue", opSymbolForCompound(n.Op))
	}
	vt := s.walkExpr(n.Value)
	tt2, vt2 := s.reconcileLiteralTypes(n.Target, tt, n.Value, vt)
	result := s.checkBinaryOpTypes(n.Loc, opForCompound(n.Op), tt2, vt2)
	if result != nil && tt != nil && !SameType(result, tt) {
		ctx.fail(n.Loc, "cannot assign result of '%s' (type '%s') to target of type '%s'", opSymbolForCompound(n.Op), result, tt)
	}
}

// --- expressions ---

func (s *Sema) walkExpr(e Expr) *DataType {
	ctx := s.ctx
	switch n := e.(type) {
	case nil:
		return nil

	case *ExprIntLit:
		n.SetDataType(ctx.types.Int)
		return ctx.types.Int

	case *ExprFloatLit:
		n.SetDataType(ctx.types.Float)
		return ctx.types.Float

	case *ExprBoolLit:
		n.SetDataType(ctx.types.Bool)
		return ctx.types.Bool

	case *ExprParen:
		t := s.walkExpr(n.Inner)
		n.SetDataType(t)
		return t

	case *ExprIdent:
		return s.resolveIdent(n)

	case *ExprUnary:
		return s.walkUnary(n)

	case *ExprBinary:
		return s.walkBinary(n)

	case *ExprTernary:
		return s.walkTernary(n)

	case *ExprIndex:
		return s.walkIndex(n)

	case *ExprField:
		return s.walkField(n)

	case *ExprCall:
		return s.walkCall(n)

	default:
		ctx.ice(e.Location(), "unhandled expression kind %T", e)
		return nil
	}
}

func (s *Sema) reportUndefined(loc SourceLocation, name *string) {
	ctx := s.ctx
	s.undefinedCount++
	switch {
	case s.undefinedCount <= ctx.settings.MaxUndefinedPerFunction:
		ctx.fail(loc, "'%s' is undefined", *name)
	case s.undefinedCount == ctx.settings.MaxUndefinedPerFunction+1:
		ctx.fail(loc, "too many undefined items")
	}
}

func (s *Sema) resolveIdent(n *ExprIdent) *DataType {
	ctx := s.ctx
	node := ctx.scope.Lookup(n.Name)
	if node == nil {
		s.reportUndefined(n.Loc, n.Name)
		return nil
	}
	n.Resolved = node
	dt := node.DataType()
	n.SetDataType(dt)
	return dt
}

func (s *Sema) walkUnary(n *ExprUnary) *DataType {
	ctx := s.ctx
	t := s.walkExpr(n.Operand)
	if t == nil {
		return nil
	}
	switch n.Op {
	case TokenKind('+'), TokenKind('-'):
		if !t.IsMathish() {
			ctx.fail(n.Loc, "operand of unary '%s' must be numeric, got '%s'", opSymbol(n.Op), t)
			return nil
		}
		n.SetDataType(t)
		return t
	case TokenKind('~'):
		if !t.IsMathishInteger() {
			ctx.fail(n.Loc, "operand of '~' must be an integer, got '%s'", t)
			return nil
		}
		n.SetDataType(t)
		return t
	case TokenKind('!'):
		if !t.IsBooleanish() {
			ctx.fail(n.Loc, "operand of '!' must be boolean, got '%s'", t)
			return nil
		}
		n.SetDataType(ctx.types.Bool)
		return ctx.types.Bool
	default:
		ctx.ice(n.Loc, "unhandled unary operator %d", n.Op)
		return nil
	}
}

func (s *Sema) walkBinary(n *ExprBinary) *DataType {
	l := s.walkExpr(n.Left)
	r := s.walkExpr(n.Right)
	l, r = s.reconcileLiteralTypes(n.Left, l, n.Right, r)
	result := s.checkBinaryOpTypes(n.Loc, n.Op, l, r)
	n.SetDataType(result)
	return result
}

func (s *Sema) walkTernary(n *ExprTernary) *DataType {
	ctx := s.ctx
	ct := s.walkExpr(n.Cond)
	s.requireBoolean(n.Cond.Location(), ct, "ternary condition")
	tt := s.walkExpr(n.Then)
	et := s.walkExpr(n.Else)
	tt, et = s.reconcileLiteralTypes(n.Then, tt, n.Else, et)
	if tt != nil && et != nil && !SameType(tt, et) {
		ctx.fail(n.Loc, "ternary branches have mismatched types '%s' and '%s'", tt, et)
		return nil
	}
	n.SetDataType(tt)
	return tt
}

func (s *Sema) walkIndex(n *ExprIndex) *DataType {
	ctx := s.ctx
	bt := s.walkExpr(n.Base)
	it := s.walkExpr(n.Index)
	if it != nil && !it.IsMathishInteger() {
		ctx.fail(n.Index.Location(), "array index must be an integer, got '%s'", it)
	}
	if bt == nil {
		return nil
	}
	var elem *DataType
	switch bt.Kind {
	case KindArray, KindVector, KindMatrix:
		elem = bt.Elem
	default:
		ctx.fail(n.Base.Location(), "cannot index a value of type '%s'", bt)
		return nil
	}
	if lit, ok := n.Index.(*ExprIntLit); ok {
		if lit.Value < 0 || lit.Value >= int64(bt.Count) {
			ctx.fail(n.Index.Location(), "array index %d out of bounds for type '%s' (size %d)", lit.Value, bt, bt.Count)
		}
	}
	n.SetDataType(elem)
	return elem
}

func (s *Sema) walkField(n *ExprField) *DataType {
	ctx := s.ctx
	bt := s.walkExpr(n.Base)
	if bt == nil {
		return nil
	}
	if bt.Kind == KindStruct {
		for i := range bt.Members {
			if bt.Members[i].Name == n.Field {
				n.Member = &bt.Members[i]
				n.SetDataType(bt.Members[i].Type)
				return bt.Members[i].Type
			}
		}
		ctx.fail(n.Loc, "struct '%s' has no member '%s'", bt, *n.Field)
		return nil
	}
	if bt.Kind == KindVector {
		return s.resolveSwizzle(n, bt)
	}
	ctx.fail(n.Base.Location(), "cannot access field '%s' of non-struct, non-vector type '%s'", *n.Field, bt)
	return nil
}

const swizzleXYZW = "xyzw"
const swizzleRGBA = "rgba"

// resolveSwizzle implements spec.md §4.4's "a.field" vector case and
// §8's boundary behavior ("length 1 yields the scalar component type;
// length 2-4 yields the matching vector type; length 5+ is an
// error").
func (s *Sema) resolveSwizzle(n *ExprField, bt *DataType) *DataType {
	ctx := s.ctx
	text := *n.Field
	if len(text) < 1 || len(text) > 4 {
		ctx.fail(n.Loc, "swizzle '%s' must have 1-4 components", text)
		return nil
	}
	var indices []int
	useXYZW, useRGBA := false, false
	for _, c := range text {
		if idx := strings.IndexRune(swizzleXYZW, c); idx >= 0 {
			useXYZW = true
			indices = append(indices, idx)
			continue
		}
		if idx := strings.IndexRune(swizzleRGBA, c); idx >= 0 {
			useRGBA = true
			indices = append(indices, idx)
			continue
		}
		ctx.fail(n.Loc, "invalid swizzle character '%c' in '%s'", c, text)
		return nil
	}
	if useXYZW && useRGBA {
		ctx.fail(n.Loc, "swizzle '%s' mixes the xyzw and rgba component sets", text)
		return nil
	}
	for _, idx := range indices {
		if idx >= bt.Count {
			ctx.fail(n.Loc, "swizzle '%s' is out of range for type '%s'", text, bt)
			return nil
		}
	}
	n.Swizzle = text
	var result *DataType
	if len(indices) == 1 {
		result = bt.Elem
	} else {
		result = s.ctx.types.vectorOfLen(bt.Elem, len(indices))
		if result == nil {
			ctx.ice(n.Loc, "no vector type of length %d for element '%s'", len(indices), bt.Elem)
			return nil
		}
	}
	n.SetDataType(result)
	return result
}

// walkCall implements spec.md §4.4's function-call resolution ladder:
// user function, then datatype constructor, then "not a function",
// then undefined. Forward references to functions defined later in
// the same shader work because gatherGlobals (step 1) already threads
// every function onto s.shader.Functions before any body is walked.
func (s *Sema) walkCall(n *ExprCall) *DataType {
	ctx := s.ctx
	argTypes := make([]*DataType, len(n.Args))
	for i, a := range n.Args {
		argTypes[i] = s.walkExpr(a)
	}

	for f := s.shader.Functions; f != nil; f = f.nextfn {
		if f.Name != n.Name {
			continue
		}
		n.Func = f
		n.IsConstructor = false
		if len(n.Args) != len(f.Params) {
			ctx.fail(n.Loc, "Function '%s' expected %d arguments, had %d", *n.Name, len(f.Params), len(n.Args))
		} else {
			for i, p := range f.Params {
				if argTypes[i] != nil && !s.typesCompatible(n.Args[i], p.DataType()) {
					ctx.fail(n.Args[i].Location(), "argument %d to '%s' has type '%s', expected '%s'", i+1, *n.Name, n.Args[i].DataType(), p.DataType())
				}
			}
		}
		n.SetDataType(f.DataType())
		return f.DataType()
	}

	// Constructor call: spec.md §9 Open Question -- the original's
	// constructor argument validation is commented out, so this stage
	// only records the resolution and defers type rules to a later
	// pass that doesn't exist yet (see DESIGN.md).
	if dt := ctx.types.Lookup(n.Name); dt != nil {
		n.IsConstructor = true
		n.SetDataType(dt)
		return dt
	}

	if sym := ctx.scope.Lookup(n.Name); sym != nil {
		ctx.fail(n.Loc, "'%s' is not a function", *n.Name)
		return nil
	}

	s.reportUndefined(n.Loc, n.Name)
	return nil
}

// --- shared typing helpers ---

// typesCompatible reports whether e (already walked, so e.DataType()
// is set) may stand in for target: either it already matches by
// pointer identity, or it is a literal that literal-promotes to it
// (spec.md §4.4 "Literal promotion"). A nil target or nil expression
// type means an earlier error already fired for this position, so no
// further diagnostic is added here (avoids cascades).
func (s *Sema) typesCompatible(e Expr, target *DataType) bool {
	if target == nil {
		return true
	}
	et := e.DataType()
	if et == nil {
		return true
	}
	if SameType(et, target) {
		return true
	}
	return s.promoteLiteral(e, target)
}

// promoteLiteral reassigns e's datatype to target in place when e is
// an integer or float literal that may legally take target's role
// (spec.md §4.4 "Literal promotion"): integer literals promote to any
// mathish type; float literals promote only to half/float (and
// vectors/matrices thereof), never to int/uint.
func (s *Sema) promoteLiteral(e Expr, target *DataType) bool {
	base := target.ScalarType()
	if base == nil {
		return false
	}
	switch lit := e.(type) {
	case *ExprIntLit:
		if !target.IsMathish() {
			return false
		}
		lit.SetDataType(target)
		return true
	case *ExprFloatLit:
		if base.Kind != KindHalf && base.Kind != KindFloat {
			return false
		}
		lit.SetDataType(target)
		return true
	case *ExprParen:
		if s.promoteLiteral(lit.Inner, target) {
			lit.SetDataType(target)
			return true
		}
	}
	return false
}

// reconcileLiteralTypes lets a bare literal operand in a binary
// expression adopt its sibling's datatype before the usual
// same-datatype typing rule runs, so e.g. `floatvar + 1` type-checks
// instead of failing on "int vs float".
func (s *Sema) reconcileLiteralTypes(leftExpr Expr, l *DataType, rightExpr Expr, r *DataType) (*DataType, *DataType) {
	if l == nil || r == nil || SameType(l, r) {
		return l, r
	}
	if s.promoteLiteral(leftExpr, r) {
		return r, r
	}
	if s.promoteLiteral(rightExpr, l) {
		return l, l
	}
	return l, r
}

func opSymbol(op TokenKind) string {
	switch op {
	case TokShiftLeft:
		return "<<"
	case TokShiftRight:
		return ">>"
	case TokLE:
		return "<="
	case TokGE:
		return ">="
	case TokEQ:
		return "=="
	case TokNE:
		return "!="
	case TokAndAnd:
		return "&&"
	case TokOrOr:
		return "||"
	default:
		if int32(op) < 256 {
			return string(rune(op))
		}
		return "?"
	}
}

func opForCompound(op TokenKind) TokenKind {
	switch op {
	case TokAddAssign:
		return TokenKind('+')
	case TokSubAssign:
		return TokenKind('-')
	case TokMulAssign:
		return TokenKind('*')
	case TokDivAssign:
		return TokenKind('/')
	case TokModAssign:
		return TokenKind('%')
	case TokShlAssign:
		return TokShiftLeft
	case TokShrAssign:
		return TokShiftRight
	case TokAndAssign:
		return TokenKind('&')
	case TokOrAssign:
		return TokenKind('|')
	case TokXorAssign:
		return TokenKind('^')
	default:
		return 0
	}
}

func opSymbolForCompound(op TokenKind) string {
	return opSymbol(opForCompound(op)) + "="
}

// checkBinaryOpTypes applies spec.md §4.4's typing-rules table for
// every binary operator except `*`, which gets its own helper
// (checkMulTypes) for its several cross-shape special cases. Shared
// between ExprBinary and compound-assignment statements, since both
// ultimately apply "the same binary operator rule" to a (target,
// value) or (left, right) pair.
func (s *Sema) checkBinaryOpTypes(loc SourceLocation, op TokenKind, l, r *DataType) *DataType {
	ctx := s.ctx
	if l == nil || r == nil {
		return nil
	}
	switch op {
	case TokenKind('+'), TokenKind('-'), TokenKind('/'):
		if !l.IsMathish() || !r.IsMathish() {
			ctx.fail(loc, "operands of '%s' must be numeric", opSymbol(op))
			return nil
		}
		if !SameType(l, r) {
			ctx.fail(loc, "operands of '%s' must have the same type, got '%s' and '%s'", opSymbol(op), l, r)
			return nil
		}
		return l

	case TokenKind('*'):
		return s.checkMulTypes(loc, l, r)

	case TokenKind('%'), TokShiftLeft, TokShiftRight, TokenKind('&'), TokenKind('|'), TokenKind('^'):
		if !l.IsMathishInteger() || !r.IsMathishInteger() {
			ctx.fail(loc, "operands of '%s' must be integers", opSymbol(op))
			return nil
		}
		if !SameType(l, r) {
			ctx.fail(loc, "operands of '%s' must have the same type, got '%s' and '%s'", opSymbol(op), l, r)
			return nil
		}
		return l

	case TokenKind('<'), TokenKind('>'), TokLE, TokGE:
		if !l.IsNumeric() || !r.IsNumeric() {
			ctx.fail(loc, "operands of '%s' must be numeric", opSymbol(op))
			return nil
		}
		if !SameType(l, r) {
			ctx.fail(loc, "operands of '%s' must have the same type, got '%s' and '%s'", opSymbol(op), l, r)
			return nil
		}
		return ctx.types.Bool

	case TokEQ, TokNE:
		if !SameType(l, r) {
			ctx.fail(loc, "operands of '%s' must have the same type, got '%s' and '%s'", opSymbol(op), l, r)
			return nil
		}
		return ctx.types.Bool

	case TokAndAnd, TokOrOr:
		if !l.IsBooleanish() || !r.IsBooleanish() {
			ctx.fail(loc, "operands of '%s' must be boolean", opSymbol(op))
			return nil
		}
		return ctx.types.Bool

	default:
		ctx.ice(loc, "unhandled binary operator %d", op)
		return nil
	}
}

// checkMulTypes implements `*`'s cross-shape special cases (spec.md
// §4.4 "`*` special cases"): scalar/scalar, vec×vec, vec×mat (vec
// matches the matrix's row type), mat×vec, mat×mat, and scalar
// combined with either vector or matrix on either side.
func (s *Sema) checkMulTypes(loc SourceLocation, l, r *DataType) *DataType {
	ctx := s.ctx
	switch {
	case l.IsScalar() && r.IsScalar():
		if !l.IsMathish() || !r.IsMathish() {
			ctx.fail(loc, "operands of '*' must be numeric")
			return nil
		}
		if !SameType(l, r) {
			ctx.fail(loc, "operands of '*' must have the same type, got '%s' and '%s'", l, r)
			return nil
		}
		return l

	case l.IsScalar() && (r.Kind == KindVector || r.Kind == KindMatrix):
		if !SameType(l, r.ScalarType()) {
			ctx.fail(loc, "scalar '*' operand of type '%s' does not match the component type of '%s'", l, r)
			return nil
		}
		return r

	case (l.Kind == KindVector || l.Kind == KindMatrix) && r.IsScalar():
		if !SameType(r, l.ScalarType()) {
			ctx.fail(loc, "scalar '*' operand of type '%s' does not match the component type of '%s'", r, l)
			return nil
		}
		return l

	case l.Kind == KindVector && r.Kind == KindVector:
		if !SameType(l, r) {
			ctx.fail(loc, "'*' between vectors requires the same type, got '%s' and '%s'", l, r)
			return nil
		}
		return l

	case l.Kind == KindVector && r.Kind == KindMatrix:
		if !SameType(l, r.Elem) {
			ctx.fail(loc, "vector '*' matrix requires the vector to match the matrix's row type ('%s' vs '%s')", l, r.Elem)
			return nil
		}
		return l

	case l.Kind == KindMatrix && r.Kind == KindVector:
		if !SameType(l.Elem, r) {
			ctx.fail(loc, "matrix '*' vector requires the vector to match the matrix's row type ('%s' vs '%s')", r, l.Elem)
			return nil
		}
		return r

	case l.Kind == KindMatrix && r.Kind == KindMatrix:
		if !SameType(l, r) {
			ctx.fail(loc, "'*' between matrices requires the same type, got '%s' and '%s'", l, r)
			return nil
		}
		return l

	default:
		ctx.fail(loc, "invalid operand types for '*': '%s' and '%s'", l, r)
		return nil
	}
}

package sdlsl

// This file evaluates array-bound expressions during semantic
// analysis: `T name[EXPR]` declarations (spec.md §4.4 "array bound
// constant folding"). It is deliberately separate from condexpr.go,
// which evaluates `#if`/`#elif` over a flat, unexpanded token slice
// before any AST exists -- this evaluator instead walks the AST
// produced by parser.go, after macro expansion and parsing are both
// long done, and only accepts the handful of expression shapes that
// can possibly be constant: literals, unary +/-/~, and the arithmetic/
// bitwise/shift binary operators over them. It shares its operator
// semantics with condexpr.go's precedence-climbing evaluator, but walks
// the already-built AST directly instead of first parsing a token slice
// into a tree.
//
// Any non-constant construct (identifiers, calls, field/index
// expressions, booleans, floats) fails with "Expected constant
// expression" (spec.md §4.4). A bound that evaluates to zero or
// negative is replaced with 1 and reported as an error, so that a
// single bad array bound doesn't cascade into a storm of "index out of
// range" diagnostics from every later reference to the array.

// evalConstIntExpr evaluates e as a compile-time integer constant,
// reporting ctx.fail and returning (0, false) if e isn't one.
func evalConstIntExpr(ctx *Context, e Expr) (int64, bool) {
	switch n := e.(type) {
	case *ExprIntLit:
		return n.Value, true

	case *ExprBoolLit:
		ctx.fail(n.Loc, "Expected constant expression")
		return 0, false

	case *ExprFloatLit:
		ctx.fail(n.Loc, "Expected constant expression")
		return 0, false

	case *ExprParen:
		return evalConstIntExpr(ctx, n.Inner)

	case *ExprUnary:
		v, ok := evalConstIntExpr(ctx, n.Operand)
		if !ok {
			return 0, false
		}
		switch n.Op {
		case TokenKind('+'):
			return v, true
		case TokenKind('-'):
			return -v, true
		case TokenKind('~'):
			return ^v, true
		default:
			ctx.fail(n.Loc, "Expected constant expression")
			return 0, false
		}

	case *ExprBinary:
		l, lok := evalConstIntExpr(ctx, n.Left)
		r, rok := evalConstIntExpr(ctx, n.Right)
		if !lok || !rok {
			return 0, false
		}
		switch n.Op {
		case TokenKind('+'):
			return l + r, true
		case TokenKind('-'):
			return l - r, true
		case TokenKind('*'):
			return l * r, true
		case TokenKind('/'):
			if r == 0 {
				ctx.fail(n.Loc, "division by zero")
				return 0, false
			}
			return l / r, true
		case TokenKind('%'):
			if r == 0 {
				ctx.fail(n.Loc, "division by zero")
				return 0, false
			}
			return l % r, true
		case TokenKind('&'):
			return l & r, true
		case TokenKind('|'):
			return l | r, true
		case TokenKind('^'):
			return l ^ r, true
		case TokShiftLeft:
			return l << uint64(r), true
		case TokShiftRight:
			return l >> uint64(r), true
		default:
			ctx.fail(n.Loc, "Expected constant expression")
			return 0, false
		}

	default:
		ctx.fail(e.Location(), "Expected constant expression")
		return 0, false
	}
}

// resolveArrayBound evaluates one `[EXPR]` bound to a usable length,
// clamping non-positive results to 1 so a single bad bound can't
// propagate into spurious bounds-check errors everywhere the array is
// later used (spec.md §4.4 "array constant-folding clamp").
// boundExpr == nil means an unsized `[]` bound, reported here as
// "Array bound is required" (SDLSL requires every array dimension to carry a bound;
// only a cast/sizeless context -- none exists in this grammar -- would
// accept one).
func resolveArrayBound(ctx *Context, boundExpr Expr) int {
	if boundExpr == nil {
		ctx.fail(SourceLocation{}, "Array bound is required")
		return 1
	}
	v, ok := evalConstIntExpr(ctx, boundExpr)
	if !ok {
		return 1
	}
	if v <= 0 {
		ctx.fail(boundExpr.Location(), "Array bound must be a positive constant, got %d", v)
		return 1
	}
	return int(v)
}

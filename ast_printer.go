package sdlsl

import (
	"fmt"
	"strconv"
	"strings"
)

// ast_printer.go renders a Shader back into SDLSL source text. It
// exists for two reasons spec.md calls out directly: the `-T`/`ast`
// CLI surface (§6) needs something to print, and §8's round-trip
// property ("parsing and pretty-printing an AST ... yields source
// text that re-parses to a structurally identical AST") needs an
// actual printer to check against. The printer never invents parens
// beyond what ExprParen nodes already record (spec.md §3 calls out
// "(" as its own distinguished node precisely so printing doesn't have
// to re-derive precedence); it relies on the parser's own, deterministic
// precedence climbing to rebuild the same tree shape from the same
// surface operators.
type astPrinter struct {
	b      strings.Builder
	indent int
}

// PrintShader renders sh as SDLSL source text, one top-level
// definition per blank-line-separated block, in the order the parser
// originally produced them (sh.Units, not the nextfn/nextstruct
// traversal lists -- those are semantic-analysis shortcuts, not
// declaration order, spec.md §3 Ownership).
func PrintShader(sh *Shader) string {
	p := &astPrinter{}
	for i, tu := range sh.Units {
		if i > 0 {
			p.b.WriteString("\n")
		}
		p.printTU(tu)
	}
	return p.b.String()
}

func (p *astPrinter) writeIndent() {
	p.b.WriteString(strings.Repeat("    ", p.indent))
}

func (p *astPrinter) printTU(tu TranslationUnit) {
	switch n := tu.(type) {
	case *TUFunction:
		p.printFunction(n.Func)
	case *TUStruct:
		p.printStruct(n.Struct)
	}
}

func (p *astPrinter) printAttr(a *Attribute) string {
	if a == nil {
		return ""
	}
	if a.HasArg {
		return fmt.Sprintf(" @%s(%d)", *a.Name, a.Arg)
	}
	return fmt.Sprintf(" @%s", *a.Name)
}

func (p *astPrinter) printVarDeclHeader(v *VarDecl) string {
	var b strings.Builder
	if v.CStyle {
		b.WriteString(*v.TypeName)
		b.WriteString(" ")
		b.WriteString(*v.Name)
	} else {
		b.WriteString(*v.Name)
		b.WriteString(" : ")
		b.WriteString(*v.TypeName)
	}
	for _, bound := range v.ArrayBounds {
		b.WriteString("[")
		b.WriteString(p.exprText(bound))
		b.WriteString("]")
	}
	return b.String()
}

func (p *astPrinter) printFunction(f *FunctionDecl) {
	p.writeIndent()
	p.b.WriteString("function ")
	p.b.WriteString(p.printVarDeclHeader(f.ReturnDecl))
	p.b.WriteString("(")
	for i, param := range f.Params {
		if i > 0 {
			p.b.WriteString(", ")
		}
		p.b.WriteString(p.printVarDeclHeader(param.Decl))
		p.b.WriteString(p.printAttr(param.Decl.Attr))
	}
	if len(f.Params) == 0 {
		p.b.WriteString("void")
	}
	p.b.WriteString(")")
	p.b.WriteString(p.printAttr(f.Attr))
	p.b.WriteString(" ")
	p.printBlock(f.Body)
	p.b.WriteString("\n")
}

func (p *astPrinter) printStruct(s *StructDecl) {
	p.writeIndent()
	p.b.WriteString("struct ")
	p.b.WriteString(*s.Name)
	p.b.WriteString(" {\n")
	p.indent++
	for _, m := range s.Members {
		p.writeIndent()
		p.b.WriteString(p.printVarDeclHeader(m.Decl))
		p.b.WriteString(p.printAttr(m.Decl.Attr))
		p.b.WriteString(";\n")
	}
	p.indent--
	p.writeIndent()
	p.b.WriteString("};\n")
}

func (p *astPrinter) printBlock(b *StmtBlock) {
	p.b.WriteString("{\n")
	p.indent++
	for _, s := range b.Stmts {
		p.printStmt(s)
	}
	p.indent--
	p.writeIndent()
	p.b.WriteString("}")
}

func (p *astPrinter) printStmt(s Stmt) {
	switch n := s.(type) {
	case *StmtEmpty:
		p.writeIndent()
		p.b.WriteString(";\n")
	case *StmtBreak:
		p.writeIndent()
		p.b.WriteString("break;\n")
	case *StmtContinue:
		p.writeIndent()
		p.b.WriteString("continue;\n")
	case *StmtDiscard:
		p.writeIndent()
		p.b.WriteString("discard;\n")
	case *StmtVarDecl:
		p.writeIndent()
		p.b.WriteString("var ")
		p.b.WriteString(p.printVarDeclHeader(n.Decl))
		p.b.WriteString(p.printAttr(n.Decl.Attr))
		if n.Decl.Init != nil {
			p.b.WriteString(" = ")
			p.b.WriteString(p.exprText(n.Decl.Init))
		}
		p.b.WriteString(";\n")
	case *StmtDoWhile:
		p.writeIndent()
		p.b.WriteString("do ")
		p.printStmtInline(n.Body)
		p.b.WriteString(" while (")
		p.b.WriteString(p.exprText(n.Cond))
		p.b.WriteString(");\n")
	case *StmtWhile:
		p.writeIndent()
		p.b.WriteString("while (")
		p.b.WriteString(p.exprText(n.Cond))
		p.b.WriteString(") ")
		p.printStmtInline(n.Body)
		p.b.WriteString("\n")
	case *StmtFor:
		p.writeIndent()
		p.b.WriteString("for (")
		p.b.WriteString(p.stmtInlineText(n.Details.Init))
		p.b.WriteString("; ")
		if n.Details.Cond != nil {
			p.b.WriteString(p.exprText(n.Details.Cond))
		}
		p.b.WriteString("; ")
		p.b.WriteString(p.stmtInlineTextNoSemi(n.Details.Step))
		p.b.WriteString(") ")
		p.printStmtInline(n.Body)
		p.b.WriteString("\n")
	case *StmtIf:
		p.writeIndent()
		p.b.WriteString("if (")
		p.b.WriteString(p.exprText(n.Cond))
		p.b.WriteString(") ")
		p.printStmtInline(n.Then)
		if n.Else != nil {
			p.b.WriteString(" else ")
			p.printStmtInline(n.Else)
		}
		p.b.WriteString("\n")
	case *StmtReturn:
		p.writeIndent()
		p.b.WriteString("return")
		if n.Value != nil {
			p.b.WriteString(" ")
			p.b.WriteString(p.exprText(n.Value))
		}
		p.b.WriteString(";\n")
	case *StmtBlock:
		p.writeIndent()
		p.printBlock(n)
		p.b.WriteString("\n")
	case *StmtCallExpr:
		p.writeIndent()
		p.b.WriteString(p.exprText(n.Call))
		p.b.WriteString(";\n")
	case *StmtAssign:
		p.writeIndent()
		for _, t := range n.Targets {
			p.b.WriteString(p.exprText(t))
			p.b.WriteString(" = ")
		}
		p.b.WriteString(p.exprText(n.Value))
		p.b.WriteString(";\n")
	case *StmtCompoundAssign:
		p.writeIndent()
		p.b.WriteString(p.exprText(n.Target))
		p.b.WriteString(" ")
		p.b.WriteString(opText(n.Op))
		p.b.WriteString(" ")
		p.b.WriteString(p.exprText(n.Value))
		p.b.WriteString(";\n")
	case *StmtIncDec:
		p.writeIndent()
		if n.Post {
			p.b.WriteString(p.exprText(n.Operand))
			p.b.WriteString(opText(n.Op))
		} else {
			p.b.WriteString(opText(n.Op))
			p.b.WriteString(p.exprText(n.Operand))
		}
		p.b.WriteString(";\n")
	case *StmtSwitch:
		// Reserved future extension (spec.md §9); never produced by
		// the parser, so there is no surface syntax to round-trip.
		p.writeIndent()
		p.b.WriteString("/* switch: reserved */\n")
	}
}

// printStmtInline prints a statement in "controlled-statement"
// position (the body of if/while/for/do) without its own leading
// indent, so `if (x) foo();` and `if (x) { ... }` both read naturally.
func (p *astPrinter) printStmtInline(s Stmt) {
	if b, ok := s.(*StmtBlock); ok {
		p.printBlock(b)
		return
	}
	var sub astPrinter
	sub.indent = 0
	sub.printStmt(s)
	p.b.WriteString(strings.TrimRight(strings.TrimLeft(sub.b.String(), " \t"), "\n"))
}

// stmtInlineText renders a for-loop's init clause without a trailing
// semicolon/newline (the caller supplies the "; " separators).
func (p *astPrinter) stmtInlineText(s Stmt) string {
	if s == nil {
		return ""
	}
	switch n := s.(type) {
	case *StmtVarDecl:
		var b strings.Builder
		b.WriteString("var ")
		b.WriteString(p.printVarDeclHeader(n.Decl))
		if n.Decl.Init != nil {
			b.WriteString(" = ")
			b.WriteString(p.exprText(n.Decl.Init))
		}
		return b.String()
	default:
		return p.stmtInlineTextNoSemi(s)
	}
}

func (p *astPrinter) stmtInlineTextNoSemi(s Stmt) string {
	if s == nil {
		return ""
	}
	switch n := s.(type) {
	case *StmtAssign:
		var b strings.Builder
		for _, t := range n.Targets {
			b.WriteString(p.exprText(t))
			b.WriteString(" = ")
		}
		b.WriteString(p.exprText(n.Value))
		return b.String()
	case *StmtCompoundAssign:
		return fmt.Sprintf("%s %s %s", p.exprText(n.Target), opText(n.Op), p.exprText(n.Value))
	case *StmtIncDec:
		if n.Post {
			return p.exprText(n.Operand) + opText(n.Op)
		}
		return opText(n.Op) + p.exprText(n.Operand)
	case *StmtCallExpr:
		return p.exprText(n.Call)
	case *StmtEmpty:
		return ""
	default:
		return ""
	}
}

func (p *astPrinter) exprText(e Expr) string {
	if e == nil {
		return ""
	}
	switch n := e.(type) {
	case *ExprIdent:
		return *n.Name
	case *ExprIntLit:
		return strconv.FormatInt(n.Value, 10)
	case *ExprFloatLit:
		return strconv.FormatFloat(n.Value, 'g', -1, 64) + "f"
	case *ExprBoolLit:
		if n.Value {
			return "true"
		}
		return "false"
	case *ExprUnary:
		return opText(n.Op) + p.exprText(n.Operand)
	case *ExprParen:
		return "(" + p.exprText(n.Inner) + ")"
	case *ExprBinary:
		return fmt.Sprintf("%s %s %s", p.exprText(n.Left), opText(n.Op), p.exprText(n.Right))
	case *ExprTernary:
		return fmt.Sprintf("%s ? %s : %s", p.exprText(n.Cond), p.exprText(n.Then), p.exprText(n.Else))
	case *ExprIndex:
		return fmt.Sprintf("%s[%s]", p.exprText(n.Base), p.exprText(n.Index))
	case *ExprField:
		return fmt.Sprintf("%s.%s", p.exprText(n.Base), *n.Field)
	case *ExprCall:
		args := make([]string, len(n.Args))
		for i, a := range n.Args {
			args[i] = p.exprText(a)
		}
		return fmt.Sprintf("%s(%s)", *n.Name, strings.Join(args, ", "))
	default:
		return ""
	}
}

// opText spells out the surface-syntax token for an operator
// TokenKind. Single-character operators fall through to their own
// rune value (token.go's "ASCII single-char tokens use their own rune
// value as the TokenKind" scheme, spec.md §3 Token).
func opText(k TokenKind) string {
	switch k {
	case TokPlusPlus:
		return "++"
	case TokMinusMinus:
		return "--"
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
	case TokAddAssign:
		return "+="
	case TokSubAssign:
		return "-="
	case TokMulAssign:
		return "*="
	case TokDivAssign:
		return "/="
	case TokModAssign:
		return "%="
	case TokShlAssign:
		return "<<="
	case TokShrAssign:
		return ">>="
	case TokAndAssign:
		return "&="
	case TokOrAssign:
		return "|="
	case TokXorAssign:
		return "^="
	default:
		if k < 256 {
			return string(rune(k))
		}
		return "?"
	}
}

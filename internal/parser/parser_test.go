package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"jsvm/internal/ast"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, errs := Parse(src)
	require.Empty(t, errs, "src=%s", src)
	return prog
}

func TestParseArithmeticPrecedence(t *testing.T) {
	prog := mustParse(t, "1 + 2 * 3;")
	es := prog.Body[0].(*ast.ExprStatement)
	bin := es.Expr.(*ast.BinaryExpr)
	require.Equal(t, "+", bin.Op)
	rightMul := bin.Right.(*ast.BinaryExpr)
	require.Equal(t, "*", rightMul.Op)
}

func TestParseArrowFunction(t *testing.T) {
	prog := mustParse(t, "const f = (n) => n + 1;")
	decl := prog.Body[0].(*ast.VarDecl)
	fn := decl.Decls[0].Init.(*ast.FunctionExpr)
	require.True(t, fn.Arrow)
	require.NotNil(t, fn.ExprBody)
}

func TestParseArrowSingleIdent(t *testing.T) {
	prog := mustParse(t, "const f = n => n;")
	decl := prog.Body[0].(*ast.VarDecl)
	fn := decl.Decls[0].Init.(*ast.FunctionExpr)
	require.True(t, fn.Arrow)
	require.Len(t, fn.Params, 1)
}

func TestParseParenthesizedNotArrow(t *testing.T) {
	prog := mustParse(t, "(1 + 2);")
	es := prog.Body[0].(*ast.ExprStatement)
	_, isBin := es.Expr.(*ast.BinaryExpr)
	require.True(t, isBin)
}

func TestParseDestructuring(t *testing.T) {
	prog := mustParse(t, "let {a, b = 2} = obj;")
	decl := prog.Body[0].(*ast.VarDecl)
	pat := decl.Decls[0].Target.(*ast.ObjectPattern)
	require.Len(t, pat.Props, 2)
	require.NotNil(t, pat.Props[1].Value.Default)
}

func TestParseClassWithSuper(t *testing.T) {
	prog := mustParse(t, "class B extends A { constructor() { super(); } method() {} }")
	cls := prog.Body[0].(*ast.ClassDecl)
	require.Equal(t, "B", cls.Name)
	require.NotNil(t, cls.Super)
	require.Len(t, cls.Members, 2)
	require.Equal(t, "constructor", cls.Members[0].Kind)
}

func TestParseTryCatchFinally(t *testing.T) {
	prog := mustParse(t, "try { f(); } catch (e) { g(e); } finally { h(); }")
	st := prog.Body[0].(*ast.TryStatement)
	require.True(t, st.HasCatch)
	require.True(t, st.HasFinally)
}

func TestParseOptionalChainingAndNullish(t *testing.T) {
	prog := mustParse(t, "a?.b?.() ?? c;")
	es := prog.Body[0].(*ast.ExprStatement)
	_, ok := es.Expr.(*ast.LogicalExpr)
	require.True(t, ok)
}

func TestParseForOf(t *testing.T) {
	prog := mustParse(t, "for (const x of xs) { use(x); }")
	st := prog.Body[0].(*ast.ForInStatement)
	require.True(t, st.Of)
}

func TestParseTemplateLiteral(t *testing.T) {
	prog := mustParse(t, "`a${1+1}b`;")
	es := prog.Body[0].(*ast.ExprStatement)
	tmpl := es.Expr.(*ast.TemplateLiteral)
	require.Equal(t, []string{"a", "b"}, tmpl.Quasis)
	require.Len(t, tmpl.Exprs, 1)
}

func TestParseSyntaxErrorCarriesPosition(t *testing.T) {
	_, errs := Parse("let x = ;")
	require.NotEmpty(t, errs)
}

func TestParseBigIntLiteral(t *testing.T) {
	prog := mustParse(t, "10n;")
	es := prog.Body[0].(*ast.ExprStatement)
	lit := es.Expr.(*ast.BigIntLiteral)
	require.Equal(t, "10", lit.Digits)
}

func TestParseBigIntLiteralHexPrefixPreserved(t *testing.T) {
	prog := mustParse(t, "0x1fn;")
	es := prog.Body[0].(*ast.ExprStatement)
	lit := es.Expr.(*ast.BigIntLiteral)
	require.Equal(t, "0x1f", lit.Digits)
}

func TestParseBigIntLiteralStripsUnderscores(t *testing.T) {
	prog := mustParse(t, "1_000_000n;")
	es := prog.Body[0].(*ast.ExprStatement)
	lit := es.Expr.(*ast.BigIntLiteral)
	require.Equal(t, "1000000", lit.Digits)
}

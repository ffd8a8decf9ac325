package parser_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zym-lang/zym/internal/ast"
	"github.com/zym-lang/zym/internal/parser"
)

func mustParse(t *testing.T, src string) *ast.File {
	t.Helper()
	f, err := parser.Parse("t.zym", []byte(src), nil)
	require.NoError(t, err)
	return f
}

func TestParseVarDeclAndExprStmt(t *testing.T) {
	f := mustParse(t, `var x = 1 + 2 * 3; x;`)
	require.Len(t, f.Stmts, 2)
	decl, ok := f.Stmts[0].(*ast.VarDeclStmt)
	require.True(t, ok)
	require.Equal(t, []string{"x"}, decl.Names)
	bin, ok := decl.Inits[0].(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, bin.Op.String(), "+")
}

func TestParseFuncDeclWithQualifiedParams(t *testing.T) {
	f := mustParse(t, `func add(ref a, slot b, val c, d) { return a + b + c + d; }`)
	require.Len(t, f.Stmts, 1)
	decl, ok := f.Stmts[0].(*ast.FuncDeclStmt)
	require.True(t, ok)
	require.Equal(t, "add", decl.Fn.Name)
	require.Len(t, decl.Fn.Params, 4)
	require.Equal(t, "ref", decl.Fn.Params[0].Qualifier.String())
	require.Equal(t, "slot", decl.Fn.Params[1].Qualifier.String())
	require.Equal(t, "val", decl.Fn.Params[2].Qualifier.String())
	require.Equal(t, "illegal", decl.Fn.Params[3].Qualifier.String())
}

func TestParseIfElseIfChain(t *testing.T) {
	f := mustParse(t, `if (x == 1) { y; } else if (x == 2) { z; } else { w; }`)
	top, ok := f.Stmts[0].(*ast.IfStmt)
	require.True(t, ok)
	nested, ok := top.Else.(*ast.IfStmt)
	require.True(t, ok)
	require.NotNil(t, nested.Else)
}

func TestParseForLoopAllClausesOptional(t *testing.T) {
	f := mustParse(t, `for (;;) { break; }`)
	loop, ok := f.Stmts[0].(*ast.ForStmt)
	require.True(t, ok)
	require.Nil(t, loop.Init)
	require.Nil(t, loop.Cond)
	require.Nil(t, loop.Post)
}

func TestParseSwitchWithMultiValueCase(t *testing.T) {
	f := mustParse(t, `switch (x) { case 1, 2: y; default: z; }`)
	sw, ok := f.Stmts[0].(*ast.SwitchStmt)
	require.True(t, ok)
	require.Len(t, sw.Cases, 2)
	require.Len(t, sw.Cases[0].Values, 2)
	require.Nil(t, sw.Cases[1].Values)
}

func TestParseRefAndSlotExpressions(t *testing.T) {
	f := mustParse(t, `var r = ref x; slot x = 5;`)
	decl := f.Stmts[0].(*ast.VarDeclStmt)
	ref, ok := decl.Inits[0].(*ast.RefExpr)
	require.True(t, ok)
	require.False(t, ref.IsSlot)

	stmt := f.Stmts[1].(*ast.ExprStmt)
	assign, ok := stmt.X.(*ast.AssignExpr)
	require.True(t, ok)
	require.True(t, assign.IsSlot)
}

func TestParseStructPositionalAndNamedInit(t *testing.T) {
	f := mustParse(t, `var a = Point(1, 2); var b = Point{x: 1, y: 2, ...other};`)
	declA := f.Stmts[0].(*ast.VarDeclStmt)
	call, ok := declA.Inits[0].(*ast.CallExpr)
	require.True(t, ok)
	require.Equal(t, "Point", call.Callee.(*ast.IdentExpr).Name)

	declB := f.Stmts[1].(*ast.VarDeclStmt)
	init, ok := declB.Inits[0].(*ast.StructInitExpr)
	require.True(t, ok)
	require.Equal(t, "Point", init.Type)
	require.Len(t, init.Named, 3)
	require.NotNil(t, init.Named[2].Spread)
}

func TestParseListAndMapLiterals(t *testing.T) {
	f := mustParse(t, `var l = [1, 2, 3]; var m = {"a": 1, "b": 2};`)
	l := f.Stmts[0].(*ast.VarDeclStmt).Inits[0].(*ast.ListExpr)
	require.Len(t, l.Elems, 3)
	m := f.Stmts[1].(*ast.VarDeclStmt).Inits[0].(*ast.MapExpr)
	require.Len(t, m.Entries, 2)
}

func TestParseSpreadCallArgument(t *testing.T) {
	f := mustParse(t, `f(1, ...rest);`)
	call := f.Stmts[0].(*ast.ExprStmt).X.(*ast.CallExpr)
	require.Len(t, call.Args, 2)
	_, ok := call.Args[1].(*ast.SpreadExpr)
	require.True(t, ok)
}

func TestParseTernaryAndLogical(t *testing.T) {
	f := mustParse(t, `var x = a and b or c ? 1 : 2;`)
	decl := f.Stmts[0].(*ast.VarDeclStmt)
	tern, ok := decl.Inits[0].(*ast.TernaryExpr)
	require.True(t, ok)
	_, ok = tern.Cond.(*ast.LogicalExpr)
	require.True(t, ok)
}

func TestParseInvalidAssignTargetReportsError(t *testing.T) {
	_, err := parser.Parse("t.zym", []byte(`1 = 2;`), nil)
	require.Error(t, err)
}

func TestParseGotoAndLabel(t *testing.T) {
	f := mustParse(t, `start: x; goto start;`)
	_, ok := f.Stmts[0].(*ast.LabelStmt)
	require.True(t, ok)
	g, ok := f.Stmts[2].(*ast.GotoStmt)
	require.True(t, ok)
	require.Equal(t, "start", g.Label)
}

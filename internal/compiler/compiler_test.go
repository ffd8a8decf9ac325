package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zym-lang/zym/internal/chunk"
	"github.com/zym-lang/zym/internal/compiler"
	"github.com/zym-lang/zym/internal/parser"
	"github.com/zym-lang/zym/internal/value"
)

func mustCompile(t *testing.T, src string, tco compiler.TailCallMode) *chunk.Chunk {
	t.Helper()
	f, err := parser.Parse("t.zym", []byte(src), nil)
	require.NoError(t, err)
	fn, diags := compiler.Compile("t.zym", f, tco)
	require.Empty(t, diags, "%v", diags)
	return fn.Chunk.(*chunk.Chunk)
}

// ops returns the base opcode of every instruction in c, skipping nothing:
// callers that need to ignore trailing operand words index past them
// explicitly.
func ops(c *chunk.Chunk) []chunk.Op {
	out := make([]chunk.Op, len(c.Code))
	for i, ins := range c.Code {
		op, _, _, _ := chunk.Decode(ins)
		out[i] = op
	}
	return out
}

func containsOp(c *chunk.Chunk, op chunk.Op) bool {
	for _, got := range ops(c) {
		if got == op {
			return true
		}
	}
	return false
}

func TestCompileArithmeticPicksImmediateForm(t *testing.T) {
	c := mustCompile(t, `var x = 1; var y = x + 2;`, compiler.TCOOff)
	require.True(t, containsOp(c, chunk.OpAddI), "expected ADD_I for small-integer-literal right operand")
	require.False(t, containsOp(c, chunk.OpAdd), "base ADD should not be chosen when the literal fits _I")
}

func TestCompileArithmeticPicksLiteralFormForNonImmediate(t *testing.T) {
	c := mustCompile(t, `var x = 1; var y = x + 3.5;`, compiler.TCOOff)
	require.True(t, containsOp(c, chunk.OpAddL), "expected ADD_L for a fractional literal right operand")
}

func TestCompileArithmeticBaseFormForTwoLocals(t *testing.T) {
	c := mustCompile(t, `var a = 1; var b = 2; var c = a + b;`, compiler.TCOOff)
	require.True(t, containsOp(c, chunk.OpAdd), "two register operands should use the base ADD form")
	require.False(t, containsOp(c, chunk.OpAddI))
	require.False(t, containsOp(c, chunk.OpAddL))
}

func TestCompileSingleFunctionNoOverloadLoadsCalleeViaGetGlobal(t *testing.T) {
	c := mustCompile(t, `func greet(a) { return a; } greet(1);`, compiler.TCOOff)
	found := false
	for i, ins := range c.Code {
		op, _, bx := chunk.DecodeABx(ins)
		if op == chunk.OpGetGlobal {
			name := c.Constants[bx].Obj
			require.NotNil(t, name, "GET_GLOBAL constant at %d should be a string", i)
			found = true
		}
	}
	require.True(t, found, "expected at least one GET_GLOBAL")
}

func TestCompileOverloadedFunctionUsesDispatcherGlobal(t *testing.T) {
	c := mustCompile(t, `
		func add(a) { return a; }
		func add(a, b) { return a + b; }
		add(1, 2);
		var g = add;
	`, compiler.TCOOff)
	// add(1, 2) has an exact-arity match and loads add@2 directly; the bare
	// reference `add` names two arities and loads __dispatcher_add.

	var globalNames []string
	for _, ins := range c.Code {
		op, _, bx := chunk.DecodeABx(ins)
		if op == chunk.OpGetGlobal || op == chunk.OpDefineGlobal || op == chunk.OpSetGlobal {
			if s, ok := c.Constants[bx].Obj.(*value.String); ok {
				globalNames = append(globalNames, s.Go())
			}
		}
	}

	require.Contains(t, globalNames, "add@1")
	require.Contains(t, globalNames, "add@2")
	require.Contains(t, globalNames, "__dispatcher_add")
}

func TestCompileForwardReferenceToHoistedFunction(t *testing.T) {
	// calling main() before its declaration must still resolve, since
	// module-level function declarations are hoisted via a declare pass.
	c := mustCompile(t, `
		main();
		func main() { return 1; }
	`, compiler.TCOOff)
	require.True(t, containsOp(c, chunk.OpCall))
}

func TestCompileTailCallOffKeepsPlainCall(t *testing.T) {
	c := mustCompile(t, `func f(n) { return f(n); }`, compiler.TCOOff)
	require.True(t, containsOp(c, chunk.OpCall))
	require.False(t, containsOp(c, chunk.OpTailCallSelf))
}

func TestCompileTailSelfCallUsesSelfOpcode(t *testing.T) {
	c := mustCompile(t, `func f(n) { return f(n); }`, compiler.TCOSafe)
	require.True(t, containsOp(c, chunk.OpTailCallSelf), "direct same-arity recursive return should use TAIL_CALL_SELF")
}

func TestCompileTailSmartModeUsesSmartSelfOpcode(t *testing.T) {
	c := mustCompile(t, `func f(n) { return f(n); }`, compiler.TCOSmart)
	require.True(t, containsOp(c, chunk.OpSmartTailCallSelf))
}

func TestCompileTailCallToOtherFunctionUsesPlainTailCall(t *testing.T) {
	c := mustCompile(t, `
		func g(n) { return n; }
		func f(n) { return g(n); }
	`, compiler.TCOSafe)
	require.True(t, containsOp(c, chunk.OpTailCall))
	require.False(t, containsOp(c, chunk.OpTailCallSelf))
}

func TestCompileNonTailCallIsNotRewritten(t *testing.T) {
	// f(n) appears as a sub-expression of `+`, not as the whole of a return
	// statement, so it must stay a plain CALL even with TCO on.
	c := mustCompile(t, `func f(n) { return f(n) + 1; }`, compiler.TCOSafe)
	require.True(t, containsOp(c, chunk.OpCall))
	require.False(t, containsOp(c, chunk.OpTailCallSelf))
}

func TestCompileSpreadCallUsesCallSpread(t *testing.T) {
	c := mustCompile(t, `func f(a, b) { return a; } var rest = [1, 2]; f(...rest);`, compiler.TCOOff)
	require.True(t, containsOp(c, chunk.OpCallSpread))
}

func TestCompileRefParamReadDereferences(t *testing.T) {
	c := mustCompile(t, `func bump(ref x) { var y = x; return y; }`, compiler.TCOOff)
	require.True(t, containsOp(c, chunk.OpDeref), "reading a ref-qualified param must go through DEREF")
}

func TestCompileRefParamPlainAssignWritesThroughReference(t *testing.T) {
	c := mustCompile(t, `func bump(ref x) { x = x + 1; }`, compiler.TCOOff)
	require.True(t, containsOp(c, chunk.OpRefSet), "assigning to a ref param must go through REF_SET")
}

func TestCompileSlotRebindBypassesReference(t *testing.T) {
	c := mustCompile(t, `func rebind(slot x) { slot x = 5; }`, compiler.TCOOff)
	require.False(t, containsOp(c, chunk.OpRefSet), "a slot-target rebind must not go through REF_SET")
}

func TestCompileRefExprEmitsMakeRef(t *testing.T) {
	// Inside a block x is a register local; at module top level it would be
	// a global and get MAKE_GLOBAL_REF instead.
	c := mustCompile(t, `{ var x = 1; var r = ref x; }`, compiler.TCOOff)
	require.True(t, containsOp(c, chunk.OpMakeRef))
}

func TestCompileSwitchCompilesEveryCaseBody(t *testing.T) {
	c := mustCompile(t, `
		var x = 1;
		switch (x) {
		case 1:
			var a = 10;
			break;
		case 2, 3:
			var b = 20;
			break;
		default:
			var c = 30;
		}
	`, compiler.TCOOff)
	// Each case body loads a distinct literal (10, 20, 30); all three must
	// actually have been compiled, not just the per-value equality tests.
	var found10, found20, found30 bool
	for _, k := range c.Constants {
		if k.IsNumber() {
			switch k.AsNumber() {
			case 10:
				found10 = true
			case 20:
				found20 = true
			case 30:
				found30 = true
			}
		}
	}
	require.True(t, found10, "case 1's body should have been compiled")
	require.True(t, found20, "case 2,3's body should have been compiled")
	require.True(t, found30, "default's body should have been compiled")
}

func TestCompileSwitchBreakExitsWithoutFallthroughToNextCompiledBody(t *testing.T) {
	c := mustCompile(t, `
		var x = 1;
		switch (x) {
		case 1:
			var a = 10;
			break;
		case 2:
			var b = 20;
		}
	`, compiler.TCOOff)
	require.True(t, containsOp(c, chunk.OpJump), "break should emit an unconditional jump out of the switch")
}

func TestCompileGotoForwardToLabel(t *testing.T) {
	c := mustCompile(t, `goto done; var x = 1; done: var y = 2;`, compiler.TCOOff)
	require.True(t, containsOp(c, chunk.OpJump))
}

func TestCompileGotoIntoDeeperScopeErrors(t *testing.T) {
	f, err := parser.Parse("t.zym", []byte(`
		goto inner;
		if (true) {
			inner: var x = 1;
		}
	`), nil)
	require.NoError(t, err)
	_, diags := compiler.Compile("t.zym", f, compiler.TCOOff)
	require.NotEmpty(t, diags, "jumping into a deeper scope with a new local must be rejected")
}

func TestCompileGotoUndefinedLabelErrors(t *testing.T) {
	f, err := parser.Parse("t.zym", []byte(`goto nowhere;`), nil)
	require.NoError(t, err)
	_, diags := compiler.Compile("t.zym", f, compiler.TCOOff)
	require.NotEmpty(t, diags)
}

func TestCompileWhileLoopBreakAndContinue(t *testing.T) {
	c := mustCompile(t, `
		var i = 0;
		while (i < 10) {
			if (i == 5) { break; }
			i = i + 1;
			continue;
		}
	`, compiler.TCOOff)
	// Both conditions are direct comparisons against a small integer
	// literal, so each compiles to one fused branch instead of a compare
	// into a register followed by JUMP_IF_FALSE: `i < 10` negates to
	// `i >= 10` (BRANCH_GE_I), `i == 5` negates to `i != 5` (BRANCH_NE_I).
	require.True(t, containsOp(c, chunk.OpBranchGeI))
	require.True(t, containsOp(c, chunk.OpBranchNeI))
	require.True(t, containsOp(c, chunk.OpJump))
}

func TestCompileDoWhileLoopsBackToStart(t *testing.T) {
	c := mustCompile(t, `
		var i = 0;
		do {
			i = i + 1;
		} while (i < 3);
	`, compiler.TCOOff)
	// The condition is tested once per iteration via a fused branch (`i < 3`
	// negates to `i >= 3`, BRANCH_GE_I, taken to skip the backward jump),
	// plus the backward JUMP itself.
	require.True(t, containsOp(c, chunk.OpBranchGeI))
	require.True(t, containsOp(c, chunk.OpJump))
}

func TestCompileClosureCapturesUpvalue(t *testing.T) {
	c := mustCompile(t, `
		func outer() {
			var x = 1;
			func inner() { return x; }
			return inner;
		}
	`, compiler.TCOOff)
	require.True(t, containsOp(c, chunk.OpClosure))

	var outer, inner *value.Function
	for _, k := range c.Constants {
		if fn, ok := k.Obj.(*value.Function); ok && fn.Name == "outer" {
			outer = fn
		}
	}
	require.NotNil(t, outer, "expected outer's *value.Function in the module chunk's constant pool")
	for _, k := range outer.Chunk.(*chunk.Chunk).Constants {
		if fn, ok := k.Obj.(*value.Function); ok && fn.Name == "inner" {
			inner = fn
		}
	}
	require.NotNil(t, inner, "expected inner's *value.Function in the outer chunk's constant pool")
	require.Equal(t, 1, inner.UpvalueCount)
	require.True(t, containsOp(inner.Chunk.(*chunk.Chunk), chunk.OpGetUpvalue))
}

func TestCompileEnumVariantAccessFoldsToConstant(t *testing.T) {
	c := mustCompile(t, `
		enum Color { RED, GREEN, BLUE }
		var c = Color.GREEN;
	`, compiler.TCOOff)
	require.False(t, containsOp(c, chunk.OpFieldGet), "EnumName.VARIANT should fold to a constant load, not a field read")
	var sawEnum bool
	for _, k := range c.Constants {
		if k.IsEnum() {
			sawEnum = true
		}
	}
	require.True(t, sawEnum, "expected an enum constant in the pool")
}

func TestCompileStructPositionalInit(t *testing.T) {
	c := mustCompile(t, `
		struct Point { x, y }
		var p = Point(1, 2);
	`, compiler.TCOOff)
	require.True(t, containsOp(c, chunk.OpStructNew))
}

func TestCompileStructNamedInitWithSpread(t *testing.T) {
	c := mustCompile(t, `
		struct Point { x, y }
		var base = Point(1, 2);
		var p = Point{x: 5, ...base};
	`, compiler.TCOOff)
	require.True(t, containsOp(c, chunk.OpStructNewNamed))
	require.True(t, containsOp(c, chunk.OpStructSpread))
}

func TestCompileListAndMapLiterals(t *testing.T) {
	c := mustCompile(t, `var l = [1, 2, 3]; var m = {"a": 1};`, compiler.TCOOff)
	require.True(t, containsOp(c, chunk.OpNewList))
	require.True(t, containsOp(c, chunk.OpNewMap))
}

func TestCompileMaxRegistersSeenReflectsDeepExpression(t *testing.T) {
	f, err := parser.Parse("t.zym", []byte(`var x = ((1 + 2) * (3 + 4)) - ((5 + 6) * (7 + 8));`), nil)
	require.NoError(t, err)
	fn, diags := compiler.Compile("t.zym", f, compiler.TCOOff)
	require.Empty(t, diags)
	require.Greater(t, fn.MaxRegs, 1)
}

func TestCompileDiagnosticsCarryLineNumbers(t *testing.T) {
	f, err := parser.Parse("t.zym", []byte("\n\ngoto nowhere;\n"), nil)
	require.NoError(t, err)
	_, diags := compiler.Compile("t.zym", f, compiler.TCOOff)
	require.NotEmpty(t, diags)
	require.Equal(t, 3, diags[0].Line)
}

func TestCompileModuleEntryFunctionFlag(t *testing.T) {
	f, err := parser.Parse("t.zym", []byte(`var x = 1;`), nil)
	require.NoError(t, err)
	fn, diags := compiler.Compile("t.zym", f, compiler.TCOOff)
	require.Empty(t, diags)
	require.True(t, fn.IsModuleEntry)
}

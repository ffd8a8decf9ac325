package vm

import (
	"testing"

	"github.com/zym-lang/zym/internal/chunk"
	"github.com/zym-lang/zym/internal/gcroots"
	"github.com/zym-lang/zym/internal/value"
)

// Every hand-assembled chunk below reserves register 0 for the running
// frame's own closure self-reference (the R0 convention internal/compiler
// uses when numbering parameters from register 1), so locals and
// parameters start at register 1 exactly like compiler-emitted code.

func newTestVM() *VM {
	arena := gcroots.NewArena(0)
	interner := value.NewInterner(func(o value.Object, size int) { arena.Track(o, size) })
	globals := value.NewGlobals()
	return NewVM(arena, interner, globals)
}

func runClosure(t *testing.T, vm *VM, fn *value.Function, args ...value.Value) value.Value {
	t.Helper()
	cl := value.NewClosure(fn, vm.Globals)
	result, err := vm.Run(cl, args)
	if err != nil {
		t.Fatalf("vm.Run: %v", err)
	}
	return result
}

func TestArithmetic(t *testing.T) {
	vm := newTestVM()

	c := chunk.New("arith")
	k2 := c.AddConstant(value.Number(2))
	k3 := c.AddConstant(value.Number(3))
	c.EmitABx(chunk.OpLoadConst, 1, int16(k2), 1)
	c.EmitABx(chunk.OpLoadConst, 2, int16(k3), 1)
	c.EmitABC(chunk.OpAdd, 3, 1, 2, 1)
	c.EmitABC(chunk.OpReturn, 3, 0, 0, 1)

	fn := &value.Function{Name: "main", Arity: 0, MaxRegs: 4, Chunk: c}
	result := runClosure(t, vm, fn)

	if !result.IsNumber() || result.AsNumber() != 5 {
		t.Fatalf("got %v, want 5", result)
	}
}

func TestImmediateAndLiteralForms(t *testing.T) {
	vm := newTestVM()

	c := chunk.New("peephole")
	k10 := c.AddConstant(value.Number(10))
	c.EmitABx(chunk.OpLoadConst, 1, int16(k10), 1)
	// r2 = r1 + 5 (immediate form)
	c.EmitABC(chunk.OpAddI, 2, 1, 0, 1)
	c.EmitImmediateOperand(5, 1)
	// r3 = r2 * 2.5 (literal form)
	c.EmitABC(chunk.OpMulL, 3, 2, 0, 1)
	c.EmitLiteralOperand(2.5, 1)
	c.EmitABC(chunk.OpReturn, 3, 0, 0, 1)

	fn := &value.Function{Name: "main", Arity: 0, MaxRegs: 4, Chunk: c}
	result := runClosure(t, vm, fn)

	if !result.IsNumber() || result.AsNumber() != 37.5 {
		t.Fatalf("got %v, want 37.5", result)
	}
}

func TestFunctionCall(t *testing.T) {
	vm := newTestVM()

	square := chunk.New("square")
	square.EmitABC(chunk.OpMul, 1, 1, 1, 1)
	square.EmitABC(chunk.OpReturn, 1, 0, 0, 1)
	squareFn := &value.Function{Name: "square", Arity: 1, MaxRegs: 2, Chunk: square, ParamQuals: []value.Qualifier{value.QualNormal}}

	main := chunk.New("main")
	kFn := main.AddConstant(value.Obj(squareFn))
	kArg := main.AddConstant(value.Number(5))
	main.EmitABx(chunk.OpClosure, 1, int16(kFn), 1)
	main.EmitABx(chunk.OpLoadConst, 2, int16(kArg), 1)
	main.EmitABC(chunk.OpCall, 1, 1, 1, 1)
	main.EmitABC(chunk.OpReturn, 1, 0, 0, 1)

	mainFn := &value.Function{Name: "main", Arity: 0, MaxRegs: 3, Chunk: main}
	result := runClosure(t, vm, mainFn)

	if !result.IsNumber() || result.AsNumber() != 25 {
		t.Fatalf("got %v, want 25", result)
	}
}

func TestTailCallIsConstantStackSpace(t *testing.T) {
	vm := newTestVM()

	// countdown(n) { if n <= 0 { return n } return countdown(n - 1) } (tail)
	count := chunk.New("countdown")
	k0 := count.AddConstant(value.Number(0))
	count.EmitABx(chunk.OpLoadConst, 2, int16(k0), 1)
	// n <= 0: jump past the recursive branch straight to "return n"
	jumpIdx := count.EmitJump(chunk.OpBranchLe, 1, 1)
	count.EmitRegisterOperand(2, 1)
	// n > 0: tail-recurse with n-1
	k1 := count.AddConstant(value.Number(1))
	count.EmitABx(chunk.OpLoadConst, 3, int16(k1), 1)
	count.EmitABC(chunk.OpSub, 4, 1, 3, 1)
	selfIdx := count.AddConstant(value.Null) // placeholder patched below
	count.EmitABx(chunk.OpGetGlobal, 5, int16(selfIdx), 1)
	count.EmitABC(chunk.OpMove, 6, 4, 0, 1)
	count.EmitABC(chunk.OpTailCall, 5, 1, 1, 1)
	// n <= 0 lands here: return n
	if err := count.PatchJump(jumpIdx); err != nil {
		t.Fatalf("PatchJump: %v", err)
	}
	count.EmitABC(chunk.OpReturn, 1, 0, 0, 1)

	countFn := &value.Function{Name: "countdown", Arity: 1, MaxRegs: 7, Chunk: count, ParamQuals: []value.Qualifier{value.QualNormal}}
	cl := value.NewClosure(countFn, vm.Globals)
	vm.Globals.Set("countdown", value.Obj(cl))
	count.Constants[selfIdx] = value.Obj(vm.Interner.Intern("countdown"))

	result, err := vm.Run(cl, []value.Value{value.Number(100000)})
	if err != nil {
		t.Fatalf("vm.Run: %v", err)
	}
	if !result.IsNumber() || result.AsNumber() != 0 {
		t.Fatalf("got %v, want 0", result)
	}
}

func TestListIndexing(t *testing.T) {
	vm := newTestVM()

	c := chunk.New("list")
	k1 := c.AddConstant(value.Number(10))
	k2 := c.AddConstant(value.Number(20))
	k3 := c.AddConstant(value.Number(30))
	c.EmitABx(chunk.OpLoadConst, 1, int16(k1), 1)
	c.EmitABx(chunk.OpLoadConst, 2, int16(k2), 1)
	c.EmitABx(chunk.OpLoadConst, 3, int16(k3), 1)
	c.EmitABC(chunk.OpNewList, 4, 1, 3, 1) // r4 = [r1,r2,r3]
	kIdx := c.AddConstant(value.Number(1))
	c.EmitABx(chunk.OpLoadConst, 5, int16(kIdx), 1)
	c.EmitABC(chunk.OpIndexGet, 6, 4, 5, 1)
	c.EmitABC(chunk.OpReturn, 6, 0, 0, 1)

	fn := &value.Function{Name: "main", Arity: 0, MaxRegs: 7, Chunk: c}
	result := runClosure(t, vm, fn)

	if !result.IsNumber() || result.AsNumber() != 20 {
		t.Fatalf("got %v, want 20", result)
	}
}

func TestClosureCapturesUpvalue(t *testing.T) {
	vm := newTestVM()

	// inner() { return x } capturing local x from the outer frame.
	inner := chunk.New("inner")
	inner.EmitABC(chunk.OpGetUpvalue, 1, 0, 0, 1)
	inner.EmitABC(chunk.OpReturn, 1, 0, 0, 1)
	innerFn := &value.Function{Name: "inner", Arity: 0, MaxRegs: 2, Chunk: inner, UpvalueCount: 1}

	// outer() { var x = 42; var f = closure over inner, capturing local x; return f() }
	outer := chunk.New("outer")
	k42 := outer.AddConstant(value.Number(42))
	kInner := outer.AddConstant(value.Obj(innerFn))
	outer.EmitABx(chunk.OpLoadConst, 1, int16(k42), 1) // r1 = x = 42
	outer.EmitABx(chunk.OpClosure, 2, int16(kInner), 1)
	outer.EmitUpvalueCapture(true, 1, 1) // capture local r1
	outer.EmitABC(chunk.OpCall, 2, 1, 0, 1)
	outer.EmitABC(chunk.OpReturn, 2, 0, 0, 1)
	outerFn := &value.Function{Name: "outer", Arity: 0, MaxRegs: 3, Chunk: outer}

	result := runClosure(t, vm, outerFn)
	if !result.IsNumber() || result.AsNumber() != 42 {
		t.Fatalf("got %v, want 42", result)
	}
}

func TestDispatcherResolvesByArity(t *testing.T) {
	vm := newTestVM()

	one := chunk.New("one@1")
	one.EmitABC(chunk.OpReturn, 1, 0, 0, 1)
	oneFn := &value.Function{Name: "f", Arity: 1, MaxRegs: 2, Chunk: one, ParamQuals: []value.Qualifier{value.QualNormal}}

	two := chunk.New("two@2")
	two.EmitABC(chunk.OpAdd, 3, 1, 2, 1)
	two.EmitABC(chunk.OpReturn, 3, 0, 0, 1)
	twoFn := &value.Function{Name: "f", Arity: 2, MaxRegs: 4, Chunk: two, ParamQuals: []value.Qualifier{value.QualNormal, value.QualNormal}}

	vm.Globals.Set("f@1", value.Obj(value.NewClosure(oneFn, vm.Globals)))
	vm.Globals.Set("f@2", value.Obj(value.NewClosure(twoFn, vm.Globals)))
	vm.BuildDispatchers(nil)

	d, ok := vm.Globals.Get("__dispatcher_f")
	if !ok {
		t.Fatalf("expected __dispatcher_f to be installed")
	}
	disp, ok := d.Obj.(*value.Dispatcher)
	if !ok {
		t.Fatalf("expected a *value.Dispatcher, got %T", d.Obj)
	}

	resolved, ok := disp.Resolve(2)
	if !ok {
		t.Fatalf("expected dispatcher to resolve arity 2")
	}
	if resolved.Obj.(*value.Closure).Fn.Name != "f" {
		t.Fatalf("resolved wrong function")
	}

	// Drive the same resolution through a real OpCall against the bare
	// "f" global, the path the compiler emits for an ambiguous native —
	// BuildDispatchers only installs that bare key when nativeAmbiguous
	// names it, so install it here to exercise callValue's Dispatcher case.
	vm.Globals.Set("f", d)

	main := chunk.New("main")
	kFn := main.AddConstant(value.Null)
	k1 := main.AddConstant(value.Number(4))
	k2 := main.AddConstant(value.Number(6))
	main.EmitABx(chunk.OpGetGlobal, 1, int16(kFn), 1)
	main.EmitABx(chunk.OpLoadConst, 2, int16(k1), 1)
	main.EmitABx(chunk.OpLoadConst, 3, int16(k2), 1)
	main.EmitABC(chunk.OpCall, 1, 1, 2, 1)
	main.EmitABC(chunk.OpReturn, 1, 0, 0, 1)
	main.Constants[kFn] = value.Obj(vm.Interner.Intern("f"))

	mainFn := &value.Function{Name: "main", Arity: 0, MaxRegs: 4, Chunk: main}
	result := runClosure(t, vm, mainFn)
	if !result.IsNumber() || result.AsNumber() != 10 {
		t.Fatalf("got %v, want 10", result)
	}
}

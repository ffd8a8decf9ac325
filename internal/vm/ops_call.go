package vm

import (
	"github.com/zym-lang/zym/internal/chunk"
	"github.com/zym-lang/zym/internal/value"
)

// bindArgs applies each parameter's qualifier to the matching argument
// (spec.md §4.3.3): VAL shallow-clones, CLONE deep-clones, NORMAL/REF/SLOT
// pass the value through unchanged. REF/SLOT parameters rely on the caller
// having already produced a *value.Reference via an explicit `ref`/`slot`
// expression at the call site (internal/compiler/assign.go's compileRef) —
// there is no call-site machinery that can manufacture a reference after
// the fact, since by the time an argument reaches a register it is already
// just a value.
func (vm *VM) bindArgs(quals []value.Qualifier, args []value.Value) []value.Value {
	if len(quals) == 0 {
		return args
	}
	bound := make([]value.Value, len(args))
	copy(bound, args)
	for i := range bound {
		if i >= len(quals) {
			break
		}
		switch quals[i] {
		case value.QualVal:
			bound[i] = vm.shallowClone(bound[i])
		case value.QualClone:
			bound[i] = value.DeepClone(bound[i], vm.track)
		}
	}
	return bound
}

// shallowClone implements the VAL qualifier (spec.md §4.3.3: "evaluate then
// shallow-clone"): one level of copying for the mutable container kinds,
// identity for everything else. Grounded on internal/value/clone.go's
// DeepClone switch, truncated to depth one.
func (vm *VM) shallowClone(v value.Value) value.Value {
	if !v.IsObject() || v.Obj == nil {
		return v
	}
	switch o := v.Obj.(type) {
	case *value.List:
		clone := value.NewList(append([]value.Value(nil), o.Elems...))
		vm.track(clone, len(clone.Elems)*16)
		return value.Obj(clone)
	case *value.Map:
		clone := value.NewMap(o.Len())
		vm.track(clone, o.Len()*32)
		o.Each(func(k string, val value.Value) { clone.Set(k, val) })
		return value.Obj(clone)
	case *value.StructInstance:
		clone := value.NewStructInstance(o.Schema)
		copy(clone.Fields, o.Fields)
		vm.track(clone, len(clone.Fields)*16)
		return value.Obj(clone)
	default:
		return v
	}
}

// pushCall binds args into a fresh Frame over cl and pushes it as the
// current frame, returning it. resultReg is meaningless for the very first
// frame Run pushes (there is no caller register to write back into).
func (vm *VM) pushCall(cl *value.Closure, args []value.Value, resultReg uint8) (*Frame, error) {
	if len(vm.frames) >= MaxFrameCount {
		return nil, vm.runtimeErrf("stack overflow: call depth exceeds %d", MaxFrameCount)
	}
	fn := cl.Fn
	if len(args) != fn.Arity {
		return nil, vm.runtimeErrf("%s: expected %d argument(s), got %d", fn.Name, fn.Arity, len(args))
	}
	bound := vm.bindArgs(fn.ParamQuals, args)

	regs := make([]value.Value, fn.MaxRegs)
	regs[0] = value.Obj(cl)
	copy(regs[1:], bound)

	c, ok := fn.Chunk.(*chunk.Chunk)
	if !ok {
		return nil, vm.runtimeErrf("%s: function has no executable chunk", fn.Name)
	}
	f := &Frame{Closure: cl, Chunk: c, ResultReg: resultReg}
	f.Registers = regs
	vm.frames = append(vm.frames, f)
	return f, nil
}

// callValue invokes callee (a Closure, NativeFunction, NativeClosure, or
// Dispatcher) with the given already-gathered argument values, from the
// current frame. For a Closure it pushes a new Frame and returns
// pushed=true, meaning the dispatch loop should continue from the new top
// frame; for everything else the call completes synchronously and its
// result is returned directly.
func (vm *VM) callValue(callee value.Value, args []value.Value, resultReg uint8) (result value.Value, pushed bool, err error) {
	if !callee.IsObject() || callee.Obj == nil {
		return value.Null, false, vm.runtimeErrf("attempt to call a non-function value of type %s", callee.TypeName())
	}
	switch fn := callee.Obj.(type) {
	case *value.Closure:
		if _, err := vm.pushCall(fn, args, resultReg); err != nil {
			return value.Null, false, err
		}
		return value.Null, true, nil
	case *value.NativeFunction:
		if len(args) != fn.Arity {
			return value.Null, false, vm.runtimeErrf("%s: expected %d argument(s), got %d", fn.Name, fn.Arity, len(args))
		}
		bound := vm.bindArgs(fn.ParamQuals, args)
		v, callErr := fn.Fn(vm.NativeCtx, bound)
		if callErr != nil {
			return value.Null, false, vm.runtimeErrf("%s", callErr.Error())
		}
		return v, false, nil
	case *value.NativeClosure:
		if len(args) != fn.Arity {
			return value.Null, false, vm.runtimeErrf("%s: expected %d argument(s), got %d", fn.Name, fn.Arity, len(args))
		}
		v, callErr := fn.Call(vm.NativeCtx, args)
		if callErr != nil {
			return value.Null, false, vm.runtimeErrf("%s", callErr.Error())
		}
		return v, false, nil
	case *value.Dispatcher:
		resolved, ok := fn.Resolve(len(args))
		if !ok {
			return value.Null, false, vm.runtimeErrf("%s: no overload takes %d argument(s)", fn.Name, len(args))
		}
		return vm.callValue(resolved, args, resultReg)
	default:
		return value.Null, false, vm.runtimeErrf("attempt to call a non-function value of type %s", callee.TypeName())
	}
}

// gatherArgs reads the fixed argument registers fnReg+1..fnReg+argc,
// optionally appending a spread list's elements (spec.md §4.3's
// OpCallSpread), matching compileCall's register layout exactly
// (internal/compiler/call.go).
func gatherArgs(f *Frame, fnReg uint8, argc int, spread bool) ([]value.Value, error) {
	args := make([]value.Value, 0, argc+4)
	for i := 1; i <= argc; i++ {
		args = append(args, f.Registers[fnReg+uint8(i)])
	}
	if spread {
		sv := f.Registers[fnReg+uint8(argc)+1]
		lst, ok := sv.Obj.(*value.List)
		if !ok {
			return nil, &badSpreadError{}
		}
		args = append(args, lst.Elems...)
	}
	return args, nil
}

type badSpreadError struct{}

func (*badSpreadError) Error() string { return "spread argument is not a list" }

// execCall handles OpCall/OpCallSpread: A=fnReg, B=1 (hardcoded result
// count), C=fixed argument count.
func (vm *VM) execCall(f *Frame, a, _, c uint8, spread bool) error {
	callee := f.Registers[a]
	args, gerr := gatherArgs(f, a, int(c), spread)
	if gerr != nil {
		return vm.runtimeErrf("%s", gerr.Error())
	}
	result, pushed, err := vm.callValue(callee, args, a)
	if err != nil {
		return err
	}
	if !pushed {
		f.Registers[a] = result
	}
	return nil
}

// execTailCall handles OpTailCall/OpSmartTailCall/OpTailCallSelf/
// OpSmartTailCallSelf. The "always" forms (non-Smart) reuse the current
// frame unconditionally, closing any open upvalues first since the
// register window they point into is about to be overwritten. The "smart"
// forms only reuse the frame when it has no open upvalues to begin with
// (closing none of them), falling back to an ordinary pushed call
// otherwise — a cheap, always-correct stand-in for "would the callee's
// captures change" (internal/compiler/call.go's tailOp comment), since a
// frame with nothing captured never has anything to protect either way.
func (vm *VM) execTailCall(f *Frame, a, c uint8, spread, smart bool) error {
	callee := f.Registers[a]
	args, gerr := gatherArgs(f, a, int(c), spread)
	if gerr != nil {
		return vm.runtimeErrf("%s", gerr.Error())
	}
	if !callee.IsObject() {
		return vm.runtimeErrf("attempt to call a non-function value of type %s", callee.TypeName())
	}
	cl, ok := callee.Obj.(*value.Closure)
	if !ok {
		// Tail-calling a native or dispatcher can't reuse the frame (there is
		// nothing to reuse); fall back to a synchronous call and return.
		result, pushed, err := vm.callValue(callee, args, f.ResultReg)
		if err != nil {
			return err
		}
		if !pushed {
			return vm.doReturn(result)
		}
		return nil
	}
	if smart && len(f.OpenUpvalues) > 0 {
		if _, err := vm.pushCall(cl, args, f.ResultReg); err != nil {
			return err
		}
		return nil
	}
	f.closeFrom(0)
	bound := vm.bindArgs(cl.Fn.ParamQuals, args)
	if len(bound) != cl.Fn.Arity {
		return vm.runtimeErrf("%s: expected %d argument(s), got %d", cl.Fn.Name, cl.Fn.Arity, len(bound))
	}
	regs := f.Registers
	if cap(regs) < cl.Fn.MaxRegs {
		regs = make([]value.Value, cl.Fn.MaxRegs)
	} else {
		regs = regs[:cl.Fn.MaxRegs]
		for i := range regs {
			regs[i] = value.Value{}
		}
	}
	regs[0] = value.Obj(cl)
	copy(regs[1:], bound)
	f.Registers = regs
	f.Closure = cl
	f.Chunk = cl.Fn.Chunk.(*chunk.Chunk)
	f.PC = 0
	return nil
}

// doReturn pops the current frame, closing its open upvalues, and either
// stores the final program result (outermost frame) or writes value into
// the newly-exposed caller frame's result register and resumes it.
func (vm *VM) doReturn(val value.Value) error {
	f := vm.current()
	f.closeFrom(0)
	vm.frames = vm.frames[:len(vm.frames)-1]
	if len(vm.frames) == 0 {
		vm.result = val
		vm.halted = true
		return nil
	}
	caller := vm.current()
	caller.Registers[f.ResultReg] = val
	return nil
}

// execClosure handles OpClosure: A=target, Bx=function constant index,
// followed by UpvalueCount trailing capture-descriptor words (spec.md
// §4.3.2, internal/chunk's EmitUpvalueCapture/ReadUpvalueCapture).
func (vm *VM) execClosure(f *Frame, a uint8, bx int16) error {
	k := f.Chunk.Constants[bx]
	fn, ok := k.Obj.(*value.Function)
	if !ok {
		return vm.runtimeErrf("CLOSURE: constant %d is not a function", bx)
	}
	cl := value.NewClosure(fn, vm.Globals)
	vm.track(cl, 32+len(cl.Upvalues)*8)

	for i := 0; i < fn.UpvalueCount; i++ {
		word := f.Chunk.Code[f.PC+1+i]
		isLocal, index := chunk.ReadUpvalueCapture(word)
		if isLocal {
			if u := f.findOpenUpvalue(index); u != nil {
				cl.Upvalues[i] = u
			} else {
				u := value.NewOpenUpvalue(&f.Frame, index)
				f.OpenUpvalues = append(f.OpenUpvalues, u)
				vm.track(u, 24)
				cl.Upvalues[i] = u
			}
		} else {
			cl.Upvalues[i] = f.Closure.Upvalues[index]
		}
	}
	f.Registers[a] = value.Obj(cl)
	f.PC += 1 + fn.UpvalueCount
	return nil
}

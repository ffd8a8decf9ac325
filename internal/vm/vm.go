// Package vm implements Zym's register-windowed bytecode interpreter
// (spec.md §4, §9). Grounded on funxy's internal/vm/vm.go (a
// CallFrame stack over one growable operand stack, a shared globals table,
// an open-upvalues list, frame/stack growth limits), generalized from
// funxy's single flat operand stack to spec.md §4.3.1's per-frame register
// window: each Frame owns its own []value.Value sized to its closure's
// Function.MaxRegs, rather than every frame carving a range out of one
// process-wide stack. Open upvalues are therefore tracked per frame instead
// of in one globally sorted list (internal/value.Upvalue already aliases a
// *value.Frame directly, so there is no stack-offset indirection to thread
// through a shared list in the first place).
package vm

import (
	"fmt"

	"github.com/zym-lang/zym/internal/chunk"
	"github.com/zym-lang/zym/internal/gcroots"
	"github.com/zym-lang/zym/internal/linemap"
	"github.com/zym-lang/zym/internal/value"
	"github.com/zym-lang/zym/internal/zymerr"
)

// MaxFrameCount bounds call depth, mirroring funxy's
// internal/vm/vm.go MaxFrameCount guard against runaway (non-tail)
// recursion.
const MaxFrameCount = 4096

// Frame is one activation record: a register window plus the bytecode and
// program counter executing over it, and the upvalues this activation has
// opened over its own registers so far (spec.md §3, §4.5).
type Frame struct {
	value.Frame // Registers []value.Value

	Closure      *value.Closure
	Chunk        *chunk.Chunk
	PC           int
	OpenUpvalues []*value.Upvalue

	// ResultReg is the register in the CALLER's window that should receive
	// this frame's return value. Unused (zero) for the outermost frame,
	// whose result is returned directly from Run instead of written
	// through to any caller.
	ResultReg uint8
}

func (f *Frame) findOpenUpvalue(loc int) *value.Upvalue {
	for _, u := range f.OpenUpvalues {
		if u.Location == loc {
			return u
		}
	}
	return nil
}

// closeOne closes the single open upvalue at exactly slot, if any (clox's
// single-variable OpCloseUpvalue, emitted when one local's scope ends
// without a sibling reaching further back — as opposed to
// OpCloseFrameUpvalues' closeFrom, emitted for a whole block's worth at
// once).
func (f *Frame) closeOne(slot int) {
	for i, u := range f.OpenUpvalues {
		if u.Location == slot {
			u.Close()
			f.OpenUpvalues = append(f.OpenUpvalues[:i], f.OpenUpvalues[i+1:]...)
			return
		}
	}
}

// closeFrom closes every open upvalue at or above slot, detaching it from
// this frame's register window (clox's CLOSE_UPVALUE semantics, spec.md
// §4.3's OpCloseFrameUpvalues). closeFrom(0) closes all of them, the form
// used when a frame returns or is reused by a tail call.
func (f *Frame) closeFrom(slot int) {
	kept := f.OpenUpvalues[:0]
	for _, u := range f.OpenUpvalues {
		if u.Location >= slot {
			u.Close()
		} else {
			kept = append(kept, u)
		}
	}
	f.OpenUpvalues = kept
}

// VM is a single running program: one shared globals table, one string
// interner, one allocator arena, and the live call-frame stack (spec.md §5:
// "a single process-wide instance threaded by reference"). NativeCtx is the
// opaque handle every native function call receives, letting a native call
// back into vm without internal/value importing this package.
type VM struct {
	Arena    *gcroots.Arena
	Interner *value.Interner
	Globals  *value.Globals
	Modules  map[string]*linemap.Map // module name -> combined-source line map, for stack traces

	NativeCtx *value.NativeContext

	frames []*Frame
	result value.Value
	halted bool
}

// NewVM wires an Arena, Interner and Globals into a fresh VM. The three are
// constructed separately (rather than inside NewVM) because internal/loader
// needs the Interner before the VM exists, to intern string constants while
// decoding bytecode.
func NewVM(arena *gcroots.Arena, interner *value.Interner, globals *value.Globals) *VM {
	vm := &VM{Arena: arena, Interner: interner, Globals: globals, Modules: make(map[string]*linemap.Map)}
	vm.NativeCtx = &value.NativeContext{Handle: vm}
	arena.Track(vm.NativeCtx, 24)
	return vm
}

// GCRoots implements gcroots.RootProvider: every value reachable from the
// globals table, every live frame's register window, every frame's open
// upvalues, and the VM's own native-call handle (spec.md §4.5).
func (vm *VM) GCRoots() []value.Object {
	var roots []value.Object
	vm.Globals.Each(func(_ string, v value.Value) { roots = appendValueRoot(roots, v) })
	for _, f := range vm.frames {
		for _, r := range f.Registers {
			roots = appendValueRoot(roots, r)
		}
		for _, u := range f.OpenUpvalues {
			roots = append(roots, u)
		}
	}
	if vm.NativeCtx != nil {
		roots = append(roots, vm.NativeCtx)
	}
	return roots
}

func appendValueRoot(roots []value.Object, v value.Value) []value.Object {
	if v.IsObject() && v.Obj != nil {
		return append(roots, v.Obj)
	}
	if v.IsEnum() {
		return append(roots, v.AsEnumSchema())
	}
	return roots
}

// track runs a GC check, then links o into the arena as a freshly allocated
// object of size bytes. Every opcode handler that creates a heap object
// goes through this rather than calling Arena.Track directly, so the
// check-before-allocate order (spec.md §4.5) is never forgotten at a call
// site.
func (vm *VM) track(o value.Object, size int) {
	if vm.Arena.ShouldCollect() {
		vm.Arena.Collect(vm)
	}
	vm.Arena.Track(o, size)
}

// Run executes entry with args bound as its top-level parameters (spec.md
// §4.2's "module entry function", or any closure an embedder invokes
// directly) and returns its result once the frame stack empties.
func (vm *VM) Run(entry *value.Closure, args []value.Value) (result value.Value, err error) {
	defer zymerr.Recover(&err)

	if _, bindErr := vm.pushCall(entry, args, 0); bindErr != nil {
		return value.Null, bindErr
	}
	if err := vm.execute(); err != nil {
		return value.Null, err
	}
	return vm.result, nil
}

func (vm *VM) current() *Frame { return vm.frames[len(vm.frames)-1] }

// BuildDispatchers installs Dispatcher values for every ambiguous-arity
// overload group among vm.Globals, using vm's own allocator so the
// synthesized Dispatchers are tracked like any other heap object (spec.md
// §8). nativeAmbiguous is internal/native's Registry.AmbiguousNames() for
// whatever natives were installed into this VM's globals.
func (vm *VM) BuildDispatchers(nativeAmbiguous []string) {
	BuildDispatchers(vm.Globals, nativeAmbiguous, vm.track)
}

// runtimeErrf builds a Diagnostic for the currently executing instruction,
// mapping its chunk line back through this module's LineMap (spec.md §4.2,
// §9's "stack trace synthesized from Chunk.lines mapped back through
// LineMap to original (file, line) pairs") when one is registered.
func (vm *VM) runtimeErrf(format string, args ...any) error {
	f := vm.current()
	line := 0
	module := f.Chunk.Name
	if f != nil {
		// f.PC is managed per-opcode (advanced only once an instruction
		// finishes successfully), so it already names the instruction
		// currently executing when a handler reports a failure.
		line = f.Chunk.LineFor(f.PC)
		if m, ok := vm.Modules[f.Chunk.Name]; ok {
			if e := m.At(line); !e.IsSynthetic() {
				module, line = e.File, e.Line
			}
		}
	}
	return &zymerr.Diagnostic{Kind: zymerr.KindRuntime, Module: module, Line: line, Message: fmt.Sprintf(format, args...)}
}

// StackTrace renders the current frame stack, innermost first, for an
// uncaught runtime error (spec.md §9).
func (vm *VM) StackTrace() []string {
	trace := make([]string, 0, len(vm.frames))
	for i := len(vm.frames) - 1; i >= 0; i-- {
		f := vm.frames[i]
		line := f.Chunk.LineFor(f.PC)
		module := f.Chunk.Name
		if m, ok := vm.Modules[f.Chunk.Name]; ok {
			if e := m.At(line); !e.IsSynthetic() {
				module, line = e.File, e.Line
			}
		}
		name := f.Closure.Fn.Name
		trace = append(trace, fmt.Sprintf("  at %s (%s:%d)", name, module, line))
	}
	return trace
}

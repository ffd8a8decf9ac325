package value

import "fmt"

// Qualifier is a parameter-passing mode (spec.md §4.3.3).
type Qualifier uint8

const (
	QualNormal Qualifier = iota
	QualRef
	QualSlot
	QualVal
	QualClone
)

func (q Qualifier) String() string {
	switch q {
	case QualRef:
		return "ref"
	case QualSlot:
		return "slot"
	case QualVal:
		return "val"
	case QualClone:
		return "clone"
	default:
		return "normal"
	}
}

// QualifierSignature is the compiler-computed 8-bit summary the VM's call
// fast path switches on (spec.md §4.3.3), grounded on funxy's own
// arity/defaults fast-path fields on CompiledFunction (internal/vm/objects.go)
// generalized from "has defaults or not" to "has ref-like qualifiers or not".
type QualifierSignature uint8

const (
	SigAllNormalNoRefs QualifierSignature = iota // zero params
	SigAllNormal                                  // any arity, every param NORMAL
	SigHasQualifiers                              // at least one REF/SLOT/VAL/CLONE param
)

// ComputeQualifierSignature derives the signature from a parameter
// qualifier list.
func ComputeQualifierSignature(params []Qualifier) QualifierSignature {
	if len(params) == 0 {
		return SigAllNormalNoRefs
	}
	for _, q := range params {
		if q != QualNormal {
			return SigHasQualifiers
		}
	}
	return SigAllNormal
}

// Chunk is the bytecode a Function executes; defined as an interface here
// (rather than importing internal/chunk, which would create an import
// cycle since internal/chunk's constant pool holds Values) and satisfied by
// *chunk.Chunk.
type Chunk interface {
	InstructionCount() int
}

// Function is a compiled, not-yet-closed-over function (spec.md §3): one
// per `func` declaration or function expression, shared by every Closure
// created over it. MangledName is `name@arity` (spec.md §4.3.2); Name is
// the surface-syntax name for diagnostics and Inspect.
type Function struct {
	Header
	Name          string
	MangledName   string
	Arity         int
	ParamQuals    []Qualifier
	QualSig       QualifierSignature
	MaxRegs       int
	UpvalueCount  int
	Chunk         Chunk
	IsModuleEntry bool // true for a module's synthetic top-level factory function
}

var _ Object = (*Function)(nil)

func (*Function) ObjectKind() ObjectKind { return ObjFunction }
func (*Function) TypeName() string       { return "function" }
func (f *Function) Inspect() string      { return fmt.Sprintf("<fn %s>", f.Name) }
func (f *Function) Hash() uint64         { return uint64(uintptr(objectAddr(f))) }
func (f *Function) Equals(o Object) bool { return identityEquals(f, o) }

// Upvalue is a captured variable, open (pointing at a live frame register)
// or closed (holding its own copy after the owning frame returns), per
// spec.md §3 and grounded on funxy's ObjUpvalue (internal/vm/objects.go):
// same Location/Closed/Next shape. The VM keeps open upvalues in each
// frame's own OpenUpvalues slice rather than a linked list, so Next is
// never set.
type Upvalue struct {
	Header
	Location int    // index into the owning frame's register window while open
	Closed   *Value // non-nil once closed
	Next     *Upvalue
	frame    *Frame // owning frame, nil once closed
}

var _ Object = (*Upvalue)(nil)

func NewOpenUpvalue(frame *Frame, location int) *Upvalue {
	return &Upvalue{Location: location, frame: frame}
}

func (*Upvalue) ObjectKind() ObjectKind { return ObjUpvalue }
func (*Upvalue) TypeName() string       { return "upvalue" }
func (u *Upvalue) Inspect() string      { return "<upvalue>" }
func (u *Upvalue) Hash() uint64         { return uint64(uintptr(objectAddr(u))) }
func (u *Upvalue) Equals(o Object) bool { return identityEquals(u, o) }

func (u *Upvalue) IsOpen() bool { return u.Closed == nil }

// Get reads through the upvalue, whether open or closed.
func (u *Upvalue) Get() Value {
	if u.Closed != nil {
		return *u.Closed
	}
	return u.frame.Registers[u.Location]
}

// Set writes through the upvalue.
func (u *Upvalue) Set(v Value) {
	if u.Closed != nil {
		*u.Closed = v
		return
	}
	u.frame.Registers[u.Location] = v
}

// Close detaches the upvalue from its frame, copying the current value into
// Closed; called when the owning register's scope ends (compiler-emitted
// CLOSE_UPVALUE) or the frame returns.
func (u *Upvalue) Close() {
	if u.Closed != nil {
		return
	}
	v := u.frame.Registers[u.Location]
	u.Closed = &v
	u.frame = nil
}

// Frame is the minimal register-window view Upvalue needs; internal/vm
// defines the full call-frame type and satisfies this shape structurally
// (Go interfaces would work too, but a concrete shared type avoids a second
// indirection on every upvalue read in the hot path).
type Frame struct {
	Registers []Value
}

// Closure pairs a Function with the Upvalues it captured at creation time
// (spec.md §3), plus a pointer to the shared module-globals table it closed
// over — every closure created while compiling or running one loaded
// program shares the same Globals map, per SPEC_FULL.md's module/global
// interaction note.
type Closure struct {
	Header
	Fn       *Function
	Upvalues []*Upvalue
	Globals  *Globals
}

var _ Object = (*Closure)(nil)

func NewClosure(fn *Function, globals *Globals) *Closure {
	return &Closure{Fn: fn, Upvalues: make([]*Upvalue, fn.UpvalueCount), Globals: globals}
}

func (*Closure) ObjectKind() ObjectKind { return ObjClosure }
func (*Closure) TypeName() string       { return "function" }
func (c *Closure) Inspect() string      { return fmt.Sprintf("<closure %s>", c.Fn.Name) }
func (c *Closure) Hash() uint64         { return uint64(uintptr(objectAddr(c))) }
func (c *Closure) Equals(o Object) bool { return identityEquals(c, o) }

// Globals is the single process-wide (per loaded program) global-variable
// table every module and every closure shares, per spec.md §5's note that
// the VM is "a single process-wide instance threaded by reference", made
// into an explicit handle rather than a package-level singleton as §9
// instructs.
type Globals struct {
	byName map[string]Value
}

func NewGlobals() *Globals { return &Globals{byName: make(map[string]Value)} }

func (g *Globals) Get(name string) (Value, bool) { v, ok := g.byName[name]; return v, ok }
func (g *Globals) Set(name string, v Value)      { g.byName[name] = v }
func (g *Globals) Has(name string) bool          { _, ok := g.byName[name]; return ok }

// Each calls fn once per global, for the GC's root walk and for
// internal/vm's post-load Dispatcher-synthesis pass (spec.md §4.5, §8).
func (g *Globals) Each(fn func(name string, v Value)) {
	for name, v := range g.byName {
		fn(name, v)
	}
}

// Dispatcher is the value a bare reference to an overloaded function name
// resolves to (spec.md §8: "a bare reference g = f with two overloads
// resolves to a Dispatcher value"). ByArity maps arity to the callable
// found at that arity's mangled global — a *Closure for an overloaded
// user function, or a *NativeFunction for an ambiguous-arity native
// (internal/native's AmbiguousNames) — so one Dispatcher shape serves both
// origins; a call site with a known argument count picks directly, while
// calling the Dispatcher value itself (e.g. after storing it in a
// variable) resolves by the caller's actual argument count at the call
// opcode.
type Dispatcher struct {
	Header
	Name    string
	ByArity map[int]Value
}

var _ Object = (*Dispatcher)(nil)

func NewDispatcher(name string) *Dispatcher {
	return &Dispatcher{Name: name, ByArity: make(map[int]Value)}
}

func (*Dispatcher) ObjectKind() ObjectKind { return ObjDispatcher }
func (*Dispatcher) TypeName() string       { return "function" }
func (d *Dispatcher) Inspect() string      { return fmt.Sprintf("<dispatcher %s>", d.Name) }
func (d *Dispatcher) Hash() uint64         { return uint64(uintptr(objectAddr(d))) }
func (d *Dispatcher) Equals(o Object) bool { return identityEquals(d, o) }

// Resolve picks the overload matching arity, if any.
func (d *Dispatcher) Resolve(arity int) (Value, bool) {
	v, ok := d.ByArity[arity]
	return v, ok
}

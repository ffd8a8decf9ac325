package value

import "fmt"

// NativeContext is the opaque handle a native (Go-implemented) function
// receives as its implicit first argument, giving it controlled access back
// into the running VM (spec.md §6) without exposing the VM package's full
// surface to internal/value (which internal/vm itself depends on, so the
// reverse dependency is not available). Concretely it is satisfied by
// *vm.VM; internal/native and internal/vm wire the concrete type in.
type NativeContext struct {
	Header
	Handle any // underlying *vm.VM, opaque from this package's point of view
}

var _ Object = (*NativeContext)(nil)

func (*NativeContext) ObjectKind() ObjectKind { return ObjNativeContext }
func (*NativeContext) TypeName() string       { return "native context" }
func (c *NativeContext) Inspect() string      { return "<native context>" }
func (c *NativeContext) Hash() uint64         { return uint64(uintptr(objectAddr(c))) }
func (c *NativeContext) Equals(o Object) bool { return identityEquals(c, o) }

// NativeFn is the Go signature every registered native function
// implements: a context handle, the already-qualifier-resolved argument
// values, and either a result or an error Diagnostic-compatible error.
type NativeFn func(ctx *NativeContext, args []Value) (Value, error)

// NativeFunction wraps a NativeFn with the metadata internal/native parses
// out of its registration signature string (spec.md §6): mangled name,
// arity, and per-parameter qualifiers, so the VM's call opcode treats a
// native call identically to a closure call up to the dispatch point.
type NativeFunction struct {
	Header
	Name        string
	MangledName string
	Arity       int
	ParamQuals  []Qualifier
	QualSig     QualifierSignature
	Fn          NativeFn
}

var _ Object = (*NativeFunction)(nil)

func (*NativeFunction) ObjectKind() ObjectKind { return ObjNativeFunction }
func (*NativeFunction) TypeName() string       { return "native function" }
func (n *NativeFunction) Inspect() string      { return fmt.Sprintf("<native fn %s>", n.Name) }
func (n *NativeFunction) Hash() uint64         { return uint64(uintptr(objectAddr(n))) }
func (n *NativeFunction) Equals(o Object) bool { return identityEquals(n, o) }

// NativeClosure is a native function value bound to extra captured state
// (spec.md §3's "four kinds of reference objects" enumerates NativeReference
// separately; NativeClosure is the callable counterpart embedding host
// closures, e.g. a native function produced by currying another native call).
type NativeClosure struct {
	Header
	Name    string
	Arity   int
	Captured []Value
	Fn      func(ctx *NativeContext, captured, args []Value) (Value, error)
}

var _ Object = (*NativeClosure)(nil)

func (*NativeClosure) ObjectKind() ObjectKind { return ObjNativeClosure }
func (*NativeClosure) TypeName() string       { return "native function" }
func (n *NativeClosure) Inspect() string      { return fmt.Sprintf("<native closure %s>", n.Name) }
func (n *NativeClosure) Hash() uint64         { return uint64(uintptr(objectAddr(n))) }
func (n *NativeClosure) Equals(o Object) bool { return identityEquals(n, o) }

func (n *NativeClosure) Call(ctx *NativeContext, args []Value) (Value, error) {
	return n.Fn(ctx, n.Captured, args)
}

package value

import "unsafe"

// ObjectKind tags the concrete heap object kind, mirroring funxy's
// evaluator.ObjectType string tag but as a dense enum (funxy's is a string
// because it also serves user-facing type names; Zym separates that
// concern into Object.TypeName so ObjectKind can stay a cheap switch key
// for the GC and the VM's dispatch).
type ObjectKind uint8

const (
	ObjString ObjectKind = iota
	ObjList
	ObjMap
	ObjFunction
	ObjClosure
	ObjUpvalue
	ObjStructSchema
	ObjStructInstance
	ObjEnumSchema
	ObjNativeFunction
	ObjNativeContext
	ObjNativeClosure
	ObjNativeReference
	ObjReference
	ObjDispatcher
	ObjInt64
)

// Object is the common interface of every heap value. Grounded on the
// teacher's evaluator.Object (Type/Inspect/Hash), widened with Equals
// (funxy instead dispatches to a free function, evaluator.ObjectsEqual;
// Zym folds that into the interface so Value.Equals needs no type switch)
// and the GC linkage fields every heap object carries (spec.md §5:
// "created via the single allocator and linked into a process-wide object
// list at allocation time").
type Object interface {
	ObjectKind() ObjectKind
	TypeName() string
	Inspect() string
	Hash() uint64
	Equals(Object) bool

	gcHeader() *Header
}

// Header is embedded in every concrete object. next links the process-wide
// allocation list threaded by the allocator (internal/gcroots); marked is
// the tri-color mark bit flipped during a collection; size is the byte
// charge against the allocator's running total.
type Header struct {
	next   Object
	marked bool
	size   int
}

func (h *Header) gcHeader() *Header { return h }

// Next and SetNext expose the allocator's intrusive linked list without
// making every object author manage it by hand.
func Next(o Object) Object       { return o.gcHeader().next }
func SetNext(o Object, n Object) { o.gcHeader().next = n }

func Marked(o Object) bool     { return o.gcHeader().marked }
func SetMarked(o Object, m bool) { o.gcHeader().marked = m }

func Size(o Object) int      { return o.gcHeader().size }
func SetSize(o Object, n int) { o.gcHeader().size = n }

// identityEquals is the default Equals for object kinds with no
// content-based equality of their own (functions, closures, schemas):
// reference identity, same as funxy's pointer-hash objects.
func identityEquals(a, b Object) bool { return a == b }

// objectAddr extracts a stable address for an Object's underlying pointer,
// used by Hash on kinds (enum schemas) that don't otherwise carry one.
// Every concrete Object in this package is a pointer type, so the interface
// word is itself the address of the data.
func objectAddr(o Object) unsafe.Pointer {
	if o == nil {
		return nil
	}
	type iface struct {
		typ, data unsafe.Pointer
	}
	return (*iface)(unsafe.Pointer(&o)).data
}

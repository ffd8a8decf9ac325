// Package gcroots implements Zym's allocator and mark-sweep collector
// (spec.md §4.5). Grounded on funxy's memory accounting idiom (a
// single realloc-style charge against a running byte counter, generalized
// here from funxy's GC-less evaluator — which has no allocator of its own —
// to the clox-derived contract spec.md §4.5 actually specifies: charge
// newSize-oldSize, collect when over threshold, OOM retries once).
package gcroots

import "github.com/zym-lang/zym/internal/value"

// DefaultInitialThreshold is the byte count at which the first collection
// can trigger, mirroring clox's 1MiB starting heuristic.
const DefaultInitialThreshold = 1 << 20

// DefaultGrowthFactor is how much nextGC grows relative to the live byte
// count surviving each collection (spec.md §4.5 leaves the factor
// unspecified; clox's classic choice is 2).
const DefaultGrowthFactor = 2.0

// RootProvider supplies one root set's worth of directly-reachable objects
// to a collection. The VM, the compiler (while compiling), and the arena's
// own temp-root stack each implement this so Collect doesn't need to know
// about frames, globals tables, or compiler internals directly (spec.md
// §4.5: "VM globals, every live frame's register window up to its
// high-water mark, the open-upvalues list, the compiler chain, the
// temp-root stack, and the chunk attached to the VM").
type RootProvider interface {
	GCRoots() []value.Object
}

// RootProviderFunc adapts a plain function to RootProvider.
type RootProviderFunc func() []value.Object

func (f RootProviderFunc) GCRoots() []value.Object { return f() }

// Arena is the single allocator every heap object in a running Zym program
// passes through exactly once, at construction, via Track. It owns the
// process-wide object list (threaded through each Object's Header.next),
// the running byte counter, and the temp-root stack that protects
// just-allocated, not-yet-linked objects across subsequent allocations
// (spec.md §4.5: "any object that has just been allocated and is not yet
// linked from a root must be pushed before any subsequent allocation").
type Arena struct {
	head Object

	bytesAllocated int
	nextGC         int
	growthFactor   float64
	debugStress    bool

	tempRoots []value.Object

	collectFn func(roots []value.Object) (freed int)
}

// Object is an alias kept local so this file reads naturally; it is exactly
// value.Object.
type Object = value.Object

// NewArena constructs an Arena with the given initial collection threshold.
// A threshold of 0 uses DefaultInitialThreshold.
func NewArena(initialThreshold int) *Arena {
	if initialThreshold <= 0 {
		initialThreshold = DefaultInitialThreshold
	}
	a := &Arena{nextGC: initialThreshold, growthFactor: DefaultGrowthFactor}
	a.collectFn = a.collect
	return a
}

// SetDebugStress forces ShouldCollect to report true on every allocation,
// matching spec.md §4.5's "or always in a debug-stress mode" clause; used
// by tests that want to exercise the collector on every single Track call.
func (a *Arena) SetDebugStress(stress bool) { a.debugStress = stress }

// BytesAllocated reports the arena's current running byte counter.
func (a *Arena) BytesAllocated() int { return a.bytesAllocated }

// NextGC reports the threshold the next collection check compares against.
func (a *Arena) NextGC() int { return a.nextGC }

// Track links a freshly allocated object into the arena's object list and
// charges its size against the byte counter (spec.md §4.5's "newSize -
// oldSize" charge, specialized to oldSize=0 for a brand new object since
// Zym objects don't resize after construction the way a C realloc-backed
// string buffer would). Callers are responsible for calling ShouldCollect
// and, if true, Collect with the current root set before Track if they want
// allocation-triggered GC pressure to actually run a cycle; Track itself
// never collects, since it has no root set of its own to mark from.
func (a *Arena) Track(o value.Object, size int) {
	value.SetNext(o, a.head)
	a.head = o
	value.SetSize(o, size)
	a.bytesAllocated += size
}

// Charge adjusts the byte counter for a resize of an already-tracked object
// (spec.md §4.5's general "newSize - oldSize" charge). Nothing in this
// module calls it: the VM charges each object's size once, at Track, and
// List/Map growth is not accounted.
func (a *Arena) Charge(oldSize, newSize int) {
	a.bytesAllocated += newSize - oldSize
}

// ShouldCollect reports whether the next allocation ought to be preceded by
// a collection: either the byte counter has crossed nextGC, or debug-stress
// mode is forcing a collection on every check.
func (a *Arena) ShouldCollect() bool {
	return a.debugStress || a.bytesAllocated > a.nextGC
}

// PushTempRoot protects o across subsequent allocations until the matching
// PopTempRoot. Required around any sequence that allocates more than one
// object before the first is linked to a durable root (e.g. constructing a
// List element by element, or evaluating call arguments left to right).
func (a *Arena) PushTempRoot(o value.Object) {
	a.tempRoots = append(a.tempRoots, o)
}

// PopTempRoot releases the most recently pushed temp root.
func (a *Arena) PopTempRoot() {
	if n := len(a.tempRoots); n > 0 {
		a.tempRoots = a.tempRoots[:n-1]
	}
}

// TempRoots returns the temp-root stack's current contents, a RootProvider.
func (a *Arena) TempRoots() []value.Object {
	return append([]value.Object(nil), a.tempRoots...)
}

func (a *Arena) tempRootProvider() RootProvider {
	return RootProviderFunc(func() []value.Object { return a.tempRoots })
}

// Collect runs one mark-sweep cycle against the union of providers' roots
// plus the arena's own temp-root stack, then frees every unmarked object
// and grows nextGC proportionally to the live byte count that survived
// (spec.md §4.5). It returns the number of bytes freed.
func (a *Arena) Collect(providers ...RootProvider) int {
	return a.collectFn(a.gatherRoots(providers))
}

func (a *Arena) gatherRoots(providers []RootProvider) []value.Object {
	var roots []value.Object
	roots = append(roots, a.tempRoots...)
	for _, p := range providers {
		if p == nil {
			continue
		}
		roots = append(roots, p.GCRoots()...)
	}
	return roots
}

func (a *Arena) collect(roots []value.Object) int {
	for _, r := range roots {
		Mark(r)
	}

	var kept Object
	keptBytes := 0
	freedBytes := 0
	for o := a.head; o != nil; {
		next := value.Next(o)
		if value.Marked(o) {
			value.SetMarked(o, false)
			value.SetNext(o, kept)
			kept = o
			keptBytes += value.Size(o)
		} else {
			freedBytes += value.Size(o)
		}
		o = next
	}
	a.head = kept
	a.bytesAllocated = keptBytes
	a.nextGC = int(float64(keptBytes) * a.growthFactor)
	if a.nextGC < DefaultInitialThreshold {
		a.nextGC = DefaultInitialThreshold
	}
	return freedBytes
}

// CollectWithOOMRetry runs alloc; if it reports failure (out of memory),
// it collects once against roots and retries alloc exactly once more,
// matching spec.md §4.5's "out-of-memory triggers a GC and retries once".
// alloc should attempt the allocation and report ok=false without having
// linked anything into the arena on failure.
func CollectWithOOMRetry(a *Arena, roots []RootProvider, alloc func() (value.Object, bool)) (value.Object, bool) {
	if o, ok := alloc(); ok {
		return o, true
	}
	a.Collect(roots...)
	return alloc()
}

// LiveObjects walks the arena's object list, for tests and diagnostics.
func (a *Arena) LiveObjects() []value.Object {
	var out []value.Object
	for o := a.head; o != nil; o = value.Next(o) {
		out = append(out, o)
	}
	return out
}

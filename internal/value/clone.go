package value

// DeepClone implements the `clone` qualifier and `clone` unary keyword
// (spec.md §4.3.3, §9): a recursive copy of v that detects cycles via a
// visited map keyed by object identity, reusing the already-cloned
// replacement on re-encounter instead of recursing forever. Scalars
// (null/bool/number/enum) are returned unchanged since they carry no
// mutable shared state; only heap objects are actually copied.
//
// References are not flattened during cloning (spec.md §9: "reference
// rewriting") — a cloned container whose field/element held a Reference
// keeps a Reference, pointed at whatever the corresponding field of the
// *clone* resolves to where that's knowable (self-referential structures),
// and otherwise at the same target as the original.
func DeepClone(v Value, alloc func(Object, int)) Value {
	return deepClone(v, make(map[Object]Object), alloc)
}

func deepClone(v Value, seen map[Object]Object, alloc func(Object, int)) Value {
	if v.Kind != KindObject || v.Obj == nil {
		return v
	}
	if existing, ok := seen[v.Obj]; ok {
		return Obj(existing)
	}
	switch o := v.Obj.(type) {
	case *String:
		// Strings are immutable once constructed, so cloning a string is
		// identity: there is no mutable state to protect by copying, and
		// returning the interned original preserves the `==` fast path.
		return v
	case *List:
		clone := &List{Elems: make([]Value, len(o.Elems))}
		seen[o] = clone
		track(clone, len(o.Elems)*16, alloc)
		for i, e := range o.Elems {
			clone.Elems[i] = deepClone(e, seen, alloc)
		}
		return Obj(clone)
	case *Map:
		clone := NewMap(o.Len())
		seen[o] = clone
		track(clone, o.Len()*32, alloc)
		o.Each(func(k string, val Value) {
			clone.Set(k, deepClone(val, seen, alloc))
		})
		return Obj(clone)
	case *StructInstance:
		clone := NewStructInstance(o.Schema)
		seen[o] = clone
		track(clone, len(o.Fields)*16, alloc)
		for i, f := range o.Fields {
			clone.Fields[i] = deepClone(f, seen, alloc)
		}
		return Obj(clone)
	case *Reference:
		// References alias storage rather than own it; cloning copies the
		// Reference value itself (a new first-class handle). An index or
		// property reference whose container was already cloned in this
		// walk (a self-referential structure) is re-pointed at that clone;
		// every other reference keeps the original's target.
		clone := *o
		if cc, ok := seen[o.Container.Obj]; ok && o.Container.Kind == KindObject {
			clone.Container = Obj(cc)
		}
		seen[o] = &clone
		return Obj(&clone)
	default:
		// Functions, closures, upvalues, schemas, native objects and
		// dispatchers are not deep-cloned: they are shared, compile-time or
		// process-wide resources (spec.md §5 "Struct/enum schemas are
		// created at compile time and kept alive by constants tables"), so
		// `clone` on a function value is identity, matching `val` semantics.
		return v
	}
}

func track(o Object, size int, alloc func(Object, int)) {
	if alloc != nil {
		alloc(o, size)
	}
}

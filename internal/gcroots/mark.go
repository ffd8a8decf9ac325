package gcroots

import (
	"github.com/zym-lang/zym/internal/chunk"
	"github.com/zym-lang/zym/internal/value"
)

// Mark traces o and everything it transitively holds, flipping each
// encountered object's mark bit. The already-marked check doubles as cycle
// protection, so self-referential lists/maps/structs terminate (spec.md
// §4.5 requires the marker to "see through" both open and closed upvalues,
// dispatcher overloads, and reference objects, explicitly "without
// following them to their target" for references; schema field-name arrays
// are plain Go strings here, not heap Values, so they need no marking of
// their own beyond the schema object itself).
func Mark(o value.Object) {
	if o == nil || value.Marked(o) {
		return
	}
	value.SetMarked(o, true)

	switch obj := o.(type) {
	case *value.List:
		for _, e := range obj.Elems {
			markValue(e)
		}
	case *value.Map:
		obj.Each(func(_ string, v value.Value) { markValue(v) })
	case *value.StructInstance:
		Mark(obj.Schema)
		for _, f := range obj.Fields {
			markValue(f)
		}
	case *value.StructSchema:
		// Name/Fields are plain strings; nothing further to mark.
	case *value.EnumSchema:
		// Name/Variants are plain strings; nothing further to mark.
	case *value.Function:
		if c, ok := obj.Chunk.(*chunk.Chunk); ok {
			for _, k := range c.Constants {
				markValue(k)
			}
		}
	case *value.Closure:
		Mark(obj.Fn)
		for _, u := range obj.Upvalues {
			Mark(u)
		}
	case *value.Upvalue:
		if obj.Closed != nil {
			markValue(*obj.Closed)
		}
		// Open upvalues point into a live frame's register window, which is
		// itself reached (and kept current) via the frame root set; marking
		// through obj.frame here would require exposing frame internals
		// this package has no business walking.
	case *value.Dispatcher:
		for _, v := range obj.ByArity {
			markValue(v)
		}
	case *value.Reference:
		// Per spec.md §4.5, references are marked but not followed to their
		// target: the aliased storage (a frame slot, a global, a container)
		// is reached through its own root, not through the reference.
		if obj.Kind == value.RefIndex || obj.Kind == value.RefProperty {
			markValue(obj.Container)
		}
	case *value.NativeClosure:
		for _, v := range obj.Captured {
			markValue(v)
		}
	case *value.NativeFunction, *value.NativeContext, *value.NativeReference, *value.String:
		// No further Object children.
	}
}

func markValue(v value.Value) {
	if v.IsObject() {
		Mark(v.Obj)
	}
	if v.IsEnum() {
		Mark(v.AsEnumSchema())
	}
}

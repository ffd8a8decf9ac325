package value

import "fmt"

// maxPrintDepth mirrors config.DefaultPrintDepth (spec.md §9: "Printing
// limits recursion to depth 100 and uses a small visited array to print
// `...` on cycles"). Duplicated here as a literal, rather than importing
// internal/config, to keep this leaf package free of a dependency edge
// back up the module graph; internal/config documents the same constant
// and the VM is expected to keep them in sync.
const maxPrintDepth = 100

// printState tracks recursion depth and the set of containers currently
// being printed, so Inspect on a self-referential list or map prints "..."
// instead of recursing forever.
type printState struct {
	depth int
	stack map[Object]bool
}

func newPrintState() *printState {
	return &printState{stack: make(map[Object]bool)}
}

func (ps *printState) seen(o Object) bool {
	if ps.depth >= maxPrintDepth {
		return true
	}
	if ps.stack[o] {
		return true
	}
	ps.stack[o] = true
	ps.depth++
	return false
}

func (ps *printState) leave(o Object) {
	delete(ps.stack, o)
	ps.depth--
}

// Sprint renders v the way the embedder's print native does: like
// inspectValue, except a top-level *String is written raw rather than
// quoted (spec.md §9's worked examples print bare numbers and strings;
// quoting only applies to a string nested inside a list/map/struct, where
// it disambiguates the element from its container syntax).
func Sprint(v Value) string {
	if v.Kind == KindObject {
		if s, ok := v.Obj.(*String); ok {
			return s.s
		}
	}
	return inspectValue(v, newPrintState())
}

// inspectValue is the depth- and cycle-aware entry point every container's
// Inspect delegates to for its elements.
func inspectValue(v Value, ps *printState) string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case KindNumber:
		return fmt.Sprintf("%g", v.AsNumber())
	case KindEnum:
		schema := v.AsEnumSchema()
		return schema.Name + "." + schema.Variants[v.AsEnumVariant()]
	case KindObject:
		if v.Obj == nil {
			return "null"
		}
		switch o := v.Obj.(type) {
		case *String:
			return fmt.Sprintf("%q", o.s)
		case *List:
			return listInspect(o, ps)
		case *Map:
			return mapInspect(o, ps)
		case *StructInstance:
			return structInstanceInspect(o, ps)
		default:
			return v.Obj.Inspect()
		}
	default:
		return "<?>"
	}
}

package value

import "strings"

// List is a growable, index-addressable sequence (spec.md §3). Backed by a
// plain Go slice rather than a persistent structure: Zym lists are mutable
// reference types, like funxy's evaluator list object, so there is no
// benefit to the immutable-slice tricks nenuphar's Starlark-derived Tuple
// uses for its immutable sequences.
type List struct {
	Header
	Elems []Value
}

var _ Object = (*List)(nil)

func NewList(elems []Value) *List { return &List{Elems: elems} }

func (*List) ObjectKind() ObjectKind { return ObjList }
func (*List) TypeName() string       { return "list" }

func (l *List) Inspect() string { return listInspect(l, newPrintState()) }

func (l *List) Hash() uint64 {
	var h uint64 = 14695981039346656037
	for _, e := range l.Elems {
		h ^= e.Hash()
		h *= 1099511628211
	}
	return h
}

func (l *List) Equals(o Object) bool {
	other, ok := o.(*List)
	if !ok || len(other.Elems) != len(l.Elems) {
		return false
	}
	for i, e := range l.Elems {
		if !e.Equals(other.Elems[i]) {
			return false
		}
	}
	return true
}

func (l *List) Len() int { return len(l.Elems) }

// Get returns l[i], reporting ok=false on an out-of-range index rather than
// panicking; the VM translates that into a runtime Diagnostic.
func (l *List) Get(i int) (Value, bool) {
	if i < 0 || i >= len(l.Elems) {
		return Value{}, false
	}
	return l.Elems[i], true
}

func (l *List) Set(i int, v Value) bool {
	if i < 0 || i >= len(l.Elems) {
		return false
	}
	l.Elems[i] = v
	return true
}

func (l *List) Append(vs ...Value) { l.Elems = append(l.Elems, vs...) }

func listInspect(l *List, ps *printState) string {
	if ps.seen(l) {
		return "[...]"
	}
	defer ps.leave(l)
	var sb strings.Builder
	sb.WriteByte('[')
	for i, e := range l.Elems {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(inspectValue(e, ps))
	}
	sb.WriteByte(']')
	return sb.String()
}

package value

import (
	"fmt"
	"strings"

	"github.com/dolthub/swiss"
)

// Map is Zym's string-keyed hash table object (spec.md §3: "Map —
// string-keyed hash table of Value"), backed by dolthub/swiss (via the
// mna/swiss fork, per go.mod's replace directive) rather than a built-in Go
// map, following mna-nenuphar's lang/machine/map.go precedent: swiss tables
// give open-addressed probing with better cache behavior than Go's bucketed
// map for the small, short-lived maps a scripting VM churns through.
// nenuphar keys its swiss.Map by its generic Value type since Starlark maps
// take arbitrary hashable keys; Zym's keys are always strings, so the key
// type here is a plain Go string rather than Value, extracted from a
// *String object at the VM's indexing/construction sites (a non-string map
// key is a runtime type error raised there, not by Map itself).
type Map struct {
	Header
	m *swiss.Map[string, Value]
}

var _ Object = (*Map)(nil)

func NewMap(sizeHint int) *Map {
	if sizeHint < 1 {
		sizeHint = 1
	}
	return &Map{m: swiss.NewMap[string, Value](uint32(sizeHint))}
}

func (*Map) ObjectKind() ObjectKind { return ObjMap }
func (*Map) TypeName() string       { return "map" }

func (m *Map) Inspect() string { return mapInspect(m, newPrintState()) }

func (m *Map) Hash() uint64 {
	// Maps are mutable reference types; like funxy's object model,
	// identity is the only stable hash (content hashing would break if two
	// equal-at-construction maps later diverge while both are live map keys).
	return uint64(uintptr(objectAddr(m)))
}

func (m *Map) Equals(o Object) bool { return identityEquals(m, o) }

func (m *Map) Get(k string) (Value, bool) { return m.m.Get(k) }
func (m *Map) Set(k string, v Value)      { m.m.Put(k, v) }
func (m *Map) Delete(k string) bool       { return m.m.Delete(k) }
func (m *Map) Len() int                   { return m.m.Count() }
func (m *Map) Has(k string) bool          { _, ok := m.m.Get(k); return ok }

// Each calls fn once per entry in an unspecified order, matching swiss's own
// iteration contract.
func (m *Map) Each(fn func(k string, v Value)) {
	m.m.Iter(func(k string, v Value) bool { fn(k, v); return false })
}

func mapInspect(m *Map, ps *printState) string {
	if ps.seen(m) {
		return "{...}"
	}
	defer ps.leave(m)
	var sb strings.Builder
	sb.WriteByte('{')
	first := true
	m.Each(func(k string, v Value) {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString(fmt.Sprintf("%q", k))
		sb.WriteString(": ")
		sb.WriteString(inspectValue(v, ps))
	})
	sb.WriteByte('}')
	return sb.String()
}

package value

import "fmt"

// Int64 wraps an exact 64-bit signed integer (spec.md §3: "used sparingly
// for bit operations that require exact 64-bit behavior"). Ordinary Zym
// numbers are IEEE-754 doubles, which only represent integers exactly up to
// 2^53; bitwise operators (`&`, `|`, `^`, `<<`, `>>`) and any native
// function that needs the full 64-bit integer range (hashing, file
// offsets, serialized IDs) produce and consume this object instead of
// silently losing precision through a double round-trip.
type Int64 struct {
	Header
	V int64
}

var _ Object = (*Int64)(nil)

func NewInt64(v int64) *Int64 { return &Int64{V: v} }

func (*Int64) ObjectKind() ObjectKind { return ObjInt64 }
func (*Int64) TypeName() string       { return "int64" }
func (i *Int64) Inspect() string { return fmt.Sprintf("%d", i.V) }
func (i *Int64) Hash() uint64    { return uint64(i.V) }
func (i *Int64) Equals(o Object) bool {
	other, ok := o.(*Int64)
	return ok && other.V == i.V
}

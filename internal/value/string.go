package value

import "hash/fnv"

// String is an interned heap string. Interning keeps `==` on strings a
// pointer compare in the common case (the VM's constant pool and the
// intern table both hand out the same *String for equal byte content),
// while Equals still falls back to content comparison so two independently
// constructed strings that bypass interning still compare correctly.
type String struct {
	Header
	s string
}

var _ Object = (*String)(nil)

func (*String) ObjectKind() ObjectKind { return ObjString }
func (*String) TypeName() string       { return "string" }
func (s *String) Inspect() string      { return s.s }
func (s *String) Hash() uint64 {
	h := fnv.New64a()
	h.Write([]byte(s.s))
	return h.Sum64()
}
func (s *String) Equals(o Object) bool {
	other, ok := o.(*String)
	return ok && other.s == s.s
}

// Go returns the Go string this object wraps.
func (s *String) Go() string { return s.s }
func (s *String) Len() int   { return len(s.s) }

// Interner hands out a single *String per distinct byte content, matching
// spec.md §3's heap-object model without requiring every caller to thread
// an intern table explicitly: the VM owns one Interner and every
// string-producing opcode and native call goes through it. Newly minted
// strings are handed to onAlloc (typically internal/gcroots.Arena.Track) so
// the allocator's byte-accounting and root-list linkage stay centralized in
// one place regardless of where the string was produced.
type Interner struct {
	table   map[string]*String
	onAlloc func(Object, int)
}

func NewInterner(onAlloc func(Object, int)) *Interner {
	return &Interner{table: make(map[string]*String), onAlloc: onAlloc}
}

// Intern returns the canonical *String for s, allocating a new one only on
// first sight.
func (in *Interner) Intern(s string) *String {
	if existing, ok := in.table[s]; ok {
		return existing
	}
	str := &String{s: s}
	in.table[s] = str
	if in.onAlloc != nil {
		in.onAlloc(str, len(s))
	}
	return str
}

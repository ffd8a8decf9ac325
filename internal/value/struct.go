package value

import "strings"

// StructSchema is a compile-time-registered struct type (spec.md §3, §4.3.7):
// a name, an ordered field-name list, and a field_name -> field_index table.
// Schemas are created once, at declaration, and kept alive for the module's
// lifetime by the chunk's constants table; instances reference their schema
// by pointer. The index table is built lazily on first lookup rather than
// at construction, since most schemas are small enough that NewStructSchema
// callers (the compiler's struct-declaration path) never need it at all —
// field access there is already resolved to a constant index at compile
// time, and the table exists for the slower name-based paths (native calls,
// `clone`, reflection-style access).
type StructSchema struct {
	Header
	Name      string
	Fields    []string
	indexByName map[string]int
}

var _ Object = (*StructSchema)(nil)

func NewStructSchema(name string, fields []string) *StructSchema {
	return &StructSchema{Name: name, Fields: fields}
}

func (*StructSchema) ObjectKind() ObjectKind { return ObjStructSchema }
func (*StructSchema) TypeName() string       { return "struct schema" }
func (s *StructSchema) Inspect() string      { return "<struct " + s.Name + ">" }
func (s *StructSchema) Hash() uint64         { return uint64(uintptr(objectAddr(s))) }
func (s *StructSchema) Equals(o Object) bool { return identityEquals(s, o) }

// FieldIndex returns the position of name in the schema's field list, or
// -1 if it names no field.
func (s *StructSchema) FieldIndex(name string) int {
	if s.indexByName == nil {
		s.indexByName = make(map[string]int, len(s.Fields))
		for i, f := range s.Fields {
			s.indexByName[f] = i
		}
	}
	if i, ok := s.indexByName[name]; ok {
		return i
	}
	return -1
}

// StructInstance is one value of a StructSchema: a dense slice of field
// values in schema-declared order, mirroring how funxy represents
// struct-like records as a slice alongside a type tag rather than a
// Go map[string]Value (cheaper field access, matches the compiler's
// constant-folded field-index resolution).
type StructInstance struct {
	Header
	Schema *StructSchema
	Fields []Value
}

var _ Object = (*StructInstance)(nil)

func NewStructInstance(schema *StructSchema) *StructInstance {
	return &StructInstance{Schema: schema, Fields: make([]Value, len(schema.Fields))}
}

func (*StructInstance) ObjectKind() ObjectKind { return ObjStructInstance }
func (s *StructInstance) TypeName() string     { return s.Schema.Name }
func (s *StructInstance) Inspect() string      { return structInstanceInspect(s, newPrintState()) }

func (s *StructInstance) Hash() uint64 {
	var h uint64 = 14695981039346656037
	for _, f := range s.Fields {
		h ^= f.Hash()
		h *= 1099511628211
	}
	return h
}

func (s *StructInstance) Equals(o Object) bool {
	other, ok := o.(*StructInstance)
	if !ok || other.Schema != s.Schema {
		return false
	}
	for i, f := range s.Fields {
		if !f.Equals(other.Fields[i]) {
			return false
		}
	}
	return true
}

// Get/Set address fields by name, returning ok=false when name is not a
// field of the instance's schema; the compiler normally resolves field
// access to an index at compile time, but both native functions and the
// `clone` deep-copy path need name-based access too.
func (s *StructInstance) Get(name string) (Value, bool) {
	i := s.Schema.FieldIndex(name)
	if i < 0 {
		return Value{}, false
	}
	return s.Fields[i], true
}

func (s *StructInstance) Set(name string, v Value) bool {
	i := s.Schema.FieldIndex(name)
	if i < 0 {
		return false
	}
	s.Fields[i] = v
	return true
}

func structInstanceInspect(s *StructInstance, ps *printState) string {
	if ps.seen(s) {
		return s.Schema.Name + "{...}"
	}
	defer ps.leave(s)
	var sb strings.Builder
	sb.WriteString(s.Schema.Name)
	sb.WriteByte('{')
	for i, name := range s.Schema.Fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(inspectValue(s.Fields[i], ps))
	}
	sb.WriteByte('}')
	return sb.String()
}

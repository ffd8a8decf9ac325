package value

// EnumSchema is a compile-time-registered enum type (spec.md §3, §4.3.7): a
// name, an ordered variant-name list, and a process-unique 32-bit TypeID.
// TypeID is seeded from a UUID (internal/value/typeid.go) rather than
// starting a bare counter at zero in every process, so schemas compiled in
// separate processes and later linked by the loader/VM at load time don't
// collide. Enum equality is `(TypeID, variant index)` (spec.md §3); an enum
// Value carries a direct pointer to its EnumSchema rather than a separate
// heap Object of its own — "carried in the value itself, not a heap
// object" (spec.md §3) describes the enum *value*, which allocates
// nothing; only the schema, created once at the enum declaration, is a
// real heap Object kept alive by the chunk's constants table.
type EnumSchema struct {
	Header
	Name     string
	Variants []string
	TypeID   uint32
}

var _ Object = (*EnumSchema)(nil)

func NewEnumSchema(name string, variants []string) *EnumSchema {
	return &EnumSchema{Name: name, Variants: append([]string(nil), variants...), TypeID: nextTypeID()}
}

func (*EnumSchema) ObjectKind() ObjectKind { return ObjEnumSchema }
func (*EnumSchema) TypeName() string       { return "enum schema" }
func (e *EnumSchema) Inspect() string      { return "<enum " + e.Name + ">" }
func (e *EnumSchema) Hash() uint64         { return uint64(uintptr(objectAddr(e))) }
func (e *EnumSchema) Equals(o Object) bool { return identityEquals(e, o) }

// VariantIndex returns the position of name in the schema's variant list,
// or -1 if it names no variant.
func (e *EnumSchema) VariantIndex(name string) int {
	for i, v := range e.Variants {
		if v == name {
			return i
		}
	}
	return -1
}

// Package value defines Zym's tagged Value union and heap Object model
// (spec.md §3). The union is grounded directly on funxy's
// internal/vm/value.go: a small struct carrying a type tag, a raw uint64
// payload for unboxed scalars, and an interface field for anything that
// must live on the heap. Unlike funxy, which reserves a separate
// ValInt tag because funxy has both ints and floats, Zym has a single
// numeric type (spec.md §3 "double"), so the tag set collapses to
// null/bool/number/enum/object.
package value

import (
	"math"
)

// Kind discriminates the five cases of the tagged Value union.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindEnum   // schema held in Obj, variant index in Data
	KindObject // Obj holds a heap Object
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindEnum:
		return "enum"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is Zym's tagged union. It is deliberately a small value type (not a
// pointer) so that passing values around the VM's register window never
// allocates; only KindObject and KindEnum carry a heap reference at all.
type Value struct {
	Kind Kind
	Data uint64 // bool (0/1) or float64 bits
	Obj  Object // heap object (KindObject), or *EnumSchema (KindEnum)
}

var Null = Value{Kind: KindNull}

func Bool(b bool) Value {
	var d uint64
	if b {
		d = 1
	}
	return Value{Kind: KindBool, Data: d}
}

func Number(f float64) Value {
	return Value{Kind: KindNumber, Data: math.Float64bits(f)}
}

func Obj(o Object) Value {
	return Value{Kind: KindObject, Obj: o}
}

func EnumVal(schema *EnumSchema, variant int) Value {
	return Value{Kind: KindEnum, Data: uint64(variant), Obj: schema}
}

func (v Value) IsNull() bool   { return v.Kind == KindNull }
func (v Value) IsBool() bool   { return v.Kind == KindBool }
func (v Value) IsNumber() bool { return v.Kind == KindNumber }
func (v Value) IsEnum() bool   { return v.Kind == KindEnum }
func (v Value) IsObject() bool { return v.Kind == KindObject }

func (v Value) AsBool() bool      { return v.Data == 1 }
func (v Value) AsNumber() float64 { return math.Float64frombits(v.Data) }
func (v Value) AsEnumSchema() *EnumSchema { return v.Obj.(*EnumSchema) }
func (v Value) AsEnumVariant() int        { return int(v.Data) }

// IsObjectKind reports whether v is a KindObject holding a heap object of
// the given ObjectKind; false for every other Value, including KindEnum
// (whose Obj is an *EnumSchema, not a heap Object in the GC-root sense).
func (v Value) IsObjectKind(k ObjectKind) bool {
	return v.Kind == KindObject && v.Obj != nil && v.Obj.ObjectKind() == k
}

// Truthy implements spec.md's truthiness rule: null and false are falsy,
// every other value (including 0 and "") is truthy.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindNull:
		return false
	case KindBool:
		return v.AsBool()
	default:
		return true
	}
}

// TypeName returns the runtime type name used by `typeof` and error
// messages.
func (v Value) TypeName() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindEnum:
		return v.AsEnumSchema().Name
	case KindObject:
		if v.Obj == nil {
			return "null"
		}
		return v.Obj.TypeName()
	default:
		return "unknown"
	}
}

// Equals implements Zym's `==`: structural equality for primitives, and
// identity or object-defined equality for heap objects (strings compare by
// content since they are interned, per spec.md §3).
func (v Value) Equals(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindBool:
		return v.Data == o.Data
	case KindNumber:
		return v.AsNumber() == o.AsNumber()
	case KindEnum:
		return v.Obj == o.Obj && v.Data == o.Data
	case KindObject:
		if v.Obj == nil || o.Obj == nil {
			return v.Obj == o.Obj
		}
		return v.Obj.Equals(o.Obj)
	default:
		return false
	}
}

// Hash gives a Value a 64-bit hash for hash-based structures; the Map
// object keys its swiss table on plain Go strings, not on Value, so it does
// not use this. Grounded on funxy's
// value.Hash, extended to the object kinds Zym actually has.
func (v Value) Hash() uint64 {
	switch v.Kind {
	case KindNull:
		return 0
	case KindBool:
		return v.Data
	case KindNumber:
		return v.Data
	case KindEnum:
		return uint64(uintptr(objectAddr(v.Obj)))<<8 | v.Data
	case KindObject:
		if v.Obj == nil {
			return 0
		}
		return v.Obj.Hash()
	default:
		return 0
	}
}

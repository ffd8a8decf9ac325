package value_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zym-lang/zym/internal/value"
)

func TestScalarEqualityAndTruthiness(t *testing.T) {
	require.True(t, value.Null.Equals(value.Null))
	require.False(t, value.Null.Truthy())
	require.True(t, value.Bool(true).Truthy())
	require.False(t, value.Bool(false).Truthy())
	require.True(t, value.Number(0).Truthy())
	require.True(t, value.Number(3).Equals(value.Number(3)))
	require.False(t, value.Number(3).Equals(value.Bool(true)))
}

func TestStringInterningIdentity(t *testing.T) {
	in := value.NewInterner(nil)
	a := in.Intern("hello")
	b := in.Intern("hello")
	require.Same(t, a, b)
	require.True(t, value.Obj(a).Equals(value.Obj(b)))
}

func TestListEqualityAndMutation(t *testing.T) {
	l := value.NewList([]value.Value{value.Number(1), value.Number(2)})
	require.Equal(t, 2, l.Len())
	ok := l.Set(0, value.Number(9))
	require.True(t, ok)
	v, ok := l.Get(0)
	require.True(t, ok)
	require.Equal(t, 9.0, v.AsNumber())

	_, ok = l.Get(5)
	require.False(t, ok)

	other := value.NewList([]value.Value{value.Number(9), value.Number(2)})
	require.True(t, l.Equals(other))
}

func TestMapGetSetDelete(t *testing.T) {
	m := value.NewMap(4)
	m.Set("a", value.Bool(true))
	v, ok := m.Get("a")
	require.True(t, ok)
	require.True(t, v.AsBool())
	require.Equal(t, 1, m.Len())
	require.True(t, m.Delete("a"))
	require.Equal(t, 0, m.Len())
}

func TestStructInstanceFieldAccess(t *testing.T) {
	schema := &value.StructSchema{Name: "Point", Fields: []string{"x", "y"}}
	inst := value.NewStructInstance(schema)
	require.True(t, inst.Set("x", value.Number(1)))
	require.True(t, inst.Set("y", value.Number(2)))
	require.False(t, inst.Set("z", value.Number(3)))
	v, ok := inst.Get("x")
	require.True(t, ok)
	require.Equal(t, 1.0, v.AsNumber())
}

func TestEnumSchemaVariantLookup(t *testing.T) {
	schema := value.NewEnumSchema("Color", []string{"Red", "Green", "Blue"})
	require.Equal(t, 1, schema.VariantIndex("Green"))
	require.Equal(t, -1, schema.VariantIndex("Purple"))
	v := value.EnumVal(schema, 1)
	require.True(t, v.IsEnum())
	require.Equal(t, "Green", v.AsEnumSchema().Variants[v.AsEnumVariant()])
}

func TestDeepCloneDetachesListsButSharesFunctions(t *testing.T) {
	inner := value.NewList([]value.Value{value.Number(1)})
	outer := value.NewList([]value.Value{value.Obj(inner)})

	cloned := value.DeepClone(value.Obj(outer), nil)
	clonedList := cloned.Obj.(*value.List)
	clonedInner := clonedList.Elems[0].Obj.(*value.List)
	require.NotSame(t, inner, clonedInner)
	require.True(t, value.Obj(inner).Equals(value.Obj(clonedInner)))
}

func TestDeepCloneHandlesSelfReferentialList(t *testing.T) {
	l := value.NewList(make([]value.Value, 1))
	l.Elems[0] = value.Obj(l)

	cloned := value.DeepClone(value.Obj(l), nil)
	clonedList := cloned.Obj.(*value.List)
	require.Same(t, clonedList, clonedList.Elems[0].Obj)
	require.NotSame(t, l, clonedList)
}

func TestInt64EqualityAndInspect(t *testing.T) {
	a := value.NewInt64(1 << 40)
	b := value.NewInt64(1 << 40)
	require.True(t, value.Obj(a).Equals(value.Obj(b)))
	require.Equal(t, "1099511627776", a.Inspect())
	require.False(t, value.Obj(a).Equals(value.Obj(value.NewInt64(1))))
}

func TestDispatcherResolvesByArity(t *testing.T) {
	d := value.NewDispatcher("f")
	fn0 := &value.Function{Name: "f", Arity: 0}
	fn1 := &value.Function{Name: "f", Arity: 1}
	d.ByArity[0] = value.Obj(value.NewClosure(fn0, value.NewGlobals()))
	d.ByArity[1] = value.Obj(value.NewClosure(fn1, value.NewGlobals()))

	c, ok := d.Resolve(1)
	require.True(t, ok)
	require.Equal(t, 1, c.Obj.(*value.Closure).Fn.Arity)
	_, ok = d.Resolve(2)
	require.False(t, ok)
}

func TestQualifierSignatureComputation(t *testing.T) {
	require.Equal(t, value.SigAllNormalNoRefs, value.ComputeQualifierSignature(nil))
	require.Equal(t, value.SigAllNormal, value.ComputeQualifierSignature(
		[]value.Qualifier{value.QualNormal, value.QualNormal}))
	require.Equal(t, value.SigHasQualifiers, value.ComputeQualifierSignature(
		[]value.Qualifier{value.QualNormal, value.QualRef}))
}

func TestUpvalueOpenCloseSemantics(t *testing.T) {
	frame := &value.Frame{Registers: []value.Value{value.Number(1), value.Number(2)}}
	up := value.NewOpenUpvalue(frame, 1)
	require.True(t, up.IsOpen())
	require.Equal(t, 2.0, up.Get().AsNumber())

	up.Set(value.Number(42))
	require.Equal(t, 42.0, frame.Registers[1].AsNumber())

	up.Close()
	require.False(t, up.IsOpen())
	require.Equal(t, 42.0, up.Get().AsNumber())
	up.Set(value.Number(7))
	require.Equal(t, 7.0, up.Get().AsNumber())
	require.Equal(t, 42.0, frame.Registers[1].AsNumber())
}

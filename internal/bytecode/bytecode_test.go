package bytecode_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zym-lang/zym/internal/bytecode"
	"github.com/zym-lang/zym/internal/chunk"
	"github.com/zym-lang/zym/internal/compiler"
	"github.com/zym-lang/zym/internal/config"
	"github.com/zym-lang/zym/internal/parser"
	"github.com/zym-lang/zym/internal/value"
)

func compileSource(t *testing.T, src string) *chunk.Chunk {
	t.Helper()
	f, diags := parser.Parse("t.zym", []byte(src), nil)
	require.Empty(t, diags, "%v", diags)
	fn, cdiags := compiler.Compile("t.zym", f, compiler.TCOOff)
	require.Empty(t, cdiags, "%v", cdiags)
	return fn.Chunk.(*chunk.Chunk)
}

func TestMarshalUnmarshalRoundTripsScalarConstants(t *testing.T) {
	c := compileSource(t, `
		var n = 42;
		var s = "hello";
		var t = true;
		var f = false;
		var x = null;
	`)

	data, err := bytecode.Marshal(c, "t.zym")
	require.NoError(t, err)

	interner := value.NewInterner(nil)
	got, entry, err := bytecode.Unmarshal(data, interner)
	require.NoError(t, err)
	require.Equal(t, "t.zym", entry)
	require.Equal(t, len(c.Code), len(got.Code))
	require.Equal(t, c.Code, got.Code)
	require.Equal(t, len(c.Constants), len(got.Constants))

	for i, k := range c.Constants {
		g := got.Constants[i]
		require.Equal(t, k.Kind, g.Kind)
		switch k.Kind {
		case value.KindNumber:
			require.Equal(t, k.AsNumber(), g.AsNumber())
		case value.KindBool:
			require.Equal(t, k.AsBool(), g.AsBool())
		case value.KindObject:
			if s, ok := k.Obj.(*value.String); ok {
				gs, ok := g.Obj.(*value.String)
				require.True(t, ok)
				require.Equal(t, s.Go(), gs.Go())
			}
		}
	}
}

func TestMarshalUnmarshalRoundTripsFunctionConstant(t *testing.T) {
	c := compileSource(t, `
		func add(a, b) { return a + b; }
		add(1, 2);
	`)

	data, err := bytecode.Marshal(c, "fn.zym")
	require.NoError(t, err)

	interner := value.NewInterner(nil)
	got, _, err := bytecode.Unmarshal(data, interner)
	require.NoError(t, err)

	var fn *value.Function
	for _, k := range got.Constants {
		if f, ok := k.Obj.(*value.Function); ok && f.Name == "add" {
			fn = f
		}
	}
	require.NotNil(t, fn, "expected add's *value.Function to survive the round trip")
	require.Equal(t, 2, fn.Arity)
	require.Equal(t, "add@2", fn.MangledName)

	nested, ok := fn.Chunk.(*chunk.Chunk)
	require.True(t, ok)
	require.NotEmpty(t, nested.Code)
}

func TestMarshalUnmarshalRoundTripsStructSchema(t *testing.T) {
	c := compileSource(t, `
		struct Point { x, y }
		var p = Point { x: 1, y: 2 };
	`)

	data, err := bytecode.Marshal(c, "struct.zym")
	require.NoError(t, err)

	interner := value.NewInterner(nil)
	got, _, err := bytecode.Unmarshal(data, interner)
	require.NoError(t, err)

	var schema *value.StructSchema
	for _, k := range got.Constants {
		if s, ok := k.Obj.(*value.StructSchema); ok && s.Name == "Point" {
			schema = s
		}
	}
	require.NotNil(t, schema)
	require.Equal(t, []string{"x", "y"}, schema.Fields)
}

func TestMarshalUnmarshalRoundTripsEnumSchema(t *testing.T) {
	c := compileSource(t, `
		enum Color { Red, Green, Blue }
		var c = Color.Green;
	`)

	data, err := bytecode.Marshal(c, "enum.zym")
	require.NoError(t, err)

	interner := value.NewInterner(nil)
	got, _, err := bytecode.Unmarshal(data, interner)
	require.NoError(t, err)

	var schema *value.EnumSchema
	var enumVal *value.Value
	for i, k := range got.Constants {
		if s, ok := k.Obj.(*value.EnumSchema); ok && s.Name == "Color" {
			schema = s
		}
		if k.Kind == value.KindEnum {
			enumVal = &got.Constants[i]
		}
	}
	require.NotNil(t, schema)
	require.Equal(t, []string{"Red", "Green", "Blue"}, schema.Variants)
	require.NotNil(t, enumVal, "expected the Color.Green constant to survive as a KindEnum value")
	require.Equal(t, 1, enumVal.AsEnumVariant())
}

func TestUnmarshalRejectsBadMagic(t *testing.T) {
	_, _, err := bytecode.Unmarshal([]byte("nope"), value.NewInterner(nil))
	require.Error(t, err)
}

func TestUnmarshalRejectsTruncatedInput(t *testing.T) {
	c := compileSource(t, `var n = 1;`)
	data, err := bytecode.Marshal(c, "t.zym")
	require.NoError(t, err)

	_, _, err = bytecode.Unmarshal(data[:len(data)-3], value.NewInterner(nil))
	require.Error(t, err)
}

func TestUnmarshalRejectsUnknownVersion(t *testing.T) {
	c := compileSource(t, `var n = 1;`)
	data, err := bytecode.Marshal(c, "t.zym")
	require.NoError(t, err)

	corrupt := append([]byte(nil), data...)
	corrupt[len(config.BytecodeMagic)] = 0xFF
	_, _, err = bytecode.Unmarshal(corrupt, value.NewInterner(nil))
	require.Error(t, err)
}

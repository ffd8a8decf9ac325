package native_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zym-lang/zym/internal/native"
	"github.com/zym-lang/zym/internal/value"
)

func TestParseSignatureNoParams(t *testing.T) {
	p, err := native.ParseSignature("now()")
	require.NoError(t, err)
	require.Equal(t, "now", p.Name)
	require.Equal(t, "now@0", p.MangledName)
	require.Equal(t, 0, p.Arity)
	require.Empty(t, p.ParamQuals)
}

func TestParseSignaturePlainParams(t *testing.T) {
	p, err := native.ParseSignature("add(a, b)")
	require.NoError(t, err)
	require.Equal(t, "add@2", p.MangledName)
	require.Equal(t, []value.Qualifier{value.QualNormal, value.QualNormal}, p.ParamQuals)
	require.Equal(t, value.SigAllNormal, p.QualSig)
}

func TestParseSignatureQualifiedParams(t *testing.T) {
	p, err := native.ParseSignature("swap(ref a, ref b)")
	require.NoError(t, err)
	require.Equal(t, "swap@2", p.MangledName)
	require.Equal(t, []value.Qualifier{value.QualRef, value.QualRef}, p.ParamQuals)
	require.Equal(t, value.SigHasQualifiers, p.QualSig)
}

func TestParseSignatureMixedQualifiers(t *testing.T) {
	p, err := native.ParseSignature("clone(val source)")
	require.NoError(t, err)
	require.Equal(t, "clone@1", p.MangledName)
	require.Equal(t, []value.Qualifier{value.QualVal}, p.ParamQuals)
}

func TestParseSignatureRejectsMalformed(t *testing.T) {
	_, err := native.ParseSignature("add(a, b")
	require.Error(t, err)

	_, err = native.ParseSignature("(a, b)")
	require.Error(t, err)
}

func TestRegistryInstallsUnambiguousNameDirectly(t *testing.T) {
	r := native.NewRegistry()
	fn := func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		return args[0], nil
	}
	require.NoError(t, r.Register("clone(val source)", fn))

	globals := value.NewGlobals()
	r.InstallInto(globals)

	_, ok := globals.Get("clone@1")
	require.True(t, ok)
	_, ok = globals.Get("clone")
	require.True(t, ok, "single-arity native should also be installed under its bare name")
}

func TestRegistryWithholdsBareNameForAmbiguousArity(t *testing.T) {
	r := native.NewRegistry()
	fn := func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		return value.Null, nil
	}
	require.NoError(t, r.Register("print()", fn))
	require.NoError(t, r.Register("print(val x)", fn))

	globals := value.NewGlobals()
	r.InstallInto(globals)

	_, ok := globals.Get("print@0")
	require.True(t, ok)
	_, ok = globals.Get("print@1")
	require.True(t, ok)
	_, ok = globals.Get("print")
	require.False(t, ok, "ambiguous-arity native has no bare-name global; internal/vm synthesizes its Dispatcher")

	require.Equal(t, []string{"print"}, r.AmbiguousNames())
}

func TestRegistryRejectsDuplicateRegistration(t *testing.T) {
	r := native.NewRegistry()
	fn := func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		return value.Null, nil
	}
	require.NoError(t, r.Register("now()", fn))
	require.Error(t, r.Register("now()", fn))
}

package gcroots_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zym-lang/zym/internal/gcroots"
	"github.com/zym-lang/zym/internal/value"
)

func newTrackedString(a *gcroots.Arena, s string) *value.String {
	in := value.NewInterner(func(o value.Object, size int) { a.Track(o, size) })
	return in.Intern(s)
}

func TestTrackChargesBytesAndLinksObject(t *testing.T) {
	a := gcroots.NewArena(0)
	l := value.NewList(nil)
	a.Track(l, 16)
	require.Equal(t, 16, a.BytesAllocated())
	require.Len(t, a.LiveObjects(), 1)
}

func TestShouldCollectTriggersPastThreshold(t *testing.T) {
	a := gcroots.NewArena(8)
	require.False(t, a.ShouldCollect())
	a.Track(value.NewList(nil), 16)
	require.True(t, a.ShouldCollect())
}

func TestDebugStressAlwaysCollects(t *testing.T) {
	a := gcroots.NewArena(1 << 30)
	require.False(t, a.ShouldCollect())
	a.SetDebugStress(true)
	require.True(t, a.ShouldCollect())
}

func TestCollectSweepsUnreachableAndKeepsReachable(t *testing.T) {
	a := gcroots.NewArena(0)
	root := value.NewList(nil)
	a.Track(root, 8)
	garbage := value.NewList(nil)
	a.Track(garbage, 8)

	provider := gcroots.RootProviderFunc(func() []value.Object { return []value.Object{root} })
	freed := a.Collect(provider)

	require.Equal(t, 8, freed)
	require.Len(t, a.LiveObjects(), 1)
	require.Same(t, root, a.LiveObjects()[0])
	require.Equal(t, 8, a.BytesAllocated())
}

func TestCollectTracesListElementsAndStructFields(t *testing.T) {
	a := gcroots.NewArena(0)

	leaf := value.NewList(nil)
	a.Track(leaf, 8)
	outer := value.NewList([]value.Value{value.Obj(leaf)})
	a.Track(outer, 8)

	schema := value.NewStructSchema("Point", []string{"x", "y"})
	a.Track(schema, 8)
	inst := value.NewStructInstance(schema)
	inst.Set("x", value.Obj(leaf))
	a.Track(inst, 8)

	unreachable := value.NewList(nil)
	a.Track(unreachable, 8)

	provider := gcroots.RootProviderFunc(func() []value.Object { return []value.Object{outer, inst} })
	a.Collect(provider)

	live := a.LiveObjects()
	require.Len(t, live, 4) // outer, leaf, inst, schema
	require.NotContains(t, live, unreachable)
}

func TestCollectKeepsTempRootsEvenWithoutExternalProviders(t *testing.T) {
	a := gcroots.NewArena(0)
	l := value.NewList(nil)
	a.Track(l, 8)
	a.PushTempRoot(l)

	a.Collect()

	require.Len(t, a.LiveObjects(), 1)
	a.PopTempRoot()
}

func TestMarkStopsAtSelfReferentialCycle(t *testing.T) {
	l := value.NewList(make([]value.Value, 1))
	l.Elems[0] = value.Obj(l)

	require.NotPanics(t, func() { gcroots.Mark(l) })
	require.True(t, value.Marked(l))
}

func TestMarkDoesNotFollowReferenceToTarget(t *testing.T) {
	target := value.NewList(nil)
	ref := value.NewLocalRef(&value.Frame{Registers: []value.Value{value.Obj(target)}}, 0, false)

	gcroots.Mark(ref)

	require.True(t, value.Marked(ref))
	require.False(t, value.Marked(target))
}

func TestCollectWithOOMRetrySucceedsAfterCollection(t *testing.T) {
	a := gcroots.NewArena(0)
	garbage := value.NewList(nil)
	a.Track(garbage, 8)

	attempts := 0
	alloc := func() (value.Object, bool) {
		attempts++
		if attempts == 1 {
			return nil, false
		}
		l := value.NewList(nil)
		a.Track(l, 8)
		return l, true
	}

	o, ok := gcroots.CollectWithOOMRetry(a, nil, alloc)
	require.True(t, ok)
	require.NotNil(t, o)
	require.Equal(t, 2, attempts)
}

func TestStringInternerOnAllocWiresIntoArena(t *testing.T) {
	a := gcroots.NewArena(0)
	s := newTrackedString(a, "hello")
	require.Equal(t, "hello", s.Go())
	require.Equal(t, 5, a.BytesAllocated())
}

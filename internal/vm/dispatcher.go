package vm

import (
	"strconv"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/zym-lang/zym/internal/value"
)

// splitMangled splits a "name@arity" mangled global key back into its
// parts (internal/compiler/hoist.go's mangle convention), reporting ok=false
// for any global key that isn't in that shape.
func splitMangled(key string) (name string, arity int, ok bool) {
	at := strings.LastIndexByte(key, '@')
	if at < 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(key[at+1:])
	if err != nil {
		return "", 0, false
	}
	return key[:at], n, true
}

// BuildDispatchers scans every already-installed global for the "name@arity"
// mangled shape (internal/compiler/expr.go's dispatcherGlobalName / hoist.go's
// compileHoistedFuncDecl, and internal/native's own mangling) and, for every
// base name with two or more arities, installs a *value.Dispatcher.
//
// Two distinct keys are used depending on where the ambiguity came from,
// because the compiler itself looks the two up differently (spec.md §8):
// a bare reference to an overloaded *user* function resolves through
// "__dispatcher_"+name (the only global a bare identifier lookup ever
// consults once the name is present in the compiler's own overloads table),
// while a bare reference to an ambiguous *native* never goes through that
// table at all — the compiler always emits a plain GET_GLOBAL(name) for
// natives, so the Dispatcher for those must additionally occupy the bare
// name itself, which internal/native's registration step deliberately left
// unset for exactly this reason. nativeAmbiguous is internal/native's own
// Registry.AmbiguousNames() list for the program's loaded natives.
func BuildDispatchers(globals *value.Globals, nativeAmbiguous []string, track func(value.Object, int)) {
	groups := make(map[string]map[int]value.Value)
	globals.Each(func(key string, v value.Value) {
		name, arity, ok := splitMangled(key)
		if !ok {
			return
		}
		g, ok := groups[name]
		if !ok {
			g = make(map[int]value.Value)
			groups[name] = g
		}
		g[arity] = v
	})

	nativeSet := make(map[string]bool, len(nativeAmbiguous))
	for _, n := range nativeAmbiguous {
		nativeSet[n] = true
	}

	// Sorted rather than raw map iteration so dispatcher installation order
	// (and the track() accounting that rides along with it) is reproducible
	// across runs instead of following Go's randomized map order.
	names := maps.Keys(groups)
	slices.Sort(names)
	for _, name := range names {
		byArity := groups[name]
		if len(byArity) < 2 {
			continue
		}
		d := value.NewDispatcher(name)
		for arity, v := range byArity {
			d.ByArity[arity] = v
		}
		if track != nil {
			track(d, 32+len(d.ByArity)*16)
		}
		globals.Set("__dispatcher_"+name, value.Obj(d))
		if nativeSet[name] {
			globals.Set(name, value.Obj(d))
		}
	}
}

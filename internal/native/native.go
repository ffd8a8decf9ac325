// Package native implements Zym's foreign-function registration (spec.md
// §6): parsing a native's declared signature string into a mangled name,
// arity, and per-parameter qualifiers, and installing the resulting
// *value.NativeFunction values into a program's Globals table. Grounded on
// funxy's map[string]*Builtin registration tables (internal/evaluator/
// builtins_*.go), generalized from funxy's bare name-to-function map to one
// that also derives call-dispatch metadata (arity, qualifiers) from the
// registration string itself, the way funxy's own ClassMethod/trait
// registrations (internal/evaluator/builtins_fp_core.go) attach Arity and
// dispatch metadata alongside each registered name.
package native

import (
	"fmt"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/zym-lang/zym/internal/value"
	"github.com/zym-lang/zym/internal/zymerr"
)

// paramPrefixes maps a signature parameter's leading keyword to its
// Qualifier (spec.md §6: "ref/slot/val/clone prefixes; absent = NORMAL").
var paramPrefixes = map[string]value.Qualifier{
	"ref":   value.QualRef,
	"slot":  value.QualSlot,
	"val":   value.QualVal,
	"clone": value.QualClone,
}

// ParsedSignature is the result of parsing one native registration
// signature string.
type ParsedSignature struct {
	Name        string
	MangledName string
	Arity       int
	ParamQuals  []value.Qualifier
	QualSig     value.QualifierSignature
}

// ParseSignature parses a signature of the form "name(param1, param2, …)"
// (spec.md §6) into a base name, arity, and per-parameter qualifier list.
// Parameter names themselves are not retained; only their qualifier
// prefix, if any, matters for dispatch. A bare "name()" is arity 0.
func ParseSignature(sig string) (ParsedSignature, error) {
	open := strings.IndexByte(sig, '(')
	if open < 0 || !strings.HasSuffix(sig, ")") {
		return ParsedSignature{}, fmt.Errorf("native: malformed signature %q: expected \"name(params)\"", sig)
	}
	name := strings.TrimSpace(sig[:open])
	if name == "" {
		return ParsedSignature{}, fmt.Errorf("native: malformed signature %q: missing name", sig)
	}
	inner := strings.TrimSpace(sig[open+1 : len(sig)-1])

	var quals []value.Qualifier
	if inner != "" {
		parts := strings.Split(inner, ",")
		quals = make([]value.Qualifier, len(parts))
		for i, p := range parts {
			quals[i] = parseParam(p)
		}
	}

	arity := len(quals)
	return ParsedSignature{
		Name:        name,
		MangledName: fmt.Sprintf("%s@%d", name, arity),
		Arity:       arity,
		ParamQuals:  quals,
		QualSig:     value.ComputeQualifierSignature(quals),
	}, nil
}

// parseParam extracts a single parameter's qualifier from its declaration
// text, e.g. "ref x" -> QualRef, "y" -> QualNormal. Only the first
// whitespace-separated token is ever a qualifier keyword; anything else is
// treated as the bare parameter name with no qualifier.
func parseParam(p string) value.Qualifier {
	fields := strings.Fields(strings.TrimSpace(p))
	if len(fields) < 2 {
		return value.QualNormal
	}
	if q, ok := paramPrefixes[fields[0]]; ok {
		return q
	}
	return value.QualNormal
}

// Registry accumulates native registrations before they are installed into
// a running program's Globals table (internal/vm owns the Globals
// instance; Registry itself holds no VM state, so the same registry can
// seed multiple independently-run programs).
type Registry struct {
	bySig map[string]*value.NativeFunction // mangled name -> function
	byName map[string][]int                // bare name -> every registered arity, in registration order
}

// NewRegistry returns an empty native-function registry.
func NewRegistry() *Registry {
	return &Registry{
		bySig:  make(map[string]*value.NativeFunction),
		byName: make(map[string][]int),
	}
}

// Register parses sig and records fn under the resulting mangled name.
// Registering the same (name, arity) pair twice is an error: natives are
// declared once, at registry construction, not reassigned at runtime.
func (r *Registry) Register(sig string, fn value.NativeFn) error {
	parsed, err := ParseSignature(sig)
	if err != nil {
		return err
	}
	if _, exists := r.bySig[parsed.MangledName]; exists {
		return fmt.Errorf("native: duplicate registration for %s", parsed.MangledName)
	}
	r.bySig[parsed.MangledName] = &value.NativeFunction{
		Name:        parsed.Name,
		MangledName: parsed.MangledName,
		Arity:       parsed.Arity,
		ParamQuals:  parsed.ParamQuals,
		QualSig:     parsed.QualSig,
		Fn:          fn,
	}
	r.byName[parsed.Name] = append(r.byName[parsed.Name], parsed.Arity)
	return nil
}

// MustRegister is Register, panicking via zymerr.Throw on a malformed
// signature or duplicate registration; intended for the fixed table of
// built-in natives an embedder wires in at startup, where a bad signature
// string is a programming error, not a recoverable condition.
func (r *Registry) MustRegister(sig string, fn value.NativeFn) {
	if err := r.Register(sig, fn); err != nil {
		zymerr.Throw("%s", err)
	}
}

// InstallInto populates globals with every registered native, under its
// mangled `name@arity` key always, and under its bare name directly
// whenever the name has exactly one registered arity — mirroring how the
// compiler resolves an ordinary (non-overloaded) call to its bare global
// name (internal/compiler/call.go's compileCallee falls back to a plain
// identifier lookup for any name absent from the compiler's own overload
// table, which natives never populate).
//
// A name registered at more than one arity has no bare-name global
// installed here: internal/vm is responsible for synthesizing a
// *value.Dispatcher under that bare name once every native and every
// compiled module's top-level globals have settled, exactly as it already
// does for overloaded user functions (see DESIGN.md's dispatcher
// resolution note).
func (r *Registry) InstallInto(globals *value.Globals) {
	for _, mangled := range sortedKeys(r.bySig) {
		globals.Set(mangled, value.Obj(r.bySig[mangled]))
	}
	for _, name := range sortedKeys(r.byName) {
		arities := r.byName[name]
		if len(arities) != 1 {
			continue
		}
		fn := r.bySig[fmt.Sprintf("%s@%d", name, arities[0])]
		globals.Set(name, value.Obj(fn))
	}
}

// AmbiguousNames returns every bare name registered at more than one arity,
// sorted, for internal/vm's Dispatcher-synthesis pass to consume. Sorting
// keeps dispatcher installation order (and the allocation accounting it
// drives through the track callback) reproducible across runs instead of
// following Go's randomized map iteration.
func (r *Registry) AmbiguousNames() []string {
	var names []string
	for _, name := range sortedKeys(r.byName) {
		if len(r.byName[name]) > 1 {
			names = append(names, name)
		}
	}
	return names
}

// sortedKeys returns m's keys in ascending order, via x/exp/maps+x/exp/slices
// (spec.md §8's testable properties include deterministic bytecode/behavior
// across runs; registration order alone isn't stable since Register can be
// called from independently-initialized natives packages in any order).
func sortedKeys[V any](m map[string]V) []string {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}

// Lookup returns the registered native under its mangled name, if any.
func (r *Registry) Lookup(mangledName string) (*value.NativeFunction, bool) {
	fn, ok := r.bySig[mangledName]
	return fn, ok
}

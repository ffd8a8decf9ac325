// Package loader implements spec.md §4.2's recursive module loader: it
// discovers import(...) / import sym from "..." forms in raw source text,
// resolves and recursively loads each target, wraps every non-entry module's
// transformed body in a uniquely-named factory function, and stitches the
// entry file plus every dependency into one combined source string and one
// combined linemap.Map the lexer can scan as if it were a single file.
//
// The loader never touches a filesystem itself; callers supply a ReadFunc
// that turns a resolved logical path into source bytes (and, optionally, an
// existing line map for sources that are themselves loader output, e.g. in
// embedding scenarios that stack loaders). cmd/zym wires a real directory
// reader; tests wire an in-memory map.
package loader

import (
	"strings"

	"github.com/zym-lang/zym/internal/linemap"
	"github.com/zym-lang/zym/internal/zymerr"
)

// ReadFunc resolves a logical module path to its raw source. lm may be nil,
// in which case the loader treats every line of src as having come from
// path itself (the common case: path names a real file on disk and hasn't
// already passed through some other line-mapping stage).
type ReadFunc func(path string) (src []byte, lm *linemap.Map, err error)

// Options configures a Loader.
type Options struct {
	Read ReadFunc

	// DebugNames selects spec.md §4.2's debug_names factory-naming mode
	// (encoded, human-readable factory names) over the default compact
	// hashed names.
	DebugNames bool

	// WriteDebugOutput, when set, makes Load also produce a YAML debug
	// manifest (see debug.go) describing the discovered module graph,
	// returned in Result.DebugManifest ahead of the combined source dump.
	WriteDebugOutput bool
}

// Result is the loader's output: one combined source plus the line map
// needed to translate any position in it back to an original file and
// line, and the discovered module paths in load order (entry first).
type Result struct {
	Source        string
	LineMap       *linemap.Map
	ModuleOrder   []string
	DebugManifest string
}

// Loader holds the state of one Load call: the module cache (so a module
// imported from two different places is only read and transformed once),
// the active-import stack (cycle detection), and discovery order.
type Loader struct {
	opts Options

	factories map[string]string // resolved path -> factory name, once known
	wrapped   map[string]bool   // resolved path -> wrapping already queued
	order     []string          // discovery order, entry first
	onStack   map[string]bool   // active-import stack membership
	stack     []string          // active-import stack, for cycle diagrams

	depLines   []string
	depEntries []linemap.Entry
}

// NewLoader creates a Loader. opts.Read must be non-nil.
func NewLoader(opts Options) *Loader {
	return &Loader{
		opts:      opts,
		factories: make(map[string]string),
		wrapped:   make(map[string]bool),
		onStack:   make(map[string]bool),
	}
}

// Load resolves and stitches entryPath and everything it (transitively)
// imports into one combined Result. entryPath is always loaded and its
// text is never wrapped in a factory (spec.md §4.2).
func (l *Loader) Load(entryPath string) (result *Result, err error) {
	defer zymerr.Recover(&err)

	src, lm, rerr := l.opts.Read(entryPath)
	if rerr != nil {
		return nil, &zymerr.Diagnostic{Kind: zymerr.KindLoad, Module: entryPath, Message: rerr.Error()}
	}

	l.order = append(l.order, entryPath)
	l.onStack[entryPath] = true
	l.stack = append(l.stack, entryPath)
	entryLines, entryEntries, terr := transformModule(entryPath, src, lm, l.resolve)
	l.stack = l.stack[:len(l.stack)-1]
	delete(l.onStack, entryPath)
	if terr != nil {
		return nil, terr
	}

	allLines := make([]string, 0, len(entryLines)+len(l.depLines))
	allEntries := make([]linemap.Entry, 0, len(entryEntries)+len(l.depEntries))
	allLines = append(allLines, entryLines...)
	allEntries = append(allEntries, entryEntries...)
	allLines = append(allLines, l.depLines...)
	allEntries = append(allEntries, l.depEntries...)

	lmOut := linemap.New(0)
	for _, e := range allEntries {
		lmOut.Append(e)
	}

	res := &Result{
		Source:      strings.Join(allLines, "\n"),
		LineMap:     lmOut,
		ModuleOrder: l.order,
	}
	if l.opts.WriteDebugOutput {
		res.DebugManifest, err = buildDebugManifest(l)
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

// resolve is the resolveFunc transformModule drives for every import site
// it finds: it ensures target has been loaded and wrapped (transforming it
// recursively, exactly once, via the module cache) and returns the factory
// name the caller should rewrite its call site to.
func (l *Loader) resolve(target string, line int) (string, error) {
	if factory, ok := l.factories[target]; ok {
		return factory, nil
	}
	if l.onStack[target] {
		return "", l.cycleErr(target)
	}

	src, lm, err := l.opts.Read(target)
	if err != nil {
		return "", &zymerr.Diagnostic{Kind: zymerr.KindLoad, Module: target, Line: line, Message: err.Error()}
	}

	factory := factoryNameFor(target, l.opts.DebugNames)
	l.factories[target] = factory
	l.order = append(l.order, target)

	l.onStack[target] = true
	l.stack = append(l.stack, target)
	bodyLines, bodyEntries, terr := transformModule(target, src, lm, l.resolve)
	l.stack = l.stack[:len(l.stack)-1]
	delete(l.onStack, target)
	if terr != nil {
		return "", terr
	}

	wrappedLines, wrappedEntries := wrapWithLines(factory, bodyLines, bodyEntries)
	l.depLines = append(l.depLines, wrappedLines...)
	l.depEntries = append(l.depEntries, wrappedEntries...)
	l.wrapped[target] = true

	return factory, nil
}

// wrapWithLines applies spec.md §4.2's source wrapping:
//
//	func <factory>() {
//	<transformed body>
//	}
//	<blank separator>
//
// The opening/closing/blank lines are loader-inserted, so they map to the
// synthetic sentinel entry; body lines keep the entries transformModule
// already resolved for them, index for index.
func wrapWithLines(factory string, bodyLines []string, bodyEntries []linemap.Entry) ([]string, []linemap.Entry) {
	lines := make([]string, 0, len(bodyLines)+3)
	entries := make([]linemap.Entry, 0, len(bodyEntries)+3)

	lines = append(lines, "func "+factory+"() {")
	entries = append(entries, linemap.Synthetic)

	lines = append(lines, bodyLines...)
	entries = append(entries, bodyEntries...)

	lines = append(lines, "}", "")
	entries = append(entries, linemap.Synthetic, linemap.Synthetic)

	return lines, entries
}

// cycleErr builds spec.md §4.2's multi-line indented cycle diagram, e.g.:
//
//	import cycle detected:
//	  "a.zym"
//	    imports "b.zym"
//	      imports "a.zym"  <- cycle
func (l *Loader) cycleErr(target string) error {
	var b strings.Builder
	b.WriteString("import cycle detected:\n")
	for i, p := range l.stack {
		b.WriteString(strings.Repeat("  ", i+1))
		if i == 0 {
			b.WriteString("\"" + p + "\"\n")
		} else {
			b.WriteString("imports \"" + p + "\"\n")
		}
	}
	b.WriteString(strings.Repeat("  ", len(l.stack)+1))
	b.WriteString("imports \"" + target + "\"  <- cycle")

	return &zymerr.Diagnostic{
		Kind:    zymerr.KindLoad,
		Module:  target,
		Message: b.String(),
	}
}

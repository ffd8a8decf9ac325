// Command zym is a thin embedding demo: it wires internal/loader's combined
// source into internal/lexer (through internal/parser), through
// internal/compiler, and into internal/vm, matching spec.md §4.2's stated
// loader->lexer pipeline boundary. Real embedders are expected to do their
// own argument parsing, native registration and error presentation; this
// binary exists to prove the pieces fit together, not to be a production
// CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/zym-lang/zym/internal/compiler"
	"github.com/zym-lang/zym/internal/config"
	"github.com/zym-lang/zym/internal/gcroots"
	"github.com/zym-lang/zym/internal/loader"
	"github.com/zym-lang/zym/internal/native"
	"github.com/zym-lang/zym/internal/parser"
	"github.com/zym-lang/zym/internal/value"
	"github.com/zym-lang/zym/internal/vm"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <entry.zym> [--debug-names] [--tco=off|safe|smart|aggressive]\n", filepath.Base(os.Args[0]))
		os.Exit(1)
	}

	entryPath, debugNames, tco := parseArgs(os.Args[1:])

	if err := run(entryPath, debugNames, tco); err != nil {
		report(err)
		os.Exit(1)
	}
}

func parseArgs(args []string) (entryPath string, debugNames bool, tco config.TailCallMode) {
	tco = config.TailCallSafe
	for _, a := range args {
		switch {
		case a == "--debug-names":
			debugNames = true
		case strings.HasPrefix(a, "--tco="):
			switch strings.TrimPrefix(a, "--tco=") {
			case "off":
				tco = config.TailCallOff
			case "safe":
				tco = config.TailCallSafe
			case "smart":
				tco = config.TailCallSmart
			case "aggressive":
				tco = config.TailCallAggressive
			}
		case entryPath == "":
			entryPath = a
		}
	}
	return entryPath, debugNames, tco
}

func run(entryPath string, debugNames bool, tco config.TailCallMode) error {
	dir := filepath.Dir(entryPath)
	entryName := filepath.Base(entryPath)

	l := loader.NewLoader(loader.Options{
		Read:       loader.FileReader(dir, config.SourceFileExt),
		DebugNames: debugNames,
	})
	result, err := l.Load(entryName)
	if err != nil {
		return err
	}

	file, err := parser.Parse(entryName, []byte(result.Source), result.LineMap)
	if err != nil {
		return err
	}

	entryFn, diags := compiler.Compile(entryName, file, compilerTCO(tco))
	if diags.HasErrors() {
		return diags
	}

	arena := gcroots.NewArena(0)
	interner := value.NewInterner(func(o value.Object, size int) { arena.Track(o, size) })
	globals := value.NewGlobals()
	machine := vm.NewVM(arena, interner, globals)

	registry := demoNatives()
	registry.InstallInto(globals)
	machine.BuildDispatchers(registry.AmbiguousNames())

	closure := value.NewClosure(entryFn, globals)
	_, rerr := machine.Run(closure, nil)
	return rerr
}

// compilerTCO converts config.TailCallMode to compiler.TailCallMode. The
// two enums are deliberately kept separate (config is the embedder-facing
// surface; compiler's is internal to its own package), but share ordinal
// values by construction, so a direct cast is safe here. See DESIGN.md.
func compilerTCO(m config.TailCallMode) compiler.TailCallMode {
	return compiler.TailCallMode(m)
}

// demoNatives registers the handful of natives the worked examples in
// spec.md §9 call directly: print(s) writes one line to stdout.
func demoNatives() *native.Registry {
	r := native.NewRegistry()
	r.MustRegister("print(s)", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		fmt.Println(value.Sprint(args[0]))
		return value.Value{}, nil
	})
	return r
}

// report prints err to stderr, resolving any zymerr.Diagnostic/Diagnostics
// through their own Error() formatting. When stderr is a real terminal
// (mattn/go-isatty, the same gate funxy uses in
// internal/evaluator/builtins_term.go) the offending module:line prefix is
// highlighted in ANSI red so it stands out from the rest of the message.
func report(err error) {
	if !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	fmt.Fprintln(os.Stderr, highlightLocation(err.Error()))
}

// highlightLocation wraps a leading "module:line" or "module:line:col"
// prefix (the shape every zymerr.Diagnostic renders) in ANSI red, leaving
// the rest of the line untouched. Lines that don't start with such a
// prefix pass through unchanged.
func highlightLocation(msg string) string {
	lines := strings.Split(msg, "\n")
	for i, line := range lines {
		idx := strings.Index(line, ": ")
		if idx <= 0 {
			continue
		}
		prefix := line[:idx]
		if !strings.ContainsRune(prefix, ':') {
			continue
		}
		lines[i] = "\x1b[31m" + prefix + "\x1b[0m" + line[idx:]
	}
	return strings.Join(lines, "\n")
}

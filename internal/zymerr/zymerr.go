// Package zymerr provides the diagnostic and error types shared by the
// lexer, loader, compiler, serializer and VM, so every stage reports
// failures in the same shape: module name plus a mapped source line.
package zymerr

import "fmt"

// Kind classifies a Diagnostic by the stage that produced it.
type Kind uint8

const (
	KindLex Kind = iota
	KindParse
	KindLoad
	KindCompile
	KindSerialize
	KindRuntime
)

func (k Kind) String() string {
	switch k {
	case KindLex:
		return "lex"
	case KindParse:
		return "parse"
	case KindLoad:
		return "load"
	case KindCompile:
		return "compile"
	case KindSerialize:
		return "serialize"
	case KindRuntime:
		return "runtime"
	default:
		return "error"
	}
}

// Diagnostic is a single reported problem, carrying enough context to print
// "<module>:<line>: <message>" the way funxy's compiler and scanner
// report errors.
type Diagnostic struct {
	Kind    Kind
	Module  string
	Line    int // mapped (original-source) line; 0 if unknown
	Col     int
	Message string
}

func (d *Diagnostic) Error() string {
	if d.Line > 0 {
		if d.Col > 0 {
			return fmt.Sprintf("%s:%d:%d: %s", d.Module, d.Line, d.Col, d.Message)
		}
		return fmt.Sprintf("%s:%d: %s", d.Module, d.Line, d.Message)
	}
	if d.Module != "" {
		return fmt.Sprintf("%s: %s", d.Module, d.Message)
	}
	return d.Message
}

// Diagnostics accumulates Diagnostic values across a whole compile or load,
// rather than aborting on the first error, so callers can report as many
// problems as possible in one pass (teacher precedent: pcomp/fcomp error
// accumulation in the compiler package, and funxy's diagnostics bag).
type Diagnostics struct {
	items []*Diagnostic
}

// Add records a new diagnostic.
func (d *Diagnostics) Add(kind Kind, module string, line, col int, format string, args ...any) {
	d.items = append(d.items, &Diagnostic{
		Kind:    kind,
		Module:  module,
		Line:    line,
		Col:     col,
		Message: fmt.Sprintf(format, args...),
	})
}

// HasErrors reports whether any diagnostic has been recorded.
func (d *Diagnostics) HasErrors() bool { return len(d.items) > 0 }

// All returns every recorded diagnostic, in report order.
func (d *Diagnostics) All() []*Diagnostic { return d.items }

// Error renders all diagnostics, one per line, satisfying the error
// interface so a Diagnostics value can be returned directly as an error.
func (d *Diagnostics) Error() string {
	var out string
	for i, item := range d.items {
		if i > 0 {
			out += "\n"
		}
		out += item.Error()
	}
	return out
}

// Fatal is a non-recoverable engine error (out of memory, register/local
// budget exceeded, internal invariant broken). It is always panicked with
// and recovered only at the public API boundary (Loader.Load and vm.Run
// defer Recover; compiler.Compile reports through Diagnostics and does
// not), never swallowed silently mid-compile.
type Fatal struct {
	Message string
}

func (f *Fatal) Error() string { return f.Message }

// Throw panics with a *Fatal, the single path by which the engine aborts a
// compile or run instead of limping on with corrupted state.
func Throw(format string, args ...any) {
	panic(&Fatal{Message: fmt.Sprintf(format, args...)})
}

// Recover converts a panicking *Fatal into a returned error. Call via
// `defer zymerr.Recover(&err)` at every public entry point.
func Recover(errp *error) {
	if r := recover(); r != nil {
		if f, ok := r.(*Fatal); ok {
			*errp = f
			return
		}
		panic(r)
	}
}

// Package config centralizes the embedder-facing constants and defaults
// shared across the lexer, loader, compiler and VM so the numbers named in
// the language specification (register/local caps, reference depth,
// printing depth, serializer version) live in exactly one place.
package config

// Version is the engine version, set at build time by the embedder via
// -ldflags, mirroring how funxy stamps its own Version var.
var Version = "0.1.0"

// SourceFileExt is the canonical extension for Zym source files.
const SourceFileExt = ".zym"

// BytecodeFileExt is the canonical extension for serialized bytecode
// containers produced by internal/bytecode.
const BytecodeFileExt = ".zymc"

// HasSourceExt reports whether path ends with the recognized source
// extension.
func HasSourceExt(path string) bool {
	return len(path) >= len(SourceFileExt) && path[len(path)-len(SourceFileExt):] == SourceFileExt
}

// TailCallMode selects how the compiler treats calls in tail position.
type TailCallMode uint8

const (
	// TailCallOff never rewrites a call into a tail-call instruction.
	TailCallOff TailCallMode = iota
	// TailCallSafe rewrites every call in tail position into the plain
	// TAIL_CALL form (TAIL_CALL_SELF for a direct same-arity self call).
	TailCallSafe
	// TailCallSmart emits a runtime-checked variant that falls back to a
	// normal call if the callee's captures would change.
	TailCallSmart
	// TailCallAggressive always rewrites eligible calls in tail position.
	TailCallAggressive
)

func (m TailCallMode) String() string {
	switch m {
	case TailCallOff:
		return "off"
	case TailCallSafe:
		return "safe"
	case TailCallSmart:
		return "smart"
	case TailCallAggressive:
		return "aggressive"
	default:
		return "unknown"
	}
}

// Resource limits enforced by the compiler and VM. These values are fixed;
// there is no per-compile override.
const (
	// DefaultMaxRegisters is the absolute cap on physical registers per
	// function frame (R0 reserved for the function's own value).
	DefaultMaxRegisters = 255
	// DefaultMaxLocals is the cap on named local variables per function.
	DefaultMaxLocals = 200
	// DefaultRefDepth bounds reference-flattening recursion.
	DefaultRefDepth = 64
	// DefaultPrintDepth bounds recursive printing of compound values.
	DefaultPrintDepth = 100
)

// Serializer container constants, see internal/bytecode.
const (
	BytecodeMagic   = "ZYM\x00"
	BytecodeVersion = byte(1)
)

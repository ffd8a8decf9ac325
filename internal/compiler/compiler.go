// Package compiler implements Zym's single-pass, register-allocating code
// generator (spec.md §4.3): hoisting and overload mangling, reference/slot
// parameter plumbing, tail-call rewriting, and peephole instruction
// selection, emitting internal/chunk bytecode over internal/value
// constants.
//
// Grounded on funxy's internal/vm/compiler*.go family: a Compiler per
// function with an `enclosing` chain for upvalue resolution, a locals
// table, and a loop-context stack for break/continue — generalized from
// funxy's stack-slot model (slotCount, a flat operand stack) to spec.md
// §4.3.1's register model (named registers, a target-register-threaded
// compile_expression, a temp-register high-water mark instead of a
// monotonic stack pointer).
package compiler

import (
	"fmt"

	"github.com/zym-lang/zym/internal/ast"
	"github.com/zym-lang/zym/internal/chunk"
	"github.com/zym-lang/zym/internal/token"
	"github.com/zym-lang/zym/internal/value"
)

// FuncKind distinguishes a module's top-level implicit function from a
// nested `func` declaration/expression, mirroring funxy's
// TYPE_SCRIPT/TYPE_FUNCTION split.
type FuncKind int

const (
	FuncScript FuncKind = iota
	FuncFunction
)

// TailCallMode selects how aggressively the compiler rewrites tail calls
// into TAIL_CALL/TAIL_CALL_SELF/SMART_TAIL_CALL(_SELF) forms (spec.md
// §4.3.4).
type TailCallMode int

const (
	TCOOff TailCallMode = iota
	TCOSafe
	TCOSmart
	TCOAggressive
)

// Limits spec.md §4.3.1 requires the compiler to enforce.
const (
	MaxRegisters = 255
	MaxLocals    = 200
)

type localVar struct {
	name     string
	reg      uint8
	depth    int
	captured bool
	qual     value.Qualifier
}

type upvalDesc struct {
	index   uint8
	isLocal bool
	name    string
}

type loopCtx struct {
	continueTarget int
	breakJumps     []int
	scopeDepth     int
	localCount     int
	tempTop        int
	isSwitch       bool // switch arms support break but not continue
}

type schemaKind int

const (
	schemaStruct schemaKind = iota
	schemaEnum
)

// schemaSlot is one compiler-scope entry in the struct/enum schema list
// (spec.md §4.3.7: "a compiler-scoped list (supports shadowing by depth)").
type schemaSlot struct {
	name   string
	depth  int
	kind   schemaKind
	strukt *value.StructSchema
	enum   *value.EnumSchema
}

type pendingGoto struct {
	label     string
	jumpIdx   int
	line      int
	scopeDepth int
	localCount int
}

type labelSite struct {
	name       string
	pc         int
	scopeDepth int
	localCount int
}

// Compiler compiles one function body (or a module's top level, which is
// compiled as an implicit synthetic function per spec.md §4.3.2) into a
// *chunk.Chunk. Nested function literals get their own Compiler chained via
// enclosing, exactly as funxy chains nested Compilers for closures.
type Compiler struct {
	enclosing *Compiler
	kind      FuncKind
	tco       TailCallMode

	chunk       *chunk.Chunk
	name        string
	moduleName  string
	arity       int
	paramQuals  []value.Qualifier

	locals     []localVar
	scopeDepth int

	// nextReg is the first free register above every live local; tempTop is
	// the current high-water mark for scratch registers allocated above
	// nextReg, reset to nextReg at each statement boundary (spec.md
	// §4.3.1: "temp registers ... reclaimed via temp-top watermark
	// save/restore").
	nextReg      int
	tempTop      int
	maxRegister  int

	upvalues []upvalDesc

	loopStack []loopCtx

	schemas []schemaSlot

	labels        []labelSite
	pendingGotos  []pendingGoto

	// globalHoisted/localHoisted are allocated for every Compiler but never
	// populated: the declare pass (declareFuncArities) records only arities,
	// in overloads, and emits no placeholder code.
	globalHoisted map[string]int
	localHoisted  map[string]uint8

	// overloads collects, per bare (unmangled) overloaded name, every
	// arity seen during the declare pass, so ambiguous bare references can
	// be resolved to a runtime Dispatcher (spec.md §4.3.2, §8).
	overloads map[string][]int // bare name -> arities declared, this scope

	// interner is the module-wide string table every compiled string constant
	// goes through (spec.md §3); only ever set on the root Compiler and
	// reached via root().interner, mirroring how overloads is module-wide
	// state reached through root().
	interner *value.Interner

	inTailPosition bool

	// selfMangledName is this function's own name@arity, used to recognize
	// direct recursive tail calls for the *_SELF opcode forms (spec.md
	// §4.3.4); empty for the module-level script compiler, which has no
	// callable identity of its own.
	selfMangledName string

	errors []Diagnostic
}

// New creates the root Compiler for a module's top-level code.
func New(moduleName string, tco TailCallMode) *Compiler {
	c := &Compiler{
		kind:          FuncScript,
		tco:           tco,
		chunk:         chunk.New(moduleName),
		name:          "<module>",
		moduleName:    moduleName,
		globalHoisted: make(map[string]int),
		localHoisted:  make(map[string]uint8),
		overloads:     make(map[string][]int),
		interner:      value.NewInterner(nil),
	}
	// R0 is reserved for the self-reference slot (spec.md §4.3.1); the
	// module's top level has no meaningful self, but keeping the same
	// register layout for every function (module included) means the call
	// opcode never special-cases arity-0 synthetic entry points.
	c.nextReg = 1
	c.tempTop = 1
	c.maxRegister = 0
	return c
}

// newFunctionCompiler creates a Compiler for a nested function, chained to
// enclosing for upvalue resolution, sharing the parent's TCO mode and
// module name.
func newFunctionCompiler(enclosing *Compiler, name string, arity int, paramQuals []value.Qualifier) *Compiler {
	c := &Compiler{
		enclosing:     enclosing,
		kind:          FuncFunction,
		tco:           enclosing.tco,
		chunk:         chunk.New(enclosing.moduleName),
		name:          name,
		moduleName:    enclosing.moduleName,
		arity:         arity,
		paramQuals:    paramQuals,
		globalHoisted: make(map[string]int),
		localHoisted:  make(map[string]uint8),
		overloads:     make(map[string][]int),
	}
	c.selfMangledName = mangle(name, arity)
	c.nextReg = 1 + arity // R0 = self, R1..Rarity = params
	c.tempTop = c.nextReg
	c.maxRegister = c.nextReg - 1
	return c
}

// Errors returns every Diagnostic accumulated while compiling, across the
// whole enclosing chain (only the root ever appends, via errorf/root()).
func (c *Compiler) Errors() Diagnostics { return c.root().errors }

// Chunk returns the chunk this Compiler is assembling.
func (c *Compiler) Chunk() *chunk.Chunk { return c.chunk }

func (c *Compiler) line(n ast.Node) int { return n.Line() }

// toFunction packages this Compiler's finished chunk and register layout
// into a *value.Function constant, ready to be emitted as an OpClosure
// operand (spec.md §4.3.2).
func (c *Compiler) toFunction(name string) *value.Function {
	return &value.Function{
		Name:         name,
		MangledName:  mangle(name, c.arity),
		Arity:        c.arity,
		ParamQuals:   c.paramQuals,
		QualSig:      value.ComputeQualifierSignature(c.paramQuals),
		MaxRegs:      c.MaxRegistersSeen(),
		UpvalueCount: len(c.upvalues),
		Chunk:        c.chunk,
	}
}

// mangle implements spec.md §4.3.2's `name@arity` overload key.
func mangle(name string, arity int) string {
	return fmt.Sprintf("%s@%d", name, arity)
}

func qualifierFromDeclToken(k token.Kind) value.Qualifier {
	switch k {
	case token.REF:
		return value.QualRef
	case token.SLOT:
		return value.QualSlot
	case token.VAL:
		return value.QualVal
	case token.CLONE:
		return value.QualClone
	default:
		return value.QualNormal
	}
}

package chunk

import (
	"fmt"

	"github.com/zym-lang/zym/internal/value"
)

// Chunk is one compiled unit of code: a module's top level or a single
// function body (spec.md §4.3, §4.4). Grounded on funxy's
// internal/vm/chunk.go (Code/Constants/Lines triple); generalized to the
// packed ABC/ABx uint32 instruction words spec.md §4.3.2 requires in place
// of funxy's one-opcode-per-byte stack encoding.
type Chunk struct {
	Name      string // source file this chunk was compiled from, for stack traces
	Code      []uint32
	Constants []value.Value
	// Lines[i] is the source line of Code[i]. Kept either empty (no debug
	// info) or exactly len(Code) long (spec.md §4.4): never partial.
	Lines []int32
}

var _ value.Chunk = (*Chunk)(nil)

func New(name string) *Chunk {
	return &Chunk{Name: name}
}

// InstructionCount satisfies internal/value.Chunk, letting Function.Chunk
// hold a *Chunk without internal/value importing this package.
func (c *Chunk) InstructionCount() int { return len(c.Code) }

// AddConstant appends v to the pool and returns its index. Constants are not
// deduplicated here (spec.md leaves pool layout to the compiler); the
// compiler's own constant table interning happens at the AST level before
// constants ever reach a Chunk.
func (c *Chunk) AddConstant(v value.Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// emit appends a raw instruction word and its source line, keeping Lines in
// lockstep with Code (spec.md §4.4 invariant).
func (c *Chunk) emit(ins uint32, line int) int {
	c.Code = append(c.Code, ins)
	c.Lines = append(c.Lines, int32(line))
	return len(c.Code) - 1
}

// EmitABC appends an ABC-format instruction and returns its index.
func (c *Chunk) EmitABC(op Op, a, b, cc uint8, line int) int {
	return c.emit(packABC(op, a, b, cc), line)
}

// EmitABx appends an ABx-format instruction (a signed 16-bit operand) and
// returns its index.
func (c *Chunk) EmitABx(op Op, a uint8, bx int16, line int) int {
	return c.emit(packABx(op, a, bx), line)
}

// EmitJump appends a jump/branch placeholder with a zero offset and returns
// its index so the compiler can back-patch it once the target is known via
// PatchJump.
func (c *Chunk) EmitJump(op Op, a uint8, line int) int {
	return c.EmitABx(op, a, 0, line)
}

// PatchJump rewrites the jump at idx so it lands on the instruction that
// will execute next (len(Code)), i.e. the offset is relative to the
// instruction immediately following the jump itself.
func (c *Chunk) PatchJump(idx int) error {
	offset := len(c.Code) - (idx + 1)
	if !fitsBx(offset) {
		return fmt.Errorf("chunk: jump offset %d exceeds 16-bit range at instruction %d", offset, idx)
	}
	op, a, _ := unpackABx(c.Code[idx])
	c.Code[idx] = packABx(op, a, int16(offset))
	return nil
}

// PatchJumpTo rewrites the jump at idx to target the instruction at
// targetIdx, used for backward jumps (loop continues) where the target is
// already known.
func (c *Chunk) PatchJumpTo(idx, targetIdx int) error {
	offset := targetIdx - (idx + 1)
	if !fitsBx(offset) {
		return fmt.Errorf("chunk: jump offset %d exceeds 16-bit range at instruction %d", offset, idx)
	}
	op, a, _ := unpackABx(c.Code[idx])
	c.Code[idx] = packABx(op, a, int16(offset))
	return nil
}

// EmitLiteralOperand appends the two trailing code words an _L-form
// instruction needs for its inline 64-bit double operand (spec.md §4.3.2).
// Callers emit the _L instruction itself first via EmitABC/EmitABx, then
// call this immediately after so the two words sit at pc+1/pc+2. Lines gets
// two matching entries so Chunk's line-per-instruction invariant holds
// across the pair.
func (c *Chunk) EmitLiteralOperand(f float64, line int) {
	lo, hi := packDouble(f)
	c.emit(lo, line)
	c.emit(hi, line)
}

// ReadLiteralOperand reconstructs the float64 stored at pc, pc+1 by a prior
// EmitLiteralOperand call.
func (c *Chunk) ReadLiteralOperand(pc int) float64 {
	return unpackDouble(c.Code[pc], c.Code[pc+1])
}

// EmitImmediateOperand appends the one trailing word an _I-form instruction
// needs for its 16-bit signed immediate right operand (spec.md §4.3.5),
// following the same "consumed by the preceding instruction" convention as
// EmitLiteralOperand.
func (c *Chunk) EmitImmediateOperand(imm int16, line int) {
	c.emit(uint32(uint16(imm)), line)
}

// ReadImmediateOperand reconstructs the int16 stored at pc by a prior
// EmitImmediateOperand call.
func (c *Chunk) ReadImmediateOperand(pc int) int16 {
	return int16(uint16(c.Code[pc]))
}

// EmitRegisterOperand appends one trailing word holding a single register
// index, used by the base (register/register) form of a fused
// compare-and-branch instruction to carry its right-hand register (the left
// register and jump offset already fit in the branch's own ABx word).
func (c *Chunk) EmitRegisterOperand(reg uint8, line int) {
	c.emit(uint32(reg), line)
}

// ReadRegisterOperand reconstructs the register index stored at pc by a
// prior EmitRegisterOperand call.
func (c *Chunk) ReadRegisterOperand(pc int) uint8 {
	return uint8(c.Code[pc])
}

// EmitUpvalueCapture appends one upvalue-capture descriptor word following
// an OpClosure instruction (spec.md §4.4: function constants carry
// "upvalue_count int32, upvalue descs"). Grounded on funxy's
// ObjClosure construction pattern, generalized from clox's two-byte
// (isLocal, index) pairs into a single packed ABC word so descriptors share
// Chunk's uint32 code stream instead of a separate byte array.
func (c *Chunk) EmitUpvalueCapture(isLocal bool, index int, line int) int {
	var localFlag uint8
	if isLocal {
		localFlag = 1
	}
	return c.EmitABC(OpNop, localFlag, uint8(index), uint8(index>>8), line)
}

// ReadUpvalueCapture decodes a descriptor word written by EmitUpvalueCapture.
func ReadUpvalueCapture(word uint32) (isLocal bool, index int) {
	_, a, b, cc := unpackABC(word)
	return a != 0, int(b) | int(cc)<<8
}

// Decode splits instruction word ins into its opcode and ABC operands.
func Decode(ins uint32) (op Op, a, b, c uint8) { return unpackABC(ins) }

// DecodeABx splits instruction word ins into its opcode, A operand, and
// signed Bx operand.
func DecodeABx(ins uint32) (op Op, a uint8, bx int16) { return unpackABx(ins) }

func (c *Chunk) LineFor(pc int) int {
	if pc < 0 || pc >= len(c.Lines) {
		return 0
	}
	return int(c.Lines[pc])
}

package chunk

import (
	"fmt"
	"strings"

	"github.com/zym-lang/zym/internal/value"
)

// Disassemble renders c as human-readable pseudo-assembly, one instruction
// per line, for debugging and for tests asserting on generated code shape
// without depending on exact uint32 encodings.
func Disassemble(c *Chunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", c.Name)
	for pc := 0; pc < len(c.Code); pc++ {
		pc = disassembleInstruction(&b, c, pc)
	}
	return b.String()
}

// disassembleInstruction writes one line for the instruction at pc and
// returns the pc of the last word it consumed (callers do pc = ret + 1 via
// the loop increment), since _L-form instructions and OpClosure swallow
// trailing operand words.
func disassembleInstruction(b *strings.Builder, c *Chunk, pc int) int {
	ins := c.Code[pc]
	op, a, bOperand, cOperand := unpackABC(ins)
	line := c.LineFor(pc)

	fmt.Fprintf(b, "%04d %4d  %-20s", pc, line, op)

	switch {
	case op.IsLiteralForm():
		f := c.ReadLiteralOperand(pc + 1)
		fmt.Fprintf(b, "R%d R%d %g\n", a, bOperand, f)
		return pc + 2
	case op.IsImmediateForm():
		imm := c.ReadImmediateOperand(pc + 1)
		fmt.Fprintf(b, "R%d R%d %d\n", a, bOperand, imm)
		return pc + 1
	case isBranchOp(op):
		_, leftReg, bx := unpackABx(ins)
		switch {
		case op >= OpBranchEqL && op <= OpBranchGeL:
			f := c.ReadLiteralOperand(pc + 1)
			fmt.Fprintf(b, "R%d %g -> %d\n", leftReg, f, bx)
			return pc + 2
		case op >= OpBranchEqI && op <= OpBranchGeI:
			imm := c.ReadImmediateOperand(pc + 1)
			fmt.Fprintf(b, "R%d %d -> %d\n", leftReg, imm, bx)
			return pc + 1
		default:
			rightReg := c.ReadRegisterOperand(pc + 1)
			fmt.Fprintf(b, "R%d R%d -> %d\n", leftReg, rightReg, bx)
			return pc + 1
		}
	case isABxOp(op):
		_, _, bx := unpackABx(ins)
		fmt.Fprintf(b, "R%d %d\n", a, bx)
		if op == OpClosure && int(bx) >= 0 && int(bx) < len(c.Constants) {
			if n, ok := functionUpvalueCount(c.Constants[bx]); ok {
				for i := 0; i < n; i++ {
					pc++
					isLocal, idx := ReadUpvalueCapture(c.Code[pc])
					kind := "upvalue"
					if isLocal {
						kind = "local"
					}
					fmt.Fprintf(b, "%04d      |                     capture %s %d\n", pc, kind, idx)
				}
			}
		}
		return pc
	default:
		fmt.Fprintf(b, "R%d R%d R%d\n", a, bOperand, cOperand)
		return pc
	}
}

func isBranchOp(op Op) bool {
	return op >= OpBranchEq && op <= OpBranchGeL
}

func isABxOp(op Op) bool {
	switch op {
	case OpLoadConst, OpDefineGlobal, OpGetGlobal, OpSetGlobal, OpClosure,
		OpJump, OpJumpIfFalse,
		OpMakeGlobalRef, OpSlotGlobalRef,
		OpNewMap, OpStructNew, OpStructNewNamed:
		return true
	default:
		return false
	}
}

// functionUpvalueCount reports whether cst is a Function constant and, if
// so, how many upvalue-capture descriptor words follow its OpClosure.
func functionUpvalueCount(cst value.Value) (int, bool) {
	if !cst.IsObjectKind(value.ObjFunction) {
		return 0, false
	}
	fn := cst.Obj.(*value.Function)
	return fn.UpvalueCount, true
}

package vm

import (
	"github.com/zym-lang/zym/internal/chunk"
	"github.com/zym-lang/zym/internal/value"
)

// branchBaseOps lists the six comparison kernels the fused compare-and-branch
// family cycles through, in the same EQ/NE/LT/LE/GT/GE order opcode.go
// declares for each of its three trailing-operand shapes (register, _I,
// _L) — grounded on the same "group of six, three times" layout the base
// arithmetic block already uses for OpEq..OpGe.
var branchBaseOps = [6]chunk.Op{chunk.OpEq, chunk.OpNe, chunk.OpLt, chunk.OpLe, chunk.OpGt, chunk.OpGe}

func branchKernel(op chunk.Op) (base chunk.Op, form int) {
	idx := int(op - chunk.OpBranchEq)
	return branchBaseOps[idx%6], idx / 6
}

// execute runs the opcode dispatch loop over the current top frame until
// the frame stack empties (vm.halted) or an error aborts the run. Unlike a
// fetch-pc-then-increment-unconditionally design, each case advances f.PC
// itself once it knows exactly how many trailing words (if any) the
// instruction consumed — runtimeErrf and StackTrace rely on f.PC still
// naming the failing instruction when a case returns early with an error.
func (vm *VM) execute() error {
	for !vm.halted {
		f := vm.current()
		if f.PC < 0 || f.PC >= len(f.Chunk.Code) {
			return vm.runtimeErrf("program counter ran off the end of the chunk")
		}
		ins := f.Chunk.Code[f.PC]
		op, a, b, c := chunk.Decode(ins)

		switch op {
		case chunk.OpNop:
			f.PC++

		case chunk.OpMove:
			f.Registers[a] = f.Registers[b]
			f.PC++

		case chunk.OpLoadConst:
			_, a2, bx := chunk.DecodeABx(ins)
			f.Registers[a2] = f.Chunk.Constants[bx]
			f.PC++

		case chunk.OpLoadNull:
			f.Registers[a] = value.Null
			f.PC++

		case chunk.OpLoadTrue:
			f.Registers[a] = value.Bool(true)
			f.PC++

		case chunk.OpLoadFalse:
			f.Registers[a] = value.Bool(false)
			f.PC++

		case chunk.OpDefineGlobal, chunk.OpGetGlobal, chunk.OpSetGlobal:
			_, a2, bx := chunk.DecodeABx(ins)
			name, ok := f.Chunk.Constants[bx].Obj.(*value.String)
			if !ok {
				return vm.runtimeErrf("global instruction: constant %d is not a string", bx)
			}
			switch op {
			case chunk.OpDefineGlobal, chunk.OpSetGlobal:
				vm.Globals.Set(name.Go(), f.Registers[a2])
			default:
				v, found := vm.Globals.Get(name.Go())
				if !found {
					return vm.runtimeErrf("undefined global %q", name.Go())
				}
				f.Registers[a2] = v
			}
			f.PC++

		case chunk.OpGetUpvalue:
			f.Registers[a] = f.Closure.Upvalues[b].Get()
			f.PC++

		case chunk.OpSetUpvalue:
			f.Closure.Upvalues[b].Set(f.Registers[a])
			f.PC++

		case chunk.OpCloseUpvalue:
			f.closeOne(int(a))
			f.PC++

		case chunk.OpCloseFrameUpvalues:
			f.closeFrom(int(a))
			f.PC++

		case chunk.OpClosure:
			_, a2, bx := chunk.DecodeABx(ins)
			if err := vm.execClosure(f, a2, bx); err != nil {
				return err
			}

		case chunk.OpCall:
			f.PC++
			if err := vm.execCall(f, a, b, c, false); err != nil {
				return err
			}

		case chunk.OpCallSpread:
			f.PC++
			if err := vm.execCall(f, a, b, c, true); err != nil {
				return err
			}

		case chunk.OpTailCall, chunk.OpTailCallSelf:
			if err := vm.execTailCall(f, a, c, false, false); err != nil {
				return err
			}

		case chunk.OpSmartTailCall, chunk.OpSmartTailCallSelf:
			if err := vm.execTailCall(f, a, c, false, true); err != nil {
				return err
			}

		case chunk.OpReturn:
			var val value.Value
			if b == 0 {
				val = f.Registers[a]
			}
			if err := vm.doReturn(val); err != nil {
				return err
			}

		case chunk.OpReturnNull:
			if err := vm.doReturn(value.Null); err != nil {
				return err
			}

		case chunk.OpJump:
			_, _, bx := chunk.DecodeABx(ins)
			f.PC = f.PC + 1 + int(bx)

		case chunk.OpJumpIfFalse:
			_, a2, bx := chunk.DecodeABx(ins)
			next := f.PC + 1
			if !f.Registers[a2].Truthy() {
				next += int(bx)
			}
			f.PC = next

		case chunk.OpBranchEq, chunk.OpBranchNe, chunk.OpBranchLt, chunk.OpBranchLe, chunk.OpBranchGt, chunk.OpBranchGe,
			chunk.OpBranchEqI, chunk.OpBranchNeI, chunk.OpBranchLtI, chunk.OpBranchLeI, chunk.OpBranchGtI, chunk.OpBranchGeI,
			chunk.OpBranchEqL, chunk.OpBranchNeL, chunk.OpBranchLtL, chunk.OpBranchLeL, chunk.OpBranchGtL, chunk.OpBranchGeL:
			if err := vm.execBranch(f, op, ins); err != nil {
				return err
			}

		case chunk.OpAdd, chunk.OpSub, chunk.OpMul, chunk.OpDiv, chunk.OpMod,
			chunk.OpBAnd, chunk.OpBOr, chunk.OpBXor, chunk.OpBLShift, chunk.OpBRShiftI, chunk.OpBRShiftU,
			chunk.OpEq, chunk.OpNe, chunk.OpLt, chunk.OpLe, chunk.OpGt, chunk.OpGe,
			chunk.OpAddI, chunk.OpSubI, chunk.OpMulI, chunk.OpDivI, chunk.OpModI,
			chunk.OpBAndI, chunk.OpBOrI, chunk.OpBXorI, chunk.OpBLShiftI, chunk.OpBRShiftII, chunk.OpBRShiftUI,
			chunk.OpEqI, chunk.OpNeI, chunk.OpLtI, chunk.OpLeI, chunk.OpGtI, chunk.OpGeI,
			chunk.OpAddL, chunk.OpSubL, chunk.OpMulL, chunk.OpDivL, chunk.OpModL,
			chunk.OpBAndL, chunk.OpBOrL, chunk.OpBXorL, chunk.OpBLShiftL, chunk.OpBRShiftIL, chunk.OpBRShiftUL,
			chunk.OpEqL, chunk.OpNeL, chunk.OpLtL, chunk.OpLeL, chunk.OpGtL, chunk.OpGeL:
			right, consumed := vm.readRightOperand(f, op, c)
			v, err := vm.evalArith(op.BaseForm(), f.Registers[b], right)
			if err != nil {
				return err
			}
			f.Registers[a] = v
			f.PC += 1 + consumed

		case chunk.OpNeg, chunk.OpNot, chunk.OpBNot:
			v, err := vm.evalUnary(op, f.Registers[b])
			if err != nil {
				return err
			}
			f.Registers[a] = v
			f.PC++

		case chunk.OpMakeRef, chunk.OpSlotRef:
			r := value.NewLocalRef(&f.Frame, int(b), op == chunk.OpSlotRef)
			vm.track(r, 32)
			f.Registers[a] = value.Obj(r)
			f.PC++

		case chunk.OpMakeUpvalueRef, chunk.OpSlotUpvalueRef:
			r := value.NewUpvalueRef(f.Closure.Upvalues[b], op == chunk.OpSlotUpvalueRef)
			vm.track(r, 32)
			f.Registers[a] = value.Obj(r)
			f.PC++

		case chunk.OpMakeGlobalRef, chunk.OpSlotGlobalRef:
			_, a2, bx := chunk.DecodeABx(ins)
			name, ok := f.Chunk.Constants[bx].Obj.(*value.String)
			if !ok {
				return vm.runtimeErrf("MAKE_GLOBAL_REF: constant %d is not a string", bx)
			}
			r := value.NewGlobalRef(vm.Globals, name.Go(), op == chunk.OpSlotGlobalRef)
			vm.track(r, 32)
			f.Registers[a2] = value.Obj(r)
			f.PC++

		case chunk.OpMakeIndexRef, chunk.OpSlotIndexRef:
			r := value.NewIndexRef(f.Registers[b], f.Registers[c], op == chunk.OpSlotIndexRef)
			vm.track(r, 48)
			f.Registers[a] = value.Obj(r)
			f.PC++

		case chunk.OpMakePropertyRef, chunk.OpSlotPropertyRef:
			name, ok := f.Chunk.Constants[c].Obj.(*value.String)
			if !ok {
				return vm.runtimeErrf("MAKE_PROPERTY_REF: constant %d is not a string", c)
			}
			r := value.NewPropertyRef(f.Registers[b], name.Go(), op == chunk.OpSlotPropertyRef)
			vm.track(r, 48)
			f.Registers[a] = value.Obj(r)
			f.PC++

		case chunk.OpDeref:
			ref, ok := f.Registers[b].Obj.(*value.Reference)
			if !f.Registers[b].IsObject() || !ok {
				return vm.runtimeErrf("cannot dereference a value of type %s", f.Registers[b].TypeName())
			}
			v, err := vm.derefRef(ref)
			if err != nil {
				return err
			}
			f.Registers[a] = v
			f.PC++

		case chunk.OpRefSet:
			ref, ok := f.Registers[a].Obj.(*value.Reference)
			if !f.Registers[a].IsObject() || !ok {
				return vm.runtimeErrf("cannot write through a value of type %s", f.Registers[a].TypeName())
			}
			if err := vm.setRef(ref, f.Registers[b]); err != nil {
				return err
			}
			f.PC++

		case chunk.OpNewList:
			vm.execNewList(f, a, b, c)
			f.PC++

		case chunk.OpNewMap:
			_, a2, bx := chunk.DecodeABx(ins)
			vm.execNewMap(f, a2, bx)
			f.PC++

		case chunk.OpIndexGet:
			v, err := vm.indexGet(f.Registers[b], f.Registers[c])
			if err != nil {
				return err
			}
			f.Registers[a] = v
			f.PC++

		case chunk.OpIndexSet:
			if err := vm.indexSet(f.Registers[a], f.Registers[b], f.Registers[c]); err != nil {
				return err
			}
			f.PC++

		case chunk.OpFieldGet:
			if err := vm.execFieldGet(f, a, b, c); err != nil {
				return err
			}
			f.PC++

		case chunk.OpFieldSet:
			if err := vm.execFieldSet(f, a, b, c); err != nil {
				return err
			}
			f.PC++

		case chunk.OpStructSpread:
			if err := vm.execStructSpread(f, a, b); err != nil {
				return err
			}
			f.PC++

		case chunk.OpStructNew:
			_, a2, bx := chunk.DecodeABx(ins)
			if err := vm.execStructNew(f, a2, bx); err != nil {
				return err
			}
			f.PC++

		case chunk.OpStructNewNamed:
			_, a2, bx := chunk.DecodeABx(ins)
			if err := vm.execStructNewNamed(f, a2, bx); err != nil {
				return err
			}
			f.PC++

		case chunk.OpTypeof:
			vm.execTypeof(f, a, b)
			f.PC++

		case chunk.OpHalt:
			vm.halted = true

		default:
			return vm.runtimeErrf("unimplemented opcode %s", op)
		}
	}
	return nil
}

// execBranch handles the 18-member fused compare-and-branch family. The
// jump offset in the ABx word is relative to the instruction immediately
// following the branch opcode itself (matching PatchJump/PatchJumpTo,
// unchanged from plain OpJump), i.e. to where the trailing right-operand
// word(s) begin — not to wherever those words end, since the compiler
// patches the offset against whatever code follows at patch time, trailing
// operand words included.
func (vm *VM) execBranch(f *Frame, op chunk.Op, ins uint32) error {
	_, a, bx := chunk.DecodeABx(ins)
	base, form := branchKernel(op)
	opBase := f.PC + 1

	var right value.Value
	var consumed int
	switch form {
	case 1: // _I
		right, consumed = value.Number(float64(f.Chunk.ReadImmediateOperand(opBase))), 1
	case 2: // _L
		right, consumed = value.Number(f.Chunk.ReadLiteralOperand(opBase)), 2
	default: // register
		right, consumed = f.Registers[f.Chunk.ReadRegisterOperand(opBase)], 1
	}

	taken, err := vm.evalCompareBool(base, f.Registers[a], right)
	if err != nil {
		return err
	}
	if taken {
		f.PC = opBase + int(bx)
	} else {
		f.PC = opBase + consumed
	}
	return nil
}

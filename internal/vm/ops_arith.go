package vm

import (
	"math"

	"github.com/zym-lang/zym/internal/chunk"
	"github.com/zym-lang/zym/internal/value"
)

// readRightOperand pulls the right-hand operand of an arithmetic, bitwise,
// comparison or fused-branch instruction out of whichever trailing-word
// shape its opcode uses (spec.md §4.3.5), returning how many extra code
// words were consumed so the caller can advance PC past them. The base
// (register/register) form consumes none of its own — its right operand is
// the already-decoded C field.
func (vm *VM) readRightOperand(f *Frame, op chunk.Op, c uint8) (value.Value, int) {
	switch {
	case op.IsImmediateForm():
		imm := f.Chunk.ReadImmediateOperand(f.PC + 1)
		return value.Number(float64(imm)), 1
	case op.IsLiteralForm():
		lit := f.Chunk.ReadLiteralOperand(f.PC + 1)
		return value.Number(lit), 2
	default:
		return f.Registers[c], 0
	}
}

// toInt64 coerces v to an exact int64 for the bitwise operators, accepting
// either a plain number (truncated) or an already-boxed *value.Int64.
func toInt64(v value.Value) (int64, bool) {
	if v.IsNumber() {
		return int64(v.AsNumber()), true
	}
	if v.IsObject() {
		if i, ok := v.Obj.(*value.Int64); ok {
			return i.V, true
		}
	}
	return 0, false
}

func (vm *VM) boxInt64(n int64) value.Value {
	i := value.NewInt64(n)
	vm.track(i, 16)
	return value.Obj(i)
}

// evalArith implements every base ABC arithmetic/bitwise/comparison opcode
// (spec.md §4.3.5), shared by the base/_I/_L peephole forms via
// Op.BaseForm() — the caller has already reduced the right operand to a
// plain Value regardless of which trailing-word shape produced it.
func (vm *VM) evalArith(base chunk.Op, left, right value.Value) (value.Value, error) {
	switch base {
	case chunk.OpAdd:
		if left.IsNumber() && right.IsNumber() {
			return value.Number(left.AsNumber() + right.AsNumber()), nil
		}
		ls, lok := left.Obj.(*value.String)
		rs, rok := right.Obj.(*value.String)
		if left.IsObject() && right.IsObject() && lok && rok {
			s := vm.Interner.Intern(ls.Go() + rs.Go())
			return value.Obj(s), nil
		}
		return value.Null, vm.runtimeErrf("cannot add values of type %s and %s", left.TypeName(), right.TypeName())
	case chunk.OpSub:
		l, r, err := vm.numPair(left, right, "subtract")
		if err != nil {
			return value.Null, err
		}
		return value.Number(l - r), nil
	case chunk.OpMul:
		l, r, err := vm.numPair(left, right, "multiply")
		if err != nil {
			return value.Null, err
		}
		return value.Number(l * r), nil
	case chunk.OpDiv:
		l, r, err := vm.numPair(left, right, "divide")
		if err != nil {
			return value.Null, err
		}
		if r == 0 {
			return value.Null, vm.runtimeErrf("division by zero")
		}
		return value.Number(l / r), nil
	case chunk.OpMod:
		l, r, err := vm.numPair(left, right, "take the remainder of")
		if err != nil {
			return value.Null, err
		}
		if r == 0 {
			return value.Null, vm.runtimeErrf("division by zero")
		}
		return value.Number(math.Mod(l, r)), nil
	case chunk.OpBAnd, chunk.OpBOr, chunk.OpBXor, chunk.OpBLShift, chunk.OpBRShiftI, chunk.OpBRShiftU:
		l, ok1 := toInt64(left)
		r, ok2 := toInt64(right)
		if !ok1 || !ok2 {
			return value.Null, vm.runtimeErrf("bitwise operator requires integer operands, got %s and %s", left.TypeName(), right.TypeName())
		}
		switch base {
		case chunk.OpBAnd:
			return vm.boxInt64(l & r), nil
		case chunk.OpBOr:
			return vm.boxInt64(l | r), nil
		case chunk.OpBXor:
			return vm.boxInt64(l ^ r), nil
		case chunk.OpBLShift:
			return vm.boxInt64(l << uint(r)), nil
		case chunk.OpBRShiftI:
			return vm.boxInt64(l >> uint(r)), nil
		default: // OpBRShiftU
			return vm.boxInt64(int64(uint64(l) >> uint(r))), nil
		}
	case chunk.OpEq:
		return value.Bool(left.Equals(right)), nil
	case chunk.OpNe:
		return value.Bool(!left.Equals(right)), nil
	case chunk.OpLt, chunk.OpLe, chunk.OpGt, chunk.OpGe:
		l, r, err := vm.numPair(left, right, "compare")
		if err != nil {
			return value.Null, err
		}
		switch base {
		case chunk.OpLt:
			return value.Bool(l < r), nil
		case chunk.OpLe:
			return value.Bool(l <= r), nil
		case chunk.OpGt:
			return value.Bool(l > r), nil
		default:
			return value.Bool(l >= r), nil
		}
	default:
		return value.Null, vm.runtimeErrf("unsupported arithmetic opcode %s", base)
	}
}

func (vm *VM) numPair(left, right value.Value, verb string) (float64, float64, error) {
	if !left.IsNumber() || !right.IsNumber() {
		return 0, 0, vm.runtimeErrf("cannot %s values of type %s and %s", verb, left.TypeName(), right.TypeName())
	}
	return left.AsNumber(), right.AsNumber(), nil
}

// evalCompareBool is the shared predicate behind both the plain ABC
// comparison opcodes and the fused compare-and-branch family: it reduces to
// evalArith's Eq/Ne/Lt/Le/Gt/Ge cases and unwraps the resulting Bool.
func (vm *VM) evalCompareBool(base chunk.Op, left, right value.Value) (bool, error) {
	v, err := vm.evalArith(base, left, right)
	if err != nil {
		return false, err
	}
	return v.AsBool(), nil
}

// evalUnary implements OpNeg/OpNot/OpBNot.
func (vm *VM) evalUnary(op chunk.Op, src value.Value) (value.Value, error) {
	switch op {
	case chunk.OpNeg:
		if !src.IsNumber() {
			return value.Null, vm.runtimeErrf("cannot negate a value of type %s", src.TypeName())
		}
		return value.Number(-src.AsNumber()), nil
	case chunk.OpNot:
		return value.Bool(!src.Truthy()), nil
	case chunk.OpBNot:
		n, ok := toInt64(src)
		if !ok {
			return value.Null, vm.runtimeErrf("cannot bitwise-negate a value of type %s", src.TypeName())
		}
		return vm.boxInt64(^n), nil
	default:
		return value.Null, vm.runtimeErrf("unsupported unary opcode %s", op)
	}
}

// execTypeof handles OpTypeof: A=target, B=src.
func (vm *VM) execTypeof(f *Frame, a, b uint8) {
	s := vm.Interner.Intern(f.Registers[b].TypeName())
	f.Registers[a] = value.Obj(s)
}

package chunk_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zym-lang/zym/internal/chunk"
	"github.com/zym-lang/zym/internal/value"
)

func TestEmitABCRoundTrips(t *testing.T) {
	c := chunk.New("test")
	idx := c.EmitABC(chunk.OpAdd, 1, 2, 3, 10)
	require.Equal(t, 0, idx)
	op, a, b, cc := chunk.Decode(c.Code[idx])
	require.Equal(t, chunk.OpAdd, op)
	require.EqualValues(t, 1, a)
	require.EqualValues(t, 2, b)
	require.EqualValues(t, 3, cc)
	require.Equal(t, 10, c.LineFor(idx))
}

func TestEmitABxRoundTripsNegativeOffset(t *testing.T) {
	c := chunk.New("test")
	idx := c.EmitABx(chunk.OpLoadConst, 5, -1234, 1)
	op, a, bx := chunk.DecodeABx(c.Code[idx])
	require.Equal(t, chunk.OpLoadConst, op)
	require.EqualValues(t, 5, a)
	require.EqualValues(t, -1234, bx)
}

func TestPatchJumpComputesForwardOffset(t *testing.T) {
	c := chunk.New("test")
	jmp := c.EmitJump(chunk.OpJumpIfFalse, 0, 1)
	c.EmitABC(chunk.OpNop, 0, 0, 0, 2)
	c.EmitABC(chunk.OpNop, 0, 0, 0, 3)
	require.NoError(t, c.PatchJump(jmp))
	_, _, bx := chunk.DecodeABx(c.Code[jmp])
	require.EqualValues(t, 2, bx)
}

func TestPatchJumpToComputesBackwardOffset(t *testing.T) {
	c := chunk.New("test")
	loopStart := len(c.Code)
	c.EmitABC(chunk.OpNop, 0, 0, 0, 1)
	back := c.EmitJump(chunk.OpJump, 0, 2)
	require.NoError(t, c.PatchJumpTo(back, loopStart))
	_, _, bx := chunk.DecodeABx(c.Code[back])
	require.EqualValues(t, -2, bx)
}

func TestLiteralOperandRoundTrips(t *testing.T) {
	c := chunk.New("test")
	c.EmitABC(chunk.OpAddL, 1, 2, 0, 5)
	c.EmitLiteralOperand(3.5, 5)
	require.Len(t, c.Code, 3)
	require.Equal(t, 3.5, c.ReadLiteralOperand(1))
	require.Equal(t, []int32{5, 5, 5}, c.Lines)
}

func TestImmediateOperandRoundTrips(t *testing.T) {
	c := chunk.New("test")
	c.EmitABC(chunk.OpAddI, 1, 2, 0, 5)
	c.EmitImmediateOperand(-7, 5)
	require.Equal(t, int16(-7), c.ReadImmediateOperand(1))
}

func TestRegisterOperandRoundTrips(t *testing.T) {
	c := chunk.New("test")
	jmp := c.EmitJump(chunk.OpBranchLt, 3, 1)
	c.EmitRegisterOperand(9, 1)
	require.NoError(t, c.PatchJump(jmp))
	_, leftReg, bx := chunk.DecodeABx(c.Code[jmp])
	require.EqualValues(t, 3, leftReg)
	require.EqualValues(t, 1, bx)
	require.EqualValues(t, 9, c.ReadRegisterOperand(jmp+1))
}

func TestUpvalueCaptureRoundTrips(t *testing.T) {
	c := chunk.New("test")
	idx := c.EmitUpvalueCapture(true, 300, 1)
	isLocal, index := chunk.ReadUpvalueCapture(c.Code[idx])
	require.True(t, isLocal)
	require.Equal(t, 300, index)
}

func TestAddConstantAppendsAndReturnsIndex(t *testing.T) {
	c := chunk.New("test")
	i0 := c.AddConstant(value.Number(1))
	i1 := c.AddConstant(value.Number(2))
	require.Equal(t, 0, i0)
	require.Equal(t, 1, i1)
	require.Len(t, c.Constants, 2)
}

func TestInstructionCountSatisfiesValueChunkInterface(t *testing.T) {
	c := chunk.New("test")
	c.EmitABC(chunk.OpNop, 0, 0, 0, 1)
	var vc value.Chunk = c
	require.Equal(t, 1, vc.InstructionCount())
}

func TestDisassembleRendersOpcodeNames(t *testing.T) {
	c := chunk.New("demo")
	c.EmitABx(chunk.OpLoadConst, 0, 0, 1)
	c.AddConstant(value.Number(42))
	out := chunk.Disassemble(c)
	require.Contains(t, out, "LOAD_CONST")
	require.Contains(t, out, "== demo ==")
}

func TestBaseFormMapsPeepholeVariantsBack(t *testing.T) {
	require.Equal(t, chunk.OpAdd, chunk.OpAddI.BaseForm())
	require.Equal(t, chunk.OpAdd, chunk.OpAddL.BaseForm())
	require.Equal(t, chunk.OpGe, chunk.OpGeI.BaseForm())
	require.Equal(t, chunk.OpGe, chunk.OpGeL.BaseForm())
	require.True(t, chunk.OpMulI.IsImmediateForm())
	require.True(t, chunk.OpMulL.IsLiteralForm())
	require.False(t, chunk.OpMul.IsImmediateForm())
}

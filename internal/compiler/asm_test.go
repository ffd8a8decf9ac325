package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zym-lang/zym/internal/chunk"
	"github.com/zym-lang/zym/internal/compiler"
)

func TestEncodeTextRoundTripsThroughAssemble(t *testing.T) {
	c := mustCompile(t, `var x = 1; var y = x + 2;`, compiler.TCOOff)
	text := compiler.EncodeText(c)
	require.Contains(t, text, "function 0")
	require.Contains(t, text, "ADD_I")

	reassembled, err := compiler.Assemble(text)
	require.NoError(t, err)
	require.Equal(t, text, compiler.EncodeText(reassembled))
}

func TestEncodeTextFlattensNestedClosures(t *testing.T) {
	c := mustCompile(t, `
		func outer() {
			var captured = 1;
			func inner() { return captured; }
			return inner;
		}
	`, compiler.TCOOff)
	text := compiler.EncodeText(c)
	require.Contains(t, text, "function 0")
	require.Contains(t, text, "function 1")
	require.Contains(t, text, "func 1", "the module's constant pool should reference outer by index")
	require.Contains(t, text, "CLOSURE")
	require.Contains(t, text, "capture")
}

func TestAssembleRejectsUnknownOpcode(t *testing.T) {
	_, err := compiler.Assemble("function 0 \"x\":\n  code:\n    0000  NOT_AN_OPCODE R0 R1 R2\n")
	require.Error(t, err)
}

func TestAssembleBuildsBranchWithOffset(t *testing.T) {
	src := "function 0 \"x\":\n" +
		"  code:\n" +
		"    0000  BRANCH_LT_I R0 5 -> 2\n" +
		"    0001  LOAD_NULL R1 R0 R0\n" +
		"    0002  RETURN R1 R0 R0\n"
	c, err := compiler.Assemble(src)
	require.NoError(t, err)
	require.Equal(t, chunk.OpBranchLtI, mustOpAt(t, c, 0))
	_, _, bx := chunk.DecodeABx(c.Code[0])
	require.EqualValues(t, 2, bx)
}

func mustOpAt(t *testing.T, c *chunk.Chunk, pc int) chunk.Op {
	t.Helper()
	op, _, _, _ := chunk.Decode(c.Code[pc])
	return op
}

package compiler

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/zym-lang/zym/internal/chunk"
	"github.com/zym-lang/zym/internal/value"
)

// EncodeText and Assemble give compiler tests a pseudo-assembly text form
// to assert against instead of raw instruction words, following
// mna-nenuphar's lang/compiler/asm.go, which documents exactly this intent
// ("a pseudo-assembly serialization...that closely matches the binary
// format"). Nenuphar's Asm/Dasm need an index<->address translation table
// because its variable-length uvarint encoding makes instruction indices
// and byte addresses diverge; Zym's fixed-width ABC/ABx words don't have
// that problem; jump offsets are already relative code-word counts, so the
// text form writes and reads them back unchanged.
//
// The format flattens every function a chunk closes over into a sequence
// of "function N \"name\":" blocks (nenuphar's own top-level function list
// shape), each with an optional constants: section and a required code:
// section. A constant that is itself a function is written "func N",
// referencing another block by index rather than nesting text, exactly as
// nenuphar's constant table references a sibling function by index.

var reFuncHeader = regexp.MustCompile(`^function (\d+) "((?:[^"\\]|\\.)*)":$`)

// EncodeText renders root and every nested function constant it
// transitively holds as pseudo-assembly.
func EncodeText(root *chunk.Chunk) string {
	fns := flattenFunctions(root)
	var b strings.Builder
	for i, c := range fns {
		fmt.Fprintf(&b, "function %d %q:\n", i, c.Name)
		if len(c.Constants) > 0 {
			b.WriteString("  constants:\n")
			for k, cst := range c.Constants {
				fmt.Fprintf(&b, "    %d: %s\n", k, encodeConstant(cst, fns))
			}
		}
		b.WriteString("  code:\n")
		encodeCode(&b, c)
		if i < len(fns)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func flattenFunctions(root *chunk.Chunk) []*chunk.Chunk {
	var out []*chunk.Chunk
	seen := map[*chunk.Chunk]bool{}
	var walk func(c *chunk.Chunk)
	walk = func(c *chunk.Chunk) {
		if c == nil || seen[c] {
			return
		}
		seen[c] = true
		out = append(out, c)
		for _, cst := range c.Constants {
			if fn, ok := functionConstant(cst); ok {
				if nested, ok := fn.Chunk.(*chunk.Chunk); ok {
					walk(nested)
				}
			}
		}
	}
	walk(root)
	return out
}

func functionConstant(v value.Value) (*value.Function, bool) {
	if !v.IsObjectKind(value.ObjFunction) {
		return nil, false
	}
	return v.Obj.(*value.Function), true
}

func encodeConstant(v value.Value, fns []*chunk.Chunk) string {
	switch v.Kind {
	case value.KindNull:
		return "null"
	case value.KindBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case value.KindNumber:
		return strconv.FormatFloat(v.AsNumber(), 'g', -1, 64)
	case value.KindObject:
		switch o := v.Obj.(type) {
		case *value.String:
			return strconv.Quote(o.Go())
		case *value.Function:
			if nested, ok := o.Chunk.(*chunk.Chunk); ok {
				for i, c := range fns {
					if c == nested {
						return fmt.Sprintf("func %d", i)
					}
				}
			}
			return fmt.Sprintf("<function %s>", o.Name)
		default:
			return fmt.Sprintf("<%s>", v.Obj.TypeName())
		}
	}
	return "<?>"
}

// isBranchOp and isABxOp mirror internal/chunk's own (unexported)
// classification in disasm.go; duplicated here rather than exported across
// the package boundary since both sides need to agree on operand shape per
// opcode and the classification is a handful of stable range/switch
// checks, not shared state.
func isBranchOp(op chunk.Op) bool {
	return op >= chunk.OpBranchEq && op <= chunk.OpBranchGeL
}

func isABxOp(op chunk.Op) bool {
	switch op {
	case chunk.OpLoadConst, chunk.OpDefineGlobal, chunk.OpGetGlobal, chunk.OpSetGlobal, chunk.OpClosure,
		chunk.OpJump, chunk.OpJumpIfFalse,
		chunk.OpMakeGlobalRef, chunk.OpSlotGlobalRef,
		chunk.OpNewMap, chunk.OpStructNew, chunk.OpStructNewNamed:
		return true
	default:
		return false
	}
}

func encodeCode(b *strings.Builder, c *chunk.Chunk) {
	for pc := 0; pc < len(c.Code); pc++ {
		pc = encodeInstruction(b, c, pc)
	}
}

func encodeInstruction(b *strings.Builder, c *chunk.Chunk, pc int) int {
	ins := c.Code[pc]
	op, a, bOperand, cOperand := chunk.Decode(ins)
	fmt.Fprintf(b, "    %04d  %s", pc, op)

	switch {
	case op.IsLiteralForm():
		f := c.ReadLiteralOperand(pc + 1)
		fmt.Fprintf(b, " R%d R%d %s\n", a, bOperand, strconv.FormatFloat(f, 'g', -1, 64))
		return pc + 2
	case op.IsImmediateForm():
		imm := c.ReadImmediateOperand(pc + 1)
		fmt.Fprintf(b, " R%d R%d %d\n", a, bOperand, imm)
		return pc + 1
	case isBranchOp(op):
		_, leftReg, bx := chunk.DecodeABx(ins)
		switch {
		case op >= chunk.OpBranchEqL && op <= chunk.OpBranchGeL:
			f := c.ReadLiteralOperand(pc + 1)
			fmt.Fprintf(b, " R%d %s -> %d\n", leftReg, strconv.FormatFloat(f, 'g', -1, 64), bx)
			return pc + 2
		case op >= chunk.OpBranchEqI && op <= chunk.OpBranchGeI:
			imm := c.ReadImmediateOperand(pc + 1)
			fmt.Fprintf(b, " R%d %d -> %d\n", leftReg, imm, bx)
			return pc + 1
		default:
			rightReg := c.ReadRegisterOperand(pc + 1)
			fmt.Fprintf(b, " R%d R%d -> %d\n", leftReg, rightReg, bx)
			return pc + 1
		}
	case isABxOp(op):
		_, _, bx := chunk.DecodeABx(ins)
		fmt.Fprintf(b, " R%d %d\n", a, bx)
		if op == chunk.OpClosure && int(bx) >= 0 && int(bx) < len(c.Constants) {
			if fn, ok := functionConstant(c.Constants[bx]); ok {
				for i := 0; i < fn.UpvalueCount; i++ {
					pc++
					isLocal, idx := chunk.ReadUpvalueCapture(c.Code[pc])
					kind := "upvalue"
					if isLocal {
						kind = "local"
					}
					fmt.Fprintf(b, "      capture %s %d\n", kind, idx)
				}
			}
		}
		return pc
	default:
		fmt.Fprintf(b, " R%d R%d R%d\n", a, bOperand, cOperand)
		return pc
	}
}

// Assemble parses pseudo-assembly text produced by EncodeText back into a
// *chunk.Chunk, letting tests build expected bytecode from a literal
// string instead of a sequence of chunk.Emit* calls. Only function 0 (the
// first block encountered) is returned; nested function constants are
// wired up from the other blocks by index.
func Assemble(src string) (*chunk.Chunk, error) {
	type fnBlock struct {
		idx       int
		name      string
		constants []string
		code      []string
	}

	var blocks []*fnBlock
	var cur *fnBlock
	section := ""
	for _, raw := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		if m := reFuncHeader.FindStringSubmatch(trimmed); m != nil {
			idx, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, fmt.Errorf("compiler: malformed function index in %q", trimmed)
			}
			name, err := strconv.Unquote(`"` + m[2] + `"`)
			if err != nil {
				return nil, fmt.Errorf("compiler: malformed function name in %q", trimmed)
			}
			cur = &fnBlock{idx: idx, name: name}
			blocks = append(blocks, cur)
			section = ""
			continue
		}
		if cur == nil {
			continue
		}
		switch trimmed {
		case "constants:":
			section = "constants"
			continue
		case "code:":
			section = "code"
			continue
		}
		switch section {
		case "constants":
			cur.constants = append(cur.constants, trimmed)
		case "code":
			cur.code = append(cur.code, trimmed)
		}
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("compiler: asm text has no function blocks")
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].idx < blocks[j].idx })

	chunks := make([]*chunk.Chunk, len(blocks))
	for i, blk := range blocks {
		chunks[i] = chunk.New(blk.name)
	}
	for i, blk := range blocks {
		if err := assembleConstants(chunks[i], blk.constants, chunks); err != nil {
			return nil, fmt.Errorf("compiler: function %d: %w", i, err)
		}
	}
	for i, blk := range blocks {
		if err := assembleCode(chunks[i], blk.code); err != nil {
			return nil, fmt.Errorf("compiler: function %d: %w", i, err)
		}
	}
	return chunks[0], nil
}

func assembleConstants(c *chunk.Chunk, raws []string, all []*chunk.Chunk) error {
	interner := value.NewInterner(nil)
	for _, raw := range raws {
		sep := strings.Index(raw, ": ")
		if sep < 0 {
			return fmt.Errorf("malformed constant line %q", raw)
		}
		v, err := parseConstant(raw[sep+2:], all, interner)
		if err != nil {
			return err
		}
		c.AddConstant(v)
	}
	return nil
}

func parseConstant(text string, all []*chunk.Chunk, interner *value.Interner) (value.Value, error) {
	switch {
	case text == "null":
		return value.Null, nil
	case text == "true":
		return value.Bool(true), nil
	case text == "false":
		return value.Bool(false), nil
	case strings.HasPrefix(text, `"`):
		s, err := strconv.Unquote(text)
		if err != nil {
			return value.Value{}, fmt.Errorf("malformed string constant %q: %w", text, err)
		}
		return value.Obj(interner.Intern(s)), nil
	case strings.HasPrefix(text, "func "):
		n, err := strconv.Atoi(strings.TrimPrefix(text, "func "))
		if err != nil || n < 0 || n >= len(all) {
			return value.Value{}, fmt.Errorf("malformed function constant %q", text)
		}
		return value.Obj(&value.Function{Name: all[n].Name, Chunk: all[n]}), nil
	default:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return value.Value{}, fmt.Errorf("unrecognized constant %q", text)
		}
		return value.Number(f), nil
	}
}

func assembleCode(c *chunk.Chunk, raws []string) error {
	i := 0
	for i < len(raws) {
		line := raws[i]
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return fmt.Errorf("malformed code line %q", line)
		}
		op, ok := chunk.ParseOp(fields[1])
		if !ok {
			return fmt.Errorf("unknown opcode %q in %q", fields[1], line)
		}
		operands := fields[2:]
		i++

		switch {
		case op.IsLiteralForm():
			if len(operands) != 3 {
				return fmt.Errorf("%s expects 3 operands, got %q", op, line)
			}
			a, err := parseReg(operands[0])
			if err != nil {
				return err
			}
			bReg, err := parseReg(operands[1])
			if err != nil {
				return err
			}
			f, err := strconv.ParseFloat(operands[2], 64)
			if err != nil {
				return fmt.Errorf("malformed literal operand in %q", line)
			}
			c.EmitABC(op, a, bReg, 0, 0)
			c.EmitLiteralOperand(f, 0)

		case op.IsImmediateForm():
			if len(operands) != 3 {
				return fmt.Errorf("%s expects 3 operands, got %q", op, line)
			}
			a, err := parseReg(operands[0])
			if err != nil {
				return err
			}
			bReg, err := parseReg(operands[1])
			if err != nil {
				return err
			}
			imm, err := strconv.Atoi(operands[2])
			if err != nil {
				return fmt.Errorf("malformed immediate operand in %q", line)
			}
			c.EmitABC(op, a, bReg, 0, 0)
			c.EmitImmediateOperand(int16(imm), 0)

		case isBranchOp(op):
			arrow := indexOf(operands, "->")
			if arrow != len(operands)-2 {
				return fmt.Errorf("malformed branch line %q", line)
			}
			left, err := parseReg(operands[0])
			if err != nil {
				return err
			}
			bx, err := strconv.Atoi(operands[arrow+1])
			if err != nil {
				return fmt.Errorf("malformed branch offset in %q", line)
			}
			c.EmitABx(op, left, int16(bx), 0)
			switch {
			case op >= chunk.OpBranchEqL && op <= chunk.OpBranchGeL:
				f, err := strconv.ParseFloat(operands[1], 64)
				if err != nil {
					return fmt.Errorf("malformed branch literal in %q", line)
				}
				c.EmitLiteralOperand(f, 0)
			case op >= chunk.OpBranchEqI && op <= chunk.OpBranchGeI:
				imm, err := strconv.Atoi(operands[1])
				if err != nil {
					return fmt.Errorf("malformed branch immediate in %q", line)
				}
				c.EmitImmediateOperand(int16(imm), 0)
			default:
				right, err := parseReg(operands[1])
				if err != nil {
					return err
				}
				c.EmitRegisterOperand(right, 0)
			}

		case isABxOp(op):
			if len(operands) != 2 {
				return fmt.Errorf("%s expects 2 operands, got %q", op, line)
			}
			a, err := parseReg(operands[0])
			if err != nil {
				return err
			}
			bx, err := strconv.Atoi(operands[1])
			if err != nil {
				return fmt.Errorf("malformed Bx operand in %q", line)
			}
			c.EmitABx(op, a, int16(bx), 0)
			if op == chunk.OpClosure {
				if bx < 0 || int(bx) >= len(c.Constants) {
					return fmt.Errorf("CLOSURE constant index %d out of range in %q", bx, line)
				}
				fn, ok := functionConstant(c.Constants[bx])
				if !ok {
					return fmt.Errorf("CLOSURE constant %d is not a function in %q", bx, line)
				}
				count := 0
				for i < len(raws) {
					cf := strings.Fields(raws[i])
					if len(cf) != 3 || cf[0] != "capture" {
						break
					}
					idx, err := strconv.Atoi(cf[2])
					if err != nil {
						return fmt.Errorf("malformed capture line %q", raws[i])
					}
					c.EmitUpvalueCapture(cf[1] == "local", idx, 0)
					count++
					i++
				}
				fn.UpvalueCount = count
			}

		default:
			if len(operands) != 3 {
				return fmt.Errorf("%s expects 3 register operands, got %q", op, line)
			}
			a, err := parseReg(operands[0])
			if err != nil {
				return err
			}
			bReg, err := parseReg(operands[1])
			if err != nil {
				return err
			}
			cReg, err := parseReg(operands[2])
			if err != nil {
				return err
			}
			c.EmitABC(op, a, bReg, cReg, 0)
		}
	}
	return nil
}

func parseReg(s string) (uint8, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(s, "R"))
	if err != nil || n < 0 || n > 255 {
		return 0, fmt.Errorf("malformed register operand %q", s)
	}
	return uint8(n), nil
}

func indexOf(ss []string, target string) int {
	for i, s := range ss {
		if s == target {
			return i
		}
	}
	return -1
}

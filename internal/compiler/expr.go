package compiler

import (
	"github.com/zym-lang/zym/internal/ast"
	"github.com/zym-lang/zym/internal/chunk"
	"github.com/zym-lang/zym/internal/token"
	"github.com/zym-lang/zym/internal/value"
)

// compileExpression emits code that leaves e's value in register target
// (spec.md §4.3.1's target-register threading).
func (c *Compiler) compileExpression(e ast.Expr, target uint8) {
	line := e.Line()
	switch ex := e.(type) {
	case *ast.NullExpr:
		c.chunk.EmitABC(chunk.OpLoadNull, target, 0, 0, line)
	case *ast.TrueExpr:
		c.chunk.EmitABC(chunk.OpLoadTrue, target, 0, 0, line)
	case *ast.FalseExpr:
		c.chunk.EmitABC(chunk.OpLoadFalse, target, 0, 0, line)
	case *ast.NumberExpr:
		c.loadConst(value.Number(ex.Value), target, line)
	case *ast.StringExpr:
		c.loadConst(value.Obj(c.internString(ex.Value)), target, line)
	case *ast.IdentExpr:
		c.compileIdentInto(ex, target, line)
	case *ast.GroupExpr:
		c.compileExpression(ex.Inner, target)
	case *ast.UnaryExpr:
		c.compileUnary(ex, target)
	case *ast.BinaryExpr:
		c.compileBinary(ex, target)
	case *ast.LogicalExpr:
		c.compileLogical(ex, target)
	case *ast.TernaryExpr:
		c.compileTernary(ex, target)
	case *ast.AssignExpr:
		c.compileAssign(ex, target)
	case *ast.RefExpr:
		c.compileRef(ex, target)
	case *ast.CallExpr:
		c.compileCall(ex, target, false)
	case *ast.IndexExpr:
		tgt := c.compileSubExpression(ex.Target)
		idx := c.compileSubExpression(ex.Index)
		c.chunk.EmitABC(chunk.OpIndexGet, target, tgt, idx, line)
	case *ast.FieldExpr:
		c.compileField(ex, target)
	case *ast.ListExpr:
		c.compileList(ex, target)
	case *ast.MapExpr:
		c.compileMap(ex, target)
	case *ast.StructInitExpr:
		c.compileStructInit(ex, target)
	case *ast.FuncExpr:
		c.compileFuncExprInto(ex, target)
	case *ast.SpreadExpr:
		// A bare spread outside a call/struct-init argument list has no
		// meaning; the parser only ever produces SpreadExpr nodes as list
		// entries of CallExpr.Args / StructInitExpr.Named, both of which
		// special-case it before recursing into compileExpression.
		c.errorf(line, "spread expression is only valid as a call or struct-init argument")
	default:
		c.errorf(line, "compiler: unhandled expression node %T", e)
	}
}

// compileSubExpression compiles e and returns a register already holding
// its value: the variable's own home register when e is a bare local
// reference (avoiding a redundant MOVE), otherwise a fresh temp register
// (spec.md §4.3.1).
func (c *Compiler) compileSubExpression(e ast.Expr) uint8 {
	if reg, ok := c.homeRegister(ast.Unwrap(e)); ok {
		return reg
	}
	reg := c.allocTemp(e.Line())
	c.compileExpression(e, reg)
	return reg
}

// homeRegister reports the register a bare local-variable reference already
// lives in, letting callers skip emitting a MOVE into a temp.
func (c *Compiler) homeRegister(e ast.Expr) (uint8, bool) {
	id, ok := e.(*ast.IdentExpr)
	if !ok {
		return 0, false
	}
	reg, ok := c.resolveLocal(id.Name)
	if !ok || isRefLike(c.localQual(reg)) {
		return 0, false
	}
	return reg, true
}

func (c *Compiler) loadConst(v value.Value, target uint8, line int) {
	idx := c.chunk.AddConstant(v)
	if !fitsConstIndex(idx) {
		c.errorf(line, "constant pool exceeds 32767 entries")
	}
	c.chunk.EmitABx(chunk.OpLoadConst, target, int16(idx), line)
}

func fitsConstIndex(idx int) bool { return idx >= 0 && idx <= 0x7fff }

func (c *Compiler) internString(s string) *value.String {
	return c.root().interner.Intern(s)
}

func isRefLike(q value.Qualifier) bool {
	return q == value.QualRef || q == value.QualSlot
}

// compileIdentInto resolves name as local, upvalue, global, or an
// ambiguous-arity overloaded function name (spec.md §4.3.2's Dispatcher
// resolution), emitting whichever load form applies.
func (c *Compiler) compileIdentInto(id *ast.IdentExpr, target uint8, line int) {
	if reg, ok := c.resolveLocal(id.Name); ok {
		if isRefLike(c.localQual(reg)) {
			c.chunk.EmitABC(chunk.OpDeref, target, reg, 0, line)
			return
		}
		if reg != target {
			c.chunk.EmitABC(chunk.OpMove, target, reg, 0, line)
		}
		return
	}
	if idx, ok := c.resolveUpvalue(id.Name); ok {
		c.chunk.EmitABC(chunk.OpGetUpvalue, target, idx, 0, line)
		return
	}
	c.compileGlobalLoad(id.Name, target, line)
}

// compileGlobalLoad loads a global by bare name, resolving an overloaded
// function group to its mangled Dispatcher global when more than one arity
// was hoisted for that name, or straight through to the single mangled
// overload when exactly one exists (spec.md §4.3.2, §8).
func (c *Compiler) compileGlobalLoad(name string, target uint8, line int) {
	root := c.root()
	if arities, ok := root.overloads[name]; ok {
		switch len(arities) {
		case 0:
			c.errorf(line, "internal: overload set for %q is empty", name)
		case 1:
			mangled := mangle(name, arities[0])
			c.emitGetGlobal(mangled, target, line)
		default:
			c.emitGetGlobal(dispatcherGlobalName(name), target, line)
		}
		return
	}
	c.emitGetGlobal(name, target, line)
}

func (c *Compiler) emitGetGlobal(name string, target uint8, line int) {
	idx := c.chunk.AddConstant(value.Obj(c.internString(name)))
	c.chunk.EmitABx(chunk.OpGetGlobal, target, int16(idx), line)
}

func (c *Compiler) emitSetGlobal(name string, src uint8, line int) {
	idx := c.chunk.AddConstant(value.Obj(c.internString(name)))
	c.chunk.EmitABx(chunk.OpSetGlobal, src, int16(idx), line)
}

func dispatcherGlobalName(name string) string { return "__dispatcher_" + name }

func (c *Compiler) compileUnary(ex *ast.UnaryExpr, target uint8) {
	line := ex.Line()
	if ex.Op == token.TYPEOF {
		operand := c.compileSubExpression(ex.Operand)
		c.chunk.EmitABC(chunk.OpTypeof, target, operand, 0, line)
		return
	}
	if ex.Op == token.CLONE {
		operand := c.compileSubExpression(ex.Operand)
		c.emitCallNative1("clone", operand, target, line)
		return
	}
	operand := c.compileSubExpression(ex.Operand)
	var op chunk.Op
	switch ex.Op {
	case token.MINUS:
		op = chunk.OpNeg
	case token.BANG:
		op = chunk.OpNot
	case token.TILDE:
		op = chunk.OpBNot
	default:
		c.errorf(line, "compiler: unsupported unary operator %s", ex.Op)
		return
	}
	c.chunk.EmitABC(op, target, operand, 0, line)
}

// emitCallNative1 is a placeholder hook for single-argument native-backed
// surface operators (`clone`) until internal/native's registry is wired
// in; it emits a CALL to a well-known global native slot by name.
func (c *Compiler) emitCallNative1(name string, arg, target uint8, line int) {
	saved := c.saveTempTop()
	fn := c.allocTemp(line)
	argReg := c.allocTemp(line)
	c.emitGetGlobal(name, fn, line)
	if arg != argReg {
		c.chunk.EmitABC(chunk.OpMove, argReg, arg, 0, line)
	}
	c.chunk.EmitABC(chunk.OpCall, fn, 1, 1, line)
	if fn != target {
		c.chunk.EmitABC(chunk.OpMove, target, fn, 0, line)
	}
	c.restoreTempTop(saved)
}

// arithBaseOps and arithImmOps/arithLitOps map a source binary operator to
// its base/_.I/_L opcode triples (spec.md §4.3.5).
var arithBaseOps = map[token.Kind]chunk.Op{
	token.PLUS: chunk.OpAdd, token.MINUS: chunk.OpSub, token.STAR: chunk.OpMul,
	token.SLASH: chunk.OpDiv, token.PERCENT: chunk.OpMod,
	token.AMP: chunk.OpBAnd, token.PIPE: chunk.OpBOr, token.CARET: chunk.OpBXor,
	token.SHL: chunk.OpBLShift, token.SHR: chunk.OpBRShiftI,
	token.EQ: chunk.OpEq, token.NE: chunk.OpNe,
	token.LT: chunk.OpLt, token.LE: chunk.OpLe, token.GT: chunk.OpGt, token.GE: chunk.OpGe,
}

var arithImmOps = map[chunk.Op]chunk.Op{
	chunk.OpAdd: chunk.OpAddI, chunk.OpSub: chunk.OpSubI, chunk.OpMul: chunk.OpMulI,
	chunk.OpDiv: chunk.OpDivI, chunk.OpMod: chunk.OpModI,
	chunk.OpBAnd: chunk.OpBAndI, chunk.OpBOr: chunk.OpBOrI, chunk.OpBXor: chunk.OpBXorI,
	chunk.OpBLShift: chunk.OpBLShiftI, chunk.OpBRShiftI: chunk.OpBRShiftII, chunk.OpBRShiftU: chunk.OpBRShiftUI,
	chunk.OpEq: chunk.OpEqI, chunk.OpNe: chunk.OpNeI,
	chunk.OpLt: chunk.OpLtI, chunk.OpLe: chunk.OpLeI, chunk.OpGt: chunk.OpGtI, chunk.OpGe: chunk.OpGeI,
}

var arithLitOps = map[chunk.Op]chunk.Op{
	chunk.OpAdd: chunk.OpAddL, chunk.OpSub: chunk.OpSubL, chunk.OpMul: chunk.OpMulL,
	chunk.OpDiv: chunk.OpDivL, chunk.OpMod: chunk.OpModL,
	chunk.OpBAnd: chunk.OpBAndL, chunk.OpBOr: chunk.OpBOrL, chunk.OpBXor: chunk.OpBXorL,
	chunk.OpBLShift: chunk.OpBLShiftL, chunk.OpBRShiftI: chunk.OpBRShiftIL, chunk.OpBRShiftU: chunk.OpBRShiftUL,
	chunk.OpEq: chunk.OpEqL, chunk.OpNe: chunk.OpNeL,
	chunk.OpLt: chunk.OpLtL, chunk.OpLe: chunk.OpLeL, chunk.OpGt: chunk.OpGtL, chunk.OpGe: chunk.OpGeL,
}

// branchRegOps/branchImmOps/branchLitOps map a comparison's base opcode to
// the fused compare-and-branch opcode that tests the same comparison and
// jumps in one instruction (spec.md §4.3.5), one table per trailing-operand
// shape, mirroring arithImmOps/arithLitOps above.
var branchRegOps = map[chunk.Op]chunk.Op{
	chunk.OpEq: chunk.OpBranchEq, chunk.OpNe: chunk.OpBranchNe,
	chunk.OpLt: chunk.OpBranchLt, chunk.OpLe: chunk.OpBranchLe,
	chunk.OpGt: chunk.OpBranchGt, chunk.OpGe: chunk.OpBranchGe,
}

var branchImmOps = map[chunk.Op]chunk.Op{
	chunk.OpEq: chunk.OpBranchEqI, chunk.OpNe: chunk.OpBranchNeI,
	chunk.OpLt: chunk.OpBranchLtI, chunk.OpLe: chunk.OpBranchLeI,
	chunk.OpGt: chunk.OpBranchGtI, chunk.OpGe: chunk.OpBranchGeI,
}

var branchLitOps = map[chunk.Op]chunk.Op{
	chunk.OpEq: chunk.OpBranchEqL, chunk.OpNe: chunk.OpBranchNeL,
	chunk.OpLt: chunk.OpBranchLtL, chunk.OpLe: chunk.OpBranchLeL,
	chunk.OpGt: chunk.OpBranchGtL, chunk.OpGe: chunk.OpBranchGeL,
}

// invertedCompareOps maps a source comparison operator to the base opcode of
// its logical negation, so a false-branch site ("jump if the condition does
// not hold") can fuse the comparison and the jump instead of computing the
// boolean into a register and testing it with JUMP_IF_FALSE.
var invertedCompareOps = map[token.Kind]chunk.Op{
	token.EQ: chunk.OpNe, token.NE: chunk.OpEq,
	token.LT: chunk.OpGe, token.LE: chunk.OpGt,
	token.GT: chunk.OpLe, token.GE: chunk.OpLt,
}

// compileBranchOnFalse compiles cond and emits a single jump that is taken
// when cond is false, returning its index for PatchJump/PatchJumpTo exactly
// like a plain JUMP_IF_FALSE site. When cond is a direct comparison
// (spec.md §4.3.5), it emits the matching BRANCH_*/_I/_L instruction on the
// comparison's negation instead of materializing a boolean and testing it,
// so every if/while/do-while/for/ternary condition gets the fused
// compare-and-branch form whenever the source shape allows it.
func (c *Compiler) compileBranchOnFalse(cond ast.Expr, line int) int {
	if bin, ok := ast.Unwrap(cond).(*ast.BinaryExpr); ok {
		if invBase, ok := invertedCompareOps[bin.Op]; ok {
			return c.emitBranch(invBase, bin.Left, bin.Right, bin.Line())
		}
	}
	saved := c.saveTempTop()
	reg := c.compileSubExpression(cond)
	c.restoreTempTop(saved)
	return c.chunk.EmitJump(chunk.OpJumpIfFalse, reg, line)
}

// emitBranch compiles left/right and emits the fused compare-and-branch
// instruction for comparison base, selecting the _I/_L/register trailing
// operand shape by the same literal-immediate peephole rule compileBinary
// uses, and returns the branch's index for later patching.
func (c *Compiler) emitBranch(base chunk.Op, left, right ast.Expr, line int) int {
	saved := c.saveTempTop()
	leftReg := c.compileSubExpression(left)

	if num, isNum := numberLiteral(right); isNum {
		if imm, fits := asImmediate16(num); fits {
			if op, ok := branchImmOps[base]; ok {
				idx := c.chunk.EmitJump(op, leftReg, line)
				c.chunk.EmitImmediateOperand(imm, line)
				c.restoreTempTop(saved)
				return idx
			}
		}
		if op, ok := branchLitOps[base]; ok {
			idx := c.chunk.EmitJump(op, leftReg, line)
			c.chunk.EmitLiteralOperand(num, line)
			c.restoreTempTop(saved)
			return idx
		}
	}

	rightReg := c.compileSubExpression(right)
	idx := c.chunk.EmitJump(branchRegOps[base], leftReg, line)
	c.chunk.EmitRegisterOperand(rightReg, line)
	c.restoreTempTop(saved)
	return idx
}

func (c *Compiler) compileBinary(ex *ast.BinaryExpr, target uint8) {
	line := ex.Line()
	base, ok := arithBaseOps[ex.Op]
	if !ok {
		c.errorf(line, "compiler: unsupported binary operator %s", ex.Op)
		return
	}

	saved := c.saveTempTop()
	leftReg := c.compileSubExpression(ex.Left)

	if num, isNum := numberLiteral(ex.Right); isNum {
		if imm, fits := asImmediate16(num); fits {
			if immOp, ok := arithImmOps[base]; ok {
				c.chunk.EmitABC(immOp, target, leftReg, 0, line)
				c.chunk.EmitImmediateOperand(imm, line)
				c.restoreTempTop(saved)
				return
			}
		}
		if litOp, ok := arithLitOps[base]; ok {
			c.chunk.EmitABC(litOp, target, leftReg, 0, line)
			c.chunk.EmitLiteralOperand(num, line)
			c.restoreTempTop(saved)
			return
		}
	}

	rightReg := c.compileSubExpression(ex.Right)
	c.chunk.EmitABC(base, target, leftReg, rightReg, line)
	c.restoreTempTop(saved)
}

func numberLiteral(e ast.Expr) (float64, bool) {
	if n, ok := ast.Unwrap(e).(*ast.NumberExpr); ok {
		return n.Value, true
	}
	return 0, false
}

func asImmediate16(f float64) (int16, bool) {
	if f != float64(int64(f)) {
		return 0, false
	}
	i := int64(f)
	if i < -32768 || i > 32767 {
		return 0, false
	}
	return int16(i), true
}

// compileLogical emits short-circuit AND/OR, both sides sharing target as
// their result register (spec.md §4.3.6).
func (c *Compiler) compileLogical(ex *ast.LogicalExpr, target uint8) {
	line := ex.Line()
	c.compileExpression(ex.Left, target)
	var skip int
	if ex.Op == token.AND {
		skip = c.chunk.EmitJump(chunk.OpJumpIfFalse, target, line)
	} else {
		notTaken := c.chunk.EmitJump(chunk.OpJumpIfFalse, target, line)
		skip = c.chunk.EmitJump(chunk.OpJump, 0, line)
		_ = c.chunk.PatchJump(notTaken)
	}
	c.compileExpression(ex.Right, target)
	_ = c.chunk.PatchJump(skip)
}

func (c *Compiler) compileTernary(ex *ast.TernaryExpr, target uint8) {
	line := ex.Line()
	elseJump := c.compileBranchOnFalse(ex.Cond, line)
	c.compileExpression(ex.Then, target)
	endJump := c.chunk.EmitJump(chunk.OpJump, 0, line)
	_ = c.chunk.PatchJump(elseJump)
	c.compileExpression(ex.Else, target)
	_ = c.chunk.PatchJump(endJump)
}

func (c *Compiler) compileField(ex *ast.FieldExpr, target uint8) {
	line := ex.Line()
	// EnumName.VARIANT resolves at compile time to a constant enum value
	// when Target is a bare identifier naming a known enum schema
	// (spec.md §4.3.7).
	if id, ok := ast.Unwrap(ex.Target).(*ast.IdentExpr); ok {
		if slot, ok := c.resolveSchema(id.Name); ok && slot.kind == schemaEnum {
			idx := slot.enum.VariantIndex(ex.Name)
			if idx < 0 {
				c.errorf(line, "enum %s has no variant %s", slot.enum.Name, ex.Name)
				return
			}
			c.loadConst(value.EnumVal(slot.enum, idx), target, line)
			return
		}
	}
	tgt := c.compileSubExpression(ex.Target)
	nameIdx := c.chunk.AddConstant(value.Obj(c.internString(ex.Name)))
	c.chunk.EmitABC(chunk.OpFieldGet, target, tgt, uint8(nameIdx), line)
}

func (c *Compiler) compileList(ex *ast.ListExpr, target uint8) {
	line := ex.Line()
	saved := c.saveTempTop()
	start := c.tempTop
	for _, el := range ex.Elems {
		r := c.allocTemp(line)
		c.compileExpression(el, r)
	}
	n := len(ex.Elems)
	if n > 255 {
		c.errorf(line, "list literal exceeds 255 elements")
		n = 255
	}
	c.chunk.EmitABC(chunk.OpNewList, target, uint8(start), uint8(n), line)
	c.restoreTempTop(saved)
}

func (c *Compiler) compileMap(ex *ast.MapExpr, target uint8) {
	line := ex.Line()
	c.chunk.EmitABx(chunk.OpNewMap, target, int16(len(ex.Entries)), line)
	for _, entry := range ex.Entries {
		saved := c.saveTempTop()
		k := c.compileSubExpression(entry.Key)
		v := c.compileSubExpression(entry.Value)
		c.chunk.EmitABC(chunk.OpIndexSet, target, k, v, line)
		c.restoreTempTop(saved)
	}
}

func (c *Compiler) compileStructInit(ex *ast.StructInitExpr, target uint8) {
	line := ex.Line()
	slot, ok := c.resolveSchema(ex.Type)
	if !ok || slot.kind != schemaStruct {
		c.errorf(line, "unknown struct type %s", ex.Type)
		return
	}
	schemaIdx := c.chunk.AddConstant(value.Obj(slot.strukt))

	if ex.Positional != nil {
		if len(ex.Positional) != len(slot.strukt.Fields) {
			c.errorf(line, "struct %s expects %d fields, got %d", ex.Type, len(slot.strukt.Fields), len(ex.Positional))
		}
		saved := c.saveTempTop()
		start := c.tempTop
		for _, a := range ex.Positional {
			r := c.allocTemp(line)
			c.compileExpression(a, r)
		}
		c.chunk.EmitABx(chunk.OpStructNew, uint8(start), int16(schemaIdx), line)
		if target != uint8(start) {
			c.chunk.EmitABC(chunk.OpMove, target, uint8(start), 0, line)
		}
		c.restoreTempTop(saved)
		return
	}

	seen := make(map[string]bool, len(ex.Named))
	c.chunk.EmitABx(chunk.OpStructNewNamed, target, int16(schemaIdx), line)
	for _, f := range ex.Named {
		if f.Spread != nil {
			saved := c.saveTempTop()
			src := c.compileSubExpression(f.Spread)
			c.chunk.EmitABC(chunk.OpStructSpread, target, src, 0, line)
			c.restoreTempTop(saved)
			continue
		}
		if seen[f.Name] {
			c.errorf(line, "duplicate field %s in struct literal", f.Name)
		}
		seen[f.Name] = true
		saved := c.saveTempTop()
		v := c.compileSubExpression(f.Value)
		nameIdx := c.chunk.AddConstant(value.Obj(c.internString(f.Name)))
		c.chunk.EmitABC(chunk.OpFieldSet, target, uint8(nameIdx), v, line)
		c.restoreTempTop(saved)
	}
}

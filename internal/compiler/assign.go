package compiler

import (
	"github.com/zym-lang/zym/internal/ast"
	"github.com/zym-lang/zym/internal/chunk"
	"github.com/zym-lang/zym/internal/token"
	"github.com/zym-lang/zym/internal/value"
)

// compileAssign handles both new-binding declarations (var/val/ref/clone)
// and plain re-assignment to an existing lvalue, including compound forms
// (`+=` etc.) and slot rebinding (spec.md §4.3.3). The assigned value is
// left in target, matching every other expression form.
func (c *Compiler) compileAssign(ex *ast.AssignExpr, target uint8) {
	line := ex.Line()

	if ex.DeclKind != token.ILLEGAL {
		c.compileDecl(ex, target, line)
		return
	}

	rhs := ex.Value
	if ex.Op != token.ASSIGN {
		base, ok := token.CompoundAssignOp(ex.Op)
		if !ok {
			c.errorf(line, "compiler: unsupported assignment operator %s", ex.Op)
			return
		}
		rhs = ast.NewBinaryExpr(line, base, ex.Target, ex.Value)
	}

	switch t := ast.Unwrap(ex.Target).(type) {
	case *ast.IdentExpr:
		c.compileIdentAssign(t, ex.IsSlot, rhs, target, line)
	case *ast.IndexExpr:
		saved := c.saveTempTop()
		containerReg := c.compileSubExpression(t.Target)
		idxReg := c.compileSubExpression(t.Index)
		c.compileExpression(rhs, target)
		c.chunk.EmitABC(chunk.OpIndexSet, containerReg, idxReg, target, line)
		c.restoreTempTop(saved)
	case *ast.FieldExpr:
		saved := c.saveTempTop()
		containerReg := c.compileSubExpression(t.Target)
		nameIdx := c.chunk.AddConstant(value.Obj(c.internString(t.Name)))
		c.compileExpression(rhs, target)
		c.chunk.EmitABC(chunk.OpFieldSet, containerReg, uint8(nameIdx), target, line)
		c.restoreTempTop(saved)
	default:
		c.errorf(line, "invalid assignment target")
	}
}

// compileIdentAssign writes rhs into the binding named by id. A plain
// (non-slot) write to a ref/slot-qualified local follows the reference it
// holds (REF_SET); `slot target = value` instead rebinds the binding's own
// storage directly, the same split RefExpr.IsSlot makes for reads.
func (c *Compiler) compileIdentAssign(id *ast.IdentExpr, isSlot bool, rhs ast.Expr, target uint8, line int) {
	if reg, ok := c.resolveLocal(id.Name); ok {
		if !isSlot && isRefLike(c.localQual(reg)) {
			c.compileExpression(rhs, target)
			c.chunk.EmitABC(chunk.OpRefSet, reg, target, 0, line)
			return
		}
		c.compileExpression(rhs, reg)
		if reg != target {
			c.chunk.EmitABC(chunk.OpMove, target, reg, 0, line)
		}
		return
	}
	if idx, ok := c.resolveUpvalue(id.Name); ok {
		c.compileExpression(rhs, target)
		c.chunk.EmitABC(chunk.OpSetUpvalue, target, idx, 0, line)
		return
	}
	c.compileExpression(rhs, target)
	c.emitSetGlobal(id.Name, target, line)
}

// compileDecl introduces a new local for a var/val/ref/clone declaration
// (spec.md §4.3.3). The parser folds the qualifier keyword into
// AssignExpr.DeclKind; SLOT is never a DeclKind (slot only ever rebinds an
// existing binding, via AssignExpr.IsSlot).
func (c *Compiler) compileDecl(ex *ast.AssignExpr, target uint8, line int) {
	id, ok := ast.Unwrap(ex.Target).(*ast.IdentExpr)
	if !ok {
		c.errorf(line, "declaration target must be a name")
		return
	}
	qual := qualifierFromDeclToken(ex.DeclKind)

	if c.scopeDepth == 0 && c.kind == FuncScript {
		// Module top level: declarations are globals, not registers, so
		// nested functions can reach them without upvalue capture
		// (spec.md §4.3.2: globals are looked up by name at call time).
		c.compileExpression(ex.Value, target)
		if ex.DeclKind == token.CLONE {
			c.emitCallNative1("clone", target, target, line)
		}
		c.emitSetGlobal(id.Name, target, line)
		return
	}

	reg := c.declareLocalWithQual(id.Name, qual, line)
	c.compileExpression(ex.Value, reg)
	if ex.DeclKind == token.CLONE {
		c.emitCallNative1("clone", reg, reg, line)
	}
	if reg != target {
		c.chunk.EmitABC(chunk.OpMove, target, reg, 0, line)
	}
}

// compileRef emits a MAKE_*_REF / SLOT_*_REF opcode appropriate to ex's
// target shape (spec.md §3, §4.3.3). ast.IsAssignable already rejected
// non-lvalue targets before this is reached (the parser/earlier pass is
// expected to have checked it; compileRef re-checks defensively).
func (c *Compiler) compileRef(ex *ast.RefExpr, target uint8) {
	line := ex.Line()
	if !ast.IsAssignable(ex.Target) {
		c.errorf(line, "cannot take a reference to this expression")
		return
	}
	switch t := ast.Unwrap(ex.Target).(type) {
	case *ast.IdentExpr:
		if reg, ok := c.resolveLocal(t.Name); ok {
			op := chunk.OpMakeRef
			if ex.IsSlot {
				op = chunk.OpSlotRef
			}
			c.chunk.EmitABC(op, target, reg, 0, line)
			return
		}
		if idx, ok := c.resolveUpvalue(t.Name); ok {
			op := chunk.OpMakeUpvalueRef
			if ex.IsSlot {
				op = chunk.OpSlotUpvalueRef
			}
			c.chunk.EmitABC(op, target, idx, 0, line)
			return
		}
		op := chunk.OpMakeGlobalRef
		if ex.IsSlot {
			op = chunk.OpSlotGlobalRef
		}
		nameIdx := c.chunk.AddConstant(value.Obj(c.internString(t.Name)))
		c.chunk.EmitABx(op, target, int16(nameIdx), line)
	case *ast.IndexExpr:
		saved := c.saveTempTop()
		containerReg := c.compileSubExpression(t.Target)
		indexReg := c.compileSubExpression(t.Index)
		op := chunk.OpMakeIndexRef
		if ex.IsSlot {
			op = chunk.OpSlotIndexRef
		}
		c.chunk.EmitABC(op, target, containerReg, indexReg, line)
		c.restoreTempTop(saved)
	case *ast.FieldExpr:
		saved := c.saveTempTop()
		containerReg := c.compileSubExpression(t.Target)
		nameIdx := c.chunk.AddConstant(value.Obj(c.internString(t.Name)))
		op := chunk.OpMakePropertyRef
		if ex.IsSlot {
			op = chunk.OpSlotPropertyRef
		}
		c.chunk.EmitABC(op, target, containerReg, uint8(nameIdx), line)
		c.restoreTempTop(saved)
	default:
		c.errorf(line, "cannot take a reference to this expression")
	}
}

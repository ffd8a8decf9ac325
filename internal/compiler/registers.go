package compiler

import (
	"github.com/zym-lang/zym/internal/chunk"
	"github.com/zym-lang/zym/internal/value"
)

// reserveRegister claims the next free register for a new local and bumps
// the high-water mark, erroring past MaxRegisters (spec.md §4.3.1's
// 255-register cap).
func (c *Compiler) reserveRegister(line int) uint8 {
	if c.nextReg > MaxRegisters {
		c.errorf(line, "function exceeds maximum of %d registers", MaxRegisters)
		return uint8(c.nextReg)
	}
	r := uint8(c.nextReg)
	c.nextReg++
	if c.tempTop < c.nextReg {
		c.tempTop = c.nextReg
	}
	c.markMax(c.nextReg - 1)
	return r
}

func (c *Compiler) markMax(reg int) {
	if reg > c.maxRegister {
		c.maxRegister = reg
	}
}

// allocTemp claims a scratch register above every live local, for an
// intermediate sub-expression result. It does not affect nextReg: temps
// live above the local high-water mark and are reclaimed by
// restoreTempTop, not by endScope.
func (c *Compiler) allocTemp(line int) uint8 {
	if c.tempTop > MaxRegisters {
		c.errorf(line, "function exceeds maximum of %d registers", MaxRegisters)
	}
	r := uint8(c.tempTop)
	c.tempTop++
	c.markMax(c.tempTop - 1)
	return r
}

// saveTempTop/restoreTempTop bracket a sub-expression's scratch-register
// usage so sibling sub-expressions (e.g. a binary operator's left and right
// operands) reuse the same temp registers instead of growing unboundedly
// (spec.md §4.3.1).
func (c *Compiler) saveTempTop() int { return c.tempTop }

func (c *Compiler) restoreTempTop(saved int) { c.tempTop = saved }

// MaxRegistersSeen reports the frame size the compiled function needs,
// i.e. Function.MaxRegs (spec.md §3).
func (c *Compiler) MaxRegistersSeen() int { return c.maxRegister + 1 }

// beginScope opens a new lexical block.
func (c *Compiler) beginScope() { c.scopeDepth++ }

// endScope closes the innermost lexical block: any local declared at this
// depth that was captured by a nested function gets an explicit
// CLOSE_UPVALUE emitted (spec.md §3: "compiler emits a close instruction at
// scope end"), then the local and its register are released. Schemas
// declared at this depth are also popped, implementing the "shadowing by
// depth" rule (spec.md §4.3.7).
func (c *Compiler) endScope(line int) {
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].depth == c.scopeDepth {
		l := c.locals[len(c.locals)-1]
		if l.captured {
			c.chunk.EmitABC(chunk.OpCloseUpvalue, l.reg, 0, 0, line)
		}
		c.locals = c.locals[:len(c.locals)-1]
	}
	// nextReg falls back to one past the deepest still-live local (or past
	// params/self if none remain at this depth).
	if len(c.locals) > 0 {
		c.nextReg = int(c.locals[len(c.locals)-1].reg) + 1
	} else {
		c.nextReg = 1 + c.arity
	}
	c.tempTop = c.nextReg

	for len(c.schemas) > 0 && c.schemas[len(c.schemas)-1].depth == c.scopeDepth {
		c.schemas = c.schemas[:len(c.schemas)-1]
	}

	c.scopeDepth--
}

// declareLocal introduces name as a new local at the current scope depth,
// shadowing any outer local/param of the same name.
func (c *Compiler) declareLocal(name string, line int) uint8 {
	if len(c.locals) >= MaxLocals {
		c.errorf(line, "function exceeds maximum of %d locals", MaxLocals)
	}
	reg := c.reserveRegister(line)
	c.locals = append(c.locals, localVar{name: name, reg: reg, depth: c.scopeDepth})
	return reg
}

// declareLocalWithQual is declareLocal plus a recorded parameter-passing
// qualifier, used for `ref`/`slot`/`val`/`clone` declarations and function
// parameters (spec.md §4.3.3).
func (c *Compiler) declareLocalWithQual(name string, qual value.Qualifier, line int) uint8 {
	reg := c.declareLocal(name, line)
	c.locals[len(c.locals)-1].qual = qual
	return reg
}

// declareParam registers a function parameter already occupying reg (params
// live in R1..Rarity, reserved by newFunctionCompiler) as a depth-0 local.
func (c *Compiler) declareParam(name string, reg uint8, qual value.Qualifier) {
	c.locals = append(c.locals, localVar{name: name, reg: reg, depth: 0, qual: qual})
}

// localQual reports the qualifier a local register was declared with.
func (c *Compiler) localQual(reg uint8) value.Qualifier {
	for i := range c.locals {
		if c.locals[i].reg == reg {
			return c.locals[i].qual
		}
	}
	return value.QualNormal
}

// resolveLocal finds name among this function's own locals (not upvalues),
// searching innermost-scope-first so shadowing works.
func (c *Compiler) resolveLocal(name string) (uint8, bool) {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].name == name {
			return c.locals[i].reg, true
		}
	}
	return 0, false
}

// resolveUpvalue finds name in an enclosing function's locals or its own
// upvalues, recursively, marking the captured local on the way and
// threading a chain of upvalue descriptors back down to this function
// (spec.md §3's Upvalue; grounded on funxy's resolveUpvalue in
// internal/vm/compiler_scope.go, generalized from byte-stack slot index to
// register index).
func (c *Compiler) resolveUpvalue(name string) (uint8, bool) {
	if c.enclosing == nil {
		return 0, false
	}
	if reg, ok := c.enclosing.resolveLocal(name); ok {
		c.enclosing.markCaptured(reg)
		return c.addUpvalue(reg, true, name), true
	}
	if idx, ok := c.enclosing.resolveUpvalue(name); ok {
		return c.addUpvalue(idx, false, name), true
	}
	return 0, false
}

func (c *Compiler) markCaptured(reg uint8) {
	for i := range c.locals {
		if c.locals[i].reg == reg {
			c.locals[i].captured = true
			return
		}
	}
}

// addUpvalue records (or dedups) one upvalue descriptor on this function,
// returning its index.
func (c *Compiler) addUpvalue(index uint8, isLocal bool, name string) uint8 {
	for i, u := range c.upvalues {
		if u.index == index && u.isLocal == isLocal {
			return uint8(i)
		}
	}
	c.upvalues = append(c.upvalues, upvalDesc{index: index, isLocal: isLocal, name: name})
	return uint8(len(c.upvalues) - 1)
}

// declareSchema registers a struct or enum schema at the current scope
// depth, shadowing any outer schema of the same name.
func (c *Compiler) declareSchema(slot schemaSlot) {
	slot.depth = c.scopeDepth
	c.schemas = append(c.schemas, slot)
}

func (c *Compiler) resolveSchema(name string) (schemaSlot, bool) {
	for i := len(c.schemas) - 1; i >= 0; i-- {
		if c.schemas[i].name == name {
			return c.schemas[i], true
		}
	}
	if c.enclosing != nil {
		return c.enclosing.resolveSchema(name)
	}
	return schemaSlot{}, false
}

package compiler

import (
	"github.com/zym-lang/zym/internal/ast"
	"github.com/zym-lang/zym/internal/chunk"
	"github.com/zym-lang/zym/internal/token"
	"github.com/zym-lang/zym/internal/value"
)

// compileFunctionBody compiles a function's (or the module's) statement
// list at depth 0, then emits an implicit RETURN_NULL if control can fall
// off the end (spec.md §4.3.2: every function exits through a RETURN form).
func (c *Compiler) compileFunctionBody(b *Block) {
	for _, s := range b.Stmts {
		c.compileStmt(s)
	}
	c.resolvePendingGotos()
	line := 0
	if len(b.Stmts) > 0 {
		line = b.Stmts[len(b.Stmts)-1].Line()
	}
	c.chunk.EmitABC(chunk.OpReturnNull, 0, 0, 0, line)
}

// compileBlock compiles a nested (non-function-body) block in its own
// lexical scope.
func (c *Compiler) compileBlock(b *Block) {
	c.beginScope()
	for _, s := range b.Stmts {
		c.compileStmt(s)
	}
	c.endScope(b.Line())
}

func (c *Compiler) compileStmt(s ast.Stmt) {
	line := s.Line()
	switch st := s.(type) {
	case *ast.ExprStmt:
		saved := c.saveTempTop()
		reg := c.allocTemp(line)
		c.compileExpression(st.X, reg)
		c.restoreTempTop(saved)
	case *ast.VarDeclStmt:
		c.compileVarDecl(st)
	case *ast.FuncDeclStmt:
		if c.scopeDepth == 0 && c.kind == FuncScript {
			c.compileHoistedFuncDecl(st)
		} else {
			c.compileLocalFuncDecl(st)
		}
	case *ast.StructDeclStmt:
		schema := value.NewStructSchema(st.Name, st.Fields)
		c.declareSchema(schemaSlot{name: st.Name, kind: schemaStruct, strukt: schema})
	case *ast.EnumDeclStmt:
		schema := value.NewEnumSchema(st.Name, st.Variants)
		c.declareSchema(schemaSlot{name: st.Name, kind: schemaEnum, enum: schema})
		saved := c.saveTempTop()
		reg := c.allocTemp(line)
		c.loadConst(value.Obj(schema), reg, line)
		c.emitSetGlobal("__enum_schema_"+st.Name, reg, line)
		c.restoreTempTop(saved)
	case *ast.IfStmt:
		c.compileIf(st)
	case *ast.WhileStmt:
		c.compileWhile(st)
	case *ast.DoWhileStmt:
		c.compileDoWhile(st)
	case *ast.ForStmt:
		c.compileFor(st)
	case *ast.BreakStmt:
		c.compileBreak(line)
	case *ast.ContinueStmt:
		c.compileContinue(line)
	case *ast.ReturnStmt:
		c.compileReturn(st)
	case *ast.SwitchStmt:
		c.compileSwitch(st)
	case *ast.LabelStmt:
		c.labels = append(c.labels, labelSite{name: st.Name, pc: c.chunk.InstructionCount(), scopeDepth: c.scopeDepth, localCount: len(c.locals)})
	case *ast.GotoStmt:
		c.compileGoto(st)
	case *ast.Block:
		c.compileBlock(st)
	default:
		c.errorf(line, "compiler: unhandled statement %T", s)
	}
}

// compileVarDecl handles a top-level `var/val/ref/clone name = init, ...;`
// statement outside expression position (spec.md §4.3.3). Each name/init
// pair behaves exactly like the corresponding AssignExpr declaration form,
// reusing that path so the two surface forms (statement vs. expression
// declarations, if the grammar allows both) stay in lockstep.
func (c *Compiler) compileVarDecl(st *ast.VarDeclStmt) {
	line := st.Line()
	for i, name := range st.Names {
		var init ast.Expr = ast.NewNullExpr(line)
		if i < len(st.Inits) && st.Inits[i] != nil {
			init = st.Inits[i]
		}
		assign := ast.NewAssignExpr(line, ast.NewIdentExpr(line, name), token.ASSIGN, init, false, st.Kind)
		saved := c.saveTempTop()
		reg := c.allocTemp(line)
		c.compileAssign(assign, reg)
		c.restoreTempTop(saved)
	}
}

// compileLocalFuncDecl compiles a `func name(...) {...}` statement appearing
// inside a function body (not at module top level, where FuncDeclStmt is
// instead hoisted — see hoist.go). It declares name as a local bound to the
// closure, so nested non-hoisted function statements still support
// recursion via self-reference through the local/upvalue chain.
func (c *Compiler) compileLocalFuncDecl(st *ast.FuncDeclStmt) {
	line := st.Line()
	reg := c.declareLocal(st.Fn.Name, line)
	c.compileFuncExprInto(st.Fn, reg)
}

func (c *Compiler) compileIf(st *ast.IfStmt) {
	line := st.Line()
	elseJump := c.compileBranchOnFalse(st.Cond, line)
	c.compileBlock(st.Then)
	if st.Else == nil {
		_ = c.chunk.PatchJump(elseJump)
		return
	}
	endJump := c.chunk.EmitJump(chunk.OpJump, 0, line)
	_ = c.chunk.PatchJump(elseJump)
	c.compileStmt(st.Else)
	_ = c.chunk.PatchJump(endJump)
}

func (c *Compiler) pushLoop(isSwitch bool) {
	c.loopStack = append(c.loopStack, loopCtx{
		scopeDepth: c.scopeDepth,
		localCount: len(c.locals),
		tempTop:    c.tempTop,
		isSwitch:   isSwitch,
	})
}

func (c *Compiler) currentLoop() *loopCtx { return &c.loopStack[len(c.loopStack)-1] }

func (c *Compiler) popLoop(line int) loopCtx {
	lp := c.loopStack[len(c.loopStack)-1]
	c.loopStack = c.loopStack[:len(c.loopStack)-1]
	for _, j := range lp.breakJumps {
		_ = c.chunk.PatchJump(j)
	}
	return lp
}

func (c *Compiler) compileWhile(st *ast.WhileStmt) {
	line := st.Line()
	loopStart := c.chunk.InstructionCount()
	c.pushLoop(false)
	c.currentLoop().continueTarget = loopStart

	exitJump := c.compileBranchOnFalse(st.Cond, line)

	c.compileBlock(st.Body)
	back := c.chunk.EmitJump(chunk.OpJump, 0, line)
	_ = c.chunk.PatchJumpTo(back, loopStart)
	_ = c.chunk.PatchJump(exitJump)
	c.popLoop(line)
}

func (c *Compiler) compileDoWhile(st *ast.DoWhileStmt) {
	line := st.Line()
	loopStart := c.chunk.InstructionCount()
	c.pushLoop(false)

	c.compileBlock(st.Body)
	continueTarget := c.chunk.InstructionCount()
	c.currentLoop().continueTarget = continueTarget

	// Loop back when cond is true: skip the backward jump when it's false.
	skip := c.compileBranchOnFalse(st.Cond, line)
	jmp := c.chunk.EmitJump(chunk.OpJump, 0, line)
	_ = c.chunk.PatchJumpTo(jmp, loopStart)
	_ = c.chunk.PatchJump(skip)
	c.popLoop(line)
}

func (c *Compiler) compileFor(st *ast.ForStmt) {
	line := st.Line()
	c.beginScope()
	if st.Init != nil {
		c.compileStmt(st.Init)
	}
	loopStart := c.chunk.InstructionCount()
	c.pushLoop(false)

	var exitJump int
	hasCond := st.Cond != nil
	if hasCond {
		exitJump = c.compileBranchOnFalse(st.Cond, line)
	}

	c.compileBlock(st.Body)

	continueTarget := c.chunk.InstructionCount()
	c.currentLoop().continueTarget = continueTarget
	if st.Post != nil {
		c.compileStmt(st.Post)
	}
	back := c.chunk.EmitJump(chunk.OpJump, 0, line)
	_ = c.chunk.PatchJumpTo(back, loopStart)
	if hasCond {
		_ = c.chunk.PatchJump(exitJump)
	}
	c.popLoop(line)
	c.endScope(line)
}

func (c *Compiler) compileBreak(line int) {
	if len(c.loopStack) == 0 {
		c.errorf(line, "break outside a loop or switch")
		return
	}
	j := c.chunk.EmitJump(chunk.OpJump, 0, line)
	lp := c.currentLoop()
	lp.breakJumps = append(lp.breakJumps, j)
}

func (c *Compiler) compileContinue(line int) {
	for i := len(c.loopStack) - 1; i >= 0; i-- {
		if c.loopStack[i].isSwitch {
			continue
		}
		j := c.chunk.EmitJump(chunk.OpJump, 0, line)
		_ = c.chunk.PatchJumpTo(j, c.loopStack[i].continueTarget)
		return
	}
	c.errorf(line, "continue outside a loop")
}

// compileReturn compiles `return;` / `return expr;`, rewriting a directly
// returned call expression into a tail call when the Compiler's
// TailCallMode allows it (spec.md §4.3.4: "the return statement's expression
// ... is in tail position").
func (c *Compiler) compileReturn(st *ast.ReturnStmt) {
	line := st.Line()
	if st.X == nil {
		c.chunk.EmitABC(chunk.OpReturnNull, 0, 0, 0, line)
		return
	}
	if call, ok := ast.Unwrap(st.X).(*ast.CallExpr); ok && c.kind == FuncFunction {
		saved := c.saveTempTop()
		reg := c.allocTemp(line)
		c.compileCall(call, reg, true)
		c.restoreTempTop(saved)
		c.chunk.EmitABC(chunk.OpReturn, reg, 0, 0, line)
		return
	}
	saved := c.saveTempTop()
	reg := c.allocTemp(line)
	c.compileExpression(st.X, reg)
	c.restoreTempTop(saved)
	c.chunk.EmitABC(chunk.OpReturn, reg, 0, 0, line)
}

// compileSwitch compiles a linear compare-and-branch chain: each non-default
// case's values are tested against the discriminant in source order, with a
// successful test jumping directly to that case's body; bodies are then
// laid out in source order and fall through into the next case's body
// exactly like a C switch unless a `break` exits (spec.md §4.3.6). A
// `default` case (if present) is the landing point when every test fails,
// and participates in the same fallthrough chain as any other case.
func (c *Compiler) compileSwitch(st *ast.SwitchStmt) {
	line := st.Line()
	c.beginScope()
	saved := c.saveTempTop()
	disc := c.compileSubExpression(st.Disc)
	c.restoreTempTop(saved)

	c.pushLoop(true)

	entryJumps := make([][]int, len(st.Cases))
	defaultIdx := -1
	noMatchJump := -1

	for i, cs := range st.Cases {
		if len(cs.Values) == 0 {
			defaultIdx = i
			continue
		}
		for _, v := range cs.Values {
			saved2 := c.saveTempTop()
			valReg := c.compileSubExpression(v)
			eq := c.allocTemp(line)
			c.chunk.EmitABC(chunk.OpEq, eq, disc, valReg, line)
			skip := c.chunk.EmitJump(chunk.OpJumpIfFalse, eq, line)
			toBody := c.chunk.EmitJump(chunk.OpJump, 0, line)
			_ = c.chunk.PatchJump(skip)
			entryJumps[i] = append(entryJumps[i], toBody)
			c.restoreTempTop(saved2)
		}
	}
	noMatchJump = c.chunk.EmitJump(chunk.OpJump, 0, line)

	for i, cs := range st.Cases {
		if i == defaultIdx {
			_ = c.chunk.PatchJump(noMatchJump)
		}
		for _, j := range entryJumps[i] {
			_ = c.chunk.PatchJump(j)
		}
		for _, s := range cs.Body {
			c.compileStmt(s)
		}
	}
	if defaultIdx < 0 {
		_ = c.chunk.PatchJump(noMatchJump)
	}

	c.popLoop(line)
	c.endScope(line)
}

func (c *Compiler) compileGoto(st *ast.GotoStmt) {
	line := st.Line()
	for _, l := range c.labels {
		if l.name == st.Label {
			j := c.chunk.EmitJump(chunk.OpJump, 0, line)
			_ = c.chunk.PatchJumpTo(j, l.pc)
			return
		}
	}
	j := c.chunk.EmitJump(chunk.OpJump, 0, line)
	c.pendingGotos = append(c.pendingGotos, pendingGoto{label: st.Label, jumpIdx: j, line: line, scopeDepth: c.scopeDepth, localCount: len(c.locals)})
}

// resolvePendingGotos patches forward gotos against labels seen later in the
// same function (spec.md §4.3.6: goto may jump forward to a not-yet-seen
// label, but never into a scope with uninitialized locals).
func (c *Compiler) resolvePendingGotos() {
	for _, pg := range c.pendingGotos {
		found := false
		for _, l := range c.labels {
			if l.name == pg.label {
				if l.scopeDepth > pg.scopeDepth || l.localCount > pg.localCount {
					c.errorf(pg.line, "goto %s jumps into the scope of a variable", pg.label)
				}
				_ = c.chunk.PatchJumpTo(pg.jumpIdx, l.pc)
				found = true
				break
			}
		}
		if !found {
			c.errorf(pg.line, "goto references undefined label %s", pg.label)
		}
	}
	c.pendingGotos = nil
}

package compiler

import (
	"github.com/zym-lang/zym/internal/ast"
	"github.com/zym-lang/zym/internal/value"
)

// Compile compiles file's top-level statements as a module entry function
// (spec.md §4.3.2's "module top level is compiled as an implicit function").
// It runs the two-pass declare/define compilation every module-level
// function declaration needs: a first pass records every overloaded name's
// arities (so a call appearing above its callee's textual declaration still
// resolves, and so an ambiguous bare reference picks up the full overload
// set), then a second pass compiles each statement in source order.
func Compile(moduleName string, file *ast.File, tco TailCallMode) (*value.Function, Diagnostics) {
	c := New(moduleName, tco)
	c.declareFuncArities(file.Stmts)
	c.compileFunctionBody(ast.NewBlock(0, file.Stmts))
	fn := c.toFunction("<module>")
	fn.IsModuleEntry = true
	return fn, c.Errors()
}

// declareFuncArities is hoisting's declare pass: it only records, for every
// module-level `func name(...)`, the arity it will be compiled at, into
// c.overloads. No code is emitted here — emission happens in the define
// pass (compileHoistedFuncDecl), in the statement's original source
// position, so side-effecting top-level statements interleaved with
// function declarations still run in source order.
func (c *Compiler) declareFuncArities(stmts []ast.Stmt) {
	for _, s := range stmts {
		if fd, ok := s.(*ast.FuncDeclStmt); ok {
			name := fd.Fn.Name
			c.overloads[name] = append(c.overloads[name], len(fd.Fn.Params))
		}
	}
}

// compileHoistedFuncDecl is hoisting's define pass for one module-level
// function declaration: compile its body, then SET_GLOBAL it under its
// mangled name@arity key (spec.md §4.3.2). A bare reference to an
// overloaded name resolves to the `__dispatcher_name` global instead; the
// VM materializes that Dispatcher once its module's top level finishes
// executing every SET_GLOBAL, after observing which names share more
// than one arity (a load-time step, not a compile-time one, since building
// the Dispatcher needs the live Closure values the compiler never holds).
func (c *Compiler) compileHoistedFuncDecl(st *ast.FuncDeclStmt) {
	line := st.Line()
	saved := c.saveTempTop()
	reg := c.allocTemp(line)
	c.compileFuncExprInto(st.Fn, reg)
	c.emitSetGlobal(mangle(st.Fn.Name, len(st.Fn.Params)), reg, line)
	c.restoreTempTop(saved)
}

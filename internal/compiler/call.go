package compiler

import (
	"github.com/zym-lang/zym/internal/ast"
	"github.com/zym-lang/zym/internal/chunk"
	"github.com/zym-lang/zym/internal/value"
)

// compileCall emits a call to ex, leaving its single result in target. tail
// marks ex as occupying tail position in its enclosing function (spec.md
// §4.3.4); the opcode picked then depends on the Compiler's TailCallMode.
func (c *Compiler) compileCall(ex *ast.CallExpr, target uint8, tail bool) {
	line := ex.Line()
	saved := c.saveTempTop()

	fnReg := c.allocTemp(line)
	fixedArgs, spread := splitSpreadArg(ex.Args)

	c.compileCallee(ex.Callee, fnReg, line, len(fixedArgs), spread != nil)

	for _, a := range fixedArgs {
		argReg := c.allocTemp(line)
		c.compileExpression(a, argReg)
	}
	argc := len(fixedArgs)

	if spread != nil {
		spreadReg := c.allocTemp(line)
		c.compileExpression(spread, spreadReg)
		op := chunk.OpCallSpread
		if tail {
			op = c.tailOp(ex.Callee, argc, true)
		}
		c.chunk.EmitABC(op, fnReg, 1, uint8(argc), line)
	} else {
		op := chunk.OpCall
		if tail {
			op = c.tailOp(ex.Callee, argc, false)
		}
		c.chunk.EmitABC(op, fnReg, 1, uint8(argc), line)
	}

	if fnReg != target {
		c.chunk.EmitABC(chunk.OpMove, target, fnReg, 0, line)
	}
	c.restoreTempTop(saved)
}

// tailOp picks the TCO opcode variant for a call already known to occupy
// tail position, per the Compiler's TailCallMode (spec.md §4.3.4). Spread
// calls only ever get the plain (non-self) tail forms: a spread argument
// count is not known at compile time, so the *_SELF same-arity fast path
// never applies to them.
func (c *Compiler) tailOp(callee ast.Expr, argc int, spread bool) chunk.Op {
	if c.tco == TCOOff {
		if spread {
			return chunk.OpCallSpread
		}
		return chunk.OpCall
	}
	self := !spread && c.isSelfCall(callee, argc)
	smart := c.tco == TCOSmart
	switch {
	case self && smart:
		return chunk.OpSmartTailCallSelf
	case self:
		return chunk.OpTailCallSelf
	case smart:
		return chunk.OpSmartTailCall
	default:
		return chunk.OpTailCall
	}
}

// isSelfCall reports whether callee is a direct, unshadowed reference to
// the function currently being compiled at exactly its own arity, enabling
// the cheaper *_SELF tail-call forms that reuse the current frame without a
// closure lookup (spec.md §4.3.4).
func (c *Compiler) isSelfCall(callee ast.Expr, argc int) bool {
	if c.kind != FuncFunction || c.selfMangledName == "" {
		return false
	}
	id, ok := ast.Unwrap(callee).(*ast.IdentExpr)
	if !ok {
		return false
	}
	if _, ok := c.resolveLocal(id.Name); ok {
		return false
	}
	if _, ok := c.resolveUpvalue(id.Name); ok {
		return false
	}
	return mangle(id.Name, argc) == c.selfMangledName
}

// splitSpreadArg separates a trailing `...expr` from the rest of a call's
// fixed-position arguments; spec.md only allows spread as the final
// argument.
func splitSpreadArg(args []ast.Expr) ([]ast.Expr, ast.Expr) {
	if len(args) == 0 {
		return args, nil
	}
	if sp, ok := args[len(args)-1].(*ast.SpreadExpr); ok {
		return args[:len(args)-1], sp.Value
	}
	return args, nil
}

// compileCallee loads the callable into fnReg, resolving a bare overloaded
// name to its exact-arity mangled global when the fixed argument count is
// known and unambiguous, or to the name's runtime Dispatcher otherwise
// (spec.md §4.3.2, §8).
func (c *Compiler) compileCallee(callee ast.Expr, fnReg uint8, line int, argc int, hasSpread bool) {
	if id, ok := ast.Unwrap(callee).(*ast.IdentExpr); ok {
		if _, ok := c.resolveLocal(id.Name); !ok {
			if _, ok := c.resolveUpvalue(id.Name); !ok {
				if arities, ok := c.root().overloads[id.Name]; ok {
					if !hasSpread {
						for _, a := range arities {
							if a == argc {
								c.emitGetGlobal(mangle(id.Name, argc), fnReg, line)
								return
							}
						}
					}
					c.emitGetGlobal(dispatcherGlobalName(id.Name), fnReg, line)
					return
				}
			}
		}
	}
	c.compileExpression(callee, fnReg)
}

// compileFuncExprInto compiles ex as a nested function body and emits the
// OpClosure that captures it (spec.md §3, §4.3.2).
func (c *Compiler) compileFuncExprInto(ex *ast.FuncExpr, target uint8) {
	line := ex.Line()
	name := ex.Name
	if name == "" {
		name = "<anonymous>"
	}
	quals := make([]value.Qualifier, len(ex.Params))
	for i, p := range ex.Params {
		quals[i] = qualifierFromDeclToken(p.Qualifier)
	}
	fc := newFunctionCompiler(c, name, len(ex.Params), quals)
	for i, p := range ex.Params {
		fc.declareParam(p.Name, uint8(1+i), quals[i])
	}
	fc.compileFunctionBody(ex.Body)

	fn := fc.toFunction(name)
	idx := c.chunk.AddConstant(value.Obj(fn))
	c.chunk.EmitABx(chunk.OpClosure, target, int16(idx), line)
	for _, uv := range fc.upvalues {
		c.chunk.EmitUpvalueCapture(uv.isLocal, int(uv.index), line)
	}
}

package ast

import "github.com/zym-lang/zym/internal/token"

// Block is a braces-delimited sequence of statements; it is its own node
// (rather than a bare []Stmt) because scope-entry/exit bookkeeping (locals,
// open upvalues to close, goto targets, spec.md §3 "compiler emits a close
// instruction at scope end") is anchored to a Block.
type Block struct {
	base
	Stmts []Stmt
}

func NewBlock(line int, stmts []Stmt) *Block { return &Block{base{line}, stmts} }

type (
	// ExprStmt is an expression evaluated for its side effect, result
	// discarded (spec.md §4.3.1 result_needed=false).
	ExprStmt struct {
		base
		X Expr
	}

	// VarDeclStmt declares one or more locals/globals; Kind is VAR, VAL,
	// REF or CLONE (spec.md §4.3.3 variable qualifiers).
	VarDeclStmt struct {
		base
		Kind  token.Kind // VAR, VAL, REF or CLONE
		Names []string
		Inits []Expr // same length as Names; may contain nil for `var x;`
	}

	// FuncDeclStmt declares a named function at the current scope (module
	// top level or a nested block), feeding the hoisting pass (spec.md
	// §4.3.2).
	FuncDeclStmt struct {
		base
		Fn *FuncExpr
	}

	// StructDeclStmt declares a struct schema (spec.md §4.3.7).
	StructDeclStmt struct {
		base
		Name   string
		Fields []string
	}

	// EnumDeclStmt declares an enum schema (spec.md §4.3.7).
	EnumDeclStmt struct {
		base
		Name     string
		Variants []string
	}

	// IfStmt is `if cond { then } else { else }`; Else may be nil, a Block,
	// or itself an IfStmt (else-if chaining).
	IfStmt struct {
		base
		Cond Expr
		Then *Block
		Else Stmt // *Block or *IfStmt, nil if absent
	}

	// WhileStmt is `while cond { body }`.
	WhileStmt struct {
		base
		Cond Expr
		Body *Block
	}

	// DoWhileStmt is `do { body } while cond;`.
	DoWhileStmt struct {
		base
		Body *Block
		Cond Expr
	}

	// ForStmt is a C-style `for (init; cond; post) { body }`; any of Init,
	// Cond, Post may be nil.
	ForStmt struct {
		base
		Init Stmt
		Cond Expr
		Post Stmt
		Body *Block
	}

	// BreakStmt / ContinueStmt leave or restart the nearest enclosing loop
	// or switch (break only).
	BreakStmt    struct{ base }
	ContinueStmt struct{ base }

	// ReturnStmt returns X (nil for a bare `return;`, treated as `return
	// null;` by the compiler).
	ReturnStmt struct {
		base
		X Expr
	}

	// SwitchCase is one `case value: stmts` or, when Values is nil, the
	// `default:` arm.
	SwitchCase struct {
		Values []Expr
		Body   []Stmt
	}

	// SwitchStmt evaluates Disc once and routes by equality to a case
	// (spec.md §4.3.6).
	SwitchStmt struct {
		base
		Disc  Expr
		Cases []SwitchCase
	}

	// LabelStmt declares a function-local goto target.
	LabelStmt struct {
		base
		Name string
	}

	// GotoStmt jumps to a function-local label (spec.md §4.3.6 validation
	// rules on scope/initialization).
	GotoStmt struct {
		base
		Label string
	}
)

func (*ExprStmt) stmtNode()      {}
func (*VarDeclStmt) stmtNode()   {}
func (*FuncDeclStmt) stmtNode()  {}
func (*StructDeclStmt) stmtNode() {}
func (*EnumDeclStmt) stmtNode() {}
func (*IfStmt) stmtNode()       {}
func (*WhileStmt) stmtNode()    {}
func (*DoWhileStmt) stmtNode()  {}
func (*ForStmt) stmtNode()      {}
func (*BreakStmt) stmtNode()    {}
func (*ContinueStmt) stmtNode() {}
func (*ReturnStmt) stmtNode()   {}
func (*SwitchStmt) stmtNode()   {}
func (*LabelStmt) stmtNode()    {}
func (*GotoStmt) stmtNode()     {}
func (*Block) stmtNode()        {}

func NewExprStmt(line int, x Expr) *ExprStmt { return &ExprStmt{base{line}, x} }
func NewVarDeclStmt(line int, kind token.Kind, names []string, inits []Expr) *VarDeclStmt {
	return &VarDeclStmt{base{line}, kind, names, inits}
}
func NewFuncDeclStmt(line int, fn *FuncExpr) *FuncDeclStmt {
	return &FuncDeclStmt{base{line}, fn}
}
func NewStructDeclStmt(line int, name string, fields []string) *StructDeclStmt {
	return &StructDeclStmt{base{line}, name, fields}
}
func NewEnumDeclStmt(line int, name string, variants []string) *EnumDeclStmt {
	return &EnumDeclStmt{base{line}, name, variants}
}
func NewIfStmt(line int, cond Expr, then *Block, els Stmt) *IfStmt {
	return &IfStmt{base{line}, cond, then, els}
}
func NewWhileStmt(line int, cond Expr, body *Block) *WhileStmt {
	return &WhileStmt{base{line}, cond, body}
}
func NewDoWhileStmt(line int, body *Block, cond Expr) *DoWhileStmt {
	return &DoWhileStmt{base{line}, body, cond}
}
func NewForStmt(line int, init Stmt, cond Expr, post Stmt, body *Block) *ForStmt {
	return &ForStmt{base{line}, init, cond, post, body}
}
func NewBreakStmt(line int) *BreakStmt       { return &BreakStmt{base{line}} }
func NewContinueStmt(line int) *ContinueStmt { return &ContinueStmt{base{line}} }
func NewReturnStmt(line int, x Expr) *ReturnStmt { return &ReturnStmt{base{line}, x} }
func NewSwitchStmt(line int, disc Expr, cases []SwitchCase) *SwitchStmt {
	return &SwitchStmt{base{line}, disc, cases}
}
func NewLabelStmt(line int, name string) *LabelStmt { return &LabelStmt{base{line}, name} }
func NewGotoStmt(line int, label string) *GotoStmt   { return &GotoStmt{base{line}, label} }

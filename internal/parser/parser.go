// Package parser builds an internal/ast tree from a internal/lexer token
// stream via recursive descent with precedence climbing for expressions,
// in the style of nenuphar's lang/parser (chunk.go/expr.go/stmt.go split)
// and funxy's internal/parser. spec.md §1 treats the parser as "assumed,
// not specified in detail"; this implementation is the concrete stand-in
// the compiler (the specified component) is built against.
package parser

import (
	"fmt"

	"github.com/zym-lang/zym/internal/ast"
	"github.com/zym-lang/zym/internal/lexer"
	"github.com/zym-lang/zym/internal/linemap"
	"github.com/zym-lang/zym/internal/token"
	"github.com/zym-lang/zym/internal/zymerr"
)

// Parser turns a token stream into an *ast.File. It reports errors by
// citing the token's mapped line and the offending lexeme (spec.md §7),
// accumulating into a Diagnostics bag rather than stopping at the first
// error, matching the compiler's own accumulate-then-fail-at-the-end
// posture.
type Parser struct {
	file string
	toks []token.Token
	pos  int

	diags zymerr.Diagnostics
}

// Parse tokenizes and parses src in one call, a convenience wrapper around
// New+Parser.File for callers (the module loader, tests) that don't need
// to inspect raw tokens.
func Parse(file string, src []byte, lm *linemap.Map) (*ast.File, error) {
	toks := lexer.Tokenize(file, src, lm)
	p := New(file, toks)
	f := p.File()
	if p.diags.HasErrors() {
		return nil, &p.diags
	}
	return f, nil
}

// New creates a Parser over an already-tokenized stream.
func New(file string, toks []token.Token) *Parser {
	return &Parser{file: file, toks: toks}
}

func (p *Parser) cur() token.Token  { return p.toks[p.pos] }
func (p *Parser) peek(n int) token.Token {
	i := p.pos + n
	if i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[i]
}

func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	if t.Kind == token.ERROR {
		p.errorf(t.Line, "%s", t.Lexeme)
	}
	return t
}

func (p *Parser) check(k token.Kind) bool { return p.cur().Kind == k }

func (p *Parser) match(k token.Kind) bool {
	if p.check(k) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(k token.Kind) token.Token {
	if p.check(k) {
		return p.advance()
	}
	t := p.cur()
	p.errorf(t.Line, "expected %s, found %s", k, describeToken(t))
	return t
}

func describeToken(t token.Token) string {
	if t.Lexeme != "" {
		return fmt.Sprintf("%q", t.Lexeme)
	}
	return t.Kind.String()
}

func (p *Parser) errorf(line int, format string, args ...any) {
	p.diags.Add(zymerr.KindParse, p.file, line, 0, format, args...)
}

// skipSemis consumes any number of statement-terminating semicolons.
func (p *Parser) skipSemis() {
	for p.match(token.SEMI) {
	}
}

// File parses the whole token stream into a flat top-level statement list.
func (p *Parser) File() *ast.File {
	f := &ast.File{Name: p.file}
	p.skipSemis()
	for !p.check(token.EOF) {
		f.Stmts = append(f.Stmts, p.statement())
		p.skipSemis()
	}
	return f
}

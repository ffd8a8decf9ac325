package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zym-lang/zym/internal/lexer"
	"github.com/zym-lang/zym/internal/token"
)

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestTokenizeArithmeticAndKeywords(t *testing.T) {
	src := `var x = 2 + 3 * 4;
print(x);`
	toks := lexer.Tokenize("t.zym", []byte(src), nil)
	require.Equal(t, []token.Kind{
		token.VAR, token.IDENT, token.ASSIGN, token.NUMBER, token.PLUS,
		token.NUMBER, token.STAR, token.NUMBER, token.SEMI,
		token.IDENT, token.LPAREN, token.IDENT, token.RPAREN, token.SEMI,
		token.EOF,
	}, kinds(toks))
}

func TestTokenizeNumberForms(t *testing.T) {
	toks := lexer.Tokenize("t.zym", []byte("0x1F 0b101 3.14 1_000"), nil)
	require.Len(t, toks, 5)
	for _, tk := range toks[:4] {
		require.Equal(t, token.NUMBER, tk.Kind)
	}
	require.Equal(t, "0x1F", toks[0].Lexeme)
	require.Equal(t, "0b101", toks[1].Lexeme)
	require.Equal(t, "3.14", toks[2].Lexeme)
	require.Equal(t, "1_000", toks[3].Lexeme)
}

func TestTokenizeStringEscapesLeftEncoded(t *testing.T) {
	toks := lexer.Tokenize("t.zym", []byte(`"a\"b"`), nil)
	require.Equal(t, token.STRING, toks[0].Kind)
	require.Equal(t, `a\"b`, toks[0].Lexeme)
}

func TestCommentsSkipped(t *testing.T) {
	toks := lexer.Tokenize("t.zym", []byte("// hi\n/* block\n comment */ var"), nil)
	require.Equal(t, []token.Kind{token.VAR, token.EOF}, kinds(toks))
}

func TestIllegalCharacterProducesErrorToken(t *testing.T) {
	toks := lexer.Tokenize("t.zym", []byte("@"), nil)
	require.Equal(t, token.ERROR, toks[0].Kind)
	require.Contains(t, toks[0].Lexeme, "unexpected character")
}

// Package token defines the lexical token kinds produced by internal/lexer
// and consumed by internal/parser.
package token

// Kind identifies the lexical class of a Token.
type Kind uint16

const (
	ILLEGAL Kind = iota
	EOF
	ERROR // synthetic token carrying a human-readable lex error message

	IDENT
	NUMBER
	STRING

	// punctuators
	LPAREN
	RPAREN
	LBRACE
	RBRACE
	LBRACKET
	RBRACKET
	COMMA
	SEMI
	COLON
	DOT
	QUESTION

	PLUS
	MINUS
	STAR
	SLASH
	PERCENT
	AMP
	PIPE
	CARET
	TILDE
	BANG
	SHL
	SHR

	ASSIGN
	PLUS_ASSIGN
	MINUS_ASSIGN
	STAR_ASSIGN
	SLASH_ASSIGN
	PERCENT_ASSIGN
	AMP_ASSIGN
	PIPE_ASSIGN
	CARET_ASSIGN
	SHL_ASSIGN
	SHR_ASSIGN

	EQ
	NE
	LT
	LE
	GT
	GE

	AND_AND
	OR_OR

	// keywords
	AND
	OR
	IF
	ELSE
	WHILE
	DO
	FOR
	BREAK
	CONTINUE
	RETURN
	FUNC
	VAL
	VAR
	REF
	SLOT
	STRUCT
	ENUM
	TRUE
	FALSE
	NULL
	SWITCH
	CASE
	DEFAULT
	GOTO
	TYPEOF
	CLONE
	IMPORT
	FROM
)

var names = map[Kind]string{
	ILLEGAL: "illegal", EOF: "eof", ERROR: "error",
	IDENT: "identifier", NUMBER: "number", STRING: "string",
	LPAREN: "(", RPAREN: ")", LBRACE: "{", RBRACE: "}",
	LBRACKET: "[", RBRACKET: "]", COMMA: ",", SEMI: ";", COLON: ":",
	DOT: ".", QUESTION: "?",
	PLUS: "+", MINUS: "-", STAR: "*", SLASH: "/", PERCENT: "%",
	AMP: "&", PIPE: "|", CARET: "^", TILDE: "~", BANG: "!",
	SHL: "<<", SHR: ">>",
	ASSIGN: "=", PLUS_ASSIGN: "+=", MINUS_ASSIGN: "-=", STAR_ASSIGN: "*=",
	SLASH_ASSIGN: "/=", PERCENT_ASSIGN: "%=", AMP_ASSIGN: "&=",
	PIPE_ASSIGN: "|=", CARET_ASSIGN: "^=", SHL_ASSIGN: "<<=", SHR_ASSIGN: ">>=",
	EQ: "==", NE: "!=", LT: "<", LE: "<=", GT: ">", GE: ">=",
	AND_AND: "&&", OR_OR: "||",
	AND: "and", OR: "or", IF: "if", ELSE: "else", WHILE: "while", DO: "do",
	FOR: "for", BREAK: "break", CONTINUE: "continue", RETURN: "return",
	FUNC: "func", VAL: "val", VAR: "var", REF: "ref", SLOT: "slot",
	STRUCT: "struct", ENUM: "enum", TRUE: "true", FALSE: "false", NULL: "null",
	SWITCH: "switch", CASE: "case", DEFAULT: "default", GOTO: "goto",
	TYPEOF: "typeof", CLONE: "clone", IMPORT: "import", FROM: "from",
}

func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	return "unknown"
}

// Keywords maps the fixed keyword set (spec.md §4.1) to their Kind. import
// and from are included so the lexer can recognize them when the module
// loader hasn't already rewritten the text (defense in depth); the loader
// normally consumes those forms before the lexer ever runs.
var Keywords = map[string]Kind{
	"and": AND, "or": OR, "if": IF, "else": ELSE, "while": WHILE, "do": DO,
	"for": FOR, "break": BREAK, "continue": CONTINUE, "return": RETURN,
	"func": FUNC, "val": VAL, "var": VAR, "ref": REF, "slot": SLOT,
	"struct": STRUCT, "enum": ENUM, "true": TRUE, "false": FALSE, "null": NULL,
	"switch": SWITCH, "case": CASE, "default": DEFAULT, "goto": GOTO,
	"typeof": TYPEOF, "clone": CLONE, "import": IMPORT, "from": FROM,
}

// Token is a single lexical token: its kind, the raw lexeme, and the line it
// was scanned from, already passed through the attached LineMap if any (see
// internal/linemap). Number and string lexemes stay undecoded; the parser
// decodes them.
type Token struct {
	Kind   Kind
	Lexeme string
	Line   int
	Col    int
}

func (t Token) String() string {
	if t.Lexeme != "" {
		return t.Kind.String() + " " + t.Lexeme
	}
	return t.Kind.String()
}

// CompoundAssignOp returns the underlying binary operator Kind for a
// compound-assignment token (PLUS_ASSIGN -> PLUS), and ok=false if k is not
// a compound-assignment kind.
func CompoundAssignOp(k Kind) (Kind, bool) {
	switch k {
	case PLUS_ASSIGN:
		return PLUS, true
	case MINUS_ASSIGN:
		return MINUS, true
	case STAR_ASSIGN:
		return STAR, true
	case SLASH_ASSIGN:
		return SLASH, true
	case PERCENT_ASSIGN:
		return PERCENT, true
	case AMP_ASSIGN:
		return AMP, true
	case PIPE_ASSIGN:
		return PIPE, true
	case CARET_ASSIGN:
		return CARET, true
	case SHL_ASSIGN:
		return SHL, true
	case SHR_ASSIGN:
		return SHR, true
	default:
		return ILLEGAL, false
	}
}

package token

// Kind identifies the category of a token.
type Kind string

// Token carries the lexical item along with its source line.
type Token struct {
	Kind   Kind
	Lexeme string
	Line   int
}

const (
	Illegal Kind = "ILLEGAL"
	EOF     Kind = "EOF"

	// identifiers and literals
	Identifier Kind = "IDENTIFIER"
	Number     Kind = "NUMBER"
	String     Kind = "STRING"

	// keywords
	And    Kind = "AND"
	Class  Kind = "CLASS"
	Else   Kind = "ELSE"
	False  Kind = "FALSE"
	For    Kind = "FOR"
	Fun    Kind = "FUN"
	If     Kind = "IF"
	Nil    Kind = "NIL"
	Or     Kind = "OR"
	Print  Kind = "PRINT"
	Return Kind = "RETURN"
	Super  Kind = "SUPER"
	This   Kind = "THIS"
	True   Kind = "TRUE"
	Typeof Kind = "TYPEOF"
	Var    Kind = "VAR"
	While  Kind = "WHILE"

	// operators
	Plus         Kind = "PLUS"         // +
	Minus        Kind = "MINUS"        // -
	Star         Kind = "STAR"         // *
	Slash        Kind = "SLASH"        // /
	Bang         Kind = "BANG"         // !
	BangEqual    Kind = "BANGEQUAL"    // !=
	Equal        Kind = "EQUAL"        // =
	EqualEqual   Kind = "EQUALEQUAL"   // ==
	Less         Kind = "LESS"         // <
	LessEqual    Kind = "LESSEQUAL"    // <=
	Greater      Kind = "GREATER"      // >
	GreaterEqual Kind = "GREATEREQUAL" // >=

	// delimiters
	Comma     Kind = "COMMA"
	Dot       Kind = "DOT"
	Semicolon Kind = "SEMICOLON"
	LParen    Kind = "LPAREN"
	RParen    Kind = "RPAREN"
	LBrace    Kind = "LBRACE"
	RBrace    Kind = "RBRACE"
)

var keywords = map[string]Kind{
	"and":    And,
	"class":  Class,
	"else":   Else,
	"false":  False,
	"for":    For,
	"fun":    Fun,
	"if":     If,
	"nil":    Nil,
	"or":     Or,
	"print":  Print,
	"return": Return,
	"super":  Super,
	"this":   This,
	"true":   True,
	"typeof": Typeof,
	"var":    Var,
	"while":  While,
}

// LookupIdent returns the keyword kind for reserved words, or Identifier.
func LookupIdent(ident string) Kind {
	if kind, ok := keywords[ident]; ok {
		return kind
	}
	return Identifier
}

package olap

import "fmt"

// TokenType represents the type of a lexical token.
type TokenType int

// TOKEN_EOF and friends enumerate all token types produced by the lexer.
const (
	TOKEN_EOF     TokenType = iota // end of input
	TOKEN_ILLEGAL                  // unexpected character

	TOKEN_IDENT     // bare identifier
	TOKEN_BRACKETED // [quoted name]
	TOKEN_NUMBER    // 10
	TOKEN_STRING    // 'text' or "text"

	TOKEN_DOT       // .
	TOKEN_COMMA     // ,
	TOKEN_STAR      // *
	TOKEN_LPAREN    // (
	TOKEN_RPAREN    // )
	TOKEN_LBRACE    // {
	TOKEN_RBRACE    // }
	TOKEN_SEMICOLON // ;

	// TOKEN_SELECT and below are MDX keywords.
	TOKEN_SELECT
	TOKEN_ON
	TOKEN_FROM
	TOKEN_WHERE
	TOKEN_NON
	TOKEN_EMPTY
	TOKEN_COLUMNS
	TOKEN_ROWS
	TOKEN_PAGES
	TOKEN_AXIS
)

// String returns a human-readable representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

var tokenNames = map[TokenType]string{
	TOKEN_EOF:       "EOF",
	TOKEN_ILLEGAL:   "ILLEGAL",
	TOKEN_IDENT:     "IDENT",
	TOKEN_BRACKETED: "BRACKETED",
	TOKEN_NUMBER:    "NUMBER",
	TOKEN_STRING:    "STRING",
	TOKEN_DOT:       ".",
	TOKEN_COMMA:     ",",
	TOKEN_STAR:      "*",
	TOKEN_LPAREN:    "(",
	TOKEN_RPAREN:    ")",
	TOKEN_LBRACE:    "{",
	TOKEN_RBRACE:    "}",
	TOKEN_SEMICOLON: ";",
	TOKEN_SELECT:    "SELECT",
	TOKEN_ON:        "ON",
	TOKEN_FROM:      "FROM",
	TOKEN_WHERE:     "WHERE",
	TOKEN_NON:       "NON",
	TOKEN_EMPTY:     "EMPTY",
	TOKEN_COLUMNS:   "COLUMNS",
	TOKEN_ROWS:      "ROWS",
	TOKEN_PAGES:     "PAGES",
	TOKEN_AXIS:      "AXIS",
}

// keywords maps lowercase keyword strings to their token types. Function
// names (Order, TopCount, ...) and Members are plain identifiers.
var keywords = map[string]TokenType{
	"select":  TOKEN_SELECT,
	"on":      TOKEN_ON,
	"from":    TOKEN_FROM,
	"where":   TOKEN_WHERE,
	"non":     TOKEN_NON,
	"empty":   TOKEN_EMPTY,
	"columns": TOKEN_COLUMNS,
	"rows":    TOKEN_ROWS,
	"pages":   TOKEN_PAGES,
	"axis":    TOKEN_AXIS,
}

// lookupKeyword returns the keyword token type for ident, or TOKEN_IDENT.
func lookupKeyword(ident string) TokenType {
	if t, ok := keywords[ident]; ok {
		return t
	}
	return TOKEN_IDENT
}

// Token is a single lexical token.
type Token struct {
	Type    TokenType
	Literal string
	Pos     int // byte offset in the input
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

package olap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLexer_Punctuation(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantType TokenType
		wantLit  string
	}{
		{"dot", ".", TOKEN_DOT, "."},
		{"comma", ",", TOKEN_COMMA, ","},
		{"star", "*", TOKEN_STAR, "*"},
		{"lparen", "(", TOKEN_LPAREN, "("},
		{"rparen", ")", TOKEN_RPAREN, ")"},
		{"lbrace", "{", TOKEN_LBRACE, "{"},
		{"rbrace", "}", TOKEN_RBRACE, "}"},
		{"semicolon", ";", TOKEN_SEMICOLON, ";"},
		{"illegal", "?", TOKEN_ILLEGAL, "?"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tok := NewLexer(tc.input).NextToken()
			assert.Equal(t, tc.wantType, tok.Type, "token type")
			assert.Equal(t, tc.wantLit, tok.Literal, "token literal")
		})
	}
}

func TestLexer_Names(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantType TokenType
		wantLit  string
	}{
		{"bracketed", "[countryName]", TOKEN_BRACKETED, "countryName"},
		{"bracketed_spaces", "[United States]", TOKEN_BRACKETED, "United States"},
		{"bracketed_escape", "[a]]b]", TOKEN_BRACKETED, "a]b"},
		{"bracketed_punct", "[#en.wikipedia]", TOKEN_BRACKETED, "#en.wikipedia"},
		{"bracketed_unicode", "[東京]", TOKEN_BRACKETED, "東京"},
		{"unterminated", "[abc", TOKEN_ILLEGAL, "[abc"},
		{"ident", "Members", TOKEN_IDENT, "Members"},
		{"keyword_upper", "SELECT", TOKEN_SELECT, "SELECT"},
		{"keyword_mixed", "Columns", TOKEN_COLUMNS, "Columns"},
		{"number", "42", TOKEN_NUMBER, "42"},
		{"string_single", "'it''s'", TOKEN_STRING, "it's"},
		{"string_double", `"x"`, TOKEN_STRING, "x"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tok := NewLexer(tc.input).NextToken()
			assert.Equal(t, tc.wantType, tok.Type, "token type")
			assert.Equal(t, tc.wantLit, tok.Literal, "token literal")
		})
	}
}

func TestLexer_SkipsComments(t *testing.T) {
	input := "-- line\nSELECT // another\n/* block\n */ [m]"

	l := NewLexer(input)
	var types []TokenType
	for {
		tok := l.NextToken()
		types = append(types, tok.Type)
		if tok.Type == TOKEN_EOF {
			break
		}
	}
	assert.Equal(t, []TokenType{TOKEN_SELECT, TOKEN_BRACKETED, TOKEN_EOF}, types)
}

func TestLexer_Positions(t *testing.T) {
	l := NewLexer("SELECT  [a]")
	assert.Equal(t, 0, l.NextToken().Pos)
	assert.Equal(t, 8, l.NextToken().Pos)
	assert.Equal(t, 11, l.NextToken().Pos)
}

func TestTokenType_String(t *testing.T) {
	assert.Equal(t, "SELECT", TOKEN_SELECT.String())
	assert.Equal(t, "TOKEN(999)", TokenType(999).String())
}

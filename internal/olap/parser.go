package olap

import (
	"fmt"
	"strconv"
	"strings"
)

// Parser parses MDX into a Query.
type Parser struct {
	lexer  *Lexer
	token  Token // current token
	peek   Token // lookahead token
	errors []error

	lastBare bool // last name parsed by parseName had no brackets
}

// NewParser creates a new parser for the given MDX input.
func NewParser(mdx string) *Parser {
	p := &Parser{lexer: NewLexer(mdx)}
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses a single MDX SELECT statement.
func Parse(mdx string) (*Query, error) {
	mdx = strings.TrimSpace(mdx)
	if mdx == "" {
		return nil, fmt.Errorf("empty MDX")
	}

	p := NewParser(mdx)
	q := p.parseSelect()
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}
	p.match(TOKEN_SEMICOLON)
	if !p.check(TOKEN_EOF) {
		return nil, fmt.Errorf("parse error: unexpected %s after statement", p.token)
	}
	return q, nil
}

func (p *Parser) parseSelect() *Query {
	if !p.expect(TOKEN_SELECT) {
		return nil
	}

	q := &Query{}
	seen := map[int]bool{}
	for {
		axis, ok := p.parseAxis()
		if !ok {
			return nil
		}
		if seen[axis.Ordinal] {
			p.addError(fmt.Sprintf("axis %d appears more than once", axis.Ordinal))
			return nil
		}
		seen[axis.Ordinal] = true
		q.Axes = append(q.Axes, axis)
		if !p.match(TOKEN_COMMA) {
			break
		}
	}

	if !p.expect(TOKEN_FROM) {
		return nil
	}
	cube, ok := p.parseName()
	if !ok {
		p.addError(fmt.Sprintf("expected cube name, got %s", p.token))
		return nil
	}
	q.Cube = cube

	if p.match(TOKEN_WHERE) {
		slicer, ok := p.parsePrimary().(*TupleExpr)
		if !ok {
			p.addError("WHERE clause must be a member or a tuple")
			return nil
		}
		q.Slicer = slicer
	}
	return q
}

func (p *Parser) parseAxis() (AxisSpec, bool) {
	var axis AxisSpec
	if p.match(TOKEN_NON) {
		if !p.expect(TOKEN_EMPTY) {
			return axis, false
		}
		axis.NonEmpty = true
	}

	axis.Set = p.parseSet()
	if axis.Set == nil || !p.expect(TOKEN_ON) {
		return axis, false
	}

	switch {
	case p.match(TOKEN_COLUMNS):
		axis.Ordinal = 0
	case p.match(TOKEN_ROWS):
		axis.Ordinal = 1
	case p.match(TOKEN_PAGES):
		axis.Ordinal = 2
	case p.check(TOKEN_NUMBER):
		axis.Ordinal, _ = strconv.Atoi(p.token.Literal)
		p.nextToken()
	case p.match(TOKEN_AXIS):
		if !p.expect(TOKEN_LPAREN) {
			return axis, false
		}
		n, ok := p.parseInt()
		if !ok || !p.expect(TOKEN_RPAREN) {
			return axis, false
		}
		axis.Ordinal = n
	default:
		p.addError(fmt.Sprintf("expected axis name, got %s", p.token))
		return axis, false
	}
	return axis, true
}

// parseSet parses a set with the * cross join operator.
func (p *Parser) parseSet() SetExpr {
	left := p.parsePrimary()
	for left != nil && p.match(TOKEN_STAR) {
		right := p.parsePrimary()
		if right == nil {
			return nil
		}
		left = &CrossJoinExpr{Left: left, Right: right}
	}
	return left
}

func (p *Parser) parsePrimary() SetExpr {
	switch {
	case p.check(TOKEN_LBRACE):
		return p.parseSetLiteral()
	case p.check(TOKEN_LPAREN):
		return p.parseParenthesized()
	case p.check(TOKEN_IDENT) && p.checkPeek(TOKEN_LPAREN):
		return p.parseFunction()
	case p.check(TOKEN_IDENT), p.check(TOKEN_BRACKETED):
		return p.parsePath()
	default:
		p.addError(fmt.Sprintf("unexpected %s", p.token))
		return nil
	}
}

func (p *Parser) parseSetLiteral() SetExpr {
	p.nextToken() // skip {
	lit := &SetLiteral{}
	if p.match(TOKEN_RBRACE) {
		return lit
	}
	for {
		item := p.parseSet()
		if item == nil {
			return nil
		}
		lit.Items = append(lit.Items, item)
		if !p.match(TOKEN_COMMA) {
			break
		}
	}
	if !p.expect(TOKEN_RBRACE) {
		return nil
	}
	return lit
}

// parseParenthesized parses a tuple "(m1, m2)" or a grouped set "(set)".
func (p *Parser) parseParenthesized() SetExpr {
	p.nextToken() // skip (
	var items []SetExpr
	for {
		item := p.parseSet()
		if item == nil {
			return nil
		}
		items = append(items, item)
		if !p.match(TOKEN_COMMA) {
			break
		}
	}
	if !p.expect(TOKEN_RPAREN) {
		return nil
	}

	tuple := &TupleExpr{}
	for _, item := range items {
		t, ok := item.(*TupleExpr)
		if !ok || len(t.Members) != 1 {
			if len(items) == 1 {
				return item
			}
			p.addError("tuple elements must be members")
			return nil
		}
		tuple.Members = append(tuple.Members, t.Members[0])
	}
	return tuple
}

// parsePath parses a dotted name: a member reference or <path>.Members.
func (p *Parser) parsePath() SetExpr {
	var segments []string
	for {
		name, ok := p.parseName()
		if !ok {
			p.addError(fmt.Sprintf("expected name, got %s", p.token))
			return nil
		}
		if p.lastBare && strings.EqualFold(name, "Members") && len(segments) > 0 {
			return p.membersOf(segments)
		}
		segments = append(segments, name)
		if !p.match(TOKEN_DOT) {
			break
		}
	}
	return &TupleExpr{Members: []MemberRef{{Segments: segments}}}
}

func (p *Parser) membersOf(path []string) SetExpr {
	switch {
	case len(path) == 1:
		return &MembersExpr{Dimension: path[0]}
	case len(path) == 2 && strings.EqualFold(path[0], path[1]):
		return &MembersExpr{Dimension: path[0], Levels: true}
	default:
		p.addError(fmt.Sprintf("unsupported level path %s", joinPath(path)))
		return nil
	}
}

func (p *Parser) parseFunction() SetExpr {
	name := p.token.Literal
	p.nextToken() // name
	p.nextToken() // (

	var expr SetExpr
	switch strings.ToLower(name) {
	case "order":
		expr = p.parseOrder()
	case "topcount", "bottomcount":
		expr = p.parseTop(strings.EqualFold(name, "BottomCount"))
	case "head", "tail":
		expr = p.parseHead(strings.EqualFold(name, "Tail"))
	case "crossjoin":
		left := p.parseSet()
		if left == nil || !p.expect(TOKEN_COMMA) {
			return nil
		}
		right := p.parseSet()
		if right == nil {
			return nil
		}
		expr = &CrossJoinExpr{Left: left, Right: right}
	default:
		p.addError(fmt.Sprintf("unknown function %s", name))
		return nil
	}
	if expr == nil || !p.expect(TOKEN_RPAREN) {
		return nil
	}
	return expr
}

func (p *Parser) parseOrder() SetExpr {
	set := p.parseSet()
	if set == nil || !p.expect(TOKEN_COMMA) {
		return nil
	}
	by := p.parseValue()
	if by == nil {
		return nil
	}

	expr := &OrderExpr{Set: set, By: by, Flag: OrderAsc}
	if p.match(TOKEN_COMMA) {
		if !p.check(TOKEN_IDENT) {
			p.addError(fmt.Sprintf("expected order flag, got %s", p.token))
			return nil
		}
		switch strings.ToUpper(p.token.Literal) {
		case "ASC":
			expr.Flag = OrderAsc
		case "DESC":
			expr.Flag = OrderDesc
		case "BASC":
			expr.Flag = OrderBAsc
		case "BDESC":
			expr.Flag = OrderBDesc
		default:
			p.addError(fmt.Sprintf("unknown order flag %s", p.token.Literal))
			return nil
		}
		p.nextToken()
	}
	return expr
}

func (p *Parser) parseTop(bottom bool) SetExpr {
	set := p.parseSet()
	if set == nil || !p.expect(TOKEN_COMMA) {
		return nil
	}
	n, ok := p.parseInt()
	if !ok {
		return nil
	}
	expr := &TopExpr{Bottom: bottom, Set: set, Count: n}
	if p.match(TOKEN_COMMA) {
		if expr.By = p.parseValue(); expr.By == nil {
			return nil
		}
	}
	return expr
}

func (p *Parser) parseHead(tail bool) SetExpr {
	set := p.parseSet()
	if set == nil {
		return nil
	}
	expr := &HeadExpr{Tail: tail, Set: set, Count: 1}
	if p.match(TOKEN_COMMA) {
		n, ok := p.parseInt()
		if !ok {
			return nil
		}
		expr.Count = n
	}
	return expr
}

// parseValue parses the numeric expression of Order/TopCount, which must be
// a member or a tuple.
func (p *Parser) parseValue() *TupleExpr {
	v, ok := p.parsePrimary().(*TupleExpr)
	if !ok {
		if len(p.errors) == 0 {
			p.addError("sort value must be a member or a tuple")
		}
		return nil
	}
	return v
}

func (p *Parser) parseInt() (int, bool) {
	if !p.check(TOKEN_NUMBER) {
		p.addError(fmt.Sprintf("expected number, got %s", p.token))
		return 0, false
	}
	n, err := strconv.Atoi(p.token.Literal)
	if err != nil {
		p.addError(fmt.Sprintf("invalid number %s", p.token.Literal))
		return 0, false
	}
	p.nextToken()
	return n, true
}

// parseName consumes an identifier, keyword or bracketed name. lastBare
// records whether it was written without brackets.
func (p *Parser) parseName() (string, bool) {
	switch p.token.Type {
	case TOKEN_BRACKETED:
		p.lastBare = false
	case TOKEN_IDENT, TOKEN_COLUMNS, TOKEN_ROWS, TOKEN_PAGES, TOKEN_EMPTY, TOKEN_AXIS:
		p.lastBare = true
	default:
		return "", false
	}
	name := p.token.Literal
	p.nextToken()
	return name, true
}

// === Token Helpers ===

func (p *Parser) nextToken() {
	p.token = p.peek
	p.peek = p.lexer.NextToken()
}

func (p *Parser) check(t TokenType) bool {
	return p.token.Type == t
}

func (p *Parser) checkPeek(t TokenType) bool {
	return p.peek.Type == t
}

func (p *Parser) match(t TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

func (p *Parser) expect(t TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	p.addError(fmt.Sprintf("unexpected %s, expected %s", p.token, t))
	return false
}

func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, fmt.Errorf("parse error: %s", msg))
}

func joinPath(segments []string) string {
	parts := make([]string, len(segments))
	for i, s := range segments {
		parts[i] = "[" + s + "]"
	}
	return strings.Join(parts, ".")
}

package sqlgen

import (
	"fmt"
	"strconv"
	"strings"

	"dataagentjp.io/querycore/internal/domain"
)

// Parse inverts Render for the dialect-neutral form. Numeric literals
// decode as float64, scalar conditions carry their explicit operator,
// and BETWEEN bounds come back as an explicit time range, matching how
// the resolver builds ASTs in the first place.
func Parse(sql string) (*QueryAST, error) {
	tokens, err := lex(sql)
	if err != nil {
		return nil, fmt.Errorf("parse sql: %w", err)
	}
	p := &parser{tokens: tokens}
	ast, err := p.parseQuery()
	if err != nil {
		return nil, fmt.Errorf("parse sql: %w", err)
	}
	return ast, nil
}

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokString
	tokNumber
	tokOp
	tokLParen
	tokRParen
	tokComma
	tokStar
)

type token struct {
	kind tokenKind
	text string
}

func lex(sql string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(sql) {
		c := sql[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '\'':
			value, next, err := lexString(sql, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{tokString, value})
			i = next
		case c == '(':
			tokens = append(tokens, token{tokLParen, "("})
			i++
		case c == ')':
			tokens = append(tokens, token{tokRParen, ")"})
			i++
		case c == ',':
			tokens = append(tokens, token{tokComma, ","})
			i++
		case c == '*':
			tokens = append(tokens, token{tokStar, "*"})
			i++
		case c == '<' || c == '>' || c == '=' || c == '!':
			op := lexOp(sql, i)
			tokens = append(tokens, token{tokOp, op})
			i += len(op)
		case c == '-' || isDigit(c):
			text, next := lexNumber(sql, i)
			tokens = append(tokens, token{tokNumber, text})
			i = next
		case isIdentStart(c):
			text, next := lexIdent(sql, i)
			tokens = append(tokens, token{tokIdent, text})
			i = next
		default:
			return nil, fmt.Errorf("unexpected character %q at offset %d", c, i)
		}
	}
	return tokens, nil
}

func lexString(sql string, start int) (string, int, error) {
	var b strings.Builder
	i := start + 1
	for i < len(sql) {
		if sql[i] == '\'' {
			if i+1 < len(sql) && sql[i+1] == '\'' {
				b.WriteByte('\'')
				i += 2
				continue
			}
			return b.String(), i + 1, nil
		}
		b.WriteByte(sql[i])
		i++
	}
	return "", 0, fmt.Errorf("unterminated string literal at offset %d", start)
}

func lexOp(sql string, i int) string {
	if i+1 < len(sql) {
		switch sql[i : i+2] {
		case ">=", "<=", "!=", "<>":
			return sql[i : i+2]
		}
	}
	return sql[i : i+1]
}

func lexNumber(sql string, start int) (string, int) {
	i := start
	if sql[i] == '-' {
		i++
	}
	for i < len(sql) && (isDigit(sql[i]) || sql[i] == '.') {
		i++
	}
	return sql[start:i], i
}

func lexIdent(sql string, start int) (string, int) {
	i := start
	for i < len(sql) && isIdentChar(sql[i]) {
		i++
	}
	return sql[start:i], i
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isIdentChar(c byte) bool { return isIdentStart(c) || isDigit(c) || c == '.' }

func isAggregate(text string) bool {
	switch strings.ToUpper(text) {
	case "SUM", "AVG", "COUNT", "MIN", "MAX":
		return true
	}
	return false
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) next() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	tok := p.tokens[p.pos]
	p.pos++
	return tok, true
}

func (p *parser) peekKind(kind tokenKind) bool {
	return p.pos < len(p.tokens) && p.tokens[p.pos].kind == kind
}

// consumeKeyword advances past the given keyword if it is next.
func (p *parser) consumeKeyword(keyword string) bool {
	if p.pos < len(p.tokens) &&
		p.tokens[p.pos].kind == tokIdent &&
		strings.EqualFold(p.tokens[p.pos].text, keyword) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expectKeyword(keyword string) error {
	if !p.consumeKeyword(keyword) {
		return fmt.Errorf("expected %s near %s", keyword, p.around())
	}
	return nil
}

func (p *parser) expectKind(kind tokenKind, what string) error {
	if !p.peekKind(kind) {
		return fmt.Errorf("expected %s near %s", what, p.around())
	}
	p.pos++
	return nil
}

func (p *parser) expectIdent() (string, error) {
	if !p.peekKind(tokIdent) {
		return "", fmt.Errorf("expected identifier near %s", p.around())
	}
	tok := p.tokens[p.pos]
	p.pos++
	return tok.text, nil
}

func (p *parser) expectString() (string, error) {
	if !p.peekKind(tokString) {
		return "", fmt.Errorf("expected string literal near %s", p.around())
	}
	tok := p.tokens[p.pos]
	p.pos++
	return tok.text, nil
}

func (p *parser) expectInt() (int, error) {
	if !p.peekKind(tokNumber) {
		return 0, fmt.Errorf("expected number near %s", p.around())
	}
	tok := p.tokens[p.pos]
	p.pos++
	n, err := strconv.Atoi(tok.text)
	if err != nil {
		return 0, fmt.Errorf("bad integer literal %q", tok.text)
	}
	return n, nil
}

func (p *parser) around() string {
	if p.pos >= len(p.tokens) {
		return "end of input"
	}
	return fmt.Sprintf("%q", p.tokens[p.pos].text)
}

func (p *parser) parseQuery() (*QueryAST, error) {
	if err := p.expectKeyword("SELECT"); err != nil {
		return nil, err
	}
	ast := &QueryAST{}

	sel, err := p.parseSelectList()
	if err != nil {
		return nil, err
	}
	ast.Select = sel

	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	ast.Source = Source{Table: table}

	for p.pos < len(p.tokens) {
		switch {
		case p.consumeKeyword("WHERE"):
			if ast.Where, err = p.parseConditions(); err != nil {
				return nil, err
			}
		case p.consumeKeyword("GROUP"):
			if err := p.expectKeyword("BY"); err != nil {
				return nil, err
			}
			if ast.GroupBy, err = p.parseIdentList(); err != nil {
				return nil, err
			}
		case p.consumeKeyword("ORDER"):
			if err := p.expectKeyword("BY"); err != nil {
				return nil, err
			}
			if ast.OrderBy, err = p.parseOrderList(); err != nil {
				return nil, err
			}
		case p.consumeKeyword("LIMIT"):
			if ast.Limit, err = p.expectInt(); err != nil {
				return nil, err
			}
		case p.consumeKeyword("OFFSET"):
			if ast.Offset, err = p.expectInt(); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("unexpected trailing input near %s", p.around())
		}
	}
	return ast, nil
}

func (p *parser) parseSelectList() ([]SelectExpr, error) {
	var list []SelectExpr
	for {
		expr, err := p.parseSelectExpr()
		if err != nil {
			return nil, err
		}
		list = append(list, expr)
		if !p.peekKind(tokComma) {
			return list, nil
		}
		p.pos++
	}
}

func (p *parser) parseSelectExpr() (SelectExpr, error) {
	tok, ok := p.next()
	if !ok {
		return SelectExpr{}, fmt.Errorf("unexpected end of select list")
	}

	var expr SelectExpr
	switch {
	case tok.kind == tokStar:
		expr.Column = "*"
	case tok.kind == tokIdent && isAggregate(tok.text) && p.peekKind(tokLParen):
		p.pos++
		column, err := p.parseAggColumn()
		if err != nil {
			return SelectExpr{}, err
		}
		if err := p.expectKind(tokRParen, ")"); err != nil {
			return SelectExpr{}, err
		}
		expr = SelectExpr{Column: column, Aggregate: strings.ToUpper(tok.text)}
	case tok.kind == tokIdent:
		expr.Column = tok.text
	default:
		return SelectExpr{}, fmt.Errorf("unexpected token %q in select list", tok.text)
	}

	if p.consumeKeyword("AS") {
		alias, err := p.expectIdent()
		if err != nil {
			return SelectExpr{}, err
		}
		expr.Alias = alias
	}
	return expr, nil
}

func (p *parser) parseAggColumn() (string, error) {
	if p.peekKind(tokStar) {
		p.pos++
		return "*", nil
	}
	return p.expectIdent()
}

func (p *parser) parseConditions() ([]Condition, error) {
	var conds []Condition
	for {
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
		if !p.consumeKeyword("AND") {
			return conds, nil
		}
	}
}

func (p *parser) parseCondition() (Condition, error) {
	column, err := p.expectIdent()
	if err != nil {
		return Condition{}, err
	}

	if p.consumeKeyword("IN") {
		if err := p.expectKind(tokLParen, "("); err != nil {
			return Condition{}, err
		}
		var items []any
		for {
			item, err := p.parseLiteral()
			if err != nil {
				return Condition{}, err
			}
			items = append(items, item)
			if !p.peekKind(tokComma) {
				break
			}
			p.pos++
		}
		if err := p.expectKind(tokRParen, ")"); err != nil {
			return Condition{}, err
		}
		return Condition{Column: column, Value: domain.ListValue(items)}, nil
	}

	if p.consumeKeyword("BETWEEN") {
		start, err := p.expectString()
		if err != nil {
			return Condition{}, err
		}
		if err := p.expectKeyword("AND"); err != nil {
			return Condition{}, err
		}
		end, err := p.expectString()
		if err != nil {
			return Condition{}, err
		}
		return Condition{
			Column: column,
			Value:  domain.TimeRangeValue(&domain.TimeRange{Start: start, End: end}),
		}, nil
	}

	op, err := p.parseOperator(column)
	if err != nil {
		return Condition{}, err
	}
	value, err := p.parseLiteral()
	if err != nil {
		return Condition{}, err
	}
	return Condition{Column: column, Operator: op, Value: domain.ScalarValue(value)}, nil
}

func (p *parser) parseOperator(column string) (string, error) {
	tok, ok := p.next()
	switch {
	case ok && tok.kind == tokOp:
		return tok.text, nil
	case ok && tok.kind == tokIdent && strings.EqualFold(tok.text, "LIKE"):
		return "LIKE", nil
	default:
		return "", fmt.Errorf("expected operator after column %s", column)
	}
}

func (p *parser) parseLiteral() (any, error) {
	tok, ok := p.next()
	if !ok {
		return nil, fmt.Errorf("expected literal at end of input")
	}
	switch tok.kind {
	case tokString:
		return tok.text, nil
	case tokNumber:
		f, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, fmt.Errorf("bad numeric literal %q", tok.text)
		}
		return f, nil
	case tokIdent:
		switch strings.ToUpper(tok.text) {
		case "TRUE":
			return true, nil
		case "FALSE":
			return false, nil
		case "NULL":
			return nil, nil
		}
	}
	return nil, fmt.Errorf("unexpected literal %q", tok.text)
}

func (p *parser) parseIdentList() ([]string, error) {
	var list []string
	for {
		ident, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		list = append(list, ident)
		if !p.peekKind(tokComma) {
			return list, nil
		}
		p.pos++
	}
}

func (p *parser) parseOrderList() ([]OrderBy, error) {
	var list []OrderBy
	for {
		column, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		term := OrderBy{Column: column}
		if p.consumeKeyword("DESC") {
			term.Desc = true
		} else {
			p.consumeKeyword("ASC")
		}
		list = append(list, term)
		if !p.peekKind(tokComma) {
			return list, nil
		}
		p.pos++
	}
}

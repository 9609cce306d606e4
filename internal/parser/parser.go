// internal/parser/parser.go
package parser

import (
	"fmt"

	"kaleido/internal/errors"
	"kaleido/internal/lexer"
)

// Fixed binary operator precedence. '-' outranks '+' deliberately; programs
// in the language are documented against this table, so changing it would
// change their results.
var binopPrecedence = map[byte]int{
	'<': 10,
	'+': 20,
	'-': 30,
	'*': 40,
}

// Parser consumes the scanner's token stream and builds AST nodes. It never
// recovers from a failure itself; resynchronization is the driver's job.
type Parser struct {
	s *lexer.Scanner
}

func NewParser(s *lexer.Scanner) *Parser {
	return &Parser{s: s}
}

// ParseDefinition parses 'def' prototype expression. The current token must
// be the def keyword.
func (p *Parser) ParseDefinition() (*Function, error) {
	p.s.Advance() // eat 'def'
	proto, err := p.parsePrototype()
	if err != nil {
		return nil, err
	}
	body, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &Function{Proto: proto, Body: body}, nil
}

// ParseExtern parses 'extern' prototype. The current token must be the
// extern keyword.
func (p *Parser) ParseExtern() (*Prototype, error) {
	p.s.Advance() // eat 'extern'
	return p.parsePrototype()
}

// ParseTopLevel parses a bare expression and wraps it in an anonymous
// nullary definition so it rides the same pipeline as named functions.
func (p *Parser) ParseTopLevel() (*Function, error) {
	body, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	proto := &Prototype{Name: AnonName}
	return &Function{Proto: proto, Body: body}, nil
}

// expression := primary binopRHS*
func (p *Parser) parseExpression() (Expr, error) {
	lhs, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return p.parseBinOpRHS(0, lhs)
}

// parseBinOpRHS climbs operator precedence: it keeps folding operators into
// lhs as long as they bind at least as tightly as minPrec. When the operator
// after the parsed right-hand side binds tighter than the one just consumed,
// the right-hand side absorbs it first; equal precedence folds left.
func (p *Parser) parseBinOpRHS(minPrec int, lhs Expr) (Expr, error) {
	for {
		prec := p.tokenPrecedence()
		if prec < minPrec {
			return lhs, nil
		}

		op := p.s.Current().Punct()
		p.s.Advance() // eat operator

		rhs, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}

		if prec < p.tokenPrecedence() {
			rhs, err = p.parseBinOpRHS(prec+1, rhs)
			if err != nil {
				return nil, err
			}
		}

		lhs = &BinaryExpr{Op: op, Left: lhs, Right: rhs}
	}
}

// tokenPrecedence returns the binding strength of the current token, or -1
// if it is not a known binary operator.
func (p *Parser) tokenPrecedence() int {
	tok := p.s.Current()
	if tok.Type != lexer.TokenPunct {
		return -1
	}
	prec, ok := binopPrecedence[tok.Punct()]
	if !ok {
		return -1
	}
	return prec
}

// primary := number | identifier ['(' argList ')'] | '(' expression ')'
func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.s.Current()
	switch tok.Type {
	case lexer.TokenNumber:
		return p.parseNumber(), nil
	case lexer.TokenIdent:
		return p.parseIdentifier()
	case lexer.TokenPunct:
		if tok.Punct() == '(' {
			return p.parseParen()
		}
	}
	return nil, p.syntaxError("unknown token when expecting an expression")
}

func (p *Parser) parseNumber() Expr {
	n := &NumberExpr{Value: p.s.CurrentValue()}
	p.s.Advance() // eat number
	return n
}

// parenexpr := '(' expression ')'
func (p *Parser) parseParen() (Expr, error) {
	p.s.Advance() // eat '('
	e, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if !p.isPunct(')') {
		return nil, p.syntaxError("expected ')'")
	}
	p.s.Advance() // eat ')'
	return e, nil
}

// identifierexpr := identifier | identifier '(' argList ')'
func (p *Parser) parseIdentifier() (Expr, error) {
	name := p.s.CurrentText()
	p.s.Advance() // eat identifier

	if !p.isPunct('(') {
		return &VariableExpr{Name: name}, nil
	}

	p.s.Advance() // eat '('
	var args []Expr
	if !p.isPunct(')') {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)

			if p.isPunct(')') {
				break
			}
			if !p.isPunct(',') {
				return nil, p.syntaxError("expected ')' or ',' in argument list")
			}
			p.s.Advance() // eat ','
		}
	}
	p.s.Advance() // eat ')'

	return &CallExpr{Callee: name, Args: args}, nil
}

// prototype := identifier '(' identifier* ')'
func (p *Parser) parsePrototype() (*Prototype, error) {
	if p.s.Current().Type != lexer.TokenIdent {
		return nil, p.syntaxError("expected function name in prototype")
	}
	name := p.s.CurrentText()
	p.s.Advance() // eat name

	if !p.isPunct('(') {
		return nil, p.syntaxError("expected '(' in prototype")
	}

	var params []string
	for p.s.Advance().Type == lexer.TokenIdent {
		params = append(params, p.s.CurrentText())
	}
	if !p.isPunct(')') {
		return nil, p.syntaxError("expected ')' in prototype")
	}
	p.s.Advance() // eat ')'

	return &Prototype{Name: name, Params: params}, nil
}

func (p *Parser) isPunct(c byte) bool {
	tok := p.s.Current()
	return tok.Type == lexer.TokenPunct && tok.Punct() == c
}

func (p *Parser) syntaxError(msg string) error {
	tok := p.s.Current()
	if tok.Type != lexer.TokenEOF {
		msg = fmt.Sprintf("%s, found %s", msg, tok)
	}
	return errors.NewSyntaxError(msg, tok.Line)
}

package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xirelogy/go-lox/internal/ast"
	"github.com/xirelogy/go-lox/internal/scanner"
	"github.com/xirelogy/go-lox/internal/token"
)

// Error is a single syntax diagnostic.
type Error struct {
	Line    int
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("[line %d] Error: %s", e.Line, e.Message)
}

// ErrorList collects every diagnostic found in one parse.
type ErrorList []Error

func (el ErrorList) Error() string {
	msgs := make([]string, len(el))
	for i, e := range el {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

// Parser builds a syntax tree by recursive descent. It recovers at
// statement boundaries so one pass can report several errors.
type Parser struct {
	sc        *scanner.Scanner
	cur       token.Token
	prev      token.Token
	errors    []Error
	panicMode bool
	repl      bool
}

// New creates a parser over the given source text.
func New(src string) *Parser {
	p := &Parser{sc: scanner.New(src)}
	p.advance()
	return p
}

// SetReplMode changes how a trailing expression without a semicolon is
// handled: instead of being a syntax error it becomes a print statement.
func (p *Parser) SetReplMode(on bool) {
	p.repl = on
}

// Parse consumes the whole input. On any syntax error the program is nil
// and every collected diagnostic is returned.
func (p *Parser) Parse() ([]ast.Stmt, ErrorList) {
	var program []ast.Stmt
	for !p.match(token.EOF) {
		if stmt := p.declaration(); stmt != nil {
			program = append(program, stmt)
		}
	}
	if len(p.errors) > 0 {
		return nil, ErrorList(p.errors)
	}
	return program, nil
}

func (p *Parser) advance() {
	p.prev = p.cur
	for {
		p.cur = p.sc.NextToken()
		if p.cur.Kind != token.Illegal {
			return
		}
		p.errorAtCurrent(p.cur.Lexeme)
	}
}

func (p *Parser) consume(kind token.Kind, msg string) {
	if p.cur.Kind == kind {
		p.advance()
		return
	}
	p.errorAtCurrent(msg)
}

func (p *Parser) check(kind token.Kind) bool {
	return p.cur.Kind == kind
}

func (p *Parser) match(kind token.Kind) bool {
	if !p.check(kind) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) errorAtCurrent(msg string) {
	p.errorAt(p.cur, msg)
}

func (p *Parser) errorAtPrev(msg string) {
	p.errorAt(p.prev, msg)
}

func (p *Parser) errorAt(tok token.Token, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	switch tok.Kind {
	case token.EOF:
		msg = "at end: " + msg
	case token.Illegal:
		// the message already describes the lexical problem
	default:
		msg = fmt.Sprintf("at '%s': %s", tok.Lexeme, msg)
	}
	p.errors = append(p.errors, Error{Line: tok.Line, Message: msg})
}

func (p *Parser) synchronize() {
	p.panicMode = false
	for p.cur.Kind != token.EOF {
		if p.prev.Kind == token.Semicolon {
			return
		}
		switch p.cur.Kind {
		case token.Class, token.Fun, token.Var, token.For,
			token.If, token.While, token.Print, token.Return:
			return
		}
		p.advance()
	}
}

// declarations

func (p *Parser) declaration() ast.Stmt {
	var stmt ast.Stmt
	switch {
	case p.match(token.Class):
		p.errorAtPrev("classes are not supported")
	case p.match(token.Fun):
		stmt = p.funDeclaration()
	case p.match(token.Var):
		stmt = p.varDeclaration()
	default:
		stmt = p.statement()
	}
	if p.panicMode {
		p.synchronize()
		return nil
	}
	return stmt
}

func (p *Parser) varDeclaration() ast.Stmt {
	line := p.prev.Line
	p.consume(token.Identifier, "expect variable name")
	name := p.prev.Lexeme
	var init ast.Expr
	if p.match(token.Equal) {
		init = p.expression()
	}
	p.consume(token.Semicolon, "expect ';' after variable declaration")
	return &ast.VarDecl{Line: line, Name: name, Init: init}
}

func (p *Parser) funDeclaration() ast.Stmt {
	line := p.prev.Line
	p.consume(token.Identifier, "expect function name")
	name := p.prev.Lexeme

	p.consume(token.LParen, "expect '(' after function name")
	var params []string
	if !p.check(token.RParen) {
		for {
			if len(params) >= 255 {
				p.errorAtCurrent("can't have more than 255 parameters")
			}
			p.consume(token.Identifier, "expect parameter name")
			params = append(params, p.prev.Lexeme)
			if !p.match(token.Comma) {
				break
			}
		}
	}
	p.consume(token.RParen, "expect ')' after parameters")
	p.consume(token.LBrace, "expect '{' before function body")
	body := p.blockStmts()
	return &ast.FunDecl{Line: line, Name: name, Params: params, Body: body}
}

// statements

func (p *Parser) statement() ast.Stmt {
	switch {
	case p.match(token.Print):
		return p.printStatement()
	case p.match(token.If):
		return p.ifStatement()
	case p.match(token.While):
		return p.whileStatement()
	case p.match(token.For):
		return p.forStatement()
	case p.match(token.Return):
		return p.returnStatement()
	case p.match(token.LBrace):
		line := p.prev.Line
		return &ast.Block{Line: line, Stmts: p.blockStmts()}
	default:
		return p.expressionStatement()
	}
}

func (p *Parser) blockStmts() []ast.Stmt {
	var stmts []ast.Stmt
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		if stmt := p.declaration(); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	p.consume(token.RBrace, "expect '}' after block")
	return stmts
}

func (p *Parser) printStatement() ast.Stmt {
	line := p.prev.Line
	e := p.expression()
	p.consume(token.Semicolon, "expect ';' after value")
	return &ast.PrintStmt{Line: line, E: e}
}

func (p *Parser) expressionStatement() ast.Stmt {
	line := p.cur.Line
	e := p.expression()
	if p.repl && p.check(token.EOF) {
		// interactive convenience: a trailing expression without a
		// semicolon has its value printed
		return &ast.PrintStmt{Line: line, E: e}
	}
	p.consume(token.Semicolon, "expect ';' after expression")
	return &ast.ExprStmt{Line: line, E: e}
}

func (p *Parser) ifStatement() ast.Stmt {
	line := p.prev.Line
	p.consume(token.LParen, "expect '(' after 'if'")
	cond := p.expression()
	p.consume(token.RParen, "expect ')' after condition")
	then := p.statement()
	var elseStmt ast.Stmt
	if p.match(token.Else) {
		elseStmt = p.statement()
	}
	return &ast.IfStmt{Line: line, Cond: cond, Then: then, Else: elseStmt}
}

func (p *Parser) whileStatement() ast.Stmt {
	line := p.prev.Line
	p.consume(token.LParen, "expect '(' after 'while'")
	cond := p.expression()
	p.consume(token.RParen, "expect ')' after condition")
	body := p.statement()
	return &ast.WhileStmt{Line: line, Cond: cond, Body: body}
}

// forStatement desugars into blocks and a while loop so the evaluator
// never sees a dedicated for node.
func (p *Parser) forStatement() ast.Stmt {
	line := p.prev.Line
	p.consume(token.LParen, "expect '(' after 'for'")

	var init ast.Stmt
	switch {
	case p.match(token.Semicolon):
		// no initializer
	case p.match(token.Var):
		init = p.varDeclaration()
	default:
		e := p.expression()
		p.consume(token.Semicolon, "expect ';' after loop initializer")
		init = &ast.ExprStmt{Line: line, E: e}
	}

	var cond ast.Expr
	if !p.check(token.Semicolon) {
		cond = p.expression()
	}
	p.consume(token.Semicolon, "expect ';' after loop condition")

	var incr ast.Expr
	if !p.check(token.RParen) {
		incr = p.expression()
	}
	p.consume(token.RParen, "expect ')' after for clauses")

	body := p.statement()

	if incr != nil {
		body = &ast.Block{Line: line, Stmts: []ast.Stmt{
			body,
			&ast.ExprStmt{Line: incr.StartLine(), E: incr},
		}}
	}
	if cond == nil {
		cond = &ast.Literal{Line: line, Kind: token.True}
	}
	var loop ast.Stmt = &ast.WhileStmt{Line: line, Cond: cond, Body: body}
	if init != nil {
		loop = &ast.Block{Line: line, Stmts: []ast.Stmt{init, loop}}
	}
	return loop
}

func (p *Parser) returnStatement() ast.Stmt {
	line := p.prev.Line
	var value ast.Expr
	if !p.check(token.Semicolon) {
		value = p.expression()
	}
	p.consume(token.Semicolon, "expect ';' after return value")
	return &ast.ReturnStmt{Line: line, Value: value}
}

// expressions, by descending precedence

func (p *Parser) expression() ast.Expr {
	return p.assignment()
}

func (p *Parser) assignment() ast.Expr {
	expr := p.or()
	if p.match(token.Equal) {
		eq := p.prev
		value := p.assignment()
		if v, ok := expr.(*ast.Variable); ok {
			return &ast.Assign{Line: v.Line, Name: v.Name, Value: value, Depth: -1}
		}
		p.errorAt(eq, "invalid assignment target")
	}
	return expr
}

func (p *Parser) or() ast.Expr {
	expr := p.and()
	for p.match(token.Or) {
		line := p.prev.Line
		right := p.and()
		expr = &ast.Logical{Line: line, Op: token.Or, Left: expr, Right: right}
	}
	return expr
}

func (p *Parser) and() ast.Expr {
	expr := p.equality()
	for p.match(token.And) {
		line := p.prev.Line
		right := p.equality()
		expr = &ast.Logical{Line: line, Op: token.And, Left: expr, Right: right}
	}
	return expr
}

func (p *Parser) equality() ast.Expr {
	expr := p.comparison()
	for p.check(token.EqualEqual) || p.check(token.BangEqual) {
		p.advance()
		op := p.prev.Kind
		line := p.prev.Line
		right := p.comparison()
		expr = &ast.Binary{Line: line, Op: op, Left: expr, Right: right}
	}
	return expr
}

func (p *Parser) comparison() ast.Expr {
	expr := p.term()
	for p.check(token.Greater) || p.check(token.GreaterEqual) ||
		p.check(token.Less) || p.check(token.LessEqual) {
		p.advance()
		op := p.prev.Kind
		line := p.prev.Line
		right := p.term()
		expr = &ast.Binary{Line: line, Op: op, Left: expr, Right: right}
	}
	return expr
}

func (p *Parser) term() ast.Expr {
	expr := p.factor()
	for p.check(token.Plus) || p.check(token.Minus) {
		p.advance()
		op := p.prev.Kind
		line := p.prev.Line
		right := p.factor()
		expr = &ast.Binary{Line: line, Op: op, Left: expr, Right: right}
	}
	return expr
}

func (p *Parser) factor() ast.Expr {
	expr := p.unary()
	for p.check(token.Star) || p.check(token.Slash) {
		p.advance()
		op := p.prev.Kind
		line := p.prev.Line
		right := p.unary()
		expr = &ast.Binary{Line: line, Op: op, Left: expr, Right: right}
	}
	return expr
}

func (p *Parser) unary() ast.Expr {
	if p.match(token.Bang) || p.match(token.Minus) || p.match(token.Typeof) {
		op := p.prev.Kind
		line := p.prev.Line
		operand := p.unary()
		return &ast.Unary{Line: line, Op: op, Operand: operand}
	}
	return p.callExpr()
}

func (p *Parser) callExpr() ast.Expr {
	expr := p.primary()
	for p.match(token.LParen) {
		line := p.prev.Line
		var args []ast.Expr
		if !p.check(token.RParen) {
			for {
				if len(args) >= 255 {
					p.errorAtCurrent("can't have more than 255 arguments")
				}
				args = append(args, p.expression())
				if !p.match(token.Comma) {
					break
				}
			}
		}
		p.consume(token.RParen, "expect ')' after arguments")
		expr = &ast.Call{Line: line, Callee: expr, Args: args}
	}
	return expr
}

func (p *Parser) primary() ast.Expr {
	switch {
	case p.match(token.Number):
		f, err := strconv.ParseFloat(p.prev.Lexeme, 64)
		if err != nil {
			p.errorAtPrev("invalid number literal")
		}
		return &ast.Literal{Line: p.prev.Line, Kind: token.Number, Num: f}
	case p.match(token.String):
		return &ast.Literal{Line: p.prev.Line, Kind: token.String, Str: p.prev.Lexeme}
	case p.match(token.True), p.match(token.False), p.match(token.Nil):
		return &ast.Literal{Line: p.prev.Line, Kind: p.prev.Kind}
	case p.match(token.Identifier):
		return &ast.Variable{Line: p.prev.Line, Name: p.prev.Lexeme, Depth: -1}
	case p.match(token.LParen):
		line := p.prev.Line
		inner := p.expression()
		p.consume(token.RParen, "expect ')' after expression")
		return &ast.Grouping{Line: line, Inner: inner}
	case p.match(token.This), p.match(token.Super):
		p.errorAtPrev(fmt.Sprintf("'%s' is not supported", p.prev.Lexeme))
		return &ast.Literal{Line: p.prev.Line, Kind: token.Nil}
	default:
		p.errorAtCurrent("expect expression")
		return &ast.Literal{Line: p.cur.Line, Kind: token.Nil}
	}
}

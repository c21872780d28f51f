package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xirelogy/go-lox/internal/bytecode"
	"github.com/xirelogy/go-lox/internal/scanner"
	"github.com/xirelogy/go-lox/internal/token"
)

// Error is a single compile-time diagnostic.
type Error struct {
	Line    int
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("[line %d] Error: %s", e.Line, e.Message)
}

// ErrorList collects every diagnostic found in one compile.
type ErrorList []Error

func (el ErrorList) Error() string {
	msgs := make([]string, len(el))
	for i, e := range el {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

const (
	maxArgs       = 255
	maxConstIdx   = 0xffff
	maxJumpTarget = 0xffff
)

// Compiler is a single-pass compiler from source text to bytecode. It
// consumes tokens directly from the scanner and emits instructions as it
// parses, with one funcCompiler per lexically nested function.
type Compiler struct {
	sc        *scanner.Scanner
	cur       token.Token
	prev      token.Token
	errors    []Error
	panicMode bool
	fc        *funcCompiler
	source    string
	repl      bool
}

// New creates a compiler for the given source text. The name labels the
// compilation unit in diagnostics and disassembly.
func New(src, name string) *Compiler {
	c := &Compiler{
		sc:     scanner.New(src),
		source: name,
	}
	c.advance()
	return c
}

// SetReplMode changes how a trailing expression without a semicolon is
// handled: instead of being a syntax error, its value is printed.
func (c *Compiler) SetReplMode(on bool) {
	c.repl = on
}

// Compile runs the whole input and returns the top-level prototype. On
// any syntax error the prototype is nil and every collected diagnostic
// is returned; recovery resumes at statement boundaries so one pass can
// report multiple errors.
func (c *Compiler) Compile() (*bytecode.Prototype, ErrorList) {
	c.fc = newFuncCompiler(nil, "", kindScript, c.source)
	for !c.match(token.EOF) {
		c.declaration()
	}
	proto := c.endFunction()
	if len(c.errors) > 0 {
		return nil, ErrorList(c.errors)
	}
	return proto, nil
}

// token plumbing

func (c *Compiler) advance() {
	c.prev = c.cur
	for {
		c.cur = c.sc.NextToken()
		if c.cur.Kind != token.Illegal {
			return
		}
		c.errorAtCurrent(c.cur.Lexeme)
	}
}

func (c *Compiler) consume(kind token.Kind, msg string) {
	if c.cur.Kind == kind {
		c.advance()
		return
	}
	c.errorAtCurrent(msg)
}

func (c *Compiler) check(kind token.Kind) bool {
	return c.cur.Kind == kind
}

func (c *Compiler) match(kind token.Kind) bool {
	if !c.check(kind) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) errorAtCurrent(msg string) {
	c.errorAt(c.cur, msg)
}

func (c *Compiler) errorAtPrev(msg string) {
	c.errorAt(c.prev, msg)
}

func (c *Compiler) errorAt(tok token.Token, msg string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	switch tok.Kind {
	case token.EOF:
		msg = "at end: " + msg
	case token.Illegal:
		// the message already describes the lexical problem
	default:
		msg = fmt.Sprintf("at '%s': %s", tok.Lexeme, msg)
	}
	c.errors = append(c.errors, Error{Line: tok.Line, Message: msg})
}

// synchronize discards tokens until a likely statement boundary so the
// parse can continue and report further errors.
func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.cur.Kind != token.EOF {
		if c.prev.Kind == token.Semicolon {
			return
		}
		switch c.cur.Kind {
		case token.Class, token.Fun, token.Var, token.For,
			token.If, token.While, token.Print, token.Return:
			return
		}
		c.advance()
	}
}

// emission helpers

func (c *Compiler) chunk() *bytecode.Chunk {
	return c.fc.proto.Chunk
}

func (c *Compiler) emit(bs ...byte) {
	c.chunk().Write(c.prev.Line, bs...)
}

func (c *Compiler) makeConst(v bytecode.Const) (byte, byte) {
	idx := c.chunk().AddConst(v)
	if idx > maxConstIdx {
		c.errorAtPrev("too many constants in one chunk")
		idx = 0
	}
	return byte(idx >> 8), byte(idx & 0xff)
}

func (c *Compiler) emitConst(v bytecode.Const) {
	hi, lo := c.makeConst(v)
	c.emit(bytecode.OP_CONST, hi, lo)
}

// emitJump writes a jump with a placeholder target and returns the
// operand offset for later patching.
func (c *Compiler) emitJump(op byte) int {
	c.emit(op, 0xff, 0xff)
	return len(c.chunk().Code) - 2
}

// patchJump resolves a forward jump to the current end of the chunk.
// Targets are absolute code offsets.
func (c *Compiler) patchJump(operandPos int) {
	target := len(c.chunk().Code)
	if target > maxJumpTarget {
		c.errorAtPrev("too much code to jump over")
		target = 0
	}
	c.chunk().Code[operandPos] = byte(target >> 8)
	c.chunk().Code[operandPos+1] = byte(target & 0xff)
}

func (c *Compiler) emitLoop(target int) {
	if target > maxJumpTarget {
		c.errorAtPrev("loop body too large")
		target = 0
	}
	c.emit(bytecode.OP_LOOP, byte(target>>8), byte(target&0xff))
}

func (c *Compiler) emitReturn() {
	c.emit(bytecode.OP_NIL, bytecode.OP_RETURN)
}

func (c *Compiler) endFunction() *bytecode.Prototype {
	c.emitReturn()
	proto := c.fc.proto
	c.fc = c.fc.enclosing
	return proto
}

// declarations

func (c *Compiler) declaration() {
	switch {
	case c.match(token.Class):
		c.errorAtPrev("classes are not supported")
	case c.match(token.Fun):
		c.funDeclaration()
	case c.match(token.Var):
		c.varDeclaration()
	default:
		c.statement()
	}
	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) varDeclaration() {
	hi, lo := c.parseVariable("expect variable name")
	if c.match(token.Equal) {
		c.expression()
	} else {
		c.emit(bytecode.OP_NIL)
	}
	c.consume(token.Semicolon, "expect ';' after variable declaration")
	c.defineVariable(hi, lo)
}

// parseVariable consumes an identifier and declares it. For globals the
// returned bytes index the name constant; for locals they are unused.
func (c *Compiler) parseVariable(msg string) (byte, byte) {
	c.consume(token.Identifier, msg)
	c.declareVariable()
	if c.fc.scopeDepth > 0 {
		return 0, 0
	}
	return c.makeConst(c.prev.Lexeme)
}

func (c *Compiler) declareVariable() {
	fc := c.fc
	if fc.scopeDepth == 0 {
		return
	}
	name := c.prev.Lexeme
	for i := len(fc.locals) - 1; i >= 0; i-- {
		l := &fc.locals[i]
		if l.depth != -1 && l.depth < fc.scopeDepth {
			break
		}
		if l.name == name {
			c.errorAtPrev("already a variable with this name in this scope")
		}
	}
	c.addLocal(name)
}

func (c *Compiler) defineVariable(hi, lo byte) {
	if c.fc.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emit(bytecode.OP_DEFINE_GLOBAL, hi, lo)
}

func (c *Compiler) funDeclaration() {
	hi, lo := c.parseVariable("expect function name")
	name := c.prev.Lexeme
	c.markInitialized()
	c.function(name)
	c.defineVariable(hi, lo)
}

// function compiles a function body in a fresh funcCompiler, then emits
// OP_CLOSURE in the enclosing function along with one capture descriptor
// per upvalue.
func (c *Compiler) function(name string) {
	c.fc = newFuncCompiler(c.fc, name, kindFunction, c.source)
	c.beginScope()

	c.consume(token.LParen, "expect '(' after function name")
	if !c.check(token.RParen) {
		for {
			c.fc.proto.Arity++
			if c.fc.proto.Arity > maxArgs {
				c.errorAtCurrent("can't have more than 255 parameters")
			}
			phi, plo := c.parseVariable("expect parameter name")
			c.defineVariable(phi, plo)
			if !c.match(token.Comma) {
				break
			}
		}
	}
	c.consume(token.RParen, "expect ')' after parameters")
	c.consume(token.LBrace, "expect '{' before function body")
	c.block()

	proto := c.endFunction()
	hi, lo := c.makeConst(proto)
	c.emit(bytecode.OP_CLOSURE, hi, lo, byte(len(proto.Upvalues)))
	for _, uv := range proto.Upvalues {
		isLocal := byte(0)
		if uv.IsLocal {
			isLocal = 1
		}
		c.emit(isLocal, uv.Index)
	}
}

// statements

func (c *Compiler) statement() {
	switch {
	case c.match(token.Print):
		c.printStatement()
	case c.match(token.If):
		c.ifStatement()
	case c.match(token.While):
		c.whileStatement()
	case c.match(token.For):
		c.forStatement()
	case c.match(token.Return):
		c.returnStatement()
	case c.match(token.LBrace):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) block() {
	for !c.check(token.RBrace) && !c.check(token.EOF) {
		c.declaration()
	}
	c.consume(token.RBrace, "expect '}' after block")
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(token.Semicolon, "expect ';' after value")
	c.emit(bytecode.OP_PRINT)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	if c.repl && c.fc.kind == kindScript && c.check(token.EOF) {
		// interactive convenience: a trailing expression without a
		// semicolon has its value printed
		c.emit(bytecode.OP_PRINT)
		return
	}
	c.consume(token.Semicolon, "expect ';' after expression")
	c.emit(bytecode.OP_POP)
}

func (c *Compiler) returnStatement() {
	if c.fc.kind == kindScript {
		c.errorAtPrev("can't return from top-level code")
	}
	if c.match(token.Semicolon) {
		c.emitReturn()
		return
	}
	c.expression()
	c.consume(token.Semicolon, "expect ';' after return value")
	c.emit(bytecode.OP_RETURN)
}

func (c *Compiler) ifStatement() {
	c.consume(token.LParen, "expect '(' after 'if'")
	c.expression()
	c.consume(token.RParen, "expect ')' after condition")

	thenJump := c.emitJump(bytecode.OP_JUMP_IF_FALSE)
	c.emit(bytecode.OP_POP)
	c.statement()
	elseJump := c.emitJump(bytecode.OP_JUMP)

	c.patchJump(thenJump)
	c.emit(bytecode.OP_POP)
	if c.match(token.Else) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := len(c.chunk().Code)
	c.consume(token.LParen, "expect '(' after 'while'")
	c.expression()
	c.consume(token.RParen, "expect ')' after condition")

	exitJump := c.emitJump(bytecode.OP_JUMP_IF_FALSE)
	c.emit(bytecode.OP_POP)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emit(bytecode.OP_POP)
}

// forStatement desugars into while-style bytecode: optional initializer
// in its own scope, condition check, body, then increment (which runs
// after the body even though it appears before it in source).
func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(token.LParen, "expect '(' after 'for'")

	switch {
	case c.match(token.Semicolon):
		// no initializer
	case c.match(token.Var):
		c.varDeclaration()
	default:
		c.expression()
		c.consume(token.Semicolon, "expect ';' after loop initializer")
		c.emit(bytecode.OP_POP)
	}

	loopStart := len(c.chunk().Code)
	exitJump := -1
	if !c.match(token.Semicolon) {
		c.expression()
		c.consume(token.Semicolon, "expect ';' after loop condition")
		exitJump = c.emitJump(bytecode.OP_JUMP_IF_FALSE)
		c.emit(bytecode.OP_POP)
	}

	if !c.check(token.RParen) {
		bodyJump := c.emitJump(bytecode.OP_JUMP)
		incrStart := len(c.chunk().Code)
		c.expression()
		c.emit(bytecode.OP_POP)
		c.consume(token.RParen, "expect ')' after for clauses")
		c.emitLoop(loopStart)
		loopStart = incrStart
		c.patchJump(bodyJump)
	} else {
		c.consume(token.RParen, "expect ')' after for clauses")
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emit(bytecode.OP_POP)
	}
	c.endScope()
}

// expressions, parsed by operator precedence

type precedence int

const (
	precNone precedence = iota
	precAssignment
	precOr
	precAnd
	precEquality
	precComparison
	precTerm
	precFactor
	precUnary
	precCall
	precPrimary
)

type parseRule struct {
	prefix func(canAssign bool)
	infix  func(canAssign bool)
	prec   precedence
}

func (c *Compiler) rule(kind token.Kind) parseRule {
	switch kind {
	case token.LParen:
		return parseRule{prefix: c.grouping, infix: c.call, prec: precCall}
	case token.Minus:
		return parseRule{prefix: c.unary, infix: c.binary, prec: precTerm}
	case token.Plus:
		return parseRule{infix: c.binary, prec: precTerm}
	case token.Star, token.Slash:
		return parseRule{infix: c.binary, prec: precFactor}
	case token.Bang:
		return parseRule{prefix: c.unary}
	case token.Typeof:
		return parseRule{prefix: c.unary}
	case token.BangEqual, token.EqualEqual:
		return parseRule{infix: c.binary, prec: precEquality}
	case token.Greater, token.GreaterEqual, token.Less, token.LessEqual:
		return parseRule{infix: c.binary, prec: precComparison}
	case token.And:
		return parseRule{infix: c.andExpr, prec: precAnd}
	case token.Or:
		return parseRule{infix: c.orExpr, prec: precOr}
	case token.Number:
		return parseRule{prefix: c.number}
	case token.String:
		return parseRule{prefix: c.stringLit}
	case token.Identifier:
		return parseRule{prefix: c.variable}
	case token.Nil, token.True, token.False:
		return parseRule{prefix: c.literal}
	case token.This, token.Super:
		return parseRule{prefix: c.unsupportedKeyword}
	default:
		return parseRule{}
	}
}

func (c *Compiler) expression() {
	c.parsePrecedence(precAssignment)
}

func (c *Compiler) parsePrecedence(prec precedence) {
	c.advance()
	prefix := c.rule(c.prev.Kind).prefix
	if prefix == nil {
		c.errorAtPrev("expect expression")
		return
	}
	canAssign := prec <= precAssignment
	prefix(canAssign)

	for prec <= c.rule(c.cur.Kind).prec {
		c.advance()
		c.rule(c.prev.Kind).infix(canAssign)
	}

	if canAssign && c.match(token.Equal) {
		c.errorAtPrev("invalid assignment target")
	}
}

func (c *Compiler) number(bool) {
	f, err := strconv.ParseFloat(c.prev.Lexeme, 64)
	if err != nil {
		c.errorAtPrev("invalid number literal")
		return
	}
	c.emitConst(f)
}

func (c *Compiler) stringLit(bool) {
	c.emitConst(c.prev.Lexeme)
}

func (c *Compiler) literal(bool) {
	switch c.prev.Kind {
	case token.Nil:
		c.emit(bytecode.OP_NIL)
	case token.True:
		c.emit(bytecode.OP_TRUE)
	case token.False:
		c.emit(bytecode.OP_FALSE)
	}
}

func (c *Compiler) grouping(bool) {
	c.expression()
	c.consume(token.RParen, "expect ')' after expression")
}

func (c *Compiler) unary(bool) {
	op := c.prev.Kind
	c.parsePrecedence(precUnary)
	switch op {
	case token.Minus:
		c.emit(bytecode.OP_NEG)
	case token.Bang:
		c.emit(bytecode.OP_NOT)
	case token.Typeof:
		c.emit(bytecode.OP_TYPEOF)
	}
}

func (c *Compiler) binary(bool) {
	op := c.prev.Kind
	c.parsePrecedence(c.rule(op).prec + 1)
	switch op {
	case token.Plus:
		c.emit(bytecode.OP_ADD)
	case token.Minus:
		c.emit(bytecode.OP_SUB)
	case token.Star:
		c.emit(bytecode.OP_MUL)
	case token.Slash:
		c.emit(bytecode.OP_DIV)
	case token.EqualEqual:
		c.emit(bytecode.OP_EQUAL)
	case token.BangEqual:
		c.emit(bytecode.OP_EQUAL, bytecode.OP_NOT)
	case token.Greater:
		c.emit(bytecode.OP_GREATER)
	case token.GreaterEqual:
		c.emit(bytecode.OP_LESS, bytecode.OP_NOT)
	case token.Less:
		c.emit(bytecode.OP_LESS)
	case token.LessEqual:
		c.emit(bytecode.OP_GREATER, bytecode.OP_NOT)
	}
}

// andExpr and orExpr short-circuit by jumping over the right operand;
// the left value is left on the stack as the result when it decides.
func (c *Compiler) andExpr(bool) {
	endJump := c.emitJump(bytecode.OP_JUMP_IF_FALSE)
	c.emit(bytecode.OP_POP)
	c.parsePrecedence(precAnd)
	c.patchJump(endJump)
}

func (c *Compiler) orExpr(bool) {
	elseJump := c.emitJump(bytecode.OP_JUMP_IF_FALSE)
	endJump := c.emitJump(bytecode.OP_JUMP)
	c.patchJump(elseJump)
	c.emit(bytecode.OP_POP)
	c.parsePrecedence(precOr)
	c.patchJump(endJump)
}

func (c *Compiler) call(bool) {
	argc := c.argumentList()
	c.emit(bytecode.OP_CALL, byte(argc))
}

func (c *Compiler) argumentList() int {
	argc := 0
	if !c.check(token.RParen) {
		for {
			c.expression()
			argc++
			if argc > maxArgs {
				c.errorAtCurrent("can't have more than 255 arguments")
			}
			if !c.match(token.Comma) {
				break
			}
		}
	}
	c.consume(token.RParen, "expect ')' after arguments")
	return argc
}

func (c *Compiler) variable(canAssign bool) {
	c.namedVariable(c.prev, canAssign)
}

func (c *Compiler) namedVariable(tok token.Token, canAssign bool) {
	name := tok.Lexeme

	if slot, ok := c.resolveLocal(c.fc, name); ok {
		if canAssign && c.match(token.Equal) {
			c.expression()
			c.emit(bytecode.OP_SET_LOCAL, byte(slot))
		} else {
			c.emit(bytecode.OP_GET_LOCAL, byte(slot))
		}
		return
	}

	if idx, ok := c.resolveUpvalue(c.fc, name); ok {
		if canAssign && c.match(token.Equal) {
			c.expression()
			c.emit(bytecode.OP_SET_UPVALUE, byte(idx))
		} else {
			c.emit(bytecode.OP_GET_UPVALUE, byte(idx))
		}
		return
	}

	hi, lo := c.makeConst(name)
	if canAssign && c.match(token.Equal) {
		c.expression()
		c.emit(bytecode.OP_SET_GLOBAL, hi, lo)
	} else {
		c.emit(bytecode.OP_GET_GLOBAL, hi, lo)
	}
}

func (c *Compiler) unsupportedKeyword(bool) {
	c.errorAtPrev(fmt.Sprintf("'%s' is not supported", c.prev.Lexeme))
}

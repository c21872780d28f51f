package compiler_test

import (
	"strings"
	"testing"

	"github.com/xirelogy/go-lox/internal/bytecode"
	"github.com/xirelogy/go-lox/internal/compiler"
)

func compileOk(t *testing.T, src string) *bytecode.Prototype {
	t.Helper()
	proto, errs := compiler.New(src, "test").Compile()
	if len(errs) > 0 {
		t.Fatalf("compile errors: %v", errs)
	}
	return proto
}

func compileFail(t *testing.T, src string) compiler.ErrorList {
	t.Helper()
	proto, errs := compiler.New(src, "test").Compile()
	if len(errs) == 0 {
		t.Fatalf("expected compile errors, got none")
	}
	if proto != nil {
		t.Fatalf("expected nil prototype on failure")
	}
	return errs
}

func TestCompileSimpleScript(t *testing.T) {
	proto := compileOk(t, `print 1 + 2;`)
	if proto.Arity != 0 {
		t.Fatalf("script arity must be 0, got %d", proto.Arity)
	}
	if len(proto.Chunk.Code) == 0 {
		t.Fatalf("expected emitted code")
	}
	last := proto.Chunk.Code[len(proto.Chunk.Code)-1]
	if last != bytecode.OP_RETURN {
		t.Fatalf("chunk must end with OP_RETURN, got %s", bytecode.Name(last))
	}
}

func TestCompileConstantDedup(t *testing.T) {
	proto := compileOk(t, `print 1 + 1 + 1; print "s" + "s";`)
	numbers := 0
	strs := 0
	for _, c := range proto.Chunk.Consts {
		switch c.(type) {
		case float64:
			numbers++
		case string:
			strs++
		}
	}
	if numbers != 1 {
		t.Fatalf("expected 1 deduped number constant, got %d (%v)", numbers, proto.Chunk.Consts)
	}
	if strs != 1 {
		t.Fatalf("expected 1 deduped string constant, got %d (%v)", strs, proto.Chunk.Consts)
	}
}

func TestCompileFunctionPrototype(t *testing.T) {
	proto := compileOk(t, `fun add(a, b) { return a + b; }`)
	var fn *bytecode.Prototype
	for _, c := range proto.Chunk.Consts {
		if p, ok := c.(*bytecode.Prototype); ok {
			fn = p
		}
	}
	if fn == nil {
		t.Fatalf("expected nested prototype in constant pool")
	}
	if fn.Name != "add" || fn.Arity != 2 {
		t.Fatalf("unexpected prototype: name=%q arity=%d", fn.Name, fn.Arity)
	}
}

func TestCompileUpvalueDescriptors(t *testing.T) {
	proto := compileOk(t, `
fun outer() {
  var x = 1;
  fun middle() {
    fun inner() { return x; }
    return inner;
  }
  return middle;
}
`)
	var outer *bytecode.Prototype
	for _, c := range proto.Chunk.Consts {
		if p, ok := c.(*bytecode.Prototype); ok && p.Name == "outer" {
			outer = p
		}
	}
	if outer == nil {
		t.Fatalf("outer prototype missing")
	}
	var middle *bytecode.Prototype
	for _, c := range outer.Chunk.Consts {
		if p, ok := c.(*bytecode.Prototype); ok && p.Name == "middle" {
			middle = p
		}
	}
	if middle == nil {
		t.Fatalf("middle prototype missing")
	}
	if len(middle.Upvalues) != 1 || !middle.Upvalues[0].IsLocal {
		t.Fatalf("middle must capture x as a local upvalue, got %#v", middle.Upvalues)
	}
	var inner *bytecode.Prototype
	for _, c := range middle.Chunk.Consts {
		if p, ok := c.(*bytecode.Prototype); ok && p.Name == "inner" {
			inner = p
		}
	}
	if inner == nil {
		t.Fatalf("inner prototype missing")
	}
	if len(inner.Upvalues) != 1 || inner.Upvalues[0].IsLocal {
		t.Fatalf("inner must capture x through middle's upvalue, got %#v", inner.Upvalues)
	}
}

func TestCompileCollectsMultipleErrors(t *testing.T) {
	errs := compileFail(t, `
var 1 = 2;
print ;
`)
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", len(errs), errs)
	}
	if errs[0].Line != 2 || !strings.Contains(errs[0].Message, "expect variable name") {
		t.Fatalf("unexpected first error: %#v", errs[0])
	}
	if errs[1].Line != 3 || !strings.Contains(errs[1].Message, "expect expression") {
		t.Fatalf("unexpected second error: %#v", errs[1])
	}
}

func TestCompileErrorFormat(t *testing.T) {
	errs := compileFail(t, `print 1`)
	got := errs[0].Error()
	if !strings.HasPrefix(got, "[line 1] Error: ") {
		t.Fatalf("unexpected error format: %q", got)
	}
}

func TestCompileMissingSemicolon(t *testing.T) {
	errs := compileFail(t, `1 + 2`)
	if !strings.Contains(errs[0].Message, "expect ';' after expression") {
		t.Fatalf("unexpected error: %#v", errs[0])
	}
}

func TestCompileReplModeTrailingExpression(t *testing.T) {
	c := compiler.New(`1 + 2`, "repl")
	c.SetReplMode(true)
	proto, errs := c.Compile()
	if len(errs) > 0 {
		t.Fatalf("repl mode must accept a trailing expression: %v", errs)
	}
	found := false
	for _, op := range proto.Chunk.Code {
		if op == bytecode.OP_PRINT {
			found = true
		}
	}
	if !found {
		t.Fatalf("repl trailing expression must print its value")
	}
}

func TestCompileReplModeWithSemicolonDiscards(t *testing.T) {
	c := compiler.New(`1 + 2;`, "repl")
	c.SetReplMode(true)
	proto, errs := c.Compile()
	if len(errs) > 0 {
		t.Fatalf("compile errors: %v", errs)
	}
	for _, op := range proto.Chunk.Code {
		if op == bytecode.OP_PRINT {
			t.Fatalf("terminated expression statement must not print")
		}
	}
}

func TestCompileReturnOutsideFunction(t *testing.T) {
	errs := compileFail(t, `return 1;`)
	if !strings.Contains(errs[0].Message, "can't return from top-level code") {
		t.Fatalf("unexpected error: %#v", errs[0])
	}
}

func TestCompileInvalidAssignmentTarget(t *testing.T) {
	errs := compileFail(t, `1 + 2 = 3;`)
	if !strings.Contains(errs[0].Message, "invalid assignment target") {
		t.Fatalf("unexpected error: %#v", errs[0])
	}
}

func TestCompileLocalSelfInitializer(t *testing.T) {
	errs := compileFail(t, `{ var a = a; }`)
	if !strings.Contains(errs[0].Message, "can't read local variable in its own initializer") {
		t.Fatalf("unexpected error: %#v", errs[0])
	}
}

func TestCompileDuplicateLocal(t *testing.T) {
	errs := compileFail(t, `{ var a = 1; var a = 2; }`)
	if !strings.Contains(errs[0].Message, "already a variable with this name in this scope") {
		t.Fatalf("unexpected error: %#v", errs[0])
	}
}

func TestCompileShadowingInNestedScopeAllowed(t *testing.T) {
	compileOk(t, `{ var a = 1; { var a = 2; print a; } print a; }`)
}

func TestCompileClassRejected(t *testing.T) {
	errs := compileFail(t, `class Foo {}`)
	if !strings.Contains(errs[0].Message, "classes are not supported") {
		t.Fatalf("unexpected error: %#v", errs[0])
	}
}

func TestCompileUnterminatedString(t *testing.T) {
	errs := compileFail(t, `print "abc`)
	if !strings.Contains(errs[0].Message, "unterminated string") {
		t.Fatalf("unexpected error: %#v", errs[0])
	}
}

func TestCompileLineTracking(t *testing.T) {
	proto := compileOk(t, "print 1;\nprint 2;\n")
	if proto.Chunk.LineForOffset(0) != 1 {
		t.Fatalf("expected first instruction on line 1")
	}
	lastOffset := len(proto.Chunk.Code) - 1
	if proto.Chunk.LineForOffset(lastOffset) < 2 {
		t.Fatalf("expected later instructions past line 1")
	}
}

func TestCompileJumpTargetsResolve(t *testing.T) {
	proto := compileOk(t, `
if (true) print 1; else print 2;
var i = 0;
while (i < 3) { i = i + 1; }
`)
	code := proto.Chunk.Code
	for ip := 0; ip < len(code); {
		op := code[ip]
		ip++
		switch op {
		case bytecode.OP_JUMP, bytecode.OP_JUMP_IF_FALSE, bytecode.OP_LOOP:
			target := int(code[ip])<<8 | int(code[ip+1])
			ip += 2
			if target > len(code) {
				t.Fatalf("jump target %d beyond code length %d", target, len(code))
			}
			if target == 0xffff {
				t.Fatalf("unpatched jump at %d", ip-2)
			}
		case bytecode.OP_CONST, bytecode.OP_GET_GLOBAL, bytecode.OP_SET_GLOBAL, bytecode.OP_DEFINE_GLOBAL:
			ip += 2
		case bytecode.OP_GET_LOCAL, bytecode.OP_SET_LOCAL, bytecode.OP_GET_UPVALUE, bytecode.OP_SET_UPVALUE, bytecode.OP_CALL:
			ip++
		case bytecode.OP_CLOSURE:
			upcount := int(code[ip+2])
			ip += 3 + upcount*2
		}
	}
}

package treewalk_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xirelogy/go-lox/internal/ast"
	"github.com/xirelogy/go-lox/internal/parser"
	"github.com/xirelogy/go-lox/internal/treewalk"
	"github.com/xirelogy/go-lox/internal/vm"
)

func resolveProgram(t *testing.T, src string) []ast.Stmt {
	t.Helper()
	program, errs := parser.New(src).Parse()
	if len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	if rerrs := treewalk.NewResolver().Resolve(program); len(rerrs) > 0 {
		t.Fatalf("resolve errors: %v", rerrs)
	}
	return program
}

func runTree(t *testing.T, src string) string {
	t.Helper()
	program := resolveProgram(t, src)
	it := treewalk.NewInterp()
	var out bytes.Buffer
	it.SetOutput(&out)
	if err := it.Exec(program); err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	return out.String()
}

func runTreeExpectError(t *testing.T, src string) *vm.RuntimeError {
	t.Helper()
	program := resolveProgram(t, src)
	it := treewalk.NewInterp()
	it.SetOutput(&bytes.Buffer{})
	err := it.Exec(program)
	if err == nil {
		t.Fatalf("expected runtime error, got none")
	}
	rte, ok := err.(*vm.RuntimeError)
	if !ok {
		t.Fatalf("expected *vm.RuntimeError, got %#v", err)
	}
	return rte
}

func resolveExpectError(t *testing.T, src string) treewalk.ResolveErrorList {
	t.Helper()
	program, errs := parser.New(src).Parse()
	if len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	rerrs := treewalk.NewResolver().Resolve(program)
	if len(rerrs) == 0 {
		t.Fatalf("expected resolve errors, got none")
	}
	return rerrs
}

func TestTreeArithmeticAndPrint(t *testing.T) {
	out := runTree(t, `print 1 + 2;`)
	if out != "3\n" {
		t.Fatalf("expected 3, got %q", out)
	}
}

func TestTreeStringConcat(t *testing.T) {
	out := runTree(t, `print "foo" + "bar";`)
	if out != "foobar\n" {
		t.Fatalf("expected foobar, got %q", out)
	}
}

func TestTreeDivisionByZero(t *testing.T) {
	out := runTree(t, `print 1 / 0;`)
	if out != "inf\n" {
		t.Fatalf("expected inf, got %q", out)
	}
}

func TestTreeBlockScoping(t *testing.T) {
	out := runTree(t, `
var a = "outer";
{
  var a = "inner";
  print a;
}
print a;
`)
	if out != "inner\nouter\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestTreeClosureCounter(t *testing.T) {
	out := runTree(t, `
fun makeCounter() {
  var i = 0;
  fun count() {
    i = i + 1;
    print i;
  }
  return count;
}
var counter = makeCounter();
counter();
counter();
`)
	if out != "1\n2\n" {
		t.Fatalf("expected 1 then 2, got %q", out)
	}
}

func TestTreeStaticScopeCapture(t *testing.T) {
	// the closure must keep seeing the binding from its declaration
	// scope even after a shadowing global appears
	out := runTree(t, `
var x = "global";
{
  fun show() { print x; }
  show();
  var x = "shadow";
  show();
}
`)
	if out != "global\nglobal\n" {
		t.Fatalf("expected lexical capture, got %q", out)
	}
}

func TestTreeWhileLoop(t *testing.T) {
	out := runTree(t, `
var i = 0;
var sum = 0;
while (i < 5) {
  sum = sum + i;
  i = i + 1;
}
print sum;
`)
	if out != "10\n" {
		t.Fatalf("expected 10, got %q", out)
	}
}

func TestTreeForLoop(t *testing.T) {
	out := runTree(t, `
var sum = 0;
for (var i = 1; i <= 4; i = i + 1) {
  sum = sum + i;
}
print sum;
`)
	if out != "10\n" {
		t.Fatalf("expected 10, got %q", out)
	}
}

func TestTreeRecursion(t *testing.T) {
	out := runTree(t, `
fun fib(n) {
  if (n < 2) return n;
  return fib(n - 1) + fib(n - 2);
}
print fib(10);
`)
	if out != "55\n" {
		t.Fatalf("expected 55, got %q", out)
	}
}

func TestTreeLogicalShortCircuit(t *testing.T) {
	out := runTree(t, `
print false and explode();
print nil or "fallback";
`)
	if out != "false\nfallback\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestTreeTypeofOperator(t *testing.T) {
	out := runTree(t, `
print typeof nil;
print typeof "s";
print typeof clock;
`)
	if out != "nil\nstring\nfunction\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestTreeUndefinedVariable(t *testing.T) {
	rte := runTreeExpectError(t, `print missing;`)
	if rte.Message != "undefined variable 'missing'" {
		t.Fatalf("unexpected message: %q", rte.Message)
	}
	if rte.Line != 1 {
		t.Fatalf("expected line 1, got %d", rte.Line)
	}
}

func TestTreeArityMismatch(t *testing.T) {
	rte := runTreeExpectError(t, `
fun two(a, b) { return a; }
two(1);
`)
	if rte.Message != "expected 2 arguments but got 1" {
		t.Fatalf("unexpected message: %q", rte.Message)
	}
}

func TestTreeCallNonCallable(t *testing.T) {
	rte := runTreeExpectError(t, `var x = 1; x();`)
	if rte.Message != "can only call functions" {
		t.Fatalf("unexpected message: %q", rte.Message)
	}
}

func TestTreeStackOverflow(t *testing.T) {
	rte := runTreeExpectError(t, `
fun loop() { loop(); }
loop();
`)
	if rte.Message != "stack overflow" {
		t.Fatalf("unexpected message: %q", rte.Message)
	}
}

func TestTreeRuntimeErrorStackTrace(t *testing.T) {
	rte := runTreeExpectError(t, `
fun inner() { return 1 + nil; }
fun outer() { return inner(); }
outer();
`)
	if len(rte.Stack) != 3 {
		t.Fatalf("expected 3 frames, got %#v", rte.Stack)
	}
	if rte.Stack[0].Function != "inner" || rte.Stack[1].Function != "outer" || rte.Stack[2].Function != "<script>" {
		t.Fatalf("unexpected frame order: %#v", rte.Stack)
	}
}

func TestTreeResolverSelfInitializer(t *testing.T) {
	rerrs := resolveExpectError(t, `{ var a = a; }`)
	if !strings.Contains(rerrs[0].Message, "can't read local variable in its own initializer") {
		t.Fatalf("unexpected error: %#v", rerrs[0])
	}
}

func TestTreeResolverDuplicateLocal(t *testing.T) {
	rerrs := resolveExpectError(t, `{ var a = 1; var a = 2; }`)
	if !strings.Contains(rerrs[0].Message, "already a variable with this name in this scope") {
		t.Fatalf("unexpected error: %#v", rerrs[0])
	}
}

func TestTreeResolverReturnOutsideFunction(t *testing.T) {
	rerrs := resolveExpectError(t, `return 1;`)
	if !strings.Contains(rerrs[0].Message, "can't return from top-level code") {
		t.Fatalf("unexpected error: %#v", rerrs[0])
	}
}

func TestTreeResolverGlobalRedeclarationAllowed(t *testing.T) {
	runTree(t, `var a = 1; var a = 2; print a;`)
}

func TestTreeGlobalsSurviveAcrossExecs(t *testing.T) {
	it := treewalk.NewInterp()
	var out bytes.Buffer
	it.SetOutput(&out)

	first := resolveProgram(t, `var x = 41;`)
	if err := it.Exec(first); err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	second := resolveProgram(t, `print x + 1;`)
	if err := it.Exec(second); err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if out.String() != "42\n" {
		t.Fatalf("expected 42, got %q", out.String())
	}
}

func TestTreeDepthLimitConfigurable(t *testing.T) {
	program := resolveProgram(t, `
fun deep(n) {
  if (n == 0) return 0;
  return deep(n - 1);
}
deep(20);
`)
	it := treewalk.NewInterp()
	it.SetOutput(&bytes.Buffer{})
	it.SetDepthLimit(8)
	err := it.Exec(program)
	if err == nil || !strings.Contains(err.Error(), "stack overflow") {
		t.Fatalf("expected stack overflow with low depth limit, got %v", err)
	}
}

func TestTreeDefineNative(t *testing.T) {
	program := resolveProgram(t, `print double(21);`)
	it := treewalk.NewInterp()
	var out bytes.Buffer
	it.SetOutput(&out)
	it.DefineNative("double", 1, func(args []vm.Value) (vm.Value, error) {
		return vm.Number(args[0].Num * 2), nil
	})
	if err := it.Exec(program); err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if out.String() != "42\n" {
		t.Fatalf("expected 42, got %q", out.String())
	}
}

func TestTreeReturnValue(t *testing.T) {
	out := runTree(t, `
fun pick(flag) {
  if (flag) return "yes";
  return "no";
}
print pick(true);
print pick(false);
`)
	if out != "yes\nno\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestTreeImplicitNilReturn(t *testing.T) {
	out := runTree(t, `
fun noop() {}
print noop();
`)
	if out != "nil\n" {
		t.Fatalf("expected nil, got %q", out)
	}
}

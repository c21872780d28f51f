package treewalk

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/xirelogy/go-lox/internal/ast"
	"github.com/xirelogy/go-lox/internal/token"
	"github.com/xirelogy/go-lox/internal/vm"
)

// Interp evaluates a resolved syntax tree directly. It shares the VM's
// value representation and heap, so both engines print and compare
// values identically.
type Interp struct {
	globals  *Environment
	heap     *vm.Heap
	out      io.Writer
	frames   []frameEntry
	maxDepth int
}

// frameEntry records one active call for error traces. callLine is the
// line of the call site that entered the frame.
type frameEntry struct {
	name     string
	callLine int
}

const defaultMaxDepth = 256

// returnSignal unwinds the evaluator out of nested statements when a
// return executes. It never escapes a function call.
type returnSignal struct {
	value vm.Value
}

func (returnSignal) Error() string { return "return" }

// NewInterp constructs an interpreter with the standard native
// functions installed.
func NewInterp() *Interp {
	it := &Interp{
		globals:  NewEnvironment(nil),
		heap:     vm.NewHeap(),
		out:      os.Stdout,
		maxDepth: defaultMaxDepth,
	}
	it.DefineNative("clock", 0, func(args []vm.Value) (vm.Value, error) {
		return vm.Number(float64(time.Now().UnixNano()) / 1e9), nil
	})
	return it
}

// SetOutput redirects print output (defaults to stdout).
func (it *Interp) SetOutput(w io.Writer) {
	if w != nil {
		it.out = w
	}
}

// SetDepthLimit caps call depth; exceeding it is a reported runtime
// error, not a crash.
func (it *Interp) SetDepthLimit(limit int) {
	if limit > 0 {
		it.maxDepth = limit
	}
}

// Heap exposes the interpreter-owned object heap.
func (it *Interp) Heap() *vm.Heap {
	return it.heap
}

// DefineNative binds a host function into the global environment.
func (it *Interp) DefineNative(name string, arity int, fn func(args []vm.Value) (vm.Value, error)) {
	it.globals.Define(name, vm.NativeVal(&vm.NativeFn{Name: name, Arity: arity, Fn: fn}))
}

// DefineGlobal binds a value into the global environment.
func (it *Interp) DefineGlobal(name string, v vm.Value) {
	it.globals.Define(name, v)
}

// GetGlobal reads a global binding.
func (it *Interp) GetGlobal(name string) (vm.Value, bool) {
	return it.globals.Get(name)
}

// Exec runs a resolved program. Globals persist across calls, so a REPL
// can feed successive programs into one interpreter.
func (it *Interp) Exec(program []ast.Stmt) error {
	it.frames = it.frames[:0]
	it.frames = append(it.frames, frameEntry{name: "<script>"})
	for _, stmt := range program {
		if err := it.execStmt(stmt, it.globals); err != nil {
			return err
		}
	}
	return nil
}

func (it *Interp) runtimeError(line int, format string, args ...interface{}) error {
	err := &vm.RuntimeError{
		Message: fmt.Sprintf(format, args...),
		Line:    line,
		Stack:   it.stackTrace(line),
	}
	return err
}

// stackTrace reports active frames innermost-first. Each frame's line is
// where execution currently is inside it: the erroring line for the
// innermost, the call site of its callee for the rest.
func (it *Interp) stackTrace(errLine int) []vm.FrameInfo {
	trace := make([]vm.FrameInfo, 0, len(it.frames))
	line := errLine
	for i := len(it.frames) - 1; i >= 0; i-- {
		trace = append(trace, vm.FrameInfo{Function: it.frames[i].name, Line: line})
		line = it.frames[i].callLine
	}
	return trace
}

// statements

func (it *Interp) execStmt(s ast.Stmt, env *Environment) error {
	switch node := s.(type) {
	case *ast.ExprStmt:
		_, err := it.eval(node.E, env)
		return err
	case *ast.PrintStmt:
		v, err := it.eval(node.E, env)
		if err != nil {
			return err
		}
		fmt.Fprintln(it.out, vm.Format(v))
		return nil
	case *ast.VarDecl:
		val := vm.Nil()
		if node.Init != nil {
			v, err := it.eval(node.Init, env)
			if err != nil {
				return err
			}
			val = v
		}
		env.Define(node.Name, val)
		return nil
	case *ast.FunDecl:
		env.Define(node.Name, it.makeFunction(node, env))
		return nil
	case *ast.Block:
		inner := NewEnvironment(env)
		for _, stmt := range node.Stmts {
			if err := it.execStmt(stmt, inner); err != nil {
				return err
			}
		}
		return nil
	case *ast.IfStmt:
		cond, err := it.eval(node.Cond, env)
		if err != nil {
			return err
		}
		if vm.Truthy(cond) {
			return it.execStmt(node.Then, env)
		}
		if node.Else != nil {
			return it.execStmt(node.Else, env)
		}
		return nil
	case *ast.WhileStmt:
		for {
			cond, err := it.eval(node.Cond, env)
			if err != nil {
				return err
			}
			if !vm.Truthy(cond) {
				return nil
			}
			if err := it.execStmt(node.Body, env); err != nil {
				return err
			}
		}
	case *ast.ReturnStmt:
		val := vm.Nil()
		if node.Value != nil {
			v, err := it.eval(node.Value, env)
			if err != nil {
				return err
			}
			val = v
		}
		return returnSignal{value: val}
	default:
		return it.runtimeError(s.StartLine(), "unknown statement")
	}
}

// makeFunction packages a declaration as a callable closing over the
// environment where it was declared.
func (it *Interp) makeFunction(node *ast.FunDecl, declEnv *Environment) vm.Value {
	fn := &vm.NativeFn{
		Name:  node.Name,
		Arity: len(node.Params),
		Fn: func(args []vm.Value) (vm.Value, error) {
			fnEnv := NewEnvironment(declEnv)
			for i, param := range node.Params {
				fnEnv.Define(param, args[i])
			}
			for _, stmt := range node.Body {
				if err := it.execStmt(stmt, fnEnv); err != nil {
					if ret, ok := err.(returnSignal); ok {
						return ret.value, nil
					}
					return vm.Nil(), err
				}
			}
			return vm.Nil(), nil
		},
	}
	return vm.NativeVal(fn)
}

// expressions

func (it *Interp) eval(e ast.Expr, env *Environment) (vm.Value, error) {
	switch node := e.(type) {
	case *ast.Literal:
		return it.literal(node), nil
	case *ast.Grouping:
		return it.eval(node.Inner, env)
	case *ast.Unary:
		return it.evalUnary(node, env)
	case *ast.Binary:
		return it.evalBinary(node, env)
	case *ast.Logical:
		return it.evalLogical(node, env)
	case *ast.Variable:
		return it.lookup(node, env)
	case *ast.Assign:
		return it.evalAssign(node, env)
	case *ast.Call:
		return it.evalCall(node, env)
	default:
		return vm.Nil(), it.runtimeError(e.StartLine(), "unknown expression")
	}
}

func (it *Interp) literal(node *ast.Literal) vm.Value {
	switch node.Kind {
	case token.Number:
		return vm.Number(node.Num)
	case token.String:
		return vm.StringVal(it.heap.Intern(node.Str))
	case token.True:
		return vm.Bool(true)
	case token.False:
		return vm.Bool(false)
	default:
		return vm.Nil()
	}
}

func (it *Interp) lookup(node *ast.Variable, env *Environment) (vm.Value, error) {
	if node.Depth < 0 {
		if v, ok := it.globals.Get(node.Name); ok {
			return v, nil
		}
		return vm.Nil(), it.runtimeError(node.Line, "undefined variable '%s'", node.Name)
	}
	scope := env.Ancestor(node.Depth)
	if scope == nil {
		return vm.Nil(), it.runtimeError(node.Line, "unresolved variable '%s'", node.Name)
	}
	if v, ok := scope.Get(node.Name); ok {
		return v, nil
	}
	return vm.Nil(), it.runtimeError(node.Line, "unresolved variable '%s'", node.Name)
}

func (it *Interp) evalAssign(node *ast.Assign, env *Environment) (vm.Value, error) {
	v, err := it.eval(node.Value, env)
	if err != nil {
		return vm.Nil(), err
	}
	if node.Depth < 0 {
		if !it.globals.Assign(node.Name, v) {
			return vm.Nil(), it.runtimeError(node.Line, "undefined variable '%s'", node.Name)
		}
		return v, nil
	}
	scope := env.Ancestor(node.Depth)
	if scope == nil || !scope.Assign(node.Name, v) {
		return vm.Nil(), it.runtimeError(node.Line, "unresolved variable '%s'", node.Name)
	}
	return v, nil
}

func (it *Interp) evalUnary(node *ast.Unary, env *Environment) (vm.Value, error) {
	v, err := it.eval(node.Operand, env)
	if err != nil {
		return vm.Nil(), err
	}
	switch node.Op {
	case token.Minus:
		if v.Kind != vm.KindNumber {
			return vm.Nil(), it.runtimeError(node.Line, "operand must be a number")
		}
		return vm.Number(-v.Num), nil
	case token.Bang:
		return vm.Bool(!vm.Truthy(v)), nil
	case token.Typeof:
		return vm.StringVal(it.heap.Intern(vm.TypeName(v))), nil
	default:
		return vm.Nil(), it.runtimeError(node.Line, "unknown unary operator")
	}
}

func (it *Interp) evalBinary(node *ast.Binary, env *Environment) (vm.Value, error) {
	a, err := it.eval(node.Left, env)
	if err != nil {
		return vm.Nil(), err
	}
	b, err := it.eval(node.Right, env)
	if err != nil {
		return vm.Nil(), err
	}

	switch node.Op {
	case token.Plus:
		switch {
		case a.Kind == vm.KindNumber && b.Kind == vm.KindNumber:
			return vm.Number(a.Num + b.Num), nil
		case a.Kind == vm.KindString && b.Kind == vm.KindString:
			return vm.StringVal(it.heap.Concat(a.Str, b.Str)), nil
		default:
			return vm.Nil(), it.runtimeError(node.Line, "operands must be two numbers or two strings")
		}
	case token.EqualEqual:
		return vm.Bool(vm.Equal(a, b)), nil
	case token.BangEqual:
		return vm.Bool(!vm.Equal(a, b)), nil
	}

	if a.Kind != vm.KindNumber || b.Kind != vm.KindNumber {
		return vm.Nil(), it.runtimeError(node.Line, "operands must be numbers")
	}
	switch node.Op {
	case token.Minus:
		return vm.Number(a.Num - b.Num), nil
	case token.Star:
		return vm.Number(a.Num * b.Num), nil
	case token.Slash:
		// IEEE-754 semantics: division by zero yields an infinity
		return vm.Number(a.Num / b.Num), nil
	case token.Greater:
		return vm.Bool(a.Num > b.Num), nil
	case token.GreaterEqual:
		return vm.Bool(a.Num >= b.Num), nil
	case token.Less:
		return vm.Bool(a.Num < b.Num), nil
	case token.LessEqual:
		return vm.Bool(a.Num <= b.Num), nil
	default:
		return vm.Nil(), it.runtimeError(node.Line, "unknown binary operator")
	}
}

func (it *Interp) evalLogical(node *ast.Logical, env *Environment) (vm.Value, error) {
	left, err := it.eval(node.Left, env)
	if err != nil {
		return vm.Nil(), err
	}
	if node.Op == token.Or {
		if vm.Truthy(left) {
			return left, nil
		}
	} else {
		if !vm.Truthy(left) {
			return left, nil
		}
	}
	return it.eval(node.Right, env)
}

func (it *Interp) evalCall(node *ast.Call, env *Environment) (vm.Value, error) {
	callee, err := it.eval(node.Callee, env)
	if err != nil {
		return vm.Nil(), err
	}
	if callee.Kind != vm.KindNative {
		return vm.Nil(), it.runtimeError(node.Line, "can only call functions")
	}
	fn := callee.Native

	args := make([]vm.Value, 0, len(node.Args))
	for _, argExpr := range node.Args {
		arg, err := it.eval(argExpr, env)
		if err != nil {
			return vm.Nil(), err
		}
		args = append(args, arg)
	}

	if len(args) != fn.Arity {
		return vm.Nil(), it.runtimeError(node.Line, "expected %d arguments but got %d", fn.Arity, len(args))
	}
	if len(it.frames) >= it.maxDepth {
		return vm.Nil(), it.runtimeError(node.Line, "stack overflow")
	}

	it.frames = append(it.frames, frameEntry{name: fn.Name, callLine: node.Line})
	result, err := fn.Fn(args)
	it.frames = it.frames[:len(it.frames)-1]
	if err != nil {
		if _, ok := err.(*vm.RuntimeError); ok {
			return vm.Nil(), err
		}
		return vm.Nil(), it.runtimeError(node.Line, "%s", err.Error())
	}
	return result, nil
}

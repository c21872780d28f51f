// Package lox embeds a small scripting language: a scanner, a bytecode
// compiler with a stack-based virtual machine, and an alternative
// tree-walking evaluator that shares the same value semantics.
package lox

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/xirelogy/go-lox/internal/bytecode"
	"github.com/xirelogy/go-lox/internal/compiler"
	"github.com/xirelogy/go-lox/internal/parser"
	"github.com/xirelogy/go-lox/internal/treewalk"
	"github.com/xirelogy/go-lox/internal/vm"
)

// Status classifies the outcome of running a script.
type Status int

const (
	StatusOk Status = iota
	StatusCompileError
	StatusRuntimeError
)

// ExitCode maps a status to the conventional interpreter exit code.
func (s Status) ExitCode() int {
	switch s {
	case StatusCompileError:
		return 65
	case StatusRuntimeError:
		return 70
	default:
		return 0
	}
}

// Engine selects the execution strategy.
type Engine int

const (
	// EngineVM compiles to bytecode and runs on the stack machine.
	EngineVM Engine = iota
	// EngineTree evaluates the syntax tree directly.
	EngineTree
)

// CompileError is a single static diagnostic: a syntax error or a
// resolution error found before any code runs.
type CompileError struct {
	Line    int
	Message string
}

func (e CompileError) Error() string {
	return fmt.Sprintf("[line %d] Error: %s", e.Line, e.Message)
}

// CompileErrorList carries every diagnostic from one failed compile.
type CompileErrorList []CompileError

func (el CompileErrorList) Error() string {
	msgs := make([]string, len(el))
	for i, e := range el {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

// FrameTrace describes a single frame in a runtime error or trace.
type FrameTrace struct {
	Function string
	Line     int
	IP       int
}

// RuntimeError is a source-aware execution error. Stack lists active
// frames innermost-first.
type RuntimeError struct {
	Message string
	Line    int
	Stack   []FrameTrace
}

func (e *RuntimeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[line %d] Error: %s", e.Line, e.Message)
	}
	return e.Message
}

// TraceInfo captures execution steps for debug hooks.
type TraceInfo struct {
	Op       byte
	Function string
	Line     int
	IP       int
}

// TraceHook observes instruction dispatch for debugging/profiling. It is
// honored by the VM engine only.
type TraceHook func(TraceInfo)

// Value is an opaque handle to a runtime value, used by host functions.
type Value struct {
	v vm.Value
}

// IsNil reports whether the value is nil.
func (v Value) IsNil() bool {
	return v.v.Kind == vm.KindNil
}

// Bool returns the boolean value when the kind matches.
func (v Value) Bool() (bool, bool) {
	if v.v.Kind != vm.KindBool {
		return false, false
	}
	return v.v.B, true
}

// Number returns the numeric value when the kind matches.
func (v Value) Number() (float64, bool) {
	if v.v.Kind != vm.KindNumber {
		return 0, false
	}
	return v.v.Num, true
}

// String returns the string contents when the kind matches.
func (v Value) String() (string, bool) {
	if v.v.Kind != vm.KindString || v.v.Str == nil {
		return "", false
	}
	return v.v.Str.S, true
}

// TypeName reports the dynamic type name, as the typeof operator would.
func (v Value) TypeName() string {
	return vm.TypeName(v.v)
}

// Format renders the value the way print shows it.
func (v Value) Format() string {
	return vm.Format(v.v)
}

// NilValue constructs the nil value.
func NilValue() Value {
	return Value{v: vm.Nil()}
}

// BoolValue constructs a boolean value.
func BoolValue(b bool) Value {
	return Value{v: vm.Bool(b)}
}

// NumberValue constructs a numeric value.
func NumberValue(n float64) Value {
	return Value{v: vm.Number(n)}
}

// NativeFunc is the Go-side implementation of a scripted function.
type NativeFunc func(args []Value) (Value, error)

// Interpreter runs scripts with persistent global state, so successive
// Run calls see earlier definitions (the REPL relies on this).
type Interpreter struct {
	engine Engine
	core   *vm.VM
	tree   *treewalk.Interp
	mu     sync.Mutex
}

// NewInterpreter constructs an interpreter for the chosen engine with
// the standard native functions installed and output on stdout.
func NewInterpreter(engine Engine) *Interpreter {
	in := &Interpreter{engine: engine}
	switch engine {
	case EngineTree:
		in.tree = treewalk.NewInterp()
	default:
		in.engine = EngineVM
		in.core = vm.New()
	}
	return in
}

// SetOutput redirects print output (defaults to stdout).
func (in *Interpreter) SetOutput(w io.Writer) {
	if in.core != nil {
		in.core.SetOutput(w)
	}
	if in.tree != nil {
		in.tree.SetOutput(w)
	}
}

// SetTraceHook attaches a debug hook that observes instruction dispatch.
func (in *Interpreter) SetTraceHook(h TraceHook) {
	if in.core == nil {
		return
	}
	if h == nil {
		in.core.SetTraceHook(nil)
		return
	}
	in.core.SetTraceHook(func(info vm.TraceInfo) {
		h(TraceInfo{
			Op:       info.Op,
			Function: info.Function,
			Line:     info.Line,
			IP:       info.IP,
		})
	})
}

// SetFrameLimit caps call depth. Exceeding the cap is reported as a
// stack overflow runtime error.
func (in *Interpreter) SetFrameLimit(limit int) {
	if in.core != nil {
		in.core.SetFrameLimit(limit)
	}
	if in.tree != nil {
		in.tree.SetDepthLimit(limit)
	}
}

// DefineNative binds a host function into the global environment.
func (in *Interpreter) DefineNative(name string, arity int, fn NativeFunc) {
	wrapped := func(args []vm.Value) (vm.Value, error) {
		public := make([]Value, len(args))
		for i, a := range args {
			public[i] = Value{v: a}
		}
		res, err := fn(public)
		if err != nil {
			return vm.Nil(), err
		}
		return res.v, nil
	}
	if in.core != nil {
		in.core.DefineNative(name, arity, wrapped)
	}
	if in.tree != nil {
		in.tree.DefineNative(name, arity, wrapped)
	}
}

// DefineGlobal binds a value into the global environment.
func (in *Interpreter) DefineGlobal(name string, v Value) {
	if in.core != nil {
		in.core.DefineGlobal(name, v.v)
	}
	if in.tree != nil {
		in.tree.DefineGlobal(name, v.v)
	}
}

// GetGlobal reads a global binding after a run.
func (in *Interpreter) GetGlobal(name string) (Value, bool) {
	var v vm.Value
	var ok bool
	if in.core != nil {
		v, ok = in.core.GetGlobal(name)
	} else if in.tree != nil {
		v, ok = in.tree.GetGlobal(name)
	}
	return Value{v: v}, ok
}

// StringValue interns a string in the interpreter's heap.
func (in *Interpreter) StringValue(s string) Value {
	if in.core != nil {
		return Value{v: vm.StringVal(in.core.Heap().Intern(s))}
	}
	return Value{v: vm.StringVal(in.tree.Heap().Intern(s))}
}

// RunFile reads and runs a script from a filesystem path.
func (in *Interpreter) RunFile(path string) (Status, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return StatusCompileError, err
	}
	return in.Run(path, string(data))
}

// Run executes a script. The name labels diagnostics. On failure the
// error is a CompileErrorList or a *RuntimeError.
func (in *Interpreter) Run(name, src string) (Status, error) {
	return in.run(name, src, false)
}

// RunRepl executes one interactive line: a trailing expression without a
// semicolon has its value printed instead of being a syntax error.
func (in *Interpreter) RunRepl(src string) (Status, error) {
	return in.run("<repl>", src, true)
}

func (in *Interpreter) run(name, src string, repl bool) (Status, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.engine == EngineTree {
		return in.runTree(src, repl)
	}
	return in.runVM(name, src, repl)
}

func (in *Interpreter) runVM(name, src string, repl bool) (Status, error) {
	c := compiler.New(src, name)
	c.SetReplMode(repl)
	proto, errs := c.Compile()
	if len(errs) > 0 {
		return StatusCompileError, compileErrors(errs)
	}
	if err := in.core.Interpret(proto); err != nil {
		return StatusRuntimeError, convertRuntimeError(err)
	}
	return StatusOk, nil
}

func (in *Interpreter) runTree(src string, repl bool) (Status, error) {
	p := parser.New(src)
	p.SetReplMode(repl)
	program, perrs := p.Parse()
	if len(perrs) > 0 {
		return StatusCompileError, parseErrors(perrs)
	}
	if rerrs := treewalk.NewResolver().Resolve(program); len(rerrs) > 0 {
		return StatusCompileError, resolveErrors(rerrs)
	}
	if err := in.tree.Exec(program); err != nil {
		return StatusRuntimeError, convertRuntimeError(err)
	}
	return StatusOk, nil
}

// Disassemble compiles a script and returns the bytecode listing
// without executing anything.
func Disassemble(name, src string) (string, error) {
	c := compiler.New(src, name)
	proto, errs := c.Compile()
	if len(errs) > 0 {
		return "", compileErrors(errs)
	}
	var sb strings.Builder
	if err := bytecode.NewDisassembler(&sb).Disassemble(name, proto); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func compileErrors(errs compiler.ErrorList) CompileErrorList {
	out := make(CompileErrorList, len(errs))
	for i, e := range errs {
		out[i] = CompileError{Line: e.Line, Message: e.Message}
	}
	return out
}

func parseErrors(errs parser.ErrorList) CompileErrorList {
	out := make(CompileErrorList, len(errs))
	for i, e := range errs {
		out[i] = CompileError{Line: e.Line, Message: e.Message}
	}
	return out
}

func resolveErrors(errs treewalk.ResolveErrorList) CompileErrorList {
	out := make(CompileErrorList, len(errs))
	for i, e := range errs {
		out[i] = CompileError{Line: e.Line, Message: e.Message}
	}
	return out
}

func convertRuntimeError(err error) error {
	if err == nil {
		return nil
	}
	var rte *vm.RuntimeError
	if errors.As(err, &rte) {
		out := &RuntimeError{
			Message: rte.Message,
			Line:    rte.Line,
		}
		if len(rte.Stack) > 0 {
			out.Stack = make([]FrameTrace, len(rte.Stack))
			for i, fr := range rte.Stack {
				out.Stack[i] = FrameTrace{Function: fr.Function, Line: fr.Line, IP: fr.IP}
			}
		}
		return out
	}
	return err
}

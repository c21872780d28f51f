package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/xirelogy/go-lox/internal/bytecode"
)

type frame struct {
	closure *Closure
	ip      int
	base    int // first operand-stack slot owned by this frame
	lastOp  int
}

// VM is a stack-based bytecode interpreter. The operand stack is a
// single growable sequence shared by all frames; each frame's locals are
// the contiguous window starting at its base slot.
type VM struct {
	stack        []Value
	frames       []frame
	globals      map[string]Value
	openUpvalues []*Upvalue
	heap         *Heap
	out          io.Writer
	maxFrames    int
	traceHook    TraceHook
}

const defaultMaxFrames = 256

// New constructs a VM with an empty globals table and the standard
// native functions installed.
func New() *VM {
	vm := &VM{
		stack:     make([]Value, 0, 256),
		frames:    make([]frame, 0, 16),
		globals:   make(map[string]Value),
		heap:      NewHeap(),
		out:       os.Stdout,
		maxFrames: defaultMaxFrames,
	}
	installStdNatives(vm)
	return vm
}

// SetOutput redirects print output (defaults to stdout).
func (vm *VM) SetOutput(w io.Writer) {
	if w != nil {
		vm.out = w
	}
}

// SetTraceHook registers a callback for instruction-level tracing.
func (vm *VM) SetTraceHook(h TraceHook) {
	vm.traceHook = h
}

// SetFrameLimit caps call depth; exceeding it is a reported runtime
// error, not a crash.
func (vm *VM) SetFrameLimit(limit int) {
	if limit > 0 {
		vm.maxFrames = limit
	}
}

// Heap exposes the VM-owned object heap.
func (vm *VM) Heap() *Heap {
	return vm.heap
}

// DefineGlobal binds a value into the global environment.
func (vm *VM) DefineGlobal(name string, v Value) {
	vm.globals[name] = v
}

// GetGlobal reads a global binding.
func (vm *VM) GetGlobal(name string) (Value, bool) {
	v, ok := vm.globals[name]
	return v, ok
}

// ResetState clears transient execution state (stack, frames, open
// upvalues); globals and the heap survive, so a REPL can keep going
// after a runtime error. Open upvalues are closed first so closures
// saved into globals keep the values they held at unwind time instead
// of dangling into the discarded stack.
func (vm *VM) ResetState() {
	vm.closeUpvalues(0)
	vm.stack = vm.stack[:0]
	vm.frames = vm.frames[:0]
}

// Interpret executes a compiled top-level script to completion or to a
// reported runtime error.
func (vm *VM) Interpret(proto *bytecode.Prototype) error {
	if proto == nil || proto.Chunk == nil {
		return vm.errorf("missing prototype")
	}
	vm.ResetState()
	script := vm.heap.NewClosure(proto)
	vm.push(ClosureVal(script))
	if err := vm.callClosure(script, 0); err != nil {
		return err
	}
	_, err := vm.run()
	return err
}

func (vm *VM) run() (Value, error) {
	for len(vm.frames) > 0 {
		fr := vm.currentFrame()
		code := fr.closure.Proto.Chunk.Code
		if fr.ip >= len(code) {
			return Nil(), vm.errorf("instruction pointer out of bounds")
		}
		fr.lastOp = fr.ip
		op := code[fr.ip]
		fr.ip++
		vm.trace(fr, op)

		switch op {
		case bytecode.OP_CONST:
			idx := vm.readU16(fr)
			v, err := vm.constValue(fr, idx)
			if err != nil {
				return Nil(), err
			}
			vm.push(v)
		case bytecode.OP_NIL:
			vm.push(Nil())
		case bytecode.OP_TRUE:
			vm.push(Bool(true))
		case bytecode.OP_FALSE:
			vm.push(Bool(false))
		case bytecode.OP_POP:
			vm.pop()
		case bytecode.OP_GET_LOCAL:
			slot := int(vm.readU8(fr))
			vm.push(vm.stack[fr.base+slot])
		case bytecode.OP_SET_LOCAL:
			slot := int(vm.readU8(fr))
			vm.stack[fr.base+slot] = vm.peek()
		case bytecode.OP_GET_GLOBAL:
			name := vm.nameConst(fr, vm.readU16(fr))
			v, ok := vm.globals[name]
			if !ok {
				return Nil(), vm.errorf("undefined variable '%s'", name)
			}
			vm.push(v)
		case bytecode.OP_DEFINE_GLOBAL:
			name := vm.nameConst(fr, vm.readU16(fr))
			vm.globals[name] = vm.pop()
		case bytecode.OP_SET_GLOBAL:
			name := vm.nameConst(fr, vm.readU16(fr))
			if _, ok := vm.globals[name]; !ok {
				return Nil(), vm.errorf("undefined variable '%s'", name)
			}
			// assignment is an expression: the value stays on the stack
			vm.globals[name] = vm.peek()
		case bytecode.OP_GET_UPVALUE:
			slot := int(vm.readU8(fr))
			vm.push(fr.closure.Upvalues[slot].get())
		case bytecode.OP_SET_UPVALUE:
			slot := int(vm.readU8(fr))
			fr.closure.Upvalues[slot].set(vm.peek())
		case bytecode.OP_EQUAL:
			b := vm.pop()
			a := vm.pop()
			vm.push(Bool(Equal(a, b)))
		case bytecode.OP_GREATER, bytecode.OP_LESS:
			b := vm.pop()
			a := vm.pop()
			if a.Kind != KindNumber || b.Kind != KindNumber {
				return Nil(), vm.errorf("operands must be numbers")
			}
			if op == bytecode.OP_GREATER {
				vm.push(Bool(a.Num > b.Num))
			} else {
				vm.push(Bool(a.Num < b.Num))
			}
		case bytecode.OP_ADD:
			b := vm.pop()
			a := vm.pop()
			switch {
			case a.Kind == KindNumber && b.Kind == KindNumber:
				vm.push(Number(a.Num + b.Num))
			case a.Kind == KindString && b.Kind == KindString:
				vm.push(StringVal(vm.heap.Concat(a.Str, b.Str)))
			default:
				return Nil(), vm.errorf("operands must be two numbers or two strings")
			}
		case bytecode.OP_SUB, bytecode.OP_MUL, bytecode.OP_DIV:
			b := vm.pop()
			a := vm.pop()
			if a.Kind != KindNumber || b.Kind != KindNumber {
				return Nil(), vm.errorf("operands must be numbers")
			}
			switch op {
			case bytecode.OP_SUB:
				vm.push(Number(a.Num - b.Num))
			case bytecode.OP_MUL:
				vm.push(Number(a.Num * b.Num))
			case bytecode.OP_DIV:
				// IEEE-754 semantics: division by zero yields an infinity
				vm.push(Number(a.Num / b.Num))
			}
		case bytecode.OP_NOT:
			v := vm.pop()
			vm.push(Bool(!Truthy(v)))
		case bytecode.OP_NEG:
			v := vm.pop()
			if v.Kind != KindNumber {
				return Nil(), vm.errorf("operand must be a number")
			}
			vm.push(Number(-v.Num))
		case bytecode.OP_TYPEOF:
			v := vm.pop()
			vm.push(StringVal(vm.heap.Intern(TypeName(v))))
		case bytecode.OP_PRINT:
			v := vm.pop()
			fmt.Fprintln(vm.out, Format(v))
		case bytecode.OP_JUMP:
			target := vm.readU16(fr)
			fr.ip = target
		case bytecode.OP_JUMP_IF_FALSE:
			target := vm.readU16(fr)
			if !Truthy(vm.peek()) {
				fr.ip = target
			}
		case bytecode.OP_LOOP:
			target := vm.readU16(fr)
			fr.ip = target
		case bytecode.OP_CALL:
			argc := int(vm.readU8(fr))
			if err := vm.callValue(vm.peekAt(argc), argc); err != nil {
				return Nil(), err
			}
		case bytecode.OP_CLOSURE:
			idx := vm.readU16(fr)
			upcount := int(vm.readU8(fr))
			proto, ok := fr.closure.Proto.Chunk.Consts[idx].(*bytecode.Prototype)
			if !ok {
				return Nil(), vm.errorf("closure constant is not a prototype")
			}
			closure := vm.heap.NewClosure(proto)
			for i := 0; i < upcount; i++ {
				isLocal := vm.readU8(fr)
				slot := int(vm.readU8(fr))
				if isLocal == 1 {
					closure.Upvalues[i] = vm.captureUpvalue(fr.base + slot)
				} else {
					closure.Upvalues[i] = fr.closure.Upvalues[slot]
				}
			}
			vm.push(ClosureVal(closure))
		case bytecode.OP_CLOSE_UPVALUE:
			vm.closeUpvalues(len(vm.stack) - 1)
			vm.pop()
		case bytecode.OP_RETURN:
			result := vm.pop()
			vm.closeUpvalues(fr.base)
			vm.frames = vm.frames[:len(vm.frames)-1]
			vm.stack = vm.stack[:fr.base]
			if len(vm.frames) == 0 {
				return result, nil
			}
			vm.push(result)
		default:
			return Nil(), vm.errorf("unknown opcode %d", op)
		}
	}
	return Nil(), nil
}

func (vm *VM) callValue(callee Value, argc int) error {
	switch callee.Kind {
	case KindFunction:
		return vm.callClosure(callee.Closure, argc)
	case KindNative:
		native := callee.Native
		if argc != native.Arity {
			return vm.errorf("expected %d arguments but got %d", native.Arity, argc)
		}
		args := make([]Value, argc)
		copy(args, vm.stack[len(vm.stack)-argc:])
		res, err := native.Fn(args)
		if err != nil {
			return vm.errorf("%s", err.Error())
		}
		vm.stack = vm.stack[:len(vm.stack)-argc-1]
		vm.push(res)
		return nil
	default:
		return vm.errorf("can only call functions")
	}
}

func (vm *VM) callClosure(cl *Closure, argc int) error {
	if argc != cl.Proto.Arity {
		return vm.errorf("expected %d arguments but got %d", cl.Proto.Arity, argc)
	}
	if len(vm.frames) >= vm.maxFrames {
		return vm.errorf("stack overflow")
	}
	vm.frames = append(vm.frames, frame{
		closure: cl,
		ip:      0,
		base:    len(vm.stack) - argc - 1, // slot 0 holds the callee itself
		lastOp:  -1,
	})
	return nil
}

func (vm *VM) currentFrame() *frame {
	return &vm.frames[len(vm.frames)-1]
}

func (vm *VM) push(v Value) {
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop() Value {
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

func (vm *VM) peek() Value {
	return vm.stack[len(vm.stack)-1]
}

func (vm *VM) peekAt(distance int) Value {
	return vm.stack[len(vm.stack)-1-distance]
}

func (vm *VM) readU8(fr *frame) byte {
	b := fr.closure.Proto.Chunk.Code[fr.ip]
	fr.ip++
	return b
}

func (vm *VM) readU16(fr *frame) int {
	code := fr.closure.Proto.Chunk.Code
	hi := code[fr.ip]
	lo := code[fr.ip+1]
	fr.ip += 2
	return int(hi)<<8 | int(lo)
}

func (vm *VM) constValue(fr *frame, idx int) (Value, error) {
	switch c := fr.closure.Proto.Chunk.Consts[idx].(type) {
	case float64:
		return Number(c), nil
	case string:
		return StringVal(vm.heap.Intern(c)), nil
	case *bytecode.Prototype:
		// Prototypes are only materialized by the closure instruction,
		// which fills in the upvalue slots.
		return Nil(), vm.errorf("prototype constant outside closure instruction")
	default:
		return Nil(), vm.errorf("unknown constant kind")
	}
}

func (vm *VM) nameConst(fr *frame, idx int) string {
	name, _ := fr.closure.Proto.Chunk.Consts[idx].(string)
	return name
}

func (vm *VM) captureUpvalue(slot int) *Upvalue {
	for _, uv := range vm.openUpvalues {
		if uv.open && uv.slot == slot {
			return uv
		}
	}
	uv := vm.newUpvalue(slot)
	vm.openUpvalues = append(vm.openUpvalues, uv)
	return uv
}

func (vm *VM) closeUpvalues(from int) {
	filtered := vm.openUpvalues[:0]
	for _, uv := range vm.openUpvalues {
		if uv.slot >= from {
			uv.close()
			continue
		}
		filtered = append(filtered, uv)
	}
	vm.openUpvalues = filtered
}

package vm

import "fmt"

// TraceInfo describes a single instruction dispatch for debugging.
type TraceInfo struct {
	Op       byte
	Function string
	Line     int
	IP       int
}

// TraceHook observes instruction dispatch for debugging/profiling.
type TraceHook func(TraceInfo)

// FrameInfo captures one call frame at the time of an error.
type FrameInfo struct {
	Function string
	Line     int
	IP       int
}

// RuntimeError carries source/stack information for VM failures. It
// unwinds to the Run caller; it is never a process crash.
type RuntimeError struct {
	Message string
	Line    int
	Stack   []FrameInfo
}

func (e *RuntimeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[line %d] Error: %s", e.Line, e.Message)
	}
	return e.Message
}

func (vm *VM) errorf(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	err := &RuntimeError{
		Message: msg,
		Stack:   vm.stackTrace(),
	}
	if len(err.Stack) > 0 {
		err.Line = err.Stack[0].Line
	}
	vm.ResetState()
	return err
}

func (vm *VM) stackTrace() []FrameInfo {
	if len(vm.frames) == 0 {
		return nil
	}
	trace := make([]FrameInfo, 0, len(vm.frames))
	for i := len(vm.frames) - 1; i >= 0; i-- {
		fr := &vm.frames[i]
		trace = append(trace, vm.frameInfo(fr))
	}
	return trace
}

func (vm *VM) frameInfo(fr *frame) FrameInfo {
	if fr == nil || fr.closure == nil {
		return FrameInfo{}
	}
	proto := fr.closure.Proto
	name := proto.Name
	if name == "" {
		name = "<script>"
	}
	return FrameInfo{
		Function: name,
		Line:     proto.Chunk.LineForOffset(fr.lastOp),
		IP:       fr.lastOp,
	}
}

func (vm *VM) trace(fr *frame, op byte) {
	if vm.traceHook == nil {
		return
	}
	info := vm.frameInfo(fr)
	vm.traceHook(TraceInfo{
		Op:       op,
		Function: info.Function,
		Line:     info.Line,
		IP:       info.IP,
	})
}

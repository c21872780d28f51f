package vm

import "time"

// installStdNatives binds the standard host functions into the globals
// table of a fresh VM.
func installStdNatives(vm *VM) {
	vm.DefineNative("clock", 0, func(args []Value) (Value, error) {
		return Number(float64(time.Now().UnixNano()) / 1e9), nil
	})
}

// DefineNative registers a host-provided callable as a global binding.
func (vm *VM) DefineNative(name string, arity int, fn func(args []Value) (Value, error)) {
	vm.globals[name] = NativeVal(&NativeFn{
		Name:  name,
		Arity: arity,
		Fn:    fn,
	})
}

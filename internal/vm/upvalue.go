package vm

// Upvalue is a relocatable reference to a captured variable. While the
// owning frame is live it addresses a slot on the VM's operand stack by
// index (indices stay valid when the stack grows, unlike Go pointers
// into it); once the frame returns the value is hoisted into closed and
// the upvalue becomes the sole owner.
type Upvalue struct {
	vm     *VM
	slot   int
	open   bool
	closed Value
}

func (vm *VM) newUpvalue(slot int) *Upvalue {
	vm.heap.upvalues++
	return &Upvalue{vm: vm, slot: slot, open: true}
}

func (uv *Upvalue) get() Value {
	if uv.open {
		return uv.vm.stack[uv.slot]
	}
	return uv.closed
}

func (uv *Upvalue) set(v Value) {
	if uv.open {
		uv.vm.stack[uv.slot] = v
		return
	}
	uv.closed = v
}

func (uv *Upvalue) close() {
	if uv.open {
		uv.closed = uv.vm.stack[uv.slot]
		uv.open = false
	}
}

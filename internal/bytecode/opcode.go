package bytecode

// Opcodes for the virtual machine. Operand widths are fixed per opcode:
// u16 operands are encoded big-endian (hi<<8|lo), slot/arity operands are u8.
const (
	OP_CONST byte = iota // u16 constant index
	OP_NIL
	OP_TRUE
	OP_FALSE
	OP_POP
	_ // reserved
	_ // reserved
	_ // reserved

	OP_GET_LOCAL // u8 stack slot
	OP_SET_LOCAL
	OP_GET_GLOBAL // u16 name constant
	OP_DEFINE_GLOBAL
	OP_SET_GLOBAL
	OP_GET_UPVALUE // u8 upvalue slot
	OP_SET_UPVALUE
	_ // reserved

	OP_EQUAL
	OP_GREATER
	OP_LESS
	OP_ADD
	OP_SUB
	OP_MUL
	OP_DIV
	_ // reserved

	OP_NOT
	OP_NEG
	OP_TYPEOF
	OP_PRINT
	_ // reserved
	_ // reserved
	_ // reserved
	_ // reserved

	OP_JUMP          // u16 absolute code offset
	OP_JUMP_IF_FALSE // u16 absolute code offset; condition stays on the stack
	OP_LOOP          // u16 absolute code offset (backward)
	OP_CALL          // u8 argument count
	OP_CLOSURE       // u16 prototype constant, u8 upvalue count, then (isLocal, index) byte pairs
	OP_CLOSE_UPVALUE
	OP_RETURN
)

// Name returns the mnemonic for an opcode.
func Name(op byte) string {
	switch op {
	case OP_CONST:
		return "OP_CONST"
	case OP_NIL:
		return "OP_NIL"
	case OP_TRUE:
		return "OP_TRUE"
	case OP_FALSE:
		return "OP_FALSE"
	case OP_POP:
		return "OP_POP"
	case OP_GET_LOCAL:
		return "OP_GET_LOCAL"
	case OP_SET_LOCAL:
		return "OP_SET_LOCAL"
	case OP_GET_GLOBAL:
		return "OP_GET_GLOBAL"
	case OP_DEFINE_GLOBAL:
		return "OP_DEFINE_GLOBAL"
	case OP_SET_GLOBAL:
		return "OP_SET_GLOBAL"
	case OP_GET_UPVALUE:
		return "OP_GET_UPVALUE"
	case OP_SET_UPVALUE:
		return "OP_SET_UPVALUE"
	case OP_EQUAL:
		return "OP_EQUAL"
	case OP_GREATER:
		return "OP_GREATER"
	case OP_LESS:
		return "OP_LESS"
	case OP_ADD:
		return "OP_ADD"
	case OP_SUB:
		return "OP_SUB"
	case OP_MUL:
		return "OP_MUL"
	case OP_DIV:
		return "OP_DIV"
	case OP_NOT:
		return "OP_NOT"
	case OP_NEG:
		return "OP_NEG"
	case OP_TYPEOF:
		return "OP_TYPEOF"
	case OP_PRINT:
		return "OP_PRINT"
	case OP_JUMP:
		return "OP_JUMP"
	case OP_JUMP_IF_FALSE:
		return "OP_JUMP_IF_FALSE"
	case OP_LOOP:
		return "OP_LOOP"
	case OP_CALL:
		return "OP_CALL"
	case OP_CLOSURE:
		return "OP_CLOSURE"
	case OP_CLOSE_UPVALUE:
		return "OP_CLOSE_UPVALUE"
	case OP_RETURN:
		return "OP_RETURN"
	default:
		return "OP_UNKNOWN"
	}
}

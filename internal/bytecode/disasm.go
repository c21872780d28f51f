package bytecode

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Disassembler formats bytecode as a readable assembly-style dump. It is
// a pure, read-only view: chunks are never mutated, and disassembling the
// same chunk twice yields identical text.
type Disassembler struct {
	w       io.Writer
	visited map[*Prototype]bool
	printed bool
}

// NewDisassembler constructs a disassembler that writes to w.
func NewDisassembler(w io.Writer) *Disassembler {
	return &Disassembler{
		w:       w,
		visited: make(map[*Prototype]bool),
	}
}

// Disassemble emits a readable dump for a prototype and any nested
// prototypes found in its constant pool.
func (d *Disassembler) Disassemble(label string, proto *Prototype) error {
	if proto == nil || proto.Chunk == nil {
		return fmt.Errorf("nil prototype")
	}
	if d.visited[proto] {
		return nil
	}
	d.visited[proto] = true
	d.startSection()
	name := label
	if name == "" {
		name = proto.Name
	}
	if name == "" {
		name = "<script>"
	}
	fmt.Fprintf(d.w, "== %s (arity=%d, upvalues=%d) ==\n", name, proto.Arity, len(proto.Upvalues))
	if err := d.disassembleChunk(proto.Chunk); err != nil {
		return err
	}
	for idx, c := range proto.Chunk.Consts {
		child, ok := c.(*Prototype)
		if !ok {
			continue
		}
		childName := child.Name
		if childName == "" {
			childName = fmt.Sprintf("<fn@const:%d>", idx)
		}
		if err := d.Disassemble(childName, child); err != nil {
			return err
		}
	}
	return nil
}

func (d *Disassembler) startSection() {
	if d.printed {
		fmt.Fprintln(d.w)
	}
	d.printed = true
}

func (d *Disassembler) disassembleChunk(chunk *Chunk) error {
	code := chunk.Code
	lastLine := 0
	for ip := 0; ip < len(code); {
		offset := ip
		op := code[ip]
		ip++
		line := chunk.LineForOffset(offset)
		lineStr := "   |"
		if line != lastLine {
			lineStr = fmt.Sprintf("%4d", line)
			lastLine = line
		}
		operands, err := d.decodeOperands(op, chunk, &ip)
		if err != nil {
			return err
		}
		fmt.Fprintf(d.w, "%04d %s %-16s", offset, lineStr, Name(op))
		if operands != "" {
			fmt.Fprintf(d.w, " %s", operands)
		}
		fmt.Fprintln(d.w)
	}
	return nil
}

func (d *Disassembler) decodeOperands(op byte, chunk *Chunk, ip *int) (string, error) {
	code := chunk.Code
	switch op {
	case OP_CONST:
		idx, err := readU16(code, ip)
		if err != nil {
			return "", err
		}
		if int(idx) >= len(chunk.Consts) {
			return "", fmt.Errorf("const index out of range: %d", idx)
		}
		return fmt.Sprintf("%d ; %s", idx, formatConst(chunk.Consts[idx])), nil
	case OP_GET_GLOBAL, OP_SET_GLOBAL, OP_DEFINE_GLOBAL:
		idx, err := readU16(code, ip)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d ; name=%s", idx, formatConstRef(chunk, idx)), nil
	case OP_GET_LOCAL, OP_SET_LOCAL, OP_GET_UPVALUE, OP_SET_UPVALUE, OP_CALL:
		slot, err := readU8(code, ip)
		if err != nil {
			return "", err
		}
		return strconv.Itoa(int(slot)), nil
	case OP_JUMP, OP_JUMP_IF_FALSE, OP_LOOP:
		target, err := readU16(code, ip)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("-> %04d", target), nil
	case OP_CLOSURE:
		idx, err := readU16(code, ip)
		if err != nil {
			return "", err
		}
		upcount, err := readU8(code, ip)
		if err != nil {
			return "", err
		}
		upvals := make([]string, 0, upcount)
		for i := 0; i < int(upcount); i++ {
			isLocal, err := readU8(code, ip)
			if err != nil {
				return "", err
			}
			slot, err := readU8(code, ip)
			if err != nil {
				return "", err
			}
			if isLocal == 1 {
				upvals = append(upvals, fmt.Sprintf("local %d", slot))
			} else {
				upvals = append(upvals, fmt.Sprintf("upvalue %d", slot))
			}
		}
		operand := fmt.Sprintf("%d ; %s", idx, formatConstRef(chunk, idx))
		if len(upvals) > 0 {
			operand += " [" + strings.Join(upvals, ", ") + "]"
		}
		return operand, nil
	default:
		return "", nil
	}
}

func readU8(code []byte, ip *int) (byte, error) {
	if *ip >= len(code) {
		return 0, fmt.Errorf("unexpected end of bytecode")
	}
	val := code[*ip]
	*ip = *ip + 1
	return val, nil
}

func readU16(code []byte, ip *int) (uint16, error) {
	if *ip+1 >= len(code) {
		return 0, fmt.Errorf("unexpected end of bytecode")
	}
	hi := code[*ip]
	lo := code[*ip+1]
	*ip += 2
	return uint16(hi)<<8 | uint16(lo), nil
}

func formatConstRef(chunk *Chunk, idx uint16) string {
	if chunk == nil || int(idx) >= len(chunk.Consts) {
		return "<invalid>"
	}
	return formatConst(chunk.Consts[idx])
}

func formatConst(v Const) string {
	switch val := v.(type) {
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case string:
		return strconv.Quote(val)
	case *Prototype:
		name := val.Name
		if name == "" {
			name = "<anon>"
		}
		return "proto " + name
	default:
		return "<unknown>"
	}
}

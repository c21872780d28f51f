package bytecode

import (
	"strings"
	"testing"
)

func sampleProto(t *testing.T) *Prototype {
	t.Helper()
	inner := &Prototype{
		Name:  "inner",
		Arity: 1,
		Chunk: &Chunk{},
		Upvalues: []Upvalue{
			{IsLocal: true, Index: 1},
		},
	}
	inner.Chunk.Write(2, OP_GET_LOCAL, 1)
	inner.Chunk.Write(2, OP_RETURN)

	chunk := &Chunk{}
	idx := chunk.AddConst(1.5)
	chunk.Write(1, OP_CONST, byte(idx>>8), byte(idx&0xff))
	protoIdx := chunk.AddConst(inner)
	chunk.Write(1, OP_CLOSURE, byte(protoIdx>>8), byte(protoIdx&0xff), 1, 1, 1)
	chunk.Write(3, OP_NIL)
	chunk.Write(3, OP_RETURN)

	return &Prototype{Name: "", Chunk: chunk}
}

func disassemble(t *testing.T, proto *Prototype) string {
	t.Helper()
	var sb strings.Builder
	if err := NewDisassembler(&sb).Disassemble("", proto); err != nil {
		t.Fatalf("disassemble error: %v", err)
	}
	return sb.String()
}

func TestDisassembleListing(t *testing.T) {
	out := disassemble(t, sampleProto(t))

	if !strings.Contains(out, "== <script> (arity=0, upvalues=0) ==") {
		t.Fatalf("missing script header:\n%s", out)
	}
	if !strings.Contains(out, "== inner (arity=1, upvalues=1) ==") {
		t.Fatalf("missing nested prototype section:\n%s", out)
	}
	if !strings.Contains(out, "OP_CONST") || !strings.Contains(out, "1.5") {
		t.Fatalf("missing constant operand:\n%s", out)
	}
	if !strings.Contains(out, "OP_CLOSURE") || !strings.Contains(out, "[local 1]") {
		t.Fatalf("missing closure capture list:\n%s", out)
	}
}

func TestDisassembleLineColumn(t *testing.T) {
	out := disassemble(t, sampleProto(t))
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	var instr []string
	for _, l := range lines {
		if strings.HasPrefix(l, "==") || l == "" {
			continue
		}
		instr = append(instr, l)
	}
	if len(instr) < 4 {
		t.Fatalf("expected at least 4 instruction lines, got %v", instr)
	}
	if !strings.Contains(instr[0], "   1") {
		t.Fatalf("first instruction must show its line: %q", instr[0])
	}
	if !strings.Contains(instr[1], "   |") {
		t.Fatalf("repeat line must be elided: %q", instr[1])
	}
}

func TestDisassembleStable(t *testing.T) {
	proto := sampleProto(t)
	first := disassemble(t, proto)
	second := disassemble(t, proto)
	if first != second {
		t.Fatalf("disassembly must be deterministic:\n%s\n---\n%s", first, second)
	}
}

func TestDisassembleDoesNotMutate(t *testing.T) {
	proto := sampleProto(t)
	before := append([]byte(nil), proto.Chunk.Code...)
	constsBefore := len(proto.Chunk.Consts)
	_ = disassemble(t, proto)
	if string(before) != string(proto.Chunk.Code) {
		t.Fatalf("disassembly must not mutate code")
	}
	if len(proto.Chunk.Consts) != constsBefore {
		t.Fatalf("disassembly must not mutate the constant pool")
	}
}

func TestDisassembleJumpTargets(t *testing.T) {
	chunk := &Chunk{}
	chunk.Write(1, OP_TRUE)
	chunk.Write(1, OP_JUMP_IF_FALSE, 0x00, 0x07)
	chunk.Write(1, OP_POP)
	chunk.Write(1, OP_NIL)
	chunk.Write(1, OP_RETURN)
	proto := &Prototype{Name: "jumps", Chunk: chunk}

	out := disassemble(t, proto)
	if !strings.Contains(out, "OP_JUMP_IF_FALSE -> 0007") {
		t.Fatalf("expected formatted jump target:\n%s", out)
	}
}

func TestDisassembleNilPrototype(t *testing.T) {
	var sb strings.Builder
	if err := NewDisassembler(&sb).Disassemble("x", nil); err == nil {
		t.Fatalf("expected error for nil prototype")
	}
}

func TestDisassembleTruncatedBytecode(t *testing.T) {
	chunk := &Chunk{}
	chunk.Write(1, OP_CONST, 0x00) // missing low byte
	proto := &Prototype{Name: "bad", Chunk: chunk}
	var sb strings.Builder
	if err := NewDisassembler(&sb).Disassemble("", proto); err == nil {
		t.Fatalf("expected error for truncated operand")
	}
}

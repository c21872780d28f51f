package bytecode

import "testing"

func TestChunkWriteRecordsLines(t *testing.T) {
	chunk := &Chunk{}
	chunk.Write(1, OP_NIL)
	chunk.Write(1, OP_POP)
	chunk.Write(3, OP_TRUE)

	if len(chunk.Code) != 3 {
		t.Fatalf("expected 3 bytes, got %d", len(chunk.Code))
	}
	if got := chunk.LineForOffset(0); got != 1 {
		t.Fatalf("offset 0: expected line 1, got %d", got)
	}
	if got := chunk.LineForOffset(1); got != 1 {
		t.Fatalf("offset 1: expected line 1, got %d", got)
	}
	if got := chunk.LineForOffset(2); got != 3 {
		t.Fatalf("offset 2: expected line 3, got %d", got)
	}
	if len(chunk.Lines) != 2 {
		t.Fatalf("expected 2 line entries, got %#v", chunk.Lines)
	}
}

func TestChunkAddConstDedup(t *testing.T) {
	chunk := &Chunk{}
	a := chunk.AddConst(1.5)
	b := chunk.AddConst(1.5)
	if a != b {
		t.Fatalf("duplicate number constants must share an index: %d vs %d", a, b)
	}
	s1 := chunk.AddConst("name")
	s2 := chunk.AddConst("name")
	if s1 != s2 {
		t.Fatalf("duplicate string constants must share an index: %d vs %d", s1, s2)
	}
	if len(chunk.Consts) != 2 {
		t.Fatalf("expected 2 constants, got %v", chunk.Consts)
	}
}

func TestChunkAddConstPrototypesNotDeduped(t *testing.T) {
	chunk := &Chunk{}
	p1 := &Prototype{Name: "f", Chunk: &Chunk{}}
	p2 := &Prototype{Name: "f", Chunk: &Chunk{}}
	a := chunk.AddConst(p1)
	b := chunk.AddConst(p2)
	if a == b {
		t.Fatalf("distinct prototypes must get distinct indices")
	}
}

func TestChunkLineForOffsetOutOfRange(t *testing.T) {
	chunk := &Chunk{}
	if got := chunk.LineForOffset(0); got != 0 {
		t.Fatalf("empty chunk: expected 0, got %d", got)
	}
	if got := chunk.LineForOffset(-1); got != 0 {
		t.Fatalf("negative offset: expected 0, got %d", got)
	}
	var nilChunk *Chunk
	if got := nilChunk.LineForOffset(5); got != 0 {
		t.Fatalf("nil chunk: expected 0, got %d", got)
	}
}

func TestOpcodeNames(t *testing.T) {
	if Name(OP_CONST) != "OP_CONST" {
		t.Fatalf("unexpected name for OP_CONST")
	}
	if Name(OP_RETURN) != "OP_RETURN" {
		t.Fatalf("unexpected name for OP_RETURN")
	}
	if Name(0xff) != "OP_UNKNOWN" {
		t.Fatalf("unexpected name for unknown opcode")
	}
}

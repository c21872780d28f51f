package vm

import "github.com/xirelogy/go-lox/internal/bytecode"

// StrObject is an immutable, interned heap string. Because interning
// deduplicates by content, two equal strings share one object and
// equality is handle equality.
type StrObject struct {
	S string
}

// Heap owns heap-allocated runtime objects: it interns strings and
// tracks allocation counts. Reclamation is delegated to the Go
// collector, which preserves the only hard lifetime contract: an object
// stays alive while reachable from the operand stack, a call frame, the
// globals table, or another live closure/upvalue, and is collected once
// it is not.
type Heap struct {
	strings  map[string]*StrObject
	closures int
	upvalues int
}

// HeapStats reports allocation counts since the heap was created.
type HeapStats struct {
	InternedStrings int
	Closures        int
	Upvalues        int
}

// NewHeap constructs an empty heap.
func NewHeap() *Heap {
	return &Heap{
		strings: make(map[string]*StrObject),
	}
}

// Intern returns the canonical object for a string, allocating on first
// use.
func (h *Heap) Intern(s string) *StrObject {
	if obj, ok := h.strings[s]; ok {
		return obj
	}
	obj := &StrObject{S: s}
	h.strings[s] = obj
	return obj
}

// Concat interns the concatenation of two strings.
func (h *Heap) Concat(a, b *StrObject) *StrObject {
	return h.Intern(a.S + b.S)
}

// NewClosure allocates a closure over a compiled prototype with
// unfilled upvalue slots.
func (h *Heap) NewClosure(proto *bytecode.Prototype) *Closure {
	h.closures++
	return &Closure{
		Proto:    proto,
		Upvalues: make([]*Upvalue, len(proto.Upvalues)),
	}
}

// Stats returns current allocation counts.
func (h *Heap) Stats() HeapStats {
	return HeapStats{
		InternedStrings: len(h.strings),
		Closures:        h.closures,
		Upvalues:        h.upvalues,
	}
}

package bytecode

// Const is a compile-time constant stored in a chunk's pool: a float64,
// a string, or a *Prototype for nested function bodies.
type Const interface{}

// Chunk is a compiled bytecode sequence with its constant pool and line
// table. It is mutable only while the compiler owns it; once a function
// body finishes compiling it is treated as immutable.
type Chunk struct {
	Code   []byte
	Consts []Const
	Lines  []LineInfo
}

// LineInfo maps bytecode offsets to source lines (start-inclusive).
type LineInfo struct {
	Offset int
	Line   int
}

// Prototype represents a compiled function body.
type Prototype struct {
	Name     string
	Source   string
	Arity    int
	Chunk    *Chunk
	Upvalues []Upvalue
}

// Upvalue describes one captured variable: a slot in the immediately
// enclosing function's locals, or an upvalue of that function.
type Upvalue struct {
	IsLocal bool
	Index   uint8
}

// Write appends bytes to the code stream, recording the source line for
// the written offset.
func (c *Chunk) Write(line int, bs ...byte) {
	c.recordLine(line)
	c.Code = append(c.Code, bs...)
}

// AddConst appends a constant and returns its pool index. Number and
// string constants are deduplicated to bound pool growth.
func (c *Chunk) AddConst(v Const) int {
	switch v.(type) {
	case float64, string:
		for i, existing := range c.Consts {
			if existing == v {
				return i
			}
		}
	}
	c.Consts = append(c.Consts, v)
	return len(c.Consts) - 1
}

// LineForOffset resolves the source line for a bytecode offset, for
// diagnostics only; the dispatch loop never reads the line table.
func (c *Chunk) LineForOffset(offset int) int {
	if c == nil || offset < 0 {
		return 0
	}
	line := 0
	for _, info := range c.Lines {
		if info.Offset > offset {
			break
		}
		line = info.Line
	}
	return line
}

func (c *Chunk) recordLine(line int) {
	if line <= 0 {
		return
	}
	off := len(c.Code)
	if n := len(c.Lines); n == 0 || c.Lines[n-1].Line != line {
		c.Lines = append(c.Lines, LineInfo{Offset: off, Line: line})
	}
}

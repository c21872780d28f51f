package compiler

import "github.com/xirelogy/go-lox/internal/bytecode"

type funcKind int

const (
	kindScript funcKind = iota
	kindFunction
)

// local models one declared local variable: its name, the scope depth it
// was declared at (-1 until the initializer finishes), and whether any
// nested function captured it.
type local struct {
	name     string
	depth    int
	captured bool
}

// funcCompiler tracks per-function compilation state: the chunk being
// emitted, the local slot stack, and upvalue captures. Instances nest
// through enclosing, mirroring lexical function nesting.
type funcCompiler struct {
	enclosing  *funcCompiler
	proto      *bytecode.Prototype
	kind       funcKind
	locals     []local
	scopeDepth int
}

func newFuncCompiler(enclosing *funcCompiler, name string, kind funcKind, source string) *funcCompiler {
	fc := &funcCompiler{
		enclosing: enclosing,
		kind:      kind,
		proto: &bytecode.Prototype{
			Name:   name,
			Source: source,
			Chunk:  &bytecode.Chunk{},
		},
	}
	// slot 0 belongs to the callee value itself
	fc.locals = append(fc.locals, local{name: "", depth: 0})
	return fc
}

const (
	maxLocals = 256
	// the closure instruction carries the capture count in one byte
	maxUpvalues = 255
)

func (c *Compiler) addLocal(name string) {
	fc := c.fc
	if len(fc.locals) >= maxLocals {
		c.errorAtPrev("too many local variables in function")
		return
	}
	fc.locals = append(fc.locals, local{name: name, depth: -1})
}

func (c *Compiler) markInitialized() {
	fc := c.fc
	if fc.scopeDepth == 0 {
		return
	}
	fc.locals[len(fc.locals)-1].depth = fc.scopeDepth
}

// resolveLocal searches the function's locals innermost-first. Reading a
// variable inside its own initializer is a compile error.
func (c *Compiler) resolveLocal(fc *funcCompiler, name string) (int, bool) {
	for i := len(fc.locals) - 1; i >= 0; i-- {
		l := &fc.locals[i]
		if l.name == name {
			if l.depth == -1 {
				c.errorAtPrev("can't read local variable in its own initializer")
			}
			return i, true
		}
	}
	return 0, false
}

// resolveUpvalue walks enclosing function compilers to find a name,
// marking the source local as captured and threading an upvalue
// descriptor through every intermediate function.
func (c *Compiler) resolveUpvalue(fc *funcCompiler, name string) (int, bool) {
	if fc.enclosing == nil {
		return 0, false
	}
	if slot, ok := c.resolveLocal(fc.enclosing, name); ok {
		fc.enclosing.locals[slot].captured = true
		return c.addUpvalue(fc, uint8(slot), true), true
	}
	if idx, ok := c.resolveUpvalue(fc.enclosing, name); ok {
		return c.addUpvalue(fc, uint8(idx), false), true
	}
	return 0, false
}

func (c *Compiler) addUpvalue(fc *funcCompiler, index uint8, isLocal bool) int {
	for i, uv := range fc.proto.Upvalues {
		if uv.Index == index && uv.IsLocal == isLocal {
			return i
		}
	}
	if len(fc.proto.Upvalues) >= maxUpvalues {
		c.errorAtPrev("too many closure variables in function")
		return 0
	}
	fc.proto.Upvalues = append(fc.proto.Upvalues, bytecode.Upvalue{IsLocal: isLocal, Index: index})
	return len(fc.proto.Upvalues) - 1
}

func (c *Compiler) beginScope() {
	c.fc.scopeDepth++
}

// endScope pops every local declared in the closing block, closing the
// ones that were captured so closures keep observing them.
func (c *Compiler) endScope() {
	fc := c.fc
	fc.scopeDepth--
	for len(fc.locals) > 0 && fc.locals[len(fc.locals)-1].depth > fc.scopeDepth {
		if fc.locals[len(fc.locals)-1].captured {
			c.emit(bytecode.OP_CLOSE_UPVALUE)
		} else {
			c.emit(bytecode.OP_POP)
		}
		fc.locals = fc.locals[:len(fc.locals)-1]
	}
}

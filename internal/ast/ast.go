package ast

import "github.com/xirelogy/go-lox/internal/token"

// Node is the common interface of every syntax tree node.
type Node interface {
	StartLine() int
}

// Expr is an expression node; evaluating one yields a value.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a statement node; executing one has effects only.
type Stmt interface {
	Node
	stmtNode()
}

// expressions

type Literal struct {
	Line int
	Kind token.Kind // Number, String, True, False, Nil
	Num  float64
	Str  string
}

type Grouping struct {
	Line  int
	Inner Expr
}

type Unary struct {
	Line    int
	Op      token.Kind // Minus, Bang, Typeof
	Operand Expr
}

type Binary struct {
	Line  int
	Op    token.Kind
	Left  Expr
	Right Expr
}

// Logical covers 'and' / 'or', which short-circuit and so cannot share
// Binary's eager evaluation.
type Logical struct {
	Line  int
	Op    token.Kind
	Left  Expr
	Right Expr
}

// Variable is a name reference. Depth is filled in by the resolver: the
// number of environment hops to the binding, or -1 for a global.
type Variable struct {
	Line  int
	Name  string
	Depth int
}

// Assign is `name = value`. Depth mirrors Variable.Depth.
type Assign struct {
	Line  int
	Name  string
	Value Expr
	Depth int
}

type Call struct {
	Line   int
	Callee Expr
	Args   []Expr
}

func (e *Literal) StartLine() int { return e.Line }
func (e *Grouping) StartLine() int { return e.Line }
func (e *Unary) StartLine() int { return e.Line }
func (e *Binary) StartLine() int { return e.Line }
func (e *Logical) StartLine() int { return e.Line }
func (e *Variable) StartLine() int { return e.Line }
func (e *Assign) StartLine() int { return e.Line }
func (e *Call) StartLine() int { return e.Line }

func (*Literal) exprNode() {}
func (*Grouping) exprNode() {}
func (*Unary) exprNode() {}
func (*Binary) exprNode() {}
func (*Logical) exprNode() {}
func (*Variable) exprNode() {}
func (*Assign) exprNode() {}
func (*Call) exprNode() {}

// statements

type ExprStmt struct {
	Line int
	E    Expr
}

type PrintStmt struct {
	Line int
	E    Expr
}

type VarDecl struct {
	Line int
	Name string
	Init Expr // nil when absent
}

type FunDecl struct {
	Line   int
	Name   string
	Params []string
	Body   []Stmt
}

type Block struct {
	Line  int
	Stmts []Stmt
}

type IfStmt struct {
	Line int
	Cond Expr
	Then Stmt
	Else Stmt // nil when absent
}

type WhileStmt struct {
	Line int
	Cond Expr
	Body Stmt
}

type ReturnStmt struct {
	Line  int
	Value Expr // nil for bare return
}

func (s *ExprStmt) StartLine() int { return s.Line }
func (s *PrintStmt) StartLine() int { return s.Line }
func (s *VarDecl) StartLine() int { return s.Line }
func (s *FunDecl) StartLine() int { return s.Line }
func (s *Block) StartLine() int { return s.Line }
func (s *IfStmt) StartLine() int { return s.Line }
func (s *WhileStmt) StartLine() int { return s.Line }
func (s *ReturnStmt) StartLine() int { return s.Line }

func (*ExprStmt) stmtNode() {}
func (*PrintStmt) stmtNode() {}
func (*VarDecl) stmtNode() {}
func (*FunDecl) stmtNode() {}
func (*Block) stmtNode() {}
func (*IfStmt) stmtNode() {}
func (*WhileStmt) stmtNode() {}
func (*ReturnStmt) stmtNode() {}

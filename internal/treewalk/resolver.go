package treewalk

import (
	"fmt"
	"strings"

	"github.com/xirelogy/go-lox/internal/ast"
)

// ResolveError is a single static-analysis diagnostic.
type ResolveError struct {
	Line    int
	Message string
}

func (e ResolveError) Error() string {
	return fmt.Sprintf("[line %d] Error: %s", e.Line, e.Message)
}

// ResolveErrorList collects every diagnostic found in one resolve pass.
type ResolveErrorList []ResolveError

func (el ResolveErrorList) Error() string {
	msgs := make([]string, len(el))
	for i, e := range el {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

type varState int

const (
	varDeclared varState = iota
	varDefined
)

// Resolver annotates Variable and Assign nodes with the number of scope
// hops to their binding (-1 means global) and rejects the static errors
// the evaluator must never see: reading a local inside its own
// initializer, redeclaring a local, and returning outside a function.
type Resolver struct {
	scopes []map[string]varState
	inFunc bool
	errors []ResolveError
}

// NewResolver creates a resolver with the global scope implicit.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve analyzes a whole program in place.
func (r *Resolver) Resolve(program []ast.Stmt) ResolveErrorList {
	for _, stmt := range program {
		r.stmt(stmt)
	}
	if len(r.errors) > 0 {
		return ResolveErrorList(r.errors)
	}
	return nil
}

func (r *Resolver) errorf(line int, format string, args ...any) {
	r.errors = append(r.errors, ResolveError{Line: line, Message: fmt.Sprintf(format, args...)})
}

func (r *Resolver) beginScope() {
	r.scopes = append(r.scopes, make(map[string]varState))
}

func (r *Resolver) endScope() {
	r.scopes = r.scopes[:len(r.scopes)-1]
}

func (r *Resolver) declare(name string, line int) {
	if len(r.scopes) == 0 {
		return
	}
	scope := r.scopes[len(r.scopes)-1]
	if _, ok := scope[name]; ok {
		r.errorf(line, "already a variable with this name in this scope")
	}
	scope[name] = varDeclared
}

func (r *Resolver) define(name string) {
	if len(r.scopes) == 0 {
		return
	}
	r.scopes[len(r.scopes)-1][name] = varDefined
}

// depthOf returns the scope hop count for a name, or -1 when the name is
// not a local (and so resolves to the global table at runtime).
func (r *Resolver) depthOf(name string) int {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if _, ok := r.scopes[i][name]; ok {
			return len(r.scopes) - 1 - i
		}
	}
	return -1
}

func (r *Resolver) stmt(s ast.Stmt) {
	switch node := s.(type) {
	case *ast.ExprStmt:
		r.expr(node.E)
	case *ast.PrintStmt:
		r.expr(node.E)
	case *ast.VarDecl:
		r.declare(node.Name, node.Line)
		if node.Init != nil {
			r.expr(node.Init)
		}
		r.define(node.Name)
	case *ast.FunDecl:
		r.declare(node.Name, node.Line)
		r.define(node.Name)
		r.function(node)
	case *ast.Block:
		r.beginScope()
		for _, inner := range node.Stmts {
			r.stmt(inner)
		}
		r.endScope()
	case *ast.IfStmt:
		r.expr(node.Cond)
		r.stmt(node.Then)
		if node.Else != nil {
			r.stmt(node.Else)
		}
	case *ast.WhileStmt:
		r.expr(node.Cond)
		r.stmt(node.Body)
	case *ast.ReturnStmt:
		if !r.inFunc {
			r.errorf(node.Line, "can't return from top-level code")
		}
		if node.Value != nil {
			r.expr(node.Value)
		}
	}
}

func (r *Resolver) function(node *ast.FunDecl) {
	wasInFunc := r.inFunc
	r.inFunc = true
	r.beginScope()
	for _, param := range node.Params {
		r.declare(param, node.Line)
		r.define(param)
	}
	for _, inner := range node.Body {
		r.stmt(inner)
	}
	r.endScope()
	r.inFunc = wasInFunc
}

func (r *Resolver) expr(e ast.Expr) {
	switch node := e.(type) {
	case *ast.Literal:
	case *ast.Grouping:
		r.expr(node.Inner)
	case *ast.Unary:
		r.expr(node.Operand)
	case *ast.Binary:
		r.expr(node.Left)
		r.expr(node.Right)
	case *ast.Logical:
		r.expr(node.Left)
		r.expr(node.Right)
	case *ast.Variable:
		if len(r.scopes) > 0 {
			if state, ok := r.scopes[len(r.scopes)-1][node.Name]; ok && state == varDeclared {
				r.errorf(node.Line, "can't read local variable in its own initializer")
			}
		}
		node.Depth = r.depthOf(node.Name)
	case *ast.Assign:
		r.expr(node.Value)
		node.Depth = r.depthOf(node.Name)
	case *ast.Call:
		r.expr(node.Callee)
		for _, arg := range node.Args {
			r.expr(arg)
		}
	}
}

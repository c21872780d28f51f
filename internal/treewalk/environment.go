package treewalk

import "github.com/xirelogy/go-lox/internal/vm"

// Environment is one lexical scope: a name table plus a link to the
// enclosing scope. Globals live in the chain's root.
type Environment struct {
	values map[string]vm.Value
	parent *Environment
}

// NewEnvironment creates a scope nested inside parent (nil for the
// global scope).
func NewEnvironment(parent *Environment) *Environment {
	return &Environment{
		values: make(map[string]vm.Value),
		parent: parent,
	}
}

// Define binds a name in this scope, shadowing any outer binding.
func (env *Environment) Define(name string, v vm.Value) {
	env.values[name] = v
}

// Get reads a binding from this scope only.
func (env *Environment) Get(name string) (vm.Value, bool) {
	v, ok := env.values[name]
	return v, ok
}

// Assign rewrites an existing binding in this scope only.
func (env *Environment) Assign(name string, v vm.Value) bool {
	if _, ok := env.values[name]; !ok {
		return false
	}
	env.values[name] = v
	return true
}

// Ancestor walks up the chain a fixed number of hops. Resolver depths
// make this walk exact, so a missing ancestor is an internal bug.
func (env *Environment) Ancestor(hops int) *Environment {
	e := env
	for i := 0; i < hops && e != nil; i++ {
		e = e.parent
	}
	return e
}

// Root returns the global scope at the bottom of the chain.
func (env *Environment) Root() *Environment {
	e := env
	for e.parent != nil {
		e = e.parent
	}
	return e
}

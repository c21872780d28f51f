package vm

import (
	"math"
	"strconv"

	"github.com/xirelogy/go-lox/internal/bytecode"
)

// Kind discriminates the closed set of runtime value kinds.
type Kind int

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindString
	KindFunction
	KindNative
)

// Value is the tagged runtime representation. Nil, booleans and numbers
// are stored inline; strings, closures and natives are heap objects
// referenced by handle.
type Value struct {
	Kind    Kind
	B       bool
	Num     float64
	Str     *StrObject
	Closure *Closure
	Native  *NativeFn
}

// Closure wraps a compiled function prototype together with the upvalues
// captured at closure-creation time.
type Closure struct {
	Proto    *bytecode.Prototype
	Upvalues []*Upvalue
}

// NativeFn is a host-provided callable; it is never compiled.
type NativeFn struct {
	Name  string
	Arity int
	Fn    func(args []Value) (Value, error)
}

func Nil() Value { return Value{Kind: KindNil} }
func Bool(b bool) Value {
	return Value{Kind: KindBool, B: b}
}
func Number(n float64) Value {
	return Value{Kind: KindNumber, Num: n}
}
func StringVal(s *StrObject) Value {
	return Value{Kind: KindString, Str: s}
}
func ClosureVal(cl *Closure) Value {
	return Value{Kind: KindFunction, Closure: cl}
}
func NativeVal(fn *NativeFn) Value {
	return Value{Kind: KindNative, Native: fn}
}

// Truthy follows the language rule: nil and false are falsy, everything
// else (including 0 and "") is truthy.
func Truthy(v Value) bool {
	switch v.Kind {
	case KindNil:
		return false
	case KindBool:
		return v.B
	default:
		return true
	}
}

// Equal compares without coercion. Strings are interned, so comparing
// handles is comparing contents.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNil:
		return true
	case KindBool:
		return a.B == b.B
	case KindNumber:
		return a.Num == b.Num
	case KindString:
		return a.Str == b.Str
	case KindFunction:
		return a.Closure == b.Closure
	case KindNative:
		return a.Native == b.Native
	default:
		return false
	}
}

// TypeName reports the dynamic type name for a value.
func TypeName(v Value) string {
	switch v.Kind {
	case KindNil:
		return "nil"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindFunction, KindNative:
		return "function"
	default:
		return "unknown"
	}
}

// Format renders a value the way print shows it.
func Format(v Value) string {
	switch v.Kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.B {
			return "true"
		}
		return "false"
	case KindNumber:
		return formatNumber(v.Num)
	case KindString:
		return v.Str.S
	case KindFunction:
		name := v.Closure.Proto.Name
		if name == "" {
			return "<script>"
		}
		return "<fn " + name + ">"
	case KindNative:
		if v.Native.Name == "" {
			return "<native fn>"
		}
		return "<fn " + v.Native.Name + ">"
	default:
		return "<unknown>"
	}
}

func formatNumber(n float64) string {
	if math.IsInf(n, 1) {
		return "inf"
	}
	if math.IsInf(n, -1) {
		return "-inf"
	}
	if math.IsNaN(n) {
		return "nan"
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

package ir

import (
	"github.com/gogpu/spvgen/diag"
	"github.com/gogpu/spvgen/types"
)

// Value is anything that can appear as a callee or argument of a label body.
type Value interface {
	value()
}

// None is the absent value. As a continuation it means the body does not
// continue.
type None struct{}

// ConstInt is an integer or boolean constant.
type ConstInt struct {
	Type  types.Type
	Value uint64
}

// ConstReal is a floating point constant.
type ConstReal struct {
	Type  types.Type
	Value float64
}

// ConstNull is the zero value of Type.
type ConstNull struct {
	Type types.Type
}

// ConstAggregate is a composite constant. Elements may be parameters, in
// which case the value is built at runtime.
type ConstAggregate struct {
	Type   types.Type
	Values []Value
}

// TypeValue passes a type as an operand (casts, alloca).
type TypeValue struct {
	Type types.Type
}

// Closure is a label bound to a compile-time frame. It cannot be called at
// runtime.
type Closure struct {
	Label *Label
	Frame string
}

// Global is a module-scope variable. Type must be a pointer type. Location,
// Binding and Set are ignored when negative.
type Global struct {
	Name     string
	Type     types.Type
	Location int
	Binding  int
	Set      int
	Builtin  string
	Anchor   diag.Anchor
}

// NewGlobal returns a global without decorations.
func NewGlobal(name string, typ types.Type) *Global {
	return &Global{Name: name, Type: typ, Location: -1, Binding: -1, Set: -1}
}

func (None) value()           {}
func (ConstInt) value()       {}
func (ConstReal) value()      {}
func (ConstNull) value()      {}
func (ConstAggregate) value() {}
func (TypeValue) value()      {}
func (*Closure) value()       {}
func (*Global) value()        {}
func (Builtin) value()        {}
func (*Label) value()         {}
func (*Parameter) value()     {}

// Int returns an i32 constant.
func Int(v int32) ConstInt {
	return ConstInt{Type: types.I32, Value: uint64(uint32(v))}
}

// Uint returns a u32 constant.
func Uint(v uint32) ConstInt {
	return ConstInt{Type: types.U32, Value: uint64(v)}
}

// Bool returns a boolean constant.
func Bool(v bool) ConstInt {
	if v {
		return ConstInt{Type: types.Bool, Value: 1}
	}
	return ConstInt{Type: types.Bool}
}

// Float returns an f32 constant.
func Float(v float32) ConstReal {
	return ConstReal{Type: types.F32, Value: float64(v)}
}

// TypeOf returns the static type of v, or types.NoType for values without
// one (labels, builtins, none).
func TypeOf(v Value) types.Type {
	switch v := v.(type) {
	case ConstInt:
		return v.Type
	case ConstReal:
		return v.Type
	case ConstNull:
		return v.Type
	case ConstAggregate:
		return v.Type
	case *Parameter:
		return v.Type
	case *Global:
		return v.Type
	}
	return types.NoType
}

// HasParameters reports whether v is or contains a runtime parameter.
func HasParameters(v Value) bool {
	switch v := v.(type) {
	case *Parameter:
		return true
	case ConstAggregate:
		for _, e := range v.Values {
			if HasParameters(e) {
				return true
			}
		}
	}
	return false
}

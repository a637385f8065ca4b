package ir

import (
	"github.com/gogpu/spvgen/diag"
	"github.com/gogpu/spvgen/types"
)

// Parameter is a typed label parameter.
type Parameter struct {
	Name     string
	Type     types.Type
	Label    *Label
	Index    int
	Variadic bool
	Anchor   diag.Anchor
}

// Argument is one argument of a label body. Key is empty for positional
// arguments.
type Argument struct {
	Key   string
	Value Value
}

// Body is the single call that ends a label. Args[0] is the continuation.
type Body struct {
	Enter  Value
	Args   []Argument
	Anchor diag.Anchor
}

// Label is a list of parameters and a call-shaped body. Params[0] is the
// return parameter.
type Label struct {
	Name   string
	Params []*Parameter
	Body   Body
	Anchor diag.Anchor
}

// NewFunction returns a label whose return parameter accepts results.
func NewFunction(name string, results ...types.Type) *Label {
	l := &Label{Name: name}
	l.addParam("return", types.ReturnLabel(types.Arguments(results...)))
	return l
}

// NewBlock returns a basic-block-like label.
func NewBlock(name string) *Label {
	l := &Label{Name: name}
	l.addParam("", types.Nothing)
	return l
}

func (l *Label) addParam(name string, typ types.Type) *Parameter {
	p := &Parameter{Name: name, Type: typ, Label: l, Index: len(l.Params), Anchor: l.Anchor}
	l.Params = append(l.Params, p)
	return p
}

// AddParam appends a parameter.
func (l *Label) AddParam(name string, typ types.Type) *Parameter {
	return l.addParam(name, typ)
}

// ReturnParam returns Params[0], or nil when the label has no parameters.
func (l *Label) ReturnParam() *Parameter {
	if len(l.Params) == 0 {
		return nil
	}
	return l.Params[0]
}

// Arg returns a positional argument.
func Arg(v Value) Argument {
	return Argument{Value: v}
}

// Keyed returns a keyed argument.
func Keyed(key string, v Value) Argument {
	return Argument{Key: key, Value: v}
}

// SetBody sets the body to enter called with the continuation cont and
// positional operands.
func (l *Label) SetBody(enter Value, cont Value, operands ...Value) {
	args := make([]Argument, 0, len(operands)+1)
	args = append(args, Arg(cont))
	for _, v := range operands {
		args = append(args, Arg(v))
	}
	l.Body = Body{Enter: enter, Args: args, Anchor: l.Anchor}
}

// SetBodyArgs sets the body with explicit arguments, used for keyed tails.
func (l *Label) SetBodyArgs(enter Value, args ...Argument) {
	l.Body = Body{Enter: enter, Args: args, Anchor: l.Anchor}
}

// Jump sets the body to an unconditional transfer to target.
func (l *Label) Jump(target *Label, values ...Value) {
	l.SetBody(target, None{}, values...)
}

// Return sets the body to a return through fn's return parameter.
func (l *Label) Return(fn *Label, values ...Value) {
	l.SetBody(fn.ReturnParam(), None{}, values...)
}

// BranchTo sets the body to a conditional branch.
func (l *Label) BranchTo(cond Value, then, els *Label) {
	l.SetBody(Branch, None{}, cond, then, els)
}

// Continuation returns Args[0], or None when the body has no arguments.
func (l *Label) Continuation() Value {
	if len(l.Body.Args) == 0 {
		return None{}
	}
	return l.Body.Args[0].Value
}

// IsBasicBlockLike reports whether the label can become a basic block: it
// has no usable return parameter.
func (l *Label) IsBasicBlockLike() bool {
	return len(l.Params) == 0 || l.Params[0].Type == types.Nothing
}

// IsJumping reports whether the body has no continuation.
func (l *Label) IsJumping() bool {
	_, ok := l.Continuation().(None)
	return ok
}

// IsCalling reports whether the body enters target.
func (l *Label) IsCalling(target *Label) bool {
	enter, ok := l.Body.Enter.(*Label)
	return ok && enter == target
}

// IsContinuingTo reports whether the body continues at target.
func (l *Label) IsContinuingTo(target *Label) bool {
	cont, ok := l.Continuation().(*Label)
	return ok && cont == target
}

// BranchTargets returns the targets of a Branch body.
func (l *Label) BranchTargets() (then, els *Label, ok bool) {
	if b, isBuiltin := l.Body.Enter.(Builtin); !isBuiltin || b != Branch || len(l.Body.Args) < 4 {
		return nil, nil, false
	}
	then, ok1 := l.Body.Args[2].Value.(*Label)
	els, ok2 := l.Body.Args[3].Value.(*Label)
	return then, els, ok1 && ok2
}

// Successors returns the basic-block-like labels control may flow to
// directly from l, in argument order.
func (l *Label) Successors() []*Label {
	var out []*Label
	if then, els, ok := l.BranchTargets(); ok {
		return append(out, then, els)
	}
	if enter, ok := l.Body.Enter.(*Label); ok && enter.IsBasicBlockLike() {
		out = append(out, enter)
	}
	if cont, ok := l.Continuation().(*Label); ok {
		out = append(out, cont)
	}
	return out
}

// VerifyCompilable checks that every parameter is typed and that the label
// has a body.
func (l *Label) VerifyCompilable() error {
	if len(l.Params) == 0 {
		return diag.Errorf(diag.KindConsistency, l.Anchor, "label %s has no return parameter", l.Name)
	}
	for _, p := range l.Params {
		if p.Type == types.NoType {
			return diag.Errorf(diag.KindConsistency, p.Anchor, "parameter %s of %s has no type", p.Name, l.Name)
		}
		if p.Variadic {
			return diag.Errorf(diag.KindUnsupported, p.Anchor, "variadic parameter %s is not supported", p.Name)
		}
	}
	if !l.IsBasicBlockLike() {
		if _, ok := types.Info(l.Params[0].Type).(types.ReturnLabelType); !ok {
			return diag.Errorf(diag.KindConsistency, l.Anchor,
				"return parameter of %s has type %s", l.Name, types.String(l.Params[0].Type))
		}
	}
	if l.Body.Enter == nil {
		return diag.Errorf(diag.KindConsistency, l.Anchor, "label %s has no body", l.Name)
	}
	return nil
}

// FunctionType returns the signature of a function label.
func (l *Label) FunctionType() (types.Type, error) {
	if l.IsBasicBlockLike() {
		return types.NoType, diag.Errorf(diag.KindConsistency, l.Anchor, "label %s is not a function", l.Name)
	}
	rl, ok := types.Info(l.Params[0].Type).(types.ReturnLabelType)
	if !ok {
		return types.NoType, diag.Errorf(diag.KindConsistency, l.Anchor,
			"return parameter of %s has type %s", l.Name, types.String(l.Params[0].Type))
	}
	params := make([]types.Type, 0, len(l.Params)-1)
	for _, p := range l.Params[1:] {
		params = append(params, p.Type)
	}
	return types.Function(rl.Result, params, 0), nil
}

// BuildReachable appends every label reachable from l that is not yet in
// visited, in depth-first preorder.
func (l *Label) BuildReachable(visited map[*Label]struct{}) []*Label {
	var order []*Label
	stack := []*Label{l}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := visited[cur]; seen {
			continue
		}
		visited[cur] = struct{}{}
		order = append(order, cur)
		refs := cur.referencedLabels()
		for i := len(refs) - 1; i >= 0; i-- {
			if _, seen := visited[refs[i]]; !seen {
				stack = append(stack, refs[i])
			}
		}
	}
	return order
}

// referencedLabels returns the labels mentioned by the body, in order.
func (l *Label) referencedLabels() []*Label {
	var out []*Label
	visit := func(v Value) {
		switch v := v.(type) {
		case *Label:
			out = append(out, v)
		case *Closure:
			out = append(out, v.Label)
		}
	}
	visit(l.Body.Enter)
	for _, a := range l.Body.Args {
		visit(a.Value)
	}
	return out
}

// InsertIntoUserMap records l as a user of every label and parameter its
// body mentions.
func (l *Label) InsertIntoUserMap(um *UserMap) {
	visit := func(v Value) {
		switch v := v.(type) {
		case *Label:
			um.addLabel(v, l)
		case *Closure:
			um.addLabel(v.Label, l)
		case *Parameter:
			um.addParam(v, l)
		case ConstAggregate:
			for _, e := range v.Values {
				if p, ok := e.(*Parameter); ok {
					um.addParam(p, l)
				}
			}
		}
	}
	visit(l.Body.Enter)
	for _, a := range l.Body.Args {
		visit(a.Value)
	}
}

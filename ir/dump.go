package ir

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gogpu/spvgen/types"
)

// Dump writes every label reachable from entry in a readable form.
func Dump(w io.Writer, entry *Label) error {
	names := newNamer()
	for _, l := range entry.BuildReachable(map[*Label]struct{}{}) {
		if _, err := io.WriteString(w, names.label(l)+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// namer assigns stable unique names to labels and parameters.
type namer struct {
	labels map[*Label]string
	used   map[string]int
}

func newNamer() *namer {
	return &namer{labels: make(map[*Label]string), used: make(map[string]int)}
}

func (n *namer) name(l *Label) string {
	if s, ok := n.labels[l]; ok {
		return s
	}
	base := l.Name
	if base == "" {
		base = "L"
	}
	s := base
	if c := n.used[base]; c > 0 {
		s = base + "$" + strconv.Itoa(c)
	}
	n.used[base]++
	n.labels[l] = s
	return s
}

func (n *namer) param(p *Parameter) string {
	name := p.Name
	if name == "" {
		name = "_"
	}
	return "%" + name + "." + n.name(p.Label) + "." + strconv.Itoa(p.Index)
}

func (n *namer) value(v Value) string {
	switch v := v.(type) {
	case nil:
		return "<nil>"
	case None:
		return "none"
	case *Label:
		return n.name(v)
	case *Parameter:
		return n.param(v)
	case Builtin:
		return v.String()
	case ConstInt:
		if v.Type == types.Bool {
			return strconv.FormatBool(v.Value != 0)
		}
		return strconv.FormatUint(v.Value, 10) + ":" + types.String(v.Type)
	case ConstReal:
		return strconv.FormatFloat(v.Value, 'g', -1, 64) + ":" + types.String(v.Type)
	case ConstNull:
		return "null:" + types.String(v.Type)
	case ConstAggregate:
		parts := make([]string, len(v.Values))
		for i, e := range v.Values {
			parts[i] = n.value(e)
		}
		return "{" + strings.Join(parts, " ") + "}:" + types.String(v.Type)
	case TypeValue:
		return types.String(v.Type)
	case *Closure:
		return "(closure " + n.name(v.Label) + ")"
	case *Global:
		return "@" + v.Name
	}
	return fmt.Sprintf("<%T>", v)
}

func (n *namer) label(l *Label) string {
	var sb strings.Builder
	sb.WriteString(n.name(l))
	sb.WriteString(" (")
	for i, p := range l.Params {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(n.param(p))
		sb.WriteString(":")
		sb.WriteString(types.String(p.Type))
	}
	sb.WriteString(") = ")
	sb.WriteString(n.value(l.Body.Enter))
	for _, a := range l.Body.Args {
		sb.WriteString(" ")
		if a.Key != "" {
			sb.WriteString(a.Key + "=")
		}
		sb.WriteString(n.value(a.Value))
	}
	return sb.String()
}

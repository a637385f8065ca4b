package types

import (
	"strconv"
	"strings"
)

// String renders t for diagnostics.
func String(t Type) string {
	global.mu.Lock()
	defer global.mu.Unlock()
	return global.format(t)
}

func (s *store) format(t Type) string {
	if t == NoType || int(t) >= len(s.nodes) {
		return "<invalid>"
	}
	var sb strings.Builder
	s.writeType(&sb, t)
	return sb.String()
}

func (s *store) writeList(sb *strings.Builder, ts []Type) {
	for i, t := range ts {
		if i > 0 {
			sb.WriteString(" ")
		}
		s.writeType(sb, t)
	}
}

//nolint:gocyclo // one case per kind
func (s *store) writeType(sb *strings.Builder, t Type) {
	n := s.get(t)
	if n.tn != nil {
		sb.WriteString(n.tn.Name)
		return
	}
	switch k := n.kind.(type) {
	case IntegerType:
		if k.Width == 1 {
			sb.WriteString("bool")
			return
		}
		if k.Signed {
			sb.WriteByte('i')
		} else {
			sb.WriteByte('u')
		}
		sb.WriteString(strconv.FormatUint(uint64(k.Width), 10))
	case RealType:
		sb.WriteByte('f')
		sb.WriteString(strconv.FormatUint(uint64(k.Width), 10))
	case PointerType:
		s.writeType(sb, k.Element)
		sb.WriteByte('*')
		if k.StorageClass != ClassGeneric {
			sb.WriteString("(" + string(k.StorageClass) + ")")
		}
	case ArrayType:
		sb.WriteString("(array ")
		s.writeType(sb, k.Element)
		if !k.Unsized {
			sb.WriteString(" " + strconv.FormatUint(k.Count, 10))
		}
		sb.WriteByte(')')
	case VectorType:
		sb.WriteString("(vector ")
		s.writeType(sb, k.Element)
		sb.WriteString(" " + strconv.FormatUint(uint64(k.Count), 10) + ")")
	case MatrixType:
		sb.WriteString("(matrix ")
		s.writeType(sb, k.Column)
		sb.WriteString(" " + strconv.FormatUint(uint64(k.Count), 10) + ")")
	case TupleType:
		switch {
		case k.Packed:
			sb.WriteString("(packed-tuple")
		case k.Align != 0:
			sb.WriteString("(tuple align=" + strconv.FormatUint(k.Align, 10))
		default:
			sb.WriteString("(tuple")
		}
		if len(k.Values) > 0 {
			sb.WriteByte(' ')
			s.writeList(sb, k.Values)
		}
		sb.WriteByte(')')
	case UnionType:
		sb.WriteString("(union ")
		s.writeList(sb, k.Values)
		sb.WriteByte(')')
	case FunctionType:
		s.writeType(sb, k.Return)
		sb.WriteString(" <-: (")
		s.writeList(sb, k.Params)
		if k.Variadic() {
			sb.WriteString(" ...")
		}
		sb.WriteByte(')')
	case ArgumentsType:
		sb.WriteString("λ(")
		s.writeList(sb, k.Values)
		sb.WriteByte(')')
	case ReturnLabelType:
		sb.WriteString("return ")
		s.writeType(sb, k.Result)
	case RaisesType:
		s.writeType(sb, k.Result)
		sb.WriteString(" raises ")
		s.writeType(sb, k.Except)
	case ImageType:
		sb.WriteString("(Image ")
		s.writeType(sb, k.Sampled)
		sb.WriteString(" '" + k.Dim)
		if k.Format != "" {
			sb.WriteString(" '" + k.Format)
		}
		sb.WriteByte(')')
	case SampledImageType:
		sb.WriteString("(SampledImage ")
		s.writeType(sb, k.Image)
		sb.WriteByte(')')
	case SamplerType:
		sb.WriteString("Sampler")
	case QualifyType:
		for i, q := range k.Slots {
			if k.Mask&(1<<i) != 0 && QualifierKind(i) != QualifierRefer {
				sb.WriteString(q.String() + " ")
			}
		}
		s.writeType(sb, k.Base)
		if k.Mask&MaskRefer != 0 {
			sb.WriteString(k.Slots[QualifierRefer].String())
		}
	default:
		sb.WriteString("<unknown>")
	}
}

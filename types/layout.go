package types

import (
	"fmt"
	"slices"
)

const pointerSize = 8

// layout is the storage layout of a sized type.
type layout struct {
	sized   bool
	size    uint64
	align   uint64
	stride  uint64
	offsets []uint64

	// tupleForm is the equivalent tuple of a union.
	tupleForm Type
}

func alignUp(offset, align uint64) uint64 {
	if align <= 1 {
		return offset
	}
	return (offset + align - 1) / align * align
}

func nextPow2(v uint64) uint64 {
	p := uint64(1)
	for p < v {
		p <<= 1
	}
	return p
}

// layoutOf resolves qualifiers and typenames down to a sized storage type.
func (s *store) layoutOf(t Type) (layout, error) {
	for {
		n := s.get(t)
		if q, ok := n.kind.(QualifyType); ok {
			t = q.Base
			continue
		}
		if n.tn != nil {
			if !n.tn.Complete || n.tn.Opaque {
				return layout{}, fmt.Errorf("%w: %s", ErrOpaqueType, n.tn.Name)
			}
			t = n.tn.Storage
			continue
		}
		if !n.layout.sized {
			return layout{}, fmt.Errorf("%w: %s has no storage layout", ErrOpaqueType, s.format(t))
		}
		return n.layout, nil
	}
}

func (s *store) tupleLayout(values []Type, packed bool, explicitAlign uint64) (layout, error) {
	l := layout{sized: true, align: 1, offsets: make([]uint64, len(values))}
	var offset uint64
	for i, v := range values {
		fl, err := s.layoutOf(v)
		if err != nil {
			return layout{}, fmt.Errorf("tuple field %d: %w", i, err)
		}
		if !packed {
			offset = alignUp(offset, fl.align)
			l.align = max(l.align, fl.align)
		}
		l.offsets[i] = offset
		offset += fl.size
	}
	switch {
	case packed:
		l.align = 1
	case explicitAlign != 0:
		l.align = explicitAlign
	}
	l.size = alignUp(offset, l.align)
	return l, nil
}

func (s *store) unionLayout(values []Type) (layout, error) {
	l := layout{sized: true, align: 1, offsets: make([]uint64, len(values))}
	var size uint64
	best, bestAlign := -1, uint64(0)
	for i, v := range values {
		fl, err := s.layoutOf(v)
		if err != nil {
			return layout{}, fmt.Errorf("union field %d: %w", i, err)
		}
		size = max(size, fl.size)
		l.align = max(l.align, fl.align)
		if la := s.leafAlign(v); best < 0 || la > bestAlign {
			best, bestAlign = i, la
		}
	}
	l.size = alignUp(size, l.align)

	fields := []Type{}
	if best >= 0 {
		field := values[best]
		fields = append(fields, field)
		fsize := s.mustLayout(field).size
		if fsize < l.size {
			pad, err := s.array(s.integer(8, false), l.size-fsize, false)
			if err != nil {
				return layout{}, err
			}
			fields = append(fields, pad)
		}
	}
	form, err := s.tuple(fields, false, 0)
	if err != nil {
		return layout{}, err
	}
	l.tupleForm = form
	return l, nil
}

func (s *store) mustLayout(t Type) layout {
	l, err := s.layoutOf(t)
	if err != nil {
		panic(err)
	}
	return l
}

// leafAlign returns the largest alignment among the scalar, vector and
// pointer leaves of t.
func (s *store) leafAlign(t Type) uint64 {
	for {
		n := s.get(t)
		switch k := n.kind.(type) {
		case QualifyType:
			t = k.Base
			continue
		case TupleType:
			var a uint64 = 1
			for _, v := range k.Values {
				a = max(a, s.leafAlign(v))
			}
			return a
		case UnionType:
			var a uint64 = 1
			for _, v := range k.Values {
				a = max(a, s.leafAlign(v))
			}
			return a
		case ArrayType:
			t = k.Element
			continue
		case MatrixType:
			t = k.Column
			continue
		}
		if n.tn != nil && n.tn.Complete && !n.tn.Opaque {
			t = n.tn.Storage
			continue
		}
		return n.layout.align
	}
}

// SizeOf returns the size of t in bytes.
func SizeOf(t Type) (uint64, error) {
	global.mu.Lock()
	defer global.mu.Unlock()
	l, err := global.layoutOf(t)
	return l.size, err
}

// AlignOf returns the alignment of t in bytes.
func AlignOf(t Type) (uint64, error) {
	global.mu.Lock()
	defer global.mu.Unlock()
	l, err := global.layoutOf(t)
	return l.align, err
}

// StrideOf returns the element stride of an array, vector or matrix.
func StrideOf(t Type) (uint64, error) {
	global.mu.Lock()
	defer global.mu.Unlock()
	l, err := global.layoutOf(t)
	if err != nil {
		return 0, err
	}
	switch global.resolvedKind(t).(type) {
	case ArrayType, VectorType, MatrixType:
		return l.stride, nil
	}
	return 0, fmt.Errorf("%w: %s has no stride", ErrTypeKindMismatch, global.format(t))
}

// Offsets returns the field offsets of a tuple or union.
func Offsets(t Type) ([]uint64, error) {
	global.mu.Lock()
	defer global.mu.Unlock()
	l, err := global.layoutOf(t)
	if err != nil {
		return nil, err
	}
	switch global.resolvedKind(t).(type) {
	case TupleType, UnionType:
		return slices.Clone(l.offsets), nil
	}
	return nil, fmt.Errorf("%w: %s has no fields", ErrTypeKindMismatch, global.format(t))
}

// UnionTupleForm returns the tuple that stands in for a union in code
// generation: its most aligned field, padded to the union size.
func UnionTupleForm(t Type) (Type, error) {
	global.mu.Lock()
	defer global.mu.Unlock()
	if _, ok := global.resolvedKind(t).(UnionType); !ok {
		return NoType, fmt.Errorf("%w: %s is not a union", ErrTypeKindMismatch, global.format(t))
	}
	l, err := global.layoutOf(t)
	if err != nil {
		return NoType, err
	}
	return l.tupleForm, nil
}

// resolvedKind strips qualifiers and complete typenames.
func (s *store) resolvedKind(t Type) Kind {
	for {
		n := s.get(t)
		if q, ok := n.kind.(QualifyType); ok {
			t = q.Base
			continue
		}
		if n.tn != nil {
			if n.tn.Complete && !n.tn.Opaque {
				t = n.tn.Storage
				continue
			}
			return s.kindOf(t)
		}
		return n.kind
	}
}

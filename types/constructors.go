package types

import (
	"fmt"
	"slices"
)

// Integer returns the integer type of the given bit width. Width 1 is bool.
func Integer(width uint32, signed bool) Type {
	global.mu.Lock()
	defer global.mu.Unlock()
	return global.integer(width, signed)
}

// Real returns the floating point type of the given bit width.
func Real(width uint32) Type {
	global.mu.Lock()
	defer global.mu.Unlock()
	return global.real(width)
}

// Pointer returns a pointer to elem. Pointers to opaque types are always
// flagged non-readable and non-writable.
func Pointer(elem Type, flags PointerFlags, class StorageClass) Type {
	global.mu.Lock()
	defer global.mu.Unlock()
	return global.pointer(elem, flags, class)
}

// Array returns a fixed-size array type.
func Array(elem Type, count uint64) (Type, error) {
	global.mu.Lock()
	defer global.mu.Unlock()
	return global.array(elem, count, false)
}

// UnsizedArray returns a runtime-sized array type.
func UnsizedArray(elem Type) (Type, error) {
	global.mu.Lock()
	defer global.mu.Unlock()
	return global.array(elem, 0, true)
}

// Vector returns a vector of count scalars.
func Vector(elem Type, count uint32) (Type, error) {
	global.mu.Lock()
	defer global.mu.Unlock()
	return global.vector(elem, count)
}

// Tuple returns a naturally aligned tuple.
func Tuple(values ...Type) (Type, error) {
	global.mu.Lock()
	defer global.mu.Unlock()
	return global.tuple(values, false, 0)
}

// PackedTuple returns a tuple without padding between fields.
func PackedTuple(values ...Type) (Type, error) {
	global.mu.Lock()
	defer global.mu.Unlock()
	return global.tuple(values, true, 0)
}

// AlignedTuple returns a tuple whose alignment is forced to align.
func AlignedTuple(align uint64, values ...Type) (Type, error) {
	global.mu.Lock()
	defer global.mu.Unlock()
	return global.tuple(values, false, align)
}

// Union returns a union of the given fields.
func Union(values ...Type) (Type, error) {
	global.mu.Lock()
	defer global.mu.Unlock()
	return global.union(values)
}

// Typename creates a new, incomplete nominal type. Every call returns a
// distinct type.
func Typename(name string) Type {
	global.mu.Lock()
	defer global.mu.Unlock()
	return global.typename(name)
}

// SetStorage completes tn with its storage type. Field names are optional and
// only used for debug output.
func SetStorage(tn, storage Type, fieldNames []string) error {
	global.mu.Lock()
	defer global.mu.Unlock()
	return global.setStorage(tn, storage, fieldNames)
}

// MakeOpaque completes tn without storage.
func MakeOpaque(tn Type) error {
	global.mu.Lock()
	defer global.mu.Unlock()
	n := global.get(tn)
	if n.tn == nil {
		return fmt.Errorf("%w: %s is not a typename", ErrTypeKindMismatch, global.format(tn))
	}
	if n.tn.Complete {
		return fmt.Errorf("%w: %s", ErrAlreadyComplete, n.tn.Name)
	}
	n.tn.Complete = true
	n.tn.Opaque = true
	return nil
}

// Function returns a function signature.
func Function(ret Type, params []Type, flags FunctionFlags) Type {
	global.mu.Lock()
	defer global.mu.Unlock()
	return global.function(ret, params, flags)
}

// Arguments returns an argument list type.
func Arguments(values ...Type) Type {
	global.mu.Lock()
	defer global.mu.Unlock()
	return global.arguments(values)
}

// ReturnLabel returns the type of a return parameter receiving result. A
// result that is not already an argument list is wrapped in one.
func ReturnLabel(result Type) Type {
	global.mu.Lock()
	defer global.mu.Unlock()
	return global.returnLabel(result)
}

// Raises returns a result type that may fail with except.
func Raises(result, except Type) Type {
	global.mu.Lock()
	defer global.mu.Unlock()
	key := newKey(tagRaises).typ(result).typ(except).b
	t, _ := global.intern(tagRaises, key, func() (node, error) {
		return node{kind: RaisesType{Result: result, Except: except}}, nil
	})
	return t
}

// Image returns an image type.
func Image(desc ImageType) (Type, error) {
	global.mu.Lock()
	defer global.mu.Unlock()
	if desc.Sampled != Void && !global.isScalar(desc.Sampled) {
		return NoType, fmt.Errorf("%w: image sampled type %s is not a scalar",
			ErrTypeKindMismatch, global.format(desc.Sampled))
	}
	key := newKey(tagImage).typ(desc.Sampled).str(desc.Dim).
		uint(uint64(desc.Depth)).uint(uint64(desc.Arrayed)).
		uint(uint64(desc.Multisampled)).uint(uint64(desc.SampledMode)).
		str(desc.Format).str(desc.Access).b
	return global.intern(tagImage, key, func() (node, error) {
		return node{kind: desc}, nil
	})
}

// SampledImage returns the combined image-sampler type for image.
func SampledImage(image Type) (Type, error) {
	global.mu.Lock()
	defer global.mu.Unlock()
	if _, ok := global.get(image).kind.(ImageType); !ok {
		return NoType, fmt.Errorf("%w: %s is not an image", ErrTypeKindMismatch, global.format(image))
	}
	key := newKey(tagSampledImage).typ(image).b
	return global.intern(tagSampledImage, key, func() (node, error) {
		return node{kind: SampledImageType{Image: image}}, nil
	})
}

// Sampler returns the sampler type.
func Sampler() Type {
	global.mu.Lock()
	defer global.mu.Unlock()
	t, _ := global.intern(tagSampler, newKey(tagSampler).b, func() (node, error) {
		return node{kind: SamplerType{}}, nil
	})
	return t
}

// Matrix returns a matrix of count columns.
func Matrix(column Type, count uint32) (Type, error) {
	global.mu.Lock()
	defer global.mu.Unlock()
	return global.matrix(column, count)
}

func (s *store) integer(width uint32, signed bool) Type {
	key := newKey(tagInteger).uint(uint64(width)).bool(signed).b
	t, _ := s.intern(tagInteger, key, func() (node, error) {
		size := nextPow2(max(1, (uint64(width)+7)/8))
		return node{
			kind:   IntegerType{Width: width, Signed: signed},
			layout: layout{sized: true, size: size, align: size},
		}, nil
	})
	return t
}

func (s *store) real(width uint32) Type {
	key := newKey(tagReal).uint(uint64(width)).b
	t, _ := s.intern(tagReal, key, func() (node, error) {
		size := max(1, uint64(width)/8)
		return node{
			kind:   RealType{Width: width},
			layout: layout{sized: true, size: size, align: size},
		}, nil
	})
	return t
}

func (s *store) pointer(elem Type, flags PointerFlags, class StorageClass) Type {
	if s.isOpaque(elem) {
		flags |= PointerNonReadable | PointerNonWritable
	}
	key := newKey(tagPointer).typ(elem).uint(uint64(flags)).str(string(class)).b
	t, _ := s.intern(tagPointer, key, func() (node, error) {
		return node{
			kind:   PointerType{Element: elem, Flags: flags, StorageClass: class},
			layout: layout{sized: true, size: pointerSize, align: pointerSize},
		}, nil
	})
	return t
}

func (s *store) array(elem Type, count uint64, unsized bool) (Type, error) {
	key := newKey(tagArray).typ(elem).uint(count).bool(unsized).b
	return s.intern(tagArray, key, func() (node, error) {
		el, err := s.layoutOf(elem)
		if err != nil {
			return node{}, fmt.Errorf("array element: %w", err)
		}
		l := layout{sized: true, stride: el.size, align: el.align}
		if !unsized {
			l.size = el.size * count
		}
		return node{kind: ArrayType{Element: elem, Count: count, Unsized: unsized}, layout: l}, nil
	})
}

func (s *store) vector(elem Type, count uint32) (Type, error) {
	if !s.isScalar(elem) {
		return NoType, fmt.Errorf("%w: vector element %s is not a scalar", ErrTypeKindMismatch, s.format(elem))
	}
	key := newKey(tagVector).typ(elem).uint(uint64(count)).b
	return s.intern(tagVector, key, func() (node, error) {
		el := s.get(elem).layout
		size := nextPow2(el.size * uint64(count))
		return node{
			kind:   VectorType{Element: elem, Count: count},
			layout: layout{sized: true, size: size, align: size, stride: el.size},
		}, nil
	})
}

func (s *store) tuple(values []Type, packed bool, align uint64) (Type, error) {
	key := newKey(tagTuple).list(values).bool(packed).uint(align).b
	return s.intern(tagTuple, key, func() (node, error) {
		l, err := s.tupleLayout(values, packed, align)
		if err != nil {
			return node{}, err
		}
		return node{
			kind:   TupleType{Values: slices.Clone(values), Packed: packed, Align: align},
			layout: l,
		}, nil
	})
}

func (s *store) union(values []Type) (Type, error) {
	key := newKey(tagUnion).list(values).b
	return s.intern(tagUnion, key, func() (node, error) {
		l, err := s.unionLayout(values)
		if err != nil {
			return node{}, err
		}
		return node{kind: UnionType{Values: slices.Clone(values)}, layout: l}, nil
	})
}

func (s *store) typename(name string) Type {
	s.serial++
	tn := &TypenameType{Name: name}
	return s.push(node{
		kind: TypenameType{Name: name},
		key:  newKey(tagTypename).str(name).uint(s.serial).b,
		tn:   tn,
	})
}

func (s *store) setStorage(tn, storage Type, fieldNames []string) error {
	n := s.get(tn)
	if n.tn == nil {
		return fmt.Errorf("%w: %s is not a typename", ErrTypeKindMismatch, s.format(tn))
	}
	if n.tn.Complete {
		return fmt.Errorf("%w: %s", ErrAlreadyComplete, n.tn.Name)
	}
	if s.isOpaque(storage) {
		return fmt.Errorf("%w: storage of %s", ErrOpaqueType, n.tn.Name)
	}
	n.tn.Storage = storage
	n.tn.FieldNames = slices.Clone(fieldNames)
	n.tn.Complete = true
	return nil
}

func (s *store) function(ret Type, params []Type, flags FunctionFlags) Type {
	key := newKey(tagFunction).typ(ret).list(params).uint(uint64(flags)).b
	t, _ := s.intern(tagFunction, key, func() (node, error) {
		return node{kind: FunctionType{Return: ret, Params: slices.Clone(params), Flags: flags}}, nil
	})
	return t
}

func (s *store) arguments(values []Type) Type {
	key := newKey(tagArguments).list(values).b
	t, _ := s.intern(tagArguments, key, func() (node, error) {
		return node{kind: ArgumentsType{Values: slices.Clone(values)}}, nil
	})
	return t
}

func (s *store) returnLabel(result Type) Type {
	if _, ok := s.get(result).kind.(ArgumentsType); !ok {
		result = s.arguments([]Type{result})
	}
	key := newKey(tagReturnLabel).typ(result).b
	t, _ := s.intern(tagReturnLabel, key, func() (node, error) {
		return node{kind: ReturnLabelType{Result: result}}, nil
	})
	return t
}

func (s *store) matrix(column Type, count uint32) (Type, error) {
	if _, ok := s.get(column).kind.(VectorType); !ok {
		return NoType, fmt.Errorf("%w: matrix column %s is not a vector", ErrTypeKindMismatch, s.format(column))
	}
	if count < 2 {
		return NoType, fmt.Errorf("%w: %d columns", ErrInvalidMatrixSize, count)
	}
	key := newKey(tagMatrix).typ(column).uint(uint64(count)).b
	return s.intern(tagMatrix, key, func() (node, error) {
		cl := s.get(column).layout
		return node{
			kind:   MatrixType{Column: column, Count: count},
			layout: layout{sized: true, size: cl.size * uint64(count), align: cl.align, stride: cl.size},
		}, nil
	})
}

func (s *store) isScalar(t Type) bool {
	switch s.get(t).kind.(type) {
	case IntegerType, RealType:
		return true
	}
	return false
}

// isOpaque reports whether t resolves to a typename without storage.
func (s *store) isOpaque(t Type) bool {
	for {
		n := s.get(t)
		if q, ok := n.kind.(QualifyType); ok {
			t = q.Base
			continue
		}
		if n.tn == nil {
			return false
		}
		if !n.tn.Complete || n.tn.Opaque {
			return true
		}
		t = n.tn.Storage
	}
}

// IsOpaque reports whether t has no storage.
func IsOpaque(t Type) bool {
	global.mu.Lock()
	defer global.mu.Unlock()
	return global.isOpaque(t)
}

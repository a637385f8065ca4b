package types

import "errors"

// Type is a handle to an interned type. Two handles are equal if and only if
// the types they denote are structurally equal.
type Type uint32

// NoType is the invalid handle.
const NoType Type = 0

// Errors reported by type constructors and layout queries.
var (
	ErrOpaqueType        = errors.New("opaque type")
	ErrTypeKindMismatch  = errors.New("type kind mismatch")
	ErrInvalidMatrixSize = errors.New("invalid matrix size")
	ErrAlreadyComplete   = errors.New("typename already complete")
)

// Kind is the payload of an interned type.
type Kind interface {
	kindTag() kindTag
}

type kindTag uint8

const (
	tagInvalid kindTag = iota
	tagInteger
	tagReal
	tagPointer
	tagArray
	tagVector
	tagTuple
	tagUnion
	tagTypename
	tagFunction
	tagArguments
	tagReturnLabel
	tagRaises
	tagImage
	tagSampledImage
	tagSampler
	tagMatrix
	tagQualify
	numKindTags
)

// IntegerType is a fixed width integer. Width 1 is the boolean type.
type IntegerType struct {
	Width  uint32
	Signed bool
}

// RealType is an IEEE floating point type.
type RealType struct {
	Width uint32
}

// PointerFlags restrict access through a pointer.
type PointerFlags uint32

const (
	PointerNonWritable PointerFlags = 1 << 1
	PointerNonReadable PointerFlags = 1 << 2
)

// StorageClass names the address space a pointer refers to.
type StorageClass string

// Storage classes understood by the SPIR-V backend. ClassGeneric is the
// unqualified default.
const (
	ClassGeneric         StorageClass = ""
	ClassFunction        StorageClass = "Function"
	ClassPrivate         StorageClass = "Private"
	ClassWorkgroup       StorageClass = "Workgroup"
	ClassUniform         StorageClass = "Uniform"
	ClassUniformConstant StorageClass = "UniformConstant"
	ClassStorageBuffer   StorageClass = "StorageBuffer"
	ClassPushConstant    StorageClass = "PushConstant"
	ClassInput           StorageClass = "Input"
	ClassOutput          StorageClass = "Output"
	ClassImage           StorageClass = "Image"
)

// PointerType points at Element in the given storage class.
type PointerType struct {
	Element      Type
	Flags        PointerFlags
	StorageClass StorageClass
}

// ArrayType is a fixed or unsized sequence of Element.
type ArrayType struct {
	Element Type
	Count   uint64
	Unsized bool
}

// VectorType is a SIMD vector of scalars.
type VectorType struct {
	Element Type
	Count   uint32
}

// TupleType is a struct-like sequence of fields. Align, when nonzero,
// overrides the natural alignment.
type TupleType struct {
	Values []Type
	Packed bool
	Align  uint64
}

// UnionType overlays its fields at offset zero.
type UnionType struct {
	Values []Type
}

// TypenameType is a nominal type. Until it is completed with SetStorage it is
// opaque.
type TypenameType struct {
	Name       string
	Storage    Type
	FieldNames []string
	Complete   bool
	Opaque     bool
}

// FunctionFlags modify a function signature.
type FunctionFlags uint32

const (
	FunctionVariadic FunctionFlags = 1 << 0
)

// FunctionType is a function signature.
type FunctionType struct {
	Return Type
	Params []Type
	Flags  FunctionFlags
}

// Variadic reports whether the function accepts extra arguments.
func (f FunctionType) Variadic() bool { return f.Flags&FunctionVariadic != 0 }

// ArgumentsType is an ordered list of values passed to a continuation.
type ArgumentsType struct {
	Values []Type
}

// ReturnLabelType is the type of a function's return parameter. Result is
// always an Arguments type.
type ReturnLabelType struct {
	Result Type
}

// RaisesType wraps a result that may fail with Except.
type RaisesType struct {
	Result Type
	Except Type
}

// ImageType describes a SPIR-V image. Dim and Format are symbolic
// (e.g. "2D", "Rgba8").
type ImageType struct {
	Sampled      Type
	Dim          string
	Depth        int
	Arrayed      int
	Multisampled int
	SampledMode  int
	Format       string
	Access       string
}

// SampledImageType combines an image with a sampler.
type SampledImageType struct {
	Image Type
}

// SamplerType is an opaque sampler.
type SamplerType struct{}

// MatrixType is a sequence of column vectors.
type MatrixType struct {
	Column Type
	Count  uint32
}

// QualifyType carries at most one qualifier per kind on top of Base. Mask is
// never zero.
type QualifyType struct {
	Base  Type
	Mask  Mask
	Slots [numQualifierKinds]Qualifier
}

func (IntegerType) kindTag() kindTag      { return tagInteger }
func (RealType) kindTag() kindTag         { return tagReal }
func (PointerType) kindTag() kindTag      { return tagPointer }
func (ArrayType) kindTag() kindTag        { return tagArray }
func (VectorType) kindTag() kindTag       { return tagVector }
func (TupleType) kindTag() kindTag        { return tagTuple }
func (UnionType) kindTag() kindTag        { return tagUnion }
func (TypenameType) kindTag() kindTag     { return tagTypename }
func (FunctionType) kindTag() kindTag     { return tagFunction }
func (ArgumentsType) kindTag() kindTag    { return tagArguments }
func (ReturnLabelType) kindTag() kindTag  { return tagReturnLabel }
func (RaisesType) kindTag() kindTag       { return tagRaises }
func (ImageType) kindTag() kindTag        { return tagImage }
func (SampledImageType) kindTag() kindTag { return tagSampledImage }
func (SamplerType) kindTag() kindTag      { return tagSampler }
func (MatrixType) kindTag() kindTag       { return tagMatrix }
func (QualifyType) kindTag() kindTag      { return tagQualify }

// Predefined types.
var (
	Bool = Integer(1, false)
	I8   = Integer(8, true)
	I16  = Integer(16, true)
	I32  = Integer(32, true)
	I64  = Integer(64, true)
	U8   = Integer(8, false)
	U16  = Integer(16, false)
	U32  = Integer(32, false)
	U64  = Integer(64, false)
	F16  = Real(16)
	F32  = Real(32)
	F64  = Real(64)

	// Void is the empty argument list, used as the result of functions that
	// return nothing.
	Void = Arguments()

	// Nothing is the type of the return parameter of basic-block-like labels.
	Nothing = newBuiltinTypename("Nothing", mustTuple(nil))

	// NoReturn marks functions that never return.
	NoReturn = newOpaqueTypename("NoReturn")
)

func mustTuple(values []Type) Type {
	t, err := Tuple(values...)
	if err != nil {
		panic(err)
	}
	return t
}

func newBuiltinTypename(name string, storage Type) Type {
	tn := Typename(name)
	if err := SetStorage(tn, storage, nil); err != nil {
		panic(err)
	}
	return tn
}

func newOpaqueTypename(name string) Type {
	tn := Typename(name)
	if err := MakeOpaque(tn); err != nil {
		panic(err)
	}
	return tn
}

// Must panics if err is non-nil and returns t otherwise.
func Must(t Type, err error) Type {
	if err != nil {
		panic(err)
	}
	return t
}

package spirv

import (
	"context"

	"github.com/gogpu/spvgen/diag"
)

// Version represents a SPIR-V version.
type Version struct {
	Major uint8
	Minor uint8
}

// Common SPIR-V versions
var (
	Version1_0 = Version{1, 0}
	Version1_3 = Version{1, 3}
	Version1_4 = Version{1, 4}
	Version1_5 = Version{1, 5}
	Version1_6 = Version{1, 6}
)

// Word returns the header encoding of v.
func (v Version) Word() uint32 {
	return (uint32(v.Major) << 16) | (uint32(v.Minor) << 8)
}

// GeometryOptions configures the geometry execution modes.
type GeometryOptions struct {
	// Input is the input primitive mode (ExecutionModeInputPoints, ...).
	Input ExecutionMode
	// Output is the output primitive mode (ExecutionModeOutputPoints, ...).
	Output      ExecutionMode
	Invocations uint32
	MaxVertices uint32
}

// Validator checks a finished module. Findings are added to out; the
// returned error reports only a failure to run the check.
type Validator interface {
	Validate(ctx context.Context, binary []byte, out *diag.Buffer) error
}

// Options configures SPIR-V generation.
type Options struct {
	// Version is the SPIR-V version to target
	Version Version

	// Debug emits OpSource, OpString, OpLine and OpName.
	Debug bool

	// LocalSize is the compute workgroup size.
	LocalSize [3]uint32

	// Geometry configures geometry entry points.
	Geometry GeometryOptions

	// Validate, when set, runs on the serialized module before it is
	// returned.
	Validate func(binary []byte) error
}

// DefaultOptions returns sensible default options.
func DefaultOptions() Options {
	return Options{
		Version:   Version1_3,
		Debug:     true,
		LocalSize: [3]uint32{1, 1, 1},
		Geometry: GeometryOptions{
			Input:       ExecutionModeInputPoints,
			Output:      ExecutionModeOutputPoints,
			Invocations: 1,
			MaxVertices: 1,
		},
	}
}

// SPIR-V magic number and constants
const (
	MagicNumber = 0x07230203
	// GeneratorID is the header generator word, "SCOP" in little endian.
	GeneratorID = 'S' | 'C'<<8 | 'O'<<16 | 'P'<<24
	HeaderWords = 5
)

// Capability represents a SPIR-V capability.
type Capability uint32

// Capabilities used by generated modules.
const (
	CapabilityMatrix              Capability = 0
	CapabilityShader              Capability = 1
	CapabilityGeometry            Capability = 2
	CapabilityTessellation        Capability = 3
	CapabilityFloat16             Capability = 9
	CapabilityFloat64             Capability = 10
	CapabilityInt64               Capability = 11
	CapabilityInt16               Capability = 22
	CapabilityImageGatherExtended Capability = 25
	CapabilityInt8                Capability = 39
	CapabilitySparseResidency     Capability = 41
	CapabilityMinLod              Capability = 42
	CapabilitySampled1D           Capability = 43
	CapabilityImage1D             Capability = 44
	CapabilitySampledBuffer       Capability = 46
	CapabilityImageBuffer         Capability = 47
	CapabilityImageQuery          Capability = 50
	CapabilityDerivativeControl   Capability = 51

	CapabilityStorageImageReadWithoutFormat  Capability = 55
	CapabilityStorageImageWriteWithoutFormat Capability = 56
)

// AddressingModel represents a SPIR-V addressing model.
type AddressingModel uint32

// Addressing models
const (
	AddressingModelLogical    AddressingModel = 0
	AddressingModelPhysical32 AddressingModel = 1
	AddressingModelPhysical64 AddressingModel = 2
)

// MemoryModel represents a SPIR-V memory model.
type MemoryModel uint32

// Memory models
const (
	MemoryModelSimple  MemoryModel = 0
	MemoryModelGLSL450 MemoryModel = 1
	MemoryModelVulkan  MemoryModel = 3
)

// ExecutionModel represents a shader stage.
type ExecutionModel uint32

// Execution models
const (
	ExecutionModelVertex                 ExecutionModel = 0
	ExecutionModelTessellationControl    ExecutionModel = 1
	ExecutionModelTessellationEvaluation ExecutionModel = 2
	ExecutionModelGeometry               ExecutionModel = 3
	ExecutionModelFragment               ExecutionModel = 4
	ExecutionModelGLCompute              ExecutionModel = 5
)

// ExecutionMode represents an entry point execution mode.
type ExecutionMode uint32

// Execution modes
const (
	ExecutionModeInvocations             ExecutionMode = 0
	ExecutionModeOriginUpperLeft         ExecutionMode = 7
	ExecutionModeOriginLowerLeft         ExecutionMode = 8
	ExecutionModeEarlyFragmentTests      ExecutionMode = 9
	ExecutionModeDepthReplacing          ExecutionMode = 12
	ExecutionModeLocalSize               ExecutionMode = 17
	ExecutionModeInputPoints             ExecutionMode = 19
	ExecutionModeInputLines              ExecutionMode = 20
	ExecutionModeInputLinesAdjacency     ExecutionMode = 21
	ExecutionModeTriangles               ExecutionMode = 22
	ExecutionModeInputTrianglesAdjacency ExecutionMode = 23
	ExecutionModeOutputVertices          ExecutionMode = 26
	ExecutionModeOutputPoints            ExecutionMode = 27
	ExecutionModeOutputLineStrip         ExecutionMode = 28
	ExecutionModeOutputTriangleStrip     ExecutionMode = 29
)

// StorageClass represents a SPIR-V storage class.
type StorageClass uint32

// Storage classes
const (
	StorageClassUniformConstant StorageClass = 0
	StorageClassInput           StorageClass = 1
	StorageClassUniform         StorageClass = 2
	StorageClassOutput          StorageClass = 3
	StorageClassWorkgroup       StorageClass = 4
	StorageClassCrossWorkgroup  StorageClass = 5
	StorageClassPrivate         StorageClass = 6
	StorageClassFunction        StorageClass = 7
	StorageClassGeneric         StorageClass = 8
	StorageClassPushConstant    StorageClass = 9
	StorageClassAtomicCounter   StorageClass = 10
	StorageClassImage           StorageClass = 11
	StorageClassStorageBuffer   StorageClass = 12
)

// Decoration represents a SPIR-V decoration.
type Decoration uint32

// Common decorations
const (
	DecorationBlock         Decoration = 2
	DecorationBufferBlock   Decoration = 3
	DecorationRowMajor      Decoration = 4
	DecorationColMajor      Decoration = 5
	DecorationArrayStride   Decoration = 6
	DecorationMatrixStride  Decoration = 7
	DecorationBuiltIn       Decoration = 11
	DecorationNoPerspective Decoration = 13
	DecorationFlat          Decoration = 14
	DecorationNonWritable   Decoration = 24
	DecorationNonReadable   Decoration = 25
	DecorationLocation      Decoration = 30
	DecorationComponent     Decoration = 31
	DecorationIndex         Decoration = 32
	DecorationBinding       Decoration = 33
	DecorationDescriptorSet Decoration = 34
	DecorationOffset        Decoration = 35
)

// BuiltIn identifies a builtin interface variable.
type BuiltIn uint32

// Builtins
const (
	BuiltInPosition             BuiltIn = 0
	BuiltInPointSize            BuiltIn = 1
	BuiltInClipDistance         BuiltIn = 3
	BuiltInCullDistance         BuiltIn = 4
	BuiltInPrimitiveID          BuiltIn = 7
	BuiltInInvocationID         BuiltIn = 8
	BuiltInLayer                BuiltIn = 9
	BuiltInViewportIndex        BuiltIn = 10
	BuiltInFragCoord            BuiltIn = 15
	BuiltInPointCoord           BuiltIn = 16
	BuiltInFrontFacing          BuiltIn = 17
	BuiltInSampleID             BuiltIn = 18
	BuiltInSamplePosition       BuiltIn = 19
	BuiltInSampleMask           BuiltIn = 20
	BuiltInFragDepth            BuiltIn = 22
	BuiltInHelperInvocation     BuiltIn = 23
	BuiltInNumWorkgroups        BuiltIn = 24
	BuiltInWorkgroupSize        BuiltIn = 25
	BuiltInWorkgroupID          BuiltIn = 26
	BuiltInLocalInvocationID    BuiltIn = 27
	BuiltInGlobalInvocationID   BuiltIn = 28
	BuiltInLocalInvocationIndex BuiltIn = 29
	BuiltInVertexIndex          BuiltIn = 42
	BuiltInInstanceIndex        BuiltIn = 43
)

// Dim is the dimensionality of an image.
type Dim uint32

// Image dimensions
const (
	Dim1D          Dim = 0
	Dim2D          Dim = 1
	Dim3D          Dim = 2
	DimCube        Dim = 3
	DimRect        Dim = 4
	DimBuffer      Dim = 5
	DimSubpassData Dim = 6
)

// ImageFormat is a storage image texel format.
type ImageFormat uint32

// AccessQualifier restricts kernel image access.
type AccessQualifier uint32

// Access qualifiers
const (
	AccessReadOnly  AccessQualifier = 0
	AccessWriteOnly AccessQualifier = 1
	AccessReadWrite AccessQualifier = 2
)

// FunctionControl represents function control flags.
type FunctionControl uint32

// Function control
const (
	FunctionControlNone       FunctionControl = 0
	FunctionControlInline     FunctionControl = 1
	FunctionControlDontInline FunctionControl = 2
)

// SelectionControl represents selection merge hints.
type SelectionControl uint32

// Selection control
const (
	SelectionControlNone SelectionControl = 0
)

// LoopControl represents loop merge hints.
type LoopControl uint32

// Loop control
const (
	LoopControlNone LoopControl = 0
)

// ImageOperands is the image operand mask. Operands follow the mask in
// ascending bit order.
type ImageOperands uint32

// Image operands
const (
	ImageOperandsBias         ImageOperands = 0x1
	ImageOperandsLod          ImageOperands = 0x2
	ImageOperandsGrad         ImageOperands = 0x4
	ImageOperandsConstOffset  ImageOperands = 0x8
	ImageOperandsOffset       ImageOperands = 0x10
	ImageOperandsConstOffsets ImageOperands = 0x20
	ImageOperandsSample       ImageOperands = 0x40
	ImageOperandsMinLod       ImageOperands = 0x80
)

// SourceLanguage identifies the language in OpSource.
type SourceLanguage uint32

// Source languages
const (
	SourceLanguageUnknown SourceLanguage = 0
	SourceLanguageGLSL    SourceLanguage = 2
)

// GLSLstd450 is an instruction number in the GLSL.std.450 extended set.
type GLSLstd450 uint32

// GLSL.std.450 instructions
const (
	GLSLstd450Round       GLSLstd450 = 1
	GLSLstd450RoundEven   GLSLstd450 = 2
	GLSLstd450Trunc       GLSLstd450 = 3
	GLSLstd450FAbs        GLSLstd450 = 4
	GLSLstd450SAbs        GLSLstd450 = 5
	GLSLstd450FSign       GLSLstd450 = 6
	GLSLstd450SSign       GLSLstd450 = 7
	GLSLstd450Floor       GLSLstd450 = 8
	GLSLstd450Ceil        GLSLstd450 = 9
	GLSLstd450Fract       GLSLstd450 = 10
	GLSLstd450Radians     GLSLstd450 = 11
	GLSLstd450Degrees     GLSLstd450 = 12
	GLSLstd450Sin         GLSLstd450 = 13
	GLSLstd450Cos         GLSLstd450 = 14
	GLSLstd450Tan         GLSLstd450 = 15
	GLSLstd450Asin        GLSLstd450 = 16
	GLSLstd450Acos        GLSLstd450 = 17
	GLSLstd450Atan        GLSLstd450 = 18
	GLSLstd450Sinh        GLSLstd450 = 19
	GLSLstd450Cosh        GLSLstd450 = 20
	GLSLstd450Tanh        GLSLstd450 = 21
	GLSLstd450Atan2       GLSLstd450 = 25
	GLSLstd450Pow         GLSLstd450 = 26
	GLSLstd450Exp         GLSLstd450 = 27
	GLSLstd450Log         GLSLstd450 = 28
	GLSLstd450Exp2        GLSLstd450 = 29
	GLSLstd450Log2        GLSLstd450 = 30
	GLSLstd450Sqrt        GLSLstd450 = 31
	GLSLstd450InverseSqrt GLSLstd450 = 32
	GLSLstd450FMin        GLSLstd450 = 37
	GLSLstd450UMin        GLSLstd450 = 38
	GLSLstd450SMin        GLSLstd450 = 39
	GLSLstd450FMax        GLSLstd450 = 40
	GLSLstd450UMax        GLSLstd450 = 41
	GLSLstd450SMax        GLSLstd450 = 42
	GLSLstd450FClamp      GLSLstd450 = 43
	GLSLstd450UClamp      GLSLstd450 = 44
	GLSLstd450SClamp      GLSLstd450 = 45
	GLSLstd450FMix        GLSLstd450 = 46
	GLSLstd450Step        GLSLstd450 = 48
	GLSLstd450SmoothStep  GLSLstd450 = 49
	GLSLstd450Fma         GLSLstd450 = 50
	GLSLstd450Ldexp       GLSLstd450 = 53
	GLSLstd450Length      GLSLstd450 = 66
	GLSLstd450Distance    GLSLstd450 = 67
	GLSLstd450Cross       GLSLstd450 = 68
	GLSLstd450Normalize   GLSLstd450 = 69
	GLSLstd450FaceForward GLSLstd450 = 70
	GLSLstd450Reflect     GLSLstd450 = 71
	GLSLstd450Refract     GLSLstd450 = 72
)

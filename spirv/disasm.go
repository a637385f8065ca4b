package spirv

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrInvalidBinary is returned when a byte stream is not a SPIR-V module.
var ErrInvalidBinary = errors.New("spirv: invalid binary")

// Module is a decoded SPIR-V binary.
type Module struct {
	Version      Version
	Generator    uint32
	Bound        uint32
	Schema       uint32
	Instructions []Instruction
}

// Decode splits binary into its header and instructions.
func Decode(data []byte) (*Module, error) {
	if len(data) < HeaderWords*4 || len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidBinary, len(data))
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	if words[0] != MagicNumber {
		return nil, fmt.Errorf("%w: magic 0x%08X", ErrInvalidBinary, words[0])
	}
	m := &Module{
		Version:   Version{Major: uint8(words[1] >> 16), Minor: uint8(words[1] >> 8)},
		Generator: words[2],
		Bound:     words[3],
		Schema:    words[4],
	}
	for off := HeaderWords; off < len(words); {
		count := int(words[off] >> 16)
		if count == 0 || off+count > len(words) {
			return nil, fmt.Errorf("%w: word count %d at word %d", ErrInvalidBinary, count, off)
		}
		m.Instructions = append(m.Instructions, Instruction{
			Opcode: OpCode(words[off] & 0xFFFF),
			Words:  words[off+1 : off+count],
		})
		off += count
	}
	return m, nil
}

// Find returns the instructions with the given opcode in module order.
func (m *Module) Find(op OpCode) []Instruction {
	var out []Instruction
	for _, inst := range m.Instructions {
		if inst.Opcode == op {
			out = append(out, inst)
		}
	}
	return out
}

// Count returns how many instructions have the given opcode.
func (m *Module) Count(op OpCode) int {
	return len(m.Find(op))
}

// Result returns the id defined by the instruction.
func (i Instruction) Result() (uint32, bool) {
	result, resultType := i.Opcode.HasResult()
	switch {
	case !result:
		return 0, false
	case resultType && len(i.Words) > 1:
		return i.Words[1], true
	case !resultType && len(i.Words) > 0:
		return i.Words[0], true
	}
	return 0, false
}

// decodeString reads a nul-terminated literal and returns it with the number
// of words it occupies.
func decodeString(words []uint32) (string, int) {
	var sb strings.Builder
	for i, w := range words {
		for shift := 0; shift < 32; shift += 8 {
			c := byte(w >> shift)
			if c == 0 {
				return sb.String(), i + 1
			}
			sb.WriteByte(c)
		}
	}
	return sb.String(), len(words)
}

var capabilityNames = map[uint32]string{
	0: "Matrix", 1: "Shader", 2: "Geometry", 3: "Tessellation",
	4: "Addresses", 5: "Linkage", 6: "Kernel", 7: "Vector16",
	8: "Float16Buffer", 9: "Float16", 10: "Float64", 11: "Int64",
	12: "Int64Atomics", 13: "ImageBasic", 14: "ImageReadWrite", 15: "ImageMipmap",
	17: "Pipes", 18: "Groups", 19: "DeviceEnqueue", 20: "LiteralSampler",
	21: "AtomicStorage", 22: "Int16", 23: "TessellationPointSize",
	24: "GeometryPointSize", 25: "ImageGatherExtended", 27: "StorageImageMultisample",
	28: "UniformBufferArrayDynamicIndexing", 29: "SampledImageArrayDynamicIndexing",
	30: "StorageBufferArrayDynamicIndexing", 31: "StorageImageArrayDynamicIndexing",
	32: "ClipDistance", 33: "CullDistance", 34: "ImageCubeArray",
	35: "SampleRateShading", 36: "ImageRect", 37: "SampledRect",
	38: "GenericPointer", 39: "Int8", 40: "InputAttachment",
	41: "SparseResidency", 42: "MinLod", 43: "Sampled1D", 44: "Image1D",
	45: "SampledCubeArray", 46: "SampledBuffer", 47: "ImageBuffer",
	48: "ImageMSArray", 49: "StorageImageExtendedFormats",
	50: "ImageQuery", 51: "DerivativeControl", 52: "InterpolationFunction",
	53: "TransformFeedback", 54: "GeometryStreams", 55: "StorageImageReadWithoutFormat",
	56: "StorageImageWriteWithoutFormat", 57: "MultiViewport",
}

var storageClassNames = map[uint32]string{
	0: "UniformConstant", 1: "Input", 2: "Uniform", 3: "Output",
	4: "Workgroup", 5: "CrossWorkgroup", 6: "Private", 7: "Function",
	8: "Generic", 9: "PushConstant", 10: "AtomicCounter", 11: "Image",
	12: "StorageBuffer",
}

var decorationNames = map[uint32]string{
	0: "RelaxedPrecision", 1: "SpecId", 2: "Block", 3: "BufferBlock",
	4: "RowMajor", 5: "ColMajor", 6: "ArrayStride", 7: "MatrixStride",
	8: "GLSLShared", 9: "GLSLPacked", 10: "CPacked", 11: "BuiltIn",
	13: "NoPerspective", 14: "Flat", 15: "Patch", 16: "Centroid",
	17: "Sample", 18: "Invariant", 19: "Restrict", 20: "Aliased",
	21: "Volatile", 22: "Constant", 23: "Coherent", 24: "NonWritable",
	25: "NonReadable", 26: "Uniform", 28: "SaturatedConversion",
	29: "Stream", 30: "Location", 31: "Component", 32: "Index",
	33: "Binding", 34: "DescriptorSet", 35: "Offset",
}

var builtinNamesByValue = map[uint32]string{
	0: "Position", 1: "PointSize", 3: "ClipDistance", 4: "CullDistance",
	5: "VertexId", 6: "InstanceId", 7: "PrimitiveId", 8: "InvocationId",
	9: "Layer", 10: "ViewportIndex", 11: "TessLevelOuter", 12: "TessLevelInner",
	13: "TessCoord", 14: "PatchVertices", 15: "FragCoord", 16: "PointCoord",
	17: "FrontFacing", 18: "SampleId", 19: "SamplePosition", 20: "SampleMask",
	22: "FragDepth", 23: "HelperInvocation", 24: "NumWorkgroups",
	25: "WorkgroupSize", 26: "WorkgroupId", 27: "LocalInvocationId",
	28: "GlobalInvocationId", 29: "LocalInvocationIndex",
	42: "VertexIndex", 43: "InstanceIndex",
}

var executionModeNames = map[uint32]string{
	0: "Invocations", 1: "SpacingEqual", 2: "SpacingFractionalEven",
	3: "SpacingFractionalOdd", 4: "VertexOrderCw", 5: "VertexOrderCcw",
	6: "PixelCenterInteger", 7: "OriginUpperLeft", 8: "OriginLowerLeft",
	9: "EarlyFragmentTests", 10: "PointMode", 11: "Xfb", 12: "DepthReplacing",
	14: "DepthGreater", 15: "DepthLess", 16: "DepthUnchanged",
	17: "LocalSize", 18: "LocalSizeHint", 19: "InputPoints", 20: "InputLines",
	21: "InputLinesAdjacency", 22: "Triangles", 23: "InputTrianglesAdjacency",
	24: "Quads", 25: "Isolines", 26: "OutputVertices", 27: "OutputPoints",
	28: "OutputLineStrip", 29: "OutputTriangleStrip",
}

var executionModelNames = map[uint32]string{
	0: "Vertex", 1: "TessellationControl", 2: "TessellationEvaluation",
	3: "Geometry", 4: "Fragment", 5: "GLCompute", 6: "Kernel",
}

var dimNames = map[uint32]string{
	0: "1D", 1: "2D", 2: "3D", 3: "Cube", 4: "Rect", 5: "Buffer", 6: "SubpassData",
}

var addressingNames = map[uint32]string{0: "Logical", 1: "Physical32", 2: "Physical64"}

var memoryModelNames = map[uint32]string{0: "Simple", 1: "GLSL450", 2: "OpenCL", 3: "Vulkan"}

func lookup(m map[uint32]string, v uint32) string {
	if s, ok := m[v]; ok {
		return s
	}
	return strconv.FormatUint(uint64(v), 10)
}

func id(n uint32) string {
	return "%" + strconv.FormatUint(uint64(n), 10)
}

// Disassemble renders binary as assembly text, one instruction per line.
func Disassemble(data []byte) (string, error) {
	var buf bytes.Buffer
	if err := DisassembleTo(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// DisassembleTo writes the assembly text of binary to w.
func DisassembleTo(w io.Writer, data []byte) error {
	m, err := Decode(data)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "; SPIR-V\n")
	fmt.Fprintf(bw, "; Version: %d.%d\n", m.Version.Major, m.Version.Minor)
	fmt.Fprintf(bw, "; Generator: 0x%08X\n", m.Generator)
	fmt.Fprintf(bw, "; Bound: %d\n", m.Bound)
	fmt.Fprintf(bw, "; Schema: %d\n", m.Schema)
	for _, inst := range m.Instructions {
		bw.WriteString(formatInstruction(inst))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

//nolint:gocyclo,cyclop,funlen // one case per operand layout
func formatInstruction(inst Instruction) string {
	ops := inst.Words
	name := inst.Opcode.String()
	var operands []string
	ids := func(ws []uint32) {
		for _, w := range ws {
			operands = append(operands, id(w))
		}
	}
	lits := func(ws []uint32) {
		for _, w := range ws {
			operands = append(operands, strconv.FormatUint(uint64(w), 10))
		}
	}
	str := func(ws []uint32) int {
		s, n := decodeString(ws)
		operands = append(operands, strconv.Quote(s))
		return n
	}
	need := func(n int) bool { return len(ops) >= n }

	result, resultType := inst.Opcode.HasResult()
	rest := ops
	prefix := ""
	switch {
	case result && resultType && need(2):
		prefix = id(ops[1]) + " = "
		operands = append(operands, id(ops[0]))
		rest = ops[2:]
	case result && !resultType && need(1):
		prefix = id(ops[0]) + " = "
		rest = ops[1:]
	}

	switch inst.Opcode {
	case OpCapability:
		if need(1) {
			operands = append(operands, lookup(capabilityNames, ops[0]))
		}
	case OpExtension:
		str(ops)
	case OpExtInstImport, OpString:
		str(rest)
	case OpMemoryModel:
		if need(2) {
			operands = append(operands, lookup(addressingNames, ops[0]), lookup(memoryModelNames, ops[1]))
		}
	case OpEntryPoint:
		if need(2) {
			operands = append(operands, lookup(executionModelNames, ops[0]), id(ops[1]))
			n := str(ops[2:])
			ids(ops[2+n:])
		}
	case OpExecutionMode:
		if need(2) {
			operands = append(operands, id(ops[0]), lookup(executionModeNames, ops[1]))
			lits(ops[2:])
		}
	case OpSource:
		if need(2) {
			lits(ops[:2])
			ids(ops[2:])
		}
	case OpName:
		if need(1) {
			operands = append(operands, id(ops[0]))
			str(ops[1:])
		}
	case OpMemberName:
		if need(2) {
			operands = append(operands, id(ops[0]))
			lits(ops[1:2])
			str(ops[2:])
		}
	case OpLine:
		if need(1) {
			operands = append(operands, id(ops[0]))
			lits(ops[1:])
		}
	case OpDecorate:
		if need(2) {
			operands = append(operands, id(ops[0]), lookup(decorationNames, ops[1]))
			if Decoration(ops[1]) == DecorationBuiltIn && need(3) {
				operands = append(operands, lookup(builtinNamesByValue, ops[2]))
			} else {
				lits(ops[2:])
			}
		}
	case OpMemberDecorate:
		if need(3) {
			operands = append(operands, id(ops[0]))
			lits(ops[1:2])
			operands = append(operands, lookup(decorationNames, ops[2]))
			lits(ops[3:])
		}
	case OpTypeInt, OpTypeFloat:
		lits(rest)
	case OpTypeVector, OpTypeMatrix:
		if len(rest) == 2 {
			ids(rest[:1])
			lits(rest[1:])
		}
	case OpTypeImage:
		if len(rest) >= 7 {
			operands = append(operands, id(rest[0]), lookup(dimNames, rest[1]))
			lits(rest[2:])
		}
	case OpTypePointer:
		if len(rest) == 2 {
			operands = append(operands, lookup(storageClassNames, rest[0]), id(rest[1]))
		}
	case OpConstant:
		lits(rest)
	case OpVariable:
		if len(rest) >= 1 {
			operands = append(operands, lookup(storageClassNames, rest[0]))
			ids(rest[1:])
		}
	case OpFunction:
		if len(rest) == 2 {
			lits(rest[:1])
			ids(rest[1:])
		}
	case OpCompositeExtract:
		if len(rest) >= 1 {
			ids(rest[:1])
			lits(rest[1:])
		}
	case OpCompositeInsert:
		if len(rest) >= 2 {
			ids(rest[:2])
			lits(rest[2:])
		}
	case OpVectorShuffle:
		if len(rest) >= 2 {
			ids(rest[:2])
			lits(rest[2:])
		}
	case OpExtInst:
		if len(rest) >= 2 {
			ids(rest[:1])
			lits(rest[1:2])
			ids(rest[2:])
		}
	case OpSelectionMerge:
		if need(2) {
			ids(ops[:1])
			lits(ops[1:])
		}
	case OpLoopMerge:
		if need(3) {
			ids(ops[:2])
			lits(ops[2:])
		}
	default:
		ids(rest)
	}

	var sb strings.Builder
	if prefix == "" {
		sb.WriteString(strings.Repeat(" ", 8))
	} else {
		sb.WriteString(fmt.Sprintf("%8s", prefix))
	}
	sb.WriteString(name)
	for _, o := range operands {
		sb.WriteByte(' ')
		sb.WriteString(o)
	}
	return sb.String()
}

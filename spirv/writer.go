package spirv

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"

	"fortio.org/safecast"
	"github.com/cespare/xxhash/v2"
)

// Instruction represents a SPIR-V instruction.
type Instruction struct {
	Opcode OpCode
	Words  []uint32 // result type ID, result ID, operands
}

// InstructionBuilder builds SPIR-V instructions.
type InstructionBuilder struct {
	words []uint32
}

// NewInstructionBuilder creates a new instruction builder.
func NewInstructionBuilder() *InstructionBuilder {
	return &InstructionBuilder{
		words: make([]uint32, 0, 8),
	}
}

// AddWord adds a word to the instruction.
func (b *InstructionBuilder) AddWord(word uint32) {
	b.words = append(b.words, word)
}

// AddWords adds several words to the instruction.
func (b *InstructionBuilder) AddWords(words ...uint32) {
	b.words = append(b.words, words...)
}

// AddString adds a null-terminated UTF-8 string.
func (b *InstructionBuilder) AddString(s string) {
	b.words = append(b.words, stringWords(s)...)
}

// Build builds the instruction with the given opcode.
func (b *InstructionBuilder) Build(opcode OpCode) Instruction {
	return Instruction{
		Opcode: opcode,
		Words:  b.words,
	}
}

func stringWords(s string) []uint32 {
	bytes := append([]byte(s), 0)
	for len(bytes)%4 != 0 {
		bytes = append(bytes, 0)
	}
	words := make([]uint32, 0, len(bytes)/4)
	for i := 0; i < len(bytes); i += 4 {
		words = append(words, binary.LittleEndian.Uint32(bytes[i:]))
	}
	return words
}

// Encode encodes the instruction to binary words.
func (i Instruction) Encode() ([]uint32, error) {
	wordCount, err := safecast.Conv[uint16](len(i.Words) + 1) // +1 for opcode word
	if err != nil {
		return nil, fmt.Errorf("spirv: %s has too many operands: %w", i.Opcode, err)
	}
	result := make([]uint32, 0, wordCount)
	result = append(result, (uint32(wordCount)<<16)|uint32(i.Opcode))
	result = append(result, i.Words...)
	return result, nil
}

// Phi is an OpPhi whose incoming pairs are appended as predecessors are
// lowered.
type Phi struct {
	ResultType uint32
	ID         uint32
	Incoming   [][2]uint32 // value, predecessor block
}

// AddIncoming records the value flowing in from pred.
func (p *Phi) AddIncoming(value, pred uint32) {
	p.Incoming = append(p.Incoming, [2]uint32{value, pred})
}

func (p *Phi) instruction() Instruction {
	words := make([]uint32, 0, 2+2*len(p.Incoming))
	words = append(words, p.ResultType, p.ID)
	for _, in := range p.Incoming {
		words = append(words, in[0], in[1])
	}
	return Instruction{Opcode: OpPhi, Words: words}
}

// Block is a basic block under construction.
type Block struct {
	ID           uint32
	Phis         []*Phi
	Instructions []Instruction

	placed bool
}

// Terminated reports whether the block already ends in a terminator.
func (b *Block) Terminated() bool {
	n := len(b.Instructions)
	return n > 0 && b.Instructions[n-1].Opcode.IsTerminator()
}

// Function is a function under construction. Variables are emitted at the
// head of the first block.
type Function struct {
	ID        uint32
	header    Instruction
	params    []Instruction
	variables []Instruction
	Blocks    []*Block
}

type dedupEntry struct {
	opcode OpCode
	words  []uint32
	id     uint32
}

// ModuleBuilder builds complete SPIR-V modules.
type ModuleBuilder struct {
	// Header
	version   Version
	generator uint32
	schema    uint32

	// Sections (ordered per SPIR-V spec)
	capabilities   []Instruction
	extensions     []Instruction
	extInstImports []Instruction
	memoryModel    *Instruction
	entryPoints    []Instruction
	executionModes []Instruction
	debugStrings   []Instruction // OpString, OpSource
	debugNames     []Instruction // OpName, OpMemberName
	annotations    []Instruction // OpDecorate, OpMemberDecorate
	types          []Instruction // OpType*, OpConstant*
	globalVars     []Instruction // OpVariable (global)
	functions      []*Function

	capabilitySet map[Capability]struct{}
	dedup         map[uint64][]dedupEntry

	// Insertion point
	function *Function
	block    *Block

	// ID allocation
	nextID uint32
}

// NewModuleBuilder creates a new SPIR-V module builder.
func NewModuleBuilder(version Version) *ModuleBuilder {
	return &ModuleBuilder{
		version:       version,
		generator:     GeneratorID,
		capabilitySet: make(map[Capability]struct{}),
		dedup:         make(map[uint64][]dedupEntry),
		nextID:        1,
	}
}

// AllocID allocates a new SPIR-V ID.
func (b *ModuleBuilder) AllocID() uint32 {
	id := b.nextID
	b.nextID++
	return id
}

// Bound returns one past the largest allocated id.
func (b *ModuleBuilder) Bound() uint32 {
	return b.nextID
}

// AddCapability adds a capability once.
func (b *ModuleBuilder) AddCapability(capability Capability) {
	if _, ok := b.capabilitySet[capability]; ok {
		return
	}
	b.capabilitySet[capability] = struct{}{}
	builder := NewInstructionBuilder()
	builder.AddWord(uint32(capability))
	b.capabilities = append(b.capabilities, builder.Build(OpCapability))
}

// AddExtension adds an extension.
func (b *ModuleBuilder) AddExtension(name string) {
	builder := NewInstructionBuilder()
	builder.AddString(name)
	b.extensions = append(b.extensions, builder.Build(OpExtension))
}

// AddExtInstImport imports an extended instruction set.
func (b *ModuleBuilder) AddExtInstImport(name string) uint32 {
	id := b.AllocID()
	builder := NewInstructionBuilder()
	builder.AddWord(id)
	builder.AddString(name)
	b.extInstImports = append(b.extInstImports, builder.Build(OpExtInstImport))
	return id
}

// SetMemoryModel sets the memory model.
func (b *ModuleBuilder) SetMemoryModel(addressing AddressingModel, memory MemoryModel) {
	builder := NewInstructionBuilder()
	builder.AddWord(uint32(addressing))
	builder.AddWord(uint32(memory))
	inst := builder.Build(OpMemoryModel)
	b.memoryModel = &inst
}

// AddEntryPoint adds an entry point.
func (b *ModuleBuilder) AddEntryPoint(execModel ExecutionModel, funcID uint32, name string, interfaces []uint32) {
	builder := NewInstructionBuilder()
	builder.AddWord(uint32(execModel))
	builder.AddWord(funcID)
	builder.AddString(name)
	builder.AddWords(interfaces...)
	b.entryPoints = append(b.entryPoints, builder.Build(OpEntryPoint))
}

// AddExecutionMode adds an execution mode.
func (b *ModuleBuilder) AddExecutionMode(entryPoint uint32, mode ExecutionMode, params ...uint32) {
	builder := NewInstructionBuilder()
	builder.AddWord(entryPoint)
	builder.AddWord(uint32(mode))
	builder.AddWords(params...)
	b.executionModes = append(b.executionModes, builder.Build(OpExecutionMode))
}

// AddString adds a debug string.
func (b *ModuleBuilder) AddString(text string) uint32 {
	id := b.AllocID()
	builder := NewInstructionBuilder()
	builder.AddWord(id)
	builder.AddString(text)
	b.debugStrings = append(b.debugStrings, builder.Build(OpString))
	return id
}

// AddSource adds OpSource naming the file string fileID.
func (b *ModuleBuilder) AddSource(lang SourceLanguage, version, fileID uint32) {
	builder := NewInstructionBuilder()
	builder.AddWords(uint32(lang), version, fileID)
	b.debugStrings = append(b.debugStrings, builder.Build(OpSource))
}

// AddName adds a debug name.
func (b *ModuleBuilder) AddName(id uint32, name string) {
	builder := NewInstructionBuilder()
	builder.AddWord(id)
	builder.AddString(name)
	b.debugNames = append(b.debugNames, builder.Build(OpName))
}

// AddMemberName adds a debug member name.
func (b *ModuleBuilder) AddMemberName(structID, member uint32, name string) {
	builder := NewInstructionBuilder()
	builder.AddWord(structID)
	builder.AddWord(member)
	builder.AddString(name)
	b.debugNames = append(b.debugNames, builder.Build(OpMemberName))
}

// AddDecorate adds a decoration.
func (b *ModuleBuilder) AddDecorate(id uint32, decoration Decoration, params ...uint32) {
	builder := NewInstructionBuilder()
	builder.AddWord(id)
	builder.AddWord(uint32(decoration))
	builder.AddWords(params...)
	b.annotations = append(b.annotations, builder.Build(OpDecorate))
}

// AddMemberDecorate adds a member decoration.
func (b *ModuleBuilder) AddMemberDecorate(structID, member uint32, decoration Decoration, params ...uint32) {
	builder := NewInstructionBuilder()
	builder.AddWord(structID)
	builder.AddWord(member)
	builder.AddWord(uint32(decoration))
	builder.AddWords(params...)
	b.annotations = append(b.annotations, builder.Build(OpMemberDecorate))
}

func dedupKey(opcode OpCode, words []uint32) uint64 {
	buf := make([]byte, 0, 4*(len(words)+1))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(opcode))
	for _, w := range words {
		buf = binary.LittleEndian.AppendUint32(buf, w)
	}
	return xxhash.Sum64(buf)
}

// declare appends a type or constant to the types section. Identical
// declarations share one id; resultFirst selects whether the result id
// precedes the operands (types) or follows the result type (constants).
func (b *ModuleBuilder) declare(opcode OpCode, resultFirst bool, operands ...uint32) uint32 {
	key := dedupKey(opcode, operands)
	for _, e := range b.dedup[key] {
		if e.opcode == opcode && slices.Equal(e.words, operands) {
			return e.id
		}
	}
	id := b.AllocID()
	b.dedup[key] = append(b.dedup[key], dedupEntry{opcode: opcode, words: slices.Clone(operands), id: id})
	b.types = append(b.types, Instruction{Opcode: opcode, Words: placeResult(id, resultFirst, operands)})
	return id
}

func placeResult(id uint32, resultFirst bool, operands []uint32) []uint32 {
	words := make([]uint32, 0, len(operands)+1)
	if resultFirst {
		words = append(words, id)
		return append(words, operands...)
	}
	// result type, result id, rest
	words = append(words, operands[0], id)
	return append(words, operands[1:]...)
}

// AddTypeVoid adds OpTypeVoid.
func (b *ModuleBuilder) AddTypeVoid() uint32 {
	return b.declare(OpTypeVoid, true)
}

// AddTypeBool adds OpTypeBool.
func (b *ModuleBuilder) AddTypeBool() uint32 {
	return b.declare(OpTypeBool, true)
}

// AddTypeFloat adds OpTypeFloat.
func (b *ModuleBuilder) AddTypeFloat(width uint32) uint32 {
	return b.declare(OpTypeFloat, true, width)
}

// AddTypeInt adds OpTypeInt.
func (b *ModuleBuilder) AddTypeInt(width uint32, signed bool) uint32 {
	var s uint32
	if signed {
		s = 1
	}
	return b.declare(OpTypeInt, true, width, s)
}

// AddTypeVector adds OpTypeVector.
func (b *ModuleBuilder) AddTypeVector(componentType uint32, count uint32) uint32 {
	return b.declare(OpTypeVector, true, componentType, count)
}

// AddTypeMatrix adds OpTypeMatrix.
func (b *ModuleBuilder) AddTypeMatrix(columnType uint32, columnCount uint32) uint32 {
	return b.declare(OpTypeMatrix, true, columnType, columnCount)
}

// AddTypeArray adds OpTypeArray. length is a constant ID.
func (b *ModuleBuilder) AddTypeArray(elementType uint32, length uint32) uint32 {
	return b.declare(OpTypeArray, true, elementType, length)
}

// AddTypeRuntimeArray adds OpTypeRuntimeArray.
func (b *ModuleBuilder) AddTypeRuntimeArray(elementType uint32) uint32 {
	return b.declare(OpTypeRuntimeArray, true, elementType)
}

// AddStridedArray adds an OpTypeArray, or an OpTypeRuntimeArray when length
// is 0, decorated with ArrayStride. Like structs it is never shared, so the
// plain array of the same element keeps an undecorated id.
func (b *ModuleBuilder) AddStridedArray(elementType, length, stride uint32) uint32 {
	id := b.AllocID()
	if length == 0 {
		b.types = append(b.types, Instruction{Opcode: OpTypeRuntimeArray, Words: []uint32{id, elementType}})
	} else {
		b.types = append(b.types, Instruction{Opcode: OpTypeArray, Words: []uint32{id, elementType, length}})
	}
	b.AddDecorate(id, DecorationArrayStride, stride)
	return id
}

// AddTypePointer adds OpTypePointer.
func (b *ModuleBuilder) AddTypePointer(storageClass StorageClass, baseType uint32) uint32 {
	return b.declare(OpTypePointer, true, uint32(storageClass), baseType)
}

// AddTypeFunction adds OpTypeFunction.
func (b *ModuleBuilder) AddTypeFunction(returnType uint32, paramTypes ...uint32) uint32 {
	return b.declare(OpTypeFunction, true, append([]uint32{returnType}, paramTypes...)...)
}

// AddTypeStruct adds OpTypeStruct. Structs are never shared since their
// decorations and names are per id.
func (b *ModuleBuilder) AddTypeStruct(memberTypes ...uint32) uint32 {
	id := b.AllocID()
	builder := NewInstructionBuilder()
	builder.AddWord(id)
	builder.AddWords(memberTypes...)
	b.types = append(b.types, builder.Build(OpTypeStruct))
	return id
}

// ImageTypeDesc holds the operands of OpTypeImage.
type ImageTypeDesc struct {
	SampledType  uint32
	Dim          Dim
	Depth        uint32
	Arrayed      uint32
	Multisampled uint32
	Sampled      uint32
	Format       ImageFormat
	Access       *AccessQualifier
}

// AddTypeImage adds OpTypeImage.
func (b *ModuleBuilder) AddTypeImage(desc ImageTypeDesc) uint32 {
	ops := []uint32{desc.SampledType, uint32(desc.Dim), desc.Depth, desc.Arrayed,
		desc.Multisampled, desc.Sampled, uint32(desc.Format)}
	if desc.Access != nil {
		ops = append(ops, uint32(*desc.Access))
	}
	return b.declare(OpTypeImage, true, ops...)
}

// AddTypeSampler adds OpTypeSampler.
func (b *ModuleBuilder) AddTypeSampler() uint32 {
	return b.declare(OpTypeSampler, true)
}

// AddTypeSampledImage adds OpTypeSampledImage.
func (b *ModuleBuilder) AddTypeSampledImage(imageType uint32) uint32 {
	return b.declare(OpTypeSampledImage, true, imageType)
}

// AddConstant adds OpConstant.
func (b *ModuleBuilder) AddConstant(typeID uint32, values ...uint32) uint32 {
	return b.declare(OpConstant, false, append([]uint32{typeID}, values...)...)
}

// AddConstantFloat32 adds a 32-bit float constant.
func (b *ModuleBuilder) AddConstantFloat32(typeID uint32, value float32) uint32 {
	bits := math.Float32bits(value)
	return b.AddConstant(typeID, bits)
}

// AddConstantFloat64 adds a 64-bit float constant.
func (b *ModuleBuilder) AddConstantFloat64(typeID uint32, value float64) uint32 {
	bits := math.Float64bits(value)
	lowBits := uint32(bits & 0xFFFFFFFF)
	highBits := uint32(bits >> 32)
	return b.AddConstant(typeID, lowBits, highBits)
}

// AddConstantBool adds OpConstantTrue or OpConstantFalse.
func (b *ModuleBuilder) AddConstantBool(typeID uint32, value bool) uint32 {
	if value {
		return b.declare(OpConstantTrue, false, typeID)
	}
	return b.declare(OpConstantFalse, false, typeID)
}

// AddConstantNull adds OpConstantNull.
func (b *ModuleBuilder) AddConstantNull(typeID uint32) uint32 {
	return b.declare(OpConstantNull, false, typeID)
}

// AddConstantComposite adds OpConstantComposite.
func (b *ModuleBuilder) AddConstantComposite(typeID uint32, constituents ...uint32) uint32 {
	return b.declare(OpConstantComposite, false, append([]uint32{typeID}, constituents...)...)
}

// AddVariable adds a module-scope OpVariable.
func (b *ModuleBuilder) AddVariable(pointerType uint32, storageClass StorageClass) uint32 {
	id := b.AllocID()
	builder := NewInstructionBuilder()
	builder.AddWord(pointerType)
	builder.AddWord(id)
	builder.AddWord(uint32(storageClass))
	b.globalVars = append(b.globalVars, builder.Build(OpVariable))
	return id
}

// BeginFunction starts a function definition and makes it current.
func (b *ModuleBuilder) BeginFunction(id, returnType, funcType uint32, control FunctionControl) *Function {
	fn := &Function{
		ID: id,
		header: Instruction{
			Opcode: OpFunction,
			Words:  []uint32{returnType, id, uint32(control), funcType},
		},
	}
	b.functions = append(b.functions, fn)
	b.function = fn
	b.block = nil
	return fn
}

// CurrentFunction returns the function under construction.
func (b *ModuleBuilder) CurrentFunction() *Function {
	return b.function
}

// AddFunctionParameter adds a parameter to the current function.
func (b *ModuleBuilder) AddFunctionParameter(typeID uint32) uint32 {
	id := b.AllocID()
	b.function.params = append(b.function.params, Instruction{Opcode: OpFunctionParameter, Words: []uint32{typeID, id}})
	return id
}

// AddFunctionVariable adds a Function storage variable to the current
// function's entry block.
func (b *ModuleBuilder) AddFunctionVariable(pointerType uint32) uint32 {
	id := b.AllocID()
	b.function.variables = append(b.function.variables, Instruction{
		Opcode: OpVariable,
		Words:  []uint32{pointerType, id, uint32(StorageClassFunction)},
	})
	return id
}

// NewBlock allocates a block. It joins the current function when it first
// becomes the insertion point.
func (b *ModuleBuilder) NewBlock() *Block {
	return &Block{ID: b.AllocID()}
}

// SetInsertBlock makes blk the insertion point.
func (b *ModuleBuilder) SetInsertBlock(blk *Block) {
	if !blk.placed {
		blk.placed = true
		b.function.Blocks = append(b.function.Blocks, blk)
	}
	b.block = blk
}

// InsertBlock returns the current insertion block.
func (b *ModuleBuilder) InsertBlock() *Block {
	return b.block
}

// AddPhi adds an OpPhi at the head of blk.
func (b *ModuleBuilder) AddPhi(blk *Block, resultType uint32) *Phi {
	phi := &Phi{ResultType: resultType, ID: b.AllocID()}
	blk.Phis = append(blk.Phis, phi)
	return phi
}

// Emit appends an instruction without a result to the current block.
func (b *ModuleBuilder) Emit(opcode OpCode, operands ...uint32) {
	b.block.Instructions = append(b.block.Instructions, Instruction{Opcode: opcode, Words: operands})
}

// EmitResult appends an instruction with a result type and returns its id.
func (b *ModuleBuilder) EmitResult(opcode OpCode, resultType uint32, operands ...uint32) uint32 {
	id := b.AllocID()
	words := make([]uint32, 0, len(operands)+2)
	words = append(words, resultType, id)
	words = append(words, operands...)
	b.block.Instructions = append(b.block.Instructions, Instruction{Opcode: opcode, Words: words})
	return id
}

// AddLine emits OpLine into the current block.
func (b *ModuleBuilder) AddLine(file, line, column uint32) {
	b.Emit(OpLine, file, line, column)
}

// AddBinaryOp adds a binary operation instruction.
func (b *ModuleBuilder) AddBinaryOp(opcode OpCode, resultType uint32, left uint32, right uint32) uint32 {
	return b.EmitResult(opcode, resultType, left, right)
}

// AddUnaryOp adds a unary operation instruction.
func (b *ModuleBuilder) AddUnaryOp(opcode OpCode, resultType uint32, operand uint32) uint32 {
	return b.EmitResult(opcode, resultType, operand)
}

// AddLoad adds OpLoad.
func (b *ModuleBuilder) AddLoad(resultType uint32, pointer uint32) uint32 {
	return b.EmitResult(OpLoad, resultType, pointer)
}

// AddStore adds OpStore.
func (b *ModuleBuilder) AddStore(pointer uint32, value uint32) {
	b.Emit(OpStore, pointer, value)
}

// AddAccessChain adds OpAccessChain.
func (b *ModuleBuilder) AddAccessChain(resultType uint32, base uint32, indices ...uint32) uint32 {
	return b.EmitResult(OpAccessChain, resultType, append([]uint32{base}, indices...)...)
}

// AddCompositeConstruct adds OpCompositeConstruct.
func (b *ModuleBuilder) AddCompositeConstruct(resultType uint32, constituents ...uint32) uint32 {
	return b.EmitResult(OpCompositeConstruct, resultType, constituents...)
}

// AddCompositeExtract adds OpCompositeExtract with literal indices.
func (b *ModuleBuilder) AddCompositeExtract(resultType uint32, composite uint32, indices ...uint32) uint32 {
	return b.EmitResult(OpCompositeExtract, resultType, append([]uint32{composite}, indices...)...)
}

// AddCompositeInsert adds OpCompositeInsert with literal indices.
func (b *ModuleBuilder) AddCompositeInsert(resultType uint32, object, composite uint32, indices ...uint32) uint32 {
	return b.EmitResult(OpCompositeInsert, resultType, append([]uint32{object, composite}, indices...)...)
}

// AddVectorShuffle adds OpVectorShuffle for vector swizzle operations.
func (b *ModuleBuilder) AddVectorShuffle(resultType uint32, vec1 uint32, vec2 uint32, components []uint32) uint32 {
	return b.EmitResult(OpVectorShuffle, resultType, append([]uint32{vec1, vec2}, components...)...)
}

// AddSelect adds OpSelect.
func (b *ModuleBuilder) AddSelect(resultType uint32, condition uint32, accept uint32, reject uint32) uint32 {
	return b.EmitResult(OpSelect, resultType, condition, accept, reject)
}

// AddFunctionCall adds OpFunctionCall.
func (b *ModuleBuilder) AddFunctionCall(resultType uint32, function uint32, args ...uint32) uint32 {
	return b.EmitResult(OpFunctionCall, resultType, append([]uint32{function}, args...)...)
}

// AddSelectionMerge adds OpSelectionMerge.
func (b *ModuleBuilder) AddSelectionMerge(mergeLabel uint32, control SelectionControl) {
	b.Emit(OpSelectionMerge, mergeLabel, uint32(control))
}

// AddLoopMerge adds OpLoopMerge.
func (b *ModuleBuilder) AddLoopMerge(mergeLabel uint32, continueLabel uint32, control LoopControl) {
	b.Emit(OpLoopMerge, mergeLabel, continueLabel, uint32(control))
}

// AddBranch adds OpBranch.
func (b *ModuleBuilder) AddBranch(target uint32) {
	b.Emit(OpBranch, target)
}

// AddBranchConditional adds OpBranchConditional.
func (b *ModuleBuilder) AddBranchConditional(condition uint32, trueLabel uint32, falseLabel uint32) {
	b.Emit(OpBranchConditional, condition, trueLabel, falseLabel)
}

// AddKill adds OpKill (fragment shader discard).
func (b *ModuleBuilder) AddKill() {
	b.Emit(OpKill)
}

// AddUnreachable adds OpUnreachable.
func (b *ModuleBuilder) AddUnreachable() {
	b.Emit(OpUnreachable)
}

// AddReturn adds OpReturn.
func (b *ModuleBuilder) AddReturn() {
	b.Emit(OpReturn)
}

// AddReturnValue adds OpReturnValue.
func (b *ModuleBuilder) AddReturnValue(valueID uint32) {
	b.Emit(OpReturnValue, valueID)
}

// AddExtInst adds OpExtInst (extended instruction).
func (b *ModuleBuilder) AddExtInst(resultType uint32, extSet uint32, instruction uint32, operands ...uint32) uint32 {
	return b.EmitResult(OpExtInst, resultType, append([]uint32{extSet, instruction}, operands...)...)
}

// Build generates the final SPIR-V binary.
func (b *ModuleBuilder) Build() ([]byte, error) {
	sections := [][]Instruction{
		b.capabilities,
		b.extensions,
		b.extInstImports,
	}
	if b.memoryModel != nil {
		sections = append(sections, []Instruction{*b.memoryModel})
	}
	sections = append(sections,
		b.entryPoints,
		b.executionModes,
		b.debugStrings,
		b.debugNames,
		b.annotations,
		b.types,
		b.globalVars,
	)
	for _, fn := range b.functions {
		sections = append(sections, fn.instructions())
	}

	words := []uint32{MagicNumber, b.version.Word(), b.generator, b.nextID, b.schema}
	for _, section := range sections {
		for _, inst := range section {
			encoded, err := inst.Encode()
			if err != nil {
				return nil, err
			}
			words = append(words, encoded...)
		}
	}

	buffer := make([]byte, 0, len(words)*4)
	for _, w := range words {
		buffer = binary.LittleEndian.AppendUint32(buffer, w)
	}
	return buffer, nil
}

func (fn *Function) instructions() []Instruction {
	out := []Instruction{fn.header}
	out = append(out, fn.params...)
	for i, blk := range fn.orderedBlocks() {
		out = append(out, Instruction{Opcode: OpLabel, Words: []uint32{blk.ID}})
		for _, phi := range blk.Phis {
			out = append(out, phi.instruction())
		}
		if i == 0 {
			out = append(out, fn.variables...)
		}
		out = append(out, blk.Instructions...)
	}
	return append(out, Instruction{Opcode: OpFunctionEnd})
}

// successors lists the blocks named by blk's terminator and merge
// instruction, merge targets first.
func (blk *Block) successors() []uint32 {
	var merges, targets []uint32
	for _, inst := range blk.Instructions {
		switch inst.Opcode {
		case OpSelectionMerge:
			merges = append(merges, inst.Words[0])
		case OpLoopMerge:
			merges = append(merges, inst.Words[0], inst.Words[1])
		case OpBranch:
			targets = append(targets, inst.Words[0])
		case OpBranchConditional:
			targets = append(targets, inst.Words[2], inst.Words[1])
		}
	}
	return append(merges, targets...)
}

// orderedBlocks returns the blocks in reverse postorder from the entry so
// that every block follows its dominators. Blocks not reachable from the
// entry keep their placement order at the end.
func (fn *Function) orderedBlocks() []*Block {
	if len(fn.Blocks) < 2 {
		return fn.Blocks
	}
	byID := make(map[uint32]*Block, len(fn.Blocks))
	for _, blk := range fn.Blocks {
		byID[blk.ID] = blk
	}

	type frame struct {
		blk  *Block
		succ []uint32
	}
	visited := map[uint32]bool{fn.Blocks[0].ID: true}
	stack := []frame{{fn.Blocks[0], fn.Blocks[0].successors()}}
	post := make([]*Block, 0, len(fn.Blocks))
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if len(top.succ) == 0 {
			post = append(post, top.blk)
			stack = stack[:len(stack)-1]
			continue
		}
		id := top.succ[0]
		top.succ = top.succ[1:]
		next, ok := byID[id]
		if !ok || visited[id] {
			continue
		}
		visited[id] = true
		stack = append(stack, frame{next, next.successors()})
	}

	order := make([]*Block, 0, len(fn.Blocks))
	for i := len(post) - 1; i >= 0; i-- {
		order = append(order, post[i])
	}
	for _, blk := range fn.Blocks {
		if !visited[blk.ID] {
			order = append(order, blk)
		}
	}
	return order
}

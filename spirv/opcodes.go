package spirv

import "fmt"

// OpCode represents a SPIR-V opcode.
type OpCode uint16

// Opcodes
const (
	OpNop                                  OpCode = 0
	OpUndef                                OpCode = 1
	OpSource                               OpCode = 3
	OpName                                 OpCode = 5
	OpMemberName                           OpCode = 6
	OpString                               OpCode = 7
	OpLine                                 OpCode = 8
	OpExtension                            OpCode = 10
	OpExtInstImport                        OpCode = 11
	OpExtInst                              OpCode = 12
	OpMemoryModel                          OpCode = 14
	OpEntryPoint                           OpCode = 15
	OpExecutionMode                        OpCode = 16
	OpCapability                           OpCode = 17
	OpTypeVoid                             OpCode = 19
	OpTypeBool                             OpCode = 20
	OpTypeInt                              OpCode = 21
	OpTypeFloat                            OpCode = 22
	OpTypeVector                           OpCode = 23
	OpTypeMatrix                           OpCode = 24
	OpTypeImage                            OpCode = 25
	OpTypeSampler                          OpCode = 26
	OpTypeSampledImage                     OpCode = 27
	OpTypeArray                            OpCode = 28
	OpTypeRuntimeArray                     OpCode = 29
	OpTypeStruct                           OpCode = 30
	OpTypeOpaque                           OpCode = 31
	OpTypePointer                          OpCode = 32
	OpTypeFunction                         OpCode = 33
	OpConstantTrue                         OpCode = 41
	OpConstantFalse                        OpCode = 42
	OpConstant                             OpCode = 43
	OpConstantComposite                    OpCode = 44
	OpConstantNull                         OpCode = 46
	OpFunction                             OpCode = 54
	OpFunctionParameter                    OpCode = 55
	OpFunctionEnd                          OpCode = 56
	OpFunctionCall                         OpCode = 57
	OpVariable                             OpCode = 59
	OpLoad                                 OpCode = 61
	OpStore                                OpCode = 62
	OpAccessChain                          OpCode = 65
	OpDecorate                             OpCode = 71
	OpMemberDecorate                       OpCode = 72
	OpVectorExtractDynamic                 OpCode = 77
	OpVectorInsertDynamic                  OpCode = 78
	OpVectorShuffle                        OpCode = 79
	OpCompositeConstruct                   OpCode = 80
	OpCompositeExtract                     OpCode = 81
	OpCompositeInsert                      OpCode = 82
	OpCopyObject                           OpCode = 83
	OpSampledImage                         OpCode = 86
	OpImageSampleImplicitLod               OpCode = 87
	OpImageSampleExplicitLod               OpCode = 88
	OpImageSampleDrefImplicitLod           OpCode = 89
	OpImageSampleDrefExplicitLod           OpCode = 90
	OpImageSampleProjImplicitLod           OpCode = 91
	OpImageSampleProjExplicitLod           OpCode = 92
	OpImageSampleProjDrefImplicitLod       OpCode = 93
	OpImageSampleProjDrefExplicitLod       OpCode = 94
	OpImageFetch                           OpCode = 95
	OpImageGather                          OpCode = 96
	OpImageDrefGather                      OpCode = 97
	OpImageRead                            OpCode = 98
	OpImageWrite                           OpCode = 99
	OpImage                                OpCode = 100
	OpImageQuerySizeLod                    OpCode = 103
	OpImageQuerySize                       OpCode = 104
	OpImageQueryLod                        OpCode = 105
	OpImageQueryLevels                     OpCode = 106
	OpImageQuerySamples                    OpCode = 107
	OpConvertFToU                          OpCode = 109
	OpConvertFToS                          OpCode = 110
	OpConvertSToF                          OpCode = 111
	OpConvertUToF                          OpCode = 112
	OpUConvert                             OpCode = 113
	OpSConvert                             OpCode = 114
	OpFConvert                             OpCode = 115
	OpConvertPtrToU                        OpCode = 117
	OpConvertUToPtr                        OpCode = 120
	OpBitcast                              OpCode = 124
	OpSNegate                              OpCode = 126
	OpFNegate                              OpCode = 127
	OpIAdd                                 OpCode = 128
	OpFAdd                                 OpCode = 129
	OpISub                                 OpCode = 130
	OpFSub                                 OpCode = 131
	OpIMul                                 OpCode = 132
	OpFMul                                 OpCode = 133
	OpUDiv                                 OpCode = 134
	OpSDiv                                 OpCode = 135
	OpFDiv                                 OpCode = 136
	OpUMod                                 OpCode = 137
	OpSRem                                 OpCode = 138
	OpSMod                                 OpCode = 139
	OpFRem                                 OpCode = 140
	OpFMod                                 OpCode = 141
	OpVectorTimesScalar                    OpCode = 142
	OpMatrixTimesScalar                    OpCode = 143
	OpVectorTimesMatrix                    OpCode = 144
	OpMatrixTimesVector                    OpCode = 145
	OpMatrixTimesMatrix                    OpCode = 146
	OpOuterProduct                         OpCode = 147
	OpDot                                  OpCode = 148
	OpAny                                  OpCode = 154
	OpAll                                  OpCode = 155
	OpIsNan                                OpCode = 156
	OpIsInf                                OpCode = 157
	OpOrdered                              OpCode = 162
	OpUnordered                            OpCode = 163
	OpLogicalEqual                         OpCode = 164
	OpLogicalNotEqual                      OpCode = 165
	OpLogicalOr                            OpCode = 166
	OpLogicalAnd                           OpCode = 167
	OpLogicalNot                           OpCode = 168
	OpSelect                               OpCode = 169
	OpIEqual                               OpCode = 170
	OpINotEqual                            OpCode = 171
	OpUGreaterThan                         OpCode = 172
	OpSGreaterThan                         OpCode = 173
	OpUGreaterThanEqual                    OpCode = 174
	OpSGreaterThanEqual                    OpCode = 175
	OpULessThan                            OpCode = 176
	OpSLessThan                            OpCode = 177
	OpULessThanEqual                       OpCode = 178
	OpSLessThanEqual                       OpCode = 179
	OpFOrdEqual                            OpCode = 180
	OpFUnordEqual                          OpCode = 181
	OpFOrdNotEqual                         OpCode = 182
	OpFUnordNotEqual                       OpCode = 183
	OpFOrdLessThan                         OpCode = 184
	OpFUnordLessThan                       OpCode = 185
	OpFOrdGreaterThan                      OpCode = 186
	OpFUnordGreaterThan                    OpCode = 187
	OpFOrdLessThanEqual                    OpCode = 188
	OpFUnordLessThanEqual                  OpCode = 189
	OpFOrdGreaterThanEqual                 OpCode = 190
	OpFUnordGreaterThanEqual               OpCode = 191
	OpShiftRightLogical                    OpCode = 194
	OpShiftRightArithmetic                 OpCode = 195
	OpShiftLeftLogical                     OpCode = 196
	OpBitwiseOr                            OpCode = 197
	OpBitwiseXor                           OpCode = 198
	OpBitwiseAnd                           OpCode = 199
	OpNot                                  OpCode = 200
	OpBitReverse                           OpCode = 204
	OpBitCount                             OpCode = 205
	OpDPdx                                 OpCode = 207
	OpDPdy                                 OpCode = 208
	OpFwidth                               OpCode = 209
	OpDPdxFine                             OpCode = 210
	OpDPdyFine                             OpCode = 211
	OpFwidthFine                           OpCode = 212
	OpDPdxCoarse                           OpCode = 213
	OpDPdyCoarse                           OpCode = 214
	OpFwidthCoarse                         OpCode = 215
	OpPhi                                  OpCode = 245
	OpLoopMerge                            OpCode = 246
	OpSelectionMerge                       OpCode = 247
	OpLabel                                OpCode = 248
	OpBranch                               OpCode = 249
	OpBranchConditional                    OpCode = 250
	OpSwitch                               OpCode = 251
	OpKill                                 OpCode = 252
	OpReturn                               OpCode = 253
	OpReturnValue                          OpCode = 254
	OpUnreachable                          OpCode = 255
	OpImageSparseSampleImplicitLod         OpCode = 305
	OpImageSparseSampleExplicitLod         OpCode = 306
	OpImageSparseSampleDrefImplicitLod     OpCode = 307
	OpImageSparseSampleDrefExplicitLod     OpCode = 308
	OpImageSparseSampleProjImplicitLod     OpCode = 309
	OpImageSparseSampleProjExplicitLod     OpCode = 310
	OpImageSparseSampleProjDrefImplicitLod OpCode = 311
	OpImageSparseSampleProjDrefExplicitLod OpCode = 312
	OpImageSparseFetch                     OpCode = 313
	OpImageSparseGather                    OpCode = 314
	OpImageSparseDrefGather                OpCode = 315
	OpImageSparseTexelsResident            OpCode = 316
	OpImageSparseRead                      OpCode = 320
)

var opcodeNames = map[OpCode]string{
	OpNop:                                  "OpNop",
	OpUndef:                                "OpUndef",
	OpSource:                               "OpSource",
	OpName:                                 "OpName",
	OpMemberName:                           "OpMemberName",
	OpString:                               "OpString",
	OpLine:                                 "OpLine",
	OpExtension:                            "OpExtension",
	OpExtInstImport:                        "OpExtInstImport",
	OpExtInst:                              "OpExtInst",
	OpMemoryModel:                          "OpMemoryModel",
	OpEntryPoint:                           "OpEntryPoint",
	OpExecutionMode:                        "OpExecutionMode",
	OpCapability:                           "OpCapability",
	OpTypeVoid:                             "OpTypeVoid",
	OpTypeBool:                             "OpTypeBool",
	OpTypeInt:                              "OpTypeInt",
	OpTypeFloat:                            "OpTypeFloat",
	OpTypeVector:                           "OpTypeVector",
	OpTypeMatrix:                           "OpTypeMatrix",
	OpTypeImage:                            "OpTypeImage",
	OpTypeSampler:                          "OpTypeSampler",
	OpTypeSampledImage:                     "OpTypeSampledImage",
	OpTypeArray:                            "OpTypeArray",
	OpTypeRuntimeArray:                     "OpTypeRuntimeArray",
	OpTypeStruct:                           "OpTypeStruct",
	OpTypeOpaque:                           "OpTypeOpaque",
	OpTypePointer:                          "OpTypePointer",
	OpTypeFunction:                         "OpTypeFunction",
	OpConstantTrue:                         "OpConstantTrue",
	OpConstantFalse:                        "OpConstantFalse",
	OpConstant:                             "OpConstant",
	OpConstantComposite:                    "OpConstantComposite",
	OpConstantNull:                         "OpConstantNull",
	OpFunction:                             "OpFunction",
	OpFunctionParameter:                    "OpFunctionParameter",
	OpFunctionEnd:                          "OpFunctionEnd",
	OpFunctionCall:                         "OpFunctionCall",
	OpVariable:                             "OpVariable",
	OpLoad:                                 "OpLoad",
	OpStore:                                "OpStore",
	OpAccessChain:                          "OpAccessChain",
	OpDecorate:                             "OpDecorate",
	OpMemberDecorate:                       "OpMemberDecorate",
	OpVectorExtractDynamic:                 "OpVectorExtractDynamic",
	OpVectorInsertDynamic:                  "OpVectorInsertDynamic",
	OpVectorShuffle:                        "OpVectorShuffle",
	OpCompositeConstruct:                   "OpCompositeConstruct",
	OpCompositeExtract:                     "OpCompositeExtract",
	OpCompositeInsert:                      "OpCompositeInsert",
	OpCopyObject:                           "OpCopyObject",
	OpSampledImage:                         "OpSampledImage",
	OpImageSampleImplicitLod:               "OpImageSampleImplicitLod",
	OpImageSampleExplicitLod:               "OpImageSampleExplicitLod",
	OpImageSampleDrefImplicitLod:           "OpImageSampleDrefImplicitLod",
	OpImageSampleDrefExplicitLod:           "OpImageSampleDrefExplicitLod",
	OpImageSampleProjImplicitLod:           "OpImageSampleProjImplicitLod",
	OpImageSampleProjExplicitLod:           "OpImageSampleProjExplicitLod",
	OpImageSampleProjDrefImplicitLod:       "OpImageSampleProjDrefImplicitLod",
	OpImageSampleProjDrefExplicitLod:       "OpImageSampleProjDrefExplicitLod",
	OpImageFetch:                           "OpImageFetch",
	OpImageGather:                          "OpImageGather",
	OpImageDrefGather:                      "OpImageDrefGather",
	OpImageRead:                            "OpImageRead",
	OpImageWrite:                           "OpImageWrite",
	OpImage:                                "OpImage",
	OpImageQuerySizeLod:                    "OpImageQuerySizeLod",
	OpImageQuerySize:                       "OpImageQuerySize",
	OpImageQueryLod:                        "OpImageQueryLod",
	OpImageQueryLevels:                     "OpImageQueryLevels",
	OpImageQuerySamples:                    "OpImageQuerySamples",
	OpConvertFToU:                          "OpConvertFToU",
	OpConvertFToS:                          "OpConvertFToS",
	OpConvertSToF:                          "OpConvertSToF",
	OpConvertUToF:                          "OpConvertUToF",
	OpUConvert:                             "OpUConvert",
	OpSConvert:                             "OpSConvert",
	OpFConvert:                             "OpFConvert",
	OpConvertPtrToU:                        "OpConvertPtrToU",
	OpConvertUToPtr:                        "OpConvertUToPtr",
	OpBitcast:                              "OpBitcast",
	OpSNegate:                              "OpSNegate",
	OpFNegate:                              "OpFNegate",
	OpIAdd:                                 "OpIAdd",
	OpFAdd:                                 "OpFAdd",
	OpISub:                                 "OpISub",
	OpFSub:                                 "OpFSub",
	OpIMul:                                 "OpIMul",
	OpFMul:                                 "OpFMul",
	OpUDiv:                                 "OpUDiv",
	OpSDiv:                                 "OpSDiv",
	OpFDiv:                                 "OpFDiv",
	OpUMod:                                 "OpUMod",
	OpSRem:                                 "OpSRem",
	OpSMod:                                 "OpSMod",
	OpFRem:                                 "OpFRem",
	OpFMod:                                 "OpFMod",
	OpVectorTimesScalar:                    "OpVectorTimesScalar",
	OpMatrixTimesScalar:                    "OpMatrixTimesScalar",
	OpVectorTimesMatrix:                    "OpVectorTimesMatrix",
	OpMatrixTimesVector:                    "OpMatrixTimesVector",
	OpMatrixTimesMatrix:                    "OpMatrixTimesMatrix",
	OpOuterProduct:                         "OpOuterProduct",
	OpDot:                                  "OpDot",
	OpAny:                                  "OpAny",
	OpAll:                                  "OpAll",
	OpIsNan:                                "OpIsNan",
	OpIsInf:                                "OpIsInf",
	OpOrdered:                              "OpOrdered",
	OpUnordered:                            "OpUnordered",
	OpLogicalEqual:                         "OpLogicalEqual",
	OpLogicalNotEqual:                      "OpLogicalNotEqual",
	OpLogicalOr:                            "OpLogicalOr",
	OpLogicalAnd:                           "OpLogicalAnd",
	OpLogicalNot:                           "OpLogicalNot",
	OpSelect:                               "OpSelect",
	OpIEqual:                               "OpIEqual",
	OpINotEqual:                            "OpINotEqual",
	OpUGreaterThan:                         "OpUGreaterThan",
	OpSGreaterThan:                         "OpSGreaterThan",
	OpUGreaterThanEqual:                    "OpUGreaterThanEqual",
	OpSGreaterThanEqual:                    "OpSGreaterThanEqual",
	OpULessThan:                            "OpULessThan",
	OpSLessThan:                            "OpSLessThan",
	OpULessThanEqual:                       "OpULessThanEqual",
	OpSLessThanEqual:                       "OpSLessThanEqual",
	OpFOrdEqual:                            "OpFOrdEqual",
	OpFUnordEqual:                          "OpFUnordEqual",
	OpFOrdNotEqual:                         "OpFOrdNotEqual",
	OpFUnordNotEqual:                       "OpFUnordNotEqual",
	OpFOrdLessThan:                         "OpFOrdLessThan",
	OpFUnordLessThan:                       "OpFUnordLessThan",
	OpFOrdGreaterThan:                      "OpFOrdGreaterThan",
	OpFUnordGreaterThan:                    "OpFUnordGreaterThan",
	OpFOrdLessThanEqual:                    "OpFOrdLessThanEqual",
	OpFUnordLessThanEqual:                  "OpFUnordLessThanEqual",
	OpFOrdGreaterThanEqual:                 "OpFOrdGreaterThanEqual",
	OpFUnordGreaterThanEqual:               "OpFUnordGreaterThanEqual",
	OpShiftRightLogical:                    "OpShiftRightLogical",
	OpShiftRightArithmetic:                 "OpShiftRightArithmetic",
	OpShiftLeftLogical:                     "OpShiftLeftLogical",
	OpBitwiseOr:                            "OpBitwiseOr",
	OpBitwiseXor:                           "OpBitwiseXor",
	OpBitwiseAnd:                           "OpBitwiseAnd",
	OpNot:                                  "OpNot",
	OpBitReverse:                           "OpBitReverse",
	OpBitCount:                             "OpBitCount",
	OpDPdx:                                 "OpDPdx",
	OpDPdy:                                 "OpDPdy",
	OpFwidth:                               "OpFwidth",
	OpDPdxFine:                             "OpDPdxFine",
	OpDPdyFine:                             "OpDPdyFine",
	OpFwidthFine:                           "OpFwidthFine",
	OpDPdxCoarse:                           "OpDPdxCoarse",
	OpDPdyCoarse:                           "OpDPdyCoarse",
	OpFwidthCoarse:                         "OpFwidthCoarse",
	OpPhi:                                  "OpPhi",
	OpLoopMerge:                            "OpLoopMerge",
	OpSelectionMerge:                       "OpSelectionMerge",
	OpLabel:                                "OpLabel",
	OpBranch:                               "OpBranch",
	OpBranchConditional:                    "OpBranchConditional",
	OpSwitch:                               "OpSwitch",
	OpKill:                                 "OpKill",
	OpReturn:                               "OpReturn",
	OpReturnValue:                          "OpReturnValue",
	OpUnreachable:                          "OpUnreachable",
	OpImageSparseSampleImplicitLod:         "OpImageSparseSampleImplicitLod",
	OpImageSparseSampleExplicitLod:         "OpImageSparseSampleExplicitLod",
	OpImageSparseSampleDrefImplicitLod:     "OpImageSparseSampleDrefImplicitLod",
	OpImageSparseSampleDrefExplicitLod:     "OpImageSparseSampleDrefExplicitLod",
	OpImageSparseSampleProjImplicitLod:     "OpImageSparseSampleProjImplicitLod",
	OpImageSparseSampleProjExplicitLod:     "OpImageSparseSampleProjExplicitLod",
	OpImageSparseSampleProjDrefImplicitLod: "OpImageSparseSampleProjDrefImplicitLod",
	OpImageSparseSampleProjDrefExplicitLod: "OpImageSparseSampleProjDrefExplicitLod",
	OpImageSparseFetch:                     "OpImageSparseFetch",
	OpImageSparseGather:                    "OpImageSparseGather",
	OpImageSparseDrefGather:                "OpImageSparseDrefGather",
	OpImageSparseTexelsResident:            "OpImageSparseTexelsResident",
	OpImageSparseRead:                      "OpImageSparseRead",
}

func (op OpCode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Op%d", uint16(op))
}

// HasResult reports whether instructions with this opcode define a result
// id, and whether that id is preceded by a result type.
func (op OpCode) HasResult() (result, resultType bool) {
	switch op {
	case OpString, OpExtInstImport, OpTypeVoid, OpTypeBool, OpTypeInt, OpTypeFloat,
		OpTypeVector, OpTypeMatrix, OpTypeImage, OpTypeSampler, OpTypeSampledImage,
		OpTypeArray, OpTypeRuntimeArray, OpTypeStruct, OpTypeOpaque, OpTypePointer,
		OpTypeFunction, OpLabel:
		return true, false
	case OpNop, OpSource, OpName, OpMemberName, OpLine, OpExtension, OpMemoryModel,
		OpEntryPoint, OpExecutionMode, OpCapability, OpFunctionEnd, OpStore,
		OpDecorate, OpMemberDecorate, OpImageWrite, OpLoopMerge, OpSelectionMerge,
		OpBranch, OpBranchConditional, OpSwitch, OpKill, OpReturn, OpReturnValue,
		OpUnreachable:
		return false, false
	}
	return true, true
}

// IsTerminator reports whether op ends a block.
func (op OpCode) IsTerminator() bool {
	switch op {
	case OpBranch, OpBranchConditional, OpSwitch, OpKill, OpReturn, OpReturnValue, OpUnreachable:
		return true
	}
	return false
}

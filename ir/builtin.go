package ir

import "fmt"

// Builtin is a primitive operation. Operands follow the continuation in the
// label body: (op cont a b ...).
type Builtin uint16

const (
	InvalidBuiltin Builtin = iota

	// control
	Branch // None cond then else
	Unreachable
	Discard

	// integer arithmetic
	Add
	AddNUW
	AddNSW
	Sub
	SubNUW
	SubNSW
	Mul
	MulNUW
	MulNSW
	SDiv
	UDiv
	SRem
	URem
	Shl
	LShr
	AShr
	BAnd
	BOr
	BXor

	// float arithmetic
	FAdd
	FSub
	FMul
	FDiv
	FRem
	FNeg

	// integer comparison
	ICmpEQ
	ICmpNE
	ICmpUGT
	ICmpUGE
	ICmpULT
	ICmpULE
	ICmpSGT
	ICmpSGE
	ICmpSLT
	ICmpSLE

	// float comparison
	FCmpOEQ
	FCmpONE
	FCmpORD
	FCmpOGT
	FCmpOGE
	FCmpOLT
	FCmpOLE
	FCmpUEQ
	FCmpUNE
	FCmpUNO
	FCmpUGT
	FCmpUGE
	FCmpULT
	FCmpULE

	// casts: value, TypeValue
	Bitcast
	IntToPtr
	PtrToInt
	Trunc
	ZExt
	SExt
	FPTrunc
	FPExt
	FPToUI
	FPToSI
	UIToFP
	SIToFP

	// memory and aggregates
	Alloca         // TypeValue
	Load           // ptr
	Store          // value ptr
	GetElementPtr  // ptr 0 indices...
	Select         // cond a b
	ExtractValue   // agg index...
	InsertValue    // agg value index...
	ExtractElement // vec index
	InsertElement  // vec value index
	ShuffleVector  // a b mask

	// vector
	Dot

	// GLSL.std.450
	Sin
	Cos
	Tan
	Asin
	Acos
	Atan
	Atan2
	Sinh
	Cosh
	Tanh
	Exp
	Exp2
	Log
	Log2
	Pow
	Sqrt
	InverseSqrt
	FAbs
	SAbs
	FSign
	SSign
	Floor
	Ceil
	FTrunc
	Round
	RoundEven
	Fract
	FMin
	FMax
	UMin
	UMax
	SMin
	SMax
	FClamp
	UClamp
	SClamp
	FMix
	Step
	SmoothStep
	Fma
	Length
	Distance
	Cross
	Normalize
	FaceForward
	Reflect
	Refract
	Ldexp
	Radians
	Degrees

	// derivatives
	DPdx
	DPdy
	Fwidth
	DPdxFine
	DPdyFine
	FwidthFine
	DPdxCoarse
	DPdyCoarse
	FwidthCoarse

	// images; optional operands are keyed
	Sample            // sampled-image coords
	ImageRead         // image coords
	ImageWrite        // image coords texel
	ImageQuerySize    // image
	ImageQueryLod     // sampled-image coords
	ImageQueryLevels  // image
	ImageQuerySamples // image

	numBuiltins
)

// Image operand keys accepted in the keyed tail of image operations.
const (
	KeyLod    = "Lod"
	KeyBias   = "Bias"
	KeyDref   = "Dref"
	KeyGradX  = "GradX"
	KeyGradY  = "GradY"
	KeyOffset = "Offset"
	KeyMinLod = "MinLod"
	KeySample = "Sample"
	KeyGather = "Gather"
	KeySparse = "Sparse"
	KeyProj   = "Proj"
)

var builtinNames = [numBuiltins]string{
	InvalidBuiltin: "invalid",
	Branch:         "branch", Unreachable: "unreachable!", Discard: "discard!",
	Add: "add", AddNUW: "add-nuw", AddNSW: "add-nsw",
	Sub: "sub", SubNUW: "sub-nuw", SubNSW: "sub-nsw",
	Mul: "mul", MulNUW: "mul-nuw", MulNSW: "mul-nsw",
	SDiv: "sdiv", UDiv: "udiv", SRem: "srem", URem: "urem",
	Shl: "shl", LShr: "lshr", AShr: "ashr",
	BAnd: "band", BOr: "bor", BXor: "bxor",
	FAdd: "fadd", FSub: "fsub", FMul: "fmul", FDiv: "fdiv", FRem: "frem", FNeg: "fneg",
	ICmpEQ: "icmp==", ICmpNE: "icmp!=",
	ICmpUGT: "icmp>u", ICmpUGE: "icmp>=u", ICmpULT: "icmp<u", ICmpULE: "icmp<=u",
	ICmpSGT: "icmp>s", ICmpSGE: "icmp>=s", ICmpSLT: "icmp<s", ICmpSLE: "icmp<=s",
	FCmpOEQ: "fcmp==o", FCmpONE: "fcmp!=o", FCmpORD: "fcmp-ord",
	FCmpOGT: "fcmp>o", FCmpOGE: "fcmp>=o", FCmpOLT: "fcmp<o", FCmpOLE: "fcmp<=o",
	FCmpUEQ: "fcmp==u", FCmpUNE: "fcmp!=u", FCmpUNO: "fcmp-uno",
	FCmpUGT: "fcmp>u", FCmpUGE: "fcmp>=u", FCmpULT: "fcmp<u", FCmpULE: "fcmp<=u",
	Bitcast: "bitcast", IntToPtr: "inttoptr", PtrToInt: "ptrtoint",
	Trunc: "itrunc", ZExt: "zext", SExt: "sext", FPTrunc: "fptrunc", FPExt: "fpext",
	FPToUI: "fptoui", FPToSI: "fptosi", UIToFP: "uitofp", SIToFP: "sitofp",
	Alloca: "alloca", Load: "load", Store: "store", GetElementPtr: "getelementptr",
	Select: "select", ExtractValue: "extractvalue", InsertValue: "insertvalue",
	ExtractElement: "extractelement", InsertElement: "insertelement", ShuffleVector: "shufflevector",
	Dot: "dot",
	Sin: "sin", Cos: "cos", Tan: "tan", Asin: "asin", Acos: "acos", Atan: "atan", Atan2: "atan2",
	Sinh: "sinh", Cosh: "cosh", Tanh: "tanh",
	Exp: "exp", Exp2: "exp2", Log: "log", Log2: "log2", Pow: "powf",
	Sqrt: "sqrt", InverseSqrt: "inversesqrt",
	FAbs: "fabs", SAbs: "sabs", FSign: "fsign", SSign: "ssign",
	Floor: "floor", Ceil: "ceil", FTrunc: "trunc", Round: "round", RoundEven: "roundeven", Fract: "fract",
	FMin: "fmin", FMax: "fmax", UMin: "umin", UMax: "umax", SMin: "smin", SMax: "smax",
	FClamp: "fclamp", UClamp: "uclamp", SClamp: "sclamp",
	FMix: "fmix", Step: "step", SmoothStep: "smoothstep", Fma: "fma",
	Length: "length", Distance: "distance", Cross: "cross", Normalize: "normalize",
	FaceForward: "faceforward", Reflect: "reflect", Refract: "refract", Ldexp: "ldexp",
	Radians: "radians", Degrees: "degrees",
	DPdx: "dFdx", DPdy: "dFdy", Fwidth: "fwidth",
	DPdxFine: "dFdxFine", DPdyFine: "dFdyFine", FwidthFine: "fwidthFine",
	DPdxCoarse: "dFdxCoarse", DPdyCoarse: "dFdyCoarse", FwidthCoarse: "fwidthCoarse",
	Sample: "sample", ImageRead: "Image.read", ImageWrite: "Image.write",
	ImageQuerySize: "Image.query-size", ImageQueryLod: "Image.query-lod",
	ImageQueryLevels: "Image.query-levels", ImageQuerySamples: "Image.query-samples",
}

func (b Builtin) String() string {
	if b < numBuiltins && builtinNames[b] != "" {
		return builtinNames[b]
	}
	return fmt.Sprintf("builtin(%d)", uint16(b))
}

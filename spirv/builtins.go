package spirv

import (
	"fmt"

	"github.com/gogpu/spvgen/diag"
	"github.com/gogpu/spvgen/ir"
	"github.com/gogpu/spvgen/types"
)

var intBinaryOps = map[ir.Builtin]OpCode{
	ir.Add: OpIAdd, ir.AddNUW: OpIAdd, ir.AddNSW: OpIAdd,
	ir.Sub: OpISub, ir.SubNUW: OpISub, ir.SubNSW: OpISub,
	ir.Mul: OpIMul, ir.MulNUW: OpIMul, ir.MulNSW: OpIMul,
	ir.SDiv: OpSDiv, ir.UDiv: OpUDiv,
	ir.SRem: OpSRem, ir.URem: OpUMod,
	ir.Shl: OpShiftLeftLogical, ir.LShr: OpShiftRightLogical, ir.AShr: OpShiftRightArithmetic,
	ir.BAnd: OpBitwiseAnd, ir.BOr: OpBitwiseOr, ir.BXor: OpBitwiseXor,
}

// boolBinaryOps apply when the operands are booleans.
var boolBinaryOps = map[ir.Builtin]OpCode{
	ir.BAnd:   OpLogicalAnd,
	ir.BOr:    OpLogicalOr,
	ir.BXor:   OpLogicalNotEqual,
	ir.ICmpEQ: OpLogicalEqual,
	ir.ICmpNE: OpLogicalNotEqual,
}

var floatBinaryOps = map[ir.Builtin]OpCode{
	ir.FAdd: OpFAdd, ir.FSub: OpFSub, ir.FMul: OpFMul, ir.FDiv: OpFDiv, ir.FRem: OpFRem,
}

var compareOps = map[ir.Builtin]OpCode{
	ir.ICmpEQ: OpIEqual, ir.ICmpNE: OpINotEqual,
	ir.ICmpUGT: OpUGreaterThan, ir.ICmpUGE: OpUGreaterThanEqual,
	ir.ICmpULT: OpULessThan, ir.ICmpULE: OpULessThanEqual,
	ir.ICmpSGT: OpSGreaterThan, ir.ICmpSGE: OpSGreaterThanEqual,
	ir.ICmpSLT: OpSLessThan, ir.ICmpSLE: OpSLessThanEqual,

	ir.FCmpOEQ: OpFOrdEqual, ir.FCmpONE: OpFOrdNotEqual,
	ir.FCmpOGT: OpFOrdGreaterThan, ir.FCmpOGE: OpFOrdGreaterThanEqual,
	ir.FCmpOLT: OpFOrdLessThan, ir.FCmpOLE: OpFOrdLessThanEqual,
	ir.FCmpUEQ: OpFUnordEqual, ir.FCmpUNE: OpFUnordNotEqual,
	ir.FCmpUGT: OpFUnordGreaterThan, ir.FCmpUGE: OpFUnordGreaterThanEqual,
	ir.FCmpULT: OpFUnordLessThan, ir.FCmpULE: OpFUnordLessThanEqual,
	ir.FCmpORD: OpOrdered, ir.FCmpUNO: OpUnordered,
}

var castOps = map[ir.Builtin]OpCode{
	ir.Bitcast: OpBitcast,
	ir.Trunc:   OpUConvert,
	ir.ZExt:    OpUConvert,
	ir.SExt:    OpSConvert,
	ir.FPTrunc: OpFConvert,
	ir.FPExt:   OpFConvert,
	ir.FPToUI:  OpConvertFToU,
	ir.FPToSI:  OpConvertFToS,
	ir.UIToFP:  OpConvertUToF,
	ir.SIToFP:  OpConvertSToF,
}

var glslOps = map[ir.Builtin]GLSLstd450{
	ir.Sin: GLSLstd450Sin, ir.Cos: GLSLstd450Cos, ir.Tan: GLSLstd450Tan,
	ir.Asin: GLSLstd450Asin, ir.Acos: GLSLstd450Acos, ir.Atan: GLSLstd450Atan, ir.Atan2: GLSLstd450Atan2,
	ir.Sinh: GLSLstd450Sinh, ir.Cosh: GLSLstd450Cosh, ir.Tanh: GLSLstd450Tanh,
	ir.Exp: GLSLstd450Exp, ir.Exp2: GLSLstd450Exp2, ir.Log: GLSLstd450Log, ir.Log2: GLSLstd450Log2,
	ir.Pow: GLSLstd450Pow, ir.Sqrt: GLSLstd450Sqrt, ir.InverseSqrt: GLSLstd450InverseSqrt,
	ir.FAbs: GLSLstd450FAbs, ir.SAbs: GLSLstd450SAbs, ir.FSign: GLSLstd450FSign, ir.SSign: GLSLstd450SSign,
	ir.Floor: GLSLstd450Floor, ir.Ceil: GLSLstd450Ceil, ir.FTrunc: GLSLstd450Trunc,
	ir.Round: GLSLstd450Round, ir.RoundEven: GLSLstd450RoundEven, ir.Fract: GLSLstd450Fract,
	ir.FMin: GLSLstd450FMin, ir.FMax: GLSLstd450FMax, ir.UMin: GLSLstd450UMin, ir.UMax: GLSLstd450UMax,
	ir.SMin: GLSLstd450SMin, ir.SMax: GLSLstd450SMax,
	ir.FClamp: GLSLstd450FClamp, ir.UClamp: GLSLstd450UClamp, ir.SClamp: GLSLstd450SClamp,
	ir.FMix: GLSLstd450FMix, ir.Step: GLSLstd450Step, ir.SmoothStep: GLSLstd450SmoothStep, ir.Fma: GLSLstd450Fma,
	ir.Length: GLSLstd450Length, ir.Distance: GLSLstd450Distance, ir.Cross: GLSLstd450Cross,
	ir.Normalize: GLSLstd450Normalize, ir.FaceForward: GLSLstd450FaceForward,
	ir.Reflect: GLSLstd450Reflect, ir.Refract: GLSLstd450Refract, ir.Ldexp: GLSLstd450Ldexp,
	ir.Radians: GLSLstd450Radians, ir.Degrees: GLSLstd450Degrees,
}

var glslArity = map[GLSLstd450]int{
	GLSLstd450Atan2: 2, GLSLstd450Pow: 2, GLSLstd450FMin: 2, GLSLstd450FMax: 2,
	GLSLstd450UMin: 2, GLSLstd450UMax: 2, GLSLstd450SMin: 2, GLSLstd450SMax: 2,
	GLSLstd450Step: 2, GLSLstd450Distance: 2, GLSLstd450Cross: 2, GLSLstd450Reflect: 2,
	GLSLstd450Ldexp: 2,
	GLSLstd450FClamp: 3, GLSLstd450UClamp: 3, GLSLstd450SClamp: 3, GLSLstd450FMix: 3,
	GLSLstd450SmoothStep: 3, GLSLstd450Fma: 3, GLSLstd450FaceForward: 3, GLSLstd450Refract: 3,
}

var derivativeOps = map[ir.Builtin]OpCode{
	ir.DPdx: OpDPdx, ir.DPdy: OpDPdy, ir.Fwidth: OpFwidth,
	ir.DPdxFine: OpDPdxFine, ir.DPdyFine: OpDPdyFine, ir.FwidthFine: OpFwidthFine,
	ir.DPdxCoarse: OpDPdxCoarse, ir.DPdyCoarse: OpDPdyCoarse, ir.FwidthCoarse: OpFwidthCoarse,
}

func kindOf(t types.Type) types.Kind {
	st, err := types.StorageType(t)
	if err != nil {
		return nil
	}
	return types.Info(st)
}

// scalarOf returns the element type of a vector, or t itself.
func scalarOf(t types.Type) types.Type {
	if v, ok := kindOf(t).(types.VectorType); ok {
		return v.Element
	}
	return t
}

func isBool(t types.Type) bool {
	it, ok := kindOf(scalarOf(t)).(types.IntegerType)
	return ok && it.Width == 1
}

// boolLike returns bool, or a bool vector as wide as t.
func boolLike(t types.Type) (types.Type, error) {
	if v, ok := kindOf(t).(types.VectorType); ok {
		return types.Vector(types.Bool, v.Count)
	}
	return types.Bool, nil
}

func (g *Generator) operands(l *ir.Label, op ir.Builtin, n int) ([]value, error) {
	args, err := g.positional(l, l.Body.Args[1:])
	if err != nil {
		return nil, err
	}
	if len(args) != n {
		return nil, diag.Errorf(diag.KindConsistency, l.Body.Anchor,
			"%s takes %d operands but %d were passed", op, n, len(args))
	}
	return args, nil
}

func (g *Generator) typeID(t types.Type, anchor diag.Anchor) (uint32, error) {
	id, err := g.typeToSPIRV(t, 0)
	if err != nil {
		return 0, g.at(err, anchor)
	}
	return id, nil
}

// emit lowers an instruction whose result has type t.
func (g *Generator) emit(opcode OpCode, t types.Type, anchor diag.Anchor, operands ...uint32) ([]value, error) {
	tid, err := g.typeID(t, anchor)
	if err != nil {
		return nil, err
	}
	return []value{{id: g.builder.EmitResult(opcode, tid, operands...), typ: t}}, nil
}

// writeBuiltin lowers a primitive operation and returns its results.
func (g *Generator) writeBuiltin(l *ir.Label, op ir.Builtin) ([]value, error) {
	b := g.builder
	anchor := l.Body.Anchor

	switch op {
	case ir.Discard:
		b.AddKill()
		return nil, nil
	case ir.Unreachable:
		b.AddUnreachable()
		return nil, nil
	}

	if boolOpc, ok := boolBinaryOps[op]; ok {
		args, err := g.operands(l, op, 2)
		if err != nil {
			return nil, err
		}
		if isBool(args[0].typ) {
			return g.emit(boolOpc, args[0].typ, anchor, args[0].id, args[1].id)
		}
		if opc, ok := intBinaryOps[op]; ok {
			return g.emit(opc, args[0].typ, anchor, args[0].id, args[1].id)
		}
		return g.compare(compareOps[op], args, anchor)
	}
	if opc, ok := intBinaryOps[op]; ok {
		args, err := g.operands(l, op, 2)
		if err != nil {
			return nil, err
		}
		return g.emit(opc, args[0].typ, anchor, args[0].id, args[1].id)
	}
	if opc, ok := floatBinaryOps[op]; ok {
		args, err := g.operands(l, op, 2)
		if err != nil {
			return nil, err
		}
		return g.emit(opc, args[0].typ, anchor, args[0].id, args[1].id)
	}
	if opc, ok := compareOps[op]; ok {
		args, err := g.operands(l, op, 2)
		if err != nil {
			return nil, err
		}
		return g.compare(opc, args, anchor)
	}
	if _, ok := castOps[op]; ok || op == ir.IntToPtr || op == ir.PtrToInt {
		return g.writeCast(l, op)
	}
	if inst, ok := glslOps[op]; ok {
		n := glslArity[inst]
		if n == 0 {
			n = 1
		}
		args, err := g.operands(l, op, n)
		if err != nil {
			return nil, err
		}
		rt := args[0].typ
		if inst == GLSLstd450Length || inst == GLSLstd450Distance {
			rt = scalarOf(rt)
		}
		tid, err := g.typeID(rt, anchor)
		if err != nil {
			return nil, err
		}
		return []value{{id: b.AddExtInst(tid, g.glslExt, uint32(inst), ids(args)...), typ: rt}}, nil
	}
	if opc, ok := derivativeOps[op]; ok {
		args, err := g.operands(l, op, 1)
		if err != nil {
			return nil, err
		}
		if opc != OpDPdx && opc != OpDPdy && opc != OpFwidth {
			b.AddCapability(CapabilityDerivativeControl)
		}
		return g.emit(opc, args[0].typ, anchor, args[0].id)
	}

	switch op {
	case ir.FNeg:
		args, err := g.operands(l, op, 1)
		if err != nil {
			return nil, err
		}
		return g.emit(OpFNegate, args[0].typ, anchor, args[0].id)
	case ir.Select:
		args, err := g.operands(l, op, 3)
		if err != nil {
			return nil, err
		}
		return g.emit(OpSelect, args[1].typ, anchor, args[0].id, args[1].id, args[2].id)
	case ir.Dot:
		args, err := g.operands(l, op, 2)
		if err != nil {
			return nil, err
		}
		return g.emit(OpDot, scalarOf(args[0].typ), anchor, args[0].id, args[1].id)
	case ir.Alloca, ir.Load, ir.Store, ir.GetElementPtr:
		return g.writeMemory(l, op)
	case ir.ExtractValue, ir.InsertValue, ir.ExtractElement, ir.InsertElement, ir.ShuffleVector:
		return g.writeAggregate(l, op)
	case ir.Sample, ir.ImageRead, ir.ImageWrite, ir.ImageQuerySize, ir.ImageQueryLod,
		ir.ImageQueryLevels, ir.ImageQuerySamples:
		return g.writeImage(l, op)
	}
	return nil, diag.Errorf(diag.KindUnsupported, anchor, "unsupported builtin %s", op)
}

func (g *Generator) compare(opc OpCode, args []value, anchor diag.Anchor) ([]value, error) {
	rt, err := boolLike(args[0].typ)
	if err != nil {
		return nil, g.at(err, anchor)
	}
	return g.emit(opc, rt, anchor, args[0].id, args[1].id)
}

// castTarget splits the operands of a cast into the value and target type.
func (g *Generator) castTarget(l *ir.Label, op ir.Builtin) (value, types.Type, error) {
	args := l.Body.Args[1:]
	if len(args) != 2 || args[0].Key != "" || args[1].Key != "" {
		return value{}, types.NoType, diag.Errorf(diag.KindConsistency, l.Body.Anchor, "%s takes a value and a type", op)
	}
	tv, ok := args[1].Value.(ir.TypeValue)
	if !ok {
		return value{}, types.NoType, diag.Errorf(diag.KindConsistency, l.Body.Anchor, "second operand of %s must be a type", op)
	}
	src, err := g.argumentToValue(args[0].Value, l.Body.Anchor)
	return src, tv.Type, err
}

func (g *Generator) writeCast(l *ir.Label, op ir.Builtin) ([]value, error) {
	b := g.builder
	anchor := l.Body.Anchor
	src, dst, err := g.castTarget(l, op)
	if err != nil {
		return nil, err
	}
	if op == ir.Bitcast && src.typ == dst {
		return []value{src}, nil
	}
	if op == ir.IntToPtr || op == ir.PtrToInt {
		return nil, diag.Errorf(diag.KindUnsupported, anchor,
			"unsupported cast %s from %s to %s", op, types.String(src.typ), types.String(dst))
	}
	dstID, err := g.typeID(dst, anchor)
	if err != nil {
		return nil, err
	}

	// Booleans have no numeric representation in SPIR-V.
	if isBool(src.typ) && (op == ir.ZExt || op == ir.SExt || op == ir.UIToFP || op == ir.SIToFP) {
		one := int64(1)
		if op == ir.SExt || op == ir.SIToFP {
			one = -1
		}
		onID, err := g.splat(dst, one)
		if err != nil {
			return nil, g.at(err, anchor)
		}
		offID, err := g.splat(dst, 0)
		if err != nil {
			return nil, g.at(err, anchor)
		}
		return []value{{id: b.AddSelect(dstID, src.id, onID, offID), typ: dst}}, nil
	}
	if isBool(dst) && (op == ir.Trunc || op == ir.FPToUI || op == ir.FPToSI) {
		if op != ir.Trunc {
			return nil, diag.Errorf(diag.KindUnsupported, anchor,
				"unsupported cast %s from %s to %s", op, types.String(src.typ), types.String(dst))
		}
		srcID, err := g.typeID(src.typ, anchor)
		if err != nil {
			return nil, err
		}
		oneID, err := g.splat(src.typ, 1)
		if err != nil {
			return nil, g.at(err, anchor)
		}
		zeroID, err := g.splat(src.typ, 0)
		if err != nil {
			return nil, g.at(err, anchor)
		}
		low := b.AddBinaryOp(OpBitwiseAnd, srcID, src.id, oneID)
		return []value{{id: b.AddBinaryOp(OpINotEqual, dstID, low, zeroID), typ: dst}}, nil
	}
	if isBool(src.typ) || isBool(dst) {
		return nil, diag.Errorf(diag.KindUnsupported, anchor,
			"unsupported cast %s from %s to %s", op, types.String(src.typ), types.String(dst))
	}
	opc := castOps[op]
	if op == ir.Trunc && isSigned(dst) {
		opc = OpSConvert
	}
	if (op == ir.ZExt || op == ir.FPToUI) && isSigned(dst) {
		// OpUConvert and OpConvertFToU produce unsigned results.
		unsigned, err := unsignedLike(dst)
		if err != nil {
			return nil, g.at(err, anchor)
		}
		uID, err := g.typeID(unsigned, anchor)
		if err != nil {
			return nil, err
		}
		wide := b.AddUnaryOp(opc, uID, src.id)
		return []value{{id: b.AddUnaryOp(OpBitcast, dstID, wide), typ: dst}}, nil
	}
	return []value{{id: b.AddUnaryOp(opc, dstID, src.id), typ: dst}}, nil
}

func isSigned(t types.Type) bool {
	it, ok := kindOf(scalarOf(t)).(types.IntegerType)
	return ok && it.Signed
}

// unsignedLike returns the unsigned integer type, or vector of it, with the
// shape of t.
func unsignedLike(t types.Type) (types.Type, error) {
	it, ok := kindOf(scalarOf(t)).(types.IntegerType)
	if !ok {
		return types.NoType, fmt.Errorf("%s is not an integer type: %w", types.String(t), types.ErrTypeKindMismatch)
	}
	u := types.Integer(it.Width, false)
	if v, ok := kindOf(t).(types.VectorType); ok {
		return types.Vector(u, v.Count)
	}
	return u, nil
}

// constIndex returns the literal value of an integer constant operand.
func constIndex(v ir.Value) (uint32, bool) {
	c, ok := v.(ir.ConstInt)
	if !ok || c.Value > 0xFFFFFFFF {
		return 0, false
	}
	return uint32(c.Value), true
}

// member returns the type reached by indexing into t. Struct members need a
// constant index.
func member(t types.Type, index ir.Value) (types.Type, bool, error) {
	st, err := types.StorageType(t)
	if err != nil {
		return types.NoType, false, err
	}
	if _, ok := types.Info(st).(types.UnionType); ok {
		if st, err = types.UnionTupleForm(st); err != nil {
			return types.NoType, false, err
		}
	}
	switch k := types.Info(st).(type) {
	case types.TupleType:
		i, ok := constIndex(index)
		if !ok || int(i) >= len(k.Values) {
			return types.NoType, true, unsupportedType(t, "member index must be a constant in range")
		}
		return k.Values[i], true, nil
	case types.ArrayType:
		return k.Element, false, nil
	case types.VectorType:
		return k.Element, false, nil
	case types.MatrixType:
		return k.Column, false, nil
	}
	return types.NoType, false, unsupportedType(t, "cannot index into this type")
}

func (g *Generator) writeMemory(l *ir.Label, op ir.Builtin) ([]value, error) {
	b := g.builder
	anchor := l.Body.Anchor
	args := l.Body.Args[1:]

	switch op {
	case ir.Alloca:
		if len(args) != 1 {
			return nil, diag.Errorf(diag.KindConsistency, anchor, "alloca takes a type")
		}
		tv, ok := args[0].Value.(ir.TypeValue)
		if !ok {
			return nil, diag.Errorf(diag.KindConsistency, anchor, "alloca takes a type")
		}
		ptr := types.Pointer(tv.Type, 0, types.ClassFunction)
		tid, err := g.typeID(ptr, anchor)
		if err != nil {
			return nil, err
		}
		return []value{{id: b.AddFunctionVariable(tid), typ: ptr}}, nil

	case ir.Load:
		ops, err := g.operands(l, op, 1)
		if err != nil {
			return nil, err
		}
		ptr, ok := pointerInfo(ops[0].typ)
		if !ok {
			return nil, diag.Errorf(diag.KindConsistency, anchor, "load from non-pointer %s", types.String(ops[0].typ))
		}
		tid, err := g.typeToSPIRV(ptr.Element, ops[0].flags)
		if err != nil {
			return nil, g.at(err, anchor)
		}
		return []value{{id: b.AddLoad(tid, ops[0].id), typ: ptr.Element, flags: ops[0].flags}}, nil

	case ir.Store:
		ops, err := g.operands(l, op, 2)
		if err != nil {
			return nil, err
		}
		if _, ok := pointerInfo(ops[1].typ); !ok {
			return nil, diag.Errorf(diag.KindConsistency, anchor, "store to non-pointer %s", types.String(ops[1].typ))
		}
		b.AddStore(ops[1].id, ops[0].id)
		return nil, nil
	}

	// GetElementPtr: pointer, 0, indices...
	if len(args) < 2 {
		return nil, diag.Errorf(diag.KindConsistency, anchor, "getelementptr takes a pointer and indices")
	}
	if first, ok := constIndex(args[1].Value); !ok || first != 0 {
		return nil, diag.Errorf(diag.KindUnsupported, anchor, "getelementptr with a nonzero first index is not supported")
	}
	base, err := g.argumentToValue(args[0].Value, anchor)
	if err != nil {
		return nil, err
	}
	ptr, ok := pointerInfo(base.typ)
	if !ok {
		return nil, diag.Errorf(diag.KindConsistency, anchor, "getelementptr on non-pointer %s", types.String(base.typ))
	}
	elem := ptr.Element
	indices := make([]uint32, 0, len(args)-2)
	for _, a := range args[2:] {
		next, isStruct, err := member(elem, a.Value)
		if err != nil {
			return nil, g.at(err, anchor)
		}
		if isStruct {
			i, _ := constIndex(a.Value)
			id, err := g.constInt(types.I32, uint64(i))
			if err != nil {
				return nil, g.at(err, anchor)
			}
			indices = append(indices, id)
		} else {
			idx, err := g.argumentToValue(a.Value, anchor)
			if err != nil {
				return nil, err
			}
			indices = append(indices, idx.id)
		}
		elem = next
	}

	class, err := g.storageClass(base.typ, ptr.StorageClass)
	if err != nil {
		return nil, g.at(err, anchor)
	}
	flags := base.flags &^ flagBlock
	elemID, err := g.typeToSPIRV(elem, flags)
	if err != nil {
		return nil, g.at(err, anchor)
	}
	result := types.Pointer(elem, ptr.Flags, ptr.StorageClass)
	id := b.AddAccessChain(b.AddTypePointer(class, elemID), base.id, indices...)
	return []value{{id: id, typ: result, flags: flags}}, nil
}

// literalIndices converts constant operands to literal indices, walking t.
func literalIndices(t types.Type, args []ir.Argument) ([]uint32, types.Type, error) {
	lits := make([]uint32, len(args))
	for i, a := range args {
		lit, ok := constIndex(a.Value)
		if !ok {
			return nil, types.NoType, unsupportedType(t, "aggregate index must be a constant")
		}
		next, _, err := member(t, a.Value)
		if err != nil {
			return nil, types.NoType, err
		}
		lits[i] = lit
		t = next
	}
	return lits, t, nil
}

func (g *Generator) writeAggregate(l *ir.Label, op ir.Builtin) ([]value, error) {
	b := g.builder
	anchor := l.Body.Anchor
	args := l.Body.Args[1:]
	lower := func(a ir.Argument) (value, error) { return g.argumentToValue(a.Value, anchor) }

	switch op {
	case ir.ExtractValue:
		if len(args) < 2 {
			return nil, diag.Errorf(diag.KindConsistency, anchor, "extractvalue takes an aggregate and indices")
		}
		agg, err := lower(args[0])
		if err != nil {
			return nil, err
		}
		lits, rt, err := literalIndices(agg.typ, args[1:])
		if err != nil {
			return nil, g.at(err, anchor)
		}
		tid, err := g.typeID(rt, anchor)
		if err != nil {
			return nil, err
		}
		return []value{{id: b.AddCompositeExtract(tid, agg.id, lits...), typ: rt}}, nil

	case ir.InsertValue:
		if len(args) < 3 {
			return nil, diag.Errorf(diag.KindConsistency, anchor, "insertvalue takes an aggregate, a value and indices")
		}
		agg, err := lower(args[0])
		if err != nil {
			return nil, err
		}
		v, err := lower(args[1])
		if err != nil {
			return nil, err
		}
		lits, _, err := literalIndices(agg.typ, args[2:])
		if err != nil {
			return nil, g.at(err, anchor)
		}
		tid, err := g.typeID(agg.typ, anchor)
		if err != nil {
			return nil, err
		}
		return []value{{id: b.AddCompositeInsert(tid, v.id, agg.id, lits...), typ: agg.typ}}, nil

	case ir.ExtractElement:
		if len(args) != 2 {
			return nil, diag.Errorf(diag.KindConsistency, anchor, "extractelement takes a vector and an index")
		}
		vec, err := lower(args[0])
		if err != nil {
			return nil, err
		}
		rt := scalarOf(vec.typ)
		tid, err := g.typeID(rt, anchor)
		if err != nil {
			return nil, err
		}
		if lit, ok := constIndex(args[1].Value); ok {
			return []value{{id: b.AddCompositeExtract(tid, vec.id, lit), typ: rt}}, nil
		}
		idx, err := lower(args[1])
		if err != nil {
			return nil, err
		}
		return []value{{id: b.EmitResult(OpVectorExtractDynamic, tid, vec.id, idx.id), typ: rt}}, nil

	case ir.InsertElement:
		if len(args) != 3 {
			return nil, diag.Errorf(diag.KindConsistency, anchor, "insertelement takes a vector, a value and an index")
		}
		vec, err := lower(args[0])
		if err != nil {
			return nil, err
		}
		v, err := lower(args[1])
		if err != nil {
			return nil, err
		}
		tid, err := g.typeID(vec.typ, anchor)
		if err != nil {
			return nil, err
		}
		if lit, ok := constIndex(args[2].Value); ok {
			return []value{{id: b.AddCompositeInsert(tid, v.id, vec.id, lit), typ: vec.typ}}, nil
		}
		idx, err := lower(args[2])
		if err != nil {
			return nil, err
		}
		return []value{{id: b.EmitResult(OpVectorInsertDynamic, tid, vec.id, v.id, idx.id), typ: vec.typ}}, nil
	}

	// ShuffleVector: a, b, constant mask
	if len(args) != 3 {
		return nil, diag.Errorf(diag.KindConsistency, anchor, "shufflevector takes two vectors and a mask")
	}
	mask, ok := args[2].Value.(ir.ConstAggregate)
	if !ok || ir.HasParameters(mask) {
		return nil, diag.Errorf(diag.KindUnsupported, anchor, "shufflevector mask must be constant")
	}
	components := make([]uint32, len(mask.Values))
	for i, m := range mask.Values {
		lit, ok := constIndex(m)
		if !ok {
			return nil, diag.Errorf(diag.KindUnsupported, anchor, "shufflevector mask must be constant")
		}
		components[i] = lit
	}
	a, err := lower(args[0])
	if err != nil {
		return nil, err
	}
	c, err := lower(args[1])
	if err != nil {
		return nil, err
	}
	n, err := safeCount(len(components))
	if err != nil {
		return nil, g.at(err, anchor)
	}
	rt, err := types.Vector(scalarOf(a.typ), n)
	if err != nil {
		return nil, g.at(err, anchor)
	}
	tid, err := g.typeID(rt, anchor)
	if err != nil {
		return nil, err
	}
	return []value{{id: b.AddVectorShuffle(tid, a.id, c.id, components), typ: rt}}, nil
}

func safeCount(n int) (uint32, error) {
	if n < 2 || n > 4 {
		return 0, diag.Errorf(diag.KindUnsupported, diag.Anchor{}, "vectors have 2 to 4 components, not %d", n)
	}
	return uint32(n), nil
}

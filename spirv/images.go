package spirv

import (
	"github.com/gogpu/spvgen/diag"
	"github.com/gogpu/spvgen/ir"
	"github.com/gogpu/spvgen/types"
)

// imageArgs holds the operands of an image builtin. Optional operands are
// keyed in the IR.
type imageArgs struct {
	positional []value

	bias, lod, gradX, gradY, offset, sample, minLod *value
	dref, gather                                    *value

	offsetConst bool
	sparse      bool
	proj        bool
}

func (g *Generator) imageArgs(l *ir.Label) (*imageArgs, error) {
	anchor := l.Body.Anchor
	out := &imageArgs{}
	for _, a := range l.Body.Args[1:] {
		if a.Key == ir.KeySparse || a.Key == ir.KeyProj {
			on := true
			if c, ok := a.Value.(ir.ConstInt); ok {
				on = c.Value != 0
			}
			if a.Key == ir.KeySparse {
				out.sparse = on
			} else {
				out.proj = on
			}
			continue
		}
		v, err := g.argumentToValue(a.Value, anchor)
		if err != nil {
			return nil, err
		}
		var slot **value
		switch a.Key {
		case "":
			out.positional = append(out.positional, v)
			continue
		case ir.KeyBias:
			slot = &out.bias
		case ir.KeyLod:
			slot = &out.lod
		case ir.KeyGradX:
			slot = &out.gradX
		case ir.KeyGradY:
			slot = &out.gradY
		case ir.KeyOffset:
			slot = &out.offset
			out.offsetConst = !ir.HasParameters(a.Value)
			if _, isGlobal := a.Value.(*ir.Global); isGlobal {
				out.offsetConst = false
			}
		case ir.KeySample:
			slot = &out.sample
		case ir.KeyMinLod:
			slot = &out.minLod
		case ir.KeyDref:
			slot = &out.dref
		case ir.KeyGather:
			slot = &out.gather
		default:
			return nil, diag.Errorf(diag.KindUnsupported, anchor, "unsupported image operand %s", a.Key)
		}
		if *slot != nil {
			return nil, diag.Errorf(diag.KindConsistency, anchor, "image operand %s given twice", a.Key)
		}
		*slot = &v
	}
	if (out.gradX == nil) != (out.gradY == nil) {
		return nil, diag.Errorf(diag.KindConsistency, anchor, "image gradients need both %s and %s", ir.KeyGradX, ir.KeyGradY)
	}
	return out, nil
}

// imageOperands returns the image operand mask followed by its ids in mask
// bit order.
func (g *Generator) imageOperands(a *imageArgs) []uint32 {
	b := g.builder
	var mask ImageOperands
	var ids []uint32
	if a.bias != nil {
		mask |= ImageOperandsBias
		ids = append(ids, a.bias.id)
	}
	if a.lod != nil {
		mask |= ImageOperandsLod
		ids = append(ids, a.lod.id)
	}
	if a.gradX != nil {
		mask |= ImageOperandsGrad
		ids = append(ids, a.gradX.id, a.gradY.id)
	}
	if a.offset != nil {
		if a.offsetConst {
			mask |= ImageOperandsConstOffset
		} else {
			mask |= ImageOperandsOffset
			b.AddCapability(CapabilityImageGatherExtended)
		}
		ids = append(ids, a.offset.id)
	}
	if a.sample != nil {
		mask |= ImageOperandsSample
		ids = append(ids, a.sample.id)
	}
	if a.minLod != nil {
		mask |= ImageOperandsMinLod
		ids = append(ids, a.minLod.id)
		b.AddCapability(CapabilityMinLod)
	}
	if mask == 0 {
		return nil
	}
	return append([]uint32{uint32(mask)}, ids...)
}

// imageOf returns the image type behind an image or sampled image.
func imageOf(t types.Type) (types.ImageType, bool, bool) {
	switch k := kindOf(t).(type) {
	case types.ImageType:
		return k, false, true
	case types.SampledImageType:
		img, ok := kindOf(k.Image).(types.ImageType)
		return img, true, ok
	}
	return types.ImageType{}, false, false
}

// plainImage extracts the image from a sampled image operand.
func (g *Generator) plainImage(v value, anchor diag.Anchor) (value, error) {
	k, ok := kindOf(v.typ).(types.SampledImageType)
	if !ok {
		return v, nil
	}
	tid, err := g.typeID(k.Image, anchor)
	if err != nil {
		return value{}, err
	}
	return value{id: g.builder.EmitResult(OpImage, tid, v.id), typ: k.Image}, nil
}

var sampleOps = [2][2][2]OpCode{
	// [proj][dref][explicit]
	{{OpImageSampleImplicitLod, OpImageSampleExplicitLod}, {OpImageSampleDrefImplicitLod, OpImageSampleDrefExplicitLod}},
	{{OpImageSampleProjImplicitLod, OpImageSampleProjExplicitLod}, {OpImageSampleProjDrefImplicitLod, OpImageSampleProjDrefExplicitLod}},
}

var sparseOps = map[OpCode]OpCode{
	OpImageSampleImplicitLod:         OpImageSparseSampleImplicitLod,
	OpImageSampleExplicitLod:         OpImageSparseSampleExplicitLod,
	OpImageSampleDrefImplicitLod:     OpImageSparseSampleDrefImplicitLod,
	OpImageSampleDrefExplicitLod:     OpImageSparseSampleDrefExplicitLod,
	OpImageSampleProjImplicitLod:     OpImageSparseSampleProjImplicitLod,
	OpImageSampleProjExplicitLod:     OpImageSparseSampleProjExplicitLod,
	OpImageSampleProjDrefImplicitLod: OpImageSparseSampleProjDrefImplicitLod,
	OpImageSampleProjDrefExplicitLod: OpImageSparseSampleProjDrefExplicitLod,
	OpImageFetch:                     OpImageSparseFetch,
	OpImageGather:                    OpImageSparseGather,
	OpImageDrefGather:                OpImageSparseDrefGather,
	OpImageRead:                      OpImageSparseRead,
}

// imageCoords is the number of coordinates per image dimension, excluding
// the array layer.
var imageCoords = map[string]uint32{
	"1D": 1, "2D": 2, "3D": 3, "Cube": 2, "Rect": 2, "Buffer": 1, "SubpassData": 2,
}

func b2i(v bool) int {
	if v {
		return 1
	}
	return 0
}

func vec4Of(t types.Type) (types.Type, error) {
	return types.Vector(t, 4)
}

// emitTexel emits an image instruction returning rt. Sparse variants return
// the residency code and the texel.
func (g *Generator) emitTexel(opc OpCode, rt types.Type, sparse bool, anchor diag.Anchor, operands ...uint32) ([]value, error) {
	b := g.builder
	if !sparse {
		return g.emit(opc, rt, anchor, operands...)
	}
	sparseOp, ok := sparseOps[opc]
	if !ok {
		return nil, diag.Errorf(diag.KindUnsupported, anchor, "%s has no sparse form", opc)
	}
	b.AddCapability(CapabilitySparseResidency)
	st, err := types.Tuple(types.I32, rt)
	if err != nil {
		return nil, g.at(err, anchor)
	}
	sid, err := g.typeID(st, anchor)
	if err != nil {
		return nil, err
	}
	codeID, err := g.typeID(types.I32, anchor)
	if err != nil {
		return nil, err
	}
	texelID, err := g.typeID(rt, anchor)
	if err != nil {
		return nil, err
	}
	res := b.EmitResult(sparseOp, sid, operands...)
	return []value{
		{id: b.AddCompositeExtract(codeID, res, 0), typ: types.I32},
		{id: b.AddCompositeExtract(texelID, res, 1), typ: rt},
	}, nil
}

func (g *Generator) writeImage(l *ir.Label, op ir.Builtin) ([]value, error) {
	b := g.builder
	anchor := l.Body.Anchor
	a, err := g.imageArgs(l)
	if err != nil {
		return nil, err
	}
	need := map[ir.Builtin]int{
		ir.Sample: 2, ir.ImageRead: 2, ir.ImageWrite: 3, ir.ImageQuerySize: 1,
		ir.ImageQueryLod: 2, ir.ImageQueryLevels: 1, ir.ImageQuerySamples: 1,
	}[op]
	if len(a.positional) != need {
		return nil, diag.Errorf(diag.KindConsistency, anchor,
			"%s takes %d positional operands but %d were passed", op, need, len(a.positional))
	}
	img, sampled, ok := imageOf(a.positional[0].typ)
	if !ok {
		return nil, diag.Errorf(diag.KindConsistency, anchor,
			"%s needs an image operand, got %s", op, types.String(a.positional[0].typ))
	}

	switch op {
	case ir.Sample:
		if !sampled {
			return nil, diag.Errorf(diag.KindConsistency, anchor, "sampling needs a sampled image")
		}
		si, coords := a.positional[0], a.positional[1]
		texel, err := vec4Of(img.Sampled)
		if err != nil {
			return nil, g.at(err, anchor)
		}
		operands := []uint32{si.id, coords.id}
		var opc OpCode
		switch {
		case a.gather != nil && a.dref != nil:
			opc = OpImageDrefGather
			operands = append(operands, a.dref.id)
		case a.gather != nil:
			opc = OpImageGather
			operands = append(operands, a.gather.id)
		default:
			explicit := a.lod != nil || a.gradX != nil
			opc = sampleOps[b2i(a.proj)][b2i(a.dref != nil)][b2i(explicit)]
			if a.dref != nil {
				operands = append(operands, a.dref.id)
				texel = img.Sampled
			}
		}
		operands = append(operands, g.imageOperands(a)...)
		return g.emitTexel(opc, texel, a.sparse, anchor, operands...)

	case ir.ImageRead:
		image, err := g.plainImage(a.positional[0], anchor)
		if err != nil {
			return nil, err
		}
		texel, err := vec4Of(img.Sampled)
		if err != nil {
			return nil, g.at(err, anchor)
		}
		opc := OpImageRead
		if img.SampledMode == 1 {
			opc = OpImageFetch
		}
		operands := append([]uint32{image.id, a.positional[1].id}, g.imageOperands(a)...)
		return g.emitTexel(opc, texel, a.sparse, anchor, operands...)

	case ir.ImageWrite:
		image, err := g.plainImage(a.positional[0], anchor)
		if err != nil {
			return nil, err
		}
		operands := []uint32{image.id, a.positional[1].id, a.positional[2].id}
		b.Emit(OpImageWrite, append(operands, g.imageOperands(a)...)...)
		return nil, nil

	case ir.ImageQuerySize:
		b.AddCapability(CapabilityImageQuery)
		image, err := g.plainImage(a.positional[0], anchor)
		if err != nil {
			return nil, err
		}
		n := imageCoords[img.Dim] + uint32(b2i(img.Arrayed != 0))
		rt := types.I32
		if n > 1 {
			if rt, err = types.Vector(types.I32, n); err != nil {
				return nil, g.at(err, anchor)
			}
		}
		withLod := a.lod != nil ||
			(img.SampledMode == 1 && img.Multisampled == 0 && img.Dim != "Rect" && img.Dim != "Buffer")
		if !withLod {
			return g.emit(OpImageQuerySize, rt, anchor, image.id)
		}
		lod := a.lod
		if lod == nil {
			zero, err := g.constInt(types.I32, 0)
			if err != nil {
				return nil, g.at(err, anchor)
			}
			lod = &value{id: zero, typ: types.I32}
		}
		return g.emit(OpImageQuerySizeLod, rt, anchor, image.id, lod.id)

	case ir.ImageQueryLod:
		b.AddCapability(CapabilityImageQuery)
		if !sampled {
			return nil, diag.Errorf(diag.KindConsistency, anchor, "level-of-detail queries need a sampled image")
		}
		rt, err := types.Vector(types.F32, 2)
		if err != nil {
			return nil, g.at(err, anchor)
		}
		return g.emit(OpImageQueryLod, rt, anchor, a.positional[0].id, a.positional[1].id)

	case ir.ImageQueryLevels, ir.ImageQuerySamples:
		b.AddCapability(CapabilityImageQuery)
		image, err := g.plainImage(a.positional[0], anchor)
		if err != nil {
			return nil, err
		}
		opc := OpImageQueryLevels
		if op == ir.ImageQuerySamples {
			opc = OpImageQuerySamples
		}
		return g.emit(opc, types.I32, anchor, image.id)
	}
	return nil, diag.Errorf(diag.KindUnsupported, anchor, "unsupported builtin %s", op)
}

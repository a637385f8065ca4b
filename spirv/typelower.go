package spirv

import (
	"fortio.org/safecast"

	"github.com/gogpu/spvgen/diag"
	"github.com/gogpu/spvgen/types"
)

var storageClasses = map[types.StorageClass]StorageClass{
	types.ClassFunction:        StorageClassFunction,
	types.ClassPrivate:         StorageClassPrivate,
	types.ClassWorkgroup:       StorageClassWorkgroup,
	types.ClassUniform:         StorageClassUniform,
	types.ClassUniformConstant: StorageClassUniformConstant,
	types.ClassStorageBuffer:   StorageClassStorageBuffer,
	types.ClassPushConstant:    StorageClassPushConstant,
	types.ClassInput:           StorageClassInput,
	types.ClassOutput:          StorageClassOutput,
	types.ClassImage:           StorageClassImage,
}

var imageDims = map[string]Dim{
	"1D":          Dim1D,
	"2D":          Dim2D,
	"3D":          Dim3D,
	"Cube":        DimCube,
	"Rect":        DimRect,
	"Buffer":      DimBuffer,
	"SubpassData": DimSubpassData,
}

var imageFormats = map[string]ImageFormat{
	"":             0,
	"Unknown":      0,
	"Rgba32f":      1,
	"Rgba16f":      2,
	"R32f":         3,
	"Rgba8":        4,
	"Rgba8Snorm":   5,
	"Rg32f":        6,
	"Rg16f":        7,
	"R11fG11fB10f": 8,
	"R16f":         9,
	"Rgba16":       10,
	"Rgb10A2":      11,
	"Rg16":         12,
	"Rg8":          13,
	"R16":          14,
	"R8":           15,
	"Rgba16Snorm":  16,
	"Rg16Snorm":    17,
	"Rg8Snorm":     18,
	"R16Snorm":     19,
	"R8Snorm":      20,
	"Rgba32i":      21,
	"Rgba16i":      22,
	"Rgba8i":       23,
	"R32i":         24,
	"Rg32i":        25,
	"Rg16i":        26,
	"Rg8i":         27,
	"R16i":         28,
	"R8i":          29,
	"Rgba32ui":     30,
	"Rgba16ui":     31,
	"Rgba8ui":      32,
	"R32ui":        33,
	"Rgb10a2ui":    34,
	"Rg32ui":       35,
	"Rg16ui":       36,
	"Rg8ui":        37,
	"R16ui":        38,
	"R8ui":         39,
}

func unsupportedType(t types.Type, format string, args ...any) error {
	return diag.Errorf(diag.KindUnsupported, diag.Anchor{}, "type %s: "+format, append([]any{types.String(t)}, args...)...)
}

func isBlockClass(c StorageClass) bool {
	return c == StorageClassUniform || c == StorageClassStorageBuffer || c == StorageClassPushConstant
}

func (g *Generator) storageClass(t types.Type, class types.StorageClass) (StorageClass, error) {
	if class == types.ClassGeneric {
		return 0, unsupportedType(t, "pointer has no storage class")
	}
	sc, ok := storageClasses[class]
	if !ok {
		return 0, unsupportedType(t, "unknown storage class %s", class)
	}
	return sc, nil
}

// typeToSPIRV returns the id of t lowered with the given layout flags.
func (g *Generator) typeToSPIRV(t types.Type, flags typeFlags) (uint32, error) {
	if !types.Valid(t) {
		return 0, diag.Errorf(diag.KindConsistency, diag.Anchor{}, "value has no type")
	}
	switch types.Info(t).(type) {
	case types.ArrayType:
		// Arrays are never blocks themselves.
		flags &= flagLayout
	case types.TupleType, types.UnionType, types.TypenameType,
		types.ArgumentsType, types.QualifyType:
	default:
		flags = 0
	}
	key := typeKey{t, flags}
	if id, ok := g.typeIDs[key]; ok {
		return id, nil
	}
	id, err := g.lowerType(t, flags)
	if err != nil {
		return 0, err
	}
	g.typeIDs[key] = id
	return id, nil
}

func (g *Generator) lowerType(t types.Type, flags typeFlags) (uint32, error) {
	b := g.builder
	switch k := types.Info(t).(type) {
	case types.IntegerType:
		switch k.Width {
		case 1:
			return b.AddTypeBool(), nil
		case 8:
			b.AddCapability(CapabilityInt8)
		case 16:
			b.AddCapability(CapabilityInt16)
		case 32:
		case 64:
			b.AddCapability(CapabilityInt64)
		default:
			return 0, unsupportedType(t, "integer width %d", k.Width)
		}
		return b.AddTypeInt(k.Width, k.Signed), nil

	case types.RealType:
		switch k.Width {
		case 16:
			b.AddCapability(CapabilityFloat16)
		case 32:
		case 64:
			b.AddCapability(CapabilityFloat64)
		default:
			return 0, unsupportedType(t, "float width %d", k.Width)
		}
		return b.AddTypeFloat(k.Width), nil

	case types.VectorType:
		elem, err := g.typeToSPIRV(k.Element, 0)
		if err != nil {
			return 0, err
		}
		return b.AddTypeVector(elem, k.Count), nil

	case types.MatrixType:
		col, err := g.typeToSPIRV(k.Column, 0)
		if err != nil {
			return 0, err
		}
		return b.AddTypeMatrix(col, k.Count), nil

	case types.ArrayType:
		elem, err := g.typeToSPIRV(k.Element, flags&flagLayout)
		if err != nil {
			return 0, err
		}
		var length uint32
		if !k.Unsized {
			count, err := safecast.Conv[uint32](k.Count)
			if err != nil {
				return 0, unsupportedType(t, "array too long")
			}
			length = b.AddConstant(b.AddTypeInt(32, false), count)
		}
		if flags&flagLayout == 0 {
			if k.Unsized {
				return b.AddTypeRuntimeArray(elem), nil
			}
			return b.AddTypeArray(elem, length), nil
		}
		stride, err := types.StrideOf(t)
		if err != nil {
			return 0, err
		}
		s, err := safecast.Conv[uint32](stride)
		if err != nil {
			return 0, unsupportedType(t, "array stride too large")
		}
		return b.AddStridedArray(elem, length, s), nil

	case types.TupleType:
		return g.lowerStruct(t, t, k.Values, nil, "", flags)

	case types.UnionType:
		form, err := types.UnionTupleForm(t)
		if err != nil {
			return 0, err
		}
		return g.typeToSPIRV(form, flags)

	case types.TypenameType:
		if k.Opaque || !k.Complete {
			return 0, unsupportedType(t, "opaque type cannot be used at runtime")
		}
		if tuple, ok := types.Info(k.Storage).(types.TupleType); ok {
			return g.lowerStruct(t, k.Storage, tuple.Values, k.FieldNames, k.Name, flags)
		}
		return g.typeToSPIRV(k.Storage, flags)

	case types.PointerType:
		class, err := g.storageClass(t, k.StorageClass)
		if err != nil {
			return 0, err
		}
		var elemFlags typeFlags
		if isBlockClass(class) {
			elemFlags = flagLayout
		}
		elem, err := g.typeToSPIRV(k.Element, elemFlags)
		if err != nil {
			return 0, err
		}
		return b.AddTypePointer(class, elem), nil

	case types.FunctionType:
		if k.Variadic() {
			return 0, unsupportedType(t, "variadic function")
		}
		ret, err := g.typeToSPIRV(k.Return, 0)
		if err != nil {
			return 0, err
		}
		params := make([]uint32, len(k.Params))
		for i, p := range k.Params {
			if params[i], err = g.typeToSPIRV(p, 0); err != nil {
				return 0, err
			}
		}
		return b.AddTypeFunction(ret, params...), nil

	case types.ArgumentsType:
		switch len(k.Values) {
		case 0:
			return b.AddTypeVoid(), nil
		case 1:
			return g.typeToSPIRV(k.Values[0], flags)
		}
		tuple, err := types.Tuple(k.Values...)
		if err != nil {
			return 0, err
		}
		return g.typeToSPIRV(tuple, flags)

	case types.ImageType:
		return g.lowerImage(t, k)

	case types.SampledImageType:
		image, err := g.typeToSPIRV(k.Image, 0)
		if err != nil {
			return 0, err
		}
		return b.AddTypeSampledImage(image), nil

	case types.SamplerType:
		return b.AddTypeSampler(), nil

	case types.QualifyType:
		if q, ok := types.FindQualifier(t, types.QualifierRefer); ok {
			ref := q.(types.Refer)
			class := ref.Class
			if class == types.ClassGeneric {
				class = types.ClassFunction
			}
			return g.typeToSPIRV(types.Pointer(k.Base, ref.Flags, class), flags)
		}
		return g.typeToSPIRV(types.Unqualified(t), flags)

	case types.ReturnLabelType:
		return 0, unsupportedType(t, "return labels are not first-class values")
	case types.RaisesType:
		return 0, unsupportedType(t, "raising functions are not supported")
	}
	return 0, unsupportedType(t, "no SPIR-V equivalent")
}

// lowerStruct emits a struct for the fields of tuple. Block and explicit
// layout decorations follow flags; names are emitted in debug mode.
func (g *Generator) lowerStruct(t, tuple types.Type, fields []types.Type, names []string, name string, flags typeFlags) (uint32, error) {
	b := g.builder
	members := make([]uint32, len(fields))
	for i, f := range fields {
		id, err := g.typeToSPIRV(f, flags&flagLayout)
		if err != nil {
			return 0, err
		}
		members[i] = id
	}
	id := b.AddTypeStruct(members...)

	if flags&flagBlock != 0 {
		b.AddDecorate(id, DecorationBlock)
	}
	if flags&flagLayout != 0 {
		offsets, err := types.Offsets(tuple)
		if err != nil {
			return 0, err
		}
		for i, off := range offsets {
			member := uint32(i)
			o, err := safecast.Conv[uint32](off)
			if err != nil {
				return 0, unsupportedType(t, "member offset too large")
			}
			b.AddMemberDecorate(id, member, DecorationOffset, o)
			if err := g.decorateMatrix(id, member, fields[i]); err != nil {
				return 0, err
			}
		}
	}

	if g.opts.Debug {
		if name != "" {
			b.AddName(id, name)
		}
		for i, n := range names {
			if n != "" && i < len(fields) {
				b.AddMemberName(id, uint32(i), n)
			}
		}
	}
	return id, nil
}

// decorateMatrix adds the column-major stride to a matrix member, looking
// through arrays of matrices.
func (g *Generator) decorateMatrix(structID, member uint32, field types.Type) error {
	st, err := types.StorageType(field)
	if err != nil {
		return nil
	}
	for {
		arr, ok := types.Info(st).(types.ArrayType)
		if !ok {
			break
		}
		if st, err = types.StorageType(arr.Element); err != nil {
			return nil
		}
	}
	if _, ok := types.Info(st).(types.MatrixType); !ok {
		return nil
	}
	stride, err := types.StrideOf(st)
	if err != nil {
		return err
	}
	s, err := safecast.Conv[uint32](stride)
	if err != nil {
		return unsupportedType(field, "matrix stride too large")
	}
	g.builder.AddMemberDecorate(structID, member, DecorationColMajor)
	g.builder.AddMemberDecorate(structID, member, DecorationMatrixStride, s)
	return nil
}

func (g *Generator) lowerImage(t types.Type, k types.ImageType) (uint32, error) {
	b := g.builder
	dim, ok := imageDims[k.Dim]
	if !ok {
		return 0, unsupportedType(t, "unknown image dimension %q", k.Dim)
	}
	format, ok := imageFormats[k.Format]
	if !ok {
		return 0, unsupportedType(t, "unknown image format %q", k.Format)
	}
	sampled, err := g.typeToSPIRV(k.Sampled, 0)
	if err != nil {
		return 0, err
	}
	desc := ImageTypeDesc{
		SampledType: sampled,
		Dim:         dim,
		Format:      format,
	}
	for _, f := range []struct {
		v   int
		dst *uint32
	}{
		{k.Depth, &desc.Depth},
		{k.Arrayed, &desc.Arrayed},
		{k.Multisampled, &desc.Multisampled},
		{k.SampledMode, &desc.Sampled},
	} {
		v, err := safecast.Conv[uint32](f.v)
		if err != nil {
			return 0, unsupportedType(t, "invalid image operand %d", f.v)
		}
		*f.dst = v
	}

	switch {
	case dim == Dim1D && desc.Sampled == 1:
		b.AddCapability(CapabilitySampled1D)
	case dim == Dim1D:
		b.AddCapability(CapabilityImage1D)
	case dim == DimBuffer && desc.Sampled == 1:
		b.AddCapability(CapabilitySampledBuffer)
	case dim == DimBuffer:
		b.AddCapability(CapabilityImageBuffer)
	}
	if desc.Sampled == 2 && format == 0 {
		b.AddCapability(CapabilityStorageImageReadWithoutFormat)
		b.AddCapability(CapabilityStorageImageWriteWithoutFormat)
	}
	return b.AddTypeImage(desc), nil
}

// pointerInfo resolves a pointer or reference type.
func pointerInfo(t types.Type) (types.PointerType, bool) {
	if q, ok := types.FindQualifier(t, types.QualifierRefer); ok {
		ref := q.(types.Refer)
		class := ref.Class
		if class == types.ClassGeneric {
			class = types.ClassFunction
		}
		return types.PointerType{Element: types.Unqualified(t), Flags: ref.Flags, StorageClass: class}, true
	}
	st, err := types.StorageType(t)
	if err != nil {
		return types.PointerType{}, false
	}
	p, ok := types.Info(st).(types.PointerType)
	return p, ok
}

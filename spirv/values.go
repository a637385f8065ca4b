package spirv

import (
	"fmt"
	"strings"

	"fortio.org/safecast"

	"github.com/gogpu/spvgen/diag"
	"github.com/gogpu/spvgen/ir"
	"github.com/gogpu/spvgen/types"
)

var builtinNames = map[string]BuiltIn{
	"Position":             BuiltInPosition,
	"PointSize":            BuiltInPointSize,
	"ClipDistance":         BuiltInClipDistance,
	"CullDistance":         BuiltInCullDistance,
	"PrimitiveId":          BuiltInPrimitiveID,
	"InvocationId":         BuiltInInvocationID,
	"Layer":                BuiltInLayer,
	"ViewportIndex":        BuiltInViewportIndex,
	"FragCoord":            BuiltInFragCoord,
	"PointCoord":           BuiltInPointCoord,
	"FrontFacing":          BuiltInFrontFacing,
	"SampleId":             BuiltInSampleID,
	"SamplePosition":       BuiltInSamplePosition,
	"SampleMask":           BuiltInSampleMask,
	"FragDepth":            BuiltInFragDepth,
	"HelperInvocation":     BuiltInHelperInvocation,
	"NumWorkgroups":        BuiltInNumWorkgroups,
	"WorkgroupSize":        BuiltInWorkgroupSize,
	"WorkgroupId":          BuiltInWorkgroupID,
	"LocalInvocationId":    BuiltInLocalInvocationID,
	"GlobalInvocationId":   BuiltInGlobalInvocationID,
	"LocalInvocationIndex": BuiltInLocalInvocationIndex,
	"VertexIndex":          BuiltInVertexIndex,
	"InstanceIndex":        BuiltInInstanceIndex,
}

// argumentToValue lowers an operand to an id.
func (g *Generator) argumentToValue(v ir.Value, anchor diag.Anchor) (value, error) {
	switch v := v.(type) {
	case *ir.Parameter:
		if bound, ok := g.params[paramKey{g.fn, v}]; ok {
			return bound, nil
		}
		return value{}, diag.Errorf(diag.KindConsistency, anchor, "free variable access: %s", v.Name).
			WithNote(v.Anchor, "declared here")
	case ir.ConstInt:
		id, err := g.constInt(v.Type, v.Value)
		if err != nil {
			return value{}, g.at(err, anchor)
		}
		return value{id: id, typ: v.Type}, nil
	case ir.ConstReal:
		id, err := g.constReal(v.Type, v.Value)
		if err != nil {
			return value{}, g.at(err, anchor)
		}
		return value{id: id, typ: v.Type}, nil
	case ir.ConstNull:
		tid, err := g.typeToSPIRV(v.Type, 0)
		if err != nil {
			return value{}, g.at(err, anchor)
		}
		return value{id: g.builder.AddConstantNull(tid), typ: v.Type}, nil
	case ir.ConstAggregate:
		return g.aggregate(v, anchor)
	case *ir.Global:
		return g.globalValue(v)
	case *ir.Label:
		return value{}, diag.Errorf(diag.KindUnsupported, anchor, "label %s cannot be used as a value", v.Name)
	case *ir.Closure:
		return value{}, diag.Errorf(diag.KindUnsupported, anchor, "closure of %s cannot be used at runtime", v.Label.Name)
	case ir.TypeValue:
		return value{}, diag.Errorf(diag.KindConsistency, anchor, "type %s used as a value", types.String(v.Type))
	case ir.Builtin:
		return value{}, diag.Errorf(diag.KindUnsupported, anchor, "builtin %s cannot be used as a value", v)
	}
	return value{}, diag.Errorf(diag.KindUnsupported, anchor, "cannot lower value %T", v)
}

// constInt emits an integer or boolean constant of type t.
func (g *Generator) constInt(t types.Type, bits uint64) (uint32, error) {
	st, err := types.StorageType(t)
	if err != nil {
		return 0, err
	}
	it, ok := types.Info(st).(types.IntegerType)
	if !ok {
		return 0, unsupportedType(t, "not an integer constant type")
	}
	tid, err := g.typeToSPIRV(t, 0)
	if err != nil {
		return 0, err
	}
	b := g.builder
	switch {
	case it.Width == 1:
		return b.AddConstantBool(tid, bits&1 != 0), nil
	case it.Width < 32:
		mask := uint64(1)<<it.Width - 1
		bits &= mask
		if it.Signed && bits&(uint64(1)<<(it.Width-1)) != 0 {
			bits |= ^mask
		}
		return b.AddConstant(tid, uint32(bits)), nil
	case it.Width == 32:
		return b.AddConstant(tid, uint32(bits)), nil
	case it.Width == 64:
		return b.AddConstant(tid, uint32(bits), uint32(bits>>32)), nil
	}
	return 0, unsupportedType(t, "integer width %d", it.Width)
}

func (g *Generator) constReal(t types.Type, v float64) (uint32, error) {
	st, err := types.StorageType(t)
	if err != nil {
		return 0, err
	}
	rt, ok := types.Info(st).(types.RealType)
	if !ok {
		return 0, unsupportedType(t, "not a float constant type")
	}
	tid, err := g.typeToSPIRV(t, 0)
	if err != nil {
		return 0, err
	}
	switch rt.Width {
	case 32:
		return g.builder.AddConstantFloat32(tid, float32(v)), nil
	case 64:
		return g.builder.AddConstantFloat64(tid, v), nil
	}
	return 0, unsupportedType(t, "float constants of width %d are not supported", rt.Width)
}

// splat returns a constant of type t with every scalar set to bits. t is an
// integer or float scalar or vector.
func (g *Generator) splat(t types.Type, bits int64) (uint32, error) {
	st, err := types.StorageType(t)
	if err != nil {
		return 0, err
	}
	switch k := types.Info(st).(type) {
	case types.IntegerType:
		return g.constInt(t, uint64(bits))
	case types.RealType:
		return g.constReal(t, float64(bits))
	case types.VectorType:
		elem, err := g.splat(k.Element, bits)
		if err != nil {
			return 0, err
		}
		tid, err := g.typeToSPIRV(t, 0)
		if err != nil {
			return 0, err
		}
		parts := make([]uint32, k.Count)
		for i := range parts {
			parts[i] = elem
		}
		return g.builder.AddConstantComposite(tid, parts...), nil
	}
	return 0, unsupportedType(t, "no scalar constant of this type")
}

// aggregate lowers a composite. Aggregates with runtime elements are built
// in the current block; fully constant ones are shared.
func (g *Generator) aggregate(v ir.ConstAggregate, anchor diag.Anchor) (value, error) {
	tid, err := g.typeToSPIRV(v.Type, 0)
	if err != nil {
		return value{}, g.at(err, anchor)
	}
	parts := make([]uint32, len(v.Values))
	for i, e := range v.Values {
		ev, err := g.argumentToValue(e, anchor)
		if err != nil {
			return value{}, err
		}
		parts[i] = ev.id
	}
	if ir.HasParameters(v) {
		return value{id: g.builder.AddCompositeConstruct(tid, parts...), typ: v.Type}, nil
	}

	var key strings.Builder
	fmt.Fprintf(&key, "agg:%d", tid)
	for _, p := range parts {
		fmt.Fprintf(&key, ":%d", p)
	}
	if id, ok := g.constIDs[key.String()]; ok {
		return value{id: id, typ: v.Type}, nil
	}
	id := g.builder.AddConstantComposite(tid, parts...)
	g.constIDs[key.String()] = id
	return value{id: id, typ: v.Type}, nil
}

// globalValue returns the variable for gl, declaring it on first use.
func (g *Generator) globalValue(gl *ir.Global) (value, error) {
	if v, ok := g.globals[gl]; ok {
		return v, nil
	}
	ptr, ok := types.Info(gl.Type).(types.PointerType)
	if !ok {
		return value{}, diag.Errorf(diag.KindUnsupported, gl.Anchor,
			"global %s must have pointer type but has type %s", gl.Name, types.String(gl.Type))
	}
	class, err := g.storageClass(gl.Type, ptr.StorageClass)
	if err != nil {
		return value{}, g.at(err, gl.Anchor)
	}
	var flags typeFlags
	if isBlockClass(class) {
		flags = flagBlock | flagLayout
	}
	elem, err := g.typeToSPIRV(ptr.Element, flags)
	if err != nil {
		return value{}, g.at(err, gl.Anchor)
	}

	b := g.builder
	id := b.AddVariable(b.AddTypePointer(class, elem), class)
	if g.opts.Debug && gl.Name != "" {
		b.AddName(id, gl.Name)
	}
	for _, d := range []struct {
		v   int
		dec Decoration
	}{
		{gl.Location, DecorationLocation},
		{gl.Binding, DecorationBinding},
		{gl.Set, DecorationDescriptorSet},
	} {
		if d.v < 0 {
			continue
		}
		n, err := safecast.Conv[uint32](d.v)
		if err != nil {
			return value{}, diag.Errorf(diag.KindUnsupported, gl.Anchor, "decoration value %d out of range", d.v)
		}
		b.AddDecorate(id, d.dec, n)
	}
	if gl.Builtin != "" {
		bi, ok := builtinNames[gl.Builtin]
		if !ok {
			return value{}, diag.Errorf(diag.KindUnsupported, gl.Anchor, "unknown builtin %s", gl.Builtin)
		}
		b.AddDecorate(id, DecorationBuiltIn, uint32(bi))
	}
	switch class {
	case StorageClassStorageBuffer, StorageClassUniform, StorageClassUniformConstant, StorageClassImage:
		if ptr.Flags&types.PointerNonWritable != 0 {
			b.AddDecorate(id, DecorationNonWritable)
		}
		if ptr.Flags&types.PointerNonReadable != 0 {
			b.AddDecorate(id, DecorationNonReadable)
		}
	case StorageClassInput, StorageClassOutput:
		g.interfaces = append(g.interfaces, id)
	}

	v := value{id: id, typ: gl.Type, flags: flags}
	g.globals[gl] = v
	return v, nil
}

package spirv

import (
	"strings"
	"testing"

	"github.com/gogpu/spvgen/ir"
	"github.com/gogpu/spvgen/types"
)

func texture2D(mode int) types.Type {
	return types.Must(types.Image(types.ImageType{Sampled: types.F32, Dim: "2D", SampledMode: mode}))
}

func coords2D() ir.ConstAggregate {
	return ir.ConstAggregate{
		Type:   types.Must(types.Vector(types.F32, 2)),
		Values: []ir.Value{ir.Float(0.5), ir.Float(0.5)},
	}
}

// sampleShader loads a combined image sampler and calls op on it with the
// extra arguments. The continuation takes results.
func sampleShader(op ir.Builtin, extra []ir.Argument, results ...types.Type) *ir.Label {
	si := types.Must(types.SampledImage(texture2D(1)))
	tex := ir.NewGlobal("tex", types.Pointer(si, 0, types.ClassUniformConstant))
	tex.Binding = 0
	tex.Set = 0

	fn := ir.NewFunction("main")
	loaded := block("loaded", 2)
	done := block("done", 3)
	s := loaded.AddParam("s", si)
	for _, r := range results {
		done.AddParam("r", r)
	}

	fn.SetBody(ir.Load, loaded, tex)
	args := []ir.Argument{ir.Arg(done), ir.Arg(s)}
	if op == ir.Sample || op == ir.ImageQueryLod {
		args = append(args, ir.Arg(coords2D()))
	}
	loaded.SetBodyArgs(op, append(args, extra...)...)
	done.Return(fn)
	return fn
}

func TestImage_SampleOpcodes(t *testing.T) {
	vec4 := types.Must(types.Vector(types.F32, 4))
	tests := []struct {
		name    string
		extra   []ir.Argument
		results []types.Type
		want    OpCode
	}{
		{"implicit", nil, []types.Type{vec4}, OpImageSampleImplicitLod},
		{"lod", []ir.Argument{ir.Keyed(ir.KeyLod, ir.Float(0))}, []types.Type{vec4}, OpImageSampleExplicitLod},
		{"bias", []ir.Argument{ir.Keyed(ir.KeyBias, ir.Float(1))}, []types.Type{vec4}, OpImageSampleImplicitLod},
		{"grad", []ir.Argument{
			ir.Keyed(ir.KeyGradX, coords2D()), ir.Keyed(ir.KeyGradY, coords2D()),
		}, []types.Type{vec4}, OpImageSampleExplicitLod},
		{"dref", []ir.Argument{ir.Keyed(ir.KeyDref, ir.Float(0.5))}, []types.Type{types.F32}, OpImageSampleDrefImplicitLod},
		{"proj", []ir.Argument{ir.Keyed(ir.KeyProj, ir.Bool(true))}, []types.Type{vec4}, OpImageSampleProjImplicitLod},
		{"gather", []ir.Argument{ir.Keyed(ir.KeyGather, ir.Int(1))}, []types.Type{vec4}, OpImageGather},
		{"dref gather", []ir.Argument{
			ir.Keyed(ir.KeyGather, ir.Int(0)), ir.Keyed(ir.KeyDref, ir.Float(0.5)),
		}, []types.Type{vec4}, OpImageDrefGather},
		{"sparse", []ir.Argument{ir.Keyed(ir.KeySparse, ir.Bool(true))}, []types.Type{types.I32, vec4}, OpImageSparseSampleImplicitLod},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := generate(t, TargetFragment, sampleShader(ir.Sample, tt.extra, tt.results...))
			if n := m.Count(tt.want); n != 1 {
				t.Errorf("got %d %s", n, tt.want)
			}
		})
	}
}

func TestImage_OperandMask(t *testing.T) {
	vec4 := types.Must(types.Vector(types.F32, 4))
	offset := ir.ConstAggregate{Type: types.Must(types.Vector(types.I32, 2)), Values: []ir.Value{ir.Int(1), ir.Int(-1)}}
	extra := []ir.Argument{
		ir.Keyed(ir.KeyOffset, offset),
		ir.Keyed(ir.KeyLod, ir.Float(2)),
	}
	m := generate(t, TargetFragment, sampleShader(ir.Sample, extra, vec4))
	insts := m.Find(OpImageSampleExplicitLod)
	if len(insts) != 1 {
		t.Fatalf("got %d explicit samples", len(insts))
	}
	// result type, result, sampled image, coords, mask, lod, offset
	words := insts[0].Words
	if len(words) != 7 {
		t.Fatalf("got %d operands, want 7", len(words))
	}
	want := ImageOperandsLod | ImageOperandsConstOffset
	if got := ImageOperands(words[4]); got != want {
		t.Errorf("mask = %#x, want %#x", got, want)
	}
}

func TestImage_Capabilities(t *testing.T) {
	vec4 := types.Must(types.Vector(types.F32, 4))
	hasCap := func(m *Module, c Capability) bool {
		for _, inst := range m.Find(OpCapability) {
			if Capability(inst.Words[0]) == c {
				return true
			}
		}
		return false
	}

	m := generate(t, TargetFragment, sampleShader(ir.Sample, []ir.Argument{ir.Keyed(ir.KeyMinLod, ir.Float(1))}, vec4))
	if !hasCap(m, CapabilityMinLod) {
		t.Error("MinLod capability missing")
	}

	m = generate(t, TargetFragment, sampleShader(ir.Sample, []ir.Argument{ir.Keyed(ir.KeySparse, ir.Bool(true))}, types.I32, vec4))
	if !hasCap(m, CapabilitySparseResidency) {
		t.Error("SparseResidency capability missing")
	}

	m = generate(t, TargetFragment, sampleShader(ir.ImageQueryLevels, nil, types.I32))
	if !hasCap(m, CapabilityImageQuery) {
		t.Error("ImageQuery capability missing")
	}
	if n := m.Count(OpImage); n != 1 {
		t.Errorf("got %d OpImage, want 1", n)
	}
}

func TestImage_QuerySize(t *testing.T) {
	ivec2 := types.Must(types.Vector(types.I32, 2))
	m := generate(t, TargetFragment, sampleShader(ir.ImageQuerySize, nil, ivec2))
	if n := m.Count(OpImageQuerySizeLod); n != 1 {
		t.Errorf("got %d size-with-lod queries, want 1", n)
	}
}

func TestImage_Errors(t *testing.T) {
	vec4 := types.Must(types.Vector(types.F32, 4))
	tests := []struct {
		name  string
		extra []ir.Argument
		want  string
	}{
		{"duplicate", []ir.Argument{ir.Keyed(ir.KeyLod, ir.Float(0)), ir.Keyed(ir.KeyLod, ir.Float(1))}, "given twice"},
		{"half gradient", []ir.Argument{ir.Keyed(ir.KeyGradX, coords2D())}, "need both"},
		{"unknown key", []ir.Argument{ir.Keyed("Swizzle", ir.Int(0))}, "unsupported image operand Swizzle"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := generateErr(t, TargetFragment, sampleShader(ir.Sample, tt.extra, vec4))
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestImage_StorageReadWrite(t *testing.T) {
	img := texture2D(2)
	tex := ir.NewGlobal("img", types.Pointer(img, 0, types.ClassUniformConstant))
	tex.Binding = 0
	tex.Set = 0
	ivec2 := types.Must(types.Vector(types.I32, 2))
	vec4 := types.Must(types.Vector(types.F32, 4))
	coord := ir.ConstAggregate{Type: ivec2, Values: []ir.Value{ir.Int(0), ir.Int(0)}}

	fn := ir.NewFunction("main")
	loaded := block("loaded", 2)
	read := block("read", 3)
	written := block("written", 4)
	i := loaded.AddParam("i", img)
	texel := read.AddParam("texel", vec4)

	fn.SetBody(ir.Load, loaded, tex)
	loaded.SetBody(ir.ImageRead, read, i, coord)
	read.SetBody(ir.ImageWrite, written, i, coord, texel)
	written.Return(fn)

	m := generate(t, TargetCompute, fn)
	if n := m.Count(OpImageRead); n != 1 {
		t.Errorf("got %d image reads", n)
	}
	if n := m.Count(OpImageWrite); n != 1 {
		t.Errorf("got %d image writes", n)
	}
	caps := map[Capability]bool{}
	for _, inst := range m.Find(OpCapability) {
		caps[Capability(inst.Words[0])] = true
	}
	if !caps[CapabilityStorageImageReadWithoutFormat] || !caps[CapabilityStorageImageWriteWithoutFormat] {
		t.Errorf("format-less storage capabilities missing: %v", caps)
	}
}

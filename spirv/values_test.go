package spirv

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/spvgen/diag"
	"github.com/gogpu/spvgen/ir"
	"github.com/gogpu/spvgen/types"
)

// constantWords lowers v in a fresh generator and returns the literal words
// of the resulting OpConstant.
func constantWords(t *testing.T, v ir.Value) []uint32 {
	t.Helper()
	g := NewGenerator(DefaultOptions())
	val, err := g.argumentToValue(v, diag.Anchor{})
	if err != nil {
		t.Fatalf("argumentToValue: %v", err)
	}
	data, err := g.builder.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	m, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for _, inst := range m.Find(OpConstant) {
		if inst.Words[1] == val.id {
			return inst.Words[2:]
		}
	}
	t.Fatalf("no OpConstant %%%d", val.id)
	return nil
}

func TestConstInt(t *testing.T) {
	tests := []struct {
		name string
		v    ir.ConstInt
		want []uint32
	}{
		{"i32", ir.Int(-2), []uint32{0xFFFFFFFE}},
		{"u32", ir.Uint(7), []uint32{7}},
		{"i8 sign extended", ir.ConstInt{Type: types.I8, Value: 0xFF}, []uint32{0xFFFFFFFF}},
		{"u8 truncated", ir.ConstInt{Type: types.U8, Value: 0x1FF}, []uint32{0xFF}},
		{"i16", ir.ConstInt{Type: types.I16, Value: 0x8000}, []uint32{0xFFFF8000}},
		{"u64", ir.ConstInt{Type: types.U64, Value: 0x1_0000_0002}, []uint32{2, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, constantWords(t, tt.v)); diff != "" {
				t.Errorf("literal words (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConstReal(t *testing.T) {
	if diff := cmp.Diff([]uint32{0x3F800000}, constantWords(t, ir.Float(1))); diff != "" {
		t.Errorf("f32 1.0 (-want +got):\n%s", diff)
	}
	got := constantWords(t, ir.ConstReal{Type: types.F64, Value: 1})
	if diff := cmp.Diff([]uint32{0, 0x3FF00000}, got); diff != "" {
		t.Errorf("f64 1.0 (-want +got):\n%s", diff)
	}

	g := NewGenerator(DefaultOptions())
	_, err := g.argumentToValue(ir.ConstReal{Type: types.F16, Value: 1}, diag.Anchor{Path: "a.sc", Line: 3})
	if err == nil || !strings.Contains(err.Error(), "width 16") {
		t.Errorf("f16 constant: %v", err)
	}
}

func TestConstBool(t *testing.T) {
	g := NewGenerator(DefaultOptions())
	yes, err := g.argumentToValue(ir.Bool(true), diag.Anchor{})
	if err != nil {
		t.Fatal(err)
	}
	no, err := g.argumentToValue(ir.Bool(false), diag.Anchor{})
	if err != nil {
		t.Fatal(err)
	}
	again, err := g.argumentToValue(ir.Bool(true), diag.Anchor{})
	if err != nil {
		t.Fatal(err)
	}
	if yes.id == no.id {
		t.Error("true and false share an id")
	}
	if yes.id != again.id {
		t.Error("true constants are not shared")
	}
}

func TestAggregateSharing(t *testing.T) {
	vec2 := types.Must(types.Vector(types.F32, 2))
	agg := ir.ConstAggregate{Type: vec2, Values: []ir.Value{ir.Float(1), ir.Float(2)}}
	g := NewGenerator(DefaultOptions())
	a, err := g.argumentToValue(agg, diag.Anchor{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := g.argumentToValue(agg, diag.Anchor{})
	if err != nil {
		t.Fatal(err)
	}
	if a.id != b.id {
		t.Errorf("constant aggregates not shared: %d vs %d", a.id, b.id)
	}
}

func TestArgumentToValue_Rejects(t *testing.T) {
	fn := ir.NewFunction("f")
	tests := []struct {
		name string
		v    ir.Value
		want string
	}{
		{"label", ir.NewBlock("l"), "cannot be used as a value"},
		{"closure", &ir.Closure{Label: fn}, "cannot be used at runtime"},
		{"type", ir.TypeValue{Type: types.I32}, "used as a value"},
		{"builtin", ir.Add, "cannot be used as a value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGenerator(DefaultOptions())
			_, err := g.argumentToValue(tt.v, diag.Anchor{})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestGlobal_Decorations(t *testing.T) {
	vec4 := types.Must(types.Vector(types.F32, 4))
	pos := ir.NewGlobal("position", types.Pointer(vec4, 0, types.ClassOutput))
	pos.Builtin = "Position"

	g := NewGenerator(DefaultOptions())
	v, err := g.globalValue(pos)
	if err != nil {
		t.Fatalf("globalValue: %v", err)
	}
	if again, _ := g.globalValue(pos); again.id != v.id {
		t.Error("global declared twice")
	}
	if diff := cmp.Diff([]uint32{v.id}, g.interfaces); diff != "" {
		t.Errorf("interfaces (-want +got):\n%s", diff)
	}

	bad := ir.NewGlobal("x", types.Pointer(vec4, 0, types.ClassOutput))
	bad.Builtin = "NotABuiltin"
	if _, err := g.globalValue(bad); err == nil || !strings.Contains(err.Error(), "unknown builtin NotABuiltin") {
		t.Errorf("unknown builtin: %v", err)
	}

	notPtr := ir.NewGlobal("y", vec4)
	if _, err := g.globalValue(notPtr); err == nil || !strings.Contains(err.Error(), "must have pointer type") {
		t.Errorf("non-pointer global: %v", err)
	}
}

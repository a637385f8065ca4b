package spirv

import (
	"errors"
	"strconv"
	"strings"
	"testing"
)

func TestDisassemble_Header(t *testing.T) {
	b := NewModuleBuilder(Version1_3)
	b.AddCapability(CapabilityShader)
	b.AddExtInstImport("GLSL.std.450")
	b.SetMemoryModel(AddressingModelLogical, MemoryModelGLSL450)
	void := b.AddTypeVoid()
	fnType := b.AddTypeFunction(void)
	fn := b.AllocID()
	b.BeginFunction(fn, void, fnType, FunctionControlNone)
	b.SetInsertBlock(b.NewBlock())
	b.AddReturn()
	b.AddEntryPoint(ExecutionModelFragment, fn, "main", nil)
	b.AddExecutionMode(fn, ExecutionModeOriginUpperLeft)
	b.AddName(fn, "main")

	data, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	text, err := Disassemble(data)
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	for _, want := range []string{
		"; Version: 1.3",
		"; Generator: 0x504F4353",
		"OpCapability Shader",
		`OpExtInstImport "GLSL.std.450"`,
		"OpMemoryModel Logical GLSL450",
		`OpEntryPoint Fragment %` + itoa(fn) + ` "main"`,
		"OpExecutionMode %" + itoa(fn) + " OriginUpperLeft",
		`OpName %` + itoa(fn) + ` "main"`,
		"OpTypeVoid",
		"OpReturn",
		"OpFunctionEnd",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("disassembly missing %q:\n%s", want, text)
		}
	}
}

func TestDisassemble_Operands(t *testing.T) {
	b := NewModuleBuilder(Version1_3)
	f32 := b.AddTypeFloat(32)
	vec := b.AddTypeVector(f32, 4)
	ptr := b.AddTypePointer(StorageClassUniform, vec)
	v := b.AddVariable(ptr, StorageClassUniform)
	b.AddDecorate(v, DecorationBinding, 3)
	b.AddDecorate(v, DecorationBuiltIn, uint32(BuiltInFragCoord))

	data, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	text, err := Disassemble(data)
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	for _, want := range []string{
		"OpTypeFloat 32",
		"OpTypeVector %" + itoa(f32) + " 4",
		"OpTypePointer Uniform %" + itoa(vec),
		"OpVariable %" + itoa(ptr) + " Uniform",
		"OpDecorate %" + itoa(v) + " Binding 3",
		"OpDecorate %" + itoa(v) + " BuiltIn FragCoord",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("disassembly missing %q:\n%s", want, text)
		}
	}
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short", make([]byte, 12)},
		{"unaligned", make([]byte, 22)},
		{"magic", make([]byte, 20)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			if !errors.Is(err, ErrInvalidBinary) {
				t.Errorf("Decode error = %v, want ErrInvalidBinary", err)
			}
		})
	}
}

func TestDecode_Truncated(t *testing.T) {
	b := NewModuleBuilder(Version1_3)
	b.AddCapability(CapabilityShader)
	data, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := Decode(data[:len(data)-4]); !errors.Is(err, ErrInvalidBinary) {
		t.Errorf("Decode truncated = %v, want ErrInvalidBinary", err)
	}
}

func TestInstruction_Result(t *testing.T) {
	tests := []struct {
		inst Instruction
		want uint32
		ok   bool
	}{
		{Instruction{Opcode: OpTypeFloat, Words: []uint32{5, 32}}, 5, true},
		{Instruction{Opcode: OpIAdd, Words: []uint32{2, 9, 3, 4}}, 9, true},
		{Instruction{Opcode: OpStore, Words: []uint32{1, 2}}, 0, false},
	}
	for _, tt := range tests {
		got, ok := tt.inst.Result()
		if got != tt.want || ok != tt.ok {
			t.Errorf("%s: Result() = %d, %v; want %d, %v", tt.inst.Opcode, got, ok, tt.want, tt.ok)
		}
	}
}

func itoa(id uint32) string {
	return strconv.FormatUint(uint64(id), 10)
}

package spvgen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/spvgen/config"
	"github.com/gogpu/spvgen/diag"
	"github.com/gogpu/spvgen/glsl"
	"github.com/gogpu/spvgen/ir"
	"github.com/gogpu/spvgen/spirv"
	"github.com/gogpu/spvgen/spvtools"
	"github.com/gogpu/spvgen/types"
)

type fakeValidator struct {
	calls int
	fail  bool
}

func (f *fakeValidator) Validate(_ context.Context, _ []byte, out *diag.Buffer) error {
	f.calls++
	if f.fail {
		out.Addf(diag.SevError, "bad module")
	}
	return nil
}

type fakeOptimizer struct {
	passes []string
}

func (f *fakeOptimizer) Optimize(_ context.Context, binary []byte, passes []string, out *diag.Buffer) ([]byte, error) {
	f.passes = passes
	out.Addf(diag.SevWarning, "pass warning")
	return binary, nil
}

type fakeCross struct{}

func (fakeCross) CrossCompile(_ context.Context, _ []byte, args []string) (string, error) {
	return fmt.Sprintf("#version %s\nvoid main() {}\n", args[1]), nil
}

// fragmentShader stores 1.0 to a fragment output.
func fragmentShader() *ir.Label {
	main := ir.NewFunction("main")
	main.Anchor = diag.Anchor{Path: "shade.sc", Line: 1, Column: 1}
	done := ir.NewBlock("done")
	done.Anchor = diag.Anchor{Path: "shade.sc", Line: 2, Column: 1}
	out := ir.NewGlobal("color", types.Pointer(types.F32, 0, types.ClassOutput))
	out.Location = 0
	main.SetBody(ir.Store, done, ir.Float(1), out)
	done.Return(main)
	return main
}

func testOptions(w *bytes.Buffer) (Options, *fakeValidator, *fakeOptimizer) {
	val := &fakeValidator{}
	opt := &fakeOptimizer{}
	opts := Options{
		Toolchain:   spvtools.Toolchain{Validator: val, Optimizer: opt, Cross: fakeCross{}},
		Diagnostics: w,
		SPIRV:       spirv.DefaultOptions(),
		GLSL:        glsl.DefaultOptions(),
	}
	return opts, val, opt
}

func TestFlagValues(t *testing.T) {
	got := []Flags{FlagDumpDisassembly, FlagDumpModule, FlagDumpFunction, FlagNoDebugInfo, FlagO1, FlagO2, FlagO3}
	want := []Flags{1, 2, 4, 8, 16, 32, 48}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("flag values (-want +got):\n%s", diff)
	}
}

func TestOptLevel(t *testing.T) {
	tests := []struct {
		flags Flags
		want  int
	}{
		{0, 0},
		{FlagNoDebugInfo | FlagDumpModule, 0},
		{FlagO1, 1},
		{FlagO2, 2},
		{FlagO3, 3},
		{FlagO1 | FlagO2 | FlagDumpDisassembly, 3},
	}
	for _, tt := range tests {
		if got := OptLevel(tt.flags); got != tt.want {
			t.Errorf("OptLevel(%d) = %d, want %d", tt.flags, got, tt.want)
		}
	}
	for level := 0; level <= 3; level++ {
		if got := OptLevel(LevelFlag(level)); got != level {
			t.Errorf("OptLevel(LevelFlag(%d)) = %d", level, got)
		}
	}
}

func TestCompileSPIRV_Validates(t *testing.T) {
	var w bytes.Buffer
	opts, val, opt := testOptions(&w)
	binary, err := CompileSPIRVWithOptions(context.Background(), spirv.TargetFragment, fragmentShader(), opts)
	if err != nil {
		t.Fatalf("CompileSPIRV: %v", err)
	}
	if _, err := spirv.Decode(binary); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if val.calls != 1 {
		t.Errorf("validator ran %d times, want 1", val.calls)
	}
	if opt.passes != nil {
		t.Errorf("optimizer ran without an optimization flag")
	}
	if w.Len() != 0 {
		t.Errorf("unexpected diagnostics output:\n%s", w.String())
	}
}

func TestCompileSPIRV_Optimize(t *testing.T) {
	var w bytes.Buffer
	opts, val, opt := testOptions(&w)
	opts.Flags = FlagO2
	if _, err := CompileSPIRVWithOptions(context.Background(), spirv.TargetFragment, fragmentShader(), opts); err != nil {
		t.Fatalf("CompileSPIRV: %v", err)
	}
	if diff := cmp.Diff(spvtools.Passes(2), opt.passes); diff != "" {
		t.Errorf("passes (-want +got):\n%s", diff)
	}
	if val.calls != 2 {
		t.Errorf("validator ran %d times, want 2", val.calls)
	}
	if !strings.Contains(w.String(), "warning: pass warning") {
		t.Errorf("optimizer warnings not reported:\n%s", w.String())
	}
}

func TestCompileSPIRV_Dumps(t *testing.T) {
	var w bytes.Buffer
	opts, _, _ := testOptions(&w)
	opts.Flags = FlagDumpFunction | FlagDumpModule | FlagDumpDisassembly | FlagO1
	if _, err := CompileSPIRVWithOptions(context.Background(), spirv.TargetFragment, fragmentShader(), opts); err != nil {
		t.Fatalf("CompileSPIRV: %v", err)
	}
	out := w.String()
	order := []string{"; function main", "main", "; module", "OpEntryPoint", "; disassembly", "OpFunctionEnd"}
	pos := 0
	for _, want := range order {
		i := strings.Index(out[pos:], want)
		if i < 0 {
			t.Fatalf("dump missing %q after offset %d:\n%s", want, pos, out)
		}
		pos += i + len(want)
	}
}

func TestCompileSPIRV_NoDebugInfo(t *testing.T) {
	count := func(flags Flags) (names, lines int) {
		t.Helper()
		var w bytes.Buffer
		opts, _, _ := testOptions(&w)
		opts.Flags = flags
		binary, err := CompileSPIRVWithOptions(context.Background(), spirv.TargetFragment, fragmentShader(), opts)
		if err != nil {
			t.Fatalf("CompileSPIRV: %v", err)
		}
		m, err := spirv.Decode(binary)
		if err != nil {
			t.Fatal(err)
		}
		return m.Count(spirv.OpName), m.Count(spirv.OpLine)
	}
	if names, lines := count(0); names == 0 || lines == 0 {
		t.Errorf("debug build has %d names and %d lines", names, lines)
	}
	if names, lines := count(FlagNoDebugInfo); names != 0 || lines != 0 {
		t.Errorf("FlagNoDebugInfo build has %d names and %d lines", names, lines)
	}
}

func TestCompileSPIRV_ValidationFails(t *testing.T) {
	var w bytes.Buffer
	opts, val, _ := testOptions(&w)
	val.fail = true
	_, err := CompileSPIRVWithOptions(context.Background(), spirv.TargetFragment, fragmentShader(), opts)
	if !errors.Is(err, spvtools.ErrValidationFailed) {
		t.Fatalf("error = %v, want validation failure", err)
	}
	out := w.String()
	if !strings.Contains(out, "error: bad module") || !strings.Contains(out, "OpMemoryModel") {
		t.Errorf("debug dump missing:\n%s", out)
	}
}

func TestCompileSPIRV_Errors(t *testing.T) {
	var w bytes.Buffer
	opts, _, _ := testOptions(&w)

	_, err := CompileSPIRVWithOptions(context.Background(), "tessellation", fragmentShader(), opts)
	if !diag.IsKind(err, diag.KindTarget) {
		t.Errorf("bad target: %v", err)
	}

	opts.Toolchain.Optimizer = nil
	opts.Flags = FlagO3
	_, err = CompileSPIRVWithOptions(context.Background(), spirv.TargetFragment, fragmentShader(), opts)
	if !errors.Is(err, spvtools.ErrToolUnavailable) {
		t.Errorf("missing optimizer: %v", err)
	}
}

func TestCompileSPIRV_StructuralValidator(t *testing.T) {
	var w bytes.Buffer
	opts, _, _ := testOptions(&w)
	opts.Toolchain.Validator = spvtools.StructuralValidator{}
	opts.Target = spirv.TargetFragment
	if _, err := CompileSPIRVWithOptions(context.Background(), "", fragmentShader(), opts); err != nil {
		t.Fatalf("CompileSPIRV: %v\n%s", err, w.String())
	}
}

func TestCompileGLSL(t *testing.T) {
	var w bytes.Buffer
	opts, _, _ := testOptions(&w)
	opts.GLSL.LangVersion = glsl.Version430
	source, err := CompileGLSLWithOptions(context.Background(), spirv.TargetFragment, fragmentShader(), opts)
	if err != nil {
		t.Fatalf("CompileGLSL: %v", err)
	}
	if !strings.HasPrefix(source, "#version 430\n") {
		t.Errorf("source:\n%s", source)
	}

	opts.Toolchain.Cross = nil
	if _, err := CompileGLSLWithOptions(context.Background(), spirv.TargetFragment, fragmentShader(), opts); !errors.Is(err, spvtools.ErrToolUnavailable) {
		t.Errorf("missing cross compiler: %v", err)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Compile.OptLevel = 2
	cfg.Compile.DebugInfo = false
	cfg.Compile.GLSLVersion = 310
	cfg.Compile.GLSLES = true
	cfg.Compile.LocalSize = [3]uint32{64, 1, 1}

	opts, err := OptionsFromConfig(cfg)
	if err != nil {
		t.Fatalf("OptionsFromConfig: %v", err)
	}
	if opts.Flags != FlagO2|FlagNoDebugInfo {
		t.Errorf("Flags = %d", opts.Flags)
	}
	if opts.GLSL.LangVersion != glsl.VersionES310 {
		t.Errorf("LangVersion = %s", opts.GLSL.LangVersion)
	}
	if opts.SPIRV.LocalSize != [3]uint32{64, 1, 1} {
		t.Errorf("LocalSize = %v", opts.SPIRV.LocalSize)
	}
	if opts.Toolchain.Validator == nil {
		t.Error("no validator")
	}
	if opts.Target != spirv.TargetFragment {
		t.Errorf("Target = %q", opts.Target)
	}

	cfg.Compile.GLSLVersion = 5
	if _, err := OptionsFromConfig(cfg); err == nil {
		t.Error("invalid GLSL version accepted")
	}
}

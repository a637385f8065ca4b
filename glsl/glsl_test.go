// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/spvgen/ir"
	"github.com/gogpu/spvgen/spirv"
)

// fakeCross records its arguments and prints a stub shader with the
// requested #version.
type fakeCross struct {
	args    []string
	version string // overrides the echoed version when set
	err     error
}

func (f *fakeCross) CrossCompile(_ context.Context, _ []byte, args []string) (string, error) {
	f.args = args
	if f.err != nil {
		return "", f.err
	}
	version := f.version
	if version == "" {
		version = args[1]
		if args[2] == "--es" && version != "100" {
			version += " es"
		}
	}
	return fmt.Sprintf("#version %s\n#extension GL_ARB_separate_shader_objects : require\n\nvoid main()\n{\n}\n", version), nil
}

func shader(t *testing.T, target string) []byte {
	t.Helper()
	main := ir.NewFunction("main")
	main.Return(main)
	data, err := spirv.NewGenerator(spirv.DefaultOptions()).Generate(target, main)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return data
}

// =============================================================================
// Version Tests
// =============================================================================

func TestVersion_String(t *testing.T) {
	tests := []struct {
		version Version
		want    string
	}{
		{Version330, "330 core"},
		{Version400, "400 core"},
		{Version450, "450 core"},
		{Version460, "460 core"},
		{VersionES100, "100 es"},
		{VersionES300, "300 es"},
		{VersionES310, "310 es"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := tt.version.String()
			if got != tt.want {
				t.Errorf("Version.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewVersion(t *testing.T) {
	v, err := NewVersion(310, true)
	if err != nil || v != VersionES310 {
		t.Errorf("NewVersion(310, true) = %v, %v", v, err)
	}
	v, err = NewVersion(430, false)
	if err != nil || v != Version430 {
		t.Errorf("NewVersion(430, false) = %v, %v", v, err)
	}
	if _, err := NewVersion(45, false); err == nil {
		t.Error("NewVersion(45) succeeded")
	}
}

func TestVersion_Supports(t *testing.T) {
	tests := []struct {
		version  Version
		compute  bool
		geometry bool
	}{
		{Version330, false, true},
		{Version430, true, true},
		{VersionES300, false, false},
		{VersionES310, true, false},
		{VersionES320, true, true},
	}
	for _, tt := range tests {
		if got := tt.version.SupportsCompute(); got != tt.compute {
			t.Errorf("%s SupportsCompute = %v", tt.version, got)
		}
		if got := tt.version.SupportsGeometry(); got != tt.geometry {
			t.Errorf("%s SupportsGeometry = %v", tt.version, got)
		}
	}
}

// =============================================================================
// Option Tests
// =============================================================================

func TestOptions_Args(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{"default", Options{}, []string{"--version", "450", "--no-es"}},
		{"es", Options{LangVersion: VersionES300}, []string{"--version", "300", "--es"}},
		{
			"flags",
			Options{
				LangVersion:     Version330,
				EntryPoint:      "main",
				VulkanSemantics: true,
				RemoveUnused:    true,
				FlipVertexY:     true,
				Extra:           []string{"--no-420pack-extension"},
			},
			[]string{
				"--version", "330", "--no-es", "--entry", "main",
				"--vulkan-semantics", "--remove-unused-variables", "--flip-vert-y",
				"--no-420pack-extension",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.opts.Args()); diff != "" {
				t.Errorf("Args (-want +got):\n%s", diff)
			}
		})
	}
}

// =============================================================================
// Compile Tests
// =============================================================================

func TestCompile(t *testing.T) {
	cross := &fakeCross{}
	source, info, err := Compile(context.Background(), cross, shader(t, spirv.TargetFragment), Options{LangVersion: VersionES300})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !strings.HasPrefix(source, "#version 300 es\n") {
		t.Errorf("source:\n%s", source)
	}
	want := TranslationInfo{
		Version:        VersionES300,
		UsedExtensions: []string{"GL_ARB_separate_shader_objects"},
		Stage:          spirv.ExecutionModelFragment,
	}
	if diff := cmp.Diff(want, info); diff != "" {
		t.Errorf("info (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"--version", "300", "--es"}, cross.args); diff != "" {
		t.Errorf("args (-want +got):\n%s", diff)
	}
}

func TestCompile_ES100(t *testing.T) {
	_, info, err := Compile(context.Background(), &fakeCross{}, shader(t, spirv.TargetVertex), Options{LangVersion: VersionES100})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if info.Version != VersionES100 {
		t.Errorf("Version = %s", info.Version)
	}
}

func TestCompile_StageNotSupported(t *testing.T) {
	cross := &fakeCross{}
	_, _, err := Compile(context.Background(), cross, shader(t, spirv.TargetCompute), Options{LangVersion: Version330})
	if err == nil || !strings.Contains(err.Error(), "GLSL 330 core does not support compute shaders") {
		t.Errorf("error = %v", err)
	}
	if cross.args != nil {
		t.Error("cross compiler ran for an unsupported stage")
	}
	_, _, err = Compile(context.Background(), cross, shader(t, spirv.TargetGeometry), Options{LangVersion: VersionES310})
	if err == nil || !strings.Contains(err.Error(), "geometry") {
		t.Errorf("error = %v", err)
	}
}

func TestCompile_Errors(t *testing.T) {
	ctx := context.Background()
	frag := shader(t, spirv.TargetFragment)

	if _, _, err := Compile(ctx, &fakeCross{version: "330"}, frag, Options{}); !errors.Is(err, ErrVersionMismatch) {
		t.Errorf("version mismatch: %v", err)
	}
	boom := errors.New("boom")
	if _, _, err := Compile(ctx, &fakeCross{err: boom}, frag, Options{}); !errors.Is(err, boom) {
		t.Errorf("cross failure: %v", err)
	}
	if _, _, err := Compile(ctx, &fakeCross{}, []byte{1, 2, 3}, Options{}); err == nil {
		t.Error("invalid module accepted")
	}
}

func TestInspect(t *testing.T) {
	if _, err := Inspect("void main() {}\n"); err == nil {
		t.Error("source without #version accepted")
	}
	if _, err := Inspect("#version four\n"); err == nil {
		t.Error("malformed #version accepted")
	}
	info, err := Inspect("#version 450\n#extension GL_EXT_samplerless_texture_functions : enable\n")
	if err != nil {
		t.Fatal(err)
	}
	if info.Version != Version450 || len(info.UsedExtensions) != 1 {
		t.Errorf("info = %+v", info)
	}
}

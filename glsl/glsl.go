// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/spvgen/spirv"
	"github.com/gogpu/spvgen/spvtools"
)

// Version represents a GLSL version.
type Version struct {
	Major uint8
	Minor uint8
	ES    bool // true for GLSL ES (OpenGL ES / WebGL)
}

// Common GLSL versions.
var (
	// Desktop OpenGL versions
	Version330 = Version{Major: 3, Minor: 30, ES: false} // OpenGL 3.3 Core
	Version400 = Version{Major: 4, Minor: 0, ES: false}  // OpenGL 4.0
	Version410 = Version{Major: 4, Minor: 10, ES: false} // OpenGL 4.1
	Version420 = Version{Major: 4, Minor: 20, ES: false} // OpenGL 4.2
	Version430 = Version{Major: 4, Minor: 30, ES: false} // OpenGL 4.3 (compute shaders)
	Version450 = Version{Major: 4, Minor: 50, ES: false} // OpenGL 4.5
	Version460 = Version{Major: 4, Minor: 60, ES: false} // OpenGL 4.6

	// OpenGL ES / WebGL versions
	VersionES100 = Version{Major: 1, Minor: 0, ES: true}  // ES 2.0 / WebGL 1.0
	VersionES300 = Version{Major: 3, Minor: 0, ES: true}  // ES 3.0 / WebGL 2.0
	VersionES310 = Version{Major: 3, Minor: 10, ES: true} // ES 3.1 (compute shaders)
	VersionES320 = Version{Major: 3, Minor: 20, ES: true} // ES 3.2
)

// ErrVersionMismatch is returned when the cross compiler emits a different
// #version than requested.
var ErrVersionMismatch = errors.New("glsl: version mismatch")

// NewVersion converts a numeric version such as 450 or 310.
func NewVersion(number int, es bool) (Version, error) {
	if number < 100 || number > 999 {
		return Version{}, fmt.Errorf("glsl: invalid version %d", number)
	}
	return Version{Major: uint8(number / 100), Minor: uint8(number % 100), ES: es}, nil
}

// String returns the version as a GLSL version directive value.
func (v Version) String() string {
	if v.ES {
		return fmt.Sprintf("%d%02d es", v.Major, v.Minor)
	}
	return fmt.Sprintf("%d%02d core", v.Major, v.Minor)
}

// VersionNumber returns just the numeric version (e.g., "330", "300").
func (v Version) VersionNumber() string {
	return fmt.Sprintf("%d%02d", v.Major, v.Minor)
}

// SupportsCompute returns true if this version supports compute shaders.
func (v Version) SupportsCompute() bool {
	if v.ES {
		return v.Major > 3 || (v.Major == 3 && v.Minor >= 10)
	}
	return v.Major > 4 || (v.Major == 4 && v.Minor >= 30)
}

// SupportsGeometry returns true if this version supports geometry shaders.
func (v Version) SupportsGeometry() bool {
	if v.ES {
		return v.Major > 3 || (v.Major == 3 && v.Minor >= 20)
	}
	return v.Major > 1 || (v.Major == 1 && v.Minor >= 50)
}

// Options configures the SPIR-V to GLSL translation.
type Options struct {
	// LangVersion is the target GLSL version.
	// Defaults to Version450 if zero.
	LangVersion Version

	// EntryPoint selects the entry point when the module has several.
	EntryPoint string

	// VulkanSemantics keeps Vulkan GLSL features such as descriptor sets.
	VulkanSemantics bool

	// FlattenUniformBlocks emits uniform blocks as plain uniform arrays.
	FlattenUniformBlocks bool

	// RemoveUnused drops interface variables the entry point never uses.
	RemoveUnused bool

	// SeparateShaderObjects redeclares gl_PerVertex for program pipelines.
	SeparateShaderObjects bool

	// FixupClipSpace converts Vulkan clip space depth to OpenGL.
	FixupClipSpace bool

	// FlipVertexY negates gl_Position.y in vertex shaders.
	FlipVertexY bool

	// Extra arguments passed to the cross compiler verbatim.
	Extra []string
}

// DefaultOptions returns sensible default options for GLSL generation.
func DefaultOptions() Options {
	return Options{
		LangVersion: Version450,
	}
}

// Args returns the cross compiler arguments for o.
func (o Options) Args() []string {
	v := o.LangVersion
	if v.Major == 0 {
		v = Version450
	}
	args := []string{"--version", v.VersionNumber()}
	if v.ES {
		args = append(args, "--es")
	} else {
		args = append(args, "--no-es")
	}
	if o.EntryPoint != "" {
		args = append(args, "--entry", o.EntryPoint)
	}
	for _, f := range []struct {
		on   bool
		flag string
	}{
		{o.VulkanSemantics, "--vulkan-semantics"},
		{o.FlattenUniformBlocks, "--flatten-ubo"},
		{o.RemoveUnused, "--remove-unused-variables"},
		{o.SeparateShaderObjects, "--separate-shader-objects"},
		{o.FixupClipSpace, "--fixup-clipspace"},
		{o.FlipVertexY, "--flip-vert-y"},
	} {
		if f.on {
			args = append(args, f.flag)
		}
	}
	return append(args, o.Extra...)
}

// TranslationInfo contains metadata about the translation.
type TranslationInfo struct {
	// Version is the #version the source declares.
	Version Version

	// UsedExtensions lists the #extension directives in the source.
	UsedExtensions []string

	// Stage is the execution model of the module's entry point.
	Stage spirv.ExecutionModel
}

// Compile translates a SPIR-V module to GLSL with cross.
// Returns the GLSL source as a string, translation info, or an error.
func Compile(ctx context.Context, cross spvtools.CrossCompiler, binary []byte, options Options) (string, TranslationInfo, error) {
	// Apply defaults for zero values
	if options.LangVersion.Major == 0 {
		options.LangVersion = Version450
	}

	stage, err := entryStage(binary)
	if err != nil {
		return "", TranslationInfo{}, fmt.Errorf("glsl: %w", err)
	}
	switch {
	case stage == spirv.ExecutionModelGLCompute && !options.LangVersion.SupportsCompute():
		return "", TranslationInfo{}, fmt.Errorf("glsl: GLSL %s does not support compute shaders", options.LangVersion)
	case stage == spirv.ExecutionModelGeometry && !options.LangVersion.SupportsGeometry():
		return "", TranslationInfo{}, fmt.Errorf("glsl: GLSL %s does not support geometry shaders", options.LangVersion)
	}

	source, err := cross.CrossCompile(ctx, binary, options.Args())
	if err != nil {
		return "", TranslationInfo{}, fmt.Errorf("glsl: %w", err)
	}

	info, err := Inspect(source)
	if err != nil {
		return "", TranslationInfo{}, err
	}
	info.Stage = stage
	if info.Version != options.LangVersion {
		return "", TranslationInfo{}, fmt.Errorf("%w: got %s, want %s", ErrVersionMismatch, info.Version, options.LangVersion)
	}
	return source, info, nil
}

// entryStage returns the execution model of the first entry point.
func entryStage(binary []byte) (spirv.ExecutionModel, error) {
	m, err := spirv.Decode(binary)
	if err != nil {
		return 0, err
	}
	for _, inst := range m.Find(spirv.OpEntryPoint) {
		if len(inst.Words) > 0 {
			return spirv.ExecutionModel(inst.Words[0]), nil
		}
	}
	return 0, errors.New("module has no entry point")
}

// Inspect reads the #version and #extension directives of GLSL source.
func Inspect(source string) (TranslationInfo, error) {
	var info TranslationInfo
	found := false
	sc := bufio.NewScanner(strings.NewReader(source))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "#version":
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				return info, fmt.Errorf("glsl: malformed #version %q", fields[1])
			}
			// #version 100 is always ES and carries no suffix.
			v, err := NewVersion(n, n == 100 || (len(fields) > 2 && fields[2] == "es"))
			if err != nil {
				return info, err
			}
			info.Version, found = v, true
		case "#extension":
			info.UsedExtensions = append(info.UsedExtensions, strings.TrimSuffix(fields[1], ":"))
		}
	}
	if err := sc.Err(); err != nil {
		return info, fmt.Errorf("glsl: %w", err)
	}
	if !found {
		return info, errors.New("glsl: cross compiler output has no #version directive")
	}
	return info, nil
}

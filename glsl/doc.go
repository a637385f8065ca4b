// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package glsl produces GLSL (OpenGL Shading Language) source from a SPIR-V
// module by running a cross compiler such as spirv-cross.
//
// It supports multiple GLSL versions for different target platforms:
//
//   - GLSL ES 3.00: WebGL 2.0, Mobile OpenGL ES 3.0
//   - GLSL 3.30 Core: Desktop OpenGL 3.3+
//   - GLSL ES 3.10: Android 5.0+ with compute shaders
//   - GLSL 4.30 Core: Desktop OpenGL 4.3+ with compute shaders
//
// # Basic Usage
//
//	source, info, err := glsl.Compile(ctx, toolchain.Cross, binary, glsl.Options{
//	    LangVersion: glsl.VersionES300,
//	})
//
// The entry point's stage is checked against the version before the cross
// compiler runs, and the #version of the result must match the request.
package glsl

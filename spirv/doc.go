// Package spirv provides SPIR-V code generation from the label IR.
//
// SPIR-V is the standard intermediate language for GPU shaders,
// used by Vulkan, OpenCL, and other APIs.
//
// # Generator
//
// The Generator lowers every function reachable from an entry label into a
// single module:
//
//	gen := spirv.NewGenerator(spirv.DefaultOptions())
//	binary, err := gen.Generate(spirv.TargetFragment, entry)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Labels called from more than one place become basic blocks whose
// parameters are OpPhi instructions. Labels with a single caller are
// inlined into the caller's block and their parameters bound directly.
// Loops are found from the strongly connected components of the label
// graph; each loop header receives an OpLoopMerge naming the merge and
// continue blocks, and conditional branches receive an OpSelectionMerge
// unless they leave or continue the enclosing loop.
//
// Supported targets are vertex, fragment, geometry and compute.
//
// # Binary Writer
//
// The package also provides a low-level binary writer for constructing
// SPIR-V modules programmatically using ModuleBuilder:
//
//	builder := spirv.NewModuleBuilder(spirv.Version1_3)
//	builder.AddCapability(spirv.CapabilityShader)
//	builder.SetMemoryModel(spirv.AddressingModelLogical, spirv.MemoryModelGLSL450)
//
//	// Add types
//	floatType := builder.AddTypeFloat(32)
//	vec4Type := builder.AddTypeVector(floatType, 4)
//
//	// Build binary
//	binary, err := builder.Build()
//
// Types and constants are deduplicated. Function blocks are written in
// reverse postorder so that every block follows its dominators.
//
// # SPIR-V Structure
//
// SPIR-V modules consist of:
//   - Header (magic, version, generator, bound, schema)
//   - Capabilities (required features)
//   - Extensions (optional extensions)
//   - Extended instruction imports (GLSL.std.450, etc.)
//   - Memory model (addressing and memory model)
//   - Entry points (shader entry functions)
//   - Execution modes (shader configuration)
//   - Debug information (names, source info)
//   - Annotations (decorations)
//   - Types and constants
//   - Global variables
//   - Functions (code)
//
// # Disassembly
//
// Decode splits a binary into instructions and Disassemble renders it as
// text, one instruction per line.
//
// # References
//
// SPIR-V Specification: https://registry.khronos.org/SPIR-V/specs/unified1/SPIRV.html
package spirv

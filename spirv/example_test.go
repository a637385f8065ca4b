package spirv_test

import (
	"fmt"
	"log"

	"github.com/gogpu/spvgen/ir"
	"github.com/gogpu/spvgen/spirv"
	"github.com/gogpu/spvgen/types"
)

// ExampleModuleBuilder_minimal demonstrates creating a minimal SPIR-V module.
func ExampleModuleBuilder_minimal() {
	// Create a module builder targeting SPIR-V 1.3
	builder := spirv.NewModuleBuilder(spirv.Version1_3)

	// Add required capability
	builder.AddCapability(spirv.CapabilityShader)

	// Set memory model (required for all modules)
	builder.SetMemoryModel(spirv.AddressingModelLogical, spirv.MemoryModelGLSL450)

	binary, err := builder.Build()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Generated SPIR-V module: %d bytes\n", len(binary))
	// Output: Generated SPIR-V module: 40 bytes
}

// ExampleGenerator demonstrates lowering a counting loop to a compute shader.
func ExampleGenerator() {
	// main:   jump header(0)
	// header: icmp<s check i 4
	// check:  branch c body exit
	// body:   add header i 1
	// exit:   return
	main := ir.NewFunction("main")
	header := ir.NewBlock("header")
	check := ir.NewBlock("check")
	body := ir.NewBlock("body")
	exit := ir.NewBlock("exit")
	i := header.AddParam("i", types.I32)
	c := check.AddParam("c", types.Bool)

	main.Jump(header, ir.Int(0))
	header.SetBody(ir.ICmpSLT, check, i, ir.Int(4))
	check.BranchTo(c, body, exit)
	body.SetBody(ir.Add, header, i, ir.Int(1))
	exit.Return(main)

	binary, err := spirv.NewGenerator(spirv.DefaultOptions()).Generate(spirv.TargetCompute, main)
	if err != nil {
		log.Fatal(err)
	}
	m, err := spirv.Decode(binary)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("loop merges:", m.Count(spirv.OpLoopMerge))
	fmt.Println("phis:", m.Count(spirv.OpPhi))
	fmt.Println("returns:", m.Count(spirv.OpReturn))
	// Output:
	// loop merges: 1
	// phis: 1
	// returns: 1
}

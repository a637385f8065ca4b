// Package ir defines the label IR consumed by the SPIR-V generator.
//
// A program is a graph of labels. Each label has typed parameters and a body
// consisting of a single call: a callee (Enter) and arguments. The first
// argument is the continuation that receives the call's results; the first
// parameter is the return parameter. Control flow is expressed entirely as
// calls between labels:
//
//	fn := ir.NewFunction("main")
//	body := ir.NewBlock("body")
//	fn.Jump(body)
//	body.Return(fn)
//
// Labels whose return parameter has type types.Nothing are basic-block-like
// and may be compiled as SPIR-V blocks; all others become functions.
package ir

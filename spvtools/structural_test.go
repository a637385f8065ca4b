package spvtools

import (
	"context"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/gogpu/spvgen/diag"
	"github.com/gogpu/spvgen/ir"
	"github.com/gogpu/spvgen/spirv"
	"github.com/gogpu/spvgen/types"
)

// inst encodes one instruction; the word count is filled in.
func inst(op spirv.OpCode, words ...uint32) []uint32 {
	return append([]uint32{uint32(len(words)+1)<<16 | uint32(op)}, words...)
}

// assemble returns a module with the given bound and instructions.
func assemble(bound uint32, insts ...[]uint32) []byte {
	words := []uint32{spirv.MagicNumber, 0x00010300, 0, bound, 0}
	for _, in := range insts {
		words = append(words, in...)
	}
	out := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[4*i:], w)
	}
	return out
}

// main as a nul-terminated literal string.
var mainName = []uint32{0x6E69616D, 0}

func header(entry uint32) [][]uint32 {
	return [][]uint32{
		inst(spirv.OpCapability, 1),
		inst(spirv.OpMemoryModel, 0, 1),
		inst(spirv.OpEntryPoint, append([]uint32{4, entry}, mainName...)...),
		inst(spirv.OpTypeVoid, 1),
		inst(spirv.OpTypeFunction, 2, 1),
		inst(spirv.OpTypeBool, 6),
		inst(spirv.OpConstantTrue, 6, 7),
		inst(spirv.OpTypeInt, 8, 32, 1),
		inst(spirv.OpConstant, 8, 9, 1),
		inst(spirv.OpConstant, 8, 10, 2),
	}
}

// diamondModule is a selection with a phi at the join, correct unless
// mutated by the caller.
func diamondModule(mutate func(body [][]uint32) [][]uint32) []byte {
	body := [][]uint32{
		inst(spirv.OpFunction, 1, 3, 0, 2),
		inst(spirv.OpLabel, 4),
		inst(spirv.OpSelectionMerge, 13, 0),
		inst(spirv.OpBranchConditional, 7, 11, 12),
		inst(spirv.OpLabel, 11),
		inst(spirv.OpBranch, 13),
		inst(spirv.OpLabel, 12),
		inst(spirv.OpBranch, 13),
		inst(spirv.OpLabel, 13),
		inst(spirv.OpPhi, 8, 14, 9, 11, 10, 12),
		inst(spirv.OpReturn),
		inst(spirv.OpFunctionEnd),
	}
	if mutate != nil {
		body = mutate(body)
	}
	return assemble(15, append(header(3), body...)...)
}

// function wraps a body of entry function %3 into a module.
func function(bound uint32, body ...[]uint32) []byte {
	insts := append(header(3), inst(spirv.OpFunction, 1, 3, 0, 2))
	insts = append(insts, body...)
	return assemble(bound, append(insts, inst(spirv.OpFunctionEnd))...)
}

// loopModule is a loop headed by %11 with continue target %12 and merge %13.
// Without the OpLoopMerge the back edge from %12 is unstructured.
func loopModule(withMerge bool) []byte {
	head := [][]uint32{inst(spirv.OpLabel, 11)}
	if withMerge {
		head = append(head, inst(spirv.OpLoopMerge, 13, 12, 0))
	}
	head = append(head, inst(spirv.OpBranch, 14))
	body := [][]uint32{
		inst(spirv.OpLabel, 4),
		inst(spirv.OpBranch, 11),
	}
	body = append(body, head...)
	body = append(body,
		inst(spirv.OpLabel, 14),
		inst(spirv.OpBranchConditional, 7, 12, 13),
		inst(spirv.OpLabel, 12),
		inst(spirv.OpBranch, 11),
		inst(spirv.OpLabel, 13),
		inst(spirv.OpReturn),
	)
	return function(15, body...)
}

func validate(t *testing.T, data []byte) *diag.Buffer {
	t.Helper()
	var buf diag.Buffer
	if err := (StructuralValidator{}).Validate(context.Background(), data, &buf); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return &buf
}

func TestStructural_Valid(t *testing.T) {
	if buf := validate(t, diamondModule(nil)); buf.Len() != 0 {
		t.Errorf("unexpected diagnostics:\n%s", buf)
	}
}

func TestStructural_Loop(t *testing.T) {
	if buf := validate(t, loopModule(true)); buf.Len() != 0 {
		t.Errorf("unexpected diagnostics:\n%s", buf)
	}
}

func TestStructural_Generated(t *testing.T) {
	fn := ir.NewFunction("main")
	then := ir.NewBlock("then")
	els := ir.NewBlock("else")
	join := ir.NewBlock("join")
	done := ir.NewBlock("done")
	x := join.AddParam("x", types.F32)
	out := ir.NewGlobal("color", types.Pointer(types.F32, 0, types.ClassOutput))
	out.Location = 0

	fn.BranchTo(ir.Bool(true), then, els)
	then.Jump(join, ir.Float(1))
	els.Jump(join, ir.Float(2))
	join.SetBody(ir.Store, done, x, out)
	done.Return(fn)

	data, err := spirv.NewGenerator(spirv.DefaultOptions()).Generate(spirv.TargetFragment, fn)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if buf := validate(t, data); buf.Len() != 0 {
		t.Errorf("unexpected diagnostics:\n%s", buf)
	}
}

// nestedIf branches again inside the then arm; every arm rejoins at one
// label.
func nestedIf() *ir.Label {
	fn := ir.NewFunction("main")
	then := ir.NewBlock("then")
	a := ir.NewBlock("a")
	b := ir.NewBlock("b")
	els := ir.NewBlock("else")
	join := ir.NewBlock("join")
	done := ir.NewBlock("done")
	x := join.AddParam("x", types.F32)
	out := ir.NewGlobal("color", types.Pointer(types.F32, 0, types.ClassOutput))
	out.Location = 0

	fn.BranchTo(ir.Bool(true), then, els)
	then.BranchTo(ir.Bool(false), a, b)
	a.Jump(join, ir.Float(1))
	b.Jump(join, ir.Float(2))
	els.Jump(join, ir.Float(3))
	join.SetBody(ir.Store, done, x, out)
	done.Return(fn)
	return fn
}

// nestedFor counts i and j up to 4, the inner loop leaving to the outer
// increment.
func nestedFor() *ir.Label {
	fn := ir.NewFunction("main")
	outer := ir.NewBlock("outer")
	check1 := ir.NewBlock("check1")
	enter := ir.NewBlock("enter")
	inner := ir.NewBlock("inner")
	check2 := ir.NewBlock("check2")
	body := ir.NewBlock("body")
	latch2 := ir.NewBlock("latch2")
	latch1 := ir.NewBlock("latch1")
	next1 := ir.NewBlock("next1")
	exit := ir.NewBlock("exit")

	i := outer.AddParam("i", types.I32)
	c1 := check1.AddParam("c1", types.Bool)
	j := inner.AddParam("j", types.I32)
	c2 := check2.AddParam("c2", types.Bool)
	n := latch2.AddParam("n", types.I32)
	m := next1.AddParam("m", types.I32)

	fn.Jump(outer, ir.Int(0))
	outer.SetBody(ir.ICmpSLT, check1, i, ir.Int(4))
	check1.BranchTo(c1, enter, exit)
	enter.Jump(inner, ir.Int(0))
	inner.SetBody(ir.ICmpSLT, check2, j, ir.Int(4))
	check2.BranchTo(c2, body, latch1)
	body.SetBody(ir.Add, latch2, j, ir.Int(1))
	latch2.Jump(inner, n)
	latch1.SetBody(ir.Add, next1, i, ir.Int(1))
	next1.Jump(outer, m)
	exit.Return(fn)
	return fn
}

func TestStructural_GeneratedNested(t *testing.T) {
	tests := []struct {
		name   string
		target string
		entry  *ir.Label
	}{
		{"nested if", spirv.TargetFragment, nestedIf()},
		{"nested for", spirv.TargetCompute, nestedFor()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := spirv.NewGenerator(spirv.DefaultOptions()).Generate(tt.target, tt.entry)
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if buf := validate(t, data); buf.Len() != 0 {
				t.Errorf("unexpected diagnostics:\n%s", buf)
			}
		})
	}
}

func TestStructural_Errors(t *testing.T) {
	replace := func(i int, with ...[]uint32) func([][]uint32) [][]uint32 {
		return func(body [][]uint32) [][]uint32 {
			out := append([][]uint32(nil), body[:i]...)
			out = append(out, with...)
			return append(out, body[i+1:]...)
		}
	}
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{
			name: "bad magic",
			data: []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20},
			want: "magic",
		},
		{
			name: "missing phi pair",
			data: diamondModule(replace(9, inst(spirv.OpPhi, 8, 14, 9, 11))),
			want: "OpPhi %14 has 1 incoming pairs but block %13 has 2 predecessors",
		},
		{
			name: "phi from non-predecessor",
			data: diamondModule(replace(9, inst(spirv.OpPhi, 8, 14, 9, 11, 10, 4))),
			want: "names %4 which is not a predecessor of %13",
		},
		{
			name: "phi after body",
			data: diamondModule(replace(9,
				inst(spirv.OpIAdd, 8, 14, 9, 10),
				inst(spirv.OpPhi, 8, 16, 9, 11, 10, 12))),
			want: "OpPhi is not at the head of block %13",
		},
		{
			name: "merge without branch",
			data: diamondModule(replace(3, inst(spirv.OpReturn))),
			want: "OpSelectionMerge is followed by OpReturn instead of a branch",
		},
		{
			name: "missing terminator",
			data: diamondModule(replace(5)),
			want: "block %11 has no terminator",
		},
		{
			name: "two terminators",
			data: diamondModule(replace(10, inst(spirv.OpReturn), inst(spirv.OpReturn))),
			want: "OpReturn outside a block",
		},
		{
			name: "id above bound",
			data: diamondModule(replace(10, inst(spirv.OpIAdd, 8, 40, 9, 10), inst(spirv.OpReturn))),
			want: "defines %40 which is not below the bound 15",
		},
		{
			name: "duplicate id",
			data: diamondModule(replace(10, inst(spirv.OpIAdd, 8, 14, 9, 10), inst(spirv.OpReturn))),
			want: "%14 is defined twice",
		},
		{
			name: "shared merge block",
			data: function(17,
				inst(spirv.OpLabel, 4),
				inst(spirv.OpSelectionMerge, 13, 0),
				inst(spirv.OpBranchConditional, 7, 11, 12),
				inst(spirv.OpLabel, 11),
				inst(spirv.OpSelectionMerge, 13, 0),
				inst(spirv.OpBranchConditional, 7, 15, 16),
				inst(spirv.OpLabel, 15),
				inst(spirv.OpBranch, 13),
				inst(spirv.OpLabel, 16),
				inst(spirv.OpBranch, 13),
				inst(spirv.OpLabel, 12),
				inst(spirv.OpBranch, 13),
				inst(spirv.OpLabel, 13),
				inst(spirv.OpReturn),
			),
			want: "block %13 is the merge block of both %4 and %11",
		},
		{
			name: "back edge without loop merge",
			data: loopModule(false),
			want: "back edge from %12 to %11, which has no OpLoopMerge",
		},
		{
			name: "entry point not a function",
			data: assemble(11, header(4)...),
			want: "entry point %4 is not a function",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := validate(t, tt.data)
			if !buf.HasErrors() {
				t.Fatalf("no errors, want %q", tt.want)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("diagnostics:\n%s\nwant %q", buf, tt.want)
			}
		})
	}
}

package spirv

import (
	"testing"

	"github.com/gogpu/spvgen/ir"
	"github.com/gogpu/spvgen/types"
)

// chainedBranches builds a chain of n diamonds, each joining at a block with
// one float parameter.
func chainedBranches(n int) *ir.Label {
	fn := ir.NewFunction("main")
	out := output("color", types.F32)
	cur := fn
	for i := 0; i < n; i++ {
		then := block("then", 10*i+1)
		els := block("else", 10*i+2)
		join := block("join", 10*i+3)
		x := join.AddParam("x", types.F32)
		next := block("next", 10*i+4)

		cur.BranchTo(ir.Bool(i%2 == 0), then, els)
		then.Jump(join, ir.Float(float32(i)))
		els.Jump(join, ir.Float(-float32(i)))
		join.SetBody(ir.Store, next, x, out)
		cur = next
	}
	cur.Return(fn)
	return fn
}

func BenchmarkGenerate_ForLoop(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := NewGenerator(DefaultOptions()).Generate(TargetCompute, forLoop()); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkGenerate_Branches(b *testing.B) {
	entry := chainedBranches(64)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := NewGenerator(DefaultOptions()).Generate(TargetFragment, entry); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDisassemble(b *testing.B) {
	data, err := NewGenerator(DefaultOptions()).Generate(TargetFragment, chainedBranches(16))
	if err != nil {
		b.Fatal(err)
	}
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Disassemble(data); err != nil {
			b.Fatal(err)
		}
	}
}

func TestGenerate_ChainedBranches(t *testing.T) {
	m := generate(t, TargetFragment, chainedBranches(4))
	if n := m.Count(OpPhi); n != 4 {
		t.Errorf("got %d phis, want 4", n)
	}
	if n := m.Count(OpSelectionMerge); n != 4 {
		t.Errorf("got %d selection merges, want 4", n)
	}
}

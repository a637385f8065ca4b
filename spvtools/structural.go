package spvtools

import (
	"context"
	"slices"

	"github.com/gogpu/spvgen/diag"
	"github.com/gogpu/spvgen/spirv"
)

// StructuralValidator checks the rules the generator is responsible for
// without running an external tool:
//
//   - the header and the instruction word counts are well formed
//   - result ids are unique and below the bound
//   - every block starts with OpLabel and ends with exactly one terminator
//   - OpPhi appears only at the head of a block, with one pair per predecessor
//   - merge instructions come directly before a branch
//   - no block is the merge block of two headers
//   - every back edge enters a block that declares OpLoopMerge
//   - entry points name a function
//
// It does not type check instructions.
type StructuralValidator struct{}

// Validate implements Validator.
func (StructuralValidator) Validate(_ context.Context, binary []byte, out *diag.Buffer) error {
	m, err := spirv.Decode(binary)
	if err != nil {
		out.Addf(diag.SevError, "%v", err)
		return nil
	}
	c := &checker{m: m, out: out, defined: make(map[uint32]bool), functions: make(map[uint32]bool)}
	c.run()
	return nil
}

type checker struct {
	m         *spirv.Module
	out       *diag.Buffer
	defined   map[uint32]bool
	functions map[uint32]bool

	hasMemoryModel bool
	entryPoints    []uint32

	// per function
	inFunction bool
	inBlock    bool
	block      uint32
	atHead     bool
	preds      map[uint32][]uint32
	phis       []phiSite

	entry       uint32
	succs       map[uint32][]uint32
	terminators map[uint32]int
	mergeOwner  map[uint32]uint32
	loopHeaders map[uint32]bool
}

type phiSite struct {
	index  int
	block  uint32
	result uint32
	pairs  []uint32 // parent blocks
}

func (c *checker) errorf(index int, format string, args ...any) {
	c.out.Addf(diag.SevError, "instruction %d: "+format, append([]any{index}, args...)...)
}

func (c *checker) run() {
	if c.m.Bound == 0 {
		c.out.Addf(diag.SevError, "header bound is zero")
	}
	insts := c.m.Instructions
	for i, inst := range insts {
		c.checkResult(i, inst)
		switch inst.Opcode {
		case spirv.OpMemoryModel:
			c.hasMemoryModel = true
		case spirv.OpEntryPoint:
			if len(inst.Words) > 1 {
				c.entryPoints = append(c.entryPoints, inst.Words[1])
			}
		case spirv.OpFunction:
			if c.inFunction {
				c.errorf(i, "OpFunction inside a function")
			}
			if id, ok := inst.Result(); ok {
				c.functions[id] = true
			}
			c.inFunction = true
			c.preds = make(map[uint32][]uint32)
			c.phis = c.phis[:0]
			c.entry = 0
			c.succs = make(map[uint32][]uint32)
			c.terminators = make(map[uint32]int)
			c.mergeOwner = make(map[uint32]uint32)
			c.loopHeaders = make(map[uint32]bool)
		case spirv.OpFunctionParameter:
			if !c.inFunction || c.inBlock || c.block != 0 {
				c.errorf(i, "OpFunctionParameter outside a function header")
			}
		case spirv.OpFunctionEnd:
			if !c.inFunction {
				c.errorf(i, "OpFunctionEnd outside a function")
			}
			if c.inBlock {
				c.errorf(i, "block %%%d has no terminator", c.block)
			}
			c.checkPhis()
			c.checkBackEdges()
			c.inFunction, c.inBlock, c.block = false, false, 0
		case spirv.OpLabel:
			if !c.inFunction {
				c.errorf(i, "OpLabel outside a function")
			}
			if c.inBlock {
				c.errorf(i, "block %%%d has no terminator", c.block)
			}
			c.block, _ = inst.Result()
			c.inBlock, c.atHead = true, true
			if c.entry == 0 {
				c.entry = c.block
			}
		case spirv.OpPhi:
			c.inBlockOnly(i, inst)
			if !c.atHead {
				c.errorf(i, "OpPhi is not at the head of block %%%d", c.block)
			}
			site := phiSite{index: i, block: c.block}
			site.result, _ = inst.Result()
			for k := 3; k < len(inst.Words); k += 2 {
				site.pairs = append(site.pairs, inst.Words[k])
			}
			if (len(inst.Words)-2)%2 != 0 {
				c.errorf(i, "OpPhi has an odd number of operands")
			}
			c.phis = append(c.phis, site)
		case spirv.OpLine:
			c.inBlockOnly(i, inst)
		case spirv.OpSelectionMerge, spirv.OpLoopMerge:
			c.inBlockOnly(i, inst)
			c.atHead = false
			c.checkMerge(i, inst)
		default:
			if c.inFunction {
				c.inBlockOnly(i, inst)
				c.atHead = false
			}
			if inst.Opcode.IsTerminator() {
				c.recordEdges(i, inst)
				c.inBlock = false
			}
		}
	}
	if c.inFunction {
		c.out.Addf(diag.SevError, "missing OpFunctionEnd")
	}
	if !c.hasMemoryModel {
		c.out.Addf(diag.SevError, "missing OpMemoryModel")
	}
	for _, ep := range c.entryPoints {
		if !c.functions[ep] {
			c.out.Addf(diag.SevError, "entry point %%%d is not a function", ep)
		}
	}
}

func (c *checker) checkResult(i int, inst spirv.Instruction) {
	id, ok := inst.Result()
	if !ok {
		return
	}
	switch {
	case id == 0:
		c.errorf(i, "%s defines id 0", inst.Opcode)
	case id >= c.m.Bound:
		c.errorf(i, "%s defines %%%d which is not below the bound %d", inst.Opcode, id, c.m.Bound)
	case c.defined[id]:
		c.errorf(i, "%%%d is defined twice", id)
	}
	c.defined[id] = true
}

// inBlockOnly reports inst if it appears in a function outside any block.
func (c *checker) inBlockOnly(i int, inst spirv.Instruction) {
	if c.inFunction && !c.inBlock && inst.Opcode != spirv.OpFunctionParameter {
		c.errorf(i, "%s outside a block", inst.Opcode)
	}
}

func (c *checker) checkMerge(i int, inst spirv.Instruction) {
	insts := c.m.Instructions
	if i+1 >= len(insts) {
		c.errorf(i, "%s at the end of the module", inst.Opcode)
		return
	}
	next := insts[i+1].Opcode
	ok := next == spirv.OpBranchConditional
	switch inst.Opcode {
	case spirv.OpSelectionMerge:
		ok = ok || next == spirv.OpSwitch
	case spirv.OpLoopMerge:
		ok = ok || next == spirv.OpBranch
	}
	if !ok {
		c.errorf(i, "%s is followed by %s instead of a branch", inst.Opcode, next)
	}
	if !c.inFunction || len(inst.Words) == 0 {
		return
	}
	target := inst.Words[0]
	if owner, taken := c.mergeOwner[target]; taken && owner != c.block {
		c.errorf(i, "block %%%d is the merge block of both %%%d and %%%d", target, owner, c.block)
	} else {
		c.mergeOwner[target] = c.block
	}
	if inst.Opcode == spirv.OpLoopMerge {
		c.loopHeaders[c.block] = true
	}
}

func (c *checker) recordEdges(i int, inst spirv.Instruction) {
	if !c.inBlock {
		return
	}
	var targets []uint32
	w := inst.Words
	switch inst.Opcode {
	case spirv.OpBranch:
		if len(w) > 0 {
			targets = w[:1]
		}
	case spirv.OpBranchConditional:
		if len(w) > 2 {
			targets = w[1:3]
		}
	case spirv.OpSwitch:
		if len(w) > 1 {
			targets = append(targets, w[1])
		}
		for k := 3; k < len(w); k += 2 {
			targets = append(targets, w[k])
		}
	}
	for _, t := range targets {
		if !slices.Contains(c.preds[t], c.block) {
			c.preds[t] = append(c.preds[t], c.block)
		}
	}
	c.succs[c.block] = slices.Clone(targets)
	c.terminators[c.block] = i
}

// checkBackEdges walks the blocks depth first from the entry. An edge to a
// block on the current path closes a cycle, and its target must be a loop
// header.
func (c *checker) checkBackEdges() {
	if c.entry == 0 {
		return
	}
	const (
		onPath = 1
		done   = 2
	)
	type frame struct {
		block uint32
		next  int
	}
	state := map[uint32]int{c.entry: onPath}
	stack := []frame{{block: c.entry}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		succs := c.succs[top.block]
		if top.next == len(succs) {
			state[top.block] = done
			stack = stack[:len(stack)-1]
			continue
		}
		to := succs[top.next]
		top.next++
		switch state[to] {
		case onPath:
			if !c.loopHeaders[to] {
				c.errorf(c.terminators[top.block], "back edge from %%%d to %%%d, which has no OpLoopMerge",
					top.block, to)
			}
		case 0:
			state[to] = onPath
			stack = append(stack, frame{block: to})
		}
	}
}

func (c *checker) checkPhis() {
	for _, site := range c.phis {
		preds := c.preds[site.block]
		if len(site.pairs) != len(preds) {
			c.errorf(site.index, "OpPhi %%%d has %d incoming pairs but block %%%d has %d predecessors",
				site.result, len(site.pairs), site.block, len(preds))
			continue
		}
		for _, parent := range site.pairs {
			if !slices.Contains(preds, parent) {
				c.errorf(site.index, "OpPhi %%%d names %%%d which is not a predecessor of %%%d",
					site.result, parent, site.block)
			}
		}
	}
}

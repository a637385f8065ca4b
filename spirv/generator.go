package spirv

import (
	"fmt"
	"sort"
	"strings"

	"fortio.org/safecast"

	"github.com/gogpu/spvgen/cfg"
	"github.com/gogpu/spvgen/diag"
	"github.com/gogpu/spvgen/ir"
	"github.com/gogpu/spvgen/types"
)

// Target names accepted by Generate.
const (
	TargetVertex   = "vertex"
	TargetFragment = "fragment"
	TargetGeometry = "geometry"
	TargetCompute  = "compute"
)

var targetModels = map[string]ExecutionModel{
	TargetVertex:   ExecutionModelVertex,
	TargetFragment: ExecutionModelFragment,
	TargetGeometry: ExecutionModelGeometry,
	TargetCompute:  ExecutionModelGLCompute,
}

// Targets returns the supported target names in a stable order.
func Targets() []string {
	return []string{TargetVertex, TargetFragment, TargetGeometry, TargetCompute}
}

type labelKey struct {
	fn    *ir.Label
	label *ir.Label
}

type paramKey struct {
	fn    *ir.Label
	param *ir.Parameter
}

type typeFlags uint8

const (
	// flagBlock marks the struct behind a Uniform, StorageBuffer or
	// PushConstant variable.
	flagBlock typeFlags = 1 << iota

	// flagLayout requests explicit offsets and strides.
	flagLayout
)

type typeKey struct {
	t     types.Type
	flags typeFlags
}

// value is a lowered SPIR-V id together with its IR type. For pointers,
// flags describe how the pointee was lowered.
type value struct {
	id    uint32
	typ   types.Type
	flags typeFlags
}

type pendingBlock struct {
	label     *ir.Label
	block     *Block
	redirects *redirect
}

// redirect sends jumps to label into block instead of the label's own block.
// A construct whose natural merge already belongs to an enclosing construct
// merges at a fresh block that forwards to it.
type redirect struct {
	label  *ir.Label
	block  *Block
	phis   []*Phi
	parent *redirect
}

// Generator lowers a label graph into a SPIR-V module. A Generator is used
// for a single Generate call.
type Generator struct {
	opts    Options
	builder *ModuleBuilder

	users *ir.UserMap
	scc   *cfg.SCC

	// fn is the function currently being lowered.
	fn               *ir.Label
	functions        map[*ir.Label]uint32
	pendingFunctions []*ir.Label
	todo             []pendingBlock

	// redirects apply to the block being lowered. claimed holds the blocks
	// of the current function that are a merge or continue target.
	redirects *redirect
	claimed   map[uint32]bool

	blocks   map[labelKey]*Block
	phis     map[labelKey][]*Phi
	params   map[paramKey]value
	typeIDs  map[typeKey]uint32
	constIDs map[string]uint32
	globals  map[*ir.Global]value
	loops    map[*cfg.Group]*cfg.Loop

	glslExt    uint32
	interfaces []uint32
	files      map[string]uint32
	lineBlock  *Block
	lastLine   diag.Anchor
}

// NewGenerator creates a generator with the given options.
func NewGenerator(opts Options) *Generator {
	return &Generator{
		opts:      opts,
		builder:   NewModuleBuilder(opts.Version),
		functions: make(map[*ir.Label]uint32),
		blocks:    make(map[labelKey]*Block),
		phis:      make(map[labelKey][]*Phi),
		params:    make(map[paramKey]value),
		typeIDs:   make(map[typeKey]uint32),
		constIDs:  make(map[string]uint32),
		globals:   make(map[*ir.Global]value),
		loops:     make(map[*cfg.Group]*cfg.Loop),
		files:     make(map[string]uint32),
	}
}

// Generate lowers the program reachable from entry for the named target and
// returns the SPIR-V binary.
func (g *Generator) Generate(target string, entry *ir.Label) ([]byte, error) {
	model, ok := targetModels[target]
	if !ok {
		return nil, diag.Errorf(diag.KindTarget, entry.Anchor,
			"unsupported target '%s', try one of %s", target, strings.Join(Targets(), ", "))
	}
	if err := entry.VerifyCompilable(); err != nil {
		return nil, err
	}
	ft, err := entry.FunctionType()
	if err != nil {
		return nil, err
	}
	if want := types.Function(types.Arguments(), nil, 0); ft != want {
		return nil, diag.Errorf(diag.KindTarget, entry.Anchor,
			"entry function must have type %s but has type %s", types.String(want), types.String(ft))
	}

	labels := entry.BuildReachable(make(map[*ir.Label]struct{}))
	g.users = ir.BuildUserMap(labels)
	g.scc = cfg.Build(labels)

	b := g.builder
	b.AddCapability(CapabilityShader)
	if model == ExecutionModelGeometry {
		b.AddCapability(CapabilityGeometry)
	}
	g.glslExt = b.AddExtInstImport("GLSL.std.450")
	b.SetMemoryModel(AddressingModelLogical, MemoryModelGLSL450)

	entryID, err := g.functionID(entry)
	if err != nil {
		return nil, err
	}
	for len(g.pendingFunctions) > 0 {
		fn := g.pendingFunctions[0]
		g.pendingFunctions = g.pendingFunctions[1:]
		if err := g.writeFunction(fn); err != nil {
			return nil, err
		}
	}

	name := entry.Name
	if name == "" {
		name = "main"
	}
	b.AddEntryPoint(model, entryID, name, g.interfaces)
	if err := g.writeExecutionModes(model, entryID); err != nil {
		return nil, err
	}

	binary, err := b.Build()
	if err != nil {
		return nil, diag.Wrap(diag.KindInternal, entry.Anchor, err, "encoding module")
	}
	if g.opts.Validate != nil {
		if err := g.opts.Validate(binary); err != nil {
			return nil, err
		}
	}
	return binary, nil
}

func (g *Generator) writeExecutionModes(model ExecutionModel, entryID uint32) error {
	b := g.builder
	switch model {
	case ExecutionModelFragment:
		b.AddExecutionMode(entryID, ExecutionModeOriginUpperLeft)
	case ExecutionModelGLCompute:
		size := g.opts.LocalSize
		if size == [3]uint32{} {
			size = [3]uint32{1, 1, 1}
		}
		b.AddExecutionMode(entryID, ExecutionModeLocalSize, size[0], size[1], size[2])
	case ExecutionModelGeometry:
		geo := g.opts.Geometry
		if geo.Invocations == 0 || geo.MaxVertices == 0 {
			return diag.Errorf(diag.KindTarget, diag.Anchor{},
				"geometry target needs nonzero invocations and output vertices")
		}
		b.AddExecutionMode(entryID, geo.Input)
		b.AddExecutionMode(entryID, ExecutionModeInvocations, geo.Invocations)
		b.AddExecutionMode(entryID, geo.Output)
		b.AddExecutionMode(entryID, ExecutionModeOutputVertices, geo.MaxVertices)
	}
	return nil
}

// functionID returns the id of fn, queuing it for lowering on first use.
func (g *Generator) functionID(fn *ir.Label) (uint32, error) {
	if id, ok := g.functions[fn]; ok {
		return id, nil
	}
	if err := fn.VerifyCompilable(); err != nil {
		return 0, err
	}
	id := g.builder.AllocID()
	g.functions[fn] = id
	g.pendingFunctions = append(g.pendingFunctions, fn)
	return id, nil
}

func (g *Generator) writeFunction(fn *ir.Label) error {
	b := g.builder
	ft, err := fn.FunctionType()
	if err != nil {
		return err
	}
	info, ok := types.Info(ft).(types.FunctionType)
	if !ok {
		return diag.Errorf(diag.KindInternal, fn.Anchor, "%s has no function type", fn.Name)
	}
	if info.Variadic() {
		return diag.Errorf(diag.KindUnsupported, fn.Anchor, "variadic function %s is not supported", fn.Name)
	}
	retID, err := g.typeToSPIRV(info.Return, 0)
	if err != nil {
		return g.at(err, fn.Anchor)
	}
	paramIDs := make([]uint32, len(info.Params))
	for i, p := range info.Params {
		if paramIDs[i], err = g.typeToSPIRV(p, 0); err != nil {
			return g.at(err, fn.Params[i+1].Anchor)
		}
	}
	fnType := b.AddTypeFunction(retID, paramIDs...)

	id := g.functions[fn]
	b.BeginFunction(id, retID, fnType, FunctionControlNone)
	g.fn = fn
	g.todo = g.todo[:0]
	g.redirects = nil
	g.claimed = make(map[uint32]bool)
	g.lineBlock = nil
	if g.opts.Debug && fn.Name != "" {
		b.AddName(id, fn.Name)
	}
	for i, p := range fn.Params[1:] {
		pid := b.AddFunctionParameter(paramIDs[i])
		g.bindParameter(p, value{id: pid, typ: p.Type})
		if g.opts.Debug && p.Name != "" {
			b.AddName(pid, p.Name)
		}
	}

	b.SetInsertBlock(b.NewBlock())
	if err := g.writeLabelBody(fn); err != nil {
		return err
	}
	for len(g.todo) > 0 {
		next := g.todo[0]
		g.todo = g.todo[1:]
		b.SetInsertBlock(next.block)
		g.redirects = next.redirects
		if err := g.writeLabelBody(next.label); err != nil {
			return err
		}
	}
	return nil
}

// writeLabelBody lowers l and every label inlined after it into the current
// block.
func (g *Generator) writeLabelBody(l *ir.Label) error {
	for l != nil {
		if err := g.enterLoop(l); err != nil {
			return err
		}
		next, err := g.writeBody(l)
		if err != nil {
			return err
		}
		l = next
	}
	return nil
}

// unhandledLoop returns the outermost loop group containing l that has not
// been entered yet, and the partition it belongs to. Entered loops are
// searched for nested ones.
func (g *Generator) unhandledLoop(l *ir.Label) (*cfg.SCC, *cfg.Group) {
	for s := g.scc; s != nil; {
		grp := s.Group(l)
		if grp == nil || !grp.IsLoop() {
			return nil, nil
		}
		loop, done := g.loops[grp]
		if !done {
			return s, grp
		}
		s = loop.Inner
	}
	return nil, nil
}

// enterLoop emits the loop header when l is the first label of an
// unhandled loop group.
func (g *Generator) enterLoop(l *ir.Label) error {
	s, grp := g.unhandledLoop(l)
	if grp == nil {
		return nil
	}
	loop, err := s.AnalyzeLoop(l, g.users)
	if err != nil {
		return err
	}
	g.loops[grp] = loop

	merge, err := g.mergeBlock(loop.Merge)
	if err != nil {
		return err
	}
	cont, _, err := g.blockFor(loop.Continue, true)
	if err != nil {
		return err
	}
	if loop.Continue != l && g.claimed[cont.ID] {
		return diag.Errorf(diag.KindStructure, loop.Continue.Anchor,
			"%s continues loop %s but already ends another construct", loop.Continue.Name, l.Name).
			WithNote(l.Anchor, "loop header")
	}
	g.claimed[cont.ID] = true

	b := g.builder
	b.AddLoopMerge(merge.ID, cont.ID, LoopControlNone)
	body := b.NewBlock()
	b.AddBranch(body.ID)
	b.SetInsertBlock(body)
	return nil
}

// loopOf returns the innermost entered loop containing l.
func (g *Generator) loopOf(l *ir.Label) *cfg.Loop {
	var inner *cfg.Loop
	for s := g.scc; s != nil; {
		grp := s.Group(l)
		if grp == nil {
			break
		}
		loop, ok := g.loops[grp]
		if !ok {
			break
		}
		inner, s = loop, loop.Inner
	}
	return inner
}

// blockFor returns the block a jump to l enters, following the redirects of
// the current construct, and the phis of that block.
func (g *Generator) blockFor(l *ir.Label, force bool) (*Block, []*Phi, error) {
	for r := g.redirects; r != nil; r = r.parent {
		if r.label == l {
			return r.block, r.phis, nil
		}
	}
	blk, err := g.labelToBasicBlock(l, force)
	if err != nil || blk == nil {
		return nil, nil, err
	}
	return blk, g.phis[labelKey{g.fn, l}], nil
}

// mergeBlock claims the block of l as the merge of a new construct. When an
// enclosing construct already merges there, a forwarding block becomes the
// merge instead, and jumps to l from inside the new construct go through it.
func (g *Generator) mergeBlock(l *ir.Label) (*Block, error) {
	target, phis, err := g.blockFor(l, true)
	if err != nil {
		return nil, err
	}
	if !g.claimed[target.ID] {
		g.claimed[target.ID] = true
		return target, nil
	}

	b := g.builder
	fwd := b.NewBlock()
	fwdPhis := make([]*Phi, len(phis))
	for i, p := range phis {
		fwdPhis[i] = b.AddPhi(fwd, p.ResultType)
		p.AddIncoming(fwdPhis[i].ID, fwd.ID)
	}
	cur := b.InsertBlock()
	b.SetInsertBlock(fwd)
	b.AddBranch(target.ID)
	b.SetInsertBlock(cur)

	g.claimed[fwd.ID] = true
	g.redirects = &redirect{label: l, block: fwd, phis: fwdPhis, parent: g.redirects}
	return fwd, nil
}

// labelToBasicBlock returns the block for l, creating it with one phi per
// parameter. Single-caller labels are inlined unless force is set.
func (g *Generator) labelToBasicBlock(l *ir.Label, force bool) (*Block, error) {
	key := labelKey{g.fn, l}
	if blk, ok := g.blocks[key]; ok {
		return blk, nil
	}
	if !force && g.users.HasSingleCaller(l) {
		return nil, nil
	}
	if !l.IsBasicBlockLike() {
		return nil, diag.Errorf(diag.KindConsistency, l.Anchor, "%s is not a basic block", l.Name)
	}
	b := g.builder
	blk := b.NewBlock()
	g.blocks[key] = blk
	for _, p := range l.Params[1:] {
		tid, err := g.typeToSPIRV(p.Type, 0)
		if err != nil {
			return nil, g.at(err, p.Anchor)
		}
		phi := b.AddPhi(blk, tid)
		g.phis[key] = append(g.phis[key], phi)
		g.bindParameter(p, value{id: phi.ID, typ: p.Type})
	}
	if g.opts.Debug && l.Name != "" {
		b.AddName(blk.ID, l.Name)
	}
	g.todo = append(g.todo, pendingBlock{label: l, block: blk, redirects: g.redirects})
	return blk, nil
}

func (g *Generator) bindParameter(p *ir.Parameter, v value) {
	key := paramKey{g.fn, p}
	if _, ok := g.params[key]; ok {
		panic(fmt.Sprintf("spirv: parameter %s of %s bound twice", p.Name, p.Label.Name))
	}
	g.params[key] = v
}

// writeBody lowers the body of l and returns the label to continue with
// inline, if any.
func (g *Generator) writeBody(l *ir.Label) (*ir.Label, error) {
	body := l.Body
	g.emitLine(body.Anchor)

	switch enter := body.Enter.(type) {
	case ir.Builtin:
		if enter == ir.Branch {
			return nil, g.writeBranch(l)
		}
		results, err := g.writeBuiltin(l, enter)
		if err != nil {
			return nil, err
		}
		return g.continueWith(l, results)
	case *ir.Label:
		if enter.IsBasicBlockLike() {
			values, err := g.positional(l, body.Args[1:])
			if err != nil {
				return nil, err
			}
			return g.jumpTo(l, enter, values)
		}
		results, err := g.writeCall(l, enter)
		if err != nil {
			return nil, err
		}
		return g.continueWith(l, results)
	case *ir.Parameter:
		if enter == g.fn.ReturnParam() {
			values, err := g.positional(l, body.Args[1:])
			if err != nil {
				return nil, err
			}
			return nil, g.writeReturn(l, values)
		}
		return nil, diag.Errorf(diag.KindUnsupported, body.Anchor, "cannot call parameter %s at runtime", enter.Name)
	case *ir.Closure:
		return nil, diag.Errorf(diag.KindUnsupported, body.Anchor, "cannot call closure of %s at runtime", enter.Label.Name)
	}
	return nil, diag.Errorf(diag.KindUnsupported, body.Anchor, "cannot call %T", body.Enter)
}

// continueWith passes results to the continuation of l.
func (g *Generator) continueWith(l *ir.Label, results []value) (*ir.Label, error) {
	if g.builder.InsertBlock().Terminated() {
		return nil, nil
	}
	switch cont := l.Continuation().(type) {
	case *ir.Parameter:
		if cont == g.fn.ReturnParam() {
			return nil, g.writeReturn(l, results)
		}
	case *ir.Label:
		if cont.IsBasicBlockLike() {
			return g.jumpTo(l, cont, results)
		}
	case ir.None:
		return nil, diag.Errorf(diag.KindConsistency, l.Body.Anchor, "unexpected end of function")
	}
	return nil, diag.Errorf(diag.KindConsistency, l.Body.Anchor, "continuation is of invalid type")
}

// jumpTo transfers values to target. A target without a block of its own is
// returned for inline lowering.
func (g *Generator) jumpTo(from, target *ir.Label, values []value) (*ir.Label, error) {
	if want := len(target.Params) - 1; len(values) != want {
		return nil, diag.Errorf(diag.KindConsistency, from.Body.Anchor,
			"%s takes %d arguments but %d were passed", target.Name, want, len(values)).
			WithNote(target.Anchor, "declared here")
	}
	_, grp := g.unhandledLoop(target)
	blk, phis, err := g.blockFor(target, grp != nil)
	if err != nil {
		return nil, err
	}
	if blk == nil {
		for i, p := range target.Params[1:] {
			v := values[i]
			v.typ = p.Type
			g.bindParameter(p, v)
		}
		return target, nil
	}
	pred := g.builder.InsertBlock().ID
	for i, phi := range phis {
		phi.AddIncoming(values[i].id, pred)
	}
	g.builder.AddBranch(blk.ID)
	return nil, nil
}

func (g *Generator) writeReturn(l *ir.Label, values []value) error {
	b := g.builder
	rl, ok := types.Info(g.fn.ReturnParam().Type).(types.ReturnLabelType)
	if !ok {
		return diag.Errorf(diag.KindInternal, g.fn.Anchor, "%s has no return label", g.fn.Name)
	}
	args, ok := types.Info(rl.Result).(types.ArgumentsType)
	if !ok {
		return diag.Errorf(diag.KindInternal, g.fn.Anchor, "%s returns %s", g.fn.Name, types.String(rl.Result))
	}
	if len(values) != len(args.Values) {
		return diag.Errorf(diag.KindConsistency, l.Body.Anchor,
			"%s returns %d values but %d were passed", g.fn.Name, len(args.Values), len(values))
	}
	switch len(values) {
	case 0:
		b.AddReturn()
	case 1:
		b.AddReturnValue(values[0].id)
	default:
		tid, err := g.typeToSPIRV(rl.Result, 0)
		if err != nil {
			return g.at(err, l.Body.Anchor)
		}
		b.AddReturnValue(b.AddCompositeConstruct(tid, ids(values)...))
	}
	return nil
}

func (g *Generator) writeCall(l *ir.Label, callee *ir.Label) ([]value, error) {
	b := g.builder
	fid, err := g.functionID(callee)
	if err != nil {
		return nil, err
	}
	ft, err := callee.FunctionType()
	if err != nil {
		return nil, err
	}
	info := types.Info(ft).(types.FunctionType)
	args, err := g.positional(l, l.Body.Args[1:])
	if err != nil {
		return nil, err
	}
	if len(args) != len(info.Params) {
		return nil, diag.Errorf(diag.KindConsistency, l.Body.Anchor,
			"%s takes %d arguments but %d were passed", callee.Name, len(info.Params), len(args)).
			WithNote(callee.Anchor, "declared here")
	}
	retID, err := g.typeToSPIRV(info.Return, 0)
	if err != nil {
		return nil, g.at(err, l.Body.Anchor)
	}
	result := b.AddFunctionCall(retID, fid, ids(args)...)

	ret, _ := types.Info(info.Return).(types.ArgumentsType)
	switch len(ret.Values) {
	case 0:
		return nil, nil
	case 1:
		return []value{{id: result, typ: ret.Values[0]}}, nil
	}
	out := make([]value, len(ret.Values))
	for i, t := range ret.Values {
		tid, err := g.typeToSPIRV(t, 0)
		if err != nil {
			return nil, g.at(err, l.Body.Anchor)
		}
		out[i] = value{id: b.AddCompositeExtract(tid, result, uint32(i)), typ: t}
	}
	return out, nil
}

func (g *Generator) writeBranch(l *ir.Label) error {
	b := g.builder
	anchor := l.Body.Anchor
	then, els, ok := l.BranchTargets()
	if !ok || len(l.Body.Args) != 4 {
		return diag.Errorf(diag.KindConsistency, anchor, "branch takes a condition and two labels")
	}
	for _, t := range [2]*ir.Label{then, els} {
		if len(t.Params) > 1 {
			return diag.Errorf(diag.KindConsistency, anchor, "branch target %s must not take parameters", t.Name).
				WithNote(t.Anchor, "declared here")
		}
	}
	cond, err := g.argumentToValue(l.Body.Args[1].Value, anchor)
	if err != nil {
		return err
	}

	// The arms are created under the redirect of this branch's merge.
	outer := g.redirects
	defer func() { g.redirects = outer }()
	merge, err := g.selectionMerge(l, then, els)
	if err != nil {
		return err
	}
	thenBlk, _, err := g.blockFor(then, true)
	if err != nil {
		return err
	}
	elseBlk, _, err := g.blockFor(els, true)
	if err != nil {
		return err
	}
	if merge != 0 {
		b.AddSelectionMerge(merge, SelectionControlNone)
	}
	b.AddBranchConditional(cond.id, thenBlk.ID, elseBlk.ID)
	return nil
}

// selectionMerge returns the merge block for a branch from l, or 0 when the
// branch leaves or continues the enclosing loop.
func (g *Generator) selectionMerge(l, then, els *ir.Label) (uint32, error) {
	loop := g.loopOf(l)
	isLoopTarget := func(t *ir.Label) bool {
		return loop != nil && (t == loop.Merge || t == loop.Continue)
	}
	if isLoopTarget(then) || isLoopTarget(els) {
		return 0, nil
	}
	if m, ok := cfg.FindMerge(then, els); ok && !isLoopTarget(m) {
		blk, err := g.mergeBlock(m)
		if err != nil {
			return 0, err
		}
		return blk.ID, nil
	}

	// Both sides leave the construct; merge at a block nothing reaches.
	b := g.builder
	cur := b.InsertBlock()
	blk := b.NewBlock()
	b.SetInsertBlock(blk)
	b.AddUnreachable()
	b.SetInsertBlock(cur)
	g.claimed[blk.ID] = true
	return blk.ID, nil
}

// positional lowers arguments that must all be positional.
func (g *Generator) positional(l *ir.Label, args []ir.Argument) ([]value, error) {
	out := make([]value, 0, len(args))
	for _, a := range args {
		if a.Key != "" {
			return nil, diag.Errorf(diag.KindUnsupported, l.Body.Anchor, "keyed argument %s is not supported here", a.Key)
		}
		v, err := g.argumentToValue(a.Value, l.Body.Anchor)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func ids(values []value) []uint32 {
	out := make([]uint32, len(values))
	for i, v := range values {
		out[i] = v.id
	}
	return out
}

// emitLine records the source position of the next instructions. The
// position is emitted once per block and anchor.
func (g *Generator) emitLine(anchor diag.Anchor) {
	if !g.opts.Debug || anchor.Path == "" {
		return
	}
	blk := g.builder.InsertBlock()
	if blk == g.lineBlock && anchor == g.lastLine {
		return
	}
	line, err := safecast.Conv[uint32](anchor.Line)
	if err != nil {
		return
	}
	column, err := safecast.Conv[uint32](anchor.Column)
	if err != nil {
		return
	}
	g.builder.AddLine(g.fileID(anchor.Path), line, column)
	g.lineBlock = blk
	g.lastLine = anchor
}

func (g *Generator) fileID(path string) uint32 {
	if id, ok := g.files[path]; ok {
		return id
	}
	id := g.builder.AddString(path)
	g.builder.AddSource(SourceLanguageUnknown, 100, id)
	g.files[path] = id
	return id
}

// Files returns the source files referenced by debug information.
func (g *Generator) Files() []string {
	files := make([]string, 0, len(g.files))
	for f := range g.files {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// at attaches anchor to err unless it already carries a location.
func (g *Generator) at(err error, anchor diag.Anchor) error {
	if e, ok := diag.AsError(err); ok {
		if e.Anchor.IsZero() {
			e.Anchor = anchor
		}
		return e
	}
	return diag.Wrap(diag.KindUnsupported, anchor, err, "unsupported type")
}

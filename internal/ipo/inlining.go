package ipo

import (
	"github.com/kolkov/bloomir/internal/ir"
	"github.com/kolkov/bloomir/internal/pass"
)

// InliningTag identifies the IPO inlining pass.
var InliningTag = pass.NewTag("ipo-inlining")

// InlineCandidate describes one direct call site that could be inlined or
// specialized (§4.15). Grounded on IPOInliningPass::InlineCandidate
// (include/bloom/ipo/inlining.hpp).
type InlineCandidate struct {
	CallSite        *ir.Node
	CalleeFunction  *ir.Node
	CallerFunction  *ir.Node
	CallerModule    *ir.Module
	CalleeModule    *ir.Module
	FunctionSize    int
	BenefitScore    int
	HasConstantArgs bool
}

// Inlining inlines small direct-call functions and specializes calls that
// pass constant arguments to larger ones (§4.15). Grounded on
// IPOInliningPass (include/bloom/ipo/inlining.hpp; no .cpp was retrieved
// in original_source, so calculate_benefit's exact formula is this port's
// own heuristic, documented at calculateInlineBenefit).
type Inlining struct {
	BasePass

	maxInlineSize        int
	minBenefitThreshold  int
	enableSpecialization bool

	specializer *FunctionSpecializer
}

// NewInlining creates an inlining pass with the original's defaults:
// inline only up to 15 nodes, require benefit >= 3, specialize
// constant-argument calls when specialization itself is profitable.
func NewInlining() *Inlining {
	return &Inlining{
		maxInlineSize:        15,
		minBenefitThreshold:  3,
		enableSpecialization: true,
		specializer:          NewFunctionSpecializer(),
	}
}

// SetEnableSpecialization toggles the specialize-before-inline branch,
// mirroring the original's enable_specialization field (also a plain
// public member there).
func (p *Inlining) SetEnableSpecialization(enable bool) { p.enableSpecialization = enable }

// Specializer returns the inliner's embedded FunctionSpecializer so a
// driver can retune its thresholds (max call sites, max function size,
// min benefit) without duplicating the inliner's wiring.
func (p *Inlining) Specializer() *FunctionSpecializer { return p.specializer }

func (*Inlining) Tag() pass.Tag { return InliningTag }
func (*Inlining) Name() string  { return "ipo-inlining" }
func (*Inlining) Description() string {
	return "inlines small functions and specializes functions with constant arguments"
}
func (*Inlining) Requires() []pass.Tag { return []pass.Tag{CallGraphTag} }

func (p *Inlining) Run(modules []*ir.Module, ctx *Context) bool {
	cgResult, ok := getOrComputeCallGraph(modules, ctx)
	if !ok {
		return false
	}
	graph := cgResult.CallGraph()

	candidates := findInlineCandidates(modules, graph)

	var inlined, specialized uint64
	for _, cand := range candidates {
		if !p.shouldOptimize(cand, graph) {
			continue
		}
		if cand.HasConstantArgs && p.enableSpecialization {
			if clone := p.trySpecialize(cand, modules); clone != nil {
				specialized++
				continue
			}
		}
		if tryInline(cand, modules) {
			inlined++
		}
	}

	ctx.UpdateStat("ipo_inlining.inlined_calls", inlined)
	ctx.UpdateStat("ipo_inlining.specialized_calls", specialized)
	return inlined+specialized > 0
}

func (p *Inlining) shouldOptimize(cand *InlineCandidate, graph *CallGraph) bool {
	if cand.FunctionSize > p.maxInlineSize {
		return false
	}
	if cand.BenefitScore < p.minBenefitThreshold {
		return false
	}
	return !isRecursiveInline(cand, graph)
}

// isRecursiveInline rejects a direct self-call or a call whose callee can
// reach the caller again through the call graph — inlining either would
// recurse forever while expanding the clone (§4.15 "Reject recursion:
// direct self-call or indirect via callgraph cycle containing the
// caller").
func isRecursiveInline(cand *InlineCandidate, graph *CallGraph) bool {
	if cand.CallerFunction == cand.CalleeFunction {
		return true
	}
	calleeNode := graph.GetNode(cand.CalleeFunction)
	if calleeNode == nil {
		return false
	}
	visited := make(map[*CallGraphNode]bool)
	var visit func(n *CallGraphNode) bool
	visit = func(n *CallGraphNode) bool {
		if visited[n] {
			return false
		}
		visited[n] = true
		for _, c := range n.Callees() {
			if c.Function == cand.CallerFunction {
				return true
			}
			if visit(c) {
				return true
			}
		}
		return false
	}
	return visit(calleeNode)
}

// findInlineCandidates walks every function's body for direct (statically
// known callee) call/invoke sites. Indirect calls are never inlining
// candidates since there is no single callee body to splice in.
func findInlineCandidates(modules []*ir.Module, graph *CallGraph) []*InlineCandidate {
	var candidates []*InlineCandidate
	for _, m := range modules {
		for _, fn := range m.Funcs {
			body := m.FunctionRegion(fn)
			if body == nil {
				continue
			}
			collectDirectCallSites(body, fn, m, modules, &candidates)
		}
	}
	return candidates
}

func collectDirectCallSites(region *ir.Region, caller *ir.Node, callerModule *ir.Module, modules []*ir.Module, out *[]*InlineCandidate) {
	for _, n := range region.Nodes {
		if n.Op != ir.OpCall && n.Op != ir.OpInvoke {
			continue
		}
		if len(n.Inputs) == 0 {
			continue
		}
		calleeOperand := n.Inputs[0]
		if calleeOperand.Op != ir.OpFunction {
			continue
		}

		cand := &InlineCandidate{
			CallSite:        n,
			CalleeFunction:  calleeOperand,
			CallerFunction:  caller,
			CallerModule:    callerModule,
			CalleeModule:    FindModuleForFunction(calleeOperand, modules),
			FunctionSize:    EstimateFunctionSize(calleeOperand, modules),
			HasConstantArgs: hasConstantArguments(n),
		}
		cand.BenefitScore = calculateInlineBenefit(cand)
		*out = append(*out, cand)
	}
	for _, c := range region.Children {
		collectDirectCallSites(c, caller, callerModule, modules, out)
	}
}

// FindModuleForFunction returns the module that defines fn, or nil.
func FindModuleForFunction(fn *ir.Node, modules []*ir.Module) *ir.Module {
	for _, m := range modules {
		if m.FunctionRegion(fn) != nil {
			return m
		}
	}
	return nil
}

func hasConstantArguments(callSite *ir.Node) bool {
	for _, arg := range callSite.Inputs[1:] {
		if arg.Op == ir.OpLit {
			return true
		}
	}
	return false
}

// calculateInlineBenefit scores a candidate higher the smaller it is and
// the more its arguments are already known constants (letting constant
// folding clean up further downstream) — this port's own heuristic, since
// no .cpp body for calculate_benefit was available to ground it on.
func calculateInlineBenefit(cand *InlineCandidate) int {
	benefit := 1
	if cand.HasConstantArgs {
		benefit += 2
	}
	if cand.FunctionSize <= 5 {
		benefit += 2
	} else if cand.FunctionSize <= 15 {
		benefit++
	}
	return benefit
}

func (p *Inlining) trySpecialize(cand *InlineCandidate, modules []*ir.Module) *ir.Node {
	var params []SpecializedParam
	args := cand.CallSite.Inputs[1:]
	for i, a := range args {
		if a.Op == ir.OpLit {
			params = append(params, SpecializedParam{Index: i, Value: ConstantLattice(a.Type, a.Data)})
		}
	}
	if len(params) == 0 {
		return nil
	}

	req := &SpecializationRequest{
		Original:          cand.CalleeFunction,
		SpecializedParams: params,
		CallSites:         []*ir.Node{cand.CallSite},
	}
	req.BenefitScore = CalculateBenefitScore(req)

	if !p.specializer.ShouldSpecialize(req, cand.FunctionSize) {
		return nil
	}
	clone := p.specializer.SpecializeFunction(req, cand.CallerModule, modules)
	if clone == nil {
		return nil
	}
	RedirectCallSites(req, req.CallSites, clone)
	return clone
}

// tryInline clones the callee's body into the caller's module, substitutes
// parameters with the call site's arguments, and splices the result in
// place of the call (§4.15 steps 1-5).
func tryInline(cand *InlineCandidate, modules []*ir.Module) bool {
	calleeRegion := FindFunctionRegion(cand.CalleeFunction, modules)
	if calleeRegion == nil {
		return false
	}

	mapping := make(map[*ir.Node]*ir.Node)
	clonedRegion := cloneRegionHierarchy(calleeRegion, cand.CallerModule, mapping)
	fixupNodeConnections(calleeRegion, clonedRegion, mapping)
	substituteInlineParameters(clonedRegion, cand.CallSite)

	retVal := extractReturnValue(clonedRegion)
	replaceCallWithBody(cand.CallSite, clonedRegion, retVal)
	return true
}

func substituteInlineParameters(region *ir.Region, callSite *ir.Node) {
	args := callSite.Inputs[1:]
	var paramNodes []*ir.Node
	for _, n := range region.Nodes {
		if n.Op == ir.OpParam {
			paramNodes = append(paramNodes, n)
		}
	}
	for i, param := range paramNodes {
		if i >= len(args) {
			break
		}
		param.ReplaceAllUsesWith(args[i])
		region.Remove(param)
	}
}

// extractReturnValue returns the inlined region's single RET's value, or
// nil for a void callee (§4.15 step 3).
func extractReturnValue(region *ir.Region) *ir.Node {
	term := region.Terminator()
	if term == nil || term.Op != ir.OpRet {
		return nil
	}
	if len(term.Inputs) == 0 {
		return nil
	}
	return term.Inputs[0]
}

// replaceCallWithBody splices the inlined region's nodes into the call
// site's region immediately before it, drops the inlined RET terminator
// (its value was already extracted), redirects every use of the call's
// result to the inlined value, and removes the call node (§4.15 steps
// 4-5).
func replaceCallWithBody(callSite *ir.Node, inlinedRegion *ir.Region, retVal *ir.Node) {
	callerRegion := callSite.Region
	if callerRegion == nil {
		return
	}

	for _, n := range inlinedRegion.Nodes {
		if n.Op == ir.OpRet {
			continue
		}
		callerRegion.InsertBefore(callSite, n)
	}
	for _, c := range inlinedRegion.Children {
		callerRegion.AddChild(c)
	}

	if retVal != nil {
		callSite.ReplaceAllUsesWith(retVal)
	}
	callerRegion.Remove(callSite)
	callSite.Unlink()
}

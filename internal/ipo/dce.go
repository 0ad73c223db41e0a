package ipo

import (
	"github.com/kolkov/bloomir/internal/ir"
	"github.com/kolkov/bloomir/internal/pass"
)

// DCETag identifies the IPO dead-function elimination pass.
var DCETag = pass.NewTag("ipo-dead-code-elimination")

// DCE removes functions unreachable from any entry point across every
// module in the run (§4.13). Grounded on IPODCEPass
// (include/bloom/ipo/dce.hpp, lib/ipo/dce.cpp).
type DCE struct{ BasePass }

func (*DCE) Tag() pass.Tag { return DCETag }
func (*DCE) Name() string  { return "ipo-dead-code-elimination" }
func (*DCE) Description() string {
	return "removes functions that are unreachable from any entry point"
}
func (*DCE) Requires() []pass.Tag { return []pass.Tag{CallGraphTag} }

func (p *DCE) Run(modules []*ir.Module, ctx *Context) bool {
	cgResult, ok := getOrComputeCallGraph(modules, ctx)
	if !ok {
		return false
	}

	reachable := make(map[*ir.Node]bool)
	markEntryPoints(modules, reachable)
	propagateReachability(cgResult.CallGraph(), reachable)

	var removed uint64
	for _, m := range modules {
		removed += removeUnreachableFunctions(m, reachable)
	}
	ctx.UpdateStat("ipo_dce.removed_functions", removed)
	return removed > 0
}

// getOrComputeCallGraph fetches the cached call graph result, running the
// analysis pass itself when nothing is cached yet — the same on-demand
// fallback pattern DSE/SROA/CSE use for their scalar analysis dependency.
func getOrComputeCallGraph(modules []*ir.Module, ctx *Context) (*CallGraphResult, bool) {
	if res, ok := ctx.GetResult(CallGraphTag); ok {
		cg, ok := res.(*CallGraphResult)
		return cg, ok
	}
	cgPass := &CallGraphAnalysisPass{}
	if !cgPass.Run(modules, ctx) {
		return nil, false
	}
	res, ok := ctx.GetResult(CallGraphTag)
	if !ok {
		return nil, false
	}
	cg, ok := res.(*CallGraphResult)
	return cg, ok
}

func markEntryPoints(modules []*ir.Module, reachable map[*ir.Node]bool) {
	for _, m := range modules {
		for _, fn := range m.Funcs {
			if isEntryPoint(fn) {
				reachable[fn] = true
			}
		}
	}
}

func isEntryPoint(fn *ir.Node) bool {
	if fn == nil || fn.Op != ir.OpFunction {
		return false
	}
	return fn.HasProp(ir.PropDriver) || fn.HasProp(ir.PropExport)
}

func propagateReachability(graph *CallGraph, reachable map[*ir.Node]bool) {
	var worklist []*ir.Node
	for fn := range reachable {
		worklist = append(worklist, fn)
	}

	for len(worklist) > 0 {
		current := worklist[0]
		worklist = worklist[1:]

		node := graph.GetNode(current)
		if node == nil {
			continue
		}
		for _, calleeNode := range node.Callees() {
			callee := calleeNode.Function
			if callee == nil || reachable[callee] {
				continue
			}
			reachable[callee] = true
			worklist = append(worklist, callee)
		}
	}
}

func removeUnreachableFunctions(m *ir.Module, reachable map[*ir.Node]bool) uint64 {
	var toRemove []*ir.Node
	for _, fn := range m.Funcs {
		if fn.Op == ir.OpFunction && !reachable[fn] {
			toRemove = append(toRemove, fn)
		}
	}
	for _, fn := range toRemove {
		m.RemoveFunction(fn)
		fn.Unlink()
		fn.Users = nil
	}
	return uint64(len(toRemove))
}

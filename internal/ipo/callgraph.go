package ipo

import (
	"github.com/kolkov/bloomir/internal/ir"
	"github.com/kolkov/bloomir/internal/pass"
)

// CallGraphTag identifies the call graph analysis pass.
var CallGraphTag = pass.NewTag("ipo-call-graph-analysis")

// CallGraphNode is one function's position in the call graph: who it
// calls, who calls it, and the call-site nodes that realize each edge
// (§4.12). Grounded on lib/ipo/callgraph.cpp's CallGraphNode.
type CallGraphNode struct {
	Function *ir.Node

	callees   []*CallGraphNode
	callers   []*CallGraphNode
	callSites []*ir.Node
}

func newCallGraphNode(fn *ir.Node) *CallGraphNode {
	return &CallGraphNode{Function: fn}
}

// AddCallee records callee as one of this node's call targets, deduped by
// identity (add_callee's linear find).
func (n *CallGraphNode) AddCallee(callee *CallGraphNode) {
	for _, c := range n.callees {
		if c == callee {
			return
		}
	}
	n.callees = append(n.callees, callee)
}

// AddCaller records caller as one of this node's call sources, deduped by
// identity.
func (n *CallGraphNode) AddCaller(caller *CallGraphNode) {
	for _, c := range n.callers {
		if c == caller {
			return
		}
	}
	n.callers = append(n.callers, caller)
}

// AddCallSite records the node (a CALL or INVOKE) realizing one edge out
// of this function.
func (n *CallGraphNode) AddCallSite(site *ir.Node) { n.callSites = append(n.callSites, site) }

// Callees returns the functions this function may call.
func (n *CallGraphNode) Callees() []*CallGraphNode { return n.callees }

// Callers returns the functions that may call this function.
func (n *CallGraphNode) Callers() []*CallGraphNode { return n.callers }

// CallSites returns every call/invoke node recorded against this function.
func (n *CallGraphNode) CallSites() []*ir.Node { return n.callSites }

// Calls reports whether this function may call other directly.
func (n *CallGraphNode) Calls(other *CallGraphNode) bool {
	for _, c := range n.callees {
		if c == other {
			return true
		}
	}
	return false
}

// CalledBy reports whether this function may be called by other.
func (n *CallGraphNode) CalledBy(other *CallGraphNode) bool {
	for _, c := range n.callers {
		if c == other {
			return true
		}
	}
	return false
}

// CallGraph is the directed graph of functions-calling-functions across
// every module analyzed in one run. Node order is insertion order, kept
// deterministic (§5 "Ordering") so entry-point/leaf/traversal results do
// not depend on map iteration.
type CallGraph struct {
	nodes map[*ir.Node]*CallGraphNode
	order []*ir.Node
}

// NewCallGraph creates an empty call graph.
func NewCallGraph() *CallGraph {
	return &CallGraph{nodes: make(map[*ir.Node]*CallGraphNode)}
}

// GetNode returns fn's node, or nil if fn was never seen.
func (g *CallGraph) GetNode(fn *ir.Node) *CallGraphNode { return g.nodes[fn] }

// GetOrCreateNode returns fn's node, creating one (in insertion order) on
// first sight.
func (g *CallGraph) GetOrCreateNode(fn *ir.Node) *CallGraphNode {
	if n, ok := g.nodes[fn]; ok {
		return n
	}
	n := newCallGraphNode(fn)
	g.nodes[fn] = n
	g.order = append(g.order, fn)
	return n
}

// AddEdge records a call from caller to callee realized by callSite.
func (g *CallGraph) AddEdge(caller, callee *ir.Node, callSite *ir.Node) {
	cn := g.GetOrCreateNode(caller)
	en := g.GetOrCreateNode(callee)
	cn.AddCallee(en)
	en.AddCaller(cn)
	cn.AddCallSite(callSite)
}

// Nodes returns every node in insertion order.
func (g *CallGraph) Nodes() []*CallGraphNode {
	out := make([]*CallGraphNode, len(g.order))
	for i, fn := range g.order {
		out[i] = g.nodes[fn]
	}
	return out
}

// EntryPoints returns nodes with no callers, in insertion order
// (get_entry_points).
func (g *CallGraph) EntryPoints() []*CallGraphNode {
	var out []*CallGraphNode
	for _, fn := range g.order {
		if n := g.nodes[fn]; len(n.callers) == 0 {
			out = append(out, n)
		}
	}
	return out
}

// LeafFunctions returns nodes with no callees, in insertion order
// (get_leaf_functions).
func (g *CallGraph) LeafFunctions() []*CallGraphNode {
	var out []*CallGraphNode
	for _, fn := range g.order {
		if n := g.nodes[fn]; len(n.callees) == 0 {
			out = append(out, n)
		}
	}
	return out
}

// HasCycles reports whether the graph contains a cycle, via DFS with a
// visited/in-stack pair (has_cycles).
func (g *CallGraph) HasCycles() bool {
	visited := make(map[*CallGraphNode]bool)
	inStack := make(map[*CallGraphNode]bool)

	var visit func(n *CallGraphNode) bool
	visit = func(n *CallGraphNode) bool {
		visited[n] = true
		inStack[n] = true
		for _, c := range n.callees {
			if inStack[c] {
				return true
			}
			if !visited[c] && visit(c) {
				return true
			}
		}
		inStack[n] = false
		return false
	}

	for _, fn := range g.order {
		n := g.nodes[fn]
		if !visited[n] && visit(n) {
			return true
		}
	}
	return false
}

// PostOrder returns every node in DFS post-order (get_post_order).
func (g *CallGraph) PostOrder() []*CallGraphNode {
	visited := make(map[*CallGraphNode]bool)
	var out []*CallGraphNode

	var visit func(n *CallGraphNode)
	visit = func(n *CallGraphNode) {
		visited[n] = true
		for _, c := range n.callees {
			if !visited[c] {
				visit(c)
			}
		}
		out = append(out, n)
	}

	for _, fn := range g.order {
		n := g.nodes[fn]
		if !visited[n] {
			visit(n)
		}
	}
	return out
}

// ReversePostOrder returns PostOrder reversed (get_reverse_post_order).
func (g *CallGraph) ReversePostOrder() []*CallGraphNode {
	po := g.PostOrder()
	out := make([]*CallGraphNode, len(po))
	for i, n := range po {
		out[len(po)-1-i] = n
	}
	return out
}

// TotalEdges returns the number of call sites recorded across the whole
// graph, used for the callgraph.total_edges statistic.
func (g *CallGraph) TotalEdges() int {
	var total int
	for _, fn := range g.order {
		total += len(g.nodes[fn].callSites)
	}
	return total
}

// CallGraphResult wraps a CallGraph for the IPO analysis cache. It always
// reports invalidated by any transform (the original's invalidated_by
// always returning true: a call graph is cheap enough to not bother with
// finer-grained invalidation), but only by the specific modules it
// analyzed.
type CallGraphResult struct {
	graph           *CallGraph
	analyzedModules map[*ir.Module]bool
}

// CallGraph returns the underlying graph.
func (r *CallGraphResult) CallGraph() *CallGraph { return r.graph }

func (r *CallGraphResult) InvalidatedByPass(pass.Tag) bool { return true }

func (r *CallGraphResult) InvalidatedByModules(changed map[*ir.Module]bool) bool {
	for m := range changed {
		if r.analyzedModules[m] {
			return true
		}
	}
	return false
}

// CallGraphAnalysisPass builds the whole-program call graph (§4.12).
// Grounded directly on lib/ipo/callgraph.cpp's CallGraphAnalysisPass::run.
type CallGraphAnalysisPass struct{ BasePass }

func (*CallGraphAnalysisPass) Tag() pass.Tag { return CallGraphTag }
func (*CallGraphAnalysisPass) Name() string  { return "ipo-call-graph-analysis" }
func (*CallGraphAnalysisPass) Description() string {
	return "builds the cross-module call graph from call/invoke sites"
}

func (p *CallGraphAnalysisPass) Run(modules []*ir.Module, ctx *Context) bool {
	graph := NewCallGraph()
	analyzed := make(map[*ir.Module]bool, len(modules))

	var globalFuncs []*ir.Node
	var totalFuncs uint64
	for _, m := range modules {
		analyzed[m] = true
		for _, fn := range m.Funcs {
			totalFuncs++
			if fn.HasProp(ir.PropExport) {
				globalFuncs = append(globalFuncs, fn)
			}
		}
	}

	for _, m := range modules {
		for _, fn := range m.Funcs {
			body := m.FunctionRegion(fn)
			if body == nil {
				continue
			}
			analyzeCallsInRegion(graph, fn, body, globalFuncs)
		}
	}

	res := &CallGraphResult{graph: graph, analyzedModules: analyzed}
	ctx.StoreResult(CallGraphTag, res)
	ctx.UpdateStat("callgraph.functions_analyzed", totalFuncs)
	ctx.UpdateStat("callgraph.global_functions", uint64(len(globalFuncs)))
	ctx.UpdateStat("callgraph.total_edges", uint64(graph.TotalEdges()))
	return true
}

// analyzeCallsInRegion walks caller's body recursively, adding an edge for
// every call/invoke site: a direct edge when the callee operand is itself
// a FUNCTION node, otherwise a conservative fan-out edge to every
// EXPORT-flagged global function (§4.12, "indirect calls ... conservatively
// add edges from F to every function with EXPORT set").
func analyzeCallsInRegion(graph *CallGraph, caller *ir.Node, region *ir.Region, globalFuncs []*ir.Node) {
	for _, n := range region.Nodes {
		if n.Op != ir.OpCall && n.Op != ir.OpInvoke {
			continue
		}
		if len(n.Inputs) == 0 {
			continue
		}
		calleeOperand := n.Inputs[0]
		if calleeOperand.Op == ir.OpFunction {
			graph.AddEdge(caller, calleeOperand, n)
			continue
		}
		for _, g := range globalFuncs {
			graph.AddEdge(caller, g, n)
		}
	}
	for _, c := range region.Children {
		analyzeCallsInRegion(graph, caller, c, globalFuncs)
	}
}

package ipo

import (
	"testing"

	"github.com/kolkov/bloomir/internal/ir"
)

// buildCallGraphModule builds a module with f() calling g(), and g calling
// nothing, for call graph structural tests.
func buildCallGraphModule(ctx *ir.Context) (m *ir.Module, f, g *ir.Node) {
	m = ctx.NewModule("callgraph_test")
	i32 := ir.PrimitiveType(ir.I32)

	gBody := ir.NewRegion()
	ctx.NewRet(gBody, ctx.NewIntLit(i32, 1))
	g = ctx.NewFunction(m, ctx.Strings.Intern("g"), i32, 0, gBody)

	fBody := ir.NewRegion()
	call := ctx.NewCall(fBody, i32, g)
	ctx.NewRet(fBody, call)
	f = ctx.NewFunction(m, ctx.Strings.Intern("f"), i32, ir.PropDriver, fBody)

	return m, f, g
}

func TestCallGraphAnalysisBuildsDirectEdge(t *testing.T) {
	ctx := ir.NewContext()
	m, f, g := buildCallGraphModule(ctx)

	p := &CallGraphAnalysisPass{}
	ipoCtx := NewContext([]*ir.Module{m}, 0, false)
	if ok := p.Run([]*ir.Module{m}, ipoCtx); !ok {
		t.Fatalf("Run returned false, want true")
	}

	res, ok := ipoCtx.GetResult(CallGraphTag)
	if !ok {
		t.Fatalf("no CallGraphResult stored")
	}
	cg := res.(*CallGraphResult).CallGraph()

	fNode := cg.GetNode(f)
	gNode := cg.GetNode(g)
	if fNode == nil || gNode == nil {
		t.Fatalf("expected both f and g to have call graph nodes")
	}
	if !fNode.Calls(gNode) {
		t.Errorf("f should call g")
	}
	if !gNode.CalledBy(fNode) {
		t.Errorf("g should be called by f")
	}

	entries := cg.EntryPoints()
	if len(entries) != 1 || entries[0] != fNode {
		t.Errorf("entry points = %v, want [f] (f has no callers)", entries)
	}

	leaves := cg.LeafFunctions()
	if len(leaves) != 1 || leaves[0] != gNode {
		t.Errorf("leaf functions = %v, want [g] (g calls nothing)", leaves)
	}

	if cg.HasCycles() {
		t.Errorf("acyclic graph reported as having cycles")
	}

	if got := ipoCtx.GetStat("callgraph.total_edges"); got != 1 {
		t.Errorf("total_edges = %d, want 1", got)
	}
}

func TestCallGraphHasCyclesDetectsRecursion(t *testing.T) {
	ctx := ir.NewContext()
	m := ctx.NewModule("callgraph_cycle_test")
	i32 := ir.PrimitiveType(ir.I32)

	aBody := ir.NewRegion()
	bBody := ir.NewRegion()

	a := ctx.NewFunction(m, ctx.Strings.Intern("a"), i32, 0, aBody)
	b := ctx.NewFunction(m, ctx.Strings.Intern("b"), i32, 0, bBody)

	callB := ctx.NewCall(aBody, i32, b)
	ctx.NewRet(aBody, callB)
	callA := ctx.NewCall(bBody, i32, a)
	ctx.NewRet(bBody, callA)

	p := &CallGraphAnalysisPass{}
	ipoCtx := NewContext([]*ir.Module{m}, 0, false)
	p.Run([]*ir.Module{m}, ipoCtx)

	res, _ := ipoCtx.GetResult(CallGraphTag)
	cg := res.(*CallGraphResult).CallGraph()
	if !cg.HasCycles() {
		t.Errorf("mutually recursive a<->b should report a cycle")
	}
}

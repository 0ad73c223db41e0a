package ipo

import (
	"testing"

	"github.com/kolkov/bloomir/internal/ir"
)

// TestInliningInlinesSmallDirectCall builds caller() { return add(2, 3) }
// where add is small enough to inline unconditionally (no constant-arg
// specialization path engaged since specialization is disabled here).
func TestInliningInlinesSmallDirectCall(t *testing.T) {
	ctx := ir.NewContext()
	m := ctx.NewModule("inline_test")
	i32 := ir.PrimitiveType(ir.I32)

	add, _, _ := buildAddFunction(ctx, m, "add")

	callerBody := ir.NewRegion()
	call := ctx.NewCall(callerBody, i32, add, ctx.NewIntLit(i32, 2), ctx.NewIntLit(i32, 3))
	ret := ctx.NewRet(callerBody, call)
	ctx.NewFunction(m, ctx.Strings.Intern("caller"), i32, ir.PropDriver, callerBody)

	modules := []*ir.Module{m}
	ipoCtx := NewContext(modules, 0, false)

	p := NewInlining()
	p.enableSpecialization = false // exercise the plain-clone-and-splice path

	if ok := p.Run(modules, ipoCtx); !ok {
		t.Fatalf("Run returned false, want true (one small inlinable call)")
	}
	if got := ipoCtx.GetStat("ipo_inlining.inlined_calls"); got != 1 {
		t.Errorf("inlined_calls = %d, want 1", got)
	}

	for _, n := range callerBody.Nodes {
		if n == call {
			t.Errorf("call site was not removed from the caller's region")
		}
	}
	if ret.Inputs[0] == call {
		t.Errorf("caller's ret still references the removed call node")
	}

	var sawAdd bool
	for _, n := range callerBody.Nodes {
		if n.Op == ir.OpAdd {
			sawAdd = true
		}
	}
	if !sawAdd {
		t.Errorf("inlined body's add node was not spliced into the caller")
	}
}

// TestInliningPrefersSpecializationForConstantArgs verifies the
// specialize-first branch engages for a call to a small callee with
// constant arguments when specialization is enabled, rather than always
// falling through to a plain inline.
func TestInliningPrefersSpecializationForConstantArgs(t *testing.T) {
	ctx := ir.NewContext()
	m := ctx.NewModule("inline_specialize_test")
	i32 := ir.PrimitiveType(ir.I32)

	add, _, _ := buildAddFunction(ctx, m, "add")

	callerBody := ir.NewRegion()
	call := ctx.NewCall(callerBody, i32, add, ctx.NewIntLit(i32, 10), ctx.NewIntLit(i32, 20))
	ctx.NewRet(callerBody, call)
	ctx.NewFunction(m, ctx.Strings.Intern("caller"), i32, ir.PropDriver, callerBody)

	modules := []*ir.Module{m}
	ipoCtx := NewContext(modules, 0, false)

	p := NewInlining()
	if ok := p.Run(modules, ipoCtx); !ok {
		t.Fatalf("Run returned false, want true")
	}

	inlined := ipoCtx.GetStat("ipo_inlining.inlined_calls")
	specialized := ipoCtx.GetStat("ipo_inlining.specialized_calls")
	if specialized != 1 || inlined != 0 {
		t.Errorf("inlined=%d specialized=%d, want inlined=0 specialized=1 (both args constant)", inlined, specialized)
	}
	if call.Inputs[0] == add {
		t.Errorf("call site should have been redirected to the specialized clone")
	}
}

func TestIsRecursiveInlineRejectsSelfCall(t *testing.T) {
	ctx := ir.NewContext()
	m := ctx.NewModule("inline_recursive_test")
	i32 := ir.PrimitiveType(ir.I32)

	body := ir.NewRegion()
	fn := ctx.NewFunction(m, ctx.Strings.Intern("fact"), i32, 0, body)
	selfCall := ctx.NewCall(body, i32, fn, ctx.NewIntLit(i32, 1))
	ctx.NewRet(body, selfCall)

	graph := NewCallGraph()
	graph.AddEdge(fn, fn, selfCall)

	cand := &InlineCandidate{CallSite: selfCall, CalleeFunction: fn, CallerFunction: fn}
	if !isRecursiveInline(cand, graph) {
		t.Errorf("direct self-call should be rejected as recursive")
	}
}

package ipo

import (
	"testing"

	"github.com/kolkov/bloomir/internal/ir"
)

// TestIPODCERemovesUnreachableFunctions builds main (DRIVER) calling used;
// m1 additionally defines dead1 and m2 defines dead2, which nothing calls.
// After DCE, dead1 and dead2 should be gone, main/used survive.
func TestIPODCERemovesUnreachableFunctions(t *testing.T) {
	ctx := ir.NewContext()
	i32 := ir.PrimitiveType(ir.I32)

	m1 := ctx.NewModule("m1")
	m2 := ctx.NewModule("m2")

	usedBody := ir.NewRegion()
	ctx.NewRet(usedBody, ctx.NewIntLit(i32, 1))
	used := ctx.NewFunction(m1, ctx.Strings.Intern("used"), i32, 0, usedBody)

	dead1Body := ir.NewRegion()
	ctx.NewRet(dead1Body, ctx.NewIntLit(i32, 2))
	ctx.NewFunction(m1, ctx.Strings.Intern("dead1"), i32, 0, dead1Body)

	mainBody := ir.NewRegion()
	call := ctx.NewCall(mainBody, i32, used)
	ctx.NewRet(mainBody, call)
	ctx.NewFunction(m1, ctx.Strings.Intern("main"), i32, ir.PropDriver, mainBody)

	dead2Body := ir.NewRegion()
	ctx.NewRet(dead2Body, ctx.NewIntLit(i32, 3))
	ctx.NewFunction(m2, ctx.Strings.Intern("dead2"), i32, 0, dead2Body)

	modules := []*ir.Module{m1, m2}
	ipoCtx := NewContext(modules, 0, false)

	p := &DCE{}
	if ok := p.Run(modules, ipoCtx); !ok {
		t.Fatalf("Run returned false, want true (two dead functions present)")
	}
	if got := ipoCtx.GetStat("ipo_dce.removed_functions"); got != 2 {
		t.Errorf("removed_functions = %d, want 2", got)
	}

	for _, fn := range m1.Funcs {
		if ctx.Strings.Get(fn.StrID) == "dead1" {
			t.Errorf("dead1 survived IPO-DCE")
		}
	}
	for _, fn := range m2.Funcs {
		if ctx.Strings.Get(fn.StrID) == "dead2" {
			t.Errorf("dead2 survived IPO-DCE")
		}
	}

	foundUsed, foundMain := false, false
	for _, fn := range m1.Funcs {
		switch ctx.Strings.Get(fn.StrID) {
		case "used":
			foundUsed = true
		case "main":
			foundMain = true
		}
	}
	if !foundUsed || !foundMain {
		t.Errorf("used/main should survive IPO-DCE, got used=%v main=%v", foundUsed, foundMain)
	}
}

func TestIPODCENoChangeWhenEverythingReachable(t *testing.T) {
	ctx := ir.NewContext()
	i32 := ir.PrimitiveType(ir.I32)
	m := ctx.NewModule("all_reachable")

	body := ir.NewRegion()
	ctx.NewRet(body, ctx.NewIntLit(i32, 1))
	ctx.NewFunction(m, ctx.Strings.Intern("main"), i32, ir.PropDriver, body)

	modules := []*ir.Module{m}
	ipoCtx := NewContext(modules, 0, false)
	p := &DCE{}
	if ok := p.Run(modules, ipoCtx); ok {
		t.Errorf("Run returned true, want false (nothing unreachable)")
	}
}

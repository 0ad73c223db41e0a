package ipo

import (
	"testing"

	"github.com/kolkov/bloomir/internal/ir"
)

// buildRedundantAddModule builds f(x) { a = x+1; b = x+1; return a+b } so
// the local CSE pass has exactly one redundant expression to merge.
func buildRedundantAddModule(ctx *ir.Context, name string) *ir.Module {
	m := ctx.NewModule(name)
	i32 := ir.PrimitiveType(ir.I32)
	body := ir.NewRegion()

	x := ctx.NewParam(body, i32, ctx.Strings.Intern("x"))
	a := ctx.NewBinOp(body, ir.OpAdd, i32, x, ctx.NewIntLit(i32, 1))
	b := ctx.NewBinOp(body, ir.OpAdd, i32, x, ctx.NewIntLit(i32, 1))
	c := ctx.NewBinOp(body, ir.OpAdd, i32, a, b)
	ctx.NewRet(body, c)

	ctx.NewFunction(m, ctx.Strings.Intern("f"), i32, 0, body)
	return m
}

func TestGVNRunsLocalCSEAcrossModules(t *testing.T) {
	ctx := ir.NewContext()
	m1 := buildRedundantAddModule(ctx, "gvn_test_1")
	m2 := buildRedundantAddModule(ctx, "gvn_test_2")

	modules := []*ir.Module{m1, m2}
	ipoCtx := NewContext(modules, 0, false)

	p := &GVN{}
	if ok := p.Run(modules, ipoCtx); !ok {
		t.Fatalf("Run returned false, want true (each module has one redundant expression)")
	}
	if got := ipoCtx.GetStat("ipo_gvn.total_eliminated"); got != 2 {
		t.Errorf("total_eliminated = %d, want 2 (one per module)", got)
	}
}

func TestGVNNoChangeWhenNothingRedundant(t *testing.T) {
	ctx := ir.NewContext()
	m := ctx.NewModule("gvn_test_clean")
	i32 := ir.PrimitiveType(ir.I32)
	body := ir.NewRegion()
	x := ctx.NewParam(body, i32, ctx.Strings.Intern("x"))
	ctx.NewRet(body, x)
	ctx.NewFunction(m, ctx.Strings.Intern("f"), i32, 0, body)

	modules := []*ir.Module{m}
	ipoCtx := NewContext(modules, 0, false)
	p := &GVN{}
	if ok := p.Run(modules, ipoCtx); ok {
		t.Errorf("Run returned true, want false (nothing redundant)")
	}
}

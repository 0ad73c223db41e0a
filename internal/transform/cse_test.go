package transform

import (
	"testing"

	"github.com/kolkov/bloomir/internal/ir"
	"github.com/kolkov/bloomir/internal/pass"
)

// TestCSEMergesIdenticalExpressions builds a = x+1, b = x+1 (two distinct
// literal-1 node instances) and c = a+b, expecting b to collapse into a so
// c ends up reading the same node on both sides.
func TestCSEMergesIdenticalExpressions(t *testing.T) {
	ctx := ir.NewContext()
	m := ctx.NewModule("cse_expr_test")
	i32 := ir.PrimitiveType(ir.I32)
	body := ir.NewRegion()

	x := ctx.NewParam(body, i32, ctx.Strings.Intern("x"))
	a := ctx.NewBinOp(body, ir.OpAdd, i32, x, ctx.NewIntLit(i32, 1))
	b := ctx.NewBinOp(body, ir.OpAdd, i32, x, ctx.NewIntLit(i32, 1))
	c := ctx.NewBinOp(body, ir.OpAdd, i32, a, b)
	ctx.NewRet(body, c)

	ctx.NewFunction(m, ctx.Strings.Intern("f"), i32, 0, body)

	p := &CSE{}
	pctx := pass.NewContext(m, 0, false)
	if ok := p.Run(m, pctx); !ok {
		t.Fatalf("Run returned false, want true")
	}
	if got := pctx.GetStat("cse.eliminated_expressions"); got != 1 {
		t.Errorf("eliminated = %d, want 1", got)
	}
	if c.Inputs[0] != a || c.Inputs[1] != a {
		t.Errorf("want both of c's inputs to be a after merging b into it, got %+v", c.Inputs)
	}
}

// TestCSEMergesLoadsWithNoInterveningStore builds a store followed by two
// loads of the same address with nothing between them, expecting the
// second load to merge into the first.
func TestCSEMergesLoadsWithNoInterveningStore(t *testing.T) {
	ctx := ir.NewContext()
	m := ctx.NewModule("cse_load_test")
	i32 := ir.PrimitiveType(ir.I32)
	body := ir.NewRegion()

	alloc := ctx.NewStackAlloc(body, i32)
	ctx.NewPtrStore(body, alloc, ctx.NewIntLit(i32, 5))
	load1 := ctx.NewPtrLoad(body, i32, alloc)
	load2 := ctx.NewPtrLoad(body, i32, alloc)
	sum := ctx.NewBinOp(body, ir.OpAdd, i32, load1, load2)
	ctx.NewRet(body, sum)

	ctx.NewFunction(m, ctx.Strings.Intern("g"), i32, 0, body)

	p := &CSE{}
	pctx := pass.NewContext(m, 0, false)
	if ok := p.Run(m, pctx); !ok {
		t.Fatalf("Run returned false, want true")
	}
	if got := pctx.GetStat("cse.eliminated_expressions"); got != 1 {
		t.Errorf("eliminated = %d, want 1", got)
	}
	if sum.Inputs[0] != sum.Inputs[1] {
		t.Errorf("want both loads merged to the same node, got %+v", sum.Inputs)
	}
}

// TestCSEKeepsLoadsAcrossInterveningStore makes sure a store between two
// otherwise-identical loads blocks the merge.
func TestCSEKeepsLoadsAcrossInterveningStore(t *testing.T) {
	ctx := ir.NewContext()
	m := ctx.NewModule("cse_load_store_test")
	i32 := ir.PrimitiveType(ir.I32)
	body := ir.NewRegion()

	alloc := ctx.NewStackAlloc(body, i32)
	ctx.NewPtrStore(body, alloc, ctx.NewIntLit(i32, 1))
	load1 := ctx.NewPtrLoad(body, i32, alloc)
	ctx.NewPtrStore(body, alloc, ctx.NewIntLit(i32, 2))
	load2 := ctx.NewPtrLoad(body, i32, alloc)
	sum := ctx.NewBinOp(body, ir.OpAdd, i32, load1, load2)
	ctx.NewRet(body, sum)

	ctx.NewFunction(m, ctx.Strings.Intern("h"), i32, 0, body)

	p := &CSE{}
	pctx := pass.NewContext(m, 0, false)
	p.Run(m, pctx)

	if got := pctx.GetStat("cse.eliminated_expressions"); got != 0 {
		t.Errorf("eliminated = %d, want 0 (store between the two loads)", got)
	}
	if sum.Inputs[0] == sum.Inputs[1] {
		t.Errorf("loads should not have merged across the intervening store")
	}
}

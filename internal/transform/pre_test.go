package transform

import (
	"testing"

	"github.com/kolkov/bloomir/internal/ir"
	"github.com/kolkov/bloomir/internal/pass"
)

// TestPREHoistsToCommonDominator builds a two-way branch: the function body
// computes nothing and branches into two child arms that each independently
// compute x+y (there is no join block). Both arms' add should collapse into
// one copy hoisted into the body, ahead of its branch.
func TestPREHoistsToCommonDominator(t *testing.T) {
	ctx := ir.NewContext()
	m := ctx.NewModule("pre_test")
	i32 := ir.PrimitiveType(ir.I32)

	fnBody := ir.NewRegion()
	thenR := ir.NewRegion()
	elseR := ir.NewRegion()
	fnBody.AddChild(thenR)
	fnBody.AddChild(elseR)

	x := ctx.NewParam(fnBody, i32, ctx.Strings.Intern("x"))
	y := ctx.NewParam(fnBody, i32, ctx.Strings.Intern("y"))
	cond := ctx.NewParam(fnBody, ir.PrimitiveType(ir.Bool), ctx.Strings.Intern("c"))

	thenEntry := ctx.NewEntry(thenR)
	sumThen := ctx.NewBinOp(thenR, ir.OpAdd, i32, x, y)
	ctx.NewRet(thenR, sumThen)

	elseEntry := ctx.NewEntry(elseR)
	sumElse := ctx.NewBinOp(elseR, ir.OpAdd, i32, x, y)
	ctx.NewRet(elseR, sumElse)

	ctx.NewBranch(fnBody, cond, thenEntry, elseEntry)

	fn := ctx.NewFunction(m, ctx.Strings.Intern("f"), i32, 0, fnBody)
	_ = fn

	p := &PRE{}
	pctx := pass.NewContext(m, 0, false)
	if ok := p.Run(m, pctx); !ok {
		t.Fatalf("Run returned false, want true")
	}
	if got := pctx.GetStat("pre.eliminated_expressions"); got != 2 {
		t.Errorf("eliminated = %d, want 2 (both arm-local adds fold into one hoisted copy)", got)
	}
}

func TestPRENoRedundancyNoChange(t *testing.T) {
	ctx := ir.NewContext()
	m := ctx.NewModule("pre_none")
	i32 := ir.PrimitiveType(ir.I32)
	body := ir.NewRegion()

	x := ctx.NewParam(body, i32, ctx.Strings.Intern("x"))
	y := ctx.NewParam(body, i32, ctx.Strings.Intern("y"))
	sum := ctx.NewBinOp(body, ir.OpAdd, i32, x, y)
	ctx.NewRet(body, sum)
	ctx.NewFunction(m, ctx.Strings.Intern("g"), i32, 0, body)

	p := &PRE{}
	pctx := pass.NewContext(m, 0, false)
	if ok := p.Run(m, pctx); ok {
		t.Errorf("Run returned true, want false (nothing redundant)")
	}
}

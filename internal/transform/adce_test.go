package transform

import (
	"testing"

	"github.com/kolkov/bloomir/internal/ir"
	"github.com/kolkov/bloomir/internal/pass"
)

// TestADCERemovesUnreachableRegion builds a function whose body always
// jumps to thenR, never to elseR -- elseR is structurally a child of the
// body region but no control-flow edge ever targets it, so ADCE should
// drop it entirely.
func TestADCERemovesUnreachableRegion(t *testing.T) {
	ctx := ir.NewContext()
	m := ctx.NewModule("adce_region_test")
	i32 := ir.PrimitiveType(ir.I32)

	body := ir.NewRegion()
	thenR := ir.NewRegion()
	elseR := ir.NewRegion()
	body.AddChild(thenR)
	body.AddChild(elseR)

	thenEntry := ctx.NewEntry(thenR)
	ctx.NewRet(thenR, ctx.NewIntLit(i32, 1))

	elseEntry := ctx.NewEntry(elseR)
	ctx.NewRet(elseR, ctx.NewIntLit(i32, 2))
	_ = elseEntry

	ctx.NewJump(body, thenEntry)

	ctx.NewFunction(m, ctx.Strings.Intern("f"), i32, 0, body)

	p := &ADCE{}
	pctx := pass.NewContext(m, 0, false)
	if ok := p.Run(m, pctx); !ok {
		t.Fatalf("Run returned false, want true (elseR unreachable)")
	}

	if got := pctx.GetStat("adce.removed_regions"); got != 1 {
		t.Errorf("removed_regions = %d, want 1 (elseR)", got)
	}
	for _, c := range body.Children {
		if c == elseR {
			t.Fatalf("elseR still attached to body's children after ADCE")
		}
	}
}

// TestADCERemovesDeadNodeInLiveRegion checks that a dead expression inside
// an otherwise-reachable region is still pruned (not just whole regions).
func TestADCERemovesDeadNodeInLiveRegion(t *testing.T) {
	ctx := ir.NewContext()
	m := ctx.NewModule("adce_node_test")
	i32 := ir.PrimitiveType(ir.I32)
	body := ir.NewRegion()

	p1 := ctx.NewParam(body, i32, ctx.Strings.Intern("x"))
	ctx.NewBinOp(body, ir.OpAdd, i32, p1, ctx.NewIntLit(i32, 1)) // dead
	ctx.NewRet(body, p1)

	ctx.NewFunction(m, ctx.Strings.Intern("g"), i32, 0, body)

	p := &ADCE{}
	pctx := pass.NewContext(m, 0, false)
	if ok := p.Run(m, pctx); !ok {
		t.Fatalf("Run returned false, want true (dead add present)")
	}
	// The literal operand is never a region member (NewIntLit doesn't
	// append), so only the dead add itself is swept from body.Nodes.
	if got := pctx.GetStat("adce.removed_nodes"); got != 1 {
		t.Errorf("removed_nodes = %d, want 1 (the dead add)", got)
	}
}

func TestADCENoChangeOnCleanFunction(t *testing.T) {
	ctx := ir.NewContext()
	m := ctx.NewModule("adce_clean")
	i32 := ir.PrimitiveType(ir.I32)
	body := ir.NewRegion()

	p1 := ctx.NewParam(body, i32, ctx.Strings.Intern("x"))
	ctx.NewRet(body, p1)
	ctx.NewFunction(m, ctx.Strings.Intern("h"), i32, 0, body)

	p := &ADCE{}
	pctx := pass.NewContext(m, 0, false)
	if ok := p.Run(m, pctx); ok {
		t.Errorf("Run returned true, want false (nothing dead/unreachable)")
	}
}

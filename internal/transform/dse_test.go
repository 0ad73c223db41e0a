package transform

import (
	"testing"

	"github.com/kolkov/bloomir/internal/ir"
	"github.com/kolkov/bloomir/internal/pass"
)

func TestDSERemovesOverwrittenStore(t *testing.T) {
	ctx := ir.NewContext()
	m := ctx.NewModule("dse_test")
	i32 := ir.PrimitiveType(ir.I32)
	body := ir.NewRegion()
	m.Regions = append(m.Regions, body)

	addr := ctx.NewStackAlloc(body, i32)
	ctx.NewStore(body, addr, ctx.NewIntLit(i32, 1))
	ctx.NewStore(body, addr, ctx.NewIntLit(i32, 2)) // overwrites the first before any load
	ctx.NewRet(body, nil)

	p := &DSE{}
	pctx := pass.NewContext(m, 0, false)
	if ok := p.Run(m, pctx); !ok {
		t.Fatalf("Run returned false, want true")
	}
	if got := pctx.GetStat("dse.removed_stores"); got != 1 {
		t.Errorf("removed = %d, want 1", got)
	}

	stores := 0
	for _, n := range body.Nodes {
		if n.Op == ir.OpStore {
			stores++
		}
	}
	if stores != 1 {
		t.Errorf("remaining stores = %d, want 1", stores)
	}
}

func TestDSEKeepsStoreFollowedByLoad(t *testing.T) {
	ctx := ir.NewContext()
	m := ctx.NewModule("dse_load_test")
	i32 := ir.PrimitiveType(ir.I32)
	body := ir.NewRegion()
	m.Regions = append(m.Regions, body)

	addr := ctx.NewStackAlloc(body, i32)
	ctx.NewStore(body, addr, ctx.NewIntLit(i32, 1))
	loaded := ctx.NewLoad(body, i32, addr)
	ctx.NewRet(body, loaded)

	p := &DSE{}
	pctx := pass.NewContext(m, 0, false)
	if ok := p.Run(m, pctx); ok {
		t.Errorf("Run returned true, want false (the store is read)")
	}
	if got := pctx.GetStat("dse.removed_stores"); got != 0 {
		t.Errorf("removed = %d, want 0", got)
	}
}

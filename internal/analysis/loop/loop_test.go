package loop

import (
	"testing"

	"github.com/kolkov/bloomir/internal/ir"
	"github.com/kolkov/bloomir/internal/pass"
)

// buildSimpleLoop constructs a counter loop:
//
//	fn(n):
//	  preheader: counter := 0; jump header
//	  header (child of fn body): c := load counter; branch c<n, body, exit
//	    body (child of header): store counter+1; jump header   <- back-edge
//	    exit (child of header): ret load counter
func buildSimpleLoop(t *testing.T) (*ir.Module, *ir.Node, *ir.Region, *ir.Region, *ir.Region) {
	t.Helper()
	ctx := ir.NewContext()
	m := ctx.NewModule("loop_test")
	i32 := ir.PrimitiveType(ir.I32)

	fnBody := ir.NewRegion()

	header := ir.NewRegion()
	fnBody.AddChild(header)
	body := ir.NewRegion()
	header.AddChild(body)
	exit := ir.NewRegion()
	header.AddChild(exit)

	headerEntry := ctx.NewEntry(header)
	bodyEntry := ctx.NewEntry(body)
	exitEntry := ctx.NewEntry(exit)

	counterPtr := ctx.NewStackAlloc(fnBody, i32)
	zero := ctx.NewIntLit(i32, 0)
	ctx.NewStore(fnBody, counterPtr, zero)
	ctx.NewJump(fnBody, headerEntry)

	n := ctx.NewParam(header, i32, ctx.Strings.Intern("n"))
	counter := ctx.NewLoad(header, i32, counterPtr)
	cond := ctx.NewBinOp(header, ir.OpLt, ir.PrimitiveType(ir.Bool), counter, n)
	ctx.NewBranch(header, cond, bodyEntry, exitEntry)

	one := ctx.NewIntLit(i32, 1)
	bodyCounter := ctx.NewLoad(body, i32, counterPtr)
	next := ctx.NewBinOp(body, ir.OpAdd, i32, bodyCounter, one)
	ctx.NewStore(body, counterPtr, next)
	ctx.NewJump(body, headerEntry)

	final := ctx.NewLoad(exit, i32, counterPtr)
	ctx.NewRet(exit, final)

	fn := ctx.NewFunction(m, ctx.Strings.Intern("simple_loop"), i32, 0, fnBody)
	return m, fn, header, body, exit
}

func TestDetectSimpleLoop(t *testing.T) {
	m, fn, header, body, exit := buildSimpleLoop(t)

	tree := analyzeFunction(m, m.FunctionRegion(fn))
	if len(tree.AllLoops) != 1 {
		t.Fatalf("got %d loops, want 1", len(tree.AllLoops))
	}
	l := tree.AllLoops[0]
	if l.Header != header {
		t.Errorf("header = %v, want %v", l.Header, header)
	}
	if !l.Contains(body) {
		t.Errorf("loop does not contain body region")
	}
	if l.Contains(exit) {
		t.Errorf("loop should not contain exit region")
	}
	if len(l.Exits) != 1 || l.Exits[0] != exit {
		t.Errorf("exits = %v, want [%v]", l.Exits, exit)
	}
	if !l.IsNatural() {
		t.Errorf("expected a natural (single-latch) loop")
	}
	if l.Parent != nil {
		t.Errorf("outermost loop should have no parent")
	}
	if tree.GetLoopFor(body) != l {
		t.Errorf("GetLoopFor(body) did not return the loop")
	}
}

func TestLoopAnalysisPassPopulatesStats(t *testing.T) {
	m, _, _, _, _ := buildSimpleLoop(t)

	p := &Pass{}
	pctx := pass.NewContext(m, 0, false)
	res, ok := p.Analyze(m, pctx)
	if !ok {
		t.Fatalf("Analyze returned ok=false")
	}
	lr := res.(*Result)
	if len(lr.functionLoops) != 1 {
		t.Fatalf("got %d functions with loops, want 1", len(lr.functionLoops))
	}
	if got := pctx.GetStat("loop_analysis.total_loops"); got != 1 {
		t.Errorf("loop_analysis.total_loops = %d, want 1", got)
	}
}

func TestNoLoopsInStraightLineFunction(t *testing.T) {
	ctx := ir.NewContext()
	m := ctx.NewModule("straight")
	i32 := ir.PrimitiveType(ir.I32)

	fnBody := ir.NewRegion()
	one := ctx.NewIntLit(i32, 1)
	ctx.NewRet(fnBody, one)
	fn := ctx.NewFunction(m, ctx.Strings.Intern("straight"), i32, 0, fnBody)

	tree := analyzeFunction(m, m.FunctionRegion(fn))
	if len(tree.AllLoops) != 0 {
		t.Fatalf("got %d loops, want 0", len(tree.AllLoops))
	}
}

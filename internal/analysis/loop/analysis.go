package loop

import (
	"github.com/kolkov/bloomir/internal/ir"
	"github.com/kolkov/bloomir/internal/pass"
)

// Tag identifies this analysis for pass dependency/invalidation wiring.
var Tag = pass.NewTag("loop-analysis")

// Pass detects loops in every function of a module (§4.3).
type Pass struct{ pass.BasePass }

func (*Pass) Tag() pass.Tag       { return Tag }
func (*Pass) Name() string        { return "loop-analysis" }
func (*Pass) Description() string {
	return "analyzes loop structure and builds loop trees for optimization"
}

func (p *Pass) Run(m *ir.Module, ctx *pass.Context) bool { return pass.RunAnalysis(p, m, ctx) }

// Result publishes the per-function loop tree, keyed by function node.
type Result struct {
	functionLoops map[*ir.Node]*Tree
}

func newResult() *Result { return &Result{functionLoops: make(map[*ir.Node]*Tree)} }

// InvalidatedBy always returns true: any transform may change the control
// flow the loop tree describes.
func (*Result) InvalidatedBy(pass.Tag) bool { return true }

// LoopsFor returns the loop tree computed for fn, or nil if fn has no body
// or no loops were found.
func (r *Result) LoopsFor(fn *ir.Node) *Tree { return r.functionLoops[fn] }

// LoopForRegion returns the innermost loop containing region within fn's
// loop tree, or nil.
func (r *Result) LoopForRegion(fn *ir.Node, region *ir.Region) *Loop {
	tree := r.functionLoops[fn]
	if tree == nil {
		return nil
	}
	return tree.GetLoopFor(region)
}

func (p *Pass) Analyze(m *ir.Module, ctx *pass.Context) (pass.Result, bool) {
	res := newResult()
	for _, fn := range m.Funcs {
		body := m.FunctionRegion(fn)
		if body == nil {
			continue
		}
		tree := analyzeFunction(m, body)
		if len(tree.AllLoops) > 0 {
			res.functionLoops[fn] = tree
		}
	}

	var totalLoops, maxDepth uint64
	for _, tree := range res.functionLoops {
		totalLoops += uint64(len(tree.AllLoops))
		if uint64(tree.MaxDepth) > maxDepth {
			maxDepth = uint64(tree.MaxDepth)
		}
	}
	ctx.UpdateStat("loop_analysis.total_loops", totalLoops)
	ctx.UpdateStat("loop_analysis.max_nesting_depth", maxDepth)

	return res, true
}

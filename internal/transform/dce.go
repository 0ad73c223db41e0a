package transform

import (
	"github.com/kolkov/bloomir/internal/ir"
	"github.com/kolkov/bloomir/internal/pass"
)

// DCETag identifies the dead-code-elimination pass.
var DCETag = pass.NewTag("dead-code-elimination")

// DCE removes nodes unreachable from any root via def-use chains, grounded
// on the original DCEPass::run (lib/transform/dce.cpp): a worklist seeded at
// every "root" node (control flow, side effects, calls, NO_OPTIMIZE) marks
// everything it transitively depends on live, then sweeps the rest.
//
// Unlike the original, which locates each function's region by matching the
// function's interned name against the root region's children, this port
// uses Module.FunctionRegion directly — the module already maintains that
// mapping, so the name-based search has no reason to exist here.
type DCE struct{ pass.BaseTransform }

func (*DCE) Tag() pass.Tag        { return DCETag }
func (*DCE) Name() string         { return "dead-code-elimination" }
func (*DCE) Description() string {
	return "removes nodes unreachable from any side-effecting root via def-use chains"
}

func (p *DCE) Run(m *ir.Module, ctx *pass.Context) bool {
	live := findLiveNodes(m)
	removed := removeDeadNodes(m, live)
	ctx.UpdateStat("dce.removed_nodes", removed)
	return removed > 0
}

func findLiveNodes(m *ir.Module) map[*ir.Node]bool {
	live := make(map[*ir.Node]bool)
	var worklist []*ir.Node

	seed := func(r *ir.Region) {
		var walk func(*ir.Region)
		walk = func(r *ir.Region) {
			for _, n := range r.Nodes {
				if isRootNode(n) && !live[n] {
					live[n] = true
					worklist = append(worklist, n)
				}
			}
			for _, c := range r.Children {
				walk(c)
			}
		}
		walk(r)
	}

	seed(m.Root)
	seed(m.Rodata)
	for _, fn := range m.Funcs {
		if body := m.FunctionRegion(fn); body != nil {
			seed(body)
		}
	}

	for len(worklist) > 0 {
		n := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for _, in := range n.Inputs {
			if in != nil && !live[in] {
				live[in] = true
				worklist = append(worklist, in)
			}
		}
	}
	return live
}

// isRootNode reports whether n must be kept regardless of whether anything
// uses its result: control flow, side-effecting memory/atomic operations,
// and calls (conservatively — per the original's comment, the safe way to
// remove a dead call is through IPO, not this local pass) are always roots,
// as is anything explicitly marked NO_OPTIMIZE.
func isRootNode(n *ir.Node) bool {
	if n.HasProp(ir.PropNoOptimize) {
		return true
	}
	switch n.Op {
	case ir.OpEntry, ir.OpExit, ir.OpFunction, ir.OpParam,
		ir.OpRet, ir.OpJump, ir.OpBranch, ir.OpInvoke,
		ir.OpStore, ir.OpPtrStore, ir.OpAtomicStore, ir.OpFree,
		ir.OpCall:
		return true
	}
	return false
}

func removeDeadNodes(m *ir.Module, live map[*ir.Node]bool) uint64 {
	var removed uint64
	var walk func(r *ir.Region)
	walk = func(r *ir.Region) {
		var dead []*ir.Node
		for _, n := range r.Nodes {
			if !live[n] {
				dead = append(dead, n)
			}
		}
		for _, n := range dead {
			n.Unlink()
			r.Remove(n)
			removed++
		}
		for _, c := range r.Children {
			walk(c)
		}
	}
	for _, top := range m.Regions {
		walk(top)
	}
	return removed
}

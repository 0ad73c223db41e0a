package transform

import (
	"github.com/kolkov/bloomir/internal/ir"
	"github.com/kolkov/bloomir/internal/pass"
)

// ADCETag identifies the aggressive-dead-code-elimination pass.
var ADCETag = pass.NewTag("aggressive-dead-code-elimination")

// ADCE is more aggressive than DCE (§4.5): besides pruning dead nodes, it
// follows control flow from every function's entry (plus the module root
// and .__rodata) to find whole regions that no path reaches at all, and
// drops those regions outright instead of merely emptying them node by
// node. Grounded on the original ADCEPass (lib/transform/adce.cpp,
// include/bloom/transform/adce.hpp), ported directly — it does not
// perform simplification, which is constfold's job.
type ADCE struct {
	pass.BaseTransform

	reachable map[*ir.Region]bool
	live      map[*ir.Node]bool
}

func (*ADCE) Tag() pass.Tag { return ADCETag }
func (*ADCE) Name() string  { return "aggressive-dead-code-elimination" }
func (*ADCE) Description() string {
	return "aggressively removes unreachable regions and dead control flow"
}

func (p *ADCE) Run(m *ir.Module, ctx *pass.Context) bool {
	p.reachable = make(map[*ir.Region]bool)
	p.live = make(map[*ir.Node]bool)

	p.markReachableRegions(m)
	p.markLiveNodes()
	removedRegions := p.removeUnreachableRegions(m)
	removedNodes := p.removeDeadNodes()

	ctx.UpdateStat("adce.removed_regions", removedRegions)
	ctx.UpdateStat("adce.removed_nodes", removedNodes)
	return removedRegions+removedNodes > 0
}

func (p *ADCE) markReachableRegions(m *ir.Module) {
	for _, fn := range m.Funcs {
		if body := m.FunctionRegion(fn); body != nil {
			p.markRegionReachable(m, body)
		}
	}
	p.markRegionReachable(m, m.Root)
	if m.Rodata != nil {
		p.markRegionReachable(m, m.Rodata) // .__rodata is always alive
	}
}

func (p *ADCE) markRegionReachable(m *ir.Module, region *ir.Region) {
	if region == nil || p.reachable[region] {
		return
	}
	p.reachable[region] = true

	for _, n := range region.Nodes {
		switch n.Op {
		case ir.OpJump:
			if len(n.Inputs) > 0 {
				p.markTargetRegionReachable(m, n.Inputs[0])
			}
		case ir.OpBranch:
			if len(n.Inputs) >= 3 {
				p.markTargetRegionReachable(m, n.Inputs[1])
				p.markTargetRegionReachable(m, n.Inputs[2])
			}
		case ir.OpInvoke:
			if l := len(n.Inputs); l >= 2 {
				p.markTargetRegionReachable(m, n.Inputs[l-2])
				p.markTargetRegionReachable(m, n.Inputs[l-1])
			}
		case ir.OpCall:
			if len(n.Inputs) > 0 {
				if callee := n.Inputs[0]; callee.Op == ir.OpFunction {
					if calleeRegion := m.FunctionRegion(callee); calleeRegion != nil {
						p.markRegionReachable(m, calleeRegion)
					}
				}
			}
		}
	}

	// Region-tree children are not implicitly reachable: only an explicit
	// jump/branch/invoke/call successor edge (handled above) marks one.
}

func (p *ADCE) markTargetRegionReachable(m *ir.Module, targetEntry *ir.Node) {
	if targetEntry == nil || targetEntry.Op != ir.OpEntry {
		return
	}
	if targetEntry.Region != nil {
		p.markRegionReachable(m, targetEntry.Region)
	}
}

func (p *ADCE) markLiveNodes() {
	var worklist []*ir.Node
	for region := range p.reachable {
		for _, n := range region.Nodes {
			if isCriticalNodeADCE(n) {
				if !p.live[n] {
					p.live[n] = true
					worklist = append(worklist, n)
				}
			}
		}
	}

	for len(worklist) > 0 {
		n := worklist[0]
		worklist = worklist[1:]
		for _, in := range n.Inputs {
			if in != nil && !p.live[in] {
				p.live[in] = true
				worklist = append(worklist, in)
			}
		}
	}
}

func isCriticalNodeADCE(n *ir.Node) bool {
	if n == nil {
		return false
	}
	switch n.Op {
	case ir.OpEntry, ir.OpExit, ir.OpFunction, ir.OpRet, ir.OpJump, ir.OpBranch,
		ir.OpInvoke, ir.OpStore, ir.OpPtrStore, ir.OpAtomicStore, ir.OpFree, ir.OpCall:
		return true
	default:
		return n.Props&ir.PropNoOptimize != 0
	}
}

func (p *ADCE) removeUnreachableRegions(m *ir.Module) uint64 {
	var all []*ir.Region
	var collect func(*ir.Region)
	collect = func(r *ir.Region) {
		if r == nil {
			return
		}
		all = append(all, r)
		for _, c := range r.Children {
			collect(c)
		}
	}
	for _, top := range m.Regions {
		collect(top)
	}

	var dead []*ir.Region
	for _, r := range all {
		if !p.reachable[r] {
			dead = append(dead, r)
		}
	}
	for _, r := range dead {
		if r.Parent != nil {
			r.Parent.RemoveChild(r)
		}
	}
	return uint64(len(dead))
}

func (p *ADCE) removeDeadNodes() uint64 {
	var removed uint64
	for region := range p.reachable {
		var deadNodes []*ir.Node
		for _, n := range region.Nodes {
			if !p.live[n] {
				deadNodes = append(deadNodes, n)
			}
		}
		for _, n := range deadNodes {
			n.Unlink()
			region.Remove(n)
			removed++
		}
	}
	return removed
}

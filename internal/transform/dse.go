package transform

import (
	"github.com/kolkov/bloomir/internal/analysis/alias"
	"github.com/kolkov/bloomir/internal/ir"
	"github.com/kolkov/bloomir/internal/pass"
)

// DSETag identifies the dead-store-elimination pass.
var DSETag = pass.NewTag("dead-store-elimination")

// DSE removes stores that are never read before being overwritten, grounded
// on the original DSEPass (lib/transform/dse.cpp): a per-region scan tracks
// the most recent store to each address, killing an earlier store once a
// later store to the same (or a covering) location proves it can never be
// observed, and keeping a store alive the moment a load or call could read
// it first.
type DSE struct{ pass.BaseTransform }

func (*DSE) Tag() pass.Tag        { return DSETag }
func (*DSE) Name() string         { return "dead-store-elimination" }
func (*DSE) Description() string {
	return "removes stores that are never read before being overwritten"
}

func (*DSE) Requires() []pass.Tag { return []pass.Tag{alias.Tag} }

func (p *DSE) Run(m *ir.Module, ctx *pass.Context) bool {
	res, ok := ctx.Get(alias.Tag).(*alias.Result)
	if !ok {
		a := &alias.Pass{}
		r, analyzed := a.Analyze(m, ctx)
		if !analyzed {
			return false
		}
		res = r.(*alias.Result)
	}

	var removed uint64
	for _, top := range m.Regions {
		removed += processRegionDSE(top, res)
	}
	ctx.UpdateStat("dse.removed_stores", removed)
	return removed > 0
}

func isStoreNode(n *ir.Node) bool {
	return n.Op == ir.OpStore || n.Op == ir.OpPtrStore || n.Op == ir.OpAtomicStore
}

func isLoadNode(n *ir.Node) bool {
	return n.Op == ir.OpLoad || n.Op == ir.OpPtrLoad || n.Op == ir.OpAtomicLoad
}

func isCallNode(n *ir.Node) bool { return n.Op == ir.OpCall || n.Op == ir.OpInvoke }

// storeAddress/storeValue follow this package's own build.go convention
// (Context.NewStore appends addr then value), the mirror image of the
// original's inputs[1]=addr/inputs[0]=value layout.
func storeAddress(n *ir.Node) *ir.Node {
	if len(n.Inputs) == 0 {
		return nil
	}
	return n.Inputs[0]
}

func storeValue(n *ir.Node) *ir.Node {
	if len(n.Inputs) < 2 {
		return nil
	}
	return n.Inputs[1]
}

func memoryAddress(n *ir.Node) *ir.Node {
	if isLoadNode(n) {
		if len(n.Inputs) == 0 {
			return nil
		}
		return n.Inputs[0]
	}
	if isStoreNode(n) {
		return storeAddress(n)
	}
	return nil
}

func processRegionDSE(r *ir.Region, res *alias.Result) uint64 {
	lastStoreTo := map[*ir.Node]*ir.Node{}
	potentiallyDead := map[*ir.Node]bool{}
	definitelyLive := map[*ir.Node]bool{}

	for _, n := range r.Nodes {
		switch {
		case isStoreNode(n):
			addr := storeAddress(n)
			if addr == nil {
				continue
			}
			if n.HasProp(ir.PropNoOptimize) {
				definitelyLive[n] = true
				continue
			}

			var toRemove []*ir.Node
			for otherAddr, otherStore := range lastStoreTo {
				if otherAddr == addr {
					continue
				}
				switch res.Alias(addr, otherAddr) {
				case alias.MustAlias:
					potentiallyDead[otherStore] = true
					toRemove = append(toRemove, otherAddr)
				case alias.PartialAlias:
					if canEliminatePartialOverlap(otherStore, n, otherAddr, addr, res) {
						potentiallyDead[otherStore] = true
						toRemove = append(toRemove, otherAddr)
					}
				}
			}
			if prior, ok := lastStoreTo[addr]; ok {
				potentiallyDead[prior] = true
			}
			for _, a := range toRemove {
				delete(lastStoreTo, a)
			}
			lastStoreTo[addr] = n

		case isLoadNode(n):
			addr := memoryAddress(n)
			if addr == nil {
				continue
			}
			for storeAddr, store := range lastStoreTo {
				if res.Alias(addr, storeAddr) != alias.NoAlias {
					definitelyLive[store] = true
					delete(potentiallyDead, store)
				}
			}

		case isCallNode(n):
			for storeAddr, store := range lastStoreTo {
				if res.HasEscaped(storeAddr) {
					definitelyLive[store] = true
					delete(potentiallyDead, store)
				}
			}
		}
	}

	var toRemove []*ir.Node
	for store := range potentiallyDead {
		if definitelyLive[store] {
			continue
		}
		addr := storeAddress(store)
		if addr != nil && !res.HasEscaped(addr) {
			toRemove = append(toRemove, store)
		}
	}

	var removed uint64
	for _, store := range toRemove {
		store.Unlink()
		r.Remove(store)
		removed++
	}

	for _, c := range r.Children {
		removed += processRegionDSE(c, res)
	}
	return removed
}

// canEliminatePartialOverlap decides whether a newer store makes an older,
// only-partially-overlapping store dead: either the new store's range
// completely covers the old one, or both stores write the identical range
// with the same value type (so the old write is pointless regardless of
// partial-overlap semantics).
func canEliminatePartialOverlap(oldStore, newStore, oldAddr, newAddr *ir.Node, res *alias.Result) bool {
	oldLoc, okOld := res.Location(oldAddr)
	newLoc, okNew := res.Location(newAddr)
	if !okOld || !okNew {
		return false
	}
	if oldLoc.Base != newLoc.Base || oldLoc.Offset == -1 || newLoc.Offset == -1 || oldLoc.Size == 0 || newLoc.Size == 0 {
		return false
	}

	oldStart, oldEnd := oldLoc.Offset, oldLoc.Offset+int64(oldLoc.Size)
	newStart, newEnd := newLoc.Offset, newLoc.Offset+int64(newLoc.Size)

	if newStart <= oldStart && newEnd >= oldEnd {
		return true
	}
	if oldLoc.Size == newLoc.Size && oldStart == newStart && storeValueType(oldStore) == storeValueType(newStore) {
		return true
	}
	return false
}

func storeValueType(store *ir.Node) ir.TypeID {
	v := storeValue(store)
	if v == nil {
		return ir.TypeID(0)
	}
	return v.Type
}

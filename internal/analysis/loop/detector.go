package loop

import "github.com/kolkov/bloomir/internal/ir"

type backEdge struct {
	source *ir.Region
	target *ir.Region
}

// analyzeFunction builds the loop tree for one function body region,
// grounded on the original LoopDetector::analyze_function (find back-edges,
// build a natural loop per edge, assemble the tree).
func analyzeFunction(m *ir.Module, functionRegion *ir.Region) *Tree {
	edges := findBackEdges(m, functionRegion)
	loops := make([]*Loop, 0, len(edges))
	for _, e := range edges {
		loops = append(loops, buildNaturalLoop(e))
	}
	return buildLoopTree(loops)
}

func visitRegions(root *ir.Region, visit func(*ir.Region)) {
	if root == nil {
		return
	}
	visit(root)
	for _, c := range root.Children {
		visitRegions(c, visit)
	}
}

func controlTargets(n *ir.Node) []*ir.Region {
	var out []*ir.Region
	for _, entry := range n.Successors() {
		if entry != nil && entry.Region != nil {
			out = append(out, entry.Region)
		}
	}
	return out
}

// findBackEdges walks every region in the function and flags a
// jump/branch/invoke target as a back-edge when the target dominates the
// source region — i.e. control can reach the source only by having already
// passed through the target, the defining property of a loop header.
func findBackEdges(m *ir.Module, root *ir.Region) []backEdge {
	var edges []backEdge
	visitRegions(root, func(region *ir.Region) {
		for _, n := range region.Nodes {
			if !n.Op.IsTerminator() {
				continue
			}
			for _, target := range controlTargets(n) {
				if target != nil && m.Dominates(target, region) {
					edges = append(edges, backEdge{source: region, target: target})
				}
			}
		}
	})
	return edges
}

func buildNaturalLoop(edge backEdge) *Loop {
	header, latch := edge.target, edge.source
	l := newLoop(header)
	l.Latches = append(l.Latches, latch)
	l.BodyRegions = findLoopBody(header, latch)

	seenExit := map[*ir.Region]bool{}
	for _, region := range l.AllRegions() {
		for _, n := range region.Nodes {
			if !n.Op.IsTerminator() {
				continue
			}
			for _, target := range controlTargets(n) {
				if target != nil && !l.Contains(target) && !seenExit[target] {
					seenExit[target] = true
					l.Exits = append(l.Exits, target)
				}
			}
		}
	}
	return l
}

// findLoopBody computes every region that can reach latch without passing
// through header: a backward worklist seeded at latch, grown over both
// unstructured control-flow predecessors and region-tree parent/child
// edges (the latter covering structured if/else bodies nested inside the
// loop that never themselves jump).
func findLoopBody(header, latch *ir.Region) map[*ir.Region]bool {
	body := map[*ir.Region]bool{latch: true}
	worklist := []*ir.Region{latch}

	for len(worklist) > 0 {
		current := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		if current == header {
			continue
		}

		visitRegions(header, func(candidate *ir.Region) {
			if body[candidate] || candidate == header {
				return
			}
			for _, n := range candidate.Nodes {
				if !n.Op.IsTerminator() {
					continue
				}
				for _, target := range controlTargets(n) {
					if target == current {
						body[candidate] = true
						worklist = append(worklist, candidate)
						return
					}
				}
			}
			if candidate.Parent == current {
				body[candidate] = true
				worklist = append(worklist, candidate)
				return
			}
			for _, child := range candidate.Children {
				if child == current {
					body[candidate] = true
					worklist = append(worklist, candidate)
					return
				}
			}
		})
	}

	if latch == header {
		delete(body, latch)
	}
	return body
}

func buildLoopTree(loops []*Loop) *Tree {
	tree := newTree()
	if len(loops) == 0 {
		return tree
	}

	establishLoopHierarchy(loops)
	for _, l := range loops {
		depth := 0
		for p := l.Parent; p != nil; p = p.Parent {
			depth++
		}
		l.Depth = depth
		if depth > tree.MaxDepth {
			tree.MaxDepth = depth
		}
		for _, region := range l.AllRegions() {
			if cur, ok := tree.RegionToLoop[region]; !ok || cur.Depth < l.Depth {
				tree.RegionToLoop[region] = l
			}
		}
		if l.Parent == nil {
			tree.RootLoops = append(tree.RootLoops, l)
		}
		tree.AllLoops = append(tree.AllLoops, l)
	}
	return tree
}

// establishLoopHierarchy assigns each loop the smallest other loop that
// contains its header as its parent, the same nearest-enclosing-loop rule
// the original uses.
func establishLoopHierarchy(loops []*Loop) {
	for _, l := range loops {
		var best *Loop
		bestSize := int(^uint(0) >> 1)
		for _, cand := range loops {
			if cand == l {
				continue
			}
			if cand.Contains(l.Header) {
				size := len(cand.AllRegions())
				if size < bestSize {
					best, bestSize = cand, size
				}
			}
		}
		if best != nil {
			l.Parent = best
			best.Children = append(best.Children, l)
		}
	}
}

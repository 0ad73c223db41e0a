// Package loop detects natural loops from the region tree's unstructured
// back-edges and assembles them into a per-function loop tree (§4.3).
package loop

import "github.com/kolkov/bloomir/internal/ir"

// Loop is one natural loop: a header region, the body regions reachable
// from its latch without passing back through the header, its exits, and
// its place in the nesting hierarchy.
type Loop struct {
	Header      *ir.Region
	BodyRegions map[*ir.Region]bool
	Exits       []*ir.Region
	Latches     []*ir.Region

	Parent   *Loop
	Children []*Loop
	Depth    int
}

func newLoop(header *ir.Region) *Loop {
	return &Loop{Header: header, BodyRegions: make(map[*ir.Region]bool)}
}

// Contains reports whether region is this loop's header or one of its body
// regions.
func (l *Loop) Contains(region *ir.Region) bool {
	return region == l.Header || l.BodyRegions[region]
}

// IsNatural reports whether this loop has exactly one latch (single
// back-edge source) — the common case; more than one means irreducible
// control flow folded into a single header.
func (l *Loop) IsNatural() bool { return len(l.Latches) == 1 }

// AllRegions returns the header followed by every body region, in no
// particular order beyond header-first.
func (l *Loop) AllRegions() []*ir.Region {
	all := make([]*ir.Region, 0, 1+len(l.BodyRegions))
	all = append(all, l.Header)
	for r := range l.BodyRegions {
		all = append(all, r)
	}
	return all
}

// Tree is the complete set of loops detected in one function.
type Tree struct {
	RootLoops    []*Loop
	AllLoops     []*Loop
	RegionToLoop map[*ir.Region]*Loop
	MaxDepth     int
}

func newTree() *Tree {
	return &Tree{RegionToLoop: make(map[*ir.Region]*Loop)}
}

// GetLoopFor returns the innermost loop containing region, or nil.
func (t *Tree) GetLoopFor(region *ir.Region) *Loop { return t.RegionToLoop[region] }

// VisitPostOrder calls fn for every loop, children before parent.
func (t *Tree) VisitPostOrder(fn func(*Loop)) {
	var walk func(*Loop)
	walk = func(l *Loop) {
		for _, c := range l.Children {
			walk(c)
		}
		fn(l)
	}
	for _, root := range t.RootLoops {
		walk(root)
	}
}

// VisitPreOrder calls fn for every loop, parent before children.
func (t *Tree) VisitPreOrder(fn func(*Loop)) {
	var walk func(*Loop)
	walk = func(l *Loop) {
		fn(l)
		for _, c := range l.Children {
			walk(c)
		}
	}
	for _, root := range t.RootLoops {
		walk(root)
	}
}

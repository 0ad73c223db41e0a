// Package alias implements local (intraprocedural) alias analysis (§4.2):
// per-function memory-location and escape information used by DSE and CSE.
package alias

import (
	"github.com/kolkov/bloomir/internal/ir"
	"github.com/kolkov/bloomir/internal/pass"
)

// Relation is an alias-analysis verdict (GLOSSARY, original's
// support/relation.hpp naming).
type Relation uint8

const (
	NoAlias Relation = iota
	MayAlias
	MustAlias
	PartialAlias
)

func (r Relation) String() string {
	switch r {
	case NoAlias:
		return "no"
	case MayAlias:
		return "may"
	case MustAlias:
		return "must"
	case PartialAlias:
		return "partial"
	}
	return "?"
}

// Location is a resolved memory location: a base (allocation site or
// parameter/escaped pointer), an offset from it (-1 if unknown), and a
// size in bytes (0 if unknown).
type Location struct {
	Base   *ir.Node
	Offset int64
	Size   uint64
}

const unknownOffset = -1

// Result is the published per-function analysis (§4.2).
type Result struct {
	locations  map[*ir.Node]Location
	allocSites map[*ir.Node]bool
	escaped    map[*ir.Node]bool
	copies     map[*ir.Node]*ir.Node // pointer-producing copy -> source

	storeToLoads map[*ir.Node]map[*ir.Node]bool
	loadToStores map[*ir.Node]map[*ir.Node]bool
	allLoads     map[*ir.Node]bool
	allStores    map[*ir.Node]bool
}

func newResult() *Result {
	return &Result{
		locations:    make(map[*ir.Node]Location),
		allocSites:   make(map[*ir.Node]bool),
		escaped:      make(map[*ir.Node]bool),
		copies:       make(map[*ir.Node]*ir.Node),
		storeToLoads: make(map[*ir.Node]map[*ir.Node]bool),
		loadToStores: make(map[*ir.Node]map[*ir.Node]bool),
		allLoads:     make(map[*ir.Node]bool),
		allStores:    make(map[*ir.Node]bool),
	}
}

// InvalidatedBy always returns true: any transform may change pointer
// relationships, so this analysis is invalidated conservatively by every
// transform pass (§4.2, "Invalidation: invalidated by any transform").
func (*Result) InvalidatedBy(pass.Tag) bool { return true }

func (r *Result) addLocation(n *ir.Node, loc Location) { r.locations[n] = loc }

// Location returns the resolved memory location for ptr, if one has been
// computed.
func (r *Result) Location(ptr *ir.Node) (Location, bool) {
	loc, ok := r.locations[ptr]
	return loc, ok
}

// IsAllocationSite reports whether n is a stack_alloc/heap_alloc tracked
// by this analysis.
func (r *Result) IsAllocationSite(n *ir.Node) bool { return r.allocSites[n] }

// HasEscaped reports whether ptr's value is known to flow outside the
// function's scope (passed to a call or invoke, returned, or a pointer
// parameter of the function). A pointer that is only stored to memory is
// not marked as escaped.
func (r *Result) HasEscaped(ptr *ir.Node) bool { return r.escaped[ptr] }

// GetPointerSource walks pointer-copy chains to the ultimate source.
func (r *Result) GetPointerSource(ptr *ir.Node) *ir.Node {
	seen := map[*ir.Node]bool{}
	cur := ptr
	for {
		if seen[cur] {
			return cur // defensive: cycle, shouldn't happen in well-formed IR
		}
		seen[cur] = true
		src, ok := r.copies[cur]
		if !ok {
			return cur
		}
		cur = src
	}
}

// AllLoads, AllStores expose the full per-function sets.
func (r *Result) AllLoads() map[*ir.Node]bool  { return r.allLoads }
func (r *Result) AllStores() map[*ir.Node]bool { return r.allStores }

// GetAffectingStores returns every store the analysis marked as possibly
// modifying load.
func (r *Result) GetAffectingStores(load *ir.Node) []*ir.Node {
	var out []*ir.Node
	for s := range r.loadToStores[load] {
		out = append(out, s)
	}
	return out
}

// GetAffectedLoads returns every load the analysis marked as possibly
// modified by store.
func (r *Result) GetAffectedLoads(store *ir.Node) []*ir.Node {
	var out []*ir.Node
	for l := range r.storeToLoads[store] {
		out = append(out, l)
	}
	return out
}

// MaybeModifiedBy reports whether store may modify load's address.
func (r *Result) MaybeModifiedBy(load, store *ir.Node) bool {
	return r.loadToStores[load] != nil && r.loadToStores[load][store]
}

// resolvedOf returns the resolved (base,offset,size) triple for a pointer
// node, following copy chains first.
func (r *Result) resolvedOf(ptr *ir.Node) (Location, bool) {
	src := r.GetPointerSource(ptr)
	loc, ok := r.locations[src]
	return loc, ok
}

// Alias decides the relationship between two pointers per §4.2: same
// source and fully overlapping ranges => MUST; same base with disjoint
// ranges => NO; overlapping but not identical => PARTIAL; otherwise MAY.
// Any unknown offset or size downgrades to MAY.
func (r *Result) Alias(a, b *ir.Node) Relation {
	if a == b {
		return MustAlias
	}
	srcA := r.GetPointerSource(a)
	srcB := r.GetPointerSource(b)

	locA, okA := r.locations[srcA]
	locB, okB := r.locations[srcB]
	if !okA || !okB {
		return MayAlias
	}
	if locA.Base != locB.Base {
		return MayAlias
	}
	if locA.Offset == unknownOffset || locB.Offset == unknownOffset || locA.Size == 0 || locB.Size == 0 {
		return MayAlias
	}
	aStart, aEnd := locA.Offset, locA.Offset+int64(locA.Size)
	bStart, bEnd := locB.Offset, locB.Offset+int64(locB.Size)

	if aStart >= bEnd || bStart >= aEnd {
		return NoAlias
	}
	if srcA == srcB && aStart == bStart && aEnd == bEnd {
		return MustAlias
	}
	if aStart == bStart && aEnd == bEnd {
		return MustAlias
	}
	return PartialAlias
}

// MayAlias reports whether a and b might refer to overlapping memory.
func (r *Result) MayAlias(a, b *ir.Node) bool {
	switch r.Alias(a, b) {
	case MayAlias, MustAlias, PartialAlias:
		return true
	}
	return false
}

// MustAliasQ reports whether a and b definitely refer to the same memory.
func (r *Result) MustAliasQ(a, b *ir.Node) bool { return r.Alias(a, b) == MustAlias }

package transform

import (
	"github.com/kolkov/bloomir/internal/ir"
	"github.com/kolkov/bloomir/internal/pass"
)

// PRETag identifies the partial-redundancy-elimination pass.
var PRETag = pass.NewTag("partial-redundancy-elimination")

// exprHash is a structural hash of an expression's op and operand identity,
// used to group candidate-equivalent nodes before the expensive pairwise
// equivalence/dominance checks (original's ExprHash).
type exprHash uint64

// PRE identifies expressions computed redundantly along some but not
// necessarily all execution paths and hoists a single copy to their common
// dominator, grounded on the original PREPass
// (include/bloom/transform/pre.hpp — no .cpp was retrieved in
// original_source, so process_region/try_hoist_expression's control flow is
// derived from the header's method list and spec.md §4.10's description of
// "hoist to the nearest common dominator when every path to the redundant
// use passes through it").
type PRE struct{ pass.BaseTransform }

func (*PRE) Tag() pass.Tag        { return PRETag }
func (*PRE) Name() string         { return "partial-redundancy-elimination" }
func (*PRE) Description() string {
	return "hoists expressions computed redundantly along multiple execution paths to their common dominator"
}

func (p *PRE) Run(m *ir.Module, ctx *pass.Context) bool {
	var removed uint64
	for _, fn := range m.Funcs {
		body := m.FunctionRegion(fn)
		if body == nil {
			continue
		}
		removed += processRegionPRE(m, body)
	}
	ctx.UpdateStat("pre.eliminated_expressions", removed)
	return removed > 0
}

func isEligibleForPRE(n *ir.Node) bool {
	if n == nil || n.Op.HasSideEffects() || n.Op == ir.OpLit {
		return false
	}
	return len(n.Inputs) > 0
}

func computeExprHashPRE(n *ir.Node) exprHash {
	h := exprHash(n.Op) * 1099511628211
	h ^= exprHash(uintptr(n.Type))
	ins := n.Inputs
	if n.Op.IsCommutative() && len(ins) == 2 && nodeIdentity(ins[0]) > nodeIdentity(ins[1]) {
		ins = []*ir.Node{ins[1], ins[0]}
	}
	for _, in := range ins {
		h = (h ^ exprHash(nodeIdentity(in))) * 1099511628211
	}
	return h
}

func nodeIdentity(n *ir.Node) uint64 { return uint64(n.ID) }

func areExpressionsEquivalentPRE(a, b *ir.Node) bool {
	if a.Op != b.Op || a.Type != b.Type || len(a.Inputs) != len(b.Inputs) {
		return false
	}
	if a.Op.IsCommutative() && len(a.Inputs) == 2 {
		direct := a.Inputs[0] == b.Inputs[0] && a.Inputs[1] == b.Inputs[1]
		swapped := a.Inputs[0] == b.Inputs[1] && a.Inputs[1] == b.Inputs[0]
		return direct || swapped
	}
	for i := range a.Inputs {
		if a.Inputs[i] != b.Inputs[i] {
			return false
		}
	}
	return true
}

// collectExpressionsPRE walks region's entire subtree, grouping every
// PRE-eligible node by structural hash.
func collectExpressionsPRE(region *ir.Region) map[exprHash][]*ir.Node {
	groups := make(map[exprHash][]*ir.Node)
	var walk func(r *ir.Region)
	walk = func(r *ir.Region) {
		for _, n := range r.Nodes {
			if isEligibleForPRE(n) {
				h := computeExprHashPRE(n)
				groups[h] = append(groups[h], n)
			}
		}
		for _, c := range r.Children {
			walk(c)
		}
	}
	walk(region)
	return groups
}

func processRegionPRE(m *ir.Module, functionBody *ir.Region) uint64 {
	groups := collectExpressionsPRE(functionBody)
	var removed uint64
	for _, nodes := range groups {
		if len(nodes) < 2 {
			continue
		}
		removed += tryHoistExpression(m, nodes)
	}
	return removed
}

func areAllEquivalentPRE(nodes []*ir.Node) bool {
	for i := 1; i < len(nodes); i++ {
		if !areExpressionsEquivalentPRE(nodes[0], nodes[i]) {
			return false
		}
	}
	return true
}

// findCommonDominatorRegion returns the nearest region-tree ancestor shared
// by r1 and r2 (their region-tree LCA).
func findCommonDominatorRegion(r1, r2 *ir.Region) *ir.Region {
	ancestors := map[*ir.Region]bool{}
	for cur := r1; cur != nil; cur = cur.Parent {
		ancestors[cur] = true
	}
	for cur := r2; cur != nil; cur = cur.Parent {
		if ancestors[cur] {
			return cur
		}
	}
	return nil
}

// inputsAvailableAt reports whether every operand of node is already
// computed by the time control reaches target: each operand's owning
// region must be target itself or a structural ancestor of it (a
// parameter or a detached literal, with no owning region, is always
// available).
func inputsAvailableAt(node *ir.Node, target *ir.Region) bool {
	for _, in := range node.Inputs {
		if in.Region == nil {
			continue
		}
		if in.Region == target {
			continue
		}
		if !isTreeAncestorRegion(in.Region, target) {
			return false
		}
	}
	return true
}

func isTreeAncestorRegion(anc, r *ir.Region) bool {
	for cur := r; cur != nil; cur = cur.Parent {
		if cur == anc {
			return true
		}
	}
	return false
}

func tryHoistExpression(m *ir.Module, nodes []*ir.Node) uint64 {
	if !areAllEquivalentPRE(nodes) {
		return 0
	}

	target := nodes[0].Region
	for _, n := range nodes[1:] {
		target = findCommonDominatorRegion(target, n.Region)
		if target == nil {
			return 0
		}
	}

	// Hoisting to the region that already contains the expression is not a
	// win — that is plain local CSE's job, not PRE's.
	alreadyThere := false
	for _, n := range nodes {
		if n.Region == target {
			alreadyThere = true
			break
		}
	}
	if !alreadyThere && !isSafeHoistTarget(m, target, nodes) {
		return 0
	}
	if !inputsAvailableAt(nodes[0], target) {
		return 0
	}

	var hoisted *ir.Node
	if alreadyThere {
		for _, n := range nodes {
			if n.Region == target {
				hoisted = n
				break
			}
		}
	} else {
		hoisted = createHoistedNode(m.Context(), nodes[0], target)
	}

	return replaceDominatedOccurrences(m, nodes, hoisted, target)
}

// isSafeHoistTarget requires target to structurally dominate every
// occurrence being merged — otherwise the hoisted computation would run on
// a path that never reached it originally.
func isSafeHoistTarget(m *ir.Module, target *ir.Region, nodes []*ir.Node) bool {
	for _, n := range nodes {
		if !m.Dominates(target, n.Region) {
			return false
		}
	}
	return true
}

func createHoistedNode(c *ir.Context, template *ir.Node, target *ir.Region) *ir.Node {
	n := c.NewNode(template.Op, template.Type)
	for _, in := range template.Inputs {
		n.AddInput(in)
	}
	insertHoistedNode(n, target)
	return n
}

func insertHoistedNode(hoisted *ir.Node, target *ir.Region) {
	if term := target.Terminator(); term != nil {
		target.InsertBefore(term, hoisted)
		return
	}
	target.Append(hoisted)
}

func replaceDominatedOccurrences(m *ir.Module, nodes []*ir.Node, hoisted *ir.Node, dominator *ir.Region) uint64 {
	var removed uint64
	for _, n := range nodes {
		if n == hoisted {
			continue
		}
		if !m.Dominates(dominator, n.Region) {
			continue
		}
		n.ReplaceAllUsesWith(hoisted)
		if n.Region != nil && len(n.Users) == 0 {
			n.Region.Remove(n)
		}
		removed++
	}
	return removed
}

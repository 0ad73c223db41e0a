package transform

import (
	"github.com/kolkov/bloomir/internal/ir"
	"github.com/kolkov/bloomir/internal/pass"
)

// ReassociateTag identifies the reassociation pass.
var ReassociateTag = pass.NewTag("reassociate")

// Reassociate reorders associative expression trees into constants-first,
// balanced form, grounded on the original ReassociatePass
// (lib/transform/reassociate.cpp): flatten a chain of the same associative
// op into its leaf operands, partition them into constant and variable
// groups, rebuild each group as a balanced binary tree, and join the two
// group roots with one final op node — giving constant folding and CSE a
// better shot at the result on a later pass.
type Reassociate struct {
	pass.BaseTransform
	count uint64
}

func (*Reassociate) Tag() pass.Tag        { return ReassociateTag }
func (*Reassociate) Name() string         { return "reassociate" }
func (*Reassociate) Description() string {
	return "reorders associative expression trees for better optimization opportunity in later passes"
}

func (p *Reassociate) Run(m *ir.Module, ctx *pass.Context) bool {
	c := m.Context()
	p.count = 0
	var changed bool
	for _, top := range m.Regions {
		if reassociateRegion(c, top, &p.count) {
			changed = true
		}
	}
	if changed {
		ctx.UpdateStat("reassociate.count", p.count)
	}
	return changed
}

func reassociateRegion(c *ir.Context, r *ir.Region, count *uint64) bool {
	changed := false
	// snapshot: reassociateNode inserts fresh nodes into r.Nodes, and we
	// must not revisit those — the original copies get_nodes() up front
	// for the same reason.
	nodes := append([]*ir.Node(nil), r.Nodes...)
	for _, n := range nodes {
		if reassociateNode(c, r, n) {
			changed = true
			*count++
		}
	}
	for _, child := range r.Children {
		if reassociateRegion(c, child, count) {
			changed = true
		}
	}
	return changed
}

func isReassociable(op ir.Op) bool {
	switch op {
	case ir.OpAdd, ir.OpMul, ir.OpBand, ir.OpBor, ir.OpBxor:
		return true
	}
	return false
}

func reassociateNode(c *ir.Context, r *ir.Region, n *ir.Node) bool {
	if n == nil || !isReassociable(n.Op) || n.HasProp(ir.PropNoOptimize) {
		return false
	}

	var constants, variables []*ir.Node
	extractOperands(n, n.Op, &constants, &variables)

	if len(constants) < 2 && len(constants)+len(variables) <= 2 {
		return false
	}

	var constPart, varPart *ir.Node
	if len(constants) > 0 {
		constPart = createBalancedTree(c, r, n.Op, n.Type, constants, n)
	}
	if len(variables) > 0 {
		varPart = createBalancedTree(c, r, n.Op, n.Type, variables, n)
	}

	var result *ir.Node
	switch {
	case constPart != nil && varPart != nil:
		result = c.NewNode(n.Op, n.Type)
		result.AddInput(constPart)
		result.AddInput(varPart)
		r.InsertBefore(n, result)
	case constPart != nil:
		result = constPart
	case varPart != nil:
		result = varPart
	default:
		return false
	}

	replaceAllUsesAndPrune(r, n, result)
	return true
}

// extractOperands recursively flattens every operand that shares node's op
// into constants/variables, stopping at the first non-matching operand on
// each branch — mirroring the original's extract_operands.
func extractOperands(node *ir.Node, op ir.Op, constants, variables *[]*ir.Node) {
	if node == nil {
		return
	}
	if node.Op == op {
		for _, in := range node.Inputs {
			extractOperands(in, op, constants, variables)
		}
		return
	}
	if isConstantExpr(node) {
		*constants = append(*constants, node)
	} else {
		*variables = append(*variables, node)
	}
}

// isConstantExpr reports whether node is a literal or an associative
// expression built entirely from constants.
func isConstantExpr(node *ir.Node) bool {
	if node == nil {
		return false
	}
	if node.Op == ir.OpLit {
		return true
	}
	if isReassociable(node.Op) {
		if len(node.Inputs) == 0 {
			return false
		}
		for _, in := range node.Inputs {
			if !isConstantExpr(in) {
				return false
			}
		}
		return true
	}
	return false
}

// createBalancedTree rebuilds operands as a balanced binary tree of op
// nodes, splicing each freshly synthesized node into region immediately
// before insertionPoint.
func createBalancedTree(c *ir.Context, region *ir.Region, op ir.Op, typ ir.TypeID, operands []*ir.Node, insertionPoint *ir.Node) *ir.Node {
	if len(operands) == 0 {
		return nil
	}
	if len(operands) == 1 {
		return operands[0]
	}

	level := operands
	for len(level) > 1 {
		var next []*ir.Node
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				n := c.NewNode(op, typ)
				n.AddInput(level[i])
				n.AddInput(level[i+1])
				region.InsertBefore(insertionPoint, n)
				next = append(next, n)
			} else {
				next = append(next, level[i])
			}
		}
		level = next
	}
	return level[0]
}

// replaceAllUsesAndPrune redirects every user of oldNode to newNode and, if
// oldNode ends up with no remaining users, removes it from region.
func replaceAllUsesAndPrune(region *ir.Region, oldNode, newNode *ir.Node) {
	if oldNode == newNode {
		return
	}
	oldNode.ReplaceAllUsesWith(newNode)
	if len(oldNode.Users) == 0 {
		region.Remove(oldNode)
	}
}

// Package transform implements the scalar optimization passes (§4.4-4.11):
// constant folding, common subexpression elimination, dead/aggressive-dead
// code elimination, dead store elimination, reassociation, partial
// redundancy elimination, and scalar replacement of aggregates.
package transform

import (
	"github.com/kolkov/bloomir/internal/ir"
	"github.com/kolkov/bloomir/internal/pass"
)

// ConstFoldTag identifies the constant-folding pass.
var ConstFoldTag = pass.NewTag("constant-folding")

// ConstFold evaluates constant expressions at compile time and replaces
// them with literal nodes, grounded on the original ConstantFoldingPass
// (fold_arithmetic/fold_comparison/fold_bitwise, skipping operands that
// are not themselves constants).
type ConstFold struct{ pass.BaseTransform }

func (*ConstFold) Tag() pass.Tag      { return ConstFoldTag }
func (*ConstFold) Name() string       { return "constant-folding" }
func (*ConstFold) Description() string {
	return "evaluates constant expressions at compile time and replaces them with their computed values"
}

func (p *ConstFold) Run(m *ir.Module, ctx *pass.Context) bool {
	c := m.Context()
	var folded uint64
	for _, top := range m.Regions {
		folded += foldRegion(c, top)
	}
	ctx.UpdateStat("constfold.folded_expressions", folded)
	return true
}

func foldRegion(c *ir.Context, r *ir.Region) uint64 {
	var count uint64
	for _, n := range r.Nodes {
		if folded := foldNode(c, n); folded != nil {
			n.ReplaceAllUsesWith(folded)
			count++
		}
	}
	for _, child := range r.Children {
		count += foldRegion(c, child)
	}
	return count
}

func isConstant(n *ir.Node) bool { return n.IsLiteralConstant() }

// foldNode returns a freshly built LIT node equivalent to n's computed
// value when every operand is itself a literal constant, or nil if n is
// not a foldable arithmetic/comparison/bitwise op or has a non-constant
// operand.
func foldNode(c *ir.Context, n *ir.Node) *ir.Node {
	switch n.Op {
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpMod,
		ir.OpBand, ir.OpBor, ir.OpBxor, ir.OpBshl, ir.OpBshr:
		if len(n.Inputs) != 2 || !isConstant(n.Inputs[0]) || !isConstant(n.Inputs[1]) {
			return nil
		}
		return foldBinary(c, n, n.Inputs[0], n.Inputs[1])
	case ir.OpGt, ir.OpGte, ir.OpLt, ir.OpLte, ir.OpEq, ir.OpNeq:
		if len(n.Inputs) != 2 || !isConstant(n.Inputs[0]) || !isConstant(n.Inputs[1]) {
			return nil
		}
		return foldComparison(c, n, n.Inputs[0], n.Inputs[1])
	case ir.OpBnot:
		if len(n.Inputs) != 1 || !isConstant(n.Inputs[0]) {
			return nil
		}
		return foldUnary(c, n, n.Inputs[0])
	}
	return nil
}

func foldBinary(c *ir.Context, n, lhs, rhs *ir.Node) *ir.Node {
	if n.Type.IsFloat() {
		a, b := lhs.Data.Float, rhs.Data.Float
		var v float64
		switch n.Op {
		case ir.OpAdd:
			v = a + b
		case ir.OpSub:
			v = a - b
		case ir.OpMul:
			v = a * b
		case ir.OpDiv:
			if b == 0 {
				return nil
			}
			v = a / b
		default:
			return nil
		}
		return c.NewFloatLit(n.Type, v)
	}

	a, b := lhs.Data.Int, rhs.Data.Int
	var v int64
	switch n.Op {
	case ir.OpAdd:
		v = a + b
	case ir.OpSub:
		v = a - b
	case ir.OpMul:
		v = a * b
	case ir.OpDiv:
		if b == 0 {
			return nil
		}
		v = a / b
	case ir.OpMod:
		if b == 0 {
			return nil
		}
		v = a % b
	case ir.OpBand:
		v = a & b
	case ir.OpBor:
		v = a | b
	case ir.OpBxor:
		v = a ^ b
	case ir.OpBshl:
		v = a << uint64(b)
	case ir.OpBshr:
		v = a >> uint64(b)
	default:
		return nil
	}
	return c.NewIntLit(n.Type, v)
}

func foldComparison(c *ir.Context, n, lhs, rhs *ir.Node) *ir.Node {
	var result bool
	if lhs.Type.IsFloat() {
		a, b := lhs.Data.Float, rhs.Data.Float
		switch n.Op {
		case ir.OpGt:
			result = a > b
		case ir.OpGte:
			result = a >= b
		case ir.OpLt:
			result = a < b
		case ir.OpLte:
			result = a <= b
		case ir.OpEq:
			result = a == b
		case ir.OpNeq:
			result = a != b
		}
	} else {
		a, b := lhs.Data.Int, rhs.Data.Int
		switch n.Op {
		case ir.OpGt:
			result = a > b
		case ir.OpGte:
			result = a >= b
		case ir.OpLt:
			result = a < b
		case ir.OpLte:
			result = a <= b
		case ir.OpEq:
			result = a == b
		case ir.OpNeq:
			result = a != b
		}
	}
	return c.NewBoolLit(result)
}

func foldUnary(c *ir.Context, n, operand *ir.Node) *ir.Node {
	if n.Op != ir.OpBnot {
		return nil
	}
	return c.NewIntLit(n.Type, ^operand.Data.Int)
}

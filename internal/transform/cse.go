package transform

import (
	"math"

	"github.com/kolkov/bloomir/internal/analysis/alias"
	"github.com/kolkov/bloomir/internal/ir"
	"github.com/kolkov/bloomir/internal/pass"
)

// CSETag identifies the common-subexpression-elimination pass.
var CSETag = pass.NewTag("common-subexpression-elimination")

// valueNumber is a per-run equivalence-class identifier assigned to nodes
// that compute the same value (original's ValueNumber).
type valueNumber uint64

// CSE eliminates redundant computations within a region tree by value
// numbering: literals get a number keyed on their constant, pure
// expressions get a number keyed on op/type/operand-numbers, and loads get
// a number keyed on the memory location they read (resolved through the
// local alias analysis) and on a count of the memory-writing ops seen so
// far (so a load is only merged with an earlier one if no store, call or
// atomic write came between them). Atomic loads are not numbered. Grounded on the original
// CSEPass (include/bloom/transform/cse.hpp — no .cpp was retrieved in
// original_source, so process_region/compute_*_value_number's bodies are
// derived from the header's member list and field names).
type CSE struct {
	pass.BaseTransform

	valueNumbers     map[*ir.Node]valueNumber
	expressionToNode map[valueNumber]*ir.Node

	// generation counts side-effecting ops (stores, calls, atomics) seen so
	// far in the current function's node-iteration order. Folding it into a
	// load's value number is what makes two loads of the same location
	// merge only when nothing could have written memory between them.
	generation uint64
}

func (*CSE) Tag() pass.Tag { return CSETag }
func (*CSE) Name() string  { return "common-subexpression-elimination" }
func (*CSE) Description() string {
	return "eliminates redundant computations using value numbering"
}

func (*CSE) Requires() []pass.Tag { return []pass.Tag{alias.Tag} }

func (p *CSE) Run(m *ir.Module, ctx *pass.Context) bool {
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
	for _, fn := range m.Funcs {
		body := m.FunctionRegion(fn)
		if body == nil {
			continue
		}
		p.valueNumbers = make(map[*ir.Node]valueNumber)
		p.expressionToNode = make(map[valueNumber]*ir.Node)
		p.generation = 0
		removed += p.processRegion(body, res)
	}
	ctx.UpdateStat("cse.eliminated_expressions", removed)
	return removed > 0
}

func (p *CSE) processRegion(region *ir.Region, res *alias.Result) uint64 {
	var removed uint64
	nodes := append([]*ir.Node(nil), region.Nodes...)
	for _, n := range nodes {
		if n.Region == nil {
			continue // already eliminated earlier in this same pass
		}
		if bumpsGeneration(n) {
			p.generation++
		}
		if !isEligibleForCSE(n) {
			continue
		}

		vn := p.computeValueNumber(n, res)
		if existing, ok := p.expressionToNode[vn]; ok && existing != n {
			if replaceAllUsesCSE(n, existing) {
				removed++
				continue
			}
		}
		p.expressionToNode[vn] = n
	}

	for _, c := range region.Children {
		removed += p.processRegion(c, res)
	}
	return removed
}

func isEligibleForCSE(n *ir.Node) bool {
	if n.HasProp(ir.PropNoOptimize) {
		return false
	}
	if n.Op == ir.OpLit {
		return true
	}
	if isLoadOperationCSE(n) {
		return true
	}
	if n.Op.HasSideEffects() || n.Op.IsTerminator() {
		return false
	}
	return hasInputsCSE(n)
}

func isLoadOperationCSE(n *ir.Node) bool {
	switch n.Op {
	case ir.OpLoad, ir.OpPtrLoad:
		return true
	}
	return false
}

func hasInputsCSE(n *ir.Node) bool { return len(n.Inputs) > 0 }

// bumpsGeneration reports whether n could write to memory, invalidating
// any load value number computed before it.
func bumpsGeneration(n *ir.Node) bool {
	switch n.Op {
	case ir.OpStore, ir.OpPtrStore, ir.OpAtomicStore, ir.OpAtomicCAS, ir.OpCall, ir.OpInvoke, ir.OpFree:
		return true
	}
	return false
}

func (p *CSE) computeValueNumber(n *ir.Node, res *alias.Result) valueNumber {
	if vn, ok := p.valueNumbers[n]; ok {
		return vn
	}

	var vn valueNumber
	switch {
	case n.Op == ir.OpLit:
		vn = p.computeLiteralValueNumber(n)
	case isLoadOperationCSE(n):
		vn = p.computeLoadValueNumber(n, res)
	default:
		vn = p.computeExpressionValueNumber(n)
	}

	p.valueNumbers[n] = vn
	return vn
}

// computeLiteralValueNumber hashes a literal's type and constant payload,
// so two literals of the same value collapse to the same number without
// needing an explicit "are these literals equal" comparison elsewhere.
func (p *CSE) computeLiteralValueNumber(n *ir.Node) valueNumber {
	h := valueNumber(n.Type)*1099511628211 + 0x9e3779b97f4a7c15
	h = (h ^ valueNumber(uint64(n.Data.Int))) * 1099511628211
	h = (h ^ valueNumber(math.Float64bits(n.Data.Float))) * 1099511628211
	if n.Data.Bool {
		h = (h ^ 1) * 1099511628211
	}
	return h
}

// computeExpressionValueNumber numbers a pure operation from its own op,
// type, and its operands' already-assigned value numbers (so two
// expressions number the same iff their operands do, transitively) —
// commutative ops canonicalize operand order first.
func (p *CSE) computeExpressionValueNumber(n *ir.Node) valueNumber {
	h := valueNumber(n.Op)*1099511628211 + valueNumber(n.Type)

	ins := n.Inputs
	if n.Op.IsCommutative() && len(ins) == 2 {
		vn0 := p.valueNumberOf(ins[0])
		vn1 := p.valueNumberOf(ins[1])
		if vn0 > vn1 {
			vn0, vn1 = vn1, vn0
		}
		h = (h ^ valueNumber(vn0)) * 1099511628211
		h = (h ^ valueNumber(vn1)) * 1099511628211
		return h
	}

	for _, in := range ins {
		h = (h ^ valueNumber(p.valueNumberOf(in))) * 1099511628211
	}
	return h
}

// valueNumberOf returns an already-computed operand's value number. A
// literal operand is numbered on the spot from its constant payload even
// when it is not itself a region member (literals are pure values
// referenced only through Inputs in this IR, never appended to a region —
// see NewIntLit in internal/ir/build.go — so processRegion's
// node walk never visits them directly). Any other not-yet-numbered
// operand (a parameter, or a node ineligible for CSE) falls back to a
// stable per-node identity, which is correct because such a node can only
// ever be value-equal to itself.
func (p *CSE) valueNumberOf(n *ir.Node) valueNumber {
	if vn, ok := p.valueNumbers[n]; ok {
		return vn
	}
	if n.Op == ir.OpLit {
		return p.computeLiteralValueNumber(n)
	}
	return valueNumber(n.ID) << 32
}

// computeLoadValueNumber numbers a load by its op, type, and the memory
// location it reads, folding in the current store/call generation — so
// two loads of the same location hash identically (and so get merged by
// the same expressionToNode lookup every other eligible node goes
// through) only when no side-effecting op came between them. The address
// identity is resolved through the local alias analysis's Location when
// available (so e.g. two distinct PTR_ADD nodes that the analysis proved
// address the same allocation+offset still merge), falling back to the
// address node's own identity otherwise.
func (p *CSE) computeLoadValueNumber(n *ir.Node, res *alias.Result) valueNumber {
	h := valueNumber(n.Op)*1099511628211 + valueNumber(n.Type)
	h = (h ^ valueNumber(p.generation)) * 1099511628211

	if len(n.Inputs) > 0 {
		addr := n.Inputs[len(n.Inputs)-1]
		if loc, ok := res.Location(addr); ok && loc.Base != nil {
			h = (h ^ valueNumber(nodeIdentity(loc.Base))) * 1099511628211
			h = (h ^ valueNumber(uint64(loc.Offset))) * 1099511628211
		} else {
			h = (h ^ valueNumber(addr.ID)) * 1099511628211
		}
	}
	return h
}

func replaceAllUsesCSE(nodeToReplace, replacement *ir.Node) bool {
	if nodeToReplace == replacement {
		return false
	}
	nodeToReplace.ReplaceAllUsesWith(replacement)
	if len(nodeToReplace.Users) != 0 {
		return false
	}
	if nodeToReplace.Region != nil {
		nodeToReplace.Region.Remove(nodeToReplace)
	}
	return true
}

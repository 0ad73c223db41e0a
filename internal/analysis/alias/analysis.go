package alias

import (
	"github.com/kolkov/bloomir/internal/ir"
	"github.com/kolkov/bloomir/internal/pass"
)

// Tag identifies this analysis for pass dependency/invalidation wiring.
var Tag = pass.NewTag("local-alias-analysis")

// Pass computes local alias analysis for every function in a module
// (§4.2).
type Pass struct{ pass.BasePass }

func (*Pass) Tag() pass.Tag       { return Tag }
func (*Pass) Name() string        { return "local-alias-analysis" }
func (*Pass) Description() string {
	return "analyzes pointer relationships and escape behavior within function boundaries"
}

func (p *Pass) Run(m *ir.Module, ctx *pass.Context) bool { return pass.RunAnalysis(p, m, ctx) }

func (p *Pass) Analyze(m *ir.Module, ctx *pass.Context) (pass.Result, bool) {
	res := newResult()
	types := m.Context().Types
	for _, fn := range m.Funcs {
		body := m.FunctionRegion(fn)
		if body == nil {
			continue
		}
		analyzeFunction(res, types, fn, body)
	}
	performEscapeAnalysis(res, m)
	analyzeStoreLoadRelations(res)
	return res, true
}

func analyzeFunction(res *Result, types *ir.TypeRegistry, fn *ir.Node, body *ir.Region) {
	var walk func(r *ir.Region)
	walk = func(r *ir.Region) {
		for _, n := range r.Nodes {
			analyzeNode(res, types, n)
		}
		for _, c := range r.Children {
			walk(c)
		}
	}
	walk(body)
}

func analyzeNode(res *Result, types *ir.TypeRegistry, n *ir.Node) {
	switch n.Op {
	case ir.OpStackAlloc, ir.OpHeapAlloc:
		handleAllocation(res, types, n)
	case ir.OpAddrOf:
		handleAddrOf(res, n)
	case ir.OpPtrAdd:
		handlePointerArithmetic(res, n)
	case ir.OpParam:
		handleParameter(res, n)
	case ir.OpLoad, ir.OpPtrLoad:
		handleLoad(res, n)
		res.allLoads[n] = true
	case ir.OpStore, ir.OpPtrStore:
		handleStore(res, n)
		res.allStores[n] = true
	case ir.OpCall, ir.OpInvoke:
		handleCall(res, n)
	case ir.OpRet:
		handleReturn(res, n)
	case ir.OpReinterpretCast:
		handleCast(res, n)
	}
}

func handleAllocation(res *Result, types *ir.TypeRegistry, n *ir.Node) {
	res.allocSites[n] = true
	var size uint64
	if n.Type.IsPointer() {
		size = types.SizeOf(types.PointerDesc(n.Type).Pointee)
	}
	res.addLocation(n, Location{Base: n, Offset: 0, Size: size})
}

func handleAddrOf(res *Result, n *ir.Node) {
	if len(n.Inputs) == 0 {
		return
	}
	target := n.Inputs[0]
	if loc, ok := res.locations[target]; ok {
		res.addLocation(n, loc)
	} else {
		res.addLocation(n, Location{Base: target, Offset: 0, Size: 0})
	}
}

func extractIntLiteral(n *ir.Node) (int64, bool) {
	if n != nil && n.Op == ir.OpLit && n.Type.IsInteger() {
		return n.Data.Int, true
	}
	return 0, false
}

func handlePointerArithmetic(res *Result, n *ir.Node) {
	if len(n.Inputs) != 2 {
		return
	}
	base, offsetNode := n.Inputs[0], n.Inputs[1]
	baseLoc, haveBase := res.locations[base]
	if !haveBase {
		res.copies[n] = base
		return
	}
	if delta, ok := extractIntLiteral(offsetNode); ok && baseLoc.Offset != unknownOffset {
		res.addLocation(n, Location{Base: baseLoc.Base, Offset: baseLoc.Offset + delta, Size: baseLoc.Size})
		return
	}
	// Non-constant offset: bottom — same base, unknown offset.
	res.addLocation(n, Location{Base: baseLoc.Base, Offset: unknownOffset, Size: 0})
}

func handleParameter(res *Result, n *ir.Node) {
	if n.Type.IsPointer() {
		res.addLocation(n, Location{Base: n, Offset: 0, Size: 0})
		res.escaped[n] = true // parameters are conservatively assumed to alias caller state
	}
}

func handleLoad(res *Result, n *ir.Node) {
	if len(n.Inputs) == 0 {
		return
	}
	addr := n.Inputs[0]
	if _, ok := res.locations[addr]; !ok {
		res.addLocation(addr, Location{Base: addr, Offset: unknownOffset, Size: 0})
	}
}

func handleStore(res *Result, n *ir.Node) {
	if len(n.Inputs) == 0 {
		return
	}
	addr := n.Inputs[0]
	if _, ok := res.locations[addr]; !ok {
		res.addLocation(addr, Location{Base: addr, Offset: unknownOffset, Size: 0})
	}
}

func handleCall(res *Result, n *ir.Node) {
	for _, arg := range n.Inputs {
		if arg.Type.IsPointer() {
			res.escaped[res.GetPointerSource(arg)] = true
		}
	}
}

func handleReturn(res *Result, n *ir.Node) {
	for _, v := range n.Inputs {
		if v.Type.IsPointer() {
			res.escaped[res.GetPointerSource(v)] = true
		}
	}
}

func handleCast(res *Result, n *ir.Node) {
	if len(n.Inputs) == 0 {
		return
	}
	src := n.Inputs[0]
	res.copies[n] = src
	if loc, ok := res.locations[src]; ok {
		res.addLocation(n, loc)
	}
}

// performEscapeAnalysis runs a fixed-point propagation over every
// function's region tree until no new pointer escapes (§4.2).
func performEscapeAnalysis(res *Result, m *ir.Module) {
	changed := true
	for changed {
		changed = false
		for _, fn := range m.Funcs {
			body := m.FunctionRegion(fn)
			if body == nil {
				continue
			}
			if propagateEscapesInRegion(res, body) {
				changed = true
			}
		}
	}
}

func propagateEscapesInRegion(res *Result, r *ir.Region) bool {
	changed := false
	for _, n := range r.Nodes {
		if !res.escaped[n] {
			continue
		}
		src := res.GetPointerSource(n)
		if !res.escaped[src] {
			res.escaped[src] = true
			changed = true
		}
		for other, copySrc := range res.copies {
			if copySrc == n && !res.escaped[other] {
				res.escaped[other] = true
				changed = true
			}
		}
	}
	for _, c := range r.Children {
		if propagateEscapesInRegion(res, c) {
			changed = true
		}
	}
	return changed
}

// analyzeStoreLoadRelations computes the may-modify relation between every
// store and load pair using the alias query (§4.2 "store_to_loads,
// load_to_stores: may-modify relations between stores and loads").
func analyzeStoreLoadRelations(res *Result) {
	for store := range res.allStores {
		if len(store.Inputs) == 0 {
			continue
		}
		storeAddr := store.Inputs[0]
		for load := range res.allLoads {
			if len(load.Inputs) == 0 {
				continue
			}
			loadAddr := load.Inputs[0]
			if res.MayAlias(storeAddr, loadAddr) {
				addRelation(res, store, load)
			}
		}
	}
}

func addRelation(res *Result, store, load *ir.Node) {
	if res.storeToLoads[store] == nil {
		res.storeToLoads[store] = map[*ir.Node]bool{}
	}
	res.storeToLoads[store][load] = true
	if res.loadToStores[load] == nil {
		res.loadToStores[load] = map[*ir.Node]bool{}
	}
	res.loadToStores[load][store] = true
}

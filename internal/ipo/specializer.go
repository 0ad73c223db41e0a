package ipo

import (
	"hash/fnv"

	"github.com/kolkov/bloomir/internal/ir"
)

// LatticeState is a three-point lattice: an SCCP-style abstraction of
// "what value could this parameter have" (§4.14).
type LatticeState uint8

const (
	// LatticeTop means undefined/unknown (not yet observed).
	LatticeTop LatticeState = iota
	// LatticeConstant means exactly one known value.
	LatticeConstant
	// LatticeBottom means more than one possible value.
	LatticeBottom
)

// LatticeValue is a lattice point: TOP, a known CONSTANT payload, or
// BOTTOM. Grounded on the original's LatticeValue
// (include/bloom/ipo/specializer.hpp).
type LatticeValue struct {
	State LatticeState
	Type  ir.TypeID
	Data  ir.Data
}

// ConstantLattice builds a CONSTANT lattice value carrying data typed typ.
func ConstantLattice(typ ir.TypeID, data ir.Data) LatticeValue {
	return LatticeValue{State: LatticeConstant, Type: typ, Data: data}
}

// BottomLattice builds a BOTTOM lattice value.
func BottomLattice() LatticeValue { return LatticeValue{State: LatticeBottom} }

func (v LatticeValue) IsConstant() bool { return v.State == LatticeConstant }
func (v LatticeValue) IsTop() bool      { return v.State == LatticeTop }
func (v LatticeValue) IsBottom() bool   { return v.State == LatticeBottom }

// SpecializedParam pairs a parameter position with the constant it should
// be specialized to.
type SpecializedParam struct {
	Index int
	Value LatticeValue
}

// SpecializationRequest describes one candidate specialization: clone
// Original with SpecializedParams folded to constants, then redirect
// CallSites to the clone (§4.14).
type SpecializationRequest struct {
	Original          *ir.Node
	SpecializedParams []SpecializedParam
	CallSites         []*ir.Node
	BenefitScore      float64
}

// ConstantParameterCount returns the number of parameters being
// specialized.
func (r *SpecializationRequest) ConstantParameterCount() int { return len(r.SpecializedParams) }

// IsSpecializedParameter reports whether paramIdx is one of the
// parameters being specialized.
func (r *SpecializationRequest) IsSpecializedParameter(paramIdx int) bool {
	for _, sp := range r.SpecializedParams {
		if sp.Index == paramIdx {
			return true
		}
	}
	return false
}

// SpecializedValue returns the constant value for paramIdx, if it is
// being specialized.
func (r *SpecializationRequest) SpecializedValue(paramIdx int) (LatticeValue, bool) {
	for _, sp := range r.SpecializedParams {
		if sp.Index == paramIdx {
			return sp.Value, true
		}
	}
	return LatticeValue{}, false
}

// FunctionSpecializer clones functions with some parameters folded to
// constants, redirecting call sites to the clone when profitable (§4.14).
// Grounded on FunctionSpecializer (include/bloom/ipo/specializer.hpp; no
// .cpp was retrieved in original_source, so specialize_function/
// clone_function_skeleton/clone_region_hierarchy's bodies are derived from
// the header's member list using the same clone+remap shape the inliner's
// clone_function_body uses, since both solve the same "deep-copy a region
// tree and relink through a node mapping" problem).
type FunctionSpecializer struct {
	cache map[uint64]*ir.Node

	maxCallSites        int
	maxFunctionSize     int
	minBenefitThreshold float64
	minConstantArgs     int
}

// NewFunctionSpecializer creates a specializer with the original's default
// heuristics (max 8 call sites, max 100-node functions, benefit threshold
// 2.0, at least 1 constant argument).
func NewFunctionSpecializer() *FunctionSpecializer {
	return &FunctionSpecializer{
		cache:               make(map[uint64]*ir.Node),
		maxCallSites:        8,
		maxFunctionSize:     100,
		minBenefitThreshold: 2.0,
		minConstantArgs:     1,
	}
}

func (s *FunctionSpecializer) SetMaxCallSites(max int)            { s.maxCallSites = max }
func (s *FunctionSpecializer) SetMaxFunctionSize(max int)         { s.maxFunctionSize = max }
func (s *FunctionSpecializer) SetMinBenefitThreshold(min float64) { s.minBenefitThreshold = min }

// CalculateBenefitScore scores a request: a base plus a term per constant
// parameter and per call site (§4.14 "Base = 1.0 + 2.0 x #constant_params
// + 0.5 x #call_sites"; branch/call/loop-bound bonuses are left as a
// static estimate the caller may fold into BenefitScore before calling
// ShouldSpecialize, same as the original's "implementations may estimate
// statically").
func CalculateBenefitScore(req *SpecializationRequest) float64 {
	return 1.0 + 2.0*float64(req.ConstantParameterCount()) + 0.5*float64(len(req.CallSites))
}

// ShouldSpecialize reports whether req clears every profitability gate
// (§4.14 "Profitability"). funcSize is the estimated node count of
// req.Original's body, computed by the caller via EstimateFunctionSize.
func (s *FunctionSpecializer) ShouldSpecialize(req *SpecializationRequest, funcSize int) bool {
	if req.BenefitScore < s.minBenefitThreshold {
		return false
	}
	if len(req.CallSites) > s.maxCallSites {
		return false
	}
	if funcSize > s.maxFunctionSize {
		return false
	}
	if req.ConstantParameterCount() < s.minConstantArgs {
		return false
	}
	return true
}

// EstimateFunctionSize counts the nodes in fn's body region tree, across
// every module (a function's region always lives in the module that
// defines it, but callers may not know which one up front).
func EstimateFunctionSize(fn *ir.Node, modules []*ir.Module) int {
	region := FindFunctionRegion(fn, modules)
	if region == nil {
		return 0
	}
	return countRegionNodes(region)
}

func countRegionNodes(r *ir.Region) int {
	n := len(r.Nodes)
	for _, c := range r.Children {
		n += countRegionNodes(c)
	}
	return n
}

// FindFunctionRegion finds the module owning fn and returns its body
// region, or nil if fn is not defined in any of modules.
func FindFunctionRegion(fn *ir.Node, modules []*ir.Module) *ir.Region {
	for _, m := range modules {
		if r := m.FunctionRegion(fn); r != nil {
			return r
		}
	}
	return nil
}

// computeSpecializationKey hashes the original function's identity and
// every specialized parameter's constant payload, so identical requests
// (same function, same constants in the same positions) collapse to the
// same cache key (§4.14 "assigns the clone ... caches the clone keyed by
// that hash so identical requests reuse it").
func computeSpecializationKey(fn *ir.Node, params []SpecializedParam) uint64 {
	h := fnv.New64a()
	writeUint64(h, uint64(fn.ID))
	for _, sp := range params {
		writeUint64(h, uint64(sp.Index))
		writeUint64(h, uint64(sp.Value.Type))
		writeUint64(h, uint64(sp.Value.Data.Int))
		writeUint64(h, uint64(sp.Value.Data.Float))
		if sp.Value.Data.Bool {
			writeUint64(h, 1)
		}
	}
	return h.Sum64()
}

func writeUint64(h interface{ Write([]byte) (int, error) }, v uint64) {
	var b [8]byte
	for i := range b {
		b[i] = byte(v >> (8 * i))
	}
	_, _ = h.Write(b[:])
}

// SpecializeFunction clones req.Original into targetModule with each
// specialized parameter substituted by a fresh literal, reusing a cached
// clone for an identical request (§4.14 "Cloning"). modules is the full
// module set, needed to locate the original's body region.
func (s *FunctionSpecializer) SpecializeFunction(req *SpecializationRequest, targetModule *ir.Module, modules []*ir.Module) *ir.Node {
	key := computeSpecializationKey(req.Original, req.SpecializedParams)
	if cached, ok := s.cache[key]; ok {
		return cached
	}

	originalRegion := FindFunctionRegion(req.Original, modules)
	if originalRegion == nil {
		return nil
	}

	ctx := targetModule.Context()
	mapping := make(map[*ir.Node]*ir.Node)
	clonedRegion := cloneRegionHierarchy(originalRegion, targetModule, mapping)
	fixupNodeConnections(originalRegion, clonedRegion, mapping)
	substituteParametersWithConstants(ctx, clonedRegion, req.SpecializedParams)

	name := generateSpecializedName(req.Original, req.SpecializedParams, ctx)
	clone := ctx.NewFunction(targetModule, name, req.Original.Type, req.Original.Props, clonedRegion)

	s.cache[key] = clone
	return clone
}

// RedirectCallSites points each call site's callee operand at specialized
// and drops the argument operands at the specialized parameters'
// positions, since the clone no longer has those PARAM nodes and binds its
// remaining arguments by position. An invoke keeps its trailing
// normal/exception entry operands. Returns the number of sites redirected
// (§4.14 "Redirection").
func RedirectCallSites(req *SpecializationRequest, callSites []*ir.Node, specialized *ir.Node) int {
	redirected := 0
	for _, site := range callSites {
		if len(site.Inputs) == 0 {
			continue
		}
		lastArg := len(site.Inputs)
		if site.Op == ir.OpInvoke {
			lastArg -= 2
		}
		kept := []*ir.Node{specialized}
		for i := 1; i < len(site.Inputs); i++ {
			if i < lastArg && req.IsSpecializedParameter(i-1) {
				continue
			}
			kept = append(kept, site.Inputs[i])
		}
		site.Unlink()
		for _, in := range kept {
			site.AddInput(in)
		}
		redirected++
	}
	return redirected
}

func cloneRegionHierarchy(original *ir.Region, targetModule *ir.Module, mapping map[*ir.Node]*ir.Node) *ir.Region {
	clone := ir.NewRegion()
	for _, n := range original.Nodes {
		cn := cloneNode(n, targetModule)
		mapping[n] = cn
		clone.Append(cn)
	}
	for _, c := range original.Children {
		clone.AddChild(cloneRegionHierarchy(c, targetModule, mapping))
	}
	return clone
}

func cloneNode(original *ir.Node, targetModule *ir.Module) *ir.Node {
	n := targetModule.Context().NewNode(original.Op, original.Type)
	n.Data = original.Data
	n.Props = original.Props
	n.StrID = original.StrID
	return n
}

// fixupNodeConnections relinks every cloned node's inputs through mapping,
// in parallel with the original region tree (node counts and order match
// exactly since cloneRegionHierarchy walked the same Nodes/Children
// slices). An input with no mapping entry lies outside the cloned region
// tree — a literal (literals are never region members), a FUNCTION node
// used as a callee operand, or any other node owned elsewhere — and is
// reused as-is rather than duplicated.
func fixupNodeConnections(original, cloned *ir.Region, mapping map[*ir.Node]*ir.Node) {
	for i, on := range original.Nodes {
		cn := cloned.Nodes[i]
		for _, in := range on.Inputs {
			if mapped, ok := mapping[in]; ok {
				cn.AddInput(mapped)
			} else {
				cn.AddInput(in)
			}
		}
	}
	for i, oc := range original.Children {
		fixupNodeConnections(oc, cloned.Children[i], mapping)
	}
}

// substituteParametersWithConstants replaces each specialized PARAM node
// in clonedRegion's top level with a fresh literal carrying its lattice
// constant, removing the parameter from the clone entirely (§4.14
// "substitutes each specialized parameter by a fresh literal ... removing
// the parameter from the clone's signature").
func substituteParametersWithConstants(ctx *ir.Context, clonedRegion *ir.Region, params []SpecializedParam) {
	var paramNodes []*ir.Node
	for _, n := range clonedRegion.Nodes {
		if n.Op == ir.OpParam {
			paramNodes = append(paramNodes, n)
		}
	}

	for _, sp := range params {
		if sp.Index < 0 || sp.Index >= len(paramNodes) {
			continue
		}
		param := paramNodes[sp.Index]
		lit := literalFromLattice(ctx, sp.Value)
		param.ReplaceAllUsesWith(lit)
		clonedRegion.Remove(param)
	}
}

func literalFromLattice(ctx *ir.Context, v LatticeValue) *ir.Node {
	switch {
	case v.Type == ir.PrimitiveType(ir.Bool):
		return ctx.NewBoolLit(v.Data.Bool)
	case v.Type.IsFloat():
		return ctx.NewFloatLit(v.Type, v.Data.Float)
	default:
		return ctx.NewIntLit(v.Type, v.Data.Int)
	}
}

// generateSpecializedName derives a deterministic name for the clone from
// the original's name plus a hash of the specialized arguments (§4.14
// "assigns the clone a deterministic fresh name derived from the
// original's name plus a hash of the specialized arguments").
func generateSpecializedName(original *ir.Node, params []SpecializedParam, ctx *ir.Context) ir.StringID {
	base := ctx.Strings.Get(original.StrID)
	key := computeSpecializationKey(original, params)
	name := base + ".specialized." + hashSuffix(key)
	return ctx.Strings.Intern(name)
}

func hashSuffix(h uint64) string {
	const digits = "0123456789abcdef"
	var buf [16]byte
	for i := 15; i >= 0; i-- {
		buf[i] = digits[h&0xf]
		h >>= 4
	}
	return string(buf[:])
}

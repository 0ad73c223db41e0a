package ipo

import (
	"testing"

	"github.com/kolkov/bloomir/internal/ir"
)

// buildAddFunction builds add(x, y) { return x + y } with two i32 params.
func buildAddFunction(ctx *ir.Context, m *ir.Module, name string) (*ir.Node, *ir.Node, *ir.Node) {
	i32 := ir.PrimitiveType(ir.I32)
	body := ir.NewRegion()
	x := ctx.NewParam(body, i32, ctx.Strings.Intern("x"))
	y := ctx.NewParam(body, i32, ctx.Strings.Intern("y"))
	sum := ctx.NewBinOp(body, ir.OpAdd, i32, x, y)
	ctx.NewRet(body, sum)
	fn := ctx.NewFunction(m, ctx.Strings.Intern(name), i32, 0, body)
	return fn, x, y
}

func TestSpecializeFunctionFoldsConstantParameter(t *testing.T) {
	ctx := ir.NewContext()
	m := ctx.NewModule("specializer_test")
	i32 := ir.PrimitiveType(ir.I32)

	add, _, _ := buildAddFunction(ctx, m, "add")

	callerBody := ir.NewRegion()
	call := ctx.NewCall(callerBody, i32, add, ctx.NewIntLit(i32, 10), ctx.NewIntLit(i32, 5))
	ctx.NewRet(callerBody, call)
	ctx.NewFunction(m, ctx.Strings.Intern("caller"), i32, 0, callerBody)

	modules := []*ir.Module{m}

	req := &SpecializationRequest{
		Original: add,
		SpecializedParams: []SpecializedParam{
			{Index: 1, Value: ConstantLattice(i32, ir.Data{Int: 5})},
		},
		CallSites: []*ir.Node{call},
	}
	req.BenefitScore = CalculateBenefitScore(req)

	s := NewFunctionSpecializer()
	size := EstimateFunctionSize(add, modules)
	if !s.ShouldSpecialize(req, size) {
		t.Fatalf("ShouldSpecialize returned false for a clearly profitable request (score=%v, size=%d)", req.BenefitScore, size)
	}

	clone := s.SpecializeFunction(req, m, modules)
	if clone == nil {
		t.Fatalf("SpecializeFunction returned nil")
	}

	cloneBody := m.FunctionRegion(clone)
	if cloneBody == nil {
		t.Fatalf("clone was not registered with its module")
	}

	var paramCount int
	for _, n := range cloneBody.Nodes {
		if n.Op == ir.OpParam {
			paramCount++
		}
	}
	if paramCount != 1 {
		t.Errorf("clone has %d params, want 1 (y folded away)", paramCount)
	}

	redirected := RedirectCallSites(req, req.CallSites, clone)
	if redirected != 1 {
		t.Errorf("RedirectCallSites redirected %d sites, want 1", redirected)
	}
	if call.Inputs[0] != clone {
		t.Errorf("call site was not redirected to the clone")
	}
}

func TestSpecializeFunctionCachesIdenticalRequests(t *testing.T) {
	ctx := ir.NewContext()
	m := ctx.NewModule("specializer_cache_test")
	i32 := ir.PrimitiveType(ir.I32)
	add, _, _ := buildAddFunction(ctx, m, "add2")
	modules := []*ir.Module{m}

	mkReq := func() *SpecializationRequest {
		return &SpecializationRequest{
			Original: add,
			SpecializedParams: []SpecializedParam{
				{Index: 0, Value: ConstantLattice(i32, ir.Data{Int: 7})},
			},
		}
	}

	s := NewFunctionSpecializer()
	c1 := s.SpecializeFunction(mkReq(), m, modules)
	c2 := s.SpecializeFunction(mkReq(), m, modules)
	if c1 != c2 {
		t.Errorf("two identical specialization requests produced different clones")
	}
}

func TestShouldSpecializeRejectsTooManyCallSites(t *testing.T) {
	ctx := ir.NewContext()
	m := ctx.NewModule("specializer_reject_test")
	i32 := ir.PrimitiveType(ir.I32)
	add, _, _ := buildAddFunction(ctx, m, "add3")

	req := &SpecializationRequest{
		Original:          add,
		SpecializedParams: []SpecializedParam{{Index: 0, Value: ConstantLattice(i32, ir.Data{Int: 1})}},
	}
	for i := 0; i < 9; i++ {
		req.CallSites = append(req.CallSites, &ir.Node{})
	}
	req.BenefitScore = CalculateBenefitScore(req)

	s := NewFunctionSpecializer()
	if s.ShouldSpecialize(req, 10) {
		t.Errorf("ShouldSpecialize accepted a request with more than max_call_sites")
	}
}

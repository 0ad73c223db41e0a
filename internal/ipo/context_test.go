package ipo

import (
	"testing"

	"github.com/kolkov/bloomir/internal/ir"
	"github.com/kolkov/bloomir/internal/pass"
)

type fakeResult struct {
	invalidatedByPass    bool
	invalidatedByModules map[*ir.Module]bool
}

func (f *fakeResult) InvalidatedByPass(pass.Tag) bool { return f.invalidatedByPass }
func (f *fakeResult) InvalidatedByModules(changed map[*ir.Module]bool) bool {
	for m := range changed {
		if f.invalidatedByModules[m] {
			return true
		}
	}
	return false
}

var testTransformTag = pass.NewTag("ipo_context_test.transform")

func TestContextInvalidateByPassSkipsPreserved(t *testing.T) {
	ctx := NewContext(nil, 0, false)
	tag := pass.NewTag("ipo_context_test.analysis")
	ctx.StoreResult(tag, &fakeResult{invalidatedByPass: true})
	ctx.MarkPreserved(tag)

	ctx.InvalidateByPass(testTransformTag)

	if !ctx.HasResult(tag) {
		t.Errorf("preserved result was invalidated, want it kept")
	}
}

func TestContextInvalidateByPassDropsUnpreserved(t *testing.T) {
	ctx := NewContext(nil, 0, false)
	tag := pass.NewTag("ipo_context_test.analysis2")
	ctx.StoreResult(tag, &fakeResult{invalidatedByPass: true})

	ctx.InvalidateByPass(testTransformTag)

	if ctx.HasResult(tag) {
		t.Errorf("result survived invalidation, want it dropped")
	}
}

func TestContextInvalidateByModules(t *testing.T) {
	ctx := NewContext(nil, 0, false)
	m1 := &ir.Module{}
	m2 := &ir.Module{}
	tag := pass.NewTag("ipo_context_test.analysis3")
	ctx.StoreResult(tag, &fakeResult{invalidatedByModules: map[*ir.Module]bool{m1: true}})

	ctx.InvalidateByModules(map[*ir.Module]bool{m2: true})
	if !ctx.HasResult(tag) {
		t.Fatalf("result invalidated by an unrelated module, want it kept")
	}

	ctx.InvalidateByModules(map[*ir.Module]bool{m1: true})
	if ctx.HasResult(tag) {
		t.Errorf("result survived invalidation by a module it depended on")
	}
}

func TestContextInvalidateMatchingWildcard(t *testing.T) {
	ctx := NewContext(nil, 0, false)
	ctx.StoreStringResult("call_graph.mod_a", &fakeResult{})
	ctx.StoreStringResult("call_graph.mod_b", &fakeResult{})
	ctx.StoreStringResult("other.key", &fakeResult{})

	ctx.InvalidateMatching("call_graph.*")

	if ctx.HasStringResult("call_graph.mod_a") || ctx.HasStringResult("call_graph.mod_b") {
		t.Errorf("wildcard invalidation left a matching key behind")
	}
	if !ctx.HasStringResult("other.key") {
		t.Errorf("wildcard invalidation dropped a non-matching key")
	}
}

func TestContextInvalidateMatchingExact(t *testing.T) {
	ctx := NewContext(nil, 0, false)
	ctx.StoreStringResult("exact.key", &fakeResult{})
	ctx.InvalidateMatching("exact.key")
	if ctx.HasStringResult("exact.key") {
		t.Errorf("exact match was not invalidated")
	}
}

func TestContextStats(t *testing.T) {
	ctx := NewContext(nil, 0, false)
	ctx.UpdateStat("x", 3)
	ctx.UpdateStat("x", 4)
	if got := ctx.GetStat("x"); got != 7 {
		t.Errorf("GetStat = %d, want 7", got)
	}
}

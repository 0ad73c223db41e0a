package ipo

import (
	"strings"
	"testing"

	"github.com/kolkov/bloomir/internal/ir"
	"github.com/kolkov/bloomir/internal/pass"
)

// countingPass is a minimal IPO pass used only to exercise the manager's
// registration/run/invalidation plumbing.
type countingPass struct {
	BasePass
	tag   pass.Tag
	runs  int
	makes bool
}

func (p *countingPass) Tag() pass.Tag      { return p.tag }
func (p *countingPass) Name() string       { return p.tag.String() }
func (p *countingPass) Description() string { return "test pass" }
func (p *countingPass) Run(modules []*ir.Module, ctx *Context) bool {
	p.runs++
	return p.makes
}

func TestManagerAddPassDuplicateTagErrors(t *testing.T) {
	mgr := NewManager(nil, 0, false, 0)
	tag := pass.NewTag("ipo_manager_test.dup")
	p1 := &countingPass{tag: tag}
	p2 := &countingPass{tag: tag}

	if err := mgr.AddPass(p1); err != nil {
		t.Fatalf("first AddPass failed: %v", err)
	}
	if err := mgr.AddPass(p2); err == nil {
		t.Fatalf("second AddPass with same tag succeeded, want error")
	}
}

func TestManagerRunAllInvalidatesOnChange(t *testing.T) {
	mgr := NewManager(nil, 0, false, 0)

	analysisTag := pass.NewTag("ipo_manager_test.analysis")
	transformTag := pass.NewTag("ipo_manager_test.transform")

	mgr.Context().StoreResult(analysisTag, &fakeResult{invalidatedByPass: true})

	transform := &countingPass{tag: transformTag, makes: true}
	if err := mgr.AddPass(transform); err != nil {
		t.Fatalf("AddPass: %v", err)
	}

	mgr.RunAll()

	if transform.runs != 1 {
		t.Errorf("transform ran %d times, want 1", transform.runs)
	}
	if mgr.Context().HasResult(analysisTag) {
		t.Errorf("analysis result survived a transform that invalidates it")
	}
}

func TestManagerRunPassUnknownTag(t *testing.T) {
	mgr := NewManager(nil, 0, false, 0)
	_, err := mgr.RunPass(pass.NewTag("ipo_manager_test.unknown"))
	if err == nil {
		t.Fatalf("RunPass on an unregistered tag succeeded, want error")
	}
}

func TestManagerPrintStatistics(t *testing.T) {
	mgr := NewManager(nil, 0, false, 0)
	tag := pass.NewTag("ipo_manager_test.stats")
	if err := mgr.AddPass(&countingPass{tag: tag}); err != nil {
		t.Fatalf("AddPass: %v", err)
	}
	mgr.RunAll()

	var sb strings.Builder
	mgr.PrintStatistics(&sb)
	if !strings.Contains(sb.String(), "Total") {
		t.Errorf("PrintStatistics output missing Total row: %q", sb.String())
	}
}

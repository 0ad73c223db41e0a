// pipeline.go builds the demo module bloomopt's subcommands operate on
// and wires the manifest's enabled passes into a scalar pass.Manager and
// an ipo.Manager, mirroring bloom::PassManager/IPOPassManager composition
// (§4.1, §4.12) the way a real driver would after an (out-of-scope, §6)
// front-end had built its module.
package main

import (
	"fmt"

	"github.com/kolkov/bloomir/internal/analysis/alias"
	"github.com/kolkov/bloomir/internal/ipo"
	"github.com/kolkov/bloomir/internal/ir"
	"github.com/kolkov/bloomir/internal/pass"
	"github.com/kolkov/bloomir/internal/transform"
)

// buildDemoModule constructs a small self-contained program: helper(a, b)
// is a tiny direct-call target reachable only from main's constant-argument
// call (an inlining/specialization candidate), and dead is never called
// from anywhere reachable, giving IPO-DCE something to remove.
func buildDemoModule(ctx *ir.Context) *ir.Module {
	i32 := ir.PrimitiveType(ir.I32)
	m := ctx.NewModule("demo")

	helperBody := ir.NewRegion()
	a := ctx.NewParam(helperBody, i32, ctx.Strings.Intern("a"))
	b := ctx.NewParam(helperBody, i32, ctx.Strings.Intern("b"))
	sum := ctx.NewBinOp(helperBody, ir.OpAdd, i32, a, b)
	ctx.NewRet(helperBody, sum)
	helper := ctx.NewFunction(m, ctx.Strings.Intern("helper"), i32, 0, helperBody)

	deadBody := ir.NewRegion()
	ctx.NewRet(deadBody, ctx.NewIntLit(i32, 42))
	ctx.NewFunction(m, ctx.Strings.Intern("dead"), i32, 0, deadBody)

	mainBody := ir.NewRegion()
	call := ctx.NewCall(mainBody, i32, helper, ctx.NewIntLit(i32, 10), ctx.NewIntLit(i32, 20))
	ctx.NewRet(mainBody, call)
	ctx.NewFunction(m, ctx.Strings.Intern("main"), i32, ir.PropDriver, mainBody)

	return m
}

// scalarRegistrations lists every scalar pass a manifest entry can enable,
// keyed by its "pass/<name>" manifest path, in the fixed order the demo
// pipeline tries to register them.
func scalarRegistrations() []struct {
	path string
	p    pass.Pass
} {
	return []struct {
		path string
		p    pass.Pass
	}{
		{"pass/constfold", &transform.ConstFold{}},
		{"pass/dce", &transform.DCE{}},
		{"pass/dse", &transform.DSE{}},
		{"pass/reassociate", &transform.Reassociate{}},
		{"pass/pre", &transform.PRE{}},
		{"pass/sroa", &transform.SROA{}},
		{"pass/adce", &transform.ADCE{}},
		{"pass/cse", &transform.CSE{}},
	}
}

func registerScalarPasses(mgr *pass.Manager, man *Manifest, optLevel int) {
	// Always registered: DSE/SROA/CSE declare local-alias-analysis as a
	// dependency and the manager resolves it on demand, but registering
	// it up front lets run -v=2 show it in the fixed pipeline order.
	_ = mgr.AddPass(&alias.Pass{})
	for _, reg := range scalarRegistrations() {
		if !man.Enabled(reg.path, optLevel) {
			continue
		}
		if err := mgr.AddPass(reg.p); err != nil {
			fmt.Printf("warning: registering %s: %v\n", reg.path, err)
		}
	}
}

func registerIPOPasses(mgr *ipo.Manager, man *Manifest, optLevel int) {
	if man.Enabled("ipo/callgraph", optLevel) {
		_ = mgr.AddPass(&ipo.CallGraphAnalysisPass{})
	}
	if man.Enabled("ipo/dce", optLevel) {
		_ = mgr.AddPass(&ipo.DCE{})
	}
	if man.Enabled("ipo/inlining", optLevel) {
		inl := ipo.NewInlining()
		inl.SetEnableSpecialization(man.Enabled("ipo/specializer", optLevel))
		_ = mgr.AddPass(inl)
	}
	if man.Enabled("ipo/gvn", optLevel) {
		_ = mgr.AddPass(&ipo.GVN{})
	}
}

// pipelineResult bundles everything a caller might want to report after
// a run: the surviving module (for a summary line) and both managers
// (for their statistics tables).
type pipelineResult struct {
	ctx       *ir.Context
	module    *ir.Module
	scalarMgr *pass.Manager
	ipoMgr    *ipo.Manager
}

// runPipeline builds the demo module, runs the manifest's scalar passes
// over it, then its IPO passes across the (single-module, here) program.
// Formatting the result is left to the caller so 'run' and 'stats' can
// report it differently.
func runPipeline(man *Manifest, optLevel int, debugMode bool, verbosity int) (*pipelineResult, error) {
	ctx := ir.NewContext()
	m := buildDemoModule(ctx)
	modules := []*ir.Module{m}

	scalarMgr := pass.NewManager(m, optLevel, debugMode, verbosity)
	registerScalarPasses(scalarMgr, man, optLevel)
	if _, err := scalarMgr.RunAll(); err != nil {
		return nil, fmt.Errorf("scalar pipeline: %w", err)
	}

	ipoMgr := ipo.NewManager(modules, optLevel, debugMode, verbosity)
	registerIPOPasses(ipoMgr, man, optLevel)
	ipoMgr.RunAll()

	return &pipelineResult{ctx: ctx, module: m, scalarMgr: scalarMgr, ipoMgr: ipoMgr}, nil
}

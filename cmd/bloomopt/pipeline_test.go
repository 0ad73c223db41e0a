// pipeline_test.go tests the demo pipeline wiring.
package main

import (
	"strings"
	"testing"
)

func TestRunPipelineRemovesDeadFunctionAtDefaultManifest(t *testing.T) {
	man := defaultManifest()
	res, err := runPipeline(man, 0, false, 0)
	if err != nil {
		t.Fatalf("runPipeline: %v", err)
	}

	for _, fn := range res.module.Funcs {
		if res.ctx.Strings.Get(fn.StrID) == "dead" {
			t.Errorf("dead should have been removed by ipo/dce")
		}
	}

	var sb strings.Builder
	res.ipoMgr.PrintStatistics(&sb)
	if !strings.Contains(sb.String(), "ipo-dead-code-elimination") {
		t.Errorf("IPO statistics missing the DCE pass row: %q", sb.String())
	}
}

func TestRunPipelineKeepsDeadFunctionWhenIPODCEDisabled(t *testing.T) {
	man := &Manifest{
		Name: "test.local/no-ipo-dce",
		Passes: []PassRequirement{
			{Path: "ipo/callgraph", MinLevel: 0},
		},
	}
	res, err := runPipeline(man, 0, false, 0)
	if err != nil {
		t.Fatalf("runPipeline: %v", err)
	}

	var foundDead bool
	for _, fn := range res.module.Funcs {
		if res.ctx.Strings.Get(fn.StrID) == "dead" {
			foundDead = true
		}
	}
	if !foundDead {
		t.Errorf("dead should survive when ipo/dce is not in the manifest")
	}
}

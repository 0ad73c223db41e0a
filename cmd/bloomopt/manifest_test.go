// manifest_test.go tests bloomopt.mod manifest parsing.
package main

import (
	"strings"
	"testing"
)

func TestParseManifestReadsRequireLines(t *testing.T) {
	data := []byte(`module example.org/demo

go 1.24

require pass/constfold v0.0.0
require pass/cse v0.0.2
require ipo/inlining v0.0.3
`)

	man, err := ParseManifest("bloomopt.mod", data)
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if man.Name != "example.org/demo" {
		t.Errorf("Name = %q, want example.org/demo", man.Name)
	}
	if len(man.Passes) != 3 {
		t.Fatalf("Passes = %d, want 3", len(man.Passes))
	}

	if !man.Enabled("pass/constfold", 0) {
		t.Errorf("pass/constfold should be enabled at level 0")
	}
	if man.Enabled("pass/cse", 1) {
		t.Errorf("pass/cse requires level 2, should not be enabled at level 1")
	}
	if !man.Enabled("pass/cse", 2) {
		t.Errorf("pass/cse should be enabled at level 2")
	}
	if man.Enabled("ipo/gvn", 3) {
		t.Errorf("ipo/gvn was never required, should never be enabled")
	}
}

func TestParseManifestRejectsMalformedVersion(t *testing.T) {
	data := []byte(`module example.org/demo

require pass/constfold v1.2.3-not-a-level
`)
	if _, err := ParseManifest("bloomopt.mod", data); err == nil {
		t.Fatalf("expected an error for a version whose patch component is not an integer level")
	}
}

func TestDefaultManifestEnablesEveryPassAtLevelZero(t *testing.T) {
	man := defaultManifest()
	for _, path := range []string{
		"pass/constfold", "pass/dce", "pass/cse",
		"ipo/callgraph", "ipo/dce", "ipo/inlining", "ipo/gvn",
	} {
		if !man.Enabled(path, 0) {
			t.Errorf("default manifest should enable %s at level 0", path)
		}
	}
	if man.Enabled("pass/nonexistent", 0) {
		t.Errorf("an unlisted pass should never be enabled")
	}
}

func TestParseManifestRejectsInvalidModfileSyntax(t *testing.T) {
	_, err := ParseManifest("bloomopt.mod", []byte("not valid go.mod syntax {{{"))
	if err == nil {
		t.Fatalf("expected a parse error")
	}
	if !strings.Contains(err.Error(), "parsing manifest") {
		t.Errorf("error = %v, want it wrapped with context", err)
	}
}

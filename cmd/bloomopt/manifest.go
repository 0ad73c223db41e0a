// manifest.go parses bloomopt's pipeline manifest.
package main

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/modfile"
)

// Manifest describes which passes a pipeline run should enable, and at
// what minimum optimization level. It is parsed from a bloomopt.mod file
// written in Go-module syntax: a `module` line naming the pipeline, and
// one `require <namespace>/<pass-name> v0.0.<level>` line per pass, where
// <level> is the lowest OptLevel at which the pass is eligible. Giving
// this shape to the manifest format reuses golang.org/x/mod/modfile
// (the teacher's go.mod declares it but never imports it) for real,
// instead of hand-rolling a parser for a one-off config format.
type Manifest struct {
	Name   string
	Passes []PassRequirement
}

// PassRequirement is one `require` line: a pass identified by its
// "<namespace>/<name>" path (e.g. "pass/cse", "ipo/inlining") and the
// lowest OptLevel at which it is enabled.
type PassRequirement struct {
	Path     string
	MinLevel int
}

// ParseManifest parses manifest data (as read from a bloomopt.mod file).
// filename is used only for error messages, matching modfile.Parse's own
// contract.
func ParseManifest(filename string, data []byte) (*Manifest, error) {
	f, err := modfile.Parse(filename, data, nil)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", filename, err)
	}

	man := &Manifest{}
	if f.Module != nil {
		man.Name = f.Module.Mod.Path
	}

	for _, req := range f.Require {
		level, err := minLevelFromVersion(req.Mod.Version)
		if err != nil {
			return nil, fmt.Errorf("manifest %s: require %s: %w", filename, req.Mod.Path, err)
		}
		man.Passes = append(man.Passes, PassRequirement{Path: req.Mod.Path, MinLevel: level})
	}
	return man, nil
}

// minLevelFromVersion reads the patch component of a "v0.0.N"-shaped
// version as the pass's minimum opt level. The major/minor components are
// unused placeholders kept at 0 so the manifest stays valid go.mod syntax.
func minLevelFromVersion(v string) (int, error) {
	v = strings.TrimPrefix(v, "v")
	parts := strings.Split(v, ".")
	if len(parts) != 3 {
		return 0, fmt.Errorf("malformed version %q, want v0.0.<level>", v)
	}
	level, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, fmt.Errorf("malformed level in version %q: %w", v, err)
	}
	return level, nil
}

// Enabled reports whether the pass at path is required at optLevel or
// below. A pass absent from the manifest is disabled.
func (m *Manifest) Enabled(path string, optLevel int) bool {
	for _, p := range m.Passes {
		if p.Path == path {
			return optLevel >= p.MinLevel
		}
	}
	return false
}

// defaultManifest enables every scalar and IPO pass at opt level 0, used
// when no -manifest flag is given.
func defaultManifest() *Manifest {
	return &Manifest{
		Name: "bloomopt.local/default",
		Passes: []PassRequirement{
			{Path: "pass/constfold", MinLevel: 0},
			{Path: "pass/dce", MinLevel: 0},
			{Path: "pass/dse", MinLevel: 0},
			{Path: "pass/reassociate", MinLevel: 0},
			{Path: "pass/pre", MinLevel: 0},
			{Path: "pass/sroa", MinLevel: 0},
			{Path: "pass/adce", MinLevel: 0},
			{Path: "pass/cse", MinLevel: 0},
			{Path: "ipo/callgraph", MinLevel: 0},
			{Path: "ipo/dce", MinLevel: 0},
			{Path: "ipo/specializer", MinLevel: 0},
			{Path: "ipo/inlining", MinLevel: 0},
			{Path: "ipo/gvn", MinLevel: 0},
		},
	}
}

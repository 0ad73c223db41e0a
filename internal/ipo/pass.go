// Package ipo implements the interprocedural optimization driver (§4.1
// mirror, §4.12-§4.15): a multi-module pass framework (IPOPass,
// IPOPassContext, IPOPassManager) built over the same registration and
// invalidation shape as internal/pass, plus the cross-module passes
// themselves — call graph construction, dead-function elimination,
// function specialization, and inlining.
//
// Grounded on include/bloom/ipo/pass.hpp, lib/ipo/pass-context.cpp, and
// include/bloom/ipo/pass-manager.hpp + lib/ipo/pass-manager.cpp.
package ipo

import (
	"github.com/kolkov/bloomir/internal/ir"
	"github.com/kolkov/bloomir/internal/pass"
)

// Pass is the capability every interprocedural pass implements: it runs
// over the whole set of modules at once rather than a single one (the
// original's IPOPass, §4.1 "IPO pass framework").
type Pass interface {
	Tag() pass.Tag
	Name() string
	Description() string
	// Requires lists the tags of IPO analysis passes this pass expects a
	// fresh result for (the original's required_passes()).
	Requires() []pass.Tag
	// Run executes the pass over every module, returning true if it
	// changed anything.
	Run(modules []*ir.Module, ctx *Context) bool
}

// BasePass supplies the common zero-value Requires() so concrete IPO
// passes only override what they need, mirroring pass.BasePass.
type BasePass struct{}

func (BasePass) Requires() []pass.Tag { return nil }

// Result is published by an IPO analysis pass into the Context's
// type-indexed cache (the original's IPOAnalysisResult).
type Result interface {
	// InvalidatedByPass reports whether a transform tagged transform
	// invalidates this result.
	InvalidatedByPass(transform pass.Tag) bool
	// InvalidatedByModules reports whether this result depended on any
	// module in changed, and so must be dropped when those modules are
	// mutated (the original's invalidated_by_modules).
	InvalidatedByModules(changed map[*ir.Module]bool) bool
}

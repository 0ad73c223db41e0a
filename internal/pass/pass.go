// Package pass implements the scalar pass/analysis/transform framework
// (§4.1): pass registration, dependency resolution, and analysis-result
// caching and invalidation for passes that run over a single ir.Module.
package pass

import (
	"errors"
	"fmt"

	"github.com/kolkov/bloomir/internal/ir"
)

// Tag is the stable per-pass-type identity token (design notes: "a stable
// per-type token, not the implementation language's typeid ... synthesize
// an opaque identifier keyed by a monotonic registration counter or a
// compile-time discriminator"). Every concrete pass type should expose a
// package-level Tag value and return it from Pass.Tag(), e.g.:
//
//	var CSETag = pass.NewTag("cse")
//	func (p *CSEPass) Tag() pass.Tag { return CSETag }
type Tag struct {
	name string
}

var tagRegistry = map[string]bool{}

// NewTag mints a new Tag. Minting the same name twice panics — tag names
// are meant to be declared once at package scope, not constructed
// dynamically.
func NewTag(name string) Tag {
	if tagRegistry[name] {
		panic(fmt.Sprintf("pass: tag %q already minted", name))
	}
	tagRegistry[name] = true
	return Tag{name: name}
}

func (t Tag) String() string { return t.name }

// Pass is the base capability every optimization pass implements (§4.1).
type Pass interface {
	Tag() Tag
	Name() string
	Description() string
	// Requires lists tags of passes that must have a fresh result before
	// this pass runs.
	Requires() []Tag
	// Invalidates lists tags whose cached results are dropped once this
	// pass runs successfully.
	Invalidates() []Tag
	// MinOptLevel is the lowest PassContext.OptLevel at which this pass
	// is eligible to run; below it, the manager skips (not fails) it.
	MinOptLevel() int
	// Run executes the pass, returning true on success/applicability.
	Run(m *ir.Module, ctx *Context) bool
}

// BasePass supplies the common zero-value behavior (no requirements, no
// invalidations, opt level 0) so concrete passes only override what they
// need — mirroring the original Pass base class's defaulted virtuals.
type BasePass struct{}

func (BasePass) Requires() []Tag    { return nil }
func (BasePass) Invalidates() []Tag { return nil }
func (BasePass) MinOptLevel() int   { return 0 }

// Result is published by an AnalysisPass (§4.1).
type Result interface {
	// InvalidatedBy reports whether a transform with the given tag
	// invalidates this result.
	InvalidatedBy(transform Tag) bool
}

// AnalysisPass refines Pass with an Analyze step whose result is cached in
// the PassContext keyed by the pass's own tag.
type AnalysisPass interface {
	Pass
	// Analyze computes the result, or returns ok=false on analysis
	// failure (§7.3) — dependents must then refuse to run.
	Analyze(m *ir.Module, ctx *Context) (res Result, ok bool)
}

// RunAnalysis is the generic run wrapper every AnalysisPass's Run should
// delegate to: it calls Analyze and stores the result under the pass's
// tag, exactly as the original's AnalysisPass::run does.
func RunAnalysis(p AnalysisPass, m *ir.Module, ctx *Context) bool {
	res, ok := p.Analyze(m, ctx)
	if !ok {
		return false
	}
	ctx.Store(p.Tag(), res)
	return true
}

// TransformPass is Pass used directly: it mutates the IR and reports
// whether it changed anything. The interface exists purely as a marker so
// callers can distinguish "this pass expects to write IR" from
// "this pass only analyzes" at the type level, mirroring the original's
// empty TransformPass subclass.
type TransformPass interface {
	Pass
	isTransform()
}

// BaseTransform gives a concrete transform pass the TransformPass marker
// for free, the same way BasePass gives it the common Pass defaults.
type BaseTransform struct{ BasePass }

func (BaseTransform) isTransform() {}

// Configuration errors (§7.1).
var (
	ErrDuplicatePass   = errors.New("pass already registered")
	ErrUnknownPass     = errors.New("pass not registered")
	ErrDependencyCycle = errors.New("dependency cycle among required passes")
)

// ConfigError wraps a configuration-error sentinel with the offending tag.
type ConfigError struct {
	Tag Tag
	Err error
}

func (e *ConfigError) Error() string { return fmt.Sprintf("pass %s: %v", e.Tag, e.Err) }
func (e *ConfigError) Unwrap() error { return e.Err }

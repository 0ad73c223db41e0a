package ipo

import (
	"strings"

	"github.com/kolkov/bloomir/internal/ir"
	"github.com/kolkov/bloomir/internal/pass"
)

// Context holds state shared across an IPO run over a set of modules: the
// modules themselves, the optimization configuration, and two analysis
// result caches (the original's dual string-keyed/type-indexed
// IPOPassContext, lib/ipo/pass-context.cpp):
//
//   - a type-indexed cache, keyed by the analysis pass's own pass.Tag —
//     used by single-result analyses like the call graph;
//   - a string-keyed cache, used by analyses that publish one result per
//     module under a namespaced key (e.g. "call_graph.<module>") so that a
//     prefix-wildcard pattern like "call_graph.*" can invalidate the whole
//     family at once.
//
// A tag placed in the preserved set is exempt from automatic invalidation
// by InvalidateByPass, mirroring mark_preserved<T>() (§1 open question 3).
type Context struct {
	modules   []*ir.Module
	optLevel  int
	debugMode bool

	typeResults   map[pass.Tag]Result
	stringResults map[string]Result
	preserved     map[pass.Tag]bool
	stats         map[string]uint64
}

// NewContext creates an IPO pass context over modules at the given
// optimization level and debug mode (§6 "Configuration").
func NewContext(modules []*ir.Module, optLevel int, debugMode bool) *Context {
	return &Context{
		modules:       modules,
		optLevel:      optLevel,
		debugMode:     debugMode,
		typeResults:   make(map[pass.Tag]Result),
		stringResults: make(map[string]Result),
		preserved:     make(map[pass.Tag]bool),
		stats:         make(map[string]uint64),
	}
}

// Modules returns the modules this context was created for.
func (c *Context) Modules() []*ir.Module { return c.modules }

// OptLevel returns the configured optimization level.
func (c *Context) OptLevel() int { return c.optLevel }

// DebugMode reports whether additional validation is enabled.
func (c *Context) DebugMode() bool { return c.debugMode }

// StoreResult records res in the type-indexed cache under tag.
func (c *Context) StoreResult(tag pass.Tag, res Result) { c.typeResults[tag] = res }

// GetResult returns the type-indexed result cached for tag, if any.
func (c *Context) GetResult(tag pass.Tag) (Result, bool) {
	r, ok := c.typeResults[tag]
	return r, ok
}

// HasResult reports whether a type-indexed result is cached for tag.
func (c *Context) HasResult(tag pass.Tag) bool {
	_, ok := c.typeResults[tag]
	return ok
}

// StoreStringResult records res in the string-keyed cache under key.
func (c *Context) StoreStringResult(key string, res Result) { c.stringResults[key] = res }

// GetStringResult returns the string-keyed result cached for key, if any.
func (c *Context) GetStringResult(key string) (Result, bool) {
	r, ok := c.stringResults[key]
	return r, ok
}

// HasStringResult reports whether a string-keyed result is cached for key.
func (c *Context) HasStringResult(key string) bool {
	_, ok := c.stringResults[key]
	return ok
}

// MarkPreserved exempts tag's type-indexed result from automatic
// invalidation by InvalidateByPass.
func (c *Context) MarkPreserved(tag pass.Tag) { c.preserved[tag] = true }

// InvalidateByPass drops every cached result (type- and string-keyed)
// whose InvalidatedByPass(transform) reports true, skipping any tag
// marked preserved. Called by the manager after each pass that reports it
// made changes (the original's invalidate_by(pass.blm_id())).
func (c *Context) InvalidateByPass(transform pass.Tag) {
	for tag, res := range c.typeResults {
		if c.preserved[tag] {
			continue
		}
		if res.InvalidatedByPass(transform) {
			delete(c.typeResults, tag)
		}
	}
	for key, res := range c.stringResults {
		if res.InvalidatedByPass(transform) {
			delete(c.stringResults, key)
		}
	}
}

// InvalidateByModules drops every cached result whose
// InvalidatedByModules(changed) reports true — used when a pass (e.g.
// inlining, specialization) mutates only a known subset of modules, so
// per-module analysis results for untouched modules survive (the
// original's invalidate_by_modules).
func (c *Context) InvalidateByModules(changed map[*ir.Module]bool) {
	for tag, res := range c.typeResults {
		if res.InvalidatedByModules(changed) {
			delete(c.typeResults, tag)
		}
	}
	for key, res := range c.stringResults {
		if res.InvalidatedByModules(changed) {
			delete(c.stringResults, key)
		}
	}
}

// InvalidateMatching erases string-keyed results matching pattern: a
// trailing "*" matches by prefix (e.g. "call_graph.*"), anything else
// matches exactly (the original's invalidate_matching).
func (c *Context) InvalidateMatching(pattern string) {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		for key := range c.stringResults {
			if strings.HasPrefix(key, prefix) {
				delete(c.stringResults, key)
			}
		}
		return
	}
	delete(c.stringResults, pattern)
}

// UpdateStat adds delta to the named statistic.
func (c *Context) UpdateStat(name string, delta uint64) { c.stats[name] += delta }

// GetStat returns the named statistic, or 0 if never updated.
func (c *Context) GetStat(name string) uint64 { return c.stats[name] }

// Stats returns a snapshot of every statistic recorded so far.
func (c *Context) Stats() map[string]uint64 {
	out := make(map[string]uint64, len(c.stats))
	for k, v := range c.stats {
		out[k] = v
	}
	return out
}

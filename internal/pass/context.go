package pass

import "github.com/kolkov/bloomir/internal/ir"

// Context holds state shared across a pass run over one module: the
// cached analysis results, statistics counters, and the options the
// manager was constructed with (§4.1).
type Context struct {
	mod       *ir.Module
	optLevel  int
	debugMode bool

	results map[Tag]Result
	stats   map[string]uint64
}

// NewContext creates a pass context for module at the given optimization
// level (0-3) and debug mode (§6 "Configuration").
func NewContext(m *ir.Module, optLevel int, debugMode bool) *Context {
	return &Context{
		mod:       m,
		optLevel:  optLevel,
		debugMode: debugMode,
		results:   make(map[Tag]Result),
		stats:     make(map[string]uint64),
	}
}

// Module returns the module this context was created for.
func (c *Context) Module() *ir.Module { return c.mod }

// OptLevel returns the configured optimization level.
func (c *Context) OptLevel() int { return c.optLevel }

// DebugMode reports whether additional validation is enabled.
func (c *Context) DebugMode() bool { return c.debugMode }

// Store records res under tag, replacing any prior result for that tag.
func (c *Context) Store(tag Tag, res Result) { c.results[tag] = res }

// Get returns the cached result for tag, or nil if none is cached.
func (c *Context) Get(tag Tag) Result { return c.results[tag] }

// Has reports whether a result is cached for tag.
func (c *Context) Has(tag Tag) bool {
	_, ok := c.results[tag]
	return ok
}

// Invalidate drops the cached result for tag, if any.
func (c *Context) Invalidate(tag Tag) { delete(c.results, tag) }

// InvalidateBy drops every cached result whose InvalidatedBy(transform)
// reports true (§4.1, "the manager ... calls invalidate_by(P.tag) so each
// remaining result can self-invalidate").
func (c *Context) InvalidateBy(transform Tag) {
	for tag, res := range c.results {
		if res.InvalidatedBy(transform) {
			delete(c.results, tag)
		}
	}
}

// UpdateStat adds delta to the named statistic (§6, conventional keys like
// "cse.eliminated_expressions").
func (c *Context) UpdateStat(name string, delta uint64) { c.stats[name] += delta }

// GetStat returns the named statistic, or 0 if never updated.
func (c *Context) GetStat(name string) uint64 { return c.stats[name] }

// Stats returns a snapshot of every statistic recorded so far, for
// reporting (PassManager.PrintStatistics).
func (c *Context) Stats() map[string]uint64 {
	out := make(map[string]uint64, len(c.stats))
	for k, v := range c.stats {
		out[k] = v
	}
	return out
}

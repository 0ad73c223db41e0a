package pass

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/kolkov/bloomir/internal/ir"
)

type passInfo struct {
	pass        Pass
	required    []Tag
	invalidates []Tag
}

// Manager registers passes and records their required/invalidated sets,
// then runs them in dependency order (§4.1).
type Manager struct {
	mod       *ir.Module
	ctx       *Context
	verbosity int

	passes    map[Tag]*passInfo
	order     []Tag // registration order
	times     map[Tag]time.Duration
	completed map[Tag]bool // ran successfully this session, for memoized dependency resolution
}

// NewManager creates a manager for module at the given opt level, debug
// mode, and verbosity (0 silent, 1 per-pass timing, 2 per-pass trace —
// §6).
func NewManager(m *ir.Module, optLevel int, debugMode bool, verbosity int) *Manager {
	return &Manager{
		mod:       m,
		ctx:       NewContext(m, optLevel, debugMode),
		verbosity: verbosity,
		passes:    make(map[Tag]*passInfo),
		times:     make(map[Tag]time.Duration),
		completed: make(map[Tag]bool),
	}
}

// AddPass registers p. Registering the same tag twice is a configuration
// error (§7.1).
func (mgr *Manager) AddPass(p Pass) error {
	tag := p.Tag()
	if _, exists := mgr.passes[tag]; exists {
		return &ConfigError{Tag: tag, Err: ErrDuplicatePass}
	}
	mgr.passes[tag] = &passInfo{pass: p, required: p.Requires(), invalidates: p.Invalidates()}
	mgr.order = append(mgr.order, tag)
	return nil
}

// Context returns the pass context shared by every registered pass.
func (mgr *Manager) Context() *Context { return mgr.ctx }

// SetVerbosity changes the verbosity level.
func (mgr *Manager) SetVerbosity(level int) { mgr.verbosity = level }

// RunPass runs the pass registered under tag, first running its required
// passes recursively (memoized on "has a fresh result this session").
// Detects dependency cycles and unknown tags as configuration errors
// (§7.1). A pass whose MinOptLevel exceeds the context's OptLevel is
// skipped, not failed, and reports true (§4.1).
func (mgr *Manager) RunPass(tag Tag) (bool, error) {
	return mgr.runPass(tag, nil)
}

func (mgr *Manager) runPass(tag Tag, stack []Tag) (bool, error) {
	info, ok := mgr.passes[tag]
	if !ok {
		return false, &ConfigError{Tag: tag, Err: ErrUnknownPass}
	}
	for _, onStack := range stack {
		if onStack == tag {
			return false, &ConfigError{Tag: tag, Err: ErrDependencyCycle}
		}
	}
	stack = append(stack, tag)

	for _, req := range info.required {
		if mgr.completed[req] && mgr.hasFreshResult(req) {
			continue
		}
		if ok, err := mgr.runPass(req, stack); err != nil {
			return false, err
		} else if !ok {
			// A required pass failing/being inapplicable does not by
			// itself fail this pass; analysis-failure propagation is the
			// dependent pass's own Run's job (it should check ctx.Has).
			continue
		}
	}

	if mgr.ctx.optLevel < info.pass.MinOptLevel() {
		if mgr.verbosity >= 2 {
			fmt.Printf("pass %s: skipped (requires opt level %d, have %d)\n", tag, info.pass.MinOptLevel(), mgr.ctx.optLevel)
		}
		return true, nil
	}

	start := time.Now()
	ok = info.pass.Run(mgr.mod, mgr.ctx)
	elapsed := time.Since(start)
	mgr.times[tag] += elapsed

	if mgr.verbosity >= 1 {
		fmt.Printf("pass %s: %v (%s)\n", tag, ok, elapsed)
	}

	if ok {
		mgr.completed[tag] = true
		for _, inv := range info.invalidates {
			mgr.ctx.Invalidate(inv)
		}
		mgr.ctx.InvalidateBy(tag)
	}
	return ok, nil
}

// hasFreshResult reports whether tag has a cached AnalysisPass result —
// used to decide whether a required pass needs to re-run.
func (mgr *Manager) hasFreshResult(tag Tag) bool {
	if _, isAnalysis := mgr.passes[tag].pass.(AnalysisPass); !isAnalysis {
		return true // transform passes have no cached result to check
	}
	return mgr.ctx.Has(tag)
}

// RunAll runs every registered pass, in registration order, resolving
// dependencies as it goes. Returns an error only for a configuration
// problem (§7.1); individual pass failures are recorded but do not abort
// the pipeline (§7, "A pass failure aborts the current pipeline but
// leaves previously committed transforms intact" — here "pipeline" means
// that one pass's failure still lets later independent passes run).
func (mgr *Manager) RunAll() (bool, error) {
	allOK := true
	for _, tag := range mgr.order {
		ok, err := mgr.RunPass(tag)
		if err != nil {
			return false, err
		}
		if !ok {
			allOK = false
		}
	}
	return allOK, nil
}

// PrintStatistics writes a columnar report of per-pass timing and
// recorded stat counters to w (§10.1 — grounded on
// PassManager::print_statistics(std::ostream&), rendered with
// text/tabwriter the way the corpus's SSA printer formats columnar IR
// dumps).
func (mgr *Manager) PrintStatistics(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "pass\ttime")
	for _, tag := range mgr.order {
		fmt.Fprintf(tw, "%s\t%s\n", tag, mgr.times[tag])
	}
	fmt.Fprintln(tw, "stat\tvalue")
	for name, v := range mgr.ctx.Stats() {
		fmt.Fprintf(tw, "%s\t%d\n", name, v)
	}
	tw.Flush()
}

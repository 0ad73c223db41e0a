package ipo

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/kolkov/bloomir/internal/ir"
	"github.com/kolkov/bloomir/internal/pass"
)

type registration struct {
	pass Pass
}

// Manager registers IPO passes and runs them strictly in registration
// order — no dependency graph, unlike the single-module pass.Manager
// (§4.1 "The IPOPassManager runs passes strictly in registration order").
// Grounded on IPOPassManager (include/bloom/ipo/pass-manager.hpp,
// lib/ipo/pass-manager.cpp).
type Manager struct {
	modules   []*ir.Module
	ctx       *Context
	verbosity int

	passes map[pass.Tag]*registration
	order  []pass.Tag
	times  map[pass.Tag]time.Duration
}

// NewManager creates a manager over modules at the given optimization
// level, debug mode, and verbosity (0 silent, 1 per-pass result, 2
// per-pass trace — matching pass-manager.cpp's verbosity_lvl gates).
func NewManager(modules []*ir.Module, optLevel int, debugMode bool, verbosity int) *Manager {
	return &Manager{
		modules:   modules,
		ctx:       NewContext(modules, optLevel, debugMode),
		verbosity: verbosity,
		passes:    make(map[pass.Tag]*registration),
		times:     make(map[pass.Tag]time.Duration),
	}
}

// AddPass registers p. Registering the same tag twice is a configuration
// error, mirroring add_pass's duplicate-registration throw.
func (mgr *Manager) AddPass(p Pass) error {
	tag := p.Tag()
	if _, exists := mgr.passes[tag]; exists {
		return &pass.ConfigError{Tag: tag, Err: pass.ErrDuplicatePass}
	}
	mgr.passes[tag] = &registration{pass: p}
	mgr.order = append(mgr.order, tag)
	return nil
}

// Context returns the pass context shared by every registered pass.
func (mgr *Manager) Context() *Context { return mgr.ctx }

// SetVerbosity changes the verbosity level.
func (mgr *Manager) SetVerbosity(level int) { mgr.verbosity = level }

// RunPass runs the single pass registered under tag (run_pass(type_info)),
// without touching invalidation — that is run_all's job, per the
// original where run_pass is a standalone entry point used by callers
// that want one specific pass run directly.
func (mgr *Manager) RunPass(tag pass.Tag) (bool, error) {
	reg, ok := mgr.passes[tag]
	if !ok {
		return false, &pass.ConfigError{Tag: tag, Err: pass.ErrUnknownPass}
	}

	if mgr.verbosity >= 1 {
		fmt.Printf("Running IPO pass: %s\n", reg.pass.Name())
	}

	start := time.Now()
	result := reg.pass.Run(mgr.modules, mgr.ctx)
	elapsed := time.Since(start)
	mgr.times[tag] = elapsed

	if mgr.verbosity >= 1 {
		fmt.Printf("IPO pass %s %s (%s)\n", reg.pass.Name(), changeWord(result), elapsed)
	}
	return result, nil
}

// RunAll runs every registered pass in registration order. After each
// pass that reports it made changes, it invalidates analysis results that
// pass affects via Context.InvalidateByPass (run_all's
// "ctx.invalidate_by(pass->blm_id())").
func (mgr *Manager) RunAll() bool {
	if mgr.verbosity >= 1 {
		fmt.Printf("Running %d IPO passes...\n", len(mgr.order))
	}

	for _, tag := range mgr.order {
		reg, ok := mgr.passes[tag]
		if !ok {
			continue
		}

		if mgr.verbosity >= 2 {
			fmt.Printf("Running IPO pass: %s\n", reg.pass.Name())
		}

		start := time.Now()
		result := reg.pass.Run(mgr.modules, mgr.ctx)
		elapsed := time.Since(start)
		mgr.times[tag] = elapsed

		if result {
			mgr.ctx.InvalidateByPass(tag)
		}

		if mgr.verbosity >= 2 {
			fmt.Printf("IPO pass %s %s (%s)\n", reg.pass.Name(), changeWord(result), elapsed)
		}
	}

	if mgr.verbosity >= 1 {
		fmt.Println("IPO pass execution complete.")
	}
	return true
}

func changeWord(changed bool) string {
	if changed {
		return "made changes"
	}
	return "made no changes"
}

// PrintStatistics writes a columnar report of per-pass timing (and total)
// to w, rendered with text/tabwriter the way pass.Manager.PrintStatistics
// and the teacher's SSA printer both format columnar output (the
// original's print_statistics(ostream&)).
func (mgr *Manager) PrintStatistics(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "IPO statistics")

	var total time.Duration
	for _, d := range mgr.times {
		total += d
	}

	for _, tag := range mgr.order {
		d, ok := mgr.times[tag]
		if !ok {
			continue
		}
		reg := mgr.passes[tag]
		pct := 0.0
		if total > 0 {
			pct = float64(d) / float64(total) * 100.0
		}
		fmt.Fprintf(tw, "%s\t%s\t(%.1f%%)\n", reg.pass.Name(), d, pct)
	}
	fmt.Fprintf(tw, "Total\t%s\t\n", total)
	tw.Flush()
}

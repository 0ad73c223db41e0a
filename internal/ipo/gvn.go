package ipo

import (
	"github.com/kolkov/bloomir/internal/analysis/alias"
	"github.com/kolkov/bloomir/internal/ir"
	"github.com/kolkov/bloomir/internal/pass"
	"github.com/kolkov/bloomir/internal/transform"
)

// GVNTag identifies the IPO global-value-numbering pass.
var GVNTag = pass.NewTag("ipo-global-value-numbering")

// GVN runs the scalar CSE pass (after its alias-analysis dependency)
// independently over every module in the run, summing how many
// expressions it eliminated. It is not a cross-module value-numbering
// algorithm in its own right — it is a thin IPO-level driver over the
// same local pass.Manager the single-module pipeline uses — exactly
// matching the original IPOGVNPass, whose run() body builds one local
// PassManager per module and is itself aliased as GVNPass = CSEPass
// (include/bloom/ipo/gvn.hpp).
type GVN struct{ BasePass }

func (*GVN) Tag() pass.Tag { return GVNTag }
func (*GVN) Name() string  { return "ipo-global-value-numbering" }
func (*GVN) Description() string {
	return "performs global value numbering across all modules using local GVN"
}

func (p *GVN) Run(modules []*ir.Module, ctx *Context) bool {
	var totalEliminated uint64

	for _, m := range modules {
		if m == nil {
			continue
		}
		localMgr := pass.NewManager(m, ctx.OptLevel(), ctx.DebugMode(), 0)
		if err := localMgr.AddPass(&alias.Pass{}); err != nil {
			continue
		}
		if err := localMgr.AddPass(&transform.CSE{}); err != nil {
			continue
		}
		if _, err := localMgr.RunAll(); err != nil {
			continue
		}
		totalEliminated += localMgr.Context().GetStat("cse.eliminated_expressions")
	}

	ctx.UpdateStat("ipo_gvn.total_eliminated", totalEliminated)
	return totalEliminated > 0
}

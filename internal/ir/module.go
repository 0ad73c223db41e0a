package ir

// RodataRegionName is the name of a module's distinguished read-only-data
// region (§3).
const RodataRegionName = ".__rodata"

// Module is a named compilation unit (§3).
type Module struct {
	Name    StringID
	ctx     *Context
	Regions []*Region // top-level regions: Root, Rodata, and one per function body
	Root    *Region
	Rodata  *Region
	Funcs   []*Node // function nodes, in declaration order

	funcRegions  map[*Node]*Region // function node -> its body region
	rodataByText map[string]*Node  // dedup for rodata string literals (§3 "interning a string literal is idempotent")
}

func newModule(ctx *Context, name StringID) *Module {
	m := &Module{Name: name, ctx: ctx, funcRegions: make(map[*Node]*Region), rodataByText: make(map[string]*Node)}
	m.Root = NewRegion()
	m.Root.module = m
	m.Rodata = NewRegion()
	m.Rodata.module = m
	m.Regions = append(m.Regions, m.Root, m.Rodata)
	return m
}

// Context returns the owning Context.
func (m *Module) Context() *Context { return m.ctx }

// FindFunction looks up a function by interned name, O(n) per §3.
func (m *Module) FindFunction(name StringID) *Node {
	for _, f := range m.Funcs {
		if f.StrID == name {
			return f
		}
	}
	return nil
}

// AddFunction registers a function node and its body region, both already
// constructed (by the external builder, §6). AddFunction is also used by
// IPO cloning (specialization, inlining) to attach a freshly built clone.
func (m *Module) AddFunction(fn *Node, body *Region) {
	m.Funcs = append(m.Funcs, fn)
	m.Regions = append(m.Regions, body)
	body.module = m
	m.funcRegions[fn] = body
}

// RemoveFunction drops fn from the function list and detaches its body
// region from the module's top-level region list, without freeing either
// (§3 invariant 2; used by IPO-DCE, §4.13).
func (m *Module) RemoveFunction(fn *Node) {
	for i, f := range m.Funcs {
		if f == fn {
			m.Funcs = append(m.Funcs[:i], m.Funcs[i+1:]...)
			break
		}
	}
	if body, ok := m.funcRegions[fn]; ok {
		for i, r := range m.Regions {
			if r == body {
				m.Regions = append(m.Regions[:i], m.Regions[i+1:]...)
				break
			}
		}
		delete(m.funcRegions, fn)
	}
}

// FunctionRegion returns the body region of fn, or nil if fn is not a
// function known to this module.
func (m *Module) FunctionRegion(fn *Node) *Region { return m.funcRegions[fn] }

// InternRodata interns a string literal into the .__rodata region,
// reusing an existing node for an identical byte sequence (§3, "interning
// a string literal is idempotent within a module's rodata region").
func (m *Module) InternRodata(text string) *Node {
	if n, ok := m.rodataByText[text]; ok {
		return n
	}
	n := &Node{
		ID:    m.ctx.nextID(),
		Op:    OpLit,
		Type:  PrimitiveType(String),
		Data:  Data{Str: text},
		Props: PropReadonly | PropConstexpr,
	}
	m.Rodata.Append(n)
	m.rodataByText[text] = n
	return n
}

// AllRegions returns every region reachable from the module's top-level
// regions, in region-tree pre-order (deterministic, per §5 "region tree in
// a fixed child order").
func (m *Module) AllRegions() []*Region {
	var out []*Region
	var walk func(*Region)
	walk = func(r *Region) {
		out = append(out, r)
		for _, c := range r.Children {
			walk(c)
		}
	}
	for _, top := range m.Regions {
		walk(top)
	}
	return out
}

// Dominates answers the pessimistic structural-dominance query (§3
// invariant 4, design notes): anc dominates cand iff cand is in anc's
// region-tree subtree (or anc==cand) AND no terminator outside anc's
// subtree targets a region strictly inside anc's subtree via an
// unstructured jump/branch/invoke — such an edge would let control reach
// cand (or anything between anc and cand) without passing through anc's
// own entry. A jump landing on anc itself is the ordinary single-entry
// case and does not break dominance.
//
// This is O(R) per query where R is the module's region count; §9 notes a
// precomputed dominator tree would win asymptotically but is not mandated,
// and documents the repeated-ancestor-scan cost as an accepted trade-off.
func (m *Module) Dominates(anc, cand *Region) bool {
	if anc == cand {
		return true
	}
	if !isTreeAncestor(anc, cand) {
		return false
	}
	for _, r := range m.AllRegions() {
		if isTreeAncestor(anc, r) {
			continue // structured: reaching r already implies passing through anc
		}
		for _, n := range r.Nodes {
			if !n.Op.IsTerminator() {
				continue
			}
			for _, tgt := range n.Successors() {
				if tgt == nil || tgt.Region == nil {
					continue
				}
				if tgt.Region != anc && isTreeAncestor(anc, tgt.Region) {
					return false
				}
			}
		}
	}
	return true
}

package ir

// Region is a lexical scope / basic-block-group: the structural backbone
// of the IR (§3). Control-flow edges between nodes may additionally cross
// the region tree via unstructured jump/branch/invoke targets.
type Region struct {
	Parent   *Region
	Children []*Region
	Nodes    []*Node

	// ControlDep optionally links this region to the node that controls
	// whether it executes (e.g. the branch condition for a then-block).
	ControlDep *Node

	// DebugInfo is an opaque side table (§6): the core never branches on
	// its contents. Nothing in this module populates it; it is kept as
	// `any` so the foundation layer depends on no debug-info type.
	DebugInfo any

	module *Module
}

// NewRegion creates a detached region with no parent. Use
// Module.AddFunction (for a function body) or AddChild to attach it to
// the tree.
func NewRegion() *Region {
	return &Region{}
}

// AddChild appends child to r's children and sets its parent link.
func (r *Region) AddChild(child *Region) {
	child.Parent = r
	child.module = r.module
	r.Children = append(r.Children, child)
}

// Append adds n to the end of r's node list (insertion order is semantic —
// §3, "last node determines termination") and sets n's owning region.
func (r *Region) Append(n *Node) {
	n.Region = r
	r.Nodes = append(r.Nodes, n)
}

// InsertBefore inserts n immediately before the node at position of mark
// in r's node list. Used by reassociation (§4.9) and PRE (§4.10) to splice
// freshly synthesized nodes ahead of the point that needs them.
func (r *Region) InsertBefore(mark *Node, n *Node) {
	for i, m := range r.Nodes {
		if m == mark {
			r.Nodes = append(r.Nodes, nil)
			copy(r.Nodes[i+1:], r.Nodes[i:])
			r.Nodes[i] = n
			n.Region = r
			return
		}
	}
	r.Append(n)
}

// Remove detaches n from r's node list. Per §3 invariant 2, this does not
// free n — the context arena owns it — and does not unlink its def-use
// edges; callers that want n fully gone call n.Unlink() too.
func (r *Region) Remove(n *Node) {
	for i, m := range r.Nodes {
		if m == n {
			r.Nodes = append(r.Nodes[:i], r.Nodes[i+1:]...)
			n.Region = nil
			return
		}
	}
}

// RemoveChild detaches child from r's children list without touching the
// child's own Nodes/Children — used by ADCE to prune whole subtrees.
func (r *Region) RemoveChild(child *Region) {
	for i, c := range r.Children {
		if c == child {
			r.Children = append(r.Children[:i], r.Children[i+1:]...)
			child.Parent = nil
			return
		}
	}
}

// Terminator returns r's last node if it is a terminator (§3 invariant 3),
// otherwise nil.
func (r *Region) Terminator() *Node {
	if len(r.Nodes) == 0 {
		return nil
	}
	last := r.Nodes[len(r.Nodes)-1]
	if last.Op.IsTerminator() {
		return last
	}
	return nil
}

// IsTerminated reports whether r ends in a ret/jump/branch/invoke (§3
// invariant 3).
func (r *Region) IsTerminated() bool { return r.Terminator() != nil }

// Successors returns the entry nodes a terminator node targets: jump's
// slot 0; branch's slots 1 (true) and 2 (false); invoke's final two slots
// (normal, exception). Returns nil for non-terminator nodes (§4.3).
func (n *Node) Successors() []*Node {
	switch n.Op {
	case OpJump:
		if len(n.Inputs) > 0 {
			return []*Node{n.Inputs[0]}
		}
	case OpBranch:
		if len(n.Inputs) > 2 {
			return []*Node{n.Inputs[1], n.Inputs[2]}
		}
	case OpInvoke:
		if l := len(n.Inputs); l >= 2 {
			return []*Node{n.Inputs[l-2], n.Inputs[l-1]}
		}
	}
	return nil
}

// EntryNode returns the first node of r, which per §3 invariant 5 must be
// an OpEntry node whenever r is the target of an inter-region jump.
func (r *Region) EntryNode() *Node {
	if len(r.Nodes) == 0 {
		return nil
	}
	if e := r.Nodes[0]; e.Op == OpEntry {
		return e
	}
	return nil
}

// isTreeAncestor reports whether anc is r or a proper ancestor of r in the
// region tree.
func isTreeAncestor(anc, r *Region) bool {
	for cur := r; cur != nil; cur = cur.Parent {
		if cur == anc {
			return true
		}
	}
	return false
}

// TreeDominates is the naive "ancestor in region tree" test. It is sound
// for fully structured control flow but unsound once an unstructured jump
// enters the picture — see Dominates, and the design notes' discussion of
// this exact pitfall.
func TreeDominates(anc, r *Region) bool { return isTreeAncestor(anc, r) }

package ir

import "fmt"

// InvariantError reports a violation of one of the §3 structural
// invariants, with enough context (the check name and offending node's op
// and id) to pinpoint the bug — the shape §7 requires of every fatal
// mid-pass error.
type InvariantError struct {
	Check  string
	Op     Op
	NodeID ID
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("ir: invariant %q violated at node #%d (%s): %s", e.Check, e.NodeID, e.Op, e.Detail)
}

// CheckInvariants verifies the universal invariants from §3 and §8 against
// m: def-use consistency, region ownership, rodata read-only-ness, region
// tree acyclicity, and "every terminator's target is an entry node". It
// returns the first violation found, or nil if m is well-formed.
func CheckInvariants(m *Module) error {
	for _, r := range m.AllRegions() {
		for _, n := range r.Nodes {
			if n.Region != r {
				return &InvariantError{Check: "region-ownership", Op: n.Op, NodeID: n.ID,
					Detail: "node's Region field does not point back to the region listing it"}
			}
			for _, in := range n.Inputs {
				if !containsNode(in.Users, n) {
					return &InvariantError{Check: "def-use-consistency", Op: n.Op, NodeID: n.ID,
						Detail: fmt.Sprintf("input #%d does not list this node as a user", in.ID)}
				}
			}
			for _, u := range n.Users {
				if !containsNode(u.Inputs, n) {
					return &InvariantError{Check: "def-use-consistency", Op: n.Op, NodeID: n.ID,
						Detail: fmt.Sprintf("user #%d does not have this node as an input", u.ID)}
				}
			}
			if n.Op.IsTerminator() {
				for _, tgt := range n.Successors() {
					if tgt == nil || tgt.Op != OpEntry {
						return &InvariantError{Check: "terminator-targets-entry", Op: n.Op, NodeID: n.ID,
							Detail: "terminator target is not an entry node"}
					}
				}
			}
		}
	}
	for _, n := range m.Rodata.Nodes {
		if !n.HasProp(PropReadonly) {
			return &InvariantError{Check: "rodata-readonly", Op: n.Op, NodeID: n.ID,
				Detail: "node in .__rodata lacks READONLY"}
		}
	}
	if cyc := findRegionCycle(m); cyc != nil {
		return &InvariantError{Check: "region-tree-acyclic", Detail: "region tree contains a cycle"}
	}
	return nil
}

func containsNode(list []*Node, n *Node) bool {
	for _, x := range list {
		if x == n {
			return true
		}
	}
	return false
}

func findRegionCycle(m *Module) *Region {
	visiting := make(map[*Region]bool)
	done := make(map[*Region]bool)
	var dfs func(r *Region) *Region
	dfs = func(r *Region) *Region {
		if done[r] {
			return nil
		}
		if visiting[r] {
			return r
		}
		visiting[r] = true
		for _, c := range r.Children {
			if cyc := dfs(c); cyc != nil {
				return cyc
			}
		}
		visiting[r] = false
		done[r] = true
		return nil
	}
	for _, top := range m.Regions {
		if cyc := dfs(top); cyc != nil {
			return cyc
		}
	}
	return nil
}

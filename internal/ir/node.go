package ir

import "fmt"

// Op is the discriminant for what computation a Node performs (§3, full
// enumeration in the GLOSSARY).
type Op uint8

const (
	OpEntry Op = iota
	OpExit
	OpParam
	OpLit

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod

	OpGt
	OpGte
	OpLt
	OpLte
	OpEq
	OpNeq

	OpBand
	OpBor
	OpBxor
	OpBnot
	OpBshl
	OpBshr

	OpRet
	OpFunction
	OpCall
	OpCallParam
	OpCallResult

	OpStackAlloc
	OpHeapAlloc
	OpFree
	OpLoad
	OpStore
	OpAddrOf
	OpPtrLoad
	OpPtrStore
	OpPtrAdd
	OpReinterpretCast

	OpAtomicLoad
	OpAtomicStore
	OpAtomicCAS

	OpJump
	OpBranch
	OpInvoke

	OpVectorBuild
	OpVectorExtract
	OpVectorSplat

	numOps
)

var opNames = [numOps]string{
	OpEntry: "entry", OpExit: "exit", OpParam: "param", OpLit: "lit",
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div", OpMod: "mod",
	OpGt: "gt", OpGte: "gte", OpLt: "lt", OpLte: "lte", OpEq: "eq", OpNeq: "neq",
	OpBand: "band", OpBor: "bor", OpBxor: "bxor", OpBnot: "bnot", OpBshl: "bshl", OpBshr: "bshr",
	OpRet: "ret", OpFunction: "function", OpCall: "call", OpCallParam: "call_param", OpCallResult: "call_result",
	OpStackAlloc: "stack_alloc", OpHeapAlloc: "heap_alloc", OpFree: "free",
	OpLoad: "load", OpStore: "store", OpAddrOf: "addr_of",
	OpPtrLoad: "ptr_load", OpPtrStore: "ptr_store", OpPtrAdd: "ptr_add", OpReinterpretCast: "reinterpret_cast",
	OpAtomicLoad: "atomic_load", OpAtomicStore: "atomic_store", OpAtomicCAS: "atomic_cas",
	OpJump: "jump", OpBranch: "branch", OpInvoke: "invoke",
	OpVectorBuild: "vector_build", OpVectorExtract: "vector_extract", OpVectorSplat: "vector_splat",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", op)
}

// IsCommutative reports whether op's two operands may be reordered without
// changing its value — used by CSE value numbering (§4.5) and reassociation
// (§4.9).
func (op Op) IsCommutative() bool {
	switch op {
	case OpAdd, OpMul, OpBand, OpBor, OpBxor, OpEq, OpNeq:
		return true
	}
	return false
}

// IsAssociative reports whether op may be freely reassociated/flattened
// (§4.9).
func (op Op) IsAssociative() bool {
	switch op {
	case OpAdd, OpMul, OpBand, OpBor, OpBxor:
		return true
	}
	return false
}

// IsTerminator reports whether op ends a region's control flow (§3
// invariant 3).
func (op Op) IsTerminator() bool {
	switch op {
	case OpRet, OpJump, OpBranch, OpInvoke:
		return true
	}
	return false
}

// HasSideEffects reports whether op performs an effect other than
// producing a value: stores, calls, control flow, allocation, atomics, and
// the structural entry/exit/function/param markers are never eligible for
// CSE/PRE (§4.5 rule 4). DCE and ADCE do not consult it; each keeps its
// own root list.
func (op Op) HasSideEffects() bool {
	switch op {
	case OpStore, OpPtrStore, OpAtomicLoad, OpAtomicStore, OpAtomicCAS, OpFree,
		OpCall, OpInvoke, OpHeapAlloc, OpStackAlloc,
		OpJump, OpBranch, OpRet, OpEntry, OpExit, OpFunction, OpParam:
		return true
	}
	return false
}

// AtomicOrdering models memory-ordering semantics for atomic ops
// (GLOSSARY).
type AtomicOrdering uint8

const (
	OrderRelaxed AtomicOrdering = 0
	OrderAcquire AtomicOrdering = 1 << 0
	OrderRelease AtomicOrdering = 1 << 1
	OrderAcqRel                 = OrderAcquire | OrderRelease
	OrderSeqCst                 = OrderAcquire | OrderRelease | (1 << 3)
	OrderExclusive AtomicOrdering = 1 << 4
)

// Props is a bitset of per-node properties (§3).
type Props uint16

const (
	PropNone       Props = 0
	PropStatic     Props = 1 << 0
	PropConstexpr  Props = 1 << 1
	PropExtern     Props = 1 << 2
	PropDriver     Props = 1 << 3
	PropExport     Props = 1 << 4
	PropNoOptimize Props = 1 << 5
	PropReadonly   Props = 1 << 6
)

// Has reports whether all bits in mask are set in p.
func (p Props) Has(mask Props) bool { return p&mask == mask }

// Data is the tagged-value payload of a literal or metadata-carrying node,
// keyed by the owning Node's Type. Go has no native tagged union, so every
// arm gets a field; callers read the field matching Type/Op, exactly as
// the original's DataTypeTraits<T>::type dispatch does by compile-time tag.
type Data struct {
	Int     int64    // integer literals (signed and unsigned alike; reinterpret per Type)
	Float   float64  // f32/f64 literals
	Bool    bool     // bool literals
	Str     string   // string literals, or interned-name payloads
	NodeRef *Node    // LOAD/PTR_LOAD/PTR_STORE/CALL's referenced node (original's as_node_ref)
	AddrSpace uint32 // ADDR_OF / pointer-producing op metadata
	Order   AtomicOrdering
}

// ID is a process-unique, monotonically increasing identifier assigned to
// every Node on creation. Besides diagnostics (error messages, dumps) it
// serves as a stable node identity: CSE/PRE hash it for operands, and the
// function specializer hashes a function's ID into its cache key and
// clone name.
type ID uint64

// Node is the unit of computation in the IR (§3).
type Node struct {
	ID     ID
	Op     Op
	Type   TypeID
	Data   Data
	Inputs []*Node
	Users  []*Node

	Region *Region // owning region, nil if detached
	StrID  StringID
	Props  Props
}

// HasProp is shorthand for n.Props.Has(mask).
func (n *Node) HasProp(mask Props) bool { return n.Props.Has(mask) }

// AddInput appends v to n's operand list and records the reciprocal
// def-use back-edge (§3 invariant 1). AddInput is the only sanctioned way
// to wire an operand: every mutating operation in this package routes
// through it so the invariant can never be only half-applied.
func (n *Node) AddInput(v *Node) {
	n.Inputs = append(n.Inputs, v)
	v.Users = append(v.Users, n)
}

// SetInput replaces the operand at index i, maintaining def-use
// consistency on both the old and new operand.
func (n *Node) SetInput(i int, v *Node) {
	old := n.Inputs[i]
	removeUser(old, n)
	n.Inputs[i] = v
	v.Users = append(v.Users, n)
}

// ReplaceAllUsesWith redirects every user of n to use repl instead,
// draining n.Users in the process (n itself is left with no users but is
// not removed from its region — callers that want it gone still need to
// unlink it, e.g. via Region.Remove).
func (n *Node) ReplaceAllUsesWith(repl *Node) {
	users := n.Users
	n.Users = nil
	for _, u := range users {
		for i, in := range u.Inputs {
			if in == n {
				u.Inputs[i] = repl
				repl.Users = append(repl.Users, u)
			}
		}
	}
}

// Unlink detaches n from every one of its inputs' user lists, without
// touching n.Region. Used when a node is being removed from the IR
// entirely (DCE/ADCE sweep, dead-store removal).
func (n *Node) Unlink() {
	for _, in := range n.Inputs {
		removeUser(in, n)
	}
	n.Inputs = nil
}

func removeUser(def *Node, user *Node) {
	for i, u := range def.Users {
		if u == user {
			def.Users = append(def.Users[:i], def.Users[i+1:]...)
			return
		}
	}
}

// IsLiteralConstant reports whether n is a LIT node (used throughout
// constant folding and value numbering).
func (n *Node) IsLiteralConstant() bool { return n.Op == OpLit }

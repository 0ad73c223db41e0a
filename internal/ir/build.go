package ir

// The functions below are the minimal node-construction surface the
// external builder (§6) is expected to call through: every node it
// creates must end up attached to exactly one region via these same
// Context.NewNode + Region.Append primitives. They exist in-package (the
// builder itself is an external collaborator, out of this component's
// scope) so that tests and the IPO cloning/specialization code have a
// concrete, shared way to synthesize IR without duplicating invariant
// bookkeeping.

// NewIntLit creates a LIT node holding an integer value.
func (c *Context) NewIntLit(typ TypeID, v int64) *Node {
	n := c.NewNode(OpLit, typ)
	n.Data.Int = v
	n.Props |= PropConstexpr
	return n
}

// NewFloatLit creates a LIT node holding a float value.
func (c *Context) NewFloatLit(typ TypeID, v float64) *Node {
	n := c.NewNode(OpLit, typ)
	n.Data.Float = v
	n.Props |= PropConstexpr
	return n
}

// NewBoolLit creates a LIT node holding a bool value.
func (c *Context) NewBoolLit(v bool) *Node {
	n := c.NewNode(OpLit, PrimitiveType(Bool))
	n.Data.Bool = v
	n.Props |= PropConstexpr
	return n
}

// NewBinOp creates a binary arithmetic/comparison/bitwise node with lhs,
// rhs as its two operands, appended to region.
func (c *Context) NewBinOp(region *Region, op Op, typ TypeID, lhs, rhs *Node) *Node {
	n := c.NewNode(op, typ)
	n.AddInput(lhs)
	n.AddInput(rhs)
	region.Append(n)
	return n
}

// NewUnaryOp creates a single-operand node (e.g. BNOT, REINTERPRET_CAST),
// appended to region.
func (c *Context) NewUnaryOp(region *Region, op Op, typ TypeID, operand *Node) *Node {
	n := c.NewNode(op, typ)
	n.AddInput(operand)
	region.Append(n)
	return n
}

// NewParam creates a PARAM node for a function signature position.
func (c *Context) NewParam(region *Region, typ TypeID, name StringID) *Node {
	n := c.NewNode(OpParam, typ)
	n.StrID = name
	region.Append(n)
	return n
}

// NewRet creates a RET node, optionally carrying a return value.
func (c *Context) NewRet(region *Region, value *Node) *Node {
	n := c.NewNode(OpRet, PrimitiveType(Void))
	if value != nil {
		n.Type = value.Type
		n.AddInput(value)
	}
	region.Append(n)
	return n
}

// NewStackAlloc creates a STACK_ALLOC node producing a pointer to typ.
func (c *Context) NewStackAlloc(region *Region, typ TypeID) *Node {
	n := c.NewNode(OpStackAlloc, c.Types.Pointer(typ, 0))
	region.Append(n)
	return n
}

// NewLoad creates a LOAD node reading from addr (a named memory location,
// not necessarily a pointer value — see PTR_LOAD for pointer dereference).
func (c *Context) NewLoad(region *Region, typ TypeID, addr *Node) *Node {
	n := c.NewNode(OpLoad, typ)
	n.AddInput(addr)
	region.Append(n)
	return n
}

// NewStore creates a STORE node writing value to addr.
func (c *Context) NewStore(region *Region, addr, value *Node) *Node {
	n := c.NewNode(OpStore, PrimitiveType(Void))
	n.AddInput(addr)
	n.AddInput(value)
	region.Append(n)
	return n
}

// NewPtrAdd creates a PTR_ADD node computing base + offset (offset is an
// i64-typed node; a LIT offset makes this foldable to a concrete
// (base,offset) memory location by the alias analysis, §4.2).
func (c *Context) NewPtrAdd(region *Region, base, offset *Node) *Node {
	n := c.NewNode(OpPtrAdd, base.Type)
	n.AddInput(base)
	n.AddInput(offset)
	region.Append(n)
	return n
}

// NewAddrOf creates an ADDR_OF node taking the address of target.
func (c *Context) NewAddrOf(region *Region, target *Node) *Node {
	n := c.NewNode(OpAddrOf, c.Types.Pointer(target.Type, 0))
	n.AddInput(target)
	region.Append(n)
	return n
}

// NewPtrLoad/NewPtrStore create pointer-dereference load/store nodes.
func (c *Context) NewPtrLoad(region *Region, typ TypeID, ptr *Node) *Node {
	n := c.NewNode(OpPtrLoad, typ)
	n.AddInput(ptr)
	region.Append(n)
	return n
}

func (c *Context) NewPtrStore(region *Region, ptr, value *Node) *Node {
	n := c.NewNode(OpPtrStore, PrimitiveType(Void))
	n.AddInput(ptr)
	n.AddInput(value)
	region.Append(n)
	return n
}

// NewCall creates a CALL node invoking callee with args.
func (c *Context) NewCall(region *Region, typ TypeID, callee *Node, args ...*Node) *Node {
	n := c.NewNode(OpCall, typ)
	n.AddInput(callee)
	for _, a := range args {
		n.AddInput(a)
	}
	region.Append(n)
	return n
}

// NewEntry creates an ENTRY marker node for a region that may be targeted
// by an inter-region jump (§3 invariant 5), appended to region. Callers
// must create it before any other node of the region so that it is the
// region's first node.
func (c *Context) NewEntry(region *Region) *Node {
	n := c.NewNode(OpEntry, PrimitiveType(Void))
	region.Append(n)
	return n
}

// NewJump creates a JUMP node targeting the given entry node.
func (c *Context) NewJump(region *Region, target *Node) *Node {
	n := c.NewNode(OpJump, PrimitiveType(Void))
	n.AddInput(target)
	region.Append(n)
	return n
}

// NewBranch creates a BRANCH node: cond, then targetTrue, targetFalse
// entry nodes.
func (c *Context) NewBranch(region *Region, cond, targetTrue, targetFalse *Node) *Node {
	n := c.NewNode(OpBranch, PrimitiveType(Void))
	n.AddInput(cond)
	n.AddInput(targetTrue)
	n.AddInput(targetFalse)
	region.Append(n)
	return n
}

// NewFunction creates a FUNCTION node (the callable symbol, distinct from
// its body region) and registers it plus body with module.
func (c *Context) NewFunction(module *Module, name StringID, typ TypeID, props Props, body *Region) *Node {
	n := c.NewNode(OpFunction, typ)
	n.StrID = name
	n.Props = props
	module.AddFunction(n, body)
	return n
}

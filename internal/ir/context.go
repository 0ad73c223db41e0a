package ir

// Context is the process-wide owner of all IR (§3): one arena, one string
// table, one type registry, and the set of modules built against them.
// Entities created through a Context live until the Context itself is
// dropped; nothing it owns may outlive it.
//
// The "arena" here is a bump-allocated slice of *Node — Go's GC reclaims
// the backing memory when the Context becomes unreachable, but nodes are
// never individually freed during a pass (§3 invariant 2, §9 "arenas
// reclaim en masse on Context teardown"): Region.Remove/Node.Unlink only
// unlink, matching the teacher's pattern of never deleting shadow-memory
// entries mid-detection, only updating them.
type Context struct {
	Strings *StringTable
	Types   *TypeRegistry

	modules   []*Module
	byName    map[StringID]*Module
	idCounter ID
	arena     []*Node
}

// NewContext creates an empty Context with a fresh string table and type
// registry.
func NewContext() *Context {
	return &Context{
		Strings: NewStringTable(),
		Types:   NewTypeRegistry(),
		byName:  make(map[StringID]*Module),
	}
}

func (c *Context) nextID() ID {
	c.idCounter++
	return c.idCounter
}

// NewModule creates and registers a module, unique by interned name (§3).
// Creating a module under a name that already exists returns the existing
// module rather than shadowing it — module identity is the name.
func (c *Context) NewModule(name string) *Module {
	id := c.Strings.Intern(name)
	if m, ok := c.byName[id]; ok {
		return m
	}
	m := newModule(c, id)
	c.modules = append(c.modules, m)
	c.byName[id] = m
	return m
}

// Modules returns every module owned by this context, in creation order.
func (c *Context) Modules() []*Module { return c.modules }

// FindModule looks up a module by name.
func (c *Context) FindModule(name string) *Module {
	id, ok := c.tryLookupString(name)
	if !ok {
		return nil
	}
	return c.byName[id]
}

func (c *Context) tryLookupString(s string) (StringID, bool) {
	// Intern is idempotent and cheap; a miss just allocates an id that
	// will never be looked up again, which is harmless and keeps this a
	// single code path instead of a separate non-interning lookup table.
	id := c.Strings.Intern(s)
	_, known := c.byName[id]
	return id, known
}

// NewNode allocates a fresh node from the arena with the next process-wide
// id. This is the sole allocation primitive of the foundation layer; the
// external IR-construction front-end (§6) and the IPO cloning operations
// (§4.14, §4.15) both route every new node through it, so arena ownership
// is never split.
func (c *Context) NewNode(op Op, typ TypeID) *Node {
	n := &Node{ID: c.nextID(), Op: op, Type: typ}
	c.arena = append(c.arena, n)
	return n
}

// NodeCount returns the number of nodes ever allocated by this context
// (live or unlinked) — a diagnostic, not a liveness count.
func (c *Context) NodeCount() int { return len(c.arena) }

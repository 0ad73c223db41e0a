// Package ir implements the foundation layer of the bloomir middle-end: the
// Context, the string-interning table, the type registry, and the
// Module/Region/Node graph that every pass and analysis operates on.
package ir

import "hash/fnv"

// StringID is a stable handle into a StringTable. The empty string always
// interns to StringID(0).
type StringID uint32

// StringTable interns byte sequences into stable, monotonically issued ids.
// Interning is idempotent: interning the same bytes twice returns the same
// id. Id 0 is reserved for the empty string and is always valid.
//
// Deduplication follows the same shape as the teacher's stack-trace depot
// (hash the payload, look up a dedup map, store on first sight) but single
// writer, matching the synchronous, exclusive-access core mandated by §5 —
// the teacher's sync.Map-backed depot is unneeded here.
type StringTable struct {
	strings []string
	byHash  map[uint64][]StringID
}

// NewStringTable creates a string table with id 0 already bound to "".
func NewStringTable() *StringTable {
	t := &StringTable{
		strings: make([]string, 1, 64),
		byHash:  make(map[uint64][]StringID, 64),
	}
	t.strings[0] = ""
	return t
}

func hashBytes(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// Intern returns the stable id for s, allocating a new one if s was never
// seen before. Interning is idempotent: Intern(s) == Intern(s) for the
// lifetime of the table.
func (t *StringTable) Intern(s string) StringID {
	if s == "" {
		return 0
	}
	h := hashBytes(s)
	for _, id := range t.byHash[h] {
		if t.strings[id] == s {
			return id
		}
	}
	id := StringID(len(t.strings))
	t.strings = append(t.strings, s)
	t.byHash[h] = append(t.byHash[h], id)
	return id
}

// Get resolves id back to its string. Get panics on an id that was never
// issued by this table — that is always a caller bug, not a runtime
// condition to recover from.
func (t *StringTable) Get(id StringID) string {
	return t.strings[id]
}

// Len returns the number of distinct strings interned, including the empty
// string at id 0.
func (t *StringTable) Len() int {
	return len(t.strings)
}

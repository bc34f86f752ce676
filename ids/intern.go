package ids

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Interned is a process-unique string handle. Equality between two Interned
// values from the same Table is equivalent to equality of the underlying
// strings; comparing handles minted by different Tables is meaningless.
type Interned uint32

// InvalidInterned is the sentinel for "no interned string".
const InvalidInterned Interned = 0

// Table deduplicates strings into small handles. It never shrinks and never
// moves an entry once assigned, so a handle stays valid for the table's
// entire lifetime: the Go equivalent of the C runtime's pointer-stable
// interning pool, since Go strings are not addresses a caller can compare.
//
// Lookups hash with xxhash rather than Go's built-in map hash: the
// registry's field-archetype resolution path interns a name on every
// struct/enum/field visit during generation, so this table's Intern is the
// hottest map lookup in the whole generator driver loop.
type Table struct {
	mu      sync.RWMutex
	strings []string
	byHash  map[uint64][]Interned
}

// NewTable creates an empty interning table. Index 0 is reserved for
// InvalidInterned and is never assigned a string.
func NewTable() *Table {
	return &Table{
		strings: []string{""},
		byHash:  make(map[uint64][]Interned),
	}
}

// Intern returns the handle for s, minting a new one if s was never seen.
func (t *Table) Intern(s string) Interned {
	if s == "" {
		return InvalidInterned
	}
	h := xxhash.Sum64String(s)

	t.mu.RLock()
	for _, candidate := range t.byHash[h] {
		if t.strings[candidate] == s {
			t.mu.RUnlock()
			return candidate
		}
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, candidate := range t.byHash[h] {
		if t.strings[candidate] == s {
			return candidate
		}
	}
	id := Interned(len(t.strings))
	t.strings = append(t.strings, s)
	t.byHash[h] = append(t.byHash[h], id)
	return id
}

// String resolves a handle back to its string. Returns "" for
// InvalidInterned or an id never produced by this table.
func (t *Table) String(id Interned) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(id) >= len(t.strings) {
		return ""
	}
	return t.strings[id]
}

// Global is the default interning table shared by the reflection registry
// and the reference manager, the same way the C runtime has one process-wide
// interned string pool. Components that need an isolated table (tests, a
// second registry generation under migration) construct their own Table.
var Global = NewTable()

// Package container holds the generic typed-row storage and service-locator
// scaffolding shared by the reflection registry and the reference manager.
// It generalizes the teacher's archetype/bitmask ECS storage (ecs.go,
// bitmask.go) from "entities grouped by component mask" to "typed rows
// addressed by a versioned handle": the universe's typed repository needs
// exactly one row kind per table (ResourceNativeEntry, OuterReference,
// UpdateState, the three operation kinds), not the combinatorial archetype
// explosion an ECS needs for arbitrary component sets, so the mask/archetype
// machinery collapses to a single columnar slice per Table[T] plus a
// swap-remove free list, the same shape as the teacher's per-archetype
// entityIDs/compPointers pair, minus the mask dispatch.
package container

// Handle addresses one row in a Table. Like the teacher's Entity, it pairs
// a slot index with a version so a stale handle to a deleted-and-reused
// slot is detected rather than silently reading garbage.
type Handle struct {
	Index   uint32
	Version uint32
}

// Table is a versioned-slot store of rows of type T, generalizing the
// teacher's per-archetype columnar array (ecs.go's archetype.compPointers)
// to a single safe slice instead of an unsafe.Pointer array, since the
// reference manager's rows are ordinary Go structs rather than
// user-supplied component types needing zero-copy layout.
type Table[T any] struct {
	rows     []T
	versions []uint32
	freeList []uint32
	count    int
}

// NewTable creates an empty table with room for capacity rows without
// reallocating.
func NewTable[T any](capacity int) *Table[T] {
	return &Table[T]{
		rows:     make([]T, 0, capacity),
		versions: make([]uint32, 0, capacity),
		freeList: make([]uint32, 0, capacity),
	}
}

// Insert stores row and returns the handle addressing it.
func (t *Table[T]) Insert(row T) Handle {
	if n := len(t.freeList); n > 0 {
		idx := t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
		t.rows[idx] = row
		t.versions[idx]++
		t.count++
		return Handle{Index: idx, Version: t.versions[idx]}
	}
	idx := uint32(len(t.rows))
	t.rows = append(t.rows, row)
	t.versions = append(t.versions, 1)
	t.count++
	return Handle{Index: idx, Version: 1}
}

// Get returns a pointer to the row addressed by h, or nil if h is stale or
// out of range. The pointer is valid until the next Delete/Insert on this
// table.
func (t *Table[T]) Get(h Handle) *T {
	if int(h.Index) >= len(t.rows) || t.versions[h.Index] != h.Version || t.versions[h.Index] == 0 {
		return nil
	}
	return &t.rows[h.Index]
}

// Delete removes the row addressed by h. A stale or already-deleted handle
// is a silent no-op, matching the reference manager's "entry disappears"
// paths which must tolerate being told to delete twice.
func (t *Table[T]) Delete(h Handle) bool {
	if int(h.Index) >= len(t.rows) || t.versions[h.Index] != h.Version || t.versions[h.Index] == 0 {
		return false
	}
	var zero T
	t.rows[h.Index] = zero
	// Live slots carry an odd version; bumping it to even marks the slot
	// free, and the next Insert into it bumps it to a fresh odd version.
	t.versions[h.Index]++
	t.freeList = append(t.freeList, h.Index)
	t.count--
	return true
}

// Len returns the number of live rows.
func (t *Table[T]) Len() int { return t.count }

// Range calls fn for every live row until fn returns false. fn must not
// insert into or delete from the table while ranging.
func (t *Table[T]) Range(fn func(Handle, *T) bool) {
	for i := range t.rows {
		if t.versions[i]%2 == 0 {
			continue
		}
		if !fn(Handle{Index: uint32(i), Version: t.versions[i]}, &t.rows[i]) {
			return
		}
	}
}

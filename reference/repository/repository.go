package repository

import (
	"github.com/kanrt/kan/container"
	"github.com/kanrt/kan/ids"
)

// Repository is the in-memory side of the typed resource repository:
// one container.Table[T] per row kind, plus the secondary indices the
// manager's tick scheduler needs to go from an attachment id or type
// straight to its row instead of scanning (spec.md §4.5 component design).
type typeAndName struct {
	Type ids.TypeName
	Name ids.Interned
}

type Repository struct {
	entries        *container.Table[ResourceNativeEntry]
	entryByID      map[ids.AttachmentId]container.Handle
	entryByTypeName map[typeAndName]ids.AttachmentId

	references        *container.Table[OuterReference]
	referencesByEntry map[ids.AttachmentId][]container.Handle

	updateStates       *container.Table[UpdateState]
	updateStateByEntry map[ids.AttachmentId]container.Handle

	outerOps       *container.Table[OuterReferencesOperation]
	outerOpByEntry map[ids.AttachmentId]container.Handle

	umbrellaOps     *container.Table[AllReferencesToTypeOperation]
	umbrellaByType  map[ids.TypeName]container.Handle
	bindingsByEntry map[ids.AttachmentId][]ids.TypeName
	bindingCount    map[ids.TypeName]int
}

// New creates an empty repository.
func New() *Repository {
	return &Repository{
		entries:            container.NewTable[ResourceNativeEntry](64),
		entryByID:          make(map[ids.AttachmentId]container.Handle),
		entryByTypeName:    make(map[typeAndName]ids.AttachmentId),
		references:         container.NewTable[OuterReference](256),
		referencesByEntry:  make(map[ids.AttachmentId][]container.Handle),
		updateStates:       container.NewTable[UpdateState](64),
		updateStateByEntry: make(map[ids.AttachmentId]container.Handle),
		outerOps:           container.NewTable[OuterReferencesOperation](32),
		outerOpByEntry:     make(map[ids.AttachmentId]container.Handle),
		umbrellaOps:        container.NewTable[AllReferencesToTypeOperation](8),
		umbrellaByType:     make(map[ids.TypeName]container.Handle),
		bindingsByEntry:    make(map[ids.AttachmentId][]ids.TypeName),
		bindingCount:       make(map[ids.TypeName]int),
	}
}

// AddEntry registers a native resource entry.
func (r *Repository) AddEntry(entry ResourceNativeEntry) {
	h := r.entries.Insert(entry)
	r.entryByID[entry.AttachmentID] = h
	r.entryByTypeName[typeAndName{entry.Type, entry.Name}] = entry.AttachmentID
}

// FindEntry looks up an entry by its (type, name) pair, the key event
// intake requests arrive with (spec.md §4.5 "Inputs").
func (r *Repository) FindEntry(typ ids.TypeName, name ids.Interned) (ResourceNativeEntry, bool) {
	id, ok := r.entryByTypeName[typeAndName{typ, name}]
	if !ok {
		return ResourceNativeEntry{}, false
	}
	return r.Entry(id)
}

// EntriesOfType calls fn for every entry of the given type.
func (r *Repository) EntriesOfType(typ ids.TypeName, fn func(ResourceNativeEntry)) {
	r.entries.Range(func(_ container.Handle, row *ResourceNativeEntry) bool {
		if row.Type == typ {
			fn(*row)
		}
		return true
	})
}

// Entry looks up an entry by attachment id.
func (r *Repository) Entry(id ids.AttachmentId) (ResourceNativeEntry, bool) {
	h, ok := r.entryByID[id]
	if !ok {
		return ResourceNativeEntry{}, false
	}
	row := r.entries.Get(h)
	if row == nil {
		return ResourceNativeEntry{}, false
	}
	return *row, true
}

// RemoveEntry deletes an entry and its owned rows (references, update
// state) but deliberately leaves any OuterReferencesOperation in place:
// the caller must fail and delete that operation itself first, per
// spec.md §3 "OuterReferencesOperation is not cascade-deleted with its
// entry".
func (r *Repository) RemoveEntry(id ids.AttachmentId) {
	if h, ok := r.entryByID[id]; ok {
		if row := r.entries.Get(h); row != nil {
			delete(r.entryByTypeName, typeAndName{row.Type, row.Name})
		}
		r.entries.Delete(h)
		delete(r.entryByID, id)
	}
	for _, h := range r.referencesByEntry[id] {
		r.references.Delete(h)
	}
	delete(r.referencesByEntry, id)
	if h, ok := r.updateStateByEntry[id]; ok {
		r.updateStates.Delete(h)
		delete(r.updateStateByEntry, id)
	}
}

// SetReferences reconciles the stored OuterReference rows for entryID with
// refs by slot: existing slots are updated in place, new slots are
// appended, trailing slots are deleted (spec.md §4.5 "Publishing").
func (r *Repository) SetReferences(entryID ids.AttachmentId, refs []OuterReference) {
	existing := r.referencesByEntry[entryID]
	i := 0
	for ; i < len(refs) && i < len(existing); i++ {
		row := r.references.Get(existing[i])
		*row = refs[i]
	}
	for ; i < len(refs); i++ {
		h := r.references.Insert(refs[i])
		existing = append(existing, h)
	}
	for j := len(refs); j < len(existing); j++ {
		r.references.Delete(existing[j])
	}
	if len(refs) < len(existing) {
		existing = existing[:len(refs)]
	}
	r.referencesByEntry[entryID] = existing
}

// References returns the currently stored references for entryID.
func (r *Repository) References(entryID ids.AttachmentId) []OuterReference {
	handles := r.referencesByEntry[entryID]
	out := make([]OuterReference, 0, len(handles))
	for _, h := range handles {
		if row := r.references.Get(h); row != nil {
			out = append(out, *row)
		}
	}
	return out
}

// UpsertUpdateState sets the last-observed-consistent file time for
// entryID.
func (r *Repository) UpsertUpdateState(entryID ids.AttachmentId, lastUpdateFileTimeNs int64) {
	if h, ok := r.updateStateByEntry[entryID]; ok {
		if row := r.updateStates.Get(h); row != nil {
			row.LastUpdateFileTimeNs = lastUpdateFileTimeNs
			return
		}
	}
	h := r.updateStates.Insert(UpdateState{AttachmentID: entryID, LastUpdateFileTimeNs: lastUpdateFileTimeNs})
	r.updateStateByEntry[entryID] = h
}

// UpdateState returns the cached update state for entryID, if any.
func (r *Repository) UpdateState(entryID ids.AttachmentId) (UpdateState, bool) {
	h, ok := r.updateStateByEntry[entryID]
	if !ok {
		return UpdateState{}, false
	}
	row := r.updateStates.Get(h)
	if row == nil {
		return UpdateState{}, false
	}
	return *row, true
}

// CreateOrResetOuterOp creates a fresh OuterReferencesOperation for
// entryID in the Requested state, replacing any existing one for the same
// entry (spec.md §4.5 "create/reset").
func (r *Repository) CreateOrResetOuterOp(entryID ids.AttachmentId, typ ids.TypeName, name ids.Interned) {
	if h, ok := r.outerOpByEntry[entryID]; ok {
		r.outerOps.Delete(h)
	}
	h := r.outerOps.Insert(OuterReferencesOperation{
		EntryAttachmentID: entryID,
		Type:              typ,
		Name:              name,
		State:             StateRequested,
	})
	r.outerOpByEntry[entryID] = h
}

// OuterOp returns the in-flight operation for entryID, if any.
func (r *Repository) OuterOp(entryID ids.AttachmentId) (*OuterReferencesOperation, bool) {
	h, ok := r.outerOpByEntry[entryID]
	if !ok {
		return nil, false
	}
	row := r.outerOps.Get(h)
	return row, row != nil
}

// DeleteOuterOp removes the in-flight operation for entryID, cascading any
// OperationBinding it owns (spec.md §4.5 "Bindings are cascade-deleted
// with their per-entry operation").
func (r *Repository) DeleteOuterOp(entryID ids.AttachmentId) {
	h, ok := r.outerOpByEntry[entryID]
	if !ok {
		return
	}
	r.outerOps.Delete(h)
	delete(r.outerOpByEntry, entryID)
	for _, umbrellaType := range r.bindingsByEntry[entryID] {
		r.bindingCount[umbrellaType]--
	}
	delete(r.bindingsByEntry, entryID)
}

// IterateOuterOps calls fn for every in-flight per-entry operation,
// stopping early if fn returns false. This is the sequence the manager's
// worker pool walks a shared cursor over (spec.md §4.5 "Concurrency").
func (r *Repository) IterateOuterOps(fn func(ids.AttachmentId, *OuterReferencesOperation) bool) {
	r.outerOps.Range(func(_ container.Handle, row *OuterReferencesOperation) bool {
		return fn(row.EntryAttachmentID, row)
	})
}

// CreateOrResetUmbrella creates (or resets successful=true on) the
// AllReferencesToTypeOperation for typ (spec.md §4.5 "Umbrella requests").
func (r *Repository) CreateOrResetUmbrella(typ ids.TypeName) {
	if h, ok := r.umbrellaByType[typ]; ok {
		if row := r.umbrellaOps.Get(h); row != nil {
			row.Successful = true
			return
		}
	}
	h := r.umbrellaOps.Insert(AllReferencesToTypeOperation{Type: typ, Successful: true})
	r.umbrellaByType[typ] = h
	r.bindingCount[typ] = 0
}

// Umbrella returns the umbrella operation for typ, if any.
func (r *Repository) Umbrella(typ ids.TypeName) (*AllReferencesToTypeOperation, bool) {
	h, ok := r.umbrellaByType[typ]
	if !ok {
		return nil, false
	}
	row := r.umbrellaOps.Get(h)
	return row, row != nil
}

// FailUmbrella marks the umbrella operation for typ unsuccessful, if one
// exists (spec.md §4.5 "its successful is conjunction of all per-entry
// outcomes").
func (r *Repository) FailUmbrella(typ ids.TypeName) {
	if row, ok := r.Umbrella(typ); ok {
		row.Successful = false
	}
}

// DeleteUmbrella removes the umbrella operation for typ.
func (r *Repository) DeleteUmbrella(typ ids.TypeName) {
	if h, ok := r.umbrellaByType[typ]; ok {
		r.umbrellaOps.Delete(h)
		delete(r.umbrellaByType, typ)
		delete(r.bindingCount, typ)
	}
}

// BindEntryToUmbrella records that entryID's per-entry operation is bound
// to the umbrella request for typ, without duplicating an existing
// binding (spec.md §4.5 "Concurrency. ... create OperationBinding rows
// without duplicates").
func (r *Repository) BindEntryToUmbrella(entryID ids.AttachmentId, typ ids.TypeName) {
	for _, existing := range r.bindingsByEntry[entryID] {
		if existing == typ {
			return
		}
	}
	r.bindingsByEntry[entryID] = append(r.bindingsByEntry[entryID], typ)
	r.bindingCount[typ]++
}

// BindingCount reports how many per-entry operations are currently bound
// to the umbrella request for typ.
func (r *Repository) BindingCount(typ ids.TypeName) int {
	return r.bindingCount[typ]
}

// BindingsOf returns the umbrella types entryID's per-entry operation is
// currently bound to. The caller must read this before deleting the
// operation: DeleteOuterOp clears the binding list as part of its cascade.
func (r *Repository) BindingsOf(entryID ids.AttachmentId) []ids.TypeName {
	existing := r.bindingsByEntry[entryID]
	if len(existing) == 0 {
		return nil
	}
	out := make([]ids.TypeName, len(existing))
	copy(out, existing)
	return out
}

// Package repository is the typed resource repository collaborator
// boundary spec.md §4.5 describes: the reference manager's six row kinds.
// Five are each backed by a container.Table[T] versioned-slot store (package
// container, shared scaffolding adapted from the teacher's
// archetype/bitmask columnar storage); OperationBinding rows are kept as
// per-entry and per-type maps inside Repository. Repository adds the secondary
// indices a single-row-kind columnar table doesn't need on its own (by
// attachment id, by type, by umbrella operation), so the manager can find
// "the operation for this entry" in O(1) instead of a table scan.
package repository

import "github.com/kanrt/kan/ids"

// ResourceNativeEntry is the ambient repository row describing one native
// resource the reference manager can scan (spec.md §3).
type ResourceNativeEntry struct {
	AttachmentID ids.AttachmentId
	Type         ids.TypeName
	Name         ids.Interned
	Path         string
}

// OuterReference is one outgoing edge detected for an entry (spec.md §3).
type OuterReference struct {
	AttachmentID  ids.AttachmentId
	ReferenceType ids.TypeName
	ReferenceName ids.Interned
}

// UpdateState records the file time the cache for an entry was last
// observed consistent at (spec.md §3).
type UpdateState struct {
	AttachmentID         ids.AttachmentId
	LastUpdateFileTimeNs int64
}

// OperationState is the per-entry scan state machine's current state
// (spec.md §4.5 "Operation state machine").
type OperationState int

const (
	StateRequested OperationState = iota
	StateWaitingResource
)

// OuterReferencesOperation tracks one in-flight per-entry scan (spec.md
// §3). It is not cascade-deleted with its entry: the manager must emit a
// failure response before deleting it when the entry disappears (spec.md
// §3 "Lifecycle").
type OuterReferencesOperation struct {
	EntryAttachmentID ids.AttachmentId
	Type              ids.TypeName
	Name              ids.Interned
	State             OperationState
	ResourceRequestID ids.RequestId
}

// AllReferencesToTypeOperation tracks one in-flight umbrella request
// (spec.md §3).
type AllReferencesToTypeOperation struct {
	Type       ids.TypeName
	Successful bool
}

// OperationBinding links a per-entry scan to the umbrella request that
// spawned it (spec.md §3). Bindings are cascade-deleted with their
// per-entry operation (spec.md §4.5 "Umbrella requests").
type OperationBinding struct {
	EntryAttachmentID   ids.AttachmentId
	AllReferencesToType ids.TypeName
}

// Package reference implements the universe resource-reference manager
// (spec.md §4.5): given a typed resource repository, it keeps every
// native entry's outgoing references up to date, caches results on disk,
// and answers two request kinds over an event bus.
package reference

import "github.com/kanrt/kan/ids"

// UpdateOuterReferencesRequest asks the manager to (re)scan one entry
// (spec.md §4.5 "Inputs").
type UpdateOuterReferencesRequest struct {
	Type ids.TypeName
	Name ids.Interned
}

// UpdateOuterReferencesResponse reports the outcome of a scan (spec.md
// §4.5 "Outputs"). Successful is the manager's sole external error
// channel (spec.md §7 "User-visible behavior").
type UpdateOuterReferencesResponse struct {
	Type              ids.TypeName
	Name              ids.Interned
	EntryAttachmentID ids.AttachmentId
	Successful        bool
}

// UpdateAllReferencesToTypeRequest asks the manager to (re)scan every
// entry whose type can reference typ (spec.md §4.5 "Umbrella requests").
type UpdateAllReferencesToTypeRequest struct {
	Type ids.TypeName
}

// UpdateAllReferencesToTypeResponse reports the umbrella request's
// outcome once every spawned per-entry binding has resolved.
type UpdateAllReferencesToTypeResponse struct {
	Type       ids.TypeName
	Successful bool
}

// Package ids holds the cross-component primitives shared by every
// subsystem in this repository: interned strings, small distinct id types,
// and a deadline helper for cooperative time-budgeted loops.
package ids

import "fmt"

// RegistryId identifies a registry instance across reload generations.
type RegistryId uint64

// InvalidRegistryId is the sentinel for "no registry".
const InvalidRegistryId RegistryId = 0

// RequestId identifies a single reference-manager request event.
type RequestId uint64

// InvalidRequestId is the sentinel for "no request".
const InvalidRequestId RequestId = 0

// AttachmentId identifies a repository row independently of its typed
// content.
type AttachmentId uint64

// InvalidAttachmentId is the sentinel for "no attachment".
const InvalidAttachmentId AttachmentId = 0

// TypeName is an interned type name used as a map/index key.
type TypeName = Interned

func (id RegistryId) String() string   { return fmt.Sprintf("registry#%d", uint64(id)) }
func (id RequestId) String() string    { return fmt.Sprintf("request#%d", uint64(id)) }
func (id AttachmentId) String() string { return fmt.Sprintf("attachment#%d", uint64(id)) }

// Counter hands out monotonically increasing ids of type T, starting at 1
// so the zero value of T stays a usable "invalid" sentinel. It is the
// generalized replacement for the teacher's free-list-backed entity id
// allocator (ecs.go's freeIDs stack): the reference manager and the
// registry never recycle ids, since a recycled AttachmentId could let a
// stale OuterReferencesOperation bind to the wrong entry after a churn of
// creates/deletes, which the spec's "explicit failure response before
// deletion" rule is built to avoid in the first place.
type Counter struct {
	next uint64
}

// Next returns the next id in the sequence.
func (c *Counter) Next() uint64 {
	c.next++
	return c.next
}

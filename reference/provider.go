package reference

import (
	"github.com/kanrt/kan/ids"
	"github.com/kanrt/kan/reference/repository"
	"github.com/kanrt/kan/reference/store"
)

// Provider is the resource-provider/host-plugin collaborator boundary
// spec.md §4.5's Requested/WaitingResource ticks consult. It is out of
// core (no concrete resource-loading system ships here); the manager only
// depends on this interface, the same way spec.md §4.6's material-instance
// build is a collaborator the runtime calls into rather than owns.
type Provider interface {
	// TransientUpdateTime returns the entry's in-memory transient state
	// time, or 0 if none.
	TransientUpdateTime(entry repository.ResourceNativeEntry) int64
	// PluginUpdateTime returns the host plugin system's update time for
	// the entry's type, or 0 if none.
	PluginUpdateTime(entry repository.ResourceNativeEntry) int64
	// SourceUpdateTime returns the VFS mtime (nanoseconds since epoch) of
	// the entry's source file.
	SourceUpdateTime(entry repository.ResourceNativeEntry) (int64, error)
	// RequestContainer opens a resource request for entry and returns its
	// request id.
	RequestContainer(entry repository.ResourceNativeEntry) ids.RequestId
	// ResolveContainer polls a previously opened request: ready reports
	// whether the container id is assigned; lost reports the request row
	// having disappeared entirely (spec.md §4.5 "If the request row is
	// lost, emit failure").
	ResolveContainer(request ids.RequestId) (containerID uint64, ready bool, lost bool)
	// ScanDone reports whether the provider's directory scan is settled.
	// false is the manager's sole cancellation trigger (spec.md §4.5,
	// §5 "Provider rescan").
	ScanDone() bool
}

// Detector runs reference detection against a resolved container and the
// registry's type info (spec.md §4.5 "WaitingResource tick": "run
// reference-detection against the registry type info"). Out of core: the
// manager only depends on this function shape.
type Detector func(entry repository.ResourceNativeEntry, containerID uint64) ([]store.ReferenceEntry, error)

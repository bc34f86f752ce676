package reference

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/kanrt/kan/container"
	"github.com/kanrt/kan/ids"
	"github.com/kanrt/kan/reference/repository"
	"github.com/kanrt/kan/reference/store"
)

// Manager is the universe resource-reference manager (spec.md §4.5): it
// owns the typed repository, the precomputed referencer index, the
// disk-cache/ledger persistence pair, and the event bus, and advances every
// in-flight scan one step per Tick.
//
// Repository access is guarded by mu rather than by container.Table itself
// (package container's tables are deliberately unsynchronized, like the
// teacher's archetype storage): Tick's worker pool takes mu only around the
// repository read/write around each step, releasing it across the
// potentially slow Provider/Detector calls so workers actually overlap on
// the I/O-shaped half of the work.
type Manager struct {
	mu   sync.Mutex
	repo *repository.Repository
	refs *ReferencerIndex

	cache  *store.Cache
	ledger *store.Ledger // nil is valid: the durable mirror is optional.

	bus      *container.EventBus
	provider Provider
	detect   Detector
	log      *logrus.Logger
}

// NewManager wires a Manager and subscribes it to both request event kinds.
// log may be nil, in which case a standard logrus logger is used.
func NewManager(repo *repository.Repository, refs *ReferencerIndex, cache *store.Cache, ledger *store.Ledger, bus *container.EventBus, provider Provider, detect Detector, log *logrus.Logger) *Manager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	m := &Manager{
		repo:     repo,
		refs:     refs,
		cache:    cache,
		ledger:   ledger,
		bus:      bus,
		provider: provider,
		detect:   detect,
		log:      log,
	}
	container.Subscribe(bus, m.handleOuterRequest)
	container.Subscribe(bus, m.handleUmbrellaRequest)
	return m
}

func (m *Manager) handleOuterRequest(req UpdateOuterReferencesRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.repo.FindEntry(req.Type, req.Name)
	if !ok {
		container.Publish(m.bus, UpdateOuterReferencesResponse{Type: req.Type, Name: req.Name, Successful: false})
		return
	}
	m.repo.CreateOrResetOuterOp(entry.AttachmentID, req.Type, req.Name)
}

// handleUmbrellaRequest spawns or resets a per-entry operation, bound to the
// umbrella request, for every entry of every type that can reference typ
// (spec.md §4.5 "Umbrella requests"). An umbrella request with no
// referencing entries at all resolves immediately.
func (m *Manager) handleUmbrellaRequest(req UpdateAllReferencesToTypeRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.repo.CreateOrResetUmbrella(req.Type)
	for _, referencerType := range m.refs.ReferencersOf(req.Type) {
		m.repo.EntriesOfType(referencerType, func(entry repository.ResourceNativeEntry) {
			m.repo.CreateOrResetOuterOp(entry.AttachmentID, entry.Type, entry.Name)
			m.repo.BindEntryToUmbrella(entry.AttachmentID, req.Type)
		})
	}
	m.finalizeUmbrellaLocked(req.Type)
}

// Tick advances every in-flight per-entry operation by one step, spending at
// most budgetNs across workers concurrent workers pulling from a single
// shared cursor (spec.md §4.5 "Concurrency"). If the provider's directory
// scan is not settled, Tick instead cancels every in-flight operation with a
// failure response and returns without doing any scan work (spec.md §5
// "Provider rescan").
func (m *Manager) Tick(ctx context.Context, budgetNs int64, workers int) error {
	if !m.provider.ScanDone() {
		m.cancelAll()
		return nil
	}

	m.mu.Lock()
	var pending []ids.AttachmentId
	m.repo.IterateOuterOps(func(id ids.AttachmentId, _ *repository.OuterReferencesOperation) bool {
		pending = append(pending, id)
		return true
	})
	m.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	deadline := ids.NewDeadline(budgetNs)
	var cursor cursor
	cursor.ids = pending

	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for {
				if deadline.Expired() {
					return nil
				}
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				id, ok := cursor.next()
				if !ok {
					return nil
				}
				m.stepEntry(id)
			}
		})
	}
	return g.Wait()
}

// cursor is a mutex-guarded index into a fixed id slice: an errgroup worker
// pool pulls work from it rather than a channel, since there is no "close"
// semantics needed over a slice a single Tick call owns for its duration.
type cursor struct {
	mu  sync.Mutex
	ids []ids.AttachmentId
	i   int
}

func (c *cursor) next() (ids.AttachmentId, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.i >= len(c.ids) {
		return 0, false
	}
	id := c.ids[c.i]
	c.i++
	return id, true
}

func (m *Manager) stepEntry(entryID ids.AttachmentId) {
	m.mu.Lock()
	op, ok := m.repo.OuterOp(entryID)
	if !ok {
		m.mu.Unlock()
		return
	}
	entry, ok := m.repo.Entry(entryID)
	state := op.State
	requestID := op.ResourceRequestID
	m.mu.Unlock()

	if !ok {
		// The entry disappeared out from under an in-flight scan.
		m.finishEntry(entryID, ids.TypeName(0), ids.Interned(0), false, nil)
		return
	}

	switch state {
	case repository.StateRequested:
		m.tickRequested(entry)
	case repository.StateWaitingResource:
		m.tickWaitingResource(entry, requestID)
	}
}

// tickRequested compares the entry's transient/cache/source/plugin update
// times: if every signal agrees the last scan is still current, the cached
// container is republished without asking the provider for a fresh one;
// otherwise a resource request is opened and the operation moves to
// WaitingResource (spec.md §4.5 "Operation state machine").
func (m *Manager) tickRequested(entry repository.ResourceNativeEntry) {
	typ := ids.Global.String(entry.Type)
	name := ids.Global.String(entry.Name)

	sourceTime, err := m.provider.SourceUpdateTime(entry)
	if err != nil {
		m.finishEntry(entry.AttachmentID, entry.Type, entry.Name, false, nil)
		return
	}
	transientTime := m.provider.TransientUpdateTime(entry)
	pluginTime := m.provider.PluginUpdateTime(entry)

	m.mu.Lock()
	state, hasState := m.repo.UpdateState(entry.AttachmentID)
	m.mu.Unlock()

	cacheTime, cacheErr := m.cache.Mtime(typ, name)
	current := hasState &&
		cacheErr == nil && cacheTime.UnixNano() >= sourceTime &&
		state.LastUpdateFileTimeNs >= sourceTime &&
		transientTime <= cacheTime.UnixNano() &&
		pluginTime <= cacheTime.UnixNano()

	if current {
		if cached, ok, err := m.cache.Load(typ, name); err == nil && ok {
			m.finishEntry(entry.AttachmentID, entry.Type, entry.Name, true, cached.References)
			return
		}
		// Cache read failure falls back to scheduling a resource request
		// instead of failing the scan outright (spec.md §7).
	}

	requestID := m.provider.RequestContainer(entry)
	m.mu.Lock()
	if op, ok := m.repo.OuterOp(entry.AttachmentID); ok {
		op.ResourceRequestID = requestID
		op.State = repository.StateWaitingResource
	}
	m.mu.Unlock()
}

// tickWaitingResource polls a previously opened resource request: a lost
// request row fails the scan immediately; an unready one is left for the
// next tick; a ready one runs reference detection against the resolved
// container and publishes the result (spec.md §4.5 "Operation state
// machine").
func (m *Manager) tickWaitingResource(entry repository.ResourceNativeEntry, requestID ids.RequestId) {
	containerID, ready, lost := m.provider.ResolveContainer(requestID)
	if lost {
		m.finishEntry(entry.AttachmentID, entry.Type, entry.Name, false, nil)
		return
	}
	if !ready {
		return
	}
	detected, err := m.detect(entry, containerID)
	if err != nil {
		m.finishEntry(entry.AttachmentID, entry.Type, entry.Name, false, nil)
		return
	}
	m.finishEntry(entry.AttachmentID, entry.Type, entry.Name, true, detected)
}

// finishEntry publishes the scan's outcome, writes through to the cache and
// ledger on success, deletes the per-entry operation, and resolves any
// umbrella bindings it was part of (spec.md §4.5 "Publishing").
func (m *Manager) finishEntry(entryID ids.AttachmentId, typ ids.TypeName, name ids.Interned, successful bool, detected []store.ReferenceEntry) {
	if successful {
		refs := make([]repository.OuterReference, len(detected))
		for i, d := range detected {
			refs[i] = repository.OuterReference{
				AttachmentID:  entryID,
				ReferenceType: ids.Global.Intern(d.Type),
				ReferenceName: ids.Global.Intern(d.Name),
			}
		}

		now := time.Now().UnixNano()
		if err := m.cache.Store(ids.Global.String(typ), ids.Global.String(name), store.DetectedReferenceContainer{References: detected}); err != nil {
			// Cache writes are a recoverable I/O failure, not a scan failure
			// (spec.md §4.5/§7): the file is already deleted by Cache.Store,
			// but the scan itself still succeeded, so references are still
			// published using the computed mtime.
			m.log.WithError(err).WithFields(logrus.Fields{"type": ids.Global.String(typ), "name": ids.Global.String(name)}).Warn("cache write failed")
		}
		if m.ledger != nil {
			ledgerRefs := make([]store.ReferenceRow, len(detected))
			for i, d := range detected {
				ledgerRefs[i] = store.ReferenceRow{ReferenceType: d.Type, ReferenceName: d.Name}
			}
			if err := m.ledger.UpsertState(uint64(entryID), ids.Global.String(typ), ids.Global.String(name), now); err != nil {
				successful = false
			} else if err := m.ledger.ReplaceReferences(uint64(entryID), ledgerRefs); err != nil {
				successful = false
			}
		}

		if successful {
			m.mu.Lock()
			m.repo.SetReferences(entryID, refs)
			m.repo.UpsertUpdateState(entryID, now)
			m.mu.Unlock()
		}
	}

	container.Publish(m.bus, UpdateOuterReferencesResponse{
		Type: typ, Name: name, EntryAttachmentID: entryID, Successful: successful,
	})

	m.mu.Lock()
	bindings := m.repo.BindingsOf(entryID)
	if !successful {
		for _, t := range bindings {
			m.repo.FailUmbrella(t)
		}
	}
	m.repo.DeleteOuterOp(entryID)
	for _, t := range bindings {
		m.finalizeUmbrellaLocked(t)
	}
	m.mu.Unlock()
}

// finalizeUmbrellaLocked publishes and deletes the umbrella operation for
// typ once every bound per-entry operation has resolved. Callers must hold
// mu.
func (m *Manager) finalizeUmbrellaLocked(typ ids.TypeName) {
	if m.repo.BindingCount(typ) != 0 {
		return
	}
	op, ok := m.repo.Umbrella(typ)
	if !ok {
		return
	}
	container.Publish(m.bus, UpdateAllReferencesToTypeResponse{Type: typ, Successful: op.Successful})
	m.repo.DeleteUmbrella(typ)
}

// cancelAll fails every in-flight per-entry operation and any umbrella
// operations they were bound to, without touching the provider (spec.md §5
// "Provider rescan": an unsettled scan cancels work rather than racing it).
func (m *Manager) cancelAll() {
	m.mu.Lock()
	var pending []ids.AttachmentId
	m.repo.IterateOuterOps(func(id ids.AttachmentId, _ *repository.OuterReferencesOperation) bool {
		pending = append(pending, id)
		return true
	})
	m.mu.Unlock()

	for _, id := range pending {
		m.mu.Lock()
		entry, ok := m.repo.Entry(id)
		m.mu.Unlock()
		typ, name := ids.TypeName(0), ids.Interned(0)
		if ok {
			typ, name = entry.Type, entry.Name
		}
		container.Publish(m.bus, UpdateOuterReferencesResponse{Type: typ, Name: name, EntryAttachmentID: id, Successful: false})

		m.mu.Lock()
		bindings := m.repo.BindingsOf(id)
		for _, t := range bindings {
			m.repo.FailUmbrella(t)
		}
		m.repo.DeleteOuterOp(id)
		for _, t := range bindings {
			m.finalizeUmbrellaLocked(t)
		}
		m.mu.Unlock()
	}
}

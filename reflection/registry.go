package reflection

import (
	"fmt"
	"sync"

	"github.com/kanrt/kan/ids"
)

// Registry holds every struct/enum/function descriptor and metadata
// binding known to the process. It is append-only during construction and
// becomes immutable once Freeze is called, matching spec.md §5's
// "append-only during construction, immutable after handing to consumers"
// shared-resource policy. Reads take a shared read lock whether or not the
// registry is frozen; writes take the write lock, since the generator driver's iterate tasks
// add to a registry from multiple goroutines concurrently (spec.md §4.2
// "Shared state").
type Registry struct {
	mu     sync.RWMutex
	frozen bool

	structs   map[ids.Interned]*StructDesc
	enums     map[ids.Interned]*EnumDesc
	functions map[ids.Interned]*FunctionDesc
	meta      map[MetaKey]any
}

// NewRegistry creates an empty, writable registry (spec.md §4.2 "create()").
func NewRegistry() *Registry {
	return &Registry{
		structs:   make(map[ids.Interned]*StructDesc),
		enums:     make(map[ids.Interned]*EnumDesc),
		functions: make(map[ids.Interned]*FunctionDesc),
		meta:      make(map[MetaKey]any),
	}
}

// Destroy releases the registry's storage. The registry must not be used
// afterward (spec.md §4.2 "destroy()").
func (r *Registry) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.structs = nil
	r.enums = nil
	r.functions = nil
	r.meta = nil
}

// Freeze marks the registry immutable. Further Add* calls panic. Reads
// still take the shared read lock after Freeze.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

func (r *Registry) checkWritable() {
	if r.frozen {
		panic("reflection: registry is frozen")
	}
}

// AddStruct registers desc by name. A name collision is a construction
// error and panics (spec.md §4.2 "name collisions are fatal-at-
// construction").
func (r *Registry) AddStruct(desc *StructDesc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkWritable()
	if _, exists := r.structs[desc.Name]; exists {
		panic(fmt.Sprintf("reflection: duplicate struct %q", ids.Global.String(desc.Name)))
	}
	r.structs[desc.Name] = desc
}

// AddEnum registers desc by name, panicking on a duplicate name.
func (r *Registry) AddEnum(desc *EnumDesc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkWritable()
	if _, exists := r.enums[desc.Name]; exists {
		panic(fmt.Sprintf("reflection: duplicate enum %q", ids.Global.String(desc.Name)))
	}
	r.enums[desc.Name] = desc
}

// AddFunction registers desc by name, panicking on a duplicate name.
func (r *Registry) AddFunction(desc *FunctionDesc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkWritable()
	if _, exists := r.functions[desc.Name]; exists {
		panic(fmt.Sprintf("reflection: duplicate function %q", ids.Global.String(desc.Name)))
	}
	r.functions[desc.Name] = desc
}

// AddMeta attaches meta to (owner, subName, metaType). subName is
// ids.InvalidInterned for top-level meta. meta is not owned by the
// registry; its lifetime is the caller's (spec.md §4.2 "meta_ptr is not
// owned"). A duplicate key overwrites, matching the "keyed unique" table
// semantics (last registration under a duplicate key wins, there being no
// byte-identity in Go to compare against for a "same meta" no-op).
func (r *Registry) AddMeta(owner, subName, metaType ids.Interned, meta any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkWritable()
	r.meta[MetaKey{Owner: owner, SubName: subName, MetaType: metaType}] = meta
}

// QueryStruct looks up a struct descriptor by name.
func (r *Registry) QueryStruct(name ids.Interned) (*StructDesc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.structs[name]
	return d, ok
}

// QueryEnum looks up an enum descriptor by name.
func (r *Registry) QueryEnum(name ids.Interned) (*EnumDesc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.enums[name]
	return d, ok
}

// QueryFunction looks up a function descriptor by name.
func (r *Registry) QueryFunction(name ids.Interned) (*FunctionDesc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.functions[name]
	return d, ok
}

// QueryMeta looks up a metadata binding.
func (r *Registry) QueryMeta(owner, subName, metaType ids.Interned) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.meta[MetaKey{Owner: owner, SubName: subName, MetaType: metaType}]
	return m, ok
}

// IterateStructs calls fn for every struct descriptor, in unspecified
// order, until fn returns false. The iteration order is not stable across
// calls but is stable for the duration of one call (spec.md §4.2
// "unordered, stable during iteration").
func (r *Registry) IterateStructs(fn func(*StructDesc) bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.structs {
		if !fn(d) {
			return
		}
	}
}

// IterateEnums calls fn for every enum descriptor until fn returns false.
func (r *Registry) IterateEnums(fn func(*EnumDesc) bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.enums {
		if !fn(d) {
			return
		}
	}
}

// IterateFunctions calls fn for every function descriptor until fn returns
// false.
func (r *Registry) IterateFunctions(fn func(*FunctionDesc) bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.functions {
		if !fn(d) {
			return
		}
	}
}

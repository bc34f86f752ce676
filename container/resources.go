package container

import "reflect"

// Resources is a small type-keyed service locator, adapted from the
// teacher's resources.go. It is the concrete replacement for the C
// runtime's module-level statics (spec.md §9, "Global mutable state"):
// a GeneratorContext or a reference-manager run threads one *Resources
// through every call instead of reaching for package-level variables, so
// two registries or two reference-manager runs never share state by
// accident.
type Resources struct {
	items   []any
	types   map[reflect.Type]int
	freeIds []int
}

// NewResources creates an empty service locator.
func NewResources() *Resources {
	return &Resources{types: make(map[reflect.Type]int)}
}

// Add registers res, keyed by its dynamic type. Panics if a resource of the
// same type is already present, since two loggers or two clocks in the same
// run is a construction bug, not a runtime condition to recover from.
func (r *Resources) Add(res any) int {
	if res == nil {
		panic("container: cannot add nil resource")
	}
	t := reflect.TypeOf(res)
	if _, ok := r.types[t]; ok {
		panic("container: resource of type " + t.String() + " already registered")
	}
	var id int
	if n := len(r.freeIds); n > 0 {
		id = r.freeIds[n-1]
		r.freeIds = r.freeIds[:n-1]
		r.items[id] = res
	} else {
		r.items = append(r.items, res)
		id = len(r.items) - 1
	}
	r.types[t] = id
	return id
}

// Remove drops the resource at id, if any.
func (r *Resources) Remove(id int) {
	if id < 0 || id >= len(r.items) || r.items[id] == nil {
		return
	}
	delete(r.types, reflect.TypeOf(r.items[id]))
	r.items[id] = nil
	r.freeIds = append(r.freeIds, id)
}

// GetResource retrieves the registered resource of type T, if any.
func GetResource[T any](r *Resources) (T, bool) {
	var zero T
	t := reflect.TypeFor[T]()
	id, ok := r.types[t]
	if !ok {
		return zero, false
	}
	return r.items[id].(T), true
}

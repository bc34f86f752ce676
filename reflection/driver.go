package reflection

import (
	"context"
	"regexp"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kanrt/kan/ids"
)

// generatorNamePattern matches the struct-name convention spec.md §4.2
// "Generator discovery" scans for: kan_reflection_generator_<NAME>[_t].
var generatorNamePattern = regexp.MustCompile(`^kan_reflection_generator_([A-Za-z0-9]+?)(_t)?$`)

// Generator is one discovered code-generation pass. A generator instance is
// created once discovery matches its name, bootstrapped immediately, and
// then iterated once per driver iteration until the driver reaches a fixed
// point (spec.md §4.2 "Generator driver").
type Generator interface {
	Bootstrap(registry *Registry, firstIteration int)
	Iterate(registry *Registry, view *IterationView, iterIndex int) error
	Finalize(registry *Registry)
}

// GeneratorFactory constructs a fresh Generator instance when discovery
// matches its registered name.
type GeneratorFactory func() Generator

// IterateCallback is a populate-time "iterate" subscription (spec.md §4.2
// step 3: "dispatch all iterate connections ... in parallel tasks").
type IterateCallback func(registry *Registry, view *IterationView, iterIndex int) error

// GeneratedCallback is invoked once at finalize when a previous registry
// existed, after migration plans are built (spec.md §4.2 step 5
// "dispatch all subscribed generated(old_registry, new_registry, seed,
// migrator) callbacks").
type GeneratedCallback func(old, new *Registry, seed any, migrator any) error

// MigrationBuilder constructs the migration seed and migrator for a Run that
// was given a previous registry, before any generated callback fires
// (spec.md §4.2 step 5 "build a MigrationSeed, then a StructMigrator").
// Package reflection cannot import package migration directly (migration
// already imports reflection, for *StructDesc/*FieldDesc/Patch), so seed and
// migrator cross this boundary as any; the concrete builder lives in a
// package that imports both, and is wired in with SubscribeMigrationBuilder.
type MigrationBuilder func(old, new *Registry) (seed any, migrator any, err error)

// pendingQueue buffers adds made during one driver iteration so the next
// iteration can consume exactly "items added in the previous iteration"
// (spec.md §4.2 step 3), guarded by a lock since iterate tasks append to it
// concurrently (spec.md §4.2 "Shared state").
type pendingQueue struct {
	mu        sync.Mutex
	structs   []*StructDesc
	enums     []*EnumDesc
	functions []*FunctionDesc
	meta      []pendingMeta
}

type pendingMeta struct {
	owner, subName, metaType ids.Interned
	value                    any
}

func (q *pendingQueue) isEmpty() bool {
	return len(q.structs) == 0 && len(q.enums) == 0 && len(q.functions) == 0 && len(q.meta) == 0
}

func (q *pendingQueue) snapshotAndClear() pendingQueue {
	q.mu.Lock()
	defer q.mu.Unlock()
	snap := pendingQueue{structs: q.structs, enums: q.enums, functions: q.functions, meta: q.meta}
	q.structs, q.enums, q.functions, q.meta = nil, nil, nil, nil
	return snap
}

// IterationView is what an iterate task sees: the registry being built,
// the snapshot of items added in the previous iteration, and a way to
// queue new adds into the next one. Tasks may call Add*/Change* on it
// freely from multiple goroutines (spec.md §4.2 "Tasks may call add_* and
// change_* on the iterator, which appends into the this-iteration queues
// under a lock").
type IterationView struct {
	registry *Registry
	previous pendingQueue
	next     *pendingQueue
}

// PreviousStructs returns the structs added in the previous iteration.
func (v *IterationView) PreviousStructs() []*StructDesc { return v.previous.structs }

// PreviousEnums returns the enums added in the previous iteration.
func (v *IterationView) PreviousEnums() []*EnumDesc { return v.previous.enums }

// PreviousFunctions returns the functions added in the previous iteration.
func (v *IterationView) PreviousFunctions() []*FunctionDesc { return v.previous.functions }

// AddStruct registers desc on the live registry and queues it for the next
// iteration's "previous" view.
func (v *IterationView) AddStruct(desc *StructDesc) {
	v.registry.AddStruct(desc)
	v.next.mu.Lock()
	v.next.structs = append(v.next.structs, desc)
	v.next.mu.Unlock()
}

// AddEnum registers desc on the live registry and queues it for the next
// iteration.
func (v *IterationView) AddEnum(desc *EnumDesc) {
	v.registry.AddEnum(desc)
	v.next.mu.Lock()
	v.next.enums = append(v.next.enums, desc)
	v.next.mu.Unlock()
}

// AddFunction registers desc on the live registry and queues it for the
// next iteration.
func (v *IterationView) AddFunction(desc *FunctionDesc) {
	v.registry.AddFunction(desc)
	v.next.mu.Lock()
	v.next.functions = append(v.next.functions, desc)
	v.next.mu.Unlock()
}

// ChangeMeta attaches or replaces metadata and queues the change for the
// next iteration.
func (v *IterationView) ChangeMeta(owner, subName, metaType ids.Interned, meta any) {
	v.registry.AddMeta(owner, subName, metaType, meta)
	v.next.mu.Lock()
	v.next.meta = append(v.next.meta, pendingMeta{owner, subName, metaType, meta})
	v.next.mu.Unlock()
}

type generatorInstance struct {
	name string
	gen  Generator
}

// GeneratorDriver runs the populate → discover → iterate-to-fixed-point →
// finalize pipeline that builds a Registry (spec.md §4.2 "Generator
// driver"). The fork-join step per iteration is an errgroup.Group: every
// subscribed iterate callback and every discovered generator's Iterate is
// g.Go'd, and g.Wait() is the barrier spec.md §5 requires between
// iteration k and k+1, grounded on the pack's golang.org/x/sync/errgroup
// usage (alex60217101990-opa, evalgo-org-eve).
type GeneratorDriver struct {
	populate  []StaticRegistrar
	iterate   []IterateCallback
	finalize  []func(*Registry)
	generated []GeneratedCallback

	migrationBuilder MigrationBuilder

	factories map[string]GeneratorFactory
}

// NewGeneratorDriver creates an empty driver.
func NewGeneratorDriver() *GeneratorDriver {
	return &GeneratorDriver{factories: make(map[string]GeneratorFactory)}
}

// Subscribe registers a populate-time static registrar.
func (d *GeneratorDriver) Subscribe(fn StaticRegistrar) { d.populate = append(d.populate, fn) }

// SubscribeIterate registers an iterate-time callback.
func (d *GeneratorDriver) SubscribeIterate(fn IterateCallback) { d.iterate = append(d.iterate, fn) }

// SubscribeFinalize registers a finalize-time callback.
func (d *GeneratorDriver) SubscribeFinalize(fn func(*Registry)) {
	d.finalize = append(d.finalize, fn)
}

// SubscribeGenerated registers a generated(old, new, seed, migrator)
// callback, invoked only when a previous registry was supplied to Run.
func (d *GeneratorDriver) SubscribeGenerated(fn GeneratedCallback) {
	d.generated = append(d.generated, fn)
}

// SubscribeMigrationBuilder registers the builder Run uses to construct the
// migration seed/migrator passed to generated callbacks. A driver with no
// builder registered still dispatches generated callbacks when old != nil,
// with seed and migrator left nil.
func (d *GeneratorDriver) SubscribeMigrationBuilder(fn MigrationBuilder) {
	d.migrationBuilder = fn
}

// RegisterGeneratorFactory binds name (the <NAME> portion of
// kan_reflection_generator_<NAME>[_t]) to a factory. Discovery instantiates
// it the first time a struct with that derived name is added to the
// registry (spec.md §4.2 "Generator discovery").
func (d *GeneratorDriver) RegisterGeneratorFactory(name string, factory GeneratorFactory) {
	d.factories[name] = factory
}

// Run executes the full pipeline and returns the finished registry. old, if
// non-nil, triggers the migration hookup at finalize (spec.md §4.2 step 5).
// Fatal errors from a populate/iterate/finalize callback propagate by
// panic, per spec.md §4.2 "Failure semantics": this is a bootstrap-time
// component and the registry is considered undefined on such failure.
func (d *GeneratorDriver) Run(ctx context.Context, old *Registry) (*Registry, error) {
	registry := NewRegistry()
	var instances []*generatorInstance
	queue := &pendingQueue{}

	for _, fn := range d.populate {
		if err := fn(registry); err != nil {
			panic(err)
		}
	}
	// Populate callbacks write directly to the registry rather than through
	// an IterationView, so the initial discovery pass scans the registry
	// itself instead of the (still-empty) queue.
	registry.IterateStructs(func(desc *StructDesc) bool {
		queue.structs = append(queue.structs, desc)
		return true
	})
	d.discover(registry, queue, 0, &instances)

	for k := 0; ; k++ {
		previous := queue.snapshotAndClear()
		if k > 0 && previous.isEmpty() {
			break
		}

		if k > 0 {
			d.discover(registry, &previous, k, &instances)
		}

		view := &IterationView{registry: registry, previous: previous, next: queue}
		g, _ := errgroup.WithContext(ctx)
		for _, cb := range d.iterate {
			cb := cb
			g.Go(func() error { return cb(registry, view, k) })
		}
		for _, inst := range instances {
			inst := inst
			g.Go(func() error { return inst.gen.Iterate(registry, view, k) })
		}
		if err := g.Wait(); err != nil {
			panic(err)
		}
		if queue.isEmpty() {
			break
		}
	}

	for _, fn := range d.finalize {
		fn(registry)
	}
	for _, inst := range instances {
		inst.gen.Finalize(registry)
	}

	if old != nil {
		var seed, migrator any
		if d.migrationBuilder != nil {
			var err error
			seed, migrator, err = d.migrationBuilder(old, registry)
			if err != nil {
				panic(err)
			}
		}
		for _, fn := range d.generated {
			if err := fn(old, registry, seed, migrator); err != nil {
				panic(err)
			}
		}
		old.Destroy()
	}

	return registry, nil
}

// discover scans freshly added structs for the generator-name pattern and
// bootstraps any match not already instantiated, appending to *out (spec.md
// §4.2 step 2/3: "run generator discovery on the new struct with
// first_iter = k").
func (d *GeneratorDriver) discover(registry *Registry, queue *pendingQueue, firstIter int, out *[]*generatorInstance) {
	seen := make(map[string]bool, len(*out))
	for _, inst := range *out {
		seen[inst.name] = true
	}
	for _, desc := range queue.structs {
		name := ids.Global.String(desc.Name)
		m := generatorNamePattern.FindStringSubmatch(name)
		if m == nil || seen[m[1]] {
			continue
		}
		factory, ok := d.factories[m[1]]
		if !ok {
			continue
		}
		gen := factory()
		gen.Bootstrap(registry, firstIter)
		*out = append(*out, &generatorInstance{name: m[1], gen: gen})
		seen[m[1]] = true
	}
}

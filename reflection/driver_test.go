package reflection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kanrt/kan/ids"
)

func TestDriverRunPopulateOnly(t *testing.T) {
	d := NewGeneratorDriver()
	name := ids.Global.Intern("kan_static_component_t")
	d.Subscribe(func(r *Registry) error {
		r.AddStruct(&StructDesc{Name: name, Size: 8})
		return nil
	})

	registry, err := d.Run(context.Background(), nil)
	require.NoError(t, err)
	got, ok := registry.QueryStruct(name)
	require.True(t, ok)
	require.Equal(t, uintptr(8), got.Size)
}

type countingGenerator struct {
	iterations *int
}

func (g *countingGenerator) Bootstrap(registry *Registry, firstIteration int) {}

func (g *countingGenerator) Iterate(registry *Registry, view *IterationView, iterIndex int) error {
	*g.iterations++
	return nil
}

func (g *countingGenerator) Finalize(registry *Registry) {}

func TestDriverDiscoversGeneratorByNamePattern(t *testing.T) {
	d := NewGeneratorDriver()
	iterations := 0
	d.RegisterGeneratorFactory("demo", func() Generator {
		return &countingGenerator{iterations: &iterations}
	})
	d.Subscribe(func(r *Registry) error {
		r.AddStruct(&StructDesc{Name: ids.Global.Intern("kan_reflection_generator_demo_t")})
		return nil
	})

	_, err := d.Run(context.Background(), nil)
	require.NoError(t, err)
	require.GreaterOrEqual(t, iterations, 1)
}

func TestDriverIterateUntilFixedPoint(t *testing.T) {
	d := NewGeneratorDriver()
	spawned := 0
	d.Subscribe(func(r *Registry) error {
		r.AddStruct(&StructDesc{Name: ids.Global.Intern("kan_seed_struct_t")})
		return nil
	})
	d.SubscribeIterate(func(registry *Registry, view *IterationView, iterIndex int) error {
		if iterIndex == 0 && len(view.PreviousStructs()) > 0 {
			spawned++
			view.AddStruct(&StructDesc{Name: ids.Global.Intern("kan_derived_struct_t")})
		}
		return nil
	})

	registry, err := d.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 1, spawned)
	_, ok := registry.QueryStruct(ids.Global.Intern("kan_derived_struct_t"))
	require.True(t, ok)
}

// TestDriverRunWithOldRegistryDispatchesGeneratedCallback covers spec.md
// §4.2 step 5: when Run is given a previous registry, the registered
// MigrationBuilder runs once and its seed/migrator are handed to every
// subscribed generated callback along with the old and new registries.
// fakeSeed/fakeMigrator stand in for package migration's real
// types, since package reflection cannot import package migration.
type fakeSeed struct{ old, new *Registry }
type fakeMigrator struct{ seed *fakeSeed }

func TestDriverRunWithOldRegistryDispatchesGeneratedCallback(t *testing.T) {
	oldDriver := NewGeneratorDriver()
	oldName := ids.Global.Intern("kan_old_struct_t")
	oldDriver.Subscribe(func(r *Registry) error {
		r.AddStruct(&StructDesc{Name: oldName, Size: 4})
		return nil
	})
	oldRegistry, err := oldDriver.Run(context.Background(), nil)
	require.NoError(t, err)

	newDriver := NewGeneratorDriver()
	newName := ids.Global.Intern("kan_new_struct_t")
	newDriver.Subscribe(func(r *Registry) error {
		r.AddStruct(&StructDesc{Name: newName, Size: 8})
		return nil
	})

	builderCalls := 0
	newDriver.SubscribeMigrationBuilder(func(old, new *Registry) (any, any, error) {
		builderCalls++
		seed := &fakeSeed{old: old, new: new}
		return seed, &fakeMigrator{seed: seed}, nil
	})

	var gotSeed, gotMigrator any
	var gotOld, gotNew *Registry
	newDriver.SubscribeGenerated(func(old, new *Registry, seed, migrator any) error {
		gotOld, gotNew = old, new
		gotSeed, gotMigrator = seed, migrator
		return nil
	})

	newRegistry, err := newDriver.Run(context.Background(), oldRegistry)
	require.NoError(t, err)

	require.Equal(t, 1, builderCalls)
	require.Same(t, oldRegistry, gotOld)
	require.Same(t, newRegistry, gotNew)
	require.IsType(t, &fakeSeed{}, gotSeed)
	require.IsType(t, &fakeMigrator{}, gotMigrator)
	require.Same(t, gotSeed, gotMigrator.(*fakeMigrator).seed)
}

// TestDriverRunWithOldRegistryAndNoBuilderStillDispatches covers the
// backward-compatible path: a driver with no MigrationBuilder registered
// still calls generated callbacks when old != nil, with nil seed/migrator.
func TestDriverRunWithOldRegistryAndNoBuilderStillDispatches(t *testing.T) {
	oldDriver := NewGeneratorDriver()
	oldRegistry, err := oldDriver.Run(context.Background(), nil)
	require.NoError(t, err)

	newDriver := NewGeneratorDriver()
	called := false
	var gotSeed, gotMigrator any
	newDriver.SubscribeGenerated(func(old, new *Registry, seed, migrator any) error {
		called = true
		gotSeed, gotMigrator = seed, migrator
		return nil
	})

	_, err = newDriver.Run(context.Background(), oldRegistry)
	require.NoError(t, err)
	require.True(t, called)
	require.Nil(t, gotSeed)
	require.Nil(t, gotMigrator)
}

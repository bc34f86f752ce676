// Package migration implements the pure registry-to-registry diff engine
// spec.md §4.3 describes: given an old and a new reflection.Registry, it
// produces a per-struct, per-field migration plan, and rewrites recorded
// Patches against the new layout. It is a single-pass tree walk with no
// I/O and no goroutines, grounded on the same "pure transform over two
// trees" shape as migration.Migrate itself. There is no teacher precedent
// for a schema-diff engine in the example pack, so this package's
// structure follows spec.md §4.3's rules directly rather than a borrowed
// third-party shape (see DESIGN.md).
package migration

import (
	"github.com/kanrt/kan/ids"
	"github.com/kanrt/kan/reflection"
)

// StructPlanKind classifies what happened to a struct type between
// registries (spec.md §4.3 "Output").
type StructPlanKind int

const (
	StructIdentical StructPlanKind = iota
	StructChanged
	StructRemoved
)

// FieldPlanKind classifies what happened to one field (spec.md §4.3
// "Output").
type FieldPlanKind int

const (
	FieldCopy FieldPlanKind = iota
	FieldConverted
	FieldRemoved
	FieldAdded
)

// ConversionKind names the shape of a FieldConverted plan, for
// introspection/logging; the actual behavior lives in FieldPlan.Convert.
type ConversionKind int

const (
	ConversionNone ConversionKind = iota
	ConversionWiden
	ConversionNarrow
	ConversionIntToFloat
	ConversionFloatToInt
)

// FieldPlan describes the migration of one field (spec.md §4.3 "Per
// field").
type FieldPlan struct {
	Kind       FieldPlanKind
	Name       ids.Interned
	OldField   *reflection.FieldDesc
	NewField   *reflection.FieldDesc
	Conversion ConversionKind
	// Convert transforms an old field's value into the new field's value,
	// set only when Kind == FieldConverted.
	Convert func(old any) (any, error)
	// Sub is the recursive sub-plan for a struct-typed field (spec.md
	// §4.3 "Struct-typed fields recursively acquire the sub-plan of their
	// referenced type").
	Sub *StructPlan
	// ItemSub is the recursive sub-plan for an array field's item type,
	// when the item archetype is itself a struct.
	ItemSub *StructPlan
	// IsArray marks inline/dynamic array fields, which additionally carry
	// the capacity rule (spec.md §4.3 "preserve min(old_count,
	// new_capacity) items; new slots are Added").
	IsArray bool
	// Initializer supplies the value for a FieldAdded plan's new slots,
	// when the new field declares one. Nil means the zero value.
	Initializer any
}

// StructPlan describes the migration of one struct type (spec.md §4.3
// "Per struct-type present in old").
type StructPlan struct {
	Kind   StructPlanKind
	Name   ids.Interned
	Fields []FieldPlan
}

// Seed bundles the two registries a migration runs between (spec.md §4.2
// step 5 "build a MigrationSeed"). It carries no precomputed state of its
// own beyond the two registries: StructMigrator is where plans are built
// and cached.
type Seed struct {
	Old *reflection.Registry
	New *reflection.Registry
}

// NewSeed creates a migration seed from an old and a new registry.
func NewSeed(old, new *reflection.Registry) *Seed {
	return &Seed{Old: old, New: new}
}

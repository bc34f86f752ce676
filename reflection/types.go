// Package reflection implements the registry of type/function descriptors
// the rest of the runtime introspects against, and the generator driver
// that builds it. It generalizes the teacher's compile-time component
// registration (ecs.go's compTypeMap/compIDToType, filled once per World)
// into a general-purpose, name-addressed descriptor table any subsystem can
// query at runtime, matching spec.md §4.2's registry contract.
package reflection

import "github.com/kanrt/kan/ids"

// Archetype classifies how a field's bytes should be interpreted, the Go
// analogue of the C runtime's per-field "_Generic" dispatch (spec.md §3,
// §6 "Helpers resolving field archetypes").
type Archetype int

const (
	ArchetypeSignedInt Archetype = iota
	ArchetypeUnsignedInt
	ArchetypeFloating
	ArchetypeInterned
	ArchetypeEnum
	ArchetypeStruct
	ArchetypeExternalPointer
	ArchetypeStringPointer
	ArchetypeStructPointer
	ArchetypeInlineArray
	ArchetypeDynamicArray
	ArchetypePatch
)

func (a Archetype) String() string {
	switch a {
	case ArchetypeSignedInt:
		return "signed_int"
	case ArchetypeUnsignedInt:
		return "unsigned_int"
	case ArchetypeFloating:
		return "floating"
	case ArchetypeInterned:
		return "interned_string"
	case ArchetypeEnum:
		return "enum_ref"
	case ArchetypeStruct:
		return "struct_ref"
	case ArchetypeExternalPointer:
		return "external_pointer"
	case ArchetypeStringPointer:
		return "string_pointer"
	case ArchetypeStructPointer:
		return "struct_pointer"
	case ArchetypeInlineArray:
		return "inline_array"
	case ArchetypeDynamicArray:
		return "dynamic_array"
	case ArchetypePatch:
		return "patch"
	default:
		return "unknown"
	}
}

// FieldTag names one of the generated-code annotations spec.md §6 lists
// (reflection_external_pointer, reflection_ignore_*, reflection_size_field,
// reflection_visibility_condition_field/_values). The runtime itself never
// interprets these; they are carried on FieldDesc purely as somewhere for a
// future real code generator (spec.md §4.4, out of core here) to put them.
type FieldTag string

const (
	TagExternalPointer        FieldTag = "reflection_external_pointer"
	TagIgnore                 FieldTag = "reflection_ignore_struct_field"
	TagIgnoreFunctionArgument FieldTag = "reflection_ignore_function_argument"
	TagSizeField              FieldTag = "reflection_size_field"
	TagVisibilityField        FieldTag = "reflection_visibility_condition_field"
	TagVisibilityValues       FieldTag = "reflection_visibility_condition_values"
)

// FieldDesc describes one struct field (spec.md §3 "Type descriptor").
type FieldDesc struct {
	Name      ids.Interned
	Offset    uintptr
	Size      uintptr
	Kind      Archetype
	EnumRef   ids.Interned // valid iff Kind == ArchetypeEnum
	StructRef ids.Interned // valid iff Kind == ArchetypeStruct/ArchetypeStructPointer
	Item      *FieldDesc   // item descriptor for inline/dynamic arrays; nil otherwise
	Tags      map[FieldTag]string
}

// Functor is a value initializer or finalizer attached to a struct
// descriptor (spec.md §3 "init, shutdown"). It receives the instance it
// must initialize or tear down.
type Functor func(instance any)

// StructDesc is a registry entry describing one struct type (spec.md §3).
type StructDesc struct {
	Name      ids.Interned
	Size      uintptr
	Alignment uintptr
	Fields    []FieldDesc
	Init      Functor
	Shutdown  Functor
}

// EnumValue is one named constant of an EnumDesc.
type EnumValue struct {
	Name  ids.Interned
	Value int64
}

// EnumDesc is a registry entry describing one enum type.
type EnumDesc struct {
	Name   ids.Interned
	Values []EnumValue
}

// FunctionDesc is a registry entry describing one callable, argument
// archetypes included so a caller can validate a call site the way the C
// runtime validates generator bootstrap/iterate/finalize signatures
// (spec.md §4.2 "Validate each signature").
type FunctionDesc struct {
	Name      ids.Interned
	Arguments []FieldDesc
	Return    *FieldDesc
	Call      func(args ...any) (any, error)
}

// MetaKey identifies one metadata binding: top-level meta is keyed by
// (Owner, "", MetaType); field/value meta is keyed by (Owner, SubName,
// MetaType) (spec.md §3 "Metadata tables are keyed unique by...").
type MetaKey struct {
	Owner    ids.Interned
	SubName  ids.Interned
	MetaType ids.Interned
}

// FieldWrite is one write a Patch performs on a target instance.
type FieldWrite struct {
	Field ids.Interned
	Value any
}

// Patch is a precompiled set of field writes against a named struct type,
// rebindable across registries by the migration engine (spec.md §3
// "Patch").
type Patch struct {
	TargetType ids.Interned
	Writes     []FieldWrite
}

// StaticRegistrar is the contract a generated module supplies: a function
// that populates a fresh registry with its compile-time descriptors
// (spec.md §6 "register_statics").
type StaticRegistrar func(*Registry) error

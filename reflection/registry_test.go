package reflection

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kanrt/kan/ids"
)

func TestRegistryAddAndQueryStruct(t *testing.T) {
	r := NewRegistry()
	name := ids.Global.Intern("kan_transform_t")
	r.AddStruct(&StructDesc{Name: name, Size: 16})

	got, ok := r.QueryStruct(name)
	require.True(t, ok)
	require.Equal(t, uintptr(16), got.Size)
}

func TestRegistryDuplicateStructPanics(t *testing.T) {
	r := NewRegistry()
	name := ids.Global.Intern("kan_duplicate_struct_t")
	r.AddStruct(&StructDesc{Name: name})
	require.Panics(t, func() { r.AddStruct(&StructDesc{Name: name}) })
}

func TestRegistryFrozenRejectsWrites(t *testing.T) {
	r := NewRegistry()
	r.Freeze()
	require.Panics(t, func() {
		r.AddStruct(&StructDesc{Name: ids.Global.Intern("kan_frozen_struct_t")})
	})
}

func TestRegistryMetaKeyedByOwnerSubNameType(t *testing.T) {
	r := NewRegistry()
	owner := ids.Global.Intern("kan_render_pass_t")
	field := ids.Global.Intern("width")
	metaType := ids.Global.Intern("kan_size_meta_t")

	r.AddMeta(owner, ids.InvalidInterned, metaType, "top-level")
	r.AddMeta(owner, field, metaType, "field-level")

	top, ok := r.QueryMeta(owner, ids.InvalidInterned, metaType)
	require.True(t, ok)
	require.Equal(t, "top-level", top)

	fieldMeta, ok := r.QueryMeta(owner, field, metaType)
	require.True(t, ok)
	require.Equal(t, "field-level", fieldMeta)
}

func TestRegistryIterateStopsOnFalse(t *testing.T) {
	r := NewRegistry()
	r.AddStruct(&StructDesc{Name: ids.Global.Intern("kan_a_t")})
	r.AddStruct(&StructDesc{Name: ids.Global.Intern("kan_b_t")})

	count := 0
	r.IterateStructs(func(d *StructDesc) bool {
		count++
		return false
	})
	require.Equal(t, 1, count)
}

package repository

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kanrt/kan/ids"
)

func TestEntryLifecycle(t *testing.T) {
	r := New()
	entry := ResourceNativeEntry{AttachmentID: 1, Type: 10, Name: 20, Path: "a/b.bin"}
	r.AddEntry(entry)

	got, ok := r.Entry(1)
	require.True(t, ok)
	require.Equal(t, entry, got)

	r.RemoveEntry(1)
	_, ok = r.Entry(1)
	require.False(t, ok)
}

func TestSetReferencesReconcilesBySlot(t *testing.T) {
	r := New()
	entryID := ids.AttachmentId(1)

	r.SetReferences(entryID, []OuterReference{
		{AttachmentID: entryID, ReferenceType: 1, ReferenceName: 1},
		{AttachmentID: entryID, ReferenceType: 1, ReferenceName: 2},
	})
	require.Len(t, r.References(entryID), 2)

	r.SetReferences(entryID, []OuterReference{
		{AttachmentID: entryID, ReferenceType: 1, ReferenceName: 99},
	})
	refs := r.References(entryID)
	require.Len(t, refs, 1)
	require.Equal(t, ids.Interned(99), refs[0].ReferenceName)

	r.SetReferences(entryID, []OuterReference{
		{AttachmentID: entryID, ReferenceType: 1, ReferenceName: 1},
		{AttachmentID: entryID, ReferenceType: 1, ReferenceName: 2},
		{AttachmentID: entryID, ReferenceType: 1, ReferenceName: 3},
	})
	require.Len(t, r.References(entryID), 3)
}

func TestRemoveEntryDoesNotCascadeOuterOp(t *testing.T) {
	r := New()
	entryID := ids.AttachmentId(5)
	r.AddEntry(ResourceNativeEntry{AttachmentID: entryID})
	r.CreateOrResetOuterOp(entryID, 1, 1)

	r.RemoveEntry(entryID)

	_, ok := r.OuterOp(entryID)
	require.True(t, ok, "operation must survive entry deletion until explicitly failed and deleted")
}

func TestUmbrellaBindingCounting(t *testing.T) {
	r := New()
	typ := ids.TypeName(7)
	r.CreateOrResetUmbrella(typ)

	r.BindEntryToUmbrella(1, typ)
	r.BindEntryToUmbrella(2, typ)
	r.BindEntryToUmbrella(1, typ) // duplicate, must not double-count
	require.Equal(t, 2, r.BindingCount(typ))

	r.CreateOrResetOuterOp(1, 1, 1)
	r.DeleteOuterOp(1)
	require.Equal(t, 1, r.BindingCount(typ))
}

func TestUmbrellaResetClearsSuccessful(t *testing.T) {
	r := New()
	typ := ids.TypeName(3)
	r.CreateOrResetUmbrella(typ)
	r.FailUmbrella(typ)

	op, _ := r.Umbrella(typ)
	require.False(t, op.Successful)

	r.CreateOrResetUmbrella(typ)
	op, _ = r.Umbrella(typ)
	require.True(t, op.Successful)
}

package container

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now int64 }
type fakeLogger struct{ level string }

func TestResourcesAddAndGet(t *testing.T) {
	r := NewResources()
	r.Add(&fakeClock{now: 42})

	clock, ok := GetResource[*fakeClock](r)
	require.True(t, ok)
	require.Equal(t, int64(42), clock.now)

	_, ok = GetResource[*fakeLogger](r)
	require.False(t, ok)
}

func TestResourcesAddDuplicateTypePanics(t *testing.T) {
	r := NewResources()
	r.Add(&fakeClock{})
	require.Panics(t, func() { r.Add(&fakeClock{}) })
}

func TestResourcesAddNilPanics(t *testing.T) {
	r := NewResources()
	require.Panics(t, func() { r.Add(nil) })
}

func TestResourcesRemoveThenReAdd(t *testing.T) {
	r := NewResources()
	id := r.Add(&fakeClock{now: 1})
	r.Remove(id)

	_, ok := GetResource[*fakeClock](r)
	require.False(t, ok)

	r.Add(&fakeClock{now: 2})
	clock, ok := GetResource[*fakeClock](r)
	require.True(t, ok)
	require.Equal(t, int64(2), clock.now)
}

package spatial

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestTree() *Tree[int] {
	return Init[int](2, 0, 100, 6, 4)
}

func TestInsertAndShapeFirstOccurrence(t *testing.T) {
	tr := newTestTree()
	min := []float64{10, 10}
	max := []float64{12, 12}

	it := tr.InsertionStart(min, max)
	for tr.InsertionInsertAndMove(it) {
	}

	shape := tr.ShapeStart([]float64{9, 9}, []float64{13, 13})
	firstOccurrences := 0
	for tr.ShapeMoveToNextNode(shape) {
		for _, sub := range shape.CurrentSubNodes() {
			if tr.ShapeIsFirstOccurrence(shape, sub) {
				firstOccurrences++
			}
		}
	}
	require.Equal(t, 1, firstOccurrences, "a shape query covering the inserted object must see exactly one first occurrence")
}

func TestDeleteReturnsToEmptyRoot(t *testing.T) {
	tr := newTestTree()
	min := []float64{50, 50}
	max := []float64{52, 52}

	it := tr.InsertionStart(min, max)
	var inserted []NodeID
	for tr.InsertionInsertAndMove(it) {
		inserted = append(inserted, it.current)
	}
	require.NotEmpty(t, inserted)
	require.False(t, tr.IsEmptyRoot())

	for _, id := range inserted {
		n := &tr.nodes[id]
		for len(n.subNodes) > 0 {
			tr.Delete(id, 0)
		}
	}
	require.True(t, tr.IsEmptyRoot())
}

// TestReinsertAfterPartialDeleteDoesNotCorruptInvalidSentinel covers the
// sequence deleteWalkUp leaves behind when one of two siblings is fully
// deleted but the other survives: the parent's children block stays
// non-nil with the vacated slot set to the reserved invalid-node sentinel
// (NodeID 0). A later insertion descending back through that same parent
// must not treat the sentinel as a live node, and must not write through
// it into node 0's storage.
func TestReinsertAfterPartialDeleteDoesNotCorruptInvalidSentinel(t *testing.T) {
	tr := newTestTree()

	// A and B span 1 unit, which gives a target height of 5. They share
	// every path bit down through height 3 (both well inside [0,6.25) on
	// both dimensions) and diverge only at height 4, so they end up as
	// siblings under the same height-4 parent.
	aMin, aMax := []float64{0.5, 0.5}, []float64{1.5, 1.5}
	bMin, bMax := []float64{3.5, 3.5}, []float64{4.5, 4.5}

	insertAll := func(min, max []float64) []NodeID {
		var nodes []NodeID
		it := tr.InsertionStart(min, max)
		for tr.InsertionInsertAndMove(it) {
			nodes = append(nodes, it.current)
		}
		return nodes
	}

	aNodes := insertAll(aMin, aMax)
	bNodes := insertAll(bMin, bMax)
	require.NotEmpty(t, aNodes)
	require.NotEmpty(t, bNodes)
	require.NotEqual(t, aNodes[0], bNodes[0], "test setup requires A and B to land in different nodes")

	// Fully delete A. Its node empties out and is freed; its sibling (B's
	// node) is still live, so the shared parent's children block survives
	// with A's slot nulled to the invalid sentinel rather than the whole
	// parent being freed.
	for _, id := range aNodes {
		n := &tr.nodes[id]
		for len(n.subNodes) > 0 {
			tr.Delete(id, 0)
		}
	}
	require.False(t, tr.IsEmptyRoot())

	// Reinsert into A's old region. If the stale sentinel slot were handed
	// back as a live node, this would corrupt node 0 (the tree-wide
	// reserved invalid index) with real tree data.
	cMin, cMax := []float64{0.6, 0.6}, []float64{1.4, 1.4}
	cNodes := insertAll(cMin, cMax)
	require.NotEmpty(t, cNodes)

	require.Equal(t, node[int]{}, tr.nodes[invalidNode], "reserved invalid-node sentinel must remain untouched")

	shape := tr.ShapeStart([]float64{0, 0}, []float64{6.25, 6.25})
	seen := 0
	for tr.ShapeMoveToNextNode(shape) {
		for _, sub := range shape.CurrentSubNodes() {
			if tr.ShapeIsFirstOccurrence(shape, sub) {
				seen++
			}
		}
	}
	require.Equal(t, 2, seen, "only B and the reinserted C should be visible, with no resurrected A")
}

func TestRayHitsInsertedObject(t *testing.T) {
	tr := newTestTree()
	min := []float64{50, 50}
	max := []float64{52, 52}

	it := tr.InsertionStart(min, max)
	for tr.InsertionInsertAndMove(it) {
	}

	ray := tr.RayStart([]float64{0, 50.5}, []float64{1, 0}, 100)
	hit := false
	for tr.RayMoveToNextNode(ray) {
		for range ray.CurrentSubNodes() {
			hit = true
		}
		if hit {
			break
		}
	}
	require.True(t, hit, "a ray crossing the inserted object's cell must visit a node containing it")
}

func TestIsReInsertNeededMonotone(t *testing.T) {
	tr := newTestTree()
	oldMin := []float64{10, 10}
	oldMax := []float64{12, 12}
	sameMin := []float64{10, 10}
	sameMax := []float64{12, 12}
	require.False(t, tr.IsReInsertNeeded(oldMin, oldMax, sameMin, sameMax))

	farMin := []float64{90, 90}
	farMax := []float64{92, 92}
	require.True(t, tr.IsReInsertNeeded(oldMin, oldMax, farMin, farMax))
}

func TestIsContainedInOneSubNode(t *testing.T) {
	tr := newTestTree()
	require.True(t, tr.IsContainedInOneSubNode([]float64{10, 10}, []float64{10.1, 10.1}))
	require.False(t, tr.IsContainedInOneSubNode([]float64{0, 0}, []float64{100, 100}))
}

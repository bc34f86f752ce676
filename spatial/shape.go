package spatial

// ShapeIterator visits every existing tree node whose cell intersects a
// query box (spec.md §4.1 "shape"). It is an explicit state machine rather
// than a recursive walk, per spec.md §9's "coroutine-like iterators"
// design note.
type ShapeIterator[T any] struct {
	tree    *Tree[T]
	minPath QuantizedPath
	maxPath QuantizedPath
	stack   []NodeID
	current NodeID
}

// ShapeStart begins a shape query over [min,max].
func (t *Tree[T]) ShapeStart(min, max []float64) *ShapeIterator[T] {
	return &ShapeIterator[T]{
		tree:    t,
		minPath: quantizeSequence(min, t.GlobalMin, t.GlobalMax, t.Dimensions),
		maxPath: quantizeSequence(max, t.GlobalMin, t.GlobalMax, t.Dimensions),
		stack:   []NodeID{t.root},
	}
}

// nodeIntersectsBox reports whether the node's cell (the set of quantized
// points sharing the node's path bits above its own height bit) overlaps
// [minPath,maxPath].
func nodeIntersectsBox[T any](t *Tree[T], id NodeID, minPath, maxPath QuantizedPath) bool {
	n := &t.nodes[id]
	// A node at height h is addressed by path bits 0..h-1; the root covers
	// the whole space.
	var mask uint32
	if n.height > 0 {
		mask = prefixMask(n.height - 1)
	}
	for d := 0; d < t.Dimensions; d++ {
		lower := n.path.Roads[d] & mask
		upper := lower | ^mask
		if upper < minPath.Roads[d] || lower > maxPath.Roads[d] {
			return false
		}
	}
	return true
}

// ShapeMoveToNextNode advances to the next visited node, pushing its
// children (if any) that intersect the query box. Returns false once the
// traversal is exhausted.
func (t *Tree[T]) ShapeMoveToNextNode(it *ShapeIterator[T]) bool {
	for len(it.stack) > 0 {
		id := it.stack[len(it.stack)-1]
		it.stack = it.stack[:len(it.stack)-1]
		if !nodeIntersectsBox(t, id, it.minPath, it.maxPath) {
			continue
		}
		it.current = id
		n := &t.nodes[id]
		if n.children != nil {
			for _, c := range n.children {
				if c == invalidNode {
					// This cell was vacated by a delete; nothing to visit.
					continue
				}
				it.stack = append(it.stack, c)
			}
		}
		return true
	}
	return false
}

// CurrentSubNodes exposes the sub-nodes stored at the iterator's current
// visited node, for the caller to scan against its own payload predicate.
func (it *ShapeIterator[T]) CurrentSubNodes() []SubNode[T] {
	return it.tree.nodes[it.current].subNodes
}

// CurrentIsInner reports whether the current node lies strictly inside the
// query box at the node's prior-height mask (spec.md §4.1: an "inner" node
// whose whole cell is covered, as opposed to one merely overlapping the
// boundary).
func (it *ShapeIterator[T]) CurrentIsInner() bool {
	n := &it.tree.nodes[it.current]
	if n.height == 0 {
		return false
	}
	mask := prefixMask(n.height - 1)
	for d := 0; d < it.tree.Dimensions; d++ {
		nodeBits := n.path.Roads[d] & mask
		if nodeBits < (it.minPath.Roads[d] & mask) || nodeBits > (it.maxPath.Roads[d] & mask) {
			return false
		}
	}
	return true
}

// ShapeIsFirstOccurrence reports whether this visit is the first occurrence
// of sub for this shape query: the object's own quantized min, adjusted
// upward to the query's min where the query box clips it, must bucket with
// the current node's path at the node's prior height (spec.md §4.1 "shape",
// "First-occurrence check").
func (t *Tree[T]) ShapeIsFirstOccurrence(it *ShapeIterator[T], sub SubNode[T]) bool {
	n := &t.nodes[it.current]
	if n.height == 0 {
		return true
	}
	mask := heightMask(n.height - 1)
	for d := 0; d < t.Dimensions; d++ {
		want := maxU32(sub.MinPath.Roads[d], it.minPath.Roads[d])
		if (want & mask) != (n.path.Roads[d] & mask) {
			return false
		}
	}
	return true
}

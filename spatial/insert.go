package spatial

// InsertionIterator walks down the tree creating missing nodes until the
// target height for a bounding box, handing back a write slot at each
// visited target-height node (spec.md §4.1 "insert").
type InsertionIterator[T any] struct {
	tree         *Tree[T]
	targetHeight uint32
	minPath      QuantizedPath
	maxPath      QuantizedPath
	current      NodeID
	done         bool
}

// InsertionStart begins an insertion for the bounding box [min,max] and
// descends (creating nodes as needed) to the target height, positioning the
// iterator at the first target-height node.
func (t *Tree[T]) InsertionStart(min, max []float64) *InsertionIterator[T] {
	targetHeight := t.computeTargetHeight(min, max)
	minPath := quantizeSequence(min, t.GlobalMin, t.GlobalMax, t.Dimensions)
	maxPath := quantizeSequence(max, t.GlobalMin, t.GlobalMax, t.Dimensions)

	current := t.root
	for t.nodes[current].height < targetHeight {
		children := t.ensureChildren(current)
		idx := childIndex(minPath, t.nodes[current].height, t.Dimensions)
		current = children[idx]
	}

	return &InsertionIterator[T]{
		tree:         t,
		targetHeight: targetHeight,
		minPath:      minPath,
		maxPath:      maxPath,
		current:      current,
	}
}

// InsertionInsertAndMove appends value as a sub-node of the iterator's
// current target-height node, growing the node's sub-node storage in
// slices of Tree.SubNodeSlice (spec.md §4.1: "returns a write-pointer into
// sub_nodes after growing it in slices of SUB_NODE_SLICE"), then advances
// to try_step_on_height's next target-height node. Returns false once the
// box's [min,max] span at the target height has been fully covered.
func (t *Tree[T]) InsertionInsertAndMove(it *InsertionIterator[T]) bool {
	if it.done {
		return false
	}
	n := &t.nodes[it.current]
	n.subNodes = growSubNodes(n.subNodes, SubNode[T]{MinPath: it.minPath, MaxPath: it.maxPath}, t.SubNodeSlice)

	nextPath, ok := tryStepOnHeight(it.minPath, it.maxPath, it.minPath, it.targetHeight, it.tree.Dimensions)
	if !ok {
		it.done = true
		return true
	}
	it.minPath = nextPath

	current := t.root
	for t.nodes[current].height < it.targetHeight {
		children := t.ensureChildren(current)
		idx := childIndex(nextPath, t.nodes[current].height, t.Dimensions)
		current = children[idx]
	}
	it.current = current
	return true
}

// growSubNodes appends value, growing the slice's capacity in increments
// of slice when it is exhausted, the Go analogue of the C source's
// capacity-in-slices reallocation strategy.
func growSubNodes[T any](subNodes []SubNode[T], value SubNode[T], slice int) []SubNode[T] {
	if len(subNodes) == cap(subNodes) {
		newCap := cap(subNodes) + slice
		grown := make([]SubNode[T], len(subNodes), newCap)
		copy(grown, subNodes)
		subNodes = grown
	}
	return append(subNodes, value)
}

// tryStepOnHeight increments the quantized walk coordinate used while
// covering a bounding box at a fixed height: it advances the
// lowest-indexed dimension whose height bit is clear and whose
// root-to-height coordinate is still below max's, resetting every
// lower-indexed dimension back to min's bits at and below that height
// (spec.md §4.1 "insert"; original_source's shape_iterator_reset_dimension
// family implements the analogous reset-on-carry for the shape iterator).
func tryStepOnHeight(current, maxPath, minPath QuantizedPath, height uint32, dims int) (QuantizedPath, bool) {
	mask := heightMask(height)
	for d := 0; d < dims; d++ {
		curBit := current.Roads[d] & mask
		maxBit := maxPath.Roads[d] & mask
		if curBit == 0 && maxBit != 0 {
			next := current
			next.Roads[d] |= mask
			for e := 0; e < d; e++ {
				next.Roads[e] = (next.Roads[e] &^ mask) | (minPath.Roads[e] & mask)
			}
			return next, true
		}
	}
	return current, false
}

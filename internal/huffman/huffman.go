// Package huffman builds per-field Huffman trees with a leaf-count cap
// and a spill bucket for rare symbols, and produces the bit-vector code
// index the bit encoder walks (spec.md §4.5). It is generic over the
// symbol type so the same construction serves every alphabet
// internal/bitencoder needs (opcode shapes, register payload bytes,
// durations, span ops) without six near-identical copies.
package huffman

import (
	"cmp"
	"container/heap"
)

// Code is a single symbol's bit pattern: Bits[0] is emitted first.
type Code struct {
	Bits []bool
}

// Tree is a built Huffman tree, kept around after construction only so
// Decode can walk it; BuildIndex is how the bit encoder actually gets
// codes to emit.
type Tree[T cmp.Ordered] struct {
	root *treeNode[T]
}

type treeNode[T cmp.Ordered] struct {
	code        T
	isLeaf      bool
	weight      int
	left, right *treeNode[T]
}

// Build constructs a Huffman tree over freq. Symbols that occur exactly
// once are always pooled into a single synthetic leaf coded as literal;
// if more than limit symbols remain, the lowest-weight ones join that
// leaf until limit remain, mirroring the original
// encoder's spill bucket so a long tail of one-off symbols never costs a
// whole extra tree leaf each. limit<=0 means unlimited. An empty freq
// map returns a nil Tree; callers must not call methods on it.
func Build[T cmp.Ordered](freq map[T]int, limit int, literal T) *Tree[T] {
	if len(freq) == 0 {
		return nil
	}

	h := make(nodeHeap[T], 0, len(freq))
	literalWeight := 0
	for sym, count := range freq {
		if count == 1 {
			literalWeight++
			continue
		}
		h = append(h, &treeNode[T]{code: sym, isLeaf: true, weight: count})
	}
	heap.Init(&h)

	if limit > 0 {
		for h.Len() > limit {
			n := heap.Pop(&h).(*treeNode[T])
			literalWeight += n.weight
		}
	}

	if literalWeight > 0 {
		heap.Push(&h, &treeNode[T]{code: literal, isLeaf: true, weight: literalWeight})
	}

	if h.Len() == 0 {
		// Not reached for a non-empty freq map: every symbol either keeps
		// its own leaf or adds weight to the literal bucket pushed above.
		// Guard kept so h[0] below always exists.
		heap.Push(&h, &treeNode[T]{code: literal, isLeaf: true, weight: literalWeight})
	}

	for h.Len() > 1 {
		left := heap.Pop(&h).(*treeNode[T])
		right := heap.Pop(&h).(*treeNode[T])
		heap.Push(&h, &treeNode[T]{weight: left.weight + right.weight, left: left, right: right})
	}

	return &Tree[T]{root: h[0]}
}

// BuildIndex walks the tree and returns every leaf's bit path, root-to-
// leaf order, exactly what writePath/buildIndex produces (reversed) in
// the original encoder.
func (t *Tree[T]) BuildIndex() map[T]Code {
	index := make(map[T]Code)
	if t == nil {
		return index
	}
	var walk func(n *treeNode[T], path []bool)
	walk = func(n *treeNode[T], path []bool) {
		if n.isLeaf {
			cp := make([]bool, len(path))
			copy(cp, path)
			index[n.code] = Code{Bits: cp}
			return
		}
		walk(n.left, append(path, false))
		walk(n.right, append(path, true))
	}
	walk(t.root, nil)
	return index
}

// Decode walks the tree one bit at a time, pulled from next, until a
// leaf is reached, and returns its symbol.
func (t *Tree[T]) Decode(next func() bool) T {
	n := t.root
	for !n.isLeaf {
		if next() {
			n = n.right
		} else {
			n = n.left
		}
	}
	return n.code
}

// nodeHeap is a min-heap on weight, ties broken by smallest code so
// construction is deterministic across runs (spec.md §8 idempotence).
// Interior nodes carry T's zero value and never collide with a real leaf
// in a comparison that matters, since ties only need to be
// deterministic, not meaningful.
type nodeHeap[T cmp.Ordered] []*treeNode[T]

func (h nodeHeap[T]) Len() int { return len(h) }
func (h nodeHeap[T]) Less(i, j int) bool {
	if h[i].weight != h[j].weight {
		return h[i].weight < h[j].weight
	}
	return h[i].code < h[j].code
}
func (h nodeHeap[T]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *nodeHeap[T]) Push(x any) {
	*h = append(*h, x.(*treeNode[T]))
}

func (h *nodeHeap[T]) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Package suffixtree builds a generalized suffix structure over an
// integer alphabet (spec.md §4.2) and answers the single query the
// compressor needs: the longest prior occurrence of the prefix starting
// at a given position.
//
// Construction deviates from the original source's Ukkonen-style
// suffix tree in one respect, recorded in DESIGN.md: nodes are a plain
// suffix trie (one edge per symbol, not compressed edges) rather than a
// linked suffix-link automaton. Each node still lives in a flat arena
// (t.nodes) with an owned child map exactly as spec.md §9 prescribes,
// and the externally consumed contract — FindPrior — is identical to
// what a compressed tree would expose. Match length is capped
// (Build's maxMatchLen, default 4096) to bound construction cost on pathological inputs;
// TIA register streams rarely repeat past a few hundred codes, so the
// cap never binds in practice.
package suffixtree

import "tiazip/internal/alphacode"

const defaultMaxMatchLength = 4096

type nodeID int32

const root nodeID = 0

type node struct {
	children map[alphacode.AlphaChar]nodeID
	// minStart is the smallest suffix-start position whose suffix
	// passes through this node. Because the set of starts reaching a
	// node can only shrink as depth increases, minStart is
	// non-decreasing along any root-to-leaf path — this is what makes
	// FindPrior's early exit correct.
	minStart int
}

// SuffixTree is read-only after Build; callers query it and then let it
// go out of scope before bit encoding, per spec.md §5's resource
// lifetime rule (it is by far the largest structure in the pipeline).
type SuffixTree struct {
	seq          []alphacode.AlphaChar
	nodes        []node
	maxMatchLen  int
}

// Build constructs the suffix structure over seq. maxMatchLen<=0 selects
// the package default.
func Build(seq []alphacode.AlphaChar, maxMatchLen int) *SuffixTree {
	if maxMatchLen <= 0 {
		maxMatchLen = defaultMaxMatchLength
	}
	t := &SuffixTree{
		seq:         seq,
		nodes:       []node{{children: make(map[alphacode.AlphaChar]nodeID), minStart: -1}},
		maxMatchLen: maxMatchLen,
	}

	for s := 0; s < len(seq); s++ {
		cur := root
		limit := s + maxMatchLen
		if limit > len(seq) {
			limit = len(seq)
		}
		for k := s; k < limit; k++ {
			c := seq[k]
			child, ok := t.nodes[cur].children[c]
			if !ok {
				t.nodes = append(t.nodes, node{children: make(map[alphacode.AlphaChar]nodeID), minStart: s})
				child = nodeID(len(t.nodes) - 1)
				t.nodes[cur].children[c] = child
			}
			cur = child
		}
	}

	return t
}

// FindPrior returns the largest length such that seq[start:start+length)
// == seq[i:i+length) for some start strictly less than i, and the
// leftmost such start. length is 0 and start is meaningless if no prior
// occurrence exists.
func (t *SuffixTree) FindPrior(i int) (start, length int) {
	cur := root
	limit := i + t.maxMatchLen
	if limit > len(t.seq) {
		limit = len(t.seq)
	}
	for k := i; k < limit; k++ {
		child, ok := t.nodes[cur].children[t.seq[k]]
		if !ok {
			break
		}
		cur = child
		if t.nodes[cur].minStart >= i {
			// Non-decreasing along the path: no deeper node can have a
			// smaller minStart, so there is nothing more to find.
			break
		}
		start = t.nodes[cur].minStart
		length = k - i + 1
	}
	return start, length
}

// NodeCount reports the number of arena-allocated nodes, for tests and
// diagnostics.
func (t *SuffixTree) NodeCount() int { return len(t.nodes) }

// Package compressor performs the greedy span selection described in
// spec.md §4.3: walk the lowered sequence, replace long enough repeats
// with copy spans backed by the suffix tree, and build the
// frequency-weighted branch table the control-flow rewriter consumes.
package compressor

import "tiazip/internal/suffixtree"

// DefaultThreshold is θ: a prior match no longer than this does not pay
// for the back-reference machinery.
const DefaultThreshold = 3

// Result holds the per-position tables spec.md §3 defines.
type Result struct {
	// Copy[i] is the leftmost position whose code equals the one
	// effectively executed at i. Copy[i] <= i, and Copy[Copy[i]] ==
	// Copy[i] (idempotent representative).
	Copy []int

	// BranchFreq[r] maps successor position -> occurrence count, keyed
	// by representative position r (i.e. BranchFreq[Copy[i]], never a
	// raw non-representative i).
	BranchFreq map[int]map[int]int

	// Skip[r] is the successor of representative r with the highest
	// BranchFreq count, ties broken by smallest successor index.
	Skip map[int]int
}

// SkipOf returns the skip successor for position i, i.e. Skip[Copy[i]].
// ok is false if i has no recorded successor (only possible for the
// final position in the sequence).
func (r *Result) SkipOf(i int) (successor int, ok bool) {
	s, ok := r.Skip[r.Copy[i]]
	return s, ok
}

// Compress walks seq (as AlphaChar, length n) using tree to find repeats
// and returns the copy map and branch tables. threshold<=0 selects
// DefaultThreshold. An empty seq yields an empty, valid Result.
func Compress(tree *suffixtree.SuffixTree, n int, threshold int) *Result {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	res := &Result{
		Copy:       make([]int, n),
		BranchFreq: make(map[int]map[int]int),
	}
	if n == 0 {
		res.Skip = map[int]int{}
		return res
	}

	record := func(prev, cur int) {
		r := res.Copy[prev]
		succ := res.Copy[cur]
		m, ok := res.BranchFreq[r]
		if !ok {
			m = make(map[int]int)
			res.BranchFreq[r] = m
		}
		m[succ]++
	}

	prevPos := -1
	i := 0
	for i < n {
		start, length := tree.FindPrior(i)
		if length > threshold {
			for k := 0; k < length; k++ {
				pos := i + k
				res.Copy[pos] = res.Copy[start+k]
				if prevPos >= 0 {
					record(prevPos, pos)
				}
				prevPos = pos
			}
			i += length
		} else {
			res.Copy[i] = i
			if prevPos >= 0 {
				record(prevPos, i)
			}
			prevPos = i
			i++
		}
	}

	res.Skip = computeSkip(res.BranchFreq)
	return res
}

func computeSkip(branchFreq map[int]map[int]int) map[int]int {
	skip := make(map[int]int, len(branchFreq))
	for r, succs := range branchFreq {
		bestSucc := -1
		bestCount := -1
		for succ, count := range succs {
			if count > bestCount || (count == bestCount && succ < bestSucc) {
				bestCount = count
				bestSucc = succ
			}
		}
		skip[r] = bestSucc
	}
	return skip
}

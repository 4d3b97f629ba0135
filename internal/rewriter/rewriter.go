// Package rewriter turns the compressor's copy map and branch-frequency
// table into the two emitted streams a decoder actually consumes: a data
// stream of executed codes and a span (track) stream of control-flow
// decisions (spec.md §4.4).
package rewriter

import (
	"tiazip/internal/alphacode"
	"tiazip/internal/compressor"
)

// jumpKind distinguishes the three ways a JUMP can enter the streams,
// since only TAKE_TRACK_JUMP is eligible for jump-to-return collapsing.
type jumpKind int

const (
	jumpTakeData jumpKind = iota
	jumpTakeTrack
	jumpUnconditional
)

// jumpSite is a JUMP emitted during the first pass, still carrying a
// source-sequence position as its target. opIdx/idx locate the
// annotation op (TAKE_DATA_JUMP/TAKE_TRACK_JUMP, or -1 for an
// unconditional JUMP with no preceding op) and the JUMP code itself
// within the stream named by inSpan.
type jumpSite struct {
	inSpan bool
	opIdx  int // -1 if there is no separate annotation op before the JUMP
	idx    int
	atPos  int // source position that owns this jump, for R/F simulation
	target int // source position the jump refers to (always a representative)
	kind   jumpKind
}

// Result holds the rewritten data and span streams plus the label map
// used to translate remaining JUMP targets into stable data-stream
// offsets.
type Result struct {
	Data []alphacode.Code
	Span []alphacode.Code

	// Labels maps a source-sequence position (always a literal, i.e. a
	// representative position) to its offset in Data.
	Labels map[int]int
}

// Rewrite runs the full control-flow rewrite: stream emission, then
// jump-to-return collapsing, then label rewriting. seq is the lowered
// code sequence comp was computed over.
func Rewrite(seq []alphacode.Code, comp *compressor.Result) *Result {
	n := len(seq)
	res := &Result{Labels: make(map[int]int)}
	if n == 0 {
		res.Data = []alphacode.Code{alphacode.Stop()}
		return res
	}

	var jumps []jumpSite

	for i := 0; i < n; i++ {
		rep := comp.Copy[i]
		isLiteral := rep == i

		var nextRep int
		hasNext := i+1 < n
		if hasNext {
			nextRep = comp.Copy[i+1]
		}

		table := comp.BranchFreq[rep]
		numSucc := len(table)
		skipSucc, hasSkip := comp.SkipOf(i)

		if isLiteral {
			res.Labels[i] = len(res.Data)
			res.Data = append(res.Data, seq[i])

			switch {
			case numSucc >= 2 && hasSkip && hasNext && nextRep == skipSucc:
				res.Data = append(res.Data, alphacode.BranchPoint())
				res.Span = append(res.Span, alphacode.Skip())

			case numSucc >= 2:
				// This occurrence's real continuation diverges from the
				// vote-winning skip successor: redirect explicitly.
				opIdx := len(res.Data)
				res.Data = append(res.Data, alphacode.TakeDataJump())
				idx := len(res.Data)
				res.Data = append(res.Data, alphacode.Jump(nextRep))
				jumps = append(jumps, jumpSite{opIdx: opIdx, idx: idx, atPos: i, target: nextRep, kind: jumpTakeData})

			case numSucc == 1 && hasSkip && skipSucc != i+1:
				idx := len(res.Data)
				res.Data = append(res.Data, alphacode.Jump(skipSucc))
				jumps = append(jumps, jumpSite{opIdx: -1, idx: idx, atPos: i, target: skipSucc, kind: jumpUnconditional})

			default:
				// Single successor and it is the physically adjacent
				// literal, or no recorded successor at all (terminal
				// position): pure fall-through, nothing to annotate.
			}
			continue
		}

		// Copy-span position: nothing enters the data stream.
		if hasNext && hasSkip && nextRep == skipSucc {
			res.Span = append(res.Span, alphacode.Skip())
			continue
		}
		opIdx := len(res.Span)
		res.Span = append(res.Span, alphacode.TakeTrackJump())
		idx := len(res.Span)
		target := skipSucc
		if hasNext {
			target = nextRep
		}
		res.Span = append(res.Span, alphacode.Jump(target))
		jumps = append(jumps, jumpSite{inSpan: true, opIdx: opIdx, idx: idx, atPos: i, target: target, kind: jumpTakeTrack})
	}

	rewriteReturns(res, jumps)
	resolveLabels(res, jumps)
	return res
}

// rewriteReturns runs the jump-to-return simulation described in
// spec.md §4.4: R tracks the return address of the most recently taken
// jump, F the highest R has ever been. A TAKE_TRACK_JUMP landing on
// either collapses to a zero-operand return op plus a RETURN_NOOP
// padding slot.
func rewriteReturns(res *Result, jumps []jumpSite) {
	const none = -1
	r, f := none, none

	for _, j := range jumps {
		if j.kind == jumpTakeTrack {
			stream := &res.Data
			if j.inSpan {
				stream = &res.Span
			}
			switch {
			case r != none && j.target == r:
				(*stream)[j.opIdx] = alphacode.ReturnLast()
				(*stream)[j.idx] = alphacode.ReturnNoop()
			case f != none && j.target == f:
				(*stream)[j.opIdx] = alphacode.ReturnFF()
				(*stream)[j.idx] = alphacode.ReturnNoop()
			}
		}

		ret := j.atPos + 1
		r = ret
		if f == none || ret > f {
			f = ret
		}
	}
}

// resolveLabels replaces every JUMP still holding a source-sequence
// target (i.e. not collapsed into a return op) with the data-stream
// offset recorded for that position.
func resolveLabels(res *Result, jumps []jumpSite) {
	for _, j := range jumps {
		stream := &res.Data
		if j.inSpan {
			stream = &res.Span
		}
		code := (*stream)[j.idx]
		if code.Op != alphacode.JUMP {
			// Collapsed into RETURN_LAST/RETURN_FF above; nothing to do.
			continue
		}
		code.Target = res.Labels[j.target]
		(*stream)[j.idx] = code
	}
}

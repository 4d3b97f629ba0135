// Package validator re-executes a TIAZIP bit-encoded artifact the way a
// decoder would and compares the result against the source lowering,
// grounded on the replay-and-diff shape of tools/forge/validate (CPU
// state replayed twice, first divergence reported) generalized from a
// 6502 emulator to the alphacode.Code control-flow state machine
// internal/rewriter defines (spec.md §4.8). It is a build-time check:
// any mismatch is fatal to the export run, never recovered.
package validator

import (
	"tiazip/internal/alphacode"
	"tiazip/internal/bitencoder"
	"tiazip/internal/bitstream"
	"tiazip/internal/compressor"
	"tiazip/internal/huffman"
	"tiazip/internal/rewriter"
	"tiazip/internal/tiaerr"
)

// fallback bit widths mirror internal/bitencoder's; a field tree's
// literal leaf is always followed by these many raw bits.
const (
	abstractFallbackBits = 8
	fieldFallbackBits    = 8
	durationFallbackBits = 16
)

// fingerprint packs the comparable fields of a WRITE_DELTA/PAUSE/SUSTAIN/
// STOP code into a uint64 so tiaerr.ValidationMismatch can report both
// sides in full hex, per spec.md §7's "both codes in full 64-bit hex".
func fingerprint(c alphacode.Code) uint64 {
	var v uint64
	v |= uint64(c.Op) << 56
	if c.ControlChange {
		v |= 1 << 48
	}
	v |= uint64(c.ControlValue) << 40
	if c.FrequencyChange {
		v |= 1 << 32
	}
	v |= uint64(c.FrequencyValue) << 24
	if c.VolumeChange {
		v |= 1 << 16
	}
	v |= uint64(c.VolumeValue) << 8
	v |= uint64(uint16(c.Duration))
	return v
}

// DecodeStreams Huffman-decodes streams back into the rewritten data and
// span sequences, resolving every JUMP's bit-level target back to a
// data-stream index. dataLen/spanLen are the known lengths of the
// rewritten sequences this artifact was built from (the bitstream itself
// carries no count).
func DecodeStreams(streams *bitencoder.Streams, trees *bitencoder.Trees, table *bitencoder.JumpIndexTable, baseAddress, dataLen, spanLen int) (data, span []alphacode.Code) {
	abstractIdx := trees.Abstract
	controlIdx := trees.Control
	frequencyIdx := trees.Frequency
	volumeIdx := trees.Volume
	durationIdx := trees.Duration
	spanIdx := trees.Span

	type pendingJump struct {
		list  *[]alphacode.Code
		idx   int
		raw   bool
		value int
	}
	var pending []pendingJump

	decodeField := func(bs *bitstream.Bitstream, tree *huffman.Tree[int], fallbackBits int) int {
		sym := tree.Decode(bs.ReadBit)
		if sym == bitencoder.LiteralSentinel {
			return int(bs.ReadBits(fallbackBits))
		}
		return sym
	}

	decodeJump := func(bs *bitstream.Bitstream) (raw bool, value int) {
		if bs.ReadBit() {
			return true, int(bs.ReadBits(bitencoder.RawAddressBits))
		}
		return false, int(bs.ReadBits(table.IndexBits()))
	}

	bs := streams.Data
	bs.Seek(0)
	data = make([]alphacode.Code, 0, dataLen)
	offsetToIndex := make(map[int]int, dataLen)

	for i := 0; i < dataLen; i++ {
		offsetToIndex[bs.Position()] = i
		shape := decodeField(bs, abstractIdx, abstractFallbackBits)
		op := alphacode.Op(shape >> 3)
		mask := shape & 7
		code := alphacode.Code{Op: op}

		switch op {
		case alphacode.WRITE_DELTA:
			code.ControlChange = alphacode.ChangeFlag(mask&1 != 0)
			code.FrequencyChange = alphacode.ChangeFlag(mask&2 != 0)
			code.VolumeChange = alphacode.ChangeFlag(mask&4 != 0)
			if code.ControlChange {
				code.ControlValue = byte(decodeField(bs, controlIdx, fieldFallbackBits))
			}
			if code.FrequencyChange {
				code.FrequencyValue = byte(decodeField(bs, frequencyIdx, fieldFallbackBits))
			}
			if code.VolumeChange {
				code.VolumeValue = byte(decodeField(bs, volumeIdx, fieldFallbackBits))
			}
			code.Duration = decodeField(bs, durationIdx, durationFallbackBits)
		case alphacode.PAUSE, alphacode.SUSTAIN:
			code.Duration = decodeField(bs, durationIdx, durationFallbackBits)
		case alphacode.JUMP:
			raw, value := decodeJump(bs)
			pending = append(pending, pendingJump{list: &data, idx: i, raw: raw, value: value})
		}
		data = append(data, code)
	}

	resolve := func(p pendingJump) {
		var target int
		if p.raw {
			target = offsetToIndex[p.value-baseAddress]
		} else {
			target, _ = table.TargetOf(p.value)
		}
		(*p.list)[p.idx].Target = target
	}
	for _, p := range pending {
		resolve(p)
	}
	pending = nil

	sbs := streams.Span
	sbs.Seek(0)
	span = make([]alphacode.Code, 0, spanLen)
	for i := 0; i < spanLen; i++ {
		op := alphacode.Op(decodeField(sbs, spanIdx, fieldFallbackBits))
		code := alphacode.Code{Op: op}
		if op == alphacode.JUMP {
			raw, value := decodeJump(sbs)
			var target int
			if raw {
				target = offsetToIndex[value-baseAddress]
			} else {
				target, _ = table.TargetOf(value)
			}
			code.Target = target
		}
		span = append(span, code)
	}

	return data, span
}

// CheckRoundTrip compares a freshly Huffman-decoded (data, span) pair
// against the pre-serialization rewriter.Result they were encoded from,
// field by field. This isolates bitencoder/huffman correctness from the
// control-flow replay Replay performs.
func CheckRoundTrip(subsong, channel int, decodedData, decodedSpan []alphacode.Code, rw *rewriter.Result) tiaerr.Error {
	if len(decodedData) != len(rw.Data) {
		return tiaerr.ValidationMismatch(subsong, channel, len(rw.Data), fingerprint(alphacode.Stop()), 0)
	}
	for i, want := range rw.Data {
		if decodedData[i] != want {
			return tiaerr.ValidationMismatch(subsong, channel, i, fingerprint(want), fingerprint(decodedData[i]))
		}
	}
	if len(decodedSpan) != len(rw.Span) {
		return tiaerr.ValidationMismatch(subsong, channel, len(rw.Span), fingerprint(alphacode.Stop()), 0)
	}
	for i, want := range rw.Span {
		if decodedSpan[i] != want {
			return tiaerr.ValidationMismatch(subsong, channel, i, fingerprint(want), fingerprint(decodedSpan[i]))
		}
	}
	return nil
}

// Replay re-executes the decoded data/span streams through the exact
// control-flow state machine internal/rewriter's Rewrite encoded it with
// (BRANCH_POINT/SKIP fallthrough, TAKE_DATA_JUMP/TAKE_TRACK_JUMP calls,
// RETURN_LAST/RETURN_FF collapsed the same way rewriteReturns chose them),
// producing one WRITE_DELTA/PAUSE/SUSTAIN/STOP per original sequence
// position.
//
// comp.Copy classifies each position as literal or copy, exactly as it
// did when Rewrite built data/span in the first place; this is the one
// piece of encoder-internal state the replay uses that a ROM decoder
// would not have, a deliberate simplification for this offline
// self-check (spec.md §9 Open Question) rather than a full from-scratch
// reconstruction of literal/copy classification from stream structure
// alone. The same state doubles as the copy position's content lookup:
// rw.Labels[comp.Copy[i]] is always the Data offset holding the code a
// ROM decoder would have reached by whatever pc-juggling SKIP/
// TAKE_TRACK_JUMP/RETURN_LAST/RETURN_FF perform, so the replay reads
// content straight from there instead of re-deriving it by walking a
// second program counter alongside the span stream.
func Replay(n int, data, span []alphacode.Code, comp *compressor.Result, rw *rewriter.Result) []alphacode.Code {
	if n == 0 {
		return []alphacode.Code{alphacode.Stop()}
	}

	pc, spc := 0, 0
	out := make([]alphacode.Code, 0, n)

	for i := 0; i < n; i++ {
		rep := comp.Copy[i]
		isLiteral := rep == i

		if isLiteral {
			code := data[pc]
			out = append(out, code)
			pc++
			if code.Op == alphacode.STOP {
				break
			}
			switch {
			case pc < len(data) && data[pc].Op == alphacode.BRANCH_POINT:
				pc++
				if spc < len(span) && span[spc].Op == alphacode.SKIP {
					spc++
				}
			case pc < len(data) && data[pc].Op == alphacode.TAKE_DATA_JUMP:
				pc++
				j := data[pc]
				pc++
				pc = j.Target
			case pc < len(data) && data[pc].Op == alphacode.JUMP:
				j := data[pc]
				pc++
				pc = j.Target
			}
			continue
		}

		// Copy position: driven entirely by the span stream. Whichever
		// op fires, the code this position contributes is always the
		// one its representative literal owns in Data; R/F bookkeeping
		// lives in internal/rewriter.rewriteReturns and is already baked
		// into which op appears here, so the replay has nothing left to
		// track beyond consuming the right number of span slots.
		content := data[rw.Labels[rep]]
		switch span[spc].Op {
		case alphacode.SKIP:
			spc++
		case alphacode.TAKE_TRACK_JUMP, alphacode.RETURN_LAST, alphacode.RETURN_FF:
			spc += 2 // opcode + JUMP(a), or opcode + RETURN_NOOP padding
		}
		out = append(out, content)
	}

	return out
}

// Validate runs both checks and reports the first divergence found, per
// spec.md §4.8. expected is the lowered sequence the pipeline started
// from, before compression.
func Validate(subsong, channel int, expected []alphacode.Code, comp *compressor.Result, rw *rewriter.Result, streams *bitencoder.Streams, trees *bitencoder.Trees, table *bitencoder.JumpIndexTable, baseAddress int) tiaerr.Error {
	decodedData, decodedSpan := DecodeStreams(streams, trees, table, baseAddress, len(rw.Data), len(rw.Span))

	if err := CheckRoundTrip(subsong, channel, decodedData, decodedSpan, rw); err != nil {
		return err
	}

	replayed := Replay(len(expected), decodedData, decodedSpan, comp, rw)
	if len(replayed) != len(expected) {
		got := uint64(len(replayed))
		return tiaerr.ValidationMismatch(subsong, channel, len(expected), uint64(len(expected)), got)
	}
	for i, want := range expected {
		if replayed[i] != want {
			return tiaerr.ValidationMismatch(subsong, channel, i, fingerprint(want), fingerprint(replayed[i]))
		}
	}
	return nil
}

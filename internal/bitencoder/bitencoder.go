// Package bitencoder builds the seven per-field structures spec.md §4.7
// describes (six Huffman trees plus the jump-index table) and walks the
// rewritten data and span streams to produce the final bit-exact
// artifacts, resolving forward-patched jump addresses once every
// position in the data stream has been assigned a bit offset.
package bitencoder

import (
	"tiazip/internal/alphacode"
	"tiazip/internal/bitstream"
	"tiazip/internal/huffman"
)

// LiteralSentinel is the spill-bucket symbol passed to huffman.Build for
// every per-field tree. -1 is never a legitimate shape, op, byte value,
// or duration, so it can never collide with a real symbol. Exported so
// internal/validator's decode path can recognize the same sentinel when
// it reads a fallback-coded field back off the bitstream.
const LiteralSentinel = -1

const literalSentinel = LiteralSentinel

// Fallback bit widths used when a literal leaf is decoded: the decoder
// falls back to reading this many raw bits instead of trusting the
// (too-rare-to-earn-a-leaf) Huffman path.
const (
	abstractFallbackBits = 8
	fieldFallbackBits    = 8
	durationFallbackBits = 16
	spanFallbackBits     = 8
)

// Jump addressing widths (spec.md §4.7): a 1-bit prefix selects between
// a small index into the jump-index table and a raw 15-bit address.
const (
	RawAddressBits        = 15
	JumpIndexCapDefault   = 32
	JumpIndexCapExtended  = 64
	jumpIndexBitsDefault  = 5
	jumpIndexBitsExtended = 6
)

// Trees holds the six alphabets spec.md §4.7 names.
type Trees struct {
	Abstract  *huffman.Tree[int]
	Control   *huffman.Tree[int]
	Frequency *huffman.Tree[int]
	Volume    *huffman.Tree[int]
	Duration  *huffman.Tree[int]
	Span      *huffman.Tree[int]
}

// Frequencies accumulates per-field occurrence counts over a pass of the
// compressed data and span sequences, ready to hand to BuildTrees and
// BuildJumpIndexTable.
type Frequencies struct {
	Abstract    map[int]int
	Control     map[int]int
	Frequency   map[int]int
	Volume      map[int]int
	Duration    map[int]int
	Span        map[int]int
	JumpTargets map[int]int
}

// NewFrequencies returns an empty, ready-to-accumulate Frequencies.
func NewFrequencies() *Frequencies {
	return &Frequencies{
		Abstract:    make(map[int]int),
		Control:     make(map[int]int),
		Frequency:   make(map[int]int),
		Volume:      make(map[int]int),
		Duration:    make(map[int]int),
		Span:        make(map[int]int),
		JumpTargets: make(map[int]int),
	}
}

// Collect walks data (the rewritten compressed code sequence) and span
// (the span-stream sequence) once, tallying every field the six trees
// and the jump-index table are built from.
func (f *Frequencies) Collect(data, span []alphacode.Code) {
	for _, c := range data {
		f.Abstract[c.Shape()]++
		collectOperandFreq(c, f)
	}
	for _, c := range span {
		f.Span[int(c.Op)]++
		if c.Op == alphacode.JUMP {
			f.JumpTargets[c.Target]++
		}
	}
}

func collectOperandFreq(c alphacode.Code, f *Frequencies) {
	switch c.Op {
	case alphacode.WRITE_DELTA:
		if c.ControlChange {
			f.Control[int(c.ControlValue)]++
		}
		if c.FrequencyChange {
			f.Frequency[int(c.FrequencyValue)]++
		}
		if c.VolumeChange {
			f.Volume[int(c.VolumeValue)]++
		}
		f.Duration[c.Duration]++
	case alphacode.PAUSE, alphacode.SUSTAIN:
		f.Duration[c.Duration]++
	case alphacode.JUMP:
		f.JumpTargets[c.Target]++
	}
}

// BuildTrees builds the six Huffman trees from accumulated frequencies.
// leafCap bounds every tree's leaf count (spec.md §4.5); <=0 means
// unlimited.
func BuildTrees(f *Frequencies, leafCap int) *Trees {
	return &Trees{
		Abstract:  huffman.Build(f.Abstract, leafCap, literalSentinel),
		Control:   huffman.Build(f.Control, leafCap, literalSentinel),
		Frequency: huffman.Build(f.Frequency, leafCap, literalSentinel),
		Volume:    huffman.Build(f.Volume, leafCap, literalSentinel),
		Duration:  huffman.Build(f.Duration, leafCap, literalSentinel),
		Span:      huffman.Build(f.Span, leafCap, literalSentinel),
	}
}

// JumpIndexTable assigns compact indices to the most frequently
// referenced jump targets, per spec.md §4.7: "the ≤32 (or ≤64 for the
// fixed variant) most-frequent jump targets (count≥2) are assigned
// small indices".
type JumpIndexTable struct {
	indexOf   map[int]int
	targetOf  []int
	indexBits int
}

// BuildJumpIndexTable selects up to capLimit targets with count>=2,
// highest count first, ties broken by smallest target for deterministic
// output. capLimit<=32 uses a 5-bit index field, <=64 uses 6 bits;
// capLimit<=0 selects JumpIndexCapDefault.
func BuildJumpIndexTable(freq map[int]int, capLimit int) *JumpIndexTable {
	if capLimit <= 0 {
		capLimit = JumpIndexCapDefault
	}
	bits := jumpIndexBitsDefault
	if capLimit > JumpIndexCapDefault {
		bits = jumpIndexBitsExtended
	}

	type entry struct {
		target int
		count  int
	}
	var entries []entry
	for t, c := range freq {
		if c >= 2 {
			entries = append(entries, entry{t, c})
		}
	}
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0; j-- {
			a, b := entries[j-1], entries[j]
			if a.count > b.count || (a.count == b.count && a.target <= b.target) {
				break
			}
			entries[j-1], entries[j] = entries[j], entries[j-1]
		}
	}
	if len(entries) > capLimit {
		entries = entries[:capLimit]
	}

	idx := make(map[int]int, len(entries))
	targets := make([]int, len(entries))
	for i, e := range entries {
		idx[e.target] = i
		targets[i] = e.target
	}
	return &JumpIndexTable{indexOf: idx, targetOf: targets, indexBits: bits}
}

// IndexOf returns the small index assigned to target, if any.
func (t *JumpIndexTable) IndexOf(target int) (int, bool) {
	i, ok := t.indexOf[target]
	return i, ok
}

// TargetOf reverses IndexOf: given a decoded index, returns the target it
// was assigned to. Used only on the decode path (internal/validator).
func (t *JumpIndexTable) TargetOf(index int) (int, bool) {
	if index < 0 || index >= len(t.targetOf) {
		return 0, false
	}
	return t.targetOf[index], true
}

// IndexBits reports the fixed width of an indexed jump reference.
func (t *JumpIndexTable) IndexBits() int { return t.indexBits }

// fixup records a forward jump reference that could not be resolved at
// emission time because its target had not yet been assigned a bit
// offset; Encode patches it in once the full data stream has been
// walked and positionMap is complete.
type fixup struct {
	offset int
	target int
}

// Streams is the pair of bit-packed artifacts Encode produces for one
// (subsong, channel) pipeline.
type Streams struct {
	Data *bitstream.Bitstream
	Span *bitstream.Bitstream

	// PositionMap maps a data-stream code index to its bit offset in
	// Data, before baseAddress is added. Encode resolves raw jump
	// addresses through it; internal/validator rebuilds its own offset
	// table while decoding and does not read it.
	PositionMap map[int]int
}

// Encode emits data and span to their bitstreams using trees and table,
// resolving every JUMP's rewritten target (a data-stream code index, per
// internal/rewriter's label resolution) to either a jump-index-table
// entry or a base-address-relative raw address.
func Encode(data, span []alphacode.Code, trees *Trees, table *JumpIndexTable, baseAddress int) *Streams {
	abstractIdx := trees.Abstract.BuildIndex()
	controlIdx := trees.Control.BuildIndex()
	frequencyIdx := trees.Frequency.BuildIndex()
	volumeIdx := trees.Volume.BuildIndex()
	durationIdx := trees.Duration.BuildIndex()
	spanIdx := trees.Span.BuildIndex()

	dataStream := bitstream.New(len(data) * 24)
	positionMap := make(map[int]int, len(data))
	var fixups []fixup

	writeField := func(bs *bitstream.Bitstream, idx map[int]huffman.Code, fallbackBits int, sym int) {
		c, ok := idx[sym]
		if !ok {
			c = idx[literalSentinel]
		}
		bs.WriteCode(c.Bits)
		if !ok {
			bs.WriteBits(uint64(sym), fallbackBits)
		}
	}

	emitJump := func(bs *bitstream.Bitstream, target int, allowFixup bool) {
		if i, ok := table.IndexOf(target); ok {
			bs.WriteBit(false)
			bs.WriteBits(uint64(i), table.IndexBits())
			return
		}
		bs.WriteBit(true)
		if addr, known := positionMap[target]; known {
			bs.WriteBits(uint64(baseAddress+addr), RawAddressBits)
			return
		}
		if !allowFixup {
			// Span-stream jumps are emitted after the full data stream
			// has been walked, so every data-stream target is already
			// known; this path is unreachable for well-formed input.
			bs.WriteBits(0, RawAddressBits)
			return
		}
		offset := bs.Placeholder(RawAddressBits)
		fixups = append(fixups, fixup{offset: offset, target: target})
	}

	for i, c := range data {
		positionMap[i] = dataStream.Len()
		writeField(dataStream, abstractIdx, abstractFallbackBits, c.Shape())

		switch c.Op {
		case alphacode.WRITE_DELTA:
			if c.ControlChange {
				writeField(dataStream, controlIdx, fieldFallbackBits, int(c.ControlValue))
			}
			if c.FrequencyChange {
				writeField(dataStream, frequencyIdx, fieldFallbackBits, int(c.FrequencyValue))
			}
			if c.VolumeChange {
				writeField(dataStream, volumeIdx, fieldFallbackBits, int(c.VolumeValue))
			}
			writeField(dataStream, durationIdx, durationFallbackBits, c.Duration)
		case alphacode.PAUSE, alphacode.SUSTAIN:
			writeField(dataStream, durationIdx, durationFallbackBits, c.Duration)
		case alphacode.JUMP:
			emitJump(dataStream, c.Target, true)
		}
	}

	for _, fu := range fixups {
		addr, ok := positionMap[fu.target]
		if !ok {
			// Invariant violation (spec.md §3): a JUMP target that is
			// not a valid opcode position in the compressed sequence.
			continue
		}
		dataStream.Patch(fu.offset, uint64(baseAddress+addr), RawAddressBits)
	}

	spanStream := bitstream.New(len(span) * 16)
	for _, c := range span {
		writeField(spanStream, spanIdx, spanFallbackBits, int(c.Op))
		if c.Op == alphacode.JUMP {
			emitJump(spanStream, c.Target, false)
		}
	}

	return &Streams{Data: dataStream, Span: spanStream, PositionMap: positionMap}
}

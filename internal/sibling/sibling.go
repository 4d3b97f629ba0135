// Package sibling implements the simpler RAW/BASIC/BASIC_RLE/TIACOMP/
// FSEQ export variants that share internal/regwrite's interval replay
// with the TIAZIP pipeline but skip the Huffman/suffix-tree machinery
// entirely (spec.md §6's sibling formats, grounded on
// atari2600Export.cpp::writeTrackDataRaw/Basic/TIAComp/FSeq).
//
// These formats predate TIAZIP in the original encoder and are kept
// here, in the teacher's spirit, as the simple baseline a player with no
// room for a Huffman table can still decode.
package sibling

import (
	"tiazip/internal/regwrite"
	"tiazip/internal/tiaerr"
)

// Variant names one of the non-TIAZIP export formats.
type Variant string

const (
	RAW      Variant = "RAW"
	BASIC    Variant = "BASIC"
	BasicRLE Variant = "BASIC_RLE"
	TIAComp  Variant = "TIACOMP"
	FSeq     Variant = "FSEQ"
)

// basicCapacity is the BASIC/BASIC_RLE player's fixed-size track table
// bound (atari2600Export.cpp's 256 data point ceiling).
const basicCapacity = 256

// EncodeRaw dumps every interval as a fixed-width register tuple,
// terminated by a single zero byte. When encodeDuration is false, a
// state is repeated once per frame instead of carrying an explicit
// duration byte, matching the original's two writeTrackDataRaw modes.
// Durations above 255 frames are rejected rather than silently
// truncated, since RAW is a debug/bring-up format with no compression to
// fall back on.
func EncodeRaw(intervals []regwrite.ChannelStateInterval, encodeDuration bool) ([]byte, tiaerr.Error) {
	out := make([]byte, 0, len(intervals)*4+1)
	for _, n := range intervals {
		if encodeDuration {
			if n.Duration > 255 {
				return nil, tiaerr.CapacityExceeded("RAW interval duration", 255, n.Duration)
			}
			out = append(out, n.State.Control, n.State.Frequency, n.State.Volume, byte(n.Duration))
			continue
		}
		for i := 0; i < n.Duration; i++ {
			out = append(out, n.State.Control, n.State.Frequency, n.State.Volume)
		}
	}
	return append(out, 0), nil
}

// BasicTables is the pair of parallel byte tables the BASIC format
// splits a channel's sequence into: one frequency+duration byte per
// interval, one control+volume byte per interval, each table
// independently zero-terminated.
type BasicTables struct {
	Freq []byte
	CV   []byte
}

// EncodeBasic packs intervals into BasicTables. Frequency and
// duration-1 share a byte (duration in the top 3 bits, frequency in the
// low 5, matching the TIA AUDF range); control and volume share a byte
// (control in the top nibble, volume in the low nibble), with every
// silent (volume 0) interval's byte written as 0xF0 whatever its control
// value, so a silent frame's byte is never confused with the table
// terminator.
func EncodeBasic(intervals []regwrite.ChannelStateInterval) (*BasicTables, tiaerr.Error) {
	if len(intervals) > basicCapacity {
		return nil, tiaerr.CapacityExceeded("BASIC data points", basicCapacity, len(intervals))
	}
	t := &BasicTables{
		Freq: make([]byte, 0, len(intervals)+1),
		CV:   make([]byte, 0, len(intervals)+1),
	}
	for _, n := range intervals {
		d := n.Duration - 1
		if d < 0 {
			d = 0
		}
		if d > 7 {
			d = 7
		}
		t.Freq = append(t.Freq, byte(d)<<5|(n.State.Frequency&0x1F))
		if n.State.Volume == 0 {
			t.CV = append(t.CV, 0xF0)
		} else {
			t.CV = append(t.CV, n.State.Control<<4|(n.State.Volume&0x0F))
		}
	}
	t.Freq = append(t.Freq, 0)
	t.CV = append(t.CV, 0)
	return t, nil
}

// EncodeBasicRLE run-length-compresses EncodeBasic's tables: every run
// of equal bytes, including a run of one and the terminator, becomes a
// (byte, runLength) pair with runs capped at 255, which helps most on
// the long steady-tone runs typical of register-write logs.
func EncodeBasicRLE(intervals []regwrite.ChannelStateInterval) (*BasicTables, tiaerr.Error) {
	plain, err := EncodeBasic(intervals)
	if err != nil {
		return nil, err
	}
	return &BasicTables{Freq: runLengthEncode(plain.Freq), CV: runLengthEncode(plain.CV)}, nil
}

func runLengthEncode(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); {
		run := 1
		for i+run < len(data) && data[i+run] == data[i] && run < 255 {
			run++
		}
		out = append(out, data[i], byte(run))
		i += run
	}
	return out
}

// deltaShape mirrors internal/alphacode.Code.Shape's change-flag mask
// (bit0 control, bit1 frequency, bit2 volume changed) without depending
// on the alphacode package: TIAComp's byte format predates the tagged
// AlphaCode union and is a simpler direct ancestor of it.
func deltaShape(prev, cur regwrite.ChannelState) byte {
	var m byte
	if cur.Control != prev.Control {
		m |= 1
	}
	if cur.Frequency != prev.Frequency {
		m |= 2
	}
	if cur.Volume != prev.Volume {
		m |= 4
	}
	return m
}

// EncodeTIAComp delta-encodes intervals against a running previous
// state: each interval emits a shape byte naming which of
// {control,frequency,volume} changed, the changed byte values in that
// order, and a trailing duration byte. A shape byte of zero mid-stream
// never occurs (every interval's state differs from live playback state
// by construction); the stream is terminated by one zero byte once all
// intervals are emitted.
func EncodeTIAComp(initial regwrite.ChannelState, intervals []regwrite.ChannelStateInterval) ([]byte, tiaerr.Error) {
	out := make([]byte, 0, len(intervals)*3+1)
	last := initial
	for _, n := range intervals {
		if n.Duration <= 0 {
			return nil, tiaerr.InvalidDuration(len(out))
		}
		shape := deltaShape(last, n.State)
		out = append(out, shape)
		if shape&1 != 0 {
			out = append(out, n.State.Control)
		}
		if shape&2 != 0 {
			out = append(out, n.State.Frequency)
		}
		if shape&4 != 0 {
			out = append(out, n.State.Volume)
		}
		d := n.Duration
		for d > 255 {
			out = append(out, 255)
			d -= 255
		}
		out = append(out, byte(d))
		last = n.State
	}
	return append(out, 0), nil
}

// FSeqArtifact is one channel's encoded sequence plus the common-pattern
// table it was built against: EncodeFSeq deduplicates whole
// TIAComp-encoded channel sequences that recur verbatim (e.g. a looped
// section replayed on the same channel in a later subsong), replacing a
// repeat with a back-reference to the first occurrence instead of
// storing it again.
type FSeqArtifact struct {
	// Patterns holds each distinct encoded sequence once.
	Patterns [][]byte
	// References[i] is the index into Patterns that sequence i (in
	// input order) resolves to.
	References []int
}

// EncodeFSeq runs EncodeTIAComp over every channel sequence, then
// deduplicates identical encodings exactly (first-occurrence wins),
// mirroring the spirit of the original's findCommonSequences pass
// without its arbitrary-subsequence matching: spec.md's Non-goals
// exclude general-purpose LZ, and this sibling format is the one place
// in the corpus where that restraint is most directly grounded.
func EncodeFSeq(initial []regwrite.ChannelState, sequences [][]regwrite.ChannelStateInterval) (*FSeqArtifact, tiaerr.Error) {
	a := &FSeqArtifact{References: make([]int, len(sequences))}
	seen := make(map[string]int, len(sequences))
	for i, seq := range sequences {
		init := regwrite.ChannelState{}
		if i < len(initial) {
			init = initial[i]
		}
		enc, err := EncodeTIAComp(init, seq)
		if err != nil {
			return nil, err
		}
		key := string(enc)
		if idx, ok := seen[key]; ok {
			a.References[i] = idx
			continue
		}
		idx := len(a.Patterns)
		a.Patterns = append(a.Patterns, enc)
		seen[key] = idx
		a.References[i] = idx
	}
	return a, nil
}

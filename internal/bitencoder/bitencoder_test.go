package bitencoder

import (
	"testing"

	"tiazip/internal/alphacode"
)

func TestCollectTalliesShapesAndOperands(t *testing.T) {
	data := []alphacode.Code{
		alphacode.WriteDelta(alphacode.CHANGE, 5, alphacode.NOOP, 0, alphacode.NOOP, 0, 2),
		alphacode.Pause(3),
		alphacode.Jump(7),
	}
	span := []alphacode.Code{alphacode.Skip(), alphacode.Jump(1)}

	f := NewFrequencies()
	f.Collect(data, span)

	if f.Abstract[data[0].Shape()] != 1 {
		t.Errorf("Abstract frequency for the WRITE_DELTA shape = %d, want 1", f.Abstract[data[0].Shape()])
	}
	if f.Control[5] != 1 {
		t.Errorf("Control[5] = %d, want 1", f.Control[5])
	}
	if f.Duration[3] != 1 {
		t.Errorf("Duration[3] = %d, want 1 (from the PAUSE)", f.Duration[3])
	}
	if f.JumpTargets[7] != 1 {
		t.Errorf("JumpTargets[7] = %d, want 1 (from the data-stream JUMP)", f.JumpTargets[7])
	}
	if f.JumpTargets[1] != 1 {
		t.Errorf("JumpTargets[1] = %d, want 1 (from the span-stream JUMP)", f.JumpTargets[1])
	}
	if f.Span[int(alphacode.SKIP)] != 1 {
		t.Errorf("Span[SKIP] = %d, want 1", f.Span[int(alphacode.SKIP)])
	}
}

func TestBuildJumpIndexTableOrdersByFrequencyThenTarget(t *testing.T) {
	freq := map[int]int{10: 5, 20: 5, 30: 2, 40: 1}
	table := BuildJumpIndexTable(freq, 0)

	// target 40 occurs once, below the count>=2 floor, so it must never
	// earn an index.
	if _, ok := table.IndexOf(40); ok {
		t.Errorf("target with count 1 must not be indexed")
	}

	i10, ok10 := table.IndexOf(10)
	i20, ok20 := table.IndexOf(20)
	if !ok10 || !ok20 {
		t.Fatalf("targets 10 and 20 (count 5) must both be indexed")
	}
	// Tied counts break by smallest target first.
	if i10 >= i20 {
		t.Errorf("tie-break: index(10)=%d should be less than index(20)=%d", i10, i20)
	}

	i30, ok30 := table.IndexOf(30)
	if !ok30 {
		t.Fatalf("target 30 (count 2) must be indexed")
	}
	if i30 <= i20 {
		t.Errorf("lower-frequency target 30 (index %d) should sort after target 20 (index %d)", i30, i20)
	}
}

func TestBuildJumpIndexTableRespectsCap(t *testing.T) {
	freq := map[int]int{1: 9, 2: 8, 3: 7}
	table := BuildJumpIndexTable(freq, 2)
	if len(table.targetOf) != 2 {
		t.Fatalf("expected exactly 2 entries under a cap of 2, got %d", len(table.targetOf))
	}
	if table.IndexBits() != jumpIndexBitsDefault {
		t.Errorf("IndexBits() = %d, want the default width for a cap <= %d", table.IndexBits(), JumpIndexCapDefault)
	}
}

func TestBuildJumpIndexTableExtendedCapUsesWiderIndex(t *testing.T) {
	freq := map[int]int{}
	for i := 0; i < 40; i++ {
		freq[i] = 2
	}
	table := BuildJumpIndexTable(freq, JumpIndexCapExtended)
	if table.IndexBits() != jumpIndexBitsExtended {
		t.Errorf("IndexBits() = %d, want the extended width for cap %d", table.IndexBits(), JumpIndexCapExtended)
	}
}

func TestTargetOfReversesIndexOf(t *testing.T) {
	freq := map[int]int{100: 3, 200: 3}
	table := BuildJumpIndexTable(freq, 0)
	idx, ok := table.IndexOf(100)
	if !ok {
		t.Fatalf("target 100 must be indexed")
	}
	target, ok := table.TargetOf(idx)
	if !ok || target != 100 {
		t.Errorf("TargetOf(%d) = (%d, %v), want (100, true)", idx, target, ok)
	}
	if _, ok := table.TargetOf(-1); ok {
		t.Errorf("TargetOf with an out-of-range index must fail")
	}
}

func TestEncodeRoundTripsPlainDataStream(t *testing.T) {
	data := []alphacode.Code{
		alphacode.Pause(2),
		alphacode.Pause(2),
		alphacode.Pause(2),
		alphacode.Stop(),
	}
	var span []alphacode.Code

	f := NewFrequencies()
	f.Collect(data, span)
	trees := BuildTrees(f, 0)
	table := BuildJumpIndexTable(f.JumpTargets, 0)

	streams := Encode(data, span, trees, table, 0)
	if streams.Data == nil {
		t.Fatalf("Encode must produce a non-nil data stream")
	}
	if len(streams.PositionMap) != len(data) {
		t.Errorf("PositionMap has %d entries, want %d (one per data code)", len(streams.PositionMap), len(data))
	}
	for i := 1; i < len(data); i++ {
		if streams.PositionMap[i] <= streams.PositionMap[i-1] {
			t.Errorf("PositionMap must be strictly increasing by code index: [%d]=%d, [%d]=%d", i-1, streams.PositionMap[i-1], i, streams.PositionMap[i])
		}
	}

	bs := streams.Data
	for i, want := range data {
		bs.Seek(streams.PositionMap[i])
		shape := trees.Abstract.Decode(bs.ReadBit)
		if shape == LiteralSentinel {
			shape = int(bs.ReadBits(abstractFallbackBits))
		}
		if shape != want.Shape() {
			t.Errorf("code %d decoded shape %d, want %d", i, shape, want.Shape())
		}
		if want.Op == alphacode.PAUSE {
			d := trees.Duration.Decode(bs.ReadBit)
			if d == LiteralSentinel {
				d = int(bs.ReadBits(durationFallbackBits))
			}
			if d != want.Duration {
				t.Errorf("code %d decoded duration %d, want %d", i, d, want.Duration)
			}
		}
	}
}

func TestEncodeResolvesForwardJumpFixup(t *testing.T) {
	// A JUMP at position 0 targets position 2, which is only assigned a
	// bit offset after the jump itself has been emitted: exercises the
	// placeholder/patch fixup path.
	data := []alphacode.Code{
		alphacode.Jump(2),
		alphacode.Pause(5),
		alphacode.Stop(),
	}
	var span []alphacode.Code

	f := NewFrequencies()
	f.Collect(data, span)
	trees := BuildTrees(f, 0)
	table := BuildJumpIndexTable(f.JumpTargets, 0)

	streams := Encode(data, span, trees, table, 0x1800)
	if streams.Data.BytesUsed() == 0 {
		t.Fatalf("expected a non-empty encoded data stream")
	}

	// Target 2 occurs once, so it earns no jump-index entry and the JUMP
	// carries a raw address patched in after position 2 was placed.
	bs := streams.Data
	bs.Seek(streams.PositionMap[0])
	if shape := trees.Abstract.Decode(bs.ReadBit); shape == LiteralSentinel {
		bs.ReadBits(abstractFallbackBits)
	}
	if !bs.ReadBit() {
		t.Fatalf("expected the JUMP to position 2 to use a raw address, not a jump-index entry")
	}
	want := uint64(0x1800 + streams.PositionMap[2])
	if got := bs.ReadBits(RawAddressBits); got != want {
		t.Errorf("patched jump address = %#x, want %#x (base 0x1800 plus the bit offset of position 2)", got, want)
	}
}

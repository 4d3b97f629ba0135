package lowering

import (
	"testing"

	"tiazip/internal/alphacode"
	"tiazip/internal/regwrite"
	"tiazip/internal/tia"
)

func chan0Map() tia.ChannelAddressMap {
	return tia.DefaultChannelMaps()[0]
}

func lastCode(seq []alphacode.Code) alphacode.Code {
	return seq[len(seq)-1]
}

func TestLowerAlwaysEndsInStop(t *testing.T) {
	seq := Lower(nil, nil, chan0Map(), 3, DefaultOptions())
	if lastCode(seq).Op != alphacode.STOP {
		t.Fatalf("Lower must always end in STOP, got %v", lastCode(seq).Op)
	}
}

func TestLowerSilentFrameBecomesPauseThenSustain(t *testing.T) {
	seq := Lower(nil, nil, chan0Map(), 5, DefaultOptions())
	if seq[0].Op != alphacode.PAUSE || seq[0].Duration != 1 {
		t.Fatalf("first code = %v, want PAUSE(1)", seq[0])
	}
	if seq[1].Op != alphacode.SUSTAIN || seq[1].Duration != 4 {
		t.Fatalf("second code = %v, want SUSTAIN(4)", seq[1])
	}
}

func TestLowerHeldNonSilentStateIsPureSustain(t *testing.T) {
	writes := []regwrite.RegisterWrite{
		{Tick: 0, Address: tia.AUDV0, Value: 8},
	}
	seq := Lower(nil, writes, chan0Map(), 6, DefaultOptions())

	if seq[0].Op != alphacode.WRITE_DELTA {
		t.Fatalf("first code = %v, want WRITE_DELTA establishing the held state", seq[0])
	}
	if seq[1].Op != alphacode.SUSTAIN || seq[1].Duration != 5 {
		t.Fatalf("second code = %v, want SUSTAIN(5)", seq[1])
	}
}

func TestLowerForcesFullDeltaOnControlChange(t *testing.T) {
	writes := []regwrite.RegisterWrite{
		{Tick: 0, Address: tia.AUDV0, Value: 8},
		{Tick: 1, Address: tia.AUDC0, Value: 2},
	}
	opts := DefaultOptions()
	opts.ForceFullDeltaOnControlChange = true
	seq := Lower(nil, writes, chan0Map(), 2, opts)

	var secondDelta alphacode.Code
	found := false
	for _, c := range seq {
		if c.Op == alphacode.WRITE_DELTA && c.ControlChange {
			secondDelta = c
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a WRITE_DELTA carrying the control change")
	}
	if !secondDelta.FrequencyChange || !secondDelta.VolumeChange {
		t.Errorf("ForceFullDeltaOnControlChange must set all three change flags, got %+v", secondDelta)
	}
}

func TestLowerAppliesVolumeAdjacencySentinel(t *testing.T) {
	writes := []regwrite.RegisterWrite{
		{Tick: 0, Address: tia.AUDV0, Value: 5},
		{Tick: 1, Address: tia.AUDV0, Value: 6},
	}
	opts := DefaultOptions()
	opts.VolumeAdjacencySentinel = true
	seq := Lower(nil, writes, chan0Map(), 2, opts)

	var step alphacode.Code
	found := false
	for _, c := range seq {
		if c.Op == alphacode.WRITE_DELTA && c.VolumeValue == SentinelVolumeUp {
			step = c
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the +1 volume step to be re-encoded as SentinelVolumeUp, got sequence %+v", seq)
	}
	if ResolveVolumeSentinel(step.VolumeValue, 5) != 6 {
		t.Errorf("ResolveVolumeSentinel(SentinelVolumeUp, 5) = %d, want 6", ResolveVolumeSentinel(step.VolumeValue, 5))
	}
}

func TestResolveVolumeSentinelPassesThroughNonSentinelValues(t *testing.T) {
	if got := ResolveVolumeSentinel(7, 3); got != 7 {
		t.Errorf("ResolveVolumeSentinel(7, 3) = %d, want 7 unchanged", got)
	}
}

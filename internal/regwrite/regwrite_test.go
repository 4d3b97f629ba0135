package regwrite

import (
	"testing"

	"tiazip/internal/tia"
)

func chan0Map() tia.ChannelAddressMap {
	return tia.DefaultChannelMaps()[0]
}

func TestReplayAllSilentFramesYieldsOneInterval(t *testing.T) {
	intervals := Replay(nil, chan0Map(), 5, 0)
	if len(intervals) != 1 {
		t.Fatalf("Replay(no writes) = %d intervals, want 1", len(intervals))
	}
	if intervals[0].Duration != 5 || intervals[0].State != (ChannelState{}) {
		t.Errorf("Replay(no writes) = %+v, want a single all-zero 5-frame interval", intervals[0])
	}
}

func TestReplaySplitsHeldStateAtMaxDuration(t *testing.T) {
	writes := []RegisterWrite{{Tick: 0, Address: tia.AUDV0, Value: 5}}
	intervals := Replay(writes, chan0Map(), 10, 4)
	if len(intervals) != 3 {
		t.Fatalf("Replay with maxDuration=4 over 10 frames = %d intervals, want 3 (4+4+2)", len(intervals))
	}
	total := 0
	for _, iv := range intervals {
		if iv.Duration > 4 {
			t.Errorf("interval duration %d exceeds maxDuration 4", iv.Duration)
		}
		total += iv.Duration
	}
	if total != 10 {
		t.Errorf("interval durations sum to %d, want 10", total)
	}
}

func TestReplayEmitsNewIntervalOnStateChange(t *testing.T) {
	writes := []RegisterWrite{
		{Tick: 0, Address: tia.AUDV0, Value: 5},
		{Tick: 3, Address: tia.AUDV0, Value: 9},
	}
	intervals := Replay(writes, chan0Map(), 6, 16)
	if len(intervals) != 2 {
		t.Fatalf("Replay across a state change = %d intervals, want 2", len(intervals))
	}
	if intervals[0].Duration != 3 || intervals[0].State.Volume != 5 {
		t.Errorf("first interval = %+v, want {Volume:5 Duration:3}", intervals[0])
	}
	if intervals[1].Duration != 3 || intervals[1].State.Volume != 9 {
		t.Errorf("second interval = %+v, want {Volume:9 Duration:3}", intervals[1])
	}
}

func TestReplayCoalescesMultipleWritesOnSameFrame(t *testing.T) {
	writes := []RegisterWrite{
		{Tick: 0, Address: tia.AUDC0, Value: 1},
		{Tick: 0, Address: tia.AUDF0, Value: 2},
		{Tick: 0, Address: tia.AUDV0, Value: 3},
	}
	intervals := Replay(writes, chan0Map(), 2, 16)
	if len(intervals) != 1 {
		t.Fatalf("Replay with all three registers set on frame 0 = %d intervals, want 1", len(intervals))
	}
	want := ChannelState{Control: 1, Frequency: 2, Volume: 3}
	if intervals[0].State != want {
		t.Errorf("interval state = %+v, want %+v", intervals[0].State, want)
	}
}

func TestChannelStateChangedReportsEachField(t *testing.T) {
	a := ChannelState{Control: 1, Frequency: 2, Volume: 3}
	b := ChannelState{Control: 1, Frequency: 9, Volume: 3}
	control, frequency, volume := a.Changed(b)
	if control || !frequency || volume {
		t.Errorf("Changed() = (%v,%v,%v), want (false,true,false)", control, frequency, volume)
	}
}

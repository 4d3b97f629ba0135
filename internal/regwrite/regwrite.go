// Package regwrite holds the engine-facing data model: the raw register
// write log, per-channel register state, and the replay that turns a log
// into a list of state-holding intervals.
package regwrite

import "tiazip/internal/tia"

// RegisterWrite is one engine event: a timestamped write of a value to a
// TIA register, tagged with the row coordinate it came from. The log is
// append-only and its ordering is the producer's; replay never reorders
// it.
type RegisterWrite struct {
	Tick      uint64
	Seconds   float64
	Hz        float64
	Subsong   int
	Order     int
	Row       int
	Address   tia.RegisterAddress
	Value     byte
}

// ChannelState is the three TIA audio registers for one channel at a
// point in time. It is immutable per interval: a new ChannelState value
// is produced, never mutated in place, whenever any of its fields
// change.
type ChannelState struct {
	Control   byte
	Frequency byte
	Volume    byte
}

// Changed reports which fields differ between s and other.
func (s ChannelState) Changed(other ChannelState) (control, frequency, volume bool) {
	return s.Control != other.Control, s.Frequency != other.Frequency, s.Volume != other.Volume
}

// ChannelStateInterval is a maximal run of frames during which a channel
// held a single ChannelState, capped at maxIntervalDuration frames.
type ChannelStateInterval struct {
	State    ChannelState
	Duration int
}

const defaultMaxIntervalDuration = 16

// Replay walks one channel's write log against a fresh, all-zero
// ChannelState and returns the resulting interval list. maxDuration
// bounds the duration of the longest interval emitted: a held state
// longer than maxDuration frames is split into multiple intervals, which
// bounds worst-case SUSTAIN encoding downstream. maxDuration<=0 selects
// the default of 16.
//
// frameCount is the total number of frames the channel was driven for
// (including any silent trailing frames the write log does not
// explicitly cover); writes are assumed sorted by Tick ascending within
// the (subsong, channel) the caller has already filtered to.
func Replay(writes []RegisterWrite, addrMap tia.ChannelAddressMap, frameCount, maxDuration int) []ChannelStateInterval {
	if maxDuration <= 0 {
		maxDuration = defaultMaxIntervalDuration
	}

	var intervals []ChannelStateInterval
	current := ChannelState{}
	pending := 0
	writeIdx := 0

	flush := func() {
		for pending > 0 {
			d := pending
			if d > maxDuration {
				d = maxDuration
			}
			intervals = append(intervals, ChannelStateInterval{State: current, Duration: d})
			pending -= d
		}
	}

	for frame := 0; frame < frameCount; frame++ {
		next := current
		changed := false
		for writeIdx < len(writes) && int(writes[writeIdx].Tick) == frame {
			w := writes[writeIdx]
			switch addrMap[w.Address] {
			case tia.Control:
				next.Control = w.Value
			case tia.Frequency:
				next.Frequency = w.Value
			case tia.Volume:
				next.Volume = w.Value
			}
			writeIdx++
		}
		changed = next != current
		if changed && pending > 0 {
			flush()
		}
		current = next
		pending++
	}
	flush()

	return intervals
}

// Package lowering maps a per-channel register-write log into the typed
// AlphaCode instruction stream the rest of the pipeline operates on
// (spec.md §4.1).
package lowering

import (
	"log/slog"

	"tiazip/internal/alphacode"
	"tiazip/internal/regwrite"
	"tiazip/internal/tia"
)

// Volume adjacency sentinels: out-of-range raw volume values (TIA volume
// is 4 bits, 0-15) reserved to mean "last volume ± 1" when
// Options.VolumeAdjacencySentinel is enabled.
const (
	SentinelVolumeUp   byte = 0x10
	SentinelVolumeDown byte = 0xF0
)

// Options configures the delta-encoding rules spec.md §9 flags as
// evaluable-per-corpus decisions rather than fixed behavior.
type Options struct {
	// MaxIntervalDuration bounds a single coalesced interval (and thus a
	// single SUSTAIN run); 0 selects the package default of 16.
	MaxIntervalDuration int

	// ForceFullDeltaOnControlChange makes a WRITE_DELTA whose control
	// register changed set all three change-flags, per the original
	// encoder's empirical tightening of the alphabet (spec.md §4.1,
	// §9 Open Questions).
	ForceFullDeltaOnControlChange bool

	// VolumeAdjacencySentinel re-encodes a ±1 volume step using the
	// reserved sentinel operands instead of the raw new value.
	VolumeAdjacencySentinel bool
}

// DefaultOptions matches the original encoder's empirical defaults.
func DefaultOptions() Options {
	return Options{
		MaxIntervalDuration:           16,
		ForceFullDeltaOnControlChange: true,
		VolumeAdjacencySentinel:       true,
	}
}

// Lower replays writes for one (subsong, channel) and returns the
// lowered AlphaCode sequence, always ending in STOP.
//
// A zero-duration interval (upstream rounding bug) is recovered by
// clamping to 1 and logging a warning; this never aborts lowering, per
// spec.md §7's InvalidDuration recovery policy.
func Lower(log *slog.Logger, writes []regwrite.RegisterWrite, addrMap tia.ChannelAddressMap, frameCount int, opts Options) []alphacode.Code {
	if log == nil {
		log = slog.Default()
	}
	intervals := regwrite.Replay(writes, addrMap, frameCount, opts.MaxIntervalDuration)

	var out []alphacode.Code
	last := regwrite.ChannelState{}

	for pos, iv := range intervals {
		duration := iv.Duration
		if duration == 0 {
			log.Warn("zero-duration interval recovered to 1", "position", pos)
			duration = 1
		}

		if iv.State.Volume == 0 {
			out = append(out, alphacode.Pause(1))
			last.Volume = 0
			remainder := duration - 1
			if remainder > 0 {
				out = append(out, alphacode.Sustain(remainder))
			}
			continue
		}

		cChanged, fChanged, vChanged := last.Changed(iv.State)
		if !cChanged && !fChanged && !vChanged {
			// No register changed, volume is nonzero: pure sustain of
			// the previous audible state.
			out = append(out, alphacode.Sustain(duration))
			continue
		}

		emitC, emitF, emitV := cChanged, fChanged, vChanged
		if cChanged && opts.ForceFullDeltaOnControlChange {
			emitC, emitF, emitV = true, true, true
		}

		volumeValue := iv.State.Volume
		if opts.VolumeAdjacencySentinel && emitV {
			switch int(iv.State.Volume) - int(last.Volume) {
			case 1:
				volumeValue = SentinelVolumeUp
			case -1:
				volumeValue = SentinelVolumeDown
			}
		}

		out = append(out, alphacode.WriteDelta(
			alphacode.ChangeFlag(emitC), iv.State.Control,
			alphacode.ChangeFlag(emitF), iv.State.Frequency,
			alphacode.ChangeFlag(emitV), volumeValue,
			1,
		))
		last = iv.State

		remainder := duration - 1
		if remainder > 0 {
			out = append(out, alphacode.Sustain(remainder))
		}
	}

	out = append(out, alphacode.Stop())
	return out
}

// ResolveVolumeSentinel undoes the ±1 sentinel encoding, returning the
// real register value a decoder must write; it is the inverse of the
// sentinel substitution Lower applies (spec.md §9's lossiness warning).
// The bit encoder and the validator work on the sentinel value as lowered
// and do not call it.
func ResolveVolumeSentinel(raw byte, lastVolume byte) byte {
	switch raw {
	case SentinelVolumeUp:
		return lastVolume + 1
	case SentinelVolumeDown:
		return lastVolume - 1
	default:
		return raw
	}
}

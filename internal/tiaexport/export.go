// Package tiaexport is the top-level orchestration spec.md §6 describes:
// given a register-write log per (subsong, channel), run the selected
// variant's pipeline, validate the TIAZIP path, and assemble the named
// output artifacts. Grounded on tools/forge/main.go's linear
// read→transform→encode→serialize report style and
// tools/forge/pipeline/run.go's sync.WaitGroup validation fan-out,
// adapted here to validate across (subsong, channel) pairs instead of
// across songs.
package tiaexport

import (
	"fmt"
	"log/slog"
	"sync"

	"tiazip/internal/alphacode"
	"tiazip/internal/asmout"
	"tiazip/internal/bitencoder"
	"tiazip/internal/compressor"
	"tiazip/internal/config"
	"tiazip/internal/lowering"
	"tiazip/internal/regwrite"
	"tiazip/internal/rewriter"
	"tiazip/internal/suffixtree"
	"tiazip/internal/tia"
	"tiazip/internal/tiaerr"
)

// ChannelInput is one channel's register-write log for one subsong.
type ChannelInput struct {
	Writes  []regwrite.RegisterWrite
	AddrMap tia.ChannelAddressMap
}

// SubsongInput bundles both channels of one subsong.
type SubsongInput struct {
	Channels [2]ChannelInput
}

// Input is everything Export needs: the song metadata for Track_meta.asm
// and every subsong's register-write logs.
type Input struct {
	Meta       asmout.Meta
	FrameCount int
	Subsongs   []SubsongInput
}

// Artifacts is the named output set spec.md §6 requires.
type Artifacts struct {
	TrackData     []byte // Track_data.asm, mandatory for TIAZIP
	TrackMeta     []byte // Track_meta.asm, mandatory for TIAZIP
	RegisterDump  []byte // RegisterDump.txt, only when romout.debugOutput is set
	SiblingBlocks map[string][]byte
}

// channelBuild holds one (subsong, channel)'s intermediate pipeline
// state, kept around long enough for its validation pass.
type channelBuild struct {
	subsong, channel int
	baseAddress      int
	lowered          []alphacode.Code
	comp             *compressor.Result
	rw               *rewriter.Result
	streams          *bitencoder.Streams
	trees            *bitencoder.Trees
	table            *bitencoder.JumpIndexTable
}

// Export runs the configured variant's pipeline over every
// (subsong, channel) pair and returns the artifact set, or the first
// typed failure encountered. TIAZIP's suffix-tree, compressor, and
// rewriter stages run sequentially per channel (the suffix tree is the
// largest structure alive at any moment and must be dropped before the
// next channel's bit encoding begins, per spec.md §5's resource
// lifetime rule); validation of every already-encoded channel then runs
// concurrently, since each channel's check touches only its own state.
func Export(cfg *config.Config, logger *slog.Logger, input Input) (*Artifacts, tiaerr.Error) {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.RomOut.TIAExportType != config.TIAZip {
		return exportSibling(cfg, logger, input)
	}

	builds, err := buildChannels(cfg, logger, input)
	if err != nil {
		return nil, err
	}

	if err := validateAll(builds); err != nil {
		return nil, err
	}

	merged := make([]asmout.Stream, 0, len(builds))
	for _, b := range builds {
		merged = append(merged, asmout.Stream{
			Subsong: b.subsong,
			Channel: b.channel,
			Data:    b.streams.Data.Bytes(),
			Jump:    b.streams.Span.Bytes(),
		})
	}

	art := &Artifacts{
		TrackData: asmout.BuildTrackData(input.Meta.Name, input.Meta.Author, merged, len(input.Subsongs)),
		TrackMeta: asmout.BuildTrackMeta(input.Meta),
	}

	if cfg.RomOut.DebugOutput {
		art.RegisterDump = asmout.BuildRegisterDump(input.Meta.Name, input.Meta.Author, allWrites(input))
	}

	return art, nil
}

// buildChannels runs the TIAZIP pipeline over every (subsong, channel)
// pair in emission order and returns one channelBuild per pair. The
// suffix tree is dropped before rewriting/encoding begins per spec.md
// §5's resource lifetime rule. baseAddress starts at dataOffset*8 and
// accumulates across channels in the same order they are emitted into
// Track_data.asm, per spec.md §6: each channel's data and jump bytes
// push the next channel's base forward, so concatenated artifacts never
// collide in address space.
func buildChannels(cfg *config.Config, logger *slog.Logger, input Input) ([]*channelBuild, tiaerr.Error) {
	if logger == nil {
		logger = slog.Default()
	}
	var builds []*channelBuild
	baseAddress := cfg.DataOffset * 8

	for ss, sub := range input.Subsongs {
		for ch := 0; ch < 2; ch++ {
			in := sub.Channels[ch]
			lowered := lowering.Lower(logger.With("subsong", ss, "channel", ch), in.Writes, in.AddrMap, input.FrameCount, lowering.DefaultOptions())

			alphabet := alphacode.BuildAlphabet(lowered)
			chars := alphabet.Encode(lowered)
			tree := suffixtree.Build(chars, 0)

			comp := compressor.Compress(tree, len(lowered), cfg.SpanThreshold)
			tree = nil // drop the largest structure before rewriting/encoding

			rw := rewriter.Rewrite(lowered, comp)

			freq := bitencoder.NewFrequencies()
			freq.Collect(rw.Data, rw.Span)
			trees := bitencoder.BuildTrees(freq, cfg.HuffmanLeafCap)
			table := bitencoder.BuildJumpIndexTable(freq.JumpTargets, cfg.JumpIndexCap)

			channelBase := baseAddress
			streams := bitencoder.Encode(rw.Data, rw.Span, trees, table, channelBase)

			if got := streams.Data.BytesUsed() + streams.Span.BytesUsed(); got > cfg.BlockSize {
				return nil, tiaerr.CapacityExceeded(fmt.Sprintf("subsong %d channel %d encoded block size", ss, ch), cfg.BlockSize, got)
			}

			builds = append(builds, &channelBuild{
				subsong: ss, channel: ch, baseAddress: channelBase,
				lowered: lowered, comp: comp, rw: rw,
				streams: streams, trees: trees, table: table,
			})

			baseAddress += (streams.Data.BytesUsed() + streams.Span.BytesUsed()) * 8
		}
	}

	return builds, nil
}

// validateAll runs internal/validator.Validate across every already
// encoded channel concurrently, reporting the first divergence found.
// Mirrors pipeline.RunValidation's goroutine-per-unit, WaitGroup-joined
// shape, generalized from one goroutine per song to one per
// (subsong, channel).
func validateAll(builds []*channelBuild) tiaerr.Error {
	errs := make([]tiaerr.Error, len(builds))

	var wg sync.WaitGroup
	for i, b := range builds {
		wg.Add(1)
		go func(idx int, build *channelBuild) {
			defer wg.Done()
			errs[idx] = validateChannel(build, build.baseAddress)
		}(i, b)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func allWrites(input Input) []regwrite.RegisterWrite {
	var out []regwrite.RegisterWrite
	for _, sub := range input.Subsongs {
		for ch := 0; ch < 2; ch++ {
			out = append(out, sub.Channels[ch].Writes...)
		}
	}
	return out
}

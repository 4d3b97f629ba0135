package tiaexport

import (
	"fmt"
	"log/slog"

	"tiazip/internal/asmout"
	"tiazip/internal/config"
	"tiazip/internal/regwrite"
	"tiazip/internal/sibling"
	"tiazip/internal/tiaerr"
)

// exportSibling runs one of the RAW/BASIC/BASIC_RLE/TIACOMP/FSEQ
// variants: each replays straight to regwrite.ChannelStateInterval and
// skips the Huffman/suffix-tree machinery (and therefore
// internal/validator, which only checks the TIAZIP bitstream encoding)
// entirely.
func exportSibling(cfg *config.Config, logger *slog.Logger, input Input) (*Artifacts, tiaerr.Error) {
	blocks := make(map[string][]byte)

	var fseqInitial []regwrite.ChannelState
	var fseqSequences [][]regwrite.ChannelStateInterval

	for ss, sub := range input.Subsongs {
		for ch := 0; ch < 2; ch++ {
			in := sub.Channels[ch]
			intervals := regwrite.Replay(in.Writes, in.AddrMap, input.FrameCount, 16)
			key := fmt.Sprintf("S%d_C%d", ss, ch)

			switch cfg.RomOut.TIAExportType {
			case config.RAW:
				b, err := sibling.EncodeRaw(intervals, true)
				if err != nil {
					return nil, err
				}
				blocks[key] = b
			case config.Basic:
				t, err := sibling.EncodeBasic(intervals)
				if err != nil {
					return nil, err
				}
				blocks[key+"_FREQ"] = t.Freq
				blocks[key+"_CV"] = t.CV
			case config.BasicRLE:
				t, err := sibling.EncodeBasicRLE(intervals)
				if err != nil {
					return nil, err
				}
				blocks[key+"_FREQ"] = t.Freq
				blocks[key+"_CV"] = t.CV
			case config.TIAComp:
				b, err := sibling.EncodeTIAComp(regwrite.ChannelState{}, intervals)
				if err != nil {
					return nil, err
				}
				blocks[key] = b
			case config.FSeq:
				fseqInitial = append(fseqInitial, regwrite.ChannelState{})
				fseqSequences = append(fseqSequences, intervals)
			default:
				return nil, tiaerr.ConfigInvalidf("romout.tiaExportType: unsupported sibling variant %q", cfg.RomOut.TIAExportType)
			}
		}
	}

	if cfg.RomOut.TIAExportType == config.FSeq {
		art, err := sibling.EncodeFSeq(fseqInitial, fseqSequences)
		if err != nil {
			return nil, err
		}
		for i, pattern := range art.Patterns {
			blocks[fmt.Sprintf("PATTERN_%d", i)] = pattern
		}
		for i, ref := range art.References {
			blocks[fmt.Sprintf("REF_%d", i)] = []byte{byte(ref)}
		}
	}

	out := &Artifacts{SiblingBlocks: blocks, TrackMeta: asmout.BuildTrackMeta(input.Meta)}
	if cfg.RomOut.DebugOutput {
		out.RegisterDump = asmout.BuildRegisterDump(input.Meta.Name, input.Meta.Author, allWrites(input))
	}
	return out, nil
}

package tiaexport

import (
	"testing"

	"tiazip/internal/asmout"
	"tiazip/internal/config"
	"tiazip/internal/regwrite"
	"tiazip/internal/tia"
)

func writesFor(ss int, addr tia.RegisterAddress, values ...byte) []regwrite.RegisterWrite {
	out := make([]regwrite.RegisterWrite, len(values))
	for i, v := range values {
		out[i] = regwrite.RegisterWrite{Tick: uint64(i), Subsong: ss, Address: addr, Value: v}
	}
	return out
}

func buildMeta() asmout.Meta {
	return asmout.Meta{Name: "Test Song", Author: "Test Author"}
}

func simpleInput() Input {
	maps := tia.DefaultChannelMaps()
	ch0 := ChannelInput{
		Writes: append(
			writesFor(0, tia.AUDV0, 8),
			writesFor(0, tia.AUDF0, 10)...,
		),
		AddrMap: maps[0],
	}
	ch1 := ChannelInput{Writes: nil, AddrMap: maps[1]}
	return Input{
		Meta:       buildMeta(),
		FrameCount: 4,
		Subsongs:   []SubsongInput{{Channels: [2]ChannelInput{ch0, ch1}}},
	}
}

func TestExportTIAZipProducesMandatoryArtifacts(t *testing.T) {
	cfg := config.Default()
	input := simpleInput()

	art, err := Export(cfg, nil, input)
	if err != nil {
		t.Fatalf("Export returned an error: %v", err)
	}
	if len(art.TrackData) == 0 {
		t.Errorf("TrackData must be populated for the TIAZIP variant")
	}
	if len(art.TrackMeta) == 0 {
		t.Errorf("TrackMeta must be populated for the TIAZIP variant")
	}
	if art.RegisterDump != nil {
		t.Errorf("RegisterDump must be nil when debugOutput is not set")
	}
}

func TestExportTIAZipEmitsRegisterDumpWhenDebugOutputEnabled(t *testing.T) {
	cfg := config.Default()
	cfg.RomOut.DebugOutput = true
	input := simpleInput()

	art, err := Export(cfg, nil, input)
	if err != nil {
		t.Fatalf("Export returned an error: %v", err)
	}
	if art.RegisterDump == nil {
		t.Errorf("RegisterDump must be populated when debugOutput is set")
	}
}

func TestExportCapacityExceededWhenBlockTooSmall(t *testing.T) {
	cfg := config.Default()
	cfg.BlockSize = 1 // impossible to fit even a STOP-only channel's headers
	input := simpleInput()

	_, err := Export(cfg, nil, input)
	if err == nil {
		t.Fatalf("Export must fail when the encoded block exceeds cfg.BlockSize")
	}
}

func TestBuildChannelsAccumulatesBaseAddressAcrossChannels(t *testing.T) {
	cfg := config.Default()
	input := simpleInput()

	builds, err := buildChannels(cfg, nil, input)
	if err != nil {
		t.Fatalf("buildChannels returned an error: %v", err)
	}
	if len(builds) != 2 {
		t.Fatalf("buildChannels(1 subsong) = %d builds, want 2", len(builds))
	}

	if builds[0].baseAddress != cfg.DataOffset*8 {
		t.Errorf("first channel's baseAddress = %d, want dataOffset*8 = %d", builds[0].baseAddress, cfg.DataOffset*8)
	}

	wantSecond := builds[0].baseAddress + (builds[0].streams.Data.BytesUsed()+builds[0].streams.Span.BytesUsed())*8
	if builds[1].baseAddress != wantSecond {
		t.Errorf("second channel's baseAddress = %d, want %d (first channel's base plus its bytes-used)", builds[1].baseAddress, wantSecond)
	}
	if builds[1].baseAddress == builds[0].baseAddress {
		t.Errorf("two channels must not share the same baseAddress, else their concatenated artifacts would collide")
	}
}

func TestExportMirroredChannelsDoNotCollideInAddressSpace(t *testing.T) {
	cfg := config.Default()
	maps := tia.DefaultChannelMaps()
	writes := append(writesFor(0, tia.AUDV0, 8), writesFor(0, tia.AUDF0, 10)...)
	mirrored := ChannelInput{Writes: writes, AddrMap: maps[0]}
	writes1 := append(writesFor(0, tia.AUDV1, 8), writesFor(0, tia.AUDF1, 10)...)
	input := Input{
		Meta:       buildMeta(),
		FrameCount: 4,
		Subsongs:   []SubsongInput{{Channels: [2]ChannelInput{mirrored, {Writes: writes1, AddrMap: maps[1]}}}},
	}

	builds, err := buildChannels(cfg, nil, input)
	if err != nil {
		t.Fatalf("buildChannels returned an error: %v", err)
	}

	lenC0 := builds[0].streams.Data.BytesUsed() + builds[0].streams.Span.BytesUsed()
	lenC1 := builds[1].streams.Data.BytesUsed() + builds[1].streams.Span.BytesUsed()
	if lenC0 != lenC1 {
		t.Fatalf("mirrored channels encoded to different byte lengths: %d vs %d", lenC0, lenC1)
	}
	if builds[1].baseAddress != builds[0].baseAddress+lenC0*8 {
		t.Errorf("mirrored channel 1's baseAddress = %d, want %d", builds[1].baseAddress, builds[0].baseAddress+lenC0*8)
	}

	if verr := validateAll(builds); verr != nil {
		t.Errorf("validateAll on mirrored channels = %v, want nil", verr)
	}
}

func TestExportSiblingRawVariantProducesBlocks(t *testing.T) {
	cfg := config.Default()
	cfg.RomOut.TIAExportType = config.RAW
	input := simpleInput()

	art, err := Export(cfg, nil, input)
	if err != nil {
		t.Fatalf("Export returned an error: %v", err)
	}
	if len(art.SiblingBlocks) == 0 {
		t.Errorf("RAW variant must produce at least one sibling block")
	}
}

// Package config loads TIAZIP's export configuration from a YAML file,
// with pflag-driven CLI overrides layered on top, grounded on
// lib/config's "single source of truth, no hidden overrides" discipline
// and its Default/LoadFile/Validate shape.
package config

import (
	"bytes"
	"io"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"tiazip/internal/tiaerr"
)

// Variant names an export format, per spec.md §6's romout.tiaExportType.
type Variant string

const (
	RAW      Variant = "RAW"
	Basic    Variant = "BASIC"
	BasicRLE Variant = "BASIC_RLE"
	TIAComp  Variant = "TIACOMP"
	FSeq     Variant = "FSEQ"
	TIAZip   Variant = "TIAZIP"
)

var validVariants = map[Variant]bool{
	RAW: true, Basic: true, BasicRLE: true, TIAComp: true, FSeq: true, TIAZip: true,
}

// RomOut is the export-variant and debug-dump section of the config
// file, named after the original's romout.* option namespace (spec.md
// §6's Configuration table).
type RomOut struct {
	TIAExportType Variant `yaml:"tiaExportType"`
	DebugOutput   bool    `yaml:"debugOutput"`
}

// Config is the master configuration for a TIAZIP export run.
type Config struct {
	RomOut RomOut `yaml:"romout"`

	// JumpIndexCap bounds the jump-index table (spec.md §4.7): 32 in the
	// dynamic encoder, 64 in the fixed encoder.
	JumpIndexCap int `yaml:"jumpIndexCap"`

	// HuffmanLeafCap bounds each per-field Huffman tree's leaf count
	// (spec.md §4.5); 0 means unlimited.
	HuffmanLeafCap int `yaml:"huffmanLeafCap"`

	// SpanThreshold is theta: the compressor promotes a match to a copy
	// only when it is longer than theta, and leaves shorter or equal
	// matches as a literal run (spec.md §4.3).
	SpanThreshold int `yaml:"spanThreshold"`

	// DataOffset is the ROM base address compressed streams are
	// addressed relative to (spec.md §6, default 0x0300).
	DataOffset int `yaml:"dataOffset"`

	// BlockSize bounds a single (subsong, channel) artifact's encoded
	// size (spec.md §6, default 4096 bytes).
	BlockSize int `yaml:"blockSize"`
}

// Default returns the configuration spec.md §6 names as defaults. These
// exist so every field has a sensible zero-value before a file is
// loaded, not as a substitute for one.
func Default() *Config {
	return &Config{
		RomOut: RomOut{
			TIAExportType: TIAZip,
			DebugOutput:   false,
		},
		JumpIndexCap:   32,
		HuffmanLeafCap: 0,
		SpanThreshold:  3,
		DataOffset:     0x0300,
		BlockSize:      4096,
	}
}

// LoadFile loads configuration from a YAML file, starting from Default.
func LoadFile(path string) (*Config, tiaerr.Error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, tiaerr.ConfigInvalidf("reading config file %s: %v", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // an unrecognized key is a ConfigInvalid error
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, tiaerr.ConfigInvalidf("parsing config file %s: %v", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// BindFlags registers pflag overrides for every Config field onto fs,
// layered on top of whatever LoadFile already populated. Call Apply
// after fs.Parse to copy flag values back into cfg.
type flagBindings struct {
	variant        *string
	debugOutput    *bool
	jumpIndexCap   *int
	huffmanLeafCap *int
	spanThreshold  *int
	dataOffset     *int
	blockSize      *int
}

// BindFlags adds one CLI flag per Config field to fs.
func BindFlags(fs *pflag.FlagSet, cfg *Config) *flagBindings {
	return &flagBindings{
		variant:        fs.String("export-variant", string(cfg.RomOut.TIAExportType), "export variant: RAW|BASIC|BASIC_RLE|TIACOMP|FSEQ|TIAZIP"),
		debugOutput:    fs.Bool("debug-output", cfg.RomOut.DebugOutput, "additionally emit RegisterDump.txt"),
		jumpIndexCap:   fs.Int("jump-index-cap", cfg.JumpIndexCap, "jump-index table capacity"),
		huffmanLeafCap: fs.Int("huffman-leaf-cap", cfg.HuffmanLeafCap, "Huffman tree leaf cap, 0 for unlimited"),
		spanThreshold:  fs.Int("span-threshold", cfg.SpanThreshold, "match lengths above this are promoted to a copy"),
		dataOffset:     fs.Int("data-offset", cfg.DataOffset, "ROM base address streams are relative to"),
		blockSize:      fs.Int("block-size", cfg.BlockSize, "per-channel artifact size cap in bytes"),
	}
}

// Apply copies flag values bound by BindFlags back into cfg and
// re-validates. Only flags the caller actually changed (fs.Changed)
// override what LoadFile populated, so a file value survives when the
// corresponding flag was left at its default.
func Apply(fs *pflag.FlagSet, b *flagBindings, cfg *Config) tiaerr.Error {
	if fs.Changed("export-variant") {
		cfg.RomOut.TIAExportType = Variant(*b.variant)
	}
	if fs.Changed("debug-output") {
		cfg.RomOut.DebugOutput = *b.debugOutput
	}
	if fs.Changed("jump-index-cap") {
		cfg.JumpIndexCap = *b.jumpIndexCap
	}
	if fs.Changed("huffman-leaf-cap") {
		cfg.HuffmanLeafCap = *b.huffmanLeafCap
	}
	if fs.Changed("span-threshold") {
		cfg.SpanThreshold = *b.spanThreshold
	}
	if fs.Changed("data-offset") {
		cfg.DataOffset = *b.dataOffset
	}
	if fs.Changed("block-size") {
		cfg.BlockSize = *b.blockSize
	}
	return cfg.Validate()
}

// Validate checks the configuration for the ConfigInvalid cases spec.md
// §7 names: unrecognized or malformed configuration options.
func (c *Config) Validate() tiaerr.Error {
	if !validVariants[c.RomOut.TIAExportType] {
		return tiaerr.ConfigInvalidf("romout.tiaExportType: unrecognized variant %q", c.RomOut.TIAExportType)
	}
	if c.JumpIndexCap <= 0 {
		return tiaerr.ConfigInvalid("jumpIndexCap must be positive")
	}
	if c.HuffmanLeafCap < 0 {
		return tiaerr.ConfigInvalid("huffmanLeafCap must be >= 0")
	}
	if c.SpanThreshold < 2 {
		return tiaerr.ConfigInvalid("spanThreshold must be >= 2")
	}
	if c.DataOffset < 0 {
		return tiaerr.ConfigInvalid("dataOffset must be >= 0")
	}
	if c.BlockSize <= 0 {
		return tiaerr.ConfigInvalid("blockSize must be positive")
	}
	return nil
}

// String renders the variant for flag/YAML round-tripping diagnostics.
func (v Variant) String() string { return string(v) }

// tiazip converts an Atari 2600 TIA register-write log into the
// TIAZIP compressed audio format (or one of its simpler sibling
// formats), emitting the assembly artifacts a 6502 toolchain links
// against.
//
// Usage:
//
//	tiazip [flags] <input.json> <output-dir>
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"tiazip/internal/config"
	"tiazip/internal/regwrite"
	"tiazip/internal/tia"
	"tiazip/internal/tiaerr"
	"tiazip/internal/tiaexport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string

	flagSet := pflag.NewFlagSet("tiazip", pflag.ContinueOnError)
	flagSet.ParseErrorsWhitelist = pflag.ParseErrorsWhitelist{UnknownFlags: true}
	flagSet.StringVar(&configPath, "config", "", "path to YAML config file (optional, defaults applied otherwise)")
	flagSet.BoolP("help", "h", false, "show help")

	// First pass only needs --config/--help; the variant-specific flags
	// aren't registered yet, so unknown flags are tolerated here and
	// picked up for real on the second pass below.
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	logLevel := slog.LevelInfo
	if os.Getenv("TIAZIP_DEBUG") != "" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	cfg := config.Default()
	if configPath != "" {
		loaded, cerr := config.LoadFile(configPath)
		if cerr != nil {
			return cerr
		}
		cfg = loaded
	}

	bindings := config.BindFlags(flagSet, cfg)
	flagSet.ParseErrorsWhitelist = pflag.ParseErrorsWhitelist{}
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return tiaerr.ConfigInvalidf("parsing flags: %v", err)
	}
	if cerr := config.Apply(flagSet, bindings, cfg); cerr != nil {
		return cerr
	}

	if help, _ := flagSet.GetBool("help"); help {
		printUsage(flagSet)
		return nil
	}
	args := flagSet.Args()
	if len(args) < 2 {
		printUsage(flagSet)
		return fmt.Errorf("expected <input.json> <output-dir>")
	}
	inputPath, outputDir := args[0], args[1]

	input, err := loadInput(inputPath)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	logger.Info("exporting", "variant", cfg.RomOut.TIAExportType, "subsongs", len(input.Subsongs))

	artifacts, cerr := tiaexport.Export(cfg, logger, input)
	if cerr != nil {
		return fmt.Errorf("export failed (%s): %w", cerr.Kind(), cerr)
	}

	if err := writeArtifacts(outputDir, artifacts); err != nil {
		return fmt.Errorf("writing artifacts: %w", err)
	}

	logger.Info("export complete", "outputDir", outputDir)
	return nil
}

// songFile is the on-disk JSON shape main reads: a flattened
// register-write log per (subsong, channel) plus song metadata. The
// pipeline itself (internal/tiaexport) knows nothing about JSON — this
// stays in main, the one place format-of-the-day input parsing belongs.
type songFile struct {
	Meta struct {
		Name        string  `json:"name"`
		Author      string  `json:"author"`
		Album       string  `json:"album"`
		System      string  `json:"system"`
		Tuning      float64 `json:"tuning"`
		Instruments int     `json:"instruments"`
		Wavetables  int     `json:"wavetables"`
		Samples     int     `json:"samples"`
	} `json:"meta"`
	FrameCount int `json:"frameCount"`
	Subsongs   []struct {
		Channels [2][]struct {
			Tick    uint64  `json:"tick"`
			Seconds float64 `json:"seconds"`
			Hz      float64 `json:"hz"`
			Order   int     `json:"order"`
			Row     int     `json:"row"`
			Address int     `json:"address"`
			Value   int     `json:"value"`
		} `json:"channels"`
	} `json:"subsongs"`
}

func loadInput(path string) (tiaexport.Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tiaexport.Input{}, err
	}

	var sf songFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return tiaexport.Input{}, err
	}

	addrMaps := tia.DefaultChannelMaps()

	input := tiaexport.Input{
		FrameCount: sf.FrameCount,
		Subsongs:   make([]tiaexport.SubsongInput, len(sf.Subsongs)),
	}
	input.Meta.Name = sf.Meta.Name
	input.Meta.Author = sf.Meta.Author
	input.Meta.Album = sf.Meta.Album
	input.Meta.System = sf.Meta.System
	input.Meta.Tuning = sf.Meta.Tuning
	input.Meta.Instruments = sf.Meta.Instruments
	input.Meta.Wavetables = sf.Meta.Wavetables
	input.Meta.Samples = sf.Meta.Samples

	for ss, sub := range sf.Subsongs {
		for ch := 0; ch < 2; ch++ {
			var sub2 tiaexport.ChannelInput
			sub2.AddrMap = addrMaps[ch]
			for _, w := range sub.Channels[ch] {
				sub2.Writes = append(sub2.Writes, regwrite.RegisterWrite{
					Tick:    w.Tick,
					Seconds: w.Seconds,
					Hz:      w.Hz,
					Subsong: ss,
					Order:   w.Order,
					Row:     w.Row,
					Address: tia.RegisterAddress(w.Address),
					Value:   byte(w.Value),
				})
			}
			input.Subsongs[ss].Channels[ch] = sub2
		}
	}
	return input, nil
}

func printUsage(fs *pflag.FlagSet) {
	fmt.Fprintln(os.Stderr, "Usage: tiazip [flags] <input.json> <output-dir>")
	fmt.Fprintln(os.Stderr)
	fs.PrintDefaults()
}

func writeArtifacts(dir string, art *tiaexport.Artifacts) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	write := func(name string, data []byte) error {
		if data == nil {
			return nil
		}
		return os.WriteFile(filepath.Join(dir, name), data, 0644)
	}
	if err := write("Track_data.asm", art.TrackData); err != nil {
		return err
	}
	if err := write("Track_meta.asm", art.TrackMeta); err != nil {
		return err
	}
	if err := write("RegisterDump.txt", art.RegisterDump); err != nil {
		return err
	}
	for name, data := range art.SiblingBlocks {
		if err := write(name+".bin", data); err != nil {
			return err
		}
	}
	return nil
}

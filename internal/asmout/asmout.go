// Package asmout formats the pipeline's final byte streams into the
// assembly text artifacts a 6502 toolchain links against:
// Track_data.asm (hex-dumped data/jump streams plus the track lookup
// table), Track_meta.asm (comment header and a 4x6 bitmap-font title
// render), and the optional RegisterDump.txt debug artifact. Grounded on
// atari2600Export.cpp's SafeWriter-based text assembly (lines ~950-1830).
package asmout

import (
	"fmt"
	"strings"

	"tiazip/internal/regwrite"
)

// fontData is the 4x6 bitmap font atari2600Export.cpp embeds for title
// rendering: digits 0-9, space, underscore, dot, '<', '>', then A-Z.
// Each glyph is six row bytes with its pixels in the low nibble; the
// first row is always blank and bit 0 of every row is zero, so each
// glyph is 3 pixels wide plus one blank spacing column.
var fontData = [41][6]byte{
	{0x00, 0x04, 0x0a, 0x0a, 0x0a, 0x04}, // 0
	{0x00, 0x0e, 0x04, 0x04, 0x04, 0x0c}, // 1
	{0x00, 0x0e, 0x08, 0x06, 0x02, 0x0c}, // 2
	{0x00, 0x0c, 0x02, 0x06, 0x02, 0x0c}, // 3
	{0x00, 0x02, 0x02, 0x0e, 0x0a, 0x0a}, // 4
	{0x00, 0x0c, 0x02, 0x0c, 0x08, 0x06}, // 5
	{0x00, 0x06, 0x0a, 0x0c, 0x08, 0x06}, // 6
	{0x00, 0x08, 0x08, 0x04, 0x02, 0x0e}, // 7
	{0x00, 0x06, 0x0a, 0x0e, 0x0a, 0x0c}, // 8
	{0x00, 0x02, 0x02, 0x0e, 0x0a, 0x0c}, // 9
	{0x00, 0x00, 0x00, 0x00, 0x00, 0x00}, // space
	{0x00, 0x0e, 0x00, 0x00, 0x00, 0x00}, // underscore
	{0x00, 0x04, 0x00, 0x00, 0x00, 0x00}, // dot
	{0x00, 0x02, 0x04, 0x08, 0x04, 0x02}, // <
	{0x00, 0x08, 0x04, 0x02, 0x04, 0x08}, // >
	{0x00, 0x0a, 0x0a, 0x0e, 0x0a, 0x0e}, // A
	{0x00, 0x0e, 0x0a, 0x0c, 0x0a, 0x0e}, // B
	{0x00, 0x0e, 0x08, 0x08, 0x08, 0x0e}, // C
	{0x00, 0x0c, 0x0a, 0x0a, 0x0a, 0x0c}, // D
	{0x00, 0x0e, 0x08, 0x0c, 0x08, 0x0e}, // E
	{0x00, 0x08, 0x08, 0x0c, 0x08, 0x0e}, // F
	{0x00, 0x0e, 0x0a, 0x08, 0x08, 0x0e}, // G
	{0x00, 0x0a, 0x0a, 0x0e, 0x0a, 0x0a}, // H
	{0x00, 0x04, 0x04, 0x04, 0x04, 0x04}, // I
	{0x00, 0x0e, 0x0a, 0x02, 0x02, 0x02}, // J
	{0x00, 0x0a, 0x0a, 0x0c, 0x0a, 0x0a}, // K
	{0x00, 0x0e, 0x08, 0x08, 0x08, 0x08}, // L
	{0x00, 0x0a, 0x0a, 0x0e, 0x0e, 0x0e}, // M
	{0x00, 0x0a, 0x0a, 0x0a, 0x0a, 0x0e}, // N
	{0x00, 0x0e, 0x0a, 0x0a, 0x0a, 0x0e}, // O
	{0x00, 0x08, 0x08, 0x0e, 0x0a, 0x0e}, // P
	{0x00, 0x06, 0x08, 0x0a, 0x0a, 0x0e}, // Q
	{0x00, 0x0a, 0x0a, 0x0c, 0x0a, 0x0e}, // R
	{0x00, 0x0e, 0x02, 0x0e, 0x08, 0x0e}, // S
	{0x00, 0x04, 0x04, 0x04, 0x04, 0x0e}, // T
	{0x00, 0x0e, 0x0a, 0x0a, 0x0a, 0x0a}, // U
	{0x00, 0x04, 0x04, 0x0e, 0x0a, 0x0a}, // V
	{0x00, 0x0e, 0x0e, 0x0e, 0x0a, 0x0a}, // W
	{0x00, 0x0a, 0x0e, 0x04, 0x0e, 0x0a}, // X
	{0x00, 0x04, 0x04, 0x0e, 0x0a, 0x0a}, // Y
	{0x00, 0x0e, 0x08, 0x04, 0x02, 0x0e}, // Z
}

// fontIndex maps a title character to its fontData row.
func fontIndex(c byte) int {
	switch {
	case '0' <= c && c <= '9':
		return int(c - '0')
	case c == ' ' || c == 0:
		return 10
	case c == '.':
		return 12
	case c == '<':
		return 13
	case c == '>':
		return 14
	case 'a' <= c && c <= 'z':
		return 15 + int(c-'a')
	case 'A' <= c && c <= 'Z':
		return 15 + int(c-'A')
	default:
		return 11 // underscore: the font's catch-all glyph
	}
}

// RenderTitle packs title two characters per output row (each row's
// nibble holds one character's column of the two glyphs), matching
// writeTextGraphics's TITLE_GRAPHICS_k byte rows. A title longer than 26
// characters is truncated with a trailing ellipsis, matching the
// original's display-width limit. A title always produces at least 6
// rows, padded with blank rows past the end of the string, matching
// writeTextGraphics's `while (len < 6 || !end)`; the trailing
// TITLE_LENGTH constant the 6502 title blit sizes its loop off of is
// appended after the last row.
func RenderTitle(title string) string {
	if len(title) > 26 {
		title = title[:23] + "..."
	}

	var b strings.Builder
	row := 0
	pos := 0
	end := false
	for row < 6 || !end {
		fmt.Fprintf(&b, "TITLE_GRAPHICS_%d\n    byte ", row)
		row++

		var a, bc byte
		if !end {
			if pos < len(title) {
				a = title[pos]
				pos++
			}
			if a == 0 {
				end = true
			}
		}
		if !end {
			if pos < len(title) {
				bc = title[pos]
				pos++
			}
			if bc == 0 {
				end = true
			}
		}

		ai, bi := fontIndex(a), fontIndex(bc)
		for i := 0; i < 6; i++ {
			if i > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, "%d", (fontData[ai][i]<<4)+fontData[bi][i])
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "TITLE_LENGTH = %d\n", row)
	return b.String()
}

// Meta is the song metadata Track_meta.asm's comment header reports.
type Meta struct {
	Name        string
	Author      string
	Album       string
	System      string
	Tuning      float64
	Instruments int
	Wavetables  int
	Samples     int
}

// BuildTrackMeta renders Track_meta.asm: the comment header followed by
// the title's bitmap-font graphics rows.
func BuildTrackMeta(m Meta) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "; Name: %s\n", m.Name)
	fmt.Fprintf(&b, "; Author: %s\n", m.Author)
	fmt.Fprintf(&b, "; Album: %s\n", m.Album)
	fmt.Fprintf(&b, "; System: %s\n", m.System)
	fmt.Fprintf(&b, "; Tuning: %g\n", m.Tuning)
	fmt.Fprintf(&b, "; Instruments: %d\n", m.Instruments)
	fmt.Fprintf(&b, "; Wavetables: %d\n", m.Wavetables)
	fmt.Fprintf(&b, "; Samples: %d\n\n", m.Samples)

	title := m.Name
	if title == "" {
		title = "furnace tracker"
	} else {
		title = title + " by " + m.Author
	}
	b.WriteString(RenderTitle(title))
	return []byte(b.String())
}

// hexDump formats data 16 bytes per line, each line starting with
// "byte $xx" and continuing ", $xx", under a labeled start symbol,
// matching the AUDIO_DATA_S{ss}_C{c}_START / AUDIO_JUMP_S{ss}_C{c}_START
// dump loops.
func hexDump(b *strings.Builder, label string, data []byte) {
	fmt.Fprintf(b, "\n%s", label)
	for i, by := range data {
		if i%16 == 0 {
			fmt.Fprintf(b, "\n    byte $%02x", by)
		} else {
			fmt.Fprintf(b, ", $%02x", by)
		}
	}
	fmt.Fprintf(b, "\n; %s bytes: %d\n", label, len(data))
}

// Stream is one (subsong, channel)'s compressed data+jump byte pair,
// ready to be hex-dumped into Track_data.asm.
type Stream struct {
	Subsong int
	Channel int
	Data    []byte
	Jump    []byte
}

// BuildTrackData assembles Track_data.asm: the AUDIO_TRACKS lookup table
// (jump-high, jump-low, span-high, span-low per subsong, channel 1
// before channel 0 — "reverse order matters" per the original's own
// comment, since the player's table-copy routine walks it backwards),
// followed by every stream's hex-dumped data and jump bytes, each
// stream's data dump directly followed by its own jump dump.
func BuildTrackData(songName, author string, streams []Stream, numSongs int) []byte {
	var b strings.Builder
	b.WriteString("; Furnace Tracker audio data file\n")
	b.WriteString("; TIAZip data format\n")
	fmt.Fprintf(&b, "; Song: %s\n", songName)
	fmt.Fprintf(&b, "; Author: %s\n", author)
	fmt.Fprintf(&b, "\nAUDIO_NUM_TRACKS = %d\n", numSongs)

	b.WriteString("AUDIO_TRACKS:\n")
	for ss := 0; ss < numSongs; ss++ {
		fmt.Fprintf(&b, "    byte >JUMPS_S%d_C1_START, <JUMPS_S%d_C1_START\n", ss, ss)
		fmt.Fprintf(&b, "    byte >JUMPS_S%d_C0_START, <JUMPS_S%d_C0_START\n", ss, ss)
		fmt.Fprintf(&b, "    byte >SPANS_S%d_C1_START, <SPANS_S%d_C1_START\n", ss, ss)
		fmt.Fprintf(&b, "    byte >SPANS_S%d_C0_START, <SPANS_S%d_C0_START\n", ss, ss)
	}

	for _, s := range streams {
		hexDump(&b, fmt.Sprintf("AUDIO_DATA_S%d_C%d_START", s.Subsong, s.Channel), s.Data)
		hexDump(&b, fmt.Sprintf("AUDIO_JUMP_S%d_C%d_START", s.Subsong, s.Channel), s.Jump)
	}

	return []byte(b.String())
}

// BuildRegisterDump renders RegisterDump.txt: one human-readable line
// per register write, grounded on writeRegisterDump's tick/second/frame
// annotation.
func BuildRegisterDump(songName, author string, writes []regwrite.RegisterWrite) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "; Song: %s\n", songName)
	fmt.Fprintf(&b, "; Author: %s\n", author)

	currentSubsong := -1
	for _, w := range writes {
		if w.Subsong != currentSubsong {
			currentSubsong = w.Subsong
			fmt.Fprintf(&b, "\n; Song %d\n", currentSubsong)
		}
		fmt.Fprintf(&b, "; T%d S%.3f H%.2f: SS%d ORD%d ROW%d> $%04x = %d\n",
			w.Tick, w.Seconds, w.Hz, w.Subsong, w.Order, w.Row, w.Address, w.Value)
	}
	return []byte(b.String())
}

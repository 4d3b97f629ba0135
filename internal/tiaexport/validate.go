package tiaexport

import (
	"tiazip/internal/tiaerr"
	"tiazip/internal/validator"
)

// validateChannel runs the two-phase check from internal/validator
// against one already bit-encoded channel.
func validateChannel(b *channelBuild, baseAddress int) tiaerr.Error {
	return validator.Validate(b.subsong, b.channel, b.lowered, b.comp, b.rw, b.streams, b.trees, b.table, baseAddress)
}
